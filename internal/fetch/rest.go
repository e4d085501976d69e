// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/migstat/internal/httputil"
	"github.com/pdiddy/migstat/pkg/types"
)

// DefaultRESTTimeout bounds a REST download when no timeout is configured.
const DefaultRESTTimeout = 30 * time.Second

// REST downloads a pre-built URL and copies the body verbatim.
type REST struct {
	Client    *http.Client
	UserAgent string
	Timeout   time.Duration
	Retries   int
}

// NewREST returns a REST strategy using client and the given HTTP settings.
func NewREST(client *http.Client, cfg types.HTTPConfig) *REST {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRESTTimeout
	}
	return &REST{
		Client:    client,
		UserAgent: cfg.UserAgent,
		Timeout:   timeout,
		Retries:   cfg.Retries,
	}
}

func (r *REST) Kind() types.SourceKind { return types.KindREST }

// Fetch issues a GET to ds.ID. Any non-2xx status is an error and nothing
// is written.
func (r *REST) Fetch(ctx context.Context, ds types.Dataset, w io.Writer) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	header := http.Header{}
	if r.UserAgent != "" {
		header.Set("User-Agent", r.UserAgent)
	}
	header.Set("Accept", "application/zip, application/octet-stream")

	resp, err := httputil.Get(ctx, r.Client, ds.ID, header, r.Retries)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}
	return nil
}
