// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/pdiddy/migstat/internal/eurostat"
	"github.com/pdiddy/migstat/internal/httputil"
	"github.com/pdiddy/migstat/pkg/types"
)

// TabularSource returns a full dataset by identifier. *eurostat.Client
// implements it.
type TabularSource interface {
	Dataset(ctx context.Context, id string) (*types.Table, error)
}

// Tabular fetches datasets from a TabularSource and writes them as CSV.
type Tabular struct {
	Source TabularSource
}

// NewTabular returns a Tabular strategy backed by src.
func NewTabular(src TabularSource) *Tabular {
	return &Tabular{Source: src}
}

func (t *Tabular) Kind() types.SourceKind { return types.KindTabular }

// Fetch requests ds.ID from the source and writes the table to w.
func (t *Tabular) Fetch(ctx context.Context, ds types.Dataset, w io.Writer) error {
	table, err := t.Source.Dataset(ctx, ds.ID)
	if err != nil {
		return classifyTabular(err)
	}
	if err := WriteCSV(w, table); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return nil
}

// WriteCSV writes the header row followed by every data row. No index
// column is added.
func WriteCSV(w io.Writer, table *types.Table) error {
	if table == nil {
		return fmt.Errorf("nil table")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range table.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// classifyTabular maps source errors onto the taxonomy. Network failures
// and cancellation are transport errors; a rejected request or unreadable
// payload is the service's fault.
func classifyTabular(err error) error {
	var statusErr *httputil.StatusError
	var netErr net.Error
	switch {
	case errors.As(err, &statusErr), errors.Is(err, eurostat.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", ErrTransport, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
}
