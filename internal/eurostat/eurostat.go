// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package eurostat downloads full datasets from the Eurostat dissemination
// API and parses them into tables.
package eurostat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/migstat/internal/httputil"
	"github.com/pdiddy/migstat/pkg/types"
)

// Base URL is a package-level variable so tests can point it at httptest.
var dataAPIBase = "https://ec.europa.eu/eurostat/api/dissemination/sdmx/2.1/data/"

// missingValue marks an absent observation in Eurostat TSV output.
const missingValue = ":"

// ErrMalformed is returned when the TSV payload cannot be parsed.
var ErrMalformed = errors.New("malformed Eurostat TSV")

// Client fetches datasets from Eurostat.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Retries   int
}

// NewClient returns a Client using httpClient for requests.
func NewClient(httpClient *http.Client, userAgent string, retries int) *Client {
	return &Client{HTTP: httpClient, UserAgent: userAgent, Retries: retries}
}

// DatasetURL returns the TSV download URL for a dataset code.
func DatasetURL(code string) string {
	return dataAPIBase + url.PathEscape(code) + "?format=TSV&compressed=false"
}

// Dataset downloads the full dataset identified by code. Non-2xx responses
// surface as *httputil.StatusError; Eurostat answers 404 for unknown codes.
func (c *Client) Dataset(ctx context.Context, code string) (*types.Table, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("empty dataset code")
	}

	header := http.Header{}
	if c.UserAgent != "" {
		header.Set("User-Agent", c.UserAgent)
	}
	header.Set("Accept", "text/tab-separated-values, text/plain")

	resp, err := httputil.Get(ctx, c.HTTP, DatasetURL(code), header, c.Retries)
	if err != nil {
		return nil, fmt.Errorf("eurostat dataset %s: %w", code, err)
	}
	defer resp.Body.Close()

	table, err := ParseTSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("eurostat dataset %s: %w", code, err)
	}
	return table, nil
}

// ParseTSV parses Eurostat's TSV layout. The first header cell holds the
// comma-separated dimension names, the last one fused with the time
// dimension (e.g. "geo\TIME_PERIOD"); the remaining cells are periods.
// Each data row starts with comma-separated dimension values. Observation
// flags are stripped and missing values become empty cells.
func ParseTSV(r io.Reader) (*types.Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	head := strings.Split(strings.TrimRight(sc.Text(), "\r"), "\t")
	if len(head) < 2 {
		return nil, fmt.Errorf("%w: header has no time columns", ErrMalformed)
	}
	dims := splitTrim(head[0], ",")
	periods := make([]string, 0, len(head)-1)
	for _, p := range head[1:] {
		periods = append(periods, strings.TrimSpace(p))
	}

	table := &types.Table{Columns: append(dims, periods...)}
	width := len(table.Columns)

	line := 1
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		keys := splitTrim(fields[0], ",")
		if len(keys) != len(dims) {
			return nil, fmt.Errorf("%w: line %d has %d dimension values, want %d",
				ErrMalformed, line, len(keys), len(dims))
		}
		if len(fields)-1 > len(periods) {
			return nil, fmt.Errorf("%w: line %d has %d observations, want at most %d",
				ErrMalformed, line, len(fields)-1, len(periods))
		}

		row := make([]string, width)
		copy(row, keys)
		for i, obs := range fields[1:] {
			row[len(dims)+i] = observationValue(obs)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading line %d: %w", line+1, err)
	}
	return table, nil
}

// observationValue strips the flag suffix from a cell such as "1234 p" or
// ": c" and maps the missing marker to an empty string.
func observationValue(cell string) string {
	v := strings.TrimSpace(cell)
	if i := strings.IndexByte(v, ' '); i >= 0 {
		v = v[:i]
	}
	if v == missingValue {
		return ""
	}
	return v
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
