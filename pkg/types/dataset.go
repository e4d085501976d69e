// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SourceKind identifies which provider a dataset comes from and therefore
// which fetch strategy and file extension apply.
type SourceKind string

const (
	// KindTabular is a Eurostat dataset addressed by a short code.
	KindTabular SourceKind = "tabular"

	// KindREST is a fully pre-encoded REST query URL returning a zip archive.
	KindREST SourceKind = "rest"
)

// Extension returns the output file extension for the kind, including the dot.
// Unknown kinds return an empty string.
func (k SourceKind) Extension() string {
	switch k {
	case KindTabular:
		return ".csv"
	case KindREST:
		return ".zip"
	default:
		return ""
	}
}

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	return k.Extension() != ""
}

// CatalogEntry is one dataset within a catalog.
type CatalogEntry struct {
	// ID is the source identifier: a dataset code for tabular catalogs or a
	// full URL for REST catalogs.
	ID string `json:"id" yaml:"id"`

	// Name is the output file name without extension.
	Name string `json:"name" yaml:"name"`

	// Description is a human-readable label.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Catalog is the ordered list of datasets to fetch for one source kind.
type Catalog struct {
	Kind    SourceKind     `json:"kind" yaml:"kind"`
	Entries []CatalogEntry `json:"entries" yaml:"entries"`
}

// Dataset describes one item of a batch fetch.
type Dataset struct {
	Kind        SourceKind `json:"kind" yaml:"kind"`
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// FileName returns the output file name, e.g. "migr_imm1ctz.csv".
func (d Dataset) FileName() string {
	return d.Name + d.Kind.Extension()
}

// Table is a two-dimensional tabular result: a header and rows of cells.
type Table struct {
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// Outcome is the terminal state of one batch item.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// FetchRecord is one row of the fetch ledger.
type FetchRecord struct {
	Kind      SourceKind `json:"kind" yaml:"kind"`
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Path      string     `json:"path" yaml:"path"`
	Outcome   Outcome    `json:"outcome" yaml:"outcome"`
	Size      int64      `json:"size" yaml:"size"`
	SHA256    string     `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Error     string     `json:"error,omitempty" yaml:"error,omitempty"`
	FetchedAt time.Time  `json:"fetched_at" yaml:"fetched_at"`
}
