package types

import "time"

// HTTPConfig holds shared HTTP settings for both providers.
type HTTPConfig struct {
	// Timeout is the request timeout for REST downloads (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "migstat/0.1 (mailto:ops@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// Retries is the number of retries on HTTP 429. Zero disables retrying.
	Retries int `json:"retries" yaml:"retries"`
}

// FetchConfig holds settings for a batch fetch run.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// TabularTimeout is the request timeout for Eurostat downloads. Full
	// datasets can be tens of megabytes, so it is longer than Timeout.
	TabularTimeout time.Duration `json:"tabular_timeout" yaml:"tabular_timeout"`

	// Delay is the pause between consecutive downloads (default 0).
	Delay time.Duration `json:"delay" yaml:"delay"`

	// OutputDir is the directory receiving <name>.csv and <name>.zip files.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// CatalogPath optionally points at a YAML catalog replacing the built-in one.
	CatalogPath string `json:"catalog,omitempty" yaml:"catalog,omitempty"`

	// Ledger enables the SQLite fetch history under OutputDir/.migstat/.
	Ledger bool `json:"ledger" yaml:"ledger"`
}
