// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "med-explorer/1.0").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// PubMedConfig holds settings for the E-utilities client.
type PubMedConfig struct {
	HTTPConfig `yaml:",inline"`

	// Email is sent with every request. NCBI uses it to contact the caller
	// about excessive traffic.
	Email string `json:"email" yaml:"email"`

	// Tool names this application in the tool= parameter.
	Tool string `json:"tool" yaml:"tool"`

	// APIKey is an optional NCBI API key that raises the request ceiling
	// from 3 to 10 requests per second.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// RequestsPerSecond overrides the pacing derived from APIKey when > 0.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
}

// DiscoveryConfig holds the tunables of the candidate search loop.
type DiscoveryConfig struct {
	// BatchSize is the number of articles fetched per page (default 50).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// PageDelay is the courtesy pause before each page after the first
	// (default 1s). A negative value disables the pause.
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay"`

	// MinArticles is the eligibility threshold within Window (default 3).
	MinArticles int `json:"min_articles" yaml:"min_articles"`

	// Window is the trailing publication window (default 5*365 days).
	Window time.Duration `json:"window" yaml:"window"`
}

// Discovery defaults.
const (
	DefaultBatchSize   = 50
	DefaultPageDelay   = time.Second
	DefaultMinArticles = 3
	DefaultWindow      = 5 * 365 * 24 * time.Hour
)

// WithDefaults returns c with zero fields replaced by their defaults.
func (c DiscoveryConfig) WithDefaults() DiscoveryConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	switch {
	case c.PageDelay == 0:
		c.PageDelay = DefaultPageDelay
	case c.PageDelay < 0:
		c.PageDelay = 0
	}
	if c.MinArticles <= 0 {
		c.MinArticles = DefaultMinArticles
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}
