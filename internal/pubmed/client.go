// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed is a client for the NCBI E-utilities API restricted to the
// PubMed database. It offers the three request shapes the candidate search
// needs: count-only searches, history searches that open a server-side
// result cursor, and paged record fetches through that cursor.
package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/med-explorer/internal/httputil"
	"github.com/pdiddy/med-explorer/pkg/types"
)

// eutilsBase is the E-utilities endpoint root. Declared as a var so tests
// can substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	database = "pubmed"

	// NCBI allows 3 requests per second per caller, 10 with an API key.
	defaultRPS   = 3
	apiKeyRPS    = 10
	defaultTool  = "med-explorer"
	maxPageLimit = 10000

	// maxGetParams is the encoded parameter length above which esearch
	// switches to a form POST. Long keyword disjunctions exceed what NCBI
	// and intermediate proxies accept in a URL.
	maxGetParams = 1000
)

// APIError is an error reported inside an E-utilities response body.
type APIError struct {
	Op      string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Client queries PubMed. The contact email and API key are fixed per client;
// build a new Client for a different caller.
type Client struct {
	getter *httputil.Getter
	cfg    types.PubMedConfig
	logger *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithLimiter makes the client draw from a shared request budget instead of
// its own. NCBI counts requests per IP or API key, so every client in one
// process should share a limiter built by PolicyLimiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.getter.Limiter = l }
}

// PolicyLimiter returns a limiter at the NCBI rate for cfg: 3 requests per
// second, 10 with an API key, or cfg.RequestsPerSecond when set.
func PolicyLimiter(cfg types.PubMedConfig) *rate.Limiter {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRPS
		if cfg.APIKey != "" {
			rps = apiKeyRPS
		}
	}
	return httputil.NewLimiter(rps)
}

// NewClient returns a Client using httpClient for transport. A nil logger
// disables diagnostics. Without WithLimiter the client paces itself with
// its own PolicyLimiter.
func NewClient(httpClient *http.Client, cfg types.PubMedConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Tool == "" {
		cfg.Tool = defaultTool
	}

	c := &Client{
		getter: &httputil.Getter{
			Client:    httpClient,
			UserAgent: cfg.UserAgent,
			Limiter:   PolicyLimiter(cfg),
		},
		cfg:    cfg,
		logger: logger.Named("pubmed"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Count returns the number of PubMed records matching query.
func (c *Client) Count(ctx context.Context, query string) (int, error) {
	params := c.params()
	params.Set("term", query)
	params.Set("retmax", "0")

	res, err := c.esearch(ctx, params)
	if err != nil {
		return 0, err
	}
	return res.count()
}

// OpenSession runs query with usehistory=y and returns the total count plus
// the WebEnv/QueryKey cursor for FetchPage.
func (c *Client) OpenSession(ctx context.Context, query string) (types.Session, error) {
	params := c.params()
	params.Set("term", query)
	params.Set("retmax", "0")
	params.Set("usehistory", "y")

	res, err := c.esearch(ctx, params)
	if err != nil {
		return types.Session{}, err
	}
	n, err := res.count()
	if err != nil {
		return types.Session{}, err
	}
	if n > 0 && (res.WebEnv == "" || res.QueryKey == "") {
		return types.Session{}, &APIError{Op: "esearch", Message: "response has no history cursor"}
	}
	return types.Session{Count: n, WebEnv: res.WebEnv, QueryKey: res.QueryKey}, nil
}

// FetchPage returns up to size records starting at offset from the result
// set held by s. An empty slice means the server has no more records.
func (c *Client) FetchPage(ctx context.Context, s types.Session, offset, size int) ([]types.ArticleRecord, error) {
	if s.WebEnv == "" || s.QueryKey == "" {
		return nil, fmt.Errorf("efetch: session has no history cursor")
	}
	if size <= 0 || size > maxPageLimit {
		return nil, fmt.Errorf("efetch: page size %d out of range 1..%d", size, maxPageLimit)
	}

	params := c.params()
	params.Set("retmode", "xml")
	params.Set("WebEnv", s.WebEnv)
	params.Set("query_key", s.QueryKey)
	params.Set("retstart", strconv.Itoa(offset))
	params.Set("retmax", strconv.Itoa(size))

	start := time.Now()
	body, err := c.getter.Get(ctx, eutilsBase+"/efetch.fcgi?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("efetch request: %w", err)
	}

	records, err := parseArticleSet(body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("efetch",
		zap.Int("offset", offset),
		zap.Int("size", size),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)))
	return records, nil
}

// params returns the parameters sent with every request.
func (c *Client) params() url.Values {
	v := url.Values{
		"db":   {database},
		"tool": {c.cfg.Tool},
	}
	if c.cfg.Email != "" {
		v.Set("email", c.cfg.Email)
	}
	if c.cfg.APIKey != "" {
		v.Set("api_key", c.cfg.APIKey)
	}
	return v
}

func (c *Client) esearch(ctx context.Context, params url.Values) (*esearchResult, error) {
	params.Set("retmode", "json")

	endpoint := eutilsBase + "/esearch.fcgi"
	encoded := params.Encode()
	post := len(encoded) > maxGetParams

	start := time.Now()
	var (
		body []byte
		err  error
	)
	if post {
		body, err = c.getter.Post(ctx, endpoint, params)
	} else {
		body, err = c.getter.Get(ctx, endpoint+"?"+encoded)
	}
	if err != nil {
		return nil, fmt.Errorf("esearch request: %w", err)
	}

	res, err := parseESearch(body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("esearch",
		zap.String("term", params.Get("term")),
		zap.String("count", res.Count),
		zap.Bool("history", params.Get("usehistory") == "y"),
		zap.Bool("post", post),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}
