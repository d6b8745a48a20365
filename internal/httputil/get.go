// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across clients.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultMaxBodyBytes caps how much of a response body Get reads.
const DefaultMaxBodyBytes = 32 << 20

// StatusError reports a non-200 response. Body holds the start of the
// response body, which E-utilities uses for error text.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// NewLimiter returns a token bucket allowing rps requests per second with a
// burst of one, so consecutive requests are spaced evenly. rps <= 0 returns
// nil, which Getter treats as unpaced.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// Getter issues GET and form POST requests with a fixed User-Agent,
// optional pacing, and a bounded body read. Clients that share a Limiter
// share one request budget; the limiter is safe for concurrent use.
type Getter struct {
	Client       *http.Client
	UserAgent    string
	Limiter      *rate.Limiter
	MaxBodyBytes int64
}

// Get waits for the limiter, fetches rawURL, and returns the body. Non-200
// responses return a *StatusError. If the context is cancelled while waiting
// for the limiter, Get returns the context error.
func (g *Getter) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return g.do(ctx, req)
}

// Post sends form as an application/x-www-form-urlencoded body to rawURL.
// It paces, limits and maps errors the same way as Get.
func (g *Getter) Post(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return g.do(ctx, req)
}

func (g *Getter) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limit := g.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return body, nil
}
