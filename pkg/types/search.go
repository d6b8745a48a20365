// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for med-explorer.
// It holds the search criteria entered by the researcher, the article and
// author records decoded from PubMed, the candidate authors produced by a
// search, and the progress events a search emits while it runs.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors reported by SearchCriteria.Validate. They are
// detected before any request reaches PubMed.
var (
	ErrEmailRequired     = errors.New("contact email is required")
	ErrNoKeywords        = errors.New("at least one keyword is required")
	ErrEmptyKeyword      = errors.New("all keywords must be filled in")
	ErrRequiredAuthors   = errors.New("required author count must be at least 1")
	ErrMinKeywordMatches = errors.New("minimum keyword matches must be at least 1")
	ErrTooFewKeywords    = errors.New("keyword count is less than the minimum number of matches")
	ErrTooManyKeywords   = errors.New("too many keywords")
	ErrTooManyClauses    = errors.New("too many keyword combinations")
)

// Limits on the size of the article query. The query holds one clause per
// combination of MinKeywordMatches keywords, so it grows combinatorially.
const (
	MaxKeywords     = 20
	MaxQueryClauses = 1000
)

// SearchCriteria holds the researcher's input for one candidate search.
type SearchCriteria struct {
	// Email identifies the caller to NCBI, as the E-utilities policy requires.
	Email string `json:"email" yaml:"email"`

	// Keywords are the search terms. Each must be non-blank.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// RequiredAuthors is the number of qualifying authors to find before stopping.
	RequiredAuthors int `json:"required_authors" yaml:"required_authors"`

	// MinKeywordMatches is how many keywords an article must mention at once.
	MinKeywordMatches int `json:"min_keyword_matches" yaml:"min_keyword_matches"`

	// StudentName is the reference person (e.g. "Vasylenko M") whose
	// co-authors are excluded. Empty disables the collaboration filter.
	StudentName string `json:"student_name" yaml:"student_name"`
}

// Validate reports the first configuration error in c, or nil.
func (c SearchCriteria) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return ErrEmailRequired
	}
	if len(c.Keywords) == 0 {
		return ErrNoKeywords
	}
	for i, kw := range c.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("keyword #%d: %w", i+1, ErrEmptyKeyword)
		}
	}
	if c.RequiredAuthors < 1 {
		return ErrRequiredAuthors
	}
	if c.MinKeywordMatches < 1 {
		return ErrMinKeywordMatches
	}
	if len(c.Keywords) < c.MinKeywordMatches {
		return fmt.Errorf("%w (%d < %d)", ErrTooFewKeywords, len(c.Keywords), c.MinKeywordMatches)
	}
	if len(c.Keywords) > MaxKeywords {
		return fmt.Errorf("%w: %d (at most %d)", ErrTooManyKeywords, len(c.Keywords), MaxKeywords)
	}
	if !clausesWithin(len(c.Keywords), c.MinKeywordMatches, MaxQueryClauses) {
		return fmt.Errorf("%w: %d keywords taken %d at a time exceed %d clauses",
			ErrTooManyClauses, len(c.Keywords), c.MinKeywordMatches, MaxQueryClauses)
	}
	return nil
}

// clausesWithin reports whether C(n, k) <= limit. The partial products
// C(n, i) grow with i up to k <= n/2, so it stops at the first one past
// limit.
func clausesWithin(n, k, limit int) bool {
	if k > n-k {
		k = n - k
	}
	c := 1
	for i := 0; i < k; i++ {
		c = c * (n - i) / (i + 1)
		if c > limit {
			return false
		}
	}
	return true
}

// Session is a server-side result cursor opened by a history search.
// WebEnv and QueryKey let later page fetches resume without resending the
// query.
type Session struct {
	Count    int    `json:"count" yaml:"count"`
	WebEnv   string `json:"web_env" yaml:"web_env"`
	QueryKey string `json:"query_key" yaml:"query_key"`
}

// EventKind classifies a ProgressEvent.
type EventKind string

const (
	EventQuery     EventKind = "query"     // full query text built
	EventTotal     EventKind = "total"     // total match count known
	EventPage      EventKind = "page"      // about to fetch a page
	EventEndOfData EventKind = "end"       // server returned an empty page
	EventChecking  EventKind = "checking"  // candidate author under review
	EventRejected  EventKind = "rejected"  // candidate failed a check
	EventAccepted  EventKind = "accepted"  // candidate added to the result
	EventWarning   EventKind = "warning"   // recoverable problem
	EventError     EventKind = "error"     // search stopped early
	EventDone      EventKind = "done"      // search finished
)

// ProgressEvent is one step of a running search. Every event carries the
// running counters so a presentation layer can render progress from any
// event alone.
type ProgressEvent struct {
	Kind    EventKind `json:"kind" yaml:"kind"`
	Message string    `json:"message,omitempty" yaml:"message,omitempty"`

	// Author is set on candidate events.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	Retrieved int `json:"retrieved" yaml:"retrieved"`
	Total     int `json:"total" yaml:"total"`
	Found     int `json:"found" yaml:"found"`
	Required  int `json:"required" yaml:"required"`

	Err error `json:"-" yaml:"-"`
}

// Fraction returns the share of matching articles retrieved so far, in [0, 1].
func (e ProgressEvent) Fraction() float64 {
	if e.Total <= 0 {
		return 0
	}
	f := float64(e.Retrieved) / float64(e.Total)
	if f > 1 {
		return 1
	}
	return f
}
