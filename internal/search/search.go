// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search finds candidate authors in PubMed: authors with a
// Ukrainian affiliation on articles matching the researcher's keywords,
// who publish regularly and have never co-authored with the reference
// student.
//
// A Search runs as a lazy sequence of progress events. Presentation layers
// range over Events and render each event; Run drains the sequence for
// callers that only want the final Result.
package search

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/med-explorer/pkg/types"
)

// Backend is the bibliographic search service. pubmed.Client implements it;
// tests substitute an in-memory fake.
type Backend interface {
	Counter
	OpenSession(ctx context.Context, query string) (types.Session, error)
	FetchPage(ctx context.Context, s types.Session, offset, size int) ([]types.ArticleRecord, error)
}

// Result is the outcome of a search. It is valid even when the search
// stopped early; Err then records why.
type Result struct {
	// Authors maps canonical name to candidate. len(Authors) <= Required.
	Authors map[string]types.CandidateAuthor `json:"authors" yaml:"authors"`

	// Order lists the keys of Authors in the order they were found.
	Order []string `json:"order" yaml:"order"`

	Query     string   `json:"query" yaml:"query"`
	Total     int      `json:"total" yaml:"total"`
	Retrieved int      `json:"retrieved" yaml:"retrieved"`
	Required  int      `json:"required" yaml:"required"`
	Warnings  []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	Err error `json:"-" yaml:"-"`
}

// Candidates returns the found authors in discovery order.
func (r Result) Candidates() []types.CandidateAuthor {
	out := make([]types.CandidateAuthor, 0, len(r.Order))
	for _, name := range r.Order {
		out = append(out, r.Authors[name])
	}
	return out
}

// Option customises a Search.
type Option func(*Search)

// WithClock sets the time source used for the publication window.
func WithClock(now func() time.Time) Option {
	return func(s *Search) { s.now = now }
}

// WithSleep replaces the courtesy-delay implementation. Tests use it to
// avoid real pauses.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Search) { s.sleep = sleep }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Search) { s.logger = l }
}

// Search is a single candidate-discovery run.
type Search struct {
	backend  Backend
	criteria types.SearchCriteria
	cfg      types.DiscoveryConfig
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *zap.Logger

	started atomic.Bool
	result  Result

	yield  func(types.ProgressEvent) bool
	halted bool
}

// New prepares a search. Nothing is sent to the backend until Events is
// consumed.
func New(backend Backend, criteria types.SearchCriteria, cfg types.DiscoveryConfig, opts ...Option) *Search {
	s := &Search{
		backend:  backend,
		criteria: criteria,
		cfg:      cfg.WithDefaults(),
		now:      time.Now,
		sleep:    sleepContext,
		logger:   zap.NewNop(),
		result: Result{
			Authors:  make(map[string]types.CandidateAuthor),
			Required: criteria.RequiredAuthors,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes a search to completion, passing every event to sink (which
// may be nil), and returns the result.
func Run(ctx context.Context, backend Backend, criteria types.SearchCriteria, cfg types.DiscoveryConfig, sink func(types.ProgressEvent), opts ...Option) Result {
	s := New(backend, criteria, cfg, opts...)
	for ev := range s.Events(ctx) {
		if sink != nil {
			sink(ev)
		}
	}
	return s.Result()
}

// Events returns the search as a finite sequence of progress events. The
// sequence runs once: ranging over it again, or over a second call's
// sequence, yields nothing. Breaking out of the loop stops the search.
func (s *Search) Events(ctx context.Context) iter.Seq[types.ProgressEvent] {
	return func(yield func(types.ProgressEvent) bool) {
		if !s.started.CompareAndSwap(false, true) {
			return
		}
		s.yield = yield
		s.run(ctx)
	}
}

// Result returns the result accumulated so far.
func (s *Search) Result() Result {
	return s.result
}

func (s *Search) run(ctx context.Context) {
	c := s.criteria

	if err := c.Validate(); err != nil {
		s.warn("", err.Error())
		return
	}

	window := DateWindow(s.now(), s.cfg.Window)
	query := BuildQuery(c.Keywords, c.MinKeywordMatches, window)
	s.result.Query = query
	if !s.emit(types.EventQuery, "full search query: "+query, "") {
		return
	}

	session, err := s.backend.OpenSession(ctx, query)
	if err != nil {
		s.fail(fmt.Errorf("opening search session: %w", err))
		return
	}
	s.result.Total = session.Count
	if !s.emit(types.EventTotal, fmt.Sprintf("found %d articles for the initial query", session.Count), "") {
		return
	}
	if session.Count == 0 {
		s.emit(types.EventDone, "no matching articles", "")
		return
	}

	for offset := 0; len(s.result.Order) < c.RequiredAuthors && offset < session.Count; offset += s.cfg.BatchSize {
		if offset > 0 {
			if err := s.sleep(ctx, s.cfg.PageDelay); err != nil {
				s.fail(err)
				return
			}
		}
		if err := ctx.Err(); err != nil {
			s.fail(err)
			return
		}

		msg := fmt.Sprintf("fetching articles: qualified authors %d/%d, reviewed %d/%d",
			len(s.result.Order), c.RequiredAuthors, s.result.Retrieved, session.Count)
		if !s.emit(types.EventPage, msg, "") {
			return
		}

		page, err := s.backend.FetchPage(ctx, session, offset, s.cfg.BatchSize)
		if err != nil {
			s.fail(fmt.Errorf("fetching articles at offset %d: %w", offset, err))
			return
		}
		if len(page) == 0 {
			if !s.emit(types.EventEndOfData, "reached the end of the results", "") {
				return
			}
			break
		}

		for _, rec := range page {
			if stop := s.examine(ctx, rec, window); stop {
				return
			}
		}
	}

	s.emit(types.EventDone, fmt.Sprintf("found %d of %d required authors", len(s.result.Order), c.RequiredAuthors), "")
}

// examine applies the keyword and author filters to one article. It
// returns true when the search must stop: the target was reached, the
// consumer stopped listening, or the context ended.
func (s *Search) examine(ctx context.Context, rec types.ArticleRecord, window string) bool {
	c := s.criteria
	s.result.Retrieved++

	matches := CountKeywordMatches(rec, c.Keywords)
	if matches < c.MinKeywordMatches {
		return false
	}

	for _, a := range rec.Authors {
		affiliation, ok := ukrainianAffiliation(a)
		if !ok {
			continue
		}
		name := a.CanonicalName()
		if name == "" {
			continue
		}
		if _, found := s.result.Authors[name]; found {
			continue
		}
		if err := ctx.Err(); err != nil {
			s.fail(err)
			return true
		}

		if !s.emit(types.EventChecking, "checking author "+name, name) {
			return true
		}
		if !s.qualifies(ctx, name, window) {
			if s.halted {
				return true
			}
			continue
		}

		s.result.Authors[name] = types.CandidateAuthor{
			Name:        name,
			Affiliation: affiliation,
			Articles: []types.ArticleSummary{{
				PMID:           rec.PMID,
				Title:          rec.Title,
				KeywordMatches: matches,
			}},
		}
		s.result.Order = append(s.result.Order, name)
		s.logger.Debug("candidate accepted", zap.String("author", name), zap.String("pmid", rec.PMID))

		if !s.emit(types.EventAccepted, "qualified author "+name, name) {
			return true
		}
		if len(s.result.Order) >= c.RequiredAuthors {
			s.emit(types.EventDone, fmt.Sprintf("found %d of %d required authors", len(s.result.Order), c.RequiredAuthors), "")
			return true
		}
	}
	return false
}

// qualifies runs the eligibility and collaboration checks. Both fail
// closed: an error excludes the candidate.
func (s *Search) qualifies(ctx context.Context, name, window string) bool {
	c := s.criteria

	eligible, err := CheckEligibility(ctx, s.backend, name, s.cfg.MinArticles, window)
	if err != nil {
		s.warn(name, err.Error())
		return false
	}
	if !eligible {
		s.emit(types.EventRejected, fmt.Sprintf("author %s has fewer than %d articles", name, s.cfg.MinArticles), name)
		return false
	}

	if c.StudentName == "" {
		return true
	}
	collaborated, err := CheckCollaboration(ctx, s.backend, name, c.StudentName)
	if err != nil {
		s.warn(name, err.Error())
		return false
	}
	if collaborated {
		s.emit(types.EventRejected, fmt.Sprintf("author %s has joint publications with %s", name, c.StudentName), name)
		return false
	}
	return true
}

// emit sends an event to the consumer. It returns false once the consumer
// has stopped listening.
func (s *Search) emit(kind types.EventKind, msg, author string) bool {
	return s.emitErr(kind, msg, author, nil)
}

func (s *Search) emitErr(kind types.EventKind, msg, author string, err error) bool {
	if s.halted {
		return false
	}
	ev := types.ProgressEvent{
		Kind:      kind,
		Message:   msg,
		Author:    author,
		Retrieved: s.result.Retrieved,
		Total:     s.result.Total,
		Found:     len(s.result.Order),
		Required:  s.criteria.RequiredAuthors,
		Err:       err,
	}
	if !s.yield(ev) {
		s.halted = true
		return false
	}
	return true
}

func (s *Search) warn(author, msg string) {
	s.result.Warnings = append(s.result.Warnings, msg)
	s.logger.Debug("search warning", zap.String("author", author), zap.String("message", msg))
	s.emit(types.EventWarning, msg, author)
}

func (s *Search) fail(err error) {
	s.result.Err = err
	s.result.Warnings = append(s.result.Warnings, err.Error())
	s.logger.Debug("search stopped", zap.Error(err))
	s.emitErr(types.EventError, err.Error(), "", err)
}

// sleepContext pauses for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
