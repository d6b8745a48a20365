// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/med-explorer/pkg/types"
)

// --- fake backend ---

// fakeBackend serves pages by offset and answers count queries from
// per-author tables. Unknown authors have 10 recent articles and no joint
// publications.
type fakeBackend struct {
	total      int
	pages      map[int][]types.ArticleRecord
	recent     map[string]int
	joint      map[string]int
	recentErr  map[string]error
	jointErr   map[string]error
	sessionErr error
	fetchErr   error

	calls []string
}

func (f *fakeBackend) Count(_ context.Context, query string) (int, error) {
	f.calls = append(f.calls, "count:"+query)
	author := query[1:strings.Index(query, "[Author]")]
	if strings.Contains(query, "[PDat]") {
		if err := f.recentErr[author]; err != nil {
			return 0, err
		}
		if n, ok := f.recent[author]; ok {
			return n, nil
		}
		return 10, nil
	}
	if err := f.jointErr[author]; err != nil {
		return 0, err
	}
	return f.joint[author], nil
}

func (f *fakeBackend) OpenSession(_ context.Context, query string) (types.Session, error) {
	f.calls = append(f.calls, "session:"+query)
	if f.sessionErr != nil {
		return types.Session{}, f.sessionErr
	}
	return types.Session{Count: f.total, WebEnv: "MCID_test", QueryKey: "1"}, nil
}

func (f *fakeBackend) FetchPage(_ context.Context, _ types.Session, offset, _ int) ([]types.ArticleRecord, error) {
	f.calls = append(f.calls, fmt.Sprintf("fetch:%d", offset))
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.pages[offset], nil
}

func (f *fakeBackend) countCalls(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeBackend) checked(author string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, "count:("+author+"[Author])") {
			return true
		}
	}
	return false
}

// --- fixtures ---

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func testCriteria() types.SearchCriteria {
	return types.SearchCriteria{
		Email:             "researcher@example.org",
		Keywords:          []string{"CRISPR", "leukemia", "biomarker"},
		RequiredAuthors:   1,
		MinKeywordMatches: 2,
		StudentName:       "Vasylenko M",
	}
}

func testDiscovery() types.DiscoveryConfig {
	return types.DiscoveryConfig{BatchSize: 50, MinArticles: 3}
}

type sleepRecorder struct{ calls []time.Duration }

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return nil
}

func runSearch(t *testing.T, f *fakeBackend, c types.SearchCriteria) (Result, []types.ProgressEvent, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	var events []types.ProgressEvent
	res := Run(context.Background(), f, c, testDiscovery(), func(ev types.ProgressEvent) {
		events = append(events, ev)
	}, WithClock(func() time.Time { return fixedNow }), WithSleep(rec.sleep))
	return res, events, rec
}

func ukrainian(last, initials string) types.AuthorEntry {
	return types.AuthorEntry{
		LastName:     last,
		Initials:     initials,
		Affiliations: []string{"Bogomolets National Medical University, Kyiv, Ukraine."},
	}
}

func foreign(last, initials string) types.AuthorEntry {
	return types.AuthorEntry{
		LastName:     last,
		Initials:     initials,
		Affiliations: []string{"Karolinska Institutet, Stockholm, Sweden."},
	}
}

// matching has title text that hits two of the test keywords.
func matching(pmid string, authors ...types.AuthorEntry) types.ArticleRecord {
	return types.ArticleRecord{
		PMID:         pmid,
		Title:        "CRISPR Screens in Leukemia " + pmid,
		AbstractText: []string{"Background text."},
		Authors:      authors,
	}
}

func kinds(events []types.ProgressEvent) []types.EventKind {
	out := make([]types.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

// --- preconditions ---

func TestSearch_TooFewKeywordsIssuesNoQuery(t *testing.T) {
	f := &fakeBackend{total: 10}
	c := testCriteria()
	c.MinKeywordMatches = 4

	res, events, _ := runSearch(t, f, c)

	assert.Empty(t, res.Authors)
	assert.Empty(t, f.calls)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventWarning, events[0].Kind)
	assert.Contains(t, events[0].Message, "less than the minimum")
	assert.Len(t, res.Warnings, 1)
}

func TestSearch_ConfigurationErrorsIssueNoQuery(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.SearchCriteria)
		want   error
	}{
		{"empty email", func(c *types.SearchCriteria) { c.Email = " " }, types.ErrEmailRequired},
		{"no keywords", func(c *types.SearchCriteria) { c.Keywords = nil }, types.ErrNoKeywords},
		{"blank keyword", func(c *types.SearchCriteria) { c.Keywords = []string{"CRISPR", ""} }, types.ErrEmptyKeyword},
		{"zero authors", func(c *types.SearchCriteria) { c.RequiredAuthors = 0 }, types.ErrRequiredAuthors},
		{"zero matches", func(c *types.SearchCriteria) { c.MinKeywordMatches = 0 }, types.ErrMinKeywordMatches},
		{"too many keywords", func(c *types.SearchCriteria) {
			c.Keywords = numberedKeywords(30)
			c.MinKeywordMatches = 15
		}, types.ErrTooManyKeywords},
		{"too many clauses", func(c *types.SearchCriteria) {
			c.Keywords = numberedKeywords(20)
			c.MinKeywordMatches = 10
		}, types.ErrTooManyClauses},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCriteria()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), tt.want)

			f := &fakeBackend{total: 10}
			res, events, _ := runSearch(t, f, c)
			assert.Empty(t, res.Authors)
			assert.Empty(t, f.calls)
			assert.Equal(t, []types.EventKind{types.EventWarning}, kinds(events))
		})
	}
}

func numberedKeywords(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("term%d", i+1)
	}
	return out
}

func TestValidate_ClauseLimitBoundary(t *testing.T) {
	c := testCriteria()
	c.Keywords = numberedKeywords(10)
	c.MinKeywordMatches = 5
	assert.NoError(t, c.Validate(), "C(10,5)=252 clauses is allowed")

	c.Keywords = numberedKeywords(types.MaxKeywords)
	c.MinKeywordMatches = types.MaxKeywords
	assert.NoError(t, c.Validate(), "a single clause of every keyword is allowed")

	c.MinKeywordMatches = 3
	assert.ErrorIs(t, c.Validate(), types.ErrTooManyClauses, "C(20,3)=1140 clauses")
}

func TestSearch_ZeroTotalStopsAfterSession(t *testing.T) {
	f := &fakeBackend{total: 0}
	res, events, _ := runSearch(t, f, testCriteria())

	assert.Empty(t, res.Authors)
	assert.Equal(t, 1, len(f.calls))
	assert.Equal(t, 1, f.countCalls("session:"))
	assert.Equal(t, []types.EventKind{types.EventQuery, types.EventTotal, types.EventDone}, kinds(events))
}

func TestSearch_QuerySentToBackend(t *testing.T) {
	f := &fakeBackend{total: 0}
	res, _, _ := runSearch(t, f, testCriteria())

	want := "((CRISPR AND leukemia) OR (CRISPR AND biomarker) OR (leukemia AND biomarker)) AND 2021/10/20[PDat] : 2026/10/19[PDat]"
	assert.Equal(t, want, res.Query)
	assert.Equal(t, []string{"session:" + want}, f.calls)
}

// --- loop and early termination ---

func TestSearch_TwoPagesStopsAfterFirstWhenSatisfied(t *testing.T) {
	f := &fakeBackend{
		total: 60,
		pages: map[int][]types.ArticleRecord{
			0:  {matching("100", ukrainian("Koval", "O"))},
			50: {matching("200", ukrainian("Bondar", "I"))},
		},
	}
	res, _, sleeps := runSearch(t, f, testCriteria())

	require.Len(t, res.Authors, 1)
	assert.Contains(t, res.Authors, "Koval O")
	assert.Equal(t, 1, f.countCalls("fetch:"))
	assert.NotContains(t, f.calls, "fetch:50")
	assert.Empty(t, sleeps.calls)
}

func TestSearch_StopsMidPage(t *testing.T) {
	f := &fakeBackend{
		total: 3,
		pages: map[int][]types.ArticleRecord{
			0: {
				matching("1", ukrainian("Koval", "O"), ukrainian("Shevchenko", "T")),
				matching("2", ukrainian("Bondar", "I")),
			},
		},
	}
	c := testCriteria()
	c.RequiredAuthors = 2

	res, events, _ := runSearch(t, f, c)

	assert.Equal(t, []string{"Koval O", "Shevchenko T"}, res.Order)
	assert.False(t, f.checked("Bondar I"), "search must stop before the next candidate")
	assert.Equal(t, 1, res.Retrieved)
	assert.Equal(t, types.EventDone, events[len(events)-1].Kind)
}

func TestSearch_ResultNeverExceedsRequired(t *testing.T) {
	var page []types.ArticleRecord
	for i := 0; i < 20; i++ {
		page = append(page, matching(fmt.Sprint(i), ukrainian(fmt.Sprintf("Author%d", i), "A")))
	}
	f := &fakeBackend{total: 20, pages: map[int][]types.ArticleRecord{0: page}}

	for required := 1; required <= 5; required++ {
		f.calls = nil
		c := testCriteria()
		c.RequiredAuthors = required
		res, _, _ := runSearch(t, f, c)
		assert.Len(t, res.Authors, required)
		assert.Len(t, res.Order, required)
	}
}

func TestSearch_PausesBetweenPages(t *testing.T) {
	f := &fakeBackend{
		total: 150,
		pages: map[int][]types.ArticleRecord{
			0:   {matching("1", foreign("Smith", "J"))},
			50:  {matching("2", foreign("Doe", "J"))},
			100: {matching("3", foreign("Roe", "R"))},
		},
	}
	res, _, sleeps := runSearch(t, f, testCriteria())

	assert.Empty(t, res.Authors)
	assert.Equal(t, []string{"fetch:0", "fetch:50", "fetch:100"}, f.calls[1:])
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeps.calls)
}

func TestSearch_EmptyPageEndsEarly(t *testing.T) {
	f := &fakeBackend{
		total: 200,
		pages: map[int][]types.ArticleRecord{
			0: {matching("1", foreign("Smith", "J"))},
		},
	}
	_, events, _ := runSearch(t, f, testCriteria())

	assert.Equal(t, 2, f.countCalls("fetch:"))
	assert.Contains(t, kinds(events), types.EventEndOfData)
	assert.Equal(t, types.EventDone, events[len(events)-1].Kind)
}

// --- candidate filters ---

func TestSearch_InclusionRules(t *testing.T) {
	f := &fakeBackend{
		total: 1,
		pages: map[int][]types.ArticleRecord{
			0: {matching("1",
				foreign("Smith", "J"),
				ukrainian("Low", "L"),
				ukrainian("Friend", "F"),
				ukrainian("Good", "G"),
			)},
		},
		recent: map[string]int{"Low L": 2},
		joint:  map[string]int{"Friend F": 1},
	}
	c := testCriteria()
	c.RequiredAuthors = 5

	res, events, _ := runSearch(t, f, c)

	assert.Equal(t, []string{"Good G"}, res.Order)
	assert.False(t, f.checked("Smith J"), "non-Ukrainian affiliation must not be checked")

	var rejected []string
	for _, ev := range events {
		if ev.Kind == types.EventRejected {
			rejected = append(rejected, ev.Author)
		}
	}
	assert.Equal(t, []string{"Low L", "Friend F"}, rejected)
}

func TestSearch_IneligibleAuthorSkipsCollaborationCheck(t *testing.T) {
	f := &fakeBackend{
		total:  1,
		pages:  map[int][]types.ArticleRecord{0: {matching("1", ukrainian("Low", "L"))}},
		recent: map[string]int{"Low L": 0},
	}
	runSearch(t, f, testCriteria())

	for _, call := range f.calls {
		assert.NotContains(t, call, "Vasylenko M")
	}
}

func TestSearch_ChecksFailClosed(t *testing.T) {
	boom := errors.New("connection reset")
	f := &fakeBackend{
		total: 1,
		pages: map[int][]types.ArticleRecord{
			0: {matching("1", ukrainian("Unreachable", "U"), ukrainian("Unknown", "K"), ukrainian("Good", "G"))},
		},
		recentErr: map[string]error{"Unreachable U": boom},
		jointErr:  map[string]error{"Unknown K": boom},
	}
	c := testCriteria()
	c.RequiredAuthors = 3

	res, events, _ := runSearch(t, f, c)

	assert.Equal(t, []string{"Good G"}, res.Order)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "Unreachable U")
	assert.Contains(t, res.Warnings[1], "Vasylenko M")
	assert.NoError(t, res.Err)

	var warned []string
	for _, ev := range events {
		if ev.Kind == types.EventWarning {
			warned = append(warned, ev.Author)
		}
	}
	assert.Equal(t, []string{"Unreachable U", "Unknown K"}, warned)
}

func TestSearch_EmptyStudentSkipsCollaborationCheck(t *testing.T) {
	f := &fakeBackend{
		total: 1,
		pages: map[int][]types.ArticleRecord{0: {matching("1", ukrainian("Koval", "O"))}},
	}
	c := testCriteria()
	c.StudentName = ""

	res, _, _ := runSearch(t, f, c)

	assert.Contains(t, res.Authors, "Koval O")
	assert.Equal(t, 1, f.countCalls("count:"))
}

func TestSearch_KeywordThreshold(t *testing.T) {
	weak := types.ArticleRecord{
		PMID:    "1",
		Title:   "CRISPR only",
		Authors: []types.AuthorEntry{ukrainian("Koval", "O")},
	}
	f := &fakeBackend{total: 1, pages: map[int][]types.ArticleRecord{0: {weak}}}

	res, _, _ := runSearch(t, f, testCriteria())

	assert.Empty(t, res.Authors)
	assert.Zero(t, f.countCalls("count:"))
	assert.Equal(t, 1, res.Retrieved)
}

func TestSearch_CollectiveNameCandidate(t *testing.T) {
	group := types.AuthorEntry{
		CollectiveName: "Ukrainian Leukemia Study Group",
		Affiliations:   []string{"Lviv, Україна"},
	}
	nameless := types.AuthorEntry{Affiliations: []string{"Kyiv, Ukraine"}}
	f := &fakeBackend{total: 1, pages: map[int][]types.ArticleRecord{0: {matching("1", nameless, group)}}}

	res, _, _ := runSearch(t, f, testCriteria())

	assert.Equal(t, []string{"Ukrainian Leukemia Study Group"}, res.Order)
	assert.Equal(t, "Lviv, Україна", res.Authors["Ukrainian Leukemia Study Group"].Affiliation)
}

func TestSearch_FirstArticleWinsAndTitleIsUnmodified(t *testing.T) {
	first := types.ArticleRecord{
		PMID:         "38000001",
		Title:        "CRISPR-Based Detection of Leukemia Biomarkers",
		AbstractText: []string{"x"},
		Authors:      []types.AuthorEntry{ukrainian("Koval", "O")},
	}
	second := matching("38000002", ukrainian("Koval", "O"), ukrainian("Good", "G"))
	f := &fakeBackend{total: 2, pages: map[int][]types.ArticleRecord{0: {first, second}}}
	c := testCriteria()
	c.RequiredAuthors = 2

	res, _, _ := runSearch(t, f, c)

	require.Len(t, res.Authors, 2)
	koval := res.Authors["Koval O"]
	require.Len(t, koval.Articles, 1)
	assert.Equal(t, types.ArticleSummary{
		PMID:           "38000001",
		Title:          "CRISPR-Based Detection of Leukemia Biomarkers",
		KeywordMatches: 3,
	}, koval.Articles[0])
	assert.Equal(t, "Bogomolets National Medical University, Kyiv, Ukraine.", koval.Affiliation)

	// Koval O is checked once; the second mention is ignored.
	n := 0
	for _, call := range f.calls {
		if strings.HasPrefix(call, "count:(Koval O[Author]) AND 20") {
			n++
		}
	}
	assert.Equal(t, 1, n)
	assert.Equal(t, []types.ArticleSummary{{PMID: "38000001", Title: first.Title, KeywordMatches: 3}},
		res.Candidates()[0].Articles)
}

// --- errors ---

func TestSearch_SessionErrorReturnsEmpty(t *testing.T) {
	f := &fakeBackend{sessionErr: errors.New("HTTP 502")}
	res, events, _ := runSearch(t, f, testCriteria())

	assert.Empty(t, res.Authors)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "opening search session")
	last := events[len(events)-1]
	assert.Equal(t, types.EventError, last.Kind)
	assert.Error(t, last.Err)
}

func TestSearch_FetchErrorKeepsAccumulated(t *testing.T) {
	f := &fakeBackend{
		total: 100,
		pages: map[int][]types.ArticleRecord{0: {matching("1", ukrainian("Koval", "O"))}},
	}
	c := testCriteria()
	c.RequiredAuthors = 3

	s := New(f, c, testDiscovery(), WithClock(func() time.Time { return fixedNow }), WithSleep(func(context.Context, time.Duration) error {
		f.fetchErr = errors.New("timeout")
		return nil
	}))
	for range s.Events(context.Background()) {
	}
	res := s.Result()

	assert.Equal(t, []string{"Koval O"}, res.Order)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "offset 50")
}

func TestSearch_ContextCancelledDuringPause(t *testing.T) {
	f := &fakeBackend{
		total: 100,
		pages: map[int][]types.ArticleRecord{0: {matching("1", foreign("Smith", "J"))}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res := Run(ctx, f, testCriteria(), testDiscovery(), nil,
		WithSleep(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		}))

	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 1, f.countCalls("fetch:"))
}

// --- event sequence ---

func TestSearch_EventsRunOnce(t *testing.T) {
	f := &fakeBackend{total: 0}
	s := New(f, testCriteria(), testDiscovery())

	first := 0
	for range s.Events(context.Background()) {
		first++
	}
	second := 0
	for range s.Events(context.Background()) {
		second++
	}

	assert.Equal(t, 3, first)
	assert.Zero(t, second)
	assert.Equal(t, 1, f.countCalls("session:"))
}

func TestSearch_BreakStopsSearch(t *testing.T) {
	f := &fakeBackend{
		total: 100,
		pages: map[int][]types.ArticleRecord{0: {matching("1", ukrainian("Koval", "O"))}},
	}
	s := New(f, testCriteria(), testDiscovery())

	for ev := range s.Events(context.Background()) {
		if ev.Kind == types.EventTotal {
			break
		}
	}

	assert.Zero(t, f.countCalls("fetch:"))
	assert.Empty(t, s.Result().Authors)
}

func TestSearch_EventsCarryCounters(t *testing.T) {
	f := &fakeBackend{
		total: 2,
		pages: map[int][]types.ArticleRecord{0: {matching("1", foreign("Smith", "J")), matching("2", ukrainian("Koval", "O"))}},
	}
	_, events, _ := runSearch(t, f, testCriteria())

	for _, ev := range events {
		assert.Equal(t, 1, ev.Required)
		if ev.Kind != types.EventQuery {
			assert.Equal(t, 2, ev.Total)
		}
	}
	var accepted types.ProgressEvent
	for _, ev := range events {
		if ev.Kind == types.EventAccepted {
			accepted = ev
		}
	}
	assert.Equal(t, "Koval O", accepted.Author)
	assert.Equal(t, 1, accepted.Found)
	assert.Equal(t, 2, accepted.Retrieved)
	assert.InDelta(t, 1.0, accepted.Fraction(), 1e-9)
}
