// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strings"

	"github.com/pdiddy/med-explorer/pkg/types"
)

// ukraineTokens are matched case-insensitively as substrings of affiliation text.
var ukraineTokens = []string{"ukraine", "ukrainian", "україна", "україни", "україні"}

// MentionsUkraine reports whether affiliation contains a Ukraine token.
func MentionsUkraine(affiliation string) bool {
	lower := strings.ToLower(affiliation)
	for _, tok := range ukraineTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// ukrainianAffiliation returns the author's first affiliation that mentions
// Ukraine, unmodified.
func ukrainianAffiliation(a types.AuthorEntry) (string, bool) {
	for _, aff := range a.Affiliations {
		if MentionsUkraine(aff) {
			return aff, true
		}
	}
	return "", false
}

// lowerAll returns the keywords lowercased for substring matching.
func lowerAll(keywords []string) []string {
	out := make([]string, len(keywords))
	for i, kw := range keywords {
		out[i] = strings.ToLower(strings.TrimSpace(kw))
	}
	return out
}

// articleText is the lowercased title followed by the abstract blocks.
func articleText(rec types.ArticleRecord) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(rec.Title))
	b.WriteByte(' ')
	for i, block := range rec.AbstractText {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToLower(block))
	}
	return b.String()
}

// CountKeywordMatches returns how many of the keywords appear as substrings
// of the article's title and abstract, ignoring case.
func CountKeywordMatches(rec types.ArticleRecord, keywords []string) int {
	text := articleText(rec)
	n := 0
	for _, kw := range lowerAll(keywords) {
		if kw != "" && strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
