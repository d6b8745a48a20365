// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strings"
	"time"
)

// dateLayout is the PubMed date format used in [PDat] ranges.
const dateLayout = "2006/01/02"

// DateWindow returns the publication-date filter covering the window that
// ends at now, e.g. "2021/10/20[PDat] : 2026/10/19[PDat]".
func DateWindow(now time.Time, window time.Duration) string {
	from := now.Add(-window)
	return from.Format(dateLayout) + "[PDat] : " + now.Format(dateLayout) + "[PDat]"
}

// Combinations returns every k-element subset of {0..n-1} as ascending index
// slices, in lexicographic order. It returns nil when k < 1 or k > n.
func Combinations(n, k int) [][]int {
	if k < 1 || k > n {
		return nil
	}
	var out [][]int
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := make([]int, k)
		copy(combo, idx)
		out = append(out, combo)

		// Advance the rightmost index that still has room.
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// KeywordClauses returns one conjunctive clause "(a AND b ...)" per
// m-combination of keywords, in input order.
func KeywordClauses(keywords []string, m int) []string {
	combos := Combinations(len(keywords), m)
	clauses := make([]string, 0, len(combos))
	for _, combo := range combos {
		terms := make([]string, len(combo))
		for i, idx := range combo {
			terms[i] = keywords[idx]
		}
		clauses = append(clauses, "("+strings.Join(terms, " AND ")+")")
	}
	return clauses
}

// BuildQuery returns the article search query: the OR of all keyword
// clauses, conjoined with the date window. It returns "" when m is out of
// range for the keyword count.
func BuildQuery(keywords []string, m int, window string) string {
	clauses := KeywordClauses(keywords, m)
	if len(clauses) == 0 {
		return ""
	}
	return "(" + strings.Join(clauses, " OR ") + ") AND " + window
}

// AuthorQuery matches the author's publications inside the date window.
func AuthorQuery(author, window string) string {
	return "(" + author + "[Author]) AND " + window
}

// JointQuery matches publications co-authored by author and student.
func JointQuery(author, student string) string {
	return "(" + author + "[Author]) AND (" + student + "[Author])"
}
