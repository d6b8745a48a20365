// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
)

// Counter runs count-only queries.
type Counter interface {
	Count(ctx context.Context, query string) (int, error)
}

// CheckEligibility reports whether author has at least minArticles
// publications inside window. Callers must treat a non-nil error as
// "not eligible".
func CheckEligibility(ctx context.Context, c Counter, author string, minArticles int, window string) (bool, error) {
	n, err := c.Count(ctx, AuthorQuery(author, window))
	if err != nil {
		return false, fmt.Errorf("checking publications of %s: %w", author, err)
	}
	return n >= minArticles, nil
}

// CheckCollaboration reports whether author and student share at least one
// publication. On error the result is true: a collaboration that cannot be
// ruled out excludes the candidate, the same direction as CheckEligibility.
func CheckCollaboration(ctx context.Context, c Counter, author, student string) (bool, error) {
	n, err := c.Count(ctx, JointQuery(author, student))
	if err != nil {
		return true, fmt.Errorf("checking joint publications of %s and %s: %w", author, student, err)
	}
	return n > 0, nil
}
