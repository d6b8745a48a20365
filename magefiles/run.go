//go:build mage

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Search builds the CLI and runs one search. Keywords come from
// MED_EXPLORER_KEYWORDS (comma-separated); the email from MED_EXPLORER_EMAIL
// or .secrets/pubmed-email.
func Search() error {
	mg.Deps(Build)

	raw := os.Getenv("MED_EXPLORER_KEYWORDS")
	if raw == "" {
		return fmt.Errorf("set MED_EXPLORER_KEYWORDS, e.g. \"CRISPR,leukemia,biomarker\"")
	}
	args := []string{"search"}
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			args = append(args, "--keyword", kw)
		}
	}
	if m := os.Getenv("MED_EXPLORER_MIN_MATCHES"); m != "" {
		args = append(args, "--min-matches", m)
	}
	if n := os.Getenv("MED_EXPLORER_AUTHORS"); n != "" {
		args = append(args, "--authors", n)
	}
	return sh.RunV(binPath, args...)
}

// Serve builds the CLI and starts the web form on MED_EXPLORER_ADDR
// (default :8080).
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "serve")
}
