// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/med-explorer/pkg/types"
)

// QueryFile is the on-disk form of a saved search: the criteria and,
// optionally, the discovery tunables to run it with. The researcher keeps
// recurring searches in files instead of retyping keywords.
//
//	email: me@example.org
//	keywords: [CRISPR, leukemia, biomarker]
//	required_authors: 3
//	min_keyword_matches: 2
//	student_name: Vasylenko M
//	discovery:
//	  batch_size: 50
//	  min_articles: 3
type QueryFile struct {
	types.SearchCriteria `yaml:",inline"`

	Discovery types.DiscoveryConfig `yaml:"discovery,omitempty"`
}

// ReadQueryFile loads a query file from disk. It does not validate the
// criteria; the search does that before any request.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file %s: %w", path, err)
	}
	return &qf, nil
}

// Merge returns base with every non-zero field of the file's discovery
// settings applied over it.
func (qf *QueryFile) Merge(base types.DiscoveryConfig) types.DiscoveryConfig {
	d := qf.Discovery
	if d.BatchSize != 0 {
		base.BatchSize = d.BatchSize
	}
	if d.PageDelay != 0 {
		base.PageDelay = d.PageDelay
	}
	if d.MinArticles != 0 {
		base.MinArticles = d.MinArticles
	}
	if d.Window != 0 {
		base.Window = d.Window
	}
	return base
}
