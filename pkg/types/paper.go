// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AuthorEntry is one author of an ArticleRecord: either a personal name
// (LastName with Initials) or a collective/group name, with zero or more
// free-text affiliations.
type AuthorEntry struct {
	LastName       string   `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	ForeName       string   `json:"fore_name,omitempty" yaml:"fore_name,omitempty"`
	Initials       string   `json:"initials,omitempty" yaml:"initials,omitempty"`
	CollectiveName string   `json:"collective_name,omitempty" yaml:"collective_name,omitempty"`
	Affiliations   []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`
}

// CanonicalName returns "LastName Initials" for a personal author, the
// collective name when no personal name is present, or "" when neither is
// available.
func (a AuthorEntry) CanonicalName() string {
	if a.LastName != "" && a.Initials != "" {
		return a.LastName + " " + a.Initials
	}
	return a.CollectiveName
}

// ArticleRecord holds the fields of a PubMed article used by the search.
type ArticleRecord struct {
	// PMID is the PubMed identifier.
	PMID string `json:"pmid" yaml:"pmid"`

	// Title is the ArticleTitle as published, case preserved.
	Title string `json:"title" yaml:"title"`

	// AbstractText holds the abstract blocks in document order. Empty when the
	// article has no abstract.
	AbstractText []string `json:"abstract_text,omitempty" yaml:"abstract_text,omitempty"`

	Authors []AuthorEntry `json:"authors" yaml:"authors"`
}

// ArticleSummary records the article through which a candidate was found.
type ArticleSummary struct {
	PMID           string `json:"pmid" yaml:"pmid"`
	Title          string `json:"title" yaml:"title"`
	KeywordMatches int    `json:"keyword_matches" yaml:"keyword_matches"`
}

// CandidateAuthor is an author who passed every filter.
type CandidateAuthor struct {
	// Name is the canonical display name and the result key.
	Name string `json:"name" yaml:"name"`

	// Affiliation is the affiliation text that matched, as published.
	Affiliation string `json:"affiliation" yaml:"affiliation"`

	Articles []ArticleSummary `json:"articles" yaml:"articles"`
}
