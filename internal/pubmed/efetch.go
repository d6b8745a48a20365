// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pdiddy/med-explorer/pkg/types"
)

// efetch XML structures. Only the fields the search reads are mapped.
// The root is PubmedArticleSet on success and eFetchResult on error, so the
// root name is left unchecked.
type articleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
	Error    string          `xml:"ERROR"`
}

type pubmedArticle struct {
	Citation medlineCitation `xml:"MedlineCitation"`
}

type medlineCitation struct {
	PMID    string  `xml:"PMID"`
	Article article `xml:"Article"`
}

type article struct {
	Title    markupText `xml:"ArticleTitle"`
	Abstract *abstract  `xml:"Abstract"`
	Authors  []author   `xml:"AuthorList>Author"`
}

type abstract struct {
	Texts []markupText `xml:"AbstractText"`
}

type author struct {
	LastName        string            `xml:"LastName"`
	ForeName        string            `xml:"ForeName"`
	Initials        string            `xml:"Initials"`
	CollectiveName  markupText        `xml:"CollectiveName"`
	AffiliationInfo []affiliationInfo `xml:"AffiliationInfo"`
}

type affiliationInfo struct {
	Affiliation markupText `xml:"Affiliation"`
}

// markupText is element content with any inline markup (<i>, <sup>, ...)
// flattened to its character data.
type markupText string

func (m *markupText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*m = markupText(strings.TrimSpace(b.String()))
				return nil
			}
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
}

// emptyResultMarker is the ERROR text efetch returns past the end of a
// result set.
const emptyResultMarker = "empty result"

func parseArticleSet(body []byte) ([]types.ArticleRecord, error) {
	var set articleSet
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing efetch response: %w", err)
	}
	if set.Error != "" && len(set.Articles) == 0 {
		if strings.Contains(strings.ToLower(set.Error), emptyResultMarker) {
			return nil, nil
		}
		return nil, &APIError{Op: "efetch", Message: strings.TrimSpace(set.Error)}
	}

	records := make([]types.ArticleRecord, 0, len(set.Articles))
	for _, pa := range set.Articles {
		records = append(records, toRecord(pa.Citation))
	}
	return records, nil
}

func toRecord(mc medlineCitation) types.ArticleRecord {
	r := types.ArticleRecord{
		PMID:  strings.TrimSpace(mc.PMID),
		Title: string(mc.Article.Title),
	}
	if mc.Article.Abstract != nil {
		for _, t := range mc.Article.Abstract.Texts {
			r.AbstractText = append(r.AbstractText, string(t))
		}
	}
	for _, a := range mc.Article.Authors {
		entry := types.AuthorEntry{
			LastName:       strings.TrimSpace(a.LastName),
			ForeName:       strings.TrimSpace(a.ForeName),
			Initials:       strings.TrimSpace(a.Initials),
			CollectiveName: string(a.CollectiveName),
		}
		for _, ai := range a.AffiliationInfo {
			if ai.Affiliation != "" {
				entry.Affiliations = append(entry.Affiliations, string(ai.Affiliation))
			}
		}
		r.Authors = append(r.Authors, entry)
	}
	return r
}
