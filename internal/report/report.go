// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders search progress and results for a terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/med-explorer/internal/search"
	"github.com/pdiddy/med-explorer/pkg/types"
)

// Output formats accepted by Format.
const (
	FormatTableName = "table"
	FormatJSONName  = "json"
	FormatYAMLName  = "yaml"
)

// Styles holds the lipgloss styles used for terminal output.
type Styles struct {
	Header  lipgloss.Style
	Label   lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles returns styles bound to a renderer for w, so colour is only
// emitted when w is a terminal.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Label:   r.NewStyle().Bold(true),
		Info:    r.NewStyle(),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Muted:   r.NewStyle().Faint(true),
	}
}

// Progress writes one line per progress event.
type Progress struct {
	w      io.Writer
	styles Styles
}

// NewProgress returns a Progress writing to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w, styles: NewStyles(w)}
}

// Event renders ev. It is shaped to be passed directly as a search sink.
func (p *Progress) Event(ev types.ProgressEvent) {
	counters := p.styles.Muted.Render(fmt.Sprintf("[%3.0f%% %d/%d found %d/%d]",
		ev.Fraction()*100, ev.Retrieved, ev.Total, ev.Found, ev.Required))

	var msg string
	switch ev.Kind {
	case types.EventWarning, types.EventRejected:
		msg = p.styles.Warning.Render("warning: " + ev.Message)
	case types.EventError:
		msg = p.styles.Error.Render("error: " + ev.Message)
	case types.EventAccepted:
		msg = p.styles.Success.Render(ev.Message)
	default:
		msg = p.styles.Info.Render(ev.Message)
	}
	fmt.Fprintf(p.w, "%s %s\n", counters, msg)
}

// Format writes res in the named format: table, json, or yaml.
func Format(res search.Result, format string, w io.Writer) error {
	switch strings.ToLower(format) {
	case FormatTableName, "":
		FormatTable(res, w)
		return nil
	case FormatJSONName:
		return FormatJSON(res, w)
	case FormatYAMLName:
		return FormatYAML(res, w)
	default:
		return fmt.Errorf("unsupported format %q: use table, json, or yaml", format)
	}
}

// FormatTable writes a human-readable listing of the found authors.
func FormatTable(res search.Result, w io.Writer) {
	st := NewStyles(w)
	candidates := res.Candidates()
	if len(candidates) == 0 {
		fmt.Fprintln(w, st.Warning.Render("No authors matching the criteria were found."))
		return
	}

	fmt.Fprintln(w, st.Success.Render(fmt.Sprintf("Found %d unique authors from Ukraine matching the criteria.", len(candidates))))
	for _, c := range candidates {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.Header.Render("Author: "+c.Name))
		fmt.Fprintf(w, "%s %s\n", st.Label.Render("Affiliation:"), c.Affiliation)
		for _, a := range c.Articles {
			fmt.Fprintf(w, "%s %s | %s %d\n",
				st.Label.Render("PMID:"), a.PMID, st.Label.Render("Keyword matches:"), a.KeywordMatches)
			fmt.Fprintf(w, "%s %s\n", st.Label.Render("Title:"), a.Title)
		}
	}

	fmt.Fprintf(w, "\n%d/%d authors, %d/%d articles reviewed\n",
		len(candidates), res.Required, res.Retrieved, res.Total)
}

// document is the serialised form of a Result. Authors keep discovery order.
type document struct {
	Query     string                  `json:"query" yaml:"query"`
	Total     int                     `json:"total" yaml:"total"`
	Retrieved int                     `json:"retrieved" yaml:"retrieved"`
	Required  int                     `json:"required" yaml:"required"`
	Authors   []types.CandidateAuthor `json:"authors" yaml:"authors"`
	Warnings  []string                `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func toDocument(res search.Result) document {
	return document{
		Query:     res.Query,
		Total:     res.Total,
		Retrieved: res.Retrieved,
		Required:  res.Required,
		Authors:   res.Candidates(),
		Warnings:  res.Warnings,
	}
}

// FormatJSON writes the result as indented JSON.
func FormatJSON(res search.Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toDocument(res))
}

// FormatYAML writes the result as YAML.
func FormatYAML(res search.Result, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	enc.SetIndent(2)
	return enc.Encode(toDocument(res))
}
