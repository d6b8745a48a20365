// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package web serves the search form and streams a running search's
// progress to the browser.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pdiddy/med-explorer/internal/search"
	"github.com/pdiddy/med-explorer/pkg/types"
)

// BackendFactory builds a search backend identified by the caller's email.
// Each request gets its own backend so no client state is shared.
type BackendFactory func(email string) search.Backend

// Server holds the web front end and its dependencies.
type Server struct {
	newBackend BackendFactory
	discovery  types.DiscoveryConfig
	logger     *zap.Logger
	searchOpts []search.Option
}

// NewServer returns a Server. opts are applied to every search it starts.
func NewServer(newBackend BackendFactory, discovery types.DiscoveryConfig, logger *zap.Logger, opts ...search.Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		newBackend: newBackend,
		discovery:  discovery,
		logger:     logger.Named("web"),
		searchOpts: opts,
	}
}

// Routes configures the HTTP routes.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/", s.formHandler).Methods(http.MethodGet)
	r.HandleFunc("/search", s.searchHandler).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	return r
}

// formData backs the form template.
type formData struct {
	Error        string
	Email        string
	KeywordsText string
	Authors      int
	MinMatches   int
	Student      string
}

func defaultForm() formData {
	return formData{Authors: 1, MinMatches: 1}
}

func (s *Server) formHandler(w http.ResponseWriter, _ *http.Request) {
	s.renderForm(w, http.StatusOK, defaultForm())
}

func (s *Server) renderForm(w http.ResponseWriter, status int, data formData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTmpl.Execute(w, data); err != nil {
		s.logger.Error("rendering form", zap.Error(err))
	}
}

// parseCriteria reads the form fields. Keywords come from the "keywords"
// textarea (one per line) and any repeated "keyword" fields.
func parseCriteria(r *http.Request) (types.SearchCriteria, formData, error) {
	data := defaultForm()
	if err := r.ParseForm(); err != nil {
		return types.SearchCriteria{}, data, err
	}

	data.Email = strings.TrimSpace(r.PostForm.Get("email"))
	data.Student = strings.TrimSpace(r.PostForm.Get("student"))
	data.KeywordsText = r.PostForm.Get("keywords")

	var keywords []string
	for _, line := range strings.Split(data.KeywordsText, "\n") {
		if kw := strings.TrimSpace(line); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	for _, kw := range r.PostForm["keyword"] {
		keywords = append(keywords, strings.TrimSpace(kw))
	}

	var err error
	if data.Authors, err = formInt(r, "authors", 1); err != nil {
		return types.SearchCriteria{}, data, err
	}
	if data.MinMatches, err = formInt(r, "min_matches", 1); err != nil {
		return types.SearchCriteria{}, data, err
	}

	c := types.SearchCriteria{
		Email:             data.Email,
		Keywords:          keywords,
		RequiredAuthors:   data.Authors,
		MinKeywordMatches: data.MinMatches,
		StudentName:       data.Student,
	}
	return c, data, c.Validate()
}

func formInt(r *http.Request, field string, fallback int) (int, error) {
	v := strings.TrimSpace(r.PostForm.Get(field))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, errors.New(field + " must be a whole number")
	}
	return n, nil
}

// errorMessage maps configuration errors to the messages shown on the form.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, types.ErrEmailRequired):
		return "Please enter your email."
	case errors.Is(err, types.ErrNoKeywords), errors.Is(err, types.ErrEmptyKeyword):
		return "Please enter all keywords."
	default:
		return err.Error()
	}
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	criteria, data, err := parseCriteria(r)
	if err != nil {
		data.Error = errorMessage(err)
		s.renderForm(w, http.StatusBadRequest, data)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	if err := headTmpl.Execute(w, nil); err != nil {
		s.logger.Error("rendering page head", zap.Error(err))
		return
	}
	flush()

	opts := append([]search.Option{search.WithLogger(s.logger)}, s.searchOpts...)
	srch := search.New(s.newBackend(criteria.Email), criteria, s.discovery, opts...)
	for ev := range srch.Events(r.Context()) {
		if err := eventTmpl.Execute(w, ev); err != nil {
			// The client went away; breaking stops the search.
			s.logger.Debug("client disconnected", zap.Error(err))
			return
		}
		flush()
	}

	res := srch.Result()
	s.logger.Info("search finished",
		zap.Int("found", len(res.Order)),
		zap.Int("required", res.Required),
		zap.Int("retrieved", res.Retrieved),
		zap.Int("total", res.Total),
		zap.Int("warnings", len(res.Warnings)))

	if err := resultTmpl.Execute(w, struct{ Candidates []types.CandidateAuthor }{res.Candidates()}); err != nil {
		s.logger.Error("rendering result", zap.Error(err))
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		s.logger.Error("writing health response", zap.Error(err))
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}
