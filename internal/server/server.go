// Package server exposes the retrieval engine over HTTP.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/boardroomlabs/ancestry/internal/retrieval"
)

// Server is the ancestry HTTP API server.
type Server struct {
	retriever *retrieval.Retriever
	router    chi.Router
	logger    *slog.Logger
	version   string
	started   time.Time
}

// New creates a Server around a retriever.
func New(retriever *retrieval.Retriever, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		retriever: retriever,
		logger:    logger,
		version:   version,
		started:   time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/retrieve", s.handleRetrieve)
	})

	s.router = r
}

type retrieveRequest struct {
	DecisionID     string `json:"decision_id"`
	Name           string `json:"decision_name,omitempty"`
	Summary        string `json:"decision_summary,omitempty"`
	BodyText       string `json:"body_text"`
	TopK           int    `json:"top_k,omitempty"`
	CandidateLimit int    `json:"candidate_limit,omitempty"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result := s.retriever.Retrieve(r.Context(), retrieval.Query{
		DecisionID:     req.DecisionID,
		Name:           req.Name,
		Summary:        req.Summary,
		BodyText:       req.BodyText,
		TopK:           req.TopK,
		CandidateLimit: req.CandidateLimit,
	})

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
