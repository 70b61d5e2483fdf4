// Package server exposes the HTTP API.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	"github.com/FranksOps/beacon/internal/cache"
	"github.com/FranksOps/beacon/internal/httputil"
	"github.com/FranksOps/beacon/internal/pipeline"
	"github.com/FranksOps/beacon/internal/report"
	"github.com/FranksOps/beacon/internal/serp"
	"github.com/FranksOps/beacon/internal/storage"
	"github.com/FranksOps/beacon/internal/synth"
)

// Config provides HTTP layer parameters.
type Config struct {
	// CORSOrigins is a comma-separated list of allowed origins.
	CORSOrigins string
}

// Server holds the API's dependencies. Cache and Archive are optional and
// their endpoints degrade when absent.
type Server struct {
	cfg     Config
	runner  pipeline.Runner
	cache   cache.Client
	archive storage.Backend
	logger  *slog.Logger

	validate *validator.Validate
}

// New creates the API server. cacheClient and archive may be nil.
func New(cfg Config, runner pipeline.Runner, cacheClient cache.Client, archive storage.Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		runner:   runner,
		cache:    cacheClient,
		archive:  archive,
		logger:   logger,
		validate: validator.New(),
	}
}

// Handler builds the routed and middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/cache_test", s.handleCacheTest)
	mux.HandleFunc("GET /api/report", s.handleReport)

	var handler http.Handler = mux
	handler = Recovery(s.logger)(handler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: strings.Split(s.cfg.CORSOrigins, ","),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
	})
	return corsHandler.Handler(handler)
}

type searchRequest struct {
	Query string `json:"query" validate:"required"`
}

type searchResponse struct {
	Result           string   `json:"result"`
	Citations        []string `json:"citations"`
	RelatedQuestions []string `json:"relatedQuestions"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "query is required")
		return
	}

	res, err := s.runner.Run(r.Context(), req.Query)
	if err != nil {
		s.respondPipelineError(w, req.Query, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, searchResponse{
		Result:           res.Answer,
		Citations:        res.Citations,
		RelatedQuestions: res.RelatedQuestions,
	})
}

// respondPipelineError maps the pipeline's typed failures onto status codes.
// Both fatal kinds are upstream outages, so they surface as 502.
func (s *Server) respondPipelineError(w http.ResponseWriter, query string, err error) {
	var perr *serp.ProviderError
	var serr *synth.SynthesisError

	switch {
	case errors.As(err, &perr):
		s.logger.Error("search provider failed", "query", query, "err", err)
		httputil.RespondError(w, http.StatusBadGateway, "search provider unavailable")
	case errors.As(err, &serr):
		s.logger.Error("synthesis failed", "query", query, "err", err)
		httputil.RespondError(w, http.StatusBadGateway, "answer synthesis unavailable")
	default:
		s.logger.Error("search failed", "query", query, "err", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) handleCacheTest(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "cache not configured")
		return
	}

	ctx := r.Context()
	if err := s.cache.Set(ctx, "ping", "pong", 0); err != nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "cache unreachable")
		return
	}
	value, err := s.cache.Get(ctx, "ping")
	if err != nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "cache unreachable")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"key": value})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "fetch archive not configured")
		return
	}

	records, err := s.archive.Query(r.Context(), storage.Filter{})
	if err != nil {
		s.logger.Error("archive query failed", "err", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to read fetch archive")
		return
	}

	summary := report.GenerateSummary(records)

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.WriteText(w, summary); err != nil {
			s.logger.Error("report rendering failed", "err", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := report.WriteJSON(w, summary); err != nil {
		s.logger.Error("report rendering failed", "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
