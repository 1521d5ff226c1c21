// Package api exposes the analysis pipeline over a JSON HTTP API: search
// for stories, embed them, cluster, and drill into cluster graphs, concept
// graphs, and summaries.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abpatramsft/hackernews-compare-tool/internal/cache"
	"github.com/abpatramsft/hackernews-compare-tool/internal/cluster"
	"github.com/abpatramsft/hackernews-compare-tool/internal/concept"
	"github.com/abpatramsft/hackernews-compare-tool/internal/config"
	"github.com/abpatramsft/hackernews-compare-tool/internal/embed"
	"github.com/abpatramsft/hackernews-compare-tool/internal/hn"
	"github.com/abpatramsft/hackernews-compare-tool/internal/store"
	"github.com/abpatramsft/hackernews-compare-tool/internal/summary"
)

// Searcher is the slice of the HN client the server needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit, days int) ([]hn.Story, error)
}

// Server holds the wired pipeline components behind the HTTP handlers.
type Server struct {
	log        *zap.Logger
	cfg        config.Config
	hn         Searcher
	store      store.Store
	embedder   embed.Embedder
	clusters   *cluster.Builder
	concepts   *concept.Builder
	summaries  *summary.Generator
	embeddings *cache.Cache[[][]float32]
	newID      func() string
}

// Deps bundles the collaborators for NewServer.
type Deps struct {
	Log       *zap.Logger
	HN        Searcher
	Store     store.Store
	Embedder  embed.Embedder
	Clusters  *cluster.Builder
	Concepts  *concept.Builder
	Summaries *summary.Generator
}

// NewServer wires the handlers onto the given collaborators.
func NewServer(cfg config.Config, deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		log:        log,
		cfg:        cfg,
		hn:         deps.HN,
		store:      deps.Store,
		embedder:   deps.Embedder,
		clusters:   deps.Clusters,
		concepts:   deps.Concepts,
		summaries:  deps.Summaries,
		embeddings: cache.New[[][]float32](cfg.Cache.Embeddings),
		newID:      uuid.NewString,
	}
}

// Handler returns the routed HTTP handler with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/hackernews/search", s.handleSearch)
	mux.HandleFunc("GET /api/v1/hackernews/stats/{search_id}", s.handleStats)
	mux.HandleFunc("GET /api/v1/hackernews/sessions", s.handleSessions)
	mux.HandleFunc("POST /api/v1/analysis/embed", s.handleEmbed)
	mux.HandleFunc("POST /api/v1/analysis/cluster", s.handleCluster)
	mux.HandleFunc("POST /api/v1/analysis/cluster_graph", s.handleClusterGraph)
	mux.HandleFunc("POST /api/v1/analysis/concept_graph", s.handleConceptGraph)
	mux.HandleFunc("POST /api/v1/analysis/summarize", s.handleSummarize)
	return s.withCORS(s.withLogging(mux))
}

// ListenAndServe runs the HTTP server until the listener fails.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:        s.cfg.Server.Addr,
		Handler:     s.Handler(),
		ReadTimeout: time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
	}
	s.log.Info("listening", zap.String("addr", s.cfg.Server.Addr))
	return srv.ListenAndServe()
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	origin := s.cfg.Server.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
