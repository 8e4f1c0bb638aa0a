// Package api serves the word graph over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Benny93/wordgraph/internal/engine"
	"github.com/Benny93/wordgraph/internal/graph"
	"github.com/Benny93/wordgraph/internal/ingestion"
	"github.com/Benny93/wordgraph/internal/logging"
	"github.com/Benny93/wordgraph/internal/metrics"
	"github.com/Benny93/wordgraph/internal/query"
	"github.com/Benny93/wordgraph/internal/render"
)

// Server holds the HTTP handler dependencies.
type Server struct {
	engine *engine.Engine
	style  render.Style
	logger *slog.Logger

	// walkDelay paces walks started over HTTP.
	walkDelay time.Duration

	// corpusRoot bounds the paths /api/ingest may read. Empty disables
	// path ingestion.
	corpusRoot string
}

// maxWalkDelay caps the ?delay= accepted by /api/walk.
const maxWalkDelay = 2 * time.Second

var errOutsideRoot = errors.New("path is outside the corpus root")

// Option configures a Server.
type Option func(*Server)

// WithStyle sets the colors used by /api/graph.dot when a path is
// highlighted.
func WithStyle(style render.Style) Option {
	return func(s *Server) { s.style = style }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithWalkDelay sets the default pause between walk steps.
func WithWalkDelay(d time.Duration) Option {
	return func(s *Server) { s.walkDelay = d }
}

// WithCorpusRoot lets /api/ingest read files and directories under root.
// Without it, requests naming paths are refused.
func WithCorpusRoot(root string) Option {
	return func(s *Server) { s.corpusRoot = root }
}

// New creates a Server over e.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine: e,
		style:  render.DefaultStyle(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.corpusRoot != "" {
		s.corpusRoot = resolvePath(s.corpusRoot)
	}
	return s
}

// Router returns the chi router with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.Stats)
		r.With(middleware.AllowContentType("application/json")).Post("/ingest", s.Ingest)
		r.Get("/bridge", s.Bridge)
		r.Post("/generate", s.Generate)
		r.Get("/path", s.Path)
		r.Post("/walk", s.Walk)
		r.Get("/walks", s.Walks)
		r.Get("/graph.dot", s.GraphDOT)
	})

	return r
}

// ListenAndServe serves the router on addr until ctx is done, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("http server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// instrument logs every request and counts it by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		s.logger.Info("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats handles GET /api/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

// IngestRequest is the body of POST /api/ingest. Text is ingested before
// Paths. Relative paths are taken from the corpus root and no path may
// leave it.
type IngestRequest struct {
	Text  string   `json:"text"`
	Paths []string `json:"paths"`
}

// IngestResponse reports what an ingest request added.
type IngestResponse struct {
	Files int          `json:"files"`
	Stats engine.Stats `json:"graph"`

	ingestion.IngestStats
}

// Ingest handles POST /api/ingest.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Text == "" && len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "text or paths is required")
		return
	}

	paths := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		resolved, err := s.corpusPath(p)
		if err != nil {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		paths = append(paths, resolved)
	}

	var resp IngestResponse
	if req.Text != "" {
		resp.IngestStats.Add(s.engine.IngestText(req.Text))
	}
	if len(paths) > 0 {
		res, err := s.engine.IngestPaths(r.Context(), paths, nil)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.Files = res.Files
		resp.IngestStats.Add(ingestion.IngestStats{
			Lines:        res.Lines,
			SkippedLines: res.SkippedLines,
			Tokens:       res.Tokens,
			Edges:        res.Edges,
		})
	}
	resp.Stats = s.engine.Stats()

	writeJSON(w, http.StatusOK, resp)
}

// corpusPath resolves p against the corpus root, following symlinks, and
// rejects anything that ends up outside it.
func (s *Server) corpusPath(p string) (string, error) {
	if s.corpusRoot == "" {
		return "", errors.New("path ingestion is disabled")
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.corpusRoot, p)
	}

	resolved := resolvePath(p)
	rel, err := filepath.Rel(s.corpusRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", p, errOutsideRoot)
	}
	return resolved, nil
}

// resolvePath returns the absolute form of p with symlinks evaluated. Paths
// that do not exist are only made absolute.
func resolvePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if target, err := filepath.EvalSymlinks(abs); err == nil {
		return target
	}
	return abs
}

// BridgeResponse is the body returned by GET /api/bridge.
type BridgeResponse struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Words   []string `json:"words"`
	Message string   `json:"message"`
}

// Bridge handles GET /api/bridge?from=&to=.
func (s *Server) Bridge(w http.ResponseWriter, r *http.Request) {
	from, to, ok := wordPair(w, r)
	if !ok {
		return
	}

	words, err := s.engine.BridgeWords(from, to)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	from, to = strings.ToLower(from), strings.ToLower(to)
	writeJSON(w, http.StatusOK, BridgeResponse{
		From:    from,
		To:      to,
		Words:   words,
		Message: query.FormatBridgeWords(from, to, words),
	})
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Text string `json:"text"`
}

// Generate handles POST /api/generate.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": s.engine.Augment(req.Text)})
}

// Path handles GET /api/path?from=&to=.
func (s *Server) Path(w http.ResponseWriter, r *http.Request) {
	from, to, ok := wordPair(w, r)
	if !ok {
		return
	}

	res, err := s.engine.ShortestPaths(from, to)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Walk handles POST /api/walk. The walk stops when the client goes away.
// An optional ?delay= duration, at most maxWalkDelay, overrides the default
// step pause.
func (s *Server) Walk(w http.ResponseWriter, r *http.Request) {
	delay := s.walkDelay
	if v := r.URL.Query().Get("delay"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 || d > maxWalkDelay {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid delay: %s (0 to %s)", v, maxWalkDelay))
			return
		}
		delay = d
	}

	res, err := s.engine.Walk(r.Context(), nil, query.WithStepDelay(delay))
	if err != nil && res == nil {
		writeQueryError(w, err)
		return
	}
	if err != nil {
		s.logger.Warn("walk not saved", "id", res.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, res)
}

// Walks handles GET /api/walks?limit=.
func (s *Server) Walks(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		limit = n
	}

	walks, err := s.engine.Walks(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if walks == nil {
		walks = []*graph.WalkResult{}
	}
	writeJSON(w, http.StatusOK, walks)
}

// GraphDOT handles GET /api/graph.dot. With from and to set, the shortest
// paths between them are colored.
func (s *Server) GraphDOT(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")

	var paths []graph.Path
	if from != "" || to != "" {
		res, err := s.engine.ShortestPaths(from, to)
		if err != nil {
			writeQueryError(w, err)
			return
		}
		paths = res.Paths
	}

	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	if err := s.engine.WriteHighlightedDOT(w, paths, s.style); err != nil {
		s.logger.Error("writing dot", "error", err)
	}
}

func wordPair(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return "", "", false
	}
	return from, to, true
}

// StatusFor maps a query error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, query.ErrWordMissing):
		return http.StatusNotFound
	case errors.Is(err, query.ErrNoBridge), errors.Is(err, query.ErrNoPath):
		return http.StatusUnprocessableEntity
	case errors.Is(err, query.ErrEmptyGraph):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeQueryError(w http.ResponseWriter, err error) {
	writeError(w, StatusFor(err), err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
