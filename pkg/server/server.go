package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gildcraft/guildgen/pkg/config"
	"github.com/gildcraft/guildgen/pkg/generate"
	"github.com/gildcraft/guildgen/pkg/logging"
	"github.com/gildcraft/guildgen/pkg/metrics"
	"github.com/gildcraft/guildgen/pkg/models"
	"github.com/gildcraft/guildgen/pkg/prompts"
	"github.com/gildcraft/guildgen/pkg/telemetry"
)

// CacheHeader reports how a generation was served: hit, miss or bypass.
const CacheHeader = "X-Guildgen-Cache"

const maxBodyBytes = 1 << 20

// Server is the guildgen HTTP API.
type Server struct {
	cfg     *config.Config
	fwd     *generate.Forwarder
	logger  *log.Logger
	metrics *metrics.Metrics
	tracer  *telemetry.Provider
	mux     *http.ServeMux
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics instruments every route and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTracer opens a server span per request.
func WithTracer(p *telemetry.Provider) Option {
	return func(s *Server) { s.tracer = p }
}

// New creates a Server wired with the forwarder.
func New(cfg *config.Config, fwd *generate.Forwarder, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		fwd:    fwd,
		logger: logging.Discard(),
		tracer: telemetry.Noop(),
		mux:    http.NewServeMux(),
	}
	for _, o := range opts {
		o(s)
	}

	s.handle("POST /v1/generate", "/v1/generate", s.handleGenerate)
	s.handle("POST /api/generate/{template}", "/api/generate", s.handleTemplate)
	for _, info := range prompts.List() {
		name := info.Name
		s.handle("POST /api/generate-"+name, "/api/generate", func(w http.ResponseWriter, r *http.Request) {
			s.generateTemplate(w, r, name)
		})
	}
	s.handle("GET /api/templates", "/api/templates", s.handleTemplates)
	s.handle("GET /v1/cache/stats", "/v1/cache/stats", s.handleCacheStats)
	s.handle("DELETE /v1/cache", "/v1/cache", s.handleCacheClear)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.handler = requestID(cors(s.accessLog(s.mux)))
	return s
}

// handle registers h with tracing and, when enabled, metrics under endpoint.
func (s *Server) handle(pattern, endpoint string, h http.HandlerFunc) {
	var next http.Handler = h
	if s.metrics != nil {
		next = s.metrics.Middleware(endpoint, next)
	}
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := s.tracer.Extract(r.Context(), r.Header)
		ctx, span := s.tracer.StartRequest(ctx, endpoint)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	}))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("guildgen listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing required fields: prompt")
		return
	}

	opts, err := generate.OptionsFromMap(req.Options)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.generate(r.Context(), w, req.Prompt, opts)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	s.generateTemplate(w, r, r.PathValue("template"))
}

func (s *Server) generateTemplate(w http.ResponseWriter, r *http.Request, name string) {
	t, ok := prompts.Get(name)
	if !ok {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown template %q", name))
		return
	}

	var body map[string]any
	if err := decodeBody(w, r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rendered, err := t.Render(prompts.Fields(body))
	if err != nil {
		var mf *prompts.MissingFieldsError
		if errors.As(err, &mf) {
			writeJSONError(w, http.StatusBadRequest, mf.Error())
			return
		}
		s.logger.Error("render failed", "template", name, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := generate.OptionsFromMap(map[string]any{"timestamp": body["timestamp"]})
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rendered.Options.Timestamp = token.Timestamp
	rendered.Options.NoCache = token.NoCache

	s.generate(generate.WithLabel(r.Context(), name), w, rendered.Prompt, rendered.Options)
}

func (s *Server) generate(ctx context.Context, w http.ResponseWriter, prompt string, opts generate.Options) {
	res, err := s.fwd.Do(ctx, prompt, opts)
	if res.Cache != "" {
		w.Header().Set(CacheHeader, res.Cache)
	}
	if err != nil {
		var gerr *generate.Error
		if errors.As(err, &gerr) {
			writeJSONError(w, http.StatusBadGateway, gerr.Message)
			return
		}
		s.logger.Error("generate failed", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, models.GenerateResponse{Result: res.Text})
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, prompts.List())
}

// cacheStatsResponse is the body of GET /v1/cache/stats.
type cacheStatsResponse struct {
	Enabled bool    `json:"enabled"`
	TTL     string  `json:"ttl,omitempty"`
	HitRate float64 `json:"hit_rate"`
	models.CacheStats
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	store := s.fwd.Store()
	if store == nil {
		writeJSON(w, http.StatusOK, cacheStatsResponse{})
		return
	}
	stats := store.Stats()
	writeJSON(w, http.StatusOK, cacheStatsResponse{
		Enabled:    true,
		TTL:        store.TTL().String(),
		HitRate:    stats.HitRate(),
		CacheStats: stats,
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	store := s.fwd.Store()
	if store == nil {
		writeJSON(w, http.StatusOK, map[string]int{"removed": 0})
		return
	}
	expiredOnly := r.URL.Query().Get("expired") == "true"
	n := store.Clear(expiredOnly)
	s.logger.Info("cache cleared", "removed", n, "expired_only", expiredOnly)
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	r.Body.Close()
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, models.ErrorResponse{Error: message})
}
