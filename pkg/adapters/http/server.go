// Package http exposes a Renderer over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/ports"
	"github.com/gabriel-vasile/mimetype"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxBodyBytes bounds request bodies. The normalizer applies the tighter text limit.
const MaxBodyBytes = 64 << 10

// HeaderStrategy names the strategy that produced the returned image.
const HeaderStrategy = "X-Tablecast-Strategy"

// Server serves the render API.
type Server struct {
	renderer ports.Renderer
	router   routers.Router
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer mounts GET /metrics serving g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler builds the HTTP handler for renderer.
func NewHandler(renderer ports.Renderer, opts ...Option) (http.Handler, error) {
	_, router, err := loadSpec()
	if err != nil {
		return nil, err
	}
	s := &Server{
		renderer: renderer,
		router:   router,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.Health)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(rawSpec)
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(limitBody)
		r.Use(s.validateRequests)
		r.Post("/render", s.Render)
		r.Get("/strategies", s.ListStrategies)
	})
	return r, nil
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start))
	})
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListStrategies handles GET /v1/strategies.
func (s *Server) ListStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"strategies": s.renderer.Strategies()})
}

// Render handles POST /v1/render.
func (s *Server) Render(w http.ResponseWriter, r *http.Request) {
	text, err := readText(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.renderer.Render(r.Context(), text)
	if err != nil {
		s.writeRenderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mimetype.Detect(res.Image).String())
	w.Header().Set(HeaderStrategy, res.Strategy)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Image)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Image); err != nil {
		s.logger.Warn("render response write failed", "err", err)
	}
}

func readText(r *http.Request) (string, error) {
	media, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("invalid content type: %w", err)
	}
	switch media {
	case "application/json":
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("invalid request body: %w", err)
		}
		return body.Text, nil
	case "text/plain":
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read body: %w", err)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("unsupported content type %q", media)
	}
}

type attemptJSON struct {
	Strategy   string           `json:"strategy"`
	Kind       domain.ErrorKind `json:"kind"`
	Message    string           `json:"message,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

type failureJSON struct {
	Error    string        `json:"error"`
	Summary  string        `json:"summary"`
	Attempts []attemptJSON `json:"attempts"`
}

func (s *Server) writeRenderError(w http.ResponseWriter, r *http.Request, err error) {
	var failure *domain.Failure
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": "))
	case errors.As(err, &failure):
		body := failureJSON{
			Error:    failure.Error(),
			Summary:  failure.Summary(),
			Attempts: make([]attemptJSON, len(failure.Attempts)),
		}
		for i, a := range failure.Attempts {
			body.Attempts[i] = attemptJSON{
				Strategy:   a.Strategy,
				Kind:       a.Kind,
				Message:    a.Message,
				DurationMS: a.Duration.Milliseconds(),
			}
		}
		writeJSON(w, http.StatusBadGateway, body)
	default:
		s.logger.Error("render failed", "request_id", middleware.GetReqID(r.Context()), "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ListenAndServe serves handler on addr until ctx is done, then shuts down gracefully.
func ListenAndServe(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down HTTP server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}
