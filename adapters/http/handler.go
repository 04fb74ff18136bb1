// Package http provides the read-only admin API over initialized module
// containers.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/artpar/cassette/adapters/metrics"
	"github.com/artpar/cassette/domain/module"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Containers is the view of the application the API reads from.
type Containers interface {
	Kinds() []module.Kind
	ModuleContainer(kind module.Kind) (*module.Container, error)
}

// KindSummary describes one initialized container.
type KindSummary struct {
	Kind    string `json:"kind"`
	Modules int    `json:"modules"`
	Assets  int    `json:"assets"`
}

// ModuleResponse describes one module.
type ModuleResponse struct {
	Directory string          `json:"directory"`
	Assets    []AssetResponse `json:"assets"`
}

// AssetResponse describes one asset.
type AssetResponse struct {
	SourceFilename string    `json:"source_filename"`
	Path           string    `json:"path"`
	Fingerprint    string    `json:"fingerprint,omitempty"`
	Size           int64     `json:"size,omitempty"`
	ModTime        time.Time `json:"mod_time,omitzero"`
}

// VersionResponse is the body of /version.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Handler serves the module inspection endpoints.
type Handler struct {
	containers Containers
	logger     zerolog.Logger
}

// NewHandler creates a module inspection handler.
func NewHandler(containers Containers, logger zerolog.Logger) *Handler {
	return &Handler{containers: containers, logger: logger}
}

// ListKinds returns every initialized container with its counts.
func (h *Handler) ListKinds(w http.ResponseWriter, r *http.Request) {
	kinds := h.containers.Kinds()
	out := make([]KindSummary, 0, len(kinds))
	for _, kind := range kinds {
		c, err := h.containers.ModuleContainer(kind)
		if err != nil {
			continue
		}
		out = append(out, summarize(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// ListModules returns the modules of one kind.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	c, ok := h.container(w, r)
	if !ok {
		return
	}

	out := make([]ModuleResponse, 0, c.Len())
	for _, m := range c.Modules() {
		out = append(out, describe(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// Lookup returns the module of one kind containing the path query parameter.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	c, ok := h.container(w, r)
	if !ok {
		return
	}

	p := r.URL.Query().Get("path")
	if p == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "path query parameter is required"})
		return
	}

	m, found := c.FindModule(p)
	if !found {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no module contains " + p, Kind: string(c.Kind())})
		return
	}
	writeJSON(w, http.StatusOK, describe(m))
}

func (h *Handler) container(w http.ResponseWriter, r *http.Request) (*module.Container, bool) {
	kind := module.ResolveKind(chi.URLParam(r, "kind"))
	c, err := h.containers.ModuleContainer(kind)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, module.ErrContainerNotInitialized) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: string(kind)})
		return nil, false
	}
	return c, true
}

func summarize(c *module.Container) KindSummary {
	s := KindSummary{Kind: string(c.Kind()), Modules: c.Len()}
	for _, m := range c.Modules() {
		s.Assets += len(m.Assets())
	}
	return s
}

func describe(m *module.Module) ModuleResponse {
	out := ModuleResponse{Directory: m.Directory(), Assets: []AssetResponse{}}
	m.Accept(module.VisitorFuncs{
		Asset: func(a module.Asset) {
			ar := AssetResponse{
				SourceFilename: a.SourceFilename(),
				Path:           m.AssetPath(a.SourceFilename()),
			}
			if d, ok := a.(module.Describer); ok {
				f := d.File()
				ar.Fingerprint = f.Fingerprint
				ar.Size = f.Size
				ar.ModTime = f.ModTime
			}
			out.Assets = append(out.Assets, ar)
		},
	})
	return out
}

// Liveness returns a simple liveness check.
func Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionHandler returns a handler reporting version.
func VersionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{Version: version, Service: "cassette"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // served at /metrics; promhttp.Handler() when nil
	EnableMetrics  bool
	Version        string
}

// NewRouter creates the admin router.
func NewRouter(h *Handler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	r.Get("/healthz", Liveness)
	r.Get("/version", VersionHandler(cfg.Version))

	if cfg.EnableMetrics {
		if cfg.MetricsHandler != nil {
			r.Handle("/metrics", cfg.MetricsHandler)
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}

	r.Route("/modules", func(r chi.Router) {
		r.Get("/", h.ListKinds)
		r.Get("/{kind}", h.ListModules)
		r.Get("/{kind}/lookup", h.Lookup)
	})

	return r
}

// NewMetricsMiddleware records request counts and durations by route pattern.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.Request(r.Method, route, ww.Status(), time.Since(start))
		})
	}
}

// NewLoggingMiddleware logs each request at debug level.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if r.URL.Path == "/healthz" || strings.HasPrefix(r.URL.Path, "/metrics") {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
