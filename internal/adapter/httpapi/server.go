// Package httpapi exposes the built dataset over HTTP: health and metrics
// endpoints plus a read-only JSON API over the dataset views.
package httpapi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecobolig/housing-energy-etl/internal/domain"
)

// DatasetProvider builds or returns the memoized dataset.
type DatasetProvider interface {
	Dataset(ctx context.Context) (*domain.Dataset, error)
	Refresh(ctx context.Context) (*domain.Dataset, error)
	CheckReadiness(ctx context.Context) error
}

// Classifiers holds the severity classifier for each map metric.
type Classifiers struct {
	PerArea     *domain.Classifier
	PerResident *domain.Classifier
}

// Server exposes health, readiness, metrics, and dataset API endpoints.
type Server struct {
	httpServer  *http.Server
	provider    DatasetProvider
	classifiers Classifiers
	logger      *slog.Logger
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(addr string, provider DatasetProvider, classifiers Classifiers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		provider:    provider,
		classifiers: classifiers,
		logger:      logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/records", s.withDataset(s.handleRecords))
	mux.HandleFunc("GET /api/buildings", s.withDataset(s.handleBuildings))
	mux.HandleFunc("GET /api/summary", s.withDataset(s.handleSummary))
	mux.HandleFunc("GET /api/monthly", s.withDataset(s.handleMonthly))
	mux.HandleFunc("GET /api/top", s.withDataset(s.handleTop))
	mux.HandleFunc("GET /api/compare", s.withDataset(s.handleCompare))
	mux.HandleFunc("GET /api/correlation", s.withDataset(s.handleCorrelation))
	mux.HandleFunc("GET /api/map", s.withDataset(s.handleMap))
	mux.HandleFunc("GET /api/meta", s.withDataset(s.handleMeta))
	mux.HandleFunc("GET /api/export", s.withDataset(s.handleExport))
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.provider.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// withDataset resolves the dataset once per request and hands it to the
// handler, turning build failures into a single 503 path.
func (s *Server) withDataset(h func(http.ResponseWriter, *http.Request, *domain.Dataset)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := s.provider.Dataset(r.Context())
		if err != nil {
			s.logger.Error("dataset build failed", "error", err, "path", r.URL.Path)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		h(w, r, ds)
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ds, err := s.provider.Refresh(r.Context())
	if err != nil {
		s.logger.Error("refresh failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fingerprint": ds.Fingerprint,
		"records":     len(ds.Records),
		"built_at":    ds.BuiltAt,
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request, ds *domain.Dataset) {
	records := ds.Select(filterFrom(r))
	if records == nil {
		records = []domain.JoinedRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request, ds *domain.Dataset) {
	f := filterFrom(r)
	buildings := make([]domain.BuildingRecord, 0, len(ds.Buildings))
	for _, b := range ds.Buildings {
		if f.City != "" && b.City != domain.CanonicalCity(f.City) {
			continue
		}
		buildings = append(buildings, b)
	}
	writeJSON(w, http.StatusOK, buildings)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, ds *domain.Dataset) {
	writeJSON(w, http.StatusOK, ds.Summary(filterFrom(r)))
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request, ds *domain.Dataset) {
	writeJSON(w, http.StatusOK, ds.MonthlySeries(filterFrom(r)))
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request, ds *domain.Dataset) {
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be a positive integer"})
			return
		}
		n = parsed
	}
	writeJSON(w, http.StatusOK, ds.TopConsumers(filterFrom(r), n))
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request, ds *domain.Dataset) {
	writeJSON(w, http.StatusOK, ds.Quartiles(filterFrom(r)))
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request, ds *domain.Dataset) {
	writeJSON(w, http.StatusOK, ds.Correlation(filterFrom(r)))
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request, ds *domain.Dataset) {
	kind := domain.MetricKind(r.URL.Query().Get("metric"))
	classifier := s.classifiers.PerArea
	switch kind {
	case "", domain.MetricPerArea:
		kind = domain.MetricPerArea
	case domain.MetricPerResident:
		classifier = s.classifiers.PerResident
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "metric must be per_area or per_resident"})
		return
	}
	writeJSON(w, http.StatusOK, ds.MapMarkers(filterFrom(r), kind, classifier))
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request, ds *domain.Dataset) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fingerprint": ds.Fingerprint,
		"built_at":    ds.BuiltAt,
		"records":     len(ds.Records),
		"buildings":   len(ds.Buildings),
		"cities":      ds.Cities(),
		"years":       ds.Years(),
		"diagnostics": domain.CountByReason(ds.Diagnostics),
	})
}

// handleExport streams the filtered records as a semicolon-delimited file,
// matching the source format so the export loads back in.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, ds *domain.Dataset) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="energy-dataset.csv"`)

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	for _, row := range ds.ExportRows(filterFrom(r)) {
		if err := cw.Write(row); err != nil {
			s.logger.Error("export write failed", "error", err)
			return
		}
	}
	cw.Flush()
}

// filterFrom reads the shared filter query parameters. Unparseable years are
// treated as unset rather than erroring, matching the lenient source parsing.
func filterFrom(r *http.Request) domain.Filter {
	q := r.URL.Query()
	f := domain.Filter{
		City:       q.Get("city"),
		BuildingID: q.Get("building"),
	}
	if y, err := strconv.Atoi(q.Get("year")); err == nil {
		f.Year = y
	}
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
