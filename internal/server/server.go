// Package server exposes the manual trigger and analytics HTTP surface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/expanders360/vendor-match/internal/model"
	"github.com/expanders360/vendor-match/internal/monitoring"
	"github.com/expanders360/vendor-match/internal/scheduler"
	"github.com/expanders360/vendor-match/internal/store"
)

// Rebuilder recomputes matches for one project.
type Rebuilder interface {
	Rebuild(ctx context.Context, projectID int64) ([]model.Match, error)
}

// Analytics serves the cross-store top-vendors view.
type Analytics interface {
	TopVendorsWithResearch(ctx context.Context) ([]model.CountryTopVendors, error)
}

// Server routes manual scheduler triggers and analytics reads. Trigger
// endpoints run their job synchronously and report the run outcome in
// the response body.
type Server struct {
	router *chi.Mux

	sched     *scheduler.Scheduler
	refresh   scheduler.Job
	slaCheck  scheduler.Job
	engine    Rebuilder
	analytics Analytics
}

func New(sched *scheduler.Scheduler, refresh, slaCheck scheduler.Job, engine Rebuilder, analytics Analytics, metrics *monitoring.Metrics) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		sched:     sched,
		refresh:   refresh,
		slaCheck:  slaCheck,
		engine:    engine,
		analytics: analytics,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	if metrics != nil {
		s.router.Use(metrics.Middleware())
		s.router.Get("/metrics", metrics.Handler().ServeHTTP)
	}

	s.router.Get("/health", s.handleHealth)
	s.router.Post("/scheduler/refresh-matches", s.handleRefreshAll)
	s.router.Post("/scheduler/refresh-matches/{projectID}", s.handleRefreshProject)
	s.router.Post("/scheduler/monitor-sla", s.handleMonitorSLA)
	s.router.Get("/analytics/top-vendors", s.handleTopVendors)

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the HTTP server until ctx is cancelled, then
// drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	zap.L().Info("http server listening", zap.Int("port", port))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type runResponse struct {
	Job       string `json:"job"`
	Outcome   string `json:"outcome"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	s.runJob(w, r, s.refresh)
}

func (s *Server) handleMonitorSLA(w http.ResponseWriter, r *http.Request) {
	s.runJob(w, r, s.slaCheck)
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request, job scheduler.Job) {
	report := s.sched.Execute(r.Context(), job)

	resp := runResponse{
		Job:       job.Name(),
		Outcome:   string(report.Outcome),
		Total:     report.Total,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
	}
	status := http.StatusOK
	if report.Outcome == scheduler.OutcomeFailed {
		status = http.StatusInternalServerError
		if report.Err != nil {
			resp.Error = report.Err.Error()
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleRefreshProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	matches, err := s.engine.Rebuild(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		zap.L().Error("manual project refresh failed",
			zap.Int64("project_id", projectID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"project_id": projectID,
		"matches":    matches,
	})
}

func (s *Server) handleTopVendors(w http.ResponseWriter, r *http.Request) {
	result, err := s.analytics.TopVendorsWithResearch(r.Context())
	if err != nil {
		zap.L().Error("top vendors analytics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analytics query failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
