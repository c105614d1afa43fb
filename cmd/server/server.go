package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/assessment"
	"github.com/p-n-ai/lightup/internal/course"
	"github.com/p-n-ai/lightup/internal/report"
	"github.com/p-n-ai/lightup/internal/stats"
	"github.com/p-n-ai/lightup/internal/studyplan"
)

const readyTimeout = 2 * time.Second

// services are the read-only views the server exposes.
type services struct {
	courses     *course.Service
	stats       *stats.Service
	assessments *assessment.Service
	plans       *studyplan.Service
	reports     *report.Exporter
	// checks are pinged by /readyz, keyed by dependency name.
	checks map[string]func(context.Context) error
}

// newMux creates the HTTP router with health and reporting endpoints.
func newMux(s services) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /v1/courses", s.handleCourses)
	mux.HandleFunc("GET /v1/courses/{id}/roadmap", s.handleRoadmap)
	mux.HandleFunc("GET /v1/enrollments/{id}", s.handleEnrollment)
	mux.HandleFunc("GET /v1/enrollments/{id}/progress", s.handleProgress)
	mux.HandleFunc("GET /v1/enrollments/{id}/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /v1/enrollments/{id}/study-logs", s.handleStudyLogs)
	mux.HandleFunc("GET /v1/enrollments/{id}/estimate", s.handleEstimate)
	mux.HandleFunc("GET /v1/enrollments/{id}/report.xlsx", s.handleReport)
	mux.HandleFunc("GET /v1/assessments/{id}", s.handleAssessment)
	mux.HandleFunc("GET /v1/study-plans/{id}", s.handlePlan)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s services) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

func (s services) handleCourses(w http.ResponseWriter, r *http.Request) {
	v, err := s.courses.Presets(r.Context())
	respond(w, r, v, err)
}

func (s services) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	v, err := s.courses.Roadmap(r.Context(), r.PathValue("id"))
	respond(w, r, v, err)
}

func (s services) handleEnrollment(w http.ResponseWriter, r *http.Request) {
	v, err := s.courses.Enrollment(r.Context(), r.PathValue("id"))
	respond(w, r, v, err)
}

func (s services) handleProgress(w http.ResponseWriter, r *http.Request) {
	v, err := s.courses.Progress(r.Context(), r.PathValue("id"))
	respond(w, r, v, err)
}

func (s services) handleDashboard(w http.ResponseWriter, r *http.Request) {
	v, err := s.stats.Dashboard(r.Context(), r.PathValue("id"))
	respond(w, r, v, err)
}

func (s services) handleStudyLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var from, to time.Time
	var err error
	if v := q.Get("from"); v != "" {
		if from, err = time.Parse(time.DateOnly, v); err != nil {
			writeError(w, r, apperr.Invalid("from %q is not YYYY-MM-DD", v))
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = time.Parse(time.DateOnly, v); err != nil {
			writeError(w, r, apperr.Invalid("to %q is not YYYY-MM-DD", v))
			return
		}
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			writeError(w, r, apperr.Invalid("limit %q is not a number", v))
			return
		}
	}
	v, err := s.stats.StudyLogs(r.Context(), r.PathValue("id"), from, to, limit)
	respond(w, r, v, err)
}

func (s services) handleEstimate(w http.ResponseWriter, r *http.Request) {
	hours := 2.0
	if v := r.URL.Query().Get("daily_hours"); v != "" {
		var err error
		if hours, err = strconv.ParseFloat(v, 64); err != nil {
			writeError(w, r, apperr.Invalid("daily_hours %q is not a number", v))
			return
		}
	}
	v, err := s.plans.Estimate(r.Context(), r.PathValue("id"), hours)
	respond(w, r, v, err)
}

func (s services) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var buf bytes.Buffer
	if err := s.reports.Export(r.Context(), id, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="progress-`+id+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s services) handleAssessment(w http.ResponseWriter, r *http.Request) {
	v, err := s.assessments.Get(r.Context(), r.PathValue("id"))
	respond(w, r, v, err)
}

func (s services) handlePlan(w http.ResponseWriter, r *http.Request) {
	v, err := s.plans.Get(r.Context(), r.PathValue("id"))
	respond(w, r, v, err)
}

// respond writes v as JSON, or the error when err is set.
func respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindInvalidRequest:
		status = http.StatusBadRequest
	case apperr.KindExternalService:
		status = http.StatusBadGateway
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": kind.String(), "message": msg})
}
