// Package ops serves the operational HTTP endpoints of the planner process.
package ops

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	appLog "duty-planner/internal/log"
	"duty-planner/internal/metrics"
)

// HealthChecker reports whether the database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// FeedRenderer renders a user's calendar feed.
type FeedRenderer interface {
	Render(ctx context.Context, userID uint) ([]byte, error)
}

// NewRouter wires health, metrics and calendar feed routes.
func NewRouter(health HealthChecker, feeds FeedRenderer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := health.HealthCheck(ctx); err != nil {
			appLog.Error("readiness check failed", err)
			http.Error(w, "unready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())

	r.Get("/feeds/{feed}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "feed")
		raw, ok := strings.CutSuffix(name, ".ics")
		if !ok {
			http.NotFound(w, r)
			return
		}
		userID, err := strconv.ParseUint(raw, 10, 0)
		if err != nil || userID == 0 {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}

		body, err := feeds.Render(r.Context(), uint(userID))
		if err != nil {
			appLog.Error("feed render failed", err, "user_id", userID)
			http.Error(w, "feed unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})

	return r
}
