package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/trendpilot/trendpilot/internal/models"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker func(ctx context.Context) error

// AuditReader lists recorded cycle outcomes.
type AuditReader interface {
	List(ctx context.Context, limit int, userID string, status models.AuditStatus) ([]models.AuditEntry, error)
}

// PostReader lists a user's published posts.
type PostReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.PublishedPost, error)
}

// NewMux assembles the operational routes.
func NewMux(health HealthChecker, metricsHandler http.Handler, audit AuditReader, posts PostReader, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := health(r.Context()); err != nil {
			logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("GET /api/audit", func(w http.ResponseWriter, r *http.Request) {
		entries, err := audit.List(r.Context(),
			queryInt(r, "limit"),
			r.URL.Query().Get("user_id"),
			models.AuditStatus(r.URL.Query().Get("status")),
		)
		if err != nil {
			logger.Error("audit list failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list audit entries"})
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	mux.HandleFunc("GET /api/posts", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
			return
		}
		list, err := posts.ListByUser(r.Context(), userID, queryInt(r, "limit"))
		if err != nil {
			logger.Error("post list failed", "user_id", userID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list posts"})
			return
		}
		if list == nil {
			list = []models.PublishedPost{}
		}
		writeJSON(w, http.StatusOK, list)
	})

	return mux
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
