package handler

import (
	"net/http"
	"time"

	"github.com/sandeepmv/binsight/internal/api/response"
	"github.com/sandeepmv/binsight/internal/cache"
	"github.com/sandeepmv/binsight/internal/store"
)

const statsWindow = 24 * time.Hour

// NewHealthHandler returns the handler for GET /api/v1/health. It checks
// database and cache connectivity and includes job throughput for the last
// 24 hours when the database is reachable.
func NewHealthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		body := map[string]any{
			"status":   "ok",
			"services": checks,
		}
		if stats, err := s.JobStats(r.Context(), time.Now().Add(-statsWindow)); err == nil {
			body["jobs_24h"] = stats
		}

		response.JSON(w, body)
	}
}
