package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"botcraft/internal/httputil"
)

// Pinger is anything the health check can ping, such as a pgx pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a health handler. db may be nil when no database
// is configured.
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// Health returns 200 when the service can serve requests
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("health check: database unreachable", "error", err)
			httputil.RespondError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		body["database"] = "ok"
	}

	httputil.RespondJSON(w, http.StatusOK, body)
}
