package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tenderscope/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// SessionStats reports browser session usage.
type SessionStats interface {
	Active() int
	MaxSessions() int
}

// Pinger checks a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health returns a handler for GET /api/v1/health.
//
// Reports session usage and degrades status when the database is unreachable.
func Health(sessions SessionStats, db Pinger, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			err := db.Ping(ctx)
			cancel()
			if err != nil {
				slog.Warn("health: database ping failed", "error", err)
				status = "degraded"
			}
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:         status,
			Uptime:         time.Since(startTime).Round(time.Second).String(),
			ActiveSessions: sessions.Active(),
			MaxSessions:    sessions.MaxSessions(),
			Version:        Version,
		})
	}
}
