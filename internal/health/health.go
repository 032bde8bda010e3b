// Package health reports liveness of the service and its dependencies.
package health

import (
	"context"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"certchain-backend/internal/chain"
)

var startTime = time.Now()

// DepStatus is one dependency's probe outcome.
type DepStatus struct {
	Status string `json:"status"`
	PingMs int64  `json:"pingMs"`
}

// Report is the full health payload.
type Report struct {
	Status        string               `json:"status"`
	UptimeSeconds int64                `json:"uptimeSeconds"`
	GoVersion     string               `json:"goVersion"`
	Dependencies  map[string]DepStatus `json:"dependencies"`
}

// Handlers probes the database, cache and chain gateway. Any may be nil
// and is then reported as disconnected.
type Handlers struct {
	DB      *gorm.DB
	Cache   *redis.Client
	Gateway chain.Gateway
}

// JSON GET /health
func (h *Handlers) JSON(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	deps := map[string]DepStatus{
		"database": h.probeDB(),
		"redis":    h.probeRedis(ctx),
		"chain":    h.probeChain(ctx),
	}

	status := "ok"
	for _, d := range deps {
		if d.Status != "connected" {
			status = "degraded"
			break
		}
	}

	return c.JSON(Report{
		Status:        status,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		GoVersion:     runtime.Version(),
		Dependencies:  deps,
	})
}

func (h *Handlers) probeDB() DepStatus {
	if h.DB == nil {
		return DepStatus{Status: "disconnected"}
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		return DepStatus{Status: "disconnected"}
	}
	start := time.Now()
	if err := sqlDB.Ping(); err != nil {
		return DepStatus{Status: "disconnected"}
	}
	return DepStatus{Status: "connected", PingMs: time.Since(start).Milliseconds()}
}

func (h *Handlers) probeRedis(ctx context.Context) DepStatus {
	if h.Cache == nil {
		return DepStatus{Status: "disconnected"}
	}
	start := time.Now()
	if err := h.Cache.Ping(ctx).Err(); err != nil {
		return DepStatus{Status: "disconnected"}
	}
	return DepStatus{Status: "connected", PingMs: time.Since(start).Milliseconds()}
}

func (h *Handlers) probeChain(ctx context.Context) DepStatus {
	if h.Gateway == nil {
		return DepStatus{Status: "disconnected"}
	}
	start := time.Now()
	if _, err := h.Gateway.Paused(ctx); err != nil {
		return DepStatus{Status: "disconnected"}
	}
	return DepStatus{Status: "connected", PingMs: time.Since(start).Milliseconds()}
}
