package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/api"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/logger"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Queue reports the notification backlog.
type Queue interface {
	QueueLength(ctx context.Context) (int64, error)
}

// Health godoc
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Failure      503 {object} api.HealthResponse
// @Router       /health [get]
func Health(db Pinger, queue Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		resp := api.HealthResponse{Status: "ok", Database: "ok"}
		status := http.StatusOK
		if queue != nil {
			resp.Email = "ok"
			length, err := queue.QueueLength(ctx)
			if err != nil {
				logger.Error("health check: email queue unreachable", "error", err)
				resp.Status = "degraded"
				resp.Email = "unavailable"
				status = http.StatusServiceUnavailable
			}
			resp.EmailQueue = length
		}
		if err := db.PingContext(ctx); err != nil {
			logger.Error("health check: database unreachable", "error", err)
			resp.Status = "degraded"
			resp.Database = "unavailable"
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}

// Metrics godoc
// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
