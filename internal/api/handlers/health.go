package handlers

import (
	"net/http"

	"github.com/bincms/bincms/internal/migration"
	"github.com/gin-gonic/gin"
)

// HealthResponse reports process liveness and the schema-migration outcome so
// operators can tell a completed migration from one running in degraded,
// legacy-compatible mode.
type HealthResponse struct {
	Status    string           `json:"status"`
	Migration migration.Status `json:"migration"`
}

// HealthCheck godoc
// @Summary Health and migration readiness
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func HealthCheck(engine *migration.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		if engine.Status() == migration.StatusFailed {
			status = "degraded"
		}
		c.JSON(http.StatusOK, HealthResponse{
			Status:    status,
			Migration: engine.Status(),
		})
	}
}
