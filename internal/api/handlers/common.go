package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bincms/bincms/internal/api/middleware"
	"github.com/bincms/bincms/internal/service"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error payload shape for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleServiceError maps service-layer errors to HTTP status codes.
func handleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationErr.Message})
		return
	}
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: conflictErr.Message})
		return
	}
	var policyErr *service.PolicyError
	if errors.As(err, &policyErr) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: policyErr.Message})
		return
	}
	slog.Error("unhandled service error", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}

// actor returns the audit identifier of the authenticated principal.
func actor(c *gin.Context) string {
	if p, ok := middleware.Principal(c); ok {
		return p.LoginID
	}
	return "anonymous"
}
