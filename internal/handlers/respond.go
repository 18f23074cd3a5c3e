package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/sjperalta/parktime-api/internal/audit"
	"github.com/sjperalta/parktime-api/internal/middleware"
	"github.com/sjperalta/parktime-api/internal/services"
	"github.com/sjperalta/parktime-api/pkg/logger"
)

// respondError maps service errors to HTTP statuses. Anything unrecognised is a
// 500 and goes to Sentry.
func respondError(c *gin.Context, err error) {
	var (
		authnErr    *services.AuthenticationError
		authzErr    *services.AuthorizationError
		validErr    *services.ValidationError
		notFoundErr *services.NotFoundError
	)

	switch {
	case errors.As(err, &authnErr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": authnErr.Message})
	case errors.As(err, &authzErr):
		c.JSON(http.StatusForbidden, gin.H{"error": authzErr.Message})
	case errors.As(err, &validErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validErr.Message})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	default:
		_ = c.Error(err)
		logger.FromContext(c.Request.Context()).Error("Request failed", "error", err, "path", c.FullPath())
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// badRequest answers malformed input that never reached a service
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// auditMeta builds the ledger metadata of the current request
func auditMeta(c *gin.Context) audit.Meta {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	label := c.Request.Method + " " + route
	if id := logger.RequestID(c.Request.Context()); id != "" {
		label += " req=" + id
	}
	return audit.Meta{
		ActorID:   middleware.GetEmployeeID(c),
		IPAddress: c.ClientIP(),
		Context:   label,
	}
}

// paramID parses a positive numeric path parameter
func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(id), nil
}

// queryDate parses a YYYY-MM-DD query value, falling back to def when absent
func queryDate(c *gin.Context, name string, def time.Time) (time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	d, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date (YYYY-MM-DD)", name)
	}
	return d, nil
}

// queryInt parses an integer query value, falling back to def when absent or malformed
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
