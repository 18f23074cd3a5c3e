package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/parktime-api/internal/metrics"
	"github.com/sjperalta/parktime-api/pkg/logger"
)

// RequestLogger logs incoming HTTP requests using slog
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		// Skip logging for health and metrics to avoid noise
		if path == "/health" || path == "/metrics" {
			return
		}

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		if raw != "" {
			path = path + "?" + raw
		}

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", statusCode),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", latency),
			slog.String("user_agent", c.Request.UserAgent()),
		}

		if errorMessage != "" {
			attrs = append(attrs, slog.String("error", errorMessage))
		}

		if employeeID, exists := c.Get(ContextEmployeeID); exists {
			attrs = append(attrs, slog.Any("employee_id", employeeID))
		}

		log := logger.FromContext(c.Request.Context())
		msg := "Incoming request"
		if statusCode >= 500 {
			log.Error(msg, attrs...)
		} else if statusCode >= 400 {
			log.Warn(msg, attrs...)
		} else {
			log.Info(msg, attrs...)
		}
	}
}

// Metrics records request counts and latencies per route template
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := metrics.RequestStarted()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		done(c.Request.Method, route, strconv.Itoa(c.Writer.Status()))
	}
}
