package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/sjperalta/parktime-api/internal/policy"
	"github.com/sjperalta/parktime-api/pkg/logger"
)

// Context keys set by Auth
const (
	ContextEmployee   = "employee"
	ContextEmployeeID = "employeeID"
	ContextToken      = "sessionToken"
)

// TokenValidator resolves a session token to its employee. A nil employee with a
// nil error means the token is not valid.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*models.Employee, error)
}

// Auth returns a middleware that requires a valid session. The token is taken
// from an "Authorization: Bearer" header, falling back to the session cookie.
func Auth(validator TokenValidator, cookies *CookieSessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" && cookies != nil {
			token = cookies.Token(c.Request)
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		employee, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			logger.FromContext(c.Request.Context()).Error("Session validation failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "internal server error",
			})
			return
		}
		if employee == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "session expired or invalid",
			})
			return
		}

		c.Set(ContextEmployee, employee)
		c.Set(ContextEmployeeID, employee.ID)
		c.Set(ContextToken, token)

		c.Next()
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>"
func BearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetEmployee returns the authenticated employee, or nil
func GetEmployee(c *gin.Context) *models.Employee {
	v, exists := c.Get(ContextEmployee)
	if !exists {
		return nil
	}
	employee, _ := v.(*models.Employee)
	return employee
}

// GetEmployeeID returns the authenticated employee's id, or 0
func GetEmployeeID(c *gin.Context) uint {
	v, exists := c.Get(ContextEmployeeID)
	if !exists {
		return 0
	}
	return v.(uint)
}

// GetToken returns the session token the request authenticated with
func GetToken(c *gin.Context) string {
	return c.GetString(ContextToken)
}

// RequireRole returns a middleware that requires at least the given role
func RequireRole(threshold string) gin.HandlerFunc {
	return func(c *gin.Context) {
		employee := GetEmployee(c)
		if employee == nil || !policy.IsAtLeast(employee.Role, threshold) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "you do not have access to this section",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin returns a middleware that requires the admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}
