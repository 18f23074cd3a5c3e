package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/parktime-api/internal/middleware"
	"github.com/sjperalta/parktime-api/internal/services"
	"github.com/sjperalta/parktime-api/pkg/logger"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// @Summary Health Check
// @Description Checks if the API is running
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "parktime-api",
		"version": "1.0.0",
	})
}

type AuthHandler struct {
	authService *services.AuthService
	cookies     *middleware.CookieSessions
}

func NewAuthHandler(authService *services.AuthService, cookies *middleware.CookieSessions) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// @Summary Login
// @Description Authenticates an employee and opens a session
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login Credentials"
// @Success 200 {object} services.LoginResult
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, services.ClientInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if h.cookies != nil {
		if err := h.cookies.Save(c, result.Token); err != nil {
			logger.FromContext(c.Request.Context()).Warn("Could not set session cookie", "error", err)
		}
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Logout
// @Description Ends the current session
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	ended, err := h.authService.Logout(c.Request.Context(), middleware.GetToken(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if h.cookies != nil {
		_ = h.cookies.Clear(c)
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out", "ended": ended})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// @Summary Change Password
// @Description Changes the caller's password and ends all of their sessions
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Passwords"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /auth/password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	employeeID := middleware.GetEmployeeID(c)
	if err := h.authService.ChangePassword(ctx, employeeID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	if _, err := h.authService.LogoutAll(ctx, employeeID); err != nil {
		respondError(c, err)
		return
	}
	if h.cookies != nil {
		_ = h.cookies.Clear(c)
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed, please sign in again"})
}

// @Summary Current Employee
// @Description Returns the authenticated employee and their active sessions
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	employee := middleware.GetEmployee(c)
	sessions, err := h.authService.ActiveSessions(c.Request.Context(), employee.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"employee":        employee.ToResponse(),
		"active_sessions": len(sessions),
	})
}
