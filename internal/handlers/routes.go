package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sjperalta/parktime-api/internal/middleware"
	"github.com/sjperalta/parktime-api/internal/models"
)

// Register mounts the API on router. auth resolves the session of protected
// routes; loginLimit throttles the login endpoint and may be nil.
func (h *Handlers) Register(router *gin.Engine, auth gin.HandlerFunc, loginLimit gin.HandlerFunc) {
	router.GET("/health", h.Health.Index)

	v1 := router.Group("/api/v1")
	{
		// Authentication (public)
		login := []gin.HandlerFunc{h.Auth.Login}
		if loginLimit != nil {
			login = append([]gin.HandlerFunc{loginLimit}, login...)
		}
		v1.POST("/auth/login", login...)

		// Protected routes (requires a valid session)
		protected := v1.Group("")
		protected.Use(auth)
		{
			protected.POST("/auth/logout", h.Auth.Logout)
			protected.POST("/auth/password", h.Auth.ChangePassword)
			protected.GET("/auth/me", h.Auth.Me)

			protected.GET("/work-codes", h.WorkCode.Index)

			// Time entries; ownership is checked per record by the services
			entries := protected.Group("/entries")
			{
				entries.GET("", h.Entry.Index)
				entries.POST("", h.Entry.Create)
				entries.GET("/week", h.Entry.Week)
				entries.GET("/:entry_id", h.Entry.Show)
				entries.PUT("/:entry_id", h.Entry.Update)
				entries.DELETE("/:entry_id", h.Entry.Delete)
				entries.POST("/:entry_id/restore", h.Entry.Restore)
			}

			// Managers and admins
			team := protected.Group("/team")
			team.Use(middleware.RequireRole(models.RoleManager))
			{
				team.GET("", h.Team.Index)
				team.GET("/reports", h.Employee.DirectReports)
			}

			// Admin-only routes
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/employees", h.Employee.Index)
				admin.POST("/employees", h.Employee.Create)
				admin.GET("/employees/:employee_id", h.Employee.Show)
				admin.PUT("/employees/:employee_id", h.Employee.Update)
				admin.POST("/employees/:employee_id/password", h.Employee.ResetPassword)
				admin.POST("/employees/:employee_id/deactivate", h.Employee.Deactivate)

				admin.GET("/work-codes", h.WorkCode.Index)
				admin.POST("/work-codes", h.WorkCode.Create)
				admin.PUT("/work-codes/:work_code_id", h.WorkCode.Update)

				admin.GET("/rules", h.BusinessRule.Index)
				admin.PUT("/rules/:rule_key", h.BusinessRule.Update)

				// Static routes first so "export" and "actor" are not matched as :table
				admin.GET("/audit", h.Audit.Index)
				admin.GET("/audit/export", h.Audit.Export)
				admin.GET("/audit/actor/:employee_id", h.Audit.ByActor)
				admin.GET("/audit/:table/:record_id", h.Audit.History)
			}
		}
	}
}
