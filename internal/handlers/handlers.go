package handlers

import (
	"time"

	"github.com/sjperalta/parktime-api/internal/middleware"
	"github.com/sjperalta/parktime-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	Entry        *TimeEntryHandler
	Team         *TeamHandler
	Employee     *EmployeeHandler
	WorkCode     *WorkCodeHandler
	BusinessRule *BusinessRuleHandler
	Audit        *AuditHandler
}

// NewHandlers creates all handler instances. now may be nil for the system clock.
func NewHandlers(svcs *services.Services, cookies *middleware.CookieSessions, now func() time.Time) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Auth:         NewAuthHandler(svcs.Auth, cookies),
		Entry:        NewTimeEntryHandler(svcs.TimeEntry, now),
		Team:         NewTeamHandler(svcs.Team, now),
		Employee:     NewEmployeeHandler(svcs.Employee),
		WorkCode:     NewWorkCodeHandler(svcs.WorkCode),
		BusinessRule: NewBusinessRuleHandler(svcs.BusinessRule),
		Audit:        NewAuditHandler(svcs.Audit, svcs.Export, now),
	}
}
