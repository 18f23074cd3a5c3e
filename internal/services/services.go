package services

import (
	"time"

	"github.com/sjperalta/parktime-api/internal/config"
	"github.com/sjperalta/parktime-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	Auth         *AuthService
	Audit        *AuditService
	Employee     *EmployeeService
	TimeEntry    *TimeEntryService
	WorkCode     *WorkCodeService
	BusinessRule *BusinessRuleService
	Team         *TeamService
	Export       *AuditExportService
}

// NewServices creates all service instances. now may be nil for the system clock.
func NewServices(repos *repository.Repositories, cfg *config.Config, now func() time.Time) *Services {
	if now == nil {
		now = systemNow
	}

	auditSvc := NewAuditService(repos.Audit, now)
	if cfg != nil {
		auditSvc.SetDefaultLimit(cfg.AuditDefaultLimit)
	}
	authSvc := NewAuthService(repos.Employee, repos.Session, cfg, now)

	return &Services{
		Auth:         authSvc,
		Audit:        auditSvc,
		Employee:     NewEmployeeService(repos, auditSvc, authSvc),
		TimeEntry:    NewTimeEntryService(repos, auditSvc),
		WorkCode:     NewWorkCodeService(repos, auditSvc),
		BusinessRule: NewBusinessRuleService(repos, auditSvc),
		Team:         NewTeamService(repos),
		Export:       NewAuditExportService(auditSvc, now),
	}
}
