package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sjperalta/parktime-api/internal/audit"
	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/sjperalta/parktime-api/internal/policy"
	"github.com/sjperalta/parktime-api/internal/repository"
	"github.com/sjperalta/parktime-api/pkg/logger"
	"gorm.io/gorm"
)

// maxManagerDepth bounds the walk up the reporting chain when assigning a manager
const maxManagerDepth = 64

// BootstrapAdminUsername is the seeded administrator account
const BootstrapAdminUsername = "admin"

// EmployeeService handles employee administration
type EmployeeService struct {
	repos *repository.Repositories
	audit *AuditService
	auth  *AuthService
}

// NewEmployeeService creates a new employee service
func NewEmployeeService(repos *repository.Repositories, auditSvc *AuditService, authSvc *AuthService) *EmployeeService {
	return &EmployeeService{repos: repos, audit: auditSvc, auth: authSvc}
}

// EmployeeInput holds the fields of a new employee
type EmployeeInput struct {
	Username    string `json:"username" binding:"required,max=50"`
	FirstName   string `json:"first_name" binding:"max=100"`
	LastName    string `json:"last_name" binding:"max=100"`
	DisplayName string `json:"display_name" binding:"max=100"`
	Email       string `json:"email" binding:"omitempty,email,max=255"`
	Role        string `json:"role"`
	ManagerID   *uint  `json:"manager_id"`
	Password    string `json:"password"`
}

// EmployeeChanges holds a partial edit; nil fields are left alone. ClearManager
// removes the manager and wins over ManagerID.
type EmployeeChanges struct {
	FirstName    *string `json:"first_name" binding:"omitempty,max=100"`
	LastName     *string `json:"last_name" binding:"omitempty,max=100"`
	DisplayName  *string `json:"display_name" binding:"omitempty,max=100"`
	Email        *string `json:"email" binding:"omitempty,max=255"`
	Role         *string `json:"role"`
	ManagerID    *uint   `json:"manager_id"`
	ClearManager bool    `json:"clear_manager"`
	IsActive     *bool   `json:"is_active"`
}

func requireAdmin(actor *models.Employee) error {
	if actor == nil || !actor.IsAdmin() {
		return ErrForbidden("administrator access required")
	}
	return nil
}

// Create adds an employee. A password is optional; without one the account cannot
// log in until an administrator sets it.
func (s *EmployeeService) Create(ctx context.Context, actor *models.Employee, in EmployeeInput, meta audit.Meta) (*models.Employee, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	username := models.NormalizeUsername(in.Username)
	if username == "" {
		return nil, ErrValidation("username is required")
	}
	role := in.Role
	if role == "" {
		role = models.RoleEmployee
	}
	if !models.IsValidRole(role) {
		return nil, ErrValidation("invalid role %q", in.Role)
	}

	employee := &models.Employee{
		Username:    username,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Role:        role,
		IsActive:    true,
		CreatedBy:   &actor.ID,
	}
	if employee.DisplayName == "" {
		employee.DisplayName = employee.FullName()
	}
	if employee.DisplayName == "" {
		employee.DisplayName = username
	}
	if in.Password != "" {
		if err := ValidatePassword(in.Password); err != nil {
			return nil, err
		}
		hash, err := s.auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		employee.PasswordHash = &hash
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if in.ManagerID != nil {
			if err := s.setManager(ctx, tx, employee, in.ManagerID); err != nil {
				return err
			}
		}

		now := s.audit.Stamp()
		employee.CreatedAt = now
		if err := tx.Employee.Create(ctx, employee); err != nil {
			return duplicateOr(err, "username %q is already taken", username)
		}
		_, err := s.audit.WithRepository(tx.Audit).LogInsert(ctx, employee, stampMeta(meta, actor, now))
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Employee created", "employee_id", employee.ID, "username", employee.Username, "role", employee.Role, "actor_id", actor.ID)
	return employee, nil
}

// Update applies changes to an employee. Administrators cannot demote or deactivate
// themselves. Deactivation revokes every session of the employee.
func (s *EmployeeService) Update(ctx context.Context, actor *models.Employee, id uint, changes EmployeeChanges, meta audit.Meta) (*models.Employee, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if id == actor.ID {
		if changes.Role != nil && *changes.Role != models.RoleAdmin {
			return nil, ErrValidation("you cannot remove your own administrator role")
		}
		if changes.IsActive != nil && !*changes.IsActive {
			return nil, ErrValidation("you cannot deactivate your own account")
		}
	}

	var employee *models.Employee
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		employee, err = tx.Employee.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "employee", id)
		}
		before, err := audit.Capture(employee)
		if err != nil {
			return err
		}
		wasActive := employee.IsActive

		if changes.FirstName != nil {
			employee.FirstName = strings.TrimSpace(*changes.FirstName)
		}
		if changes.LastName != nil {
			employee.LastName = strings.TrimSpace(*changes.LastName)
		}
		if changes.DisplayName != nil {
			name := strings.TrimSpace(*changes.DisplayName)
			if name == "" {
				return ErrValidation("display name cannot be empty")
			}
			employee.DisplayName = name
		}
		if changes.Email != nil {
			employee.Email = strings.ToLower(strings.TrimSpace(*changes.Email))
		}
		if changes.Role != nil {
			if !models.IsValidRole(*changes.Role) {
				return ErrValidation("invalid role %q", *changes.Role)
			}
			employee.Role = *changes.Role
		}
		switch {
		case changes.ClearManager:
			employee.ManagerID = nil
		case changes.ManagerID != nil:
			if err := s.setManager(ctx, tx, employee, changes.ManagerID); err != nil {
				return err
			}
		}
		if changes.IsActive != nil {
			employee.IsActive = *changes.IsActive
		}

		after, err := audit.Capture(employee)
		if err != nil {
			return err
		}
		if audit.Equal(before, after) {
			return nil
		}
		if err := tx.Employee.Update(ctx, employee); err != nil {
			return err
		}
		if wasActive && !employee.IsActive {
			if _, err := s.auth.WithRepositories(tx).LogoutAll(ctx, employee.ID); err != nil {
				return err
			}
		}
		_, err = s.audit.WithRepository(tx.Audit).LogUpdate(ctx, before, employee, stampMeta(meta, actor, s.audit.Stamp()))
		return err
	})
	if err != nil {
		return nil, err
	}
	return employee, nil
}

// Deactivate disables an employee's account and revokes their sessions
func (s *EmployeeService) Deactivate(ctx context.Context, actor *models.Employee, id uint, meta audit.Meta) (*models.Employee, error) {
	inactive := false
	employee, err := s.Update(ctx, actor, id, EmployeeChanges{IsActive: &inactive}, meta)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Employee deactivated", "employee_id", id, "actor_id", actor.ID)
	return employee, nil
}

// ResetPassword sets a new password for an employee and ends their sessions. The
// ledger records nothing because the password hash is never audited.
func (s *EmployeeService) ResetPassword(ctx context.Context, actor *models.Employee, id uint, newPassword string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		auth := s.auth.WithRepositories(tx)
		if err := auth.SetPassword(ctx, id, newPassword); err != nil {
			return err
		}
		_, err := auth.LogoutAll(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Password reset", "employee_id", id, "actor_id", actor.ID)
	return nil
}

// List returns a page of employees
func (s *EmployeeService) List(ctx context.Context, actor *models.Employee, query *repository.ListQuery) ([]models.Employee, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	return s.repos.Employee.List(ctx, query)
}

// Get returns an employee the actor may see
func (s *EmployeeService) Get(ctx context.Context, actor *models.Employee, id uint) (*models.Employee, error) {
	employee, err := s.repos.Employee.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "employee", id)
	}
	if !policy.CanActOn(actor, employee) {
		return nil, ErrForbidden("not permitted to view employee %d", id)
	}
	return employee, nil
}

// DirectReports returns the active direct reports of managerID. Managers may only
// list their own reports.
func (s *EmployeeService) DirectReports(ctx context.Context, actor *models.Employee, managerID uint) ([]models.Employee, error) {
	if actor == nil || !policy.IsAtLeast(actor.Role, models.RoleManager) {
		return nil, ErrForbidden("manager access required")
	}
	if !actor.IsAdmin() && actor.ID != managerID {
		return nil, ErrForbidden("not permitted to view reports of employee %d", managerID)
	}
	return s.repos.Employee.DirectReports(ctx, managerID, true)
}

// BootstrapAdmin gives the seeded administrator a password when it has none yet.
// It does nothing when password is empty or the account already has one.
func (s *EmployeeService) BootstrapAdmin(ctx context.Context, password string) error {
	if password == "" {
		return nil
	}
	admin, err := s.repos.Employee.FindByUsername(ctx, BootstrapAdminUsername)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.FromContext(ctx).Warn("Bootstrap admin account not found", "username", BootstrapAdminUsername)
			return nil
		}
		return err
	}
	if admin.HasPassword() {
		return nil
	}
	if err := s.auth.SetPassword(ctx, admin.ID, password); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Bootstrap admin password set", "employee_id", admin.ID)
	return nil
}

// setManager is the only path that assigns a manager. The manager must exist, be
// active and hold at least the manager role, and the assignment must not close a
// reporting cycle.
func (s *EmployeeService) setManager(ctx context.Context, tx *repository.Repositories, employee *models.Employee, managerID *uint) error {
	if managerID == nil {
		employee.ManagerID = nil
		return nil
	}
	if employee.ManagerID != nil && *employee.ManagerID == *managerID {
		return nil
	}

	manager, err := tx.Employee.FindByID(ctx, *managerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrValidation("manager %d does not exist", *managerID)
		}
		return err
	}
	if !manager.IsActive {
		return ErrValidation("manager %s is not active", manager.Username)
	}
	if !policy.IsAtLeast(manager.Role, models.RoleManager) {
		return ErrValidation("%s does not have the manager role", manager.Username)
	}

	if employee.ID != 0 {
		lookup := func(id uint) (*uint, error) {
			return tx.Employee.ManagerOf(ctx, id)
		}
		if err := policy.CheckManagerAssignment(employee.ID, manager.ID, lookup, maxManagerDepth); err != nil {
			if errors.Is(err, policy.ErrManagerCycle) {
				return ErrValidation("%s cannot report to %s: %v", employee.Username, manager.Username, err)
			}
			return err
		}
	}

	id := manager.ID
	employee.ManagerID = &id
	return nil
}

// stampMeta pins a ledger record to the actor and to the mutation's own timestamp
func stampMeta(meta audit.Meta, actor *models.Employee, at time.Time) audit.Meta {
	meta.ActorID = actor.ID
	meta.At = at
	return meta
}
