package models

import (
	"strings"
	"time"
)

// Employee is an actor of the system: anyone who can log in, own time entries or manage others.
type Employee struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash *string   `gorm:"column:password_hash;size:255" json:"-"`
	FirstName    string    `gorm:"size:100" json:"first_name"`
	LastName     string    `gorm:"size:100" json:"last_name"`
	DisplayName  string    `gorm:"size:100;not null" json:"display_name"`
	Email        string    `gorm:"size:255" json:"email"`
	Role         string    `gorm:"size:20;not null" json:"role"`
	ManagerID    *uint     `gorm:"index" json:"manager_id"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	CreatedBy    *uint     `json:"created_by"`
}

// TableName specifies the table name for Employee
func (Employee) TableName() string {
	return "employees"
}

// AuditRecordID identifies the employee row in the audit ledger
func (e *Employee) AuditRecordID() uint {
	return e.ID
}

// Role constants
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// Roles lists every valid role, lowest capability first
var Roles = []string{RoleEmployee, RoleManager, RoleAdmin}

// IsValidRole reports whether role is one of Roles
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// NormalizeUsername trims and lower-cases a login name
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// HasPassword returns true if a password hash has been set
func (e *Employee) HasPassword() bool {
	return e.PasswordHash != nil && *e.PasswordHash != ""
}

// IsAdmin returns true if employee has admin role
func (e *Employee) IsAdmin() bool {
	return e.Role == RoleAdmin
}

// IsManager returns true for managers and admins
func (e *Employee) IsManager() bool {
	return e.Role == RoleManager || e.Role == RoleAdmin
}

// FullName prefers the split name, falling back to the display name
func (e *Employee) FullName() string {
	name := strings.TrimSpace(e.FirstName + " " + e.LastName)
	if name == "" {
		return e.DisplayName
	}
	return name
}

// EmployeeResponse is the JSON response format
type EmployeeResponse struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	ManagerID   *uint     `json:"manager_id"`
	IsActive    bool      `json:"is_active"`
	HasPassword bool      `json:"has_password"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToResponse converts Employee to EmployeeResponse
func (e *Employee) ToResponse() EmployeeResponse {
	return EmployeeResponse{
		ID:          e.ID,
		Username:    e.Username,
		FirstName:   e.FirstName,
		LastName:    e.LastName,
		DisplayName: e.DisplayName,
		Email:       e.Email,
		Role:        e.Role,
		ManagerID:   e.ManagerID,
		IsActive:    e.IsActive,
		HasPassword: e.HasPassword(),
		CreatedAt:   e.CreatedAt,
	}
}
