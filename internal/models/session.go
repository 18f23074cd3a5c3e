package models

import (
	"time"
)

// UserSession binds an employee to an opaque bearer token
type UserSession struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	EmployeeID     uint       `gorm:"not null;index:idx_user_sessions_employee_active" json:"employee_id"`
	Token          string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	IssuedAt       time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt      time.Time  `gorm:"not null" json:"expires_at"`
	LastActivityAt time.Time  `gorm:"not null" json:"last_activity_at"`
	IsActive       bool       `gorm:"not null;index:idx_user_sessions_employee_active" json:"is_active"`
	RevokedAt      *time.Time `json:"revoked_at"`
	IPAddress      string     `gorm:"size:45" json:"ip_address"`
	UserAgent      string     `gorm:"size:255" json:"user_agent"`
}

// TableName specifies the table name for UserSession
func (UserSession) TableName() string {
	return "user_sessions"
}

// IsExpired returns true once now has reached the expiry
func (s *UserSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsValid returns true for an active, unexpired session
func (s *UserSession) IsValid(now time.Time) bool {
	return s.IsActive && !s.IsExpired(now)
}
