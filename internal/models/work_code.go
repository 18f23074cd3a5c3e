package models

import (
	"time"
)

// WorkCode classifies hours (regular work, paid leave, unpaid leave)
type WorkCode struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Description string    `gorm:"size:100;not null" json:"description"`
	CodeType    string    `gorm:"size:20;not null" json:"code_type"`
	SortOrder   int       `gorm:"not null" json:"sort_order"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   *uint     `json:"created_by"`
}

// TableName specifies the table name for WorkCode
func (WorkCode) TableName() string {
	return "work_codes"
}

// AuditRecordID identifies the work code row in the audit ledger
func (w *WorkCode) AuditRecordID() uint {
	return w.ID
}

// Work code type constants
const (
	CodeTypeWork        = "work"
	CodeTypeLeavePaid   = "leave_paid"
	CodeTypeLeaveUnpaid = "leave_unpaid"
)

// IsValidCodeType reports whether t is a known work code type
func IsValidCodeType(t string) bool {
	switch t {
	case CodeTypeWork, CodeTypeLeavePaid, CodeTypeLeaveUnpaid:
		return true
	}
	return false
}

// IsLeave returns true for paid and unpaid leave codes
func (w *WorkCode) IsLeave() bool {
	return w.CodeType == CodeTypeLeavePaid || w.CodeType == CodeTypeLeaveUnpaid
}
