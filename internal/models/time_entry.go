package models

import (
	"math"
	"time"
)

// TimeEntry is one block of hours an employee worked (or took as leave) under a work code
type TimeEntry struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	EmployeeID uint       `gorm:"not null;index" json:"employee_id"`
	WorkCodeID uint       `gorm:"not null;index" json:"work_code_id"`
	EntryDate  time.Time  `gorm:"type:date;not null;index" json:"entry_date"`
	StartTime  time.Time  `gorm:"not null" json:"start_time"`
	EndTime    time.Time  `gorm:"not null" json:"end_time"`
	Hours      float64    `gorm:"type:numeric(4,2);precision:4;scale:2;not null" json:"hours"`
	Notes      string     `gorm:"size:500" json:"notes"`
	IsDeleted  bool       `gorm:"not null;index" json:"is_deleted"`
	CreatedAt  time.Time  `json:"created_at"`
	CreatedBy  uint       `gorm:"not null" json:"created_by"`
	ModifiedAt *time.Time `json:"modified_at"`
	ModifiedBy *uint      `json:"modified_by"`
	DeletedAt  *time.Time `json:"deleted_at"`
	DeletedBy  *uint      `json:"deleted_by"`

	// Associations
	WorkCode *WorkCode `gorm:"foreignKey:WorkCodeID" json:"work_code,omitempty"`
}

// TableName specifies the table name for TimeEntry
func (TimeEntry) TableName() string {
	return "time_entries"
}

// AuditRecordID identifies the entry row in the audit ledger
func (t *TimeEntry) AuditRecordID() uint {
	return t.ID
}

// Lifecycle states of a time entry
const (
	EntryStateActive  = "active"
	EntryStateDeleted = "deleted"
)

// State returns the lifecycle state derived from the soft-delete flag
func (t *TimeEntry) State() string {
	if t.IsDeleted {
		return EntryStateDeleted
	}
	return EntryStateActive
}

// Duration bounds for a single entry
const (
	MinEntryDuration = 15 * time.Minute
	MaxEntryDuration = 24 * time.Hour
)

// ComputeHours returns the duration between start and end in hours, rounded to the column scale
func ComputeHours(start, end time.Time) float64 {
	return math.Round(end.Sub(start).Hours()*100) / 100
}

// EntryDateOf returns the calendar date of t as a midnight UTC value
func EntryDateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SetTimes assigns start/end and recomputes the derived date and hours. The date is
// taken in start's own location; the times themselves are stored in UTC.
func (t *TimeEntry) SetTimes(start, end time.Time) {
	t.StartTime = start.UTC()
	t.EndTime = end.UTC()
	t.EntryDate = EntryDateOf(start)
	t.Hours = ComputeHours(start, end)
}

// Overlaps returns true if the [start, end) windows intersect
func (t *TimeEntry) Overlaps(start, end time.Time) bool {
	return t.StartTime.Before(end) && start.Before(t.EndTime)
}

// MarkModified stamps the modification fields
func (t *TimeEntry) MarkModified(by uint, at time.Time) {
	t.ModifiedAt = &at
	t.ModifiedBy = &by
}

// SoftDelete hides the entry without removing it
func (t *TimeEntry) SoftDelete(by uint, at time.Time) {
	t.IsDeleted = true
	t.DeletedAt = &at
	t.DeletedBy = &by
}

// Restore clears the delete-tracking fields
func (t *TimeEntry) Restore() {
	t.IsDeleted = false
	t.DeletedAt = nil
	t.DeletedBy = nil
}
