package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sjperalta/parktime-api/internal/audit"
)

// AuditLog is one immutable change event of an audited record
type AuditLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Table         string    `gorm:"column:table_name;size:50;not null;index:idx_audit_log_record" json:"table_name"`
	RecordID      uint      `gorm:"not null;index:idx_audit_log_record" json:"record_id"`
	Action        string    `gorm:"size:10;not null" json:"action"` // INSERT, UPDATE, DELETE, RESTORE
	ChangedFields *string   `gorm:"type:text" json:"changed_fields"`
	OldValues     *string   `gorm:"type:text" json:"old_values"`
	NewValues     *string   `gorm:"type:text" json:"new_values"`
	PerformedBy   uint      `gorm:"not null;index" json:"performed_by"`
	PerformedAt   time.Time `gorm:"not null;index" json:"performed_at"`
	IPAddress     *string   `gorm:"size:45" json:"ip_address"`
	Context       *string   `gorm:"size:200" json:"context"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_log"
}

// FieldList returns the changed field names of an UPDATE
func (a *AuditLog) FieldList() []string {
	if a.ChangedFields == nil || *a.ChangedFields == "" {
		return nil
	}
	return strings.Split(*a.ChangedFields, ",")
}

// OldSnapshot decodes old_values; nil when absent
func (a *AuditLog) OldSnapshot() (audit.Snapshot, error) {
	return decodeSnapshot(a.OldValues)
}

// NewSnapshot decodes new_values; nil when absent
func (a *AuditLog) NewSnapshot() (audit.Snapshot, error) {
	return decodeSnapshot(a.NewValues)
}

func decodeSnapshot(raw *string) (audit.Snapshot, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var s audit.Snapshot
	if err := json.Unmarshal([]byte(*raw), &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Event converts the row into the form consumed by audit.Replay
func (a *AuditLog) Event() (audit.Event, error) {
	oldValues, err := a.OldSnapshot()
	if err != nil {
		return audit.Event{}, err
	}
	newValues, err := a.NewSnapshot()
	if err != nil {
		return audit.Event{}, err
	}
	return audit.Event{
		Action:        a.Action,
		ChangedFields: a.FieldList(),
		Old:           oldValues,
		New:           newValues,
		PerformedBy:   a.PerformedBy,
		PerformedAt:   a.PerformedAt,
	}, nil
}

// FieldChange pairs the before and after value of one field
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// Changes lists old/new pairs for display. UPDATE reports only changed fields,
// other actions report every field they carry.
func (a *AuditLog) Changes() []FieldChange {
	oldValues, _ := a.OldSnapshot()
	newValues, _ := a.NewSnapshot()

	fields := a.FieldList()
	if len(fields) == 0 {
		switch {
		case newValues != nil:
			fields = newValues.Keys()
		case oldValues != nil:
			fields = oldValues.Keys()
		}
	}

	changes := make([]FieldChange, 0, len(fields))
	for _, f := range fields {
		changes = append(changes, FieldChange{Field: f, Old: oldValues[f], New: newValues[f]})
	}
	return changes
}

// AuditLogResponse is the JSON response format
type AuditLogResponse struct {
	AuditLog
	Changes []FieldChange `json:"changes"`
}

// ToResponse converts AuditLog to AuditLogResponse
func (a *AuditLog) ToResponse() AuditLogResponse {
	return AuditLogResponse{AuditLog: *a, Changes: a.Changes()}
}
