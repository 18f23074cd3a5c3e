// Package audit captures the persisted state of records and computes field-level diffs
// for the change ledger.
package audit

import "time"

// Actions recorded by the ledger
const (
	ActionInsert  = "INSERT"
	ActionUpdate  = "UPDATE"
	ActionDelete  = "DELETE"
	ActionRestore = "RESTORE"
)

// Actions lists every ledger action
var Actions = []string{ActionInsert, ActionUpdate, ActionDelete, ActionRestore}

// Auditable is implemented by every entity whose changes are written to the ledger.
type Auditable interface {
	TableName() string
	AuditRecordID() uint
}

var auditedTables = map[string]struct{}{
	"time_entries":   {},
	"employees":      {},
	"work_codes":     {},
	"business_rules": {},
}

// IsAudited reports whether rows of table produce ledger records.
func IsAudited(table string) bool {
	_, ok := auditedTables[table]
	return ok
}

// AuditedTables returns the allow-listed table names.
func AuditedTables() []string {
	tables := make([]string, 0, len(auditedTables))
	for t := range auditedTables {
		tables = append(tables, t)
	}
	return sortStrings(tables)
}

// Meta is the caller-supplied context persisted verbatim with every record.
type Meta struct {
	ActorID   uint
	IPAddress string
	Context   string

	// At pins performed_at to the mutation's own timestamp; zero means the ledger clock.
	At time.Time
}
