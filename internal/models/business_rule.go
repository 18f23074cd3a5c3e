package models

import (
	"strings"
	"time"
)

// BusinessRule is an admin-editable configuration value
type BusinessRule struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RuleKey      string     `gorm:"size:50;uniqueIndex;not null" json:"rule_key"`
	RuleValue    string     `gorm:"size:255;not null" json:"rule_value"`
	Description  string     `gorm:"size:255" json:"description"`
	ValueType    string     `gorm:"size:20;not null" json:"value_type"`
	ValidOptions *string    `gorm:"size:255" json:"valid_options"`
	ModifiedAt   *time.Time `json:"modified_at"`
	ModifiedBy   *uint      `json:"modified_by"`
}

// TableName specifies the table name for BusinessRule
func (BusinessRule) TableName() string {
	return "business_rules"
}

// AuditRecordID identifies the rule row in the audit ledger
func (r *BusinessRule) AuditRecordID() uint {
	return r.ID
}

// Value type constants
const (
	ValueTypeString  = "string"
	ValueTypeInteger = "integer"
	ValueTypeDecimal = "decimal"
	ValueTypeBoolean = "boolean"
	ValueTypeChoice  = "choice"
)

// Options splits ValidOptions into its trimmed choices
func (r *BusinessRule) Options() []string {
	if r.ValidOptions == nil || *r.ValidOptions == "" {
		return nil
	}
	parts := strings.Split(*r.ValidOptions, ",")
	options := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			options = append(options, p)
		}
	}
	return options
}

// Well-known rule keys
const (
	RuleStandardWorkWeekHours   = "standard_work_week_hours"
	RuleOvertimeDailyThreshold  = "overtime_daily_threshold"
	RuleOvertimeWeeklyThreshold = "overtime_weekly_threshold"
	RulePayPeriodType           = "pay_period_type"
	RuleWeekStartDay            = "week_start_day"
	RuleMaxHoursPerDay          = "max_hours_per_day"
	RuleAllowFutureEntries      = "allow_future_entries"
	RuleEntryLookbackDays       = "entry_lookback_days"
)
