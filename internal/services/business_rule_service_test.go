package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjperalta/parktime-api/internal/models"
)

func TestNormalizeRuleValue(t *testing.T) {
	options := "weekly,biweekly,semimonthly,monthly"
	tests := []struct {
		name    string
		rule    models.BusinessRule
		value   string
		want    string
		wantErr bool
	}{
		{"integer", models.BusinessRule{ValueType: models.ValueTypeInteger}, " 14 ", "14", false},
		{"integer rejects words", models.BusinessRule{ValueType: models.ValueTypeInteger}, "fourteen", "", true},
		{"decimal", models.BusinessRule{ValueType: models.ValueTypeDecimal}, "7.5", "7.5", false},
		{"decimal rejects words", models.BusinessRule{ValueType: models.ValueTypeDecimal}, "lots", "", true},
		{"boolean yes", models.BusinessRule{ValueType: models.ValueTypeBoolean}, "Yes", "true", false},
		{"boolean zero", models.BusinessRule{ValueType: models.ValueTypeBoolean}, "0", "false", false},
		{"boolean rejects maybe", models.BusinessRule{ValueType: models.ValueTypeBoolean}, "maybe", "", true},
		{"choice", models.BusinessRule{ValueType: models.ValueTypeChoice, ValidOptions: &options}, "Weekly", "weekly", false},
		{"choice rejects unknown", models.BusinessRule{ValueType: models.ValueTypeChoice, ValidOptions: &options}, "daily", "", true},
		{"string", models.BusinessRule{ValueType: models.ValueTypeString}, "anything", "anything", false},
		{"string rejects empty", models.BusinessRule{ValueType: models.ValueTypeString}, "  ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeRuleValue(&tt.rule, tt.value)
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBusinessRuleService_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rule, err := env.svcs.BusinessRule.Update(ctx, env.admin, models.RuleAllowFutureEntries, "yes", env.meta())
	require.NoError(t, err)
	assert.Equal(t, "true", rule.RuleValue)
	require.NotNil(t, rule.ModifiedBy)
	assert.Equal(t, env.admin.ID, *rule.ModifiedBy)

	allow, err := env.svcs.BusinessRule.Bool(ctx, models.RuleAllowFutureEntries, false)
	require.NoError(t, err)
	assert.True(t, allow)

	history, err := env.svcs.Audit.History(ctx, "business_rules", rule.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].FieldList(), "rule_value")

	// Same value again is not an edit
	_, err = env.svcs.BusinessRule.Update(ctx, env.admin, models.RuleAllowFutureEntries, "true", env.meta())
	require.NoError(t, err)
	history, err = env.svcs.Audit.History(ctx, "business_rules", rule.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = env.svcs.BusinessRule.Update(ctx, env.admin, models.RuleEntryLookbackDays, "two weeks", env.meta())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = env.svcs.BusinessRule.Update(ctx, env.admin, "no_such_rule", "1", env.meta())
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	days, err := env.svcs.BusinessRule.Int(ctx, models.RuleEntryLookbackDays, 0)
	require.NoError(t, err)
	assert.Equal(t, 14, days)

	period, err := env.svcs.BusinessRule.String(ctx, models.RulePayPeriodType, "")
	require.NoError(t, err)
	assert.Equal(t, "biweekly", period)

	fallback, err := env.svcs.BusinessRule.Int(ctx, "no_such_rule", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, fallback)
}

func TestWorkCodeService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, err := env.svcs.WorkCode.Create(ctx, env.admin, WorkCodeInput{
		Code:        " comp ",
		Description: "Comp Time",
		CodeType:    models.CodeTypeLeavePaid,
		SortOrder:   16,
	}, env.meta())
	require.NoError(t, err)
	assert.Equal(t, "COMP", code.Code)
	assert.True(t, code.IsActive)

	_, err = env.svcs.WorkCode.Create(ctx, env.admin, WorkCodeInput{Code: "COMP", Description: "Again", CodeType: models.CodeTypeWork}, env.meta())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = env.svcs.WorkCode.Create(ctx, env.admin, WorkCodeInput{Code: "X", Description: "Bad", CodeType: "overtime"}, env.meta())
	require.ErrorAs(t, err, &verr)

	retired, err := env.svcs.WorkCode.SetActive(ctx, env.admin, code.ID, false, env.meta())
	require.NoError(t, err)
	assert.False(t, retired.IsActive)

	active, err := env.svcs.WorkCode.List(ctx, true)
	require.NoError(t, err)
	for _, c := range active {
		assert.NotEqual(t, "COMP", c.Code)
	}
	all, err := env.svcs.WorkCode.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, len(active)+1)

	history, err := env.svcs.Audit.History(ctx, "work_codes", code.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []string{"is_active"}, history[1].FieldList())
}
