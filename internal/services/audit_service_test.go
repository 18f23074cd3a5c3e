package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sjperalta/parktime-api/internal/audit"
	"github.com/sjperalta/parktime-api/internal/models"
)

func TestAuditService_RecordUpdateSuppressesNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	meta := audit.Meta{ActorID: env.admin.ID}

	snap := audit.Snapshot{"code": "REG", "is_active": true}
	rec, err := env.svcs.Audit.RecordUpdate(ctx, "work_codes", 1, meta, snap, snap.Clone())
	require.NoError(t, err)
	assert.Nil(t, rec)

	changed := snap.Clone()
	changed["is_active"] = false
	rec, err = env.svcs.Audit.RecordUpdate(ctx, "work_codes", 1, meta, snap, changed)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"is_active"}, rec.FieldList())

	history, err := env.svcs.Audit.History(ctx, "work_codes", 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAuditService_IgnoresUnauditedTables(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.svcs.Audit.RecordInsert(ctx, "user_sessions", 1, audit.Meta{ActorID: env.admin.ID}, audit.Snapshot{"token": "x"})
	require.NoError(t, err)
	assert.Nil(t, rec)

	tables, err := env.svcs.Audit.Tables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestAuditService_ClipsMetaAndKeepsOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	later := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	first, err := env.svcs.Audit.RecordInsert(ctx, "employees", 1, audit.Meta{
		ActorID:   env.admin.ID,
		IPAddress: strings.Repeat("1", 60),
		Context:   strings.Repeat("c", 300),
		At:        later,
	}, audit.Snapshot{"username": "admin"})
	require.NoError(t, err)
	assert.Len(t, *first.IPAddress, 45)
	assert.Len(t, *first.Context, 200)

	// A timestamp earlier than the last one written is clamped forward
	second, err := env.svcs.Audit.RecordDelete(ctx, "employees", 1, audit.Meta{
		ActorID: env.admin.ID,
		At:      later.Add(-time.Hour),
	}, audit.Snapshot{"username": "admin"})
	require.NoError(t, err)
	assert.False(t, second.PerformedAt.Before(first.PerformedAt))
	assert.Nil(t, second.IPAddress)
}

func TestAuditService_Queries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.employee(t, "alice", models.RoleEmployee, nil)
	reg := env.workCode(t, "REG")

	// Both after the clock that stamped alice's creation
	day1 := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 6, 9, 0, 0, 0, time.UTC)
	_, err := env.svcs.Audit.RecordInsert(ctx, "time_entries", 100, audit.Meta{ActorID: alice.ID, At: day1}, audit.Snapshot{"id": 100})
	require.NoError(t, err)
	_, err = env.svcs.Audit.RecordUpdate(ctx, "work_codes", reg.ID, audit.Meta{ActorID: env.admin.ID, At: day2},
		audit.Snapshot{"sort_order": 1}, audit.Snapshot{"sort_order": 2})
	require.NoError(t, err)

	byAlice, err := env.svcs.Audit.ByActor(ctx, alice.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, byAlice, 1)
	assert.Equal(t, "time_entries", byAlice[0].Table)

	recent, err := env.svcs.Audit.Recent(ctx, day1.Add(time.Hour), "", "", 0)
	require.NoError(t, err)
	var tables []string
	for _, r := range recent {
		tables = append(tables, r.Table)
	}
	assert.Contains(t, tables, "work_codes")
	assert.NotContains(t, tables, "time_entries")

	updates, err := env.svcs.Audit.Recent(ctx, time.Time{}, "", audit.ActionUpdate, 0)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	changes := updates[0].Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "sort_order", changes[0].Field)

	inDay1, err := env.svcs.Audit.InRange(ctx, day1, day1, "")
	require.NoError(t, err)
	require.Len(t, inDay1, 1)
	assert.Equal(t, uint(100), inDay1[0].RecordID)

	bothDays, err := env.svcs.Audit.InRange(ctx, day1, day2, "work_codes")
	require.NoError(t, err)
	require.Len(t, bothDays, 1)

	actions, err := env.svcs.Audit.Actions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{audit.ActionInsert, audit.ActionUpdate}, actions)

	got, err := env.svcs.Audit.Get(ctx, updates[0].ID)
	require.NoError(t, err)
	assert.Equal(t, updates[0].ID, got.ID)

	_, err = env.svcs.Audit.Get(ctx, 999999)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestAuditService_LedgerIsImmutable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.svcs.Audit.RecordInsert(ctx, "employees", env.admin.ID, audit.Meta{ActorID: env.admin.ID}, audit.Snapshot{"username": "admin"})
	require.NoError(t, err)

	err = env.db.Model(&models.AuditLog{}).Where("id = ?", rec.ID).Update("action", audit.ActionDelete).Error
	require.Error(t, err)
	err = env.db.Delete(&models.AuditLog{}, rec.ID).Error
	require.Error(t, err)
}

func TestAuditService_Verify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.employee(t, "alice", models.RoleEmployee, nil)
	reg := env.workCode(t, "REG")

	entry, err := env.svcs.TimeEntry.Create(ctx, alice, TimeEntryInput{
		WorkCodeID: reg.ID, StartTime: at("2025-03-05", "08:00"), EndTime: at("2025-03-05", "12:00"),
	}, env.meta())
	require.NoError(t, err)
	notes := "inspection"
	_, err = env.svcs.TimeEntry.Update(ctx, alice, entry.ID, TimeEntryChanges{Notes: &notes}, env.meta())
	require.NoError(t, err)

	load := func() *models.TimeEntry {
		current, err := env.repos.TimeEntry.FindByID(ctx, entry.ID, true)
		require.NoError(t, err)
		return current
	}

	drift, err := env.svcs.Audit.Verify(ctx, load())
	require.NoError(t, err)
	assert.Empty(t, drift)

	// a write that bypassed the services shows up as drift
	require.NoError(t, env.db.Exec("UPDATE time_entries SET notes = ? WHERE id = ?", "edited by hand", entry.ID).Error)
	drift, err = env.svcs.Audit.Verify(ctx, load())
	require.NoError(t, err)
	assert.Equal(t, []string{"notes"}, drift)

	// seeded rows have no history
	_, err = env.svcs.Audit.Verify(ctx, reg)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestAuditService_VerifyAfterClockStepsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.employee(t, "alice", models.RoleEmployee, nil)
	reg := env.workCode(t, "REG")

	first, err := env.svcs.TimeEntry.Create(ctx, alice, TimeEntryInput{
		WorkCodeID: reg.ID, StartTime: at("2025-03-03", "08:00"), EndTime: at("2025-03-03", "12:00"),
	}, env.meta())
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	_, err = env.svcs.TimeEntry.Create(ctx, alice, TimeEntryInput{
		WorkCodeID: reg.ID, StartTime: at("2025-03-03", "13:00"), EndTime: at("2025-03-03", "15:00"),
	}, env.meta())
	require.NoError(t, err)

	env.clock.Advance(-30 * time.Minute)
	require.NoError(t, env.svcs.TimeEntry.Delete(ctx, alice, first.ID, env.meta()))

	row, err := env.repos.TimeEntry.FindByID(ctx, first.ID, true)
	require.NoError(t, err)
	require.NotNil(t, row.DeletedAt)

	history, err := env.svcs.Audit.History(ctx, "time_entries", first.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[1].PerformedAt.Equal(*row.DeletedAt))
	assert.False(t, history[1].PerformedAt.Before(history[0].PerformedAt))

	drift, err := env.svcs.Audit.Verify(ctx, row)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestAuditExportService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.employee(t, "alice", models.RoleEmployee, nil)

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	data, filename, err := env.svcs.Export.Export(ctx, env.admin, ExportCSV, day, day, "employees")
	require.NoError(t, err)
	assert.Equal(t, "audit_2025-03-03_2025-03-03.csv", filename)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Performed At", rows[0][1])
	assert.Equal(t, "employees", rows[1][3])
	assert.Equal(t, audit.ActionInsert, rows[1][5])

	data, _, err = env.svcs.Export.Export(ctx, env.admin, ExportXLSX, day, day, "")
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Audit", "D5")
	require.NoError(t, err)
	assert.Equal(t, "employees", v)

	data, filename, err = env.svcs.Export.Export(ctx, env.admin, ExportPDF, day, day, "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Equal(t, "audit_2025-03-03_2025-03-03.pdf", filename)

	_, _, err = env.svcs.Export.Export(ctx, env.admin, "docx", day, day, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, _, err = env.svcs.Export.Export(ctx, alice, ExportCSV, day, day, "")
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
}
