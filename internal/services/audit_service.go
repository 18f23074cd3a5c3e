package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sjperalta/parktime-api/internal/audit"
	"github.com/sjperalta/parktime-api/internal/metrics"
	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/sjperalta/parktime-api/internal/repository"
	"github.com/sjperalta/parktime-api/pkg/logger"
)

// AuditService is the change ledger. Writes go through whatever repository the
// service is bound to, so a service obtained from WithRepository(tx.Audit) writes
// inside the caller's transaction and rolls back with it.
type AuditService struct {
	repo         repository.AuditRepository
	clock        *ledgerClock
	defaultLimit int
}

// ledgerClock keeps performed_at non-decreasing across writes of one ledger.
type ledgerClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// next issues a timestamp no earlier than any issued before
func (c *ledgerClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	at := c.now()
	if at.Before(c.last) {
		at = c.last
	}
	c.last = at
	return at
}

// stamp returns the performed_at for a write. A timestamp the caller already
// stored on the row is kept as is so replay reproduces the row.
func (c *ledgerClock) stamp(at time.Time) time.Time {
	if at.IsZero() {
		return c.next()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if at.After(c.last) {
		c.last = at
	}
	return at
}

const defaultAuditLimit = 100

// NewAuditService creates the ledger
func NewAuditService(repo repository.AuditRepository, now func() time.Time) *AuditService {
	if now == nil {
		now = systemNow
	}
	return &AuditService{
		repo:         repo,
		clock:        &ledgerClock{now: now},
		defaultLimit: defaultAuditLimit,
	}
}

// WithRepository returns a ledger sharing this one's clock but writing through repo
func (s *AuditService) WithRepository(repo repository.AuditRepository) *AuditService {
	c := *s
	c.repo = repo
	return &c
}

// Stamp issues the timestamp a mutation stores on its row and passes on as
// Meta.At, so the row and its ledger record agree.
func (s *AuditService) Stamp() time.Time {
	return s.clock.next()
}

// SetDefaultLimit sets the page size used by Recent when none is given
func (s *AuditService) SetDefaultLimit(limit int) {
	if limit > 0 {
		s.defaultLimit = limit
	}
}

// RecordInsert logs the creation of a record
func (s *AuditService) RecordInsert(ctx context.Context, table string, recordID uint, meta audit.Meta, newValues audit.Snapshot) (*models.AuditLog, error) {
	return s.write(ctx, table, recordID, audit.ActionInsert, meta, nil, nil, newValues)
}

// RecordUpdate logs the fields that differ between old and new. It returns nil
// without writing when nothing changed.
func (s *AuditService) RecordUpdate(ctx context.Context, table string, recordID uint, meta audit.Meta, oldValues, newValues audit.Snapshot) (*models.AuditLog, error) {
	if !audit.IsAudited(table) {
		return nil, nil
	}
	changed := audit.Diff(oldValues, newValues)
	if len(changed) == 0 {
		metrics.AuditSuppressed(table)
		logger.FromContext(ctx).Debug("audit update suppressed", "table", table, "record_id", recordID)
		return nil, nil
	}
	return s.write(ctx, table, recordID, audit.ActionUpdate, meta, changed, oldValues, newValues)
}

// RecordDelete logs the state of a record just before it was deleted
func (s *AuditService) RecordDelete(ctx context.Context, table string, recordID uint, meta audit.Meta, oldValues audit.Snapshot) (*models.AuditLog, error) {
	return s.write(ctx, table, recordID, audit.ActionDelete, meta, nil, oldValues, nil)
}

// RecordRestore logs the state of a record after it was restored
func (s *AuditService) RecordRestore(ctx context.Context, table string, recordID uint, meta audit.Meta, newValues audit.Snapshot) (*models.AuditLog, error) {
	return s.write(ctx, table, recordID, audit.ActionRestore, meta, nil, nil, newValues)
}

// LogInsert captures rec and records its creation
func (s *AuditService) LogInsert(ctx context.Context, rec audit.Auditable, meta audit.Meta) (*models.AuditLog, error) {
	snap, err := audit.Capture(rec)
	if err != nil {
		return nil, err
	}
	return s.RecordInsert(ctx, rec.TableName(), rec.AuditRecordID(), meta, snap)
}

// LogUpdate captures rec and records its difference from before
func (s *AuditService) LogUpdate(ctx context.Context, before audit.Snapshot, rec audit.Auditable, meta audit.Meta) (*models.AuditLog, error) {
	snap, err := audit.Capture(rec)
	if err != nil {
		return nil, err
	}
	return s.RecordUpdate(ctx, rec.TableName(), rec.AuditRecordID(), meta, before, snap)
}

// LogDelete records the deletion of rec given its pre-delete snapshot
func (s *AuditService) LogDelete(ctx context.Context, before audit.Snapshot, rec audit.Auditable, meta audit.Meta) (*models.AuditLog, error) {
	return s.RecordDelete(ctx, rec.TableName(), rec.AuditRecordID(), meta, before)
}

// LogRestore captures rec and records its restoration
func (s *AuditService) LogRestore(ctx context.Context, rec audit.Auditable, meta audit.Meta) (*models.AuditLog, error) {
	snap, err := audit.Capture(rec)
	if err != nil {
		return nil, err
	}
	return s.RecordRestore(ctx, rec.TableName(), rec.AuditRecordID(), meta, snap)
}

func (s *AuditService) write(ctx context.Context, table string, recordID uint, action string, meta audit.Meta, changed []string, oldValues, newValues audit.Snapshot) (*models.AuditLog, error) {
	if !audit.IsAudited(table) {
		return nil, nil
	}

	entry := &models.AuditLog{
		Table:       table,
		RecordID:    recordID,
		Action:      action,
		PerformedBy: meta.ActorID,
		PerformedAt: s.clock.stamp(meta.At),
		IPAddress:   optional(meta.IPAddress, 45),
		Context:     optional(meta.Context, 200),
	}
	if len(changed) > 0 {
		joined := strings.Join(changed, ",")
		entry.ChangedFields = &joined
	}

	var err error
	if entry.OldValues, err = encodeSnapshot(oldValues); err != nil {
		return nil, fmt.Errorf("audit %s %s/%d: encode old values: %w", action, table, recordID, err)
	}
	if entry.NewValues, err = encodeSnapshot(newValues); err != nil {
		return nil, fmt.Errorf("audit %s %s/%d: encode new values: %w", action, table, recordID, err)
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("audit %s %s/%d: %w", action, table, recordID, err)
	}

	metrics.AuditRecorded(table, action)
	logger.FromContext(ctx).Debug("audit recorded",
		"table", table, "record_id", recordID, "action", action, "performed_by", meta.ActorID)
	return entry, nil
}

func encodeSnapshot(s audit.Snapshot) (*string, error) {
	if s == nil {
		return nil, nil
	}
	encoded, err := s.Encode()
	if err != nil {
		return nil, err
	}
	return &encoded, nil
}

// optional converts an empty string to NULL and clips to the column width
func optional(v string, max int) *string {
	if v == "" {
		return nil
	}
	if r := []rune(v); len(r) > max {
		v = string(r[:max])
	}
	return &v
}

// History returns every record of (table, id), oldest first
func (s *AuditService) History(ctx context.Context, table string, recordID uint) ([]models.AuditLog, error) {
	return s.repo.History(ctx, table, recordID)
}

// ByActor returns what actorID did, newest first
func (s *AuditService) ByActor(ctx context.Context, actorID uint, limit, offset int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	return s.repo.ByActor(ctx, actorID, limit, offset)
}

// Recent returns records performed at or after since, newest first
func (s *AuditService) Recent(ctx context.Context, since time.Time, table, action string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	return s.repo.Recent(ctx, repository.AuditFilter{Since: since, Table: table, Action: action, Limit: limit})
}

// InRange returns records performed on any day from startDate through endDate, oldest first
func (s *AuditService) InRange(ctx context.Context, startDate, endDate time.Time, table string) ([]models.AuditLog, error) {
	from, to := dayRange(startDate, endDate)
	return s.repo.InRange(ctx, from, to, table)
}

// Get returns a single ledger record
func (s *AuditService) Get(ctx context.Context, id uint) (*models.AuditLog, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "audit record", id)
	}
	return entry, nil
}

// Tables lists the tables that appear in the ledger
func (s *AuditService) Tables(ctx context.Context) ([]string, error) {
	return s.repo.DistinctTables(ctx)
}

// Actions lists the actions that appear in the ledger
func (s *AuditService) Actions(ctx context.Context) ([]string, error) {
	return s.repo.DistinctActions(ctx)
}

// Replay rebuilds the snapshot of (table, id) from its history
func (s *AuditService) Replay(ctx context.Context, table string, recordID uint) (audit.Snapshot, error) {
	history, err := s.History(ctx, table, recordID)
	if err != nil {
		return nil, err
	}
	events := make([]audit.Event, 0, len(history))
	for i := range history {
		ev, err := history[i].Event()
		if err != nil {
			return nil, fmt.Errorf("audit record %d: %w", history[i].ID, err)
		}
		events = append(events, ev)
	}
	return audit.Replay(events)
}

// Verify replays the ledger of rec and returns the fields on which the replayed
// state disagrees with rec's current state. An empty result means the ledger is
// consistent with the row.
func (s *AuditService) Verify(ctx context.Context, rec audit.Auditable) ([]string, error) {
	replayed, err := s.Replay(ctx, rec.TableName(), rec.AuditRecordID())
	if errors.Is(err, audit.ErrNoInsert) {
		return nil, ErrNotFound("audit history of "+rec.TableName(), rec.AuditRecordID())
	}
	if err != nil {
		return nil, err
	}
	live, err := audit.Capture(rec)
	if err != nil {
		return nil, err
	}
	return audit.Diff(replayed, live), nil
}

// dayRange converts inclusive calendar days to a half-open UTC interval
func dayRange(startDate, endDate time.Time) (time.Time, time.Time) {
	return models.EntryDateOf(startDate), models.EntryDateOf(endDate).AddDate(0, 0, 1)
}
