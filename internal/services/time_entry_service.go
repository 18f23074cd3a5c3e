package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sjperalta/parktime-api/internal/audit"
	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/sjperalta/parktime-api/internal/policy"
	"github.com/sjperalta/parktime-api/internal/repository"
	"github.com/sjperalta/parktime-api/internal/statemachine"
	"github.com/sjperalta/parktime-api/pkg/logger"
	"gorm.io/gorm"
)

// TimeEntryService creates, edits, deletes and restores time entries. Every mutation
// runs in one transaction together with its ledger record.
type TimeEntryService struct {
	repos *repository.Repositories
	audit *AuditService
}

// NewTimeEntryService creates a new time entry service
func NewTimeEntryService(repos *repository.Repositories, auditSvc *AuditService) *TimeEntryService {
	return &TimeEntryService{repos: repos, audit: auditSvc}
}

// TimeEntryInput holds the fields of a new entry. EmployeeID defaults to the actor.
type TimeEntryInput struct {
	EmployeeID uint      `json:"employee_id"`
	WorkCodeID uint      `json:"work_code_id" binding:"required"`
	StartTime  time.Time `json:"start_time" binding:"required"`
	EndTime    time.Time `json:"end_time" binding:"required"`
	Notes      string    `json:"notes" binding:"max=500"`
}

// TimeEntryChanges holds a partial edit; nil fields are left alone.
type TimeEntryChanges struct {
	WorkCodeID *uint      `json:"work_code_id"`
	StartTime  *time.Time `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	Notes      *string    `json:"notes" binding:"omitempty,max=500"`
}

// Create records a new entry for in.EmployeeID
func (s *TimeEntryService) Create(ctx context.Context, actor *models.Employee, in TimeEntryInput, meta audit.Meta) (*models.TimeEntry, error) {
	if actor == nil {
		return nil, ErrForbidden("an authenticated employee is required")
	}
	if in.EmployeeID == 0 {
		in.EmployeeID = actor.ID
	}

	var entry *models.TimeEntry
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		owner, err := s.loadOwner(ctx, tx, actor, in.EmployeeID)
		if err != nil {
			return err
		}
		if err := checkWorkCode(ctx, tx, in.WorkCodeID); err != nil {
			return err
		}
		if err := checkTimes(in.StartTime, in.EndTime); err != nil {
			return err
		}
		if err := checkOverlap(ctx, tx, owner.ID, in.StartTime, in.EndTime, 0); err != nil {
			return err
		}

		now := s.audit.Stamp()
		entry = &models.TimeEntry{
			EmployeeID: owner.ID,
			WorkCodeID: in.WorkCodeID,
			Notes:      in.Notes,
			CreatedAt:  now,
			CreatedBy:  actor.ID,
		}
		entry.SetTimes(in.StartTime, in.EndTime)
		if err := tx.TimeEntry.Create(ctx, entry); err != nil {
			return err
		}

		_, err = s.audit.WithRepository(tx.Audit).LogInsert(ctx, entry, stampMeta(meta, actor, now))
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Time entry created", "entry_id", entry.ID, "employee_id", entry.EmployeeID, "actor_id", actor.ID)
	return entry, nil
}

// Update applies changes to an active entry. An edit that changes nothing writes
// nothing, not even the modification stamp.
func (s *TimeEntryService) Update(ctx context.Context, actor *models.Employee, id uint, changes TimeEntryChanges, meta audit.Meta) (*models.TimeEntry, error) {
	var entry *models.TimeEntry
	var changed bool
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		entry, err = s.loadEntry(ctx, tx, actor, id, false)
		if err != nil {
			return err
		}
		if !statemachine.NewTimeEntryFSM(entry).CanUpdate() {
			return ErrNotFound("time entry", id)
		}

		before, err := audit.Capture(entry)
		if err != nil {
			return err
		}

		if changes.WorkCodeID != nil {
			if err := checkWorkCode(ctx, tx, *changes.WorkCodeID); err != nil {
				return err
			}
			if *changes.WorkCodeID != entry.WorkCodeID {
				entry.WorkCodeID = *changes.WorkCodeID
				entry.WorkCode = nil
			}
		}
		start, end := entry.StartTime, entry.EndTime
		if changes.StartTime != nil {
			start = *changes.StartTime
		}
		if changes.EndTime != nil {
			end = *changes.EndTime
		}
		if changes.StartTime != nil || changes.EndTime != nil {
			if err := checkTimes(start, end); err != nil {
				return err
			}
			if err := checkOverlap(ctx, tx, entry.EmployeeID, start, end, entry.ID); err != nil {
				return err
			}
			entry.SetTimes(start, end)
		}
		if changes.Notes != nil {
			if len([]rune(*changes.Notes)) > 500 {
				return ErrValidation("notes cannot exceed 500 characters")
			}
			entry.Notes = *changes.Notes
		}

		after, err := audit.Capture(entry)
		if err != nil {
			return err
		}
		if audit.Equal(before, after) {
			return nil
		}
		changed = true

		now := s.audit.Stamp()
		entry.MarkModified(actor.ID, now)
		if err := tx.TimeEntry.Update(ctx, entry); err != nil {
			return err
		}
		_, err = s.audit.WithRepository(tx.Audit).LogUpdate(ctx, before, entry, stampMeta(meta, actor, now))
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		logger.FromContext(ctx).Info("Time entry updated", "entry_id", entry.ID, "actor_id", actor.ID)
	}
	return entry, nil
}

// Delete soft-deletes an active entry
func (s *TimeEntryService) Delete(ctx context.Context, actor *models.Employee, id uint, meta audit.Meta) error {
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		entry, err := s.loadEntry(ctx, tx, actor, id, false)
		if err != nil {
			return err
		}

		before, err := audit.Capture(entry)
		if err != nil {
			return err
		}

		now := s.audit.Stamp()
		if err := statemachine.NewTimeEntryFSM(entry).Delete(ctx, actor.ID, now); err != nil {
			return ErrNotFound("time entry", id)
		}
		if err := tx.TimeEntry.Update(ctx, entry); err != nil {
			return err
		}
		_, err = s.audit.WithRepository(tx.Audit).LogDelete(ctx, before, entry, stampMeta(meta, actor, now))
		return err
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("Time entry deleted", "entry_id", id, "actor_id", actor.ID)
	return nil
}

// Restore brings back a soft-deleted entry, provided it no longer collides with
// an entry recorded since.
func (s *TimeEntryService) Restore(ctx context.Context, actor *models.Employee, id uint, meta audit.Meta) (*models.TimeEntry, error) {
	var entry *models.TimeEntry
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		entry, err = s.loadEntry(ctx, tx, actor, id, true)
		if err != nil {
			return err
		}

		if err := statemachine.NewTimeEntryFSM(entry).Restore(ctx); err != nil {
			return ErrValidation("time entry %d is not deleted", id)
		}
		if err := checkOverlap(ctx, tx, entry.EmployeeID, entry.StartTime, entry.EndTime, entry.ID); err != nil {
			return err
		}
		if err := tx.TimeEntry.Update(ctx, entry); err != nil {
			return err
		}
		_, err = s.audit.WithRepository(tx.Audit).LogRestore(ctx, entry, stampMeta(meta, actor, s.audit.Stamp()))
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Time entry restored", "entry_id", id, "actor_id", actor.ID)
	return entry, nil
}

// Get returns one entry the actor may see. Deleted entries are only returned when
// includeDeleted is set.
func (s *TimeEntryService) Get(ctx context.Context, actor *models.Employee, id uint, includeDeleted bool) (*models.TimeEntry, error) {
	return s.loadEntry(ctx, s.repos, actor, id, includeDeleted)
}

// ListForEmployee returns the employee's entries dated from through to, inclusive
func (s *TimeEntryService) ListForEmployee(ctx context.Context, actor *models.Employee, employeeID uint, from, to time.Time, includeDeleted bool) ([]models.TimeEntry, error) {
	if _, err := s.loadOwner(ctx, s.repos, actor, employeeID); err != nil {
		return nil, err
	}
	from, to = models.EntryDateOf(from), models.EntryDateOf(to)
	if to.Before(from) {
		return nil, ErrValidation("end date must not be before start date")
	}
	return s.repos.TimeEntry.ListForEmployees(ctx, []uint{employeeID}, from, to, includeDeleted)
}

// DaySummary is one calendar day of a week view
type DaySummary struct {
	Date    string             `json:"date"`
	Hours   float64            `json:"hours"`
	Entries []models.TimeEntry `json:"entries"`
}

// WeekSummary is an employee's Monday–Sunday week
type WeekSummary struct {
	EmployeeID uint         `json:"employee_id"`
	WeekStart  string       `json:"week_start"`
	WeekEnd    string       `json:"week_end"`
	TotalHours float64      `json:"total_hours"`
	Days       []DaySummary `json:"days"`
}

// Week groups the employee's active entries by day for the week containing day
func (s *TimeEntryService) Week(ctx context.Context, actor *models.Employee, employeeID uint, day time.Time) (*WeekSummary, error) {
	start, end := WeekBounds(day)
	entries, err := s.ListForEmployee(ctx, actor, employeeID, start, end, false)
	if err != nil {
		return nil, err
	}

	summary := &WeekSummary{
		EmployeeID: employeeID,
		WeekStart:  start.Format(time.DateOnly),
		WeekEnd:    end.Format(time.DateOnly),
		Days:       make([]DaySummary, 7),
	}
	for i := range summary.Days {
		summary.Days[i] = DaySummary{
			Date:    start.AddDate(0, 0, i).Format(time.DateOnly),
			Entries: []models.TimeEntry{},
		}
	}
	for _, e := range entries {
		i := int(models.EntryDateOf(e.EntryDate).Sub(start).Hours() / 24)
		if i < 0 || i > 6 {
			continue
		}
		summary.Days[i].Entries = append(summary.Days[i].Entries, e)
		summary.Days[i].Hours = roundHours(summary.Days[i].Hours + e.Hours)
	}
	for _, d := range summary.Days {
		summary.TotalHours = roundHours(summary.TotalHours + d.Hours)
	}
	return summary, nil
}

// WeekBounds returns the Monday and Sunday of the week containing day, as dates
func WeekBounds(day time.Time) (time.Time, time.Time) {
	d := models.EntryDateOf(day)
	offset := (int(d.Weekday()) + 6) % 7
	monday := d.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

// loadOwner fetches the employee whose records are being touched and checks the
// actor may act on them.
func (s *TimeEntryService) loadOwner(ctx context.Context, repos *repository.Repositories, actor *models.Employee, employeeID uint) (*models.Employee, error) {
	if actor == nil {
		return nil, ErrForbidden("an authenticated employee is required")
	}
	owner, err := repos.Employee.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrValidation("employee %d does not exist", employeeID)
		}
		return nil, err
	}
	if !policy.CanActOn(actor, owner) {
		return nil, ErrForbidden("not permitted to act on records of employee %d", employeeID)
	}
	if !owner.IsActive {
		return nil, ErrValidation("employee %d is not active", employeeID)
	}
	return owner, nil
}

// loadEntry fetches an entry and checks the actor may act on its owner. The owner
// being inactive does not block access to existing entries.
func (s *TimeEntryService) loadEntry(ctx context.Context, repos *repository.Repositories, actor *models.Employee, id uint, includeDeleted bool) (*models.TimeEntry, error) {
	if actor == nil {
		return nil, ErrForbidden("an authenticated employee is required")
	}
	entry, err := repos.TimeEntry.FindByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, notFoundOr(err, "time entry", id)
	}
	owner, err := repos.Employee.FindByID(ctx, entry.EmployeeID)
	if err != nil {
		return nil, notFoundOr(err, "employee", entry.EmployeeID)
	}
	if !policy.CanActOn(actor, owner) {
		return nil, ErrForbidden("not permitted to act on records of employee %d", owner.ID)
	}
	return entry, nil
}

func checkWorkCode(ctx context.Context, repos *repository.Repositories, id uint) error {
	code, err := repos.WorkCode.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrValidation("work code %d does not exist", id)
		}
		return err
	}
	if !code.IsActive {
		return ErrValidation("work code %s is not active", code.Code)
	}
	return nil
}

func checkTimes(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ErrValidation("start time and end time are required")
	}
	if !end.After(start) {
		return ErrValidation("end time must be after start time")
	}
	d := end.Sub(start)
	if d < models.MinEntryDuration {
		return ErrValidation("entry must be at least %d minutes", int(models.MinEntryDuration.Minutes()))
	}
	if d > models.MaxEntryDuration {
		return ErrValidation("entry cannot exceed %d hours", int(models.MaxEntryDuration.Hours()))
	}
	return nil
}

func checkOverlap(ctx context.Context, repos *repository.Repositories, employeeID uint, start, end time.Time, excludeID uint) error {
	clash, err := repos.TimeEntry.FindOverlapping(ctx, employeeID, start.UTC(), end.UTC(), excludeID)
	if err != nil {
		return err
	}
	if len(clash) > 0 {
		c := clash[0]
		return ErrValidation("entry overlaps entry %d (%s to %s)", c.ID,
			c.StartTime.UTC().Format("2006-01-02 15:04"), c.EndTime.UTC().Format("15:04"))
	}
	return nil
}
