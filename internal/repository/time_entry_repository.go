package repository

import (
	"context"
	"time"

	"github.com/sjperalta/parktime-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TimeEntryRepository defines the interface for time entry data access
type TimeEntryRepository interface {
	FindByID(ctx context.Context, id uint, includeDeleted bool) (*models.TimeEntry, error)
	Create(ctx context.Context, entry *models.TimeEntry) error
	Update(ctx context.Context, entry *models.TimeEntry) error
	ListForEmployees(ctx context.Context, employeeIDs []uint, from, to time.Time, includeDeleted bool) ([]models.TimeEntry, error)
	FindOverlapping(ctx context.Context, employeeID uint, start, end time.Time, excludeID uint) ([]models.TimeEntry, error)
}

type timeEntryRepository struct {
	db *gorm.DB
}

// NewTimeEntryRepository creates a new time entry repository
func NewTimeEntryRepository(db *gorm.DB) TimeEntryRepository {
	return &timeEntryRepository{db: db}
}

func (r *timeEntryRepository) FindByID(ctx context.Context, id uint, includeDeleted bool) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	db := r.db.WithContext(ctx).Preload("WorkCode")
	if !includeDeleted {
		db = db.Where("is_deleted = ?", false)
	}
	if err := db.First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *timeEntryRepository) Create(ctx context.Context, entry *models.TimeEntry) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
}

func (r *timeEntryRepository) Update(ctx context.Context, entry *models.TimeEntry) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(entry).Error
}

// ListForEmployees returns entries whose entry_date falls in [from, to], both inclusive
func (r *timeEntryRepository) ListForEmployees(ctx context.Context, employeeIDs []uint, from, to time.Time, includeDeleted bool) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	if len(employeeIDs) == 0 {
		return entries, nil
	}
	db := r.db.WithContext(ctx).
		Preload("WorkCode").
		Where("employee_id IN ?", employeeIDs).
		Where("entry_date >= ? AND entry_date <= ?", models.EntryDateOf(from), models.EntryDateOf(to))
	if !includeDeleted {
		db = db.Where("is_deleted = ?", false)
	}
	err := db.Order("employee_id ASC, entry_date ASC, start_time ASC, id ASC").Find(&entries).Error
	return entries, err
}

// FindOverlapping returns live entries of the employee intersecting [start, end)
func (r *timeEntryRepository) FindOverlapping(ctx context.Context, employeeID uint, start, end time.Time, excludeID uint) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	db := r.db.WithContext(ctx).
		Where("employee_id = ? AND is_deleted = ?", employeeID, false).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != 0 {
		db = db.Where("id <> ?", excludeID)
	}
	err := db.Order("start_time ASC").Find(&entries).Error
	return entries, err
}
