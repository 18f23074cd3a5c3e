package repository

import (
	"context"
	"time"

	"github.com/sjperalta/parktime-api/internal/models"
	"gorm.io/gorm"
)

// AuditRepository is insert-only: ledger rows are never updated or deleted.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	FindByID(ctx context.Context, id uint) (*models.AuditLog, error)
	History(ctx context.Context, table string, recordID uint) ([]models.AuditLog, error)
	ByActor(ctx context.Context, actorID uint, limit, offset int) ([]models.AuditLog, error)
	Recent(ctx context.Context, filter AuditFilter) ([]models.AuditLog, error)
	InRange(ctx context.Context, from, to time.Time, table string) ([]models.AuditLog, error)
	DistinctTables(ctx context.Context) ([]string, error)
	DistinctActions(ctx context.Context) ([]string, error)
}

// AuditFilter narrows Recent; empty fields are ignored
type AuditFilter struct {
	Since  time.Time
	Table  string
	Action string
	Limit  int
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) FindByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	var entry models.AuditLog
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *auditRepository) History(ctx context.Context, table string, recordID uint) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("table_name = ? AND record_id = ?", table, recordID).
		Order("performed_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *auditRepository) ByActor(ctx context.Context, actorID uint, limit, offset int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	db := r.db.WithContext(ctx).
		Where("performed_by = ?", actorID).
		Order("performed_at DESC, id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}
	err := db.Find(&entries).Error
	return entries, err
}

func (r *auditRepository) Recent(ctx context.Context, filter AuditFilter) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	db := r.db.WithContext(ctx).Where("performed_at >= ?", filter.Since)
	if filter.Table != "" {
		db = db.Where("table_name = ?", filter.Table)
	}
	if filter.Action != "" {
		db = db.Where("action = ?", filter.Action)
	}
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}
	err := db.Order("performed_at DESC, id DESC").Find(&entries).Error
	return entries, err
}

// InRange returns records performed in [from, to), oldest first
func (r *auditRepository) InRange(ctx context.Context, from, to time.Time, table string) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	db := r.db.WithContext(ctx).Where("performed_at >= ? AND performed_at < ?", from, to)
	if table != "" {
		db = db.Where("table_name = ?", table)
	}
	err := db.Order("performed_at ASC, id ASC").Find(&entries).Error
	return entries, err
}

func (r *auditRepository) DistinctTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := r.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Distinct().
		Order("table_name ASC").
		Pluck("table_name", &tables).Error
	return tables, err
}

func (r *auditRepository) DistinctActions(ctx context.Context) ([]string, error) {
	var actions []string
	err := r.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Distinct().
		Order("action ASC").
		Pluck("action", &actions).Error
	return actions, err
}
