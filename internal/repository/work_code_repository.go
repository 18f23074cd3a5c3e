package repository

import (
	"context"
	"strings"

	"github.com/sjperalta/parktime-api/internal/models"
	"gorm.io/gorm"
)

// WorkCodeRepository defines the interface for work code data access
type WorkCodeRepository interface {
	FindByID(ctx context.Context, id uint) (*models.WorkCode, error)
	FindByCode(ctx context.Context, code string) (*models.WorkCode, error)
	Create(ctx context.Context, code *models.WorkCode) error
	Update(ctx context.Context, code *models.WorkCode) error
	List(ctx context.Context, activeOnly bool) ([]models.WorkCode, error)
}

type workCodeRepository struct {
	db *gorm.DB
}

// NewWorkCodeRepository creates a new work code repository
func NewWorkCodeRepository(db *gorm.DB) WorkCodeRepository {
	return &workCodeRepository{db: db}
}

func (r *workCodeRepository) FindByID(ctx context.Context, id uint) (*models.WorkCode, error) {
	var code models.WorkCode
	if err := r.db.WithContext(ctx).First(&code, id).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *workCodeRepository) FindByCode(ctx context.Context, code string) (*models.WorkCode, error) {
	var wc models.WorkCode
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&wc).Error
	if err != nil {
		return nil, err
	}
	return &wc, nil
}

func (r *workCodeRepository) Create(ctx context.Context, code *models.WorkCode) error {
	return translateError(r.db.WithContext(ctx).Create(code).Error, "work code")
}

func (r *workCodeRepository) Update(ctx context.Context, code *models.WorkCode) error {
	return translateError(r.db.WithContext(ctx).Save(code).Error, "work code")
}

func (r *workCodeRepository) List(ctx context.Context, activeOnly bool) ([]models.WorkCode, error) {
	var codes []models.WorkCode
	db := r.db.WithContext(ctx)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("sort_order ASC, code ASC").Find(&codes).Error
	return codes, err
}
