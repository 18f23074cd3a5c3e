package repository

import (
	"context"

	"github.com/sjperalta/parktime-api/internal/models"
	"gorm.io/gorm"
)

// BusinessRuleRepository defines the interface for business rule data access
type BusinessRuleRepository interface {
	FindByKey(ctx context.Context, key string) (*models.BusinessRule, error)
	List(ctx context.Context) ([]models.BusinessRule, error)
	Update(ctx context.Context, rule *models.BusinessRule) error
}

type businessRuleRepository struct {
	db *gorm.DB
}

// NewBusinessRuleRepository creates a new business rule repository
func NewBusinessRuleRepository(db *gorm.DB) BusinessRuleRepository {
	return &businessRuleRepository{db: db}
}

func (r *businessRuleRepository) FindByKey(ctx context.Context, key string) (*models.BusinessRule, error) {
	var rule models.BusinessRule
	if err := r.db.WithContext(ctx).Where("rule_key = ?", key).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *businessRuleRepository) List(ctx context.Context) ([]models.BusinessRule, error) {
	var rules []models.BusinessRule
	err := r.db.WithContext(ctx).Order("rule_key ASC").Find(&rules).Error
	return rules, err
}

func (r *businessRuleRepository) Update(ctx context.Context, rule *models.BusinessRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}
