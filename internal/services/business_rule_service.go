package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sjperalta/parktime-api/internal/audit"
	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/sjperalta/parktime-api/internal/repository"
	"github.com/sjperalta/parktime-api/pkg/logger"
	"gorm.io/gorm"
)

// BusinessRuleService reads and edits the admin-configurable rules
type BusinessRuleService struct {
	repos *repository.Repositories
	audit *AuditService
}

// NewBusinessRuleService creates a new business rule service
func NewBusinessRuleService(repos *repository.Repositories, auditSvc *AuditService) *BusinessRuleService {
	return &BusinessRuleService{repos: repos, audit: auditSvc}
}

// List returns every rule
func (s *BusinessRuleService) List(ctx context.Context) ([]models.BusinessRule, error) {
	return s.repos.BusinessRule.List(ctx)
}

// Get returns a rule by key
func (s *BusinessRuleService) Get(ctx context.Context, key string) (*models.BusinessRule, error) {
	rule, err := s.repos.BusinessRule.FindByKey(ctx, key)
	if err != nil {
		return nil, notFoundOr(err, "business rule", key)
	}
	return rule, nil
}

// Update sets a rule's value after checking it against the rule's type
func (s *BusinessRuleService) Update(ctx context.Context, actor *models.Employee, key, value string, meta audit.Meta) (*models.BusinessRule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var rule *models.BusinessRule
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		rule, err = tx.BusinessRule.FindByKey(ctx, key)
		if err != nil {
			return notFoundOr(err, "business rule", key)
		}
		normalized, err := NormalizeRuleValue(rule, value)
		if err != nil {
			return err
		}
		if normalized == rule.RuleValue {
			return nil
		}

		before, err := audit.Capture(rule)
		if err != nil {
			return err
		}
		now := s.audit.Stamp()
		rule.RuleValue = normalized
		rule.ModifiedAt = &now
		rule.ModifiedBy = &actor.ID
		if err := tx.BusinessRule.Update(ctx, rule); err != nil {
			return err
		}
		_, err = s.audit.WithRepository(tx.Audit).LogUpdate(ctx, before, rule, stampMeta(meta, actor, now))
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Business rule updated", "rule_key", key, "value", rule.RuleValue, "actor_id", actor.ID)
	return rule, nil
}

// NormalizeRuleValue validates value against the rule's type and returns the form
// it is stored in.
func NormalizeRuleValue(rule *models.BusinessRule, value string) (string, error) {
	v := strings.TrimSpace(value)
	switch rule.ValueType {
	case models.ValueTypeInteger:
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", ErrValidation("%s must be a whole number", rule.RuleKey)
		}
		return strconv.Itoa(n), nil
	case models.ValueTypeDecimal:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return "", ErrValidation("%s must be a number", rule.RuleKey)
		}
		return v, nil
	case models.ValueTypeBoolean:
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			return "true", nil
		case "false", "0", "no":
			return "false", nil
		}
		return "", ErrValidation("%s must be true or false", rule.RuleKey)
	case models.ValueTypeChoice:
		options := rule.Options()
		for _, o := range options {
			if strings.EqualFold(o, v) {
				return o, nil
			}
		}
		return "", ErrValidation("%s must be one of: %s", rule.RuleKey, strings.Join(options, ", "))
	default:
		if v == "" {
			return "", ErrValidation("%s cannot be empty", rule.RuleKey)
		}
		return v, nil
	}
}

// String returns the raw value of key, or def when the rule is missing
func (s *BusinessRuleService) String(ctx context.Context, key, def string) (string, error) {
	rule, err := s.repos.BusinessRule.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return def, nil
		}
		return "", err
	}
	return rule.RuleValue, nil
}

// Int returns the integer value of key, or def when the rule is missing or malformed
func (s *BusinessRuleService) Int(ctx context.Context, key string, def int) (int, error) {
	raw, err := s.String(ctx, key, "")
	if err != nil || raw == "" {
		return def, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger.FromContext(ctx).Warn("Malformed integer rule", "rule_key", key, "value", raw)
		return def, nil
	}
	return n, nil
}

// Bool returns the boolean value of key, or def when the rule is missing or malformed
func (s *BusinessRuleService) Bool(ctx context.Context, key string, def bool) (bool, error) {
	raw, err := s.String(ctx, key, "")
	if err != nil || raw == "" {
		return def, err
	}
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	logger.FromContext(ctx).Warn("Malformed boolean rule", "rule_key", key, "value", raw)
	return def, nil
}
