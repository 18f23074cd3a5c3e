package services

import (
	"context"
	"strings"

	"github.com/sjperalta/parktime-api/internal/audit"
	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/sjperalta/parktime-api/internal/repository"
	"github.com/sjperalta/parktime-api/pkg/logger"
)

// WorkCodeService manages the work codes hours are booked against
type WorkCodeService struct {
	repos *repository.Repositories
	audit *AuditService
}

// NewWorkCodeService creates a new work code service
func NewWorkCodeService(repos *repository.Repositories, auditSvc *AuditService) *WorkCodeService {
	return &WorkCodeService{repos: repos, audit: auditSvc}
}

// WorkCodeInput holds the fields of a new work code
type WorkCodeInput struct {
	Code        string `json:"code" binding:"required,max=20"`
	Description string `json:"description" binding:"required,max=100"`
	CodeType    string `json:"code_type" binding:"required"`
	SortOrder   int    `json:"sort_order"`
}

// WorkCodeChanges holds a partial edit. The code itself is immutable.
type WorkCodeChanges struct {
	Description *string `json:"description" binding:"omitempty,max=100"`
	CodeType    *string `json:"code_type"`
	SortOrder   *int    `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

// List returns work codes ordered for display
func (s *WorkCodeService) List(ctx context.Context, activeOnly bool) ([]models.WorkCode, error) {
	return s.repos.WorkCode.List(ctx, activeOnly)
}

// Get returns a single work code
func (s *WorkCodeService) Get(ctx context.Context, id uint) (*models.WorkCode, error) {
	code, err := s.repos.WorkCode.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "work code", id)
	}
	return code, nil
}

// Create adds an active work code
func (s *WorkCodeService) Create(ctx context.Context, actor *models.Employee, in WorkCodeInput, meta audit.Meta) (*models.WorkCode, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	code := &models.WorkCode{
		Code:        strings.ToUpper(strings.TrimSpace(in.Code)),
		Description: strings.TrimSpace(in.Description),
		CodeType:    in.CodeType,
		SortOrder:   in.SortOrder,
		IsActive:    true,
		CreatedBy:   &actor.ID,
	}
	if code.Code == "" {
		return nil, ErrValidation("code is required")
	}
	if code.Description == "" {
		return nil, ErrValidation("description is required")
	}
	if !models.IsValidCodeType(code.CodeType) {
		return nil, ErrValidation("invalid code type %q", in.CodeType)
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		now := s.audit.Stamp()
		code.CreatedAt = now
		if err := tx.WorkCode.Create(ctx, code); err != nil {
			return duplicateOr(err, "work code %s already exists", code.Code)
		}
		_, err := s.audit.WithRepository(tx.Audit).LogInsert(ctx, code, stampMeta(meta, actor, now))
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Work code created", "work_code_id", code.ID, "code", code.Code, "actor_id", actor.ID)
	return code, nil
}

// Update applies changes to a work code
func (s *WorkCodeService) Update(ctx context.Context, actor *models.Employee, id uint, changes WorkCodeChanges, meta audit.Meta) (*models.WorkCode, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var code *models.WorkCode
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		code, err = tx.WorkCode.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "work code", id)
		}
		before, err := audit.Capture(code)
		if err != nil {
			return err
		}

		if changes.Description != nil {
			d := strings.TrimSpace(*changes.Description)
			if d == "" {
				return ErrValidation("description is required")
			}
			code.Description = d
		}
		if changes.CodeType != nil {
			if !models.IsValidCodeType(*changes.CodeType) {
				return ErrValidation("invalid code type %q", *changes.CodeType)
			}
			code.CodeType = *changes.CodeType
		}
		if changes.SortOrder != nil {
			code.SortOrder = *changes.SortOrder
		}
		if changes.IsActive != nil {
			code.IsActive = *changes.IsActive
		}

		after, err := audit.Capture(code)
		if err != nil {
			return err
		}
		if audit.Equal(before, after) {
			return nil
		}
		if err := tx.WorkCode.Update(ctx, code); err != nil {
			return err
		}
		_, err = s.audit.WithRepository(tx.Audit).LogUpdate(ctx, before, code, stampMeta(meta, actor, s.audit.Stamp()))
		return err
	})
	if err != nil {
		return nil, err
	}
	return code, nil
}

// SetActive enables or retires a work code. Existing entries keep their code.
func (s *WorkCodeService) SetActive(ctx context.Context, actor *models.Employee, id uint, active bool, meta audit.Meta) (*models.WorkCode, error) {
	return s.Update(ctx, actor, id, WorkCodeChanges{IsActive: &active}, meta)
}
