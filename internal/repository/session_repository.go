package repository

import (
	"context"
	"time"

	"github.com/sjperalta/parktime-api/internal/models"
	"gorm.io/gorm"
)

// SessionRepository defines the interface for session data access
type SessionRepository interface {
	Create(ctx context.Context, session *models.UserSession) error
	FindByToken(ctx context.Context, token string) (*models.UserSession, error)
	FindActiveByToken(ctx context.Context, token string) (*models.UserSession, error)
	Touch(ctx context.Context, id uint, at time.Time) error
	Deactivate(ctx context.Context, id uint, revokedAt *time.Time) (bool, error)
	DeactivateAllForEmployee(ctx context.Context, employeeID uint, revokedAt time.Time) (int64, error)
	ListActive(ctx context.Context, employeeID uint) ([]models.UserSession, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.UserSession) error {
	return translateError(r.db.WithContext(ctx).Create(session).Error, "session")
}

func (r *sessionRepository) FindByToken(ctx context.Context, token string) (*models.UserSession, error) {
	var session models.UserSession
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindActiveByToken(ctx context.Context, token string) (*models.UserSession, error) {
	var session models.UserSession
	err := r.db.WithContext(ctx).
		Where("token = ? AND is_active = ?", token, true).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Touch(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("id = ?", id).
		Update("last_activity_at", at).Error
}

// Deactivate flips an active session to inactive. It reports false when the
// session was already inactive, so the transition happens at most once.
func (r *sessionRepository) Deactivate(ctx context.Context, id uint, revokedAt *time.Time) (bool, error) {
	updates := map[string]interface{}{"is_active": false}
	if revokedAt != nil {
		updates["revoked_at"] = *revokedAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

func (r *sessionRepository) DeactivateAllForEmployee(ctx context.Context, employeeID uint, revokedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("employee_id = ? AND is_active = ?", employeeID, true).
		Updates(map[string]interface{}{"is_active": false, "revoked_at": revokedAt})
	return result.RowsAffected, result.Error
}

func (r *sessionRepository) ListActive(ctx context.Context, employeeID uint) ([]models.UserSession, error) {
	var sessions []models.UserSession
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND is_active = ?", employeeID, true).
		Order("issued_at DESC").
		Find(&sessions).Error
	return sessions, err
}
