package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/sjperalta/parktime-api/internal/config"
	"github.com/sjperalta/parktime-api/internal/metrics"
	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/sjperalta/parktime-api/internal/repository"
	"github.com/sjperalta/parktime-api/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultSessionTTL = 8 * time.Hour
	tokenBytes        = 32
	minPasswordLength = 8
)

// Authentication failure reasons, logged and counted but never shown to the caller
const (
	reasonUnknownUser = "unknown_user"
	reasonInactive    = "inactive"
	reasonNoPassword  = "no_password"
	reasonBadPassword = "bad_password"
)

// dummyHash is compared against when the username is unknown so that a miss costs
// the same bcrypt work as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("parktime-timing-equalizer"), bcrypt.MinCost)

// AuthService authenticates employees and manages their sessions
type AuthService struct {
	employeeRepo repository.EmployeeRepository
	sessionRepo  repository.SessionRepository
	ttl          time.Duration
	bcryptCost   int
	now          func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(employeeRepo repository.EmployeeRepository, sessionRepo repository.SessionRepository, cfg *config.Config, now func() time.Time) *AuthService {
	s := &AuthService{
		employeeRepo: employeeRepo,
		sessionRepo:  sessionRepo,
		ttl:          defaultSessionTTL,
		bcryptCost:   bcrypt.DefaultCost,
		now:          now,
	}
	if cfg != nil {
		if cfg.Session.TTL > 0 {
			s.ttl = cfg.Session.TTL
		}
		if cfg.Auth.BcryptCost > 0 {
			s.bcryptCost = cfg.Auth.BcryptCost
		}
	}
	if s.now == nil {
		s.now = systemNow
	}
	return s
}

// WithRepositories returns an auth service with the same settings that reads and
// writes through repos, typically the repositories of an open transaction.
func (s *AuthService) WithRepositories(repos *repository.Repositories) *AuthService {
	c := *s
	c.employeeRepo = repos.Employee
	c.sessionRepo = repos.Session
	return &c
}

// ClientInfo describes where a login came from
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// LoginResult represents the result of a login attempt
type LoginResult struct {
	Token     string                  `json:"token"`
	ExpiresAt time.Time               `json:"expires_at"`
	Employee  models.EmployeeResponse `json:"employee"`
}

// Authenticate checks a username and password. Unknown users and wrong passwords
// produce the same error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.Employee, error) {
	log := logger.FromContext(ctx)

	employee, err := s.employeeRepo.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, s.authFailure(ctx, username, reasonUnknownUser)
	}

	if !employee.IsActive {
		return nil, s.authFailure(ctx, username, reasonInactive)
	}
	if !employee.HasPassword() {
		return nil, s.authFailure(ctx, username, reasonNoPassword)
	}
	if !VerifyPassword(password, *employee.PasswordHash) {
		return nil, s.authFailure(ctx, username, reasonBadPassword)
	}

	metrics.AuthAttempt("success")
	log.Info("Login succeeded", "employee_id", employee.ID)
	return employee, nil
}

func (s *AuthService) authFailure(ctx context.Context, username, reason string) error {
	metrics.AuthAttempt(reason)
	logger.FromContext(ctx).Warn("Login failed", "username", models.NormalizeUsername(username), "reason", reason)
	return ErrAuthentication(reason)
}

// CreateSession issues a new session for employee
func (s *AuthService) CreateSession(ctx context.Context, employee *models.Employee, client ClientInfo) (*models.UserSession, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.UserSession{
		EmployeeID:     employee.ID,
		Token:          token,
		IssuedAt:       now,
		ExpiresAt:      now.Add(s.ttl),
		LastActivityAt: now,
		IsActive:       true,
		IPAddress:      clip(client.IPAddress, 45),
		UserAgent:      clip(client.UserAgent, 255),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Login authenticates and issues a session in one step
func (s *AuthService) Login(ctx context.Context, username, password string, client ClientInfo) (*LoginResult, error) {
	employee, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	session, err := s.CreateSession(ctx, employee, client)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Employee:  employee.ToResponse(),
	}, nil
}

// Validate resolves a token to its employee. It writes: a successful call touches
// last_activity_at, and a session found expired is deactivated before nil is returned.
// A nil employee with a nil error means the token is not (or no longer) valid.
func (s *AuthService) Validate(ctx context.Context, token string) (*models.Employee, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindActiveByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	now := s.now()
	if session.IsExpired(now) {
		changed, err := s.sessionRepo.Deactivate(ctx, session.ID, nil)
		if err != nil {
			return nil, err
		}
		if changed {
			metrics.SessionsEnded("expired", 1)
			logger.FromContext(ctx).Info("Session expired", "session_id", session.ID, "employee_id", session.EmployeeID)
		}
		return nil, nil
	}

	employee, err := s.employeeRepo.FindByID(ctx, session.EmployeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !employee.IsActive {
		return nil, nil
	}

	if err := s.sessionRepo.Touch(ctx, session.ID, now); err != nil {
		return nil, err
	}
	return employee, nil
}

// Logout ends the session behind token. It returns false if the session was
// unknown or already inactive.
func (s *AuthService) Logout(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	session, err := s.sessionRepo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if !session.IsActive {
		return false, nil
	}

	now := s.now()
	changed, err := s.sessionRepo.Deactivate(ctx, session.ID, &now)
	if err != nil {
		return false, err
	}
	if changed {
		metrics.SessionsEnded("logout", 1)
	}
	return changed, nil
}

// LogoutAll ends every active session of the employee and returns how many there were
func (s *AuthService) LogoutAll(ctx context.Context, employeeID uint) (int64, error) {
	count, err := s.sessionRepo.DeactivateAllForEmployee(ctx, employeeID, s.now())
	if err != nil {
		return 0, err
	}
	metrics.SessionsEnded("revoked", int(count))
	if count > 0 {
		logger.FromContext(ctx).Info("Sessions revoked", "employee_id", employeeID, "count", count)
	}
	return count, nil
}

// ActiveSessions lists the employee's active sessions, newest first
func (s *AuthService) ActiveSessions(ctx context.Context, employeeID uint) ([]models.UserSession, error) {
	return s.sessionRepo.ListActive(ctx, employeeID)
}

// ChangePassword replaces the employee's password after verifying the current one.
// Other sessions stay valid; the caller decides whether to revoke them.
func (s *AuthService) ChangePassword(ctx context.Context, employeeID uint, current, newPassword string) error {
	employee, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		return notFoundOr(err, "employee", employeeID)
	}
	if !employee.HasPassword() || !VerifyPassword(current, *employee.PasswordHash) {
		return &AuthenticationError{Message: ErrWrongPassword.Error(), Reason: reasonBadPassword}
	}
	return s.SetPassword(ctx, employeeID, newPassword)
}

// SetPassword stores a new password hash without checking the old one
func (s *AuthService) SetPassword(ctx context.Context, employeeID uint, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.employeeRepo.SetPasswordHash(ctx, employeeID, hash); err != nil {
		return notFoundOr(err, "employee", employeeID)
	}
	return nil
}

// HashPassword hashes a password with the configured bcrypt cost
func (s *AuthService) HashPassword(password string) (string, error) {
	return HashPassword(password, s.bcryptCost)
}

// ValidatePassword enforces the minimum password length
func ValidatePassword(password string) error {
	if len([]rune(password)) < minPasswordLength {
		return ErrValidation("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// VerifyPassword compares a password with a hash
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// generateToken returns 32 random bytes, hex encoded
func generateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func clip(v string, max int) string {
	if r := []rune(v); len(r) > max {
		return string(r[:max])
	}
	return v
}
