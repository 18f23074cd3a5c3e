package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateKey is returned when an insert or update violates a unique constraint
var ErrDuplicateKey = errors.New("duplicate key")

// Repositories holds all repository instances
type Repositories struct {
	db *gorm.DB

	Employee     EmployeeRepository
	Session      SessionRepository
	TimeEntry    TimeEntryRepository
	WorkCode     WorkCodeRepository
	BusinessRule BusinessRuleRepository
	Audit        AuditRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		Employee:     NewEmployeeRepository(db),
		Session:      NewSessionRepository(db),
		TimeEntry:    NewTimeEntryRepository(db),
		WorkCode:     NewWorkCodeRepository(db),
		BusinessRule: NewBusinessRuleRepository(db),
		Audit:        NewAuditRepository(db),
	}
}

// Transaction runs fn with repositories bound to a single database transaction.
// Any error returned by fn rolls back every write made through tx, ledger rows included.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// translateError maps driver-specific unique violations to ErrDuplicateKey
func translateError(err error, what string) error {
	if err == nil {
		return nil
	}
	if isDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", what, ErrDuplicateKey)
	}
	return err
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 50,
		Filters: make(map[string]string),
	}
}

// orderBy builds an ORDER BY clause from a whitelist, falling back to def
func (q *ListQuery) orderBy(allowed map[string]bool, def string) string {
	if q == nil || !allowed[q.SortBy] {
		return def
	}
	if q.SortDir == "desc" {
		return q.SortBy + " DESC"
	}
	return q.SortBy + " ASC"
}
