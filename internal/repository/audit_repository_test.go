package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sjperalta/parktime-api/internal/models"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Discard,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestAuditRepository_CreateInsertsOnly(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)

	mock.ExpectQuery(`INSERT INTO "audit_log"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	newValues := `{"username":"alice"}`
	entry := &models.AuditLog{
		Table:       "employees",
		RecordID:    7,
		Action:      "INSERT",
		NewValues:   &newValues,
		PerformedBy: 1,
		PerformedAt: time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.Equal(t, uint(42), entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_HistoryIsChronological(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)

	rows := sqlmock.NewRows([]string{"id", "table_name", "record_id", "action", "performed_by", "performed_at"}).
		AddRow(1, "time_entries", 9, "INSERT", 2, time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)).
		AddRow(2, "time_entries", 9, "UPDATE", 2, time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC))
	mock.ExpectQuery(`SELECT \* FROM "audit_log" WHERE .*table_name = \$1 AND record_id = \$2.* ORDER BY performed_at ASC, id ASC`).
		WithArgs("time_entries", 9).
		WillReturnRows(rows)

	history, err := repo.History(context.Background(), "time_entries", 9)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "INSERT", history[0].Action)
	assert.Equal(t, "UPDATE", history[1].Action)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_RecentIsNewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)

	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "audit_log" WHERE .*performed_at >= \$1.*table_name = \$2.* ORDER BY performed_at DESC, id DESC LIMIT \$3`).
		WithArgs(since, "employees", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Recent(context.Background(), AuditFilter{Since: since, Table: "employees", Limit: 10})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositories_TransactionRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	repos := NewRepositories(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "employees"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repos.Transaction(context.Background(), func(tx *Repositories) error {
		return tx.Employee.Create(context.Background(), &models.Employee{Username: "alice", DisplayName: "Alice", Role: models.RoleEmployee, IsActive: true})
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, isDuplicateKeyError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isDuplicateKeyError(errors.New("constraint failed: UNIQUE constraint failed: employees.username (2067)")))
	assert.True(t, isDuplicateKeyError(gorm.ErrDuplicatedKey))
	assert.False(t, isDuplicateKeyError(errors.New("connection reset")))
}
