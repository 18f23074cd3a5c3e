package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sjperalta/parktime-api/internal/audit"
	"github.com/sjperalta/parktime-api/internal/config"
	"github.com/sjperalta/parktime-api/internal/database"
	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/sjperalta/parktime-api/internal/repository"
)

// testClock advances by one second on every reading so ledger order is unambiguous
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{t: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(time.Second)
	return now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	db    *gorm.DB
	repos *repository.Repositories
	svcs  *Services
	clock *testClock
	admin *models.Employee
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "parktime.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db, config.DriverSQLite))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := &config.Config{AuditDefaultLimit: 100}
	cfg.Auth.BcryptCost = 4
	cfg.Session.TTL = 8 * time.Hour

	clock := newTestClock(time.Date(2025, 3, 3, 18, 0, 0, 0, time.UTC))
	repos := repository.NewRepositories(db)
	env := &testEnv{
		db:    db,
		repos: repos,
		svcs:  NewServices(repos, cfg, clock.Now),
		clock: clock,
	}

	env.admin, err = repos.Employee.FindByUsername(context.Background(), BootstrapAdminUsername)
	require.NoError(t, err)
	return env
}

func (e *testEnv) meta() audit.Meta {
	return audit.Meta{IPAddress: "10.0.0.1", Context: "test"}
}

// employee creates an active employee through the service, as the seeded admin
func (e *testEnv) employee(t *testing.T, username, role string, managerID *uint) *models.Employee {
	t.Helper()
	emp, err := e.svcs.Employee.Create(context.Background(), e.admin, EmployeeInput{
		Username:  username,
		FirstName: username,
		LastName:  "Test",
		Role:      role,
		ManagerID: managerID,
		Password:  username + "-password",
	}, e.meta())
	require.NoError(t, err)
	return emp
}

func (e *testEnv) workCode(t *testing.T, code string) *models.WorkCode {
	t.Helper()
	wc, err := e.repos.WorkCode.FindByCode(context.Background(), code)
	require.NoError(t, err)
	return wc
}

func at(day string, clock string) time.Time {
	ts, err := time.Parse("2006-01-02 15:04", day+" "+clock)
	if err != nil {
		panic(err)
	}
	return ts
}
