package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjperalta/parktime-api/internal/audit"
	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/sjperalta/parktime-api/internal/repository"
)

func TestEmployeeService_CreateIsAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice, err := env.svcs.Employee.Create(ctx, env.admin, EmployeeInput{
		Username:  "  Alice ",
		FirstName: "Alice",
		LastName:  "Ng",
		Email:     "Alice@Example.gov",
		Role:      models.RoleEmployee,
		Password:  "correct-horse",
	}, env.meta())
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Username)
	assert.Equal(t, "Alice Ng", alice.DisplayName)
	assert.Equal(t, "alice@example.gov", alice.Email)
	assert.True(t, alice.IsActive)

	history, err := env.svcs.Audit.History(ctx, "employees", alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	rec := history[0]
	assert.Equal(t, audit.ActionInsert, rec.Action)
	assert.Equal(t, env.admin.ID, rec.PerformedBy)
	assert.Nil(t, rec.OldValues)
	require.NotNil(t, rec.IPAddress)
	assert.Equal(t, "10.0.0.1", *rec.IPAddress)

	values, err := rec.NewSnapshot()
	require.NoError(t, err)
	assert.Equal(t, "alice", values["username"])
	assert.Equal(t, "employee", values["role"])
	assert.Equal(t, true, values["is_active"])
	assert.NotContains(t, values, "password_hash")

	_, err = env.svcs.Employee.Create(ctx, env.admin, EmployeeInput{Username: "ALICE"}, env.meta())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "already taken")

	_, err = env.svcs.Employee.Create(ctx, alice, EmployeeInput{Username: "mallory"}, env.meta())
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestEmployeeService_ManagerAssignment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.employee(t, "bob", models.RoleManager, nil)
	dana := env.employee(t, "dana", models.RoleManager, &bob.ID)
	alice := env.employee(t, "alice", models.RoleEmployee, &dana.ID)

	var verr *ValidationError

	// A plain employee cannot manage anyone
	_, err := env.svcs.Employee.Update(ctx, env.admin, dana.ID, EmployeeChanges{ManagerID: &alice.ID}, env.meta())
	require.ErrorAs(t, err, &verr)

	// bob → dana → bob would be a cycle
	_, err = env.svcs.Employee.Update(ctx, env.admin, bob.ID, EmployeeChanges{ManagerID: &dana.ID}, env.meta())
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "cycle")

	// Self management is a cycle too
	_, err = env.svcs.Employee.Update(ctx, env.admin, bob.ID, EmployeeChanges{ManagerID: &bob.ID}, env.meta())
	require.ErrorAs(t, err, &verr)

	updated, err := env.svcs.Employee.Update(ctx, env.admin, alice.ID, EmployeeChanges{ManagerID: &bob.ID}, env.meta())
	require.NoError(t, err)
	require.NotNil(t, updated.ManagerID)
	assert.Equal(t, bob.ID, *updated.ManagerID)

	history, err := env.svcs.Audit.History(ctx, "employees", alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []string{"manager_id"}, history[1].FieldList())

	cleared, err := env.svcs.Employee.Update(ctx, env.admin, alice.ID, EmployeeChanges{ClearManager: true}, env.meta())
	require.NoError(t, err)
	assert.Nil(t, cleared.ManagerID)
}

func TestEmployeeService_SelfProtection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	role := models.RoleEmployee
	_, err := env.svcs.Employee.Update(ctx, env.admin, env.admin.ID, EmployeeChanges{Role: &role}, env.meta())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = env.svcs.Employee.Deactivate(ctx, env.admin, env.admin.ID, env.meta())
	require.ErrorAs(t, err, &verr)
}

func TestEmployeeService_DeactivateRevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.employee(t, "alice", models.RoleEmployee, nil)

	result, err := env.svcs.Auth.Login(ctx, "alice", "alice-password", ClientInfo{IPAddress: "10.0.0.2"})
	require.NoError(t, err)

	employee, err := env.svcs.Auth.Validate(ctx, result.Token)
	require.NoError(t, err)
	require.NotNil(t, employee)

	deactivated, err := env.svcs.Employee.Deactivate(ctx, env.admin, alice.ID, env.meta())
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	employee, err = env.svcs.Auth.Validate(ctx, result.Token)
	require.NoError(t, err)
	assert.Nil(t, employee)

	sessions, err := env.svcs.Auth.ActiveSessions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = env.svcs.Auth.Login(ctx, "alice", "alice-password", ClientInfo{})
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestEmployeeService_ResetPasswordIsNotAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.employee(t, "alice", models.RoleEmployee, nil)

	_, err := env.svcs.Auth.Login(ctx, "alice", "alice-password", ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, env.svcs.Employee.ResetPassword(ctx, env.admin, alice.ID, "brand-new-pass"))

	sessions, err := env.svcs.Auth.ActiveSessions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = env.svcs.Auth.Login(ctx, "alice", "brand-new-pass", ClientInfo{})
	require.NoError(t, err)

	history, err := env.svcs.Audit.History(ctx, "employees", alice.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestEmployeeService_BootstrapAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svcs.Employee.BootstrapAdmin(ctx, ""))
	require.NoError(t, env.svcs.Employee.BootstrapAdmin(ctx, "first-admin-pass"))
	_, err := env.svcs.Auth.Login(ctx, "admin", "first-admin-pass", ClientInfo{})
	require.NoError(t, err)

	// A second boot with a different value leaves the password alone
	require.NoError(t, env.svcs.Employee.BootstrapAdmin(ctx, "second-admin-pass"))
	_, err = env.svcs.Auth.Login(ctx, "admin", "first-admin-pass", ClientInfo{})
	require.NoError(t, err)
}

func TestEmployeeService_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.employee(t, "bob", models.RoleManager, nil)
	alice := env.employee(t, "alice", models.RoleEmployee, &bob.ID)
	carol := env.employee(t, "carol", models.RoleEmployee, nil)

	got, err := env.svcs.Employee.Get(ctx, bob, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = env.svcs.Employee.Get(ctx, bob, carol.ID)
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)

	reports, err := env.svcs.Employee.DirectReports(ctx, bob, bob.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, alice.ID, reports[0].ID)

	_, err = env.svcs.Employee.DirectReports(ctx, alice, bob.ID)
	require.ErrorAs(t, err, &authErr)

	q := repository.NewListQuery()
	q.Filters["role"] = models.RoleEmployee
	list, total, err := env.svcs.Employee.List(ctx, env.admin, q)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)
}

func TestEmployeeService_RevokeFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.employee(t, "alice", models.RoleEmployee, nil)

	_, err := env.svcs.Auth.Login(ctx, "alice", "alice-password", ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, env.db.Exec(`CREATE TRIGGER user_sessions_locked BEFORE UPDATE ON user_sessions
		BEGIN SELECT RAISE(ABORT, 'sessions locked'); END`).Error)

	err = env.svcs.Employee.ResetPassword(ctx, env.admin, alice.ID, "brand-new-pass")
	require.Error(t, err)
	_, err = env.svcs.Auth.Authenticate(ctx, "alice", "alice-password")
	assert.NoError(t, err, "password must be unchanged when sessions could not be revoked")

	_, err = env.svcs.Employee.Deactivate(ctx, env.admin, alice.ID, env.meta())
	require.Error(t, err)
	current, err := env.repos.Employee.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, current.IsActive)

	history, err := env.svcs.Audit.History(ctx, "employees", alice.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	require.NoError(t, env.db.Exec("DROP TRIGGER user_sessions_locked").Error)
	sessions, err := env.svcs.Auth.ActiveSessions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
