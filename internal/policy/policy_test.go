package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sjperalta/parktime-api/internal/models"
)

func uintPtr(v uint) *uint { return &v }

func TestIsAtLeast(t *testing.T) {
	assert.True(t, IsAtLeast(models.RoleAdmin, models.RoleManager))
	assert.True(t, IsAtLeast(models.RoleManager, models.RoleManager))
	assert.True(t, IsAtLeast(models.RoleEmployee, models.RoleEmployee))
	assert.False(t, IsAtLeast(models.RoleEmployee, models.RoleManager))
	assert.False(t, IsAtLeast(models.RoleManager, models.RoleAdmin))
	assert.False(t, IsAtLeast("contractor", models.RoleEmployee))
	assert.False(t, IsAtLeast(models.RoleAdmin, "superuser"))
}

func TestCanActOn(t *testing.T) {
	admin := &models.Employee{ID: 1, Role: models.RoleAdmin}
	director := &models.Employee{ID: 2, Role: models.RoleManager}
	bob := &models.Employee{ID: 3, Role: models.RoleManager, ManagerID: uintPtr(2)}
	alice := &models.Employee{ID: 4, Role: models.RoleEmployee, ManagerID: uintPtr(3)}
	carol := &models.Employee{ID: 5, Role: models.RoleEmployee}

	tests := []struct {
		name   string
		actor  *models.Employee
		target *models.Employee
		want   bool
	}{
		{"admin on anyone", admin, carol, true},
		{"admin on self", admin, admin, true},
		{"employee on self", alice, alice, true},
		{"employee on unrelated employee", alice, carol, false},
		{"employee on own manager", alice, bob, false},
		{"manager on direct report", bob, alice, true},
		{"manager on non-report", bob, carol, false},
		{"manager on grandchild report", director, alice, false},
		{"manager on direct report manager", director, bob, true},
		{"nil actor", nil, alice, false},
		{"nil target", admin, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanActOn(tt.actor, tt.target))
		})
	}
}

func TestCanActOnEmployeeRoleIgnoresReports(t *testing.T) {
	// an employee listed as someone's manager still gets no access without the manager role
	lead := &models.Employee{ID: 10, Role: models.RoleEmployee}
	report := &models.Employee{ID: 11, Role: models.RoleEmployee, ManagerID: uintPtr(10)}
	assert.False(t, CanActOn(lead, report))
}

func TestCheckManagerAssignment(t *testing.T) {
	// 1 <- 2 <- 3 (3 reports to 2, 2 reports to 1)
	managers := map[uint]*uint{1: nil, 2: uintPtr(1), 3: uintPtr(2), 4: nil}
	lookup := func(id uint) (*uint, error) { return managers[id], nil }

	assert.NoError(t, CheckManagerAssignment(4, 3, lookup, 10))
	assert.NoError(t, CheckManagerAssignment(3, 1, lookup, 10))
	assert.ErrorIs(t, CheckManagerAssignment(1, 3, lookup, 10), ErrManagerCycle)
	assert.ErrorIs(t, CheckManagerAssignment(2, 2, lookup, 10), ErrManagerCycle)
}

func TestCheckManagerAssignmentBoundsDepth(t *testing.T) {
	loop := map[uint]*uint{7: uintPtr(8), 8: uintPtr(7)}
	lookup := func(id uint) (*uint, error) { return loop[id], nil }
	assert.ErrorIs(t, CheckManagerAssignment(1, 7, lookup, 5), ErrManagerCycle)
}

func TestCheckManagerAssignmentPropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	lookup := func(id uint) (*uint, error) { return nil, boom }
	assert.ErrorIs(t, CheckManagerAssignment(1, 2, lookup, 5), boom)
}
