// Package policy answers whether an actor may act on another employee's records.
// Visibility through the management tree is one level deep: a manager sees direct
// reports only, never their reports' reports.
package policy

import (
	"errors"

	"github.com/sjperalta/parktime-api/internal/models"
)

var roleRank = map[string]int{
	models.RoleEmployee: 0,
	models.RoleManager:  1,
	models.RoleAdmin:    2,
}

// Rank returns the capability level of role; unknown roles rank below employee.
func Rank(role string) int {
	if r, ok := roleRank[role]; ok {
		return r
	}
	return -1
}

// IsAtLeast reports whether role carries at least the capability of threshold.
func IsAtLeast(role, threshold string) bool {
	t, ok := roleRank[threshold]
	if !ok {
		return false
	}
	return Rank(role) >= t
}

// CanActOn decides whether actor may act on records owned by target.
func CanActOn(actor, target *models.Employee) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.Role == models.RoleAdmin {
		return true
	}
	if actor.ID == target.ID {
		return true
	}
	if actor.Role == models.RoleManager && IsDirectReport(actor.ID, target) {
		return true
	}
	return false
}

// IsDirectReport reports whether target's manager is managerID.
func IsDirectReport(managerID uint, target *models.Employee) bool {
	return target.ManagerID != nil && *target.ManagerID == managerID
}

// ErrManagerCycle is returned when a manager assignment would close a loop.
var ErrManagerCycle = errors.New("manager assignment would create a reporting cycle")

// ManagerLookup returns the manager id of an employee (nil when none).
type ManagerLookup func(employeeID uint) (*uint, error)

// CheckManagerAssignment walks up from managerID and rejects the assignment if it
// reaches employeeID. The walk is bounded by maxDepth so corrupt data cannot loop forever.
func CheckManagerAssignment(employeeID, managerID uint, lookup ManagerLookup, maxDepth int) error {
	if employeeID == managerID {
		return ErrManagerCycle
	}
	current := managerID
	for depth := 0; depth < maxDepth; depth++ {
		next, err := lookup(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		if *next == employeeID {
			return ErrManagerCycle
		}
		current = *next
	}
	return ErrManagerCycle
}
