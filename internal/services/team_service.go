package services

import (
	"context"
	"time"

	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/sjperalta/parktime-api/internal/policy"
	"github.com/sjperalta/parktime-api/internal/repository"
)

// TeamService gives managers a weekly view of their direct reports
type TeamService struct {
	repos *repository.Repositories
}

// NewTeamService creates a new team service
func NewTeamService(repos *repository.Repositories) *TeamService {
	return &TeamService{repos: repos}
}

// TeamMember is one report's week
type TeamMember struct {
	Employee   models.EmployeeResponse `json:"employee"`
	TotalHours float64                 `json:"total_hours"`
	Entries    []models.TimeEntry      `json:"entries"`
}

// TeamOverview is the manager's week view
type TeamOverview struct {
	WeekStart  string       `json:"week_start"`
	WeekEnd    string       `json:"week_end"`
	TotalHours float64      `json:"total_hours"`
	Members    []TeamMember `json:"members"`
}

// Overview returns the active direct reports of actor and their entries for the
// Monday–Sunday week containing weekOf. A non-nil employeeID narrows it to one report.
func (s *TeamService) Overview(ctx context.Context, actor *models.Employee, weekOf time.Time, employeeID *uint) (*TeamOverview, error) {
	if actor == nil || !policy.IsAtLeast(actor.Role, models.RoleManager) {
		return nil, ErrForbidden("manager access required")
	}

	reports, err := s.repos.Employee.DirectReports(ctx, actor.ID, true)
	if err != nil {
		return nil, err
	}
	if employeeID != nil {
		var only []models.Employee
		for _, r := range reports {
			if r.ID == *employeeID {
				only = append(only, r)
			}
		}
		if len(only) == 0 {
			return nil, ErrForbidden("employee %d is not one of your direct reports", *employeeID)
		}
		reports = only
	}

	start, end := WeekBounds(weekOf)
	overview := &TeamOverview{
		WeekStart: start.Format(time.DateOnly),
		WeekEnd:   end.Format(time.DateOnly),
		Members:   make([]TeamMember, 0, len(reports)),
	}

	ids := make([]uint, len(reports))
	index := make(map[uint]int, len(reports))
	for i := range reports {
		ids[i] = reports[i].ID
		index[reports[i].ID] = i
		overview.Members = append(overview.Members, TeamMember{
			Employee: reports[i].ToResponse(),
			Entries:  []models.TimeEntry{},
		})
	}

	entries, err := s.repos.TimeEntry.ListForEmployees(ctx, ids, start, end, false)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		m := &overview.Members[index[e.EmployeeID]]
		m.Entries = append(m.Entries, e)
		m.TotalHours = roundHours(m.TotalHours + e.Hours)
	}
	for _, m := range overview.Members {
		overview.TotalHours = roundHours(overview.TotalHours + m.TotalHours)
	}
	return overview, nil
}
