package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/parktime-api/internal/middleware"
	"github.com/sjperalta/parktime-api/internal/services"
)

var errInvalidEmployeeID = errors.New("invalid employee_id")

type TeamHandler struct {
	teamService *services.TeamService
	now         func() time.Time
}

func NewTeamHandler(teamService *services.TeamService, now func() time.Time) *TeamHandler {
	if now == nil {
		now = time.Now
	}
	return &TeamHandler{teamService: teamService, now: now}
}

// @Summary Team Overview
// @Description Week of the caller's active direct reports, optionally narrowed to one employee
// @Tags Team
// @Produce json
// @Param week_of query string false "Any day of the week (YYYY-MM-DD), defaults to today"
// @Param employee_id query int false "Only this direct report"
// @Success 200 {object} services.TeamOverview
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /team [get]
func (h *TeamHandler) Index(c *gin.Context) {
	weekOf, err := queryDate(c, "week_of", h.now())
	if err != nil {
		badRequest(c, err)
		return
	}

	var employeeID *uint
	if c.Query("employee_id") != "" {
		id, err := employeeParam(c)
		if err != nil {
			badRequest(c, err)
			return
		}
		employeeID = &id
	}

	overview, err := h.teamService.Overview(c.Request.Context(), middleware.GetEmployee(c), weekOf, employeeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
