package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/parktime-api/internal/middleware"
	"github.com/sjperalta/parktime-api/internal/services"
)

type TimeEntryHandler struct {
	entryService *services.TimeEntryService
	now          func() time.Time
}

func NewTimeEntryHandler(entryService *services.TimeEntryService, now func() time.Time) *TimeEntryHandler {
	if now == nil {
		now = time.Now
	}
	return &TimeEntryHandler{entryService: entryService, now: now}
}

// employeeParam returns the employee_id query value, defaulting to the caller
func employeeParam(c *gin.Context) (uint, error) {
	v := c.Query("employee_id")
	if v == "" {
		return middleware.GetEmployeeID(c), nil
	}
	id, err := strconv.ParseUint(v, 10, 32)
	if err != nil || id == 0 {
		return 0, errInvalidEmployeeID
	}
	return uint(id), nil
}

// @Summary List Time Entries
// @Description Entries of an employee between two dates (inclusive). Defaults to the caller's current week.
// @Tags Entries
// @Produce json
// @Param employee_id query int false "Employee ID (defaults to the caller)"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Param include_deleted query bool false "Include soft-deleted entries"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /entries [get]
func (h *TimeEntryHandler) Index(c *gin.Context) {
	employeeID, err := employeeParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	weekStart, weekEnd := services.WeekBounds(h.now())
	from, err := queryDate(c, "from", weekStart)
	if err != nil {
		badRequest(c, err)
		return
	}
	to, err := queryDate(c, "to", weekEnd)
	if err != nil {
		badRequest(c, err)
		return
	}

	entries, err := h.entryService.ListForEmployee(c.Request.Context(), middleware.GetEmployee(c),
		employeeID, from, to, c.Query("include_deleted") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"employee_id": employeeID,
		"from":        from.Format(time.DateOnly),
		"to":          to.Format(time.DateOnly),
		"entries":     entries,
	})
}

// @Summary Week View
// @Description Monday to Sunday week of an employee with per-day totals
// @Tags Entries
// @Produce json
// @Param employee_id query int false "Employee ID (defaults to the caller)"
// @Param date query string false "Any day of the week (YYYY-MM-DD), defaults to today"
// @Success 200 {object} services.WeekSummary
// @Security BearerAuth
// @Router /entries/week [get]
func (h *TimeEntryHandler) Week(c *gin.Context) {
	employeeID, err := employeeParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	day, err := queryDate(c, "date", h.now())
	if err != nil {
		badRequest(c, err)
		return
	}

	summary, err := h.entryService.Week(c.Request.Context(), middleware.GetEmployee(c), employeeID, day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Get Time Entry
// @Tags Entries
// @Produce json
// @Param entry_id path int true "Entry ID"
// @Success 200 {object} models.TimeEntry
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /entries/{entry_id} [get]
func (h *TimeEntryHandler) Show(c *gin.Context) {
	id, err := paramID(c, "entry_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	entry, err := h.entryService.Get(c.Request.Context(), middleware.GetEmployee(c), id, c.Query("include_deleted") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// @Summary Create Time Entry
// @Description Records a new entry; employee_id defaults to the caller
// @Tags Entries
// @Accept json
// @Produce json
// @Param request body services.TimeEntryInput true "Entry"
// @Success 201 {object} models.TimeEntry
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /entries [post]
func (h *TimeEntryHandler) Create(c *gin.Context) {
	var req services.TimeEntryInput
	if err := BindNestedOrFlat(c, "entry", &req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.entryService.Create(c.Request.Context(), middleware.GetEmployee(c), req, auditMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// @Summary Update Time Entry
// @Description Partial edit; omitted fields are unchanged
// @Tags Entries
// @Accept json
// @Produce json
// @Param entry_id path int true "Entry ID"
// @Param request body services.TimeEntryChanges true "Changes"
// @Success 200 {object} models.TimeEntry
// @Security BearerAuth
// @Router /entries/{entry_id} [put]
func (h *TimeEntryHandler) Update(c *gin.Context) {
	id, err := paramID(c, "entry_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	var req services.TimeEntryChanges
	if err := BindNestedOrFlat(c, "entry", &req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.entryService.Update(c.Request.Context(), middleware.GetEmployee(c), id, req, auditMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// @Summary Delete Time Entry
// @Description Soft-deletes an entry
// @Tags Entries
// @Produce json
// @Param entry_id path int true "Entry ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /entries/{entry_id} [delete]
func (h *TimeEntryHandler) Delete(c *gin.Context) {
	id, err := paramID(c, "entry_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.entryService.Delete(c.Request.Context(), middleware.GetEmployee(c), id, auditMeta(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "entry deleted"})
}

// @Summary Restore Time Entry
// @Tags Entries
// @Produce json
// @Param entry_id path int true "Entry ID"
// @Success 200 {object} models.TimeEntry
// @Security BearerAuth
// @Router /entries/{entry_id}/restore [post]
func (h *TimeEntryHandler) Restore(c *gin.Context) {
	id, err := paramID(c, "entry_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	entry, err := h.entryService.Restore(c.Request.Context(), middleware.GetEmployee(c), id, auditMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}
