package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/parktime-api/internal/middleware"
	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/sjperalta/parktime-api/internal/repository"
	"github.com/sjperalta/parktime-api/internal/services"
)

type EmployeeHandler struct {
	employeeService *services.EmployeeService
}

func NewEmployeeHandler(employeeService *services.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{employeeService: employeeService}
}

func toResponses(employees []models.Employee) []models.EmployeeResponse {
	responses := make([]models.EmployeeResponse, 0, len(employees))
	for i := range employees {
		responses = append(responses, employees[i].ToResponse())
	}
	return responses
}

// @Summary List Employees
// @Description Paginated employee list (admin)
// @Tags Employees
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Param search_term query string false "Search by username or name"
// @Param role query string false "Filter by role"
// @Param active query string false "true | false"
// @Param manager_id query int false "Filter by manager"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/employees [get]
func (h *EmployeeHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page = queryInt(c, "page", 1)
	query.PerPage = queryInt(c, "per_page", 50)
	query.Search = c.Query("search_term")
	query.SortBy = c.Query("sort_by")
	query.SortDir = c.Query("sort_dir")
	query.Filters["role"] = c.Query("role")
	query.Filters["active"] = c.Query("active")
	query.Filters["manager_id"] = c.Query("manager_id")

	employees, total, err := h.employeeService.List(c.Request.Context(), middleware.GetEmployee(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	totalPages := int64(0)
	if query.PerPage > 0 {
		totalPages = (total + int64(query.PerPage) - 1) / int64(query.PerPage)
	}
	c.JSON(http.StatusOK, gin.H{
		"employees": toResponses(employees),
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

// @Summary Get Employee
// @Tags Employees
// @Produce json
// @Param employee_id path int true "Employee ID"
// @Success 200 {object} models.EmployeeResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /admin/employees/{employee_id} [get]
func (h *EmployeeHandler) Show(c *gin.Context) {
	id, err := paramID(c, "employee_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	employee, err := h.employeeService.Get(c.Request.Context(), middleware.GetEmployee(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employee": employee.ToResponse()})
}

// @Summary Create Employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param request body services.EmployeeInput true "Employee"
// @Success 201 {object} models.EmployeeResponse
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /admin/employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req services.EmployeeInput
	if err := BindNestedOrFlat(c, "employee", &req); err != nil {
		badRequest(c, err)
		return
	}

	employee, err := h.employeeService.Create(c.Request.Context(), middleware.GetEmployee(c), req, auditMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"employee": employee.ToResponse()})
}

// @Summary Update Employee
// @Description Partial edit; omitted fields are unchanged
// @Tags Employees
// @Accept json
// @Produce json
// @Param employee_id path int true "Employee ID"
// @Param request body services.EmployeeChanges true "Changes"
// @Success 200 {object} models.EmployeeResponse
// @Security BearerAuth
// @Router /admin/employees/{employee_id} [put]
func (h *EmployeeHandler) Update(c *gin.Context) {
	id, err := paramID(c, "employee_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	var req services.EmployeeChanges
	if err := BindNestedOrFlat(c, "employee", &req); err != nil {
		badRequest(c, err)
		return
	}

	employee, err := h.employeeService.Update(c.Request.Context(), middleware.GetEmployee(c), id, req, auditMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employee": employee.ToResponse()})
}

// @Summary Deactivate Employee
// @Description Deactivates the account and ends all of its sessions
// @Tags Employees
// @Produce json
// @Param employee_id path int true "Employee ID"
// @Success 200 {object} models.EmployeeResponse
// @Security BearerAuth
// @Router /admin/employees/{employee_id}/deactivate [post]
func (h *EmployeeHandler) Deactivate(c *gin.Context) {
	id, err := paramID(c, "employee_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	employee, err := h.employeeService.Deactivate(c.Request.Context(), middleware.GetEmployee(c), id, auditMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employee": employee.ToResponse()})
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// @Summary Reset Password
// @Description Sets a new password and ends all of the employee's sessions
// @Tags Employees
// @Accept json
// @Produce json
// @Param employee_id path int true "Employee ID"
// @Param request body ResetPasswordRequest true "New password"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /admin/employees/{employee_id}/password [post]
func (h *EmployeeHandler) ResetPassword(c *gin.Context) {
	id, err := paramID(c, "employee_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.employeeService.ResetPassword(c.Request.Context(), middleware.GetEmployee(c), id, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset"})
}

// @Summary Direct Reports
// @Description Direct reports of a manager; managers may only list their own
// @Tags Team
// @Produce json
// @Param manager_id query int false "Manager ID (defaults to the caller)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /team/reports [get]
func (h *EmployeeHandler) DirectReports(c *gin.Context) {
	managerID := middleware.GetEmployeeID(c)
	if v := c.Query("manager_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid manager_id"})
			return
		}
		managerID = uint(id)
	}

	reports, err := h.employeeService.DirectReports(c.Request.Context(), middleware.GetEmployee(c), managerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"manager_id": managerID, "employees": toResponses(reports)})
}
