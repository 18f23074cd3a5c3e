package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/parktime-api/internal/middleware"
	"github.com/sjperalta/parktime-api/internal/services"
)

type WorkCodeHandler struct {
	workCodeService *services.WorkCodeService
}

func NewWorkCodeHandler(workCodeService *services.WorkCodeService) *WorkCodeHandler {
	return &WorkCodeHandler{workCodeService: workCodeService}
}

// @Summary List Work Codes
// @Description Active work codes; admins may pass all=true to include inactive ones
// @Tags WorkCodes
// @Produce json
// @Param all query bool false "Include inactive codes (admin)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /work-codes [get]
func (h *WorkCodeHandler) Index(c *gin.Context) {
	employee := middleware.GetEmployee(c)
	activeOnly := !(c.Query("all") == "true" && employee != nil && employee.IsAdmin())

	codes, err := h.workCodeService.List(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"work_codes": codes})
}

// @Summary Create Work Code
// @Tags WorkCodes
// @Accept json
// @Produce json
// @Param request body services.WorkCodeInput true "Work code"
// @Success 201 {object} models.WorkCode
// @Security BearerAuth
// @Router /admin/work-codes [post]
func (h *WorkCodeHandler) Create(c *gin.Context) {
	var req services.WorkCodeInput
	if err := BindNestedOrFlat(c, "work_code", &req); err != nil {
		badRequest(c, err)
		return
	}
	code, err := h.workCodeService.Create(c.Request.Context(), middleware.GetEmployee(c), req, auditMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"work_code": code})
}

// @Summary Update Work Code
// @Tags WorkCodes
// @Accept json
// @Produce json
// @Param work_code_id path int true "Work code ID"
// @Param request body services.WorkCodeChanges true "Changes"
// @Success 200 {object} models.WorkCode
// @Security BearerAuth
// @Router /admin/work-codes/{work_code_id} [put]
func (h *WorkCodeHandler) Update(c *gin.Context) {
	id, err := paramID(c, "work_code_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	var req services.WorkCodeChanges
	if err := BindNestedOrFlat(c, "work_code", &req); err != nil {
		badRequest(c, err)
		return
	}
	code, err := h.workCodeService.Update(c.Request.Context(), middleware.GetEmployee(c), id, req, auditMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"work_code": code})
}

type BusinessRuleHandler struct {
	ruleService *services.BusinessRuleService
}

func NewBusinessRuleHandler(ruleService *services.BusinessRuleService) *BusinessRuleHandler {
	return &BusinessRuleHandler{ruleService: ruleService}
}

// @Summary List Business Rules
// @Tags Rules
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/rules [get]
func (h *BusinessRuleHandler) Index(c *gin.Context) {
	rules, err := h.ruleService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

type UpdateRuleRequest struct {
	Value string `json:"value" binding:"required"`
}

// @Summary Update Business Rule
// @Description Value is checked against the rule's type and normalised
// @Tags Rules
// @Accept json
// @Produce json
// @Param rule_key path string true "Rule key"
// @Param request body UpdateRuleRequest true "Value"
// @Success 200 {object} models.BusinessRule
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /admin/rules/{rule_key} [put]
func (h *BusinessRuleHandler) Update(c *gin.Context) {
	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rule, err := h.ruleService.Update(c.Request.Context(), middleware.GetEmployee(c), c.Param("rule_key"), req.Value, auditMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}
