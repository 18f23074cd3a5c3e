package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/parktime-api/internal/middleware"
	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/sjperalta/parktime-api/internal/services"
)

var exportContentTypes = map[string]string{
	services.ExportCSV:  "text/csv",
	services.ExportXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	services.ExportPDF:  "application/pdf",
}

type AuditHandler struct {
	auditService  *services.AuditService
	exportService *services.AuditExportService
	now           func() time.Time
}

func NewAuditHandler(auditService *services.AuditService, exportService *services.AuditExportService, now func() time.Time) *AuditHandler {
	if now == nil {
		now = time.Now
	}
	return &AuditHandler{auditService: auditService, exportService: exportService, now: now}
}

func auditResponses(records []models.AuditLog) []models.AuditLogResponse {
	out := make([]models.AuditLogResponse, 0, len(records))
	for i := range records {
		out = append(out, records[i].ToResponse())
	}
	return out
}

// @Summary Recent Audit Records
// @Description Ledger records performed since a day (default: 7 days ago), newest first
// @Tags Audit
// @Produce json
// @Param since query string false "First day (YYYY-MM-DD)"
// @Param table query string false "Filter by table"
// @Param action query string false "INSERT | UPDATE | DELETE | RESTORE"
// @Param limit query int false "Maximum records"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/audit [get]
func (h *AuditHandler) Index(c *gin.Context) {
	since, err := queryDate(c, "since", models.EntryDateOf(h.now()).AddDate(0, 0, -7))
	if err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	records, err := h.auditService.Recent(ctx, since, c.Query("table"), strings.ToUpper(c.Query("action")), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	tables, err := h.auditService.Tables(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	actions, err := h.auditService.Actions(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"since":   since.Format(time.DateOnly),
		"records": auditResponses(records),
		"filters": gin.H{"tables": tables, "actions": actions},
	})
}

// @Summary Record History
// @Description Every ledger record of one row, oldest first, with the replayed current state
// @Tags Audit
// @Produce json
// @Param table path string true "Table name"
// @Param record_id path int true "Record ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/audit/{table}/{record_id} [get]
func (h *AuditHandler) History(c *gin.Context) {
	id, err := paramID(c, "record_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	table := c.Param("table")
	ctx := c.Request.Context()

	records, err := h.auditService.History(ctx, table, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(records) == 0 {
		respondError(c, services.ErrNotFound("audit history of "+table, id))
		return
	}
	state, err := h.auditService.Replay(ctx, table, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"table":     table,
		"record_id": id,
		"records":   auditResponses(records),
		"state":     state,
	})
}

// @Summary Actor Activity
// @Description Ledger records performed by one employee, newest first
// @Tags Audit
// @Produce json
// @Param employee_id path int true "Employee ID"
// @Param limit query int false "Maximum records"
// @Param offset query int false "Records to skip"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /admin/audit/actor/{employee_id} [get]
func (h *AuditHandler) ByActor(c *gin.Context) {
	id, err := paramID(c, "employee_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	records, err := h.auditService.ByActor(c.Request.Context(), id, queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employee_id": id, "records": auditResponses(records)})
}

// @Summary Export Audit Report
// @Description Compliance report of ledger records between two days (inclusive)
// @Tags Audit
// @Produce octet-stream
// @Param format query string false "csv | xlsx | pdf" default(csv)
// @Param start query string true "First day (YYYY-MM-DD)"
// @Param end query string true "Last day (YYYY-MM-DD)"
// @Param table query string false "Filter by table"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /admin/audit/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", services.ExportCSV))
	if c.Query("start") == "" || c.Query("end") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end are required"})
		return
	}
	start, err := queryDate(c, "start", time.Time{})
	if err != nil {
		badRequest(c, err)
		return
	}
	end, err := queryDate(c, "end", time.Time{})
	if err != nil {
		badRequest(c, err)
		return
	}

	data, filename, err := h.exportService.Export(c.Request.Context(), middleware.GetEmployee(c), format, start, end, c.Query("table"))
	if err != nil {
		respondError(c, err)
		return
	}

	contentType, ok := exportContentTypes[format]
	if !ok {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, data)
}
