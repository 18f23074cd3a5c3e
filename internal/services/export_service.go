package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/sjperalta/parktime-api/internal/models"
	"github.com/xuri/excelize/v2"
)

// Export formats
const (
	ExportCSV  = "csv"
	ExportXLSX = "xlsx"
	ExportPDF  = "pdf"
)

var auditExportHeader = []string{"ID", "Performed At", "Performed By", "Table", "Record", "Action", "Changed Fields", "IP Address", "Context"}

// AuditExportService renders the ledger for a date range as a compliance report
type AuditExportService struct {
	audit *AuditService
	now   func() time.Time
}

// NewAuditExportService creates a new export service
func NewAuditExportService(auditSvc *AuditService, now func() time.Time) *AuditExportService {
	if now == nil {
		now = systemNow
	}
	return &AuditExportService{audit: auditSvc, now: now}
}

// Export renders the records performed from start through end (inclusive days) in format
func (s *AuditExportService) Export(ctx context.Context, actor *models.Employee, format string, start, end time.Time, table string) ([]byte, string, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, "", err
	}
	if models.EntryDateOf(end).Before(models.EntryDateOf(start)) {
		return nil, "", ErrValidation("end date must not be before start date")
	}
	records, err := s.audit.InRange(ctx, start, end, table)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case ExportCSV, "":
		return s.ExportCSV(records, start, end)
	case ExportXLSX:
		return s.ExportXLSX(records, start, end)
	case ExportPDF:
		return s.ExportPDF(records, start, end)
	}
	return nil, "", ErrValidation("unsupported export format %q", format)
}

func auditRow(r *models.AuditLog) []string {
	return []string{
		strconv.FormatUint(uint64(r.ID), 10),
		r.PerformedAt.UTC().Format(time.RFC3339),
		strconv.FormatUint(uint64(r.PerformedBy), 10),
		r.Table,
		strconv.FormatUint(uint64(r.RecordID), 10),
		r.Action,
		deref(r.ChangedFields),
		deref(r.IPAddress),
		deref(r.Context),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *AuditExportService) filename(start, end time.Time, ext string) string {
	return fmt.Sprintf("audit_%s_%s.%s", start.Format(time.DateOnly), end.Format(time.DateOnly), ext)
}

// ExportCSV renders records as CSV
func (s *AuditExportService) ExportCSV(records []models.AuditLog, start, end time.Time) ([]byte, string, error) {
	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	if err := writer.Write(auditExportHeader); err != nil {
		return nil, "", err
	}
	for i := range records {
		if err := writer.Write(auditRow(&records[i])); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), s.filename(start, end, ExportCSV), nil
}

// ExportXLSX renders records as a spreadsheet with a title row above the table
func (s *AuditExportService) ExportXLSX(records []models.AuditLog, start, end time.Time) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Audit"
	_ = f.SetSheetName("Sheet1", sheet)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Audit Log %s to %s", start.Format(time.DateOnly), end.Format(time.DateOnly)))
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)
	_ = f.SetCellValue(sheet, "A2", "Generated "+s.now().UTC().Format("2006-01-02 15:04 MST"))

	for col, h := range auditExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 4)
		_ = f.SetCellValue(sheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(auditExportHeader), 4)
	_ = f.SetCellStyle(sheet, "A4", last, headerStyle)

	for i := range records {
		for col, v := range auditRow(&records[i]) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+5)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "B", "B", 22)
	_ = f.SetColWidth(sheet, "G", "G", 40)
	_ = f.SetColWidth(sheet, "I", "I", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), s.filename(start, end, ExportXLSX), nil
}

// ExportPDF renders records as a landscape A4 table
func (s *AuditExportService) ExportPDF(records []models.AuditLog, start, end time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Audit Log %s to %s", start.Format(time.DateOnly), end.Format(time.DateOnly)))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(40, 6, "Generated "+s.now().UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	widths := []float64{14, 38, 18, 28, 16, 18, 70, 28, 47}
	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(224, 224, 224)
	for i, h := range auditExportHeader {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for i := range records {
		for col, v := range auditRow(&records[i]) {
			pdf.CellFormat(widths[col], 6, truncateForCell(pdf, tr(v), widths[col]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), s.filename(start, end, ExportPDF), nil
}

// truncateForCell shortens v until it fits a cell of width w
func truncateForCell(pdf *gofpdf.Fpdf, v string, w float64) string {
	const pad = 2
	if pdf.GetStringWidth(v) <= w-pad {
		return v
	}
	r := []rune(v)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > w-pad {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
