package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"timesheet/internal/domain/core"
	"timesheet/internal/domain/overtime"
)

func RenderClaimPDF(w io.Writer, req overtime.Request, emp core.Employee) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Overtime Claim")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s", emp.Name))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Department: %s", emp.Department))
	pdf.Ln(6)
	period := req.Period()
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s to %s", period.Start().Format("2006-01-02"), period.End().Format("2006-01-02")))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Status: %s", req.Status))
	pdf.Ln(10)

	widths := []float64{25, 45, 45, 20, 30}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range []string{"Date", "Project", "Task", "Hours", "Reason"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for _, e := range req.Entries {
		pdf.CellFormat(widths[0], 6, e.Date.Format("2006-01-02"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, truncate(e.ProjectName, 28), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, truncate(e.TaskName, 28), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%.2f", e.Hours), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, string(e.Reason), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	b := overtime.BreakdownOf(req.Entries)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, "Breakdown")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Weekend: %.2f h   Holiday: %.2f h   Excess: %.2f h", b.Weekend, b.Holiday, b.Excess))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Total overtime: %.2f h", req.TotalOvertimeHours))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, "Approvals")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	trail := []struct {
		stage string
		at    *time.Time
		by    *string
	}{
		{"Head of department", req.HODApprovedAt, req.HODApprovedBy},
		{"Finance", req.FinanceApprovedAt, req.FinanceApprovedBy},
		{"Management", req.ManagementApprovedAt, req.ManagementApprovedBy},
	}
	for _, step := range trail {
		line := fmt.Sprintf("%s: pending", step.stage)
		if step.at != nil && step.by != nil {
			line = fmt.Sprintf("%s: approved %s by %s", step.stage, step.at.Format("2006-01-02 15:04"), *step.by)
		}
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	if req.RejectedAt != nil && req.RejectionReason != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Rejected %s: %s", req.RejectedAt.Format("2006-01-02 15:04"), *req.RejectionReason))
		pdf.Ln(6)
	}

	return pdf.Output(w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
