package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/jewellery_backend/appctx"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const XlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func weight(d decimal.Decimal) float64 {
	f, _ := d.Round(3).Float64()
	return f
}

// writeSheet renders one header row plus data rows into a new workbook.
func writeSheet(sheet string, headings []string, rows [][]interface{}) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(headings))
	if err := f.SetCellStyle(sheet, "A1", last+"1", bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", last, 16); err != nil {
		return nil, err
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return f.WriteToBuffer()
}

func salesRow(r SalesSummaryRow) []interface{} {
	return []interface{}{r.Date, r.InvoiceCount, money(r.Subtotal), money(r.Cgst), money(r.Sgst), money(r.Igst), money(r.TotalGst), money(r.GrandTotal)}
}

// ExportSalesSummary renders the summary as an xlsx workbook with a
// closing total row.
func ExportSalesSummary(summary *SalesSummaryResponse) ([]byte, error) {
	headings := []string{"Date", "Invoices", "Subtotal", "CGST", "SGST", "IGST", "Total GST", "Grand Total"}
	rows := make([][]interface{}, 0, len(summary.Days)+1)
	for _, d := range summary.Days {
		rows = append(rows, salesRow(d))
	}
	total := salesRow(summary.Total)
	total[0] = "Total"
	rows = append(rows, total)

	buf, err := writeSheet("Sales", headings, rows)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func loanRow(label string, r LoanPortfolioRow) []interface{} {
	return []interface{}{label, r.LoanCount, money(r.Principal), money(r.InterestDue), money(r.BalanceDue), weight(r.FineWeight)}
}

func ExportLoanPortfolio(portfolio *LoanPortfolioResponse) ([]byte, error) {
	headings := []string{"Status", "Loans", "Principal", "Interest Due", "Balance Due", "Fine Weight (g)"}
	rows := make([][]interface{}, 0, len(portfolio.Statuses)+1)
	for _, s := range portfolio.Statuses {
		rows = append(rows, loanRow(string(s.Status), s))
	}
	rows = append(rows, loanRow("Total", portfolio.Total))

	buf, err := writeSheet("Gold Loans", headings, rows)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReportFileName names an export after its report, the branch and the time.
func ReportFileName(ctx context.Context, report string, at time.Time) string {
	branch := appctx.BranchId(ctx)
	if branch == "" {
		branch = "local"
	}
	return fmt.Sprintf("%s_%s_%s.xlsx", report, branch, at.In(Location).Format("20060102_150405"))
}

// UploadReport stores a workbook in GCS and returns its gs:// URI. It
// returns "" without error when GCS_BUCKET is not set.
func UploadReport(ctx context.Context, fileName string, data []byte) (string, error) {
	if !utils.GCSEnabled() {
		return "", nil
	}
	return utils.UploadToGCS(ctx, "reports/"+fileName, data, XlsxContentType)
}
