package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/jewellery_backend/reports"
)

func (h *Handler) ListAlerts() gin.HandlerFunc {
	return func(c *gin.Context) {
		days := h.AlertDueWithinDays
		if v, err := strconv.Atoi(c.Query("due_within_days")); err == nil && v >= 0 {
			days = v
		}
		alerts, err := h.Alerts.CheckAlerts(c.Request.Context(), time.Now().UTC(), days)
		if err != nil {
			fail(c, h.Logger, "ListAlerts", err)
			return
		}
		ok(c, alerts)
	}
}

// sendWorkbook answers with the xlsx file, or with its GCS location when
// ?upload=true and a bucket is configured.
func (h *Handler) sendWorkbook(c *gin.Context, report string, data []byte) {
	name := reports.ReportFileName(c.Request.Context(), report, time.Now())
	if c.Query("upload") == "true" {
		uri, err := reports.UploadReport(c.Request.Context(), name, data)
		if err != nil {
			fail(c, h.Logger, "UploadReport", err)
			return
		}
		if uri != "" {
			ok(c, gin.H{"file_name": name, "uri": uri})
			return
		}
	}
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(http.StatusOK, reports.XlsxContentType, data)
}

// SalesReport answers ?from=YYYY-MM-DD&to=YYYY-MM-DD, both days inclusive.
// The default range is the current month.
func (h *Handler) SalesReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, valid := parseDay(c, "from")
		if !valid {
			return
		}
		to, valid := parseDay(c, "to")
		if !valid {
			return
		}
		now := time.Now().In(reports.Location)
		if from == nil {
			start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, reports.Location)
			from = &start
		}
		end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, reports.Location).AddDate(0, 0, 1)
		if to != nil {
			end = to.AddDate(0, 0, 1)
		}
		if !end.After(*from) {
			badRequest(c, "to must not be before from")
			return
		}

		summary, err := reports.SalesSummary(c.Request.Context(), h.DB, *from, end)
		if err != nil {
			fail(c, h.Logger, "SalesReport", err)
			return
		}
		if c.Query("format") != "xlsx" {
			ok(c, summary)
			return
		}
		data, err := reports.ExportSalesSummary(summary)
		if err != nil {
			fail(c, h.Logger, "SalesReport", err)
			return
		}
		h.sendWorkbook(c, "sales", data)
	}
}

func (h *Handler) LoanReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		portfolio, err := reports.LoanPortfolio(c.Request.Context(), h.DB)
		if err != nil {
			fail(c, h.Logger, "LoanReport", err)
			return
		}
		if c.Query("format") != "xlsx" {
			ok(c, portfolio)
			return
		}
		data, err := reports.ExportLoanPortfolio(portfolio)
		if err != nil {
			fail(c, h.Logger, "LoanReport", err)
			return
		}
		h.sendWorkbook(c, "gold_loans", data)
	}
}
