package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/reports"
	"github.com/mmdatafocus/jewellery_backend/workflow"
)

// parseDay reads a YYYY-MM-DD query value as the start of that day.
func parseDay(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.ParseInLocation("2006-01-02", raw, reports.Location)
	if err != nil {
		badRequest(c, "invalid "+key+", expected YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

func (h *Handler) ListInvoices() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, valid := parseDay(c, "from")
		if !valid {
			return
		}
		to, valid := parseDay(c, "to")
		if !valid {
			return
		}
		if to != nil {
			end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
			to = &end
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		invoices, err := h.Invoices.ListInvoices(c.Request.Context(), workflow.InvoiceFilter{
			From:       from,
			To:         to,
			CustomerId: c.Query("customer_id"),
			Status:     models.InvoiceStatus(c.Query("status")),
			Limit:      limit,
		})
		if err != nil {
			fail(c, h.Logger, "ListInvoices", err)
			return
		}
		ok(c, invoices)
	}
}

func (h *Handler) CreateInvoice() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if !bind(c, &input) {
			return
		}
		invoice, err := h.Invoices.CreateInvoice(c.Request.Context(), input)
		if err != nil {
			fail(c, h.Logger, "CreateInvoice", err)
			return
		}
		created(c, invoice)
	}
}

func (h *Handler) PreviewInvoice() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if !bind(c, &input) {
			return
		}
		invoice, err := h.Invoices.PreviewInvoice(c.Request.Context(), input)
		if err != nil {
			fail(c, h.Logger, "PreviewInvoice", err)
			return
		}
		ok(c, invoice)
	}
}

func (h *Handler) GetInvoice() gin.HandlerFunc {
	return func(c *gin.Context) {
		invoice, err := h.Invoices.GetInvoice(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, h.Logger, "GetInvoice", err)
			return
		}
		ok(c, invoice)
	}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelInvoice() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reasonRequest
		if !bind(c, &req) {
			return
		}
		invoice, err := h.Invoices.CancelInvoice(c.Request.Context(), c.Param("id"), req.Reason)
		if err != nil {
			fail(c, h.Logger, "CancelInvoice", err)
			return
		}
		ok(c, invoice)
	}
}

func (h *Handler) RecordInvoicePayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoicePayment
		if !bind(c, &input) {
			return
		}
		invoice, err := h.Invoices.RecordInvoicePayment(c.Request.Context(), c.Param("id"), input)
		if err != nil {
			fail(c, h.Logger, "RecordInvoicePayment", err)
			return
		}
		ok(c, invoice)
	}
}
