package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/shopspring/decimal"
)

func (h *Handler) ListKarigars() gin.HandlerFunc {
	return func(c *gin.Context) {
		karigars, err := h.Karigars.ListKarigars(c.Request.Context())
		if err != nil {
			fail(c, h.Logger, "ListKarigars", err)
			return
		}
		ok(c, karigars)
	}
}

func (h *Handler) CreateKarigar() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewKarigar
		if !bind(c, &input) {
			return
		}
		k, err := h.Karigars.CreateKarigar(c.Request.Context(), input)
		if err != nil {
			fail(c, h.Logger, "CreateKarigar", err)
			return
		}
		created(c, k)
	}
}

func (h *Handler) ListJobs() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs, err := h.Karigars.ListJobs(c.Request.Context(), c.Query("karigar_id"), models.JobStatus(c.Query("status")))
		if err != nil {
			fail(c, h.Logger, "ListJobs", err)
			return
		}
		ok(c, jobs)
	}
}

func (h *Handler) IssueJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewKarigarJob
		if !bind(c, &input) {
			return
		}
		job, err := h.Karigars.IssueJob(c.Request.Context(), input)
		if err != nil {
			fail(c, h.Logger, "IssueJob", err)
			return
		}
		created(c, job)
	}
}

type receiveJobRequest struct {
	ReceivedWeight decimal.Decimal `json:"received_weight"`
}

func (h *Handler) ReceiveJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req receiveJobRequest
		if !bind(c, &req) {
			return
		}
		job, err := h.Karigars.ReceiveJob(c.Request.Context(), c.Param("id"), req.ReceivedWeight)
		if err != nil {
			fail(c, h.Logger, "ReceiveJob", err)
			return
		}
		ok(c, job)
	}
}

func (h *Handler) CancelJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := h.Karigars.CancelJob(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, h.Logger, "CancelJob", err)
			return
		}
		ok(c, job)
	}
}

func (h *Handler) ListVendors() gin.HandlerFunc {
	return func(c *gin.Context) {
		vendors, err := h.Purchases.ListVendors(c.Request.Context())
		if err != nil {
			fail(c, h.Logger, "ListVendors", err)
			return
		}
		ok(c, vendors)
	}
}

func (h *Handler) CreateVendor() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewVendor
		if !bind(c, &input) {
			return
		}
		vendor, err := h.Purchases.CreateVendor(c.Request.Context(), input)
		if err != nil {
			fail(c, h.Logger, "CreateVendor", err)
			return
		}
		created(c, vendor)
	}
}

func (h *Handler) CreatePurchaseOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPurchaseOrder
		if !bind(c, &input) {
			return
		}
		po, err := h.Purchases.CreatePurchaseOrder(c.Request.Context(), input)
		if err != nil {
			fail(c, h.Logger, "CreatePurchaseOrder", err)
			return
		}
		created(c, po)
	}
}

func (h *Handler) GetPurchaseOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		po, err := h.Purchases.GetPurchaseOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, h.Logger, "GetPurchaseOrder", err)
			return
		}
		ok(c, po)
	}
}

func (h *Handler) ReceivePurchaseOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		po, err := h.Purchases.ReceivePurchaseOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, h.Logger, "ReceivePurchaseOrder", err)
			return
		}
		ok(c, po)
	}
}

func (h *Handler) CancelPurchaseOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		po, err := h.Purchases.CancelPurchaseOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, h.Logger, "CancelPurchaseOrder", err)
			return
		}
		ok(c, po)
	}
}
