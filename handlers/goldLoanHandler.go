package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/shopspring/decimal"
)

func (h *Handler) ListLoans() gin.HandlerFunc {
	return func(c *gin.Context) {
		loans, err := h.Loans.ListLoans(c.Request.Context(), models.LoanStatus(c.Query("status")), c.Query("customer_id"))
		if err != nil {
			fail(c, h.Logger, "ListLoans", err)
			return
		}
		ok(c, loans)
	}
}

func (h *Handler) CreateLoan() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewGoldLoan
		if !bind(c, &input) {
			return
		}
		loan, err := h.Loans.CreateLoan(c.Request.Context(), input)
		if err != nil {
			fail(c, h.Logger, "CreateLoan", err)
			return
		}
		created(c, loan)
	}
}

func (h *Handler) GetLoan() gin.HandlerFunc {
	return func(c *gin.Context) {
		loan, err := h.Loans.GetLoan(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, h.Logger, "GetLoan", err)
			return
		}
		ok(c, loan)
	}
}

// loanTransition wraps the body-less state changes.
func (h *Handler) loanTransition(funcName string, fn func(ctx context.Context, id string) (*models.GoldLoan, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		loan, err := fn(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, h.Logger, funcName, err)
			return
		}
		ok(c, loan)
	}
}

type approveRequest struct {
	ApprovedBy string `json:"approved_by"`
}

func (h *Handler) ApproveLoan() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req approveRequest
		// an empty body approves as the logged-in user
		_ = c.ShouldBindJSON(&req)
		loan, err := h.Loans.ApproveLoan(c.Request.Context(), c.Param("id"), req.ApprovedBy)
		if err != nil {
			fail(c, h.Logger, "ApproveLoan", err)
			return
		}
		ok(c, loan)
	}
}

func (h *Handler) DisburseLoan() gin.HandlerFunc {
	return h.loanTransition("DisburseLoan", h.Loans.DisburseLoan)
}

func (h *Handler) ActivateLoan() gin.HandlerFunc {
	return h.loanTransition("ActivateLoan", h.Loans.ActivateLoan)
}

func (h *Handler) CloseLoan() gin.HandlerFunc {
	return h.loanTransition("CloseLoan", h.Loans.CloseLoan)
}

func (h *Handler) RecordLoanPayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewLoanPayment
		if !bind(c, &input) {
			return
		}
		loan, err := h.Loans.RecordPayment(c.Request.Context(), c.Param("id"), input)
		if err != nil {
			fail(c, h.Logger, "RecordLoanPayment", err)
			return
		}
		ok(c, loan)
	}
}

type forecloseRequest struct {
	Penalty     decimal.Decimal    `json:"penalty"`
	PaymentMode models.PaymentMode `json:"payment_mode"`
	Reference   string             `json:"reference"`
}

func (h *Handler) ForecloseLoan() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req forecloseRequest
		if !bind(c, &req) {
			return
		}
		loan, err := h.Loans.ForecloseLoan(c.Request.Context(), c.Param("id"), req.Penalty, req.PaymentMode, req.Reference)
		if err != nil {
			fail(c, h.Logger, "ForecloseLoan", err)
			return
		}
		ok(c, loan)
	}
}

func (h *Handler) MarkLoanDefault() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reasonRequest
		if !bind(c, &req) {
			return
		}
		loan, err := h.Loans.MarkAsDefault(c.Request.Context(), c.Param("id"), req.Reason)
		if err != nil {
			fail(c, h.Logger, "MarkLoanDefault", err)
			return
		}
		ok(c, loan)
	}
}
