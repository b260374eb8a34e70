// Package handlers exposes the workflows over a local JSON API.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/jewellery_backend/branchsync"
	"github.com/mmdatafocus/jewellery_backend/middlewares"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Handler struct {
	DB     *gorm.DB
	Logger *logrus.Logger

	Customers  *workflow.CustomerWorkflow
	Products   *workflow.ProductWorkflow
	MetalRates *workflow.MetalRateWorkflow
	Invoices   *workflow.InvoiceWorkflow
	Loans      *workflow.GoldLoanWorkflow
	Karigars   *workflow.KarigarWorkflow
	Purchases  *workflow.PurchaseWorkflow
	Users      *workflow.UserWorkflow
	Alerts     *workflow.AlertWorkflow
	Sync       *branchsync.Scheduler

	AlertDueWithinDays int
}

func New(w workflow.Workflow, scheduler *branchsync.Scheduler) *Handler {
	return &Handler{
		DB:                 w.DB,
		Logger:             w.Logger,
		Customers:          workflow.NewCustomerWorkflow(w),
		Products:           workflow.NewProductWorkflow(w),
		MetalRates:         workflow.NewMetalRateWorkflow(w),
		Invoices:           workflow.NewInvoiceWorkflow(w),
		Loans:              workflow.NewGoldLoanWorkflow(w),
		Karigars:           workflow.NewKarigarWorkflow(w),
		Purchases:          workflow.NewPurchaseWorkflow(w),
		Users:              workflow.NewUserWorkflow(w.DB, w.Logger),
		Alerts:             workflow.NewAlertWorkflow(w.DB, w.Logger),
		Sync:               scheduler,
		AlertDueWithinDays: 7,
	}
}

// Register mounts the API on api. Authentication is applied by the caller.
func (h *Handler) Register(api gin.IRouter) {
	api.POST("/auth/login", h.Login())

	customers := api.Group("/customers")
	customers.GET("", h.ListCustomers())
	customers.POST("", h.CreateCustomer())
	customers.GET("/:id", h.GetCustomer())
	customers.PUT("/:id", h.UpdateCustomer())

	products := api.Group("/products")
	products.GET("", h.ListProducts())
	products.POST("", h.CreateProduct())
	products.GET("/:id", h.GetProduct())
	products.PUT("/:id", h.UpdateProduct())
	products.POST("/:id/stock", h.AdjustStock())

	rates := api.Group("/metal-rates")
	rates.GET("", h.ListRates())
	rates.POST("", h.SetRate())
	rates.GET("/latest", h.LatestRate())

	invoices := api.Group("/invoices")
	invoices.GET("", h.ListInvoices())
	invoices.POST("", h.CreateInvoice())
	invoices.POST("/preview", h.PreviewInvoice())
	invoices.GET("/:id", h.GetInvoice())
	invoices.POST("/:id/cancel", h.CancelInvoice())
	invoices.POST("/:id/payments", h.RecordInvoicePayment())

	loans := api.Group("/gold-loans")
	loans.GET("", h.ListLoans())
	loans.POST("", h.CreateLoan())
	loans.GET("/:id", h.GetLoan())
	loans.POST("/:id/approve", h.ApproveLoan())
	loans.POST("/:id/disburse", h.DisburseLoan())
	loans.POST("/:id/activate", h.ActivateLoan())
	loans.POST("/:id/payments", h.RecordLoanPayment())
	loans.POST("/:id/close", h.CloseLoan())
	loans.POST("/:id/foreclose", h.ForecloseLoan())
	loans.POST("/:id/default", h.MarkLoanDefault())

	karigars := api.Group("/karigars")
	karigars.GET("", h.ListKarigars())
	karigars.POST("", h.CreateKarigar())
	karigars.GET("/jobs", h.ListJobs())
	karigars.POST("/jobs", h.IssueJob())
	karigars.POST("/jobs/:id/receive", h.ReceiveJob())
	karigars.POST("/jobs/:id/cancel", h.CancelJob())

	api.GET("/vendors", h.ListVendors())
	api.POST("/vendors", h.CreateVendor())
	orders := api.Group("/purchase-orders")
	orders.POST("", h.CreatePurchaseOrder())
	orders.GET("/:id", h.GetPurchaseOrder())
	orders.POST("/:id/receive", h.ReceivePurchaseOrder())
	orders.POST("/:id/cancel", h.CancelPurchaseOrder())

	sync := api.Group("/sync")
	sync.GET("/status", h.SyncStatus())
	sync.GET("/queue", h.SyncQueue())
	sync.POST("/trigger", h.TriggerSync())
	sync.POST("/retry", h.RetrySync())
	managers := sync.Group("", middlewares.RequireRole(string(models.UserRoleAdmin), string(models.UserRoleManager)))
	managers.POST("/toggle", h.ToggleSync())
	managers.PUT("/interval", h.UpdateSyncInterval())
	managers.POST("/cleanup", h.CleanupSync())

	api.GET("/alerts", h.ListAlerts())
	api.GET("/reports/sales", h.SalesReport())
	api.GET("/reports/loans", h.LoanReport())
}
