package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/shopspring/decimal"
)

func (h *Handler) ListCustomers() gin.HandlerFunc {
	return func(c *gin.Context) {
		customers, err := h.Customers.ListCustomers(c.Request.Context(), c.Query("search"))
		if err != nil {
			fail(c, h.Logger, "ListCustomers", err)
			return
		}
		ok(c, customers)
	}
}

func (h *Handler) CreateCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCustomer
		if !bind(c, &input) {
			return
		}
		customer, err := h.Customers.CreateCustomer(c.Request.Context(), input)
		if err != nil {
			fail(c, h.Logger, "CreateCustomer", err)
			return
		}
		created(c, customer)
	}
}

func (h *Handler) GetCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, err := h.Customers.GetCustomer(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, h.Logger, "GetCustomer", err)
			return
		}
		ok(c, customer)
	}
}

func (h *Handler) UpdateCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCustomer
		if !bind(c, &input) {
			return
		}
		customer, err := h.Customers.UpdateCustomer(c.Request.Context(), c.Param("id"), input)
		if err != nil {
			fail(c, h.Logger, "UpdateCustomer", err)
			return
		}
		ok(c, customer)
	}
}

func (h *Handler) ListProducts() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := h.Products.ListProducts(c.Request.Context(), models.ProductStatus(c.Query("status")), c.Query("search"))
		if err != nil {
			fail(c, h.Logger, "ListProducts", err)
			return
		}
		ok(c, products)
	}
}

func (h *Handler) CreateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProduct
		if !bind(c, &input) {
			return
		}
		product, err := h.Products.CreateProduct(c.Request.Context(), input)
		if err != nil {
			fail(c, h.Logger, "CreateProduct", err)
			return
		}
		created(c, product)
	}
}

func (h *Handler) GetProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := h.Products.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, h.Logger, "GetProduct", err)
			return
		}
		ok(c, product)
	}
}

func (h *Handler) UpdateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProduct
		if !bind(c, &input) {
			return
		}
		product, err := h.Products.UpdateProduct(c.Request.Context(), c.Param("id"), input)
		if err != nil {
			fail(c, h.Logger, "UpdateProduct", err)
			return
		}
		ok(c, product)
	}
}

type stockAdjustmentRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

func (h *Handler) AdjustStock() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stockAdjustmentRequest
		if !bind(c, &req) {
			return
		}
		product, err := h.Products.AdjustStock(c.Request.Context(), c.Param("id"), req.Delta, req.Reason)
		if err != nil {
			fail(c, h.Logger, "AdjustStock", err)
			return
		}
		ok(c, product)
	}
}

func (h *Handler) SetRate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewMetalRate
		if !bind(c, &input) {
			return
		}
		rate, err := h.MetalRates.SetRate(c.Request.Context(), input)
		if err != nil {
			fail(c, h.Logger, "SetRate", err)
			return
		}
		created(c, rate)
	}
}

// LatestRate answers ?metal_type=gold&purity=91.6.
func (h *Handler) LatestRate() gin.HandlerFunc {
	return func(c *gin.Context) {
		purity, err := decimal.NewFromString(c.DefaultQuery("purity", "99.9"))
		if err != nil {
			badRequest(c, "invalid purity")
			return
		}
		metal := models.MetalType(c.DefaultQuery("metal_type", string(models.MetalTypeGold)))
		rate, err := h.MetalRates.LatestRate(c.Request.Context(), metal, purity)
		if err != nil {
			fail(c, h.Logger, "LatestRate", err)
			return
		}
		ok(c, rate)
	}
}

func (h *Handler) ListRates() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		rates, err := h.MetalRates.ListRates(c.Request.Context(), models.MetalType(c.Query("metal_type")), limit)
		if err != nil {
			fail(c, h.Logger, "ListRates", err)
			return
		}
		ok(c, rates)
	}
}
