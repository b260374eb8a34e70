package workflow

import (
	"context"
	"strings"

	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ProductWorkflow struct {
	Workflow
}

func NewProductWorkflow(w Workflow) *ProductWorkflow {
	return &ProductWorkflow{Workflow: w}
}

func applyProductInput(p *models.Product, input models.NewProduct) error {
	if input.StoneWeight.GreaterThan(input.GrossWeight) {
		return utils.Invalidf("stone weight exceeds gross weight")
	}
	p.Sku = strings.ToUpper(strings.TrimSpace(input.Sku))
	p.Name = strings.TrimSpace(input.Name)
	p.Huid = strings.ToUpper(strings.TrimSpace(input.Huid))
	p.HsnCode = input.HsnCode
	if p.HsnCode == "" {
		p.HsnCode = "7113"
	}
	p.Category = input.Category
	p.MetalType = input.MetalType
	p.Purity = input.Purity
	p.GrossWeight = utils.RoundWeight(input.GrossWeight)
	p.StoneWeight = utils.RoundWeight(input.StoneWeight)
	p.ComputeNetWeight()
	p.WastagePercentage = input.WastagePercentage
	p.MakingChargeType = input.MakingChargeType
	p.MakingChargeRate = input.MakingChargeRate
	p.StoneAmount = utils.RoundMoney(input.StoneAmount)
	p.ReorderLevel = input.ReorderLevel
	return nil
}

func (w *ProductWorkflow) CreateProduct(ctx context.Context, input models.NewProduct) (*models.Product, error) {
	ctx, span := startSpan(ctx, "CreateProduct")
	defer span.End()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	product := models.Product{Status: models.ProductStatusAvailable}
	if err := applyProductInput(&product, input); err != nil {
		return nil, err
	}
	product.CurrentStock = input.CurrentStock
	if input.MakingChargeType == models.MakingChargeSlab {
		w.log(ctx).WithField("sku", product.Sku).Warn("slab making charge is priced as a fixed amount per unit")
	}

	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return w.create(ctx, tx, &product)
	})
	if err != nil {
		config.LogError(w.Logger, "ProductWorkflow", "CreateProduct", "create product", input.Sku, err)
		return nil, err
	}
	return &product, nil
}

// UpdateProduct edits catalog attributes. Stock only moves through
// AdjustStock, sales and purchases.
func (w *ProductWorkflow) UpdateProduct(ctx context.Context, id string, input models.NewProduct) (*models.Product, error) {
	ctx, span := startSpan(ctx, "UpdateProduct")
	defer span.End()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	var product models.Product
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := find(ctx, tx, &product, id, models.ErrProductNotFound); err != nil {
			return err
		}
		if err := applyProductInput(&product, input); err != nil {
			return err
		}
		return w.save(ctx, tx, &product)
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "ProductWorkflow", "UpdateProduct", "update product", id, err)
		}
		return nil, err
	}
	return &product, nil
}

// AdjustStock applies a manual stock correction.
func (w *ProductWorkflow) AdjustStock(ctx context.Context, id string, delta int, reason string) (*models.Product, error) {
	ctx, span := startSpan(ctx, "AdjustStock")
	defer span.End()

	if delta == 0 {
		return nil, utils.Invalidf("stock adjustment must not be zero")
	}
	var product models.Product
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := find(ctx, tx, &product, id, models.ErrProductNotFound); err != nil {
			return err
		}
		if err := product.ApplyStockDelta(delta); err != nil {
			return err
		}
		return w.save(ctx, tx, &product)
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "ProductWorkflow", "AdjustStock", "adjust stock", id, err)
		}
		return nil, err
	}
	w.log(ctx).WithFields(logrus.Fields{
		"sku":    product.Sku,
		"delta":  delta,
		"stock":  product.CurrentStock,
		"reason": reason,
	}).Info("stock adjusted")
	return &product, nil
}

func (w *ProductWorkflow) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := find(ctx, w.DB, &product, id, models.ErrProductNotFound); err != nil {
		return nil, err
	}
	return &product, nil
}

func (w *ProductWorkflow) ListProducts(ctx context.Context, status models.ProductStatus, search string) ([]models.Product, error) {
	db := w.DB.WithContext(ctx)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		db = db.Where("name LIKE ? OR sku LIKE ? OR huid LIKE ?", like, like, like)
	}
	var products []models.Product
	err := db.Order("name").Find(&products).Error
	return products, err
}

// LowStockProducts lists products at or below their reorder level.
func (w *ProductWorkflow) LowStockProducts(ctx context.Context) ([]models.Product, error) {
	return lowStockProducts(ctx, w.DB)
}

func lowStockProducts(ctx context.Context, db *gorm.DB) ([]models.Product, error) {
	var products []models.Product
	err := db.WithContext(ctx).
		Where("current_stock <= reorder_level").
		Where("status <> ?", models.ProductStatusReserved).
		Order("current_stock").Find(&products).Error
	return products, err
}
