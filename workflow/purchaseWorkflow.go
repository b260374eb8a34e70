package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"gorm.io/gorm"
)

type PurchaseWorkflow struct {
	Workflow
}

func NewPurchaseWorkflow(w Workflow) *PurchaseWorkflow {
	return &PurchaseWorkflow{Workflow: w}
}

func (w *PurchaseWorkflow) CreateVendor(ctx context.Context, input models.NewVendor) (*models.Vendor, error) {
	ctx, span := startSpan(ctx, "CreateVendor")
	defer span.End()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	phone, err := utils.NormalizePhone(input.Phone)
	if err != nil {
		return nil, utils.Invalidf("invalid phone number %q", input.Phone)
	}
	v := models.Vendor{
		Name:      strings.TrimSpace(input.Name),
		Phone:     phone,
		Gstin:     strings.ToUpper(strings.TrimSpace(input.Gstin)),
		StateCode: input.StateCode,
	}
	err = w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return w.create(ctx, tx, &v)
	})
	if err != nil {
		config.LogError(w.Logger, "PurchaseWorkflow", "CreateVendor", "create vendor", input.Name, err)
		return nil, err
	}
	return &v, nil
}

func (w *PurchaseWorkflow) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	var vendors []models.Vendor
	err := w.DB.WithContext(ctx).Order("name").Find(&vendors).Error
	return vendors, err
}

// CreatePurchaseOrder prices the order and taxes it at the purchase GST
// rate, split by the vendor's state.
func (w *PurchaseWorkflow) CreatePurchaseOrder(ctx context.Context, input models.NewPurchaseOrder) (*models.PurchaseOrderDetail, error) {
	ctx, span := startSpan(ctx, "CreatePurchaseOrder")
	defer span.End()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	b, err := branch(ctx)
	if err != nil {
		return nil, err
	}

	var d models.PurchaseOrderDetail
	err = w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vendor models.Vendor
		if err := find(ctx, tx, &vendor, input.VendorId, models.ErrVendorNotFound); err != nil {
			return err
		}
		for _, in := range input.Items {
			if in.ProductId != "" {
				var product models.Product
				if err := find(ctx, tx, &product, in.ProductId, models.ErrProductNotFound); err != nil {
					return err
				}
			}
			item := models.PurchaseOrderItem{
				ProductId:   in.ProductId,
				Description: in.Description,
				MetalType:   in.MetalType,
				Purity:      in.Purity,
				Quantity:    in.Quantity,
				Weight:      utils.RoundWeight(in.Weight),
				Rate:        utils.RoundMoney(in.Rate),
			}
			item.Calculate()
			d.Items = append(d.Items, item)
		}

		po := &d.PurchaseOrder
		po.VendorId = vendor.ID
		po.OrderDate = orDefault(input.OrderDate, w.now())
		po.ExpectedDate = input.ExpectedDate
		po.SupplyType = models.ResolveSupplyType("", b.CompanyStateCode, vendor.StateCode)
		po.Status = models.PurchaseOrderStatusOrdered
		po.ApplyTotals(d.Items)

		var err error
		po.PoNumber, err = nextNumber(ctx, tx, &models.PurchaseOrder{}, "po_number", "PO", b.BranchId, po.OrderDate)
		if err != nil {
			return err
		}
		if err := w.create(ctx, tx, po); err != nil {
			return err
		}
		for i := range d.Items {
			d.Items[i].PurchaseOrderId = po.ID
			if err := w.create(ctx, tx, &d.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "PurchaseWorkflow", "CreatePurchaseOrder", "create purchase order", input.VendorId, err)
		}
		return nil, err
	}
	return &d, nil
}

func (w *PurchaseWorkflow) loadOrder(ctx context.Context, db *gorm.DB, id string) (*models.PurchaseOrderDetail, error) {
	var d models.PurchaseOrderDetail
	if err := find(ctx, db, &d.PurchaseOrder, id, models.ErrPurchaseNotFound); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Where("purchase_order_id = ?", id).Order("created_at").Find(&d.Items).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (w *PurchaseWorkflow) GetPurchaseOrder(ctx context.Context, id string) (*models.PurchaseOrderDetail, error) {
	return w.loadOrder(ctx, w.DB, id)
}

// ReceivePurchaseOrder books the goods in: linked products gain stock and
// the vendor is owed the order total.
func (w *PurchaseWorkflow) ReceivePurchaseOrder(ctx context.Context, id string) (*models.PurchaseOrderDetail, error) {
	ctx, span := startSpan(ctx, "ReceivePurchaseOrder")
	defer span.End()

	var d *models.PurchaseOrderDetail
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		d, err = w.loadOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if d.Status != models.PurchaseOrderStatusOrdered {
			return utils.NewValidationError(models.ErrInvalidTransition, fmt.Sprintf("%s -> %s", d.Status, models.PurchaseOrderStatusReceived))
		}

		restock := map[string]int{}
		for _, item := range d.Items {
			if item.ProductId != "" {
				restock[item.ProductId] += item.Quantity
			}
		}
		for productId, qty := range restock {
			var product models.Product
			if err := find(ctx, tx, &product, productId, models.ErrProductNotFound); err != nil {
				return err
			}
			if err := product.ApplyStockDelta(qty); err != nil {
				return err
			}
			product.Status = models.ProductStatusAvailable
			if err := w.save(ctx, tx, &product); err != nil {
				return err
			}
		}

		var vendor models.Vendor
		if err := find(ctx, tx, &vendor, d.VendorId, models.ErrVendorNotFound); err != nil {
			return err
		}
		vendor.OutstandingBalance = vendor.OutstandingBalance.Add(d.TotalAmount)
		if err := w.save(ctx, tx, &vendor); err != nil {
			return err
		}

		now := w.now()
		d.Status = models.PurchaseOrderStatusReceived
		d.ReceivedDate = &now
		return w.save(ctx, tx, &d.PurchaseOrder)
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "PurchaseWorkflow", "ReceivePurchaseOrder", "receive purchase order", id, err)
		}
		return nil, err
	}
	return d, nil
}

func (w *PurchaseWorkflow) CancelPurchaseOrder(ctx context.Context, id string) (*models.PurchaseOrderDetail, error) {
	ctx, span := startSpan(ctx, "CancelPurchaseOrder")
	defer span.End()

	var d *models.PurchaseOrderDetail
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		d, err = w.loadOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if d.Status != models.PurchaseOrderStatusOrdered {
			return utils.NewValidationError(models.ErrInvalidTransition, fmt.Sprintf("%s -> %s", d.Status, models.PurchaseOrderStatusCancelled))
		}
		d.Status = models.PurchaseOrderStatusCancelled
		return w.save(ctx, tx, &d.PurchaseOrder)
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "PurchaseWorkflow", "CancelPurchaseOrder", "cancel purchase order", id, err)
		}
		return nil, err
	}
	return d, nil
}
