package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/jewellery_backend/appctx"
	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type InvoiceWorkflow struct {
	Workflow
}

func NewInvoiceWorkflow(w Workflow) *InvoiceWorkflow {
	return &InvoiceWorkflow{Workflow: w}
}

// pricedInvoice is an invoice computed from a request, before it is written.
type pricedInvoice struct {
	detail   models.InvoiceDetail
	customer models.Customer
	products map[string]*models.Product
	demand   map[string]int
}

// price validates input against db and computes every amount. Nothing is
// written.
func (w *InvoiceWorkflow) price(ctx context.Context, db *gorm.DB, b appctx.Branch, input models.NewInvoice) (*pricedInvoice, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	p := &pricedInvoice{
		products: map[string]*models.Product{},
		demand:   map[string]int{},
	}
	if err := find(ctx, db, &p.customer, input.CustomerId, models.ErrCustomerNotFound); err != nil {
		return nil, err
	}

	inv := &p.detail.Invoice
	inv.CustomerId = p.customer.ID
	inv.InvoiceDate = orDefault(input.InvoiceDate, w.now())
	inv.SupplyType = models.ResolveSupplyType(input.SupplyType, b.CompanyStateCode, p.customer.StateCode)
	inv.DiscountPercentage = input.DiscountPercentage
	inv.Status = models.InvoiceStatusActive
	inv.Notes = input.Notes

	rates := models.LoadGSTRates(ctx, db)
	for _, line := range input.Items {
		product, ok := p.products[line.ProductId]
		if !ok {
			product = &models.Product{}
			if err := find(ctx, db, product, line.ProductId, models.ErrProductNotFound); err != nil {
				return nil, err
			}
			p.products[line.ProductId] = product
		}
		if product.Status == models.ProductStatusReserved {
			return nil, utils.NewValidationError(models.ErrProductUnavailable, product.Sku)
		}
		p.demand[product.ID] += line.Quantity
		if p.demand[product.ID] > product.CurrentStock {
			return nil, utils.NewValidationError(models.ErrInsufficientStock, product.Sku)
		}

		rate := line.MetalRate
		if !rate.GreaterThan(decimal.Zero) {
			latest, err := latestRate(ctx, db, product.MetalType, product.Purity)
			if err != nil {
				return nil, err
			}
			rate = latest.RatePerGram
		}
		if !rate.GreaterThan(decimal.Zero) {
			return nil, utils.NewValidationError(models.ErrMetalRateMissing, product.Sku)
		}

		if product.MakingChargeType == models.MakingChargeSlab {
			w.log(ctx).WithFields(logrus.Fields{"product_id": product.ID, "sku": product.Sku}).
				Warn("slab making charge priced as fixed")
		}
		item := models.SnapshotInvoiceItem(*product, line.Quantity, rate, line.DiscountPercentage)
		item.Calculate(inv.SupplyType, rates)
		p.detail.Items = append(p.detail.Items, item)
	}

	if input.OldGold != nil {
		og := models.OldGoldTransaction{
			CustomerId:          p.customer.ID,
			MetalType:           input.OldGold.MetalType,
			GrossWeight:         input.OldGold.GrossWeight,
			StoneWeight:         input.OldGold.StoneWeight,
			Purity:              input.OldGold.Purity,
			Rate:                input.OldGold.Rate,
			DeductionPercentage: input.OldGold.DeductionPercentage,
		}
		if og.StoneWeight.GreaterThan(og.GrossWeight) {
			return nil, utils.Invalidf("old gold stone weight exceeds gross weight")
		}
		og.Calculate()
		p.detail.OldGold = &og
	}

	paid := decimal.Zero
	for _, in := range input.Payments {
		amount := utils.RoundMoney(in.Amount)
		paid = paid.Add(amount)
		p.detail.Payments = append(p.detail.Payments, models.InvoicePayment{
			PaymentMode: in.PaymentMode,
			Amount:      amount,
			Reference:   in.Reference,
			PaymentDate: inv.InvoiceDate,
		})
	}

	inv.ApplyTotals(p.detail.Items, p.detail.OldGold, paid)
	if inv.GrandTotal.IsNegative() {
		return nil, utils.NewValidationError(models.ErrNegativeTotal, inv.GrandTotal.StringFixed(2))
	}
	if paid.GreaterThan(inv.GrandTotal) {
		return nil, utils.NewValidationError(models.ErrOverpayment, inv.GrandTotal.StringFixed(2))
	}
	return p, nil
}

// PreviewInvoice prices a request without writing anything.
func (w *InvoiceWorkflow) PreviewInvoice(ctx context.Context, input models.NewInvoice) (*models.InvoiceDetail, error) {
	ctx, span := startSpan(ctx, "PreviewInvoice")
	defer span.End()

	b, err := branch(ctx)
	if err != nil {
		return nil, err
	}
	p, err := w.price(ctx, w.DB, b, input)
	if err != nil {
		return nil, err
	}
	return &p.detail, nil
}

// CreateInvoice prices and books a sale. The invoice, its items, stock
// movements, the trade-in, payments, the customer balance and the outbox
// rows for all of them commit together.
func (w *InvoiceWorkflow) CreateInvoice(ctx context.Context, input models.NewInvoice) (*models.InvoiceDetail, error) {
	ctx, span := startSpan(ctx, "CreateInvoice")
	defer span.End()

	b, err := branch(ctx)
	if err != nil {
		return nil, err
	}

	var p *pricedInvoice
	err = w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err = w.price(ctx, tx, b, input)
		if err != nil {
			return err
		}
		inv := &p.detail.Invoice
		inv.InvoiceNumber, err = nextNumber(ctx, tx, &models.Invoice{}, "invoice_number", b.InvoicePrefix, b.BranchId, inv.InvoiceDate)
		if err != nil {
			return err
		}
		if err := w.create(ctx, tx, inv); err != nil {
			return err
		}

		for i := range p.detail.Items {
			item := &p.detail.Items[i]
			item.InvoiceId = inv.ID
			if err := w.create(ctx, tx, item); err != nil {
				return err
			}
			product := p.products[item.ProductId]
			if err := product.ApplyStockDelta(-item.Quantity); err != nil {
				return err
			}
		}
		// each product is written once, after every line has moved its stock
		for _, product := range p.products {
			if err := w.save(ctx, tx, product); err != nil {
				return err
			}
		}

		if og := p.detail.OldGold; og != nil {
			og.InvoiceId = inv.ID
			if err := w.create(ctx, tx, og); err != nil {
				return err
			}
		}
		for i := range p.detail.Payments {
			pay := &p.detail.Payments[i]
			pay.InvoiceId = inv.ID
			if err := w.create(ctx, tx, pay); err != nil {
				return err
			}
		}

		if inv.BalanceDue.GreaterThan(decimal.Zero) {
			p.customer.OutstandingBalance = p.customer.OutstandingBalance.Add(inv.BalanceDue)
			if err := w.save(ctx, tx, &p.customer); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "InvoiceWorkflow", "CreateInvoice", "create invoice", input.CustomerId, err)
		}
		return nil, err
	}

	w.log(ctx).WithFields(logrus.Fields{
		"invoice_number": p.detail.InvoiceNumber,
		"grand_total":    p.detail.GrandTotal.String(),
	}).Info("invoice created")
	return &p.detail, nil
}

func (w *InvoiceWorkflow) GetInvoice(ctx context.Context, id string) (*models.InvoiceDetail, error) {
	return loadInvoiceDetail(ctx, w.DB, id)
}

func loadInvoiceDetail(ctx context.Context, db *gorm.DB, id string) (*models.InvoiceDetail, error) {
	var d models.InvoiceDetail
	if err := find(ctx, db, &d.Invoice, id, models.ErrInvoiceNotFound); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Where("invoice_id = ?", id).Order("created_at").Find(&d.Items).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Where("invoice_id = ?", id).Order("payment_date").Find(&d.Payments).Error; err != nil {
		return nil, err
	}
	var og models.OldGoldTransaction
	err := db.WithContext(ctx).Where("invoice_id = ?", id).Take(&og).Error
	switch {
	case err == nil:
		d.OldGold = &og
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return &d, nil
}

type InvoiceFilter struct {
	From       *time.Time
	To         *time.Time
	CustomerId string
	Status     models.InvoiceStatus
	Limit      int
}

func (w *InvoiceWorkflow) ListInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	db := w.DB.WithContext(ctx)
	if f.From != nil {
		db = db.Where("invoice_date >= ?", f.From.UTC())
	}
	if f.To != nil {
		db = db.Where("invoice_date <= ?", f.To.UTC())
	}
	if f.CustomerId != "" {
		db = db.Where("customer_id = ?", f.CustomerId)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 200
	}
	var invoices []models.Invoice
	err := db.Order("invoice_date DESC").Limit(f.Limit).Find(&invoices).Error
	return invoices, err
}

// CancelInvoice puts the sold stock back and takes the unpaid balance off
// the customer. Payments already taken are kept.
func (w *InvoiceWorkflow) CancelInvoice(ctx context.Context, id string, reason string) (*models.InvoiceDetail, error) {
	ctx, span := startSpan(ctx, "CancelInvoice")
	defer span.End()

	var d *models.InvoiceDetail
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		d, err = loadInvoiceDetail(ctx, tx, id)
		if err != nil {
			return err
		}
		if d.Status == models.InvoiceStatusCancelled {
			return utils.NewValidationError(models.ErrInvoiceCancelled, d.InvoiceNumber)
		}

		restock := map[string]int{}
		for _, item := range d.Items {
			restock[item.ProductId] += item.Quantity
		}
		for productId, qty := range restock {
			var product models.Product
			if err := find(ctx, tx, &product, productId, models.ErrProductNotFound); err != nil {
				return err
			}
			if err := product.ApplyStockDelta(qty); err != nil {
				return err
			}
			if err := w.save(ctx, tx, &product); err != nil {
				return err
			}
		}

		if d.BalanceDue.GreaterThan(decimal.Zero) {
			var customer models.Customer
			if err := find(ctx, tx, &customer, d.CustomerId, models.ErrCustomerNotFound); err != nil {
				return err
			}
			customer.OutstandingBalance = customer.OutstandingBalance.Sub(d.BalanceDue)
			if err := w.save(ctx, tx, &customer); err != nil {
				return err
			}
		}

		d.Status = models.InvoiceStatusCancelled
		if reason != "" {
			d.Notes = appendNote(d.Notes, w.now(), "Cancelled: "+reason)
		}
		return w.save(ctx, tx, &d.Invoice)
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "InvoiceWorkflow", "CancelInvoice", "cancel invoice", id, err)
		}
		return nil, err
	}
	return d, nil
}

// RecordInvoicePayment takes a later payment against the balance due.
func (w *InvoiceWorkflow) RecordInvoicePayment(ctx context.Context, id string, input models.NewInvoicePayment) (*models.InvoiceDetail, error) {
	ctx, span := startSpan(ctx, "RecordInvoicePayment")
	defer span.End()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	amount := utils.RoundMoney(input.Amount)

	var d *models.InvoiceDetail
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		d, err = loadInvoiceDetail(ctx, tx, id)
		if err != nil {
			return err
		}
		if d.Status == models.InvoiceStatusCancelled {
			return utils.NewValidationError(models.ErrInvoiceCancelled, d.InvoiceNumber)
		}
		if amount.GreaterThan(d.BalanceDue) {
			return utils.NewValidationError(models.ErrOverpayment, d.BalanceDue.StringFixed(2))
		}

		pay := models.InvoicePayment{
			InvoiceId:   d.ID,
			PaymentMode: input.PaymentMode,
			Amount:      amount,
			Reference:   input.Reference,
			PaymentDate: w.now(),
		}
		if err := w.create(ctx, tx, &pay); err != nil {
			return err
		}
		d.Payments = append(d.Payments, pay)

		d.ApplyPayment(amount)
		if err := w.save(ctx, tx, &d.Invoice); err != nil {
			return err
		}

		var customer models.Customer
		if err := find(ctx, tx, &customer, d.CustomerId, models.ErrCustomerNotFound); err != nil {
			return err
		}
		customer.OutstandingBalance = customer.OutstandingBalance.Sub(amount)
		return w.save(ctx, tx, &customer)
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "InvoiceWorkflow", "RecordInvoicePayment", "record payment", id, err)
		}
		return nil, err
	}
	return d, nil
}
