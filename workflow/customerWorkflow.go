package workflow

import (
	"context"
	"strings"

	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"gorm.io/gorm"
)

type CustomerWorkflow struct {
	Workflow
}

func NewCustomerWorkflow(w Workflow) *CustomerWorkflow {
	return &CustomerWorkflow{Workflow: w}
}

func normalizeCustomer(input *models.NewCustomer) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	phone, err := utils.NormalizePhone(input.Phone)
	if err != nil {
		return utils.Invalidf("invalid phone number %q", input.Phone)
	}
	input.Phone = phone
	input.Name = strings.TrimSpace(input.Name)
	input.Gstin = strings.ToUpper(strings.TrimSpace(input.Gstin))
	input.Pan = strings.ToUpper(strings.TrimSpace(input.Pan))
	return nil
}

func (w *CustomerWorkflow) CreateCustomer(ctx context.Context, input models.NewCustomer) (*models.Customer, error) {
	ctx, span := startSpan(ctx, "CreateCustomer")
	defer span.End()

	if err := normalizeCustomer(&input); err != nil {
		return nil, err
	}
	customer := models.Customer{
		Name:      input.Name,
		Phone:     input.Phone,
		Email:     input.Email,
		Address:   input.Address,
		StateCode: input.StateCode,
		Gstin:     input.Gstin,
		Pan:       input.Pan,
	}
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return w.create(ctx, tx, &customer)
	})
	if err != nil {
		config.LogError(w.Logger, "CustomerWorkflow", "CreateCustomer", "create customer", input.Name, err)
		return nil, err
	}
	return &customer, nil
}

// UpdateCustomer changes contact details. The outstanding balance is only
// moved by invoices, payments and loans.
func (w *CustomerWorkflow) UpdateCustomer(ctx context.Context, id string, input models.NewCustomer) (*models.Customer, error) {
	ctx, span := startSpan(ctx, "UpdateCustomer")
	defer span.End()

	if err := normalizeCustomer(&input); err != nil {
		return nil, err
	}
	var customer models.Customer
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := find(ctx, tx, &customer, id, models.ErrCustomerNotFound); err != nil {
			return err
		}
		customer.Name = input.Name
		customer.Phone = input.Phone
		customer.Email = input.Email
		customer.Address = input.Address
		customer.StateCode = input.StateCode
		customer.Gstin = input.Gstin
		customer.Pan = input.Pan
		return w.save(ctx, tx, &customer)
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "CustomerWorkflow", "UpdateCustomer", "update customer", id, err)
		}
		return nil, err
	}
	return &customer, nil
}

func (w *CustomerWorkflow) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	if err := find(ctx, w.DB, &customer, id, models.ErrCustomerNotFound); err != nil {
		return nil, err
	}
	return &customer, nil
}

// ListCustomers matches search against name and phone.
func (w *CustomerWorkflow) ListCustomers(ctx context.Context, search string) ([]models.Customer, error) {
	db := w.DB.WithContext(ctx)
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		db = db.Where("name LIKE ? OR phone LIKE ?", like, like)
	}
	var customers []models.Customer
	err := db.Order("name").Limit(500).Find(&customers).Error
	return customers, err
}
