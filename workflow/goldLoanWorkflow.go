package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type GoldLoanWorkflow struct {
	Workflow
}

func NewGoldLoanWorkflow(w Workflow) *GoldLoanWorkflow {
	return &GoldLoanWorkflow{Workflow: w}
}

// CreateLoan values the collateral and sanctions the loan. Without a gold
// rate in the request the latest recorded rate for the purity is used.
func (w *GoldLoanWorkflow) CreateLoan(ctx context.Context, input models.NewGoldLoan) (*models.GoldLoan, error) {
	ctx, span := startSpan(ctx, "CreateLoan")
	defer span.End()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.StoneWeight.GreaterThan(input.GrossWeight) {
		return nil, utils.Invalidf("stone weight exceeds gross weight")
	}
	b, err := branch(ctx)
	if err != nil {
		return nil, err
	}

	calc := input.InterestCalculationType
	if calc == "" {
		calc = models.InterestMonthly
	}
	loan := models.GoldLoan{
		CustomerId:              input.CustomerId,
		LoanDate:                orDefault(input.LoanDate, w.now()),
		ItemDescription:         input.ItemDescription,
		GrossWeight:             input.GrossWeight,
		StoneWeight:             input.StoneWeight,
		Purity:                  input.Purity,
		GoldRate:                input.GoldRate,
		LtvPercentage:           input.LtvPercentage,
		InterestRate:            input.InterestRate,
		TenureMonths:            input.TenureMonths,
		InterestCalculationType: calc,
		Status:                  models.LoanStatusSanctioned,
		PaymentStatus:           models.PaymentStatusPending,
		RequiresApproval:        input.RequiresApproval,
		AmountPaid:              decimal.Zero,
		Notes:                   input.Notes,
	}

	err = w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := find(ctx, tx, &customer, input.CustomerId, models.ErrCustomerNotFound); err != nil {
			return err
		}
		if !loan.GoldRate.GreaterThan(decimal.Zero) {
			latest, err := latestRate(ctx, tx, models.MetalTypeGold, loan.Purity)
			if err != nil {
				return err
			}
			loan.GoldRate = latest.RatePerGram
		}
		if err := loan.Valuate(input.LoanAmount); err != nil {
			return err
		}
		loan.CalculateInterest()

		var err error
		loan.LoanNumber, err = nextNumber(ctx, tx, &models.GoldLoan{}, "loan_number", b.LoanPrefix, b.BranchId, loan.LoanDate)
		if err != nil {
			return err
		}
		return w.create(ctx, tx, &loan)
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "GoldLoanWorkflow", "CreateLoan", "create loan", input.CustomerId, err)
		}
		return nil, err
	}
	w.log(ctx).WithFields(logrus.Fields{
		"loan_number": loan.LoanNumber,
		"loan_amount": loan.LoanAmount.String(),
	}).Info("gold loan sanctioned")
	return &loan, nil
}

// mutate loads the loan inside a transaction, applies fn and saves the loan
// with its outbox row.
func (w *GoldLoanWorkflow) mutate(ctx context.Context, funcName string, id string, fn func(tx *gorm.DB, loan *models.GoldLoan) error) (*models.GoldLoan, error) {
	ctx, span := startSpan(ctx, funcName)
	defer span.End()

	var loan models.GoldLoan
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := find(ctx, tx, &loan, id, models.ErrLoanNotFound); err != nil {
			return err
		}
		if err := fn(tx, &loan); err != nil {
			return err
		}
		return w.save(ctx, tx, &loan)
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "GoldLoanWorkflow", funcName, "update loan", id, err)
		}
		return nil, err
	}
	w.log(ctx).WithFields(logrus.Fields{
		"loan_number": loan.LoanNumber,
		"status":      loan.Status,
		"action":      funcName,
	}).Info("gold loan updated")
	return &loan, nil
}

func (w *GoldLoanWorkflow) adjustOutstanding(ctx context.Context, tx *gorm.DB, customerId string, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	var customer models.Customer
	if err := find(ctx, tx, &customer, customerId, models.ErrCustomerNotFound); err != nil {
		return err
	}
	customer.OutstandingBalance = customer.OutstandingBalance.Add(delta)
	return w.save(ctx, tx, &customer)
}

func (w *GoldLoanWorkflow) ApproveLoan(ctx context.Context, id string, approvedBy string) (*models.GoldLoan, error) {
	if approvedBy == "" {
		if username, ok := utils.GetUsernameFromContext(ctx); ok {
			approvedBy = username
		}
	}
	if approvedBy == "" {
		return nil, utils.Invalidf("approved_by is required")
	}
	return w.mutate(ctx, "ApproveLoan", id, func(tx *gorm.DB, loan *models.GoldLoan) error {
		return loan.Approve(approvedBy, w.now())
	})
}

// DisburseLoan hands over the principal, which is added to the customer's
// outstanding balance.
func (w *GoldLoanWorkflow) DisburseLoan(ctx context.Context, id string) (*models.GoldLoan, error) {
	return w.mutate(ctx, "DisburseLoan", id, func(tx *gorm.DB, loan *models.GoldLoan) error {
		if err := loan.Disburse(w.now()); err != nil {
			return err
		}
		return w.adjustOutstanding(ctx, tx, loan.CustomerId, loan.LoanAmount)
	})
}

func (w *GoldLoanWorkflow) ActivateLoan(ctx context.Context, id string) (*models.GoldLoan, error) {
	return w.mutate(ctx, "ActivateLoan", id, func(tx *gorm.DB, loan *models.GoldLoan) error {
		return loan.Activate()
	})
}

func (w *GoldLoanWorkflow) createPayment(ctx context.Context, tx *gorm.DB, loan *models.GoldLoan, pay models.LoanPayment) error {
	if err := w.create(ctx, tx, &pay); err != nil {
		return err
	}
	return w.adjustOutstanding(ctx, tx, loan.CustomerId, pay.PrincipalComponent.Neg())
}

// RecordPayment books a repayment, interest first. A payment of exactly
// the balance due closes the loan.
func (w *GoldLoanWorkflow) RecordPayment(ctx context.Context, id string, input models.NewLoanPayment) (*models.GoldLoanDetail, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	mode := input.PaymentMode
	if mode == "" {
		mode = models.PaymentModeCash
	}
	loan, err := w.mutate(ctx, "RecordPayment", id, func(tx *gorm.DB, loan *models.GoldLoan) error {
		pay, err := loan.ApplyPayment(utils.RoundMoney(input.Amount), mode, input.Reference, w.now())
		if err != nil {
			return err
		}
		return w.createPayment(ctx, tx, loan, pay)
	})
	if err != nil {
		return nil, err
	}
	return w.detail(ctx, loan)
}

// CloseLoan closes a fully repaid loan.
func (w *GoldLoanWorkflow) CloseLoan(ctx context.Context, id string) (*models.GoldLoan, error) {
	return w.mutate(ctx, "CloseLoan", id, func(tx *gorm.DB, loan *models.GoldLoan) error {
		return loan.Close(w.now())
	})
}

// ForecloseLoan settles the whole balance plus penalty as one payment.
func (w *GoldLoanWorkflow) ForecloseLoan(ctx context.Context, id string, penalty decimal.Decimal, mode models.PaymentMode, reference string) (*models.GoldLoanDetail, error) {
	if mode == "" {
		mode = models.PaymentModeCash
	}
	if !mode.IsValid() {
		return nil, utils.Invalidf("unknown payment mode %q", mode)
	}
	loan, err := w.mutate(ctx, "ForecloseLoan", id, func(tx *gorm.DB, loan *models.GoldLoan) error {
		pay, err := loan.Foreclose(utils.RoundMoney(penalty), mode, reference, w.now())
		if err != nil {
			return err
		}
		return w.createPayment(ctx, tx, loan, pay)
	})
	if err != nil {
		return nil, err
	}
	return w.detail(ctx, loan)
}

func (w *GoldLoanWorkflow) MarkAsDefault(ctx context.Context, id string, reason string) (*models.GoldLoan, error) {
	return w.mutate(ctx, "MarkAsDefault", id, func(tx *gorm.DB, loan *models.GoldLoan) error {
		loan.MarkDefault(reason, w.now())
		return nil
	})
}

func (w *GoldLoanWorkflow) GetLoan(ctx context.Context, id string) (*models.GoldLoanDetail, error) {
	var loan models.GoldLoan
	if err := find(ctx, w.DB, &loan, id, models.ErrLoanNotFound); err != nil {
		return nil, err
	}
	return w.detail(ctx, &loan)
}

func (w *GoldLoanWorkflow) detail(ctx context.Context, loan *models.GoldLoan) (*models.GoldLoanDetail, error) {
	d := models.GoldLoanDetail{GoldLoan: *loan}
	err := w.DB.WithContext(ctx).Where("loan_id = ?", loan.ID).Order("payment_date").Order("created_at").Find(&d.Payments).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (w *GoldLoanWorkflow) ListLoans(ctx context.Context, status models.LoanStatus, customerId string) ([]models.GoldLoan, error) {
	db := w.DB.WithContext(ctx)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if customerId != "" {
		db = db.Where("customer_id = ?", customerId)
	}
	var loans []models.GoldLoan
	if err := db.Order("loan_date DESC").Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}
