package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/shopspring/decimal"
)

type GoldLoan struct {
	DocumentBase
	LoanNumber              string                  `gorm:"size:50;not null;uniqueIndex:,composite:branch_number,priority:2" json:"loan_number"`
	CustomerId              string                  `gorm:"size:36;index;not null" json:"customer_id"`
	LoanDate                time.Time               `gorm:"not null" json:"loan_date"`
	MaturityDate            time.Time               `gorm:"not null;index" json:"maturity_date"`
	ItemDescription         string                  `gorm:"type:text" json:"item_description"`
	GrossWeight             decimal.Decimal         `gorm:"type:decimal(20,3);default:0" json:"gross_weight"`
	StoneWeight             decimal.Decimal         `gorm:"type:decimal(20,3);default:0" json:"stone_weight"`
	NetWeight               decimal.Decimal         `gorm:"type:decimal(20,3);default:0" json:"net_weight"`
	Purity                  decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"purity"`
	FineWeight              decimal.Decimal         `gorm:"type:decimal(20,3);default:0" json:"fine_weight"`
	GoldRate                decimal.Decimal         `gorm:"type:decimal(20,2);default:0" json:"gold_rate"`
	AppraisedValue          decimal.Decimal         `gorm:"type:decimal(20,2);default:0" json:"appraised_value"`
	LtvPercentage           decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"ltv_percentage"`
	LoanAmount              decimal.Decimal         `gorm:"type:decimal(20,2);default:0" json:"loan_amount"`
	InterestRate            decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"interest_rate"`
	TenureMonths            int                     `gorm:"not null" json:"tenure_months"`
	InterestCalculationType InterestCalculationType `gorm:"size:20;not null;default:'monthly'" json:"interest_calculation_type"`
	TotalInterest           decimal.Decimal         `gorm:"type:decimal(20,2);default:0" json:"total_interest"`
	TotalPayable            decimal.Decimal         `gorm:"type:decimal(20,2);default:0" json:"total_payable"`
	AmountPaid              decimal.Decimal         `gorm:"type:decimal(20,2);default:0" json:"amount_paid"`
	InterestPaid            decimal.Decimal         `gorm:"type:decimal(20,2);default:0" json:"interest_paid"`
	PrincipalPaid           decimal.Decimal         `gorm:"type:decimal(20,2);default:0" json:"principal_paid"`
	BalanceDue              decimal.Decimal         `gorm:"type:decimal(20,2);default:0" json:"balance_due"`
	Status                  LoanStatus              `gorm:"size:20;not null;default:'sanctioned';index" json:"status"`
	PaymentStatus           PaymentStatus           `gorm:"size:20;not null;default:'pending'" json:"payment_status"`
	RequiresApproval        bool                    `gorm:"not null" json:"requires_approval"`
	ApprovedBy              string                  `gorm:"size:100" json:"approved_by"`
	ApprovedAt              *time.Time              `json:"approved_at"`
	DisbursedDate           *time.Time              `json:"disbursed_date"`
	ClosedDate              *time.Time              `json:"closed_date"`
	Notes                   string                  `gorm:"type:text" json:"notes"`
}

func (GoldLoan) TableName() string {
	return "gold_loans"
}

type LoanPayment struct {
	Base
	LoanId             string          `gorm:"size:36;index;not null" json:"loan_id"`
	PaymentDate        time.Time       `gorm:"not null" json:"payment_date"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	PaymentType        LoanPaymentType `gorm:"size:20;not null" json:"payment_type"`
	PaymentMode        PaymentMode     `gorm:"size:20;not null;default:'cash'" json:"payment_mode"`
	InterestComponent  decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"interest_component"`
	PrincipalComponent decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"principal_component"`
	PenaltyAmount      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"penalty_amount"`
	BalanceBefore      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"balance_before"`
	BalanceAfter       decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"balance_after"`
	Reference          string          `gorm:"size:100" json:"reference"`
}

func (LoanPayment) TableName() string {
	return "loan_payments"
}

// loan actions and the states they may start from
var loanTransitionMap = map[string][]LoanStatus{
	"approve":   {LoanStatusSanctioned},
	"disburse":  {LoanStatusSanctioned},
	"activate":  {LoanStatusDisbursed},
	"pay":       {LoanStatusDisbursed, LoanStatusActive, LoanStatusPartialRepaid, LoanStatusDefaulted},
	"close":     {LoanStatusDisbursed, LoanStatusActive, LoanStatusPartialRepaid, LoanStatusDefaulted},
	"foreclose": {LoanStatusDisbursed, LoanStatusActive, LoanStatusPartialRepaid, LoanStatusDefaulted},
}

func ValidLoanTransition(action string, from LoanStatus) bool {
	allowed, ok := loanTransitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}

// Valuate derives the collateral value and the principal. A manual amount
// overrides LTV but may not exceed the appraised value.
func (l *GoldLoan) Valuate(manualAmount *decimal.Decimal) error {
	l.NetWeight = utils.RoundWeight(l.GrossWeight.Sub(l.StoneWeight))
	l.FineWeight = FineWeight(l.NetWeight, l.Purity)
	l.AppraisedValue = utils.RoundMoney(l.FineWeight.Mul(l.GoldRate))
	if manualAmount != nil {
		if !manualAmount.GreaterThan(decimal.Zero) {
			return utils.Invalidf("loan amount must be positive")
		}
		if manualAmount.GreaterThan(l.AppraisedValue) {
			return utils.NewValidationError(ErrLoanAmountExceeds, l.AppraisedValue.StringFixed(2))
		}
		l.LoanAmount = utils.RoundMoney(*manualAmount)
		return nil
	}
	l.LoanAmount = utils.RoundMoney(utils.PercentOf(l.AppraisedValue, l.LtvPercentage))
	return nil
}

// CalculateInterest applies simple interest for the selected schedule and
// resets maturity and balance.
func (l *GoldLoan) CalculateInterest() {
	// multiply before dividing so rates like 11% stay exact until rounding
	base := l.LoanAmount.Mul(l.InterestRate)
	switch l.InterestCalculationType {
	case InterestQuarterly:
		quarters := decimal.NewFromInt(int64(utils.CeilDiv(l.TenureMonths, 3)))
		l.TotalInterest = base.Mul(quarters).Div(decimal.NewFromInt(400))
	default:
		// monthly and maturity schedules accrue the same simple interest
		tenure := decimal.NewFromInt(int64(l.TenureMonths))
		l.TotalInterest = base.Mul(tenure).Div(decimal.NewFromInt(1200))
	}
	l.TotalInterest = utils.RoundMoney(l.TotalInterest)
	l.TotalPayable = l.LoanAmount.Add(l.TotalInterest)
	l.BalanceDue = l.TotalPayable.Sub(l.AmountPaid)
	l.MaturityDate = l.LoanDate.AddDate(0, l.TenureMonths, 0)
}

func (l *GoldLoan) Approve(by string, at time.Time) error {
	if !ValidLoanTransition("approve", l.Status) {
		return utils.NewValidationError(ErrLoanNotSanctioned, string(l.Status))
	}
	l.ApprovedBy = by
	l.ApprovedAt = &at
	return nil
}

func (l *GoldLoan) CanDisburse() error {
	if l.DisbursedDate != nil {
		return utils.NewValidationError(ErrLoanAlreadyDisbursed, l.LoanNumber)
	}
	if !ValidLoanTransition("disburse", l.Status) {
		return utils.NewValidationError(ErrLoanNotSanctioned, string(l.Status))
	}
	if l.RequiresApproval && l.ApprovedBy == "" {
		return utils.NewValidationError(ErrLoanNotApproved, l.LoanNumber)
	}
	return nil
}

func (l *GoldLoan) Disburse(at time.Time) error {
	if err := l.CanDisburse(); err != nil {
		return err
	}
	l.DisbursedDate = &at
	l.Status = LoanStatusDisbursed
	return nil
}

func (l *GoldLoan) Activate() error {
	if !ValidLoanTransition("activate", l.Status) {
		return utils.NewValidationError(ErrInvalidTransition, fmt.Sprintf("%s -> %s", l.Status, LoanStatusActive))
	}
	l.Status = LoanStatusActive
	return nil
}

func (l *GoldLoan) CanRecordPayment() error {
	if l.Status.IsTerminal() {
		return utils.NewValidationError(ErrLoanClosed, l.LoanNumber)
	}
	if l.DisbursedDate == nil || !ValidLoanTransition("pay", l.Status) {
		return utils.NewValidationError(ErrLoanNotDisbursed, l.LoanNumber)
	}
	if !l.BalanceDue.GreaterThan(decimal.Zero) {
		return utils.NewValidationError(ErrNothingDue, l.LoanNumber)
	}
	return nil
}

// allocate splits amount into the outstanding interest first and principal
// with the remainder.
func (l *GoldLoan) allocate(amount decimal.Decimal) (interest decimal.Decimal, principal decimal.Decimal) {
	outstanding := l.TotalInterest.Sub(l.InterestPaid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	interest = decimal.Min(amount, outstanding)
	principal = amount.Sub(interest)
	return interest, principal
}

// ApplyPayment books amount against the loan and returns the payment row.
// The loan closes when nothing remains due.
func (l *GoldLoan) ApplyPayment(amount decimal.Decimal, mode PaymentMode, reference string, at time.Time) (LoanPayment, error) {
	if err := l.CanRecordPayment(); err != nil {
		return LoanPayment{}, err
	}
	if !amount.GreaterThan(decimal.Zero) {
		return LoanPayment{}, utils.Invalidf("payment amount must be positive")
	}
	if amount.GreaterThan(l.BalanceDue) {
		return LoanPayment{}, utils.NewValidationError(ErrOverpayment, l.BalanceDue.StringFixed(2))
	}
	before := l.BalanceDue
	interest, principal := l.allocate(amount)
	l.AmountPaid = l.AmountPaid.Add(amount)
	l.InterestPaid = l.InterestPaid.Add(interest)
	l.PrincipalPaid = l.PrincipalPaid.Add(principal)
	l.BalanceDue = l.TotalPayable.Sub(l.AmountPaid)

	paymentType := LoanPaymentPartial
	if !l.BalanceDue.GreaterThan(decimal.Zero) {
		paymentType = LoanPaymentFull
		l.BalanceDue = decimal.Zero
		l.Status = LoanStatusClosed
		l.PaymentStatus = PaymentStatusPaid
		l.ClosedDate = &at
	} else {
		l.Status = LoanStatusPartialRepaid
		l.PaymentStatus = PaymentStatusPartial
	}

	return LoanPayment{
		LoanId:             l.ID,
		PaymentDate:        at,
		Amount:             amount,
		PaymentType:        paymentType,
		PaymentMode:        mode,
		InterestComponent:  interest,
		PrincipalComponent: principal,
		PenaltyAmount:      decimal.Zero,
		BalanceBefore:      before,
		BalanceAfter:       l.BalanceDue,
		Reference:          reference,
	}, nil
}

// Foreclose settles the loan with one payment of balance plus penalty.
func (l *GoldLoan) Foreclose(penalty decimal.Decimal, mode PaymentMode, reference string, at time.Time) (LoanPayment, error) {
	if l.Status.IsTerminal() {
		return LoanPayment{}, utils.NewValidationError(ErrLoanClosed, l.LoanNumber)
	}
	if l.DisbursedDate == nil || !ValidLoanTransition("foreclose", l.Status) {
		return LoanPayment{}, utils.NewValidationError(ErrLoanNotDisbursed, l.LoanNumber)
	}
	if penalty.IsNegative() {
		return LoanPayment{}, utils.Invalidf("penalty must not be negative")
	}
	before := l.BalanceDue
	amount := before.Add(penalty)
	interest, principal := l.allocate(before)
	l.AmountPaid = l.AmountPaid.Add(amount)
	l.InterestPaid = l.InterestPaid.Add(interest)
	l.PrincipalPaid = l.PrincipalPaid.Add(principal)
	l.BalanceDue = decimal.Zero
	l.Status = LoanStatusForeclosed
	l.PaymentStatus = PaymentStatusPaid
	l.ClosedDate = &at

	return LoanPayment{
		LoanId:             l.ID,
		PaymentDate:        at,
		Amount:             amount,
		PaymentType:        LoanPaymentForeclosure,
		PaymentMode:        mode,
		InterestComponent:  interest,
		PrincipalComponent: principal,
		PenaltyAmount:      penalty,
		BalanceBefore:      before,
		BalanceAfter:       decimal.Zero,
		Reference:          reference,
	}, nil
}

func (l *GoldLoan) Close(at time.Time) error {
	if l.Status.IsTerminal() {
		return utils.NewValidationError(ErrLoanClosed, l.LoanNumber)
	}
	if l.BalanceDue.GreaterThan(decimal.Zero) {
		return utils.NewValidationError(ErrLoanOutstanding, l.BalanceDue.StringFixed(2))
	}
	l.Status = LoanStatusClosed
	l.PaymentStatus = PaymentStatusPaid
	l.ClosedDate = &at
	return nil
}

// MarkDefault is a manual transition; it is not guarded.
func (l *GoldLoan) MarkDefault(reason string, at time.Time) {
	l.Status = LoanStatusDefaulted
	line := fmt.Sprintf("[%s] Defaulted: %s", at.Format("2006-01-02"), strings.TrimSpace(reason))
	if l.Notes == "" {
		l.Notes = line
		return
	}
	l.Notes = l.Notes + "\n" + line
}

// IsOverdue is true for a running loan past its maturity date.
func (l GoldLoan) IsOverdue(asOf time.Time) bool {
	return !l.Status.IsTerminal() && l.DisbursedDate != nil && asOf.After(l.MaturityDate)
}

type NewGoldLoan struct {
	CustomerId              string                  `json:"customer_id" validate:"required"`
	LoanDate                *time.Time              `json:"loan_date"`
	ItemDescription         string                  `json:"item_description" validate:"required"`
	GrossWeight             decimal.Decimal         `json:"gross_weight" validate:"gt=0"`
	StoneWeight             decimal.Decimal         `json:"stone_weight" validate:"gte=0"`
	Purity                  decimal.Decimal         `json:"purity" validate:"gt=0,lte=100"`
	GoldRate                decimal.Decimal         `json:"gold_rate" validate:"gte=0"`
	LtvPercentage           decimal.Decimal         `json:"ltv_percentage" validate:"gt=0,lte=100"`
	LoanAmount              *decimal.Decimal        `json:"loan_amount"`
	InterestRate            decimal.Decimal         `json:"interest_rate" validate:"gte=0"`
	TenureMonths            int                     `json:"tenure_months" validate:"min=1"`
	InterestCalculationType InterestCalculationType `json:"interest_calculation_type" validate:"omitempty,oneof=monthly quarterly maturity"`
	RequiresApproval        bool                    `json:"requires_approval"`
	Notes                   string                  `json:"notes"`
}

type NewLoanPayment struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentMode PaymentMode     `json:"payment_mode" validate:"omitempty,oneof=cash card upi bank_transfer cheque"`
	Reference   string          `json:"reference" validate:"max=100"`
}

type GoldLoanDetail struct {
	GoldLoan
	Payments []LoanPayment `json:"payments"`
}
