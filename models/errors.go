package models

import "errors"

var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available for sale")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrMetalRateMissing   = errors.New("metal rate is required")
	ErrNegativeTotal      = errors.New("old gold value exceeds invoice total")
	ErrOverpayment        = errors.New("payment exceeds amount due")
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrInvoiceCancelled   = errors.New("invoice is cancelled")

	ErrLoanNotFound         = errors.New("gold loan not found")
	ErrLoanNotSanctioned    = errors.New("loan is not in sanctioned state")
	ErrLoanNotApproved      = errors.New("loan requires approval before disbursement")
	ErrLoanAlreadyDisbursed = errors.New("loan is already disbursed")
	ErrLoanNotDisbursed     = errors.New("loan has not been disbursed")
	ErrLoanClosed           = errors.New("loan is already closed")
	ErrLoanOutstanding      = errors.New("loan has an outstanding balance")
	ErrNothingDue           = errors.New("no balance due on loan")
	ErrLoanAmountExceeds    = errors.New("loan amount exceeds appraised value")
	ErrInvalidTransition    = errors.New("invalid status transition")

	ErrKarigarNotFound   = errors.New("karigar not found")
	ErrJobNotFound       = errors.New("job not found")
	ErrReceivedTooHeavy  = errors.New("received weight exceeds issued weight")
	ErrVendorNotFound    = errors.New("vendor not found")
	ErrPurchaseNotFound  = errors.New("purchase order not found")
	ErrInvalidCredential = errors.New("invalid username or password")
)
