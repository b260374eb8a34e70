package models

type MetalType string

const (
	MetalTypeGold     MetalType = "gold"
	MetalTypeSilver   MetalType = "silver"
	MetalTypePlatinum MetalType = "platinum"
)

func (t MetalType) IsValid() bool {
	switch t {
	case MetalTypeGold, MetalTypeSilver, MetalTypePlatinum:
		return true
	}
	return false
}

type MakingChargeType string

const (
	MakingChargePerGram    MakingChargeType = "per_gram"
	MakingChargePercentage MakingChargeType = "percentage"
	MakingChargeFixed      MakingChargeType = "fixed"
	// MakingChargeSlab has no slab table yet and is priced like fixed.
	MakingChargeSlab MakingChargeType = "slab"
)

func (t MakingChargeType) IsValid() bool {
	switch t {
	case MakingChargePerGram, MakingChargePercentage, MakingChargeFixed, MakingChargeSlab:
		return true
	}
	return false
}

type SupplyType string

const (
	SupplyIntraState SupplyType = "intra"
	SupplyInterState SupplyType = "inter"
)

func (t SupplyType) IsValid() bool {
	return t == SupplyIntraState || t == SupplyInterState
}

func (t SupplyType) IsInterState() bool {
	return t == SupplyInterState
}

// ResolveSupplyType picks inter-state when the counterparty's state is known
// and differs from the company's.
func ResolveSupplyType(explicit SupplyType, companyState string, partyState string) SupplyType {
	if explicit.IsValid() {
		return explicit
	}
	if partyState != "" && companyState != "" && partyState != companyState {
		return SupplyInterState
	}
	return SupplyIntraState
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "cash"
	PaymentModeCard         PaymentMode = "card"
	PaymentModeUPI          PaymentMode = "upi"
	PaymentModeBankTransfer PaymentMode = "bank_transfer"
	PaymentModeCheque       PaymentMode = "cheque"
)

func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeCard, PaymentModeUPI, PaymentModeBankTransfer, PaymentModeCheque:
		return true
	}
	return false
}

type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusSold      ProductStatus = "sold"
	ProductStatusReserved  ProductStatus = "reserved"
)

type InvoiceStatus string

const (
	InvoiceStatusActive    InvoiceStatus = "active"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

type LoanStatus string

const (
	LoanStatusSanctioned    LoanStatus = "sanctioned"
	LoanStatusDisbursed     LoanStatus = "disbursed"
	LoanStatusActive        LoanStatus = "active"
	LoanStatusPartialRepaid LoanStatus = "partial_repaid"
	LoanStatusClosed        LoanStatus = "closed"
	LoanStatusForeclosed    LoanStatus = "foreclosed"
	LoanStatusDefaulted     LoanStatus = "defaulted"
)

// IsTerminal is true once no further payment can be taken.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusClosed || s == LoanStatusForeclosed
}

type InterestCalculationType string

const (
	InterestMonthly   InterestCalculationType = "monthly"
	InterestQuarterly InterestCalculationType = "quarterly"
	InterestMaturity  InterestCalculationType = "maturity"
)

func (t InterestCalculationType) IsValid() bool {
	return t == InterestMonthly || t == InterestQuarterly || t == InterestMaturity
}

type LoanPaymentType string

const (
	LoanPaymentPartial     LoanPaymentType = "partial"
	LoanPaymentFull        LoanPaymentType = "full"
	LoanPaymentForeclosure LoanPaymentType = "foreclosure"
)

type JobType string

const (
	JobTypeMaking       JobType = "making"
	JobTypeRepair       JobType = "repair"
	JobTypeStoneSetting JobType = "stone_setting"
)

func (t JobType) IsValid() bool {
	return t == JobTypeMaking || t == JobTypeRepair || t == JobTypeStoneSetting
}

type JobStatus string

const (
	JobStatusIssued    JobStatus = "issued"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
)

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusOrdered   PurchaseOrderStatus = "ordered"
	PurchaseOrderStatusReceived  PurchaseOrderStatus = "received"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "cancelled"
)

type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleManager UserRole = "manager"
	UserRoleStaff   UserRole = "staff"
)

func (r UserRole) IsValid() bool {
	return r == UserRoleAdmin || r == UserRoleManager || r == UserRoleStaff
}

type SyncOperation string

const (
	SyncOperationInsert SyncOperation = "insert"
	SyncOperationUpdate SyncOperation = "update"
	SyncOperationDelete SyncOperation = "delete"
)

func (o SyncOperation) IsValid() bool {
	return o == SyncOperationInsert || o == SyncOperationUpdate || o == SyncOperationDelete
}

type SyncState string

const (
	SyncStatePending SyncState = "pending"
	SyncStateSyncing SyncState = "syncing"
	SyncStateSynced  SyncState = "synced"
	SyncStateFailed  SyncState = "failed"
)
