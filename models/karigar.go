package models

import (
	"time"

	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/shopspring/decimal"
)

// Karigar is an artisan who works on consigned metal. MetalBalance is the
// fine weight currently held by them.
type Karigar struct {
	Base
	Name                       string          `gorm:"size:255;not null" json:"name"`
	Phone                      string          `gorm:"size:20" json:"phone"`
	Specialization             string          `gorm:"size:100" json:"specialization"`
	WastageAllowancePercentage decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"wastage_allowance_percentage"`
	LabourRatePerGram          decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"labour_rate_per_gram"`
	MetalBalance               decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"metal_balance"`
}

func (Karigar) TableName() string {
	return "karigars"
}

type KarigarJob struct {
	DocumentBase
	JobNumber            string          `gorm:"size:50;not null;uniqueIndex:,composite:branch_number,priority:2" json:"job_number"`
	KarigarId            string          `gorm:"size:36;index;not null" json:"karigar_id"`
	JobType              JobType         `gorm:"size:20;not null" json:"job_type"`
	Description          string          `gorm:"type:text" json:"description"`
	MetalType            MetalType       `gorm:"size:20;not null" json:"metal_type"`
	IssuedWeight         decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"issued_weight"`
	Purity               decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"purity"`
	IssuedFineWeight     decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"issued_fine_weight"`
	IssueDate            time.Time       `gorm:"not null" json:"issue_date"`
	ExpectedDate         *time.Time      `json:"expected_date"`
	ReceivedWeight       decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"received_weight"`
	ReceivedFineWeight   decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"received_fine_weight"`
	WastageWeight        decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"wastage_weight"`
	AllowedWastageWeight decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"allowed_wastage_weight"`
	ExcessWastageWeight  decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"excess_wastage_weight"`
	LabourCharges        decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"labour_charges"`
	ReceiveDate          *time.Time      `json:"receive_date"`
	Status               JobStatus       `gorm:"size:20;not null;default:'issued';index" json:"status"`
}

func (KarigarJob) TableName() string {
	return "karigar_jobs"
}

// Receive settles the job against what came back and returns the fine
// weight to take off the karigar's balance. Wastage within the allowance is
// written off; the excess stays on the balance.
func (j *KarigarJob) Receive(k Karigar, received decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	if j.Status != JobStatusIssued {
		return decimal.Zero, utils.NewValidationError(ErrInvalidTransition, string(j.Status))
	}
	if received.IsNegative() {
		return decimal.Zero, utils.Invalidf("received weight must not be negative")
	}
	if received.GreaterThan(j.IssuedWeight) {
		return decimal.Zero, utils.NewValidationError(ErrReceivedTooHeavy, j.IssuedWeight.StringFixed(3))
	}
	j.ReceivedWeight = utils.RoundWeight(received)
	j.ReceivedFineWeight = FineWeight(j.ReceivedWeight, j.Purity)
	j.WastageWeight = j.IssuedWeight.Sub(j.ReceivedWeight)
	j.AllowedWastageWeight = utils.RoundWeight(utils.PercentOf(j.IssuedWeight, k.WastageAllowancePercentage))
	j.ExcessWastageWeight = decimal.Max(decimal.Zero, j.WastageWeight.Sub(j.AllowedWastageWeight))
	j.LabourCharges = utils.RoundMoney(j.ReceivedWeight.Mul(k.LabourRatePerGram))
	j.ReceiveDate = &at
	j.Status = JobStatusCompleted

	settled := j.ReceivedWeight.Add(decimal.Min(j.WastageWeight, j.AllowedWastageWeight))
	return FineWeight(settled, j.Purity), nil
}

// Cancel returns the fine weight to give back from the karigar's balance.
func (j *KarigarJob) Cancel() (decimal.Decimal, error) {
	if j.Status != JobStatusIssued {
		return decimal.Zero, utils.NewValidationError(ErrInvalidTransition, string(j.Status))
	}
	j.Status = JobStatusCancelled
	return j.IssuedFineWeight, nil
}

type NewKarigar struct {
	Name                       string          `json:"name" validate:"required,max=255"`
	Phone                      string          `json:"phone" validate:"max=20"`
	Specialization             string          `json:"specialization"`
	WastageAllowancePercentage decimal.Decimal `json:"wastage_allowance_percentage" validate:"gte=0,lte=100"`
	LabourRatePerGram          decimal.Decimal `json:"labour_rate_per_gram" validate:"gte=0"`
}

type NewKarigarJob struct {
	KarigarId    string          `json:"karigar_id" validate:"required"`
	JobType      JobType         `json:"job_type" validate:"required,oneof=making repair stone_setting"`
	Description  string          `json:"description"`
	MetalType    MetalType       `json:"metal_type" validate:"required,oneof=gold silver platinum"`
	IssuedWeight decimal.Decimal `json:"issued_weight" validate:"gt=0"`
	Purity       decimal.Decimal `json:"purity" validate:"gt=0,lte=100"`
	ExpectedDate *time.Time      `json:"expected_date"`
}
