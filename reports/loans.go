package reports

import (
	"context"

	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LoanPortfolioRow struct {
	Status      models.LoanStatus `json:"status"`
	LoanCount   int               `json:"loan_count"`
	Principal   decimal.Decimal   `json:"principal"`
	InterestDue decimal.Decimal   `json:"interest_due"`
	BalanceDue  decimal.Decimal   `json:"balance_due"`
	FineWeight  decimal.Decimal   `json:"fine_weight"`
}

type LoanPortfolioResponse struct {
	Statuses []LoanPortfolioRow `json:"statuses"`
	Total    LoanPortfolioRow   `json:"total"`
}

var portfolioOrder = []models.LoanStatus{
	models.LoanStatusSanctioned,
	models.LoanStatusDisbursed,
	models.LoanStatusActive,
	models.LoanStatusPartialRepaid,
	models.LoanStatusDefaulted,
	models.LoanStatusClosed,
	models.LoanStatusForeclosed,
}

func (r *LoanPortfolioRow) add(l models.GoldLoan) {
	r.LoanCount++
	r.Principal = r.Principal.Add(l.LoanAmount)
	r.InterestDue = r.InterestDue.Add(l.TotalInterest.Sub(l.InterestPaid))
	r.BalanceDue = r.BalanceDue.Add(l.BalanceDue)
	r.FineWeight = r.FineWeight.Add(l.FineWeight)
}

// LoanPortfolio summarises gold loans per status. Statuses with no loans
// are omitted.
func LoanPortfolio(ctx context.Context, db *gorm.DB) (*LoanPortfolioResponse, error) {
	var loans []models.GoldLoan
	err := db.WithContext(ctx).
		Select("id", "status", "loan_amount", "total_interest", "interest_paid", "balance_due", "fine_weight").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}

	byStatus := map[models.LoanStatus]*LoanPortfolioRow{}
	resp := &LoanPortfolioResponse{Total: LoanPortfolioRow{Status: "total"}}
	for _, l := range loans {
		row, ok := byStatus[l.Status]
		if !ok {
			row = &LoanPortfolioRow{Status: l.Status}
			byStatus[l.Status] = row
		}
		row.add(l)
		resp.Total.add(l)
	}
	for _, s := range portfolioOrder {
		if row, ok := byStatus[s]; ok {
			resp.Statuses = append(resp.Statuses, *row)
		}
	}
	return resp, nil
}
