package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AlertType string

const (
	AlertLoanOverdue AlertType = "loan_overdue"
	AlertLoanDueSoon AlertType = "loan_due_soon"
	AlertLowStock    AlertType = "low_stock"
)

type Alert struct {
	Type     AlertType  `json:"type"`
	RecordId string     `json:"record_id"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	DueDate  *time.Time `json:"due_date,omitempty"`
}

type AlertWorkflow struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewAlertWorkflow(db *gorm.DB, logger *logrus.Logger) *AlertWorkflow {
	return &AlertWorkflow{DB: db, Logger: logger}
}

var runningLoanStatuses = []models.LoanStatus{
	models.LoanStatusDisbursed,
	models.LoanStatusActive,
	models.LoanStatusPartialRepaid,
	models.LoanStatusDefaulted,
}

// CheckAlerts lists overdue loans, loans maturing within dueWithinDays of
// asOf and products at or below their reorder level.
func (w *AlertWorkflow) CheckAlerts(ctx context.Context, asOf time.Time, dueWithinDays int) ([]Alert, error) {
	ctx, span := startSpan(ctx, "CheckAlerts")
	defer span.End()

	var loans []models.GoldLoan
	horizon := asOf.AddDate(0, 0, dueWithinDays)
	if err := w.DB.WithContext(ctx).
		Where("status IN ? AND maturity_date <= ?", runningLoanStatuses, horizon).
		Order("maturity_date").Find(&loans).Error; err != nil {
		return nil, err
	}

	alerts := make([]Alert, 0, len(loans))
	for _, loan := range loans {
		due := loan.MaturityDate
		a := Alert{RecordId: loan.ID, DueDate: &due}
		if loan.IsOverdue(asOf) {
			a.Type = AlertLoanOverdue
			a.Title = "Loan overdue"
			a.Message = fmt.Sprintf("%s matured on %s with %s due", loan.LoanNumber, due.Format("2006-01-02"), loan.BalanceDue.StringFixed(2))
		} else {
			a.Type = AlertLoanDueSoon
			a.Title = "Loan due soon"
			a.Message = fmt.Sprintf("%s matures on %s", loan.LoanNumber, due.Format("2006-01-02"))
		}
		alerts = append(alerts, a)
	}

	products, err := lowStockProducts(ctx, w.DB)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		alerts = append(alerts, Alert{
			Type:     AlertLowStock,
			RecordId: p.ID,
			Title:    "Low stock",
			Message:  fmt.Sprintf("%s (%s) has %d in stock, reorder level %d", p.Name, p.Sku, p.CurrentStock, p.ReorderLevel),
		})
	}
	return alerts, nil
}

// RunAlertTicker checks alerts every interval until ctx is done and logs
// what it finds.
func (w *AlertWorkflow) RunAlertTicker(ctx context.Context, interval time.Duration, dueWithinDays int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			alerts, err := w.CheckAlerts(ctx, time.Now().UTC(), dueWithinDays)
			if err != nil {
				w.Logger.WithError(err).Error("alert check failed")
				continue
			}
			counts := map[AlertType]int{}
			for _, a := range alerts {
				counts[a.Type]++
			}
			w.Logger.WithFields(logrus.Fields{
				"loan_overdue":  counts[AlertLoanOverdue],
				"loan_due_soon": counts[AlertLoanDueSoon],
				"low_stock":     counts[AlertLowStock],
			}).Info("alert check finished")
		}
	}
}
