package reports

import (
	"context"
	"sort"
	"time"

	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Location is the zone report days are cut in.
var Location = loadLocation("Asia/Kolkata")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

type SalesSummaryRow struct {
	Date         string          `json:"date"`
	InvoiceCount int             `json:"invoice_count"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Cgst         decimal.Decimal `json:"cgst"`
	Sgst         decimal.Decimal `json:"sgst"`
	Igst         decimal.Decimal `json:"igst"`
	TotalGst     decimal.Decimal `json:"total_gst"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

type SalesSummaryResponse struct {
	From  time.Time         `json:"from"`
	To    time.Time         `json:"to"`
	Days  []SalesSummaryRow `json:"days"`
	Total SalesSummaryRow   `json:"total"`
}

func (r *SalesSummaryRow) add(inv models.Invoice) {
	r.InvoiceCount++
	r.Subtotal = r.Subtotal.Add(inv.Subtotal)
	r.Cgst = r.Cgst.Add(inv.CgstAmount)
	r.Sgst = r.Sgst.Add(inv.SgstAmount)
	r.Igst = r.Igst.Add(inv.IgstAmount)
	r.TotalGst = r.TotalGst.Add(inv.TotalGst)
	r.GrandTotal = r.GrandTotal.Add(inv.GrandTotal)
}

// SalesSummary totals active invoices dated in [from, to) per day.
// Cancelled invoices are left out.
func SalesSummary(ctx context.Context, db *gorm.DB, from time.Time, to time.Time) (*SalesSummaryResponse, error) {
	var invoices []models.Invoice
	err := db.WithContext(ctx).
		Select("id", "invoice_date", "subtotal", "cgst_amount", "sgst_amount", "igst_amount", "total_gst", "grand_total").
		Where("invoice_date >= ? AND invoice_date < ?", from.UTC(), to.UTC()).
		Where("status <> ?", models.InvoiceStatusCancelled).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}

	byDay := map[string]*SalesSummaryRow{}
	resp := &SalesSummaryResponse{From: from, To: to, Total: SalesSummaryRow{Date: "total"}}
	for _, inv := range invoices {
		day := inv.InvoiceDate.In(Location).Format("2006-01-02")
		row, ok := byDay[day]
		if !ok {
			row = &SalesSummaryRow{Date: day}
			byDay[day] = row
		}
		row.add(inv)
		resp.Total.add(inv)
	}
	for _, row := range byDay {
		resp.Days = append(resp.Days, *row)
	}
	sort.Slice(resp.Days, func(i, j int) bool { return resp.Days[i].Date < resp.Days[j].Date })
	return resp, nil
}
