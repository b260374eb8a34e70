package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const metalRateCacheTTL = 6 * time.Hour

type MetalRateWorkflow struct {
	Workflow
}

func NewMetalRateWorkflow(w Workflow) *MetalRateWorkflow {
	return &MetalRateWorkflow{Workflow: w}
}

// SetRate records the day's rate and refreshes the cached latest rate.
func (w *MetalRateWorkflow) SetRate(ctx context.Context, input models.NewMetalRate) (*models.MetalRate, error) {
	ctx, span := startSpan(ctx, "SetRate")
	defer span.End()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	rate := models.MetalRate{
		MetalType:     input.MetalType,
		Purity:        input.Purity,
		RatePerGram:   utils.RoundMoney(input.RatePerGram),
		EffectiveDate: orDefault(input.EffectiveDate, w.now()),
	}
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return w.create(ctx, tx, &rate)
	})
	if err != nil {
		config.LogError(w.Logger, "MetalRateWorkflow", "SetRate", "create metal rate", input, err)
		return nil, err
	}
	if err := config.RemoveRedisKey(ctx, models.MetalRateCacheKey(rate.MetalType, rate.Purity)); err != nil {
		w.log(ctx).WithError(err).Warn("metal rate cache not cleared")
	}
	return &rate, nil
}

// LatestRate returns the most recent rate for metal and purity, reading
// through the Redis cache when one is configured.
func (w *MetalRateWorkflow) LatestRate(ctx context.Context, metal models.MetalType, purity decimal.Decimal) (*models.MetalRate, error) {
	key := models.MetalRateCacheKey(metal, purity)
	var cached models.MetalRate
	if ok, err := config.GetRedisObject(ctx, key, &cached); err == nil && ok {
		return &cached, nil
	}
	rate, err := latestRate(ctx, w.DB, metal, purity)
	if err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(ctx, key, rate, metalRateCacheTTL); err != nil {
		w.log(ctx).WithError(err).Warn("metal rate not cached")
	}
	return rate, nil
}

func (w *MetalRateWorkflow) ListRates(ctx context.Context, metal models.MetalType, limit int) ([]models.MetalRate, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	db := w.DB.WithContext(ctx)
	if metal != "" {
		db = db.Where("metal_type = ?", metal)
	}
	var rates []models.MetalRate
	err := db.Order("effective_date DESC").Limit(limit).Find(&rates).Error
	return rates, err
}

// latestRate reads on db directly so it can run inside a transaction.
func latestRate(ctx context.Context, db *gorm.DB, metal models.MetalType, purity decimal.Decimal) (*models.MetalRate, error) {
	var rate models.MetalRate
	err := db.WithContext(ctx).
		Where("metal_type = ? AND purity = ?", metal, purity).
		Order("effective_date DESC").Order("created_at DESC").
		Take(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewValidationError(models.ErrMetalRateMissing, string(metal)+" "+purity.String())
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}
