package workflow

import (
	"context"

	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// KarigarWorkflow tracks metal consigned to artisans. A karigar's metal
// balance is the fine weight issued to them and not yet accounted for.
type KarigarWorkflow struct {
	Workflow
}

func NewKarigarWorkflow(w Workflow) *KarigarWorkflow {
	return &KarigarWorkflow{Workflow: w}
}

func (w *KarigarWorkflow) CreateKarigar(ctx context.Context, input models.NewKarigar) (*models.Karigar, error) {
	ctx, span := startSpan(ctx, "CreateKarigar")
	defer span.End()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	phone, err := utils.NormalizePhone(input.Phone)
	if err != nil {
		return nil, utils.Invalidf("invalid phone number %q", input.Phone)
	}
	k := models.Karigar{
		Name:                       input.Name,
		Phone:                      phone,
		Specialization:             input.Specialization,
		WastageAllowancePercentage: input.WastageAllowancePercentage,
		LabourRatePerGram:          utils.RoundMoney(input.LabourRatePerGram),
		MetalBalance:               decimal.Zero,
	}
	err = w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return w.create(ctx, tx, &k)
	})
	if err != nil {
		config.LogError(w.Logger, "KarigarWorkflow", "CreateKarigar", "create karigar", input.Name, err)
		return nil, err
	}
	return &k, nil
}

func (w *KarigarWorkflow) ListKarigars(ctx context.Context) ([]models.Karigar, error) {
	var karigars []models.Karigar
	err := w.DB.WithContext(ctx).Order("name").Find(&karigars).Error
	return karigars, err
}

// IssueJob consigns metal to a karigar and adds its fine weight to their
// balance.
func (w *KarigarWorkflow) IssueJob(ctx context.Context, input models.NewKarigarJob) (*models.KarigarJob, error) {
	ctx, span := startSpan(ctx, "IssueJob")
	defer span.End()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	b, err := branch(ctx)
	if err != nil {
		return nil, err
	}
	issued := utils.RoundWeight(input.IssuedWeight)
	job := models.KarigarJob{
		KarigarId:        input.KarigarId,
		JobType:          input.JobType,
		Description:      input.Description,
		MetalType:        input.MetalType,
		IssuedWeight:     issued,
		Purity:           input.Purity,
		IssuedFineWeight: models.FineWeight(issued, input.Purity),
		IssueDate:        w.now(),
		ExpectedDate:     input.ExpectedDate,
		Status:           models.JobStatusIssued,
	}

	err = w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var k models.Karigar
		if err := find(ctx, tx, &k, input.KarigarId, models.ErrKarigarNotFound); err != nil {
			return err
		}
		var err error
		job.JobNumber, err = nextNumber(ctx, tx, &models.KarigarJob{}, "job_number", "JOB", b.BranchId, job.IssueDate)
		if err != nil {
			return err
		}
		if err := w.create(ctx, tx, &job); err != nil {
			return err
		}
		k.MetalBalance = k.MetalBalance.Add(job.IssuedFineWeight)
		return w.save(ctx, tx, &k)
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "KarigarWorkflow", "IssueJob", "issue job", input.KarigarId, err)
		}
		return nil, err
	}
	return &job, nil
}

// ReceiveJob settles a job against the weight returned. Wastage within the
// karigar's allowance is written off their balance; the excess stays owed.
func (w *KarigarWorkflow) ReceiveJob(ctx context.Context, id string, received decimal.Decimal) (*models.KarigarJob, error) {
	ctx, span := startSpan(ctx, "ReceiveJob")
	defer span.End()

	var job models.KarigarJob
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := find(ctx, tx, &job, id, models.ErrJobNotFound); err != nil {
			return err
		}
		var k models.Karigar
		if err := find(ctx, tx, &k, job.KarigarId, models.ErrKarigarNotFound); err != nil {
			return err
		}
		settled, err := job.Receive(k, received, w.now())
		if err != nil {
			return err
		}
		if err := w.save(ctx, tx, &job); err != nil {
			return err
		}
		k.MetalBalance = k.MetalBalance.Sub(settled)
		return w.save(ctx, tx, &k)
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "KarigarWorkflow", "ReceiveJob", "receive job", id, err)
		}
		return nil, err
	}
	w.log(ctx).WithFields(logrus.Fields{
		"job_number":     job.JobNumber,
		"excess_wastage": job.ExcessWastageWeight.String(),
	}).Info("karigar job received")
	return &job, nil
}

// CancelJob returns the issued metal. Only issued jobs can be cancelled.
func (w *KarigarWorkflow) CancelJob(ctx context.Context, id string) (*models.KarigarJob, error) {
	ctx, span := startSpan(ctx, "CancelJob")
	defer span.End()

	var job models.KarigarJob
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := find(ctx, tx, &job, id, models.ErrJobNotFound); err != nil {
			return err
		}
		var k models.Karigar
		if err := find(ctx, tx, &k, job.KarigarId, models.ErrKarigarNotFound); err != nil {
			return err
		}
		returned, err := job.Cancel()
		if err != nil {
			return err
		}
		if err := w.save(ctx, tx, &job); err != nil {
			return err
		}
		k.MetalBalance = k.MetalBalance.Sub(returned)
		return w.save(ctx, tx, &k)
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(w.Logger, "KarigarWorkflow", "CancelJob", "cancel job", id, err)
		}
		return nil, err
	}
	return &job, nil
}

func (w *KarigarWorkflow) ListJobs(ctx context.Context, karigarId string, status models.JobStatus) ([]models.KarigarJob, error) {
	db := w.DB.WithContext(ctx)
	if karigarId != "" {
		db = db.Where("karigar_id = ?", karigarId)
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}
	var jobs []models.KarigarJob
	err := db.Order("issue_date DESC").Find(&jobs).Error
	return jobs, err
}
