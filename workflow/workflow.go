package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/jewellery_backend/appctx"
	"github.com/mmdatafocus/jewellery_backend/branchsync"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/mmdatafocus/jewellery_backend/workflow")

// Workflow holds what every transaction script needs: the local database,
// the logger and the sync outbox every write is queued to.
type Workflow struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Queue  *branchsync.Queue
	Now    func() time.Time
}

func NewWorkflow(db *gorm.DB, logger *logrus.Logger, queue *branchsync.Queue) Workflow {
	return Workflow{
		DB:     db,
		Logger: logger,
		Queue:  queue,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func (w Workflow) now() time.Time {
	if w.Now == nil {
		return time.Now().UTC()
	}
	return w.Now()
}

func (w Workflow) log(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{"branch_id": appctx.BranchId(ctx)}
	if id, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		fields["correlation_id"] = id
	}
	return w.Logger.WithFields(fields)
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "workflow."+name)
	span.SetAttributes(attribute.String("branch_id", appctx.BranchId(ctx)))
	return ctx, span
}

// queue records every rec in the outbox on tx.
func (w Workflow) queue(ctx context.Context, tx *gorm.DB, op models.SyncOperation, recs ...models.SyncRecord) error {
	for _, rec := range recs {
		if err := w.Queue.QueueChange(ctx, tx, op, rec); err != nil {
			return err
		}
	}
	return nil
}

// create inserts rec and queues it as an insert.
func (w Workflow) create(ctx context.Context, tx *gorm.DB, rec models.SyncRecord) error {
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		return err
	}
	return w.queue(ctx, tx, models.SyncOperationInsert, rec)
}

// save writes every column of rec and queues it as an update.
func (w Workflow) save(ctx context.Context, tx *gorm.DB, rec models.SyncRecord) error {
	if err := tx.WithContext(ctx).Save(rec).Error; err != nil {
		return err
	}
	return w.queue(ctx, tx, models.SyncOperationUpdate, rec)
}

// find loads a row by id, mapping a miss to notFound.
func find(ctx context.Context, db *gorm.DB, dest any, id string, notFound error) error {
	err := db.WithContext(ctx).Where("id = ?", id).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewValidationError(notFound, id)
	}
	return err
}

func branch(ctx context.Context) (appctx.Branch, error) {
	b, ok := appctx.GetBranch(ctx)
	if !ok || b.BranchId == "" {
		return appctx.Branch{}, branchsync.ErrNoBranch
	}
	return b, nil
}

// nextNumber returns the next document number of the form
// PREFIX-YYYYMM-000001 for the branch, counting on tx so the number is taken
// inside the same transaction that uses it.
func nextNumber(ctx context.Context, tx *gorm.DB, model any, column string, prefix string, branchId string, at time.Time) (string, error) {
	stem := fmt.Sprintf("%s-%s-", strings.ToUpper(strings.TrimSpace(prefix)), at.Format("200601"))
	var count int64
	if err := tx.WithContext(ctx).Model(model).
		Where("branch_id = ? AND "+column+" LIKE ?", branchId, stem+"%").
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%06d", stem, count+1), nil
}

func orDefault(t *time.Time, def time.Time) time.Time {
	if t == nil || t.IsZero() {
		return def
	}
	return t.UTC()
}

func appendNote(notes string, at time.Time, line string) string {
	line = "[" + at.Format("2006-01-02") + "] " + strings.TrimSpace(line)
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
