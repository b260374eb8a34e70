package branchsync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/jewellery_backend/appctx"
	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const (
	DefaultPushBatchSize = 100
	defaultLockTTL       = 10 * time.Minute
)

var tracer = otel.Tracer("github.com/mmdatafocus/jewellery_backend/branchsync")

type SyncResult struct {
	Skipped    bool       `json:"skipped"`
	Reason     string     `json:"reason,omitempty"`
	Push       PushResult `json:"push"`
	Pull       PullResult `json:"pull"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

type PushResult struct {
	Processed int `json:"processed"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
}

type PullResult struct {
	Applied int               `json:"applied"`
	Skipped int               `json:"skipped"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Engine pushes the local outbox to the cloud store and pulls other
// branches' rows back. One cycle runs at a time per process; the Redis lock,
// when configured, extends that to every instance sharing the branch.
// Without Redis a single instance per branch is assumed.
type Engine struct {
	DB       *gorm.DB
	Logger   *logrus.Logger
	Queue    *Queue
	Remote   CloudStore
	Notifier Notifier
	Locker   *redislock.Client
	Branch   appctx.Branch

	BatchSize int
	LockTTL   time.Duration
	Tables    []string
	Now       func() time.Time

	running atomic.Bool
}

func NewEngine(db *gorm.DB, logger *logrus.Logger, queue *Queue, remote CloudStore, branch appctx.Branch) *Engine {
	return &Engine{
		DB:        db,
		Logger:    logger,
		Queue:     queue,
		Remote:    remote,
		Branch:    branch,
		BatchSize: DefaultPushBatchSize,
		LockTTL:   defaultLockTTL,
		Tables:    PullOrder,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) branchId() string {
	return e.Branch.BranchId
}

func (e *Engine) log() *logrus.Entry {
	return e.Logger.WithField("branch_id", e.branchId())
}

// Status returns the branch's sync status row.
func (e *Engine) Status(ctx context.Context) (models.SyncStatus, error) {
	return e.Queue.Status(ctx, e.branchId())
}

// ClearStaleFlag resets is_syncing and returns rows stuck in syncing to
// pending, both left behind by a process that died mid-cycle. Call it once
// before the scheduler starts.
func (e *Engine) ClearStaleFlag(ctx context.Context) error {
	if _, err := e.Queue.RequeueSyncing(ctx, e.branchId()); err != nil {
		return err
	}
	return e.Queue.UpdateStatus(ctx, nil, e.branchId(), map[string]interface{}{"is_syncing": false})
}

// PerformSync runs one push then pull cycle. It is skipped when sync is
// disabled or another cycle holds the flag or lock.
func (e *Engine) PerformSync(ctx context.Context) (SyncResult, error) {
	ctx = appctx.WithBranch(ctx, e.Branch)
	ctx, span := tracer.Start(ctx, "branchsync.PerformSync")
	defer span.End()
	span.SetAttributes(attribute.String("branch_id", e.branchId()))

	result := SyncResult{StartedAt: e.Now()}
	release, reason, err := e.acquire(ctx)
	if err != nil {
		return result, err
	}
	if reason != "" {
		result.Skipped = true
		result.Reason = reason
		return result, nil
	}
	defer release()

	if err := e.Queue.UpdateStatus(ctx, nil, e.branchId(), map[string]interface{}{"is_syncing": true}); err != nil {
		config.LogError(e.Logger, "SyncEngine", "PerformSync", "set is_syncing", e.branchId(), err)
		return result, err
	}
	defer func() {
		// the caller's ctx may already be cancelled here
		clearCtx := context.WithoutCancel(ctx)
		if err := e.Queue.UpdateStatus(clearCtx, nil, e.branchId(), map[string]interface{}{"is_syncing": false}); err != nil {
			config.LogError(e.Logger, "SyncEngine", "PerformSync", "clear is_syncing", e.branchId(), err)
		}
	}()

	status, err := e.Status(ctx)
	if err != nil {
		return result, e.recordFailure(ctx, err)
	}

	result.Push, err = e.PushChanges(ctx)
	if err != nil {
		return result, e.recordFailure(ctx, err)
	}
	pushedAt := e.Now()

	result.Pull = e.pull(ctx, e.Tables, status.LastPullAt)
	result.FinishedAt = e.Now()

	startedAt := result.StartedAt
	values := map[string]interface{}{
		"last_sync_at":    &result.FinishedAt,
		"last_push_at":    &pushedAt,
		"last_sync_error": "",
	}
	// a table that failed is pulled again from the old watermark next cycle
	if len(result.Pull.Errors) == 0 {
		values["last_pull_at"] = &startedAt
	}
	if err := e.Queue.UpdateStatus(ctx, nil, e.branchId(), values); err != nil {
		return result, e.recordFailure(ctx, err)
	}
	if err := e.Queue.RefreshCounts(ctx, e.branchId()); err != nil {
		return result, e.recordFailure(ctx, err)
	}

	e.log().WithFields(logrus.Fields{
		"pushed":      result.Push.Synced,
		"push_failed": result.Push.Failed,
		"pulled":      result.Pull.Applied,
	}).Info("sync cycle finished")
	return result, nil
}

// acquire takes the in-process flag, checks the persisted status and takes
// the Redis lock when one is configured. A non-empty reason means skip.
func (e *Engine) acquire(ctx context.Context) (release func(), reason string, err error) {
	if e.branchId() == "" {
		return nil, "", ErrNoBranch
	}
	if e.Remote == nil {
		return nil, "cloud store not configured", nil
	}
	if !e.running.CompareAndSwap(false, true) {
		return nil, "sync already in progress", nil
	}
	releaseFlag := func() { e.running.Store(false) }

	status, err := e.Status(ctx)
	if err != nil {
		releaseFlag()
		return nil, "", err
	}
	if !status.SyncEnabled {
		releaseFlag()
		return nil, "sync disabled", nil
	}
	if status.IsSyncing {
		releaseFlag()
		return nil, "sync already in progress", nil
	}

	if e.Locker == nil {
		return releaseFlag, "", nil
	}
	lock, err := e.Locker.Obtain(ctx, "sync:"+e.branchId(), e.LockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		releaseFlag()
		return nil, "sync running on another instance", nil
	}
	if err != nil {
		releaseFlag()
		return nil, "", fmt.Errorf("obtain sync lock: %w", err)
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			config.LogError(e.Logger, "SyncEngine", "release", "release sync lock", e.branchId(), err)
		}
		releaseFlag()
	}, "", nil
}

func (e *Engine) recordFailure(ctx context.Context, cause error) error {
	config.LogError(e.Logger, "SyncEngine", "PerformSync", "sync cycle aborted", e.branchId(), cause)
	if err := e.Queue.UpdateStatus(context.WithoutCancel(ctx), nil, e.branchId(), map[string]interface{}{
		"last_sync_error": cause.Error(),
	}); err != nil {
		config.LogError(e.Logger, "SyncEngine", "recordFailure", "store last_sync_error", e.branchId(), err)
	}
	return cause
}

// PushChanges sends at most BatchSize pending rows to the cloud store,
// oldest first. A failing row is marked failed and the batch continues.
func (e *Engine) PushChanges(ctx context.Context) (PushResult, error) {
	ctx, span := tracer.Start(ctx, "branchsync.PushChanges")
	defer span.End()

	var result PushResult
	limit := e.BatchSize
	if limit <= 0 || limit > DefaultPushBatchSize {
		limit = DefaultPushBatchSize
	}
	rows, err := e.Queue.Pending(ctx, e.branchId(), limit)
	if err != nil {
		return result, err
	}

	touched := map[string]bool{}
	for _, row := range rows {
		result.Processed++
		if err := e.Queue.MarkSyncing(ctx, row.ID); err != nil {
			return result, err
		}
		if pushErr := e.pushOne(ctx, row); pushErr != nil {
			result.Failed++
			e.log().WithFields(logrus.Fields{
				"table_name": row.Table,
				"record_id":  row.RecordId,
				"operation":  row.Operation,
			}).WithError(pushErr).Warn("push failed")
			if err := e.Queue.MarkFailed(ctx, row.ID, pushErr); err != nil {
				return result, err
			}
			continue
		}
		if err := e.Queue.MarkSynced(ctx, row.ID); err != nil {
			return result, err
		}
		result.Synced++
		touched[row.Table] = true
	}

	if err := e.Queue.RefreshCounts(ctx, e.branchId()); err != nil {
		return result, err
	}
	if result.Synced > 0 {
		e.notify(ctx, touched, result.Synced)
	}
	span.SetAttributes(attribute.Int("synced", result.Synced), attribute.Int("failed", result.Failed))
	return result, nil
}

func (e *Engine) pushOne(ctx context.Context, row models.SyncQueue) error {
	if e.Remote == nil {
		return errors.New("cloud store is not configured")
	}
	switch row.Operation {
	case models.SyncOperationDelete:
		if !IsSyncedTable(row.Table) {
			return ErrUnknownTable
		}
		return e.Remote.Delete(ctx, row.Table, row.RecordId)
	case models.SyncOperationInsert, models.SyncOperationUpdate:
		if _, err := DecodePayload(row.Table, row.Payload); err != nil {
			return err
		}
		if row.Operation == models.SyncOperationInsert {
			return e.Remote.Insert(ctx, row.Table, []byte(row.Payload))
		}
		return e.Remote.Update(ctx, row.Table, row.RecordId, []byte(row.Payload))
	default:
		return fmt.Errorf("unknown operation %q", row.Operation)
	}
}

func (e *Engine) notify(ctx context.Context, touched map[string]bool, count int) {
	if e.Notifier == nil {
		return
	}
	tables := make([]string, 0, len(touched))
	for _, t := range PullOrder {
		if touched[t] {
			tables = append(tables, t)
		}
	}
	event := BranchChangeEvent{BranchId: e.branchId(), Tables: tables, Count: count, At: e.Now()}
	if err := e.Notifier.NotifyChanges(ctx, event); err != nil {
		config.LogError(e.Logger, "SyncEngine", "notify", "publish branch change", event, err)
	}
}

// PullChanges pulls tables (every synced table when empty) changed since
// the last pull, then advances last_pull_at to the time the pull started.
// last_pull_at stays put when any table or row could not be applied.
func (e *Engine) PullChanges(ctx context.Context, tables ...string) (PullResult, error) {
	ctx = appctx.WithBranch(ctx, e.Branch)
	startedAt := e.Now()
	status, err := e.Status(ctx)
	if err != nil {
		return PullResult{}, err
	}
	if len(tables) == 0 {
		tables = e.Tables
	}
	result := e.pull(ctx, tables, status.LastPullAt)
	if len(result.Errors) > 0 {
		return result, nil
	}
	if err := e.Queue.UpdateStatus(ctx, nil, e.branchId(), map[string]interface{}{"last_pull_at": &startedAt}); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Engine) pull(ctx context.Context, tables []string, since *time.Time) PullResult {
	ctx, span := tracer.Start(ctx, "branchsync.PullChanges")
	defer span.End()

	result := PullResult{Errors: map[string]string{}}
	if e.Remote == nil {
		result.Errors["*"] = "cloud store is not configured"
		return result
	}
	for _, table := range tables {
		applied, skipped, err := e.pullTable(ctx, table, since)
		result.Applied += applied
		result.Skipped += skipped
		if err != nil {
			result.Errors[table] = err.Error()
			config.LogError(e.Logger, "SyncEngine", "pull", "pull table "+table, e.branchId(), err)
		}
	}
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	span.SetAttributes(attribute.Int("applied", result.Applied))
	return result
}

func (e *Engine) pullTable(ctx context.Context, table string, since *time.Time) (applied int, skipped int, err error) {
	if !IsSyncedTable(table) {
		return 0, 0, ErrUnknownTable
	}
	filters := []Filter{Neq("branch_id", e.branchId())}
	if since != nil {
		filters = append(filters, Gt("updated_at", since.UTC()))
	}
	rows, err := e.Remote.Select(ctx, table, filters...)
	if err != nil {
		return 0, 0, err
	}
	var notApplied int
	var firstErr error
	for _, raw := range rows {
		rec, err := DecodePayload(table, raw)
		if err != nil {
			skipped++
			e.log().WithField("table_name", table).WithError(err).Warn("pulled row rejected")
			continue
		}
		if rec.GetBranchId() == e.branchId() {
			skipped++
			continue
		}
		ok, err := applyIfNewer(ctx, e.DB, table, rec)
		if err != nil {
			skipped++
			notApplied++
			if firstErr == nil {
				firstErr = err
			}
			e.log().WithFields(logrus.Fields{"table_name": table, "record_id": rec.GetID()}).WithError(err).Warn("pulled row not applied")
			continue
		}
		if ok {
			applied++
		} else {
			skipped++
		}
	}
	if firstErr != nil {
		return applied, skipped, fmt.Errorf("%d rows not applied: %w", notApplied, firstErr)
	}
	return applied, skipped, nil
}

// HandleBranchNotification pulls early when another branch reports pushed
// changes. Notifications from the local branch are ignored.
func (e *Engine) HandleBranchNotification(ctx context.Context, event BranchChangeEvent) (PullResult, error) {
	if event.BranchId == "" || event.BranchId == e.branchId() {
		return PullResult{}, nil
	}
	release, reason, err := e.acquire(ctx)
	if err != nil {
		return PullResult{}, err
	}
	if reason != "" {
		e.log().WithField("reason", reason).Debug("branch notification ignored")
		return PullResult{}, nil
	}
	defer release()

	tables := make([]string, 0, len(event.Tables))
	for _, t := range event.Tables {
		if IsSyncedTable(t) {
			tables = append(tables, t)
		}
	}
	if len(tables) == 0 {
		tables = e.Tables
	} else {
		tables = orderTables(tables)
	}
	// a partial pull must not move last_pull_at past tables it skipped
	ctx = appctx.WithBranch(ctx, e.Branch)
	status, err := e.Status(ctx)
	if err != nil {
		return PullResult{}, err
	}
	return e.pull(ctx, tables, status.LastPullAt), nil
}

func orderTables(tables []string) []string {
	want := map[string]bool{}
	for _, t := range tables {
		want[t] = true
	}
	out := make([]string, 0, len(tables))
	for _, t := range PullOrder {
		if want[t] {
			out = append(out, t)
		}
	}
	return out
}
