package branchsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// memStore is an in-memory CloudStore.
type memStore struct {
	mu       sync.Mutex
	rows     map[string][]json.RawMessage
	written  []string
	deleted  []string
	failIds  map[string]bool
	filters  []Filter
	selected []string
}

func newMemStore() *memStore {
	return &memStore{rows: map[string][]json.RawMessage{}, failIds: map[string]bool{}}
}

func (m *memStore) Select(ctx context.Context, table string, filters ...Filter) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = filters
	m.selected = append(m.selected, table)
	return m.rows[table], nil
}

func (m *memStore) Insert(ctx context.Context, table string, row json.RawMessage) error {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(row, &head)
	return m.write(table, head.ID)
}

func (m *memStore) Update(ctx context.Context, table string, id string, row json.RawMessage) error {
	return m.write(table, id)
}

func (m *memStore) Delete(ctx context.Context, table string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, table+"/"+id)
	return nil
}

func (m *memStore) write(table string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIds[id] {
		return errors.New("remote rejected row")
	}
	m.written = append(m.written, table+"/"+id)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *gorm.DB, *memStore) {
	t.Helper()
	db := testutil.OpenDB(t)
	queue := NewQueue(db, config.GetLogger())
	remote := newMemStore()
	return NewEngine(db, config.GetLogger(), queue, remote, testutil.Branch()), db, remote
}

func queueCustomers(t *testing.T, e *Engine, n int) []string {
	t.Helper()
	ctx := testutil.Context()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		c := models.Customer{Base: models.Base{ID: fmt.Sprintf("cust-%03d", i)}, Name: fmt.Sprintf("Customer %d", i)}
		err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
			return e.Queue.QueueChange(ctx, tx, models.SyncOperationInsert, &c)
		})
		if err != nil {
			t.Fatalf("queue customer %d: %v", i, err)
		}
		ids = append(ids, c.ID)
	}
	return ids
}

func TestQueueChange_WritesOutboxRowAndStatus(t *testing.T) {
	e, db, _ := newTestEngine(t)
	queueCustomers(t, e, 1)

	var rows []models.SyncQueue
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("find queue: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 queue row, got %d", len(rows))
	}
	row := rows[0]
	if row.Table != "customers" || row.RecordId != "cust-000" || row.BranchId != testutil.BranchId || row.SyncStatus != models.SyncStatePending {
		t.Fatalf("unexpected queue row: %+v", row)
	}
	rec, err := DecodePayload(row.Table, row.Payload)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if c := rec.(*models.Customer); c.Name != "Customer 0" || c.BranchId != testutil.BranchId {
		t.Fatalf("payload snapshot: %+v", c)
	}

	st, err := e.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.SyncEnabled || st.SyncIntervalMinutes != 5 || st.PendingChangesCount != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestQueueChange_RollsBackWithBusinessWrite(t *testing.T) {
	e, db, _ := newTestEngine(t)
	ctx := testutil.Context()
	boom := errors.New("boom")

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c := models.Customer{Name: "Lost"}
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		if err := e.Queue.QueueChange(ctx, tx, models.SyncOperationInsert, &c); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var customers, queued int64
	db.Model(&models.Customer{}).Count(&customers)
	db.Model(&models.SyncQueue{}).Count(&queued)
	if customers != 0 || queued != 0 {
		t.Fatalf("expected rollback, got %d customers and %d queue rows", customers, queued)
	}
}

func TestPushChanges_ProcessesAtMost100(t *testing.T) {
	e, db, remote := newTestEngine(t)
	queueCustomers(t, e, 105)

	res, err := e.PushChanges(testutil.Context())
	if err != nil {
		t.Fatalf("PushChanges: %v", err)
	}
	if res.Processed != 100 || res.Synced != 100 || len(remote.written) != 100 {
		t.Fatalf("expected 100 pushed, got %+v (remote %d)", res, len(remote.written))
	}
	var pending int64
	db.Model(&models.SyncQueue{}).Where("sync_status = ?", models.SyncStatePending).Count(&pending)
	if pending != 5 {
		t.Fatalf("expected 5 rows left pending, got %d", pending)
	}
	if remote.written[0] != "customers/cust-000" {
		t.Fatalf("expected oldest row first, got %s", remote.written[0])
	}
}

func TestPushChanges_FailureIsRowScoped(t *testing.T) {
	e, db, remote := newTestEngine(t)
	queueCustomers(t, e, 3)
	remote.failIds["cust-001"] = true

	res, err := e.PushChanges(testutil.Context())
	if err != nil {
		t.Fatalf("PushChanges: %v", err)
	}
	if res.Synced != 2 || res.Failed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	var failed models.SyncQueue
	if err := db.Where("record_id = ?", "cust-001").First(&failed).Error; err != nil {
		t.Fatalf("load failed row: %v", err)
	}
	if failed.SyncStatus != models.SyncStateFailed || failed.RetryCount != 1 || failed.ErrorMessage == "" {
		t.Fatalf("unexpected failed row: %+v", failed)
	}
	var synced models.SyncQueue
	db.Where("record_id = ?", "cust-002").First(&synced)
	if synced.SyncStatus != models.SyncStateSynced || synced.SyncedAt == nil {
		t.Fatalf("unexpected synced row: %+v", synced)
	}

	n, err := e.Queue.ResetForRetry(context.Background(), testutil.BranchId)
	if err != nil || n != 1 {
		t.Fatalf("ResetForRetry: n=%d err=%v", n, err)
	}
	db.Where("record_id = ?", "cust-001").First(&failed)
	if failed.SyncStatus != models.SyncStatePending || failed.RetryCount != 1 || failed.ErrorMessage != "" {
		t.Fatalf("unexpected reset row: %+v", failed)
	}
}

func remoteCustomer(t *testing.T, id string, branch string, name string, updated time.Time) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(models.Customer{
		Base: models.Base{ID: id, BranchId: branch, CreatedAt: updated, UpdatedAt: updated},
		Name: name,
		OutstandingBalance: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestPullChanges_SelfExclusionAndLastWriteWins(t *testing.T) {
	e, db, remote := newTestEngine(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, c := range []models.Customer{
		{Base: models.Base{ID: "stale", BranchId: "branch-b", UpdatedAt: base}, Name: "local stale copy"},
		{Base: models.Base{ID: "fresh", BranchId: "branch-b", UpdatedAt: base}, Name: "local newer copy"},
	} {
		c := c
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	remote.rows["customers"] = []json.RawMessage{
		remoteCustomer(t, "new", "branch-b", "from b", base),
		remoteCustomer(t, "mine", testutil.BranchId, "echo of local write", base),
		remoteCustomer(t, "stale", "branch-b", "remote update", base.Add(time.Hour)),
		remoteCustomer(t, "fresh", "branch-b", "older remote", base.Add(-time.Hour)),
		json.RawMessage(`{"id":"bad","unknown_column":1}`),
	}

	res, err := e.PullChanges(context.Background(), "customers")
	if err != nil {
		t.Fatalf("PullChanges: %v", err)
	}
	if res.Applied != 2 || res.Skipped != 3 {
		t.Fatalf("unexpected pull result %+v", res)
	}

	var mine int64
	db.Model(&models.Customer{}).Where("id = ?", "mine").Count(&mine)
	if mine != 0 {
		t.Fatalf("row of the local branch was upserted")
	}
	var stale, fresh models.Customer
	db.First(&stale, "id = ?", "stale")
	db.First(&fresh, "id = ?", "fresh")
	if stale.Name != "remote update" || !stale.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("newer remote row not applied: %+v", stale)
	}
	if fresh.Name != "local newer copy" {
		t.Fatalf("older remote row overwrote local: %+v", fresh)
	}

	var queued int64
	db.Model(&models.SyncQueue{}).Count(&queued)
	if queued != 0 {
		t.Fatalf("pulled rows must not be queued, got %d", queued)
	}

	foundNeq := false
	for _, f := range remote.filters {
		if f.Column == "branch_id" && f.Op == OpNeq && f.Value == testutil.BranchId {
			foundNeq = true
		}
	}
	if !foundNeq {
		t.Fatalf("remote query did not exclude local branch: %+v", remote.filters)
	}
	st, _ := e.Status(context.Background())
	if st.LastPullAt == nil {
		t.Fatalf("last_pull_at not advanced")
	}
}

func TestPerformSync_RunsPushThenPull(t *testing.T) {
	e, _, remote := newTestEngine(t)
	queueCustomers(t, e, 2)

	res, err := e.PerformSync(context.Background())
	if err != nil {
		t.Fatalf("PerformSync: %v", err)
	}
	if res.Skipped || res.Push.Synced != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(remote.selected) != len(PullOrder) || remote.selected[0] != "customers" {
		t.Fatalf("pull did not walk every table in order: %v", remote.selected)
	}
	st, err := e.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.IsSyncing || st.LastSyncAt == nil || st.LastPushAt == nil || st.LastPullAt == nil || st.PendingChangesCount != 0 {
		t.Fatalf("unexpected status after sync: %+v", st)
	}
}

func TestPerformSync_Skips(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	if err := e.Queue.UpdateStatus(ctx, nil, testutil.BranchId, map[string]interface{}{"sync_enabled": false}); err != nil {
		t.Fatalf("disable: %v", err)
	}
	res, err := e.PerformSync(ctx)
	if err != nil || !res.Skipped || res.Reason != "sync disabled" {
		t.Fatalf("expected skip when disabled, got %+v %v", res, err)
	}

	if err := e.Queue.UpdateStatus(ctx, nil, testutil.BranchId, map[string]interface{}{"sync_enabled": true, "is_syncing": true}); err != nil {
		t.Fatalf("set syncing: %v", err)
	}
	res, err = e.PerformSync(ctx)
	if err != nil || !res.Skipped {
		t.Fatalf("expected skip while syncing, got %+v %v", res, err)
	}

	e.Remote = nil
	res, err = e.PerformSync(ctx)
	if err != nil || !res.Skipped || res.Reason != "cloud store not configured" {
		t.Fatalf("expected skip without store, got %+v %v", res, err)
	}
}

func TestHandleBranchNotification_IgnoresOwnBranch(t *testing.T) {
	e, _, remote := newTestEngine(t)

	if _, err := e.HandleBranchNotification(context.Background(), BranchChangeEvent{BranchId: testutil.BranchId}); err != nil {
		t.Fatalf("own branch: %v", err)
	}
	if len(remote.selected) != 0 {
		t.Fatalf("own notification triggered a pull: %v", remote.selected)
	}

	if _, err := e.HandleBranchNotification(context.Background(), BranchChangeEvent{
		BranchId: "branch-b",
		Tables:   []string{"invoice_items", "invoices", "not_a_table"},
	}); err != nil {
		t.Fatalf("other branch: %v", err)
	}
	if len(remote.selected) != 2 || remote.selected[0] != "invoices" || remote.selected[1] != "invoice_items" {
		t.Fatalf("expected parent-first pull of notified tables, got %v", remote.selected)
	}
}

func TestCleanup_DeletesOnlyOldSyncedRows(t *testing.T) {
	e, db, _ := newTestEngine(t)
	now := time.Now().UTC()
	old := now.AddDate(0, 0, -40)
	recent := now.AddDate(0, 0, -2)
	rows := []models.SyncQueue{
		{Table: "customers", Operation: models.SyncOperationInsert, RecordId: "a", BranchId: testutil.BranchId, SyncStatus: models.SyncStateSynced, SyncedAt: &old},
		{Table: "customers", Operation: models.SyncOperationInsert, RecordId: "b", BranchId: testutil.BranchId, SyncStatus: models.SyncStateSynced, SyncedAt: &recent},
		{Table: "customers", Operation: models.SyncOperationInsert, RecordId: "c", BranchId: testutil.BranchId, SyncStatus: models.SyncStateFailed, SyncedAt: &old},
		{Table: "customers", Operation: models.SyncOperationInsert, RecordId: "d", BranchId: testutil.BranchId, SyncStatus: models.SyncStatePending},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	n, err := e.Queue.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row removed, got %d", n)
	}
	var left []models.SyncQueue
	db.Order("record_id").Find(&left)
	if len(left) != 3 || left[0].RecordId != "b" {
		t.Fatalf("unexpected rows left: %+v", left)
	}
	if _, err := e.Queue.Cleanup(context.Background(), -1); err == nil {
		t.Fatalf("expected error for negative days")
	}
}

func TestDecodePayload(t *testing.T) {
	if _, err := DecodePayload("nope", []byte(`{"id":"x"}`)); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
	if _, err := DecodePayload("customers", []byte(`{"id":"x","surprise":true}`)); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if _, err := DecodePayload("customers", []byte(`{"name":"no id"}`)); !errors.Is(err, ErrMissingRecordId) {
		t.Fatalf("expected ErrMissingRecordId, got %v", err)
	}
	rec, err := DecodePayload("gold_loans", []byte(`{"id":"l1","loan_number":"GL-000001","loan_amount":"41220"}`))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if loan := rec.(*models.GoldLoan); loan.LoanNumber != "GL-000001" || !loan.LoanAmount.Equal(decimal.NewFromInt(41220)) {
		t.Fatalf("unexpected loan %+v", loan)
	}
}

func TestSchedulerSettings(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := NewScheduler(e, config.GetLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if !s.IsRunning() {
		t.Fatalf("scheduler should run when sync is enabled")
	}

	for _, bad := range []int{0, 1441} {
		if _, err := s.UpdateInterval(ctx, bad); err == nil {
			t.Fatalf("interval %d accepted", bad)
		}
	}
	st, err := s.UpdateInterval(ctx, 15)
	if err != nil || st.SyncIntervalMinutes != 15 {
		t.Fatalf("UpdateInterval: %+v %v", st, err)
	}

	st, err = s.ToggleSync(ctx, false)
	if err != nil || st.SyncEnabled {
		t.Fatalf("ToggleSync(false): %+v %v", st, err)
	}
	if s.IsRunning() {
		t.Fatalf("scheduler still running after disable")
	}
}

func TestClearStaleFlag_RequeuesStrandedRows(t *testing.T) {
	e, db, remote := newTestEngine(t)
	queueCustomers(t, e, 2)

	// a process died after marking rows syncing
	db.Model(&models.SyncQueue{}).Where("1 = 1").Update("sync_status", models.SyncStateSyncing)
	if err := e.Queue.UpdateStatus(context.Background(), nil, testutil.BranchId, map[string]interface{}{"is_syncing": true}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	res, err := e.PushChanges(context.Background())
	if err != nil || res.Processed != 0 {
		t.Fatalf("syncing rows must not be picked as pending: %+v %v", res, err)
	}

	if err := e.ClearStaleFlag(context.Background()); err != nil {
		t.Fatalf("ClearStaleFlag: %v", err)
	}
	st, _ := e.Status(context.Background())
	if st.IsSyncing || st.PendingChangesCount != 2 {
		t.Fatalf("unexpected status after clear: %+v", st)
	}

	res, err = e.PushChanges(context.Background())
	if err != nil || res.Synced != 2 || len(remote.written) != 2 {
		t.Fatalf("requeued rows not pushed: %+v %v %v", res, err, remote.written)
	}
}

func TestResetForRetry_IncludesSyncingRows(t *testing.T) {
	e, db, _ := newTestEngine(t)
	ids := queueCustomers(t, e, 1)
	db.Model(&models.SyncQueue{}).Where("record_id = ?", ids[0]).Update("sync_status", models.SyncStateSyncing)

	n, err := e.Queue.ResetForRetry(context.Background(), testutil.BranchId)
	if err != nil || n != 1 {
		t.Fatalf("ResetForRetry: n=%d err=%v", n, err)
	}
	var row models.SyncQueue
	db.Where("record_id = ?", ids[0]).First(&row)
	if row.SyncStatus != models.SyncStatePending {
		t.Fatalf("row still %s", row.SyncStatus)
	}
}

func TestPullChanges_KeepsWatermarkWhenRowsFail(t *testing.T) {
	e, db, remote := newTestEngine(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// the local product holds the SKU the remote row also uses
	local := models.Product{Base: models.Base{ID: "local-ring"}, Sku: "RING-1", Name: "Ring"}
	if err := db.WithContext(testutil.Context()).Create(&local).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	raw, err := json.Marshal(models.Product{
		Base: models.Base{ID: "remote-ring", BranchId: "branch-b", CreatedAt: base, UpdatedAt: base},
		Sku:  "RING-1",
		Name: "Ring from b",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	remote.rows["products"] = []json.RawMessage{raw}

	res, err := e.PullChanges(context.Background(), "products")
	if err != nil {
		t.Fatalf("PullChanges: %v", err)
	}
	if res.Applied != 0 || res.Errors["products"] == "" {
		t.Fatalf("expected a products error, got %+v", res)
	}
	st, _ := e.Status(context.Background())
	if st.LastPullAt != nil {
		t.Fatalf("last_pull_at advanced past a failed row: %v", st.LastPullAt)
	}

	remote.rows["products"] = nil
	if _, err := e.PullChanges(context.Background(), "products"); err != nil {
		t.Fatalf("PullChanges: %v", err)
	}
	st, _ = e.Status(context.Background())
	if st.LastPullAt == nil {
		t.Fatalf("last_pull_at not advanced after a clean pull")
	}
}
