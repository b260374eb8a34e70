package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/jewellery_backend/branchsync"
	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/middlewares"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/reports"
	"github.com/mmdatafocus/jewellery_backend/testutil"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/mmdatafocus/jewellery_backend/workflow"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.OpenDB(t)
	logger := config.GetLogger()
	queue := branchsync.NewQueue(db, logger)
	engine := branchsync.NewEngine(db, logger, queue, nil, testutil.Branch())
	h := New(workflow.NewWorkflow(db, logger, queue), branchsync.NewScheduler(engine, logger))

	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware(), middlewares.BranchMiddleware(testutil.Branch()))
	r.Use(func(c *gin.Context) {
		role := c.GetHeader("x-test-role")
		if role == "" {
			role = string(models.UserRoleAdmin)
		}
		c.Request = c.Request.WithContext(utils.SetUserRoleInContext(c.Request.Context(), role))
		c.Next()
	})
	h.Register(r.Group("/api"))
	r.POST("/pubsub/sync", h.PubSubSync())
	return r, h
}

func call(t *testing.T, r http.Handler, method string, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v (%s)", err, string(env.Data))
	}
	return out
}

func TestCustomerEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := call(t, r, http.MethodPost, "/api/customers", gin.H{"name": "Asha Patil", "phone": "9876543210", "state_code": "27"})
	if w.Code != http.StatusCreated || !env.Success {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	customer := decode[models.Customer](t, env)
	if customer.Phone != "+919876543210" || customer.BranchId != testutil.BranchId {
		t.Fatalf("unexpected customer %+v", customer)
	}

	w, env = call(t, r, http.MethodPost, "/api/customers", gin.H{"phone": "9876543210"})
	if w.Code != http.StatusBadRequest || env.Success || env.Message == "" {
		t.Fatalf("missing name: %d %s", w.Code, w.Body.String())
	}

	w, env = call(t, r, http.MethodGet, "/api/customers/does-not-exist", nil)
	if w.Code != http.StatusNotFound || env.Success {
		t.Fatalf("missing customer: %d %s", w.Code, w.Body.String())
	}

	w, env = call(t, r, http.MethodGet, "/api/customers?search=Asha", nil)
	if w.Code != http.StatusOK || len(decode[[]models.Customer](t, env)) != 1 {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
}

func TestInvoiceEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	_, env := call(t, r, http.MethodPost, "/api/customers", gin.H{"name": "Asha Patil", "state_code": "27"})
	customer := decode[models.Customer](t, env)
	w, env := call(t, r, http.MethodPost, "/api/products", gin.H{
		"sku": "R1", "name": "Ring", "metal_type": "gold", "purity": "91.6", "gross_weight": "10",
		"making_charge_type": "fixed", "making_charge_rate": "5000", "current_stock": 2,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create product: %d %s", w.Code, w.Body.String())
	}
	product := decode[models.Product](t, env)

	body := gin.H{
		"customer_id": customer.ID,
		"items":       []gin.H{{"product_id": product.ID, "quantity": 1, "metal_rate": "6000"}},
		"payments":    []gin.H{{"payment_mode": "cash", "amount": "1000"}},
	}
	w, env = call(t, r, http.MethodPost, "/api/invoices/preview", body)
	if w.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", w.Code, w.Body.String())
	}
	preview := decode[models.InvoiceDetail](t, env)

	w, env = call(t, r, http.MethodPost, "/api/invoices", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create invoice: %d %s", w.Code, w.Body.String())
	}
	invoice := decode[models.InvoiceDetail](t, env)
	if !strings.HasPrefix(invoice.InvoiceNumber, "INV-") || !invoice.GrandTotal.Equal(preview.GrandTotal) {
		t.Fatalf("unexpected invoice %+v", invoice.Invoice)
	}

	w, env = call(t, r, http.MethodPost, "/api/invoices/"+invoice.ID+"/payments", gin.H{"payment_mode": "upi", "amount": invoice.GrandTotal.String()})
	if w.Code != http.StatusBadRequest || !strings.Contains(env.Message, models.ErrOverpayment.Error()) {
		t.Fatalf("overpayment: %d %s", w.Code, w.Body.String())
	}

	w, env = call(t, r, http.MethodPost, "/api/invoices", gin.H{
		"customer_id": customer.ID,
		"items":       []gin.H{{"product_id": product.ID, "quantity": 5, "metal_rate": "6000"}},
	})
	if w.Code != http.StatusBadRequest || !strings.Contains(env.Message, models.ErrInsufficientStock.Error()) {
		t.Fatalf("insufficient stock: %d %s", w.Code, w.Body.String())
	}

	w, env = call(t, r, http.MethodPost, "/api/invoices/"+invoice.ID+"/cancel", gin.H{"reason": "wrong size"})
	if w.Code != http.StatusOK || decode[models.InvoiceDetail](t, env).Status != models.InvoiceStatusCancelled {
		t.Fatalf("cancel: %d %s", w.Code, w.Body.String())
	}
}

func TestGoldLoanEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	_, env := call(t, r, http.MethodPost, "/api/customers", gin.H{"name": "Ravi", "state_code": "27"})
	customer := decode[models.Customer](t, env)

	w, env := call(t, r, http.MethodPost, "/api/gold-loans", gin.H{
		"customer_id": customer.ID, "item_description": "Chain", "gross_weight": "10", "purity": "91.6",
		"gold_rate": "6000", "ltv_percentage": "75", "interest_rate": "12", "tenure_months": 6,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create loan: %d %s", w.Code, w.Body.String())
	}
	loan := decode[models.GoldLoan](t, env)

	w, env = call(t, r, http.MethodPost, "/api/gold-loans/"+loan.ID+"/payments", gin.H{"amount": "100"})
	if w.Code != http.StatusBadRequest || !strings.Contains(env.Message, models.ErrLoanNotDisbursed.Error()) {
		t.Fatalf("payment before disbursement: %d %s", w.Code, w.Body.String())
	}
	w, env = call(t, r, http.MethodPost, "/api/gold-loans/"+loan.ID+"/disburse", nil)
	if w.Code != http.StatusOK || decode[models.GoldLoan](t, env).Status != models.LoanStatusDisbursed {
		t.Fatalf("disburse: %d %s", w.Code, w.Body.String())
	}
	w, env = call(t, r, http.MethodPost, "/api/gold-loans/"+loan.ID+"/foreclose", gin.H{"penalty": "500"})
	if w.Code != http.StatusOK {
		t.Fatalf("foreclose: %d %s", w.Code, w.Body.String())
	}
	closed := decode[models.GoldLoanDetail](t, env)
	if closed.Status != models.LoanStatusForeclosed || !closed.BalanceDue.IsZero() || len(closed.Payments) != 1 {
		t.Fatalf("unexpected foreclosure %+v", closed.GoldLoan)
	}

	w, _ = call(t, r, http.MethodGet, "/api/reports/loans?format=xlsx", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != reports.XlsxContentType {
		t.Fatalf("loan workbook: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestSyncEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w, _ := call(t, r, http.MethodGet, "/api/sync/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d %s", w.Code, w.Body.String())
	}
	w, _ = call(t, r, http.MethodPost, "/api/sync/toggle", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("toggle without flag: %d", w.Code)
	}
	w, env := call(t, r, http.MethodPost, "/api/sync/toggle", gin.H{"enabled": false})
	if w.Code != http.StatusOK || decode[models.SyncStatus](t, env).SyncEnabled {
		t.Fatalf("toggle: %d %s", w.Code, w.Body.String())
	}
	w, _ = call(t, r, http.MethodPut, "/api/sync/interval", gin.H{"minutes": 0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("interval 0: %d", w.Code)
	}
	w, env = call(t, r, http.MethodPut, "/api/sync/interval", gin.H{"minutes": 30})
	if w.Code != http.StatusOK || decode[models.SyncStatus](t, env).SyncIntervalMinutes != 30 {
		t.Fatalf("interval: %d %s", w.Code, w.Body.String())
	}
	w, env = call(t, r, http.MethodPost, "/api/sync/trigger", nil)
	if w.Code != http.StatusOK || !decode[branchsync.SyncResult](t, env).Skipped {
		t.Fatalf("trigger while disabled: %d %s", w.Code, w.Body.String())
	}
	w, _ = call(t, r, http.MethodPost, "/api/sync/retry", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("retry: %d %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/sync/cleanup", strings.NewReader(`{"days_to_keep":30}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-test-role", string(models.UserRoleStaff))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff cleanup: %d", rec.Code)
	}
}

func TestPubSubSync(t *testing.T) {
	r, _ := newTestRouter(t)

	w, _ := call(t, r, http.MethodPost, "/pubsub/sync", "not json")
	if w.Code != http.StatusNoContent {
		t.Fatalf("malformed push: %d", w.Code)
	}

	data, _ := json.Marshal(branchsync.BranchChangeEvent{BranchId: testutil.BranchId, Tables: []string{"customers"}})
	push := `{"message":{"data":"` + base64.StdEncoding.EncodeToString(data) + `","messageId":"m1"},"subscription":"s"}`
	w, _ = call(t, r, http.MethodPost, "/pubsub/sync", push)
	if w.Code != http.StatusNoContent {
		t.Fatalf("own branch push: %d", w.Code)
	}
}

func TestLogin(t *testing.T) {
	r, h := newTestRouter(t)
	if _, err := h.Users.CreateUser(testutil.Context(), models.NewUser{Username: "owner", Name: "Owner", Password: "correct-horse", Role: models.UserRoleAdmin}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	w, env := call(t, r, http.MethodPost, "/api/auth/login", gin.H{"username": "owner", "password": "correct-horse"})
	if w.Code != http.StatusOK || decode[models.LoginInfo](t, env).Token == "" {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	w, env = call(t, r, http.MethodPost, "/api/auth/login", gin.H{"username": "owner", "password": "wrong-horse"})
	if w.Code != http.StatusUnauthorized || env.Success {
		t.Fatalf("bad password: %d %s", w.Code, w.Body.String())
	}
}
