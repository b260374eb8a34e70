package branchsync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type capturedRequest struct {
	method string
	path   string
	query  map[string][]string
	header http.Header
	body   string
}

func newRestTestServer(t *testing.T, status int, response string) (*RestStore, *[]capturedRequest) {
	t.Helper()
	var got []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			header: r.Header.Clone(),
			body:   string(body),
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	store, err := NewRestStore(srv.URL+"/", "secret-key")
	if err != nil {
		t.Fatalf("NewRestStore: %v", err)
	}
	return store, &got
}

func TestRestStore_SelectEncodesFilters(t *testing.T) {
	store, got := newRestTestServer(t, http.StatusOK, `[{"id":"a"},{"id":"b"}]`)
	since := time.Date(2026, 3, 1, 15, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))

	rows, err := store.Select(context.Background(), "customers", Neq("branch_id", "branch-local"), Gt("updated_at", since))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	req := (*got)[0]
	if req.method != http.MethodGet || req.path != "/rest/v1/customers" {
		t.Fatalf("unexpected request %s %s", req.method, req.path)
	}
	if v := req.query["branch_id"]; len(v) != 1 || v[0] != "neq.branch-local" {
		t.Fatalf("branch filter: %v", v)
	}
	if v := req.query["updated_at"]; len(v) != 1 || v[0] != "gt.2026-03-01T10:00:00Z" {
		t.Fatalf("updated_at filter: %v", v)
	}
	if v := req.query["select"]; len(v) != 1 || v[0] != "*" {
		t.Fatalf("select: %v", v)
	}
	if req.header.Get("apikey") != "secret-key" || req.header.Get("Authorization") != "Bearer secret-key" {
		t.Fatalf("auth headers missing: %v", req.header)
	}
}

func TestRestStore_WriteRequests(t *testing.T) {
	store, got := newRestTestServer(t, http.StatusCreated, "")
	ctx := context.Background()
	row := json.RawMessage(`{"id":"c1","name":"Asha"}`)

	if err := store.Insert(ctx, "customers", row); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Update(ctx, "customers", "c1", row); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.Delete(ctx, "customers", "c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	reqs := *got
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(reqs))
	}
	insert := reqs[0]
	if insert.method != http.MethodPost || !strings.Contains(insert.header.Get("Prefer"), "resolution=merge-duplicates") {
		t.Fatalf("insert must upsert: %s %v", insert.method, insert.header)
	}
	if insert.body != `[{"id":"c1","name":"Asha"}]` {
		t.Fatalf("insert body: %s", insert.body)
	}
	if reqs[1].method != http.MethodPatch || reqs[1].query["id"][0] != "eq.c1" {
		t.Fatalf("update request: %+v", reqs[1])
	}
	if reqs[2].method != http.MethodDelete || reqs[2].query["id"][0] != "eq.c1" {
		t.Fatalf("delete request: %+v", reqs[2])
	}
}

func TestRestStore_ErrorStatus(t *testing.T) {
	store, _ := newRestTestServer(t, http.StatusConflict, `{"message":"duplicate key"}`)

	err := store.Insert(context.Background(), "customers", json.RawMessage(`{"id":"c1"}`))
	if err == nil || !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "duplicate key") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestNewRestStore_RequiresConfig(t *testing.T) {
	if _, err := NewRestStore("", "k"); err == nil {
		t.Fatalf("empty url accepted")
	}
	if _, err := NewRestStore("http://cloud", " "); err == nil {
		t.Fatalf("empty key accepted")
	}
}
