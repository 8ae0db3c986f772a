package syncapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/wardsync/internal/alert"
	"github.com/linnemanlabs/wardsync/internal/alert/store"
	"github.com/linnemanlabs/wardsync/internal/syncer"
)

func score(v float64) *float64 { return &v }

// mockSvc implements SyncService for testing.
type mockSvc struct {
	mu         sync.Mutex
	refreshRes *syncer.RefreshResult
	refreshErr error
	status     syncer.Status
	ackErr     error
	dismissErr error
	acked      []string
	dismissed  []string
}

func (m *mockSvc) Refresh(context.Context) (*syncer.RefreshResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	if m.refreshRes != nil {
		return m.refreshRes, nil
	}
	return &syncer.RefreshResult{}, nil
}

func (m *mockSvc) Status() syncer.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockSvc) Acknowledge(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, id)
	return m.ackErr
}

func (m *mockSvc) Dismiss(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dismissed = append(m.dismissed, id)
	return m.dismissErr
}

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New()
	st.Replace([]alert.Alert{
		{ID: "a1", PatientName: "Grace Hopper", Department: "ICU", RiskScore: score(0.85), Timestamp: "2026-02-26T10:00:00Z"},
		{ID: "a2", PatientName: "Alan Turing", Severity: "high", Timestamp: "2026-02-26T12:00:00Z"},
		{ID: "a3", PatientName: "Ada Lovelace", Severity: "medium", Acknowledged: true, Timestamp: "2026-02-26T08:00:00Z"},
	})
	return st
}

func newTestRouter(t *testing.T) (chi.Router, *mockSvc) {
	t.Helper()
	svc := &mockSvc{}
	api := New(nil, seededStore(t), svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r, svc
}

func doRequest(t *testing.T, r chi.Router, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

//  New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	api := New(nil, store.New(), &mockSvc{})
	if api == nil {
		t.Fatal("New(nil, views, svc) returned nil API")
	}
	if api.logger == nil {
		t.Fatal("New(nil, views, svc) left logger nil; expected Nop logger")
	}
}

func TestNew_NilViews_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for nil view store")
		}
	}()
	New(log.Nop(), nil, &mockSvc{})
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for nil sync service")
		}
	}()
	New(log.Nop(), store.New(), nil)
}

// Routing

func TestRegisterRoutes_Methods(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{"GET alerts", http.MethodGet, "/api/v1/alerts", http.StatusOK},
		{"POST alerts not allowed", http.MethodPost, "/api/v1/alerts", http.StatusMethodNotAllowed},
		{"GET stats", http.MethodGet, "/api/v1/alerts/stats", http.StatusOK},
		{"POST acknowledge", http.MethodPost, "/api/v1/alerts/a1/acknowledge", http.StatusOK},
		{"GET acknowledge not allowed", http.MethodGet, "/api/v1/alerts/a1/acknowledge", http.StatusMethodNotAllowed},
		{"DELETE alert", http.MethodDelete, "/api/v1/alerts/a1", http.StatusOK},
		{"POST sync", http.MethodPost, "/api/v1/sync", http.StatusOK},
		{"GET sync not allowed", http.MethodGet, "/api/v1/sync", http.StatusMethodNotAllowed},
		{"GET sync status", http.MethodGet, "/api/v1/sync/status", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := doRequest(t, r, tt.method, tt.target)
			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.target, rec.Code, tt.wantStatus)
			}
		})
	}
}

// List alerts

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) (ids []string, count int, view string) {
	t.Helper()
	var body struct {
		Alerts []alert.Alert `json:"alerts"`
		Count  int           `json:"count"`
		View   string        `json:"view"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, a := range body.Alerts {
		ids = append(ids, a.ID)
	}
	return ids, body.Count, body.View
}

func TestListAlerts_DefaultViewIsActive(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doRequest(t, r, http.MethodGet, "/api/v1/alerts")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	ids, count, view := decodeList(t, rec)
	if view != "active" {
		t.Errorf("view = %q, want active", view)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (a3 is acknowledged)", count)
	}
	// default sort: timestamp descending
	if len(ids) != 2 || ids[0] != "a2" || ids[1] != "a1" {
		t.Errorf("ids = %v, want [a2 a1]", ids)
	}
}

func TestListAlerts_Views(t *testing.T) {
	t.Parallel()

	tests := []struct {
		view      string
		wantCount int
	}{
		{"active", 2},
		{"critical", 1}, // a1 by score
		{"high_risk", 1}, // a2 by tag
		{"acknowledged", 1},
		{"all", 3},
	}

	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			t.Parallel()

			r, _ := newTestRouter(t)
			rec := doRequest(t, r, http.MethodGet, "/api/v1/alerts?view="+tt.view)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			_, count, _ := decodeList(t, rec)
			if count != tt.wantCount {
				t.Errorf("view %q count = %d, want %d", tt.view, count, tt.wantCount)
			}
		})
	}
}

func TestListAlerts_UnknownView(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doRequest(t, r, http.MethodGet, "/api/v1/alerts?view=bogus")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListAlerts_SearchAndSort(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/api/v1/alerts?view=all&q=icu")
	ids, _, _ := decodeList(t, rec)
	if len(ids) != 1 || ids[0] != "a1" {
		t.Errorf("q=icu ids = %v, want [a1]", ids)
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/alerts?view=all&sort=patient")
	ids, _, _ = decodeList(t, rec)
	if len(ids) != 3 || ids[0] != "a3" || ids[1] != "a2" || ids[2] != "a1" {
		t.Errorf("sort=patient ids = %v, want [a3 a2 a1]", ids)
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/alerts?sort=bogus")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("sort=bogus status = %d, want 400", rec.Code)
	}
}

// Stats

func TestStats(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doRequest(t, r, http.MethodGet, "/api/v1/alerts/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got alert.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	want := alert.Stats{Total: 3, Active: 2, Critical: 1, HighRisk: 1, Acknowledged: 1}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

// Mutations

func TestAcknowledge_CallsService(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)
	rec := doRequest(t, r, http.MethodPost, "/api/v1/alerts/a1/acknowledge")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(svc.acked) != 1 || svc.acked[0] != "a1" {
		t.Errorf("acked = %v, want [a1]", svc.acked)
	}
}

func TestAcknowledge_BackendFailure(t *testing.T) {
	t.Parallel()

	svc := &mockSvc{ackErr: errors.New("backend rejected")}
	api := New(nil, seededStore(t), svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/alerts/a1/acknowledge")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestDismiss_CallsService(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)
	rec := doRequest(t, r, http.MethodDelete, "/api/v1/alerts/a2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(svc.dismissed) != 1 || svc.dismissed[0] != "a2" {
		t.Errorf("dismissed = %v, want [a2]", svc.dismissed)
	}
}

func TestMutationMiddleware_OnlyWrapsMutations(t *testing.T) {
	t.Parallel()

	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"denied"}`, http.StatusUnauthorized)
		})
	}

	api := New(nil, seededStore(t), &mockSvc{})
	r := chi.NewRouter()
	api.RegisterRoutes(r, deny)

	if rec := doRequest(t, r, http.MethodGet, "/api/v1/alerts"); rec.Code != http.StatusOK {
		t.Errorf("read endpoint status = %d, want 200 (middleware must not wrap reads)", rec.Code)
	}
	if rec := doRequest(t, r, http.MethodPost, "/api/v1/alerts/a1/acknowledge"); rec.Code != http.StatusUnauthorized {
		t.Errorf("acknowledge status = %d, want 401", rec.Code)
	}
	if rec := doRequest(t, r, http.MethodDelete, "/api/v1/alerts/a1"); rec.Code != http.StatusUnauthorized {
		t.Errorf("dismiss status = %d, want 401", rec.Code)
	}
}

// Sync

func TestSync_ReturnsResult(t *testing.T) {
	t.Parallel()

	svc := &mockSvc{refreshRes: &syncer.RefreshResult{Count: 5}}
	api := New(nil, seededStore(t), svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/sync")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Skipped bool `json:"skipped"`
		Count   int  `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Skipped || body.Count != 5 {
		t.Errorf("body = %+v, want count 5", body)
	}
}

func TestSync_Failure(t *testing.T) {
	t.Parallel()

	svc := &mockSvc{refreshErr: errors.New("backend down")}
	api := New(nil, seededStore(t), svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/sync")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestSyncStatus(t *testing.T) {
	t.Parallel()

	svc := &mockSvc{status: syncer.Status{Syncing: true, LastError: "backend down"}}
	api := New(nil, seededStore(t), svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	rec := doRequest(t, r, http.MethodGet, "/api/v1/sync/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got syncer.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !got.Syncing || got.LastError != "backend down" {
		t.Errorf("status = %+v", got)
	}
}
