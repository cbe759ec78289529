package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluk-w/claworc/launchpad-ai/internal/billing"
	"github.com/gluk-w/claworc/launchpad-ai/internal/config"
	"github.com/gluk-w/claworc/launchpad-ai/internal/database"
	"github.com/gluk-w/claworc/launchpad-ai/internal/orchestrator"
	"github.com/gluk-w/claworc/launchpad-ai/internal/proxy"
)

const adminSecret = "admin-secret"

func setupTestDB(t *testing.T) func() {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "api-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	config.Cfg.DatabasePath = filepath.Join(tmpDir, "test.db")
	config.Cfg.AdminSecret = adminSecret
	config.Cfg.DefaultPlan = "free"

	if err := database.Init(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to init database: %v", err)
	}
	proxy.InvalidateAllTokenCache()

	return func() {
		database.Close()
		os.RemoveAll(tmpDir)
	}
}

type fakeExecutor struct {
	result    orchestrator.Result
	gotReq    orchestrator.Request
	gotAcct   string
	callCount int
}

func (f *fakeExecutor) Execute(_ context.Context, req orchestrator.Request, accountID string) orchestrator.Result {
	f.callCount++
	f.gotReq = req
	f.gotAcct = accountID
	return f.result
}

func newTestRouter(t *testing.T, exec Executor, rpm int) http.Handler {
	t.Helper()
	store := billing.NewGormStore(database.DB)
	gen := NewGeneration(exec, billing.NewGovernor(store), store, nil)
	return NewRouter(gen, proxy.NewRateLimiter(rpm))
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createAccount(t *testing.T, h http.Handler, id, plan, token string) {
	t.Helper()
	w := do(t, h, "POST", "/admin/accounts", adminSecret, map[string]string{"id": id, "plan": plan, "token": token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	HealthCheck(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestAdminAuth(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()
	h := newTestRouter(t, &fakeExecutor{}, 0)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusForbidden},
		{"valid", adminSecret, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "GET", "/admin/plans", tt.token, nil)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	config.Cfg.AdminSecret = ""
	w := do(t, h, "GET", "/admin/plans", adminSecret, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListPlans(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()
	h := newTestRouter(t, &fakeExecutor{}, 0)

	w := do(t, h, "GET", "/admin/plans", adminSecret, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var plans []planView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plans))
	assert.Equal(t, []planView{
		{Name: "agency", CopyLimit: -1, ComponentLimit: -1},
		{Name: "free", CopyLimit: 50, ComponentLimit: 5},
		{Name: "pro", CopyLimit: 1000, ComponentLimit: 100},
	}, plans)
}

func TestAccountLifecycle(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()
	h := newTestRouter(t, &fakeExecutor{}, 0)

	createAccount(t, h, "acct-1", "", "tok-1")

	w := do(t, h, "GET", "/admin/accounts/acct-1/usage", adminSecret, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var acct billing.Account
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acct))
	assert.Equal(t, "free", acct.Plan)
	assert.Equal(t, 5, acct.ComponentLimit)

	w = do(t, h, "PUT", "/admin/accounts/acct-1/plan", adminSecret, map[string]string{"plan": "pro"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, "PUT", "/admin/accounts/acct-1/plan", adminSecret, map[string]string{"plan": "platinum"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, h, "PUT", "/admin/accounts/ghost/plan", adminSecret, map[string]string{"plan": "pro"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "GET", "/v1/quota", "tok-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"copy":{"available":true,"used":0,"limit":1000},"component":{"available":true,"used":0,"limit":100}}`, w.Body.String())

	w = do(t, h, "POST", "/admin/accounts", adminSecret, map[string]string{"id": "acct-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = do(t, h, "POST", "/admin/accounts", adminSecret, map[string]string{"plan": "platinum"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, h, "GET", "/admin/accounts/ghost/usage", adminSecret, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateAccountGeneratesID(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()
	h := newTestRouter(t, &fakeExecutor{}, 0)

	w := do(t, h, "POST", "/admin/accounts", adminSecret, map[string]string{})
	require.Equal(t, http.StatusCreated, w.Code)
	var acct billing.Account
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acct))
	assert.Len(t, acct.ID, 36)
	assert.Equal(t, "free", acct.Plan)
}

func TestTokenManagement(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()
	h := newTestRouter(t, &fakeExecutor{}, 0)

	createAccount(t, h, "acct-1", "free", "")

	w := do(t, h, "POST", "/admin/tokens", adminSecret, map[string]string{"account_id": "acct-1", "token": "tok-1"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/v1/quota", "tok-1", nil).Code)

	w = do(t, h, "PUT", "/admin/tokens/acct-1/disable", adminSecret, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, "GET", "/v1/quota", "tok-1", nil).Code)

	w = do(t, h, "PUT", "/admin/tokens/acct-1/enable", adminSecret, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/v1/quota", "tok-1", nil).Code)

	w = do(t, h, "POST", "/admin/tokens", adminSecret, map[string]string{"account_id": "acct-1", "token": "tok-2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, "GET", "/v1/quota", "tok-1", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/v1/quota", "tok-2", nil).Code)

	w = do(t, h, "DELETE", "/admin/tokens/acct-1", adminSecret, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, "GET", "/v1/quota", "tok-2", nil).Code)

	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/admin/tokens/acct-1", adminSecret, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "PUT", "/admin/tokens/ghost/disable", adminSecret, nil).Code)
	w = do(t, h, "POST", "/admin/tokens", adminSecret, map[string]string{"account_id": "ghost", "token": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncKeys(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()
	h := newTestRouter(t, &fakeExecutor{}, 0)

	body := map[string]any{"keys": []map[string]string{
		{"backend": "text", "key": "sk-1"},
		{"backend": "VISION", "key": "g-1"},
	}}
	require.Equal(t, http.StatusOK, do(t, h, "PUT", "/admin/keys", adminSecret, body).Code)

	var keys []database.BackendKey
	database.DB.Order("backend").Find(&keys)
	require.Len(t, keys, 2)
	assert.Equal(t, "text", keys[0].Backend)
	assert.Equal(t, "vision", keys[1].Backend)
	assert.Equal(t, "g-1", keys[1].KeyValue)

	body = map[string]any{"keys": []map[string]string{{"backend": "text", "key": ""}}}
	require.Equal(t, http.StatusOK, do(t, h, "PUT", "/admin/keys", adminSecret, body).Code)
	var n int64
	database.DB.Model(&database.BackendKey{}).Count(&n)
	assert.EqualValues(t, 1, n)

	body = map[string]any{"keys": []map[string]string{{"backend": "audio", "key": "x"}}}
	assert.Equal(t, http.StatusBadRequest, do(t, h, "PUT", "/admin/keys", adminSecret, body).Code)
}

func TestSuggest(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	exec := &fakeExecutor{result: orchestrator.Result{
		Success:    true,
		Suggestion: &orchestrator.Suggestion{Kind: orchestrator.KindText, Proposed: "Claim Your Spot"},
	}}
	h := newTestRouter(t, exec, 0)
	createAccount(t, h, "acct-1", "free", "tok-1")

	w := do(t, h, "POST", "/v1/suggestions", "tok-1", map[string]any{
		"tier":        1,
		"action":      "improve-text",
		"instruction": "punchier",
		"scope":       map[string]string{"sectionId": "hero-1", "field": "ctaText"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Equal(t, "acct-1", exec.gotAcct)
	assert.Equal(t, orchestrator.ActionImproveText, exec.gotReq.Action)
	assert.Equal(t, "ctaText", exec.gotReq.Scope.Field)

	var res orchestrator.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "Claim Your Spot", res.Suggestion.Proposed)
}

func TestSuggestRejectsBadBody(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()
	exec := &fakeExecutor{}
	h := newTestRouter(t, exec, 0)
	createAccount(t, h, "acct-1", "free", "tok-1")

	req := httptest.NewRequest("POST", "/v1/suggestions", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer tok-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, exec.callCount)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, "POST", "/v1/suggestions", "", map[string]any{}).Code)
}

func TestSuggestRateLimited(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()
	exec := &fakeExecutor{result: orchestrator.Result{Success: true}}
	h := newTestRouter(t, exec, 2)
	createAccount(t, h, "acct-1", "free", "tok-1")

	assert.Equal(t, http.StatusOK, do(t, h, "POST", "/v1/suggestions", "tok-1", map[string]any{}).Code)
	assert.Equal(t, http.StatusOK, do(t, h, "POST", "/v1/suggestions", "tok-1", map[string]any{}).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, "POST", "/v1/suggestions", "tok-1", map[string]any{}).Code)
	assert.Equal(t, 2, exec.callCount)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		res  orchestrator.Result
		want int
	}{
		{orchestrator.Result{Success: true}, http.StatusOK},
		{orchestrator.Result{Kind: orchestrator.ErrorQuota}, http.StatusPaymentRequired},
		{orchestrator.Result{Kind: orchestrator.ErrorValidation}, http.StatusUnprocessableEntity},
		{orchestrator.Result{Kind: orchestrator.ErrorInvalidRequest}, http.StatusBadRequest},
		{orchestrator.Result{Kind: orchestrator.ErrorBackend}, http.StatusBadGateway},
		{orchestrator.Result{Kind: orchestrator.ErrorCancelled}, statusClientClosed},
		{orchestrator.Result{Kind: orchestrator.ErrorInternal}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.res); got != tt.want {
			t.Errorf("statusFor(%q) = %d, want %d", tt.res.Kind, got, tt.want)
		}
	}
}

func TestUsageTotals(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()
	h := newTestRouter(t, &fakeExecutor{}, 0)
	createAccount(t, h, "acct-1", "free", "")
	createAccount(t, h, "acct-2", "pro", "")

	database.DB.Model(&database.Account{}).Where("id = ?", "acct-1").
		Updates(map[string]any{"copy_used": 3, "total_cost_cents": 12})

	w := do(t, h, "GET", "/admin/usage", adminSecret, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var totals billing.UsageTotals
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &totals))
	assert.EqualValues(t, 2, totals.Accounts)
	assert.EqualValues(t, 3, totals.CopyUsed)
	assert.EqualValues(t, 12, totals.TotalCostCents)
}

func TestRegisterTokenStoreFailure(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()
	h := newTestRouter(t, &fakeExecutor{}, 0)
	database.Close()

	w := do(t, h, "POST", "/admin/tokens", adminSecret, map[string]string{"account_id": "acct-1", "token": "tok-1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"db_error","message":"Failed to look up account"}`, w.Body.String())
}

func TestSyncKeysReplacesStoredKey(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()
	h := newTestRouter(t, &fakeExecutor{}, 0)

	for _, key := range []string{"sk-1", "sk-2"} {
		body := map[string]any{"keys": []map[string]string{{"backend": "text", "key": key}}}
		require.Equal(t, http.StatusOK, do(t, h, "PUT", "/admin/keys", adminSecret, body).Code)
	}

	var keys []database.BackendKey
	database.DB.Find(&keys)
	require.Len(t, keys, 1)
	assert.Equal(t, "sk-2", keys[0].KeyValue)
}
