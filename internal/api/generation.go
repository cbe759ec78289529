package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gluk-w/claworc/launchpad-ai/internal/billing"
	"github.com/gluk-w/claworc/launchpad-ai/internal/config"
	"github.com/gluk-w/claworc/launchpad-ai/internal/database"
	"github.com/gluk-w/claworc/launchpad-ai/internal/orchestrator"
	"github.com/gluk-w/claworc/launchpad-ai/internal/proxy"
	"github.com/gluk-w/claworc/launchpad-ai/internal/respond"
)

// maxRequestBody bounds a suggestion request. Documents and one screenshot
// fit well below it.
const maxRequestBody = 16 << 20

// nginx convention for a client that went away mid-request.
const statusClientClosed = 499

// Executor runs one orchestrated request.
type Executor interface {
	Execute(ctx context.Context, req orchestrator.Request, accountID string) orchestrator.Result
}

// Generation serves the account-facing AI endpoints and the admin endpoints
// that work on accounts.
type Generation struct {
	exec     Executor
	governor *billing.Governor
	store    *billing.GormStore
	log      *zap.Logger
}

func NewGeneration(exec Executor, governor *billing.Governor, store *billing.GormStore, log *zap.Logger) *Generation {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generation{exec: exec, governor: governor, store: store, log: log}
}

// Suggest handles POST /v1/suggestions. The body is always a Result; the
// status code mirrors its error kind.
func (g *Generation) Suggest(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	var req orchestrator.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		respond.JSON(w, http.StatusBadRequest, orchestrator.Result{
			Kind:  orchestrator.ErrorInvalidRequest,
			Error: "Invalid request body",
		})
		return
	}

	accountID := proxy.GetAccountID(r.Context())
	res := g.exec.Execute(r.Context(), req, accountID)
	g.log.Debug("suggestion served",
		zap.String("request_id", requestID),
		zap.String("account", accountID),
		zap.Bool("success", res.Success),
		zap.String("error_kind", string(res.Kind)))
	respond.JSON(w, statusFor(res), res)
}

func statusFor(res orchestrator.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Kind {
	case orchestrator.ErrorQuota:
		return http.StatusPaymentRequired
	case orchestrator.ErrorValidation:
		return http.StatusUnprocessableEntity
	case orchestrator.ErrorInvalidRequest:
		return http.StatusBadRequest
	case orchestrator.ErrorBackend:
		return http.StatusBadGateway
	case orchestrator.ErrorCancelled:
		return statusClientClosed
	}
	return http.StatusInternalServerError
}

type quotaView struct {
	Copy      billing.Availability `json:"copy"`
	Component billing.Availability `json:"component"`
}

// Quota handles GET /v1/quota for the authenticated account.
func (g *Generation) Quota(w http.ResponseWriter, r *http.Request) {
	g.writeQuota(w, r, proxy.GetAccountID(r.Context()))
}

func (g *Generation) writeQuota(w http.ResponseWriter, r *http.Request, accountID string) {
	var q quotaView
	for _, b := range []struct {
		bucket billing.Bucket
		dst    *billing.Availability
	}{
		{billing.BucketCopy, &q.Copy},
		{billing.BucketComponent, &q.Component},
	} {
		a, err := g.governor.CheckAvailable(r.Context(), accountID, b.bucket)
		if err != nil {
			g.writeStoreError(w, err)
			return
		}
		*b.dst = a
	}
	respond.JSON(w, http.StatusOK, q)
}

// CreateAccount handles POST /admin/accounts. Without an id one is
// generated; without a plan the configured default plan applies. A token in
// the body is registered for the new account.
func (g *Generation) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID    string `json:"id"`
		Plan  string `json:"plan"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}
	if body.ID == "" {
		body.ID = uuid.NewString()
	}
	if body.Plan == "" {
		body.Plan = config.Cfg.DefaultPlan
	}

	acct, err := g.store.CreateAccount(r.Context(), body.ID, body.Plan)
	if err != nil {
		if errors.Is(err, billing.ErrUnknownPlan) {
			respond.Error(w, http.StatusBadRequest, "unknown_plan", err.Error())
			return
		}
		g.log.Warn("create account failed", zap.String("account", body.ID), zap.Error(err))
		respond.Error(w, http.StatusConflict, "account_exists", "Failed to create account")
		return
	}

	if body.Token != "" {
		token := database.AccountToken{AccountID: acct.ID, Token: body.Token, Enabled: true}
		if err := database.DB.WithContext(r.Context()).Create(&token).Error; err != nil {
			g.log.Warn("create token failed", zap.String("account", acct.ID), zap.Error(err))
			respond.Error(w, http.StatusConflict, "token_conflict", "Account created but the token is already in use")
			return
		}
	}
	respond.JSON(w, http.StatusCreated, acct)
}

// SetPlan handles PUT /admin/accounts/{id}/plan.
func (g *Generation) SetPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Plan == "" {
		respond.Error(w, http.StatusBadRequest, "invalid_body", "plan is required")
		return
	}

	if err := g.store.SetPlan(r.Context(), id, body.Plan); err != nil {
		if errors.Is(err, billing.ErrAccountNotFound) {
			respond.Error(w, http.StatusNotFound, "account_not_found", "Account not found")
			return
		}
		if errors.Is(err, billing.ErrUnknownPlan) {
			respond.Error(w, http.StatusBadRequest, "unknown_plan", err.Error())
			return
		}
		g.writeStoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// AccountUsage handles GET /admin/accounts/{id}/usage.
func (g *Generation) AccountUsage(w http.ResponseWriter, r *http.Request) {
	acct, err := g.governor.Account(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		g.writeStoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, acct)
}

// Usage handles GET /admin/usage.
func (g *Generation) Usage(w http.ResponseWriter, r *http.Request) {
	t, err := g.store.Totals(r.Context())
	if err != nil {
		g.writeStoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, t)
}

func (g *Generation) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, billing.ErrAccountNotFound) {
		respond.Error(w, http.StatusNotFound, "account_not_found", "Account not found")
		return
	}
	g.log.Error("account store error", zap.Error(err))
	respond.Error(w, http.StatusInternalServerError, "db_error", "Failed to load account")
}
