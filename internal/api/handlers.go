package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm/clause"

	"github.com/gluk-w/claworc/launchpad-ai/internal/database"
	"github.com/gluk-w/claworc/launchpad-ai/internal/providers"
	"github.com/gluk-w/claworc/launchpad-ai/internal/proxy"
	"github.com/gluk-w/claworc/launchpad-ai/internal/respond"
)

// RegisterToken creates or replaces the API token of an account.
func RegisterToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AccountID string `json:"account_id"`
		Token     string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}
	if body.AccountID == "" || body.Token == "" {
		respond.Error(w, http.StatusBadRequest, "invalid_body", "account_id and token are required")
		return
	}

	var n int64
	if err := database.DB.Model(&database.Account{}).Where("id = ?", body.AccountID).Count(&n).Error; err != nil {
		respond.Error(w, http.StatusInternalServerError, "db_error", "Failed to look up account")
		return
	}
	if n == 0 {
		respond.Error(w, http.StatusNotFound, "account_not_found", "Account not found")
		return
	}

	// Upsert: an account has at most one token
	var existing database.AccountToken
	result := database.DB.Where("account_id = ?", body.AccountID).First(&existing)
	if result.Error == nil {
		if err := database.DB.Model(&existing).Updates(map[string]any{
			"token":   body.Token,
			"enabled": true,
		}).Error; err != nil {
			respond.Error(w, http.StatusConflict, "token_conflict", "Failed to update token")
			return
		}
		proxy.InvalidateAllTokenCache()
		respond.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
		return
	}

	token := database.AccountToken{
		AccountID: body.AccountID,
		Token:     body.Token,
		Enabled:   true,
	}
	if err := database.DB.Create(&token).Error; err != nil {
		respond.Error(w, http.StatusConflict, "token_conflict", "Failed to create token")
		return
	}

	respond.JSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

// RevokeToken deletes an account token.
func RevokeToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "account")
	result := database.DB.Where("account_id = ?", id).Delete(&database.AccountToken{})
	if result.RowsAffected == 0 {
		respond.Error(w, http.StatusNotFound, "token_not_found", "Token not found")
		return
	}
	proxy.InvalidateAllTokenCache()
	w.WriteHeader(http.StatusNoContent)
}

// DisableToken disables a token without deleting it.
func DisableToken(w http.ResponseWriter, r *http.Request) {
	setTokenEnabled(w, r, false)
}

// EnableToken re-enables a token.
func EnableToken(w http.ResponseWriter, r *http.Request) {
	setTokenEnabled(w, r, true)
}

func setTokenEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "account")
	result := database.DB.Model(&database.AccountToken{}).Where("account_id = ?", id).Update("enabled", enabled)
	if result.RowsAffected == 0 {
		respond.Error(w, http.StatusNotFound, "token_not_found", "Token not found")
		return
	}
	proxy.InvalidateAllTokenCache()
	status := "disabled"
	if enabled {
		status = "enabled"
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": status})
}

// SyncKeys stores backend API keys. An empty key removes the stored key so
// the environment key applies again.
func SyncKeys(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Keys []struct {
			Backend string `json:"backend"`
			Key     string `json:"key"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}
	for i, k := range body.Keys {
		p, ok := providers.Get(k.Backend)
		if !ok {
			respond.Error(w, http.StatusBadRequest, "unknown_backend", "Unknown backend "+k.Backend)
			return
		}
		body.Keys[i].Backend = string(p.Backend)
	}

	for _, k := range body.Keys {
		var err error
		if k.Key == "" {
			err = database.DB.Where("backend = ?", k.Backend).Delete(&database.BackendKey{}).Error
		} else {
			err = database.DB.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "backend"}},
				DoUpdates: clause.AssignmentColumns([]string{"key_value", "updated_at"}),
			}).Create(&database.BackendKey{Backend: k.Backend, KeyValue: k.Key}).Error
		}
		if err != nil {
			respond.Error(w, http.StatusInternalServerError, "db_error", "Failed to store key for "+k.Backend)
			return
		}
	}

	respond.JSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

type planView struct {
	Name           string `json:"name"`
	CopyLimit      int    `json:"copy_limit"`
	ComponentLimit int    `json:"component_limit"`
}

// ListPlans returns every plan and its limits.
func ListPlans(w http.ResponseWriter, r *http.Request) {
	var plans []database.Plan
	if err := database.DB.Order("name").Find(&plans).Error; err != nil {
		respond.Error(w, http.StatusInternalServerError, "db_error", "Failed to load plans")
		return
	}
	out := make([]planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, planView{Name: p.Name, CopyLimit: p.CopyLimit, ComponentLimit: p.ComponentLimit})
	}
	respond.JSON(w, http.StatusOK, out)
}

// HealthCheck returns service health status.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
