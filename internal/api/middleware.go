package api

import (
	"net/http"
	"strings"

	"github.com/gluk-w/claworc/launchpad-ai/internal/config"
	"github.com/gluk-w/claworc/launchpad-ai/internal/respond"
)

// AdminAuth middleware validates the shared admin secret.
func AdminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if config.Cfg.AdminSecret == "" {
			respond.Error(w, http.StatusServiceUnavailable, "not_configured", "Admin secret not configured")
			return
		}

		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if token == "" || token == auth {
			respond.Error(w, http.StatusUnauthorized, "unauthorized", "Missing admin token")
			return
		}

		if token != config.Cfg.AdminSecret {
			respond.Error(w, http.StatusForbidden, "forbidden", "Invalid admin token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
