package proxy

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/gluk-w/claworc/launchpad-ai/internal/database"
	"github.com/gluk-w/claworc/launchpad-ai/internal/respond"
)

var errInvalidToken = errors.New("invalid or disabled token")

// accountTokens remembers token -> account for a short while. Unknown and
// disabled tokens are remembered too; store errors are not.
var accountTokens = &tokenCache{ttl: 30 * time.Second, now: time.Now}

type tokenEntry struct {
	accountID string // empty for unknown or disabled tokens
	expires   time.Time
}

type tokenCache struct {
	ttl     time.Duration
	now     func() time.Time
	entries sync.Map // token -> tokenEntry
}

func (c *tokenCache) get(token string) (tokenEntry, bool) {
	v, ok := c.entries.Load(token)
	if !ok {
		return tokenEntry{}, false
	}
	e := v.(tokenEntry)
	if !c.now().Before(e.expires) {
		c.entries.Delete(token)
		return tokenEntry{}, false
	}
	return e, true
}

func (c *tokenCache) put(token, accountID string) {
	c.entries.Store(token, tokenEntry{accountID: accountID, expires: c.now().Add(c.ttl)})
}

// accountForToken resolves an API token to its account id.
func accountForToken(token string) (string, error) {
	if e, ok := accountTokens.get(token); ok {
		if e.accountID == "" {
			return "", errInvalidToken
		}
		return e.accountID, nil
	}

	var at database.AccountToken
	err := database.DB.Where("token = ?", token).First(&at).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		accountTokens.put(token, "")
		return "", errInvalidToken
	case err != nil:
		return "", err
	case !at.Enabled:
		accountTokens.put(token, "")
		return "", errInvalidToken
	}
	accountTokens.put(token, at.AccountID)
	return at.AccountID, nil
}

// InvalidateTokenCache forgets one token.
func InvalidateTokenCache(token string) {
	accountTokens.entries.Delete(token)
}

// InvalidateAllTokenCache forgets every token. Admin changes call it.
func InvalidateAllTokenCache() {
	accountTokens.entries.Clear()
}

// AuthMiddleware resolves the account behind the request's API token and
// puts its id in the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerOrAPIKey(r)
		if token == "" {
			respond.Error(w, http.StatusUnauthorized, "missing_token", "API key is required")
			return
		}

		accountID, err := accountForToken(token)
		if errors.Is(err, errInvalidToken) {
			respond.Error(w, http.StatusUnauthorized, "invalid_token", "Invalid or disabled API key")
			return
		}
		if err != nil {
			respond.Error(w, http.StatusServiceUnavailable, "auth_unavailable", "Cannot verify API key right now")
			return
		}

		next.ServeHTTP(w, r.WithContext(withAccountID(r.Context(), accountID)))
	})
}

// bearerOrAPIKey reads "Authorization: Bearer <token>" or "x-api-key".
func bearerOrAPIKey(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token
	}
	return r.Header.Get("x-api-key")
}
