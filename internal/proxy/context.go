package proxy

import "context"

type contextKey string

const accountIDKey contextKey = "accountID"

func withAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// GetAccountID returns the account authenticated by AuthMiddleware.
func GetAccountID(ctx context.Context) string {
	if v, ok := ctx.Value(accountIDKey).(string); ok {
		return v
	}
	return ""
}
