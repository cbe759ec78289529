package billing

import (
	"context"
	"errors"
	"time"

	"github.com/gluk-w/claworc/launchpad-ai/internal/content"
)

var (
	ErrQuotaExhausted  = errors.New("quota exhausted")
	ErrAccountNotFound = errors.New("account not found")
	ErrUnknownPlan     = errors.New("unknown plan")
)

// Bucket is a quota counter. Tiers 1 and 2 draw from copy, tiers 3 and 4
// from component.
type Bucket string

const (
	BucketCopy      Bucket = "copy"
	BucketComponent Bucket = "component"
)

// Unlimited is the limit value that never runs out.
const Unlimited = -1

func BucketForTier(t content.Tier) Bucket {
	if t >= content.TierSection {
		return BucketComponent
	}
	return BucketCopy
}

func (b Bucket) Valid() bool {
	return b == BucketCopy || b == BucketComponent
}

// Account is a snapshot of one account's quota state with the limits of its
// plan resolved.
type Account struct {
	ID                string     `json:"id"`
	Plan              string     `json:"plan"`
	CopyUsed          int        `json:"copy_used"`
	ComponentUsed     int        `json:"component_used"`
	CopyPending       int        `json:"copy_pending"`
	ComponentPending  int        `json:"component_pending"`
	CopyLimit         int        `json:"copy_limit"`
	ComponentLimit    int        `json:"component_limit"`
	ResetAt           *time.Time `json:"reset_at,omitempty"`
	TotalInputTokens  int64      `json:"total_input_tokens"`
	TotalOutputTokens int64      `json:"total_output_tokens"`
	TotalCostCents    int64      `json:"total_cost_cents"`
}

func (a *Account) Used(b Bucket) int {
	if b == BucketComponent {
		return a.ComponentUsed
	}
	return a.CopyUsed
}

func (a *Account) Pending(b Bucket) int {
	if b == BucketComponent {
		return a.ComponentPending
	}
	return a.CopyPending
}

func (a *Account) Limit(b Bucket) int {
	if b == BucketComponent {
		return a.ComponentLimit
	}
	return a.CopyLimit
}

// UsageDelta is what one completed call adds to an account.
type UsageDelta struct {
	InputTokens  int64
	OutputTokens int64
	CostCents    int64
	// Reserved moves a pending slot to used instead of incrementing used
	// directly.
	Reserved bool
	// ResetAt starts the window if none is running.
	ResetAt time.Time
}

// Store is the account persistence the governor depends on. Every mutating
// method must be a single atomic operation against the backing store.
type Store interface {
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	// ResetIfExpired zeroes both used counters and clears reset_at when
	// reset_at is at or before now. It reports whether a reset happened.
	ResetIfExpired(ctx context.Context, accountID string, now time.Time) (bool, error)
	// Reserve claims one pending slot in bucket if used+pending is below the
	// limit or the limit is unlimited.
	Reserve(ctx context.Context, accountID string, bucket Bucket) (bool, error)
	Release(ctx context.Context, accountID string, bucket Bucket) error
	ApplyUsage(ctx context.Context, accountID string, bucket Bucket, delta UsageDelta) error
}
