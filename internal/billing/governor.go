package billing

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gluk-w/claworc/launchpad-ai/internal/providers"
)

// Window is how long quota counters accumulate after the first usage.
const Window = 30 * 24 * time.Hour

// Availability is the state of one bucket at check time.
type Availability struct {
	Available bool `json:"available"`
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
}

// Governor prices calls and enforces per-account quota.
type Governor struct {
	store Store
	now   func() time.Time
	log   *zap.Logger
}

type GovernorOption func(*Governor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) GovernorOption {
	return func(g *Governor) { g.now = now }
}

func WithGovernorLogger(l *zap.Logger) GovernorOption {
	return func(g *Governor) { g.log = l }
}

func NewGovernor(store Store, opts ...GovernorOption) *Governor {
	g := &Governor{
		store: store,
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Cost prices a call.
func (g *Governor) Cost(u providers.TokenUsage) Cost {
	return ComputeCost(u)
}

func (g *Governor) resetExpired(ctx context.Context, accountID string) error {
	reset, err := g.store.ResetIfExpired(ctx, accountID, g.now().UTC())
	if err != nil {
		return err
	}
	if reset {
		g.log.Info("quota window reset", zap.String("account", accountID))
	}
	return nil
}

// CheckAvailable reports whether bucket has room, resetting an expired
// window first. In-flight reservations count as used.
func (g *Governor) CheckAvailable(ctx context.Context, accountID string, bucket Bucket) (Availability, error) {
	if err := g.resetExpired(ctx, accountID); err != nil {
		return Availability{}, err
	}
	a, err := g.store.GetAccount(ctx, accountID)
	if err != nil {
		return Availability{}, err
	}
	limit := a.Limit(bucket)
	used := a.Used(bucket)
	return Availability{
		Available: limit == Unlimited || used+a.Pending(bucket) < limit,
		Used:      used,
		Limit:     limit,
	}, nil
}

// Reservation is a claimed quota slot for one in-flight call. It is settled
// exactly once by Commit or Release.
type Reservation struct {
	AccountID string
	Bucket    Bucket

	settled atomic.Bool
}

// Reserve claims a slot in bucket or returns ErrQuotaExhausted.
func (g *Governor) Reserve(ctx context.Context, accountID string, bucket Bucket) (*Reservation, error) {
	if !bucket.Valid() {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	if err := g.resetExpired(ctx, accountID); err != nil {
		return nil, err
	}
	ok, err := g.store.Reserve(ctx, accountID, bucket)
	if err != nil {
		return nil, err
	}
	if !ok {
		g.log.Info("quota exhausted",
			zap.String("account", accountID),
			zap.String("bucket", string(bucket)))
		return nil, ErrQuotaExhausted
	}
	return &Reservation{AccountID: accountID, Bucket: bucket}, nil
}

var errSettled = errors.New("reservation already settled")

// Release gives the slot back without recording anything. It is a no-op on
// a settled reservation.
func (g *Governor) Release(ctx context.Context, r *Reservation) error {
	if r == nil || !r.settled.CompareAndSwap(false, true) {
		return nil
	}
	if err := g.store.Release(ctx, r.AccountID, r.Bucket); err != nil {
		g.log.Error("release reservation failed",
			zap.String("account", r.AccountID),
			zap.String("bucket", string(r.Bucket)),
			zap.Error(err))
		return err
	}
	return nil
}

// Commit turns the reservation into one recorded generation.
func (g *Governor) Commit(ctx context.Context, r *Reservation, u providers.TokenUsage) (Cost, error) {
	if r == nil {
		return Cost{}, errors.New("nil reservation")
	}
	if !r.settled.CompareAndSwap(false, true) {
		return Cost{}, errSettled
	}
	cost := g.Cost(u)
	if err := g.apply(ctx, r.AccountID, r.Bucket, u, cost, true); err != nil {
		return Cost{}, err
	}
	return cost, nil
}

// RecordUsage increments bucket by one generation and adds the call to the
// lifetime totals. The first usage in a window starts the window.
func (g *Governor) RecordUsage(ctx context.Context, accountID string, bucket Bucket, u providers.TokenUsage) error {
	if !bucket.Valid() {
		return fmt.Errorf("unknown bucket %q", bucket)
	}
	return g.apply(ctx, accountID, bucket, u, g.Cost(u), false)
}

func (g *Governor) apply(ctx context.Context, accountID string, bucket Bucket, u providers.TokenUsage, cost Cost, reserved bool) error {
	err := g.store.ApplyUsage(ctx, accountID, bucket, UsageDelta{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		CostCents:    cost.TotalCostCents,
		Reserved:     reserved,
		ResetAt:      g.now().UTC().Add(Window),
	})
	if err != nil {
		g.log.Error("record usage failed",
			zap.String("account", accountID),
			zap.String("bucket", string(bucket)),
			zap.Error(err))
		return err
	}
	g.log.Debug("usage recorded",
		zap.String("account", accountID),
		zap.String("bucket", string(bucket)),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cost_cents", cost.TotalCostCents))
	return nil
}

// Account returns the current quota state, resetting an expired window
// first.
func (g *Governor) Account(ctx context.Context, accountID string) (*Account, error) {
	if err := g.resetExpired(ctx, accountID); err != nil {
		return nil, err
	}
	return g.store.GetAccount(ctx, accountID)
}
