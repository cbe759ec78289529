package billing

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluk-w/claworc/launchpad-ai/internal/database"
	"github.com/gluk-w/claworc/launchpad-ai/internal/providers"
)

type seedAccount struct {
	ID            string
	Plan          string
	CopyUsed      int
	ComponentUsed int
	ResetAt       *time.Time
}

func planLimits(name string) (int, int) {
	for _, p := range database.DefaultPlans {
		if p.Name == name {
			return p.CopyLimit, p.ComponentLimit
		}
	}
	return 0, 0
}

func newMemoryStore(t *testing.T, seeds ...seedAccount) Store {
	t.Helper()
	s := NewMemoryStore()
	for _, a := range seeds {
		copyLimit, componentLimit := planLimits(a.Plan)
		s.Put(Account{
			ID:             a.ID,
			Plan:           a.Plan,
			CopyUsed:       a.CopyUsed,
			ComponentUsed:  a.ComponentUsed,
			CopyLimit:      copyLimit,
			ComponentLimit: componentLimit,
			ResetAt:        a.ResetAt,
		})
	}
	return s
}

func newGormStore(t *testing.T, seeds ...seedAccount) Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "billing.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	for _, a := range seeds {
		require.NoError(t, db.Create(&database.Account{
			ID:            a.ID,
			Plan:          a.Plan,
			CopyUsed:      a.CopyUsed,
			ComponentUsed: a.ComponentUsed,
			ResetAt:       a.ResetAt,
		}).Error)
	}
	return NewGormStore(db)
}

var storeFactories = map[string]func(*testing.T, ...seedAccount) Store{
	"memory": newMemoryStore,
	"gorm":   newGormStore,
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCheckAvailable(t *testing.T) {
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)

	tests := []struct {
		name   string
		seed   seedAccount
		bucket Bucket
		want   Availability
	}{
		{
			name:   "limit reached",
			seed:   seedAccount{ID: "a", Plan: "free", ComponentUsed: 5, ResetAt: &future},
			bucket: BucketComponent,
			want:   Availability{Available: false, Used: 5, Limit: 5},
		},
		{
			name:   "below limit",
			seed:   seedAccount{ID: "a", Plan: "free", ComponentUsed: 4, ResetAt: &future},
			bucket: BucketComponent,
			want:   Availability{Available: true, Used: 4, Limit: 5},
		},
		{
			name:   "unlimited",
			seed:   seedAccount{ID: "a", Plan: "agency", CopyUsed: 100000, ResetAt: &future},
			bucket: BucketCopy,
			want:   Availability{Available: true, Used: 100000, Limit: Unlimited},
		},
		{
			name:   "expired window resets first",
			seed:   seedAccount{ID: "a", Plan: "free", ComponentUsed: 5, CopyUsed: 50, ResetAt: &past},
			bucket: BucketComponent,
			want:   Availability{Available: true, Used: 0, Limit: 5},
		},
		{
			name:   "reset exactly at now",
			seed:   seedAccount{ID: "a", Plan: "free", CopyUsed: 50, ResetAt: &testNow},
			bucket: BucketCopy,
			want:   Availability{Available: true, Used: 0, Limit: 50},
		},
	}

	for storeName, newStore := range storeFactories {
		for _, tt := range tests {
			t.Run(storeName+"/"+tt.name, func(t *testing.T) {
				store := newStore(t, tt.seed)
				g := NewGovernor(store, WithClock(fixedClock(testNow)))

				got, err := g.CheckAvailable(context.Background(), tt.seed.ID, tt.bucket)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	}
}

func TestCheckAvailableResetClearsBothBuckets(t *testing.T) {
	past := testNow.Add(-time.Minute)
	for storeName, newStore := range storeFactories {
		t.Run(storeName, func(t *testing.T) {
			store := newStore(t, seedAccount{ID: "a", Plan: "free", CopyUsed: 12, ComponentUsed: 3, ResetAt: &past})
			g := NewGovernor(store, WithClock(fixedClock(testNow)))

			_, err := g.CheckAvailable(context.Background(), "a", BucketCopy)
			require.NoError(t, err)

			a, err := store.GetAccount(context.Background(), "a")
			require.NoError(t, err)
			assert.Zero(t, a.CopyUsed)
			assert.Zero(t, a.ComponentUsed)
			assert.Nil(t, a.ResetAt)
		})
	}
}

func TestRecordUsage(t *testing.T) {
	usage := providers.TokenUsage{InputTokens: 1000, OutputTokens: 200, Backend: providers.BackendText}
	wantCost := ComputeCost(usage).TotalCostCents

	for storeName, newStore := range storeFactories {
		t.Run(storeName, func(t *testing.T) {
			store := newStore(t, seedAccount{ID: "a", Plan: "pro"})
			clock := testNow
			g := NewGovernor(store, WithClock(func() time.Time { return clock }))
			ctx := context.Background()

			require.NoError(t, g.RecordUsage(ctx, "a", BucketCopy, usage))

			a, err := store.GetAccount(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, 1, a.CopyUsed)
			assert.Equal(t, 0, a.ComponentUsed)
			assert.Equal(t, int64(1000), a.TotalInputTokens)
			assert.Equal(t, int64(200), a.TotalOutputTokens)
			assert.Equal(t, wantCost, a.TotalCostCents)
			require.NotNil(t, a.ResetAt)
			assert.True(t, a.ResetAt.Equal(testNow.Add(Window)), "reset_at = %v", a.ResetAt)

			// A later usage in the same window keeps the original reset time.
			clock = testNow.Add(48 * time.Hour)
			require.NoError(t, g.RecordUsage(ctx, "a", BucketComponent, usage))

			a, err = store.GetAccount(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, 1, a.ComponentUsed)
			assert.Equal(t, 2*wantCost, a.TotalCostCents)
			assert.True(t, a.ResetAt.Equal(testNow.Add(Window)), "reset_at = %v", a.ResetAt)
		})
	}
}

func TestReserveCommitRelease(t *testing.T) {
	usage := providers.TokenUsage{InputTokens: 40, OutputTokens: 8, Backend: providers.BackendVision}

	for storeName, newStore := range storeFactories {
		t.Run(storeName, func(t *testing.T) {
			store := newStore(t, seedAccount{ID: "a", Plan: "free", ComponentUsed: 3})
			g := NewGovernor(store, WithClock(fixedClock(testNow)))
			ctx := context.Background()

			r1, err := g.Reserve(ctx, "a", BucketComponent)
			require.NoError(t, err)
			r2, err := g.Reserve(ctx, "a", BucketComponent)
			require.NoError(t, err)

			// 3 used + 2 pending fills the free plan's 5.
			_, err = g.Reserve(ctx, "a", BucketComponent)
			assert.ErrorIs(t, err, ErrQuotaExhausted)

			avail, err := g.CheckAvailable(ctx, "a", BucketComponent)
			require.NoError(t, err)
			assert.False(t, avail.Available)
			assert.Equal(t, 3, avail.Used)

			cost, err := g.Commit(ctx, r1, usage)
			require.NoError(t, err)
			assert.Equal(t, ComputeCost(usage), cost)
			_, err = g.Commit(ctx, r1, usage)
			assert.Error(t, err)

			require.NoError(t, g.Release(ctx, r2))
			require.NoError(t, g.Release(ctx, r2))

			a, err := store.GetAccount(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, 4, a.ComponentUsed)
			assert.Equal(t, 0, a.ComponentPending)
			assert.Equal(t, int64(40), a.TotalInputTokens)

			_, err = g.Reserve(ctx, "a", BucketComponent)
			assert.NoError(t, err)
		})
	}
}

func TestReserveConcurrent(t *testing.T) {
	const callers = 20

	for storeName, newStore := range storeFactories {
		t.Run(storeName, func(t *testing.T) {
			store := newStore(t, seedAccount{ID: "a", Plan: "free"})
			g := NewGovernor(store, WithClock(fixedClock(testNow)))
			ctx := context.Background()

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				granted   int
				exhausted int
			)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					r, err := g.Reserve(ctx, "a", BucketComponent)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case errors.Is(err, ErrQuotaExhausted):
						exhausted++
					case err != nil:
						t.Errorf("Reserve() error = %v", err)
					default:
						granted++
						if _, err := g.Commit(ctx, r, providers.TokenUsage{Backend: providers.BackendText}); err != nil {
							t.Errorf("Commit() error = %v", err)
						}
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 5, granted)
			assert.Equal(t, callers-5, exhausted)

			a, err := store.GetAccount(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, 5, a.ComponentUsed)
			assert.Equal(t, 0, a.ComponentPending)
		})
	}
}

func TestAccountNotFound(t *testing.T) {
	for storeName, newStore := range storeFactories {
		t.Run(storeName, func(t *testing.T) {
			g := NewGovernor(newStore(t), WithClock(fixedClock(testNow)))
			ctx := context.Background()

			_, err := g.CheckAvailable(ctx, "ghost", BucketCopy)
			assert.ErrorIs(t, err, ErrAccountNotFound)
			_, err = g.Reserve(ctx, "ghost", BucketCopy)
			assert.ErrorIs(t, err, ErrAccountNotFound)
			err = g.RecordUsage(ctx, "ghost", BucketCopy, providers.TokenUsage{})
			assert.ErrorIs(t, err, ErrAccountNotFound)
		})
	}
}

func TestReserveUnknownBucket(t *testing.T) {
	g := NewGovernor(NewMemoryStore(Account{ID: "a"}))
	_, err := g.Reserve(context.Background(), "a", Bucket("images"))
	assert.Error(t, err)
}
