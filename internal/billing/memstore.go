package billing

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps accounts in a map. Each method holds the lock for its
// whole read-modify-write, which gives it the same atomicity as the
// database store.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

func NewMemoryStore(accounts ...Account) *MemoryStore {
	s := &MemoryStore{accounts: make(map[string]*Account)}
	for _, a := range accounts {
		s.Put(a)
	}
	return s
}

// Put inserts or replaces an account.
func (s *MemoryStore) Put(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := a
	if a.ResetAt != nil {
		t := *a.ResetAt
		cp.ResetAt = &t
	}
	s.accounts[a.ID] = &cp
}

func (s *MemoryStore) GetAccount(_ context.Context, accountID string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	if a.ResetAt != nil {
		t := *a.ResetAt
		cp.ResetAt = &t
	}
	return &cp, nil
}

func (s *MemoryStore) ResetIfExpired(_ context.Context, accountID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return false, ErrAccountNotFound
	}
	if a.ResetAt == nil || now.Before(*a.ResetAt) {
		return false, nil
	}
	a.CopyUsed = 0
	a.ComponentUsed = 0
	a.ResetAt = nil
	return true, nil
}

func (s *MemoryStore) Reserve(_ context.Context, accountID string, bucket Bucket) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return false, ErrAccountNotFound
	}
	limit := a.Limit(bucket)
	if limit != Unlimited && a.Used(bucket)+a.Pending(bucket) >= limit {
		return false, nil
	}
	if bucket == BucketComponent {
		a.ComponentPending++
	} else {
		a.CopyPending++
	}
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, accountID string, bucket Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	if bucket == BucketComponent {
		a.ComponentPending = max(a.ComponentPending-1, 0)
	} else {
		a.CopyPending = max(a.CopyPending-1, 0)
	}
	return nil
}

func (s *MemoryStore) ApplyUsage(_ context.Context, accountID string, bucket Bucket, d UsageDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	pending, used := &a.CopyPending, &a.CopyUsed
	if bucket == BucketComponent {
		pending, used = &a.ComponentPending, &a.ComponentUsed
	}
	if d.Reserved {
		*pending = max(*pending-1, 0)
	}
	*used++
	a.TotalInputTokens += d.InputTokens
	a.TotalOutputTokens += d.OutputTokens
	a.TotalCostCents += d.CostCents
	if a.ResetAt == nil {
		t := d.ResetAt
		a.ResetAt = &t
	}
	return nil
}
