package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gluk-w/claworc/launchpad-ai/internal/database"
)

// GormStore persists accounts in the service database. Limits come from the
// plans table and are resolved inside each statement.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func columns(b Bucket) (used, pending, limit string) {
	if b == BucketComponent {
		return "component_used", "component_pending", "component_limit"
	}
	return "copy_used", "copy_pending", "copy_limit"
}

func (s *GormStore) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var row database.Account
	if err := s.db.WithContext(ctx).First(&row, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	var plan database.Plan
	if err := s.db.WithContext(ctx).First(&plan, "name = ?", row.Plan).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load plan: %w", err)
		}
		// An account on a deleted plan has no quota.
	}

	return &Account{
		ID:                row.ID,
		Plan:              row.Plan,
		CopyUsed:          row.CopyUsed,
		ComponentUsed:     row.ComponentUsed,
		CopyPending:       row.CopyPending,
		ComponentPending:  row.ComponentPending,
		CopyLimit:         plan.CopyLimit,
		ComponentLimit:    plan.ComponentLimit,
		ResetAt:           row.ResetAt,
		TotalInputTokens:  row.TotalInputTokens,
		TotalOutputTokens: row.TotalOutputTokens,
		TotalCostCents:    row.TotalCostCents,
	}, nil
}

func (s *GormStore) ResetIfExpired(ctx context.Context, accountID string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&database.Account{}).
		Where("id = ? AND reset_at IS NOT NULL AND reset_at <= ?", accountID, now.UTC()).
		Updates(map[string]any{
			"copy_used":      0,
			"component_used": 0,
			"reset_at":       nil,
		})
	if res.Error != nil {
		return false, fmt.Errorf("reset window: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, s.mustExist(ctx, accountID)
	}
	return true, nil
}

func (s *GormStore) Reserve(ctx context.Context, accountID string, bucket Bucket) (bool, error) {
	used, pending, limit := columns(bucket)
	planLimit := fmt.Sprintf("(SELECT %s FROM plans WHERE plans.name = accounts.plan)", limit)

	res := s.db.WithContext(ctx).Model(&database.Account{}).
		Where("id = ?", accountID).
		Where(fmt.Sprintf("(%s = ? OR %s + %s < %s)", planLimit, used, pending, planLimit), Unlimited).
		Update(pending, gorm.Expr(pending+" + 1"))
	if res.Error != nil {
		return false, fmt.Errorf("reserve %s: %w", bucket, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, s.mustExist(ctx, accountID)
	}
	return true, nil
}

func (s *GormStore) Release(ctx context.Context, accountID string, bucket Bucket) error {
	_, pending, _ := columns(bucket)
	res := s.db.WithContext(ctx).Model(&database.Account{}).
		Where("id = ?", accountID).
		Update(pending, gorm.Expr(fmt.Sprintf("MAX(%s - 1, 0)", pending)))
	if res.Error != nil {
		return fmt.Errorf("release %s: %w", bucket, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *GormStore) ApplyUsage(ctx context.Context, accountID string, bucket Bucket, d UsageDelta) error {
	used, pending, _ := columns(bucket)
	updates := map[string]any{
		used:                  gorm.Expr(used + " + 1"),
		"total_input_tokens":  gorm.Expr("total_input_tokens + ?", d.InputTokens),
		"total_output_tokens": gorm.Expr("total_output_tokens + ?", d.OutputTokens),
		"total_cost_cents":    gorm.Expr("total_cost_cents + ?", d.CostCents),
		"reset_at":            gorm.Expr("COALESCE(reset_at, ?)", d.ResetAt.UTC()),
	}
	if d.Reserved {
		updates[pending] = gorm.Expr(fmt.Sprintf("MAX(%s - 1, 0)", pending))
	}

	res := s.db.WithContext(ctx).Model(&database.Account{}).
		Where("id = ?", accountID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("apply usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// mustExist tells an unmatched conditional update on a missing account apart
// from one whose condition did not hold.
func (s *GormStore) mustExist(ctx context.Context, accountID string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&database.Account{}).Where("id = ?", accountID).Count(&n).Error; err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CreateAccount inserts an account on plan.
func (s *GormStore) CreateAccount(ctx context.Context, accountID, plan string) (*Account, error) {
	if err := s.db.WithContext(ctx).First(&database.Plan{}, "name = ?", plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w %q", ErrUnknownPlan, plan)
		}
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&database.Account{ID: accountID, Plan: plan}).Error; err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return s.GetAccount(ctx, accountID)
}

// SetPlan moves an account to another plan. Counters are kept.
func (s *GormStore) SetPlan(ctx context.Context, accountID, plan string) error {
	if err := s.db.WithContext(ctx).First(&database.Plan{}, "name = ?", plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w %q", ErrUnknownPlan, plan)
		}
		return fmt.Errorf("load plan: %w", err)
	}
	res := s.db.WithContext(ctx).Model(&database.Account{}).Where("id = ?", accountID).Update("plan", plan)
	if res.Error != nil {
		return fmt.Errorf("set plan: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UsageTotals is lifetime usage summed over every account.
type UsageTotals struct {
	Accounts          int64 `json:"accounts"`
	CopyUsed          int64 `json:"copy_used"`
	ComponentUsed     int64 `json:"component_used"`
	TotalInputTokens  int64 `json:"total_input_tokens"`
	TotalOutputTokens int64 `json:"total_output_tokens"`
	TotalCostCents    int64 `json:"total_cost_cents"`
}

func (s *GormStore) Totals(ctx context.Context) (UsageTotals, error) {
	var t UsageTotals
	err := s.db.WithContext(ctx).Model(&database.Account{}).
		Select(`COUNT(*) AS accounts,
			COALESCE(SUM(copy_used), 0) AS copy_used,
			COALESCE(SUM(component_used), 0) AS component_used,
			COALESCE(SUM(total_input_tokens), 0) AS total_input_tokens,
			COALESCE(SUM(total_output_tokens), 0) AS total_output_tokens,
			COALESCE(SUM(total_cost_cents), 0) AS total_cost_cents`).
		Scan(&t).Error
	if err != nil {
		return UsageTotals{}, fmt.Errorf("usage totals: %w", err)
	}
	return t, nil
}
