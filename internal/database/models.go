package database

import "time"

// Plan holds the generation limits of a subscription. A limit of -1 is
// unlimited.
type Plan struct {
	Name           string    `gorm:"primaryKey"`
	CopyLimit      int       `gorm:"not null;default:0"`
	ComponentLimit int       `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// Account is the per-user quota state. Pending columns count reservations
// for calls that are still in flight.
type Account struct {
	ID                string     `gorm:"primaryKey"`
	Plan              string     `gorm:"not null;index"`
	CopyUsed          int        `gorm:"not null;default:0"`
	ComponentUsed     int        `gorm:"not null;default:0"`
	CopyPending       int        `gorm:"not null;default:0"`
	ComponentPending  int        `gorm:"not null;default:0"`
	ResetAt           *time.Time `gorm:"index"`
	TotalInputTokens  int64      `gorm:"not null;default:0"`
	TotalOutputTokens int64      `gorm:"not null;default:0"`
	TotalCostCents    int64      `gorm:"not null;default:0"`
	CreatedAt         time.Time  `gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime"`
}

type AccountToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	AccountID string    `gorm:"uniqueIndex;not null"`
	Token     string    `gorm:"uniqueIndex;not null"`
	Enabled   bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// BackendKey is an API key for a backend family ("text" or "vision").
type BackendKey struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Backend   string    `gorm:"uniqueIndex;not null"`
	KeyValue  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
