package store

import "time"

type accountRow struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Currency    string    `gorm:"size:16"`
	CashBalance string    `gorm:"size:64"`
	Events      string    `gorm:"type:text;not null"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (accountRow) TableName() string { return "ledger_accounts" }

type orderRow struct {
	ID         string    `gorm:"primaryKey;size:64"`
	TraderID   string    `gorm:"index;size:64"`
	AccountID  string    `gorm:"index;size:64"`
	StrategyID string    `gorm:"size:64"`
	PositionID string    `gorm:"index;size:64"`
	Symbol     string    `gorm:"size:32"`
	State      string    `gorm:"size:32"`
	Spec       string    `gorm:"type:text;not null"`
	Events     string    `gorm:"type:text;not null"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (orderRow) TableName() string { return "ledger_orders" }

type positionRow struct {
	ID             string    `gorm:"primaryKey;size:64"`
	TraderID       string    `gorm:"index;size:64"`
	AccountID      string    `gorm:"index;size:64"`
	Symbol         string    `gorm:"size:32"`
	MarketPosition string    `gorm:"size:16"`
	Quantity       string    `gorm:"size:64"`
	Fills          string    `gorm:"type:text;not null"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (positionRow) TableName() string { return "ledger_positions" }
