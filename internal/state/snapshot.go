package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"execution/internal/schema"

	"github.com/yanun0323/errors"
)

// Snapshot captures positions and account balances at a point in time.
type Snapshot struct {
	Timestamp int64           `json:"timestamp"`
	Positions []PositionEntry `json:"positions"`
	Accounts  []AccountEntry  `json:"accounts"`
}

// PositionEntry is a single position in a snapshot.
type PositionEntry struct {
	PositionID       schema.PositionID     `json:"positionId"`
	AccountID        schema.AccountID      `json:"accountId"`
	Symbol           schema.Symbol         `json:"symbol"`
	MarketPosition   schema.MarketPosition `json:"marketPosition"`
	Quantity         schema.Quantity       `json:"quantity"`
	AverageOpenPrice schema.Price          `json:"averageOpenPrice"`
	RealizedPnL      schema.Money          `json:"realizedPnl"`
}

// AccountEntry is a single account in a snapshot.
type AccountEntry struct {
	AccountID   schema.AccountID `json:"accountId"`
	Currency    string           `json:"currency"`
	CashBalance schema.Money     `json:"cashBalance"`
}

// BuildSnapshot orders the given positions and accounts by id.
func BuildSnapshot(now time.Time, positions []*Position, accounts []*Account) Snapshot {
	snap := Snapshot{
		Timestamp: now.UTC().UnixNano(),
		Positions: make([]PositionEntry, 0, len(positions)),
		Accounts:  make([]AccountEntry, 0, len(accounts)),
	}
	for _, p := range positions {
		snap.Positions = append(snap.Positions, PositionEntry{
			PositionID:       p.ID(),
			AccountID:        p.AccountID(),
			Symbol:           p.Symbol(),
			MarketPosition:   p.MarketPosition(),
			Quantity:         p.Quantity(),
			AverageOpenPrice: p.AverageOpenPrice(),
			RealizedPnL:      p.RealizedPnL(),
		})
	}
	for _, a := range accounts {
		snap.Accounts = append(snap.Accounts, AccountEntry{
			AccountID:   a.ID(),
			Currency:    a.Currency(),
			CashBalance: a.CashBalance(),
		})
	}
	sort.Slice(snap.Positions, func(i, j int) bool {
		return snap.Positions[i].PositionID < snap.Positions[j].PositionID
	})
	sort.Slice(snap.Accounts, func(i, j int) bool {
		return snap.Accounts[i].AccountID < snap.Accounts[j].AccountID
	})
	return snap
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "mkdir %s", dir)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "read snapshot %s", path)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrap(err, "unmarshal snapshot")
	}
	return snap, nil
}

// CompareSnapshots checks if two snapshots hold the same positions and balances.
func CompareSnapshots(expected, actual Snapshot) error {
	if len(expected.Positions) != len(actual.Positions) {
		return errors.Errorf("snapshot position count mismatch: expected=%d actual=%d", len(expected.Positions), len(actual.Positions))
	}
	if len(expected.Accounts) != len(actual.Accounts) {
		return errors.Errorf("snapshot account count mismatch: expected=%d actual=%d", len(expected.Accounts), len(actual.Accounts))
	}
	positions := make(map[schema.PositionID]PositionEntry, len(expected.Positions))
	for _, entry := range expected.Positions {
		positions[entry.PositionID] = entry
	}
	for _, entry := range actual.Positions {
		want, ok := positions[entry.PositionID]
		if !ok {
			return errors.Errorf("snapshot missing position: %s", entry.PositionID)
		}
		if want.MarketPosition != entry.MarketPosition || !want.Quantity.Equal(entry.Quantity) {
			return errors.Errorf("snapshot position mismatch: id=%s expected=%s %s actual=%s %s",
				entry.PositionID, want.MarketPosition, want.Quantity, entry.MarketPosition, entry.Quantity)
		}
	}
	accounts := make(map[schema.AccountID]AccountEntry, len(expected.Accounts))
	for _, entry := range expected.Accounts {
		accounts[entry.AccountID] = entry
	}
	for _, entry := range actual.Accounts {
		want, ok := accounts[entry.AccountID]
		if !ok {
			return errors.Errorf("snapshot missing account: %s", entry.AccountID)
		}
		if !want.CashBalance.Equal(entry.CashBalance) {
			return errors.Errorf("snapshot balance mismatch: account=%s expected=%s actual=%s", entry.AccountID, want.CashBalance, entry.CashBalance)
		}
	}
	return nil
}
