package exception

import "errors"

var (
	ErrLedgerDuplicateAccount  = errors.New("ledger: account already exists")
	ErrLedgerDuplicateOrder    = errors.New("ledger: order already exists")
	ErrLedgerDuplicatePosition = errors.New("ledger: position already exists")
	ErrLedgerUnknownAccount    = errors.New("ledger: account not found")
	ErrLedgerUnknownOrder      = errors.New("ledger: order not found")
	ErrLedgerUnknownPosition   = errors.New("ledger: position not found")
)

var (
	ErrStoreNilDB         = errors.New("store: nil gorm db")
	ErrStoreCorruptRecord = errors.New("store: corrupt record")
)
