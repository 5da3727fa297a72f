package schema

// Identifiers are opaque strings. The zero value means the identifier is absent,
// and the natural string order is the total order used for sorted results.

// TraderID identifies a trader (a collection of strategies).
type TraderID string

// StrategyID identifies a strategy owned by a trader.
type StrategyID string

// AccountID identifies a venue account.
type AccountID string

// OrderID is the internally generated order identifier.
type OrderID string

// OrderIDBroker is the venue assigned order identifier.
type OrderIDBroker string

// PositionID is the internally generated position identifier.
type PositionID string

// PositionIDBroker is the venue assigned position identifier.
type PositionIDBroker string

// ExecutionID identifies a single venue execution (fill).
type ExecutionID string

// Symbol identifies a tradable instrument, e.g. "AUDUSD.FXCM".
type Symbol string

// JobKey identifies a job held by a scheduler.
type JobKey string

func (id TraderID) String() string         { return string(id) }
func (id StrategyID) String() string       { return string(id) }
func (id AccountID) String() string        { return string(id) }
func (id OrderID) String() string          { return string(id) }
func (id OrderIDBroker) String() string    { return string(id) }
func (id PositionID) String() string       { return string(id) }
func (id PositionIDBroker) String() string { return string(id) }
func (id ExecutionID) String() string      { return string(id) }
func (s Symbol) String() string            { return string(s) }
func (k JobKey) String() string            { return string(k) }

// IsEmpty reports whether the identifier is absent.
func (id TraderID) IsEmpty() bool { return id == "" }

// IsEmpty reports whether the identifier is absent.
func (id StrategyID) IsEmpty() bool { return id == "" }

// IsEmpty reports whether the identifier is absent.
func (id PositionIDBroker) IsEmpty() bool { return id == "" }
