package ledger

import "execution/internal/schema"

// TraderIndex tracks the orders, positions and strategies owned by one trader.
type TraderIndex struct {
	traderID          schema.TraderID
	orderIDs          set[schema.OrderID]
	positionIDs       set[schema.PositionID]
	strategyIDs       set[schema.StrategyID]
	strategyOrders    map[schema.StrategyID]set[schema.OrderID]
	strategyPositions map[schema.StrategyID]set[schema.PositionID]
}

func NewTraderIndex(traderID schema.TraderID) *TraderIndex {
	return &TraderIndex{
		traderID:          traderID,
		orderIDs:          newSet[schema.OrderID](),
		positionIDs:       newSet[schema.PositionID](),
		strategyIDs:       newSet[schema.StrategyID](),
		strategyOrders:    make(map[schema.StrategyID]set[schema.OrderID]),
		strategyPositions: make(map[schema.StrategyID]set[schema.PositionID]),
	}
}

func (x *TraderIndex) TraderID() schema.TraderID {
	return x.traderID
}

// AddIdentifiers records an order together with its position and strategy.
// Empty position or strategy ids are not recorded.
func (x *TraderIndex) AddIdentifiers(orderID schema.OrderID, positionID schema.PositionID, strategyID schema.StrategyID) {
	x.orderIDs.add(orderID)
	if positionID != "" {
		x.positionIDs.add(positionID)
	}
	if strategyID.IsEmpty() {
		return
	}

	x.strategyIDs.add(strategyID)
	orders, ok := x.strategyOrders[strategyID]
	if !ok {
		orders = newSet[schema.OrderID]()
		x.strategyOrders[strategyID] = orders
	}
	orders.add(orderID)

	if positionID == "" {
		return
	}
	positions, ok := x.strategyPositions[strategyID]
	if !ok {
		positions = newSet[schema.PositionID]()
		x.strategyPositions[strategyID] = positions
	}
	positions.add(positionID)
}

// OrderIDs returns the trader's order ids, narrowed to a strategy when one is given.
// An unknown strategy yields an empty result.
func (x *TraderIndex) OrderIDs(strategyID schema.StrategyID) []schema.OrderID {
	return x.orderSet(strategyID).sorted()
}

// PositionIDs returns the trader's position ids, narrowed to a strategy when one is given.
func (x *TraderIndex) PositionIDs(strategyID schema.StrategyID) []schema.PositionID {
	return x.positionSet(strategyID).sorted()
}

func (x *TraderIndex) StrategyIDs() []schema.StrategyID {
	return x.strategyIDs.sorted()
}

func (x *TraderIndex) orderSet(strategyID schema.StrategyID) set[schema.OrderID] {
	if strategyID.IsEmpty() {
		return x.orderIDs
	}
	return x.strategyOrders[strategyID]
}

func (x *TraderIndex) positionSet(strategyID schema.StrategyID) set[schema.PositionID] {
	if strategyID.IsEmpty() {
		return x.positionIDs
	}
	return x.strategyPositions[strategyID]
}
