package og

import (
	"execution/internal/schema"
	"execution/pkg/exception"

	"github.com/yanun0323/errors"
)

// liveTransitions is shared by every state in which the order can trade.
var liveTransitions = map[schema.EventKind]schema.OrderState{
	schema.EventOrderModified:        schema.OrderStateModified,
	schema.EventOrderCancelled:       schema.OrderStateCancelled,
	schema.EventOrderExpired:         schema.OrderStateExpired,
	schema.EventOrderPartiallyFilled: schema.OrderStatePartiallyFilled,
	schema.EventOrderFilled:          schema.OrderStateFilled,
}

var transitions = map[schema.OrderState]map[schema.EventKind]schema.OrderState{
	schema.OrderStateInitialized: {
		schema.EventOrderSubmitted: schema.OrderStateSubmitted,
	},
	schema.OrderStateSubmitted: {
		schema.EventOrderAccepted: schema.OrderStateAccepted,
		schema.EventOrderRejected: schema.OrderStateRejected,
	},
	schema.OrderStateAccepted: {
		schema.EventOrderWorking:         schema.OrderStateWorking,
		schema.EventOrderRejected:        schema.OrderStateRejected,
		schema.EventOrderCancelled:       schema.OrderStateCancelled,
		schema.EventOrderExpired:         schema.OrderStateExpired,
		schema.EventOrderPartiallyFilled: schema.OrderStatePartiallyFilled,
		schema.EventOrderFilled:          schema.OrderStateFilled,
	},
	schema.OrderStateWorking:         liveTransitions,
	schema.OrderStateModified:        liveTransitions,
	schema.OrderStatePartiallyFilled: liveTransitions,
}

// nextState returns the state reached by applying an event of the given kind.
// A cancel reject is recorded in any submitted, non-terminal state and leaves
// the state unchanged.
func nextState(current schema.OrderState, kind schema.EventKind) (schema.OrderState, error) {
	if kind == schema.EventOrderCancelReject {
		if current == schema.OrderStateInitialized || current.IsCompleted() {
			return current, errors.Wrapf(exception.ErrOrderInvalidTransition, "%s on %s", kind, current)
		}
		return current, nil
	}
	next, ok := transitions[current][kind]
	if !ok {
		return current, errors.Wrapf(exception.ErrOrderInvalidTransition, "%s on %s", kind, current)
	}
	return next, nil
}
