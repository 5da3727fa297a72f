package schema

import (
	"encoding/json"

	"execution/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

var codec = sonic.ConfigStd

// Envelope is the persisted form of an event: its kind plus the JSON payload.
type Envelope struct {
	Kind    EventKind       `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeEvent wraps the event in an Envelope and marshals it.
func EncodeEvent(e Event) ([]byte, error) {
	if e == nil {
		return nil, exception.ErrNilInstance
	}
	payload, err := codec.Marshal(e)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s", e.Kind())
	}
	return codec.Marshal(Envelope{Kind: e.Kind(), Payload: payload})
}

// DecodeEvent is the inverse of EncodeEvent.
func DecodeEvent(data []byte) (Event, error) {
	var env Envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "unmarshal envelope")
	}
	return env.Decode()
}

// Decode unmarshals the payload into the concrete event type named by Kind.
func (env Envelope) Decode() (Event, error) {
	switch env.Kind {
	case EventOrderSubmitted:
		return decodeAs[OrderSubmitted](env)
	case EventOrderRejected:
		return decodeAs[OrderRejected](env)
	case EventOrderAccepted:
		return decodeAs[OrderAccepted](env)
	case EventOrderWorking:
		return decodeAs[OrderWorking](env)
	case EventOrderModified:
		return decodeAs[OrderModified](env)
	case EventOrderCancelled:
		return decodeAs[OrderCancelled](env)
	case EventOrderCancelReject:
		return decodeAs[OrderCancelReject](env)
	case EventOrderExpired:
		return decodeAs[OrderExpired](env)
	case EventOrderPartiallyFilled:
		return decodeAs[OrderPartiallyFilled](env)
	case EventOrderFilled:
		return decodeAs[OrderFilled](env)
	case EventAccountState:
		return decodeAs[AccountStateEvent](env)
	default:
		return nil, errors.Wrapf(exception.ErrTypeUnsupported, "event kind: %d", env.Kind)
	}
}

func decodeAs[T Event](env Envelope) (Event, error) {
	var e T
	if err := codec.Unmarshal(env.Payload, &e); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s", env.Kind)
	}
	return e, nil
}

// EncodeEvents encodes a history as a JSON array of envelopes.
func EncodeEvents[T Event](events []T) ([]byte, error) {
	envs := make([]json.RawMessage, 0, len(events))
	for _, e := range events {
		data, err := EncodeEvent(e)
		if err != nil {
			return nil, err
		}
		envs = append(envs, data)
	}
	return codec.Marshal(envs)
}

// DecodeEvents is the inverse of EncodeEvents.
func DecodeEvents(data []byte) ([]Event, error) {
	var envs []Envelope
	if err := codec.Unmarshal(data, &envs); err != nil {
		return nil, errors.Wrap(err, "unmarshal envelopes")
	}
	out := make([]Event, 0, len(envs))
	for _, env := range envs {
		e, err := env.Decode()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
