package schema

import (
	"time"

	"github.com/google/uuid"
)

// Header is the common metadata attached to every command and event.
type Header struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHeader builds a header with a fresh random id.
func NewHeader(ts time.Time) Header {
	return Header{ID: uuid.New(), Timestamp: ts}
}

// Meta returns the header. Embedding Header makes a type a Message.
func (h Header) Meta() Header {
	return h
}

// Message is anything delivered to the execution engine: commands and events.
type Message interface {
	Meta() Header
}

// CommandKind enumerates the commands handled by the execution engine.
type CommandKind uint16

const (
	CommandUnknown CommandKind = iota
	CommandSubmitOrder
	CommandSubmitBracketOrder
	CommandCancelOrder
	CommandModifyOrder
	CommandAccountInquiry
)

// MaxCommandKind is the highest defined CommandKind.
const MaxCommandKind = CommandAccountInquiry

func (k CommandKind) String() string {
	switch k {
	case CommandSubmitOrder:
		return "SubmitOrder"
	case CommandSubmitBracketOrder:
		return "SubmitBracketOrder"
	case CommandCancelOrder:
		return "CancelOrder"
	case CommandModifyOrder:
		return "ModifyOrder"
	case CommandAccountInquiry:
		return "AccountInquiry"
	default:
		return "Unknown"
	}
}

// Command is a Message instructing the engine to act.
type Command interface {
	Message
	Kind() CommandKind
}

// TraderEvent is an applied event attributed to the trader owning the entity,
// so subscribers can route by trader without querying the ledger.
// An empty TraderID marks an event that is not scoped to a trader.
type TraderEvent struct {
	TraderID TraderID
	Event    Event
}
