package bus

type EventId uint8

const (
	DataEvent EventId = iota
	DecisionEvent
	SizingEvent
	OrderEvent
	ExecutionEvent
	PendingOrderEvent
	// StopEvent is the explicit sentinel that terminates the run loop.
	StopEvent
)

func (id EventId) String() string {
	switch id {
	case DataEvent:
		return "data"
	case DecisionEvent:
		return "decision"
	case SizingEvent:
		return "sizing"
	case OrderEvent:
		return "order"
	case ExecutionEvent:
		return "execution"
	case PendingOrderEvent:
		return "pending_order"
	case StopEvent:
		return "stop"
	default:
		return "unknown"
	}
}
