package feed

import "heimdall/domain/market"

type EventType uint8

const (
	EvAddSymbol EventType = iota + 1
	EvDeleteSymbol
	EvAddOrder
	EvExecuteOrder
	EvExecuteOrderAtPrice
	EvReduceOrder
	EvDeleteOrder
	EvReplaceOrder
)

func (t EventType) String() string {
	switch t {
	case EvAddSymbol:
		return "add-symbol"
	case EvDeleteSymbol:
		return "delete-symbol"
	case EvAddOrder:
		return "add-order"
	case EvExecuteOrder:
		return "execute-order"
	case EvExecuteOrderAtPrice:
		return "execute-order-at-price"
	case EvReduceOrder:
		return "reduce-order"
	case EvDeleteOrder:
		return "delete-order"
	case EvReplaceOrder:
		return "replace-order"
	default:
		return "unknown"
	}
}

// Event is one normalized market event, already decoded from the wire.
// Only the fields relevant to Type are populated.
type Event struct {
	Type EventType
	Seq  uint64

	Symbol uint32
	Ticker string

	OrderID    uint64
	NewOrderID uint64
	Side       market.Side
	Price      int64
	Qty        int64
}
