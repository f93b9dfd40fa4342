package market

type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// OrderState follows the resting-order lifecycle. Resting and
// PartiallyFilled cycle; Filled and Cancelled are terminal.
type OrderState uint8

const (
	Resting OrderState = iota
	PartiallyFilled
	Filled
	Cancelled
)

func (st OrderState) String() string {
	switch st {
	case Resting:
		return "resting"
	case PartiallyFilled:
		return "partially-filled"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Handle addresses an arena slot. Zero is never a live handle.
type Handle uint32

const None Handle = 0

// Order is a resting order inside one price level. Qty is the
// remaining (unexecuted) quantity. The queue links are handles into
// the owning book's order arena, never pointers.
type Order struct {
	ID     uint64
	Symbol uint32
	Side   Side
	Price  int64
	Qty    int64
	State  OrderState

	next Handle
	prev Handle
}

func (o *Order) view() OrderView {
	return OrderView{
		ID:     o.ID,
		Symbol: o.Symbol,
		Side:   o.Side,
		Price:  o.Price,
		Qty:    o.Qty,
		State:  o.State,
	}
}
