package market

// LevelView is a value snapshot of a price level at notification time.
// Handlers must not hold references into the book, so notifications
// carry copies.
type LevelView struct {
	Price    int64
	Side     Side
	TotalQty int64
	Orders   int
}

// OrderView is a value snapshot of an order at notification time.
type OrderView struct {
	ID     uint64
	Symbol uint32
	Side   Side
	Price  int64
	Qty    int64
	State  OrderState
}

// Handler observes every mutation a Manager applies. Delivery is
// synchronous: all callbacks for an event fire before the operation
// returns. The top flag marks changes that touched the best price on
// the affected side. A handler must not mutate the market it observes
// from inside a callback.
//
// Embed NopHandler to implement only the callbacks you care about.
type Handler interface {
	OnAddSymbol(sym Symbol)
	OnDeleteSymbol(sym Symbol)

	OnAddOrderBook(book *OrderBook)
	OnDeleteOrderBook(book *OrderBook)
	OnUpdateOrderBook(book *OrderBook, top bool)

	OnAddLevel(book *OrderBook, level LevelView, top bool)
	OnUpdateLevel(book *OrderBook, level LevelView, top bool)
	OnDeleteLevel(book *OrderBook, level LevelView, top bool)

	OnAddOrder(order OrderView)
	OnUpdateOrder(order OrderView)
	OnDeleteOrder(order OrderView)
	OnExecuteOrder(order OrderView, price int64, qty int64)
}

// NopHandler implements Handler with no-ops.
type NopHandler struct{}

func (NopHandler) OnAddSymbol(Symbol)                        {}
func (NopHandler) OnDeleteSymbol(Symbol)                     {}
func (NopHandler) OnAddOrderBook(*OrderBook)                 {}
func (NopHandler) OnDeleteOrderBook(*OrderBook)              {}
func (NopHandler) OnUpdateOrderBook(*OrderBook, bool)        {}
func (NopHandler) OnAddLevel(*OrderBook, LevelView, bool)    {}
func (NopHandler) OnUpdateLevel(*OrderBook, LevelView, bool) {}
func (NopHandler) OnDeleteLevel(*OrderBook, LevelView, bool) {}
func (NopHandler) OnAddOrder(OrderView)                      {}
func (NopHandler) OnUpdateOrder(OrderView)                   {}
func (NopHandler) OnDeleteOrder(OrderView)                   {}
func (NopHandler) OnExecuteOrder(OrderView, int64, int64)    {}

var _ Handler = NopHandler{}
