package service

import "heimdall/domain/market"

// Fanout presents several handlers as the single handler slot of a
// Manager. Handlers fire in registration order.
type Fanout []market.Handler

func (f Fanout) OnAddSymbol(s market.Symbol) {
	for _, h := range f {
		h.OnAddSymbol(s)
	}
}

func (f Fanout) OnDeleteSymbol(s market.Symbol) {
	for _, h := range f {
		h.OnDeleteSymbol(s)
	}
}

func (f Fanout) OnAddOrderBook(b *market.OrderBook) {
	for _, h := range f {
		h.OnAddOrderBook(b)
	}
}

func (f Fanout) OnDeleteOrderBook(b *market.OrderBook) {
	for _, h := range f {
		h.OnDeleteOrderBook(b)
	}
}

func (f Fanout) OnUpdateOrderBook(b *market.OrderBook, top bool) {
	for _, h := range f {
		h.OnUpdateOrderBook(b, top)
	}
}

func (f Fanout) OnAddLevel(b *market.OrderBook, lvl market.LevelView, top bool) {
	for _, h := range f {
		h.OnAddLevel(b, lvl, top)
	}
}

func (f Fanout) OnUpdateLevel(b *market.OrderBook, lvl market.LevelView, top bool) {
	for _, h := range f {
		h.OnUpdateLevel(b, lvl, top)
	}
}

func (f Fanout) OnDeleteLevel(b *market.OrderBook, lvl market.LevelView, top bool) {
	for _, h := range f {
		h.OnDeleteLevel(b, lvl, top)
	}
}

func (f Fanout) OnAddOrder(o market.OrderView) {
	for _, h := range f {
		h.OnAddOrder(o)
	}
}

func (f Fanout) OnUpdateOrder(o market.OrderView) {
	for _, h := range f {
		h.OnUpdateOrder(o)
	}
}

func (f Fanout) OnDeleteOrder(o market.OrderView) {
	for _, h := range f {
		h.OnDeleteOrder(o)
	}
}

func (f Fanout) OnExecuteOrder(o market.OrderView, price, qty int64) {
	for _, h := range f {
		h.OnExecuteOrder(o, price, qty)
	}
}

var _ market.Handler = Fanout(nil)
