package market

import "fmt"

// OrderBook mirrors the feed-published state of one instrument. It does
// not match aggressor orders itself; the feed already carries the
// outcome of matching, so the book's contract is purely structural:
// price-ordered ladders, FIFO levels, and a never-crossed top of book.
//
// Single-writer. A book is owned by exactly one Manager.
type OrderBook struct {
	sym    Symbol
	bids   *Ladder
	asks   *Ladder
	orders *arena[Order]
	levels *arena[Level]
	h      Handler
}

func newOrderBook(sym Symbol, h Handler) *OrderBook {
	return &OrderBook{
		sym:    sym,
		bids:   NewLadder(),
		asks:   NewLadder(),
		orders: newArena[Order](1024),
		levels: newArena[Level](256),
		h:      h,
	}
}

// ---- queries ----

func (b *OrderBook) Symbol() Symbol { return b.sym }

// Empty reports whether no orders rest in the book.
func (b *OrderBook) Empty() bool { return b.orders.inUse() == 0 }

func (b *OrderBook) OrderCount() int { return b.orders.inUse() }

func (b *OrderBook) BidLevels() int { return b.bids.Size() }
func (b *OrderBook) AskLevels() int { return b.asks.Size() }

func (b *OrderBook) BestBid() (LevelView, bool) {
	lh, ok := b.bids.Max()
	if !ok {
		return LevelView{}, false
	}
	return b.levels.at(lh).view(), true
}

func (b *OrderBook) BestAsk() (LevelView, bool) {
	lh, ok := b.asks.Min()
	if !ok {
		return LevelView{}, false
	}
	return b.levels.at(lh).view(), true
}

// Level returns a snapshot of the level at (side, price).
func (b *OrderBook) Level(side Side, price int64) (LevelView, bool) {
	lh, ok := b.ladder(side).Find(price)
	if !ok {
		return LevelView{}, false
	}
	return b.levels.at(lh).view(), true
}

// Queue returns the order ids resting at (side, price) in time priority.
func (b *OrderBook) Queue(side Side, price int64) []uint64 {
	lh, ok := b.ladder(side).Find(price)
	if !ok {
		return nil
	}
	lvl := b.levels.at(lh)
	ids := make([]uint64, 0, lvl.Orders)
	for h := lvl.head; h != None; h = b.orders.at(h).next {
		ids = append(ids, b.orders.at(h).ID)
	}
	return ids
}

// EachLevel walks one side best-first: bids descending, asks ascending.
func (b *OrderBook) EachLevel(side Side, fn func(LevelView) bool) {
	visit := func(lh Handle) bool { return fn(b.levels.at(lh).view()) }
	if side == Bid {
		b.bids.ForEachDescending(visit)
	} else {
		b.asks.ForEachAscending(visit)
	}
}

func (b *OrderBook) ladder(side Side) *Ladder {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) bestPrice(side Side) (int64, bool) {
	var lh Handle
	var ok bool
	if side == Bid {
		lh, ok = b.bids.Max()
	} else {
		lh, ok = b.asks.Min()
	}
	if !ok {
		return 0, false
	}
	return b.levels.at(lh).Price, true
}

func (b *OrderBook) isBest(side Side, price int64) bool {
	best, ok := b.bestPrice(side)
	return ok && best == price
}

func (b *OrderBook) orderAt(h Handle) *Order { return b.orders.at(h) }

// ---- mutations ----
//
// Each primitive emits its level and order notifications and reports
// whether the best price on its side moved: a new best-price level was
// created, or the old best level drained. Quantity changes inside the
// best level do not move the top. The caller finishes the event with
// finish(), which emits the book update and verifies the crossed-book
// invariant.

func (b *OrderBook) insert(id uint64, side Side, price, qty int64) (Handle, bool) {
	oh := b.orders.alloc()
	*b.orders.at(oh) = Order{
		ID:     id,
		Symbol: b.sym.ID,
		Side:   side,
		Price:  price,
		Qty:    qty,
		State:  Resting,
	}

	lad := b.ladder(side)
	lh, found := lad.Find(price)
	if !found {
		lh = b.levels.alloc()
		*b.levels.at(lh) = Level{Price: price, Side: side}
		lad.Insert(price, lh)
	}
	lvl := b.levels.at(lh)
	lvl.enqueue(b.orders, oh)

	top := !found && b.isBest(side, price)
	if !found {
		b.h.OnAddLevel(b, lvl.view(), top)
	} else {
		b.h.OnUpdateLevel(b, lvl.view(), top)
	}
	b.h.OnAddOrder(b.orders.at(oh).view())
	return oh, top
}

// remove takes the order out of its level and retires its handle. The
// level is dropped from the ladder the moment its queue drains.
func (b *OrderBook) remove(oh Handle, st OrderState) bool {
	o := b.orders.at(oh)
	side, price := o.Side, o.Price
	wasBest := b.isBest(side, price)

	lad := b.ladder(side)
	lh, _ := lad.Find(price)
	lvl := b.levels.at(lh)
	lvl.unlink(b.orders, oh)

	o.State = st
	if st == Filled {
		o.Qty = 0
	}
	view := o.view()

	top := false
	if lvl.empty() {
		top = wasBest
		drained := lvl.view()
		lad.Delete(price)
		b.levels.release(lh)
		b.h.OnDeleteLevel(b, drained, top)
	} else {
		b.h.OnUpdateLevel(b, lvl.view(), false)
	}
	b.h.OnDeleteOrder(view)
	b.orders.release(oh)
	return top
}

// execute applies a trade of qty at price against the resting order.
// Precondition (checked by the Manager): 0 < qty <= remaining.
func (b *OrderBook) execute(oh Handle, qty, price int64) bool {
	o := b.orders.at(oh)
	b.h.OnExecuteOrder(o.view(), price, qty)

	if qty == o.Qty {
		return b.remove(oh, Filled)
	}

	o.Qty -= qty
	o.State = PartiallyFilled
	lh, _ := b.ladder(o.Side).Find(o.Price)
	lvl := b.levels.at(lh)
	lvl.reduce(qty)

	b.h.OnUpdateLevel(b, lvl.view(), false)
	b.h.OnUpdateOrder(o.view())
	return false
}

// reduce subtracts delta from the order's remaining quantity; draining
// it entirely behaves as a cancel. Precondition: delta > 0.
func (b *OrderBook) reduce(oh Handle, delta int64) (removed bool, top bool) {
	o := b.orders.at(oh)
	if delta >= o.Qty {
		return true, b.remove(oh, Cancelled)
	}

	o.Qty -= delta
	lh, _ := b.ladder(o.Side).Find(o.Price)
	lvl := b.levels.at(lh)
	lvl.reduce(delta)

	b.h.OnUpdateLevel(b, lvl.view(), false)
	b.h.OnUpdateOrder(o.view())
	return false, false
}

// finish closes out one applied event: the book-level notification
// fires only when the top of book moved, then the crossed-book
// invariant is verified.
func (b *OrderBook) finish(top bool) error {
	if top {
		b.h.OnUpdateOrderBook(b, true)
	}
	return b.checkCrossed()
}

func (b *OrderBook) checkCrossed() error {
	bb, okBid := b.bestPrice(Bid)
	ba, okAsk := b.bestPrice(Ask)
	if okBid && okAsk && bb >= ba {
		return fmt.Errorf("%w: %s crossed: best bid %d >= best ask %d",
			ErrInvariantViolation, b.sym.Ticker, bb, ba)
	}
	return nil
}
