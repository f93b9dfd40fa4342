package market

import "fmt"

type orderRef struct {
	book   *OrderBook
	handle Handle
}

// Manager is the write entry point for one shard of the market: it owns
// the symbol registry, one OrderBook per symbol, and the market-wide
// order-id index. Every operation is synchronous and atomic: it either
// applies fully (notifications included) or rejects without touching
// state.
//
// A Manager is single-writer. To process symbols concurrently, give
// each worker its own Manager over a disjoint symbol subset; there is
// no shared state between instances.
type Manager struct {
	h       Handler
	symbols map[uint32]Symbol
	books   map[uint32]*OrderBook
	index   map[uint64]orderRef
}

// NewManager wires the manager to a notification handler. A nil
// handler observes nothing.
func NewManager(h Handler) *Manager {
	if h == nil {
		h = NopHandler{}
	}
	return &Manager{
		h:       h,
		symbols: make(map[uint32]Symbol),
		books:   make(map[uint32]*OrderBook),
		index:   make(map[uint64]orderRef),
	}
}

// ---- queries ----

func (m *Manager) SymbolCount() int { return len(m.symbols) }

func (m *Manager) OrderCount() int { return len(m.index) }

func (m *Manager) Symbol(id uint32) (Symbol, bool) {
	sym, ok := m.symbols[id]
	return sym, ok
}

func (m *Manager) Book(symbol uint32) (*OrderBook, bool) {
	b, ok := m.books[symbol]
	return b, ok
}

// Order returns a snapshot of a resting order.
func (m *Manager) Order(id uint64) (OrderView, bool) {
	ref, ok := m.index[id]
	if !ok {
		return OrderView{}, false
	}
	return ref.book.orderAt(ref.handle).view(), true
}

// ---- symbol operations ----

func (m *Manager) AddSymbol(id uint32, ticker string) error {
	if _, ok := m.symbols[id]; ok {
		return fmt.Errorf("%w: %d (%s)", ErrDuplicateSymbol, id, ticker)
	}
	sym := Symbol{ID: id, Ticker: ticker}
	book := newOrderBook(sym, m.h)
	m.symbols[id] = sym
	m.books[id] = book

	m.h.OnAddSymbol(sym)
	m.h.OnAddOrderBook(book)
	return nil
}

// DeleteSymbol removes a symbol and its book. Deleting a symbol whose
// book still holds orders is rejected, not force-cleared.
func (m *Manager) DeleteSymbol(id uint32) error {
	book, ok := m.books[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSymbol, id)
	}
	if !book.Empty() {
		return fmt.Errorf("%w: %d (book not empty)", ErrUnknownSymbol, id)
	}
	sym := m.symbols[id]
	delete(m.symbols, id)
	delete(m.books, id)

	m.h.OnDeleteOrderBook(book)
	m.h.OnDeleteSymbol(sym)
	return nil
}

// ---- order operations ----

func (m *Manager) AddOrder(id uint64, symbol uint32, side Side, price, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: qty %d", ErrInvalidQuantity, qty)
	}
	if _, ok := m.index[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateOrderID, id)
	}
	book, ok := m.books[symbol]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSymbol, symbol)
	}

	oh, top := book.insert(id, side, price, qty)
	m.index[id] = orderRef{book: book, handle: oh}
	return book.finish(top)
}

// ReduceOrder subtracts delta from the order's remaining quantity.
// Draining the order entirely behaves as DeleteOrder.
func (m *Manager) ReduceOrder(id uint64, delta int64) error {
	if delta <= 0 {
		return fmt.Errorf("%w: delta %d", ErrInvalidQuantity, delta)
	}
	ref, _, err := m.resolve(id)
	if err != nil {
		return err
	}

	removed, top := ref.book.reduce(ref.handle, delta)
	if removed {
		delete(m.index, id)
	}
	return ref.book.finish(top)
}

// ModifyOrder relocates an order to a new price and quantity under the
// same id: a delete followed by an add, losing time priority.
func (m *Manager) ModifyOrder(id uint64, newPrice, newQty int64) error {
	if newQty <= 0 {
		return fmt.Errorf("%w: qty %d", ErrInvalidQuantity, newQty)
	}
	ref, o, err := m.resolve(id)
	if err != nil {
		return err
	}
	side := o.Side

	topOut := ref.book.remove(ref.handle, Cancelled)
	oh, topIn := ref.book.insert(id, side, newPrice, newQty)
	m.index[id] = orderRef{book: ref.book, handle: oh}
	return ref.book.finish(topOut || topIn)
}

// ReplaceOrder atomically substitutes newID for oldID, possibly at a
// different price and quantity. All validation happens before any
// mutation, so a rejected replace leaves the book untouched.
func (m *Manager) ReplaceOrder(oldID, newID uint64, newPrice, newQty int64) error {
	if newQty <= 0 {
		return fmt.Errorf("%w: qty %d", ErrInvalidQuantity, newQty)
	}
	ref, o, err := m.resolve(oldID)
	if err != nil {
		return err
	}
	if newID != oldID {
		if _, dup := m.index[newID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateOrderID, newID)
		}
	}
	side := o.Side

	topOut := ref.book.remove(ref.handle, Cancelled)
	delete(m.index, oldID)
	oh, topIn := ref.book.insert(newID, side, newPrice, newQty)
	m.index[newID] = orderRef{book: ref.book, handle: oh}
	return ref.book.finish(topOut || topIn)
}

func (m *Manager) DeleteOrder(id uint64) error {
	ref, _, err := m.resolve(id)
	if err != nil {
		return err
	}
	top := ref.book.remove(ref.handle, Cancelled)
	delete(m.index, id)
	return ref.book.finish(top)
}

// ExecuteOrder trades qty at the order's resting price.
func (m *Manager) ExecuteOrder(id uint64, qty int64) error {
	ref, o, err := m.resolve(id)
	if err != nil {
		return err
	}
	return m.execute(ref, o, qty, o.Price)
}

// ExecuteOrderAtPrice trades qty at an explicit trade price.
func (m *Manager) ExecuteOrderAtPrice(id uint64, qty, price int64) error {
	ref, o, err := m.resolve(id)
	if err != nil {
		return err
	}
	return m.execute(ref, o, qty, price)
}

func (m *Manager) execute(ref orderRef, o *Order, qty, price int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: traded qty %d", ErrInvalidQuantity, qty)
	}
	if qty > o.Qty {
		return fmt.Errorf("%w: order %d: traded %d > remaining %d",
			ErrOverExecution, o.ID, qty, o.Qty)
	}

	id := o.ID
	full := qty == o.Qty
	top := ref.book.execute(ref.handle, qty, price)
	if full {
		delete(m.index, id)
	}
	return ref.book.finish(top)
}

// resolve looks an order up through the id index and cross-checks the
// arena slot, so index/level divergence surfaces as an invariant
// violation instead of silently mutating the wrong order.
func (m *Manager) resolve(id uint64) (orderRef, *Order, error) {
	ref, ok := m.index[id]
	if !ok {
		return orderRef{}, nil, fmt.Errorf("%w: %d", ErrUnknownOrderID, id)
	}
	o := ref.book.orderAt(ref.handle)
	if o.ID != id {
		return orderRef{}, nil, fmt.Errorf(
			"%w: order index maps %d to a slot holding %d",
			ErrInvariantViolation, id, o.ID)
	}
	return ref, o, nil
}
