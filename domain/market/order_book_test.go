package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sym = uint32(1)

func newTestMarket(t *testing.T) (*Manager, *recorder) {
	t.Helper()
	rec := &recorder{}
	m := NewManager(rec)
	require.NoError(t, m.AddSymbol(sym, "SYM"))
	rec.reset()
	return m, rec
}

// Two orders in at the same price: aggregate sums, queue keeps arrival order.
func TestLevelAggregatesAndQueue(t *testing.T) {
	m, _ := newTestMarket(t)

	require.NoError(t, m.AddOrder(1, sym, Bid, 100, 10))
	require.NoError(t, m.AddOrder(2, sym, Bid, 100, 5))

	book, ok := m.Book(sym)
	require.True(t, ok)

	lvl, ok := book.Level(Bid, 100)
	require.True(t, ok)
	assert.Equal(t, int64(15), lvl.TotalQty)
	assert.Equal(t, 2, lvl.Orders)
	assert.Equal(t, []uint64{1, 2}, book.Queue(Bid, 100))
}

// Partial execution shrinks order and aggregate but moves nothing.
func TestPartialExecutionKeepsPriority(t *testing.T) {
	m, rec := newTestMarket(t)
	require.NoError(t, m.AddOrder(1, sym, Bid, 100, 10))
	require.NoError(t, m.AddOrder(2, sym, Bid, 100, 5))
	rec.reset()

	require.NoError(t, m.ExecuteOrder(1, 6))

	book, _ := m.Book(sym)
	o1, ok := m.Order(1)
	require.True(t, ok)
	assert.Equal(t, int64(4), o1.Qty)
	assert.Equal(t, PartiallyFilled, o1.State)

	lvl, _ := book.Level(Bid, 100)
	assert.Equal(t, int64(9), lvl.TotalQty)
	assert.Equal(t, []uint64{1, 2}, book.Queue(Bid, 100))

	// Best bid price did not move, so no book update fires.
	assert.Equal(t, []string{"!exec", "~level", "~order"}, rec.kinds())

	best, _ := book.BestBid()
	assert.Equal(t, int64(100), best.Price)
}

// Replace retires the old id, relocates quantity, and flags the top move.
func TestReplaceRelocatesAndRetiresOldID(t *testing.T) {
	m, rec := newTestMarket(t)
	require.NoError(t, m.AddOrder(1, sym, Bid, 100, 10))
	require.NoError(t, m.AddOrder(2, sym, Bid, 100, 5))
	require.NoError(t, m.ExecuteOrder(1, 6))
	rec.reset()

	require.NoError(t, m.ReplaceOrder(1, 3, 101, 4))

	assert.ErrorIs(t, m.DeleteOrder(1), ErrUnknownOrderID)

	book, _ := m.Book(sym)
	oldLvl, ok := book.Level(Bid, 100)
	require.True(t, ok)
	assert.Equal(t, int64(5), oldLvl.TotalQty)

	newLvl, ok := book.Level(Bid, 101)
	require.True(t, ok)
	assert.Equal(t, int64(4), newLvl.TotalQty)

	best, _ := book.BestBid()
	assert.Equal(t, int64(101), best.Price)

	upd, ok := rec.last("~book")
	require.True(t, ok, "replace that moves the best bid must emit a book update")
	assert.True(t, upd.top)
}

// Deleting an unknown order rejects without emitting anything.
func TestDeleteUnknownOrderLeavesStateUntouched(t *testing.T) {
	m, rec := newTestMarket(t)

	err := m.DeleteOrder(999)
	assert.ErrorIs(t, err, ErrUnknownOrderID)
	assert.Empty(t, rec.events)
	assert.Equal(t, 0, m.OrderCount())
}

func TestAddDeleteRoundTrip(t *testing.T) {
	m, _ := newTestMarket(t)
	require.NoError(t, m.AddOrder(1, sym, Ask, 105, 7))
	require.NoError(t, m.AddOrder(2, sym, Ask, 106, 3))

	book, _ := m.Book(sym)
	beforeLevels := book.AskLevels()
	beforeLvl, _ := book.Level(Ask, 105)

	require.NoError(t, m.AddOrder(10, sym, Ask, 105, 9))
	require.NoError(t, m.DeleteOrder(10))

	assert.Equal(t, beforeLevels, book.AskLevels())
	after, ok := book.Level(Ask, 105)
	require.True(t, ok)
	assert.Equal(t, beforeLvl, after)
	assert.Equal(t, []uint64{1}, book.Queue(Ask, 105))
}

func TestFIFOWithinLevel(t *testing.T) {
	m, _ := newTestMarket(t)
	require.NoError(t, m.AddOrder(1, sym, Ask, 50, 4)) // A
	require.NoError(t, m.AddOrder(2, sym, Ask, 50, 4)) // B

	// Partial fills at that price drain A before B.
	require.NoError(t, m.ExecuteOrder(1, 4))

	book, _ := m.Book(sym)
	assert.Equal(t, []uint64{2}, book.Queue(Ask, 50))
	_, aGone := m.Order(1)
	assert.False(t, aGone)
	o2, _ := m.Order(2)
	assert.Equal(t, int64(4), o2.Qty)
}

func TestCrossedBookIsFatal(t *testing.T) {
	m, _ := newTestMarket(t)
	require.NoError(t, m.AddOrder(1, sym, Bid, 100, 10))

	// The feed claims an ask resting at or below the best bid.
	err := m.AddOrder(2, sym, Ask, 99, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.True(t, IsFatal(err))
}

func TestLevelAggregateMatchesQueue(t *testing.T) {
	m, _ := newTestMarket(t)
	ids := []uint64{1, 2, 3, 4, 5}
	for i, id := range ids {
		require.NoError(t, m.AddOrder(id, sym, Bid, 90, int64(i+1)*3))
	}
	require.NoError(t, m.ExecuteOrder(2, 4))
	require.NoError(t, m.ReduceOrder(4, 5))
	require.NoError(t, m.DeleteOrder(3))

	book, _ := m.Book(sym)
	lvl, _ := book.Level(Bid, 90)

	var sum int64
	for _, id := range book.Queue(Bid, 90) {
		o, ok := m.Order(id)
		require.True(t, ok)
		sum += o.Qty
	}
	assert.Equal(t, sum, lvl.TotalQty)
	assert.Equal(t, len(book.Queue(Bid, 90)), lvl.Orders)
}

func TestNotificationOrderOnInsert(t *testing.T) {
	m, rec := newTestMarket(t)

	require.NoError(t, m.AddOrder(1, sym, Bid, 100, 10))
	assert.Equal(t, []string{"+level", "+order", "~book"}, rec.kinds())

	lvlEv := rec.events[0]
	assert.True(t, lvlEv.top, "first bid level is a new best price")

	rec.reset()
	require.NoError(t, m.AddOrder(2, sym, Bid, 100, 5))
	// Joining an existing level never moves the top.
	assert.Equal(t, []string{"~level", "+order"}, rec.kinds())
}

func TestDrainedBestLevelFlagsTop(t *testing.T) {
	m, rec := newTestMarket(t)
	require.NoError(t, m.AddOrder(1, sym, Ask, 105, 7))
	require.NoError(t, m.AddOrder(2, sym, Ask, 106, 3))
	rec.reset()

	require.NoError(t, m.ExecuteOrder(1, 7))
	assert.Equal(t, []string{"!exec", "-level", "-order", "~book"}, rec.kinds())

	del, _ := rec.last("-order")
	assert.Equal(t, Filled, del.order.State)
	assert.Equal(t, int64(0), del.order.Qty)

	book, _ := m.Book(sym)
	best, _ := book.BestAsk()
	assert.Equal(t, int64(106), best.Price)
}

func TestExecuteAtExplicitPrice(t *testing.T) {
	m, rec := newTestMarket(t)
	require.NoError(t, m.AddOrder(1, sym, Bid, 100, 10))
	rec.reset()

	require.NoError(t, m.ExecuteOrderAtPrice(1, 4, 99))

	ex, ok := rec.last("!exec")
	require.True(t, ok)
	assert.Equal(t, int64(99), ex.price)
	assert.Equal(t, int64(4), ex.qty)
}

func TestArenaHandleRecycling(t *testing.T) {
	m, _ := newTestMarket(t)
	for round := 0; round < 3; round++ {
		for i := uint64(1); i <= 100; i++ {
			require.NoError(t, m.AddOrder(i, sym, Bid, int64(10+i%7), 5))
		}
		for i := uint64(1); i <= 100; i++ {
			require.NoError(t, m.DeleteOrder(i))
		}
	}
	book, _ := m.Book(sym)
	assert.True(t, book.Empty())
	assert.Equal(t, 0, book.BidLevels())
}
