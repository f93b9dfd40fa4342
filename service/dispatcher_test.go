package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heimdall/domain/market"
	"heimdall/feed"
	"heimdall/stats"
)

func newShardedDispatcher(n int) (*Dispatcher, []*stats.Collector) {
	collectors := make([]*stats.Collector, n)
	d := NewDispatcher(n, func(i int) *FeedService {
		collectors[i] = stats.New()
		return NewFeedService(market.NewManager(collectors[i]), nil, testLogger())
	}, nil, testLogger())
	return d, collectors
}

func TestDispatcherShardsBySymbol(t *testing.T) {
	d, collectors := newShardedDispatcher(2)

	dec := encodeTape(t, []feed.Event{
		{Type: feed.EvAddSymbol, Symbol: 2, Ticker: "EVEN"},
		{Type: feed.EvAddSymbol, Symbol: 3, Ticker: "ODD"},
		{Type: feed.EvAddOrder, OrderID: 1, Symbol: 2, Side: market.Bid, Price: 10, Qty: 1},
		{Type: feed.EvAddOrder, OrderID: 2, Symbol: 3, Side: market.Bid, Price: 20, Qty: 2},
		{Type: feed.EvExecuteOrder, OrderID: 2, Qty: 2},
		{Type: feed.EvDeleteOrder, OrderID: 1},
	})

	require.NoError(t, d.Run(context.Background(), dec))
	assert.Equal(t, uint64(6), d.Processed())
	assert.Equal(t, uint64(0), d.Rejected())

	// Symbol 2 lives on shard 0, symbol 3 on shard 1.
	_, ok := d.Shard(0).Manager().Symbol(2)
	assert.True(t, ok)
	_, ok = d.Shard(1).Manager().Symbol(3)
	assert.True(t, ok)
	_, ok = d.Shard(0).Manager().Symbol(3)
	assert.False(t, ok)

	assert.Equal(t, int64(2), collectors[1].ExecutedQty)
	assert.Equal(t, int64(0), collectors[0].ExecutedQty)
}

func TestDispatcherRoutesReplaceToOwningShard(t *testing.T) {
	d, _ := newShardedDispatcher(3)

	dec := encodeTape(t, []feed.Event{
		{Type: feed.EvAddSymbol, Symbol: 5, Ticker: "SYM"},
		{Type: feed.EvAddOrder, OrderID: 10, Symbol: 5, Side: market.Ask, Price: 50, Qty: 5},
		{Type: feed.EvReplaceOrder, OrderID: 10, NewOrderID: 11, Price: 51, Qty: 5},
		{Type: feed.EvReduceOrder, OrderID: 11, Qty: 2},
		{Type: feed.EvDeleteOrder, OrderID: 11},
	})

	require.NoError(t, d.Run(context.Background(), dec))
	assert.Equal(t, uint64(0), d.Rejected())

	book, ok := d.Shard(5%3).Manager().Book(5)
	require.True(t, ok)
	assert.True(t, book.Empty())
}

func TestDispatcherSurfacesShardFailure(t *testing.T) {
	d, _ := newShardedDispatcher(2)

	dec := encodeTape(t, []feed.Event{
		{Type: feed.EvAddSymbol, Symbol: 2, Ticker: "SYM"},
		{Type: feed.EvAddOrder, OrderID: 1, Symbol: 2, Side: market.Bid, Price: 100, Qty: 1},
		{Type: feed.EvAddOrder, OrderID: 2, Symbol: 2, Side: market.Ask, Price: 90, Qty: 1}, // crossed
	})

	err := d.Run(context.Background(), dec)
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrInvariantViolation)
}

func TestDispatcherStopsApplyingAfterFatal(t *testing.T) {
	d, _ := newShardedDispatcher(1)

	dec := encodeTape(t, []feed.Event{
		{Type: feed.EvAddSymbol, Symbol: 1, Ticker: "SYM"},
		{Type: feed.EvAddOrder, OrderID: 1, Symbol: 1, Side: market.Bid, Price: 100, Qty: 1},
		{Type: feed.EvAddOrder, OrderID: 2, Symbol: 1, Side: market.Ask, Price: 95, Qty: 1}, // crossed
		{Type: feed.EvAddOrder, OrderID: 3, Symbol: 1, Side: market.Bid, Price: 90, Qty: 3},
	})

	err := d.Run(context.Background(), dec)
	require.ErrorIs(t, err, market.ErrInvariantViolation)

	// Nothing buffered behind the failure may touch the manager.
	_, ok := d.Shard(0).Manager().Order(3)
	assert.False(t, ok)
}

func TestDispatcherSingleShardMatchesFeedService(t *testing.T) {
	d, _ := newShardedDispatcher(1)

	dec := encodeTape(t, []feed.Event{
		{Type: feed.EvAddSymbol, Symbol: 1, Ticker: "AAPL"},
		{Type: feed.EvAddOrder, OrderID: 1, Symbol: 1, Side: market.Bid, Price: 100, Qty: 10},
		{Type: feed.EvExecuteOrder, OrderID: 1, Qty: 4},
	})
	require.NoError(t, d.Run(context.Background(), dec))

	o, ok := d.Shard(0).Manager().Order(1)
	require.True(t, ok)
	assert.Equal(t, int64(6), o.Qty)
}
