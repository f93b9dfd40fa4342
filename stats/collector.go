// Package stats derives market statistics from the notification stream.
// It is a pure consumer: it never reaches back into the books it
// observes.
package stats

import (
	"github.com/sirupsen/logrus"

	"heimdall/domain/market"
)

// Collector tracks concurrent and peak counts per entity plus
// per-event-type counters. It embeds NopHandler so it only implements
// the callbacks it needs.
type Collector struct {
	market.NopHandler

	Updates uint64

	Symbols    int
	MaxSymbols int

	Books    int
	MaxBooks int

	MaxBookLevels int
	MaxLevelDepth int

	Orders    int
	MaxOrders int

	AddOrders     uint64
	UpdateOrders  uint64
	DeleteOrders  uint64
	ExecuteOrders uint64
	ExecutedQty   int64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) OnAddSymbol(market.Symbol) {
	c.Updates++
	c.Symbols++
	if c.Symbols > c.MaxSymbols {
		c.MaxSymbols = c.Symbols
	}
}

func (c *Collector) OnDeleteSymbol(market.Symbol) {
	c.Updates++
	c.Symbols--
}

func (c *Collector) OnAddOrderBook(*market.OrderBook) {
	c.Updates++
	c.Books++
	if c.Books > c.MaxBooks {
		c.MaxBooks = c.Books
	}
}

func (c *Collector) OnDeleteOrderBook(*market.OrderBook) {
	c.Updates++
	c.Books--
}

func (c *Collector) OnUpdateOrderBook(book *market.OrderBook, _ bool) {
	c.Updates++
	if depth := book.BidLevels(); depth > c.MaxBookLevels {
		c.MaxBookLevels = depth
	}
	if depth := book.AskLevels(); depth > c.MaxBookLevels {
		c.MaxBookLevels = depth
	}
}

func (c *Collector) OnAddLevel(book *market.OrderBook, _ market.LevelView, _ bool) {
	c.Updates++
	if depth := book.BidLevels(); depth > c.MaxBookLevels {
		c.MaxBookLevels = depth
	}
	if depth := book.AskLevels(); depth > c.MaxBookLevels {
		c.MaxBookLevels = depth
	}
}

func (c *Collector) OnUpdateLevel(_ *market.OrderBook, level market.LevelView, _ bool) {
	c.Updates++
	if level.Orders > c.MaxLevelDepth {
		c.MaxLevelDepth = level.Orders
	}
}

func (c *Collector) OnDeleteLevel(*market.OrderBook, market.LevelView, bool) {
	c.Updates++
}

func (c *Collector) OnAddOrder(market.OrderView) {
	c.Updates++
	c.AddOrders++
	c.Orders++
	if c.Orders > c.MaxOrders {
		c.MaxOrders = c.Orders
	}
}

func (c *Collector) OnUpdateOrder(market.OrderView) {
	c.Updates++
	c.UpdateOrders++
}

func (c *Collector) OnDeleteOrder(market.OrderView) {
	c.Updates++
	c.DeleteOrders++
	c.Orders--
}

func (c *Collector) OnExecuteOrder(_ market.OrderView, _ int64, qty int64) {
	c.Updates++
	c.ExecuteOrders++
	c.ExecutedQty += qty
}

// Merge folds another collector into this one, for summing per-shard
// collectors after a run. Peaks merge pessimistically (max of maxes).
func (c *Collector) Merge(o *Collector) {
	c.Updates += o.Updates
	c.Symbols += o.Symbols
	c.Books += o.Books
	c.Orders += o.Orders
	if o.MaxSymbols > c.MaxSymbols {
		c.MaxSymbols = o.MaxSymbols
	}
	if o.MaxBooks > c.MaxBooks {
		c.MaxBooks = o.MaxBooks
	}
	if o.MaxBookLevels > c.MaxBookLevels {
		c.MaxBookLevels = o.MaxBookLevels
	}
	if o.MaxLevelDepth > c.MaxLevelDepth {
		c.MaxLevelDepth = o.MaxLevelDepth
	}
	if o.MaxOrders > c.MaxOrders {
		c.MaxOrders = o.MaxOrders
	}
	c.AddOrders += o.AddOrders
	c.UpdateOrders += o.UpdateOrders
	c.DeleteOrders += o.DeleteOrders
	c.ExecuteOrders += o.ExecuteOrders
	c.ExecutedQty += o.ExecutedQty
}

// Report writes the end-of-run summary.
func (c *Collector) Report(log logrus.FieldLogger) {
	log.WithFields(logrus.Fields{
		"updates":     c.Updates,
		"max_symbols": c.MaxSymbols,
		"max_books":   c.MaxBooks,
		"max_levels":  c.MaxBookLevels,
		"max_depth":   c.MaxLevelDepth,
		"max_orders":  c.MaxOrders,
	}).Info("market statistics")

	log.WithFields(logrus.Fields{
		"add":          c.AddOrders,
		"update":       c.UpdateOrders,
		"delete":       c.DeleteOrders,
		"execute":      c.ExecuteOrders,
		"executed_qty": c.ExecutedQty,
	}).Info("order statistics")
}

var _ market.Handler = (*Collector)(nil)
