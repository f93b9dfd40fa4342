package market

// recorder captures the full notification stream for assertions.
type recorded struct {
	kind  string
	sym   Symbol
	level LevelView
	order OrderView
	top   bool
	price int64
	qty   int64
}

type recorder struct {
	events []recorded
}

func (r *recorder) OnAddSymbol(s Symbol)    { r.events = append(r.events, recorded{kind: "+symbol", sym: s}) }
func (r *recorder) OnDeleteSymbol(s Symbol) { r.events = append(r.events, recorded{kind: "-symbol", sym: s}) }
func (r *recorder) OnAddOrderBook(*OrderBook) {
	r.events = append(r.events, recorded{kind: "+book"})
}
func (r *recorder) OnDeleteOrderBook(*OrderBook) {
	r.events = append(r.events, recorded{kind: "-book"})
}
func (r *recorder) OnUpdateOrderBook(_ *OrderBook, top bool) {
	r.events = append(r.events, recorded{kind: "~book", top: top})
}
func (r *recorder) OnAddLevel(_ *OrderBook, lvl LevelView, top bool) {
	r.events = append(r.events, recorded{kind: "+level", level: lvl, top: top})
}
func (r *recorder) OnUpdateLevel(_ *OrderBook, lvl LevelView, top bool) {
	r.events = append(r.events, recorded{kind: "~level", level: lvl, top: top})
}
func (r *recorder) OnDeleteLevel(_ *OrderBook, lvl LevelView, top bool) {
	r.events = append(r.events, recorded{kind: "-level", level: lvl, top: top})
}
func (r *recorder) OnAddOrder(o OrderView) {
	r.events = append(r.events, recorded{kind: "+order", order: o})
}
func (r *recorder) OnUpdateOrder(o OrderView) {
	r.events = append(r.events, recorded{kind: "~order", order: o})
}
func (r *recorder) OnDeleteOrder(o OrderView) {
	r.events = append(r.events, recorded{kind: "-order", order: o})
}
func (r *recorder) OnExecuteOrder(o OrderView, price, qty int64) {
	r.events = append(r.events, recorded{kind: "!exec", order: o, price: price, qty: qty})
}

func (r *recorder) reset() { r.events = nil }

func (r *recorder) kinds() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.kind
	}
	return out
}

func (r *recorder) last(kind string) (recorded, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].kind == kind {
			return r.events[i], true
		}
	}
	return recorded{}, false
}

var _ Handler = (*recorder)(nil)
