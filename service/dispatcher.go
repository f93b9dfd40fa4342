package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"heimdall/feed"
	"heimdall/journal"
)

// Dispatcher shards a market across n workers. Each worker exclusively
// owns the books of a disjoint symbol subset, so there is no locking
// between shards: symbol-scoped events route by symbol, order-scoped
// events route through an order-id table maintained on add and replace.
//
// The route table is append-mostly: an order that drains inside a
// worker (full execution, reduce to zero) leaves its entry behind until
// the run ends. A stale entry only costs the map slot; the owning shard
// rejects any later reference the same way a single manager would.
type Dispatcher struct {
	shards []*FeedService
	chans  []chan feed.Event
	route  map[uint64]int
	jr     *journal.Journal // optional
	log    logrus.FieldLogger

	wg       sync.WaitGroup
	failed   atomic.Bool
	failOnce sync.Once
	failErr  error
	cancel   context.CancelFunc
}

// NewDispatcher builds n shards. newService supplies the per-shard
// FeedService, so each shard gets its own Manager and handler chain.
func NewDispatcher(n int, newService func(shard int) *FeedService, jr *journal.Journal, log logrus.FieldLogger) *Dispatcher {
	if n < 1 {
		n = 1
	}
	d := &Dispatcher{
		shards: make([]*FeedService, n),
		chans:  make([]chan feed.Event, n),
		route:  make(map[uint64]int),
		jr:     jr,
		log:    log,
	}
	for i := 0; i < n; i++ {
		d.shards[i] = newService(i)
		d.chans[i] = make(chan feed.Event, 1024)
	}
	return d
}

func (d *Dispatcher) Shard(i int) *FeedService { return d.shards[i] }
func (d *Dispatcher) Shards() int              { return len(d.shards) }

func (d *Dispatcher) start(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	for i := range d.shards {
		d.wg.Add(1)
		go func(svc *FeedService, ch chan feed.Event) {
			defer d.wg.Done()
			for ev := range ch {
				// A fatal error on any shard stops all applies; the
				// channels still drain so the feeder never blocks.
				if d.failed.Load() {
					continue
				}
				if err := svc.Apply(ev); err != nil {
					d.fail(err)
					cancel()
				}
			}
		}(d.shards[i], d.chans[i])
	}
	return ctx
}

func (d *Dispatcher) fail(err error) {
	d.failed.Store(true)
	d.failOnce.Do(func() {
		d.failErr = err
		d.log.Errorf("shard failed: %v", err)
	})
}

// dispatch routes one event to its shard. Events whose order id was
// never routed fall back to shard 0, which rejects them as unknown.
func (d *Dispatcher) dispatch(ev feed.Event) {
	var shard int
	switch ev.Type {
	case feed.EvAddSymbol, feed.EvDeleteSymbol:
		shard = int(ev.Symbol) % len(d.shards)
	case feed.EvAddOrder:
		shard = int(ev.Symbol) % len(d.shards)
		d.route[ev.OrderID] = shard
	case feed.EvReplaceOrder:
		s, ok := d.route[ev.OrderID]
		if ok {
			delete(d.route, ev.OrderID)
			d.route[ev.NewOrderID] = s
		}
		shard = s
	case feed.EvDeleteOrder:
		shard = d.route[ev.OrderID]
		delete(d.route, ev.OrderID)
	default: // executes and reduces
		shard = d.route[ev.OrderID]
	}
	d.chans[shard] <- ev
}

// Run decodes the tape, journals every cleanly decoded frame, and fans
// events out to the shard workers. It blocks until the tape ends, a
// shard fails, or the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context, dec *feed.Decoder) error {
	ctx = d.start(ctx)
	defer d.cancel()

	var feedErr error
	for feedErr == nil {
		if err := ctx.Err(); err != nil {
			feedErr = err
			break
		}

		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			feedErr = err
			break
		}

		if d.jr != nil {
			if err := d.jr.Append(ev.Seq, dec.Frame()); err != nil {
				feedErr = fmt.Errorf("journal append: %w", err)
				break
			}
		}
		d.dispatch(ev)
	}

	for _, ch := range d.chans {
		close(ch)
	}
	d.wg.Wait()

	if d.jr != nil {
		if err := d.jr.Sync(); err != nil && feedErr == nil {
			feedErr = err
		}
	}
	if d.failErr != nil {
		return d.failErr
	}
	return feedErr
}

// Processed and Rejected sum across shards after Run returns.
func (d *Dispatcher) Processed() uint64 {
	var n uint64
	for _, s := range d.shards {
		n += s.Processed()
	}
	return n
}

func (d *Dispatcher) Rejected() uint64 {
	var n uint64
	for _, s := range d.shards {
		n += s.Rejected()
	}
	return n
}
