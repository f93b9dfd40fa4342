package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"heimdall/domain/market"
	"heimdall/feed"
	"heimdall/journal"
)

/*
FeedService is the write entry point for one shard of the market.

It owns the mapping from normalized feed events to Manager operations
and the error policy around them: business rejections are counted and
the stream continues; invariant violations and sequence gaps abort.
*/
type FeedService struct {
	mgr *market.Manager
	jr  *journal.Journal // optional
	log logrus.FieldLogger

	processed uint64
	rejected  uint64
}

// NewFeedService wires the service. The journal may be nil.
func NewFeedService(mgr *market.Manager, jr *journal.Journal, log logrus.FieldLogger) *FeedService {
	return &FeedService{
		mgr: mgr,
		jr:  jr,
		log: log,
	}
}

func (s *FeedService) Manager() *market.Manager { return s.mgr }
func (s *FeedService) Processed() uint64        { return s.processed }
func (s *FeedService) Rejected() uint64         { return s.rejected }

// Apply maps one event onto the manager. A nil return means the event
// was either applied or rejected-and-counted; a non-nil return is
// fatal for the stream.
func (s *FeedService) Apply(ev feed.Event) error {
	var err error
	switch ev.Type {
	case feed.EvAddSymbol:
		err = s.mgr.AddSymbol(ev.Symbol, ev.Ticker)
	case feed.EvDeleteSymbol:
		err = s.mgr.DeleteSymbol(ev.Symbol)
	case feed.EvAddOrder:
		err = s.mgr.AddOrder(ev.OrderID, ev.Symbol, ev.Side, ev.Price, ev.Qty)
	case feed.EvExecuteOrder:
		err = s.mgr.ExecuteOrder(ev.OrderID, ev.Qty)
	case feed.EvExecuteOrderAtPrice:
		err = s.mgr.ExecuteOrderAtPrice(ev.OrderID, ev.Qty, ev.Price)
	case feed.EvReduceOrder:
		err = s.mgr.ReduceOrder(ev.OrderID, ev.Qty)
	case feed.EvDeleteOrder:
		err = s.mgr.DeleteOrder(ev.OrderID)
	case feed.EvReplaceOrder:
		err = s.mgr.ReplaceOrder(ev.OrderID, ev.NewOrderID, ev.Price, ev.Qty)
	default:
		return fmt.Errorf("%w: %d at seq %d", feed.ErrUnknownMessage, ev.Type, ev.Seq)
	}

	s.processed++
	if err == nil {
		return nil
	}
	if market.IsFatal(err) {
		return fmt.Errorf("seq %d (%s): %w", ev.Seq, ev.Type, err)
	}

	s.rejected++
	s.log.WithFields(logrus.Fields{
		"seq":  ev.Seq,
		"type": ev.Type.String(),
	}).Debugf("event rejected: %v", err)
	return nil
}

// Run drains the decoder until a clean end of tape, a fatal feed error,
// or context cancellation. Every frame that decodes cleanly is
// journaled before it is applied, manager rejections included, so the
// journal mirrors the tape as received.
func (s *FeedService) Run(ctx context.Context, dec *feed.Decoder) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			if s.jr != nil {
				return s.jr.Sync()
			}
			return nil
		}
		if err != nil {
			return err
		}

		if s.jr != nil {
			if err := s.jr.Append(ev.Seq, dec.Frame()); err != nil {
				return fmt.Errorf("journal append: %w", err)
			}
		}
		if err := s.Apply(ev); err != nil {
			return err
		}
	}
}
