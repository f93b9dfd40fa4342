// Package broadcaster publishes top-of-book updates to Kafka. It sits
// entirely outside the book core: it is just one more notification
// consumer.
package broadcaster

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"heimdall/domain/market"
)

// Quote is the published top-of-book snapshot. Zero prices mean the
// side is empty.
type Quote struct {
	V        int    `json:"v"`
	Symbol   uint32 `json:"symbol"`
	Ticker   string `json:"ticker"`
	BidPrice int64  `json:"bid_price"`
	BidQty   int64  `json:"bid_qty"`
	AskPrice int64  `json:"ask_price"`
	AskQty   int64  `json:"ask_qty"`
}

type Broadcaster struct {
	market.NopHandler

	producer sarama.SyncProducer
	topic    string
	log      logrus.FieldLogger
	ch       chan Quote
	dropped  atomic.Uint64 // shards enqueue concurrently
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(brokers []string, topic string, log logrus.FieldLogger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		producer: producer,
		topic:    topic,
		log:      log,
		ch:       make(chan Quote, 4096),
	}, nil
}

// OnUpdateOrderBook queues a quote whenever the top of book moved.
// The queue never blocks the feed path: on overflow the quote is
// dropped and counted.
func (b *Broadcaster) OnUpdateOrderBook(book *market.OrderBook, top bool) {
	if !top {
		return
	}
	sym := book.Symbol()
	q := Quote{V: 1, Symbol: sym.ID, Ticker: sym.Ticker}
	if best, ok := book.BestBid(); ok {
		q.BidPrice = best.Price
		q.BidQty = best.TotalQty
	}
	if best, ok := book.BestAsk(); ok {
		q.AskPrice = best.Price
		q.AskQty = best.TotalQty
	}

	select {
	case b.ch <- q:
	default:
		b.dropped.Add(1)
	}
}

func (b *Broadcaster) Dropped() uint64 { return b.dropped.Load() }

// ------------------------------------------------
// PUBLISH LOOP
// ------------------------------------------------

func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Infof("broadcaster started: topic=%s", b.topic)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case q := <-b.ch:
				b.publish(q)
			}
		}
	}()
}

func (b *Broadcaster) publish(q Quote) {
	payload, err := json.Marshal(q)
	if err != nil {
		b.log.Errorf("quote marshal failed: %v", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(q.Ticker),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := b.producer.SendMessage(msg); err != nil {
		b.log.Warnf("quote publish failed: %v", err)
	}
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}

var _ market.Handler = (*Broadcaster)(nil)
