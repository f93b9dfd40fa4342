package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"heimdall/config"
	"heimdall/domain/market"
	"heimdall/feed"
	kafkasource "heimdall/infra/kafka"
	"heimdall/jobs/broadcaster"
	"heimdall/journal"
	"heimdall/service"
	"heimdall/stats"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "feedhandler",
		Usage: "replay a market-by-order tape into sharded order books",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to YAML config"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "tape file, '-' for stdin, 'kafka' for the configured topic"},
			&cli.StringFlag{Name: "journal", Usage: "directory for the frame journal (empty disables)"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "number of book shards"},
			&cli.StringFlag{Name: "log-level", Usage: "trace|debug|info|warn|error"},
			&cli.StringSliceFlag{Name: "kafka-brokers", Usage: "broker list for source/quote topics"},
			&cli.StringFlag{Name: "quote-topic", Usage: "publish top-of-book quotes to this topic (empty disables)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatalf("feedhandler: %v", err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("input") {
		cfg.Input = c.String("input")
	}
	if c.IsSet("journal") {
		cfg.JournalDir = c.String("journal")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("kafka-brokers") {
		cfg.Kafka.Brokers = c.StringSlice("kafka-brokers")
	}
	if c.IsSet("quote-topic") {
		cfg.Kafka.QuoteTopic = c.String("quote-topic")
	}

	log := logrus.New()
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(lvl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------- Input ----------------

	var input io.Reader
	switch cfg.Input {
	case "", "-":
		input = bufio.NewReaderSize(os.Stdin, 1<<20)
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.SourceTopic == "" {
			return fmt.Errorf("kafka input needs brokers and a source topic")
		}
		src := kafkasource.NewSource(ctx, cfg.Kafka.Brokers, cfg.Kafka.SourceTopic, cfg.Kafka.SourceGroup)
		defer src.Close()
		input = src
	default:
		f, err := os.Open(cfg.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		input = bufio.NewReaderSize(f, 1<<20)
	}

	// ---------------- Journal ----------------

	var jr *journal.Journal
	if cfg.JournalDir != "" {
		jr, err = journal.Open(cfg.JournalDir)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer jr.Close()
	}

	// ---------------- Broadcaster ----------------

	var bc *broadcaster.Broadcaster
	if cfg.Kafka.QuoteTopic != "" {
		bc, err = broadcaster.New(cfg.Kafka.Brokers, cfg.Kafka.QuoteTopic, log)
		if err != nil {
			return fmt.Errorf("quote broadcaster: %w", err)
		}
		bc.Start(ctx)
		defer bc.Close()
	}

	// ---------------- Shards ----------------

	collectors := make([]*stats.Collector, cfg.Workers)
	disp := service.NewDispatcher(cfg.Workers, func(shard int) *service.FeedService {
		collectors[shard] = stats.New()
		chain := service.Fanout{collectors[shard]}
		if bc != nil {
			chain = append(chain, bc)
		}
		return service.NewFeedService(market.NewManager(chain), nil, log)
	}, jr, log)

	log.WithFields(logrus.Fields{
		"input":   cfg.Input,
		"workers": cfg.Workers,
		"journal": cfg.JournalDir != "",
		"quotes":  bc != nil,
	}).Info("starting feed handler")

	// ---------------- Run ----------------

	start := time.Now()
	runErr := disp.Run(ctx, feed.NewDecoder(input))
	elapsed := time.Since(start)

	total := stats.New()
	for _, col := range collectors {
		total.Merge(col)
	}
	total.Report(log)

	processed := disp.Processed()
	perMsg := time.Duration(0)
	rate := 0.0
	if processed > 0 && elapsed > 0 {
		perMsg = elapsed / time.Duration(processed)
		rate = float64(processed) / elapsed.Seconds()
	}
	log.WithFields(logrus.Fields{
		"processed": processed,
		"rejected":  disp.Rejected(),
		"elapsed":   elapsed.Round(time.Millisecond).String(),
		"per_msg":   perMsg.String(),
		"msg_per_s": fmt.Sprintf("%.0f", rate),
	}).Info("tape processed")

	if bc != nil && bc.Dropped() > 0 {
		log.Warnf("dropped %d quotes on a full publish queue", bc.Dropped())
	}
	return runErr
}
