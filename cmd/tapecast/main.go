// tapecast publishes a tape file onto a Kafka topic frame by frame,
// so a feedhandler running with kafka input can consume it.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"heimdall/config"
	"heimdall/feed"
	"heimdall/infra/kafka"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "tapecast",
		Usage: "publish a market-by-order tape to a Kafka topic",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to YAML config"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "tape file, '-' for stdin"},
			&cli.StringSliceFlag{Name: "kafka-brokers", Usage: "broker list"},
			&cli.StringFlag{Name: "topic", Usage: "destination topic (defaults to the configured source topic)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatalf("tapecast: %v", err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("kafka-brokers") {
		cfg.Kafka.Brokers = c.StringSlice("kafka-brokers")
	}
	topic := cfg.Kafka.SourceTopic
	if c.IsSet("topic") {
		topic = c.String("topic")
	}
	if len(cfg.Kafka.Brokers) == 0 || topic == "" {
		return fmt.Errorf("tapecast needs brokers and a topic")
	}

	var input io.Reader
	if name := c.String("input"); name == "-" {
		input = bufio.NewReaderSize(os.Stdin, 1<<20)
	} else {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		input = bufio.NewReaderSize(f, 1<<20)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, topic)
	defer producer.Close()

	// The decoder validates framing and sequencing before anything
	// reaches the topic, so consumers only ever see a clean tape.
	dec := feed.NewDecoder(input)
	var sent uint64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("seq %d: %w", dec.LastSeq(), err)
		}

		frame := append([]byte(nil), dec.Frame()...)
		if err := producer.SendFrame(ctx, ev.Seq, frame); err != nil {
			return fmt.Errorf("publish seq %d: %w", ev.Seq, err)
		}
		sent++
	}

	logrus.WithFields(logrus.Fields{
		"frames": sent,
		"topic":  topic,
	}).Info("tape published")
	return nil
}
