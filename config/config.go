// Package config loads the feed handler configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

/*
YAML config example:
input: "itch_tape.bin"
journal_dir: "./journal"
workers: 4
log_level: "info"
kafka:
  brokers: ["localhost:9092"]
  source_topic: "tape"
  source_group: "feedhandler"
  quote_topic: "quotes"
*/

type Kafka struct {
	Brokers     []string `yaml:"brokers"`
	SourceTopic string   `yaml:"source_topic"`
	SourceGroup string   `yaml:"source_group"`
	QuoteTopic  string   `yaml:"quote_topic"`
}

type Config struct {
	Input      string `yaml:"input"`
	JournalDir string `yaml:"journal_dir"`
	Workers    int    `yaml:"workers"`
	LogLevel   string `yaml:"log_level"`
	Kafka      Kafka  `yaml:"kafka"`
}

func defaults() Config {
	return Config{
		Workers:  1,
		LogLevel: "info",
		Kafka: Kafka{
			SourceGroup: "feedhandler",
		},
	}
}

// Load reads the YAML file at path (optional, "" skips the file) and
// applies HEIMDALL_* environment overrides on top.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HEIMDALL_INPUT"); v != "" {
		c.Input = v
	}
	if v := os.Getenv("HEIMDALL_JOURNAL_DIR"); v != "" {
		c.JournalDir = v
	}
	if v := os.Getenv("HEIMDALL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("HEIMDALL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("HEIMDALL_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("HEIMDALL_KAFKA_SOURCE_TOPIC"); v != "" {
		c.Kafka.SourceTopic = v
	}
	if v := os.Getenv("HEIMDALL_KAFKA_QUOTE_TOPIC"); v != "" {
		c.Kafka.QuoteTopic = v
	}
}
