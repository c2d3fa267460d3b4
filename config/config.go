// Package config loads crossbook settings from flags, CROSSBOOK_*
// environment variables and an optional config file, in that precedence.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CROSSBOOK"

type Config struct {
	LogLevel       string `mapstructure:"log-level"`
	LogDevelopment bool   `mapstructure:"log-development"`

	// JournalDir enables the command journal when set.
	JournalDir             string        `mapstructure:"journal-dir"`
	JournalSegmentSize     int64         `mapstructure:"journal-segment-size"`
	JournalSegmentDuration time.Duration `mapstructure:"journal-segment-duration"`
	JournalSync            bool          `mapstructure:"journal-sync"`
	// JournalRetain bounds the journal to about this many newest commands.
	JournalRetain          uint64        `mapstructure:"journal-retain"`

	// ReplayDir replays a recorded journal to stdout and exits.
	ReplayDir string `mapstructure:"replay"`

	// OutboxDir puts emitted events in a pebble outbox drained by the
	// broadcaster. Without it, brokers alone publish directly.
	OutboxDir         string        `mapstructure:"outbox-dir"`
	KafkaBrokers      []string      `mapstructure:"kafka-brokers"`
	KafkaTopic        string        `mapstructure:"kafka-topic"`
	BroadcastInterval time.Duration `mapstructure:"broadcast-interval"`
	BroadcastRetries  int           `mapstructure:"broadcast-retries"`

	MetricsAddr string `mapstructure:"metrics-addr"`
}

// Load parses args (without the program name) into a validated Config.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("crossbook", pflag.ContinueOnError)
	configFile := fs.String("config", "", "optional config file (yaml, json or toml)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Bool("log-development", false, "human readable console logs")
	fs.String("journal-dir", "", "record every command to this directory")
	fs.Int64("journal-segment-size", 4<<20, "journal segment rotation size in bytes")
	fs.Duration("journal-segment-duration", 0, "also rotate journal segments after this long (0 disables)")
	fs.Bool("journal-sync", false, "fsync the journal after every command")
	fs.Uint64("journal-retain", 0, "keep at least this many newest commands, dropping older segments (0 keeps all)")
	fs.String("replay", "", "replay a journal directory and exit")
	fs.String("outbox-dir", "", "store emitted events in a pebble outbox")
	fs.StringSlice("kafka-brokers", nil, "kafka brokers for event publishing")
	fs.String("kafka-topic", "crossbook.events", "kafka topic for events")
	fs.Duration("broadcast-interval", time.Second, "outbox drain interval")
	fs.Int("broadcast-retries", 5, "publish attempts before an event is left failed")
	fs.String("metrics-addr", "", "serve prometheus metrics on this address")

	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "config: parse flags")
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, errors.Wrap(err, "config: bind flags")
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: read %s", *configFile)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JournalDir != "" && c.JournalSegmentSize <= 0 {
		return errors.Newf("config: journal-segment-size must be positive, got %d", c.JournalSegmentSize)
	}
	if c.JournalSegmentDuration < 0 {
		return errors.Newf("config: journal-segment-duration must not be negative, got %s", c.JournalSegmentDuration)
	}
	if c.ReplayDir != "" && c.ReplayDir == c.JournalDir {
		return errors.New("config: cannot replay into the journal being replayed")
	}
	if c.OutboxDir != "" && len(c.KafkaBrokers) == 0 {
		return errors.New("config: outbox-dir needs kafka-brokers to drain to")
	}
	if len(c.KafkaBrokers) > 0 {
		if c.KafkaTopic == "" {
			return errors.New("config: kafka-topic is required with kafka-brokers")
		}
		if c.BroadcastInterval <= 0 {
			return errors.Newf("config: broadcast-interval must be positive, got %s", c.BroadcastInterval)
		}
		if c.BroadcastRetries < 1 {
			return errors.Newf("config: broadcast-retries must be at least 1, got %d", c.BroadcastRetries)
		}
	}
	return nil
}
