package main

import (
	"log/slog"
	"time"

	"github.com/glowlive/ledger/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"API_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Postgres config.PostgresConfig
	Kafka    config.KafkaConfig

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`

	PayoutMinMinor int64 `env:"PAYOUT_MIN_MINOR" envDefault:"1000"`
	PayoutMaxMinor int64 `env:"PAYOUT_MAX_MINOR" envDefault:"100000000"`
}
