package main

import (
	"log/slog"
	"time"

	"github.com/glowlive/ledger/internal/config"
)

type reconcilerConfig struct {
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Postgres config.PostgresConfig

	// CronSpec is a robfig/cron expression; the default fires every minute
	// so past-due periods are picked up promptly.
	CronSpec          string `env:"BILLING_CRON" envDefault:"@every 1m"`
	MaxChargeAttempts int    `env:"BILLING_MAX_CHARGE_ATTEMPTS" envDefault:"3"`
	BatchSize         int    `env:"BILLING_BATCH_SIZE" envDefault:"100"`
}
