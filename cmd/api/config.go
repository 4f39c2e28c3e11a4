package main

import (
	"log/slog"
	"time"

	"github.com/asikdev/shopledger/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" default:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" default:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" default:"10s"`
	AdminToken      string        `env:"ADMIN_TOKEN"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" default:"30s"`

	Postgres config.PostgresConfig
	Amqp     config.AmqpConfig
	Ledger   config.LedgerConfig
}
