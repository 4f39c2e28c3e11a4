package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" default:"5"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" default:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" default:"30m"`
}

type AmqpConfig struct {
	URL        string `env:"AMQP_URL"`
	AdminQueue string `env:"AMQP_ADMIN_QUEUE" default:"ledger.admin_alerts"`
	UserQueue  string `env:"AMQP_USER_QUEUE" default:"ledger.user_events"`
}

// LedgerConfig carries the payout policy knobs. Amounts are minor units
// (poisha); WithdrawFeePct is a whole percentage.
type LedgerConfig struct {
	MinWithdrawMinor int64 `env:"MIN_WITHDRAW_MINOR" default:"5000"`
	WithdrawFeePct   int64 `env:"WITHDRAW_FEE_PCT" default:"5"`
}
