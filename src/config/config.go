// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat              string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile                string `env:"LOG_FILE"`
	RequestLoggingDisabled bool   `env:"REQUEST_LOGGING_DISABLED"`

	RateLimitDisabled bool          `env:"RATE_LIMIT_DISABLED"`
	RateLimitMax      int           `env:"RATE_LIMIT_MAX" envDefault:"100"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1s"`

	MaintenanceMode       bool  `env:"MAINTENANCE_MODE"`
	MaxConcurrentRequests int64 `env:"MAX_CONCURRENT_REQUESTS"`

	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MetricsMaxLatencies int           `env:"METRICS_MAX_LATENCIES" envDefault:"10000"`

	// EscrowAccount holds all market collateral on the ledger; JudgeAccount
	// is the only caller allowed to finalize disputed markets.
	EscrowAccount string `env:"ESCROW_ACCOUNT" envDefault:"market-escrow"`
	JudgeAccount  string `env:"JUDGE_ACCOUNT" envDefault:"judge"`

	// FaucetAmount is minted per faucet request when the request doesn't
	// name an amount. Defaults to 1000 collateral units.
	FaucetAmount uint64 `env:"FAUCET_AMOUNT" envDefault:"10000000000000000000"`
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
