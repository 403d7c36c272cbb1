package utils

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds every setting the bot reads from the environment.
type Config struct {
	BotToken string `env:"BOT_TOKEN"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL"`
	StoreDriver string `env:"STORE_DRIVER"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"casino.db"`
	RedisURL    string `env:"REDIS_URL"`

	ChipPrice    decimal.Decimal `env:"CHIP_PRICE" envDefault:"1.00"`
	StartingCash int64           `env:"STARTING_CASH" envDefault:"100000"`
	PvPRake      decimal.Decimal `env:"PVP_RAKE" envDefault:"0.05"`

	RouletteWindow   time.Duration `env:"ROULETTE_WINDOW" envDefault:"30s"`
	RaceWindow       time.Duration `env:"RACE_WINDOW" envDefault:"45s"`
	CrashWindow      time.Duration `env:"CRASH_WINDOW" envDefault:"20s"`
	CrashTick        time.Duration `env:"CRASH_TICK" envDefault:"2s"`
	DuelTimeout      time.Duration `env:"DUEL_TIMEOUT" envDefault:"30s"`
	SoloIdleTimeout  time.Duration `env:"SOLO_IDLE_TIMEOUT" envDefault:"10m"`
	TableIdleTimeout time.Duration `env:"TABLE_IDLE_TIMEOUT" envDefault:"5m"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"90s"`

	AbandonMines     string `env:"ABANDON_POLICY_MINES" envDefault:"cashout"`
	AbandonTower     string `env:"ABANDON_POLICY_TOWER" envDefault:"cashout"`
	AbandonBlackjack string `env:"ABANDON_POLICY_BLACKJACK" envDefault:"refund"`
}

// LoadConfig reads an optional .env file and parses the environment into Config.
func LoadConfig() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = "sqlite"
		if cfg.DatabaseURL != "" {
			cfg.StoreDriver = "postgres"
		}
	}
	if cfg.ChipPrice.LessThanOrEqual(decimal.Zero) {
		return Config{}, fmt.Errorf("CHIP_PRICE must be positive, got %s", cfg.ChipPrice)
	}
	if cfg.PvPRake.IsNegative() || cfg.PvPRake.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Config{}, fmt.Errorf("PVP_RAKE must be in [0, 1), got %s", cfg.PvPRake)
	}
	return cfg, nil
}
