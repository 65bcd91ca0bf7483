package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string `env:"APP_ENV" envDefault:"development"`
	Port           string `env:"PORT" envDefault:"8080"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	JWTSecret   string `env:"JWT_SECRET" envDefault:"12345"`

	Timezone    string `env:"GAMIFICATION_TIMEZONE" envDefault:"Europe/Rome"`
	CatalogPath string `env:"GAMIFICATION_CATALOG"`

	RetryAttempts uint          `env:"GAMIFICATION_RETRY_ATTEMPTS" envDefault:"4"`
	RetryInitial  time.Duration `env:"GAMIFICATION_RETRY_INITIAL" envDefault:"25ms"`
	RetryMax      time.Duration `env:"GAMIFICATION_RETRY_MAX" envDefault:"500ms"`
	TxTimeout     time.Duration `env:"GAMIFICATION_TX_TIMEOUT" envDefault:"5s"`
	LockTimeout   time.Duration `env:"GAMIFICATION_LOCK_TIMEOUT" envDefault:"3s"`

	// ActiveWindow is how recently a user must have been awarded to receive
	// scheduled challenge assignments.
	ActiveWindow time.Duration `env:"GAMIFICATION_ACTIVE_WINDOW" envDefault:"168h"`

	CronDaily    string `env:"CRON_DAILY" envDefault:"0 0 * * *"`
	CronWeekly   string `env:"CRON_WEEKLY" envDefault:"5 0 * * 1"`
	CronMonthly  string `env:"CRON_MONTHLY" envDefault:"10 0 1 * *"`
	CronSeasonal string `env:"CRON_SEASONAL" envDefault:"15 0 1 1,4,7,10 *"`

	LeaderboardCacheTTL time.Duration `env:"LEADERBOARD_CACHE_TTL" envDefault:"30s"`

	// AwardRateLimit is awards per caller per AwardRateWindow; 0 disables it.
	AwardRateLimit  int64         `env:"AWARD_RATE_LIMIT" envDefault:"600"`
	AwardRateWindow time.Duration `env:"AWARD_RATE_WINDOW" envDefault:"1m"`

	location *time.Location
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid GAMIFICATION_TIMEZONE: %w", err)
	}
	cfg.location = loc

	if cfg.RetryAttempts == 0 {
		return nil, fmt.Errorf("GAMIFICATION_RETRY_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

// Location is the platform timezone every calendar day is measured in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
