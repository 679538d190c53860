package main

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/dayplanner/libs/config"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/availability"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
)

const (
	backendBadger   = "badger"
	backendPostgres = "postgres"
)

type Config struct {
	ServiceName        string        `env:"SERVICE_NAME,default=calendar-service"`
	Port               string        `env:"PORT,default=8080"`
	GRPCPort           string        `env:"GRPC_PORT"`
	LogLevel           string        `env:"LOG_LEVEL,default=info"`
	StoreBackend       string        `env:"STORE_BACKEND,default=badger"`
	BadgerPath         string        `env:"BADGER_PATH,default=data/events.badger"`
	DatabaseURL        string        `env:"DATABASE_URL"`
	RedisAddr          string        `env:"REDIS_ADDR"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE,default=120"`
	BodyLimitBytes     int           `env:"BODY_LIMIT_BYTES,default=65536"`
	KafkaBrokers       string        `env:"KAFKA_BROKERS"`
	OutboxPollEvery    time.Duration `env:"OUTBOX_POLL_EVERY,default=2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE,default=50"`
	WorkdayStart       string        `env:"WORKDAY_START,default=09:00"`
	WorkdayEnd         string        `env:"WORKDAY_END,default=17:00"`
	SlotBuffer         time.Duration `env:"SLOT_BUFFER,default=1m"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg, ".env"); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if err := config.ValidatePort("PORT", c.Port); err != nil {
		return err
	}
	if c.GRPCPort != "" {
		if err := config.ValidatePort("GRPC_PORT", c.GRPCPort); err != nil {
			return err
		}
	}
	switch c.StoreBackend {
	case backendBadger:
	case backendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", backendPostgres)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q (got %q)", backendBadger, backendPostgres, c.StoreBackend)
	}
	if c.BodyLimitBytes <= 0 {
		return fmt.Errorf("BODY_LIMIT_BYTES must be positive")
	}
	_, err := c.policy()
	return err
}

func (c Config) policy() (availability.Policy, error) {
	start, err := model.ParseClock(c.WorkdayStart)
	if err != nil {
		return availability.Policy{}, fmt.Errorf("WORKDAY_START: %w", err)
	}
	end, err := model.ParseClock(c.WorkdayEnd)
	if err != nil {
		return availability.Policy{}, fmt.Errorf("WORKDAY_END: %w", err)
	}
	p := availability.Policy{WorkdayStart: start, WorkdayEnd: end, Buffer: c.SlotBuffer}
	return p, p.Validate()
}
