// Package main is the retention job for the two-factor service. It removes
// attempt-ledger rows older than the retention period and passcodes past
// their expiry, then exits. Meant to run from cron or a scheduler.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/relieflink/authcore/pkg/config"
	"github.com/relieflink/authcore/pkg/otp"
	"github.com/relieflink/authcore/pkg/ratelimit"
)

type DbConfig struct {
	Host     string `env:"AUTHCORE_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"AUTHCORE_PG_PORT" env-default:"5432"`
	Database string `env:"AUTHCORE_PG_DATABASE" env-default:"authcore_db"`
	User     string `env:"AUTHCORE_PG_USER" env-default:"authcore"`
	Password string `env:"AUTHCORE_PG_PASSWORD" env-default:"pwd"`
}

func (d DbConfig) toDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

type Config struct {
	DbConfig DbConfig
	Timeout  time.Duration `env:"CLEANUP_TIMEOUT" env-default:"5m"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	godotenv.Load()

	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	pool, err := dbutils.NewDbPool(ctx, cfg.DbConfig.toDbConfig())
	if err != nil {
		slog.Error("Failed to create db pool", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rateLimitConfig := config.NewRateLimitConfigFromEnv()

	limiter := ratelimit.NewLimiter(
		ratelimit.NewPostgresAttemptRepository(pool),
		ratelimit.WithConfig(rateLimitConfig),
	)
	otpService := otp.NewService(otp.NewPostgresCodeRepository(pool), nil)

	attemptsDeleted, err := limiter.CleanupOldAttempts(ctx)
	if err != nil {
		slog.Error("Failed to cleanup old attempts", "err", err)
		os.Exit(1)
	}

	codesDeleted, err := otpService.CleanupExpired(ctx)
	if err != nil {
		slog.Error("Failed to cleanup expired passcodes", "err", err)
		os.Exit(1)
	}

	slog.Info("Cleanup complete", "attemptsDeleted", attemptsDeleted, "passcodesDeleted", codesDeleted)
}
