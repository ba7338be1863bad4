// Package main runs the standalone two-factor authentication service.
//
// With PERSISTENCE_TYPE=inmem the service runs entirely in memory with a
// seeded demo account and a mock notifier that logs instead of sending
// email. All data is lost when the server stops; use postgres for anything
// beyond development.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	dbutils "github.com/tendant/db-utils/db"
	"golang.org/x/crypto/bcrypt"

	"github.com/relieflink/authcore/pkg/backupcode"
	"github.com/relieflink/authcore/pkg/config"
	"github.com/relieflink/authcore/pkg/notification"
	"github.com/relieflink/authcore/pkg/otp"
	"github.com/relieflink/authcore/pkg/password"
	"github.com/relieflink/authcore/pkg/ratelimit"
	"github.com/relieflink/authcore/pkg/twofactor"
	twofactorapi "github.com/relieflink/authcore/pkg/twofactor/api"
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

type ServerConfig struct {
	Host string `env:"HOST" env-default:"localhost"`
	Port uint16 `env:"PORT" env-default:"4000"`
}

type JwtConfig struct {
	Secret string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
}

type Config struct {
	ServerConfig    ServerConfig
	DbConfig        DbConfig
	JwtConfig       JwtConfig
	PersistenceType string `env:"PERSISTENCE_TYPE" env-default:"postgres"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// .env is optional; real deployments use the environment directly
	godotenv.Load()

	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	emailConfig := config.NewEmailConfigFromEnv()
	rateLimitConfig := config.NewRateLimitConfigFromEnv()
	twoFactorConfig := config.NewTwoFactorConfigFromEnv()

	service, users, err := buildService(cfg, emailConfig, rateLimitConfig, twoFactorConfig)
	if err != nil {
		slog.Error("Failed to build two-factor service", "err", err)
		os.Exit(1)
	}

	if cfg.PersistenceType == "inmem" || cfg.PersistenceType == "memory" {
		seedDemoUser(users)
	}

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JwtConfig.Secret), nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "OK")
	})

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		twofactorapi.NewHandle(service).RegisterRoutes(r)
	})

	addr := fmt.Sprintf("%s:%d", cfg.ServerConfig.Host, cfg.ServerConfig.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Two-factor service listening", "addr", addr, "persistence", cfg.PersistenceType)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "err", err)
	}
	slog.Info("Server stopped")
}

// buildService wires the repositories, limiter and notification manager for
// the configured persistence type.
func buildService(
	cfg Config,
	emailConfig config.EmailConfig,
	rateLimitConfig config.RateLimitConfig,
	twoFactorConfig config.TwoFactorConfig,
) (twofactor.TwoFactorService, twofactor.UserRepository, error) {
	var (
		users       twofactor.UserRepository
		repoConfig  otp.RepositoryConfig
		attemptCfg  ratelimit.RepositoryConfig
		backupCfg   backupcode.RepositoryConfig
		inMemUsers  *twofactor.InMemUserRepository
		notifierOpt notification.NotificationManagerOption
	)

	switch cfg.PersistenceType {
	case "postgres", "postgresql":
		pool, err := dbutils.NewDbPool(context.Background(), cfg.DbConfig.toDbConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create db pool: %w", err)
		}
		users = twofactor.NewPostgresUserRepository(pool)
		repoConfig = otp.RepositoryConfig{Pool: pool}
		attemptCfg = ratelimit.RepositoryConfig{Pool: pool}
		backupCfg = backupcode.RepositoryConfig{Pool: pool}
		notifierOpt = notification.WithSMTP(emailConfig.ToSMTPConfig())
	case "inmem", "memory":
		inMemUsers = twofactor.NewInMemUserRepository()
		users = inMemUsers
		notifierOpt = notification.WithNotifier(notification.EmailSystem, &notification.MockNotifier{})
	default:
		return nil, nil, fmt.Errorf("unsupported persistence type: %s", cfg.PersistenceType)
	}

	codeRepo, err := otp.NewCodeRepository(cfg.PersistenceType, repoConfig)
	if err != nil {
		return nil, nil, err
	}
	attemptRepo, err := ratelimit.NewAttemptRepository(cfg.PersistenceType, attemptCfg)
	if err != nil {
		return nil, nil, err
	}
	backupRepo, err := backupcode.NewRepository(cfg.PersistenceType, backupCfg)
	if err != nil {
		return nil, nil, err
	}

	notificationManager, err := notification.NewNotificationManagerWithOptions(
		notifierOpt,
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build notification manager: %w", err)
	}

	hasher := password.NewDefaultHasher()

	otpService := otp.NewService(codeRepo, notificationManager,
		otp.WithExpiry(twoFactorConfig.OTPExpiry),
		otp.WithMaxAttempts(twoFactorConfig.OTPMaxAttempts),
		otp.WithCodeLength(twoFactorConfig.OTPLength),
	)
	backupService := backupcode.NewService(backupRepo, users, hasher,
		backupcode.WithBatchSize(twoFactorConfig.BackupCodeCount),
		backupcode.WithCodeLength(twoFactorConfig.BackupCodeLength),
	)
	limiter := ratelimit.NewLimiter(attemptRepo, ratelimit.WithConfig(rateLimitConfig))

	service := twofactor.NewService(users, otpService, backupService, limiter, hasher,
		twofactor.WithNotificationManager(notificationManager),
	)

	return service, users, nil
}

// seedDemoUser registers a known account for in-memory development runs
func seedDemoUser(users twofactor.UserRepository) {
	inMem, ok := users.(*twofactor.InMemUserRepository)
	if !ok {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash demo password", "err", err)
		return
	}

	userID := "00000000-0000-0000-0000-000000000001"
	inMem.AddUser(twofactor.User{
		ID:           mustParseUUID(userID),
		Email:        "demo@example.com",
		PasswordHash: string(hash),
	})

	slog.Info("Seeded demo account", "userId", userID, "email", "demo@example.com", "password", "password123")
}

func mustParseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}
