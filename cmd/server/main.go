package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kevin07696/reconciliation-service/internal/adapters/postgres"
	"github.com/kevin07696/reconciliation-service/internal/adapters/reservation"
	"github.com/kevin07696/reconciliation-service/internal/adapters/secrets"
	"github.com/kevin07696/reconciliation-service/internal/config"
	"github.com/kevin07696/reconciliation-service/internal/domain/ports"
	cronHandler "github.com/kevin07696/reconciliation-service/internal/handlers/cron"
	webhookHandler "github.com/kevin07696/reconciliation-service/internal/handlers/webhook"
	settlementService "github.com/kevin07696/reconciliation-service/internal/services/settlement"
	webhookService "github.com/kevin07696/reconciliation-service/internal/services/webhook"
	"github.com/kevin07696/reconciliation-service/pkg/observability"
)

func main() {
	// .env is optional, real deployments inject environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting reconciliation service",
		zap.String("version", "0.1.0"),
		zap.String("commission_rate", cfg.Settlement.CommissionRate.String()),
	)

	ctx := context.Background()

	// Resolve the database password through the configured secrets backend
	if err := resolveSecrets(ctx, cfg, logger); err != nil {
		logger.Fatal("Failed to resolve secrets", zap.Error(err))
	}

	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
	)

	deps := initDependencies(dbPool, cfg, logger)

	// HTTP server for the gateway webhook and cron endpoints
	httpMux := http.NewServeMux()
	httpMux.HandleFunc("/webhooks/payment-gateway", deps.gatewayHandler.HandleWebhook)
	httpMux.HandleFunc("/cron/run-settlement", deps.settlementHandler.RunSettlement)
	httpMux.HandleFunc("/cron/health", deps.settlementHandler.HealthCheck)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      httpMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // settlement runs hold the connection open
		IdleTimeout:  60 * time.Second,
	}

	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), logger)
	logger.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))

	go func() {
		logger.Info("HTTP server listening",
			zap.String("address", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		logger.Error("Metrics server shutdown error", zap.Error(err))
	}

	logger.Info("Servers stopped")
}

// Dependencies holds all initialized services and handlers
type Dependencies struct {
	gatewayHandler    *webhookHandler.GatewayHandler
	settlementHandler *cronHandler.SettlementHandler
}

// initLogger initializes the logger from config
func initLogger(cfg config.LoggerConfig) *zap.Logger {
	if cfg.Development {
		logger, _ := zap.NewDevelopment()
		return logger
	}

	zapCfg := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, _ := zapCfg.Build()
	return logger
}

// resolveSecrets fills in the database password from the configured backend
func resolveSecrets(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	var manager ports.SecretManagerAdapter
	var err error

	secretPath := "reconciliation-service/db-password"

	switch cfg.SecretsBackend {
	case "env":
		manager = secrets.NewEnvSecretManager(logger)
		secretPath = "DB_PASSWORD"

	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(os.Getenv("AWS_REGION"))
		awsCfg.Profile = os.Getenv("AWS_PROFILE")
		awsCfg.Endpoint = os.Getenv("AWS_SECRETS_ENDPOINT")
		manager, err = secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)
		if err != nil {
			return err
		}

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(os.Getenv("VAULT_ADDR"))
		vaultCfg.Token = os.Getenv("VAULT_TOKEN")
		if roleID := os.Getenv("VAULT_ROLE_ID"); roleID != "" {
			vaultCfg.AuthMethod = "approle"
			vaultCfg.RoleID = roleID
			vaultCfg.SecretID = os.Getenv("VAULT_SECRET_ID")
		}
		manager, err = secrets.NewVaultAdapter(ctx, vaultCfg, logger)
		if err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown secrets backend: %s", cfg.SecretsBackend)
	}

	secret, err := manager.GetSecret(ctx, secretPath)
	if err != nil {
		return fmt.Errorf("failed to fetch database password: %w", err)
	}
	cfg.Database.Password = secret.Value

	return nil
}

// initDatabase initializes the PostgreSQL connection pool
func initDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// initDependencies initializes all services and handlers with dependency injection
func initDependencies(dbPool *pgxpool.Pool, cfg *config.Config, logger *zap.Logger) *Dependencies {
	dbExecutor := postgres.NewDBExecutor(dbPool)

	paymentRepo := postgres.NewPaymentRepository(dbExecutor)
	webhookRepo := postgres.NewWebhookRepository(dbExecutor)
	settlementRepo := postgres.NewSettlementRepository(dbExecutor)
	runRepo := postgres.NewSettlementRunRepository(dbExecutor)
	auditSink := postgres.NewBestEffortAuditSink(runRepo, logger)

	reservations := reservation.NewPgNotifier(dbExecutor, logger)

	reconciler := webhookService.NewReconciler(
		dbExecutor,
		paymentRepo,
		webhookRepo,
		reservations,
		cfg.Settlement.IdempotencyWindow,
		logger,
	)

	settlements := settlementService.NewService(
		dbExecutor,
		paymentRepo,
		settlementRepo,
		runRepo,
		auditSink,
		cfg.Settlement.CommissionRate,
		logger,
	)

	return &Dependencies{
		gatewayHandler:    webhookHandler.NewGatewayHandler(reconciler, logger),
		settlementHandler: cronHandler.NewSettlementHandler(settlements, logger, cfg.CronSecret),
	}
}
