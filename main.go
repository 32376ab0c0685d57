package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/analysis"
	"github.com/dealshield-inc/dealshield-engine/pkg/auth"
	"github.com/dealshield-inc/dealshield-engine/pkg/config"
	"github.com/dealshield-inc/dealshield-engine/pkg/database"
	"github.com/dealshield-inc/dealshield-engine/pkg/handlers"
	"github.com/dealshield-inc/dealshield-engine/pkg/jobs"
	"github.com/dealshield-inc/dealshield-engine/pkg/llm"
	"github.com/dealshield-inc/dealshield-engine/pkg/mailer"
	"github.com/dealshield-inc/dealshield-engine/pkg/middleware"
	"github.com/dealshield-inc/dealshield-engine/pkg/render"
	"github.com/dealshield-inc/dealshield-engine/pkg/repositories"
	"github.com/dealshield-inc/dealshield-engine/pkg/services"
	"github.com/dealshield-inc/dealshield-engine/pkg/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Host),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Migrations run over database/sql; the application pool is pgx native.
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	sqlDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	store, err := storage.NewMinioStore(ctx, &storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to object storage", zap.Error(err))
	}
	urlExpiry := time.Duration(cfg.Storage.URLExpiryMins) * time.Minute

	llmClient, err := llm.NewClient(cfg.AI.Provider, &llm.Config{
		Endpoint: cfg.AI.Endpoint,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	validator, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSURL:            cfg.Auth.JWKSURL,
	})
	if err != nil {
		logger.Fatal("Failed to create token validator", zap.Error(err))
	}
	authMiddleware := auth.NewMiddleware(validator, logger)

	var mail mailer.Mailer
	if cfg.Mail.Host != "" {
		mail = mailer.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From, logger)
	} else {
		mail = mailer.NewLogMailer(logger)
	}

	// Repositories
	jobRepo := repositories.NewJobRepository(db)
	reportRepo := repositories.NewReportRepository(db)
	dealRepo := repositories.NewDealRepository(db)
	safeClauseRepo := repositories.NewSafeClauseRepository(db)
	negotiationRepo := repositories.NewNegotiationRepository(db)
	legalReviewRepo := repositories.NewLegalReviewRepository(db)

	// Analysis stage and job executors
	analyzer := analysis.NewAnalyzer(llmClient, logger)
	downloader := analysis.NewDownloader()
	registry := jobs.NewRegistry()
	services.RegisterExecutors(registry, llmClient, analyzer, downloader, safeClauseRepo, logger)
	jobHandler := jobs.NewHandler(cfg.Jobs.SharedSecret, registry, jobRepo, logger)
	jobClient := jobs.NewClient(cfg.Jobs.HandlerURL, cfg.Jobs.SharedSecret, jobRepo, logger)

	// Services
	reportService := services.NewReportService(reportRepo, store, urlExpiry, logger)
	protectionService := services.NewProtectionService(jobClient, reportService, render.NewPDFRenderer(), logger)
	safeClauseService := services.NewSafeClauseService(jobClient, reportService, reportRepo, logger)
	contractService := services.NewContractService(jobClient, reportService, dealRepo, render.NewDocxRenderer(), store, urlExpiry, logger)
	negotiationService := services.NewNegotiationService(jobClient, reportService, reportRepo, negotiationRepo, legalReviewRepo, mail, cfg.Mail.ReviewInbox, logger)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	devMode := cfg.Env == "local" || cfg.Env == "development"
	protectionHandler := handlers.NewProtectionHandler(protectionService, reportService, safeClauseService, contractService, negotiationService, devMode, logger)
	protectionHandler.RegisterRoutes(mux, authMiddleware)

	contractsHandler := handlers.NewContractsHandler(contractService, logger)
	contractsHandler.RegisterRoutes(mux)

	mux.HandleFunc("POST /internal/ai-jobs", jobHandler.Handle)

	server := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: middleware.RequestLogger(logger)(mux),
	}

	go func() {
		logger.Info("Starting dealshield-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
