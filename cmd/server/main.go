package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"botcraft/internal/auth"
	"botcraft/internal/config"
	"botcraft/internal/handler"
	"botcraft/internal/plans"
	"botcraft/internal/rag/chunker"
	"botcraft/internal/rag/generator"
	"botcraft/internal/rag/loader"
	"botcraft/internal/rag/retriever"
	"botcraft/internal/repository/postgres"
	"botcraft/internal/service/account"
	"botcraft/internal/service/bots"
	"botcraft/internal/service/providers"
	"botcraft/internal/usage"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"demo_mode", cfg.DemoMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := auth.NewSessionVerifier(ctx, cfg.JWKSURL, cfg.JWTSecret, logger)
	if err != nil {
		log.Fatalf("Failed to create session verifier: %v", err)
	}
	defer verifier.Close()

	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL is required")
	}
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()
	logger.Info("database connected", "max_conns", 25, "min_conns", 5)

	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	txManager := postgres.NewTransactionManager(pool, logger)
	userRepo := postgres.NewUserRepository(repoConfig)
	botRepo := postgres.NewBotRepository(repoConfig)
	paymentRepo := postgres.NewPaymentRepository(repoConfig)
	usageRepo := postgres.NewUsageRepository(repoConfig, txManager)

	planRegistry, err := plans.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load plans: %v", err)
	}

	// RAG backends
	factory := providers.NewFactory(cfg, logger)
	emb, err := factory.Embedder(ctx)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	index, err := factory.VectorIndex(ctx, pool, tables.Chunks, emb.Dimensions())
	if err != nil {
		log.Fatalf("Failed to create vector index: %v", err)
	}
	defer index.Close()

	llm, err := factory.LLM(ctx)
	if err != nil {
		log.Fatalf("Failed to create LLM: %v", err)
	}
	renderer, err := factory.Renderer()
	if err != nil {
		log.Fatalf("Failed to create URL renderer: %v", err)
	}
	splitter, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Invalid chunking config: %v", err)
	}

	docLoader := loader.New(loader.NewPDFExtractor(cfg.UnidocLicenseKey), renderer, cfg.FetchTimeout, logger)
	ret := retriever.New(emb, index, cfg.RetrievalTopK, float32(cfg.MinSimilarity), logger)
	gen := generator.New(llm, cfg.LLMTimeout, logger)
	meter := usage.NewMeter(usageRepo, cfg.QuotaLeaseTTL, logger)

	logger.Info("rag backends ready",
		"embedder", emb.Name(),
		"dimensions", emb.Dimensions(),
		"vector_store", index.Name(),
		"llm", llm.Name(),
	)

	// Services
	botService := bots.NewBotService(botRepo, userRepo, txManager, planRegistry, docLoader, splitter, emb, index, logger)
	queryService := bots.NewQueryService(botRepo, meter, ret, gen, cfg.RetrievalTopK, logger)
	accountService := account.NewAccountService(userRepo, botRepo, paymentRepo, txManager, planRegistry, cfg.PaymentWebhookSecret, logger)

	router := handler.NewRouter(handler.Routes{
		Bots:             handler.NewBotHandler(botService, queryService, logger),
		Queries:          handler.NewQueryHandler(queryService, logger),
		Widget:           handler.NewWidgetHandler(botService, cfg.PublicBaseURL, logger),
		Accounts:         handler.NewAccountHandler(accountService, logger),
		Health:           handler.NewHealthHandler(pool, logger),
		Verifier:         verifier,
		DashboardOrigins: handler.SplitOrigins(cfg.CORSOrigins),
		Logger:           logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// ingest of a large PDF or a slow page can take a while
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
