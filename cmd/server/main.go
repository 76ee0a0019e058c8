package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dao-ledger.backend/internal/config"
	domainRepos "dao-ledger.backend/internal/domain/repositories"
	"dao-ledger.backend/internal/infrastructure/datasources"
	"dao-ledger.backend/internal/infrastructure/jobs"
	"dao-ledger.backend/internal/infrastructure/repositories"
	"dao-ledger.backend/internal/interfaces/http/handlers"
	"dao-ledger.backend/internal/interfaces/http/middleware"
	"dao-ledger.backend/internal/usecases"
	"dao-ledger.backend/pkg/badger"
	"dao-ledger.backend/pkg/crypto"
	"dao-ledger.backend/pkg/jwt"
	"dao-ledger.backend/pkg/logger"
	"dao-ledger.backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = datasources.NewConnection
	openBadger = badger.Open
	runServer  = serveHTTP
	getStdDB   = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	ctx := context.Background()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	// Redis is optional; only the redis-backed stores need it
	if cfg.Redis.Enabled() {
		if err := initRedis(cfg.Redis.URL, cfg.Redis.Password); err != nil {
			logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer redis.Close()
		logger.Info(ctx, "Redis initialized")
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := repositories.MigrateChatStore(db); err != nil {
		return fmt.Errorf("failed to migrate chat store: %w", err)
	}
	logger.Info(ctx, "Chat store ready", zap.String("driver", cfg.Database.Driver))

	walletKV, closeKV, err := buildWalletKV(cfg, db)
	if err != nil {
		return err
	}
	defer closeKV()

	dedup, err := buildDedupGuard(cfg)
	if err != nil {
		return err
	}

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry)

	// Chat store and ledger core
	uow := repositories.NewUnitOfWork(db)
	chatRepo := repositories.NewChatRepository(db, uow, cfg.Ledger.InitialWindow)
	scanner := usecases.NewLedgerScanner(chatRepo, usecases.ScanConfig{
		MaxRounds:      cfg.Ledger.MaxPaginationRounds,
		PageSize:       cfg.Ledger.PageSize,
		BalanceTimeout: cfg.Ledger.BalanceTimeout,
	})
	wallets := usecases.NewWalletStore(walletKV, crypto.NewKeyring(), scanner, usecases.WalletDefaults{
		Unit:              cfg.Wallet.DefaultUnit,
		ContributionValue: cfg.Wallet.DefaultContributionValue,
	})
	if err := wallets.Load(ctx); err != nil {
		return fmt.Errorf("failed to load wallets: %w", err)
	}

	awarder := usecases.NewContributionAwarder(chatRepo, scanner, wallets, dedup, usecases.AwarderConfig{
		Threshold:                cfg.Verification.Threshold,
		AllowSelf:                cfg.Verification.AllowSelf,
		Cooldown:                 cfg.Verification.Cooldown,
		DefaultContributionValue: cfg.Verification.DefaultContributionValue,
		Unit:                     cfg.Wallet.DefaultUnit,
	})
	transferUsecase := usecases.NewTransferUsecase(chatRepo, scanner, wallets, cfg.Wallet.DefaultUnit)
	historyUsecase := usecases.NewHistoryUsecase(chatRepo, scanner, wallets)
	governanceUsecase := usecases.NewGovernanceUsecase(chatRepo, scanner, wallets, cfg.Verification.AllowSelf)
	snapshotUsecase := usecases.NewVotingSnapshotUsecase(chatRepo, scanner)

	walletHandler := handlers.NewWalletHandler(wallets)
	ledgerHandler := handlers.NewLedgerHandler(transferUsecase, historyUsecase, awarder, chatRepo)
	governanceHandler := handlers.NewGovernanceHandler(governanceUsecase, snapshotUsecase)

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var refreshJob *jobs.BalanceRefreshJob
	if cfg.Jobs.BalanceRefreshInterval > 0 {
		refreshJob = jobs.NewBalanceRefreshJob(wallets, cfg.Jobs.BalanceRefreshInterval)
		go refreshJob.Start(jobCtx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, routeDeps{
		walletHandler:     walletHandler,
		ledgerHandler:     ledgerHandler,
		governanceHandler: governanceHandler,
		authMiddleware:    middleware.AuthMiddleware(jwtService),
		ownerMiddleware:   middleware.RequireOwner(),
	})

	// Graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "DAO ledger backend starting",
		zap.String("port", cfg.Server.Port),
		zap.Int("wallets", len(wallets.List())),
		zap.String("wallet_store", cfg.Wallet.StoreBackend),
		zap.String("dedup", cfg.Verification.DedupBackend),
	)

	err = runServer(sigCtx, r, cfg.Server.Port)
	logger.Info(ctx, "Shutting down server")
	if refreshJob != nil {
		refreshJob.Stop()
	}
	cancel()
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// serveHTTP serves until ctx is done, then drains in-flight requests
func serveHTTP(ctx context.Context, r *gin.Engine, port string) error {
	srv := &http.Server{Addr: ":" + port, Handler: r}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildWalletKV picks the device store for wallets, sealed when a secret is configured
func buildWalletKV(cfg *config.Config, db *gorm.DB) (domainRepos.KVStore, func(), error) {
	var (
		kv      domainRepos.KVStore
		closeFn = func() {}
	)
	switch cfg.Wallet.StoreBackend {
	case "redis":
		if !cfg.Redis.Enabled() {
			return nil, nil, fmt.Errorf("wallet store backend redis requires REDIS_URL")
		}
		kv = repositories.NewRedisKVStore()
	case "database":
		kv = repositories.NewGormKVStore(db)
	case "badger", "":
		store, err := openBadger(cfg.Wallet.StorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open wallet store: %w", err)
		}
		kv = repositories.NewBadgerKVStore(store)
		closeFn = func() {
			if err := store.Close(); err != nil {
				logger.Error(context.Background(), "Failed to close wallet store", zap.Error(err))
			}
		}
	default:
		return nil, nil, fmt.Errorf("unknown wallet store backend %q", cfg.Wallet.StoreBackend)
	}

	if cfg.Wallet.StoreSecret != "" {
		sealer, err := crypto.NewSealer(cfg.Wallet.StoreSecret)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("failed to initialize wallet sealer: %w", err)
		}
		kv = repositories.NewSealedKVStore(kv, sealer)
	}
	return kv, closeFn, nil
}

func buildDedupGuard(cfg *config.Config) (domainRepos.DedupGuard, error) {
	switch cfg.Verification.DedupBackend {
	case "redis":
		if !cfg.Redis.Enabled() {
			return nil, fmt.Errorf("dedup backend redis requires REDIS_URL")
		}
		return repositories.NewRedisDedupGuard(0), nil
	case "memory", "":
		return repositories.NewMemoryDedupGuard(), nil
	default:
		return nil, fmt.Errorf("unknown dedup backend %q", cfg.Verification.DedupBackend)
	}
}
