package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"dao-ledger.backend/internal/config"
	"dao-ledger.backend/internal/infrastructure/repositories"
	"dao-ledger.backend/pkg/badger"
	plog "dao-ledger.backend/pkg/logger"
)

func withMainHooks(t *testing.T) {
	t.Helper()
	origLoadDotenv := loadDotenv
	origLoadCfg := loadCfg
	origInitLog := initLog
	origInitRedis := initRedis
	origOpenDB := openDB
	origOpenBadger := openBadger
	origRunServer := runServer

	t.Cleanup(func() {
		loadDotenv = origLoadDotenv
		loadCfg = origLoadCfg
		initLog = origInitLog
		initRedis = origInitRedis
		openDB = origOpenDB
		openBadger = origOpenBadger
		runServer = origRunServer
	})

	loadDotenv = func(...string) error { return nil }
	initLog = plog.Init
	openBadger = func(string) (*badger.Store, error) { return badger.Open("") }
}

func memoryDB(name string) func(config.DatabaseConfig) (*gorm.DB, error) {
	return func(config.DatabaseConfig) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	}
}

func baseTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port: "18080",
			Env:  "development",
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   ":memory:",
		},
		JWT: config.JWTConfig{
			Secret:       "secret",
			AccessExpiry: 15 * time.Minute,
		},
		Wallet: config.WalletConfig{
			StoreBackend: "badger",
			DefaultUnit:  "B",
		},
		Ledger: config.LedgerConfig{
			MaxPaginationRounds: 3,
			PageSize:            10,
			InitialWindow:       10,
			BalanceTimeout:      time.Second,
		},
		Verification: config.VerificationConfig{
			Threshold:    25,
			AllowSelf:    true,
			DedupBackend: "memory",
		},
	}
}

func TestRunMainProcess_RedisInitError(t *testing.T) {
	withMainHooks(t)
	loadCfg = func() *config.Config {
		cfg := baseTestConfig()
		cfg.Redis.URL = "redis://localhost:6379"
		return cfg
	}
	initRedis = func(string, string) error { return errors.New("redis down") }

	err := runMainProcess()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestRunMainProcess_SkipsRedisWhenDisabled(t *testing.T) {
	withMainHooks(t)
	loadCfg = baseTestConfig
	initRedis = func(string, string) error {
		t.Fatal("redis must not be initialized without a URL")
		return nil
	}
	openDB = memoryDB("main_no_redis")
	runServer = func(context.Context, *gin.Engine, string) error { return nil }

	require.NoError(t, runMainProcess())
}

func TestRunMainProcess_DBOpenError(t *testing.T) {
	withMainHooks(t)
	loadCfg = baseTestConfig
	openDB = func(config.DatabaseConfig) (*gorm.DB, error) { return nil, errors.New("db open failed") }

	err := runMainProcess()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
}

func TestRunMainProcess_WalletStoreErrors(t *testing.T) {
	withMainHooks(t)
	openDB = memoryDB("main_wallet_err")

	loadCfg = func() *config.Config {
		cfg := baseTestConfig()
		cfg.Wallet.StoreBackend = "floppy"
		return cfg
	}
	assert.Error(t, runMainProcess())

	loadCfg = baseTestConfig
	openBadger = func(string) (*badger.Store, error) { return nil, errors.New("locked") }
	assert.Error(t, runMainProcess())
}

func TestRunMainProcess_ServerRunError(t *testing.T) {
	withMainHooks(t)
	loadCfg = baseTestConfig
	openDB = memoryDB("main_server_err")
	runServer = func(context.Context, *gin.Engine, string) error { return errors.New("listen failed") }

	err := runMainProcess()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen failed")
}

func TestRunMainProcess_SuccessPath(t *testing.T) {
	withMainHooks(t)
	loadCfg = func() *config.Config {
		cfg := baseTestConfig()
		cfg.Jobs.BalanceRefreshInterval = time.Hour
		return cfg
	}
	openDB = memoryDB("main_success")

	var routes gin.RoutesInfo
	runServer = func(_ context.Context, r *gin.Engine, port string) error {
		assert.Equal(t, "18080", port)
		routes = r.Routes()
		return nil
	}

	require.NoError(t, runMainProcess())
	assert.NotEmpty(t, routes)
}

func TestServeHTTP_StopsOnContextCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveHTTP(ctx, gin.New(), "0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeHTTP_ListenError(t *testing.T) {
	err := serveHTTP(context.Background(), gin.New(), "invalid-port")
	assert.Error(t, err)
}

func TestBuildWalletKV(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:main_build_kv?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, repositories.MigrateChatStore(db))

	cfg := baseTestConfig()
	cfg.Wallet.StoreBackend = "database"
	cfg.Wallet.StoreSecret = "device-secret"
	kv, closeFn, err := buildWalletKV(cfg, db)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &repositories.SealedKVStore{}, kv)

	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "k", []byte("v")))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	cfg.Wallet.StoreBackend = "redis"
	_, _, err = buildWalletKV(cfg, db)
	assert.Error(t, err)
}

func TestBuildDedupGuard(t *testing.T) {
	cfg := baseTestConfig()
	g, err := buildDedupGuard(cfg)
	require.NoError(t, err)
	assert.IsType(t, &repositories.MemoryDedupGuard{}, g)

	cfg.Verification.DedupBackend = "redis"
	_, err = buildDedupGuard(cfg)
	assert.Error(t, err)

	cfg.Redis.URL = "redis://localhost:6379"
	g, err = buildDedupGuard(cfg)
	require.NoError(t, err)
	assert.IsType(t, &repositories.RedisDedupGuard{}, g)

	cfg.Verification.DedupBackend = "carrier-pigeon"
	_, err = buildDedupGuard(cfg)
	assert.Error(t, err)
}
