package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Device       DeviceConfig
	Wallet       WalletConfig
	Ledger       LedgerConfig
	Verification VerificationConfig
	Jobs         JobsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds the chat store database configuration
type DatabaseConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the postgres connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// SQLitePath returns the sqlite DSN
func (c DatabaseConfig) SQLitePath() string {
	return "file:" + c.Path + "?cache=shared&_foreign_keys=on"
}

// RedisConfig holds Redis configuration. An empty URL disables Redis.
type RedisConfig struct {
	URL      string
	Password string
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// DeviceConfig identifies the chat account that owns this device's wallets
type DeviceConfig struct {
	AccountID string
}

// WalletConfig holds wallet store configuration
type WalletConfig struct {
	StoreBackend             string
	StorePath                string
	StoreSecret              string
	DefaultUnit              string
	DefaultContributionValue float64
}

// LedgerConfig bounds ledger history scans
type LedgerConfig struct {
	MaxPaginationRounds int
	PageSize            int
	InitialWindow       int
	BalanceTimeout      time.Duration
}

// VerificationConfig holds contribution approval policy
type VerificationConfig struct {
	Threshold                int
	AllowSelf                bool
	Cooldown                 time.Duration
	DefaultContributionValue float64
	DedupBackend             string
}

// JobsConfig holds background job intervals. Zero disables a job.
type JobsConfig struct {
	BalanceRefreshInterval time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:     getEnv("DB_PATH", "dao-ledger.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "daoledger"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),
		},
		Device: DeviceConfig{
			AccountID: getEnv("DEVICE_ACCOUNT_ID", ""),
		},
		Wallet: WalletConfig{
			StoreBackend:             strings.ToLower(getEnv("WALLET_STORE_BACKEND", "badger")),
			StorePath:                getEnv("WALLET_STORE_PATH", "data/wallets"),
			StoreSecret:              getEnv("WALLET_STORE_SECRET", ""),
			DefaultUnit:              getEnv("WALLET_DEFAULT_UNIT", "B"),
			DefaultContributionValue: getEnvAsFloat("WALLET_DEFAULT_CONTRIBUTION_VALUE", 1),
		},
		Ledger: LedgerConfig{
			MaxPaginationRounds: getEnvAsInt("LEDGER_MAX_PAGINATION_ROUNDS", 10),
			PageSize:            getEnvAsInt("LEDGER_PAGE_SIZE", 50),
			InitialWindow:       getEnvAsInt("LEDGER_INITIAL_WINDOW", 50),
			BalanceTimeout:      getEnvAsDuration("LEDGER_BALANCE_TIMEOUT", 5*time.Second),
		},
		Verification: VerificationConfig{
			Threshold:                getEnvAsInt("VERIFICATION_THRESHOLD", 25),
			AllowSelf:                getEnvAsBool("VERIFICATION_ALLOW_SELF", true),
			Cooldown:                 getEnvAsDuration("VERIFICATION_COOLDOWN", 0),
			DefaultContributionValue: getEnvAsFloat("VERIFICATION_DEFAULT_CONTRIBUTION_VALUE", 10),
			DedupBackend:             strings.ToLower(getEnv("DEDUP_BACKEND", "memory")),
		},
		Jobs: JobsConfig{
			BalanceRefreshInterval: getEnvAsDuration("BALANCE_REFRESH_INTERVAL", 0),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
