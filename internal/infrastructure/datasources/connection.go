package datasources

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dao-ledger.backend/internal/config"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	sqlOpen = sql.Open
	dbPing  = func(db *sql.DB) error { return db.Ping() }
)

// NewConnection opens the chat store. Postgres connections go through lib/pq
// and must answer a ping; sqlite files are created on first use.
func NewConnection(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		PrepareStmt: false,
		Logger:      gormlogger.Default.LogMode(gormlogger.Warn),
	}

	switch cfg.Driver {
	case DriverPostgres:
		sqlDB, err := sqlOpen("postgres", cfg.URL())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := dbPing(sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return gorm.Open(postgres.New(postgres.Config{
			Conn:                 sqlDB,
			PreferSimpleProtocol: true,
		}), gormCfg)
	case DriverSQLite, "":
		return gorm.Open(sqlite.Open(cfg.SQLitePath()), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
