package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/kkkkikiki/quizgift/internal/config"
	"github.com/kkkkikiki/quizgift/internal/model"
)

const connectMaxElapsed = 30 * time.Second

func init() {
	// modernc.org/sqlite registers as "sqlite", which sqlx does not know.
	sqlx.BindDriver(config.DriverSQLite, sqlx.QUESTION)
}

// DB holds the WordPress database connection and the naming/dialect needed to query it
type DB struct {
	Conn    *sqlx.DB
	Dialect Dialect
	Tables  model.Tables
}

// NewDB connects to the configured database, retrying transient failures
func NewDB(ctx context.Context, cfg *config.Config) (*DB, error) {
	dialect, err := DialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	conn, err := sqlx.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Database.Driver, err)
	}

	// Configure connection pool
	if cfg.Database.Driver == config.DriverSQLite {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(cfg.Database.MaxConns)
		conn.SetMaxIdleConns(cfg.Database.MinConns)
	}
	conn.SetConnMaxLifetime(time.Hour)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectMaxElapsed
	err = backoff.RetryNotify(func() error {
		return conn.PingContext(ctx)
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		slog.Warn("database not ready, retrying", "driver", cfg.Database.Driver, "wait", wait, "error", err)
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Database.Driver, err)
	}

	slog.Info("connected to database", "driver", cfg.Database.Driver, "prefix", cfg.Database.TablePrefix)

	return New(conn, dialect, cfg.Database.TablePrefix), nil
}

// New wraps an existing connection
func New(conn *sqlx.DB, dialect Dialect, tablePrefix string) *DB {
	return &DB{
		Conn:    conn,
		Dialect: dialect,
		Tables:  model.NewTables(tablePrefix),
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	if err := db.Conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
