package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kkkkikiki/quizgift/internal/config"
)

// Querier is the subset of *sqlx.DB / *sqlx.Tx used for catalog lookups
type Querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
}

// Dialect hides the catalog and DDL differences between supported databases
type Dialect interface {
	Name() string
	Quote(ident string) string
	AutoIncrementPK() string
	DateTime() string
	SmallInt() string
	RenameTableSQL(from, to string) string
	// LockClause is appended to SELECTs that reserve a row inside a transaction.
	LockClause() string
	TableExists(ctx context.Context, q Querier, table string) (bool, error)
	ColumnExists(ctx context.Context, q Querier, table, column string) (bool, error)
	IndexExists(ctx context.Context, q Querier, table, index string) (bool, error)
	ServerVersion(ctx context.Context, q Querier) (string, error)
}

// DialectFor returns the dialect of a configured driver
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverMySQL:
		return mysqlDialect{}, nil
	case config.DriverPostgres:
		return postgresDialect{}, nil
	case config.DriverSQLite:
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func count(ctx context.Context, q Querier, query string, args ...interface{}) (bool, error) {
	var n int
	if err := q.GetContext(ctx, &n, q.Rebind(query), args...); err != nil {
		return false, fmt.Errorf("failed to query catalog: %w", err)
	}
	return n > 0, nil
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return config.DriverMySQL }

func (mysqlDialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysqlDialect) AutoIncrementPK() string {
	return "BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY"
}
func (mysqlDialect) DateTime() string   { return "DATETIME" }
func (mysqlDialect) SmallInt() string   { return "TINYINT(1)" }
func (mysqlDialect) LockClause() string { return " FOR UPDATE" }

func (d mysqlDialect) RenameTableSQL(from, to string) string {
	return fmt.Sprintf("RENAME TABLE %s TO %s", d.Quote(from), d.Quote(to))
}

// Catalog lookups must include table_schema = DATABASE(); otherwise tables of
// other databases on the same server match.
func (mysqlDialect) TableExists(ctx context.Context, q Querier, table string) (bool, error) {
	return count(ctx, q, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?
	`, table)
}

func (mysqlDialect) ColumnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	return count(ctx, q, `
		SELECT COUNT(*)
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?
	`, table, column)
}

func (mysqlDialect) IndexExists(ctx context.Context, q Querier, table, index string) (bool, error) {
	return count(ctx, q, `
		SELECT COUNT(*)
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?
	`, table, index)
}

func (mysqlDialect) ServerVersion(ctx context.Context, q Querier) (string, error) {
	var v string
	if err := q.GetContext(ctx, &v, "SELECT VERSION()"); err != nil {
		return "", fmt.Errorf("failed to read server version: %w", err)
	}
	return v, nil
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return config.DriverPostgres }
func (postgresDialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
func (postgresDialect) AutoIncrementPK() string { return "BIGSERIAL PRIMARY KEY" }
func (postgresDialect) DateTime() string        { return "TIMESTAMP" }
func (postgresDialect) SmallInt() string        { return "SMALLINT" }
func (postgresDialect) LockClause() string      { return " FOR UPDATE" }

func (d postgresDialect) RenameTableSQL(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.Quote(from), d.Quote(to))
}

func (postgresDialect) TableExists(ctx context.Context, q Querier, table string) (bool, error) {
	return count(ctx, q, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ?
	`, table)
}

func (postgresDialect) ColumnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	return count(ctx, q, `
		SELECT COUNT(*)
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?
	`, table, column)
}

func (postgresDialect) IndexExists(ctx context.Context, q Querier, table, index string) (bool, error) {
	return count(ctx, q, `
		SELECT COUNT(*)
		FROM pg_indexes
		WHERE schemaname = current_schema() AND tablename = ? AND indexname = ?
	`, table, index)
}

func (postgresDialect) ServerVersion(ctx context.Context, q Querier) (string, error) {
	var v string
	if err := q.GetContext(ctx, &v, "SHOW server_version"); err != nil {
		return "", fmt.Errorf("failed to read server version: %w", err)
	}
	// "16.2 (Debian 16.2-1.pgdg120+2)"
	if i := strings.IndexByte(v, ' '); i > 0 {
		v = v[:i]
	}
	return v, nil
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return config.DriverSQLite }
func (sqliteDialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
func (sqliteDialect) AutoIncrementPK() string { return "INTEGER PRIMARY KEY AUTOINCREMENT" }
func (sqliteDialect) DateTime() string        { return "DATETIME" }
func (sqliteDialect) SmallInt() string        { return "INTEGER" }

// SQLite locks the whole database for a write transaction.
func (sqliteDialect) LockClause() string { return "" }

func (d sqliteDialect) RenameTableSQL(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.Quote(from), d.Quote(to))
}

func (sqliteDialect) TableExists(ctx context.Context, q Querier, table string) (bool, error) {
	return count(ctx, q, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
}

func (sqliteDialect) ColumnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	return count(ctx, q, `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column)
}

func (sqliteDialect) IndexExists(ctx context.Context, q Querier, table, index string) (bool, error) {
	return count(ctx, q, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name = ?`, table, index)
}

func (sqliteDialect) ServerVersion(ctx context.Context, q Querier) (string, error) {
	var v string
	if err := q.GetContext(ctx, &v, "SELECT sqlite_version()"); err != nil {
		return "", fmt.Errorf("failed to read server version: %w", err)
	}
	return v, nil
}
