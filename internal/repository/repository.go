package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kkkkikiki/quizgift/internal/config"
	"github.com/kkkkikiki/quizgift/internal/database"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("not found")

// DBExecutor interface for database operations (can be *sqlx.DB or *sqlx.Tx)
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

// insertID runs an INSERT and returns the generated id. PostgreSQL has no
// LastInsertId, so the statement gets a RETURNING clause there.
func insertID(ctx context.Context, db DBExecutor, dialect database.Dialect, query string, args ...interface{}) (int64, error) {
	if dialect.Name() == config.DriverPostgres {
		var id int64
		if err := db.GetContext(ctx, &id, db.Rebind(query+" RETURNING id"), args...); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert id: %w", err)
	}
	return id, nil
}

// expectOne checks that an UPDATE/DELETE touched exactly one row
func expectOne(res sql.Result) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// boolInt stores flags as 0/1; the flag columns are integer typed on every dialect.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
