package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kkkkikiki/quizgift/internal/model"
)

// OptionRepository reads and writes rows of the WordPress options table
type OptionRepository struct {
	tables model.Tables
}

// NewOptionRepository creates a new option repository
func NewOptionRepository(tables model.Tables) *OptionRepository {
	return &OptionRepository{tables: tables}
}

// GetOption returns an option value; ok is false when the option is not stored
func (r *OptionRepository) GetOption(ctx context.Context, db DBExecutor, name string) (value string, ok bool, err error) {
	query := fmt.Sprintf(`SELECT option_value FROM %s WHERE option_name = ?`, r.tables.Options())

	if err := db.GetContext(ctx, &value, db.Rebind(query), name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get option %s: %w", name, err)
	}
	return value, true, nil
}

// ListOptions returns every option whose name starts with prefix
func (r *OptionRepository) ListOptions(ctx context.Context, db DBExecutor, prefix string) (map[string]string, error) {
	query := fmt.Sprintf(`SELECT option_name, option_value FROM %s WHERE option_name LIKE ?`, r.tables.Options())

	var rows []struct {
		Name  string `db:"option_name"`
		Value string `db:"option_value"`
	}
	if err := db.SelectContext(ctx, &rows, db.Rebind(query), prefix+"%"); err != nil {
		return nil, fmt.Errorf("failed to list options: %w", err)
	}

	options := make(map[string]string, len(rows))
	for _, row := range rows {
		// LIKE treats "_" as a wildcard.
		if strings.HasPrefix(row.Name, prefix) {
			options[row.Name] = row.Value
		}
	}
	return options, nil
}

// SetOption inserts or updates an option
func (r *OptionRepository) SetOption(ctx context.Context, db DBExecutor, name, value string) error {
	var n int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE option_name = ?`, r.tables.Options())
	if err := db.GetContext(ctx, &n, db.Rebind(countQuery), name); err != nil {
		return fmt.Errorf("failed to check option %s: %w", name, err)
	}

	var query string
	if n > 0 {
		query = fmt.Sprintf(`UPDATE %s SET option_value = ? WHERE option_name = ?`, r.tables.Options())
	} else {
		query = fmt.Sprintf(`INSERT INTO %s (option_value, option_name, autoload) VALUES (?, ?, 'no')`, r.tables.Options())
	}
	if _, err := db.ExecContext(ctx, db.Rebind(query), value, name); err != nil {
		return fmt.Errorf("failed to set option %s: %w", name, err)
	}
	return nil
}

// DeleteOption removes an option; deleting a missing option is not an error
func (r *OptionRepository) DeleteOption(ctx context.Context, db DBExecutor, name string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE option_name = ?`, r.tables.Options())

	if _, err := db.ExecContext(ctx, db.Rebind(query), name); err != nil {
		return fmt.Errorf("failed to delete option %s: %w", name, err)
	}
	return nil
}
