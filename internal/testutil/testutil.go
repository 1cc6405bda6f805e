package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/quizgift/internal/config"
	"github.com/kkkkikiki/quizgift/internal/database"
)

// TablePrefix is the prefix used by every test database
const TablePrefix = "wp_"

// OpenDB opens an empty SQLite database in the test's temp dir
func OpenDB(t *testing.T) *database.DB {
	t.Helper()

	conn, err := sqlx.Open(config.DriverSQLite, filepath.Join(t.TempDir(), "quizgift.db"))
	require.NoError(t, err, "open test database")
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	dialect, err := database.DialectFor(config.DriverSQLite)
	require.NoError(t, err)

	return database.New(conn, dialect, TablePrefix)
}

// SetupDB returns a database with the current schema installed
func SetupDB(t *testing.T) *database.DB {
	t.Helper()

	db := OpenDB(t)
	require.NoError(t, db.InstallSchema(context.Background()), "install schema")
	return db
}

// SetupLegacyDB returns a database with only the pre-2.0 schema installed
func SetupLegacyDB(t *testing.T) *database.DB {
	t.Helper()

	db := OpenDB(t)
	require.NoError(t, db.InstallLegacySchema(context.Background()), "install legacy schema")
	return db
}

// Exec runs a statement written with ? placeholders
func Exec(t *testing.T, db *database.DB, query string, args ...interface{}) {
	t.Helper()

	_, err := db.Conn.Exec(db.Conn.Rebind(query), args...)
	require.NoError(t, err, "exec %q", query)
}

// Count returns SELECT COUNT(*) for a table with an optional WHERE clause
func Count(t *testing.T, db *database.DB, table, where string, args ...interface{}) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + db.Dialect.Quote(table)
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	require.NoError(t, db.Conn.Get(&n, db.Conn.Rebind(query), args...), "count %s", table)
	return n
}

// InsertLegacyUser adds a row to the legacy quiz_users table and returns its id.
// A zero campaignID stores NULL.
func InsertLegacyUser(t *testing.T, db *database.DB, campaignID int64, name, email string) int64 {
	t.Helper()

	var campaign interface{}
	if campaignID != 0 {
		campaign = campaignID
	}
	res, err := db.Conn.Exec(db.Conn.Rebind(`
		INSERT INTO `+db.Tables.LegacyQuizUsers()+` (campaign_id, full_name, email, phone, province, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), campaign, name, email, "0900000000", "Hà Nội", time.Now())
	require.NoError(t, err, "insert legacy user")
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// InsertLegacySession adds a quiz session for a legacy user
func InsertLegacySession(t *testing.T, db *database.DB, userID int64, score, total, correct int, completed bool) {
	t.Helper()

	done := 0
	var completedAt interface{}
	if completed {
		done = 1
		completedAt = time.Now()
	}
	Exec(t, db, `
		INSERT INTO `+db.Tables.LegacyQuizSessions()+` (user_id, score, total_questions, correct_answers, is_completed, answers, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, score, total, correct, done, `{"q1":"b"}`, time.Now().Add(-time.Hour), completedAt)
}
