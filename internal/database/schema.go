package database

import (
	"context"
	"fmt"
	"strings"
)

// ddl expands the {pk}, {dt}, {bool} and {table} placeholders for a dialect
func ddl(d Dialect, table, tmpl string) string {
	r := strings.NewReplacer(
		"{table}", d.Quote(table),
		"{pk}", d.AutoIncrementPK(),
		"{dt}", d.DateTime(),
		"{bool}", d.SmallInt(),
	)
	return r.Replace(tmpl)
}

const campaignsTable = `
CREATE TABLE IF NOT EXISTS {table} (
    id {pk},
    name VARCHAR(255) NOT NULL,
    slug VARCHAR(191),
    description TEXT,
    is_active {bool} NOT NULL DEFAULT 0,
    start_date {dt},
    end_date {dt},
    created_at {dt} NOT NULL,
    updated_at {dt} NOT NULL
)`

const giftsTable = `
CREATE TABLE IF NOT EXISTS {table} (
    id {pk},
    campaign_id BIGINT NOT NULL,
    name VARCHAR(255) NOT NULL,
    gift_type VARCHAR(32) NOT NULL DEFAULT 'voucher',
    value VARCHAR(255),
    min_score INT NOT NULL DEFAULT 0,
    max_score INT,
    max_quantity INT,
    used_count INT NOT NULL DEFAULT 0,
    created_at {dt} NOT NULL
)`

const quizUsersTable = `
CREATE TABLE IF NOT EXISTS {table} (
    id {pk},
    campaign_id BIGINT,
    full_name VARCHAR(255) NOT NULL DEFAULT '',
    email VARCHAR(191) NOT NULL DEFAULT '',
    phone VARCHAR(32),
    province VARCHAR(100),
    district VARCHAR(100),
    ward VARCHAR(100),
    address VARCHAR(255),
    created_at {dt} NOT NULL
)`

const quizSessionsTable = `
CREATE TABLE IF NOT EXISTS {table} (
    id {pk},
    user_id BIGINT NOT NULL,
    score INT,
    total_questions INT,
    correct_answers INT,
    is_completed {bool} NOT NULL DEFAULT 0,
    answers TEXT,
    started_at {dt},
    completed_at {dt}
)`

const participantsTable = `
CREATE TABLE IF NOT EXISTS {table} (
    id {pk},
    campaign_id BIGINT NOT NULL DEFAULT 1,
    legacy_user_id BIGINT,
    full_name VARCHAR(255) NOT NULL DEFAULT '',
    email VARCHAR(191) NOT NULL DEFAULT '',
    phone VARCHAR(32),
    province VARCHAR(100),
    district VARCHAR(100),
    ward VARCHAR(100),
    address VARCHAR(255),
    status VARCHAR(20) NOT NULL DEFAULT 'started',
    score INT NOT NULL DEFAULT 0,
    total_questions INT NOT NULL DEFAULT 0,
    correct_answers INT NOT NULL DEFAULT 0,
    answers TEXT,
    gift_id BIGINT,
    started_at {dt},
    completed_at {dt},
    created_at {dt} NOT NULL,
    updated_at {dt} NOT NULL
)`

// WordPress already ships this table; it is created only for standalone installs.
const optionsTable = `
CREATE TABLE IF NOT EXISTS {table} (
    option_id {pk},
    option_name VARCHAR(191) NOT NULL UNIQUE,
    option_value TEXT NOT NULL,
    autoload VARCHAR(20) NOT NULL DEFAULT 'yes'
)`

// Pre-2.0 tables lack the columns the migration adds.
const legacyCampaignsTable = `
CREATE TABLE IF NOT EXISTS {table} (
    id {pk},
    name VARCHAR(255) NOT NULL,
    description TEXT,
    is_active {bool} NOT NULL DEFAULT 0,
    created_at {dt} NOT NULL,
    updated_at {dt} NOT NULL
)`

const legacyGiftsTable = `
CREATE TABLE IF NOT EXISTS {table} (
    id {pk},
    campaign_id BIGINT NOT NULL,
    name VARCHAR(255) NOT NULL,
    gift_type VARCHAR(32) NOT NULL DEFAULT 'voucher',
    value VARCHAR(255),
    created_at {dt} NOT NULL
)`

// ParticipantsTableSQL returns the CREATE TABLE IF NOT EXISTS statement for participants
func (db *DB) ParticipantsTableSQL() string {
	return ddl(db.Dialect, db.Tables.Participants(), participantsTable)
}

// InstallSchema creates every current table that is missing. Used on fresh
// sites that never had the legacy schema.
func (db *DB) InstallSchema(ctx context.Context) error {
	t := db.Tables
	statements := []struct {
		table string
		tmpl  string
	}{
		{t.Campaigns(), campaignsTable},
		{t.Gifts(), giftsTable},
		{t.QuizUsers(), quizUsersTable},
		{t.QuizSessions(), quizSessionsTable},
		{t.Participants(), participantsTable},
		{t.Options(), optionsTable},
	}

	for _, s := range statements {
		if _, err := db.Conn.ExecContext(ctx, ddl(db.Dialect, s.table, s.tmpl)); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.table, err)
		}
	}
	return nil
}

// InstallLegacySchema creates the pre-2.0 tables. It backs migration rehearsals
// (cmd/legacy-seed) and tests.
func (db *DB) InstallLegacySchema(ctx context.Context) error {
	t := db.Tables
	statements := []struct {
		table string
		tmpl  string
	}{
		{t.LegacyCampaigns(), legacyCampaignsTable},
		{t.LegacyGifts(), legacyGiftsTable},
		{t.LegacyQuizUsers(), quizUsersTable},
		{t.LegacyQuizSessions(), quizSessionsTable},
		{t.Options(), optionsTable},
	}

	for _, s := range statements {
		if _, err := db.Conn.ExecContext(ctx, ddl(db.Dialect, s.table, s.tmpl)); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.table, err)
		}
	}
	return nil
}
