package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/metrics"
	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/repository"
	"github.com/kkkkikiki/quizgift/internal/settings"
)

// SchemaVersion is recorded in the options table after a forward run
const SchemaVersion = "2.0.0"

// Step kinds, used as report labels and metric label values
const (
	KindRename        = "rename"
	KindCreateTable   = "create_table"
	KindAddColumn     = "add_column"
	KindAddIndex      = "add_index"
	KindBackfill      = "backfill"
	KindRecordVersion = "record_version"
	KindDropTable     = "drop_table"
	KindRestore       = "restore"
	KindDeleteVersion = "delete_version"
)

// Options tune a migration run
type Options struct {
	DryRun            bool
	DefaultCampaignID int64
}

// Migrator moves a site from the legacy quiz_* schema to the qcm_* schema
type Migrator struct {
	db      *database.DB
	options *repository.OptionRepository
	opts    Options
	now     func() time.Time
}

// New creates a migrator
func New(db *database.DB, opts Options) *Migrator {
	if opts.DefaultCampaignID <= 0 {
		opts.DefaultCampaignID = 1
	}
	return &Migrator{
		db:      db,
		options: repository.NewOptionRepository(db.Tables),
		opts:    opts,
		now:     time.Now,
	}
}

type column struct {
	table string
	name  string
	def   string
}

type index struct {
	table   string
	name    string
	columns string
}

func (m *Migrator) columns() []column {
	t := m.db.Tables
	dt := m.db.Dialect.DateTime()
	return []column{
		{t.Campaigns(), "slug", "VARCHAR(191)"},
		{t.Campaigns(), "start_date", dt},
		{t.Campaigns(), "end_date", dt},
		{t.Gifts(), "min_score", "INT NOT NULL DEFAULT 0"},
		{t.Gifts(), "max_score", "INT"},
		{t.Gifts(), "max_quantity", "INT"},
		{t.Gifts(), "used_count", "INT NOT NULL DEFAULT 0"},
	}
}

func (m *Migrator) indexes() []index {
	t := m.db.Tables
	return []index{
		{t.Participants(), t.Participants() + "_email_campaign", "email, campaign_id"},
		{t.Participants(), t.Participants() + "_status", "status"},
		{t.Participants(), t.Participants() + "_campaign", "campaign_id"},
		{t.Gifts(), t.Gifts() + "_campaign", "campaign_id"},
	}
}

type stepFunc func(ctx context.Context, c *catalog) (Status, string, error)

func (m *Migrator) run(ctx context.Context, report *Report, c *catalog, kind, target string, fn stepFunc) {
	status, msg, err := fn(ctx, c)
	if err != nil {
		status = StatusFailed
		msg = err.Error()
	}

	result := StepResult{Kind: kind, Target: target, Status: status, Message: msg, Err: err}
	report.add(result)
	metrics.RecordMigrationStep(kind, string(status))

	if status == StatusFailed {
		slog.Error("migration step failed", "kind", kind, "target", target, "error", err)
	} else {
		slog.Info("migration step", "kind", kind, "target", target, "status", status, "message", msg)
	}
}

// Run executes the forward migration. Each step is guarded so that repeated
// runs are no-ops; a failing step is recorded and the remaining steps still run.
func (m *Migrator) Run(ctx context.Context) *Report {
	report := &Report{DryRun: m.opts.DryRun, Started: m.now()}
	c := newCatalog(m.db, m.opts.DryRun)

	for _, pair := range m.db.Tables.RenamePairs() {
		m.run(ctx, report, c, KindRename, pair.Old, m.renameStep(pair.Old, pair.New))
	}

	m.run(ctx, report, c, KindCreateTable, m.db.Tables.Participants(), m.createParticipantsStep)

	for _, col := range m.columns() {
		m.run(ctx, report, c, KindAddColumn, col.table+"."+col.name, m.addColumnStep(col))
	}
	for _, idx := range m.indexes() {
		m.run(ctx, report, c, KindAddIndex, idx.name, m.addIndexStep(idx))
	}

	m.run(ctx, report, c, KindBackfill, m.db.Tables.Participants(), m.backfillStep)
	m.run(ctx, report, c, KindRecordVersion, settings.DBVersionOption, m.recordVersionStep)

	report.Finished = m.now()
	return report
}

// Rollback drops the participants table and restores the legacy table names.
// Steps are independent; there is no transaction across them.
func (m *Migrator) Rollback(ctx context.Context) *Report {
	report := &Report{Rollback: true, DryRun: m.opts.DryRun, Started: m.now()}
	c := newCatalog(m.db, m.opts.DryRun)

	m.run(ctx, report, c, KindDropTable, m.db.Tables.Participants(), m.dropParticipantsStep)

	for _, pair := range m.db.Tables.RenamePairs() {
		m.run(ctx, report, c, KindRestore, pair.New, m.restoreStep(pair.New, pair.Old))
	}

	m.run(ctx, report, c, KindDeleteVersion, settings.DBVersionOption, m.deleteVersionStep)

	report.Finished = m.now()
	return report
}

func (m *Migrator) renameStep(from, to string) stepFunc {
	return func(ctx context.Context, c *catalog) (Status, string, error) {
		targetExists, err := c.tableExists(ctx, to)
		if err != nil {
			return "", "", err
		}
		if targetExists {
			return StatusSkipped, to + " already exists", nil
		}
		sourceExists, err := c.tableExists(ctx, from)
		if err != nil {
			return "", "", err
		}
		if !sourceExists {
			return StatusSkipped, "source table not found", nil
		}

		c.planRename(from, to)
		if m.opts.DryRun {
			return StatusPending, "would rename to " + to, nil
		}
		if _, err := m.db.Conn.ExecContext(ctx, m.db.Dialect.RenameTableSQL(from, to)); err != nil {
			return "", "", fmt.Errorf("failed to rename %s to %s: %w", from, to, err)
		}
		return StatusDone, "renamed to " + to, nil
	}
}

func (m *Migrator) createParticipantsStep(ctx context.Context, c *catalog) (Status, string, error) {
	table := m.db.Tables.Participants()
	exists, err := c.tableExists(ctx, table)
	if err != nil {
		return "", "", err
	}
	if exists {
		return StatusSkipped, "table already exists", nil
	}

	c.planCreate(table)
	if m.opts.DryRun {
		return StatusPending, "would create table", nil
	}
	if _, err := m.db.Conn.ExecContext(ctx, m.db.ParticipantsTableSQL()); err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", table, err)
	}
	return StatusDone, "table created", nil
}

func (m *Migrator) addColumnStep(col column) stepFunc {
	return func(ctx context.Context, c *catalog) (Status, string, error) {
		tableExists, err := c.tableExists(ctx, col.table)
		if err != nil {
			return "", "", err
		}
		if !tableExists {
			return StatusSkipped, "table not found", nil
		}
		exists, err := c.columnExists(ctx, col.table, col.name)
		if err != nil {
			return "", "", err
		}
		if exists {
			return StatusSkipped, "column already exists", nil
		}

		if m.opts.DryRun {
			return StatusPending, "would add column", nil
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			m.db.Dialect.Quote(col.table), m.db.Dialect.Quote(col.name), col.def)
		if _, err := m.db.Conn.ExecContext(ctx, query); err != nil {
			return "", "", fmt.Errorf("failed to add column %s.%s: %w", col.table, col.name, err)
		}
		return StatusDone, "column added", nil
	}
}

func (m *Migrator) addIndexStep(idx index) stepFunc {
	return func(ctx context.Context, c *catalog) (Status, string, error) {
		tableExists, err := c.tableExists(ctx, idx.table)
		if err != nil {
			return "", "", err
		}
		if !tableExists {
			return StatusSkipped, "table not found", nil
		}
		exists, err := c.indexExists(ctx, idx.table, idx.name)
		if err != nil {
			return "", "", err
		}
		if exists {
			return StatusSkipped, "index already exists", nil
		}

		if m.opts.DryRun {
			return StatusPending, "would create index on (" + idx.columns + ")", nil
		}
		query := fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
			m.db.Dialect.Quote(idx.name), m.db.Dialect.Quote(idx.table), idx.columns)
		if _, err := m.db.Conn.ExecContext(ctx, query); err != nil {
			return "", "", fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		return StatusDone, "index created on (" + idx.columns + ")", nil
	}
}

func (m *Migrator) backfillStep(ctx context.Context, c *catalog) (Status, string, error) {
	t := m.db.Tables
	for _, table := range []string{t.QuizUsers(), t.QuizSessions(), t.Participants()} {
		exists, err := c.tableExists(ctx, table)
		if err != nil {
			return "", "", err
		}
		if !exists {
			return StatusSkipped, table + " not found", nil
		}
	}

	if m.opts.DryRun {
		var users int64
		query := "SELECT COUNT(*) FROM " + m.db.Dialect.Quote(c.physical(t.QuizUsers()))
		if err := m.db.Conn.GetContext(ctx, &users, query); err != nil {
			return "", "", fmt.Errorf("failed to count legacy users: %w", err)
		}
		return StatusPending, fmt.Sprintf("would backfill from %d legacy users", users), nil
	}

	res, err := m.db.Conn.ExecContext(ctx, m.db.Conn.Rebind(m.backfillSQL()),
		m.opts.DefaultCampaignID,
		string(model.StatusCompleted),
		string(model.StatusInProgress),
		string(model.StatusStarted),
		m.opts.DefaultCampaignID,
		m.opts.DefaultCampaignID,
		m.opts.DefaultCampaignID,
	)
	if err != nil {
		return "", "", fmt.Errorf("failed to backfill participants: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", "", fmt.Errorf("failed to read backfill row count: %w", err)
	}
	if n == 0 {
		return StatusSkipped, "no new participants", nil
	}
	return StatusDone, fmt.Sprintf("inserted %d participants", n), nil
}

// backfillSQL copies each legacy user, joined to their latest session, into
// participants. Users already present by (email, campaign) are excluded, and
// duplicates within the source keep the lowest user id.
func (m *Migrator) backfillSQL() string {
	q := m.db.Dialect.Quote
	t := m.db.Tables
	return fmt.Sprintf(`
		INSERT INTO %[1]s (
			campaign_id, legacy_user_id, full_name, email, phone, province, district, ward, address,
			status, score, total_questions, correct_answers, answers,
			started_at, completed_at, created_at, updated_at
		)
		SELECT
			COALESCE(u.campaign_id, ?), u.id, u.full_name, u.email, u.phone, u.province, u.district, u.ward, u.address,
			CASE
				WHEN s.is_completed = 1 THEN ?
				WHEN s.id IS NOT NULL THEN ?
				ELSE ?
			END,
			COALESCE(s.score, 0), COALESCE(s.total_questions, 0), COALESCE(s.correct_answers, 0), s.answers,
			COALESCE(s.started_at, u.created_at), s.completed_at, u.created_at, CURRENT_TIMESTAMP
		FROM %[2]s u
		LEFT JOIN %[3]s s ON s.id = (
			SELECT MAX(s2.id) FROM %[3]s s2 WHERE s2.user_id = u.id
		)
		WHERE u.id = (
			SELECT MIN(u2.id) FROM %[2]s u2
			WHERE u2.email = u.email AND COALESCE(u2.campaign_id, ?) = COALESCE(u.campaign_id, ?)
		)
		AND NOT EXISTS (
			SELECT 1 FROM %[1]s p
			WHERE p.email = u.email AND p.campaign_id = COALESCE(u.campaign_id, ?)
		)
	`, q(t.Participants()), q(t.QuizUsers()), q(t.QuizSessions()))
}

func (m *Migrator) recordVersionStep(ctx context.Context, c *catalog) (Status, string, error) {
	exists, err := c.tableExists(ctx, m.db.Tables.Options())
	if err != nil {
		return "", "", err
	}
	if !exists {
		return StatusSkipped, "options table not found", nil
	}
	current, ok, err := m.options.GetOption(ctx, m.db.Conn, settings.DBVersionOption)
	if err != nil {
		return "", "", err
	}
	if ok && current == SchemaVersion {
		return StatusSkipped, "already at " + SchemaVersion, nil
	}

	if m.opts.DryRun {
		return StatusPending, "would record " + SchemaVersion, nil
	}
	if err := m.options.SetOption(ctx, m.db.Conn, settings.DBVersionOption, SchemaVersion); err != nil {
		return "", "", err
	}
	return StatusDone, "recorded " + SchemaVersion, nil
}

func (m *Migrator) dropParticipantsStep(ctx context.Context, c *catalog) (Status, string, error) {
	table := m.db.Tables.Participants()
	exists, err := c.tableExists(ctx, table)
	if err != nil {
		return "", "", err
	}

	c.planDrop(table)
	if m.opts.DryRun {
		if !exists {
			return StatusSkipped, "table not found", nil
		}
		return StatusPending, "would drop table", nil
	}
	if _, err := m.db.Conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+m.db.Dialect.Quote(table)); err != nil {
		return "", "", fmt.Errorf("failed to drop %s: %w", table, err)
	}
	if !exists {
		return StatusSkipped, "table not found", nil
	}
	return StatusDone, "table dropped", nil
}

func (m *Migrator) restoreStep(from, to string) stepFunc {
	return func(ctx context.Context, c *catalog) (Status, string, error) {
		sourceExists, err := c.tableExists(ctx, from)
		if err != nil {
			return "", "", err
		}
		if !sourceExists {
			return StatusSkipped, "table not found", nil
		}
		targetExists, err := c.tableExists(ctx, to)
		if err != nil {
			return "", "", err
		}
		if targetExists {
			return StatusSkipped, to + " already exists", nil
		}

		c.planRename(from, to)
		if m.opts.DryRun {
			return StatusPending, "would rename to " + to, nil
		}
		if _, err := m.db.Conn.ExecContext(ctx, m.db.Dialect.RenameTableSQL(from, to)); err != nil {
			return "", "", fmt.Errorf("failed to rename %s to %s: %w", from, to, err)
		}
		return StatusDone, "renamed to " + to, nil
	}
}

func (m *Migrator) deleteVersionStep(ctx context.Context, c *catalog) (Status, string, error) {
	exists, err := c.tableExists(ctx, m.db.Tables.Options())
	if err != nil {
		return "", "", err
	}
	if !exists {
		return StatusSkipped, "options table not found", nil
	}
	_, ok, err := m.options.GetOption(ctx, m.db.Conn, settings.DBVersionOption)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return StatusSkipped, "no version recorded", nil
	}

	if m.opts.DryRun {
		return StatusPending, "would delete version", nil
	}
	if err := m.options.DeleteOption(ctx, m.db.Conn, settings.DBVersionOption); err != nil {
		return "", "", err
	}
	return StatusDone, "version deleted", nil
}
