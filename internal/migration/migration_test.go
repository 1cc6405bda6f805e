package migration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/migration"
	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/testutil"
)

// seedLegacy creates users covering every backfill branch:
// completed, in progress, no session (NULL campaign) and a duplicate.
func seedLegacy(t *testing.T, db *database.DB) {
	t.Helper()

	alice := testutil.InsertLegacyUser(t, db, 1, "Alice", "alice@example.com")
	testutil.InsertLegacySession(t, db, alice, 3, 10, 3, false)
	testutil.InsertLegacySession(t, db, alice, 8, 10, 8, true)

	bob := testutil.InsertLegacyUser(t, db, 1, "Bob", "bob@example.com")
	testutil.InsertLegacySession(t, db, bob, 2, 10, 2, false)

	testutil.InsertLegacyUser(t, db, 0, "Carol", "carol@example.com")

	dup := testutil.InsertLegacyUser(t, db, 1, "Alice Again", "alice@example.com")
	testutil.InsertLegacySession(t, db, dup, 10, 10, 10, true)

	testutil.Exec(t, db, `INSERT INTO `+db.Tables.LegacyCampaigns()+` (name, is_active, created_at, updated_at) VALUES (?, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`, "Spring")
}

func participantByEmail(t *testing.T, db *database.DB, email string) model.Participant {
	t.Helper()
	var p model.Participant
	require.NoError(t, db.Conn.Get(&p, db.Conn.Rebind(`SELECT * FROM `+db.Tables.Participants()+` WHERE email = ?`), email))
	return p
}

func tableExists(t *testing.T, db *database.DB, table string) bool {
	t.Helper()
	ok, err := db.Dialect.TableExists(context.Background(), db.Conn, table)
	require.NoError(t, err)
	return ok
}

func TestRun_MigratesLegacySchema(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupLegacyDB(t)
	seedLegacy(t, db)

	report := migration.New(db, migration.Options{DefaultCampaignID: 1}).Run(ctx)
	require.NoError(t, report.Err(), report.Lines())
	assert.Zero(t, report.Count(migration.StatusFailed))

	for _, pair := range db.Tables.RenamePairs() {
		assert.False(t, tableExists(t, db, pair.Old), pair.Old)
		assert.True(t, tableExists(t, db, pair.New), pair.New)
	}
	assert.True(t, tableExists(t, db, db.Tables.Participants()))

	for _, col := range []string{"slug", "start_date", "end_date"} {
		ok, err := db.Dialect.ColumnExists(ctx, db.Conn, db.Tables.Campaigns(), col)
		require.NoError(t, err)
		assert.True(t, ok, col)
	}
	for _, col := range []string{"min_score", "max_score", "max_quantity", "used_count"} {
		ok, err := db.Dialect.ColumnExists(ctx, db.Conn, db.Tables.Gifts(), col)
		require.NoError(t, err)
		assert.True(t, ok, col)
	}
	ok, err := db.Dialect.IndexExists(ctx, db.Conn, db.Tables.Participants(), db.Tables.Participants()+"_email_campaign")
	require.NoError(t, err)
	assert.True(t, ok)

	// Duplicate alice is collapsed.
	assert.Equal(t, 3, testutil.Count(t, db, db.Tables.Participants(), ""))
	assert.Equal(t, 1, testutil.Count(t, db, db.Tables.Campaigns(), ""))

	alice := participantByEmail(t, db, "alice@example.com")
	assert.Equal(t, model.StatusCompleted, alice.Status)
	assert.Equal(t, 8, alice.Score)
	assert.Equal(t, 10, alice.TotalQuestions)
	assert.Equal(t, 8, alice.CorrectAnswers)
	assert.Equal(t, "Alice", alice.FullName, "lowest user id wins")
	assert.True(t, alice.CompletedAt.Valid)

	bob := participantByEmail(t, db, "bob@example.com")
	assert.Equal(t, model.StatusInProgress, bob.Status)
	assert.Equal(t, 2, bob.Score)

	carol := participantByEmail(t, db, "carol@example.com")
	assert.Equal(t, model.StatusStarted, carol.Status)
	assert.Equal(t, int64(1), carol.CampaignID)
	assert.Zero(t, carol.Score)
	assert.Zero(t, carol.TotalQuestions)
	assert.Zero(t, carol.CorrectAnswers)
	assert.False(t, carol.CompletedAt.Valid)

	var version string
	require.NoError(t, db.Conn.Get(&version, `SELECT option_value FROM wp_options WHERE option_name = 'qcm_db_version'`))
	assert.Equal(t, migration.SchemaVersion, version)
}

func TestRun_DefaultCampaignIsConfigurable(t *testing.T) {
	db := testutil.SetupLegacyDB(t)
	testutil.InsertLegacyUser(t, db, 0, "Dan", "dan@example.com")

	report := migration.New(db, migration.Options{DefaultCampaignID: 7}).Run(context.Background())
	require.NoError(t, report.Err())

	assert.Equal(t, int64(7), participantByEmail(t, db, "dan@example.com").CampaignID)
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupLegacyDB(t)
	seedLegacy(t, db)
	m := migration.New(db, migration.Options{})

	first := m.Run(ctx)
	require.NoError(t, first.Err())
	count := testutil.Count(t, db, db.Tables.Participants(), "")

	second := m.Run(ctx)
	require.NoError(t, second.Err(), second.Lines())
	assert.Zero(t, second.Count(migration.StatusDone), second.Lines())
	assert.Len(t, second.Steps, len(first.Steps))
	assert.Equal(t, count, testutil.Count(t, db, db.Tables.Participants(), ""))
}

func TestRun_BackfillSkipsExistingPairs(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupLegacyDB(t)
	seedLegacy(t, db)
	m := migration.New(db, migration.Options{})
	require.NoError(t, m.Run(ctx).Err())

	// New signups land in the renamed users table after the first run.
	testutil.Exec(t, db, `INSERT INTO `+db.Tables.QuizUsers()+` (campaign_id, full_name, email, created_at) VALUES (1, 'Eve', 'eve@example.com', CURRENT_TIMESTAMP)`)
	testutil.Exec(t, db, `INSERT INTO `+db.Tables.QuizUsers()+` (campaign_id, full_name, email, created_at) VALUES (1, 'Bob Two', 'bob@example.com', CURRENT_TIMESTAMP)`)

	report := m.Run(ctx)
	require.NoError(t, report.Err())
	assert.Equal(t, 4, testutil.Count(t, db, db.Tables.Participants(), ""))
	assert.Equal(t, 1, testutil.Count(t, db, db.Tables.Participants(), "email = ?", "bob@example.com"))

	var backfill migration.StepResult
	for _, s := range report.Steps {
		if s.Kind == migration.KindBackfill {
			backfill = s
		}
	}
	assert.Equal(t, migration.StatusDone, backfill.Status)
	assert.Equal(t, "inserted 1 participants", backfill.Message)
}

func TestRun_MissingSources(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)

	report := migration.New(db, migration.Options{}).Run(ctx)
	require.NoError(t, report.Err(), report.Lines())

	statuses := map[string][]migration.Status{}
	for _, s := range report.Steps {
		statuses[s.Kind] = append(statuses[s.Kind], s.Status)
	}
	assert.Equal(t, []migration.Status{
		migration.StatusSkipped, migration.StatusSkipped, migration.StatusSkipped, migration.StatusSkipped,
	}, statuses[migration.KindRename])
	assert.Equal(t, []migration.Status{migration.StatusDone}, statuses[migration.KindCreateTable])
	for _, s := range statuses[migration.KindAddColumn] {
		assert.Equal(t, migration.StatusSkipped, s)
	}
	assert.Equal(t, []migration.Status{
		migration.StatusDone, migration.StatusDone, migration.StatusDone, migration.StatusSkipped,
	}, statuses[migration.KindAddIndex])
	assert.Equal(t, []migration.Status{migration.StatusSkipped}, statuses[migration.KindBackfill])
	assert.Equal(t, []migration.Status{migration.StatusSkipped}, statuses[migration.KindRecordVersion])
}

func TestRun_FailedStepDoesNotHaltLaterSteps(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupLegacyDB(t)
	seedLegacy(t, db)

	// SQLite index names are database-wide; occupy the gifts index name on another table.
	testutil.Exec(t, db, `CREATE TABLE other (campaign_id INT)`)
	testutil.Exec(t, db, `CREATE INDEX `+db.Tables.Gifts()+`_campaign ON other (campaign_id)`)

	report := migration.New(db, migration.Options{}).Run(ctx)
	assert.Equal(t, 1, report.Count(migration.StatusFailed), report.Lines())
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "add_index")

	assert.Equal(t, 3, testutil.Count(t, db, db.Tables.Participants(), ""))
	last := report.Steps[len(report.Steps)-1]
	assert.Equal(t, migration.KindRecordVersion, last.Kind)
	assert.Equal(t, migration.StatusDone, last.Status)
}

func TestRun_DryRunChangesNothing(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupLegacyDB(t)
	seedLegacy(t, db)

	report := migration.New(db, migration.Options{DryRun: true}).Run(ctx)
	require.NoError(t, report.Err(), report.Lines())
	assert.True(t, report.DryRun)

	// 4 renames, create, 7 columns, 4 indexes, backfill, version
	assert.Equal(t, 18, report.Count(migration.StatusPending), report.Lines())
	assert.Zero(t, report.Count(migration.StatusDone))

	for _, pair := range db.Tables.RenamePairs() {
		assert.True(t, tableExists(t, db, pair.Old), pair.Old)
		assert.False(t, tableExists(t, db, pair.New), pair.New)
	}
	assert.False(t, tableExists(t, db, db.Tables.Participants()))
	assert.Equal(t, 0, testutil.Count(t, db, db.Tables.Options(), ""))
}

func TestRollback_RestoresLegacyTables(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupLegacyDB(t)
	seedLegacy(t, db)
	m := migration.New(db, migration.Options{})
	require.NoError(t, m.Run(ctx).Err())

	report := m.Rollback(ctx)
	require.NoError(t, report.Err(), report.Lines())
	assert.True(t, report.Rollback)

	for _, pair := range db.Tables.RenamePairs() {
		assert.True(t, tableExists(t, db, pair.Old), pair.Old)
		assert.False(t, tableExists(t, db, pair.New), pair.New)
	}
	assert.False(t, tableExists(t, db, db.Tables.Participants()))
	assert.Equal(t, 4, testutil.Count(t, db, db.Tables.LegacyQuizUsers(), ""))
	assert.Equal(t, 0, testutil.Count(t, db, db.Tables.Options(), "option_name = ?", "qcm_db_version"))

	// A second rollback has nothing left to do.
	again := m.Rollback(ctx)
	require.NoError(t, again.Err())
	assert.Zero(t, again.Count(migration.StatusDone))
}

func TestRollback_KeepsLegacyNameWhenOccupied(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupLegacyDB(t)
	m := migration.New(db, migration.Options{})
	require.NoError(t, m.Run(ctx).Err())

	// Something recreated the legacy users table after migrating.
	testutil.Exec(t, db, `CREATE TABLE `+db.Tables.LegacyQuizUsers()+` (id INTEGER PRIMARY KEY)`)

	report := m.Rollback(ctx)
	require.NoError(t, report.Err())
	assert.True(t, tableExists(t, db, db.Tables.QuizUsers()))
	assert.True(t, tableExists(t, db, db.Tables.LegacyCampaigns()))
}

func TestState(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupLegacyDB(t)
	m := migration.New(db, migration.Options{})

	before, err := m.State(ctx)
	require.NoError(t, err)
	assert.True(t, before.Pending())
	assert.Len(t, before.Tables, 4)
	assert.True(t, before.Tables[0].LegacyExists)
	assert.False(t, before.ParticipantsExists)

	require.NoError(t, m.Run(ctx).Err())

	after, err := m.State(ctx)
	require.NoError(t, err)
	assert.False(t, after.Pending())
	assert.Equal(t, migration.SchemaVersion, after.Version)
	assert.True(t, after.ParticipantsExists)
}
