package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/testutil"
)

func TestDialectFor(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		d, err := database.DialectFor(driver)
		require.NoError(t, err)
		assert.Equal(t, driver, d.Name())
	}

	_, err := database.DialectFor("mssql")
	assert.Error(t, err)
}

func TestRenameTableSQL(t *testing.T) {
	mysql, _ := database.DialectFor("mysql")
	assert.Equal(t, "RENAME TABLE `wp_a` TO `wp_b`", mysql.RenameTableSQL("wp_a", "wp_b"))

	pg, _ := database.DialectFor("postgres")
	assert.Equal(t, `ALTER TABLE "wp_a" RENAME TO "wp_b"`, pg.RenameTableSQL("wp_a", "wp_b"))
	assert.Equal(t, `"we""ird"`, pg.Quote(`we"ird`))
}

func TestSQLiteCatalog(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	d := db.Dialect
	participants := db.Tables.Participants()

	exists, err := d.TableExists(ctx, db.Conn, participants)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = d.TableExists(ctx, db.Conn, db.Tables.LegacyQuizUsers())
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = d.ColumnExists(ctx, db.Conn, participants, "gift_id")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = d.ColumnExists(ctx, db.Conn, participants, "nope")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = d.IndexExists(ctx, db.Conn, participants, "idx_missing")
	require.NoError(t, err)
	assert.False(t, exists)

	version, err := d.ServerVersion(ctx, db.Conn)
	require.NoError(t, err)
	assert.NotEmpty(t, version)
}

func TestInstallSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)

	require.NoError(t, db.InstallSchema(ctx))
	assert.Equal(t, 0, testutil.Count(t, db, db.Tables.Campaigns(), ""))
}
