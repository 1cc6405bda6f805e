package requirements_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/quizgift/internal/config"
	"github.com/kkkkikiki/quizgift/internal/requirements"
	"github.com/kkkkikiki/quizgift/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{ExportDir: filepath.Join(t.TempDir(), "exports")},
		Requirements: config.RequirementsConfig{
			MinGoVersion:       "1.22",
			MinMySQLVersion:    "5.7",
			MinPostgresVersion: "12.0",
			MinSQLiteVersion:   "3.25",
		},
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"go1.22.3", "v1.22.3"},
		{"go1.23rc1", "v1.23.0"},
		{"devel go1.24-abcdef", "v1.24.0"},
		{"8.0.36-0ubuntu0.22.04.1", "v8.0.36"},
		{"10.11.6-MariaDB", "v10.11.6"},
		{"8.0.31-google", "v8.0.31"},
		{"15.4 (Ubuntu 15.4-1.pgdg22.04+1)", "v15.4.0"},
		{"5.7", "v5.7.0"},
		{"3.46.0", "v3.46.0"},
		{"1.2.3.4", "v1.2.3"},
		{"unknown", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, requirements.Canonical(tt.in))
		})
	}
}

func TestAtLeast(t *testing.T) {
	ok, err := requirements.AtLeast("8.0.36", "5.7")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = requirements.AtLeast("5.6.51-log", "5.7")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = requirements.AtLeast("5.7", "5.7")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = requirements.AtLeast("8.0.31-google", "5.7")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = requirements.AtLeast("nightly", "5.7")
	assert.Error(t, err)
}

func TestChecker_AllPass(t *testing.T) {
	db := testutil.OpenDB(t)
	checker := requirements.NewChecker(testConfig(t), db)
	checker.RuntimeVersion = func() string { return "go1.25.0" }

	assert.Empty(t, checker.Run(context.Background()))

	results := checker.Results(context.Background())
	assert.Len(t, results, 5)
	for _, r := range results {
		assert.True(t, r.Passed(), r.Name)
	}
}

func TestChecker_OneEntryPerFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Requirements.MinSQLiteVersion = "99.0"
	cfg.Requirements.RequiredDrivers = []string{"sqlite", "oracle", "mssql"}

	checker := requirements.NewChecker(cfg, testutil.OpenDB(t))
	checker.RuntimeVersion = func() string { return "go1.20.1" }

	errs := checker.Run(context.Background())
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "Go 1.22 or newer is required")
	assert.Contains(t, errs[1], "SQLite 99.0 or newer is required")
	assert.Contains(t, errs[2], "oracle, mssql")
}

func TestChecker_NoDatabase(t *testing.T) {
	checker := requirements.NewChecker(testConfig(t), nil)
	checker.RuntimeVersion = func() string { return "go1.25.0" }

	errs := checker.Run(context.Background())
	// database version and create table privilege
	assert.Len(t, errs, 2)
}

func TestChecker_ExportDirNotWritable(t *testing.T) {
	cfg := testConfig(t)
	// A regular file where the directory should be.
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.App.ExportDir = filepath.Join(blocker, "exports")

	checker := requirements.NewChecker(cfg, testutil.OpenDB(t))
	checker.RuntimeVersion = func() string { return "go1.25.0" }

	errs := checker.Run(context.Background())
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "export directory")
}

func TestChecker_DriversDefaultToConfiguredDialect(t *testing.T) {
	checker := requirements.NewChecker(testConfig(t), testutil.OpenDB(t))
	checker.RuntimeVersion = func() string { return "go1.25.0" }
	checker.Drivers = func() []string { return []string{"mysql"} }

	errs := checker.Run(context.Background())
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "sqlite")
}
