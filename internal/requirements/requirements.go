package requirements

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/kkkkikiki/quizgift/internal/config"
	"github.com/kkkkikiki/quizgift/internal/database"
)

// Result is the outcome of one check; Err is empty when the check passed
type Result struct {
	Name string
	Err  string
}

// Passed reports whether the check succeeded
func (r Result) Passed() bool { return r.Err == "" }

// Checker verifies that the host can run the plugin and its migration
type Checker struct {
	cfg       config.RequirementsConfig
	exportDir string
	db        *database.DB

	// Overridable for tests.
	RuntimeVersion func() string
	Drivers        func() []string
}

// NewChecker creates a checker. db may be nil, in which case the database checks fail.
func NewChecker(cfg *config.Config, db *database.DB) *Checker {
	return &Checker{
		cfg:            cfg.Requirements,
		exportDir:      cfg.App.ExportDir,
		db:             db,
		RuntimeVersion: runtime.Version,
		Drivers:        sql.Drivers,
	}
}

type check struct {
	name string
	fn   func(ctx context.Context) error
}

func (c *Checker) checks() []check {
	return []check{
		{"runtime", c.checkRuntime},
		{"database version", c.checkDatabaseVersion},
		{"drivers", c.checkDrivers},
		{"export directory", c.checkExportDir},
		{"create table privilege", c.checkCreateTable},
	}
}

// Results runs every check and returns one result per check
func (c *Checker) Results(ctx context.Context) []Result {
	checks := c.checks()
	results := make([]Result, 0, len(checks))
	for _, ch := range checks {
		r := Result{Name: ch.name}
		if err := ch.fn(ctx); err != nil {
			r.Err = err.Error()
		}
		results = append(results, r)
	}
	return results
}

// Run returns one message per failing check; an empty slice means every check passed
func (c *Checker) Run(ctx context.Context) []string {
	errs := []string{}
	for _, r := range c.Results(ctx) {
		if !r.Passed() {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

func (c *Checker) checkRuntime(context.Context) error {
	current := c.RuntimeVersion()
	ok, err := AtLeast(current, c.cfg.MinGoVersion)
	if err != nil {
		return fmt.Errorf("cannot compare Go version %q: %w", current, err)
	}
	if !ok {
		return fmt.Errorf("Go %s or newer is required, running %s", c.cfg.MinGoVersion, current)
	}
	return nil
}

func (c *Checker) minimumFor(driver string) (string, string) {
	switch driver {
	case config.DriverPostgres:
		return "PostgreSQL", c.cfg.MinPostgresVersion
	case config.DriverSQLite:
		return "SQLite", c.cfg.MinSQLiteVersion
	default:
		return "MySQL", c.cfg.MinMySQLVersion
	}
}

func (c *Checker) checkDatabaseVersion(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database connection is not available")
	}
	label, minimum := c.minimumFor(c.db.Dialect.Name())

	current, err := c.db.Dialect.ServerVersion(ctx, c.db.Conn)
	if err != nil {
		return fmt.Errorf("cannot read %s version: %w", label, err)
	}
	ok, err := AtLeast(current, minimum)
	if err != nil {
		return fmt.Errorf("cannot compare %s version %q: %w", label, current, err)
	}
	if !ok {
		return fmt.Errorf("%s %s or newer is required, server is %s", label, minimum, current)
	}
	return nil
}

func (c *Checker) checkDrivers(context.Context) error {
	required := c.cfg.RequiredDrivers
	if len(required) == 0 && c.db != nil {
		required = []string{c.db.Dialect.Name()}
	}

	registered := c.Drivers()
	var missing []string
	for _, name := range required {
		if !slices.Contains(registered, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required database drivers are not available: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Checker) checkExportDir(context.Context) error {
	if err := os.MkdirAll(c.exportDir, 0o755); err != nil {
		return fmt.Errorf("export directory %s cannot be created: %w", c.exportDir, err)
	}
	f, err := os.CreateTemp(c.exportDir, ".quizgift-probe-*")
	if err != nil {
		return fmt.Errorf("export directory %s is not writable: %w", c.exportDir, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(filepath.Clean(name))
	return nil
}

func (c *Checker) checkCreateTable(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database connection is not available")
	}
	table := c.db.Dialect.Quote(c.db.Tables.Prefix + "qcm_privilege_probe")

	if _, err := c.db.Conn.ExecContext(ctx, "CREATE TABLE "+table+" (id INT)"); err != nil {
		return fmt.Errorf("database user cannot create tables: %w", err)
	}
	if _, err := c.db.Conn.ExecContext(ctx, "DROP TABLE "+table); err != nil {
		return fmt.Errorf("database user cannot drop tables: %w", err)
	}
	return nil
}

// AtLeast reports whether version current is >= minimum. Both accept loose
// forms such as "go1.22.3", "8.0.36-0ubuntu0.22.04.1" or "5.7".
func AtLeast(current, minimum string) (bool, error) {
	cur := Canonical(current)
	if cur == "" {
		return false, fmt.Errorf("unrecognised version %q", current)
	}
	floor := Canonical(minimum)
	if floor == "" {
		return false, fmt.Errorf("unrecognised minimum version %q", minimum)
	}
	return semver.Compare(cur, floor) >= 0, nil
}

// Canonical converts a loose version string to a semver "vMAJOR.MINOR.PATCH",
// or "" when no leading numeric version can be found.
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "devel ")
	v = strings.TrimPrefix(v, "go")
	v = strings.TrimPrefix(v, "v")

	end := 0
	for end < len(v) && (v[end] == '.' || (v[end] >= '0' && v[end] <= '9')) {
		end++
	}
	v = strings.Trim(v[:end], ".")
	if v == "" {
		return ""
	}

	parts := strings.Split(v, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for _, p := range parts {
		if p == "" {
			return ""
		}
		// semver rejects leading zeros ("08").
		if len(p) > 1 && p[0] == '0' {
			return ""
		}
	}
	return semver.Canonical("v" + strings.Join(parts, "."))
}
