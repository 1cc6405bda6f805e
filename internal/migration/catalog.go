package migration

import (
	"context"

	"github.com/kkkkikiki/quizgift/internal/database"
)

// catalog answers existence questions. In a dry run it overlays the changes
// earlier steps would have made, so later guards see the planned schema.
type catalog struct {
	db      *database.DB
	dryRun  bool
	renamed map[string]string // new name -> physical name
	created map[string]bool
	dropped map[string]bool
}

func newCatalog(db *database.DB, dryRun bool) *catalog {
	return &catalog{
		db:      db,
		dryRun:  dryRun,
		renamed: map[string]string{},
		created: map[string]bool{},
		dropped: map[string]bool{},
	}
}

func (c *catalog) physical(table string) string {
	if old, ok := c.renamed[table]; ok {
		return old
	}
	return table
}

func (c *catalog) tableExists(ctx context.Context, table string) (bool, error) {
	if c.created[table] {
		return true, nil
	}
	if c.dropped[table] {
		return false, nil
	}
	return c.db.Dialect.TableExists(ctx, c.db.Conn, c.physical(table))
}

func (c *catalog) columnExists(ctx context.Context, table, column string) (bool, error) {
	if c.created[table] {
		return false, nil
	}
	return c.db.Dialect.ColumnExists(ctx, c.db.Conn, c.physical(table), column)
}

func (c *catalog) indexExists(ctx context.Context, table, index string) (bool, error) {
	if c.created[table] {
		return false, nil
	}
	return c.db.Dialect.IndexExists(ctx, c.db.Conn, c.physical(table), index)
}

// planRename and planCreate are no-ops outside dry runs; the real catalog already reflects executed DDL.
func (c *catalog) planRename(from, to string) {
	if !c.dryRun {
		return
	}
	c.renamed[to] = c.physical(from)
	c.dropped[from] = true
	delete(c.dropped, to)
}

func (c *catalog) planCreate(table string) {
	if !c.dryRun {
		return
	}
	c.created[table] = true
	delete(c.dropped, table)
}

func (c *catalog) planDrop(table string) {
	if !c.dryRun {
		return
	}
	delete(c.created, table)
	c.dropped[table] = true
}
