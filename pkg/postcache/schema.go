package postcache

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is stamped into PRAGMA user_version by CreateSchema.
// Bump it whenever a table definition changes.
const SchemaVersion = 1

// Table names.
const (
	tablePosts  = "posts"
	tableImages = "images"
	tableExtra  = "extra"
	tableLinks  = "link_post_account"
)

// schemaTables lists table DDL in creation order.
var schemaTables = []struct {
	name string
	ddl  string
}{
	{tablePosts, `
		CREATE TABLE IF NOT EXISTS posts (
			identifier TEXT UNIQUE PRIMARY KEY,
			name TEXT,
			body TEXT,
			timestamp INTEGER
		)`},
	{tableImages, `
		CREATE TABLE IF NOT EXISTS images (
			postId TEXT,
			position INTEGER,
			url TEXT,
			type TEXT
		)`},
	{tableExtra, `
		CREATE TABLE IF NOT EXISTS extra (
			postId TEXT,
			key TEXT,
			value TEXT
		)`},
	{tableLinks, `
		CREATE TABLE IF NOT EXISTS link_post_account (
			postId TEXT,
			account INTEGER,
			CONSTRAINT id PRIMARY KEY (postId, account)
		)`},
}

// dropOrder lists tables in the order DropSchema removes them.
var dropOrder = []string{tablePosts, tableImages, tableExtra, tableLinks}

// CreateSchema creates the four cache tables if absent and stamps
// SchemaVersion. It stops at the first failing statement.
func (c *Cache) CreateSchema(ctx context.Context) error {
	if c.db == nil {
		return ErrClosed
	}
	return createSchema(ctx, c.db)
}

// DropSchema drops the four cache tables if present. It stops at the first
// failing statement.
func (c *Cache) DropSchema(ctx context.Context) error {
	if c.db == nil {
		return ErrClosed
	}
	return dropSchema(ctx, c.db)
}

// StoredVersion returns the schema version recorded in the database, or 0
// if none was ever stamped.
func (c *Cache) StoredVersion(ctx context.Context) (int, error) {
	if c.db == nil {
		return 0, ErrClosed
	}
	return storedVersion(ctx, c.db)
}

func createSchema(ctx context.Context, db *sql.DB) error {
	for _, t := range schemaTables {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create %s table: %w", t.name, err)
		}
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	return nil
}

func dropSchema(ctx context.Context, db *sql.DB) error {
	for _, name := range dropOrder {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
			return fmt.Errorf("drop %s table: %w", name, err)
		}
	}
	return nil
}

func storedVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// migrateSchema brings the database to SchemaVersion. Older caches are
// dropped and recreated; the cache holds nothing that cannot be refetched.
func migrateSchema(ctx context.Context, db *sql.DB) (dropped bool, err error) {
	v, err := storedVersion(ctx, db)
	if err != nil {
		return false, err
	}
	if v > SchemaVersion {
		return false, fmt.Errorf("%w: database has %d, this build supports %d", ErrSchemaVersion, v, SchemaVersion)
	}
	if v != 0 && v != SchemaVersion {
		if err := dropSchema(ctx, db); err != nil {
			return false, err
		}
		dropped = true
	}
	if err := createSchema(ctx, db); err != nil {
		return dropped, err
	}
	return dropped, nil
}
