// Package postcache provides a SQLite-backed write-back cache for social post
// aggregates.
//
// Mutations are queued in memory with AddPost and RemovePosts and applied in a
// single transaction by Flush. Posts reloads every stored aggregate, newest
// first. A Cache has one logical owner; callers that share it between
// goroutines must serialize access themselves.
package postcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/eunmann/postcache/pkg/logging"
	_ "github.com/mattn/go-sqlite3"
)

// Config holds configuration for the post cache database.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
	// Synchronous sets the SQLite synchronous pragma: "OFF", "NORMAL" or "FULL".
	// Empty leaves the SQLite default.
	Synchronous string
	// BusyTimeoutMs is how long SQLite waits on a locked database before
	// failing a statement.
	BusyTimeoutMs int
}

// DefaultConfig returns the default configuration for dbPath.
func DefaultConfig(dbPath string) Config {
	return Config{
		DBPath:        dbPath,
		Synchronous:   "NORMAL",
		BusyTimeoutMs: 5000,
	}
}

// Validate checks configuration values and returns an error for invalid settings.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("DBPath is required")
	}
	switch c.Synchronous {
	case "", "OFF", "NORMAL", "FULL":
	default:
		return fmt.Errorf("invalid Synchronous value %q: must be OFF, NORMAL, or FULL", c.Synchronous)
	}
	if c.BusyTimeoutMs < 0 {
		return fmt.Errorf("BusyTimeoutMs must be non-negative, got %d", c.BusyTimeoutMs)
	}
	return nil
}

// dsn builds the go-sqlite3 connection string. Pragmas go in the DSN so
// every pooled connection gets them, not only the first.
func (c *Config) dsn() string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", strconv.Itoa(c.BusyTimeoutMs))
	if c.Synchronous != "" {
		params.Set("_synchronous", c.Synchronous)
	}
	return c.DBPath + "?" + params.Encode()
}

// Cache is a post cache bound to one SQLite database.
type Cache struct {
	db    *sql.DB
	cfg   Config
	queue *Queue

	// Read statements, prepared once at Open and reused by Posts.
	postStmt    *sql.Stmt
	imageStmt   *sql.Stmt
	extraStmt   *sql.Stmt
	accountStmt *sql.Stmt
}

// Open opens or creates the cache database, upgrades its schema if needed,
// and prepares the read statements.
func Open(ctx context.Context, cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logging.WithPhase("postcache_open")

	db, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite database: %w", err)
	}

	dropped, err := migrateSchema(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	c := &Cache{
		db:    db,
		cfg:   cfg,
		queue: NewQueue(),
	}
	if err := c.prepareReads(ctx); err != nil {
		c.Close()
		return nil, err
	}

	log.Info().
		Str("db_path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Bool("schema_recreated", dropped).
		Msg("opened post cache")

	return c, nil
}

func (c *Cache) prepareReads(ctx context.Context) error {
	stmts := []struct {
		dst   **sql.Stmt
		query string
		what  string
	}{
		{&c.postStmt, "SELECT identifier, name, body, timestamp FROM posts ORDER BY timestamp DESC", "posts"},
		{&c.imageStmt, "SELECT position, url, type FROM images WHERE postId = ? ORDER BY position", "images"},
		{&c.extraStmt, "SELECT key, value FROM extra WHERE postId = ?", "extra"},
		{&c.accountStmt, "SELECT account FROM link_post_account WHERE postId = ? ORDER BY account", "accounts"},
	}
	for _, s := range stmts {
		stmt, err := c.db.PrepareContext(ctx, s.query)
		if err != nil {
			return fmt.Errorf("prepare %s query: %w", s.what, err)
		}
		*s.dst = stmt
	}
	return nil
}

// Close closes the prepared statements and the database. Queued mutations
// that were never flushed are discarded.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	// Statement close errors are ignored; closing the DB releases them anyway.
	for _, stmt := range []**sql.Stmt{&c.postStmt, &c.imageStmt, &c.extraStmt, &c.accountStmt} {
		if *stmt != nil {
			_ = (*stmt).Close()
			*stmt = nil
		}
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// DB exposes the underlying database for read-only inspection.
func (c *Cache) DB() *sql.DB {
	return c.db
}

// AddPost queues an upsert of a post. See Queue.AddPost.
func (c *Cache) AddPost(id, name, body string, timestamp time.Time, icon string, gallery []PostImage, extra map[string]any, account int) {
	c.queue.AddPost(id, name, body, timestamp, icon, gallery, extra, account)
}

// Enqueue queues a fully built post. See Queue.Enqueue.
func (c *Cache) Enqueue(post Post, accounts ...int) {
	c.queue.Enqueue(post, accounts...)
}

// RemovePosts queues removal of every post linked to account.
func (c *Cache) RemovePosts(account int) {
	c.queue.RemovePosts(account)
}

// Pending returns counts of queued, unflushed work.
func (c *Cache) Pending() PendingCounts {
	return c.queue.Pending()
}
