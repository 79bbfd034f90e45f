package postcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// openTestCache opens a cache in a fresh temp directory and closes it when
// the test ends.
func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(context.Background(), DefaultConfig(filepath.Join(t.TempDir(), "posts.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// countRows returns the number of rows in table, optionally filtered by a
// WHERE clause.
func countRows(t *testing.T, c *Cache, table, where string, args ...any) int {
	t.Helper()
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	if err := c.DB().QueryRow(q, args...).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func tableExists(t *testing.T, c *Cache, table string) bool {
	t.Helper()
	var n int
	err := c.DB().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		t.Fatalf("check table %s: %v", table, err)
	}
	return n == 1
}

func TestOpenClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "posts.db")

	c, err := Open(context.Background(), DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for _, table := range []string{"posts", "images", "extra", "link_post_account"} {
		if !tableExists(t, c, table) {
			t.Errorf("table %s not created", table)
		}
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestClosedCache(t *testing.T) {
	c, err := Open(context.Background(), DefaultConfig(filepath.Join(t.TempDir(), "posts.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	c.Close()

	ctx := context.Background()
	if err := c.Flush(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush after Close = %v, want ErrClosed", err)
	}
	if _, err := c.Posts(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Posts after Close = %v, want ErrClosed", err)
	}
	if err := c.CreateSchema(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateSchema after Close = %v, want ErrClosed", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid default config", DefaultConfig("/tmp/posts.db"), false},
		{"empty db path", Config{}, true},
		{"invalid synchronous", Config{DBPath: "/tmp/posts.db", Synchronous: "SOMETIMES"}, true},
		{"negative busy timeout", Config{DBPath: "/tmp/posts.db", BusyTimeoutMs: -1}, true},
		{"empty synchronous", Config{DBPath: "/tmp/posts.db"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestSchema_CreateDropIdempotent(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	if err := c.CreateSchema(ctx); err != nil {
		t.Fatalf("second CreateSchema failed: %v", err)
	}

	v, err := c.StoredVersion(ctx)
	if err != nil {
		t.Fatalf("StoredVersion failed: %v", err)
	}
	if v != SchemaVersion {
		t.Errorf("StoredVersion = %d, want %d", v, SchemaVersion)
	}

	for i := 0; i < 2; i++ {
		if err := c.DropSchema(ctx); err != nil {
			t.Fatalf("DropSchema #%d failed: %v", i+1, err)
		}
	}
	for _, table := range []string{"posts", "images", "extra", "link_post_account"} {
		if tableExists(t, c, table) {
			t.Errorf("table %s still present after DropSchema", table)
		}
	}

	if err := c.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema after drop failed: %v", err)
	}
	if !tableExists(t, c, "posts") {
		t.Error("posts table missing after recreate")
	}
}

func TestOpen_RecreatesOutdatedSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "posts.db")
	ctx := context.Background()

	c, err := Open(ctx, DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := c.DB().Exec("INSERT INTO posts (identifier, name, body, timestamp) VALUES ('old', '', '', 1)"); err != nil {
		t.Fatalf("seed row: %v", err)
	}
	if _, err := c.DB().Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("reset version: %v", err)
	}
	c.Close()

	// Unversioned databases keep their rows.
	c, err = Open(ctx, DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if n := countRows(t, c, "posts", ""); n != 1 {
		t.Fatalf("posts = %d after reopening unversioned db, want 1", n)
	}
	if _, err := c.DB().Exec("PRAGMA user_version = -1"); err != nil {
		t.Fatalf("set old version: %v", err)
	}
	c.Close()

	c, err = Open(ctx, DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer c.Close()
	if n := countRows(t, c, "posts", ""); n != 0 {
		t.Errorf("posts = %d after upgrade, want 0 (tables recreated)", n)
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "posts.db")
	ctx := context.Background()

	c, err := Open(ctx, DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := c.DB().Exec("PRAGMA user_version = 1000"); err != nil {
		t.Fatalf("set version: %v", err)
	}
	c.Close()

	if _, err := Open(ctx, DefaultConfig(dbPath)); !errors.Is(err, ErrSchemaVersion) {
		t.Errorf("Open = %v, want ErrSchemaVersion", err)
	}
}
