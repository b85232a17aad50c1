package ratelimit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const stateFileName = "ratelimit.db"

// StateDir resolves the directory holding the shared counter database:
// EPR_STATE_DIR if set, otherwise ~/.epr.
func StateDir() (string, error) {
	if dir := os.Getenv("EPR_STATE_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".epr"), nil
}

// SQLiteCounter is a Counter backed by a SQLite file so the call count
// survives process restarts and is shared between interleaved runs.
type SQLiteCounter struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the counter database in dir.
func OpenStore(dir string) (*SQLiteCounter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, stateFileName))
	if err != nil {
		return nil, fmt.Errorf("opening counter database: %w", err)
	}

	// SQLite is single-writer; limit the pool to one connection to avoid
	// lock contention between interleaved runs.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS rate_counter (
		id    INTEGER PRIMARY KEY CHECK (id = 1),
		calls INTEGER NOT NULL DEFAULT 0
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating counter table: %w", err)
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO rate_counter (id, calls) VALUES (1, 0)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding counter row: %w", err)
	}

	return &SQLiteCounter{db: db}, nil
}

// Increment atomically adds one call and returns the new total.
func (c *SQLiteCounter) Increment() (int, error) {
	var n int
	err := c.db.QueryRow(`UPDATE rate_counter SET calls = calls + 1 WHERE id = 1 RETURNING calls`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("incrementing call counter: %w", err)
	}
	return n, nil
}

// Value returns the current call count.
func (c *SQLiteCounter) Value() (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT calls FROM rate_counter WHERE id = 1`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("reading call counter: %w", err)
	}
	return n, nil
}

// Reset sets the call count back to zero.
func (c *SQLiteCounter) Reset() error {
	if _, err := c.db.Exec(`UPDATE rate_counter SET calls = 0 WHERE id = 1`); err != nil {
		return fmt.Errorf("resetting call counter: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *SQLiteCounter) Close() error {
	return c.db.Close()
}
