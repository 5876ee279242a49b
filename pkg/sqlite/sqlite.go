package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

type Config struct {
	Path        string `split_words:"true" default:"data/taskchat.db"`
	BusyTimeout int    `split_words:"true" default:"5000"`
}

// New opens (or creates) the SQLite database at the configured path, ensuring
// the parent directory exists. WAL mode keeps concurrent readers off the
// writer's back; busy_timeout bounds lock waits instead of failing fast.
func (c *Config) New() (*sql.DB, error) {
	if dir := filepath.Dir(c.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on", c.Path, c.BusyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db at %s: %w", c.Path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db at %s: %w", c.Path, err)
	}

	return db, nil
}

func (c *Config) MustNew() *sql.DB {
	db, err := c.New()
	if err != nil {
		panic(err)
	}

	return db
}
