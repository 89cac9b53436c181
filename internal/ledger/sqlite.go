package ledger

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	_ "modernc.org/sqlite"
)

// SQLite is a ledger backed by a single-table SQLite database. Keys are
// still held fully in memory; the database is the durable copy.
type SQLite struct {
	db   *sql.DB
	keys map[string]struct{}
	log  *slog.Logger
}

// OpenSQLite opens (creating if needed) the ledger database at path. A
// database that opens but cannot be read starts the ledger empty with a
// warning, matching the file backend's availability-over-strictness choice.
func OpenSQLite(path string, log *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS applied_keys (key TEXT PRIMARY KEY)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: init %s: %w", path, err)
	}

	l := &SQLite{db: db, keys: make(map[string]struct{}), log: log}
	rows, err := db.Query(`SELECT key FROM applied_keys`)
	if err != nil {
		log.Warn("ledger table unreadable, starting empty", "path", path, "err", err)
		return l, nil
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			log.Warn("ledger row unreadable, skipping", "err", err)
			continue
		}
		l.keys[k] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		log.Warn("ledger scan incomplete", "path", path, "err", err)
	}
	return l, nil
}

func (l *SQLite) Close() error { return l.db.Close() }

func (l *SQLite) Has(key string) bool {
	_, ok := l.keys[key]
	return ok
}

func (l *SQLite) Add(key string) error {
	if _, ok := l.keys[key]; ok {
		return nil
	}
	l.keys[key] = struct{}{}
	if _, err := l.db.Exec(`INSERT OR IGNORE INTO applied_keys(key) VALUES (?)`, key); err != nil {
		return fmt.Errorf("ledger: persist %q: %w", key, err)
	}
	return nil
}

func (l *SQLite) Len() int { return len(l.keys) }

func (l *SQLite) Keys() []string {
	out := make([]string, 0, len(l.keys))
	for k := range l.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
