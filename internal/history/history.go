// Package history is an optional Postgres audit trail of apply attempts.
// The ledger answers "was this reservation applied"; history answers "what
// happened, when, and why did it fail".
package history

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed *.sql
var migrations embed.FS

// Attempt is one recorded apply outcome.
type Attempt struct {
	ID             int64
	ReservationKey string
	PatientName    string
	Applied        bool
	Reason         string
	AttemptedAt    time.Time
}

type Repo struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, databaseURL string) (*Repo, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() {
	r.pool.Close()
}

func (r *Repo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.pool.Ping(ctx)
}

// Migrate applies the embedded schema files in name order, tracked in a
// schema_migrations table so reruns are no-ops.
func (r *Repo) Migrate(ctx context.Context) error {
	entries, err := migrations.ReadDir(".")
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY);`); err != nil {
		return err
	}
	for _, f := range files {
		var applied bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, f).Scan(&applied); err != nil {
			return err
		}
		if applied {
			continue
		}
		b, err := migrations.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := r.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := r.pool.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES ($1)`, f); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) RecordAttempt(ctx context.Context, key, name string, applied bool, reason string) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO apply_attempts(reservation_key, patient_name, applied, reason)
VALUES ($1,$2,$3,$4)`, key, name, applied, reason)
	return err
}

// RecordCycle stores one reconciliation pass summary.
func (r *Repo) RecordCycle(ctx context.Context, extracted, applied, failed, skipped int) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO reconcile_cycles(extracted, applied, failed, skipped)
VALUES ($1,$2,$3,$4)`, extracted, applied, failed, skipped)
	return err
}

// RecentAttempts returns the newest attempts first.
func (r *Repo) RecentAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, reservation_key, patient_name, applied, reason, attempted_at
FROM apply_attempts
ORDER BY attempted_at DESC, id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.ReservationKey, &a.PatientName, &a.Applied, &a.Reason, &a.AttemptedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
