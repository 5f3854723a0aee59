// Package persist stores the core's serialized containers as versioned
// stable regions in Postgres. Each region is one row: a name, a schema
// version and the JSON payload. On startup the registered migrations bring
// old payloads up to the current version before the core restores them; on
// shutdown the current containers are written back in one transaction.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"skillscope/internal/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS stable_regions (
	name       TEXT PRIMARY KEY,
	version    INT NOT NULL,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// advisoryLockKey serializes concurrent saves across instances. Load does
// not take it.
const advisoryLockKey = 824119306

// Store reads and writes stable regions.
type Store struct {
	db       database.DB
	logger   *log.Logger
	registry *Registry
}

func New(db database.DB, registry *Registry, logger *log.Logger) *Store {
	return &Store{db: db, logger: logger, registry: registry}
}

// EnsureSchema creates the stable_regions table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

// Save writes every region payload at its current version inside one
// transaction, so a crash mid-save never leaves a mixed snapshot.
func (s *Store) Save(ctx context.Context, regions map[string]json.RawMessage) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockKey); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	for name, payload := range regions {
		version := s.registry.CurrentVersion(name)
		if _, err = tx.Exec(ctx, `
			INSERT INTO stable_regions (name, version, payload, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (name) DO UPDATE
			SET version = EXCLUDED.version, payload = EXCLUDED.payload, updated_at = now()`,
			name, version, []byte(payload),
		); err != nil {
			return fmt.Errorf("save region %s: %w", name, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	if s.logger != nil {
		s.logger.Printf("snapshot saved regions=%d", len(regions))
	}
	return nil
}

// Load reads every stored region and migrates each payload to the current
// version. A failed migration is fatal: the caller must abort startup rather
// than run against half-understood state.
func (s *Store) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.Query(ctx, `SELECT name, version, payload FROM stable_regions`)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var (
			name    string
			version int
			payload []byte
		)
		if err := rows.Scan(&name, &version, &payload); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		migrated, err := s.registry.Apply(name, version, payload)
		if err != nil {
			return nil, fmt.Errorf("migrate region %s from v%d: %w", name, version, err)
		}
		out[name] = migrated
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	if s.logger != nil {
		s.logger.Printf("snapshot loaded regions=%d", len(out))
	}
	return out, nil
}
