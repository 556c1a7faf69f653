package credential

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository defines the durable storage contract for bridge credentials.
type Repository interface {
	Load(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, bridgeID, secret string) error
	Delete(ctx context.Context, bridgeID string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed credential repository.
// The bridge_credentials table is created by migrations.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Load reads all stored credentials keyed by bridge id.
func (r *SQLiteRepository) Load(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT bridge_id, secret FROM bridge_credentials`)
	if err != nil {
		return nil, fmt.Errorf("querying bridge_credentials: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	creds := make(map[string]string)
	for rows.Next() {
		var id, secret string
		if err := rows.Scan(&id, &secret); err != nil {
			return nil, fmt.Errorf("scanning credential row: %w", err)
		}
		creds[id] = secret
	}
	return creds, rows.Err()
}

// Upsert inserts or replaces the credential for a bridge. Re-pairing
// overwrites the previous secret.
func (r *SQLiteRepository) Upsert(ctx context.Context, bridgeID, secret string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bridge_credentials (bridge_id, secret, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(bridge_id) DO UPDATE SET secret = excluded.secret, updated_at = excluded.updated_at`,
		bridgeID, secret, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting credential for %s: %w", bridgeID, err)
	}
	return nil
}

// Delete removes the credential for a bridge.
func (r *SQLiteRepository) Delete(ctx context.Context, bridgeID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bridge_credentials WHERE bridge_id = ?`, bridgeID)
	if err != nil {
		return fmt.Errorf("deleting credential for %s: %w", bridgeID, err)
	}
	return nil
}
