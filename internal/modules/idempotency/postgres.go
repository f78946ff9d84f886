package idempotency

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type postgresStore struct{ db *sql.DB }

// NewPostgresStore returns a Store backed by the idempotency_keys table.
// Expiry is logical: expired rows are ignored on lookup and purged
// opportunistically on write.
func NewPostgresStore(db *sql.DB) Store { return &postgresStore{db: db} }

func (s *postgresStore) Lookup(ctx context.Context, hash string) (json.RawMessage, error) {
	var response []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT response FROM idempotency_keys
		WHERE request_hash = $1 AND expires_at > NOW()`, hash).Scan(&response)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (s *postgresStore) Save(ctx context.Context, hash string, response json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (request_hash, response, created_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (request_hash) DO NOTHING`,
		hash, []byte(response), time.Now().Add(TTL))
	if err != nil {
		return err
	}
	// Piggyback cleanup of expired keys on writes.
	_, _ = s.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE expires_at < NOW()`)
	return nil
}
