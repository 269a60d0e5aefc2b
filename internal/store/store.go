// Package store provides the Postgres persistence layer for the certificate
// registry, built on pgx. All handles are explicitly constructed and injected
// by the process entry point; there is no ambient global connection.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound marks a lookup for an id that does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the connection pool with the registry's queries.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on an established pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS certificates (
	id                BIGSERIAL PRIMARY KEY,
	name              TEXT        NOT NULL,
	valid_from        DATE,
	expiry_date       DATE        NOT NULL,
	email_address     TEXT,
	thumbprint        TEXT,
	notification_sent BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_certificates_expiry ON certificates (expiry_date);

CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT        NOT NULL UNIQUE,
	password_hash TEXT        NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
