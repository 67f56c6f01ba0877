package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS publication_records (
	seq BIGSERIAL PRIMARY KEY,
	id VARCHAR(64) UNIQUE NOT NULL,
	url TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL,
	fingerprint TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_publication_records_url ON publication_records(url);

CREATE TABLE IF NOT EXISTS published_urls (
	seq BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL
);
`

// PostgresStore keeps the ledger in PostgreSQL, for deployments where the
// runner's filesystem does not survive between invocations.
type PostgresStore struct {
	sqlStore
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects, pings and initializes the schema.
func NewPostgresStore(ctx context.Context, connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresStore{sqlStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}}, nil
}
