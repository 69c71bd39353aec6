package store

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Schema holds the DDL for the storefront tables. The partial unique index
// on orders.stripe_session_id is what makes fulfillment idempotent under
// concurrent duplicate webhook delivery.
const Schema = `
CREATE TABLE IF NOT EXISTS carts (
	owner_id   TEXT PRIMARY KEY,
	items      JSONB NOT NULL DEFAULT '[]',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cart_merge_tokens (
	owner_id   TEXT NOT NULL,
	token      TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (owner_id, token)
);

CREATE TABLE IF NOT EXISTS orders (
	id                TEXT PRIMARY KEY,
	owner_id          TEXT,
	email             TEXT,
	line_items        JSONB NOT NULL,
	subtotal          BIGINT NOT NULL,
	currency          TEXT NOT NULL,
	stripe_session_id TEXT,
	status            TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS orders_stripe_session_id_key
	ON orders (stripe_session_id)
	WHERE stripe_session_id IS NOT NULL;
`

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// EnsureSchema creates the storefront tables if they do not exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
