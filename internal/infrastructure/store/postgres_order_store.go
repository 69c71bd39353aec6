package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/storefront/internal/domain/order"
)

// PostgresOrderStore implements order.Repository on PostgreSQL. The insert
// relies on the partial unique index on stripe_session_id for idempotency;
// a check-then-insert in application code would race against concurrent
// duplicate webhook delivery.
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

func (s *PostgresOrderStore) CreateIdempotent(ctx context.Context, o *order.Order) (bool, error) {
	itemsJSON, err := json.Marshal(o.LineItems)
	if err != nil {
		return false, fmt.Errorf("failed to marshal line items: %w", err)
	}

	sessionID := sql.NullString{String: o.StripeSessionID, Valid: o.StripeSessionID != ""}
	ownerID := sql.NullString{String: o.OwnerID, Valid: o.OwnerID != ""}
	email := sql.NullString{String: o.Email, Valid: o.Email != ""}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, owner_id, email, line_items, subtotal, currency, stripe_session_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (stripe_session_id) WHERE stripe_session_id IS NOT NULL DO NOTHING
	`, o.ID, ownerID, email, itemsJSON, o.Subtotal, o.Currency, sessionID, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresOrderStore) GetBySessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, email, line_items, subtotal, currency, stripe_session_id, status, created_at, updated_at
		FROM orders
		WHERE stripe_session_id = $1
	`, sessionID)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return o, nil
}

func (s *PostgresOrderStore) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, email, line_items, subtotal, currency, stripe_session_id, status, created_at, updated_at
		FROM orders
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o         order.Order
		ownerID   sql.NullString
		email     sql.NullString
		sessionID sql.NullString
		itemsJSON []byte
		status    string
	)
	err := row.Scan(&o.ID, &ownerID, &email, &itemsJSON, &o.Subtotal, &o.Currency, &sessionID, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.LineItems); err != nil {
		return nil, err
	}
	o.OwnerID = ownerID.String
	o.Email = email.String
	o.StripeSessionID = sessionID.String
	o.Status = order.Status(status)
	return &o, nil
}
