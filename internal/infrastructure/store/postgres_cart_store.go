package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/storefront/internal/domain/cart"
)

// PostgresCartStore implements cart.Repository on PostgreSQL. Carts are
// keyed uniquely by owner id and written with full upserts.
type PostgresCartStore struct {
	db *sql.DB
}

func NewPostgresCartStore(db *sql.DB) *PostgresCartStore {
	return &PostgresCartStore{db: db}
}

func (s *PostgresCartStore) Get(ctx context.Context, ownerID string) (*cart.Cart, error) {
	var (
		itemsJSON []byte
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT items, updated_at FROM carts WHERE owner_id = $1`,
		ownerID,
	).Scan(&itemsJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var items []cart.Item
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart items: %w", err)
	}
	return &cart.Cart{OwnerID: ownerID, Items: items, UpdatedAt: updatedAt}, nil
}

func (s *PostgresCartStore) Save(ctx context.Context, c *cart.Cart) error {
	items := c.Items
	if items == nil {
		items = []cart.Item{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO carts (owner_id, items, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE SET
			items = EXCLUDED.items,
			updated_at = EXCLUDED.updated_at
	`, c.OwnerID, itemsJSON, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *PostgresCartStore) Delete(ctx context.Context, ownerID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (s *PostgresCartStore) SeenMergeToken(ctx context.Context, ownerID, token string) (bool, error) {
	var seen bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM cart_merge_tokens
			WHERE owner_id = $1 AND token = $2 AND expires_at > now()
		)
	`, ownerID, token).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("failed to check merge token: %w", err)
	}
	return seen, nil
}

func (s *PostgresCartStore) RecordMergeToken(ctx context.Context, ownerID, token string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_merge_tokens (owner_id, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, token) DO NOTHING
	`, ownerID, token, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("failed to record merge token: %w", err)
	}
	return nil
}
