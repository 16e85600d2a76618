package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stockroom/internal/domain"
)

// TransferFunc mutates a locked batch and product in place. A nil argument
// means the document does not exist. Returning an error discards every change.
type TransferFunc func(batch *domain.Batch, product *domain.Product) error

// TransferStore applies read-modify-write updates across a batch and a product atomically
type TransferStore interface {
	ApplyTransfer(ctx context.Context, batchID, productID string, fn TransferFunc) error
}

type transferStore struct {
	db *sql.DB
}

// NewTransferStore creates a Postgres-backed TransferStore. Rows are locked
// batch first, then product, so concurrent transfers cannot deadlock.
func NewTransferStore(db *sql.DB) TransferStore {
	return &transferStore{db: db}
}

func (s *transferStore) ApplyTransfer(ctx context.Context, batchID, productID string, fn TransferFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	batch, err := scanBatch(batchID, tx.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM batch_inventory WHERE id = $1 FOR UPDATE`, batchID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to lock batch: %w", err)
	}

	product, err := scanProduct(productID, tx.QueryRowContext(ctx,
		`SELECT data, created_at, updated_at FROM products WHERE id = $1 FOR UPDATE`, productID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to lock product: %w", err)
	}

	if err := fn(batch, product); err != nil {
		return err
	}

	if batch != nil {
		if err := updateBatch(ctx, tx, batch); err != nil {
			return fmt.Errorf("failed to write batch: %w", err)
		}
	}
	if product != nil {
		if err := updateProduct(ctx, tx, product); err != nil {
			return fmt.Errorf("failed to write product: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	return nil
}
