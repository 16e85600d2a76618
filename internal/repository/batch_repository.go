package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockroom/internal/domain"
)

// BatchRepository defines the interface for batch document access
type BatchRepository interface {
	Create(ctx context.Context, batch *domain.Batch) error
	FindByID(ctx context.Context, id string) (*domain.Batch, error)
	// List returns every batch, newest first
	List(ctx context.Context) ([]*domain.Batch, error)
	ListBySchool(ctx context.Context, schoolID string) ([]*domain.Batch, error)
	ListByStatus(ctx context.Context, status domain.BatchStatus) ([]*domain.Batch, error)
	Update(ctx context.Context, batch *domain.Batch) error
	UpdateStatus(ctx context.Context, id string, status domain.BatchStatus, updatedAt time.Time) error
	// Delete removes the batch and returns it as it was stored
	Delete(ctx context.Context, id string) (*domain.Batch, error)
}

const batchColumns = `data, status, created_at, updated_at`

type batchRepository struct {
	db dbtx
}

// NewBatchRepository creates a Postgres-backed BatchRepository
func NewBatchRepository(db *sql.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	query := `
		INSERT INTO batch_inventory (id, school_id, status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.ExecContext(ctx, query,
		batch.ID,
		nullable(batch.SchoolID),
		string(batch.Status),
		data,
		batch.CreatedAt,
		batch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

func (r *batchRepository) FindByID(ctx context.Context, id string) (*domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batch_inventory WHERE id = $1`

	batch, err := scanBatch(id, r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find batch: %w", err)
	}
	return batch, nil
}

func (r *batchRepository) List(ctx context.Context) ([]*domain.Batch, error) {
	return r.list(ctx, `SELECT id, `+batchColumns+` FROM batch_inventory ORDER BY created_at DESC, id`)
}

func (r *batchRepository) ListBySchool(ctx context.Context, schoolID string) ([]*domain.Batch, error) {
	return r.list(ctx, `SELECT id, `+batchColumns+` FROM batch_inventory WHERE school_id = $1 ORDER BY created_at DESC, id`, schoolID)
}

func (r *batchRepository) ListByStatus(ctx context.Context, status domain.BatchStatus) ([]*domain.Batch, error) {
	return r.list(ctx, `SELECT id, `+batchColumns+` FROM batch_inventory WHERE status = $1 ORDER BY created_at DESC, id`, string(status))
}

func (r *batchRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Batch, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	batches := []*domain.Batch{}
	for rows.Next() {
		var id string
		var data []byte
		var status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &data, &status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batch, err := decodeBatch(id, data, status, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}
	return batches, nil
}

func (r *batchRepository) Update(ctx context.Context, batch *domain.Batch) error {
	if err := updateBatch(ctx, r.db, batch); err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			return err
		}
		return fmt.Errorf("failed to update batch: %w", err)
	}
	return nil
}

func (r *batchRepository) UpdateStatus(ctx context.Context, id string, status domain.BatchStatus, updatedAt time.Time) error {
	query := `
		UPDATE batch_inventory
		SET status = $2,
		    data = jsonb_set(data, '{status}', to_jsonb($2::text)),
		    updated_at = $3
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, string(status), updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}
	return checkAffected(result, ErrBatchNotFound)
}

func (r *batchRepository) Delete(ctx context.Context, id string) (*domain.Batch, error) {
	query := `DELETE FROM batch_inventory WHERE id = $1 RETURNING ` + batchColumns

	batch, err := scanBatch(id, r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete batch: %w", err)
	}
	return batch, nil
}

func updateBatch(ctx context.Context, db dbtx, batch *domain.Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	query := `
		UPDATE batch_inventory
		SET school_id = $2, status = $3, data = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := db.ExecContext(ctx, query,
		batch.ID,
		nullable(batch.SchoolID),
		string(batch.Status),
		data,
		batch.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return checkAffected(result, ErrBatchNotFound)
}

func scanBatch(id string, row scanner) (*domain.Batch, error) {
	var data []byte
	var status string
	var createdAt, updatedAt time.Time
	if err := row.Scan(&data, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return decodeBatch(id, data, status, createdAt, updatedAt)
}

// decodeBatch lets the columns win over whatever the document carries
func decodeBatch(id string, data []byte, status string, createdAt, updatedAt time.Time) (*domain.Batch, error) {
	var batch domain.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode batch %s: %w", id, err)
	}
	batch.ID = id
	batch.Status = domain.BatchStatus(status)
	batch.CreatedAt = createdAt
	batch.UpdatedAt = updatedAt
	return &batch, nil
}
