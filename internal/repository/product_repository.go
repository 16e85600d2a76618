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

// ProductRepository defines the interface for product document access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, sortOrder SortOrder) ([]*domain.Product, error)
}

type productRepository struct {
	db dbtx
}

// NewProductRepository creates a Postgres-backed ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product document using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}

	query := `
		INSERT INTO products (id, school_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.db.ExecContext(ctx, query,
		product.ID,
		nullable(product.SchoolID),
		data,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update replaces the stored product document
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	if err := updateProduct(ctx, r.db, product); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if err := checkAffected(result, ErrProductNotFound); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT data, created_at, updated_at FROM products WHERE id = $1`

	product, err := scanProduct(id, r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return product, nil
}

func (r *productRepository) List(ctx context.Context, sortOrder SortOrder) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT id, data, created_at, updated_at FROM products ORDER BY created_at %s, id`, sortOrder.sql())

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		var id string
		var data []byte
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &data, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		product, err := decodeProduct(id, data, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func updateProduct(ctx context.Context, db dbtx, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}

	query := `
		UPDATE products
		SET school_id = $2, data = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := db.ExecContext(ctx, query,
		product.ID,
		nullable(product.SchoolID),
		data,
		product.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return checkAffected(result, ErrProductNotFound)
}

func scanProduct(id string, row scanner) (*domain.Product, error) {
	var data []byte
	var createdAt, updatedAt time.Time
	if err := row.Scan(&data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return decodeProduct(id, data, createdAt, updatedAt)
}

func decodeProduct(id string, data []byte, createdAt, updatedAt time.Time) (*domain.Product, error) {
	var product domain.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %w", id, err)
	}
	product.ID = id
	product.CreatedAt = createdAt
	product.UpdatedAt = updatedAt
	return &product, nil
}
