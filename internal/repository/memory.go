package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stockroom/internal/domain"
)

// MemoryDocuments is an in-process document store implementing every
// repository interface. One mutex guards both collections, which makes
// ApplyTransfer atomic with respect to all other writes.
type MemoryDocuments struct {
	mu       sync.Mutex
	batches  map[string]*domain.Batch
	products map[string]*domain.Product
}

func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{
		batches:  make(map[string]*domain.Batch),
		products: make(map[string]*domain.Product),
	}
}

func (d *MemoryDocuments) Batches() BatchRepository     { return memoryBatches{d} }
func (d *MemoryDocuments) Products() ProductRepository { return memoryProducts{d} }
func (d *MemoryDocuments) Transfers() TransferStore    { return memoryTransfers{d} }

type memoryBatches struct{ d *MemoryDocuments }

func (r memoryBatches) Create(ctx context.Context, batch *domain.Batch) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.batches[batch.ID]; ok {
		return fmt.Errorf("failed to create batch: duplicate id %s", batch.ID)
	}
	r.d.batches[batch.ID] = batch.Clone()
	return nil
}

func (r memoryBatches) FindByID(ctx context.Context, id string) (*domain.Batch, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	b, ok := r.d.batches[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	return b.Clone(), nil
}

func (r memoryBatches) List(ctx context.Context) ([]*domain.Batch, error) {
	return r.filter(func(*domain.Batch) bool { return true }), nil
}

func (r memoryBatches) ListBySchool(ctx context.Context, schoolID string) ([]*domain.Batch, error) {
	return r.filter(func(b *domain.Batch) bool { return b.SchoolID == schoolID }), nil
}

func (r memoryBatches) ListByStatus(ctx context.Context, status domain.BatchStatus) ([]*domain.Batch, error) {
	return r.filter(func(b *domain.Batch) bool { return b.Status == status }), nil
}

func (r memoryBatches) filter(keep func(*domain.Batch) bool) []*domain.Batch {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	out := []*domain.Batch{}
	for _, b := range r.d.batches {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (r memoryBatches) Update(ctx context.Context, batch *domain.Batch) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	prev, ok := r.d.batches[batch.ID]
	if !ok {
		return ErrBatchNotFound
	}
	next := batch.Clone()
	next.CreatedAt = prev.CreatedAt
	r.d.batches[batch.ID] = next
	return nil
}

func (r memoryBatches) UpdateStatus(ctx context.Context, id string, status domain.BatchStatus, updatedAt time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	b, ok := r.d.batches[id]
	if !ok {
		return ErrBatchNotFound
	}
	b.Status = status
	b.UpdatedAt = updatedAt
	return nil
}

func (r memoryBatches) Delete(ctx context.Context, id string) (*domain.Batch, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	b, ok := r.d.batches[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	delete(r.d.batches, id)
	return b, nil
}

type memoryProducts struct{ d *MemoryDocuments }

func (r memoryProducts) Create(ctx context.Context, product *domain.Product) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.products[product.ID]; ok {
		return fmt.Errorf("failed to create product: duplicate id %s", product.ID)
	}
	r.d.products[product.ID] = product.Clone()
	return nil
}

func (r memoryProducts) Update(ctx context.Context, product *domain.Product) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	prev, ok := r.d.products[product.ID]
	if !ok {
		return ErrProductNotFound
	}
	next := product.Clone()
	next.CreatedAt = prev.CreatedAt
	r.d.products[product.ID] = next
	return nil
}

func (r memoryProducts) Delete(ctx context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(r.d.products, id)
	return nil
}

func (r memoryProducts) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	p, ok := r.d.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p.Clone(), nil
}

func (r memoryProducts) List(ctx context.Context, sortOrder SortOrder) ([]*domain.Product, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	out := make([]*domain.Product, 0, len(r.d.products))
	for _, p := range r.d.products {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if sortOrder == SortOrderAsc && !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

type memoryTransfers struct{ d *MemoryDocuments }

// ApplyTransfer runs fn on copies and stores them only when fn succeeds
func (r memoryTransfers) ApplyTransfer(ctx context.Context, batchID, productID string, fn TransferFunc) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var batch *domain.Batch
	if b, ok := r.d.batches[batchID]; ok {
		batch = b.Clone()
	}
	var product *domain.Product
	if p, ok := r.d.products[productID]; ok {
		product = p.Clone()
	}

	if err := fn(batch, product); err != nil {
		return err
	}

	if batch != nil {
		r.d.batches[batchID] = batch
	}
	if product != nil {
		r.d.products[productID] = product
	}
	return nil
}

// newerFirst orders by created time descending, then id ascending
func newerFirst(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID < bID
}
