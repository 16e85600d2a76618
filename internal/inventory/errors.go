package inventory

import "fmt"

// Scopes reported by NotFoundError
const (
	ScopeBatch         = "batch"
	ScopeBatchLineItem = "batch_line_item"
	ScopeBatchSize     = "batch_size"
	ScopeProduct       = "product"
	ScopeVariant       = "variant"
)

// NotFoundError reports a missing document or sub-document
type NotFoundError struct {
	Scope string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Scope)
}

// ValidationError reports an unusable request field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientStockError reports a transfer larger than the batch holds
type InsufficientStockError struct {
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient batch stock: requested %d, available %d", e.Requested, e.Available)
}

// UserMessage is the text shown to the person requesting the transfer
func (e *InsufficientStockError) UserMessage() string {
	return fmt.Sprintf("Cannot receive %d units. Only %d available in batch.", e.Requested, e.Available)
}
