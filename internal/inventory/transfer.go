package inventory

import (
	"fmt"
	"time"

	"stockroom/internal/domain"
)

// TransferRequest moves Quantity units of Size from a batch line item into a product variant
type TransferRequest struct {
	Variant  domain.VariantRef
	BatchID  string
	Size     string
	Quantity int
}

// TransferResult carries the post-transfer quantities so callers can render
// the outcome without reading the documents again
type TransferResult struct {
	BatchID        string             `json:"batchId"`
	BatchName      string             `json:"batchName"`
	BatchStatus    domain.BatchStatus `json:"batchStatus"`
	ProductID      string             `json:"productId"`
	ProductName    string             `json:"productName"`
	VariantID      string             `json:"variantId,omitempty"`
	Color          string             `json:"color"`
	VariantType    string             `json:"variantType"`
	Size           string             `json:"size"`
	Quantity       int                `json:"quantity"`
	BatchRemaining int                `json:"batchRemaining"`
	ProductOnHand  int                `json:"productOnHand"`
	SizeStatus     StockKind          `json:"sizeStatus"`
}

// Transfer validates req against the current batch and product and, when every
// check passes, applies it to both documents in place. A nil batch or product
// means the document does not exist.
//
// Checks run in order and the first failure wins: batch, destination product and
// variant, line item, batch size, quantity, availability. The line item is keyed
// by the resolved variant's variant type and color, so units always land in the
// configuration they left. Nothing is modified unless every check passes.
func Transfer(batch *domain.Batch, product *domain.Product, req TransferRequest, now time.Time) (TransferResult, error) {
	if batch == nil {
		return TransferResult{}, &NotFoundError{Scope: ScopeBatch}
	}

	if product == nil {
		return TransferResult{}, &NotFoundError{Scope: ScopeProduct}
	}

	variant := product.FindVariant(req.Variant)
	if variant == nil {
		return TransferResult{}, &NotFoundError{Scope: ScopeVariant}
	}
	if (req.Variant.Color != "" && req.Variant.Color != variant.Color) ||
		(req.Variant.VariantType != "" && req.Variant.VariantType != variant.VariantType) {
		return TransferResult{}, &ValidationError{
			Field:  "variant",
			Reason: fmt.Sprintf("variant %s is %s %s", req.Variant.VariantID, variant.Color, variant.VariantType),
		}
	}

	item := batch.FindItem(variant.VariantType, variant.Color)
	if item == nil {
		return TransferResult{}, &NotFoundError{Scope: ScopeBatchLineItem}
	}

	source := item.FindSize(req.Size)
	if source == nil {
		return TransferResult{}, &NotFoundError{Scope: ScopeBatchSize}
	}

	if req.Quantity <= 0 {
		return TransferResult{}, &ValidationError{Field: "quantity", Reason: "must be a positive integer"}
	}

	if req.Quantity > source.Quantity {
		return TransferResult{}, &InsufficientStockError{Requested: req.Quantity, Available: source.Quantity}
	}

	source.Quantity -= req.Quantity

	target := variant.FindSize(req.Size)
	if target == nil {
		entry := domain.SizeStock{Size: req.Size}
		if variant.DefaultReorderLevel != nil {
			entry.ReorderLevel = domain.IntPtr(*variant.DefaultReorderLevel)
		}
		variant.Sizes = append(variant.Sizes, entry)
		target = &variant.Sizes[len(variant.Sizes)-1]
	}
	target.Quantity = OnHand(*target) + req.Quantity

	batch.RecountTotals()
	if batch.Status == domain.BatchStatusActive && batch.TotalQuantity == 0 {
		batch.Status = domain.BatchStatusDepleted
	}
	batch.UpdatedAt = now
	product.UpdatedAt = now

	return TransferResult{
		BatchID:        batch.ID,
		BatchName:      batch.Name,
		BatchStatus:    batch.Status,
		ProductID:      product.ID,
		ProductName:    product.Name,
		VariantID:      variant.ID,
		Color:          variant.Color,
		VariantType:    variant.VariantType,
		Size:           req.Size,
		Quantity:       req.Quantity,
		BatchRemaining: source.Quantity,
		ProductOnHand:  target.Quantity,
		SizeStatus:     SizeStatus(*target),
	}, nil
}
