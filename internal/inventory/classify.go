// Package inventory holds the stock classification rules and the batch-to-product
// transfer rules. Everything here is pure and safe for concurrent use.
package inventory

import "stockroom/internal/domain"

// DefaultReorderLevel applies to sizes stored without a usable threshold
const DefaultReorderLevel = 5

// StockKind is a stock status bucket
type StockKind string

const (
	InStock    StockKind = "in_stock"
	LowStock   StockKind = "low_stock"
	OutOfStock StockKind = "out_of_stock"
)

// Classification is the derived status of a variant
type Classification struct {
	Kind          StockKind `json:"kind"`
	TotalQuantity int       `json:"totalQuantity"`
}

// ProductClassification rolls variant classifications up to the product
type ProductClassification struct {
	Kind          StockKind        `json:"kind"`
	TotalQuantity int              `json:"totalQuantity"`
	PerVariant    []Classification `json:"perVariant"`
}

// Counts are the dashboard summary numbers
type Counts struct {
	Total      int `json:"total"`
	InStock    int `json:"inStock"`
	LowStock   int `json:"lowStock"`
	OutOfStock int `json:"outOfStock"`
	TotalItems int `json:"totalItems"`
}

// Buckets hold the products behind each summary number
type Buckets struct {
	Total      []domain.Product `json:"total"`
	InStock    []domain.Product `json:"inStock"`
	LowStock   []domain.Product `json:"lowStock"`
	OutOfStock []domain.Product `json:"outOfStock"`
}

// Summary is the result of AggregateInventory.
// Counts.Total == InStock+LowStock+OutOfStock and len(Buckets.X) == Counts.X always hold.
type Summary struct {
	Counts  Counts  `json:"counts"`
	Buckets Buckets `json:"buckets"`
}

// OnHand returns the usable quantity of a size
func OnHand(s domain.SizeStock) int {
	if s.Quantity < 0 {
		return 0
	}
	return s.Quantity
}

// ReorderThreshold returns the size's own reorder level, or DefaultReorderLevel
func ReorderThreshold(s domain.SizeStock) int {
	if s.ReorderLevel == nil || *s.ReorderLevel < 0 {
		return DefaultReorderLevel
	}
	return *s.ReorderLevel
}

// SizeStatus classifies a single size against its own threshold
func SizeStatus(s domain.SizeStock) StockKind {
	q := OnHand(s)
	switch {
	case q == 0:
		return OutOfStock
	case q <= ReorderThreshold(s):
		return LowStock
	}
	return InStock
}

// ClassifyVariant sums a variant's sizes and classifies it.
// A variant reports low stock when any single size is empty or at/below its
// threshold, even if the variant total is healthy.
func ClassifyVariant(v domain.Variant) Classification {
	if len(v.Sizes) == 0 {
		return Classification{Kind: OutOfStock}
	}

	total := 0
	hasOutOfStock := false
	hasLowStock := false
	for _, s := range v.Sizes {
		total += OnHand(s)
		switch SizeStatus(s) {
		case OutOfStock:
			hasOutOfStock = true
		case LowStock:
			hasLowStock = true
		}
	}

	switch {
	case total == 0:
		return Classification{Kind: OutOfStock, TotalQuantity: 0}
	case hasOutOfStock || hasLowStock:
		return Classification{Kind: LowStock, TotalQuantity: total}
	}
	return Classification{Kind: InStock, TotalQuantity: total}
}

// ClassifyProduct classifies every variant and rolls them up.
// The product is out of stock only when it has no variants or every variant is
// individually out of stock.
func ClassifyProduct(p domain.Product) ProductClassification {
	result := ProductClassification{
		Kind:       OutOfStock,
		PerVariant: make([]Classification, 0, len(p.Variants)),
	}
	if len(p.Variants) == 0 {
		return result
	}

	allOut := true
	anyDegraded := false
	for _, v := range p.Variants {
		c := ClassifyVariant(v)
		result.PerVariant = append(result.PerVariant, c)
		result.TotalQuantity += c.TotalQuantity
		if c.Kind != OutOfStock {
			allOut = false
		}
		if c.Kind != InStock {
			anyDegraded = true
		}
	}

	switch {
	case allOut:
		result.Kind = OutOfStock
	case anyDegraded:
		result.Kind = LowStock
	default:
		result.Kind = InStock
	}
	return result
}

// AggregateInventory buckets products by status in a single pass
func AggregateInventory(products []domain.Product) Summary {
	summary := Summary{
		Buckets: Buckets{
			Total:      make([]domain.Product, 0, len(products)),
			InStock:    []domain.Product{},
			LowStock:   []domain.Product{},
			OutOfStock: []domain.Product{},
		},
	}

	for _, p := range products {
		c := ClassifyProduct(p)
		summary.Counts.Total++
		summary.Counts.TotalItems += c.TotalQuantity
		summary.Buckets.Total = append(summary.Buckets.Total, p)

		switch c.Kind {
		case InStock:
			summary.Counts.InStock++
			summary.Buckets.InStock = append(summary.Buckets.InStock, p)
		case LowStock:
			summary.Counts.LowStock++
			summary.Buckets.LowStock = append(summary.Buckets.LowStock, p)
		default:
			summary.Counts.OutOfStock++
			summary.Buckets.OutOfStock = append(summary.Buckets.OutOfStock, p)
		}
	}

	return summary
}
