package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// BatchStatus is the lifecycle state of a batch
type BatchStatus string

const (
	BatchStatusActive   BatchStatus = "active"
	BatchStatusDepleted BatchStatus = "depleted"
	BatchStatusArchived BatchStatus = "archived"
)

// Valid reports whether the status is one of the known states
func (s BatchStatus) Valid() bool {
	switch s {
	case BatchStatusActive, BatchStatusDepleted, BatchStatusArchived:
		return true
	}
	return false
}

// Batch is a received consignment whose line items feed product stock
type Batch struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	SchoolID      string          `json:"schoolId,omitempty"`
	Status        BatchStatus     `json:"status"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	Items         []BatchLineItem `json:"items"`
	CreatedBy     string          `json:"createdBy"`
	CreatedByUID  string          `json:"createdByUid,omitempty"`
	CreatedByRole string          `json:"createdByRole,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// BatchLineItem is the remaining stock of one product configuration in a batch
type BatchLineItem struct {
	VariantType string          `json:"variantType"`
	Color       string          `json:"color"`
	Price       decimal.Decimal `json:"price"`
	Sizes       []BatchSize     `json:"sizes"`
}

// BatchSize is the remaining quantity of one size in a line item
type BatchSize struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// FindItem returns the line item for a variant configuration, or nil
func (b *Batch) FindItem(variantType, color string) *BatchLineItem {
	for i := range b.Items {
		if b.Items[i].VariantType == variantType && b.Items[i].Color == color {
			return &b.Items[i]
		}
	}
	return nil
}

// FindSize returns the size entry with the given label, or nil
func (item *BatchLineItem) FindSize(size string) *BatchSize {
	for i := range item.Sizes {
		if item.Sizes[i].Size == size {
			return &item.Sizes[i]
		}
	}
	return nil
}

// Remaining sums the quantities left in the line item
func (item *BatchLineItem) Remaining() int {
	total := 0
	for _, s := range item.Sizes {
		total += s.Quantity
	}
	return total
}

// RecountTotals derives TotalQuantity from the line items.
// TotalValue is only recomputed when at least one item carries a price.
func (b *Batch) RecountTotals() {
	quantity := 0
	value := decimal.Zero
	priced := false
	for i := range b.Items {
		remaining := b.Items[i].Remaining()
		quantity += remaining
		if !b.Items[i].Price.IsZero() {
			priced = true
			value = value.Add(b.Items[i].Price.Mul(decimal.NewFromInt(int64(remaining))))
		}
	}
	b.TotalQuantity = quantity
	if priced {
		b.TotalValue = value
	}
}

// Clone returns a deep copy of the batch
func (b *Batch) Clone() *Batch {
	out := *b
	out.Items = make([]BatchLineItem, len(b.Items))
	for i, item := range b.Items {
		ci := item
		ci.Sizes = append([]BatchSize(nil), item.Sizes...)
		out.Items[i] = ci
	}
	return &out
}

// UnmarshalJSON decodes a batch leniently, coercing the stored totals
func (b *Batch) UnmarshalJSON(data []byte) error {
	type plain Batch
	var raw struct {
		plain
		TotalQuantity any             `json:"totalQuantity"`
		TotalValue    json.RawMessage `json:"totalValue"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*b = Batch(raw.plain)
	b.TotalQuantity = count(raw.TotalQuantity)
	b.TotalValue = money(raw.TotalValue)
	return nil
}

// UnmarshalJSON decodes a line item leniently; a malformed price reads as zero
func (item *BatchLineItem) UnmarshalJSON(data []byte) error {
	type plain BatchLineItem
	var raw struct {
		plain
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*item = BatchLineItem(raw.plain)
	item.Price = money(raw.Price)
	return nil
}

// UnmarshalJSON decodes a batch size entry leniently
func (s *BatchSize) UnmarshalJSON(data []byte) error {
	var raw struct {
		Size     any `json:"size"`
		Quantity any `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Size = label(raw.Size)
	s.Quantity = count(raw.Quantity)
	return nil
}
