package domain

import (
	"encoding/json"
	"time"
)

// Product represents a catalog item stocked in one or more variants
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Gender    string    `json:"gender"`
	ImageURL  string    `json:"imageUrl"`
	SchoolID  string    `json:"schoolId,omitempty"`
	Variants  []Variant `json:"variants"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Variant is a color / cut combination of a product with per-size stock
type Variant struct {
	ID                  string      `json:"id,omitempty"`
	Color               string      `json:"color"`
	VariantType         string      `json:"variantType"`
	DefaultReorderLevel *int        `json:"defaultReorderLevel,omitempty"`
	Sizes               []SizeStock `json:"sizes"`
}

// SizeStock is the on-hand quantity of a single size.
// A nil ReorderLevel means the document did not carry a usable threshold.
type SizeStock struct {
	Size         string `json:"size"`
	Quantity     int    `json:"quantity"`
	ReorderLevel *int   `json:"reorderLevel,omitempty"`
}

// VariantRef identifies the destination variant of a stock movement
type VariantRef struct {
	ProductID   string `json:"productId"`
	VariantID   string `json:"variantId,omitempty"`
	Color       string `json:"color"`
	VariantType string `json:"variantType"`
}

// Matches reports whether the variant has the given color and variant type
func (v *Variant) Matches(color, variantType string) bool {
	return v.Color == color && v.VariantType == variantType
}

// FindSize returns the size entry with the given label, or nil
func (v *Variant) FindSize(size string) *SizeStock {
	for i := range v.Sizes {
		if v.Sizes[i].Size == size {
			return &v.Sizes[i]
		}
	}
	return nil
}

// FindVariant resolves a variant by explicit id first, then by color and variant type.
// Ids of the form "<productID>-<variantType>" are accepted for variants stored without an id.
func (p *Product) FindVariant(ref VariantRef) *Variant {
	if ref.VariantID != "" {
		for i := range p.Variants {
			v := &p.Variants[i]
			if v.ID == ref.VariantID || (v.ID == "" && p.ID+"-"+v.VariantType == ref.VariantID) {
				return v
			}
		}
	}
	for i := range p.Variants {
		if p.Variants[i].Matches(ref.Color, ref.VariantType) {
			return &p.Variants[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the product
func (p *Product) Clone() *Product {
	out := *p
	out.Variants = make([]Variant, len(p.Variants))
	for i, v := range p.Variants {
		cv := v
		cv.DefaultReorderLevel = cloneInt(v.DefaultReorderLevel)
		cv.Sizes = make([]SizeStock, len(v.Sizes))
		for j, s := range v.Sizes {
			cs := s
			cs.ReorderLevel = cloneInt(s.ReorderLevel)
			cv.Sizes[j] = cs
		}
		out.Variants[i] = cv
	}
	return &out
}

// UnmarshalJSON decodes a variant leniently; see SizeStock.UnmarshalJSON
func (v *Variant) UnmarshalJSON(data []byte) error {
	type plain Variant
	var raw struct {
		plain
		DefaultReorderLevel any `json:"defaultReorderLevel"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*v = Variant(raw.plain)
	v.DefaultReorderLevel = optionalCount(raw.DefaultReorderLevel)
	return nil
}

// UnmarshalJSON decodes a size entry from a loosely typed document.
// Quantities given as strings or floats are coerced; anything unusable becomes 0.
func (s *SizeStock) UnmarshalJSON(data []byte) error {
	var raw struct {
		Size         any `json:"size"`
		Quantity     any `json:"quantity"`
		ReorderLevel any `json:"reorderLevel"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Size = label(raw.Size)
	s.Quantity = count(raw.Quantity)
	s.ReorderLevel = optionalCount(raw.ReorderLevel)
	return nil
}

// IntPtr is a convenience for building optional thresholds
func IntPtr(n int) *int {
	return &n
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	n := *p
	return &n
}
