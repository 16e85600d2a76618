package inventory

import (
	"testing"

	"stockroom/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func sizes(quantities ...int) []domain.SizeStock {
	out := make([]domain.SizeStock, len(quantities))
	for i, q := range quantities {
		out[i] = domain.SizeStock{Size: string(rune('A' + i)), Quantity: q}
	}
	return out
}

func TestClassifyVariant(t *testing.T) {
	tests := []struct {
		name      string
		variant   domain.Variant
		wantKind  StockKind
		wantTotal int
	}{
		{"nil sizes", domain.Variant{}, OutOfStock, 0},
		{"empty sizes", domain.Variant{Sizes: []domain.SizeStock{}}, OutOfStock, 0},
		{"all zero", domain.Variant{Sizes: sizes(0, 0)}, OutOfStock, 0},
		{"all above default threshold", domain.Variant{Sizes: sizes(6, 10, 50)}, InStock, 66},
		{"one size at threshold", domain.Variant{Sizes: sizes(5, 10)}, LowStock, 15},
		{
			"one size depleted with healthy total",
			domain.Variant{Sizes: []domain.SizeStock{
				{Size: "S", Quantity: 0},
				{Size: "M", Quantity: 10, ReorderLevel: domain.IntPtr(5)},
			}},
			LowStock, 10,
		},
		{
			"own threshold overrides default",
			domain.Variant{Sizes: []domain.SizeStock{{Size: "S", Quantity: 3, ReorderLevel: domain.IntPtr(2)}}},
			InStock, 3,
		},
		{
			"explicit zero threshold",
			domain.Variant{Sizes: []domain.SizeStock{{Size: "S", Quantity: 1, ReorderLevel: domain.IntPtr(0)}}},
			InStock, 1,
		},
		{
			"negative quantity treated as empty",
			domain.Variant{Sizes: []domain.SizeStock{{Size: "S", Quantity: -3}, {Size: "M", Quantity: 8}}},
			LowStock, 8,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyVariant(tc.variant)
			if got.Kind != tc.wantKind {
				t.Errorf("expected kind %s, got %s", tc.wantKind, got.Kind)
			}
			if got.TotalQuantity != tc.wantTotal {
				t.Errorf("expected total %d, got %d", tc.wantTotal, got.TotalQuantity)
			}
		})
	}
}

func TestClassifyProduct(t *testing.T) {
	inStock := domain.Variant{Sizes: sizes(10, 20)}
	lowStock := domain.Variant{Sizes: sizes(2, 20)}
	outOfStock := domain.Variant{Sizes: sizes(0)}
	empty := domain.Variant{}

	tests := []struct {
		name      string
		variants  []domain.Variant
		wantKind  StockKind
		wantTotal int
	}{
		{"no variants", nil, OutOfStock, 0},
		{"all in stock", []domain.Variant{inStock, inStock}, InStock, 60},
		{"one in one out", []domain.Variant{inStock, outOfStock}, LowStock, 30},
		{"one low", []domain.Variant{inStock, lowStock}, LowStock, 52},
		{"every variant out", []domain.Variant{outOfStock, empty}, OutOfStock, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyProduct(domain.Product{Variants: tc.variants})
			if got.Kind != tc.wantKind {
				t.Errorf("expected kind %s, got %s", tc.wantKind, got.Kind)
			}
			if got.TotalQuantity != tc.wantTotal {
				t.Errorf("expected total %d, got %d", tc.wantTotal, got.TotalQuantity)
			}
			if len(got.PerVariant) != len(tc.variants) {
				t.Errorf("expected %d per-variant results, got %d", len(tc.variants), len(got.PerVariant))
			}
		})
	}
}

func TestAggregateInventoryEmpty(t *testing.T) {
	summary := AggregateInventory(nil)

	if summary.Counts != (Counts{}) {
		t.Errorf("expected zero counts, got %+v", summary.Counts)
	}
	b := summary.Buckets
	if b.Total == nil || b.InStock == nil || b.LowStock == nil || b.OutOfStock == nil {
		t.Error("expected non-nil empty buckets")
	}
	if len(b.Total)+len(b.InStock)+len(b.LowStock)+len(b.OutOfStock) != 0 {
		t.Error("expected empty buckets")
	}
}

func TestAggregateInventoryBuckets(t *testing.T) {
	products := []domain.Product{
		{ID: "in", Variants: []domain.Variant{{Sizes: sizes(10)}}},
		{ID: "low", Variants: []domain.Variant{{Sizes: sizes(10)}, {Sizes: sizes(0)}}},
		{ID: "out", Variants: []domain.Variant{{Sizes: sizes(0)}}},
		{ID: "bare"},
	}

	summary := AggregateInventory(products)

	want := Counts{Total: 4, InStock: 1, LowStock: 1, OutOfStock: 2, TotalItems: 20}
	if summary.Counts != want {
		t.Errorf("expected %+v, got %+v", want, summary.Counts)
	}
	if summary.Buckets.LowStock[0].ID != "low" {
		t.Errorf("expected low bucket to hold 'low', got %s", summary.Buckets.LowStock[0].ID)
	}
	if summary.Buckets.OutOfStock[1].ID != "bare" {
		t.Errorf("expected product without variants in out-of-stock bucket")
	}
}

func genSize() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(-2, 40),
		gen.PtrOf(gen.IntRange(0, 10)),
	).Map(func(vals []interface{}) domain.SizeStock {
		reorder, _ := vals[1].(*int) // PtrOf yields an untyped nil for the nil case
		return domain.SizeStock{Size: "S", Quantity: vals[0].(int), ReorderLevel: reorder}
	})
}

func genVariant() gopter.Gen {
	return gen.SliceOfN(4, genSize()).Map(func(s []domain.SizeStock) domain.Variant {
		return domain.Variant{Sizes: s}
	})
}

func genProduct() gopter.Gen {
	return gen.SliceOfN(3, genVariant()).Map(func(v []domain.Variant) domain.Product {
		return domain.Product{Variants: v}
	})
}

func TestProperty_AggregateCountsMatchBuckets(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("counts add up and bucket sizes match counts", prop.ForAll(
		func(products []domain.Product) bool {
			s := AggregateInventory(products)
			c := s.Counts

			if c.Total != c.InStock+c.LowStock+c.OutOfStock {
				return false
			}
			if len(s.Buckets.Total) != c.Total ||
				len(s.Buckets.InStock) != c.InStock ||
				len(s.Buckets.LowStock) != c.LowStock ||
				len(s.Buckets.OutOfStock) != c.OutOfStock {
				return false
			}

			items := 0
			for _, p := range products {
				for _, v := range p.Variants {
					for _, sz := range v.Sizes {
						if sz.Quantity > 0 {
							items += sz.Quantity
						}
					}
				}
			}
			return c.TotalItems == items
		},
		gen.SliceOf(genProduct()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_VariantsAboveThresholdAreInStock(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every size above its reorder level means in stock", prop.ForAll(
		func(levels []int, margin int) bool {
			if len(levels) == 0 {
				return true
			}
			v := domain.Variant{}
			for _, l := range levels {
				v.Sizes = append(v.Sizes, domain.SizeStock{Size: "S", Quantity: l + margin, ReorderLevel: domain.IntPtr(l)})
			}
			return ClassifyVariant(v).Kind == InStock
		},
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_OutOfStockIffZeroTotal(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a variant is out of stock exactly when its total is zero", prop.ForAll(
		func(v domain.Variant) bool {
			c := ClassifyVariant(v)
			return (c.Kind == OutOfStock) == (c.TotalQuantity == 0)
		},
		genVariant(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
