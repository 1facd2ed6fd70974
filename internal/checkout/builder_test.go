package checkout

import (
	"errors"
	"testing"

	"stockpos/backend/internal/domain"
)

func testProduct() domain.Product {
	return domain.Product{
		ID:         "prod-mug-01",
		SKU:        "MG-WHT-01",
		Name:       "Ceramic Mug",
		Category:   "homeware",
		PriceCents: 8900,
	}
}

func TestAddItemRejectsInvalidLines(t *testing.T) {
	cases := []struct {
		name     string
		qty      int
		price    int64
		discount int64
	}{
		{"zero qty", 0, 8900, 0},
		{"negative qty", -2, 8900, 0},
		{"negative price", 1, -1, 0},
		{"negative discount", 1, 8900, -100},
		{"discount exceeds gross", 2, 8900, 17801},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder(18)
			err := b.AddItem(testProduct(), tc.qty, tc.price, tc.discount)
			if !errors.Is(err, ErrInvalidLineItem) {
				t.Fatalf("expected ErrInvalidLineItem, got %v", err)
			}
			if len(b.Items()) != 0 {
				t.Fatalf("invalid line must not be appended")
			}
		})
	}
}

func TestLineTotalIsGrossMinusDiscount(t *testing.T) {
	b := NewBuilder(18)
	if err := b.AddItem(testProduct(), 3, 8900, 700); err != nil {
		t.Fatalf("add item: %v", err)
	}

	items := b.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].TotalCents != 3*8900-700 {
		t.Fatalf("expected line total %d, got %d", 3*8900-700, items[0].TotalCents)
	}
	if items[0].SKU != "MG-WHT-01" || items[0].Name != "Ceramic Mug" {
		t.Fatalf("line must carry the product snapshot, got %+v", items[0])
	}
}

func TestTotalsTaxOnSubtotal(t *testing.T) {
	// Subtotal 200.00 at 18% must give tax 36.00 and total 236.00.
	b := NewBuilder(18)
	if err := b.AddItem(testProduct(), 2, 10000, 0); err != nil {
		t.Fatalf("add item: %v", err)
	}

	totals, mismatch := b.Totals(0, nil)
	if totals.SubtotalCents != 20000 {
		t.Fatalf("expected subtotal 20000, got %d", totals.SubtotalCents)
	}
	if totals.TaxCents != 3600 {
		t.Fatalf("expected tax 3600, got %d", totals.TaxCents)
	}
	if totals.TotalCents != 23600 {
		t.Fatalf("expected total 23600, got %d", totals.TotalCents)
	}
	if mismatch {
		t.Fatalf("no client totals supplied, mismatch must be false")
	}
}

func TestTotalsDiscountDoesNotShrinkTaxBase(t *testing.T) {
	// Tax applies to the subtotal; the sale discount only reduces the total.
	b := NewBuilder(10)
	if err := b.AddItem(testProduct(), 1, 10000, 0); err != nil {
		t.Fatalf("add item: %v", err)
	}

	totals, _ := b.Totals(2000, nil)
	if totals.TaxCents != 1000 {
		t.Fatalf("expected tax 1000 on full subtotal, got %d", totals.TaxCents)
	}
	if totals.TotalCents != 10000-2000+1000 {
		t.Fatalf("expected total %d, got %d", 10000-2000+1000, totals.TotalCents)
	}
}

func TestTotalsClampsSaleDiscount(t *testing.T) {
	b := NewBuilder(0)
	if err := b.AddItem(testProduct(), 1, 5000, 0); err != nil {
		t.Fatalf("add item: %v", err)
	}

	totals, _ := b.Totals(9000, nil)
	if totals.TotalCents != 0 {
		t.Fatalf("discount above subtotal must clamp, got total %d", totals.TotalCents)
	}
}

func TestTotalsClientMismatchDetection(t *testing.T) {
	b := NewBuilder(18)
	if err := b.AddItem(testProduct(), 2, 10000, 0); err != nil {
		t.Fatalf("add item: %v", err)
	}

	// Off by one cent is tolerated as rounding.
	_, mismatch := b.Totals(0, &domain.ClientTotals{SubtotalCents: 20000, TaxCents: 3601, TotalCents: 23601})
	if mismatch {
		t.Fatalf("one-cent drift must not flag a mismatch")
	}

	_, mismatch = b.Totals(0, &domain.ClientTotals{SubtotalCents: 20000, TaxCents: 3600, TotalCents: 25000})
	if !mismatch {
		t.Fatalf("expected mismatch for client total off by %d cents", 25000-23600)
	}
}

func TestZeroTaxRate(t *testing.T) {
	b := NewBuilder(0)
	if err := b.AddItem(testProduct(), 4, 2500, 0); err != nil {
		t.Fatalf("add item: %v", err)
	}

	totals, _ := b.Totals(0, nil)
	if totals.TaxCents != 0 || totals.TotalCents != 10000 {
		t.Fatalf("expected tax 0 total 10000, got tax %d total %d", totals.TaxCents, totals.TotalCents)
	}
}
