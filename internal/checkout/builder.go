// Package checkout assembles validated sale line items and computes sale
// totals. It is pure: identical inputs always produce identical output and
// nothing here touches storage.
package checkout

import (
	"errors"
	"math"

	"stockpos/backend/internal/domain"
)

var ErrInvalidLineItem = errors.New("invalid line item")

// Totals are the server-side computed monetary fields of a sale, in cents.
type Totals struct {
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
}

// Builder accumulates line items for one draft sale.
type Builder struct {
	taxRatePercent float64
	items          []domain.SaleItem
}

func NewBuilder(taxRatePercent float64) *Builder {
	if taxRatePercent < 0 {
		taxRatePercent = 0
	}
	return &Builder{
		taxRatePercent: taxRatePercent,
		items:          make([]domain.SaleItem, 0, 8),
	}
}

// AddItem appends a line built from the resolved product snapshot. The line
// total is qty*unitPrice - discount. The discount may not exceed the line's
// gross value, so line totals are never negative.
func (b *Builder) AddItem(snapshot domain.Product, qty int, unitPriceCents int64, discountCents int64) error {
	if qty <= 0 {
		return ErrInvalidLineItem
	}
	if unitPriceCents < 0 || discountCents < 0 {
		return ErrInvalidLineItem
	}
	gross := int64(qty) * unitPriceCents
	if discountCents > gross {
		return ErrInvalidLineItem
	}

	b.items = append(b.items, domain.SaleItem{
		ProductID:      snapshot.ID,
		SKU:            snapshot.SKU,
		Name:           snapshot.Name,
		Category:       snapshot.Category,
		Qty:            qty,
		UnitPriceCents: unitPriceCents,
		DiscountCents:  discountCents,
		TotalCents:     gross - discountCents,
	})
	return nil
}

func (b *Builder) Items() []domain.SaleItem {
	items := make([]domain.SaleItem, len(b.items))
	copy(items, b.items)
	return items
}

// Totals recomputes subtotal, tax and total from the accumulated lines:
// subtotal is the sum of line totals, tax is subtotal * rate, total is
// subtotal - discount + tax. Client-supplied totals are compared against the
// recomputed values for anomaly detection only; the returned bool reports
// whether they disagreed beyond a one-cent rounding tolerance.
func (b *Builder) Totals(saleDiscountCents int64, client *domain.ClientTotals) (Totals, bool) {
	subtotal := int64(0)
	for _, item := range b.items {
		subtotal += item.TotalCents
	}
	if saleDiscountCents < 0 {
		saleDiscountCents = 0
	}
	if saleDiscountCents > subtotal {
		saleDiscountCents = subtotal
	}

	tax := int64(math.Round(float64(subtotal) * b.taxRatePercent / 100))
	totals := Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    subtotal - saleDiscountCents + tax,
	}

	mismatch := false
	if client != nil {
		mismatch = absInt64(client.SubtotalCents-totals.SubtotalCents) > 1 ||
			absInt64(client.TaxCents-totals.TaxCents) > 1 ||
			absInt64(client.TotalCents-totals.TotalCents) > 1
	}
	return totals, mismatch
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
