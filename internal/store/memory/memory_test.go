package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockpos/backend/internal/domain"
	"stockpos/backend/internal/store"
)

func seededStore() *Store {
	return NewSeeded()
}

func saleFor(productID string, qty int, unitPrice int64) domain.Sale {
	lineTotal := int64(qty) * unitPrice
	return domain.Sale{
		StoreID:  "main-store",
		Customer: domain.Customer{Name: "Walk-in"},
		Items: []domain.SaleItem{
			{ProductID: productID, SKU: "X", Name: "X", Qty: qty, UnitPriceCents: unitPrice, TotalCents: lineTotal},
		},
		SubtotalCents: lineTotal,
		TaxCents:      0,
		TotalCents:    lineTotal,
		Status:        domain.SaleStatusCommitted,
	}
}

func TestAdjustStockNeverGoesNegative(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	before, err := s.GetProductByID(ctx, "prod-cap-01")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}

	_, err = s.AdjustStock(ctx, "prod-cap-01", -(before.Quantity + 1), domain.StockReasonSale, "sale-x")
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	var insufficient *store.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected typed insufficient stock error, got %T", err)
	}
	if insufficient.ProductID != "prod-cap-01" {
		t.Fatalf("expected product id in error, got %s", insufficient.ProductID)
	}
	if insufficient.Available != before.Quantity {
		t.Fatalf("expected available %d, got %d", before.Quantity, insufficient.Available)
	}

	after, err := s.GetProductByID(ctx, "prod-cap-01")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Quantity != before.Quantity {
		t.Fatalf("rejected adjustment must not change stock: %d -> %d", before.Quantity, after.Quantity)
	}
}

func TestAdjustStockRejectsZeroDelta(t *testing.T) {
	s := seededStore()

	_, err := s.AdjustStock(context.Background(), "prod-cap-01", 0, domain.StockReasonRestock, "")
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for zero delta, got %v", err)
	}
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	s := seededStore()

	_, err := s.AdjustStock(context.Background(), "prod-ghost", -1, domain.StockReasonSale, "")
	if !errors.Is(err, store.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestStockMovementsCarryRunningBalance(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	if _, err := s.AdjustStock(ctx, "prod-mug-01", -5, domain.StockReasonSale, "sale-1"); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if _, err := s.AdjustStock(ctx, "prod-mug-01", 12, domain.StockReasonRestock, ""); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	movements, err := s.ListStockMovements(ctx, "prod-mug-01", 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements))
	}
	// Newest first.
	if movements[0].Delta != 12 || movements[0].Balance != 120-5+12 {
		t.Fatalf("unexpected restock movement %+v", movements[0])
	}
	if movements[1].Delta != -5 || movements[1].Balance != 115 {
		t.Fatalf("unexpected sale movement %+v", movements[1])
	}
	if movements[1].RefID != "sale-1" {
		t.Fatalf("sale movement must reference the sale, got %q", movements[1].RefID)
	}
}

func TestLowStockAlertFollowsReorderPoint(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	// Cap starts at 35 with reorder point 8.
	product, err := s.AdjustStock(ctx, "prod-cap-01", -27, domain.StockReasonSale, "sale-1")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if product.Quantity != 8 || !product.LowStockAlert {
		t.Fatalf("expected quantity 8 with alert, got qty %d alert %v", product.Quantity, product.LowStockAlert)
	}

	product, err = s.AdjustStock(ctx, "prod-cap-01", 1, domain.StockReasonRestock, "")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if product.LowStockAlert {
		t.Fatalf("alert must clear above reorder point, got %+v", product)
	}
}

func TestCreateSaleCompensatesOnPartialFailure(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	mugBefore, _ := s.GetProductByID(ctx, "prod-mug-01")
	capBefore, _ := s.GetProductByID(ctx, "prod-cap-01")

	sale := domain.Sale{
		StoreID:  "main-store",
		Customer: domain.Customer{Name: "Walk-in"},
		Items: []domain.SaleItem{
			{ProductID: "prod-mug-01", Qty: 2, UnitPriceCents: 8900, TotalCents: 17800},
			{ProductID: "prod-cap-01", Qty: capBefore.Quantity + 1, UnitPriceCents: 9900, TotalCents: int64(capBefore.Quantity+1) * 9900},
		},
	}
	sale.SubtotalCents = sale.Items[0].TotalCents + sale.Items[1].TotalCents
	sale.TotalCents = sale.SubtotalCents

	_, err := s.CreateSale(ctx, sale)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	mugAfter, _ := s.GetProductByID(ctx, "prod-mug-01")
	capAfter, _ := s.GetProductByID(ctx, "prod-cap-01")
	if mugAfter.Quantity != mugBefore.Quantity {
		t.Fatalf("mug stock must be credited back: %d -> %d", mugBefore.Quantity, mugAfter.Quantity)
	}
	if capAfter.Quantity != capBefore.Quantity {
		t.Fatalf("cap stock must be untouched: %d -> %d", capBefore.Quantity, capAfter.Quantity)
	}
}

func TestCreateSaleRejectsInconsistentTotals(t *testing.T) {
	s := seededStore()

	sale := saleFor("prod-mug-01", 2, 8900)
	sale.TotalCents = 99

	_, err := s.CreateSale(context.Background(), sale)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for inconsistent totals, got %v", err)
	}
}

func TestCreateSaleAssignsInvoiceNumber(t *testing.T) {
	s := seededStore()

	created, err := s.CreateSale(context.Background(), saleFor("prod-mug-01", 1, 8900))
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if created.InvoiceNo == "" {
		t.Fatalf("expected invoice number to be assigned")
	}
	if created.ID == "" {
		t.Fatalf("expected sale id to be assigned")
	}
}

func TestVoidSaleGuards(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	created, err := s.CreateSale(ctx, saleFor("prod-jeans-01", 3, 49900))
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	before, _ := s.GetProductByID(ctx, "prod-jeans-01")

	voided, err := s.VoidSale(ctx, created.ID, "damaged goods", time.Now().UTC())
	if err != nil {
		t.Fatalf("void sale: %v", err)
	}
	if voided.Status != domain.SaleStatusVoided || voided.VoidedAt == nil {
		t.Fatalf("expected voided sale, got %+v", voided)
	}
	if voided.VoidReason != "damaged goods" {
		t.Fatalf("expected void reason to be kept, got %q", voided.VoidReason)
	}

	after, _ := s.GetProductByID(ctx, "prod-jeans-01")
	if after.Quantity != before.Quantity+3 {
		t.Fatalf("expected stock re-credited by 3, got %d -> %d", before.Quantity, after.Quantity)
	}

	if _, err := s.VoidSale(ctx, created.ID, "again", time.Now().UTC()); !errors.Is(err, store.ErrSaleAlreadyVoided) {
		t.Fatalf("expected ErrSaleAlreadyVoided, got %v", err)
	}
	final, _ := s.GetProductByID(ctx, "prod-jeans-01")
	if final.Quantity != after.Quantity {
		t.Fatalf("double void must not re-credit: %d -> %d", after.Quantity, final.Quantity)
	}

	if _, err := s.VoidSale(ctx, "sale-ghost", "x", time.Now().UTC()); !errors.Is(err, store.ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
}

func TestInvoiceCountersArePerStorePerDay(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	day := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	first, err := s.NextInvoiceNumber(ctx, "store-a", day)
	if err != nil {
		t.Fatalf("next invoice: %v", err)
	}
	if first != "INV-20260829-0001" {
		t.Fatalf("unexpected first invoice %s", first)
	}

	second, _ := s.NextInvoiceNumber(ctx, "store-a", day)
	if second != "INV-20260829-0002" {
		t.Fatalf("expected counter to advance within a store, got %s", second)
	}

	otherStore, _ := s.NextInvoiceNumber(ctx, "store-b", day)
	if otherStore != "INV-20260829-0001" {
		t.Fatalf("counters must be independent per store, got %s", otherStore)
	}

	nextDay, _ := s.NextInvoiceNumber(ctx, "store-a", day.Add(24*time.Hour))
	if nextDay != "INV-20260830-0001" {
		t.Fatalf("counter must reset per day, got %s", nextDay)
	}
}

func TestCreateProductValidation(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, domain.Product{Name: "No SKU", Category: "misc", PriceCents: 100})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing sku, got %v", err)
	}

	_, err = s.CreateProduct(ctx, domain.Product{SKU: "MG-WHT-01", Name: "Dup SKU", Category: "misc", PriceCents: 100})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for duplicate sku, got %v", err)
	}

	created, err := s.CreateProduct(ctx, domain.Product{SKU: "NW-ITEM-01", Name: "New Item", Category: "misc", PriceCents: 500, Quantity: 3, ReorderPoint: 5})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if created.ID == "" || !created.Active {
		t.Fatalf("expected generated id and active flag, got %+v", created)
	}
	if !created.LowStockAlert {
		t.Fatalf("quantity 3 at reorder point 5 must raise the alert")
	}
}

func TestAuditLogWindowFilter(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	now := time.Now().UTC()

	entries := []domain.AuditLog{
		{StoreID: "main-store", Action: "sale_create", CreatedAt: now.Add(-2 * time.Hour)},
		{StoreID: "main-store", Action: "sale_void", CreatedAt: now.Add(-30 * time.Minute)},
		{StoreID: "other-store", Action: "sale_create", CreatedAt: now.Add(-30 * time.Minute)},
	}
	for _, entry := range entries {
		if err := s.CreateAuditLog(ctx, entry); err != nil {
			t.Fatalf("create audit log: %v", err)
		}
	}

	logs, err := s.ListAuditLogs(ctx, "main-store", now.Add(-time.Hour), now, 10)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log in window for store, got %d", len(logs))
	}
	if logs[0].Action != "sale_void" {
		t.Fatalf("unexpected log %+v", logs[0])
	}
}
