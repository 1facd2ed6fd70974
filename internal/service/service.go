package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"stockpos/backend/internal/alerting"
	"stockpos/backend/internal/cache"
	"stockpos/backend/internal/checkout"
	"stockpos/backend/internal/domain"
	"stockpos/backend/internal/store"
	"stockpos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo               store.Repository
	overviewCache      cache.StockOverviewCache
	defaultStoreID     string
	defaultTaxPercent  float64
	overviewTTLSeconds int
}

func New(repo store.Repository, overviewCache cache.StockOverviewCache, defaultStoreID string, defaultTaxPercent float64, overviewTTLSeconds int) *Service {
	if overviewCache == nil {
		overviewCache = cache.NoopStockOverviewCache{}
	}
	if defaultStoreID == "" {
		defaultStoreID = "main-store"
	}
	if defaultTaxPercent < 0 || defaultTaxPercent > 100 {
		defaultTaxPercent = 18
	}
	if overviewTTLSeconds < 1 {
		overviewTTLSeconds = 20
	}

	return &Service{
		repo:               repo,
		overviewCache:      overviewCache,
		defaultStoreID:     defaultStoreID,
		defaultTaxPercent:  defaultTaxPercent,
		overviewTTLSeconds: overviewTTLSeconds,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, store.ErrValidation
	}
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if req.SKU == "" || req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrValidation
	}
	if req.PriceCents < 1 || req.CostPriceCents < 0 || req.InitialStock < 0 {
		return domain.Product{}, store.ErrValidation
	}
	if req.ReorderPoint < 0 || req.ReorderQuantity < 0 {
		return domain.Product{}, store.ErrValidation
	}

	product := domain.Product{
		SKU:             req.SKU,
		Name:            req.Name,
		Brand:           strings.TrimSpace(req.Brand),
		Category:        req.Category,
		Size:            strings.TrimSpace(req.Size),
		Color:           strings.TrimSpace(req.Color),
		PriceCents:      req.PriceCents,
		CostPriceCents:  req.CostPriceCents,
		Quantity:        req.InitialStock,
		ReorderPoint:    req.ReorderPoint,
		ReorderQuantity: req.ReorderQuantity,
		Active:          true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateOverview(ctx, s.defaultStoreID)
	s.logAudit(ctx, s.defaultStoreID, "product_create", "product", created.ID, fmt.Sprintf("sku=%s,price=%d,stock=%d", created.SKU, created.PriceCents, created.Quantity))

	return *created, nil
}

func (s *Service) Restock(ctx context.Context, productID string, req domain.RestockRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	productID = strings.TrimSpace(productID)
	if productID == "" || req.Qty < 1 {
		return domain.Product{}, store.ErrValidation
	}

	product, err := s.repo.AdjustStock(ctx, productID, req.Qty, domain.StockReasonRestock, "")
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateOverview(ctx, s.defaultStoreID)
	s.logAudit(ctx, s.defaultStoreID, "stock_restock", "product", product.ID, fmt.Sprintf("qty=%d,balance=%d", req.Qty, product.Quantity))

	return *product, nil
}

func (s *Service) ListStockMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, store.ErrValidation
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListStockMovements(ctx, productID, limit)
}

// CreateSale is the all-or-nothing sale flow: resolve products, price and
// total every line server-side, then hand the assembled sale to the
// repository, which reserves stock for every line or none. Client-supplied
// totals are only compared against the recomputed ones, never trusted.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.SaleResponse, error) {
	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}
	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return domain.SaleResponse{}, store.ErrValidation
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = domain.PaymentStatusPaid
	}
	if req.PaymentStatus != domain.PaymentStatusPaid && req.PaymentStatus != domain.PaymentStatusPending {
		return domain.SaleResponse{}, store.ErrValidation
	}
	if req.DiscountCents < 0 {
		return domain.SaleResponse{}, store.ErrValidation
	}
	req.Customer.Name = strings.TrimSpace(req.Customer.Name)
	if req.Customer.Name == "" {
		return domain.SaleResponse{}, store.ErrValidation
	}
	if len(req.Items) == 0 {
		return domain.SaleResponse{}, store.ErrValidation
	}

	taxRate := s.defaultTaxPercent
	if req.TaxRatePercent != nil {
		if *req.TaxRatePercent < 0 || *req.TaxRatePercent > 100 {
			return domain.SaleResponse{}, store.ErrValidation
		}
		taxRate = *req.TaxRatePercent
	}

	ids := make([]string, 0, len(req.Items))
	for _, line := range req.Items {
		if strings.TrimSpace(line.ProductID) == "" {
			return domain.SaleResponse{}, store.ErrValidation
		}
		ids = append(ids, line.ProductID)
	}

	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	builder := checkout.NewBuilder(taxRate)
	requested := make(map[string]int, len(req.Items))
	for _, line := range req.Items {
		product, exists := products[line.ProductID]
		if !exists {
			return domain.SaleResponse{}, fmt.Errorf("%w: %s", store.ErrProductNotFound, line.ProductID)
		}
		if line.Qty < 1 {
			return domain.SaleResponse{}, store.ErrValidation
		}

		// Early rejection against the snapshot. The repository re-checks
		// under its own locking, which is the authoritative verdict.
		requested[line.ProductID] += line.Qty
		if requested[line.ProductID] > product.Quantity {
			return domain.SaleResponse{}, &store.InsufficientStockError{
				ProductID: product.ID,
				Requested: requested[line.ProductID],
				Available: product.Quantity,
			}
		}

		unitPrice := line.UnitPriceCents
		if unitPrice == 0 {
			unitPrice = product.PriceCents
		}
		if err := builder.AddItem(product, line.Qty, unitPrice, line.DiscountCents); err != nil {
			return domain.SaleResponse{}, fmt.Errorf("%w: %s", store.ErrValidation, err)
		}
	}

	totals, mismatch := builder.Totals(req.DiscountCents, req.ClientTotals)
	if mismatch {
		log.Printf("[service] WARN: client totals mismatch store=%s subtotal=%d total=%d", req.StoreID, totals.SubtotalCents, totals.TotalCents)
	}

	actor, _ := ActorFromContext(ctx)
	sale := domain.Sale{
		ID:                xid.New("sale"),
		StoreID:           req.StoreID,
		Customer:          req.Customer,
		SoldBy:            actor.Username,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     req.PaymentStatus,
		FulfillmentStatus: domain.FulfillmentStatusFulfilled,
		Notes:             strings.TrimSpace(req.Notes),
		SubtotalCents:     totals.SubtotalCents,
		DiscountCents:     min64(req.DiscountCents, totals.SubtotalCents),
		TaxCents:          totals.TaxCents,
		TotalCents:        totals.TotalCents,
		Status:            domain.SaleStatusCommitted,
		CreatedAt:         time.Now().UTC(),
		Items:             builder.Items(),
	}
	if req.PaymentStatus == domain.PaymentStatusPending {
		sale.FulfillmentStatus = domain.FulfillmentStatusPending
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	s.invalidateOverview(ctx, req.StoreID)
	s.logAudit(ctx, req.StoreID, "sale_create", "sale", created.ID, fmt.Sprintf("invoice=%s,total=%d,items=%d,mismatch=%t", created.InvoiceNo, created.TotalCents, len(created.Items), mismatch))

	return domain.SaleResponse{Sale: *created, TotalsMismatch: mismatch}, nil
}

func (s *Service) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return domain.Sale{}, store.ErrValidation
	}
	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, storeID string, limit int) (domain.SaleListResponse, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	if limit < 1 {
		limit = 100
	}
	sales, err := s.repo.ListSales(ctx, storeID, limit)
	if err != nil {
		return domain.SaleListResponse{}, err
	}
	return domain.SaleListResponse{Sales: sales}, nil
}

// VoidSale reverses a committed sale: the repository re-credits every line's
// stock and flips the status in one guarded step, so a double void fails
// with ErrSaleAlreadyVoided and never credits twice.
func (s *Service) VoidSale(ctx context.Context, req domain.VoidSaleRequest) (domain.VoidSaleResponse, error) {
	req.SaleID = strings.TrimSpace(req.SaleID)
	if req.SaleID == "" {
		return domain.VoidSaleResponse{}, store.ErrValidation
	}
	if strings.TrimSpace(req.Reason) == "" {
		req.Reason = "unspecified"
	}

	voidedAt := time.Now().UTC()
	sale, err := s.repo.VoidSale(ctx, req.SaleID, req.Reason, voidedAt)
	if err != nil {
		return domain.VoidSaleResponse{}, err
	}

	s.invalidateOverview(ctx, sale.StoreID)
	s.logAudit(ctx, sale.StoreID, "sale_void", "sale", sale.ID, req.Reason)

	return domain.VoidSaleResponse{
		SaleID:   sale.ID,
		Status:   sale.Status,
		VoidedAt: voidedAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) StockOverview(ctx context.Context, storeID string) (domain.StockOverview, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}

	key := overviewCacheKey(storeID)
	if cached, ok, err := s.overviewCache.Get(ctx, key); err == nil && ok {
		return *cached, nil
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.StockOverview{}, err
	}

	overview := alerting.BuildOverview(storeID, products, time.Now())
	ttl := time.Duration(s.overviewTTLSeconds) * time.Second
	if err := s.overviewCache.Set(ctx, key, &overview, ttl); err != nil {
		log.Printf("[service] WARN: failed to cache stock overview store=%s: %v", storeID, err)
	}
	return overview, nil
}

func (s *Service) ReorderSuggestions(ctx context.Context, storeID string) (domain.ReorderSuggestionResponse, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.ReorderSuggestionResponse{}, err
	}
	return alerting.ReorderSuggestions(storeID, products, time.Now()), nil
}

func (s *Service) ListAuditLogs(ctx context.Context, storeID string, date string, limit int) ([]domain.AuditLog, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = time.Now().UTC().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, store.ErrValidation
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, storeID, from, to, limit)
}

func overviewCacheKey(storeID string) string {
	return "stock-overview:" + storeID
}

func (s *Service) invalidateOverview(ctx context.Context, storeID string) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	if err := s.overviewCache.Invalidate(ctx, overviewCacheKey(storeID)); err != nil {
		log.Printf("[service] WARN: failed to invalidate stock overview cache store=%s: %v", storeID, err)
	}
}

func (s *Service) logAudit(ctx context.Context, storeID string, action string, entityType string, entityID string, detail string) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		StoreID:       storeID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case "cash", "card", "qris", "ewallet":
		return true
	default:
		return false
	}
}

func min64(a int64, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
