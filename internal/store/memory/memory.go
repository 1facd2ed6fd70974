package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stockpos/backend/internal/domain"
	"stockpos/backend/internal/store"
	"stockpos/backend/internal/xid"
)

// Store is the in-memory repository used for dev mode and tests. One mutex
// serializes every mutation, which trivially satisfies the per-product
// atomicity the ledger requires; the compensation list in CreateSale mirrors
// the rollback the coordinator needs from stores without that luxury.
type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	productIDBySKU  map[string]string
	movements       map[string][]domain.StockMovement
	salesByID       map[string]*domain.Sale
	invoiceCounters map[string]int
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		productIDBySKU:  make(map[string]string),
		movements:       make(map[string][]domain.StockMovement),
		salesByID:       make(map[string]*domain.Sale),
		invoiceCounters: make(map[string]int),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

// NewSeeded returns a store pre-loaded with a small demo catalog.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	for _, p := range []domain.Product{
		{ID: "prod-tshirt-01", SKU: "TS-BLK-M", Name: "Basic Tee", Brand: "Houseline", Category: "apparel", Size: "M", Color: "black", PriceCents: 14900, CostPriceCents: 6200, Quantity: 80, ReorderPoint: 15, ReorderQuantity: 40},
		{ID: "prod-jeans-01", SKU: "JN-BLU-32", Name: "Slim Jeans", Brand: "Houseline", Category: "apparel", Size: "32", Color: "blue", PriceCents: 49900, CostPriceCents: 21000, Quantity: 45, ReorderPoint: 10, ReorderQuantity: 25},
		{ID: "prod-mug-01", SKU: "MG-WHT-01", Name: "Ceramic Mug", Brand: "Kitchenette", Category: "homeware", Color: "white", PriceCents: 8900, CostPriceCents: 3100, Quantity: 120, ReorderPoint: 20, ReorderQuantity: 60},
		{ID: "prod-candle-01", SKU: "CD-VAN-01", Name: "Vanilla Candle", Brand: "Kitchenette", Category: "homeware", PriceCents: 12900, CostPriceCents: 4800, Quantity: 60, ReorderPoint: 12, ReorderQuantity: 36},
		{ID: "prod-cap-01", SKU: "CP-NVY-01", Name: "Canvas Cap", Brand: "Houseline", Category: "accessories", Color: "navy", PriceCents: 9900, CostPriceCents: 4100, Quantity: 35, ReorderPoint: 8, ReorderQuantity: 20},
	} {
		p.Active = true
		p.LowStockAlert = p.Quantity <= p.ReorderPoint
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
		s.productIDBySKU[p.SKU] = p.ID
	}
	return s
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. These are never
// used in production (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.SKU == "" || product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return nil, store.ErrValidation
	}
	if product.Quantity < 0 || product.ReorderPoint < 0 || product.ReorderQuantity < 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.productIDBySKU[product.SKU]; exists {
		return nil, store.ErrValidation
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrValidation
	}

	now := time.Now().UTC()
	product.Active = true
	product.LowStockAlert = product.Quantity <= product.ReorderPoint
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product
	s.productIDBySKU[product.SKU] = product.ID
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrProductNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.Active {
			result[id] = p
		}
	}
	return result, nil
}

// adjustLocked is the single mutation path for a product's quantity. The
// caller must hold the write lock.
func (s *Store) adjustLocked(productID string, delta int, reason string, refID string) (*domain.Product, error) {
	product, exists := s.products[productID]
	if !exists {
		return nil, store.ErrProductNotFound
	}
	next := product.Quantity + delta
	if next < 0 {
		return nil, &store.InsufficientStockError{
			ProductID: productID,
			Requested: -delta,
			Available: product.Quantity,
		}
	}

	product.Quantity = next
	product.LowStockAlert = next <= product.ReorderPoint
	product.UpdatedAt = time.Now().UTC()
	s.products[productID] = product

	s.movements[productID] = append(s.movements[productID], domain.StockMovement{
		ID:        xid.New("mov"),
		ProductID: productID,
		Delta:     delta,
		Balance:   next,
		Reason:    reason,
		RefID:     refID,
		CreatedAt: product.UpdatedAt,
	})

	adjusted := product
	return &adjusted, nil
}

func (s *Store) AdjustStock(_ context.Context, productID string, delta int, reason string, refID string) (*domain.Product, error) {
	if delta == 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustLocked(productID, delta, reason, refID)
}

func (s *Store) ListStockMovements(_ context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	history := s.movements[productID]
	result := make([]domain.StockMovement, len(history))
	copy(result, history)
	slices.Reverse(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 || strings.TrimSpace(sale.Customer.Name) == "" {
		return nil, store.ErrValidation
	}
	if err := reconcileTotals(sale); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusCommitted
	}

	// Reserve stock line by line, recording each applied deduction so a
	// failure part-way through credits everything back before returning.
	applied := make([]domain.SaleItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.Qty < 1 {
			s.compensateLocked(applied, sale.ID)
			return nil, store.ErrValidation
		}
		if _, err := s.adjustLocked(item.ProductID, -item.Qty, domain.StockReasonSale, sale.ID); err != nil {
			s.compensateLocked(applied, sale.ID)
			return nil, err
		}
		applied = append(applied, item)
	}

	if sale.InvoiceNo == "" {
		sale.InvoiceNo = s.nextInvoiceLocked(sale.StoreID, sale.CreatedAt)
	}

	stored := cloneSale(sale)
	s.salesByID[sale.ID] = &stored
	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) compensateLocked(applied []domain.SaleItem, saleID string) {
	for _, item := range applied {
		if _, err := s.adjustLocked(item.ProductID, item.Qty, domain.StockReasonReversal, saleID); err != nil {
			log.Printf("[memory-store] WARN: compensation failed for product %s: %v", item.ProductID, err)
		}
	}
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrSaleNotFound
	}
	copySale := cloneSale(*sale)
	return &copySale, nil
}

func (s *Store) ListSales(_ context.Context, storeID string, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if storeID != "" && sale.StoreID != storeID {
			continue
		}
		sales = append(sales, cloneSale(*sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) VoidSale(_ context.Context, id string, reason string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrSaleNotFound
	}
	if sale.Status != domain.SaleStatusCommitted {
		return nil, store.ErrSaleAlreadyVoided
	}

	for _, item := range sale.Items {
		if _, err := s.adjustLocked(item.ProductID, item.Qty, domain.StockReasonReversal, sale.ID); err != nil {
			// A product removed since the sale must not block the reversal.
			if _, ok := s.products[item.ProductID]; !ok {
				continue
			}
			return nil, err
		}
	}

	sale.Status = domain.SaleStatusVoided
	sale.VoidReason = reason
	voidedAt := at.UTC()
	sale.VoidedAt = &voidedAt

	copySale := cloneSale(*sale)
	return &copySale, nil
}

func (s *Store) NextInvoiceNumber(_ context.Context, storeID string, day time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextInvoiceLocked(storeID, day), nil
}

func (s *Store) nextInvoiceLocked(storeID string, day time.Time) string {
	key := storeID + "/" + day.UTC().Format("20060102")
	s.invoiceCounters[key]++
	return fmt.Sprintf("INV-%s-%04d", day.UTC().Format("20060102"), s.invoiceCounters[key])
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	result := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(result) < limit; i-- {
		entry := s.auditLogs[i]
		if storeID != "" && entry.StoreID != storeID {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrValidation
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrValidation
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// reconcileTotals rejects a sale whose stored totals disagree with its line
// items beyond a one-cent rounding tolerance.
func reconcileTotals(sale domain.Sale) error {
	lineSum := int64(0)
	for _, item := range sale.Items {
		if item.TotalCents != int64(item.Qty)*item.UnitPriceCents-item.DiscountCents {
			return store.ErrValidation
		}
		lineSum += item.TotalCents
	}
	if absInt64(sale.SubtotalCents-lineSum) > 1 {
		return store.ErrValidation
	}
	if absInt64(sale.TotalCents-(sale.SubtotalCents-sale.DiscountCents+sale.TaxCents)) > 1 {
		return store.ErrValidation
	}
	return nil
}

func cloneSale(sale domain.Sale) domain.Sale {
	copied := sale
	copied.Items = make([]domain.SaleItem, len(sale.Items))
	copy(copied.Items, sale.Items)
	if sale.VoidedAt != nil {
		at := *sale.VoidedAt
		copied.VoidedAt = &at
	}
	return copied
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
