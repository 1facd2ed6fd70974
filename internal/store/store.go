package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockpos/backend/internal/domain"
)

var (
	ErrValidation        = errors.New("invalid input")
	ErrProductNotFound   = errors.New("product not found")
	ErrSaleNotFound      = errors.New("sale not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrSaleAlreadyVoided = errors.New("sale already voided")
)

// InsufficientStockError reports exactly which product could not cover a
// deduction so callers can render a precise message. It unwraps to
// ErrInsufficientStock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Repository is the durable authority over products, sales and the stock
// ledger. Implementations must make AdjustStock and CreateSale safe under
// concurrent callers: two deductions against the same product must never
// both pass their precondition against a stale read, and a sale's set of
// deductions must be all-or-nothing.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)

	// AdjustStock applies a signed delta to one product's quantity as a
	// single atomic read-modify-write, recomputes the low-stock flag, and
	// appends a stock movement. A delta that would take the quantity below
	// zero fails with *InsufficientStockError and changes nothing.
	AdjustStock(ctx context.Context, productID string, delta int, reason string, refID string) (*domain.Product, error)
	ListStockMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error)

	// CreateSale reserves stock for every line and persists the sale as one
	// logical unit. On any failure no product quantity is left mutated.
	// Totals on the passed sale must already reconcile against its items.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, storeID string, limit int) ([]domain.Sale, error)

	// VoidSale transitions a committed sale to voided and re-credits every
	// line's stock. A second void fails with ErrSaleAlreadyVoided. Products
	// removed since the sale are tolerated: their credit is skipped.
	VoidSale(ctx context.Context, id string, reason string, at time.Time) (*domain.Sale, error)

	// NextInvoiceNumber allocates the next per-store, per-day invoice
	// number. Allocation is atomic: no two calls return the same number.
	NextInvoiceNumber(ctx context.Context, storeID string, day time.Time) (string, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
