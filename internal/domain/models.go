package domain

import "time"

// Product is the catalog record plus the live stock counters owned by the
// stock ledger. Quantity is never negative; LowStockAlert is derived from
// Quantity and ReorderPoint on every adjustment and persisted alongside it.
type Product struct {
	ID              string    `json:"id"`
	SKU             string    `json:"sku"`
	Name            string    `json:"name"`
	Brand           string    `json:"brand,omitempty"`
	Category        string    `json:"category"`
	Size            string    `json:"size,omitempty"`
	Color           string    `json:"color,omitempty"`
	PriceCents      int64     `json:"price_cents"`
	CostPriceCents  int64     `json:"cost_price_cents"`
	Quantity        int       `json:"quantity"`
	ReorderPoint    int       `json:"reorder_point"`
	ReorderQuantity int       `json:"reorder_quantity"`
	LowStockAlert   bool      `json:"low_stock_alert"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	SKU             string `json:"sku"`
	Name            string `json:"name"`
	Brand           string `json:"brand"`
	Category        string `json:"category"`
	Size            string `json:"size"`
	Color           string `json:"color"`
	PriceCents      int64  `json:"price_cents"`
	CostPriceCents  int64  `json:"cost_price_cents"`
	InitialStock    int    `json:"initial_stock"`
	ReorderPoint    int    `json:"reorder_point"`
	ReorderQuantity int    `json:"reorder_quantity"`
}

// Customer is embedded in a sale, not a foreign entity.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// SaleItem carries a snapshot of the product at time of sale so historical
// sales stay readable after the product is renamed or removed.
type SaleItem struct {
	ProductID      string `json:"product_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	DiscountCents  int64  `json:"discount_cents"`
	TotalCents     int64  `json:"total_cents"`
}

type Sale struct {
	ID                string     `json:"id"`
	InvoiceNo         string     `json:"invoice_no"`
	StoreID           string     `json:"store_id"`
	Customer          Customer   `json:"customer"`
	SoldBy            string     `json:"sold_by"`
	PaymentMethod     string     `json:"payment_method"`
	PaymentStatus     string     `json:"payment_status"`
	FulfillmentStatus string     `json:"fulfillment_status"`
	Notes             string     `json:"notes,omitempty"`
	SubtotalCents     int64      `json:"subtotal_cents"`
	DiscountCents     int64      `json:"discount_cents"`
	TaxCents          int64      `json:"tax_cents"`
	TotalCents        int64      `json:"total_cents"`
	Status            string     `json:"status"`
	VoidReason        string     `json:"void_reason,omitempty"`
	VoidedAt          *time.Time `json:"voided_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	Items             []SaleItem `json:"items"`
}

// SaleLineRequest is one caller-supplied cart line. A zero unit price means
// "use the catalog price".
type SaleLineRequest struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents,omitempty"`
	DiscountCents  int64  `json:"discount_cents,omitempty"`
}

// ClientTotals are totals precomputed by the caller. They are never trusted:
// the engine recomputes everything server-side and uses these only to flag
// mismatches.
type ClientTotals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TotalCents    int64 `json:"total_cents"`
}

type SaleCreateRequest struct {
	StoreID        string            `json:"store_id"`
	Customer       Customer          `json:"customer"`
	PaymentMethod  string            `json:"payment_method"`
	PaymentStatus  string            `json:"payment_status"`
	Notes          string            `json:"notes"`
	DiscountCents  int64             `json:"discount_cents"`
	TaxRatePercent *float64          `json:"tax_rate_percent,omitempty"`
	ClientTotals   *ClientTotals     `json:"client_totals,omitempty"`
	Items          []SaleLineRequest `json:"items"`
}

type SaleResponse struct {
	Sale           Sale `json:"sale"`
	TotalsMismatch bool `json:"totals_mismatch,omitempty"`
}

type SaleListResponse struct {
	Sales []Sale `json:"sales"`
}

type VoidSaleRequest struct {
	SaleID     string `json:"sale_id"`
	Reason     string `json:"reason"`
	ManagerPIN string `json:"manager_pin"`
}

type VoidSaleResponse struct {
	SaleID   string `json:"sale_id"`
	Status   string `json:"status"`
	VoidedAt string `json:"voided_at"`
}

// StockMovement is one ledger entry: the signed delta applied to a product's
// quantity and the balance after it.
type StockMovement struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Delta     int       `json:"delta"`
	Balance   int       `json:"balance"`
	Reason    string    `json:"reason"`
	RefID     string    `json:"ref_id,omitempty"`
	ActorName string    `json:"actor_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type RestockRequest struct {
	Qty int `json:"qty"`
}

// StockProjection is the read-only view of a product's stock state consumed
// by dashboard collaborators.
type StockProjection struct {
	ProductID     string `json:"product_id"`
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	ReorderPoint  int    `json:"reorder_point"`
	LowStockAlert bool   `json:"low_stock_alert"`
	Severity      string `json:"severity"`
}

type StockOverview struct {
	StoreID     string            `json:"store_id"`
	GeneratedAt string            `json:"generated_at"`
	Products    []StockProjection `json:"products"`
}

type ReorderSuggestion struct {
	ProductID      string `json:"product_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	ReorderPoint   int    `json:"reorder_point"`
	RecommendedQty int    `json:"recommended_qty"`
	EstimatedCents int64  `json:"estimated_cents"`
}

type ReorderSuggestionResponse struct {
	StoreID     string              `json:"store_id"`
	GeneratedAt string              `json:"generated_at"`
	Suggestions []ReorderSuggestion `json:"suggestions"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	StoreID       string    `json:"store_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	SaleStatusCommitted = "committed"
	SaleStatusVoided    = "voided"
)

const (
	StockReasonSale     = "sale"
	StockReasonRestock  = "restock"
	StockReasonReversal = "reversal"
)

const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPending = "pending"
)

const (
	FulfillmentStatusFulfilled = "fulfilled"
	FulfillmentStatusPending   = "pending"
)

// Severity bands layered over the quantity counter, worst first.
const (
	StockSeverityOut      = "out_of_stock"
	StockSeverityCritical = "critical"
	StockSeverityLow      = "low"
	StockSeverityOK       = "ok"
)
