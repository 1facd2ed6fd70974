package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"stockpos/backend/internal/domain"
	"stockpos/backend/internal/store"
	"stockpos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, sku, name, brand, category, size, color, price_cents, cost_price_cents,
	quantity, reorder_point, reorder_quantity, low_stock_alert, active, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	var brand, size, color sql.NullString
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &brand, &p.Category, &size, &color,
		&p.PriceCents, &p.CostPriceCents, &p.Quantity, &p.ReorderPoint, &p.ReorderQuantity,
		&p.LowStockAlert, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	if brand.Valid {
		p.Brand = brand.String
	}
	if size.Valid {
		p.Size = size.String
	}
	if color.Valid {
		p.Color = color.String
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return nil, store.ErrValidation
	}
	if product.Quantity < 0 || product.ReorderPoint < 0 || product.ReorderQuantity < 0 {
		return nil, store.ErrValidation
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}

	now := time.Now().UTC()
	product.Active = true
	product.LowStockAlert = product.Quantity <= product.ReorderPoint
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, sku, name, brand, category, size, color, price_cents, cost_price_cents,
			quantity, reorder_point, reorder_quantity, low_stock_alert, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, product.ID, product.SKU, product.Name, nullIfEmpty(product.Brand), product.Category,
		nullIfEmpty(product.Size), nullIfEmpty(product.Color), product.PriceCents, product.CostPriceCents,
		product.Quantity, product.ReorderPoint, product.ReorderQuantity, product.LowStockAlert,
		product.Active, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true AND id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// AdjustStock is the ledger's atomic read-modify-write: a single conditional
// UPDATE that refuses to take the quantity below zero and recomputes the
// low-stock flag in the same statement, so concurrent adjustments can never
// both pass a stale precondition.
func (s *Store) AdjustStock(ctx context.Context, productID string, delta int, reason string, refID string) (*domain.Product, error) {
	if delta == 0 {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	product, err := adjustStockTx(ctx, tx, productID, delta, reason, refID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return product, nil
}

func adjustStockTx(ctx context.Context, tx *sql.Tx, productID string, delta int, reason string, refID string) (*domain.Product, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE products
		SET quantity = quantity + $2,
			low_stock_alert = (quantity + $2) <= reorder_point,
			updated_at = now()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING `+productColumns+`
	`, productID, delta)

	product, err := scanProduct(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		// The conditional update matched nothing: either the product does
		// not exist or the deduction would go negative.
		var available int
		lookupErr := tx.QueryRowContext(ctx, `
			SELECT quantity FROM products WHERE id = $1
		`, productID).Scan(&available)
		if errors.Is(lookupErr, sql.ErrNoRows) {
			return nil, store.ErrProductNotFound
		}
		if lookupErr != nil {
			return nil, lookupErr
		}
		return nil, &store.InsufficientStockError{
			ProductID: productID,
			Requested: -delta,
			Available: available,
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, delta, balance, reason, ref_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
	`, xid.New("mov"), productID, delta, product.Quantity, reason, nullIfEmpty(refID))
	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (s *Store) ListStockMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, delta, balance, reason, ref_id, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var m domain.StockMovement
		var refID sql.NullString
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Delta, &m.Balance, &m.Reason, &refID, &m.CreatedAt); err != nil {
			return nil, err
		}
		if refID.Valid {
			m.RefID = refID.String
		}
		m.CreatedAt = m.CreatedAt.UTC()
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

// CreateSale runs the whole reserve-and-commit sequence in one serializable
// transaction: product rows are locked, every deduction is applied through
// the same conditional update the ledger uses, and any failure rolls the
// entire unit back, so no stock is ever left debited for a sale that was
// not persisted.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 || strings.TrimSpace(sale.Customer.Name) == "" {
		return nil, store.ErrValidation
	}
	if err := reconcileTotals(sale); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the involved product rows up front in a stable order to keep
	// concurrent multi-item sales from deadlocking on each other.
	ids := uniqueProductIDs(sale.Items)
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM products
		WHERE active = true AND id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	locked := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		locked[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusCommitted
	}

	for _, item := range sale.Items {
		if item.Qty < 1 {
			return nil, store.ErrValidation
		}
		if _, ok := locked[item.ProductID]; !ok {
			return nil, fmt.Errorf("%w: %s", store.ErrProductNotFound, item.ProductID)
		}
		if _, err := adjustStockTx(ctx, tx, item.ProductID, -item.Qty, domain.StockReasonSale, sale.ID); err != nil {
			return nil, err
		}
	}

	if sale.InvoiceNo == "" {
		invoiceNo, err := nextInvoiceTx(ctx, tx, sale.StoreID, sale.CreatedAt)
		if err != nil {
			return nil, err
		}
		sale.InvoiceNo = invoiceNo
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, invoice_no, store_id, customer_name, customer_phone, customer_email,
			sold_by, payment_method, payment_status, fulfillment_status, notes,
			subtotal_cents, discount_cents, tax_cents, total_cents,
			status, void_reason, voided_at, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`, sale.ID, sale.InvoiceNo, sale.StoreID, sale.Customer.Name, nullIfEmpty(sale.Customer.Phone),
		nullIfEmpty(sale.Customer.Email), sale.SoldBy, sale.PaymentMethod, sale.PaymentStatus,
		sale.FulfillmentStatus, nullIfEmpty(sale.Notes), sale.SubtotalCents, sale.DiscountCents,
		sale.TaxCents, sale.TotalCents, sale.Status, nullIfEmpty(sale.VoidReason),
		nullTime(sale.VoidedAt), sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, item := range sale.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, sku, name, category, qty, unit_price_cents, discount_cents, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, sale.ID, item.ProductID, item.SKU, item.Name, item.Category, item.Qty,
			item.UnitPriceCents, item.DiscountCents, item.TotalCents)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	var phone, email, notes, voidReason sql.NullString
	var voidedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, invoice_no, store_id, customer_name, customer_phone, customer_email,
			sold_by, payment_method, payment_status, fulfillment_status, notes,
			subtotal_cents, discount_cents, tax_cents, total_cents,
			status, void_reason, voided_at, created_at
		FROM sales
		WHERE id = $1
	`, id).Scan(
		&sale.ID, &sale.InvoiceNo, &sale.StoreID, &sale.Customer.Name, &phone, &email,
		&sale.SoldBy, &sale.PaymentMethod, &sale.PaymentStatus, &sale.FulfillmentStatus, &notes,
		&sale.SubtotalCents, &sale.DiscountCents, &sale.TaxCents, &sale.TotalCents,
		&sale.Status, &voidReason, &voidedAt, &sale.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSaleNotFound
		}
		return nil, err
	}
	if phone.Valid {
		sale.Customer.Phone = phone.String
	}
	if email.Valid {
		sale.Customer.Email = email.String
	}
	if notes.Valid {
		sale.Notes = notes.String
	}
	if voidReason.Valid {
		sale.VoidReason = voidReason.String
	}
	if voidedAt.Valid {
		at := voidedAt.Time.UTC()
		sale.VoidedAt = &at
	}
	sale.CreatedAt = sale.CreatedAt.UTC()

	items, err := s.loadSaleItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (s *Store) loadSaleItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, sku, name, category, qty, unit_price_cents, discount_cents, total_cents
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, 8)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ProductID, &item.SKU, &item.Name, &item.Category,
			&item.Qty, &item.UnitPriceCents, &item.DiscountCents, &item.TotalCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListSales(ctx context.Context, storeID string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id
		FROM sales
		WHERE ($1 = '' OR store_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, storeID, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	sales := make([]domain.Sale, 0, len(ids))
	for _, id := range ids {
		sale, err := s.GetSaleByID(ctx, id)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	return sales, nil
}

// VoidSale is the guarded committed-to-voided transition. The sale row is
// locked for the duration, so two concurrent voids cannot both pass the
// status check and double-credit stock.
func (s *Store) VoidSale(ctx context.Context, id string, reason string, at time.Time) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var saleStoreID, status string
	err = tx.QueryRowContext(ctx, `
		SELECT store_id, status
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&saleStoreID, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSaleNotFound
		}
		return nil, err
	}
	if status != domain.SaleStatusCommitted {
		return nil, store.ErrSaleAlreadyVoided
	}

	itemRows, err := tx.QueryContext(ctx, `
		SELECT product_id, qty
		FROM sale_items
		WHERE sale_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	type creditLine struct {
		productID string
		qty       int
	}
	credits := make([]creditLine, 0, 8)
	for itemRows.Next() {
		var line creditLine
		if err := itemRows.Scan(&line.productID, &line.qty); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		credits = append(credits, line)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	for _, line := range credits {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET quantity = quantity + $2,
				low_stock_alert = (quantity + $2) <= reorder_point,
				updated_at = now()
			WHERE id = $1
		`, line.productID, line.qty)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		// A product removed since the sale must not block the reversal.
		if affected == 0 {
			continue
		}
		var balance int
		if err := tx.QueryRowContext(ctx, `
			SELECT quantity FROM products WHERE id = $1
		`, line.productID).Scan(&balance); err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, product_id, delta, balance, reason, ref_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,now())
		`, xid.New("mov"), line.productID, line.qty, balance, domain.StockReasonReversal, id)
		if err != nil {
			return nil, err
		}
	}

	voidedAt := at.UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE sales
		SET status = $2, void_reason = $3, voided_at = $4
		WHERE id = $1 AND status = $5
	`, id, domain.SaleStatusVoided, reason, voidedAt, domain.SaleStatusCommitted)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetSaleByID(ctx, id)
}

func (s *Store) NextInvoiceNumber(ctx context.Context, storeID string, day time.Time) (string, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	invoiceNo, err := nextInvoiceTx(ctx, tx, storeID, day)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return invoiceNo, nil
}

// nextInvoiceTx bumps the per-store, per-day counter with an atomic upsert,
// so concurrent commits can never be handed the same number.
func nextInvoiceTx(ctx context.Context, tx *sql.Tx, storeID string, day time.Time) (string, error) {
	dayKey := day.UTC().Format("20060102")
	var value int
	err := tx.QueryRowContext(ctx, `
		INSERT INTO invoice_counters (store_id, day, value)
		VALUES ($1,$2,1)
		ON CONFLICT (store_id, day)
		DO UPDATE SET value = invoice_counters.value + 1
		RETURNING value
	`, storeID, dayKey).Scan(&value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%s-%04d", dayKey, value), nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.StoreID, entry.ActorUsername, entry.ActorRole, entry.Action,
		entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR store_id = $1) AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4
	`, storeID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.StoreID, &entry.ActorUsername, &entry.ActorRole,
			&entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrValidation
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users SET password = $2, updated_at = now() WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrValidation
	}
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

func uniqueProductIDs(items []domain.SaleItem) []string {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		set[item.ProductID] = struct{}{}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
