package sale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Rokatacaem/SistemaBillar/internal/pricing"
	"github.com/Rokatacaem/SistemaBillar/internal/product"
)

var (
	ErrPayerRequired   = errors.New("payer required for account sales")
	ErrProductNotFound = errors.New("product not found")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// InsertTx appends one sale inside an already-open transaction. Settlement,
// debt payments and membership renewals all go through here so the ledger
// has a single write path.
func InsertTx(ctx context.Context, tx *sqlx.Tx, s *Sale) error {
	return tx.QueryRowxContext(ctx, `
		INSERT INTO sales (session_id, items, total, method, payment_status, user_id, user_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, s.SessionID, s.Items, s.Total, s.Method, s.PaymentStatus, s.UserID, s.UserName, s.CreatedAt).Scan(&s.ID)
}

// AdjustDebtTx moves a member's outstanding balance by delta (positive when
// debt is posted, negative when it is paid down or refunded).
func AdjustDebtTx(ctx context.Context, tx *sqlx.Tx, userID int, delta int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET current_debt = COALESCE(current_debt, 0) + $1 WHERE id = $2`,
		delta, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("member not found")
	}
	return nil
}

// DecrementStockTx performs the transactional check-then-decrement for one
// stock-controlled product. Products without stock control pass through.
func DecrementStockTx(ctx context.Context, tx *sqlx.Tx, productID, quantity int) error {
	var p struct {
		Name         string `db:"name"`
		Stock        int    `db:"stock"`
		StockControl bool   `db:"stock_control"`
	}
	err := tx.QueryRowxContext(ctx,
		`SELECT name, stock, stock_control FROM products WHERE id = $1 FOR UPDATE`,
		productID).StructScan(&p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return err
	}

	if !p.StockControl {
		return nil
	}
	if p.Stock < quantity {
		return fmt.Errorf("%w: %s", product.ErrInsufficientStock, p.Name)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE products SET stock = stock - $1 WHERE id = $2`,
		quantity, productID)
	return err
}

// CreateDirect records a counter sale: debt posting for account sales and
// stock decrements happen in the same transaction as the sale insert.
func (r *Repository) CreateDirect(ctx context.Context, req DirectSaleRequest, now time.Time) (*Sale, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	method := req.Method
	if method == "" {
		method = MethodCash
	}

	var total int64
	items := make(Items, 0, len(req.Items))
	for _, it := range req.Items {
		total += it.Price * int64(it.Quantity)
		items = append(items, Item{
			Type:      ItemProduct,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
			ProductID: it.ProductID,
		})
	}

	if method == MethodAccount {
		if req.UserID == nil {
			return nil, ErrPayerRequired
		}
		if err := AdjustDebtTx(ctx, tx, *req.UserID, total); err != nil {
			return nil, err
		}
	}

	s := &Sale{
		Items:         items,
		Total:         total,
		Method:        method,
		PaymentStatus: StatusFor(method),
		UserID:        req.UserID,
		UserName:      req.UserName,
		CreatedAt:     now,
	}
	if err := InsertTx(ctx, tx, s); err != nil {
		return nil, err
	}

	for _, it := range req.Items {
		if it.ProductID == nil {
			continue
		}
		if err := DecrementStockTx(ctx, tx, *it.ProductID, it.Quantity); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}

// Return refunds a sold product as a negative sale. WRONG returns restock
// the item, DEFECTIVE returns write it off; both leave a stock history row.
func (r *Repository) Return(ctx context.Context, req ReturnRequest, now time.Time) (*Sale, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var p struct {
		Name         string `db:"name"`
		Stock        int    `db:"stock"`
		StockControl bool   `db:"stock_control"`
	}
	err = tx.QueryRowxContext(ctx,
		`SELECT name, stock, stock_control FROM products WHERE id = $1 FOR UPDATE`,
		req.ProductID).StructScan(&p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if p.StockControl {
		switch req.Reason {
		case "WRONG":
			if _, err := tx.ExecContext(ctx,
				`UPDATE products SET stock = stock + $1 WHERE id = $2`,
				req.Quantity, req.ProductID); err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO stock_history (product_id, change_amount, previous_stock, new_stock, type, reference_doc, created_at)
				VALUES ($1, $2, $3, $4, 'RETURN_RESTOCK', 'Devolución Cliente', $5)
			`, req.ProductID, req.Quantity, p.Stock, p.Stock+req.Quantity, now); err != nil {
				return nil, err
			}
		case "DEFECTIVE":
			// the unit is trash, inventory stays as sold
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO stock_history (product_id, change_amount, previous_stock, new_stock, type, reference_doc, created_at)
				VALUES ($1, 0, $2, $2, 'RETURN_DEFECTIVE', 'Devolución Defectuoso', $3)
			`, req.ProductID, p.Stock, now); err != nil {
				return nil, err
			}
		}
	}

	negative := -req.Amount
	method := req.Method
	if method == "" {
		method = MethodCash
	}

	if method == MethodAccount {
		if req.UserID == nil {
			return nil, ErrPayerRequired
		}
		if err := AdjustDebtTx(ctx, tx, *req.UserID, negative); err != nil {
			return nil, err
		}
	}

	reason := "Equivocación"
	if req.Reason == "DEFECTIVE" {
		reason = "Defectuoso"
	}
	pid := req.ProductID
	s := &Sale{
		Items: Items{{
			Type:      ItemReturn,
			Name:      fmt.Sprintf("Devolución: %s (%s)", p.Name, reason),
			Quantity:  req.Quantity,
			Price:     negative,
			ProductID: &pid,
		}},
		Total:         negative,
		Method:        method,
		PaymentStatus: StatusFor(method),
		UserID:        req.UserID,
		CreatedAt:     now,
	}
	if err := InsertTx(ctx, tx, s); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}

// Exchange swaps one product for another, billing only the price difference
// at the payer's tier.
func (r *Repository) Exchange(ctx context.Context, req ExchangeRequest, now time.Time) (*Sale, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	type prodRow struct {
		Name         string `db:"name"`
		PriceClient  int64  `db:"price_client"`
		PriceSocio   int64  `db:"price_socio"`
		Stock        int    `db:"stock"`
		StockControl bool   `db:"stock_control"`
	}

	fetch := func(id int) (*prodRow, error) {
		var p prodRow
		err := tx.QueryRowxContext(ctx,
			`SELECT name, price_client, price_socio, stock, stock_control FROM products WHERE id = $1 FOR UPDATE`,
			id).StructScan(&p)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return &p, err
	}

	oldProd, err := fetch(req.ReturnProductID)
	if err != nil {
		return nil, err
	}
	newProd, err := fetch(req.NewProductID)
	if err != nil {
		return nil, err
	}

	if oldProd.StockControl {
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock + $1 WHERE id = $2`,
			req.Quantity, req.ReturnProductID); err != nil {
			return nil, err
		}
	}
	if newProd.StockControl {
		if newProd.Stock < req.Quantity {
			return nil, fmt.Errorf("%w: %s", product.ErrInsufficientStock, newProd.Name)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - $1 WHERE id = $2`,
			req.Quantity, req.NewProductID); err != nil {
			return nil, err
		}
	}

	tier, status := pricing.TierCliente, pricing.StatusActive
	if req.UserID != nil {
		var u struct {
			Type   string `db:"type"`
			Status string `db:"status"`
		}
		err := tx.QueryRowxContext(ctx,
			`SELECT type, status FROM users WHERE id = $1`, *req.UserID).StructScan(&u)
		if err == nil {
			tier, status = pricing.Tier(u.Type), u.Status
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	oldPrice := tierPrice(oldProd.PriceClient, oldProd.PriceSocio, tier, status)
	newPrice := tierPrice(newProd.PriceClient, newProd.PriceSocio, tier, status)
	totalDiff := (newPrice - oldPrice) * int64(req.Quantity)

	s := &Sale{
		Items: Items{{
			Type:     ItemExchange,
			Name:     fmt.Sprintf("Cambio: %s -> %s", oldProd.Name, newProd.Name),
			Quantity: req.Quantity,
			Price:    totalDiff,
		}},
		Total:         totalDiff,
		Method:        MethodCash,
		PaymentStatus: StatusPaid,
		UserID:        req.UserID,
		CreatedAt:     now,
	}
	if err := InsertTx(ctx, tx, s); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int) ([]Sale, error) {
	var sales []Sale
	err := r.db.SelectContext(ctx, &sales, `
		SELECT id, session_id, items, total, method, payment_status, user_id, user_name, created_at
		FROM sales
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	return sales, err
}

func tierPrice(client, socio int64, tier pricing.Tier, status string) int64 {
	if tier == pricing.TierSocio || (tier == pricing.TierFundador && status == pricing.StatusActive) {
		return socio
	}
	return client
}
