package product

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Rokatacaem/SistemaBillar/internal/pricing"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateName     = errors.New("product name already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	stockControl := true
	if req.StockControl != nil {
		stockControl = *req.StockControl
	}

	var p Product
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO products (name, price_client, price_socio, stock, category, stock_control)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, price_client, price_socio, stock, stock_control, category, created_at
	`, req.Name, req.PriceClient, req.PriceSocio, req.Stock, req.Category, stockControl).StructScan(&p)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetByID(ctx context.Context, id int) (*Product, error) {
	var p Product
	err := r.db.GetContext(ctx, &p, `
		SELECT id, name, price_client, price_socio, stock, stock_control, category, created_at
		FROM products
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) List(ctx context.Context) ([]Product, error) {
	var products []Product
	err := r.db.SelectContext(ctx, &products, `
		SELECT id, name, price_client, price_socio, stock, stock_control, category, created_at
		FROM products
		ORDER BY name ASC
	`)
	return products, err
}

func (r *Repository) Update(ctx context.Context, id int, req UpdateProductRequest) (*Product, error) {
	var p Product
	err := r.db.QueryRowxContext(ctx, `
		UPDATE products
		SET name = $1, price_client = $2, price_socio = $3, stock = $4, category = $5
		WHERE id = $6
		RETURNING id, name, price_client, price_socio, stock, stock_control, category, created_at
	`, req.Name, req.PriceClient, req.PriceSocio, req.Stock, req.Category, id).StructScan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// AddStock applies a purchase or manual adjustment and logs it in the stock
// history inside one transaction.
func (r *Repository) AddStock(ctx context.Context, productID, amount int, movementType string, referenceDoc, provider *string, createdBy *int, now time.Time) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var currentStock int
	err = tx.QueryRowxContext(ctx,
		`SELECT stock FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&currentStock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, err
	}

	newStock := currentStock + amount
	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET stock = $1 WHERE id = $2`, newStock, productID); err != nil {
		return 0, err
	}

	if movementType == "" {
		movementType = "ADJUSTMENT"
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stock_history (product_id, change_amount, previous_stock, new_stock, type, reference_doc, provider, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, productID, amount, currentStock, newStock, movementType, referenceDoc, provider, createdBy, now); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newStock, nil
}

func (r *Repository) StockHistory(ctx context.Context, productID int) ([]StockMovement, error) {
	var movements []StockMovement
	err := r.db.SelectContext(ctx, &movements, `
		SELECT h.id, h.product_id, h.change_amount, h.previous_stock, h.new_stock, h.type,
		       h.reference_doc, h.provider, h.created_by, u.full_name AS created_by_name, h.created_at
		FROM stock_history h
		LEFT JOIN users u ON h.created_by = u.id
		WHERE h.product_id = $1
		ORDER BY h.created_at DESC
	`, productID)
	return movements, err
}

// HourlyRates reads the per-tier playing rates from the catalog, falling
// back to the house default when no entry exists.
func (r *Repository) HourlyRates(ctx context.Context) (pricing.RatePair, error) {
	var row struct {
		PriceClient int64 `db:"price_client"`
		PriceSocio  int64 `db:"price_socio"`
	}
	err := r.db.QueryRowxContext(ctx,
		`SELECT price_client, price_socio FROM products WHERE name ILIKE $1 LIMIT 1`,
		hourlyRateName).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.DefaultRates, nil
	}
	if err != nil {
		return pricing.RatePair{}, err
	}
	return pricing.RatePair{Client: row.PriceClient, Socio: row.PriceSocio}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
