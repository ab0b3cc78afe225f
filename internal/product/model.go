package product

import "time"

// hourlyRateName matches the catalog entry whose per-tier prices act as the
// hourly playing rates.
const hourlyRateName = "Hora de Juego"

type Product struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	PriceClient  int64     `db:"price_client" json:"price_client"`
	PriceSocio   int64     `db:"price_socio" json:"price_socio"`
	Stock        int       `db:"stock" json:"stock"`
	StockControl bool      `db:"stock_control" json:"stock_control"`
	Category     *string   `db:"category" json:"category,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type StockMovement struct {
	ID            int       `db:"id" json:"id"`
	ProductID     int       `db:"product_id" json:"product_id"`
	ChangeAmount  int       `db:"change_amount" json:"change_amount"`
	PreviousStock int       `db:"previous_stock" json:"previous_stock"`
	NewStock      int       `db:"new_stock" json:"new_stock"`
	Type          string    `db:"type" json:"type"`
	ReferenceDoc  *string   `db:"reference_doc" json:"reference_doc,omitempty"`
	Provider      *string   `db:"provider" json:"provider,omitempty"`
	CreatedBy     *int      `db:"created_by" json:"created_by,omitempty"`
	CreatedByName *string   `db:"created_by_name" json:"created_by_name,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type CreateProductRequest struct {
	Name         string  `json:"name" binding:"required"`
	PriceClient  int64   `json:"price_client" binding:"gte=0"`
	PriceSocio   int64   `json:"price_socio" binding:"gte=0"`
	Stock        int     `json:"stock" binding:"gte=0"`
	Category     *string `json:"category"`
	StockControl *bool   `json:"stock_control"`
}

type UpdateProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	PriceClient int64   `json:"price_client" binding:"gte=0"`
	PriceSocio  int64   `json:"price_socio" binding:"gte=0"`
	Stock       int     `json:"stock" binding:"gte=0"`
	Category    *string `json:"category"`
}

type AddStockRequest struct {
	Amount       int     `json:"amount" binding:"required"`
	Type         string  `json:"type" binding:"omitempty,oneof=PURCHASE ADJUSTMENT"`
	ReferenceDoc *string `json:"reference_doc"`
	Provider     *string `json:"provider"`
}
