package sale

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type Method string

const (
	MethodCash     Method = "CASH"
	MethodDebit    Method = "DEBIT"
	MethodTransfer Method = "TRANSFER"
	MethodAccount  Method = "ACCOUNT"
)

type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "PAID"
	StatusPending PaymentStatus = "PENDING"
)

type ItemType string

const (
	ItemTime             ItemType = "TIME"
	ItemProduct          ItemType = "PRODUCT"
	ItemMembership       ItemType = "MEMBERSHIP"
	ItemReturn           ItemType = "RETURN"
	ItemExchange         ItemType = "EXCHANGE"
	ItemConsumptionShare ItemType = "CONSUMPTION_SHARE"
	ItemPayment          ItemType = "PAYMENT"
)

// Item is one line of a sale. Prices are snapshots in whole pesos; line
// totals are price*quantity except TIME and CONSUMPTION_SHARE lines, whose
// price already is the computed amount.
type Item struct {
	Type      ItemType `json:"type"`
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
	Price     int64    `json:"price"`
	ProductID *int     `json:"product_id,omitempty"`
}

// Items is stored as a JSONB column.
type Items []Item

func (it Items) Value() (driver.Value, error) {
	return json.Marshal(it)
}

func (it *Items) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*it = nil
		return nil
	case []byte:
		return json.Unmarshal(v, it)
	case string:
		return json.Unmarshal([]byte(v), it)
	default:
		return errors.New("sale: unsupported items column type")
	}
}

// Sale is an immutable financial record. Rows are append-only; corrections
// are new sales (returns, debt payments), never edits.
type Sale struct {
	ID            int           `db:"id" json:"id"`
	SessionID     *int          `db:"session_id" json:"session_id,omitempty"`
	Items         Items         `db:"items" json:"items"`
	Total         int64         `db:"total" json:"total"`
	Method        Method        `db:"method" json:"method"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	UserID        *int          `db:"user_id" json:"user_id,omitempty"`
	UserName      *string       `db:"user_name" json:"user_name,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// StatusFor returns PENDING only for account sales; everything else is
// settled immediately.
func StatusFor(m Method) PaymentStatus {
	if m == MethodAccount {
		return StatusPending
	}
	return StatusPaid
}

type DirectSaleRequest struct {
	Items    []DirectSaleItem `json:"items" binding:"required,min=1"`
	Method   Method           `json:"method"`
	UserID   *int             `json:"user_id"`
	UserName *string          `json:"user_name"`
}

type DirectSaleItem struct {
	ProductID *int   `json:"product_id"`
	Name      string `json:"name" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gte=1"`
	Price     int64  `json:"price" binding:"gte=0"`
}

type ReturnRequest struct {
	ProductID int    `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gte=1"`
	Reason    string `json:"reason" binding:"required,oneof=WRONG DEFECTIVE"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Method    Method `json:"method"`
	UserID    *int   `json:"user_id"`
}

type ExchangeRequest struct {
	ReturnProductID int  `json:"return_product_id" binding:"required"`
	NewProductID    int  `json:"new_product_id" binding:"required"`
	Quantity        int  `json:"quantity" binding:"required,gte=1"`
	UserID          *int `json:"user_id"`
}
