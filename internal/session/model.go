package session

import (
	"time"

	"github.com/Rokatacaem/SistemaBillar/internal/sale"
	"github.com/Rokatacaem/SistemaBillar/internal/table"
)

const (
	StatusActive = "ACTIVE"
	StatusClosed = "CLOSED"
)

type SettleMode string

const (
	ModeSingle SettleMode = "SINGLE"
	ModeSplit  SettleMode = "SPLIT"
)

// Session is one table occupancy from open to settlement.
type Session struct {
	ID         int            `db:"id" json:"id"`
	TableID    int            `db:"table_id" json:"table_id"`
	GameType   table.GameType `db:"game_type" json:"game_type"`
	Status     string         `db:"status" json:"status"`
	IsTraining bool           `db:"is_training" json:"is_training"`
	StartTime  time.Time      `db:"start_time" json:"start_time"`
	EndTime    *time.Time     `db:"end_time" json:"end_time,omitempty"`
	// TotalAmount is written once, at settlement.
	TotalAmount *int64    `db:"total_amount" json:"total_amount,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SessionPlayer carries the rate snapshot taken when the player joined.
// Later tier or catalog changes never touch an open session's billing.
type SessionPlayer struct {
	ID         int        `db:"id" json:"id"`
	SessionID  int        `db:"session_id" json:"session_id"`
	UserID     *int       `db:"user_id" json:"user_id,omitempty"`
	PlayerName string     `db:"player_name" json:"player_name"`
	Rate       int64      `db:"rate" json:"rate"`
	StartTime  time.Time  `db:"start_time" json:"start_time"`
	EndTime    *time.Time `db:"end_time" json:"end_time,omitempty"`
	Charged    bool       `db:"charged" json:"charged"`
}

// SessionItem is a consumption line added to an open session. Price is the
// unit price snapshot at the time the item was added. UserID records which
// player ordered it, for reporting only; settlement bills by the payment
// split, not by assignment.
type SessionItem struct {
	ID        int       `db:"id" json:"id"`
	SessionID int       `db:"session_id" json:"session_id"`
	ProductID *int      `db:"product_id" json:"product_id,omitempty"`
	Name      string    `db:"name" json:"name"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Price     int64     `db:"price" json:"price"`
	UserID    *int      `db:"user_id" json:"user_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SessionDetail is the floor-view payload for one open session.
type SessionDetail struct {
	Session
	Players []SessionPlayer `json:"players"`
	Items   []SessionItem   `json:"items"`
}

type PlayerRequest struct {
	UserID *int   `json:"user_id"`
	Name   string `json:"name" binding:"required"`
}

// OpenSessionRequest opens a table. Players attach to card sessions only; a
// pool table is a single anonymous occupancy, so the list may be empty.
type OpenSessionRequest struct {
	TableID    int             `json:"table_id" binding:"required"`
	IsTraining bool            `json:"is_training"`
	Players    []PlayerRequest `json:"players" binding:"dive"`
}

type AddItemRequest struct {
	ProductID int  `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gte=1"`
	UserID    *int `json:"user_id"`
}

type EndPlayerRequest struct {
	Method sale.Method `json:"method" binding:"required,oneof=CASH DEBIT TRANSFER ACCOUNT"`
}

type SplitPayment struct {
	PayerID    *int        `json:"payer_id"`
	PayerName  *string     `json:"payer_name"`
	Percentage int         `json:"percentage" binding:"required,gte=1,lte=100"`
	Method     sale.Method `json:"method" binding:"required,oneof=CASH DEBIT TRANSFER ACCOUNT"`
}

type SettleRequest struct {
	Mode      SettleMode     `json:"mode" binding:"required,oneof=SINGLE SPLIT"`
	Method    sale.Method    `json:"method"`
	PayerID   *int           `json:"payer_id"`
	PayerName *string        `json:"payer_name"`
	Payments  []SplitPayment `json:"payments" binding:"dive"`
}

// SettleResult reports what the settlement billed. One sale per payer in a
// split, one for the whole session otherwise.
type SettleResult struct {
	SessionID        int         `json:"session_id"`
	TimeTotal        int64       `json:"time_total"`
	ConsumptionTotal int64       `json:"consumption_total"`
	GrandTotal       int64       `json:"grand_total"`
	Sales            []sale.Sale `json:"sales"`
}
