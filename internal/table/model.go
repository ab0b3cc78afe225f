package table

import "time"

type GameType string

const (
	GamePool        GameType = "POOL"
	GameCards       GameType = "CARDS"
	GameCarambola   GameType = "CARAMBOLA"
	GamePoolChileno GameType = "POOL_CHILENO"
	GameNineBall    GameType = "9BALL"
	GameSnooker     GameType = "SNOOKER"
)

func (g GameType) Valid() bool {
	switch g {
	case GamePool, GameCards, GameCarambola, GamePoolChileno, GameNineBall, GameSnooker:
		return true
	}
	return false
}

const (
	StatusAvailable = "AVAILABLE"
	StatusOccupied  = "OCCUPIED"
)

type Table struct {
	ID               int       `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Type             GameType  `db:"type" json:"type"`
	Status           string    `db:"status" json:"status"`
	CurrentSessionID *int      `db:"current_session_id" json:"current_session_id,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// TableWithSession is the floor-view projection: each table plus its open
// session, if any, and the running consumption total.
type TableWithSession struct {
	Table
	SessionStart     *time.Time `db:"session_start" json:"session_start,omitempty"`
	IsTraining       *bool      `db:"is_training" json:"is_training,omitempty"`
	ConsumptionTotal int64      `db:"consumption_total" json:"consumption_total"`
}

type CreateTableRequest struct {
	Name string   `json:"name" binding:"required"`
	Type GameType `json:"type" binding:"required"`
}

type UpdateTableRequest struct {
	Name string   `json:"name" binding:"required"`
	Type GameType `json:"type" binding:"required"`
}
