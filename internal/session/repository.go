package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Rokatacaem/SistemaBillar/internal/pricing"
	"github.com/Rokatacaem/SistemaBillar/internal/sale"
	"github.com/Rokatacaem/SistemaBillar/internal/table"
)

var (
	ErrTableNotFound      = errors.New("table not found")
	ErrTableOccupied      = errors.New("table already has an active session")
	ErrNotEnoughPlayers   = errors.New("card sessions need at least two players")
	ErrNotCardsSession    = errors.New("players are only tracked on card sessions")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionNotActive   = errors.New("session is not active")
	ErrNoActiveSession    = errors.New("no active session on table")
	ErrPlayerNotFound     = errors.New("player not found in session")
	ErrPlayerAlreadyEnded = errors.New("player already left the session")
	ErrSettlementConflict = errors.New("session was already settled")
	ErrProductNotFound    = errors.New("product not found")
)

const hourlyRateName = "Hora de Juego"

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ratesTx reads the configured hourly rates inside the caller's transaction
// so the snapshot and the session insert see the same catalog state.
func ratesTx(ctx context.Context, tx *sqlx.Tx) (pricing.RatePair, error) {
	var row struct {
		PriceClient int64 `db:"price_client"`
		PriceSocio  int64 `db:"price_socio"`
	}
	err := tx.QueryRowxContext(ctx,
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

// resolveRateTx looks up the payer's billing tier and resolves the hourly
// rate. Anonymous payers bill at the client rate.
func resolveRateTx(ctx context.Context, tx *sqlx.Tx, userID *int, rates pricing.RatePair, training bool) (int64, error) {
	tier, status := pricing.TierCliente, pricing.StatusActive
	if userID != nil {
		var u struct {
			Type   string `db:"type"`
			Status string `db:"status"`
		}
		err := tx.QueryRowxContext(ctx,
			`SELECT type, status FROM users WHERE id = $1`, *userID).StructScan(&u)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		if err == nil {
			tier, status = pricing.Tier(u.Type), u.Status
		}
	}
	return pricing.Resolve(tier, status, rates, training), nil
}

// Start opens a session on a free table. Card sessions track each player
// and snapshot their hourly rate at open; pool sessions are one anonymous
// occupancy billed at settlement, with no player rows. The table row is
// locked first so two concurrent opens on the same table serialize instead
// of both succeeding.
func (r *Repository) Start(ctx context.Context, req OpenSessionRequest, now time.Time) (*SessionDetail, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var t struct {
		ID     int            `db:"id"`
		Type   table.GameType `db:"type"`
		Status string         `db:"status"`
	}
	err = tx.QueryRowxContext(ctx,
		`SELECT id, type, status FROM tables WHERE id = $1 FOR UPDATE`,
		req.TableID).StructScan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.Status == table.StatusOccupied {
		return nil, ErrTableOccupied
	}
	if t.Type == table.GameCards && len(req.Players) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	s := Session{
		TableID:    req.TableID,
		GameType:   t.Type,
		Status:     StatusActive,
		IsTraining: req.IsTraining,
		StartTime:  now,
		CreatedAt:  now,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO sessions (table_id, game_type, status, is_training, start_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`, s.TableID, s.GameType, s.Status, s.IsTraining, now).Scan(&s.ID)
	if err != nil {
		return nil, err
	}

	players := []SessionPlayer{}
	if t.Type == table.GameCards {
		rates, err := ratesTx(ctx, tx)
		if err != nil {
			return nil, err
		}
		for _, pr := range req.Players {
			rate, err := resolveRateTx(ctx, tx, pr.UserID, rates, req.IsTraining)
			if err != nil {
				return nil, err
			}
			p := SessionPlayer{
				SessionID:  s.ID,
				UserID:     pr.UserID,
				PlayerName: pr.Name,
				Rate:       rate,
				StartTime:  now,
			}
			err = tx.QueryRowxContext(ctx, `
				INSERT INTO session_players (session_id, user_id, player_name, rate, start_time)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, p.SessionID, p.UserID, p.PlayerName, p.Rate, now).Scan(&p.ID)
			if err != nil {
				return nil, err
			}
			players = append(players, p)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tables SET status = $1, current_session_id = $2 WHERE id = $3`,
		table.StatusOccupied, s.ID, req.TableID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &SessionDetail{Session: s, Players: players, Items: []SessionItem{}}, nil
}

// AddPlayer joins a player to a running session. The rate snapshot is taken
// at join time, so the new player's clock starts now at today's rate.
func (r *Repository) AddPlayer(ctx context.Context, sessionID int, req PlayerRequest, now time.Time) (*SessionPlayer, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	s, err := lockSessionTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.GameType != table.GameCards {
		return nil, ErrNotCardsSession
	}

	rates, err := ratesTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	rate, err := resolveRateTx(ctx, tx, req.UserID, rates, s.IsTraining)
	if err != nil {
		return nil, err
	}

	p := SessionPlayer{
		SessionID:  sessionID,
		UserID:     req.UserID,
		PlayerName: req.Name,
		Rate:       rate,
		StartTime:  now,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO session_players (session_id, user_id, player_name, rate, start_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, sessionID, req.UserID, req.Name, rate, now).Scan(&p.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &p, nil
}

// EndPlayer closes one player's window and bills it immediately. The row is
// marked charged so settlement skips it; ending the same player twice is a
// conflict, not a double charge.
func (r *Repository) EndPlayer(ctx context.Context, sessionID, playerID int, req EndPlayerRequest, now time.Time) (*sale.Sale, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	locked, err := lockSessionTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if locked.GameType != table.GameCards {
		return nil, ErrNotCardsSession
	}

	var p SessionPlayer
	err = tx.QueryRowxContext(ctx, `
		SELECT id, session_id, user_id, player_name, rate, start_time, end_time, charged
		FROM session_players
		WHERE id = $1 AND session_id = $2
		FOR UPDATE
	`, playerID, sessionID).StructScan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.EndTime != nil {
		return nil, ErrPlayerAlreadyEnded
	}

	cost := pricing.TimeCost(p.StartTime, now, p.Rate)
	if _, err := tx.ExecContext(ctx,
		`UPDATE session_players SET end_time = $1, charged = TRUE WHERE id = $2`,
		now, playerID); err != nil {
		return nil, err
	}

	if req.Method == sale.MethodAccount {
		if p.UserID == nil {
			return nil, sale.ErrPayerRequired
		}
		if err := sale.AdjustDebtTx(ctx, tx, *p.UserID, cost); err != nil {
			return nil, err
		}
	}

	s := &sale.Sale{
		SessionID: &sessionID,
		Items: sale.Items{{
			Type:     sale.ItemTime,
			Name:     fmt.Sprintf("Tiempo %s (%d min) - Salida Anticipada", p.PlayerName, roundMinutes(p.StartTime, now)),
			Quantity: 1,
			Price:    cost,
		}},
		Total:         cost,
		Method:        req.Method,
		PaymentStatus: sale.StatusFor(req.Method),
		UserID:        p.UserID,
		UserName:      &p.PlayerName,
		CreatedAt:     now,
	}
	if err := sale.InsertTx(ctx, tx, s); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}

// AddItem adds a consumption line to an open session, snapshotting the unit
// price at the payer's tier and decrementing stock in the same transaction.
func (r *Repository) AddItem(ctx context.Context, sessionID int, req AddItemRequest, now time.Time) (*SessionItem, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := lockSessionTx(ctx, tx, sessionID); err != nil {
		return nil, err
	}

	var p struct {
		Name        string `db:"name"`
		PriceClient int64  `db:"price_client"`
		PriceSocio  int64  `db:"price_socio"`
	}
	err = tx.QueryRowxContext(ctx,
		`SELECT name, price_client, price_socio FROM products WHERE id = $1`,
		req.ProductID).StructScan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	unit := p.PriceClient
	if req.UserID != nil {
		rate, err := resolveRateTx(ctx, tx, req.UserID, pricing.RatePair{Client: p.PriceClient, Socio: p.PriceSocio}, false)
		if err != nil {
			return nil, err
		}
		unit = rate
	}

	if err := sale.DecrementStockTx(ctx, tx, req.ProductID, req.Quantity); err != nil {
		return nil, err
	}

	item := SessionItem{
		SessionID: sessionID,
		ProductID: &req.ProductID,
		Name:      p.Name,
		Quantity:  req.Quantity,
		Price:     unit,
		UserID:    req.UserID,
		CreatedAt: now,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO session_items (session_id, product_id, name, quantity, price, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, sessionID, req.ProductID, p.Name, req.Quantity, unit, req.UserID, now).Scan(&item.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &item, nil
}

// Settle closes the table's active session and bills everything still owed.
// Card sessions bill each uncharged player's own window at their snapshot
// rate; pool sessions bill one window at the designated payer's rate. The
// whole settlement is one transaction: if any debt posting or sale insert
// fails, the session stays open and unbilled.
func (r *Repository) Settle(ctx context.Context, tableID int, req SettleRequest, now time.Time) (*SettleResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var s Session
	err = tx.QueryRowxContext(ctx, `
		SELECT id, table_id, game_type, status, is_training, start_time, created_at
		FROM sessions
		WHERE table_id = $1 AND status = $2
		FOR UPDATE
	`, tableID, StatusActive).StructScan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}

	var items []SessionItem
	if err := tx.SelectContext(ctx, &items, `
		SELECT id, session_id, product_id, name, quantity, price, user_id, created_at
		FROM session_items WHERE session_id = $1 ORDER BY id
	`, s.ID); err != nil {
		return nil, err
	}
	var consumption int64
	consumptionLines := make(sale.Items, 0, len(items))
	for _, it := range items {
		consumption += it.Price * int64(it.Quantity)
		consumptionLines = append(consumptionLines, sale.Item{
			Type:      sale.ItemProduct,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
			ProductID: it.ProductID,
		})
	}

	var timeTotal int64
	var timeLines sale.Items

	if s.GameType == table.GameCards {
		var players []SessionPlayer
		if err := tx.SelectContext(ctx, &players, `
			SELECT id, session_id, user_id, player_name, rate, start_time, end_time, charged
			FROM session_players WHERE session_id = $1 ORDER BY id
			FOR UPDATE
		`, s.ID); err != nil {
			return nil, err
		}
		for _, p := range players {
			end := now
			if p.EndTime != nil {
				end = *p.EndTime
			}
			if p.Charged {
				continue
			}
			cost := pricing.TimeCost(p.StartTime, end, p.Rate)
			timeTotal += cost
			timeLines = append(timeLines, sale.Item{
				Type:     sale.ItemTime,
				Name:     fmt.Sprintf("Tiempo %s (%d min)", p.PlayerName, roundMinutes(p.StartTime, end)),
				Quantity: 1,
				Price:    cost,
			})
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE session_players SET end_time = COALESCE(end_time, $1), charged = TRUE
			WHERE session_id = $2
		`, now, s.ID); err != nil {
			return nil, err
		}
	} else if req.Mode != ModeSplit {
		rates, err := ratesTx(ctx, tx)
		if err != nil {
			return nil, err
		}
		rate, err := resolveRateTx(ctx, tx, req.PayerID, rates, s.IsTraining)
		if err != nil {
			return nil, err
		}
		timeTotal = pricing.TimeCost(s.StartTime, now, rate)
		timeLines = sale.Items{{
			Type:     sale.ItemTime,
			Name:     fmt.Sprintf("Tiempo de Juego (%d min)", roundMinutes(s.StartTime, now)),
			Quantity: 1,
			Price:    timeTotal,
		}}
	}

	result := &SettleResult{SessionID: s.ID}

	switch req.Mode {
	case ModeSplit:
		var rates pricing.RatePair
		if s.GameType != table.GameCards {
			if rates, err = ratesTx(ctx, tx); err != nil {
				return nil, err
			}
		}
		for _, pay := range req.Payments {
			var timeShare int64
			if s.GameType == table.GameCards {
				timeShare = pricing.ConsumptionShare(timeTotal, pay.Percentage)
			} else {
				rate, err := resolveRateTx(ctx, tx, pay.PayerID, rates, s.IsTraining)
				if err != nil {
					return nil, err
				}
				timeShare = pricing.TimeCostShare(s.StartTime, now, rate, pay.Percentage)
			}
			consShare := pricing.ConsumptionShare(consumption, pay.Percentage)
			total := timeShare + consShare

			saleItems := sale.Items{{
				Type:     sale.ItemTime,
				Name:     fmt.Sprintf("Tiempo de Juego (%d%%)", pay.Percentage),
				Quantity: 1,
				Price:    timeShare,
			}}
			if consShare > 0 {
				saleItems = append(saleItems, sale.Item{
					Type:     sale.ItemConsumptionShare,
					Name:     fmt.Sprintf("Consumo (%d%%)", pay.Percentage),
					Quantity: 1,
					Price:    consShare,
				})
			}

			if pay.Method == sale.MethodAccount {
				if pay.PayerID == nil {
					return nil, sale.ErrPayerRequired
				}
				if err := sale.AdjustDebtTx(ctx, tx, *pay.PayerID, total); err != nil {
					return nil, err
				}
			}

			share := &sale.Sale{
				SessionID:     &s.ID,
				Items:         saleItems,
				Total:         total,
				Method:        pay.Method,
				PaymentStatus: sale.StatusFor(pay.Method),
				UserID:        pay.PayerID,
				UserName:      pay.PayerName,
				CreatedAt:     now,
			}
			if err := sale.InsertTx(ctx, tx, share); err != nil {
				return nil, err
			}
			// each share ceils on its own, so the session total is the sum
			// of what the sales actually billed, not the unsplit aggregate
			result.TimeTotal += timeShare
			result.ConsumptionTotal += consShare
			result.GrandTotal += total
			result.Sales = append(result.Sales, *share)
		}
	default:
		method := req.Method
		if method == "" {
			method = sale.MethodCash
		}
		total := timeTotal + consumption
		result.TimeTotal = timeTotal
		result.ConsumptionTotal = consumption
		result.GrandTotal = total

		if method == sale.MethodAccount {
			if req.PayerID == nil {
				return nil, sale.ErrPayerRequired
			}
			if err := sale.AdjustDebtTx(ctx, tx, *req.PayerID, total); err != nil {
				return nil, err
			}
		}

		single := &sale.Sale{
			SessionID:     &s.ID,
			Items:         append(timeLines, consumptionLines...),
			Total:         total,
			Method:        method,
			PaymentStatus: sale.StatusFor(method),
			UserID:        req.PayerID,
			UserName:      req.PayerName,
			CreatedAt:     now,
		}
		if err := sale.InsertTx(ctx, tx, single); err != nil {
			return nil, err
		}
		result.Sales = append(result.Sales, *single)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET status = $1, end_time = $2, total_amount = $3
		WHERE id = $4 AND status = $5
	`, StatusClosed, now, result.GrandTotal, s.ID, StatusActive)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrSettlementConflict
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tables SET status = $1, current_session_id = NULL WHERE id = $2`,
		table.StatusAvailable, tableID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// Detail returns a session with its players and consumption lines.
func (r *Repository) Detail(ctx context.Context, sessionID int) (*SessionDetail, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, `
		SELECT id, table_id, game_type, status, is_training, start_time, end_time, total_amount, created_at
		FROM sessions WHERE id = $1
	`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	d := &SessionDetail{Session: s, Players: []SessionPlayer{}, Items: []SessionItem{}}
	if err := r.db.SelectContext(ctx, &d.Players, `
		SELECT id, session_id, user_id, player_name, rate, start_time, end_time, charged
		FROM session_players WHERE session_id = $1 ORDER BY id
	`, sessionID); err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &d.Items, `
		SELECT id, session_id, product_id, name, quantity, price, user_id, created_at
		FROM session_items WHERE session_id = $1 ORDER BY id
	`, sessionID); err != nil {
		return nil, err
	}
	return d, nil
}

// ActiveByTable returns the open session on a table, if any.
func (r *Repository) ActiveByTable(ctx context.Context, tableID int) (*SessionDetail, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, `
		SELECT id, table_id, game_type, status, is_training, start_time, end_time, total_amount, created_at
		FROM sessions WHERE table_id = $1 AND status = $2
	`, tableID, StatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}
	return r.Detail(ctx, s.ID)
}

func lockSessionTx(ctx context.Context, tx *sqlx.Tx, sessionID int) (*Session, error) {
	var s Session
	err := tx.QueryRowxContext(ctx, `
		SELECT id, table_id, game_type, status, is_training, start_time, created_at
		FROM sessions WHERE id = $1
		FOR UPDATE
	`, sessionID).StructScan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.Status != StatusActive {
		return nil, ErrSessionNotActive
	}
	return &s, nil
}

func roundMinutes(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Minutes()))
}
