package shift

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrShiftAlreadyOpen = errors.New("a shift is already open")
	ErrNoOpenShift      = errors.New("no open shift")
	ErrShiftConflict    = errors.New("shift was already closed")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const shiftColumns = `id, staff_id, staff_name, initial_cash, expenses_total, declared_cash, difference, status, notes, closed_by, opened_at, closed_at`

// Open starts a new drawer period. The open-shift check and the insert run
// in one transaction; the partial unique index on status='OPEN' backstops a
// race between two concurrent opens.
func (r *Repository) Open(ctx context.Context, staffID *int, staffName string, initialCash int64, now time.Time) (*Shift, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowxContext(ctx,
		`SELECT id FROM shifts WHERE status = $1 FOR UPDATE`, StatusOpen).Scan(&existing)
	if err == nil {
		return nil, ErrShiftAlreadyOpen
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	s := Shift{
		StaffID:     staffID,
		StaffName:   staffName,
		InitialCash: initialCash,
		Status:      StatusOpen,
		OpenedAt:    now,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO shifts (staff_id, staff_name, initial_cash, expenses_total, status, opened_at)
		VALUES ($1, $2, $3, 0, $4, $5)
		RETURNING id
	`, staffID, staffName, initialCash, StatusOpen, now).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrShiftAlreadyOpen
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Current returns the open shift, if any.
func (r *Repository) Current(ctx context.Context) (*Shift, error) {
	var s Shift
	err := r.db.GetContext(ctx, &s,
		`SELECT `+shiftColumns+` FROM shifts WHERE status = $1`, StatusOpen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoOpenShift
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Totals recomputes the drawer from the sales and expense ledgers. Nothing
// here trusts a cached figure.
func (r *Repository) Totals(ctx context.Context, s *Shift) (Totals, error) {
	return queryTotals(ctx, r.db, s)
}

func queryTotals(ctx context.Context, q sqlx.QueryerContext, s *Shift) (Totals, error) {
	var t Totals

	rows, err := q.QueryxContext(ctx, `
		SELECT method, COALESCE(SUM(total), 0) AS total
		FROM sales
		WHERE payment_status = 'PAID' AND created_at >= $1
		GROUP BY method
	`, s.OpenedAt)
	if err != nil {
		return t, err
	}
	defer rows.Close()

	for rows.Next() {
		var method string
		var total int64
		if err := rows.Scan(&method, &total); err != nil {
			return t, err
		}
		switch method {
		case "CASH":
			t.SalesCash = total
		case "DEBIT":
			t.SalesDebit = total
		case "TRANSFER":
			t.SalesTransfer = total
		}
	}
	if err := rows.Err(); err != nil {
		return t, err
	}

	if err := sqlx.GetContext(ctx, q, &t.Expenses,
		`SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE shift_id = $1`, s.ID); err != nil {
		return t, err
	}

	t.SystemCash = s.InitialCash + t.SalesCash - t.Expenses
	return t, nil
}

// AddExpense records a cash outflow against the open shift. The cached
// expenses_total moves in the same transaction as the expense row.
func (r *Repository) AddExpense(ctx context.Context, req AddExpenseRequest, createdBy *int, now time.Time) (*Expense, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var shiftID int
	err = tx.QueryRowxContext(ctx,
		`SELECT id FROM shifts WHERE status = $1 FOR UPDATE`, StatusOpen).Scan(&shiftID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoOpenShift
	}
	if err != nil {
		return nil, err
	}

	e := Expense{
		ShiftID:     shiftID,
		Description: req.Description,
		Amount:      req.Amount,
		CreatedBy:   createdBy,
		CreatedAt:   now,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO expenses (shift_id, description, amount, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, shiftID, req.Description, req.Amount, createdBy, now).Scan(&e.ID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE shifts SET expenses_total = expenses_total + $1 WHERE id = $2`,
		req.Amount, shiftID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Close settles the open shift. The reconciliation queries run inside the
// closing transaction so the report reflects exactly the sales the shift
// window saw. The guarded update makes a second close a conflict.
func (r *Repository) Close(ctx context.Context, declaredCash int64, closedBy *int, notes *string, now time.Time) (*CloseReport, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var s Shift
	err = tx.QueryRowxContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE status = $1 FOR UPDATE`,
		StatusOpen).StructScan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoOpenShift
	}
	if err != nil {
		return nil, err
	}

	totals, err := queryTotals(ctx, tx, &s)
	if err != nil {
		return nil, err
	}
	difference := declaredCash - totals.SystemCash

	debtors := []DebtorLine{}
	if err := tx.SelectContext(ctx, &debtors, `
		SELECT COALESCE(user_name, 'Cliente') AS user_name, SUM(total) AS total
		FROM sales
		WHERE created_at >= $1 AND (method = 'ACCOUNT' OR payment_status = 'PENDING')
		GROUP BY COALESCE(user_name, 'Cliente')
		ORDER BY total DESC
	`, s.OpenedAt); err != nil {
		return nil, err
	}

	memberships := []MembershipLine{}
	if err := tx.SelectContext(ctx, &memberships, `
		SELECT u.full_name AS user_name, mp.months, mp.amount
		FROM membership_payments mp
		JOIN users u ON u.id = mp.user_id
		WHERE mp.created_at >= $1
		ORDER BY mp.created_at
	`, s.OpenedAt); err != nil {
		return nil, err
	}

	newMembers := []string{}
	if err := tx.SelectContext(ctx, &newMembers, `
		SELECT full_name FROM users WHERE created_at >= $1 ORDER BY created_at
	`, s.OpenedAt); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE shifts SET status = $1, declared_cash = $2, difference = $3, notes = $4, closed_by = $5, closed_at = $6
		WHERE id = $7 AND status = $8
	`, StatusClosed, declaredCash, difference, notes, closedBy, now, s.ID, StatusOpen)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrShiftConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.Status = StatusClosed
	s.DeclaredCash = &declaredCash
	s.Difference = &difference
	s.Notes = notes
	s.ClosedBy = closedBy
	s.ClosedAt = &now
	s.ExpensesTotal = totals.Expenses

	return &CloseReport{
		Shift:        s,
		Totals:       totals,
		DeclaredCash: declaredCash,
		Difference:   difference,
		Debtors:      debtors,
		Memberships:  memberships,
		NewMembers:   newMembers,
	}, nil
}

// Expenses lists the cash outflows of one shift.
func (r *Repository) Expenses(ctx context.Context, shiftID int) ([]Expense, error) {
	expenses := []Expense{}
	err := r.db.SelectContext(ctx, &expenses, `
		SELECT id, shift_id, description, amount, created_by, created_at
		FROM expenses WHERE shift_id = $1 ORDER BY id
	`, shiftID)
	return expenses, err
}

// History lists past shifts, newest first.
func (r *Repository) History(ctx context.Context, limit int) ([]Shift, error) {
	if limit <= 0 {
		limit = 30
	}
	shifts := []Shift{}
	err := r.db.SelectContext(ctx, &shifts,
		`SELECT `+shiftColumns+` FROM shifts WHERE status = $1 ORDER BY closed_at DESC LIMIT $2`,
		StatusClosed, limit)
	return shifts, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
