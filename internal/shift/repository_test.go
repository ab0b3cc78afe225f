package shift

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupShiftMock(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	return repo, mock, func() { sqlxDB.Close() }
}

func TestOpen_Success(t *testing.T) {
	repo, mock, close := setupShiftMock(t)
	defer close()

	now := time.Now()
	staffID := 3

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM shifts WHERE status = $1 FOR UPDATE")).
		WithArgs("OPEN").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO shifts (staff_id, staff_name, initial_cash, expenses_total, status, opened_at) VALUES ($1, $2, $3, 0, $4, $5) RETURNING id")).
		WithArgs(&staffID, "Carla", int64(50000), "OPEN", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectCommit()

	s, err := repo.Open(context.Background(), &staffID, "Carla", 50000, now)
	require.NoError(t, err)
	require.Equal(t, 9, s.ID)
	require.Equal(t, int64(50000), s.InitialCash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_SecondShiftRejected(t *testing.T) {
	repo, mock, close := setupShiftMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM shifts WHERE status = $1 FOR UPDATE")).
		WithArgs("OPEN").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectRollback()

	_, err := repo.Open(context.Background(), nil, "Carla", 10000, time.Now())
	require.ErrorIs(t, err, ErrShiftAlreadyOpen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddExpense_RequiresOpenShift(t *testing.T) {
	repo, mock, close := setupShiftMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM shifts WHERE status = $1 FOR UPDATE")).
		WithArgs("OPEN").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.AddExpense(context.Background(), AddExpenseRequest{Description: "Hielo", Amount: 5000}, nil, time.Now())
	require.ErrorIs(t, err, ErrNoOpenShift)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddExpense_MovesCachedTotal(t *testing.T) {
	repo, mock, close := setupShiftMock(t)
	defer close()

	now := time.Now()
	staffID := 3

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM shifts WHERE status = $1 FOR UPDATE")).
		WithArgs("OPEN").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO expenses (shift_id, description, amount, created_by, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id")).
		WithArgs(9, "Hielo", int64(5000), &staffID, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE shifts SET expenses_total = expenses_total + $1 WHERE id = $2")).
		WithArgs(int64(5000), 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e, err := repo.AddExpense(context.Background(), AddExpenseRequest{Description: "Hielo", Amount: 5000}, &staffID, now)
	require.NoError(t, err)
	require.Equal(t, 9, e.ShiftID)
	require.Equal(t, &staffID, e.CreatedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

var shiftRowCols = []string{"id", "staff_id", "staff_name", "initial_cash", "expenses_total", "declared_cash", "difference", "status", "notes", "closed_by", "opened_at", "closed_at"}

func TestClose_ReconcilesDrawer(t *testing.T) {
	repo, mock, close := setupShiftMock(t)
	defer close()

	now := time.Now()
	opened := now.Add(-8 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM shifts WHERE status = $1 FOR UPDATE")).
		WithArgs("OPEN").
		WillReturnRows(sqlmock.NewRows(shiftRowCols).
			AddRow(9, nil, "Carla", 50000, 5000, nil, nil, "OPEN", nil, nil, opened, nil))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT method, COALESCE(SUM(total), 0) AS total FROM sales WHERE payment_status = 'PAID' AND created_at >= $1 GROUP BY method")).
		WithArgs(opened).
		WillReturnRows(sqlmock.NewRows([]string{"method", "total"}).
			AddRow("CASH", 20000).
			AddRow("DEBIT", 12000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE shift_id = $1")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(5000))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE created_at >= $1 AND (method = 'ACCOUNT' OR payment_status = 'PENDING')")).
		WithArgs(opened).
		WillReturnRows(sqlmock.NewRows([]string{"user_name", "total"}).AddRow("Pedro", 4500))
	mock.ExpectQuery(regexp.QuoteMeta("FROM membership_payments mp JOIN users u ON u.id = mp.user_id")).
		WithArgs(opened).
		WillReturnRows(sqlmock.NewRows([]string{"user_name", "months", "amount"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT full_name FROM users WHERE created_at >= $1 ORDER BY created_at")).
		WithArgs(opened).
		WillReturnRows(sqlmock.NewRows([]string{"full_name"}))

	// declared matches: 50000 + 20000 - 5000 = 65000
	mock.ExpectExec(regexp.QuoteMeta("UPDATE shifts SET status = $1, declared_cash = $2, difference = $3, notes = $4, closed_by = $5, closed_at = $6 WHERE id = $7 AND status = $8")).
		WithArgs("CLOSED", int64(65000), int64(0), nil, nil, now, 9, "OPEN").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := repo.Close(context.Background(), 65000, nil, nil, now)
	require.NoError(t, err)
	require.Equal(t, int64(65000), report.Totals.SystemCash)
	require.Equal(t, int64(0), report.Difference)
	require.Equal(t, int64(12000), report.Totals.SalesDebit)
	require.Len(t, report.Debtors, 1)
	require.Equal(t, int64(4500), report.Debtors[0].Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClose_ShortDrawerStillCloses(t *testing.T) {
	repo, mock, close := setupShiftMock(t)
	defer close()

	now := time.Now()
	opened := now.Add(-8 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM shifts WHERE status = $1 FOR UPDATE")).
		WithArgs("OPEN").
		WillReturnRows(sqlmock.NewRows(shiftRowCols).
			AddRow(9, nil, "Carla", 50000, 0, nil, nil, "OPEN", nil, nil, opened, nil))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY method")).
		WithArgs(opened).
		WillReturnRows(sqlmock.NewRows([]string{"method", "total"}).AddRow("CASH", 20000))
	mock.ExpectQuery(regexp.QuoteMeta("FROM expenses WHERE shift_id = $1")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("OR payment_status = 'PENDING'")).
		WithArgs(opened).
		WillReturnRows(sqlmock.NewRows([]string{"user_name", "total"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM membership_payments mp")).
		WithArgs(opened).
		WillReturnRows(sqlmock.NewRows([]string{"user_name", "months", "amount"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT full_name FROM users")).
		WithArgs(opened).
		WillReturnRows(sqlmock.NewRows([]string{"full_name"}))

	// drawer is 3000 short; the close still goes through
	mock.ExpectExec(regexp.QuoteMeta("UPDATE shifts SET status = $1, declared_cash = $2, difference = $3, notes = $4, closed_by = $5, closed_at = $6 WHERE id = $7 AND status = $8")).
		WithArgs("CLOSED", int64(67000), int64(-3000), nil, nil, now, 9, "OPEN").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := repo.Close(context.Background(), 67000, nil, nil, now)
	require.NoError(t, err)
	require.Equal(t, int64(-3000), report.Difference)
	require.Equal(t, "CLOSED", report.Shift.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClose_NoOpenShift(t *testing.T) {
	repo, mock, close := setupShiftMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM shifts WHERE status = $1 FOR UPDATE")).
		WithArgs("OPEN").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Close(context.Background(), 10000, nil, nil, time.Now())
	require.ErrorIs(t, err, ErrNoOpenShift)
	require.NoError(t, mock.ExpectationsWereMet())
}
