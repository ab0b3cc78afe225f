package sale

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/Rokatacaem/SistemaBillar/internal/product"
)

func setupSaleMock(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	return repo, mock, func() { sqlxDB.Close() }
}

func TestCreateDirect_AccountWithoutPayer(t *testing.T) {
	repo, mock, close := setupSaleMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := repo.CreateDirect(context.Background(), DirectSaleRequest{
		Items:  []DirectSaleItem{{Name: "Bebida", Quantity: 1, Price: 1500}},
		Method: MethodAccount,
	}, time.Now())
	require.ErrorIs(t, err, ErrPayerRequired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDirect_AccountPostsDebtAndDecrementsStock(t *testing.T) {
	repo, mock, close := setupSaleMock(t)
	defer close()

	now := time.Now()
	userID := 5
	productID := 3
	userName := "Pedro"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET current_debt = COALESCE(current_debt, 0) + $1 WHERE id = $2")).
		WithArgs(int64(3000), userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sales")).
		WithArgs(nil, sqlmock.AnyArg(), int64(3000), "ACCOUNT", "PENDING", &userID, &userName, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(50))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, stock, stock_control FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock", "stock_control"}).AddRow("Bebida", 10, true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $1 WHERE id = $2")).
		WithArgs(2, productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s, err := repo.CreateDirect(context.Background(), DirectSaleRequest{
		Items:    []DirectSaleItem{{ProductID: &productID, Name: "Bebida", Quantity: 2, Price: 1500}},
		Method:   MethodAccount,
		UserID:   &userID,
		UserName: &userName,
	}, now)
	require.NoError(t, err)
	require.Equal(t, int64(3000), s.Total)
	require.Equal(t, StatusPending, s.PaymentStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDirect_InsufficientStockRollsBack(t *testing.T) {
	repo, mock, close := setupSaleMock(t)
	defer close()

	now := time.Now()
	productID := 3

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sales")).
		WithArgs(nil, sqlmock.AnyArg(), int64(3000), "CASH", "PAID", nil, nil, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(51))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, stock, stock_control FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock", "stock_control"}).AddRow("Bebida", 1, true))
	mock.ExpectRollback()

	_, err := repo.CreateDirect(context.Background(), DirectSaleRequest{
		Items: []DirectSaleItem{{ProductID: &productID, Name: "Bebida", Quantity: 2, Price: 1500}},
	}, now)
	require.ErrorIs(t, err, product.ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturn_WrongRestocks(t *testing.T) {
	repo, mock, close := setupSaleMock(t)
	defer close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, stock, stock_control FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock", "stock_control"}).AddRow("Bebida", 8, true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock + $1 WHERE id = $2")).
		WithArgs(1, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stock_history")).
		WithArgs(3, 1, 8, 9, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sales")).
		WithArgs(nil, sqlmock.AnyArg(), int64(-1500), "CASH", "PAID", nil, nil, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(60))
	mock.ExpectCommit()

	s, err := repo.Return(context.Background(), ReturnRequest{
		ProductID: 3,
		Quantity:  1,
		Reason:    "WRONG",
		Amount:    1500,
	}, now)
	require.NoError(t, err)
	require.Equal(t, int64(-1500), s.Total)
	require.Equal(t, ItemReturn, s.Items[0].Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturn_DefectiveWritesOff(t *testing.T) {
	repo, mock, close := setupSaleMock(t)
	defer close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, stock, stock_control FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock", "stock_control"}).AddRow("Bebida", 8, true))
	// stock stays as sold, only the history row records the loss
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stock_history")).
		WithArgs(3, 8, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sales")).
		WithArgs(nil, sqlmock.AnyArg(), int64(-1500), "CASH", "PAID", nil, nil, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(61))
	mock.ExpectCommit()

	s, err := repo.Return(context.Background(), ReturnRequest{
		ProductID: 3,
		Quantity:  1,
		Reason:    "DEFECTIVE",
		Amount:    1500,
	}, now)
	require.NoError(t, err)
	require.Equal(t, int64(-1500), s.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExchange_BillsTierDifference(t *testing.T) {
	repo, mock, close := setupSaleMock(t)
	defer close()

	now := time.Now()
	socioID := 8
	prodCols := []string{"name", "price_client", "price_socio", "stock", "stock_control"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, price_client, price_socio, stock, stock_control FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(prodCols).AddRow("Bebida", 1500, 1200, 8, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, price_client, price_socio, stock, stock_control FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(prodCols).AddRow("Cerveza", 2500, 2000, 5, true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock + $1 WHERE id = $2")).
		WithArgs(1, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $1 WHERE id = $2")).
		WithArgs(1, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT type, status FROM users WHERE id = $1")).
		WithArgs(socioID).
		WillReturnRows(sqlmock.NewRows([]string{"type", "status"}).AddRow("SOCIO", "ACTIVE"))
	// socio difference: 2000 - 1200 = 800
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sales")).
		WithArgs(nil, sqlmock.AnyArg(), int64(800), "CASH", "PAID", &socioID, nil, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(70))
	mock.ExpectCommit()

	s, err := repo.Exchange(context.Background(), ExchangeRequest{
		ReturnProductID: 3,
		NewProductID:    4,
		Quantity:        1,
		UserID:          &socioID,
	}, now)
	require.NoError(t, err)
	require.Equal(t, int64(800), s.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}
