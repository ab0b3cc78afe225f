package product

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/Rokatacaem/SistemaBillar/internal/pricing"
)

func setupProductMock(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	return repo, mock, func() { sqlxDB.Close() }
}

func TestCreate_DuplicateName(t *testing.T) {
	repo, mock, close := setupProductMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("Bebida", int64(1500), int64(1200), 10, nil, true).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), CreateProductRequest{
		Name:        "Bebida",
		PriceClient: 1500,
		PriceSocio:  1200,
		Stock:       10,
	})
	require.ErrorIs(t, err, ErrDuplicateName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddStock_LogsMovement(t *testing.T) {
	repo, mock, close := setupProductMock(t)
	defer close()

	now := time.Now()
	doc := "FAC-123"
	createdBy := 2

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = $1 WHERE id = $2")).
		WithArgs(10, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stock_history")).
		WithArgs(3, 6, 4, 10, "PURCHASE", &doc, nil, &createdBy, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	newStock, err := repo.AddStock(context.Background(), 3, 6, "PURCHASE", &doc, nil, &createdBy, now)
	require.NoError(t, err)
	require.Equal(t, 10, newStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddStock_ProductNotFound(t *testing.T) {
	repo, mock, close := setupProductMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.AddStock(context.Background(), 99, 5, "PURCHASE", nil, nil, nil, time.Now())
	require.ErrorIs(t, err, ErrProductNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHourlyRates_FromCatalog(t *testing.T) {
	repo, mock, close := setupProductMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT price_client, price_socio FROM products WHERE name ILIKE $1 LIMIT 1")).
		WithArgs("Hora de Juego").
		WillReturnRows(sqlmock.NewRows([]string{"price_client", "price_socio"}).AddRow(5000, 3500))

	rates, err := repo.HourlyRates(context.Background())
	require.NoError(t, err)
	require.Equal(t, pricing.RatePair{Client: 5000, Socio: 3500}, rates)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHourlyRates_DefaultWhenMissing(t *testing.T) {
	repo, mock, close := setupProductMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT price_client, price_socio FROM products WHERE name ILIKE $1 LIMIT 1")).
		WithArgs("Hora de Juego").
		WillReturnError(sql.ErrNoRows)

	rates, err := repo.HourlyRates(context.Background())
	require.NoError(t, err)
	require.Equal(t, pricing.DefaultRates, rates)
	require.NoError(t, mock.ExpectationsWereMet())
}
