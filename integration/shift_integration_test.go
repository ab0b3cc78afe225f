package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Rokatacaem/SistemaBillar/internal/sale"
	"github.com/Rokatacaem/SistemaBillar/internal/shift"
)

func TestShiftReconciliation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	conn := setupTestDB(t)
	defer conn.Close()
	cleanDatabase(t, conn)

	shiftRepo := shift.NewRepository(conn)
	saleRepo := sale.NewRepository(conn)
	ctx := context.Background()

	opened := time.Now().Add(-2 * time.Hour)

	s, err := shiftRepo.Open(ctx, nil, "Cajera Rosa", 50000, opened)
	require.NoError(t, err)
	require.Equal(t, shift.StatusOpen, s.Status)

	// The drawer is a singleton while open.
	_, err = shiftRepo.Open(ctx, nil, "Otro", 10000, opened.Add(time.Minute))
	require.ErrorIs(t, err, shift.ErrShiftAlreadyOpen)

	// Cash and debit sales during the shift.
	_, err = saleRepo.CreateDirect(ctx, sale.DirectSaleRequest{
		Items:  []sale.DirectSaleItem{{Name: "Café", Quantity: 2, Price: 1000}},
		Method: sale.MethodCash,
	}, opened.Add(10*time.Minute))
	require.NoError(t, err)

	_, err = saleRepo.CreateDirect(ctx, sale.DirectSaleRequest{
		Items:  []sale.DirectSaleItem{{Name: "Galletas", Quantity: 1, Price: 3000}},
		Method: sale.MethodDebit,
	}, opened.Add(20*time.Minute))
	require.NoError(t, err)

	// An account sale shows up as debt in the close report, not in the drawer.
	debtorID := createTestSocio(t, conn, "22222222-2", "Pedro Rojas")
	debtorName := "Pedro Rojas"
	_, err = saleRepo.CreateDirect(ctx, sale.DirectSaleRequest{
		Items:    []sale.DirectSaleItem{{Name: "Bebida", Quantity: 3, Price: 1500}},
		Method:   sale.MethodAccount,
		UserID:   &debtorID,
		UserName: &debtorName,
	}, opened.Add(30*time.Minute))
	require.NoError(t, err)

	_, err = shiftRepo.AddExpense(ctx, shift.AddExpenseRequest{
		Description: "Hielo",
		Amount:      5000,
	}, nil, opened.Add(40*time.Minute))
	require.NoError(t, err)

	totals, err := shiftRepo.Totals(ctx, s)
	require.NoError(t, err)
	require.Equal(t, int64(2000), totals.SalesCash)
	require.Equal(t, int64(3000), totals.SalesDebit)
	require.Equal(t, int64(5000), totals.Expenses)
	// 50000 initial + 2000 cash - 5000 expenses
	require.Equal(t, int64(47000), totals.SystemCash)

	report, err := shiftRepo.Close(ctx, 46000, nil, nil, opened.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(-1000), report.Difference)
	require.Equal(t, shift.StatusClosed, report.Shift.Status)

	require.Len(t, report.Debtors, 1)
	require.Equal(t, "Pedro Rojas", report.Debtors[0].UserName)
	require.Equal(t, int64(4500), report.Debtors[0].Total)

	// Closing is terminal.
	_, err = shiftRepo.Close(ctx, 46000, nil, nil, time.Now())
	require.ErrorIs(t, err, shift.ErrNoOpenShift)
}
