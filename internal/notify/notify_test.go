package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/Rokatacaem/SistemaBillar/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

func newTestService(rdb *redis.Client) *Service {
	return &Service{
		redis:    rdb,
		to:       "administracion@clubsantiago.cl",
		from:     "noreply@clubsantiago.cl",
		fromName: "Club Santiago",
		smtpHost: "smtp.test.com",
		smtpPort: "587",
		smtpUser: "test@example.com",
		smtpPass: "password",
	}
}

func TestReportShiftOpened(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("reports", `.*`).SetVal(1)

	svc := newTestService(db)

	err := svc.ReportShiftOpened(ctx, ShiftOpenReport{
		ShiftID:     4,
		StaffName:   "Carla",
		InitialCash: 50000,
		OpenedAt:    time.Now(),
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportShiftClosed(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("reports", `.*`).SetVal(1)

	svc := newTestService(db)

	now := time.Now()
	err := svc.ReportShiftClosed(ctx, ShiftCloseReport{
		ShiftID:      4,
		StaffName:    "Carla",
		OpenedAt:     now.Add(-8 * time.Hour),
		ClosedAt:     now,
		InitialCash:  50000,
		SalesCash:    20000,
		Expenses:     5000,
		SystemCash:   65000,
		DeclaredCash: 65000,
		Debtors:      []DebtorLine{{UserName: "Pedro", Total: 4500}},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportQueueError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("reports", `.*`).SetErr(assert.AnError)

	svc := newTestService(db)

	err := svc.ReportShiftOpened(ctx, ShiftOpenReport{ShiftID: 4, StaffName: "Carla", OpenedAt: time.Now()})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectLLen("reports").SetVal(3)

	svc := newTestService(db)

	assert.Equal(t, int64(3), svc.QueueLength(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
