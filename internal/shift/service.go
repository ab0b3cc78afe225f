package shift

import (
	"context"
	"time"

	"github.com/Rokatacaem/SistemaBillar/internal/logger"
	"github.com/Rokatacaem/SistemaBillar/internal/metrics"
	"github.com/Rokatacaem/SistemaBillar/internal/notify"
)

type Service interface {
	Open(ctx context.Context, staffID *int, staffName string, req OpenShiftRequest) (*Shift, error)
	Current(ctx context.Context) (*CurrentShiftResponse, error)
	AddExpense(ctx context.Context, createdBy *int, req AddExpenseRequest) (*Expense, error)
	Close(ctx context.Context, closedBy *int, req CloseShiftRequest) (*CloseReport, error)
	Expenses(ctx context.Context, shiftID int) ([]Expense, error)
	History(ctx context.Context, limit int) ([]Shift, error)
}

type service struct {
	repo     *Repository
	notifier notify.Notifier
	now      func() time.Time
}

func NewService(repo *Repository, notifier notify.Notifier) Service {
	return &service{repo: repo, notifier: notifier, now: time.Now}
}

func (s *service) Open(ctx context.Context, staffID *int, staffName string, req OpenShiftRequest) (*Shift, error) {
	opened, err := s.repo.Open(ctx, staffID, staffName, req.InitialCash, s.now())
	if err != nil {
		return nil, err
	}

	// delivery is best effort, the drawer opens regardless
	if s.notifier != nil {
		if err := s.notifier.ReportShiftOpened(ctx, notify.ShiftOpenReport{
			ShiftID:     opened.ID,
			StaffName:   opened.StaffName,
			InitialCash: opened.InitialCash,
			OpenedAt:    opened.OpenedAt,
		}); err != nil {
			logger.Warn("shift open report not queued", "shift_id", opened.ID, "err", err)
		}
	}

	logger.Info("shift opened", "shift_id", opened.ID, "staff", opened.StaffName)
	return opened, nil
}

func (s *service) Current(ctx context.Context) (*CurrentShiftResponse, error) {
	current, err := s.repo.Current(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.Totals(ctx, current)
	if err != nil {
		return nil, err
	}
	return &CurrentShiftResponse{Shift: *current, Totals: totals}, nil
}

func (s *service) AddExpense(ctx context.Context, createdBy *int, req AddExpenseRequest) (*Expense, error) {
	return s.repo.AddExpense(ctx, req, createdBy, s.now())
}

func (s *service) Close(ctx context.Context, closedBy *int, req CloseShiftRequest) (*CloseReport, error) {
	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}
	report, err := s.repo.Close(ctx, req.DeclaredCash, closedBy, notes, s.now())
	if err != nil {
		return nil, err
	}

	metrics.RecordShiftDifference(report.Difference)

	if s.notifier != nil {
		closed := report.Shift
		nr := notify.ShiftCloseReport{
			ShiftID:       closed.ID,
			StaffName:     closed.StaffName,
			OpenedAt:      closed.OpenedAt,
			ClosedAt:      *closed.ClosedAt,
			InitialCash:   closed.InitialCash,
			SalesCash:     report.Totals.SalesCash,
			SalesDebit:    report.Totals.SalesDebit,
			SalesTransfer: report.Totals.SalesTransfer,
			Expenses:      report.Totals.Expenses,
			SystemCash:    report.Totals.SystemCash,
			DeclaredCash:  report.DeclaredCash,
			Difference:    report.Difference,
			NewMembers:    report.NewMembers,
		}
		for _, d := range report.Debtors {
			nr.Debtors = append(nr.Debtors, notify.DebtorLine{UserName: d.UserName, Total: d.Total})
		}
		for _, m := range report.Memberships {
			nr.Memberships = append(nr.Memberships, notify.MembershipLine{UserName: m.UserName, Months: m.Months, Amount: m.Amount})
		}
		if err := s.notifier.ReportShiftClosed(ctx, nr); err != nil {
			logger.Warn("shift close report not queued", "shift_id", closed.ID, "err", err)
		}
	}

	logger.Info("shift closed", "shift_id", report.Shift.ID, "difference", report.Difference)
	return report, nil
}

func (s *service) Expenses(ctx context.Context, shiftID int) ([]Expense, error) {
	return s.repo.Expenses(ctx, shiftID)
}

func (s *service) History(ctx context.Context, limit int) ([]Shift, error) {
	return s.repo.History(ctx, limit)
}
