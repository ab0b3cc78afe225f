package session

import (
	"context"
	"errors"
	"time"

	"github.com/Rokatacaem/SistemaBillar/internal/metrics"
	"github.com/Rokatacaem/SistemaBillar/internal/sale"
)

var ErrInvalidSplit = errors.New("split percentages must sum to 100")

type Service interface {
	Start(ctx context.Context, req OpenSessionRequest) (*SessionDetail, error)
	AddPlayer(ctx context.Context, sessionID int, req PlayerRequest) (*SessionPlayer, error)
	EndPlayer(ctx context.Context, sessionID, playerID int, req EndPlayerRequest) (*sale.Sale, error)
	AddItem(ctx context.Context, sessionID int, req AddItemRequest) (*SessionItem, error)
	Settle(ctx context.Context, tableID int, req SettleRequest) (*SettleResult, error)
	Detail(ctx context.Context, sessionID int) (*SessionDetail, error)
	ActiveByTable(ctx context.Context, tableID int) (*SessionDetail, error)
}

type service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Start(ctx context.Context, req OpenSessionRequest) (*SessionDetail, error) {
	d, err := s.repo.Start(ctx, req, s.now())
	if err != nil {
		return nil, err
	}
	metrics.RecordSessionOpened(string(d.GameType))
	return d, nil
}

func (s *service) AddPlayer(ctx context.Context, sessionID int, req PlayerRequest) (*SessionPlayer, error) {
	return s.repo.AddPlayer(ctx, sessionID, req, s.now())
}

func (s *service) EndPlayer(ctx context.Context, sessionID, playerID int, req EndPlayerRequest) (*sale.Sale, error) {
	billed, err := s.repo.EndPlayer(ctx, sessionID, playerID, req, s.now())
	if err != nil {
		return nil, err
	}
	metrics.RecordSale(string(billed.Method), billed.Total)
	return billed, nil
}

func (s *service) AddItem(ctx context.Context, sessionID int, req AddItemRequest) (*SessionItem, error) {
	return s.repo.AddItem(ctx, sessionID, req, s.now())
}

func (s *service) Settle(ctx context.Context, tableID int, req SettleRequest) (*SettleResult, error) {
	if req.Mode == ModeSplit {
		if len(req.Payments) < 2 {
			return nil, ErrInvalidSplit
		}
		sum := 0
		for _, p := range req.Payments {
			sum += p.Percentage
		}
		if sum != 100 {
			return nil, ErrInvalidSplit
		}
	}

	result, err := s.repo.Settle(ctx, tableID, req, s.now())
	if err != nil {
		return nil, err
	}
	for _, sl := range result.Sales {
		metrics.RecordSettlement(string(req.Mode), string(sl.Method))
		metrics.RecordSale(string(sl.Method), sl.Total)
	}
	return result, nil
}

func (s *service) Detail(ctx context.Context, sessionID int) (*SessionDetail, error) {
	return s.repo.Detail(ctx, sessionID)
}

func (s *service) ActiveByTable(ctx context.Context, tableID int) (*SessionDetail, error) {
	return s.repo.ActiveByTable(ctx, tableID)
}
