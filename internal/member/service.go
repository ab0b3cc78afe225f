package member

import (
	"context"
	"errors"
	"time"

	"github.com/Rokatacaem/SistemaBillar/internal/auth"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*Member, string, string, error)
	ChangePassword(ctx context.Context, memberID int, req ChangePasswordRequest) error
	Create(ctx context.Context, req CreateMemberRequest) (*Member, error)
	GetByID(ctx context.Context, id int) (*Member, error)
	List(ctx context.Context, memberType, role string) ([]Member, error)
	ListSocios(ctx context.Context) ([]MemberWithMembership, error)
	Update(ctx context.Context, id int, req UpdateMemberRequest) error
	Delete(ctx context.Context, id int) error
	PayDebt(ctx context.Context, memberID int, req PayDebtRequest) (int64, error)
	PayMembership(ctx context.Context, memberID int, req PayMembershipRequest) (time.Time, error)
}

type service struct {
	repo      *Repository
	jwtSecret string
	now       func() time.Time
}

func NewService(repo *Repository, jwtSecret string) Service {
	return &service{
		repo:      repo,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Member, string, string, error) {
	m, err := s.repo.FindByRUT(ctx, req.RUT)
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	if m.PasswordHash == "" || !auth.CheckPassword(m.PasswordHash, req.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := auth.GenerateTokens(m.ID, m.RUT, m.Role, s.jwtSecret)
	if err != nil {
		return nil, "", "", err
	}

	return m, accessToken, refreshToken, nil
}

func (s *service) ChangePassword(ctx context.Context, memberID int, req ChangePasswordRequest) error {
	m, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		return err
	}

	if !auth.CheckPassword(m.PasswordHash, req.CurrentPassword) {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, memberID, hash)
}

func (s *service) Create(ctx context.Context, req CreateMemberRequest) (*Member, error) {
	var hash string
	if req.Password != "" {
		var err error
		hash, err = auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
	}
	return s.repo.Create(ctx, req, hash)
}

func (s *service) GetByID(ctx context.Context, id int) (*Member, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, memberType, role string) ([]Member, error) {
	return s.repo.List(ctx, memberType, role)
}

func (s *service) ListSocios(ctx context.Context) ([]MemberWithMembership, error) {
	members, err := s.repo.ListSocios(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]MemberWithMembership, 0, len(members))
	for i := range members {
		out = append(out, MemberWithMembership{
			Member:     members[i],
			Membership: members[i].MembershipStatus(now),
		})
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id int, req UpdateMemberRequest) error {
	var hash string
	if req.Password != "" {
		var err error
		hash, err = auth.HashPassword(req.Password)
		if err != nil {
			return err
		}
	}
	return s.repo.Update(ctx, id, req, hash)
}

func (s *service) Delete(ctx context.Context, id int) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *service) PayDebt(ctx context.Context, memberID int, req PayDebtRequest) (int64, error) {
	return s.repo.PayDebt(ctx, memberID, req.Amount, req.Method, s.now())
}

func (s *service) PayMembership(ctx context.Context, memberID int, req PayMembershipRequest) (time.Time, error) {
	return s.repo.PayMembership(ctx, memberID, req.Amount, req.Months, req.Method, s.now())
}
