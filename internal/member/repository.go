package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Rokatacaem/SistemaBillar/internal/sale"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrRUTExists      = errors.New("rut already registered")
)

const memberColumns = `id, rut, full_name, role, type, status, current_debt, credit_limit, membership_expires_at, password_hash, created_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, req CreateMemberRequest, passwordHash string) (*Member, error) {
	role := req.Role
	if role == "" {
		role = RoleUser
	}
	memberType := req.Type
	if memberType == "" {
		memberType = "CLIENTE"
	}

	var m Member
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO users (rut, full_name, role, type, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+memberColumns+`
	`, req.RUT, req.FullName, role, memberType, passwordHash).StructScan(&m)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrRUTExists
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*Member, error) {
	var m Member
	err := r.db.GetContext(ctx, &m,
		`SELECT `+memberColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) FindByRUT(ctx context.Context, rut string) (*Member, error) {
	var m Member
	err := r.db.GetContext(ctx, &m,
		`SELECT `+memberColumns+` FROM users WHERE rut = $1 AND status != 'DELETED'`, rut)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns non-deleted members, optionally filtered by tier and role.
func (r *Repository) List(ctx context.Context, memberType, role string) ([]Member, error) {
	query := `SELECT ` + memberColumns + ` FROM users WHERE status != 'DELETED'`
	args := []interface{}{}

	if memberType != "" {
		args = append(args, memberType)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if role != "" {
		args = append(args, role)
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	query += " ORDER BY full_name ASC"

	var members []Member
	err := r.db.SelectContext(ctx, &members, query, args...)
	return members, err
}

// ListSocios returns SOCIO and FUNDADOR members for the membership page.
func (r *Repository) ListSocios(ctx context.Context) ([]Member, error) {
	var members []Member
	err := r.db.SelectContext(ctx, &members, `
		SELECT `+memberColumns+`
		FROM users
		WHERE type IN ('SOCIO', 'FUNDADOR') AND status != 'DELETED'
		ORDER BY full_name ASC
	`)
	return members, err
}

func (r *Repository) Update(ctx context.Context, id int, req UpdateMemberRequest, passwordHash string) error {
	var (
		res sql.Result
		err error
	)
	if passwordHash != "" {
		res, err = r.db.ExecContext(ctx, `
			UPDATE users
			SET full_name = $1, role = $2, type = $3, credit_limit = $4, password_hash = $5
			WHERE id = $6 AND status != 'DELETED'
		`, req.FullName, req.Role, req.Type, req.CreditLimit, passwordHash, id)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE users
			SET full_name = $1, role = $2, type = $3, credit_limit = $4
			WHERE id = $5 AND status != 'DELETED'
		`, req.FullName, req.Role, req.Type, req.CreditLimit, id)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// SoftDelete marks the member DELETED; the row stays for ledger history.
func (r *Repository) SoftDelete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = 'DELETED' WHERE id = $1 AND status != 'DELETED'`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// PayDebt records a debt payment ("abono") as a PAID sale and reduces the
// member's balance in the same transaction.
func (r *Repository) PayDebt(ctx context.Context, memberID int, amount int64, method string, now time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var m struct {
		FullName    string `db:"full_name"`
		CurrentDebt int64  `db:"current_debt"`
	}
	err = tx.QueryRowxContext(ctx,
		`SELECT full_name, current_debt FROM users WHERE id = $1 FOR UPDATE`,
		memberID).StructScan(&m)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMemberNotFound
	}
	if err != nil {
		return 0, err
	}

	s := &sale.Sale{
		Items: sale.Items{{
			Type:     sale.ItemPayment,
			Name:     "Abono Deuda",
			Quantity: 1,
			Price:    amount,
		}},
		Total:         amount,
		Method:        sale.Method(method),
		PaymentStatus: sale.StatusPaid,
		UserID:        &memberID,
		UserName:      &m.FullName,
		CreatedAt:     now,
	}
	if err := sale.InsertTx(ctx, tx, s); err != nil {
		return 0, err
	}

	if err := sale.AdjustDebtTx(ctx, tx, memberID, -amount); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return m.CurrentDebt - amount, nil
}

// PayMembership extends the membership and records the payment both in the
// membership register and as a MEMBERSHIP sale, so the money shows up in the
// shift ledger. An expired membership restarts from now; an active one
// extends from its current expiry.
func (r *Repository) PayMembership(ctx context.Context, memberID int, amount int64, months int, method string, now time.Time) (time.Time, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return time.Time{}, err
	}
	defer tx.Rollback()

	var m struct {
		FullName  string     `db:"full_name"`
		ExpiresAt *time.Time `db:"membership_expires_at"`
	}
	err = tx.QueryRowxContext(ctx,
		`SELECT full_name, membership_expires_at FROM users WHERE id = $1 FOR UPDATE`,
		memberID).StructScan(&m)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrMemberNotFound
	}
	if err != nil {
		return time.Time{}, err
	}

	base := now
	if m.ExpiresAt != nil && m.ExpiresAt.After(now) {
		base = *m.ExpiresAt
	}
	newExpiry := base.AddDate(0, months, 0)

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET membership_expires_at = $1, status = 'ACTIVE' WHERE id = $2
	`, newExpiry, memberID); err != nil {
		return time.Time{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO membership_payments (user_id, amount, months, method, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, memberID, amount, months, method, now); err != nil {
		return time.Time{}, err
	}

	s := &sale.Sale{
		Items: sale.Items{{
			Type:     sale.ItemMembership,
			Name:     fmt.Sprintf("Mensualidad (%d meses)", months),
			Quantity: 1,
			Price:    amount,
		}},
		Total:         amount,
		Method:        sale.Method(method),
		PaymentStatus: sale.StatusPaid,
		UserID:        &memberID,
		UserName:      &m.FullName,
		CreatedAt:     now,
	}
	if err := sale.InsertTx(ctx, tx, s); err != nil {
		return time.Time{}, err
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, err
	}
	return newExpiry, nil
}
