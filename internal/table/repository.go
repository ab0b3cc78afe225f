package table

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrDuplicateName = errors.New("table name already exists")
	ErrTableOccupied = errors.New("table is occupied")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, name string, gameType GameType) (*Table, error) {
	var t Table
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO tables (name, type, status)
		VALUES ($1, $2, 'AVAILABLE')
		RETURNING id, name, type, status, current_session_id, created_at
	`, name, gameType).StructScan(&t)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repository) GetByID(ctx context.Context, id int) (*Table, error) {
	var t Table
	err := r.db.GetContext(ctx, &t, `
		SELECT id, name, type, status, current_session_id, created_at
		FROM tables
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns the floor view: every table with its open session and the
// consumption accumulated so far.
func (r *Repository) List(ctx context.Context) ([]TableWithSession, error) {
	var tables []TableWithSession
	err := r.db.SelectContext(ctx, &tables, `
		SELECT t.id, t.name, t.type, t.status, t.current_session_id, t.created_at,
		       s.start_time AS session_start,
		       s.is_training,
		       COALESCE((SELECT SUM(si.price * si.quantity) FROM session_items si WHERE si.session_id = s.id), 0) AS consumption_total
		FROM tables t
		LEFT JOIN sessions s ON t.current_session_id = s.id
		ORDER BY t.name ASC
	`)
	return tables, err
}

func (r *Repository) Update(ctx context.Context, id int, name string, gameType GameType) (*Table, error) {
	var t Table
	err := r.db.QueryRowxContext(ctx, `
		UPDATE tables SET name = $1, type = $2
		WHERE id = $3
		RETURNING id, name, type, status, current_session_id, created_at
	`, name, gameType, id).StructScan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return &t, nil
}

// Delete removes a table; an occupied table cannot be deleted.
func (r *Repository) Delete(ctx context.Context, id int) error {
	var status string
	err := r.db.GetContext(ctx, &status, `SELECT status FROM tables WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTableNotFound
	}
	if err != nil {
		return err
	}
	if status == StatusOccupied {
		return ErrTableOccupied
	}

	_, err = r.db.ExecContext(ctx, `DELETE FROM tables WHERE id = $1`, id)
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
