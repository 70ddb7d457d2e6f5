package repository

import (
	"context"
	"errors"

	"courier_platform/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrLastAdmin = errors.New("at least one admin must exist")

type AdminRepository struct {
	db *pgxpool.Pool
}

func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db}
}

const adminColumns = `id, username, password_hash, ad_spend_current, ad_spend_total, is_super_admin, created_at`

// GetByID retrieves an admin by id.
func (r *AdminRepository) GetByID(ctx context.Context, id int64) (*domain.Admin, error) {
	row := r.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id)
	return scanAdmin(row)
}

// GetByUsername retrieves an admin by username.
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	row := r.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE username = $1`, username)
	return scanAdmin(row)
}

// Create inserts a new admin.
func (r *AdminRepository) Create(ctx context.Context, a *domain.Admin) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO admins (username, password_hash, is_super_admin)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, a.Username, a.PasswordHash, a.IsSuperAdmin).Scan(&a.ID, &a.CreatedAt)
}

// List returns all admins ordered by id.
func (r *AdminRepository) List(ctx context.Context) ([]domain.Admin, error) {
	rows, err := r.db.Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []domain.Admin
	for rows.Next() {
		var a domain.Admin
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.AdSpendCurrent, &a.AdSpendTotal, &a.IsSuperAdmin, &a.CreatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

// Delete removes an admin but never the last one. All admin rows are locked
// before counting so concurrent deletes serialize and cannot empty the table.
func (r *AdminRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `SELECT id FROM admins FOR UPDATE`)
	if err != nil {
		return err
	}
	count := 0
	for rows.Next() {
		count++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastAdmin
	}

	if _, err := tx.Exec(ctx, `DELETE FROM admins WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeclareAdSpend replaces the admin's current ad spend and accumulates the
// lifetime total.
func (r *AdminRepository) DeclareAdSpend(ctx context.Context, adminID int64, spend decimal.Decimal) error {
	res, err := r.db.Exec(ctx, `
		UPDATE admins
		SET ad_spend_current = $2, ad_spend_total = ad_spend_total + $2
		WHERE id = $1
	`, adminID, spend)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AdSpendMap returns admins with positive current ad spend, heaviest spender
// first so the policy output is reproducible.
func (r *AdminRepository) AdSpendMap(ctx context.Context) ([]domain.AdminSpend, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, ad_spend_current
		FROM admins
		WHERE ad_spend_current > 0
		ORDER BY ad_spend_current DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spends []domain.AdminSpend
	for rows.Next() {
		var s domain.AdminSpend
		if err := rows.Scan(&s.AdminID, &s.Spend); err != nil {
			return nil, err
		}
		spends = append(spends, s)
	}
	return spends, rows.Err()
}

// Count returns the total number of admins.
func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n)
	return n, err
}

func scanAdmin(row pgx.Row) (*domain.Admin, error) {
	var a domain.Admin
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.AdSpendCurrent, &a.AdSpendTotal, &a.IsSuperAdmin, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
