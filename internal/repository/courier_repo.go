package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"courier_platform/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrExternalIDTaken = errors.New("external id already bound to another courier")

type CourierRepository struct {
	db *pgxpool.Pool
}

func NewCourierRepository(db *pgxpool.Pool) *CourierRepository {
	return &CourierRepository{db: db}
}

const courierColumns = `id, full_name, phone, city, email, referral_code, invited_by_courier_id,
	external_id, balance, total_orders, total_earnings, referral_earnings, self_bonus_paid,
	sbp_phone, sbp_bank_name, archived_at, restore_until, created_at`

// GenerateReferralCode generates a random referral code.
func GenerateReferralCode() string {
	bytes := make([]byte, 6)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// Create inserts a new courier with a fresh referral code, retrying on the
// unlikely code collision.
func (r *CourierRepository) Create(ctx context.Context, c *domain.Courier) error {
	var err error
	for i := 0; i < 5; i++ {
		code := GenerateReferralCode()
		err = r.db.QueryRow(ctx, `
			INSERT INTO couriers (full_name, phone, city, email, referral_code, invited_by_courier_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, referral_code, created_at
		`, c.FullName, c.Phone, c.City, c.Email, code, c.InvitedBy).Scan(&c.ID, &c.ReferralCode, &c.CreatedAt)
		if err == nil {
			return nil
		}
	}
	return err
}

// GetByID retrieves a courier by internal id.
func (r *CourierRepository) GetByID(ctx context.Context, id int64) (*domain.Courier, error) {
	row := r.db.QueryRow(ctx, `SELECT `+courierColumns+` FROM couriers WHERE id = $1`, id)
	return scanCourier(row)
}

// GetByExternalID retrieves the courier bound to a partner external id.
func (r *CourierRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Courier, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+courierColumns+`
		FROM couriers
		WHERE external_id = $1 AND archived_at IS NULL
	`, externalID)
	return scanCourier(row)
}

// GetByReferralCode retrieves a courier by referral code.
func (r *CourierRepository) GetByReferralCode(ctx context.Context, code string) (*domain.Courier, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+courierColumns+`
		FROM couriers
		WHERE referral_code = $1 AND archived_at IS NULL
	`, code)
	return scanCourier(row)
}

// FindByNameCityPhone looks up an active courier by exact full name (case
// insensitive), city and last 4 digits of the phone number.
func (r *CourierRepository) FindByNameCityPhone(ctx context.Context, fullName, city, phone4 string) (*domain.Courier, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+courierColumns+`
		FROM couriers
		WHERE LOWER(full_name) = LOWER($1)
		  AND LOWER(city) = LOWER($2)
		  AND RIGHT(regexp_replace(phone, '\D', '', 'g'), 4) = $3
		  AND archived_at IS NULL
		LIMIT 1
	`, fullName, city, phone4)
	return scanCourier(row)
}

// FindByNameCityUnbound looks up an active courier by exact full name and
// city, restricted to couriers with no external id yet so an already bound
// courier cannot be hijacked by a name collision.
func (r *CourierRepository) FindByNameCityUnbound(ctx context.Context, fullName, city string) (*domain.Courier, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+courierColumns+`
		FROM couriers
		WHERE LOWER(full_name) = LOWER($1)
		  AND LOWER(city) = LOWER($2)
		  AND external_id IS NULL
		  AND archived_at IS NULL
		LIMIT 1
	`, fullName, city)
	return scanCourier(row)
}

// FindActiveByCityPhone returns active couriers in a city whose phone ends
// with the given 4 digits. Used to build the fuzzy candidate set.
func (r *CourierRepository) FindActiveByCityPhone(ctx context.Context, city, phone4 string) ([]domain.Courier, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+courierColumns+`
		FROM couriers
		WHERE LOWER(city) = LOWER($1)
		  AND RIGHT(regexp_replace(phone, '\D', '', 'g'), 4) = $2
		  AND archived_at IS NULL
	`, city, phone4)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCouriers(rows)
}

// SearchByNameTokens returns active couriers whose full name contains any of
// the given tokens, regardless of city.
func (r *CourierRepository) SearchByNameTokens(ctx context.Context, tokens []string, limit int) ([]domain.Courier, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(tokens)+1)
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		args = append(args, "%"+tok+"%")
		sb.WriteString("full_name ILIKE $" + strconv.Itoa(len(args)))
	}
	args = append(args, limit)

	rows, err := r.db.Query(ctx, `
		SELECT `+courierColumns+`
		FROM couriers
		WHERE archived_at IS NULL AND (`+sb.String()+`)
		LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCouriers(rows)
}

// LearnExternalID sets the external id on a courier only if none is bound
// yet. Returns true when the binding was learned.
func (r *CourierRepository) LearnExternalID(ctx context.Context, courierID int64, externalID string) (bool, error) {
	res, err := r.db.Exec(ctx, `
		UPDATE couriers SET external_id = $2
		WHERE id = $1 AND external_id IS NULL
	`, courierID, externalID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// BindExternalID is the admin path: it overwrites the courier's binding but
// refuses when another courier already holds the external id.
func (r *CourierRepository) BindExternalID(ctx context.Context, courierID int64, externalID string) error {
	var holder int64
	err := r.db.QueryRow(ctx, `
		SELECT id FROM couriers WHERE external_id = $1 AND id <> $2
	`, externalID, courierID).Scan(&holder)
	if err == nil {
		return ErrExternalIDTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	_, err = r.db.Exec(ctx, `UPDATE couriers SET external_id = $2 WHERE id = $1`, courierID, externalID)
	return err
}

// CountByExternalID counts couriers holding an external id. More than one is
// a data corruption signal.
func (r *CourierRepository) CountByExternalID(ctx context.Context, externalID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM couriers WHERE external_id = $1`, externalID).Scan(&n)
	return n, err
}

// UpdateSBPDetailsWithTx persists payout requisites on the courier profile.
func (r *CourierRepository) UpdateSBPDetailsWithTx(ctx context.Context, tx pgx.Tx, courierID int64, sbpPhone, sbpBank string) error {
	_, err := tx.Exec(ctx, `
		UPDATE couriers SET sbp_phone = $2, sbp_bank_name = $3 WHERE id = $1
	`, courierID, sbpPhone, sbpBank)
	return err
}

// SetInvitedBy attaches a referrer once; it never overwrites an existing one
// and refuses self-invites.
func (r *CourierRepository) SetInvitedBy(ctx context.Context, courierID, referrerID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE couriers SET invited_by_courier_id = $2
		WHERE id = $1 AND invited_by_courier_id IS NULL AND id <> $2
	`, courierID, referrerID)
	return err
}

// Archive soft-archives a courier and opens the restore window.
func (r *CourierRepository) Archive(ctx context.Context, courierID int64) error {
	now := time.Now()
	_, err := r.db.Exec(ctx, `
		UPDATE couriers SET archived_at = $2, restore_until = $3
		WHERE id = $1 AND archived_at IS NULL
	`, courierID, now, now.Add(domain.ArchiveRestoreWindow))
	return err
}

// Restore reverses a soft archive while the restore window is open.
func (r *CourierRepository) Restore(ctx context.Context, courierID int64) error {
	res, err := r.db.Exec(ctx, `
		UPDATE couriers SET archived_at = NULL, restore_until = NULL
		WHERE id = $1 AND archived_at IS NOT NULL AND restore_until > NOW()
	`, courierID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RecomputeAggregates rebuilds the denormalized per-courier totals from the
// source tables after an ingestion batch.
func (r *CourierRepository) RecomputeAggregates(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		UPDATE couriers c SET
			total_orders = COALESCE(e.orders, 0),
			total_earnings = COALESCE(e.amount, 0),
			referral_earnings = COALESCE(d.amount, 0),
			self_bonus_paid = COALESCE(s.is_completed, FALSE)
		FROM couriers c2
		LEFT JOIN (
			SELECT courier_id, SUM(orders_count) AS orders, SUM(total_amount) AS amount
			FROM earnings GROUP BY courier_id
		) e ON e.courier_id = c2.id
		LEFT JOIN (
			SELECT recipient_id, SUM(amount) AS amount
			FROM distributions
			WHERE recipient_type = 'courier_referrer' AND recipient_id IS NOT NULL
			GROUP BY recipient_id
		) d ON d.recipient_id = c2.id
		LEFT JOIN self_bonus_tracking s ON s.courier_id = c2.id
		WHERE c.id = c2.id
	`)
	return err
}

func scanCourier(row pgx.Row) (*domain.Courier, error) {
	var c domain.Courier
	if err := row.Scan(
		&c.ID, &c.FullName, &c.Phone, &c.City, &c.Email, &c.ReferralCode, &c.InvitedBy,
		&c.ExternalID, &c.Balance, &c.TotalOrders, &c.TotalEarnings, &c.ReferralEarnings, &c.SelfBonusPaid,
		&c.SBPPhone, &c.SBPBankName, &c.ArchivedAt, &c.RestoreUntil, &c.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func scanCouriers(rows pgx.Rows) ([]domain.Courier, error) {
	var couriers []domain.Courier
	for rows.Next() {
		var c domain.Courier
		if err := rows.Scan(
			&c.ID, &c.FullName, &c.Phone, &c.City, &c.Email, &c.ReferralCode, &c.InvitedBy,
			&c.ExternalID, &c.Balance, &c.TotalOrders, &c.TotalEarnings, &c.ReferralEarnings, &c.SelfBonusPaid,
			&c.SBPPhone, &c.SBPBankName, &c.ArchivedAt, &c.RestoreUntil, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		couriers = append(couriers, c)
	}
	return couriers, rows.Err()
}
