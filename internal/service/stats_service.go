package service

import (
	"context"

	"courier_platform/internal/domain"
	"courier_platform/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StatsService builds the read-side projections the UI consumes. Everything
// here is derivable from the primary tables.
type StatsService struct {
	db            *pgxpool.Pool
	couriers      *repository.CourierRepository
	earnings      *repository.EarningRepository
	distributions *repository.DistributionRepository
	selfBonus     *repository.SelfBonusRepository
	admins        *repository.AdminRepository
	botContent    *repository.BotContentRepository
}

func NewStatsService(db *pgxpool.Pool, botContent *repository.BotContentRepository) *StatsService {
	return &StatsService{
		db:            db,
		couriers:      repository.NewCourierRepository(db),
		earnings:      repository.NewEarningRepository(db),
		distributions: repository.NewDistributionRepository(db),
		selfBonus:     repository.NewSelfBonusRepository(db),
		admins:        repository.NewAdminRepository(db),
		botContent:    botContent,
	}
}

// CourierDashboard is the per-courier projection.
type CourierDashboard struct {
	CourierID        int64           `json:"courier_id"`
	ReferralCode     string          `json:"referral_code"`
	ReferralsTotal   int             `json:"referrals_total"`
	ReferralsActive  int             `json:"referrals_active"`
	ReferralPending  decimal.Decimal `json:"referral_pending"`
	ReferralPaid     decimal.Decimal `json:"referral_paid"`
	Balance          decimal.Decimal `json:"balance"`
	SelfBonusOrders  int             `json:"self_bonus_orders"`
	SelfBonusTarget  int             `json:"self_bonus_target"`
	SelfBonusEarned  decimal.Decimal `json:"self_bonus_earned"`
	SelfBonusDone    bool            `json:"self_bonus_done"`
}

// Dashboard assembles the courier dashboard.
func (s *StatsService) Dashboard(ctx context.Context, courierID int64) (*CourierDashboard, error) {
	courier, err := s.couriers.GetByID(ctx, courierID)
	if err != nil {
		return nil, err
	}
	if courier == nil {
		return nil, ErrCourierNotFound
	}

	d := &CourierDashboard{
		CourierID:    courier.ID,
		ReferralCode: courier.ReferralCode,
		Balance:      courier.Balance,
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE total_orders > 0)
		FROM couriers
		WHERE invited_by_courier_id = $1 AND archived_at IS NULL
	`, courierID).Scan(&d.ReferralsTotal, &d.ReferralsActive)
	if err != nil {
		return nil, err
	}

	d.ReferralPending, d.ReferralPaid, err = s.distributions.ReferrerSums(ctx, courierID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.botContent.Get(ctx)
	if err != nil {
		return nil, err
	}
	d.SelfBonusTarget = cfg.SelfBonusOrders

	tracking, err := s.selfBonus.Get(ctx, courierID)
	if err != nil {
		return nil, err
	}
	if tracking != nil {
		d.SelfBonusOrders = tracking.OrdersCompleted
		d.SelfBonusEarned = tracking.BonusEarned
		d.SelfBonusDone = tracking.IsCompleted
	}

	return d, nil
}

// AdminFinance is one admin's row of the overview.
type AdminFinance struct {
	AdminID        int64           `json:"admin_id"`
	Username       string          `json:"username"`
	AdSpendCurrent decimal.Decimal `json:"ad_spend_current"`
	AdSpendTotal   decimal.Decimal `json:"ad_spend_total"`
	Expected       decimal.Decimal `json:"expected_earnings"`
	ROI            float64         `json:"roi"`
}

// AdminOverview is the platform-wide financial projection.
type AdminOverview struct {
	Sums          []repository.TypeStatusSum `json:"sums"`
	TotalUploaded decimal.Decimal            `json:"total_uploaded"`
	Admins        []AdminFinance             `json:"admins"`
}

// Overview assembles the admin dashboard.
func (s *StatsService) Overview(ctx context.Context) (*AdminOverview, error) {
	sums, err := s.distributions.SumsByTypeAndStatus(ctx)
	if err != nil {
		return nil, err
	}

	total, err := s.earnings.TotalUploaded(ctx)
	if err != nil {
		return nil, err
	}

	admins, err := s.admins.List(ctx)
	if err != nil {
		return nil, err
	}

	finances := make([]AdminFinance, 0, len(admins))
	for _, a := range admins {
		expected, err := s.distributions.ExpectedForAdmin(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		f := AdminFinance{
			AdminID:        a.ID,
			Username:       a.Username,
			AdSpendCurrent: a.AdSpendCurrent,
			AdSpendTotal:   a.AdSpendTotal,
			Expected:       expected,
		}
		if a.AdSpendCurrent.IsPositive() {
			f.ROI, _ = expected.Div(a.AdSpendCurrent).Float64()
		}
		finances = append(finances, f)
	}

	return &AdminOverview{Sums: sums, TotalUploaded: total, Admins: finances}, nil
}

// Periods lists the distinct uploaded CSV periods.
func (s *StatsService) Periods(ctx context.Context) ([]repository.Period, error) {
	return s.earnings.ListPeriods(ctx)
}

// Payments lists earnings filtered by courier or period.
func (s *StatsService) Payments(ctx context.Context, f repository.EarningFilter, limit int) ([]domain.Earning, error) {
	return s.earnings.List(ctx, f, limit)
}

// DistributionsForCourier lists distributions pointing at a courier.
func (s *StatsService) DistributionsForCourier(ctx context.Context, courierID int64, limit int) ([]domain.Distribution, error) {
	return s.distributions.ListForCourier(ctx, courierID, limit)
}

// DistributionsForEarning lists how one earning was split.
func (s *StatsService) DistributionsForEarning(ctx context.Context, earningID int64) ([]domain.Distribution, error) {
	return s.distributions.ListForEarning(ctx, earningID)
}
