package integration

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"courier_platform/internal/db"
	"courier_platform/internal/domain"
	"courier_platform/internal/ingest"
	"courier_platform/internal/repository"
	"courier_platform/internal/service"
	"courier_platform/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
)

func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("goose dialect: %v", err)
	}
	if err := goose.Up(sqlDB, "."); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	pool := db.Connect(dsn)
	t.Cleanup(pool.Close)

	resetTables(t, pool)
	return pool
}

func resetTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		TRUNCATE distributions, earnings, earnings_snapshots, self_bonus_tracking,
			withdrawal_requests, couriers, admins RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestIngestBatch_EndToEnd(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	couriers := repository.NewCourierRepository(pool)
	admins := repository.NewAdminRepository(pool)
	botContent := repository.NewBotContentRepository(pool, nil)

	// cap the self-bonus layer low so the referrer and admin layers engage
	cfg := domain.DefaultBotContent()
	cfg.SelfBonusAmount = mustDec(t, "100")
	cfg.SelfBonusOrders = 5
	if err := botContent.Update(ctx, cfg); err != nil {
		t.Fatalf("update config: %v", err)
	}

	admin := &domain.Admin{Username: "boss", PasswordHash: "x", IsSuperAdmin: true}
	if err := admins.Create(ctx, admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if err := admins.DeclareAdSpend(ctx, admin.ID, mustDec(t, "1000")); err != nil {
		t.Fatalf("declare ad spend: %v", err)
	}

	referrer := &domain.Courier{FullName: "Anna Referrer", Phone: "+79000000001", City: "Moscow"}
	if err := couriers.Create(ctx, referrer); err != nil {
		t.Fatalf("create referrer: %v", err)
	}
	courier := &domain.Courier{FullName: "Ivan Petrov", Phone: "+79001234567", City: "Moscow", InvitedBy: &referrer.ID}
	if err := couriers.Create(ctx, courier); err != nil {
		t.Fatalf("create courier: %v", err)
	}

	orch := ingest.NewOrchestrator(pool, botContent)
	rows := []ingest.Row{{
		ExternalID:      "ext-100",
		CreatorUsername: "manager1",
		Phone:           "+7 900 123-45-67",
		FirstName:       "Ivan",
		LastName:        "Petrov",
		TargetCity:      "Moscow",
		OrderNumber:     10,
		Reward:          mustDec(t, "1000"),
	}}

	report, err := orch.IngestCSV(ctx, rows, "Leads_2025-06-01-2025-06-15.csv")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if report.Processed != 1 || len(report.Errors) != 0 || len(report.Unmatched) != 0 {
		t.Fatalf("report = %+v", report)
	}

	// profile match must have learned the binding
	bound, err := couriers.GetByExternalID(ctx, "ext-100")
	if err != nil || bound == nil || bound.ID != courier.ID {
		t.Fatalf("binding not learned: %v %v", bound, err)
	}

	// 1000 = 100 self layer + 540 referrer (60% of 900) + 360 admin pool;
	// the courier also crossed the 5-order milestone and got the 100 bonus
	got, err := couriers.GetByID(ctx, courier.ID)
	if err != nil {
		t.Fatalf("get courier: %v", err)
	}
	if !got.Balance.Equal(mustDec(t, "200")) {
		t.Fatalf("courier balance = %s, want 200", got.Balance)
	}

	gotRef, err := couriers.GetByID(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("get referrer: %v", err)
	}
	if !gotRef.Balance.Equal(mustDec(t, "540")) {
		t.Fatalf("referrer balance = %s, want 540", gotRef.Balance)
	}

	// re-uploading the same cumulative totals must be a no-op
	report, err = orch.IngestCSV(ctx, rows, "Leads_2025-06-01-2025-06-15.csv")
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if report.Duplicates != 1 || report.Processed != 0 {
		t.Fatalf("re-ingest report = %+v", report)
	}

	// settling a referrer distribution moves it from the pending to the paid sum
	distRepo := repository.NewDistributionRepository(pool)
	dists, err := distRepo.ListForCourier(ctx, referrer.ID, 10)
	if err != nil || len(dists) != 1 {
		t.Fatalf("referrer distributions = %v, %v", dists, err)
	}
	if err := distRepo.MarkPaid(ctx, dists[0].ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	pending, paid, err := distRepo.ReferrerSums(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("referrer sums: %v", err)
	}
	if !pending.IsZero() || !paid.Equal(mustDec(t, "540")) {
		t.Fatalf("referrer sums = %s pending / %s paid, want 0 / 540", pending, paid)
	}
	// settling twice is refused
	if err := distRepo.MarkPaid(ctx, dists[0].ID); err == nil {
		t.Fatal("second settle must fail")
	}
}

// Ingesting the same batch in different row orders must converge to the same
// per-courier totals and balances.
func TestIngestBatch_OrderIndependence(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	rows := []ingest.Row{
		{ExternalID: "ext-1", CreatorUsername: "m", Phone: "+79001234567", FirstName: "Ivan", LastName: "Petrov", TargetCity: "Moscow", OrderNumber: 5, Reward: mustDec(t, "1000")},
		{ExternalID: "ext-1", CreatorUsername: "m", Phone: "+79001234567", FirstName: "Ivan", LastName: "Petrov", TargetCity: "Moscow", OrderNumber: 8, Reward: mustDec(t, "1600")},
		{ExternalID: "ext-2", CreatorUsername: "m", Phone: "+79007654321", FirstName: "Anna", LastName: "Sidorova", TargetCity: "Kazan", OrderNumber: 3, Reward: mustDec(t, "500")},
	}

	type totals struct {
		earnings map[string]decimal.Decimal
		balances map[string]decimal.Decimal
	}

	runBatch := func(order []int) totals {
		resetTables(t, pool)

		couriers := repository.NewCourierRepository(pool)
		admins := repository.NewAdminRepository(pool)
		botContent := repository.NewBotContentRepository(pool, nil)

		cfg := domain.DefaultBotContent()
		cfg.SelfBonusAmount = mustDec(t, "100")
		cfg.SelfBonusOrders = 50
		if err := botContent.Update(ctx, cfg); err != nil {
			t.Fatalf("update config: %v", err)
		}

		admin := &domain.Admin{Username: "boss", PasswordHash: "x"}
		if err := admins.Create(ctx, admin); err != nil {
			t.Fatalf("create admin: %v", err)
		}
		if err := admins.DeclareAdSpend(ctx, admin.ID, mustDec(t, "1000")); err != nil {
			t.Fatalf("declare ad spend: %v", err)
		}

		referrer := &domain.Courier{FullName: "Olga Referrer", Phone: "+79000000001", City: "Moscow"}
		if err := couriers.Create(ctx, referrer); err != nil {
			t.Fatalf("create referrer: %v", err)
		}
		ivan := &domain.Courier{FullName: "Ivan Petrov", Phone: "+79001234567", City: "Moscow", InvitedBy: &referrer.ID}
		if err := couriers.Create(ctx, ivan); err != nil {
			t.Fatalf("create courier: %v", err)
		}
		anna := &domain.Courier{FullName: "Anna Sidorova", Phone: "+79007654321", City: "Kazan"}
		if err := couriers.Create(ctx, anna); err != nil {
			t.Fatalf("create courier: %v", err)
		}

		batch := make([]ingest.Row, 0, len(order))
		for _, i := range order {
			batch = append(batch, rows[i])
		}

		orch := ingest.NewOrchestrator(pool, botContent)
		if _, err := orch.IngestCSV(ctx, batch, "Leads_2025-06-01-2025-06-15.csv"); err != nil {
			t.Fatalf("ingest: %v", err)
		}

		got := totals{
			earnings: make(map[string]decimal.Decimal),
			balances: make(map[string]decimal.Decimal),
		}
		for _, c := range []*domain.Courier{referrer, ivan, anna} {
			cur, err := couriers.GetByID(ctx, c.ID)
			if err != nil || cur == nil {
				t.Fatalf("get courier %s: %v", c.FullName, err)
			}
			got.earnings[c.FullName] = cur.TotalEarnings
			got.balances[c.FullName] = cur.Balance
		}
		return got
	}

	first := runBatch([]int{0, 1, 2})
	for _, order := range [][]int{{2, 1, 0}, {1, 0, 2}, {1, 2, 0}} {
		other := runBatch(order)
		for name, want := range first.earnings {
			if !other.earnings[name].Equal(want) {
				t.Fatalf("order %v: %s total_earnings = %s, want %s", order, name, other.earnings[name], want)
			}
		}
		for name, want := range first.balances {
			if !other.balances[name].Equal(want) {
				t.Fatalf("order %v: %s balance = %s, want %s", order, name, other.balances[name], want)
			}
		}
	}
}

func TestAdminDelete_LastAdminGuard(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	admins := repository.NewAdminRepository(pool)
	first := &domain.Admin{Username: "first", PasswordHash: "x", IsSuperAdmin: true}
	if err := admins.Create(ctx, first); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	if err := admins.Delete(ctx, first.ID); err != repository.ErrLastAdmin {
		t.Fatalf("got %v, want ErrLastAdmin", err)
	}

	second := &domain.Admin{Username: "second", PasswordHash: "x"}
	if err := admins.Create(ctx, second); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if err := admins.Delete(ctx, second.ID); err != nil {
		t.Fatalf("delete with two admins: %v", err)
	}
	if n, err := admins.Count(ctx); err != nil || n != 1 {
		t.Fatalf("count = %d, %v; want 1", n, err)
	}
}

func TestWithdrawalFlow(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	couriers := repository.NewCourierRepository(pool)
	admins := repository.NewAdminRepository(pool)
	botContent := repository.NewBotContentRepository(pool, nil)

	admin := &domain.Admin{Username: "boss", PasswordHash: "x"}
	if err := admins.Create(ctx, admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	courier := &domain.Courier{FullName: "Ivan Petrov", Phone: "+79001234567", City: "Moscow"}
	if err := couriers.Create(ctx, courier); err != nil {
		t.Fatalf("create courier: %v", err)
	}
	if _, err := pool.Exec(ctx, `UPDATE couriers SET balance = 1000 WHERE id = $1`, courier.ID); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	withdrawals := service.NewWithdrawalService(pool, botContent)

	w, err := withdrawals.Create(ctx, courier.ID, mustDec(t, "600"), "+79001234567", "Best Bank")
	if err != nil {
		t.Fatalf("create withdrawal: %v", err)
	}

	// balance is held at request time
	got, _ := couriers.GetByID(ctx, courier.ID)
	if !got.Balance.Equal(mustDec(t, "400")) {
		t.Fatalf("balance after request = %s, want 400", got.Balance)
	}

	// not enough left for a second large request
	if _, err := withdrawals.Create(ctx, courier.ID, mustDec(t, "500"), "+79001234567", "Best Bank"); err != service.ErrInsufficientFunds {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}

	if _, err := withdrawals.Transition(ctx, w.ID, domain.WithdrawalStatusApproved, admin.ID, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := withdrawals.Transition(ctx, w.ID, domain.WithdrawalStatusRejected, admin.ID, "bank bounce"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// rejection returns the held funds
	got, _ = couriers.GetByID(ctx, courier.ID)
	if !got.Balance.Equal(mustDec(t, "1000")) {
		t.Fatalf("balance after rejection = %s, want 1000", got.Balance)
	}

	// rejected is terminal
	if _, err := withdrawals.Transition(ctx, w.ID, domain.WithdrawalStatusPaid, admin.ID, ""); err != service.ErrInvalidTransition {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}
}
