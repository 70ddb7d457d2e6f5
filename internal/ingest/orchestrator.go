package ingest

import (
	"context"
	"fmt"
	"time"

	"courier_platform/internal/domain"
	"courier_platform/internal/logger"
	"courier_platform/internal/repository"
	"courier_platform/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RowError describes one failed row of a batch.
type RowError struct {
	Line       int    `json:"line"`
	ExternalID string `json:"external_id"`
	Message    string `json:"message"`
}

// UnmatchedRow is an operator-actionable row the resolver could not map to a
// courier, with scored candidates.
type UnmatchedRow struct {
	Line       int         `json:"line"`
	ExternalID string      `json:"external_id"`
	FullName   string      `json:"full_name"`
	City       string      `json:"city"`
	Phone      string      `json:"phone"`
	Candidates []Candidate `json:"candidates"`
}

// Report is the batch summary returned to the uploader.
type Report struct {
	BatchID        string          `json:"batch_id"`
	Filename       string          `json:"filename"`
	Processed      int             `json:"processed"`
	Skipped        int             `json:"skipped"`
	Duplicates     int             `json:"duplicates"`
	Errors         []RowError      `json:"errors"`
	Unmatched      []UnmatchedRow  `json:"unmatched"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalOrders    int             `json:"total_orders"`
	EarningsClosed int64           `json:"earnings_closed"`
}

// ProgressEvent is emitted after every row so a connected admin UI can watch
// the batch advance.
type ProgressEvent struct {
	BatchID    string `json:"batch_id"`
	Filename   string `json:"filename"`
	Row        int    `json:"row"`
	Total      int    `json:"total"`
	Processed  int    `json:"processed"`
	Skipped    int    `json:"skipped"`
	Duplicates int    `json:"duplicates"`
	Unmatched  int    `json:"unmatched"`
	Done       bool   `json:"done"`
}

// Orchestrator runs resolve → delta → policy → ledger per CSV row, each row
// in its own transaction so one bad row never aborts the batch.
type Orchestrator struct {
	db            *pgxpool.Pool
	couriers      *repository.CourierRepository
	earnings      *repository.EarningRepository
	selfBonus     *repository.SelfBonusRepository
	admins        *repository.AdminRepository
	distributions *repository.DistributionRepository
	botContent    *repository.BotContentRepository
	resolver      *Resolver
	ledger        *service.LedgerService

	// Progress, when set, receives an event per row plus a final done event.
	Progress func(ProgressEvent)
}

func NewOrchestrator(db *pgxpool.Pool, botContent *repository.BotContentRepository) *Orchestrator {
	couriers := repository.NewCourierRepository(db)
	return &Orchestrator{
		db:            db,
		couriers:      couriers,
		earnings:      repository.NewEarningRepository(db),
		selfBonus:     repository.NewSelfBonusRepository(db),
		admins:        repository.NewAdminRepository(db),
		distributions: repository.NewDistributionRepository(db),
		botContent:    botContent,
		resolver:      NewResolver(couriers),
		ledger:        service.NewLedgerService(db),
	}
}

// IngestCSV processes a parsed batch. Partial success is the norm: rows that
// fail are reported in the summary and the rest of the batch continues.
func (o *Orchestrator) IngestCSV(ctx context.Context, rows []Row, filename string) (*Report, error) {
	report := &Report{
		BatchID:     uuid.NewString(),
		Filename:    filename,
		TotalAmount: decimal.Zero,
	}

	var periodStart, periodEnd *time.Time
	if start, end, err := ParsePeriod(filename); err == nil {
		periodStart, periodEnd = &start, &end
	} else {
		logger.Warn("csv filename has no period", "filename", filename)
	}

	cfg, err := o.botContent.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load policy config: %w", err)
	}

	log := logger.With("batch_id", report.BatchID, "filename", filename)
	log.Info("ingestion started", "rows", len(rows))

	for i, row := range rows {
		o.processRow(ctx, i+1, row, periodStart, periodEnd, filename, cfg, report)
		o.emitProgress(report, i+1, len(rows), false)
	}

	closed, err := o.earnings.MarkProcessed(ctx)
	if err != nil {
		return report, fmt.Errorf("mark earnings processed: %w", err)
	}
	report.EarningsClosed = closed

	if err := o.couriers.RecomputeAggregates(ctx); err != nil {
		return report, fmt.Errorf("recompute aggregates: %w", err)
	}

	o.emitProgress(report, len(rows), len(rows), true)
	log.Info("ingestion finished",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"duplicates", report.Duplicates,
		"unmatched", len(report.Unmatched),
		"errors", len(report.Errors),
		"total_amount", report.TotalAmount,
	)
	return report, nil
}

func (o *Orchestrator) processRow(ctx context.Context, line int, row Row, periodStart, periodEnd *time.Time, filename string, cfg *domain.BotContent, report *Report) {
	if row.ExternalID == "" || row.CreatorUsername == "" {
		report.Skipped++
		return
	}

	resolution, err := o.resolver.Resolve(ctx, row)
	if err != nil {
		report.Errors = append(report.Errors, RowError{Line: line, ExternalID: row.ExternalID, Message: err.Error()})
		return
	}
	if !resolution.Resolved() {
		report.Unmatched = append(report.Unmatched, UnmatchedRow{
			Line:       line,
			ExternalID: row.ExternalID,
			FullName:   row.FullName(),
			City:       row.TargetCity,
			Phone:      row.Phone,
			Candidates: resolution.Candidates,
		})
		return
	}
	courier := resolution.Courier

	// ad spend snapshot for this row's policy computation
	adminSpends, err := o.admins.AdSpendMap(ctx)
	if err != nil {
		report.Errors = append(report.Errors, RowError{Line: line, ExternalID: row.ExternalID, Message: err.Error()})
		return
	}
	adminCount, err := o.admins.Count(ctx)
	if err != nil {
		report.Errors = append(report.Errors, RowError{Line: line, ExternalID: row.ExternalID, Message: err.Error()})
		return
	}

	delta, err := o.applyRow(ctx, row, courier, periodStart, periodEnd, filename, cfg, adminSpends, adminCount)
	if err != nil {
		if err == errDuplicateRow {
			report.Duplicates++
			return
		}
		report.Errors = append(report.Errors, RowError{Line: line, ExternalID: row.ExternalID, Message: err.Error()})
		return
	}

	report.Processed++
	report.TotalAmount = report.TotalAmount.Add(delta.Amount)
	report.TotalOrders += delta.Orders
}

var errDuplicateRow = fmt.Errorf("duplicate row")

// applyRow runs steps 4-9 of the per-row protocol inside one transaction.
func (o *Orchestrator) applyRow(ctx context.Context, row Row, courier *domain.Courier, periodStart, periodEnd *time.Time, filename string, cfg *domain.BotContent, adminSpends []domain.AdminSpend, adminCount int) (Delta, error) {
	tx, err := o.db.Begin(ctx)
	if err != nil {
		return Delta{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	snap, err := o.earnings.GetSnapshotWithTx(ctx, tx, courier.ID, row.ExternalID)
	if err != nil {
		return Delta{}, err
	}

	delta, duplicate := ComputeDelta(snap, row.Reward, row.OrderNumber)
	if duplicate {
		return Delta{}, errDuplicateRow
	}

	if err := o.earnings.UpsertSnapshotWithTx(ctx, tx, courier.ID, row.ExternalID, row.Reward, row.OrderNumber); err != nil {
		return Delta{}, err
	}

	if err := o.selfBonus.EnsureWithTx(ctx, tx, courier.ID); err != nil {
		return Delta{}, err
	}

	// one live pending earning per courier per batch: a later row for the
	// same courier folds into it and the distributions are rebuilt over the
	// accumulated amount, so final totals do not depend on row order
	var earningID int64
	earningAmount := delta.Amount
	pending, err := o.earnings.GetPendingByCourierWithTx(ctx, tx, courier.ID)
	if err != nil {
		return Delta{}, err
	}
	if pending != nil {
		if err := o.ledger.PurgeDistributionsWithTx(ctx, tx, pending.ID); err != nil {
			return Delta{}, err
		}
		earningAmount = pending.TotalAmount.Add(delta.Amount)
		earningOrders := pending.OrdersCount + delta.Orders
		if err := o.earnings.UpdateDeltaWithTx(ctx, tx, pending.ID, earningOrders, earningAmount, row.ExternalID); err != nil {
			return Delta{}, err
		}
		earningID = pending.ID
	} else {
		earning := &domain.Earning{
			CourierID:   courier.ID,
			ExternalID:  row.ExternalID,
			OrdersCount: delta.Orders,
			TotalAmount: delta.Amount,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			CSVFilename: filename,
		}
		if err := o.earnings.InsertWithTx(ctx, tx, earning); err != nil {
			return Delta{}, err
		}
		earningID = earning.ID
	}

	tracking, err := o.selfBonus.GetForUpdateWithTx(ctx, tx, courier.ID)
	if err != nil {
		return Delta{}, err
	}
	if tracking == nil {
		return Delta{}, service.ErrCourierNotFound
	}

	plans, err := ComputeSplit(PolicyInput{
		DeltaAmount:        earningAmount,
		CourierID:          courier.ID,
		ReferrerID:         courier.InvitedBy,
		SelfBonusCompleted: tracking.IsCompleted,
		SelfBonusLimit:     cfg.SelfBonusAmount,
		SelfBonusEarned:    tracking.BonusEarned,
		AdminSpends:        adminSpends,
		AdminCount:         adminCount,
	})
	if err != nil {
		return Delta{}, err
	}

	descriptors := make([]domain.Distribution, 0, len(plans))
	for _, p := range plans {
		descriptors = append(descriptors, domain.Distribution{
			RecipientType: p.RecipientType,
			RecipientID:   p.RecipientID,
			Amount:        p.Amount,
			Percentage:    p.Percentage,
			Description:   p.Description,
		})
	}
	if _, err := o.ledger.InsertDistributionsWithTx(ctx, tx, earningID, descriptors); err != nil {
		return Delta{}, err
	}

	// conservation: distributions must sum to the earning amount exactly
	sum, err := o.distributions.SumForEarningWithTx(ctx, tx, earningID)
	if err != nil {
		return Delta{}, err
	}
	if !sum.Equal(earningAmount) {
		return Delta{}, fmt.Errorf("distributions sum %s does not match earning amount %s", sum, earningAmount)
	}

	if err := o.ledger.AdvanceSelfBonusWithTx(ctx, tx, courier.ID, delta.Orders, cfg); err != nil {
		return Delta{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Delta{}, err
	}
	return delta, nil
}

func (o *Orchestrator) emitProgress(report *Report, row, total int, done bool) {
	if o.Progress == nil {
		return
	}
	o.Progress(ProgressEvent{
		BatchID:    report.BatchID,
		Filename:   report.Filename,
		Row:        row,
		Total:      total,
		Processed:  report.Processed,
		Skipped:    report.Skipped,
		Duplicates: report.Duplicates,
		Unmatched:  len(report.Unmatched),
		Done:       done,
	})
}
