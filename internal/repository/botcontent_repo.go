package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"courier_platform/internal/domain"
	"courier_platform/internal/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

const botContentCacheKey = "botcontent:v1"
const botContentCacheTTL = 5 * time.Minute

// BotContentRepository serves the single policy configuration row. Reads go
// through Redis when available; writes invalidate the cache.
type BotContentRepository struct {
	db    *pgxpool.Pool
	cache *redis.Client
}

func NewBotContentRepository(db *pgxpool.Pool, cache *redis.Client) *BotContentRepository {
	return &BotContentRepository{db: db, cache: cache}
}

// Get returns the active configuration, falling back to defaults when the
// row has never been written.
func (r *BotContentRepository) Get(ctx context.Context) (*domain.BotContent, error) {
	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, botContentCacheKey).Bytes(); err == nil {
			var bc domain.BotContent
			if json.Unmarshal(raw, &bc) == nil {
				return &bc, nil
			}
		}
	}

	var bc domain.BotContent
	err := r.db.QueryRow(ctx, `
		SELECT self_bonus_amount, self_bonus_orders, referral_activation_orders, min_withdrawal_amount
		FROM bot_content
		WHERE id = 1
	`).Scan(&bc.SelfBonusAmount, &bc.SelfBonusOrders, &bc.ReferralActivationOrders, &bc.MinWithdrawalAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DefaultBotContent(), nil
		}
		return nil, err
	}

	if r.cache != nil {
		if raw, err := json.Marshal(&bc); err == nil {
			if err := r.cache.Set(ctx, botContentCacheKey, raw, botContentCacheTTL).Err(); err != nil {
				logger.Warn("bot content cache set failed", "error", err)
			}
		}
	}

	return &bc, nil
}

// Update replaces the configuration row and drops the cached copy.
func (r *BotContentRepository) Update(ctx context.Context, bc *domain.BotContent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bot_content (id, self_bonus_amount, self_bonus_orders, referral_activation_orders, min_withdrawal_amount)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id)
		DO UPDATE SET self_bonus_amount = $1, self_bonus_orders = $2, referral_activation_orders = $3, min_withdrawal_amount = $4
	`, bc.SelfBonusAmount, bc.SelfBonusOrders, bc.ReferralActivationOrders, bc.MinWithdrawalAmount)
	if err != nil {
		return err
	}

	if r.cache != nil {
		if err := r.cache.Del(ctx, botContentCacheKey).Err(); err != nil {
			logger.Warn("bot content cache invalidation failed", "error", err)
		}
	}
	return nil
}
