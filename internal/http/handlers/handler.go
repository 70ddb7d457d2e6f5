package handlers

import (
	"courier_platform/internal/ingest"
	"courier_platform/internal/repository"
	"courier_platform/internal/service"
	"courier_platform/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

type Handler struct {
	DB            *pgxpool.Pool
	CourierRepo   *repository.CourierRepository
	AdminRepo     *repository.AdminRepository
	Distributions *repository.DistributionRepository
	BotContent    *repository.BotContentRepository
	Orchestrator  *ingest.Orchestrator
	Withdrawals   *service.WithdrawalService
	Stats         *service.StatsService
	ProgressHub   *ws.ProgressHub
}

func NewHandler(db *pgxpool.Pool, cache *redis.Client) *Handler {
	botContent := repository.NewBotContentRepository(db, cache)
	hub := ws.NewProgressHub()

	orch := ingest.NewOrchestrator(db, botContent)
	orch.Progress = hub.Broadcast

	return &Handler{
		DB:            db,
		CourierRepo:   repository.NewCourierRepository(db),
		AdminRepo:     repository.NewAdminRepository(db),
		Distributions: repository.NewDistributionRepository(db),
		BotContent:    botContent,
		Orchestrator:  orch,
		Withdrawals:   service.NewWithdrawalService(db, botContent),
		Stats:         service.NewStatsService(db, botContent),
		ProgressHub:   hub,
	}
}

// getAdminID extracts the authenticated admin id from the gin context.
func getAdminID(c *gin.Context) (int64, bool) {
	v, ok := c.Get("admin_id")
	if !ok {
		return 0, false
	}
	switch id := v.(type) {
	case int64:
		return id, true
	case float64:
		return int64(id), true
	default:
		return 0, false
	}
}
