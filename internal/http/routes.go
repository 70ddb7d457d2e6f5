package http

import (
	"courier_platform/internal/config"
	"courier_platform/internal/http/handlers"
	"courier_platform/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

// RegisterRoutes wires all HTTP endpoints. The returned handler gives main a
// place to attach the withdrawal notification callback.
func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cache *redis.Client, cfg *config.Config, version string) *handlers.Handler {
	h := handlers.NewHandler(db, cache)
	healthHandler := handlers.NewHealthHandler(db, version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	api := r.Group("/api/v1")
	api.Use(middleware.Metrics())
	api.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))

	// Auth
	api.POST("/auth/login", middleware.RedisRateLimit(cfg.AuthRateLimit, cfg.AuthRateWindow), h.Login)

	// Courier self-service
	api.POST("/couriers", h.RegisterCourier)
	api.GET("/couriers/:id", h.GetCourier)
	api.GET("/couriers/:id/dashboard", h.CourierDashboard)
	api.GET("/couriers/:id/distributions", h.CourierDistributions)
	api.POST("/couriers/:id/referral", h.AttachReferral)
	api.POST("/withdrawals", h.CreateWithdrawal)
	api.GET("/withdrawals", h.ListWithdrawals)
	api.GET("/withdrawals/:id", h.GetWithdrawal)
	api.GET("/content", h.GetBotContent)

	// Admin area
	admin := api.Group("/admin")
	admin.Use(middleware.AdminJWT())
	{
		admin.POST("/admins", h.CreateAdmin)
		admin.GET("/admins", h.ListAdmins)
		admin.DELETE("/admins/:id", h.DeleteAdmin)
		admin.POST("/ad-spend", h.DeclareAdSpend)
		admin.PUT("/content", h.UpdateBotContent)

		admin.POST("/ingest/csv", h.IngestCSV)
		admin.GET("/payments", h.ListPayments)
		admin.GET("/payments/periods", h.ListPeriods)
		admin.GET("/earnings/:id/distributions", h.EarningDistributions)
		admin.POST("/distributions/:id/settle", h.SettleDistribution)
		admin.GET("/finances", h.AdminFinances)

		admin.POST("/couriers/:id/bind-external-id", h.BindExternalID)
		admin.POST("/couriers/:id/archive", h.ArchiveCourier)
		admin.POST("/couriers/:id/restore", h.RestoreCourier)

		admin.PATCH("/withdrawals/:id", h.TransitionWithdrawal)
	}

	// WebSocket stream of ingestion batch progress
	r.GET("/ws/ingest-progress", h.IngestProgressWS)

	return h
}
