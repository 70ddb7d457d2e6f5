package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"courier_platform/internal/domain"
	"courier_platform/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ListPayments returns earnings filtered by courier and/or period.
func (h *Handler) ListPayments(c *gin.Context) {
	var f repository.EarningFilter

	if v := c.Query("courier_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad courier_id"})
			return
		}
		f.CourierID = &id
	}
	if v := c.Query("period_start"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad period_start"})
			return
		}
		f.PeriodStart = &t
	}
	if v := c.Query("period_end"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad period_end"})
			return
		}
		f.PeriodEnd = &t
	}

	earnings, err := h.Stats.Payments(c.Request.Context(), f, 500)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": earnings})
}

// ListPeriods returns distinct uploaded CSV periods.
func (h *Handler) ListPeriods(c *gin.Context) {
	periods, err := h.Stats.Periods(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

// CourierDistributions lists distributions pointing at a courier.
func (h *Handler) CourierDistributions(c *gin.Context) {
	courierID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad courier id"})
		return
	}

	dists, err := h.Stats.DistributionsForCourier(c.Request.Context(), courierID, 500)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"distributions": dists})
}

// EarningDistributions shows how one earning was split.
func (h *Handler) EarningDistributions(c *gin.Context) {
	earningID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad earning id"})
		return
	}

	dists, err := h.Stats.DistributionsForEarning(c.Request.Context(), earningID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"distributions": dists})
}

// SettleDistribution marks a pending distribution as paid out. Courier and
// referrer slices are settled through the withdrawal workflow too; this is
// the direct path for admin shares and manual payouts.
func (h *Handler) SettleDistribution(c *gin.Context) {
	distID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad distribution id"})
		return
	}

	if err := h.Distributions.MarkPaid(c.Request.Context(), distID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusConflict, gin.H{"error": "distribution not found or already paid"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paid"})
}

// AdminFinances returns the platform-wide financial overview.
func (h *Handler) AdminFinances(c *gin.Context) {
	overview, err := h.Stats.Overview(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, overview)
}

type BindExternalIDRequest struct {
	ExternalID string `json:"external_id" binding:"required"`
}

// BindExternalID is the manual admin path to (re)bind a partner external id.
func (h *Handler) BindExternalID(c *gin.Context) {
	courierID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad courier id"})
		return
	}

	var req BindExternalIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	err = h.CourierRepo.BindExternalID(c.Request.Context(), courierID, req.ExternalID)
	if err != nil {
		if errors.Is(err, repository.ErrExternalIDTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "bound"})
}

type DeclareAdSpendRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// DeclareAdSpend records the acting admin's current advertising spend.
func (h *Handler) DeclareAdSpend(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req DeclareAdSpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if req.Amount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must not be negative"})
		return
	}

	if err := h.AdminRepo.DeclareAdSpend(c.Request.Context(), adminID, req.Amount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "declared"})
}

// GetBotContent returns the policy configuration row.
func (h *Handler) GetBotContent(c *gin.Context) {
	cfg, err := h.BotContent.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// UpdateBotContent replaces the policy configuration row.
func (h *Handler) UpdateBotContent(c *gin.Context) {
	var cfg domain.BotContent
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if cfg.SelfBonusOrders <= 0 || !cfg.SelfBonusAmount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "self bonus settings must be positive"})
		return
	}

	if err := h.BotContent.Update(c.Request.Context(), &cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, &cfg)
}
