package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"courier_platform/internal/domain"
	"courier_platform/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreateWithdrawalRequest struct {
	CourierID   int64           `json:"courier_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	SBPPhone    string          `json:"sbp_phone" binding:"required"`
	SBPBankName string          `json:"sbp_bank_name" binding:"required"`
}

// CreateWithdrawal files a payout request and holds the amount.
func (h *Handler) CreateWithdrawal(c *gin.Context) {
	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	w, err := h.Withdrawals.Create(c.Request.Context(), req.CourierID, req.Amount, req.SBPPhone, req.SBPBankName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrMissingSBPDetails),
			errors.Is(err, service.ErrBelowMinWithdrawal):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInsufficientFunds):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrCourierNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		}
		return
	}

	c.JSON(http.StatusCreated, w)
}

type TransitionWithdrawalRequest struct {
	Status  domain.WithdrawalStatus `json:"status" binding:"required"`
	Comment string                  `json:"comment"`
}

// TransitionWithdrawal moves a request through the approval state machine.
func (h *Handler) TransitionWithdrawal(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request id"})
		return
	}

	var req TransitionWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	w, err := h.Withdrawals.Transition(c.Request.Context(), requestID, req.Status, adminID, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWithdrawalNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		}
		return
	}

	c.JSON(http.StatusOK, w)
}

// GetWithdrawal returns one request by id.
func (h *Handler) GetWithdrawal(c *gin.Context) {
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request id"})
		return
	}

	w, err := h.Withdrawals.Get(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, service.ErrWithdrawalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, w)
}

// ListWithdrawals returns either a courier's requests or the admin queue for
// one status, depending on the query parameters.
func (h *Handler) ListWithdrawals(c *gin.Context) {
	if v := c.Query("courier_id"); v != "" {
		courierID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad courier_id"})
			return
		}
		ws, err := h.Withdrawals.ListByCourier(c.Request.Context(), courierID, 100)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawals": ws})
		return
	}

	status := domain.WithdrawalStatus(c.DefaultQuery("status", string(domain.WithdrawalStatusPending)))
	switch status {
	case domain.WithdrawalStatusPending, domain.WithdrawalStatusApproved,
		domain.WithdrawalStatusPaid, domain.WithdrawalStatusRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad status"})
		return
	}

	ws, err := h.Withdrawals.ListByStatus(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": ws})
}
