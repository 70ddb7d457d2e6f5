package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"courier_platform/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

type RegisterCourierRequest struct {
	FullName     string `json:"full_name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	City         string `json:"city" binding:"required"`
	Email        string `json:"email"`
	ReferralCode string `json:"referral_code"`
}

// RegisterCourier creates a courier profile, attaching the referrer when a
// valid referral code is supplied. A bad code does not fail registration.
func (h *Handler) RegisterCourier(c *gin.Context) {
	var req RegisterCourierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	courier := &domain.Courier{
		FullName: req.FullName,
		Phone:    req.Phone,
		City:     req.City,
		Email:    req.Email,
	}

	if req.ReferralCode != "" {
		referrer, err := h.CourierRepo.GetByReferralCode(c.Request.Context(), req.ReferralCode)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if referrer != nil {
			courier.InvitedBy = &referrer.ID
		}
	}

	if err := h.CourierRepo.Create(c.Request.Context(), courier); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "could not create courier"})
		return
	}

	c.JSON(http.StatusCreated, courier)
}

// GetCourier returns a courier profile.
func (h *Handler) GetCourier(c *gin.Context) {
	courierID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad courier id"})
		return
	}

	courier, err := h.CourierRepo.GetByID(c.Request.Context(), courierID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if courier == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "courier not found"})
		return
	}
	c.JSON(http.StatusOK, courier)
}

type AttachReferralRequest struct {
	ReferralCode string `json:"referral_code" binding:"required"`
}

// AttachReferral binds a referrer to a courier after registration. The
// binding is attach-once; an existing referrer is never overwritten.
func (h *Handler) AttachReferral(c *gin.Context) {
	courierID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad courier id"})
		return
	}

	var req AttachReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	referrer, err := h.CourierRepo.GetByReferralCode(c.Request.Context(), req.ReferralCode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if referrer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "referral code not found"})
		return
	}

	if err := h.CourierRepo.SetInvitedBy(c.Request.Context(), courierID, referrer.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "attached"})
}

// CourierDashboard returns the per-courier projection: balance, referral
// counts and sums, self-bonus progress.
func (h *Handler) CourierDashboard(c *gin.Context) {
	courierID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad courier id"})
		return
	}

	dashboard, err := h.Stats.Dashboard(c.Request.Context(), courierID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "courier not found"})
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// ArchiveCourier soft-archives a courier profile.
func (h *Handler) ArchiveCourier(c *gin.Context) {
	courierID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad courier id"})
		return
	}

	if err := h.CourierRepo.Archive(c.Request.Context(), courierID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}

// RestoreCourier reverses a soft archive while the restore window is open.
func (h *Handler) RestoreCourier(c *gin.Context) {
	courierID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad courier id"})
		return
	}

	if err := h.CourierRepo.Restore(c.Request.Context(), courierID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusConflict, gin.H{"error": "restore window closed or courier not archived"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "restored"})
}
