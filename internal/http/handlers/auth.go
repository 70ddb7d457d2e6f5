package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"courier_platform/internal/domain"
	"courier_platform/internal/repository"
	"courier_platform/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an admin and issues a session token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	admin, err := h.AdminRepo.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if admin == nil || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := service.GenerateJWT(admin.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "admin": admin})
}

type CreateAdminRequest struct {
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required,min=8"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

// CreateAdmin lets a super-admin add another admin.
func (h *Handler) CreateAdmin(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	actor, err := h.AdminRepo.GetByID(c.Request.Context(), adminID)
	if err != nil || actor == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if !actor.IsSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "super admin required"})
		return
	}

	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}

	admin := &domain.Admin{
		Username:     req.Username,
		PasswordHash: string(hash),
		IsSuperAdmin: req.IsSuperAdmin,
	}
	if err := h.AdminRepo.Create(c.Request.Context(), admin); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username taken"})
		return
	}

	c.JSON(http.StatusCreated, admin)
}

// ListAdmins returns all admins.
func (h *Handler) ListAdmins(c *gin.Context) {
	admins, err := h.AdminRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

// DeleteAdmin removes an admin; the last admin can never be deleted.
func (h *Handler) DeleteAdmin(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	actor, err := h.AdminRepo.GetByID(c.Request.Context(), adminID)
	if err != nil || actor == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if !actor.IsSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "super admin required"})
		return
	}

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad admin id"})
		return
	}

	if err := h.AdminRepo.Delete(c.Request.Context(), targetID); err != nil {
		if errors.Is(err, repository.ErrLastAdmin) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
