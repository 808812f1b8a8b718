package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hogarlabs/hogar-api/middleware"
	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
	"github.com/hogarlabs/hogar-api/utils"
)

type UserHandler struct {
	GW store.Gateway
}

func (h *UserHandler) loadRecord(c *gin.Context) (string, models.UserRecord, bool) {
	userID := middleware.GetUserID(c)

	doc, err := h.GW.Get(c.Request.Context(), models.UsersCol, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return "", models.UserRecord{}, false
	}
	var rec models.UserRecord
	if err := doc.Decode(&rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return "", models.UserRecord{}, false
	}
	return userID, rec, true
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec.ToUser(userID))
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	err := h.GW.Merge(c.Request.Context(), models.UsersCol, userID, store.Doc{
		"name":      req.Name,
		"updatedAt": time.Now().UTC(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	if !utils.CheckPassword(req.CurrentPassword, rec.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	err = h.GW.Merge(c.Request.Context(), models.UsersCol, userID, store.Doc{
		"passwordHash": hash,
		"updatedAt":    time.Now().UTC(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}

// Setup2FA generates a TOTP secret. 2FA stays disabled until the user
// proves possession via Verify2FA.
func (h *UserHandler) Setup2FA(c *gin.Context) {
	userID, rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	if rec.TOTPEnabled {
		c.JSON(http.StatusConflict, gin.H{"error": "2FA is already enabled"})
		return
	}

	secret, url, err := utils.GenerateTOTPSecret(rec.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate 2FA secret"})
		return
	}
	err = h.GW.Merge(c.Request.Context(), models.UsersCol, userID, store.Doc{
		"totpSecret": secret,
		"updatedAt":  time.Now().UTC(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store 2FA secret"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"secret":  secret,
		"otp_url": url,
	})
}

func (h *UserHandler) Verify2FA(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	if rec.TOTPSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "2FA setup not started"})
		return
	}

	valid, err := utils.VerifyTOTP(rec.TOTPSecret, req.Code)
	if err != nil || !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid 2FA code"})
		return
	}

	err = h.GW.Merge(c.Request.Context(), models.UsersCol, userID, store.Doc{
		"totpEnabled": true,
		"updatedAt":   time.Now().UTC(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enable 2FA"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "2FA enabled"})
}

func (h *UserHandler) Disable2FA(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, rec, ok := h.loadRecord(c)
	if !ok {
		return
	}
	if !utils.CheckPassword(req.Password, rec.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	err := h.GW.Merge(c.Request.Context(), models.UsersCol, userID, store.Doc{
		"totpEnabled": false,
		"totpSecret":  "",
		"updatedAt":   time.Now().UTC(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disable 2FA"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "2FA disabled"})
}
