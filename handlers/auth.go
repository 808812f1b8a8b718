package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
	"github.com/hogarlabs/hogar-api/utils"
)

const sessionTTL = 7 * 24 * time.Hour

type AuthHandler struct {
	GW store.Gateway
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := h.GW.Query(c.Request.Context(), store.Query{
		Collection: models.UsersCol,
		Filters:    []store.Filter{{Field: "email", Value: email}},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if len(existing) > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	now := time.Now().UTC()
	userID := uuid.New().String()
	rec := models.UserRecord{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	data, err := store.ToDoc(rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	if err := h.GW.Create(c.Request.Context(), models.UsersCol, userID, data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	h.issueTokens(c, http.StatusCreated, userID, rec)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	docs, err := h.GW.Query(c.Request.Context(), store.Query{
		Collection: models.UsersCol,
		Filters:    []store.Filter{{Field: "email", Value: email}},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if len(docs) == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	var rec models.UserRecord
	if err := docs[0].Decode(&rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	userID := docs[0].ID

	if !utils.CheckPassword(req.Password, rec.PasswordHash) {
		utils.LogAuthAction("login", email, false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if rec.TOTPEnabled {
		if req.TOTPCode == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "2FA code required", "requires_2fa": true})
			return
		}
		valid, err := utils.VerifyTOTP(rec.TOTPSecret, req.TOTPCode)
		if err != nil || !valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid 2FA code"})
			return
		}
	}

	utils.LogAuthAction("login", email, true)
	h.issueTokens(c, http.StatusOK, userID, rec)
}

// Refresh rotates the session: the presented refresh token is consumed
// and a fresh one is returned with a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.GW.Get(c.Request.Context(), models.SessionsCol, req.RefreshToken)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	var sess models.Session
	if err := doc.Decode(&sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = h.GW.Delete(c.Request.Context(), models.SessionsCol, req.RefreshToken)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token expired"})
		return
	}

	userDoc, err := h.GW.Get(c.Request.Context(), models.UsersCol, sess.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}
	var rec models.UserRecord
	if err := userDoc.Decode(&rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	_ = h.GW.Delete(c.Request.Context(), models.SessionsCol, req.RefreshToken)
	h.issueTokens(c, http.StatusOK, sess.UserID, rec)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.GW.Delete(c.Request.Context(), models.SessionsCol, req.RefreshToken); err != nil && !errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) issueTokens(c *gin.Context, status int, userID string, rec models.UserRecord) {
	accessToken, err := utils.GenerateAccessToken(userID, rec.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	refreshToken, err := utils.GenerateRefreshToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}

	now := time.Now().UTC()
	sess, err := store.ToDoc(models.Session{
		UserID:    userID,
		ExpiresAt: now.Add(sessionTTL),
		CreatedAt: now,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	if err := h.GW.Create(c.Request.Context(), models.SessionsCol, refreshToken, sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(status, models.AuthResponse{
		User:         rec.ToUser(userID),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}
