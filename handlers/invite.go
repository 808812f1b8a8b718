package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hogarlabs/hogar-api/middleware"
	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/services"
	"github.com/hogarlabs/hogar-api/store"
	"github.com/hogarlabs/hogar-api/utils"
)

type InviteHandler struct {
	GW      store.Gateway
	Invites *services.InviteService
	Members *services.MemberService
}

func (h *InviteHandler) Generate(c *gin.Context) {
	// The body is optional; an absent or invalid TTL falls back to the
	// default below the service.
	var req models.GenerateInviteRequest
	_ = c.ShouldBindJSON(&req)

	projectID := c.Param("id")
	uid := middleware.GetUserID(c)

	inv, err := h.Invites.Generate(c.Request.Context(), projectID, uid, req.TTLDays)
	if errors.Is(err, services.ErrNotOwner) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can create invites"})
		return
	}
	if errors.Is(err, services.ErrCodeAllocation) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not allocate an invite code, try again"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invite"})
		return
	}

	utils.LogInviteAction("generate", inv.Code, uid)
	c.JSON(http.StatusCreated, inv)
}

func (h *InviteHandler) List(c *gin.Context) {
	projectID := c.Param("id")
	uid := middleware.GetUserID(c)

	owner, err := h.Members.IsOwner(c.Request.Context(), projectID, uid)
	if err != nil || !owner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can list invites"})
		return
	}

	invites, err := h.Invites.ListPending(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list invites"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

func (h *InviteHandler) Accept(c *gin.Context) {
	var req models.AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uid := middleware.GetUserID(c)
	projectID, err := h.Invites.Accept(c.Request.Context(), req.Code, uid, callerName(c, h.GW))

	switch {
	case errors.Is(err, services.ErrInviteNotFound), errors.Is(err, services.ErrInviteInvalid):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid invite code"})
	case errors.Is(err, services.ErrInviteUsed):
		c.JSON(http.StatusConflict, gin.H{"error": "Invite was already used"})
	case errors.Is(err, services.ErrInviteExpired):
		c.JSON(http.StatusGone, gin.H{"error": "Invite has expired"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept invite"})
	default:
		utils.LogInviteAction("accept", req.Code, uid)
		c.JSON(http.StatusOK, gin.H{"project_id": projectID})
	}
}

func (h *InviteHandler) Revoke(c *gin.Context) {
	code := c.Param("code")
	uid := middleware.GetUserID(c)

	err := h.Invites.Revoke(c.Request.Context(), code, uid)
	switch {
	case errors.Is(err, services.ErrInviteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found"})
	case errors.Is(err, services.ErrInviteNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "Invite is not pending"})
	case errors.Is(err, services.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to revoke this invite"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke invite"})
	default:
		utils.LogInviteAction("revoke", code, uid)
		c.JSON(http.StatusOK, gin.H{"message": "Invite revoked"})
	}
}
