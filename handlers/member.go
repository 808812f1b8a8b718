package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hogarlabs/hogar-api/middleware"
	"github.com/hogarlabs/hogar-api/services"
	"github.com/hogarlabs/hogar-api/store"
	"github.com/hogarlabs/hogar-api/utils"
)

type MemberHandler struct {
	GW       store.Gateway
	Projects *services.ProjectService
	Members  *services.MemberService
}

func (h *MemberHandler) List(c *gin.Context) {
	projectID := c.Param("id")
	uid := middleware.GetUserID(c)

	if err := h.Projects.RequireMember(c.Request.Context(), projectID, uid); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this project"})
		return
	}

	members, err := h.Members.List(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list members"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *MemberHandler) Remove(c *gin.Context) {
	projectID := c.Param("id")
	memberUID := c.Param("uid")
	uid := middleware.GetUserID(c)

	err := h.Members.Remove(c.Request.Context(), projectID, uid, memberUID)
	if errors.Is(err, services.ErrNotOwner) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can remove members"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	utils.LogProjectAction("remove_member", projectID, uid)
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// Repair fills in whatever is missing from the caller's own membership
// record without overwriting fields that are already set.
func (h *MemberHandler) Repair(c *gin.Context) {
	projectID := c.Param("id")
	uid := middleware.GetUserID(c)

	if err := h.Projects.RequireMember(c.Request.Context(), projectID, uid); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this project"})
		return
	}

	if err := h.Members.EnsureSelfMembership(c.Request.Context(), projectID, uid, callerName(c, h.GW)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to repair membership"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Membership repaired"})
}
