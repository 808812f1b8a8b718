package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hogarlabs/hogar-api/middleware"
	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/realtime"
	"github.com/hogarlabs/hogar-api/services"
	"github.com/hogarlabs/hogar-api/store"
	"github.com/hogarlabs/hogar-api/utils"
)

type ProjectHandler struct {
	GW       store.Gateway
	Projects *services.ProjectService
	Members  *services.MemberService
}

// callerName resolves the display name of the authenticated user,
// falling back to the email's local part, then to a uid prefix.
func callerName(c *gin.Context, gw store.Gateway) string {
	uid := middleware.GetUserID(c)

	doc, err := gw.Get(c.Request.Context(), models.UsersCol, uid)
	if err == nil {
		var rec models.UserRecord
		if doc.Decode(&rec) == nil && rec.Name != "" {
			return rec.Name
		}
	}
	if email := middleware.GetUserEmail(c); email != "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			return email[:at]
		}
	}
	return realtime.DisplayLabel("", uid)
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uid := middleware.GetUserID(c)
	p, err := h.Projects.Create(c.Request.Context(), uid, callerName(c, h.GW), req.Name, req.Currency, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	utils.LogProjectAction("create", p.ID, uid)
	c.JSON(http.StatusCreated, p)
}

func (h *ProjectHandler) List(c *gin.Context) {
	uid := middleware.GetUserID(c)

	items, err := h.Projects.ListForUser(c.Request.Context(), uid, realtime.SharedViaFlatIndex)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": items})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	projectID := c.Param("id")
	uid := middleware.GetUserID(c)

	if err := h.Projects.RequireMember(c.Request.Context(), projectID, uid); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this project"})
		return
	}

	p, err := h.Projects.Get(c.Request.Context(), projectID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return
	}

	members, err := h.Members.List(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project":  p,
		"members":  members,
		"is_owner": p.OwnerUID == uid,
	})
}

func (h *ProjectHandler) Update(c *gin.Context) {
	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	projectID := c.Param("id")
	uid := middleware.GetUserID(c)

	err := h.Projects.Update(c.Request.Context(), projectID, uid, req)
	if errors.Is(err, services.ErrNotOwner) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can update a project"})
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	utils.LogProjectAction("update", projectID, uid)
	c.JSON(http.StatusOK, gin.H{"message": "Project updated"})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	projectID := c.Param("id")
	uid := middleware.GetUserID(c)

	err := h.Projects.DeleteDeep(c.Request.Context(), projectID, uid)
	if errors.Is(err, services.ErrNotOwner) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can delete a project"})
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}

	utils.LogProjectAction("delete", projectID, uid)
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}
