package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hogarlabs/hogar-api/middleware"
	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/services"
	"github.com/hogarlabs/hogar-api/store"
)

// ServiceHandler exposes a project's recurring bills.
type ServiceHandler struct {
	GW       store.Gateway
	Projects *services.ProjectService
	Bills    *services.BillService
}

func (h *ServiceHandler) requireMember(c *gin.Context) (string, string, bool) {
	projectID := c.Param("id")
	uid := middleware.GetUserID(c)

	if err := h.Projects.RequireMember(c.Request.Context(), projectID, uid); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this project"})
		return "", "", false
	}
	return projectID, uid, true
}

func (h *ServiceHandler) List(c *gin.Context) {
	projectID, _, ok := h.requireMember(c)
	if !ok {
		return
	}

	items, err := h.Bills.ListPending(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list services"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": items})
}

func (h *ServiceHandler) Create(c *gin.Context) {
	projectID, uid, ok := h.requireMember(c)
	if !ok {
		return
	}

	var in models.ServiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc, err := h.Bills.Create(c.Request.Context(), projectID, uid, callerName(c, h.GW), in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create service"})
		return
	}
	c.JSON(http.StatusCreated, svc)
}

func (h *ServiceHandler) Update(c *gin.Context) {
	projectID, _, ok := h.requireMember(c)
	if !ok {
		return
	}

	var in models.ServiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Bills.Update(c.Request.Context(), projectID, c.Param("serviceId"), in)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service updated"})
}

func (h *ServiceHandler) Delete(c *gin.Context) {
	projectID, _, ok := h.requireMember(c)
	if !ok {
		return
	}

	err := h.Bills.Delete(c.Request.Context(), projectID, c.Param("serviceId"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete service"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service deleted"})
}

// MarkPaid settles a pending service: the linked expense is created
// and the service flipped to paid in one atomic write.
func (h *ServiceHandler) MarkPaid(c *gin.Context) {
	projectID, uid, ok := h.requireMember(c)
	if !ok {
		return
	}

	var req models.MarkServicePaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PaidByName == "" {
		req.PaidByName = callerName(c, h.GW)
	}

	expenseID, err := h.Bills.MarkPaid(c.Request.Context(), projectID, c.Param("serviceId"), uid, req)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	if errors.Is(err, services.ErrServicePaid) {
		c.JSON(http.StatusConflict, gin.H{"error": "Service is already paid"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark service paid"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Service marked as paid",
		"expense_id": expenseID,
	})
}
