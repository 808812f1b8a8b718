package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hogarlabs/hogar-api/middleware"
	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/realtime"
	"github.com/hogarlabs/hogar-api/services"
	"github.com/hogarlabs/hogar-api/store"
	"github.com/hogarlabs/hogar-api/utils"
)

type ExpenseHandler struct {
	Projects *services.ProjectService
	Members  *services.MemberService
	Expenses *services.ExpenseService
}

func (h *ExpenseHandler) requireMember(c *gin.Context) (string, string, bool) {
	projectID := c.Param("id")
	uid := middleware.GetUserID(c)

	if err := h.Projects.RequireMember(c.Request.Context(), projectID, uid); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this project"})
		return "", "", false
	}
	return projectID, uid, true
}

// periodParam parses the ?month=YYYY-MM query, defaulting to the
// current month.
func periodParam(c *gin.Context) (string, bool) {
	month := c.Query("month")
	if month == "" {
		return utils.PeriodKey(time.Now()), true
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
		return "", false
	}
	return month, true
}

// List returns one month of expenses, newest first, with the exact
// total. An optional ?payer=uid narrows the list without touching the
// month total.
func (h *ExpenseHandler) List(c *gin.Context) {
	projectID, _, ok := h.requireMember(c)
	if !ok {
		return
	}
	period, ok := periodParam(c)
	if !ok {
		return
	}

	items, total, err := h.Expenses.ListMonth(c.Request.Context(), projectID, period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list expenses"})
		return
	}

	if payer := c.Query("payer"); payer != "" {
		items = realtime.FilterByPayer(items, payer)
	}

	c.JSON(http.StatusOK, gin.H{
		"period":     period,
		"items":      items,
		"totalCents": total,
	})
}

// Summary returns the per-member contribution breakdown for a month.
func (h *ExpenseHandler) Summary(c *gin.Context) {
	projectID, _, ok := h.requireMember(c)
	if !ok {
		return
	}
	period, ok := periodParam(c)
	if !ok {
		return
	}

	items, _, err := h.Expenses.ListMonth(c.Request.Context(), projectID, period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list expenses"})
		return
	}
	members, err := h.Members.List(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load members"})
		return
	}

	roster := make([]realtime.RosterEntry, 0, len(members))
	for _, m := range members {
		roster = append(roster, realtime.RosterEntry{
			UID:         m.UID,
			Role:        m.Role,
			DisplayName: realtime.DisplayLabel(m.DisplayName, m.UID),
		})
	}

	summary := realtime.Contributions(items, roster)
	c.JSON(http.StatusOK, gin.H{
		"period":  period,
		"summary": summary,
	})
}

func (h *ExpenseHandler) Create(c *gin.Context) {
	projectID, uid, ok := h.requireMember(c)
	if !ok {
		return
	}

	var in models.ExpenseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.Expenses.Create(c.Request.Context(), projectID, uid, in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *ExpenseHandler) Update(c *gin.Context) {
	projectID, uid, ok := h.requireMember(c)
	if !ok {
		return
	}

	var in models.ExpenseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Expenses.Update(c.Request.Context(), projectID, c.Param("expenseId"), uid, in)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense updated"})
}

func (h *ExpenseHandler) Delete(c *gin.Context) {
	projectID, _, ok := h.requireMember(c)
	if !ok {
		return
	}

	err := h.Expenses.Delete(c.Request.Context(), projectID, c.Param("expenseId"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete expense"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted"})
}
