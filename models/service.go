package models

import "time"

type ServiceStatus string

const (
	ServicePending ServiceStatus = "pending"
	ServicePaid    ServiceStatus = "paid"
)

// Service is a recurring bill tracked apart from ad hoc expenses. When
// it is marked paid, a linked Expense is created in the same atomic
// batch and linkedExpenseId points at it.
type Service struct {
	ID             string        `json:"id"`
	Type           string        `json:"type"`
	Title          string        `json:"title"`
	AmountCents    int64         `json:"amountCents"`
	DueDate        time.Time     `json:"dueDate"`
	Description    string        `json:"description,omitempty"`
	AssignedToUID  string        `json:"assignedToUid,omitempty"`
	AssignedToName string        `json:"assignedToName,omitempty"`
	CreatedByUID   string        `json:"createdByUid"`
	CreatedByName  string        `json:"createdByName"`
	Status         ServiceStatus `json:"status"`
	PaidAt         *time.Time    `json:"paidAt,omitempty"`
	PaidByUID      string        `json:"paidByUid,omitempty"`
	PaidByName     string        `json:"paidByName,omitempty"`
	LinkedExpenseID string       `json:"linkedExpenseId,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

type ServiceInput struct {
	Type           string    `json:"type" binding:"required"`
	Title          string    `json:"title" binding:"required,min=2"`
	AmountCents    int64     `json:"amountCents" binding:"required,gt=0"`
	DueDate        time.Time `json:"dueDate" binding:"required"`
	Description    string    `json:"description" binding:"max=250"`
	AssignedToUID  string    `json:"assignedToUid"`
	AssignedToName string    `json:"assignedToName"`
}

type MarkServicePaidRequest struct {
	PaidAt     time.Time `json:"paidAt" binding:"required"`
	PaidByUID  string    `json:"paidByUid" binding:"required"`
	PaidByName string    `json:"paidByName"`
}
