package models

import "time"

// Categories shown by the mobile clients; server validates against
// this list.
var Categories = []string{
	"Alimentos",
	"Hogar",
	"Servicios",
	"Transporte",
	"Salud",
	"Mascotas",
	"Educación",
	"Ocio",
	"Otros",
}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Expense is a ledger entry. Amounts are integer minor units and
// yearMonth is always derived from the occurrence date server-side.
type Expense struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	AmountCents  int64      `json:"amountCents"`
	PaidByUID    string     `json:"paidByUid"`
	PaidByName   string     `json:"paidByName"`
	Date         time.Time  `json:"date"`
	YearMonth    string     `json:"yearMonth"`
	CreatedAt    time.Time  `json:"createdAt"`
	CreatedByUID string     `json:"createdByUid"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	UpdatedByUID string     `json:"updatedByUid,omitempty"`
}

type ExpenseInput struct {
	Title       string    `json:"title" binding:"required,min=2"`
	Category    string    `json:"category" binding:"required"`
	AmountCents int64     `json:"amountCents" binding:"required,gt=0"`
	PaidByUID   string    `json:"paidByUid" binding:"required"`
	PaidByName  string    `json:"paidByName"`
	Date        time.Time `json:"date" binding:"required"`
}
