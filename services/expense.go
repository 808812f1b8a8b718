package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
	"github.com/hogarlabs/hogar-api/utils"
)

type ExpenseService struct {
	gw store.Gateway
}

func NewExpenseService(gw store.Gateway) *ExpenseService {
	return &ExpenseService{gw: gw}
}

// Create stores a new expense. The yearMonth key is derived from the
// occurrence date here, never taken from the client.
func (s *ExpenseService) Create(ctx context.Context, projectID, actorUID string, in models.ExpenseInput) (*models.Expense, error) {
	if !models.ValidCategory(in.Category) {
		return nil, fmt.Errorf("unknown category %q", in.Category)
	}

	e := &models.Expense{
		ID:           uuid.New().String(),
		Title:        in.Title,
		Category:     in.Category,
		AmountCents:  in.AmountCents,
		PaidByUID:    in.PaidByUID,
		PaidByName:   in.PaidByName,
		Date:         in.Date,
		YearMonth:    utils.PeriodKey(in.Date),
		CreatedAt:    time.Now().UTC(),
		CreatedByUID: actorUID,
	}
	data, err := store.ToDoc(e)
	if err != nil {
		return nil, err
	}
	delete(data, "id")

	if err := s.gw.Create(ctx, models.ExpensesCol(projectID), e.ID, data); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}

// Update patches an expense. A date change recomputes yearMonth so the
// record moves between month windows consistently.
func (s *ExpenseService) Update(ctx context.Context, projectID, id, actorUID string, in models.ExpenseInput) error {
	if !models.ValidCategory(in.Category) {
		return fmt.Errorf("unknown category %q", in.Category)
	}

	now := time.Now().UTC()
	patch := store.Doc{
		"title":        in.Title,
		"category":     in.Category,
		"amountCents":  in.AmountCents,
		"paidByUid":    in.PaidByUID,
		"paidByName":   in.PaidByName,
		"date":         in.Date,
		"yearMonth":    utils.PeriodKey(in.Date),
		"updatedAt":    now,
		"updatedByUid": actorUID,
	}

	b := s.gw.Batch()
	b.Update(models.ExpensesCol(projectID), id, patch)
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

func (s *ExpenseService) Delete(ctx context.Context, projectID, id string) error {
	return s.gw.Delete(ctx, models.ExpensesCol(projectID), id)
}

func (s *ExpenseService) Get(ctx context.Context, projectID, id string) (*models.Expense, error) {
	doc, err := s.gw.Get(ctx, models.ExpensesCol(projectID), id)
	if err != nil {
		return nil, err
	}
	var e models.Expense
	if err := doc.Decode(&e); err != nil {
		return nil, err
	}
	e.ID = doc.ID
	return &e, nil
}

// ListMonth is the one-shot counterpart of the live month window:
// expenses of one period, newest first, with their exact integer sum.
func (s *ExpenseService) ListMonth(ctx context.Context, projectID, period string) ([]models.Expense, int64, error) {
	docs, err := s.gw.Query(ctx, store.Query{
		Collection: models.ExpensesCol(projectID),
		Filters:    []store.Filter{{Field: "yearMonth", Value: period}},
		OrderBy:    "date",
		Desc:       true,
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]models.Expense, 0, len(docs))
	var total int64
	for _, d := range docs {
		var e models.Expense
		if err := d.Decode(&e); err != nil {
			continue
		}
		e.ID = d.ID
		out = append(out, e)
		total += e.AmountCents
	}
	return out, total, nil
}
