package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
	"github.com/hogarlabs/hogar-api/utils"
)

var ErrServicePaid = errors.New("service is already paid")

// BillService manages the recurring-bill ("service") records of a
// project and their conversion into expenses upon payment.
type BillService struct {
	gw store.Gateway
}

func NewBillService(gw store.Gateway) *BillService {
	return &BillService{gw: gw}
}

func (s *BillService) Create(ctx context.Context, projectID, actorUID, actorName string, in models.ServiceInput) (*models.Service, error) {
	now := time.Now().UTC()
	svc := &models.Service{
		ID:             uuid.New().String(),
		Type:           in.Type,
		Title:          in.Title,
		AmountCents:    in.AmountCents,
		DueDate:        in.DueDate,
		Description:    in.Description,
		AssignedToUID:  in.AssignedToUID,
		AssignedToName: in.AssignedToName,
		CreatedByUID:   actorUID,
		CreatedByName:  actorName,
		Status:         models.ServicePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	data, err := store.ToDoc(svc)
	if err != nil {
		return nil, err
	}
	delete(data, "id")

	if err := s.gw.Create(ctx, models.ServicesCol(projectID), svc.ID, data); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

func (s *BillService) Update(ctx context.Context, projectID, id string, in models.ServiceInput) error {
	patch := store.Doc{
		"type":        in.Type,
		"title":       in.Title,
		"amountCents": in.AmountCents,
		"dueDate":     in.DueDate,
		"updatedAt":   time.Now().UTC(),
	}
	if in.Description != "" {
		patch["description"] = in.Description
	}
	if in.AssignedToUID != "" {
		patch["assignedToUid"] = in.AssignedToUID
		patch["assignedToName"] = in.AssignedToName
	}

	b := s.gw.Batch()
	b.Update(models.ServicesCol(projectID), id, patch)
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

func (s *BillService) Delete(ctx context.Context, projectID, id string) error {
	return s.gw.Delete(ctx, models.ServicesCol(projectID), id)
}

func (s *BillService) Get(ctx context.Context, projectID, id string) (*models.Service, error) {
	doc, err := s.gw.Get(ctx, models.ServicesCol(projectID), id)
	if err != nil {
		return nil, err
	}
	var svc models.Service
	if err := doc.Decode(&svc); err != nil {
		return nil, err
	}
	svc.ID = doc.ID
	return &svc, nil
}

// ListPending returns unpaid services ordered by due date.
func (s *BillService) ListPending(ctx context.Context, projectID string) ([]models.Service, error) {
	docs, err := s.gw.Query(ctx, store.Query{
		Collection: models.ServicesCol(projectID),
		Filters:    []store.Filter{{Field: "status", Value: string(models.ServicePending)}},
		OrderBy:    "dueDate",
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Service, 0, len(docs))
	for _, d := range docs {
		var svc models.Service
		if err := d.Decode(&svc); err != nil {
			continue
		}
		svc.ID = d.ID
		out = append(out, svc)
	}
	return out, nil
}

// MarkPaid flips a pending service to paid and creates the linked
// expense in the same atomic batch: a concurrent reader sees either
// both changes or neither.
func (s *BillService) MarkPaid(ctx context.Context, projectID, serviceID, actorUID string, req models.MarkServicePaidRequest) (string, error) {
	svc, err := s.Get(ctx, projectID, serviceID)
	if err != nil {
		return "", err
	}
	if svc.Status == models.ServicePaid {
		return "", ErrServicePaid
	}

	title := svc.Title
	if title == "" {
		title = svc.Type
	}
	expenseID := uuid.New().String()
	now := time.Now().UTC()

	b := s.gw.Batch()
	b.Create(models.ExpensesCol(projectID), expenseID, store.Doc{
		"title":        title,
		"category":     "Servicios",
		"amountCents":  svc.AmountCents,
		"paidByUid":    req.PaidByUID,
		"paidByName":   req.PaidByName,
		"date":         req.PaidAt,
		"yearMonth":    utils.PeriodKey(req.PaidAt),
		"createdAt":    now,
		"createdByUid": actorUID,
	})
	b.Update(models.ServicesCol(projectID), serviceID, store.Doc{
		"status":          models.ServicePaid,
		"paidAt":          req.PaidAt,
		"paidByUid":       req.PaidByUID,
		"paidByName":      req.PaidByName,
		"linkedExpenseId": expenseID,
		"updatedAt":       now,
	})
	if err := b.Commit(ctx); err != nil {
		return "", fmt.Errorf("mark service paid: %w", err)
	}
	return expenseID, nil
}
