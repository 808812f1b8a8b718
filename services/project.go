package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/realtime"
	"github.com/hogarlabs/hogar-api/store"
)

type ProjectService struct {
	gw      store.Gateway
	members *MemberService
}

func NewProjectService(gw store.Gateway, members *MemberService) *ProjectService {
	return &ProjectService{gw: gw, members: members}
}

// Create writes the project, its owner membership record and the flat
// index entry in one atomic batch.
func (s *ProjectService) Create(ctx context.Context, ownerUID, ownerName, name, currency, iconEmoji string) (*models.Project, error) {
	if currency == "" {
		currency = "ARS"
	}
	now := time.Now().UTC()
	p := &models.Project{
		ID:        uuid.New().String(),
		OwnerUID:  ownerUID,
		Name:      name,
		Currency:  currency,
		Status:    models.ProjectActive,
		IconEmoji: iconEmoji,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := store.ToDoc(p)
	if err != nil {
		return nil, err
	}
	delete(data, "id")

	b := s.gw.Batch()
	b.Create(models.ProjectsCol, p.ID, data)
	addMemberToBatch(b, p.ID, models.Member{
		UID:         ownerUID,
		Role:        models.RoleOwner,
		JoinedAt:    now,
		DisplayName: ownerName,
	})
	if err := b.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// Get loads a project; the caller must already be a member.
func (s *ProjectService) Get(ctx context.Context, projectID string) (*models.Project, error) {
	doc, err := s.gw.Get(ctx, models.ProjectsCol, projectID)
	if err != nil {
		return nil, err
	}
	var p models.Project
	if err := doc.Decode(&p); err != nil {
		return nil, err
	}
	p.ID = doc.ID
	return &p, nil
}

// Update patches name/currency/status/icon. Owner-only; the owner uid
// itself is immutable and never part of the patch.
func (s *ProjectService) Update(ctx context.Context, projectID, actorUID string, req models.UpdateProjectRequest) error {
	owner, err := s.members.IsOwner(ctx, projectID, actorUID)
	if err != nil {
		return err
	}
	if !owner {
		return ErrNotOwner
	}

	patch := store.Doc{"updatedAt": time.Now().UTC()}
	if req.Name != "" {
		patch["name"] = req.Name
	}
	if req.Currency != "" {
		patch["currency"] = req.Currency
	}
	if req.IconEmoji != "" {
		patch["iconEmoji"] = req.IconEmoji
	}
	if req.Status != "" {
		if req.Status != string(models.ProjectActive) && req.Status != string(models.ProjectArchived) {
			return fmt.Errorf("invalid status %q", req.Status)
		}
		patch["status"] = req.Status
	}
	return s.gw.Merge(ctx, models.ProjectsCol, projectID, patch)
}

// DeleteDeep removes a project and its dependents. Members, invites,
// expenses and services are deleted in pages best-effort (a failure
// there does not stop the owner from dropping the project doc, same as
// the clients always behaved); the project document goes last.
func (s *ProjectService) DeleteDeep(ctx context.Context, projectID, actorUID string) error {
	owner, err := s.members.IsOwner(ctx, projectID, actorUID)
	if err != nil {
		return err
	}
	if !owner {
		return ErrNotOwner
	}

	cleanup := []store.Query{
		{Collection: models.MembersCol(projectID)},
		{Collection: models.ExpensesCol(projectID)},
		{Collection: models.ServicesCol(projectID)},
		{Collection: models.InvitesCol, Filters: []store.Filter{{Field: "projectId", Value: projectID}}},
		{Collection: models.FlatMembersCol, Filters: []store.Filter{{Field: "projectId", Value: projectID}}},
	}
	for _, q := range cleanup {
		if err := s.deleteAll(ctx, q); err != nil {
			log.Printf("[Project] cleanup skipped for %s: %v", q.Collection, err)
		}
	}

	if err := s.gw.Delete(ctx, models.ProjectsCol, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *ProjectService) deleteAll(ctx context.Context, q store.Query) error {
	const pageSize = 300
	for {
		docs, err := s.gw.Query(ctx, q)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}
		if len(docs) > pageSize {
			docs = docs[:pageSize]
		}
		b := s.gw.Batch()
		for _, d := range docs {
			b.Delete(d.Collection, d.ID)
		}
		if err := b.Commit(ctx); err != nil {
			return err
		}
		if len(docs) < pageSize {
			return nil
		}
	}
}

// ListForUser merges owned and shared projects, owned entries winning
// on duplicates so the role shows as owner.
func (s *ProjectService) ListForUser(ctx context.Context, uid string, strategy realtime.SharedStrategy) ([]models.ProjectListItem, error) {
	owned, err := realtime.FetchOwnedProjects(ctx, s.gw, uid)
	if err != nil {
		return nil, err
	}
	shared, err := realtime.FetchSharedProjects(ctx, s.gw, uid, strategy)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(owned))
	out := make([]models.ProjectListItem, 0, len(owned)+len(shared))
	for _, p := range owned {
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	for _, p := range shared {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// RequireMember is the shared access check used by the handlers.
func (s *ProjectService) RequireMember(ctx context.Context, projectID, uid string) error {
	ok, err := s.members.IsMember(ctx, projectID, uid)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}
