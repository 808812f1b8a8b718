package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
)

var (
	ErrNotOwner  = errors.New("only the project owner may do this")
	ErrNotMember = errors.New("not a member of this project")
)

type MemberService struct {
	gw store.Gateway
}

func NewMemberService(gw store.Gateway) *MemberService {
	return &MemberService{gw: gw}
}

// IsMember reports whether uid has a membership record in the project.
func (s *MemberService) IsMember(ctx context.Context, projectID, uid string) (bool, error) {
	_, err := s.gw.Get(ctx, models.MembersCol(projectID), uid)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsOwner reports whether uid owns the project.
func (s *MemberService) IsOwner(ctx context.Context, projectID, uid string) (bool, error) {
	doc, err := s.gw.Get(ctx, models.ProjectsCol, projectID)
	if err != nil {
		return false, err
	}
	var p models.Project
	if err := doc.Decode(&p); err != nil {
		return false, err
	}
	return p.OwnerUID == uid, nil
}

// List returns the project's members ordered by join time.
func (s *MemberService) List(ctx context.Context, projectID string) ([]models.Member, error) {
	docs, err := s.gw.Query(ctx, store.Query{
		Collection: models.MembersCol(projectID),
		OrderBy:    "joinedAt",
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Member, 0, len(docs))
	for _, d := range docs {
		var m models.Member
		if err := d.Decode(&m); err != nil {
			continue
		}
		m.UID = d.ID
		out = append(out, m)
	}
	return out, nil
}

// Remove deletes a member and its flat-index entry. Owner-only; the
// owner record itself cannot be removed.
func (s *MemberService) Remove(ctx context.Context, projectID, actorUID, memberUID string) error {
	owner, err := s.IsOwner(ctx, projectID, actorUID)
	if err != nil {
		return err
	}
	if !owner {
		return ErrNotOwner
	}
	if memberUID == actorUID {
		return errors.New("owner cannot be removed")
	}

	b := s.gw.Batch()
	b.Delete(models.MembersCol(projectID), memberUID)
	b.Delete(models.FlatMembersCol, models.FlatMemberID(projectID, memberUID))
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// EnsureSelfMembership repairs the caller's own membership record:
// any missing field (uid, displayName, role, joinedAt) is filled in,
// fields already present are never overwritten, and the flat-index
// entry is written in the same batch.
func (s *MemberService) EnsureSelfMembership(ctx context.Context, projectID, uid, displayName string) error {
	var existing models.Member
	doc, err := s.gw.Get(ctx, models.MembersCol(projectID), uid)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// repaired from scratch below
	case err != nil:
		return err
	default:
		if err := doc.Decode(&existing); err != nil {
			return err
		}
	}

	patch := store.Doc{"uid": uid}
	if existing.DisplayName == "" && displayName != "" {
		patch["displayName"] = displayName
	}
	if existing.Role == "" {
		patch["role"] = models.RoleMember
	}
	joinedAt := existing.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
		patch["joinedAt"] = joinedAt
	}

	role := existing.Role
	if role == "" {
		role = models.RoleMember
	}

	b := s.gw.Batch()
	b.Merge(models.MembersCol(projectID), uid, patch)
	b.Merge(models.FlatMembersCol, models.FlatMemberID(projectID, uid), store.Doc{
		"projectId": projectID,
		"uid":       uid,
		"role":      role,
		"joinedAt":  joinedAt,
	})
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("ensure self membership: %w", err)
	}
	return nil
}

// addMemberToBatch is the single write path for membership: the
// authoritative member record and its flat-index entry always land in
// the same atomic batch.
func addMemberToBatch(b store.Batch, projectID string, m models.Member) {
	b.Create(models.MembersCol(projectID), m.UID, store.Doc{
		"uid":         m.UID,
		"role":        m.Role,
		"joinedAt":    m.JoinedAt,
		"displayName": m.DisplayName,
	})
	b.Set(models.FlatMembersCol, models.FlatMemberID(projectID, m.UID), store.Doc{
		"projectId": projectID,
		"uid":       m.UID,
		"role":      m.Role,
		"joinedAt":  m.JoinedAt,
	})
}
