package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
	"github.com/hogarlabs/hogar-api/utils"
)

const (
	inviteCodeLength  = 6
	inviteMaxAttempts = 5
	inviteDefaultDays = 7
	inviteMaxTTLDays  = 30
)

var (
	ErrInviteNotFound   = errors.New("invite does not exist")
	ErrInviteUsed       = errors.New("invite was already used or revoked")
	ErrInviteExpired    = errors.New("invite has expired")
	ErrInviteInvalid    = errors.New("invite code is invalid")
	ErrCodeAllocation   = errors.New("could not allocate a unique invite code")
	ErrInviteNotPending = errors.New("invite is not pending")
)

type InviteService struct {
	gw      store.Gateway
	members *MemberService
}

func NewInviteService(gw store.Gateway, members *MemberService) *InviteService {
	return &InviteService{gw: gw, members: members}
}

// Generate issues a new pending invite. Owner-only. The code is the
// document id, so a duplicate code fails the create-only write and we
// retry with a fresh code, up to five attempts.
func (s *InviteService) Generate(ctx context.Context, projectID, actorUID string, ttlDays int) (*models.Invite, error) {
	owner, err := s.members.IsOwner(ctx, projectID, actorUID)
	if err != nil {
		return nil, err
	}
	if !owner {
		return nil, ErrNotOwner
	}

	if ttlDays <= 0 {
		ttlDays = inviteDefaultDays
	}
	if ttlDays > inviteMaxTTLDays {
		ttlDays = inviteMaxTTLDays
	}

	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(ttlDays) * 24 * time.Hour)

	for attempt := 0; attempt < inviteMaxAttempts; attempt++ {
		code, err := utils.GenerateCode(inviteCodeLength)
		if err != nil {
			return nil, err
		}
		inv := &models.Invite{
			ID:        code,
			ProjectID: projectID,
			Code:      code,
			CreatedBy: actorUID,
			Status:    models.InvitePending,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		}
		data, err := store.ToDoc(inv)
		if err != nil {
			return nil, err
		}
		delete(data, "id")

		err = s.gw.Create(ctx, models.InvitesCol, code, data)
		if errors.Is(err, store.ErrExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create invite: %w", err)
		}
		return inv, nil
	}
	return nil, ErrCodeAllocation
}

// Accept redeems a pending, unexpired invite for the calling user and
// returns the joined project id.
//
// The normal path is one atomic batch: create the member record (and
// flat-index entry) and flip the invite to accepted. When the member
// record already exists the batch would fail its create, so we fall
// back to marking the invite accepted on its own — the code must not
// stay replayable just because the user was already in.
func (s *InviteService) Accept(ctx context.Context, codeRaw, uid, displayName string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(codeRaw))
	if code == "" {
		return "", ErrInviteInvalid
	}

	doc, err := s.gw.Get(ctx, models.InvitesCol, code)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInviteNotFound
	}
	if err != nil {
		return "", err
	}
	var inv models.Invite
	if err := doc.Decode(&inv); err != nil {
		return "", err
	}
	if inv.Status != models.InvitePending {
		return "", ErrInviteUsed
	}
	now := time.Now().UTC()
	if !inv.ExpiresAt.After(now) {
		return "", ErrInviteExpired
	}
	if inv.ProjectID == "" {
		return "", ErrInviteInvalid
	}

	if displayName == "" {
		displayName = realtimeFallbackName(uid)
	}
	accept := store.Doc{
		"status":     models.InviteAccepted,
		"acceptedBy": uid,
		"acceptedAt": now,
	}

	b := s.gw.Batch()
	addMemberToBatch(b, inv.ProjectID, models.Member{
		UID:         uid,
		Role:        models.RoleMember,
		JoinedAt:    now,
		DisplayName: displayName,
	})
	b.Update(models.InvitesCol, code, accept)

	err = b.Commit(ctx)
	if errors.Is(err, store.ErrExists) {
		// Already a member: still burn the code.
		if err := s.gw.Merge(ctx, models.InvitesCol, code, accept); err != nil {
			return "", fmt.Errorf("accept invite: %w", err)
		}
		return inv.ProjectID, nil
	}
	if err != nil {
		return "", fmt.Errorf("accept invite: %w", err)
	}
	return inv.ProjectID, nil
}

// Revoke hard-deletes a pending invite. Allowed for the project owner
// or the invite's creator.
func (s *InviteService) Revoke(ctx context.Context, code, actorUID string) error {
	doc, err := s.gw.Get(ctx, models.InvitesCol, code)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInviteNotFound
	}
	if err != nil {
		return err
	}
	var inv models.Invite
	if err := doc.Decode(&inv); err != nil {
		return err
	}
	if inv.Status != models.InvitePending {
		return ErrInviteNotPending
	}

	if inv.CreatedBy != actorUID {
		owner, err := s.members.IsOwner(ctx, inv.ProjectID, actorUID)
		if err != nil {
			return err
		}
		if !owner {
			return ErrNotOwner
		}
	}
	return s.gw.Delete(ctx, models.InvitesCol, code)
}

// ListPending returns a project's open invites.
func (s *InviteService) ListPending(ctx context.Context, projectID string) ([]models.Invite, error) {
	docs, err := s.gw.Query(ctx, store.Query{
		Collection: models.InvitesCol,
		Filters: []store.Filter{
			{Field: "projectId", Value: projectID},
			{Field: "status", Value: string(models.InvitePending)},
		},
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Invite, 0, len(docs))
	for _, d := range docs {
		var inv models.Invite
		if err := d.Decode(&inv); err != nil {
			continue
		}
		inv.ID = d.ID
		out = append(out, inv)
	}
	return out, nil
}

func realtimeFallbackName(uid string) string {
	if len(uid) > 6 {
		uid = uid[:6]
	}
	return uid
}
