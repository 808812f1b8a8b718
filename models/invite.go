package models

import "time"

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRevoked  InviteStatus = "revoked"
	InviteExpired  InviteStatus = "expired"
)

// Invite is a single-use, time-boxed join token. The short code doubles
// as the document id, which is what makes collision detection a plain
// create-only write. Expiry is derived from expiresAt at acceptance
// time; nothing sweeps expired invites.
type Invite struct {
	ID         string       `json:"id"`
	ProjectID  string       `json:"projectId"`
	Code       string       `json:"code"`
	CreatedBy  string       `json:"createdBy"`
	Status     InviteStatus `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	ExpiresAt  time.Time    `json:"expiresAt"`
	AcceptedBy string       `json:"acceptedBy,omitempty"`
	AcceptedAt *time.Time   `json:"acceptedAt,omitempty"`
}

type GenerateInviteRequest struct {
	TTLDays int `json:"ttl_days"`
}

type AcceptInviteRequest struct {
	Code string `json:"code" binding:"required"`
}
