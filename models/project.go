package models

import (
	"fmt"
	"time"
)

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

// Project is a shared budgeting unit. The owner is fixed at creation;
// there is no role upgrade or ownership transfer path anywhere in the
// API.
type Project struct {
	ID        string        `json:"id"`
	OwnerUID  string        `json:"ownerUid"`
	Name      string        `json:"name"`
	Currency  string        `json:"currency"`
	Status    ProjectStatus `json:"status"`
	IconEmoji string        `json:"iconEmoji,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Member is a user's membership record inside a project. The document
// id within the members subcollection is the uid itself.
type Member struct {
	UID         string     `json:"uid"`
	Role        MemberRole `json:"role"`
	JoinedAt    time.Time  `json:"joinedAt"`
	DisplayName string     `json:"displayName,omitempty"`
}

// FlatMember is the denormalized reverse-index entry keyed by
// "{projectId}_{uid}". It is only ever written together with the
// authoritative Member record.
type FlatMember struct {
	ProjectID string     `json:"projectId"`
	UID       string     `json:"uid"`
	Role      MemberRole `json:"role"`
	JoinedAt  time.Time  `json:"joinedAt"`
}

// ProjectListItem is the home-screen row shape.
type ProjectListItem struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Currency  string     `json:"currency"`
	Role      MemberRole `json:"role"`
	IconEmoji string     `json:"iconEmoji,omitempty"`
}

type CreateProjectRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Currency string `json:"currency"`
}

type UpdateProjectRequest struct {
	Name      string `json:"name"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	IconEmoji string `json:"iconEmoji"`
}

// Collection paths.

const (
	ProjectsCol    = "projects"
	FlatMembersCol = "projectMembersFlat"
	InvitesCol     = "invites"

	MembersGroup = "members"
)

func MembersCol(projectID string) string {
	return fmt.Sprintf("projects/%s/members", projectID)
}

func ExpensesCol(projectID string) string {
	return fmt.Sprintf("projects/%s/expenses", projectID)
}

func ServicesCol(projectID string) string {
	return fmt.Sprintf("projects/%s/services", projectID)
}

// FlatMemberID builds the composite key of a flat-index entry.
func FlatMemberID(projectID, uid string) string {
	return projectID + "_" + uid
}
