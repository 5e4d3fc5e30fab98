package domain

import (
	"slices"
	"strings"
	"time"
)

// Role is a user's permission level on one board.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

var validRoles = []Role{RoleViewer, RoleMember, RoleAdmin}

// Membership links a user to a board with a role. The broadcast router uses
// memberships to resolve board audiences; the engine uses them to re-validate
// that the acting user may mutate.
type Membership struct {
	BoardID   string    `json:"boardId"`
	UserID    string    `json:"userId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMembership constructs a validated membership.
func NewMembership(boardID, userID string, role Role, now time.Time) (Membership, error) {
	boardID = strings.TrimSpace(boardID)
	userID = strings.TrimSpace(userID)
	if boardID == "" {
		return Membership{}, ErrInvalidBoardID
	}
	if userID == "" {
		return Membership{}, ErrInvalidUserID
	}
	if !slices.Contains(validRoles, role) {
		return Membership{}, ErrInvalidRole
	}
	return Membership{
		BoardID:   boardID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now.UTC(),
	}, nil
}

// CanMutate reports whether the role permits mutating board contents.
func (m Membership) CanMutate() bool {
	return m.Role == RoleMember || m.Role == RoleAdmin
}
