package domain

import (
	"strings"
	"time"
)

// Board is the top-level container for columns, tasks, and memberships.
type Board struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	OwnerID    string     `json:"ownerId"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
}

// NewBoard constructs a validated board owned by the given user.
func NewBoard(id, name, ownerID string, now time.Time) (Board, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	ownerID = strings.TrimSpace(ownerID)
	if id == "" {
		return Board{}, ErrInvalidID
	}
	if name == "" {
		return Board{}, ErrInvalidName
	}
	if ownerID == "" {
		return Board{}, ErrInvalidUserID
	}
	return Board{
		ID:        id,
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Rename renames the board.
func (b *Board) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	b.Name = name
	b.UpdatedAt = now.UTC()
	return nil
}

// Archive archives the board.
func (b *Board) Archive(now time.Time) {
	ts := now.UTC()
	b.ArchivedAt = &ts
	b.UpdatedAt = ts
}
