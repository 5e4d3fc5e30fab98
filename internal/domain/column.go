package domain

import (
	"strings"
	"time"
)

// Column is an ordered bucket of tasks within a board. Capacity is the
// maximum number of tasks the column may hold at once; zero means unlimited.
type Column struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"boardId"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewColumn constructs a validated column.
func NewColumn(id, boardID, name string, position, capacity int, now time.Time) (Column, error) {
	id = strings.TrimSpace(id)
	boardID = strings.TrimSpace(boardID)
	name = strings.TrimSpace(name)
	if id == "" {
		return Column{}, ErrInvalidID
	}
	if boardID == "" {
		return Column{}, ErrInvalidBoardID
	}
	if name == "" {
		return Column{}, ErrInvalidName
	}
	if position < 0 {
		return Column{}, ErrInvalidPosition
	}
	if capacity < 0 {
		return Column{}, ErrInvalidCapacity
	}

	return Column{
		ID:        id,
		BoardID:   boardID,
		Name:      name,
		Position:  position,
		Capacity:  capacity,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Rename renames the column.
func (c *Column) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	c.Name = name
	c.UpdatedAt = now.UTC()
	return nil
}

// SetPosition moves the column among its siblings.
func (c *Column) SetPosition(position int, now time.Time) error {
	if position < 0 {
		return ErrInvalidPosition
	}
	c.Position = position
	c.UpdatedAt = now.UTC()
	return nil
}

// SetCapacity changes the column's task limit; zero removes the limit.
func (c *Column) SetCapacity(capacity int, now time.Time) error {
	if capacity < 0 {
		return ErrInvalidCapacity
	}
	c.Capacity = capacity
	c.UpdatedAt = now.UTC()
	return nil
}

// HasCapacityFor reports whether the column can take on one more task given
// its current task count.
func (c Column) HasCapacityFor(currentCount int) bool {
	if c.Capacity == 0 {
		return true
	}
	return currentCount < c.Capacity
}
