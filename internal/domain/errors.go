package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidBoardID  = errors.New("invalid board id")
	ErrInvalidColumnID = errors.New("invalid column id")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidTitle    = errors.New("invalid title")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidCapacity = errors.New("invalid capacity")
	ErrInvalidRole     = errors.New("invalid role")
	ErrInvalidUserID   = errors.New("invalid user id")
)
