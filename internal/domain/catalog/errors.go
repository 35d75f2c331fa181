package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrEntityNotFound = errors.New("hero not found")
	ErrUnknownEntity  = errors.New("unknown hero id")
	ErrDuplicateID    = errors.New("duplicate hero id")
	ErrEmptyName      = errors.New("empty hero name")
	ErrDuplicateName  = errors.New("duplicate hero name")
	ErrFetch          = errors.New("catalog fetch failed")
)
