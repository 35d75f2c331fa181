package service

import (
	"errors"
	"fmt"

	"github.com/okian/herobot/internal/adapters/stratz"
	"github.com/okian/herobot/internal/domain/catalog"
	"github.com/okian/herobot/internal/domain/ranking"
)

// Sentinel errors.
var (
	ErrEmptyHero      = errors.New("hero name is required")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotStarted     = errors.New("service not started")

	// errBlankName also matches catalog.ErrEntityNotFound, since a blank
	// name resolves to no hero.
	errBlankName = fmt.Errorf("%w: %w", ErrEmptyHero, catalog.ErrEntityNotFound)
)

// Error kinds reported in metrics and API responses.
const (
	KindNotFound       = "not_found"
	KindUnknownID      = "unknown_id"
	KindQuery          = "query_error"
	KindNoData         = "no_data"
	KindUnknownCommand = "unknown_command"
	KindInvalid        = "invalid"
	KindInternal       = "internal"
)

// ErrorKind classifies err for metrics and transport mapping. A blank name
// also matches catalog.ErrEntityNotFound but is reported as invalid.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyHero):
		return KindInvalid
	case errors.Is(err, catalog.ErrEntityNotFound):
		return KindNotFound
	case errors.Is(err, catalog.ErrUnknownEntity):
		return KindUnknownID
	case errors.Is(err, stratz.ErrQuery):
		return KindQuery
	case errors.Is(err, ranking.ErrNoData):
		return KindNoData
	case errors.Is(err, ErrUnknownCommand):
		return KindUnknownCommand
	default:
		return KindInternal
	}
}
