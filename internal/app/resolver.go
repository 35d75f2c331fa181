package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/herobot/internal/adapters/stratz"
	"github.com/okian/herobot/internal/domain/catalog"
	"github.com/okian/herobot/internal/domain/types"
	"github.com/okian/herobot/pkg/metrics"
)

var tracer = otel.Tracer("herobot/app")

// Searcher finds heroes by free-text name, best match first.
type Searcher interface {
	Search(query string) []types.Entity
}

// ResolutionError reports a failed lookup of Name. When Err matches
// catalog.ErrEntityNotFound no hero was selected and ID is meaningless;
// otherwise Err is the *stratz.QueryError of the query bound to ID.
type ResolutionError struct {
	Name string
	ID   uint8
	Err  error
}

func (e *ResolutionError) Error() string {
	if errors.Is(e.Err, catalog.ErrEntityNotFound) {
		return fmt.Sprintf("resolve %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("resolve %q (hero %d): %v", e.Name, e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolve looks name up in index and runs q for the best match. A name
// without candidates fails with catalog.ErrEntityNotFound before any
// request is sent.
func Resolve[T any](ctx context.Context, name string, q stratz.Query[T], index Searcher, client *stratz.Client) (T, uint8, error) {
	out, hero, err := resolve(ctx, name, q, index, client)
	return out, hero.ID, err
}

func resolve[T any](ctx context.Context, name string, q stratz.Query[T], index Searcher, client *stratz.Client) (T, types.Entity, error) {
	var zero T
	hero, err := find(ctx, name, index)
	if err != nil {
		return zero, types.Entity{}, err
	}
	out, err := execute(ctx, name, hero, q, client)
	return out, hero, err
}

// find returns the top candidate for name.
func find(ctx context.Context, name string, index Searcher) (types.Entity, error) {
	_, span := tracer.Start(ctx, "app.find", trace.WithAttributes(attribute.String("hero.query", name)))
	defer span.End()

	if strings.TrimSpace(name) == "" {
		metrics.RecordResolution("not_found")
		return types.Entity{}, &ResolutionError{Name: name, Err: errBlankName}
	}
	hits := index.Search(name)
	if len(hits) == 0 {
		metrics.RecordResolution("not_found")
		span.SetStatus(codes.Error, "not found")
		return types.Entity{}, &ResolutionError{Name: name, Err: catalog.ErrEntityNotFound}
	}
	metrics.RecordResolution("found")
	span.SetAttributes(attribute.Int("hero.id", int(hits[0].ID)), attribute.String("hero.name", hits[0].Name))
	return hits[0], nil
}

// execute binds hero into q. Query errors come back wrapped with the name
// and id they were resolved for.
func execute[T any](ctx context.Context, name string, hero types.Entity, q stratz.Query[T], client *stratz.Client) (T, error) {
	out, err := stratz.Execute(ctx, client, q, stratz.Variables{ID: hero.ID})
	if err != nil {
		return out, &ResolutionError{Name: name, ID: hero.ID, Err: err}
	}
	return out, nil
}
