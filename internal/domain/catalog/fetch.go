package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/okian/herobot/internal/domain/types"
)

const maxCatalogBytes = 4 << 20

var validate = validator.New() //nolint:gochecknoglobals // validator caches struct metadata

// record mirrors one hero in the catalog feed. Feeds disagree on the key of
// the display name: localized_name, localizedName or displayName.
type record struct {
	ID                 *int   `json:"id" validate:"required,min=0,max=255"`
	LocalizedName      string `json:"localizedName"`
	LocalizedNameSnake string `json:"localized_name"`
	DisplayName        string `json:"displayName"`
}

func (r record) entity() (types.Entity, error) {
	if err := validate.Struct(r); err != nil {
		return types.Entity{}, err
	}
	name := r.LocalizedName
	if name == "" {
		name = r.LocalizedNameSnake
	}
	if name == "" {
		name = r.DisplayName
	}
	if name == "" {
		return types.Entity{}, fmt.Errorf("%w: id %d", ErrEmptyName, *r.ID)
	}
	return types.Entity{ID: uint8(*r.ID), Name: name}, nil
}

// Fetch downloads the hero catalog from url. The body is either a JSON array
// of records or an object keyed by id; keyed objects are returned in id order.
func Fetch(ctx context.Context, client *http.Client, url string) ([]types.Entity, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return Decode(body)
}

// Decode parses a catalog body. See Fetch for the accepted shapes.
func Decode(body []byte) ([]types.Entity, error) {
	body = bytes.TrimSpace(body)
	var records []record
	switch {
	case len(body) > 0 && body[0] == '[':
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
	case len(body) > 0 && body[0] == '{':
		keyed := map[string]record{}
		if err := json.Unmarshal(body, &keyed); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
		for _, r := range keyed {
			records = append(records, r)
		}
		sort.Slice(records, func(i, j int) bool {
			return idOf(records[i]) < idOf(records[j])
		})
	default:
		return nil, fmt.Errorf("%w: body is not a JSON array or object", ErrFetch)
	}

	out := make([]types.Entity, 0, len(records))
	for i, r := range records {
		e, err := r.entity()
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrFetch, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func idOf(r record) int {
	if r.ID == nil {
		return -1
	}
	return *r.ID
}
