// Package catalog holds the hero table and the fuzzy name index built over it.
//
// The index is built once at startup and never mutated afterwards, so it is
// safe for concurrent readers without locking.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/herobot/internal/domain/types"
)

// Default index configuration constants.
const (
	defaultFuzzyThreshold = 0.7
)

// Match tiers, best first. Fuzzy matches score between tierFuzzy and
// tierSubstring depending on their similarity.
const (
	tierName        = 6.0
	tierExact       = 5.0
	tierPrefix      = 4.0
	tierTokenPrefix = 3.0
	tierSubstring   = 2.0
	tierFuzzy       = 1.0
)

var foldCaser = cases.Fold() //nolint:gochecknoglobals // shared Unicode case folder

// Option applies a configuration option to the Index.
type Option func(*Index)

// WithFuzzyThreshold sets the minimum Levenshtein similarity (0..1) a
// candidate needs to be returned as a fuzzy match.
func WithFuzzyThreshold(threshold float64) Option {
	return func(x *Index) {
		if threshold > 0 && threshold <= 1 {
			x.threshold = threshold
		}
	}
}

type entry struct {
	entity  types.Entity
	folded  string // whole display name, case folded
	compact string
	tokens  []string
}

// Index is a read-only fuzzy search structure over a hero table.
type Index struct {
	entries   []entry
	byID      map[uint8]int
	threshold float64
}

// Build indexes entities in the given order. The order is the tie-break for
// equally scored matches: the entity built first is returned first. Names
// that only differ in case are rejected, since neither could rank first for
// its own name.
func Build(entities []types.Entity, opts ...Option) (*Index, error) {
	x := &Index{
		entries:   make([]entry, 0, len(entities)),
		byID:      make(map[uint8]int, len(entities)),
		threshold: defaultFuzzyThreshold,
	}
	for _, opt := range opts {
		opt(x)
	}

	names := make(map[string]uint8, len(entities))
	for _, e := range entities {
		if _, dup := x.byID[e.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, e.ID)
		}
		tokens := tokenize(e.Name)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("%w: id %d", ErrEmptyName, e.ID)
		}
		folded := fold(e.Name)
		if other, dup := names[folded]; dup {
			return nil, fmt.Errorf("%w: %q (ids %d and %d)", ErrDuplicateName, e.Name, other, e.ID)
		}
		names[folded] = e.ID
		x.byID[e.ID] = len(x.entries)
		x.entries = append(x.entries, entry{
			entity:  e,
			folded:  folded,
			compact: strings.Join(tokens, ""),
			tokens:  tokens,
		})
	}
	return x, nil
}

// Len returns the number of indexed entities.
func (x *Index) Len() int { return len(x.entries) }

// Entities returns the indexed entities in build order.
func (x *Index) Entities() []types.Entity {
	out := make([]types.Entity, len(x.entries))
	for i, e := range x.entries {
		out[i] = e.entity
	}
	return out
}

// Name returns the display name for id.
func (x *Index) Name(id uint8) (string, error) {
	i, ok := x.byID[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	return x.entries[i].entity.Name, nil
}

// Entity returns the entity for id.
func (x *Index) Entity(id uint8) (types.Entity, error) {
	i, ok := x.byID[id]
	if !ok {
		return types.Entity{}, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	return x.entries[i].entity, nil
}

// Search returns the entities matching query, best match first. An empty
// result is a normal outcome.
func (x *Index) Search(query string) []types.Entity {
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return []types.Entity{}
	}
	qCompact := strings.Join(qTokens, "")
	qFolded := fold(query)

	type hit struct {
		pos   int
		score float64
	}
	hits := make([]hit, 0, 8)
	for i := range x.entries {
		if s := x.score(&x.entries[i], qFolded, qTokens, qCompact); s > 0 {
			hits = append(hits, hit{pos: i, score: s})
		}
	}

	// Stable on build order for equal scores.
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})

	out := make([]types.Entity, len(hits))
	for i, h := range hits {
		out[i] = x.entries[h.pos].entity
	}
	return out
}

// Best returns the top match for query or ErrEntityNotFound.
func (x *Index) Best(query string) (types.Entity, error) {
	hits := x.Search(query)
	if len(hits) == 0 {
		return types.Entity{}, fmt.Errorf("%w: %q", ErrEntityNotFound, query)
	}
	return hits[0], nil
}

func (x *Index) score(e *entry, qFolded string, qTokens []string, qCompact string) float64 {
	switch {
	case e.folded == qFolded:
		return tierName
	case e.compact == qCompact:
		return tierExact
	case strings.HasPrefix(e.compact, qCompact):
		return tierPrefix
	case tokensPrefixed(e.tokens, qTokens):
		return tierTokenPrefix
	case strings.Contains(e.compact, qCompact):
		return tierSubstring
	}

	sim := similarity(qCompact, e.compact)
	if len(qTokens) == 1 {
		for _, t := range e.tokens {
			if s := similarity(qCompact, t); s > sim {
				sim = s
			}
		}
	}
	if sim < x.threshold {
		return 0
	}
	return tierFuzzy + sim*(tierSubstring-tierFuzzy)*0.999
}

// tokensPrefixed reports whether every query token prefixes a distinct
// entity token, in order.
func tokensPrefixed(tokens, query []string) bool {
	j := 0
	for _, t := range tokens {
		if j < len(query) && strings.HasPrefix(t, query[j]) {
			j++
		}
	}
	return j == len(query)
}

// similarity is 1 - distance/maxRunes, in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	sim := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

// fold applies NFKC and Unicode case folding to the trimmed name.
func fold(s string) string {
	return foldCaser.String(norm.NFKC.String(strings.TrimSpace(s)))
}

// tokenize folds s and splits on anything that is not a letter or digit.
func tokenize(s string) []string {
	s = fold(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
