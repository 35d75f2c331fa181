// Package ranking turns raw matchup and win/match samples into ranked,
// size-bounded views for presentation.
//
// Lists shorter than the requested size are a normal case: every function
// returns min(n, available) entries and never indexes past the input.
package ranking

import (
	"fmt"
	"sort"

	"github.com/okian/herobot/internal/domain/types"
)

// Default ranking configuration constants.
const (
	DefaultTopN          = 5
	DefaultWinRateWindow = 4
	percent              = 100
)

// Labels used for the three matchup views.
const (
	LabelBestWith     = "Best with"
	LabelBestAgainst  = "Best against"
	LabelWorstAgainst = "Worst against"
)

// Direction is the sort order of a ranked list.
type Direction int

const (
	// Descending puts the highest win share first.
	Descending Direction = iota
	// Ascending puts the lowest win share first.
	Ascending
)

// Namer resolves a hero id to its display name.
type Namer interface {
	Name(id uint8) (string, error)
}

// Top returns the first min(n, len(entries)) entries sorted by win share in
// the given direction. Equal win shares keep their input order. The input
// slice is not modified.
func Top(entries []types.MatchupEntry, n int, dir Direction) []types.MatchupEntry {
	if n <= 0 || len(entries) == 0 {
		return []types.MatchupEntry{}
	}
	sorted := make([]types.MatchupEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if dir == Ascending {
			return sorted[i].WinShare < sorted[j].WinShare
		}
		return sorted[i].WinShare > sorted[j].WinShare
	})
	return sorted[:min(n, len(sorted))]
}

// Matchups holds the three unnamed matchup views.
type Matchups struct {
	BestWith     []types.MatchupEntry
	BestAgainst  []types.MatchupEntry
	WorstAgainst []types.MatchupEntry
}

// Rank builds the three views: synergy and advantage from the first query,
// sorted descending, and disadvantage from the second query's vs list,
// sorted ascending.
func Rank(with, vs, worstVs []types.MatchupEntry, n int) Matchups {
	return Matchups{
		BestWith:     Top(with, n, Descending),
		BestAgainst:  Top(vs, n, Descending),
		WorstAgainst: Top(worstVs, n, Ascending),
	}
}

// Label attaches display names and converts win shares to percentages.
// An id the namer does not know yields an error wrapping the namer's error.
func Label(label string, entries []types.MatchupEntry, names Namer) (types.RankedList, error) {
	out := types.RankedList{
		Label:   label,
		Entries: make([]types.RankedEntry, 0, len(entries)),
	}
	for _, e := range entries {
		name, err := names.Name(e.HeroID)
		if err != nil {
			return types.RankedList{}, fmt.Errorf("%s: %w", label, err)
		}
		out.Entries = append(out.Entries, types.RankedEntry{
			HeroID:          e.HeroID,
			Name:            name,
			WinSharePercent: e.WinShare * percent,
		})
	}
	return out, nil
}

// Window is the result of aggregating win/match samples.
type Window struct {
	Periods        int
	Wins           float64
	Matches        float64
	WinRatePercent float64
}

// WinRate sums the first min(window, len(samples)) samples and returns
// 100 * wins / matches. A window without matches returns ErrNoData.
func WinRate(samples []types.WinSample, window int) (Window, error) {
	if window <= 0 {
		return Window{}, fmt.Errorf("%w: window %d", ErrInvalidWindow, window)
	}
	w := Window{Periods: min(window, len(samples))}
	for _, s := range samples[:w.Periods] {
		w.Wins += s.WinCount
		w.Matches += s.MatchCount
	}
	if w.Matches <= 0 {
		return w, fmt.Errorf("%w: %d periods without matches", ErrNoData, w.Periods)
	}
	w.WinRatePercent = percent * w.Wins / w.Matches
	return w, nil
}
