package stratz

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/herobot/internal/domain/types"
)

// Query binds a GraphQL document to the decoder of its result type.
type Query[T any] struct {
	Name     string
	Document string
	decode   func(data []byte) (T, Kind, error)
}

// NewQuery builds a query whose data member is decoded into the wire type W,
// checked for required fields and converted to T.
func NewQuery[W any, T any](name, document string, convert func(*W) T) Query[T] {
	return Query[T]{
		Name:     name,
		Document: document,
		decode: func(data []byte) (T, Kind, error) {
			var zero T
			var wire W
			if err := json.Unmarshal(data, &wire); err != nil {
				return zero, KindDecode, err
			}
			if err := checkRequired(&wire); err != nil {
				return zero, KindSchema, err
			}
			return convert(&wire), "", nil
		},
	}
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func checkRequired(wire any) error {
	err := validate.Struct(wire)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		names := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			names = append(names, fe.Namespace())
		}
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(names, ", "))
	}
	return err
}

// Hero static stats.

type heroConstantsWire struct {
	Constants *struct {
		Hero *struct {
			Stats *heroStatsWire `json:"stats" validate:"required"`
		} `json:"hero" validate:"required"`
	} `json:"constants" validate:"required"`
}

type heroStatsWire struct {
	AttackType        *string  `json:"attackType" validate:"required"`
	StartingArmor     *float64 `json:"startingArmor" validate:"required"`
	StartingDamageMin *float64 `json:"startingDamageMin" validate:"required"`
	StartingDamageMax *float64 `json:"startingDamageMax" validate:"required"`
	AttackRate        *float64 `json:"attackRate" validate:"required"`
	AttackRange       *float64 `json:"attackRange" validate:"required"`
	PrimaryAttribute  *string  `json:"primaryAttribute" validate:"required"`
	StrengthBase      *uint16  `json:"strengthBase" validate:"required"`
	StrengthGain      *float64 `json:"strengthGain" validate:"required"`
	IntelligenceBase  *uint16  `json:"intelligenceBase" validate:"required"`
	IntelligenceGain  *float64 `json:"intelligenceGain" validate:"required"`
	AgilityBase       *uint16  `json:"agilityBase" validate:"required"`
	AgilityGain       *float64 `json:"agilityGain" validate:"required"`
	HPRegen           *float64 `json:"hpRegen" validate:"required"`
	MPRegen           *float64 `json:"mpRegen" validate:"required"`
	MoveSpeed         *float64 `json:"moveSpeed" validate:"required"`
	MoveTurnRate      *float64 `json:"moveTurnRate" validate:"required"`
}

func (w *heroConstantsWire) stats() types.HeroStats {
	s := w.Constants.Hero.Stats
	return types.HeroStats{
		AttackType:        *s.AttackType,
		StartingArmor:     *s.StartingArmor,
		StartingDamageMin: *s.StartingDamageMin,
		StartingDamageMax: *s.StartingDamageMax,
		AttackRate:        *s.AttackRate,
		AttackRange:       *s.AttackRange,
		PrimaryAttribute:  *s.PrimaryAttribute,
		StrengthBase:      int(*s.StrengthBase),
		StrengthGain:      *s.StrengthGain,
		IntelligenceBase:  int(*s.IntelligenceBase),
		IntelligenceGain:  *s.IntelligenceGain,
		AgilityBase:       int(*s.AgilityBase),
		AgilityGain:       *s.AgilityGain,
		HPRegen:           *s.HPRegen,
		MPRegen:           *s.MPRegen,
		MoveSpeed:         *s.MoveSpeed,
		MoveTurnRate:      *s.MoveTurnRate,
	}
}

// Weekly win counts.

type winWeekWire struct {
	HeroStats *struct {
		WinWeek []winCountWire `json:"winWeek" validate:"required,dive"`
	} `json:"heroStats" validate:"required"`
}

type winCountWire struct {
	WinCount   *float64 `json:"winCount" validate:"required"`
	MatchCount *float64 `json:"matchCount" validate:"required"`
}

func (w *winWeekWire) samples() []types.WinSample {
	out := make([]types.WinSample, 0, len(w.HeroStats.WinWeek))
	for _, p := range w.HeroStats.WinWeek {
		out = append(out, types.WinSample{WinCount: *p.WinCount, MatchCount: *p.MatchCount})
	}
	return out
}

// Matchups.

// Matchups is the decoded matchup payload for one hero: teammates (With)
// and opponents (Vs) in the order the service returned them.
type Matchups struct {
	With []types.MatchupEntry
	Vs   []types.MatchupEntry
}

type matchupsWire struct {
	HeroStats *struct {
		MatchUp []matchupSetWire `json:"matchUp" validate:"required,min=1,dive"`
	} `json:"heroStats" validate:"required"`
}

type matchupSetWire struct {
	With []matchupWire `json:"with" validate:"required,dive"`
	Vs   []matchupWire `json:"vs" validate:"required,dive"`
}

type matchupWire struct {
	HeroID2     *uint8   `json:"heroId2" validate:"required"`
	WinsAverage *float64 `json:"winsAverage" validate:"required"`
}

func (w *matchupsWire) matchups() Matchups {
	set := w.HeroStats.MatchUp[0]
	return Matchups{With: entries(set.With), Vs: entries(set.Vs)}
}

func entries(in []matchupWire) []types.MatchupEntry {
	out := make([]types.MatchupEntry, 0, len(in))
	for _, m := range in {
		out = append(out, types.MatchupEntry{HeroID: *m.HeroID2, WinShare: *m.WinsAverage})
	}
	return out
}

const heroStatsDocument = `query HeroStats($id: Short!) {
  constants {
    hero(id: $id) {
      stats {
        attackType startingArmor startingDamageMin startingDamageMax
        attackRate attackRange primaryAttribute
        strengthBase strengthGain intelligenceBase intelligenceGain agilityBase agilityGain
        hpRegen mpRegen moveSpeed moveTurnRate
      }
    }
  }
}`

const winWeekDocument = `query WinWeek($id: Short!) {
  heroStats {
    winWeek(heroIds: [$id]) { winCount matchCount }
  }
}`

const matchupsDocument = `query Matchups($id: Short!) {
  heroStats {
    matchUp(heroId: $id, take: 130, orderBy: 0) {
      with { heroId2 winsAverage }
      vs { heroId2 winsAverage }
    }
  }
}`

const disadvantageDocument = `query Disadvantage($id: Short!) {
  heroStats {
    matchUp(heroId: $id, take: 130, orderBy: 1) {
      with { heroId2 winsAverage }
      vs { heroId2 winsAverage }
    }
  }
}`

// Queries used by the bot.
var (
	HeroStatsQuery    = NewQuery("hero_stats", heroStatsDocument, (*heroConstantsWire).stats)
	WinWeekQuery      = NewQuery("win_week", winWeekDocument, (*winWeekWire).samples)
	MatchupsQuery     = NewQuery("matchups", matchupsDocument, (*matchupsWire).matchups)
	DisadvantageQuery = NewQuery("disadvantage", disadvantageDocument, (*matchupsWire).matchups)
)
