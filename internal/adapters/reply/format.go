package reply

import (
	"fmt"
	"strings"

	"github.com/okian/herobot/internal/domain/types"
)

// FormatMatchups renders the three ranked lists of a matchup report.
func FormatMatchups(r types.MatchupReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** matchups\n", r.Hero.Name)
	for _, list := range []types.RankedList{r.BestWith, r.BestAgainst, r.WorstAgainst} {
		writeList(&b, list)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, list types.RankedList) {
	fmt.Fprintf(b, "\n%s:\n", list.Label)
	if len(list.Entries) == 0 {
		b.WriteString("  no data\n")
		return
	}
	for i, e := range list.Entries {
		fmt.Fprintf(b, "  %d. %s %.2f%%\n", i+1, e.Name, e.WinSharePercent)
	}
}

// FormatWinRate renders a windowed win rate.
func FormatWinRate(r types.WinRateReport) string {
	return fmt.Sprintf("**%s** win rate over the last %d weeks: %.2f%% (%.0f wins / %.0f matches)",
		r.Hero.Name, r.Periods, r.WinRatePercent, r.Wins, r.Matches)
}

// FormatHeroStats renders static hero stats.
func FormatHeroStats(r types.HeroStatsReport) string {
	s := r.Stats
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", r.Hero.Name)
	fmt.Fprintf(&b, "Attack type: %s\n", s.AttackType)
	fmt.Fprintf(&b, "Primary attribute: %s\n", s.PrimaryAttribute)
	fmt.Fprintf(&b, "Damage: %g-%g\n", s.StartingDamageMin, s.StartingDamageMax)
	fmt.Fprintf(&b, "Armor: %g\n", s.StartingArmor)
	fmt.Fprintf(&b, "Attack rate: %g, range: %g\n", s.AttackRate, s.AttackRange)
	fmt.Fprintf(&b, "Strength: %d + %g\n", s.StrengthBase, s.StrengthGain)
	fmt.Fprintf(&b, "Agility: %d + %g\n", s.AgilityBase, s.AgilityGain)
	fmt.Fprintf(&b, "Intelligence: %d + %g\n", s.IntelligenceBase, s.IntelligenceGain)
	fmt.Fprintf(&b, "HP regen: %g, MP regen: %g\n", s.HPRegen, s.MPRegen)
	fmt.Fprintf(&b, "Move speed: %g, turn rate: %g", s.MoveSpeed, s.MoveTurnRate)
	return b.String()
}

// FormatSearch renders search candidates, best first.
func FormatSearch(query string, found []types.Entity) string {
	if len(found) == 0 {
		return fmt.Sprintf("No hero matches %q", query)
	}
	names := make([]string, len(found))
	for i, e := range found {
		names[i] = fmt.Sprintf("%s (%d)", e.Name, e.ID)
	}
	return fmt.Sprintf("Heroes matching %q: %s", query, strings.Join(names, ", "))
}
