// Package types contains common types used across the application
package types

// Entity is a hero from the catalog.
type Entity struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
}

// MatchupEntry is one row of a matchup set: the other hero and the
// fraction of games won (nominally 0..1).
type MatchupEntry struct {
	HeroID   uint8   `json:"hero_id"`
	WinShare float64 `json:"win_share"`
}

// WinSample is one period of win/match counts.
type WinSample struct {
	WinCount   float64 `json:"win_count"`
	MatchCount float64 `json:"match_count"`
}

// RankedEntry is a matchup entry ready for display.
type RankedEntry struct {
	HeroID          uint8   `json:"hero_id"`
	Name            string  `json:"name"`
	WinSharePercent float64 `json:"win_share_percent"`
}

// RankedList is a labelled, size-bounded list of ranked entries.
type RankedList struct {
	Label   string        `json:"label"`
	Entries []RankedEntry `json:"entries"`
}

// MatchupReport groups the three ranked views produced for one hero.
type MatchupReport struct {
	Hero         Entity     `json:"hero"`
	BestWith     RankedList `json:"best_with"`
	BestAgainst  RankedList `json:"best_against"`
	WorstAgainst RankedList `json:"worst_against"`
}

// WinRateReport is the windowed win rate of a hero.
type WinRateReport struct {
	Hero           Entity  `json:"hero"`
	Periods        int     `json:"periods"`
	Wins           float64 `json:"wins"`
	Matches        float64 `json:"matches"`
	WinRatePercent float64 `json:"win_rate_percent"`
}

// HeroStats holds the static attributes of a hero.
type HeroStats struct {
	AttackType        string  `json:"attack_type"`
	StartingArmor     float64 `json:"starting_armor"`
	StartingDamageMin float64 `json:"starting_damage_min"`
	StartingDamageMax float64 `json:"starting_damage_max"`
	AttackRate        float64 `json:"attack_rate"`
	AttackRange       float64 `json:"attack_range"`
	PrimaryAttribute  string  `json:"primary_attribute"`
	StrengthBase      int     `json:"strength_base"`
	StrengthGain      float64 `json:"strength_gain"`
	IntelligenceBase  int     `json:"intelligence_base"`
	IntelligenceGain  float64 `json:"intelligence_gain"`
	AgilityBase       int     `json:"agility_base"`
	AgilityGain       float64 `json:"agility_gain"`
	HPRegen           float64 `json:"hp_regen"`
	MPRegen           float64 `json:"mp_regen"`
	MoveSpeed         float64 `json:"move_speed"`
	MoveTurnRate      float64 `json:"move_turn_rate"`
}

// HeroStatsReport pairs a hero with its static stats.
type HeroStatsReport struct {
	Hero  Entity    `json:"hero"`
	Stats HeroStats `json:"stats"`
}
