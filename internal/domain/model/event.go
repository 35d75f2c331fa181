// Package model contains domain models passed between layers.
package model

import "time"

// Command names understood by the bot.
const (
	CommandMatchup     = "matchup"
	CommandWinRate     = "winrate"
	CommandHeroStats   = "herostats"
	CommandHeroStatsID = "herostats_id"
	CommandSearch      = "search"
)

// Command is one chat command invocation.
type Command struct {
	ID       string    // unique id for idempotency
	Name     string    // command name, e.g. "matchup"
	Hero     string    // free-text hero name typed by the user
	HeroID   uint8     // raw hero id, only read by herostats_id
	Received time.Time // when the command arrived
}

// Known reports whether name is a supported command.
func Known(name string) bool {
	switch name {
	case CommandMatchup, CommandWinRate, CommandHeroStats, CommandHeroStatsID, CommandSearch:
		return true
	}
	return false
}

// NeedsHero reports whether the command resolves a free-text hero name.
func (c Command) NeedsHero() bool {
	return c.Name != CommandHeroStatsID
}
