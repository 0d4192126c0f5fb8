package storage

import (
	"time"

	"github.com/mhso/IntFar-sub002/internal/match"
)

// GuildSettings stores per-server configuration
type GuildSettings struct {
	GuildID               string
	NotificationChannelID string
	CreatedAt             time.Time
}

// MissedMatch is a match whose outcome could not be stored
type MissedMatch struct {
	Game     match.GameType
	MatchID  string
	GuildID  string
	MissedAt time.Time
}

// Streak is a player's current run of identical outcomes in one game
type Streak struct {
	Outcome match.Outcome
	Length  int
}

// ticket lifecycle states
const (
	ticketPending   = "pending"
	ticketWon       = "won"
	ticketLost      = "lost"
	ticketCancelled = "cancelled"
	// ticketHeld marks tickets of a match that could not be scored. They
	// wait for manual reconciliation and never resolve against a later match.
	ticketHeld = "held"
)

// AwardCount is the number of negative awards of one player
type AwardCount struct {
	DiscordID int64
	Count     int
}
