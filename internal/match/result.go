package match

import "time"

// Status is the terminal classification of a tracked match.
type Status string

const (
	StatusOK         Status = "ok"
	StatusTooShort   Status = "too_short"
	StatusCustomGame Status = "custom_game"
	StatusSolo       Status = "solo"
	StatusDuplicate  Status = "duplicate"
	StatusMissing    Status = "missing"
	StatusError      Status = "error"
	StatusMalformed  Status = "malformed"
)

// Scored reports whether the status leads to award and bet resolution.
func (s Status) Scored() bool { return s == StatusOK }

// Ledgered reports whether the status is written to the missed-matches
// ledger for manual recovery.
func (s Status) Ledgered() bool {
	return s == StatusError || s == StatusMissing || s == StatusMalformed
}

// Award is one award given to one player, with the criteria bitstring that
// records which criteria were met ('1') or not ('0').
type Award struct {
	DiscordID int64
	Criteria  string
	Points    int
}

// Met reports whether criterion i is set in the bitstring.
func (a Award) Met(i int) bool {
	return i >= 0 && i < len(a.Criteria) && a.Criteria[i] == '1'
}

// AwardRecord holds the award outcome of one match.
type AwardRecord struct {
	// Negative is nil when no player met any criterion.
	Negative   *Award
	Highlights []Award
	// Values holds the qualifying stat value per negative criterion index.
	Values map[int]float64
}

// HighlightFor returns the highlight award of a player, if any.
func (r AwardRecord) HighlightFor(discordID int64) (Award, bool) {
	for _, h := range r.Highlights {
		if h.DiscordID == discordID {
			return h, true
		}
	}
	return Award{}, false
}

// WagerResult is the lifecycle state of a wager.
type WagerResult string

const (
	WagerPending WagerResult = "pending"
	WagerWon     WagerResult = "won"
	WagerLost    WagerResult = "lost"
)

// Wager is a single bet inside a ticket.
type Wager struct {
	ID        int64
	TicketID  string
	DiscordID int64
	GuildID   string
	Game      GameType
	EventID   string
	// TargetID is 0 for untargeted wagers.
	TargetID int64
	Amount   int
	// Offset is how far into the match the wager was placed; 0 means
	// before the match started.
	Offset   time.Duration
	Result   WagerResult
	PlacedAt time.Time
}

// Targeted reports whether the wager names a specific player.
func (w Wager) Targeted() bool { return w.TargetID != 0 }

// Ticket groups wagers placed in one command.
type Ticket struct {
	ID        string
	DiscordID int64
	GuildID   string
	Game      GameType
	// MatchID is set once the ticket is resolved or held for a match.
	MatchID string
	Wagers  []Wager
}

// PlacedAt returns when the ticket was placed.
func (t Ticket) PlacedAt() time.Time {
	if len(t.Wagers) == 0 {
		return time.Time{}
	}
	return t.Wagers[0].PlacedAt
}

// Stake is the total amount staked on the ticket.
func (t Ticket) Stake() int {
	total := 0
	for _, w := range t.Wagers {
		total += w.Amount
	}
	return total
}

// BetOutcome is the resolution of one ticket against a finished match.
type BetOutcome struct {
	TicketID  string
	DiscordID int64
	Won       bool
	Payout    int
	// Wins holds the per-wager outcome keyed by wager id.
	Wins map[int64]bool
}

// StatRecord is a newly beaten record.
type StatRecord struct {
	Stat           string
	Value          float64
	Holder         int64
	PreviousValue  float64
	PreviousHolder int64
}

// Result is produced once per terminal match and never mutated after it
// is handed to the dispatcher.
type Result struct {
	Status  Status
	Game    GameType
	GuildID string
	MatchID string
	// EndedAt is when the monitor saw the match end. Tickets placed later
	// belong to the guild's next match.
	EndedAt    time.Time
	ResolvedAt time.Time
	Data       *Data
	Awards     *AwardRecord
	Bets       []BetOutcome
	Records    []StatRecord
	// Events lists the untargeted bet events that happened in the match.
	Events []string
	// Err carries the last upstream or storage error, if any.
	Err error
}
