package cs2

import (
	"github.com/mhso/IntFar-sub002/internal/award"
	"github.com/mhso/IntFar-sub002/internal/betting"
	"github.com/mhso/IntFar-sub002/internal/match"
)

// Game-specific stat keys
const (
	StatKDA         = "kda"
	StatADR         = "adr"
	StatHeadshotPct = "hs_pct"
	StatMVPs        = "mvps"
	StatScore       = "score"
	StatAces        = "aces"
	StatQuads       = "quads"
)

// Criterion bit positions
const (
	CriterionKDA = iota
	CriterionDeaths
	CriterionADR
	CriterionScore
)

// Highlight bit positions
const (
	HighlightKills = iota
	HighlightADR
	HighlightAce
	HighlightHeadshots
	HighlightMVPs
	HighlightQuads
)

func kda(p match.PlayerStats, _ *match.Data) float64 { return p.KDA() }

// NewQualifier returns the Counter-Strike 2 award rules
func NewQualifier() *award.Qualifier {
	return award.New(
		[]award.Criterion{
			award.LowestBelow("kda", kda, 1.0, nil),
			award.HighestAbove("deaths", award.Stat(match.StatDeaths), 22, nil),
			award.LowestBelow("adr", award.Stat(StatADR), 50, nil),
			award.LowestBelow("score", award.Stat(StatScore), 20, nil),
		},
		[]award.Highlight{
			award.AtLeast("kills", award.Stat(match.StatKills), 30),
			award.AtLeast("adr", award.Stat(StatADR), 150),
			award.AtLeast("ace", award.Stat(StatAces), 1),
			award.AtLeast("headshots", award.Stat(StatHeadshotPct), 70),
			award.AtLeast("mvps", award.Stat(StatMVPs), 8),
			award.AtLeast("quads", award.Stat(StatQuads), 2),
		},
	)
}

// NewBets returns the Counter-Strike 2 bet events
func NewBets() *betting.Resolver {
	return betting.NewResolver([]betting.Event{
		{ID: "game_win", Description: "Win the game", Kind: betting.KindOutcome, Outcome: match.OutcomeWin, BaseRate: 0.45},
		{ID: "game_loss", Description: "Lose the game", Kind: betting.KindOutcome, Outcome: match.OutcomeLoss, BaseRate: 0.45},
		{ID: "game_tie", Description: "Tie the game", Kind: betting.KindOutcome, Outcome: match.OutcomeTie, BaseRate: 0.1},
		{ID: "no_intfar", Description: "No one is Int-Far", Kind: betting.KindNegative, None: true, BaseRate: 0.3},
		{ID: "intfar", Description: "Someone is Int-Far", Kind: betting.KindNegative, Reason: betting.AnyReason, BaseRate: 0.7, Targeted: true},
		{ID: "intfar_kda", Description: "Int-Far by low KDA", Kind: betting.KindNegative, Reason: CriterionKDA, BaseRate: 0.4, Targeted: true},
		{ID: "intfar_deaths", Description: "Int-Far by many deaths", Kind: betting.KindNegative, Reason: CriterionDeaths, BaseRate: 0.2, Targeted: true},
		{ID: "intfar_adr", Description: "Int-Far by low ADR", Kind: betting.KindNegative, Reason: CriterionADR, BaseRate: 0.25, Targeted: true},
		{ID: "intfar_score", Description: "Int-Far by low score", Kind: betting.KindNegative, Reason: CriterionScore, BaseRate: 0.2, Targeted: true},
		{ID: "no_doinks", Description: "No one gets Doinks", Kind: betting.KindHighlight, None: true, BaseRate: 0.6},
		{ID: "doinks", Description: "Someone gets Doinks", Kind: betting.KindHighlight, Reason: betting.AnyReason, BaseRate: 0.4, Targeted: true},
		{ID: "doinks_kills", Description: "Doinks for many kills", Kind: betting.KindHighlight, Reason: HighlightKills, BaseRate: 0.08, Targeted: true},
		{ID: "doinks_adr", Description: "Doinks for high ADR", Kind: betting.KindHighlight, Reason: HighlightADR, BaseRate: 0.08, Targeted: true},
		{ID: "doinks_ace", Description: "Doinks for an ace", Kind: betting.KindHighlight, Reason: HighlightAce, BaseRate: 0.05, Targeted: true},
		{ID: "doinks_headshots", Description: "Doinks for headshot percentage", Kind: betting.KindHighlight, Reason: HighlightHeadshots, BaseRate: 0.1, Targeted: true},
		{ID: "doinks_mvps", Description: "Doinks for many MVPs", Kind: betting.KindHighlight, Reason: HighlightMVPs, BaseRate: 0.1, Targeted: true},
		{ID: "doinks_quads", Description: "Doinks for several 4-kill rounds", Kind: betting.KindHighlight, Reason: HighlightQuads, BaseRate: 0.05, Targeted: true},
		{ID: "most_kills", Description: "Most kills", Kind: betting.KindExtreme, Stat: match.StatKills, BaseRate: 0.9, Targeted: true, RequiresTarget: true},
		{ID: "highest_adr", Description: "Highest ADR", Kind: betting.KindExtreme, Stat: StatADR, BaseRate: 1, Targeted: true, RequiresTarget: true},
		{ID: "most_mvps", Description: "Most MVPs", Kind: betting.KindExtreme, Stat: StatMVPs, BaseRate: 0.8, Targeted: true, RequiresTarget: true},
		{ID: "fewest_deaths", Description: "Fewest deaths", Kind: betting.KindExtreme, Stat: match.StatDeaths, Lowest: true, BaseRate: 0.7, Targeted: true, RequiresTarget: true},
	})
}
