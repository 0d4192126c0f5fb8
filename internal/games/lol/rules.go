package lol

import (
	"github.com/mhso/IntFar-sub002/internal/award"
	"github.com/mhso/IntFar-sub002/internal/betting"
	"github.com/mhso/IntFar-sub002/internal/match"
)

// Game-specific stat keys
const (
	StatKDA               = "kda"
	StatDamage            = "damage"
	StatVisionScore       = "vision_score"
	StatKillParticipation = "kill_participation" // percent
	StatCSPerMin          = "cs_per_min"
	StatPentaKills        = "penta_kills"
)

// Criterion thresholds
const (
	lowKDA     = 1.3
	manyDeaths = 9
	lowKP      = 20
	lowVision  = 11
	modeARAM   = "ARAM"
)

// Criterion bit positions
const (
	CriterionKDA = iota
	CriterionDeaths
	CriterionKP
	CriterionVision
)

// Highlight bit positions
const (
	HighlightKDA = iota
	HighlightKills
	HighlightDamage
	HighlightPenta
	HighlightVision
	HighlightKP
	HighlightCS
)

func kda(p match.PlayerStats, _ *match.Data) float64 { return p.KDA() }

// vision is meaningless on the single-lane map
func notARAM(d *match.Data) bool { return d.Mode != modeARAM }

// NewQualifier returns the League of Legends award rules
func NewQualifier() *award.Qualifier {
	return award.New(
		[]award.Criterion{
			award.LowestBelow("kda", kda, lowKDA, nil),
			award.HighestAbove("deaths", award.Stat(match.StatDeaths), manyDeaths, nil),
			award.LowestBelow("kill_participation", award.Stat(StatKillParticipation), lowKP, nil),
			award.LowestBelow("vision_score", award.Stat(StatVisionScore), lowVision, notARAM),
		},
		[]award.Highlight{
			award.AtLeast("kda", kda, 10),
			award.AtLeast("kills", award.Stat(match.StatKills), 20),
			award.AtLeast("damage", award.Stat(StatDamage), 60000),
			award.AtLeast("penta", award.Stat(StatPentaKills), 1),
			award.AtLeast("vision_score", award.Stat(StatVisionScore), 100),
			award.AtLeast("kill_participation", award.Stat(StatKillParticipation), 80),
			award.AtLeast("cs_per_min", award.Stat(StatCSPerMin), 8),
		},
	)
}

// NewBets returns the League of Legends bet events
func NewBets() *betting.Resolver {
	return betting.NewResolver([]betting.Event{
		{ID: "game_win", Description: "Win the game", Kind: betting.KindOutcome, Outcome: match.OutcomeWin, BaseRate: 0.5},
		{ID: "game_loss", Description: "Lose the game", Kind: betting.KindOutcome, Outcome: match.OutcomeLoss, BaseRate: 0.5},
		{ID: "no_intfar", Description: "No one is Int-Far", Kind: betting.KindNegative, None: true, BaseRate: 0.25},
		{ID: "intfar", Description: "Someone is Int-Far", Kind: betting.KindNegative, Reason: betting.AnyReason, BaseRate: 0.75, Targeted: true},
		{ID: "intfar_kda", Description: "Int-Far by low KDA", Kind: betting.KindNegative, Reason: CriterionKDA, BaseRate: 0.35, Targeted: true},
		{ID: "intfar_deaths", Description: "Int-Far by many deaths", Kind: betting.KindNegative, Reason: CriterionDeaths, BaseRate: 0.3, Targeted: true},
		{ID: "intfar_kp", Description: "Int-Far by low kill participation", Kind: betting.KindNegative, Reason: CriterionKP, BaseRate: 0.2, Targeted: true},
		{ID: "intfar_vision", Description: "Int-Far by low vision score", Kind: betting.KindNegative, Reason: CriterionVision, BaseRate: 0.25, Targeted: true},
		{ID: "no_doinks", Description: "No one gets Doinks", Kind: betting.KindHighlight, None: true, BaseRate: 0.6},
		{ID: "doinks", Description: "Someone gets Doinks", Kind: betting.KindHighlight, Reason: betting.AnyReason, BaseRate: 0.4, Targeted: true},
		{ID: "doinks_kda", Description: "Doinks for high KDA", Kind: betting.KindHighlight, Reason: HighlightKDA, BaseRate: 0.1, Targeted: true},
		{ID: "doinks_kills", Description: "Doinks for many kills", Kind: betting.KindHighlight, Reason: HighlightKills, BaseRate: 0.1, Targeted: true},
		{ID: "doinks_damage", Description: "Doinks for high damage", Kind: betting.KindHighlight, Reason: HighlightDamage, BaseRate: 0.05, Targeted: true},
		{ID: "doinks_penta", Description: "Doinks for a pentakill", Kind: betting.KindHighlight, Reason: HighlightPenta, BaseRate: 0.01, Targeted: true},
		{ID: "doinks_vision", Description: "Doinks for high vision score", Kind: betting.KindHighlight, Reason: HighlightVision, BaseRate: 0.05, Targeted: true},
		{ID: "doinks_kp", Description: "Doinks for high kill participation", Kind: betting.KindHighlight, Reason: HighlightKP, BaseRate: 0.1, Targeted: true},
		{ID: "doinks_cs", Description: "Doinks for high CS per minute", Kind: betting.KindHighlight, Reason: HighlightCS, BaseRate: 0.08, Targeted: true},
		{ID: "most_kills", Description: "Most kills", Kind: betting.KindExtreme, Stat: match.StatKills, BaseRate: 0.9, Targeted: true, RequiresTarget: true},
		{ID: "most_damage", Description: "Most damage to champions", Kind: betting.KindExtreme, Stat: StatDamage, BaseRate: 1, Targeted: true, RequiresTarget: true},
		{ID: "highest_kda", Description: "Highest KDA", Kind: betting.KindExtreme, Stat: StatKDA, BaseRate: 0.95, Targeted: true, RequiresTarget: true},
		{ID: "fewest_deaths", Description: "Fewest deaths", Kind: betting.KindExtreme, Stat: match.StatDeaths, Lowest: true, BaseRate: 0.7, Targeted: true, RequiresTarget: true},
	})
}
