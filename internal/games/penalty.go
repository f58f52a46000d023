package games

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/tradege/stek-sub008/internal/engine"
)

// PenaltyGame is the multi-round shootout: each round the player picks
// a shot direction, the keeper's dive is derived from the seed pair,
// and a matching dive is a save (loss). It settles through the session
// orchestrator.
type PenaltyGame struct{}

const (
	penaltyTag = GamePenalty

	// PenaltyDirections are the shot choices per kick: 0 left,
	// 1 center, 2 right.
	PenaltyDirections = 3
	// PenaltyMaxRounds auto-resolves a session as a win.
	PenaltyMaxRounds = 5
)

func (g *PenaltyGame) Spec() GameSpec {
	return GameSpec{
		ID:           penaltyTag,
		Name:         "Penalty",
		OutcomeLabel: "keeper_dives",
		MultiRound:   true,
	}
}

// KeeperDirection derives the keeper's dive for one shootout round.
// Round r consumes subIndex r, so replays of a partial session stay
// aligned with the rounds already played.
func KeeperDirection(seeds Seeds, nonce uint64, round int) int {
	raw := engine.DeriveAt(seeds.Server, seeds.Client, nonce, penaltyTag, round)
	return engine.Reduce(raw, PenaltyDirections)
}

// PenaltyMultiplier returns the accumulated multiplier after `scored`
// successful kicks. Each kick survives with probability 2/3, so the
// per-round factor is (1-edge)/(2/3).
func PenaltyMultiplier(scored int, cfg Config) (decimal.Decimal, error) {
	if scored < 0 || scored > PenaltyMaxRounds {
		return decimal.Zero, fmt.Errorf("scored rounds must be between 0 and %d, got %d", PenaltyMaxRounds, scored)
	}
	if scored == 0 {
		return decimal.NewFromInt(1), nil
	}

	perRound := (1 - cfg.HouseEdge) * PenaltyDirections / (PenaltyDirections - 1)
	return FinishMultiplier(math.Pow(perRound, float64(scored)), cfg.MaxMultiplier)
}

// Evaluate exposes the derived keeper dives for verification.
// Settlement of shootouts happens in the session orchestrator.
func (g *PenaltyGame) Evaluate(seeds Seeds, nonce uint64, cfg Config, params Params) (Result, error) {
	dives := make([]int, PenaltyMaxRounds)
	for r := range dives {
		dives[r] = KeeperDirection(seeds, nonce, r)
	}

	return Result{
		Outcome:      float64(dives[0]),
		OutcomeLabel: "keeper_dives",
		Multiplier:   decimal.Zero,
		Details: map[string]any{
			"keeper_dives": dives,
			"max_rounds":   PenaltyMaxRounds,
		},
	}, nil
}
