package games

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradege/stek-sub008/internal/engine"
)

// MinesGame is the 5x5 grid mine-avoidance game. It settles through
// the session orchestrator; the registry entry serves fairness
// verification of the derived mine layout.
type MinesGame struct{}

const (
	minesTag        = GameMines
	MinesTotalTiles = 25
	MinesMinCount   = 1
	MinesMaxCount   = 24
)

func (g *MinesGame) Spec() GameSpec {
	return GameSpec{
		ID:           minesTag,
		Name:         "Mines",
		OutcomeLabel: "mine_positions",
		MultiRound:   true,
	}
}

// MinePositions derives the mineCount distinct mine tiles for a round.
// The candidate pool shrinks per draw so positions never collide.
func MinePositions(seeds Seeds, nonce uint64, mineCount int) ([]int, error) {
	if mineCount < MinesMinCount || mineCount > MinesMaxCount {
		return nil, fmt.Errorf("mine count must be between %d and %d, got %d", MinesMinCount, MinesMaxCount, mineCount)
	}
	return engine.SampleWithoutReplacement(seeds.Server, seeds.Client, nonce, minesTag, MinesTotalTiles, mineCount), nil
}

// MinesWinChance is the exact probability of revealing `revealed` safe
// tiles before hitting any of `mineCount` mines: a product of
// shrinking-pool ratios.
func MinesWinChance(mineCount, revealed int) (float64, error) {
	if mineCount < MinesMinCount || mineCount > MinesMaxCount {
		return 0, fmt.Errorf("mine count must be between %d and %d, got %d", MinesMinCount, MinesMaxCount, mineCount)
	}
	if revealed < 0 {
		return 0, fmt.Errorf("reveal count must not be negative, got %d", revealed)
	}

	safe := MinesTotalTiles - mineCount
	if revealed > safe {
		return 0, nil
	}

	chance := 1.0
	for i := 0; i < revealed; i++ {
		chance *= float64(safe-i) / float64(MinesTotalTiles-i)
	}
	return chance, nil
}

// MinesMultiplier returns the accumulated multiplier after `revealed`
// successful reveals. Zero reveals is exactly 1 (break-even); a reveal
// count beyond the safe-tile ceiling is a guaranteed-loss state and
// yields 0.
func MinesMultiplier(mineCount, revealed int, cfg Config) (decimal.Decimal, error) {
	if revealed == 0 {
		if _, err := MinesWinChance(mineCount, 0); err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromInt(1), nil
	}

	chance, err := MinesWinChance(mineCount, revealed)
	if err != nil {
		return decimal.Zero, err
	}
	if chance == 0 {
		return decimal.Zero, nil
	}
	return FinishMultiplier((1-cfg.HouseEdge)/chance, cfg.MaxMultiplier)
}

// Evaluate exposes the derived layout for verification. Settlement of
// mines rounds happens in the session orchestrator.
func (g *MinesGame) Evaluate(seeds Seeds, nonce uint64, cfg Config, params Params) (Result, error) {
	mineCount, ok := paramInt(params, "mineCount", "mines")
	if !ok {
		mineCount = 3
	}

	positions, err := MinePositions(seeds, nonce, mineCount)
	if err != nil {
		return Result{}, err
	}

	first := MinesTotalTiles
	for _, p := range positions {
		if p < first {
			first = p
		}
	}

	return Result{
		Outcome:      float64(first),
		OutcomeLabel: "first_mine",
		Multiplier:   decimal.Zero,
		Details: map[string]any{
			"mine_count":     mineCount,
			"mine_positions": positions,
		},
	}, nil
}
