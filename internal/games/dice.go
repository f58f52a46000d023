package games

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/tradege/stek-sub008/internal/engine"
)

// DiceGame is the classic under/over threshold roll.
type DiceGame struct{}

const (
	diceTag       = GameDice
	diceMinTarget = 0.01
	diceMaxTarget = 99.99

	// ConditionUnder wins when the roll is strictly below the target.
	ConditionUnder = "under"
	// ConditionOver wins when the roll is strictly above the target.
	ConditionOver = "over"
)

func (g *DiceGame) Spec() GameSpec {
	return GameSpec{
		ID:           diceTag,
		Name:         "Dice",
		OutcomeLabel: "roll",
	}
}

// Roll derives the round's roll: 10,001 discrete outcomes from 0.00
// to 100.00 inclusive.
func (g *DiceGame) Roll(seeds Seeds, nonce uint64) float64 {
	raw := engine.Derive(seeds.Server, seeds.Client, nonce, diceTag)
	return math.Floor(engine.Fraction(raw)*10001) / 100
}

// WinChance returns the win probability for a target and condition.
func DiceWinChance(target float64, condition string) (float64, error) {
	if target < diceMinTarget || target > diceMaxTarget {
		return 0, fmt.Errorf("dice target must be between %.2f and %.2f, got %v", diceMinTarget, diceMaxTarget, target)
	}
	switch condition {
	case ConditionUnder:
		return target / 100, nil
	case ConditionOver:
		return (100 - target) / 100, nil
	default:
		return 0, fmt.Errorf("dice condition must be %q or %q, got %q", ConditionUnder, ConditionOver, condition)
	}
}

// DiceMultiplier returns the quoted payout multiplier for a target,
// condition and house edge.
func DiceMultiplier(target float64, condition string, cfg Config) (decimal.Decimal, error) {
	chance, err := DiceWinChance(target, condition)
	if err != nil {
		return decimal.Zero, err
	}
	return FinishMultiplier((1-cfg.HouseEdge)/chance, cfg.MaxMultiplier)
}

func (g *DiceGame) Evaluate(seeds Seeds, nonce uint64, cfg Config, params Params) (Result, error) {
	target, ok := paramFloat(params, "target")
	if !ok {
		return Result{}, fmt.Errorf("dice requires a numeric 'target' parameter")
	}
	condition, ok := paramString(params, "condition")
	if !ok {
		return Result{}, fmt.Errorf("dice requires a 'condition' parameter")
	}

	quoted, err := DiceMultiplier(target, condition, cfg)
	if err != nil {
		return Result{}, err
	}

	roll := g.Roll(seeds, nonce)

	// Equality with the target is always a loss, in both directions.
	win := false
	switch condition {
	case ConditionUnder:
		win = roll < target
	case ConditionOver:
		win = roll > target
	}

	applied := decimal.Zero
	if win {
		applied = quoted
	}

	return Result{
		Outcome:      roll,
		OutcomeLabel: "roll",
		Win:          win,
		Multiplier:   applied,
		Details: map[string]any{
			"target":            target,
			"condition":         condition,
			"quoted_multiplier": quoted,
		},
	}, nil
}
