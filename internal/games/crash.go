package games

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/tradege/stek-sub008/internal/engine"
)

// CrashGame is the multiplier-staking game: the player commits to a
// cash-out target before the round and wins the target multiplier if
// the derived crash point reaches it.
type CrashGame struct{}

const (
	crashTag       = GameCrash
	crashMinTarget = 1.01
)

func (g *CrashGame) Spec() GameSpec {
	return GameSpec{
		ID:           crashTag,
		Name:         "Crash",
		OutcomeLabel: "crash_point",
	}
}

// crashPoint derives the round's bust multiplier. The +1 shifts the
// raw fraction into (0, 1] so the division is never by zero; the
// result is floored to cents and never below 1.00.
func crashPoint(seeds Seeds, nonce uint64, tag string, houseEdge float64) float64 {
	raw := engine.Derive(seeds.Server, seeds.Client, nonce, tag)
	f := (float64(raw) + 1) / (1 << 32)
	point := math.Floor((1-houseEdge)/f*100) / 100
	return math.Max(point, 1.0)
}

// CrashPoint derives the crash point for a round; exported for the
// fairness verifier.
func CrashPoint(seeds Seeds, nonce uint64, houseEdge float64) float64 {
	return crashPoint(seeds, nonce, crashTag, houseEdge)
}

func evaluateThresholdTarget(seeds Seeds, nonce uint64, tag, label string, cfg Config, params Params) (Result, error) {
	target, ok := paramFloat(params, "target", "cashoutAt")
	if !ok {
		return Result{}, fmt.Errorf("%s requires a numeric 'target' parameter", tag)
	}
	if target < crashMinTarget {
		return Result{}, fmt.Errorf("%s target must be at least %.2f, got %v", tag, crashMinTarget, target)
	}

	quoted, err := FinishMultiplier(target, cfg.MaxMultiplier)
	if err != nil {
		return Result{}, err
	}

	point := crashPoint(seeds, nonce, tag, cfg.HouseEdge)
	win := point >= target

	applied := decimal.Zero
	if win {
		applied = quoted
	}

	return Result{
		Outcome:      point,
		OutcomeLabel: label,
		Win:          win,
		Multiplier:   applied,
		Details: map[string]any{
			"target":            target,
			"quoted_multiplier": quoted,
		},
	}, nil
}

func (g *CrashGame) Evaluate(seeds Seeds, nonce uint64, cfg Config, params Params) (Result, error) {
	return evaluateThresholdTarget(seeds, nonce, crashTag, "crash_point", cfg, params)
}

// LimboGame shares the crash formula under its own derivation tag, so
// limbo and crash rounds on the same seed pair stay independent.
type LimboGame struct{}

const limboTag = GameLimbo

func (g *LimboGame) Spec() GameSpec {
	return GameSpec{
		ID:           limboTag,
		Name:         "Limbo",
		OutcomeLabel: "result",
	}
}

// LimboResult derives the limbo result multiplier for a round.
func LimboResult(seeds Seeds, nonce uint64, houseEdge float64) float64 {
	return crashPoint(seeds, nonce, limboTag, houseEdge)
}

func (g *LimboGame) Evaluate(seeds Seeds, nonce uint64, cfg Config, params Params) (Result, error) {
	return evaluateThresholdTarget(seeds, nonce, limboTag, "result", cfg, params)
}
