package games

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Seeds is the seed pair a round is derived from. Both are ASCII
// strings; the server seed is secret until revealed, the client seed
// is player-supplied.
type Seeds struct {
	Server string
	Client string
}

// Params carries game-specific play parameters as decoded JSON.
type Params map[string]any

// Config is the house configuration applied to one evaluation.
type Config struct {
	// HouseEdge in [0, 1), e.g. 0.04 for a 4% edge.
	HouseEdge float64
	// MaxMultiplier is the hard payout cap, applied before rounding.
	MaxMultiplier decimal.Decimal
	// Paytable is used by cluster-pay games only.
	Paytable *Paytable
}

// Result is the outcome of one evaluated round.
type Result struct {
	// Outcome is the headline metric (dice roll, crash point, ...).
	Outcome      float64
	OutcomeLabel string
	Win          bool
	// Multiplier is the applied payout multiplier: payout is always
	// stake * Multiplier, so it is zero on a loss.
	Multiplier decimal.Decimal
	Details    map[string]any
}

// GameSpec describes a registered game.
type GameSpec struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OutcomeLabel string `json:"outcome_label"`
	// MultiRound games settle through the session orchestrator, not
	// through single-shot play.
	MultiRound bool `json:"multi_round"`
}

// Game is a provably fair game that can be evaluated from a seed pair.
type Game interface {
	Spec() GameSpec
	// Evaluate derives the round outcome and the applied multiplier.
	// It is a pure function of its inputs: replays with the same
	// arguments always return the same result.
	Evaluate(seeds Seeds, nonce uint64, cfg Config, params Params) (Result, error)
}

// Game ids. Each id doubles as the derivation tag for its rounds.
const (
	GameCrash   = "crash"
	GameDice    = "dice"
	GameLimbo   = "limbo"
	GameMines   = "mines"
	GameOlympus = "olympus"
	GamePenalty = "penalty"
	GamePlinko  = "plinko"
)

var registry = make(map[string]Game)

// Register adds a game to the registry.
func Register(g Game) {
	registry[g.Spec().ID] = g
}

// Get retrieves a game by id.
func Get(id string) (Game, bool) {
	g, ok := registry[id]
	return g, ok
}

// List returns all registered game ids, sorted.
func List() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func init() {
	Register(&DiceGame{})
	Register(&LimboGame{})
	Register(&CrashGame{})
	Register(&OlympusGame{})
	Register(&MinesGame{})
	Register(&PenaltyGame{})
	Register(&PlinkoGame{})
}

// DefaultMaxMultiplier caps payouts at 10,000x the stake.
var DefaultMaxMultiplier = decimal.NewFromInt(10000)

const multiplierPlaces = 4

// FinishMultiplier applies the house rounding policy to a computed
// multiplier: cap first, then truncate to 4 decimal places. Truncation
// after the edge adjustment keeps realized EV at or slightly below the
// nominal edge; the drift is asserted by the payout tests and is not a
// bug. Non-finite or negative inputs are a programmer error and are
// rejected before any monetary use.
func FinishMultiplier(m float64, maxMultiplier decimal.Decimal) (decimal.Decimal, error) {
	if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
		return decimal.Zero, fmt.Errorf("non-finite multiplier %v", m)
	}

	d := decimal.NewFromFloat(m)
	if maxMultiplier.IsPositive() && d.GreaterThan(maxMultiplier) {
		d = maxMultiplier
	}
	return d.Truncate(multiplierPlaces), nil
}

func paramFloat(params Params, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := params[k].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}
	}
	return 0, false
}

func paramInt(params Params, keys ...string) (int, bool) {
	f, ok := paramFloat(params, keys...)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func paramString(params Params, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := params[k].(string); ok {
			return s, true
		}
	}
	return "", false
}
