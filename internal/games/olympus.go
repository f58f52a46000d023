package games

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradege/stek-sub008/internal/engine"
)

// OlympusGame is the cluster-pay slot: a 6x5 grid of weighted symbols
// where any symbol appearing 8+ times pays, scatter excluded from
// cluster scoring.
type OlympusGame struct{}

const (
	olympusTag   = GameOlympus
	OlympusCols  = 6
	OlympusRows  = 5
	OlympusCells = OlympusCols * OlympusRows

	// ScatterSymbol never joins clusters; it pays on its own count.
	ScatterSymbol = "scatter"

	minClusterSize = 8
)

// symbolWeight is one row of the weighted symbol distribution used to
// fill grid cells.
type symbolWeight struct {
	Symbol string
	Weight uint32
}

// Low weight means rare; the order is part of the derivation and must
// stay stable once rounds have been settled against it.
var olympusWeights = []symbolWeight{
	{"zeus", 2},
	{"crown", 3},
	{"hourglass", 4},
	{"ring", 5},
	{"chalice", 7},
	{"gem_red", 9},
	{"gem_purple", 12},
	{"gem_blue", 14},
	{ScatterSymbol, 2},
}

// PayTier holds the multiplier for one cluster-size bucket.
type PayTier struct {
	Eight  decimal.Decimal // 8-9 of a kind
	Ten    decimal.Decimal // 10-11 of a kind
	Twelve decimal.Decimal // 12+ of a kind
}

// Paytable maps symbols to their cluster tiers, plus scatter pays by
// scatter count (4, 5, 6+). Tables are per-tenant configuration; the
// house edge lives in the weights and tier values.
type Paytable struct {
	Symbols     map[string]PayTier
	ScatterFour decimal.Decimal
	ScatterFive decimal.Decimal
	ScatterSix  decimal.Decimal
}

func tier(e, t, tw float64) PayTier {
	return PayTier{
		Eight:  decimal.NewFromFloat(e),
		Ten:    decimal.NewFromFloat(t),
		Twelve: decimal.NewFromFloat(tw),
	}
}

// DefaultPaytable is the standard risk tier.
func DefaultPaytable() *Paytable {
	return &Paytable{
		Symbols: map[string]PayTier{
			"zeus":       tier(10, 25, 50),
			"crown":      tier(2, 10, 25),
			"hourglass":  tier(1.5, 5, 15),
			"ring":       tier(1, 2, 12),
			"chalice":    tier(0.8, 1.5, 10),
			"gem_red":    tier(0.5, 1, 8),
			"gem_purple": tier(0.4, 0.9, 5),
			"gem_blue":   tier(0.25, 0.75, 4),
		},
		ScatterFour: decimal.NewFromInt(3),
		ScatterFive: decimal.NewFromInt(5),
		ScatterSix:  decimal.NewFromInt(100),
	}
}

func (p *Paytable) clusterPay(symbol string, count int) decimal.Decimal {
	t, ok := p.Symbols[symbol]
	if !ok || count < minClusterSize {
		return decimal.Zero
	}
	switch {
	case count >= 12:
		return t.Twelve
	case count >= 10:
		return t.Ten
	default:
		return t.Eight
	}
}

func (p *Paytable) scatterPay(count int) decimal.Decimal {
	switch {
	case count >= 6:
		return p.ScatterSix
	case count == 5:
		return p.ScatterFive
	case count == 4:
		return p.ScatterFour
	default:
		return decimal.Zero
	}
}

func (g *OlympusGame) Spec() GameSpec {
	return GameSpec{
		ID:           olympusTag,
		Name:         "Olympus",
		OutcomeLabel: "cluster_multiplier",
	}
}

// Grid derives the 30 grid symbols for a round, one weighted draw per
// cell in row-major order.
func OlympusGrid(seeds Seeds, nonce uint64) []string {
	var total uint32
	for _, w := range olympusWeights {
		total += w.Weight
	}

	grid := make([]string, OlympusCells)
	for i := range grid {
		raw := engine.DeriveAt(seeds.Server, seeds.Client, nonce, olympusTag, i)
		x := uint32(engine.Reduce(raw, int(total)))
		var acc uint32
		for _, w := range olympusWeights {
			acc += w.Weight
			if x < acc {
				grid[i] = w.Symbol
				break
			}
		}
	}
	return grid
}

// OlympusPayout scores a grid against a paytable: every symbol at or
// above the minimum cluster size pays and the qualifying pays sum.
func OlympusPayout(grid []string, table *Paytable) (decimal.Decimal, map[string]int) {
	counts := make(map[string]int)
	for _, s := range grid {
		counts[s]++
	}

	total := decimal.Zero
	for symbol, count := range counts {
		if symbol == ScatterSymbol {
			continue
		}
		total = total.Add(table.clusterPay(symbol, count))
	}
	total = total.Add(table.scatterPay(counts[ScatterSymbol]))
	return total, counts
}

func (g *OlympusGame) Evaluate(seeds Seeds, nonce uint64, cfg Config, params Params) (Result, error) {
	table := cfg.Paytable
	if table == nil {
		table = DefaultPaytable()
	}
	if len(table.Symbols) == 0 {
		return Result{}, fmt.Errorf("olympus paytable has no symbols")
	}

	grid := OlympusGrid(seeds, nonce)
	payout, counts := OlympusPayout(grid, table)

	multiplier := payout
	if cfg.MaxMultiplier.IsPositive() && multiplier.GreaterThan(cfg.MaxMultiplier) {
		multiplier = cfg.MaxMultiplier
	}
	multiplier = multiplier.Truncate(4)

	return Result{
		Outcome:      multiplier.InexactFloat64(),
		OutcomeLabel: "cluster_multiplier",
		Win:          multiplier.IsPositive(),
		Multiplier:   multiplier,
		Details: map[string]any{
			"grid":          grid,
			"symbol_counts": counts,
			"scatters":      counts[ScatterSymbol],
		},
	}, nil
}
