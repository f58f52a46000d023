package games

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tradege/stek-sub008/internal/engine"
)

// PlinkoGame drops a ball down a peg board: one left/right draw per
// row, and the landing bucket pays from a fixed risk table.
type PlinkoGame struct{}

const (
	plinkoTag         = GamePlinko
	plinkoDefaultRows = 16

	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// plinkoTables maps risk to per-board-size bucket multipliers. The
// board offers 8, 12 or 16 rows; a board with n rows has n+1 buckets
// mirrored around the center. The house edge lives in the table
// values, and settled rounds replay against them, so the values must
// never change.
var plinkoTables = map[string]map[int][]float64{
	RiskLow: {
		8:  {5.6, 2.1, 1.1, 1, 0.5, 1, 1.1, 2.1, 5.6},
		12: {10, 3, 1.6, 1.4, 1.1, 1, 0.5, 1, 1.1, 1.4, 1.6, 3, 10},
		16: {16, 9, 2, 1.4, 1.4, 1.2, 1.1, 1, 0.5, 1, 1.1, 1.2, 1.4, 1.4, 2, 9, 16},
	},
	RiskMedium: {
		8:  {13, 3, 1.3, 0.7, 0.4, 0.7, 1.3, 3, 13},
		12: {33, 11, 4, 2, 1.1, 0.6, 0.3, 0.6, 1.1, 2, 4, 11, 33},
		16: {110, 41, 10, 5, 3, 1.5, 1, 0.5, 0.3, 0.5, 1, 1.5, 3, 5, 10, 41, 110},
	},
	RiskHigh: {
		8:  {29, 4, 1.5, 0.3, 0.2, 0.3, 1.5, 4, 29},
		12: {170, 24, 8.1, 2, 0.7, 0.2, 0.2, 0.2, 0.7, 2, 8.1, 24, 170},
		16: {1000, 130, 26, 9, 4, 2, 0.2, 0.2, 0.2, 0.2, 0.2, 2, 4, 9, 26, 130, 1000},
	},
}

func (g *PlinkoGame) Spec() GameSpec {
	return GameSpec{
		ID:           plinkoTag,
		Name:         "Plinko",
		OutcomeLabel: "multiplier",
	}
}

// PlinkoPath derives the ball's decision at every row: 0 for left,
// 1 for right. Row i consumes subIndex i.
func PlinkoPath(seeds Seeds, nonce uint64, rows int) []int {
	path := make([]int, rows)
	for i := range path {
		raw := engine.DeriveAt(seeds.Server, seeds.Client, nonce, plinkoTag, i)
		path[i] = engine.Reduce(raw, 2)
	}
	return path
}

// PlinkoMultiplier returns the payout multiplier for a landing bucket.
func PlinkoMultiplier(risk string, rows, bucket int, cfg Config) (decimal.Decimal, error) {
	table, err := plinkoTable(risk, rows)
	if err != nil {
		return decimal.Zero, err
	}
	if bucket < 0 || bucket >= len(table) {
		return decimal.Zero, fmt.Errorf("plinko bucket %d out of range for %d rows", bucket, rows)
	}
	return FinishMultiplier(table[bucket], cfg.MaxMultiplier)
}

func plinkoTable(risk string, rows int) ([]float64, error) {
	byRows, ok := plinkoTables[risk]
	if !ok {
		return nil, fmt.Errorf("plinko risk must be %q, %q or %q, got %q", RiskLow, RiskMedium, RiskHigh, risk)
	}
	table, ok := byRows[rows]
	if !ok {
		return nil, fmt.Errorf("plinko rows must be 8, 12 or 16, got %d", rows)
	}
	return table, nil
}

func (g *PlinkoGame) Evaluate(seeds Seeds, nonce uint64, cfg Config, params Params) (Result, error) {
	rows := plinkoDefaultRows
	if v, ok := paramInt(params, "rows"); ok {
		rows = v
	}
	risk := RiskMedium
	if v, ok := paramString(params, "risk"); ok {
		risk = strings.ToLower(strings.TrimSpace(v))
	}
	if _, err := plinkoTable(risk, rows); err != nil {
		return Result{}, err
	}

	path := PlinkoPath(seeds, nonce, rows)
	bucket := 0
	for _, d := range path {
		bucket += d
	}

	multiplier, err := PlinkoMultiplier(risk, rows, bucket, cfg)
	if err != nil {
		return Result{}, err
	}

	// Every drop pays its bucket; Win marks a return at or above the
	// stake.
	return Result{
		Outcome:      multiplier.InexactFloat64(),
		OutcomeLabel: "multiplier",
		Win:          multiplier.GreaterThanOrEqual(decimal.NewFromInt(1)),
		Multiplier:   multiplier,
		Details: map[string]any{
			"rows":   rows,
			"risk":   risk,
			"path":   path,
			"bucket": bucket,
		},
	}, nil
}
