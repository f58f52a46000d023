package games

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOlympusGridDeterministic(t *testing.T) {
	a := OlympusGrid(testSeeds, testNonce)
	b := OlympusGrid(testSeeds, testNonce)
	if len(a) != OlympusCells {
		t.Fatalf("expected %d cells, got %d", OlympusCells, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("grid not deterministic at cell %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestOlympusEvaluateGolden(t *testing.T) {
	// The reference seeds produce 8 gem_purple and 1 scatter: one
	// qualifying cluster in the 8-9 tier, no scatter pay.
	g := &OlympusGame{}
	res, err := g.Evaluate(testSeeds, testNonce, testConfig(0.04), Params{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	counts := res.Details["symbol_counts"].(map[string]int)
	if counts["gem_purple"] != 8 {
		t.Errorf("expected 8 gem_purple, got %d", counts["gem_purple"])
	}
	if counts[ScatterSymbol] != 1 {
		t.Errorf("expected 1 scatter, got %d", counts[ScatterSymbol])
	}
	if !res.Win {
		t.Error("expected a cluster win")
	}
	if !res.Multiplier.Equal(decimal.RequireFromString("0.4")) {
		t.Errorf("expected multiplier 0.4, got %s", res.Multiplier)
	}
}

func grid(symbols map[string]int) []string {
	out := make([]string, 0, OlympusCells)
	for s, n := range symbols {
		for i := 0; i < n; i++ {
			out = append(out, s)
		}
	}
	for i := 0; len(out) < OlympusCells; i++ {
		// filler symbols absent from the paytable never pay
		out = append(out, fmt.Sprintf("blank_%d", i))
	}
	return out
}

func TestOlympusPayoutTiers(t *testing.T) {
	table := DefaultPaytable()

	cases := []struct {
		name string
		grid []string
		want string
	}{
		{"below minimum cluster", grid(map[string]int{"gem_blue": 7}), "0"},
		{"eight of a kind", grid(map[string]int{"gem_blue": 8}), "0.25"},
		{"nine stays in low tier", grid(map[string]int{"gem_blue": 9}), "0.25"},
		{"ten enters mid tier", grid(map[string]int{"gem_blue": 10}), "0.75"},
		{"twelve enters top tier", grid(map[string]int{"gem_blue": 12}), "4"},
		{"multiple clusters sum", grid(map[string]int{"gem_blue": 8, "gem_red": 10, "ring": 8}), "2.25"},
		{"scatters never cluster", grid(map[string]int{ScatterSymbol: 3}), "0"},
		{"four scatters pay", grid(map[string]int{ScatterSymbol: 4}), "3"},
		{"six scatters pay", grid(map[string]int{ScatterSymbol: 6}), "100"},
	}

	for _, tc := range cases {
		payout, _ := OlympusPayout(tc.grid, table)
		if !payout.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("%s: expected payout %s, got %s", tc.name, tc.want, payout)
		}
	}
}

func TestOlympusScatterExcludedFromClusters(t *testing.T) {
	// Nine scatters would be a paying cluster for any normal symbol;
	// here only the 6+ scatter pay applies.
	table := DefaultPaytable()
	payout, counts := OlympusPayout(grid(map[string]int{ScatterSymbol: 9}), table)
	if counts[ScatterSymbol] != 9 {
		t.Fatalf("expected 9 scatters, got %d", counts[ScatterSymbol])
	}
	if !payout.Equal(table.ScatterSix) {
		t.Errorf("expected scatter-only pay %s, got %s", table.ScatterSix, payout)
	}
}

func TestOlympusCapApplies(t *testing.T) {
	g := &OlympusGame{}
	cfg := testConfig(0.04)
	cfg.MaxMultiplier = decimal.RequireFromString("0.1")
	res, err := g.Evaluate(testSeeds, testNonce, cfg, Params{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Multiplier.GreaterThan(cfg.MaxMultiplier) {
		t.Errorf("multiplier %s exceeds configured cap", res.Multiplier)
	}
}
