package games

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMinePositionsNoCollisions(t *testing.T) {
	for k := MinesMinCount; k <= MinesMaxCount; k++ {
		positions, err := MinePositions(testSeeds, testNonce, k)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if len(positions) != k {
			t.Fatalf("k=%d: expected %d positions, got %d", k, k, len(positions))
		}
		seen := make(map[int]bool)
		for _, p := range positions {
			if p < 0 || p >= MinesTotalTiles {
				t.Errorf("k=%d: position %d out of grid", k, p)
			}
			if seen[p] {
				t.Errorf("k=%d: duplicate mine position %d", k, p)
			}
			seen[p] = true
		}
	}
}

func TestMinePositionsDeterministic(t *testing.T) {
	a, err := MinePositions(testSeeds, testNonce, 3)
	if err != nil {
		t.Fatal(err)
	}
	b, err := MinePositions(testSeeds, testNonce, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("layout not deterministic: %v vs %v", a, b)
		}
	}

	want := []int{8, 3, 20}
	for i := range want {
		if a[i] != want[i] {
			t.Fatalf("expected layout %v, got %v", want, a)
		}
	}
}

func TestMinePositionsInvalidCount(t *testing.T) {
	if _, err := MinePositions(testSeeds, testNonce, 0); err == nil {
		t.Error("expected error for 0 mines")
	}
	if _, err := MinePositions(testSeeds, testNonce, 25); err == nil {
		t.Error("expected error for 25 mines")
	}
}

func TestMinesMultiplierMaxMinesScenario(t *testing.T) {
	// 24 mines, 1 reveal at 4% edge: (1-0.04)/(1/25) = 24 exactly.
	m, err := MinesMultiplier(24, 1, testConfig(0.04))
	if err != nil {
		t.Fatalf("MinesMultiplier: %v", err)
	}
	if !m.Equal(decimal.RequireFromString("24")) {
		t.Errorf("expected multiplier 24.0000, got %s", m)
	}
}

func TestMinesMultiplierEdgeCases(t *testing.T) {
	one, err := MinesMultiplier(3, 0, testConfig(0.04))
	if err != nil {
		t.Fatalf("MinesMultiplier: %v", err)
	}
	if !one.Equal(decimal.NewFromInt(1)) {
		t.Errorf("zero reveals must quote exactly 1, got %s", one)
	}

	// Revealing past the safe-tile ceiling is a guaranteed loss.
	zero, err := MinesMultiplier(24, 2, testConfig(0.04))
	if err != nil {
		t.Fatalf("MinesMultiplier: %v", err)
	}
	if !zero.IsZero() {
		t.Errorf("reveal beyond safe tiles must quote 0, got %s", zero)
	}

	if _, err := MinesMultiplier(0, 1, testConfig(0.04)); err == nil {
		t.Error("expected error for mine count 0")
	}
	if _, err := MinesMultiplier(3, -1, testConfig(0.04)); err == nil {
		t.Error("expected error for negative reveal count")
	}
}

func TestMinesMultiplierKnownValue(t *testing.T) {
	// 3 mines, 3 reveals: chance (22/25)(21/24)(20/23), truncated to 4dp.
	m, err := MinesMultiplier(3, 3, testConfig(0.04))
	if err != nil {
		t.Fatalf("MinesMultiplier: %v", err)
	}
	if !m.Equal(decimal.RequireFromString("1.4337")) {
		t.Errorf("expected multiplier 1.4337, got %s", m)
	}
}

func TestMinesMultiplierMonotonicity(t *testing.T) {
	for mines := MinesMinCount; mines <= MinesMaxCount; mines++ {
		safe := MinesTotalTiles - mines
		prev := decimal.Zero
		for revealed := 0; revealed <= safe; revealed++ {
			m, err := MinesMultiplier(mines, revealed, testConfig(0.04))
			if err != nil {
				t.Fatalf("mines=%d revealed=%d: %v", mines, revealed, err)
			}
			if revealed > 1 && m.LessThanOrEqual(prev) && prev.LessThan(DefaultMaxMultiplier) {
				t.Errorf("mines=%d: multiplier not increasing at reveal %d (%s -> %s)", mines, revealed, prev, m)
			}
			prev = m
		}
	}
}

func TestMinesMultiplierCapInvariant(t *testing.T) {
	for _, edge := range []float64{0, 0.01, 0.04, 0.2, 0.99} {
		for mines := MinesMinCount; mines <= MinesMaxCount; mines++ {
			safe := MinesTotalTiles - mines
			for revealed := 0; revealed <= safe; revealed++ {
				m, err := MinesMultiplier(mines, revealed, testConfig(edge))
				if err != nil {
					t.Fatalf("edge=%v mines=%d revealed=%d: %v", edge, mines, revealed, err)
				}
				if m.GreaterThan(DefaultMaxMultiplier) {
					t.Errorf("edge=%v mines=%d revealed=%d: multiplier %s exceeds cap", edge, mines, revealed, m)
				}
			}
		}
	}
}

func TestMinesExpectedValueBound(t *testing.T) {
	// Truncating after the cap keeps multiplier * survival probability
	// at or below (1 - edge); the drift below the nominal edge is the
	// documented behavior.
	const edge = 0.04
	const eps = 1e-9

	for mines := MinesMinCount; mines <= MinesMaxCount; mines++ {
		safe := MinesTotalTiles - mines
		for revealed := 1; revealed <= safe; revealed++ {
			chance, err := MinesWinChance(mines, revealed)
			if err != nil {
				t.Fatal(err)
			}
			m, err := MinesMultiplier(mines, revealed, testConfig(edge))
			if err != nil {
				t.Fatal(err)
			}
			ev := m.InexactFloat64() * chance
			if ev > (1-edge)+eps {
				t.Errorf("mines=%d revealed=%d: EV %v exceeds %v", mines, revealed, ev, 1-edge)
			}
		}
	}
}

func TestMinesEvaluateExposesLayout(t *testing.T) {
	g := &MinesGame{}
	res, err := g.Evaluate(testSeeds, testNonce, testConfig(0.04), Params{"mineCount": 3.0})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	positions, ok := res.Details["mine_positions"].([]int)
	if !ok || len(positions) != 3 {
		t.Fatalf("expected 3 mine positions in details, got %v", res.Details["mine_positions"])
	}
	if res.Outcome != 3 {
		t.Errorf("expected first mine at tile 3, got %v", res.Outcome)
	}
}
