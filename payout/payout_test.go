package payout

import (
	"math"
	"math/rand"
	"testing"

	"hrc-casino/utils"

	"github.com/shopspring/decimal"
)

func TestRouletteSevenRed(t *testing.T) {
	number, _ := ParseRouletteSelection("7")
	red, _ := ParseRouletteSelection("red")

	if got := Apply(100, float64(RouletteMultiplier(number, 7))); got != 3600 {
		t.Errorf("number bet on 7: expected 3600, got %d", got)
	}
	if got := Apply(50, float64(RouletteMultiplier(red, 7))); got != 100 {
		t.Errorf("red bet on 7: expected 100, got %d", got)
	}
}

func TestRouletteZeroLosesOutsideBets(t *testing.T) {
	for _, raw := range []string{"red", "black", "odd", "even", "low", "high", "dozen1", "col1"} {
		sel, err := ParseRouletteSelection(raw)
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		if m := RouletteMultiplier(sel, 0); m != 0 {
			t.Errorf("%s on zero: expected 0, got %d", raw, m)
		}
	}
	zero, _ := ParseRouletteSelection("0")
	if m := RouletteMultiplier(zero, 0); m != 36 {
		t.Errorf("straight zero: expected 36, got %d", m)
	}
}

// Every roulette position returns 36 units per 37 staked over the full wheel.
func TestRouletteHouseEdge(t *testing.T) {
	positions := []string{"red", "black", "odd", "even", "1-18", "19-36", "1-12", "13-24", "25-36", "col1", "col2", "col3", "0", "17", "36"}
	for _, raw := range positions {
		sel, err := ParseRouletteSelection(raw)
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		var returned int64
		for n := 0; n <= 36; n++ {
			returned += RouletteMultiplier(sel, n)
		}
		if returned != 36 {
			t.Errorf("%s: expected 36 units returned over 37 spins, got %d", raw, returned)
		}
	}
}

func TestParseRouletteSelectionRejects(t *testing.T) {
	for _, raw := range []string{"37", "-1", "purple", ""} {
		if _, err := ParseRouletteSelection(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestMinesMultiplier(t *testing.T) {
	tests := []struct {
		total, mines, revealed int
		want                   float64
	}{
		{20, 3, 5, 2.38},
		{20, 3, 1, 1.11},
		{20, 1, 1, 1.00},
		{20, 19, 1, 19.00},
		{20, 3, 0, 1},
	}
	for _, tt := range tests {
		if got := MinesMultiplier(tt.total, tt.mines, tt.revealed); got != tt.want {
			t.Errorf("MinesMultiplier(%d,%d,%d) = %.2f, want %.2f", tt.total, tt.mines, tt.revealed, got, tt.want)
		}
	}
}

func TestMinesMultiplierIncreases(t *testing.T) {
	prev := 0.0
	for r := 1; r <= 17; r++ {
		m := MinesMultiplier(20, 3, r)
		if m <= prev {
			t.Fatalf("multiplier did not increase at reveal %d: %.2f <= %.2f", r, m, prev)
		}
		prev = m
	}
}

func TestTowerMultiplier(t *testing.T) {
	d, err := LookupTowerDifficulty("hard")
	if err != nil {
		t.Fatal(err)
	}
	if got := TowerMultiplier(d, 0); got != 1 {
		t.Errorf("level 0: expected 1, got %.2f", got)
	}
	if got := TowerMultiplier(d, 1); got != 1.90 {
		t.Errorf("level 1: expected 1.90, got %.2f", got)
	}
	if got := TowerMultiplier(d, 2); got != 3.61 {
		t.Errorf("level 2: expected 3.61, got %.2f", got)
	}
	if _, err := LookupTowerDifficulty("nightmare"); err == nil {
		t.Error("expected error for unknown difficulty")
	}
}

// Each tower step pays less than the fair inverse survival odds.
func TestTowerStepsKeepEdge(t *testing.T) {
	for name, d := range towerDifficulties {
		survive := float64(d.Cells-d.Traps) / float64(d.Cells)
		if ev := survive * d.Step; ev >= 1 {
			t.Errorf("%s: step expectation %.4f should be below 1", name, ev)
		}
	}
}

func hand(cards ...string) *utils.Hand {
	h := &utils.Hand{}
	for _, r := range cards {
		h.AddCard(utils.NewCard(r, "♠️"))
	}
	return h
}

func TestSettleBlackjack(t *testing.T) {
	tests := []struct {
		name   string
		player *utils.Hand
		dealer *utils.Hand
		result BlackjackResult
		mult   float64
	}{
		{"natural", hand("A", "K"), hand("10", "9"), BlackjackNatural, 2.5},
		{"both natural", hand("A", "K"), hand("A", "Q"), BlackjackPush, 1},
		{"bust", hand("10", "9", "5"), hand("10", "7"), BlackjackBust, 0},
		{"dealer bust", hand("10", "8"), hand("10", "6", "9"), BlackjackWin, 2},
		{"higher", hand("10", "9"), hand("10", "8"), BlackjackWin, 2},
		{"push", hand("10", "8"), hand("9", "9"), BlackjackPush, 1},
		{"lower", hand("10", "7"), hand("10", "9"), BlackjackLose, 0},
		{"dealer natural", hand("10", "5", "6"), hand("A", "J"), BlackjackLose, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, mult := SettleBlackjack(tt.player, tt.dealer)
			if result != tt.result || mult != tt.mult {
				t.Errorf("expected %s/%.1f, got %s/%.1f", tt.result, tt.mult, result, mult)
			}
		})
	}

	if got := Apply(200, 2.5); got != 500 {
		t.Errorf("natural on 200: expected 500, got %d", got)
	}
}

func TestCrashPointBounds(t *testing.T) {
	if got := CrashPointFromUniform(0); got != 1.00 {
		t.Errorf("U=0: expected 1.00, got %.2f", got)
	}
	if got := CrashPointFromUniform(0.5); got != 1.98 {
		t.Errorf("U=0.5: expected 1.98, got %.2f", got)
	}
	if got := CrashPointFromUniform(0.9999); got != CrashMax {
		t.Errorf("U≈1: expected cap %.2f, got %.2f", CrashMax, got)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		cp := DrawCrashPoint(rng)
		if cp < 1 || cp > CrashMax {
			t.Fatalf("crash point out of range: %.2f", cp)
		}
		if math.Abs(cp*100-math.Round(cp*100)) > 1e-6 {
			t.Fatalf("crash point not floored to cents: %v", cp)
		}
	}
}

func TestNextCrashMultiplier(t *testing.T) {
	steps := []float64{1.25, 1.56, 1.95, 2.43, 2.91, 3.49, 4.18, 5.01, 5.51}
	m := 1.0
	for i, want := range steps {
		m = NextCrashMultiplier(m)
		if m != want {
			t.Fatalf("step %d: expected %.2f, got %.2f", i+1, want, m)
		}
	}
}

func TestSplitPot(t *testing.T) {
	split := SplitPot(100, decimal.RequireFromString("0.05"))
	if split.Pot != 200 || split.Fee != 10 || split.Prize != 190 {
		t.Errorf("unexpected split %+v", split)
	}
	noFee := SplitPot(100, decimal.Zero)
	if noFee.Prize != 200 {
		t.Errorf("expected full pot without rake, got %d", noFee.Prize)
	}
	odd := SplitPot(33, decimal.RequireFromString("0.05"))
	if odd.Fee != 3 || odd.Prize != 63 {
		t.Errorf("expected floor fee 3 and prize 63, got %+v", odd)
	}
}

func TestCompareRPS(t *testing.T) {
	if CompareRPS(Rock, Scissors) != 1 || CompareRPS(Scissors, Paper) != 1 || CompareRPS(Paper, Rock) != 1 {
		t.Error("winning pairs misjudged")
	}
	if CompareRPS(Rock, Paper) != -1 {
		t.Error("rock should lose to paper")
	}
	if CompareRPS(Paper, Paper) != 0 {
		t.Error("same move should tie")
	}
}

func TestSlotsMultiplier(t *testing.T) {
	cherry, lemon, seven := slotSymbols[0], slotSymbols[1], slotSymbols[5]
	tests := []struct {
		reels [3]SlotSymbol
		want  float64
	}{
		{[3]SlotSymbol{seven, seven, seven}, 100},
		{[3]SlotSymbol{lemon, lemon, lemon}, 3},
		{[3]SlotSymbol{cherry, lemon, cherry}, 1.5},
		{[3]SlotSymbol{cherry, lemon, seven}, 0},
	}
	for _, tt := range tests {
		if got := SlotsMultiplier(tt.reels); got != tt.want {
			t.Errorf("%s%s%s: expected %.1f, got %.1f", tt.reels[0].Emoji, tt.reels[1].Emoji, tt.reels[2].Emoji, tt.want, got)
		}
	}
}

func TestDiceMultiplier(t *testing.T) {
	if got := DiceMultiplier("seven", 3, 4); got != 4 {
		t.Errorf("seven: expected 4, got %.0f", got)
	}
	if got := DiceMultiplier("doubles", 2, 2); got != 5 {
		t.Errorf("doubles: expected 5, got %.0f", got)
	}
	if got := DiceMultiplier("over_7", 3, 4); got != 0 {
		t.Errorf("over_7 on 7: expected 0, got %.0f", got)
	}
	if err := ValidDiceBet("snake_eyes"); err == nil {
		t.Error("expected error for unknown dice bet")
	}
}

func TestRacePayout(t *testing.T) {
	if got := RacePayout(100, 2, 2); got != 300 {
		t.Errorf("winner: expected 300, got %d", got)
	}
	if got := RacePayout(100, 1, 2); got != 0 {
		t.Errorf("loser: expected 0, got %d", got)
	}
}

func TestSlotsExpectedReturnBelowStake(t *testing.T) {
	total := 0
	for _, s := range slotSymbols {
		total += s.Weight
	}
	var ev float64
	for _, a := range slotSymbols {
		for _, b := range slotSymbols {
			for _, c := range slotSymbols {
				p := float64(a.Weight*b.Weight*c.Weight) / math.Pow(float64(total), 3)
				ev += p * SlotsMultiplier([3]SlotSymbol{a, b, c})
			}
		}
	}
	if ev >= 1 || ev < 0.85 {
		t.Errorf("slots return per unit staked = %.4f", ev)
	}
}

func TestDiceExpectedReturnAtMostStake(t *testing.T) {
	for kind := range diceBets {
		var ev float64
		for d1 := 1; d1 <= 6; d1++ {
			for d2 := 1; d2 <= 6; d2++ {
				ev += DiceMultiplier(kind, d1, d2) / 36
			}
		}
		if ev > 1+1e-9 {
			t.Errorf("%s returns %.4f per unit staked", kind, ev)
		}
	}
}
