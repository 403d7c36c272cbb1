package utils

import (
	"math/rand"
	"os"
	"testing"
	"time"
)

func TestParseBet(t *testing.T) {
	tests := []struct {
		in      string
		balance int64
		want    int64
		wantErr bool
	}{
		{"500", 1000, 500, false},
		{"10k", 0, 10000, false},
		{"2M", 0, 2000000, false},
		{"1,500", 0, 1500, false},
		{"half", 1001, 500, false},
		{"all", 1234, 1234, false},
		{"25%", 1000, 250, false},
		{"150%", 1000, 0, true},
		{"lots", 1000, 0, true},
		{"9999999999999m", 0, 0, true},
		{"9223372036854775k", 0, 9223372036854775000, false},
		{"9223372036854776k", 0, 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBet(tt.in, tt.balance)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBet(%q): err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBet(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatChips(t *testing.T) {
	tests := map[int64]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -2500: "-2,500"}
	for in, want := range tests {
		if got := FormatChips(in); got != want {
			t.Errorf("FormatChips(%d) = %s, want %s", in, got, want)
		}
	}
	if got := FormatMultiplier(2.5); got != "2.50x" {
		t.Errorf("FormatMultiplier = %s", got)
	}
}

func hand(ranks ...string) *Hand {
	h := &Hand{}
	for _, r := range ranks {
		h.AddCard(NewCard(r, "♠️"))
	}
	return h
}

func TestHandValue(t *testing.T) {
	if h := hand("A", "K"); !h.IsBlackjack() || h.Value() != 21 {
		t.Errorf("A K should be a natural, got %d", h.Value())
	}
	if h := hand("A", "A", "9"); h.Value() != 21 || !h.IsSoft() {
		t.Errorf("A A 9 should be soft 21, got %d soft=%v", h.Value(), h.IsSoft())
	}
	if h := hand("K", "Q", "5"); !h.IsBusted() {
		t.Errorf("K Q 5 should bust, got %d", h.Value())
	}
	if h := hand("A", "9", "K"); h.Value() != 20 || h.IsSoft() {
		t.Errorf("A 9 K should be hard 20, got %d", h.Value())
	}
}

func TestDeckDealsWholeShoe(t *testing.T) {
	d := NewDeck(6, rand.New(rand.NewSource(1)))
	if d.CardsRemaining() != 312 {
		t.Fatalf("expected 312 cards, got %d", d.CardsRemaining())
	}
	for i := 0; i < 312; i++ {
		d.Deal()
	}
	if d.CardsRemaining() != 0 {
		t.Fatalf("expected empty shoe, got %d", d.CardsRemaining())
	}
	d.Deal()
	if d.CardsRemaining() != 311 {
		t.Errorf("empty shoe should reshuffle before dealing, got %d left", d.CardsRemaining())
	}
}

func unsetenv(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	os.Unsetenv(name)
}

func TestLoadConfig(t *testing.T) {
	for _, name := range []string{"DATABASE_URL", "STORE_DRIVER", "CHIP_PRICE", "PVP_RAKE", "SWEEP_INTERVAL"} {
		unsetenv(t, name)
	}
	t.Setenv("CRASH_TICK", "500ms")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StoreDriver != "sqlite" {
		t.Errorf("default driver %q", cfg.StoreDriver)
	}
	if cfg.CrashTick != 500*time.Millisecond || cfg.SweepInterval != 90*time.Second {
		t.Errorf("durations %v %v", cfg.CrashTick, cfg.SweepInterval)
	}
	if cfg.PvPRake.String() != "0.05" {
		t.Errorf("rake %s", cfg.PvPRake)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/casino")
	if cfg, err = LoadConfig(); err != nil || cfg.StoreDriver != "postgres" {
		t.Errorf("expected postgres driver, got %q (%v)", cfg.StoreDriver, err)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := map[string]string{
		"CHIP_PRICE": "0",
		"PVP_RAKE":   "1",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("%s=%s should be rejected", name, value)
			}
		})
	}
}
