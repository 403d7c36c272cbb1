package payout

import (
	"fmt"
	"strings"
)

var diceBets = map[string]float64{
	"seven":   4,
	"over_7":  2,
	"under_7": 2,
	"even":    2,
	"odd":     2,
	"doubles": 5,
}

// ValidDiceBet reports whether kind is a known two-dice bet.
func ValidDiceBet(kind string) error {
	if _, ok := diceBets[strings.ToLower(kind)]; !ok {
		return fmt.Errorf("invalid dice bet %q", kind)
	}
	return nil
}

// DiceMultiplier scores a two-dice roll for the given bet kind.
func DiceMultiplier(kind string, d1, d2 int) float64 {
	kind = strings.ToLower(kind)
	sum := d1 + d2
	var hit bool
	switch kind {
	case "seven":
		hit = sum == 7
	case "over_7":
		hit = sum > 7
	case "under_7":
		hit = sum < 7
	case "even":
		hit = sum%2 == 0
	case "odd":
		hit = sum%2 == 1
	case "doubles":
		hit = d1 == d2
	}
	if !hit {
		return 0
	}
	return diceBets[kind]
}
