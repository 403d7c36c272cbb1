package payout

import (
	"fmt"
	"strconv"
	"strings"
)

var redNumbers = map[int]struct{}{1: {}, 3: {}, 5: {}, 7: {}, 9: {}, 12: {}, 14: {}, 16: {}, 18: {}, 19: {}, 21: {}, 23: {}, 25: {}, 27: {}, 30: {}, 32: {}, 34: {}, 36: {}}

// RouletteSelection is a single roulette bet position.
type RouletteSelection struct {
	Kind   string // number, red, black, odd, even, low, high, dozen1-3, col1-3
	Number int
}

// ParseRouletteSelection accepts "red", "dozen2", "col1", "1-18", "17" or "number:17".
func ParseRouletteSelection(raw string) (RouletteSelection, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "red", "black", "odd", "even", "low", "high", "dozen1", "dozen2", "dozen3", "col1", "col2", "col3":
		return RouletteSelection{Kind: s}, nil
	case "1-18":
		return RouletteSelection{Kind: "low"}, nil
	case "19-36":
		return RouletteSelection{Kind: "high"}, nil
	case "1-12":
		return RouletteSelection{Kind: "dozen1"}, nil
	case "13-24":
		return RouletteSelection{Kind: "dozen2"}, nil
	case "25-36":
		return RouletteSelection{Kind: "dozen3"}, nil
	}
	s = strings.TrimPrefix(s, "number:")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 36 {
		return RouletteSelection{}, fmt.Errorf("invalid roulette selection %q", raw)
	}
	return RouletteSelection{Kind: "number", Number: n}, nil
}

func (s RouletteSelection) String() string {
	if s.Kind == "number" {
		return strconv.Itoa(s.Number)
	}
	return s.Kind
}

// RouletteColor returns green, red or black for a wheel number.
func RouletteColor(n int) string {
	if n == 0 {
		return "green"
	}
	if _, ok := redNumbers[n]; ok {
		return "red"
	}
	return "black"
}

// RouletteMultiplier is the total-return multiplier for a selection given the
// winning number: 36 for a straight number, 3 for dozens and columns, 2 for
// even-money bets, 0 on a loss. Zero loses every outside bet.
func RouletteMultiplier(sel RouletteSelection, n int) int64 {
	if sel.Kind == "number" {
		if sel.Number == n {
			return 36
		}
		return 0
	}
	if n == 0 {
		return 0
	}
	var hit bool
	switch sel.Kind {
	case "red", "black":
		hit = RouletteColor(n) == sel.Kind
	case "odd":
		hit = n%2 == 1
	case "even":
		hit = n%2 == 0
	case "low":
		hit = n <= 18
	case "high":
		hit = n >= 19
	case "dozen1", "dozen2", "dozen3":
		hit = (n-1)/12 == int(sel.Kind[5]-'1')
		if hit {
			return 3
		}
		return 0
	case "col1", "col2", "col3":
		hit = (n-1)%3 == int(sel.Kind[3]-'1')
		if hit {
			return 3
		}
		return 0
	}
	if hit {
		return 2
	}
	return 0
}
