package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseBet parses a bet string like "500", "10k", "half", "all" or "25%" against a balance.
func ParseBet(betStr string, balance int64) (int64, error) {
	betStr = strings.TrimSpace(strings.ToLower(betStr))
	betStr = strings.ReplaceAll(betStr, ",", "")
	betStr = strings.ReplaceAll(betStr, "_", "")

	switch betStr {
	case "all", "allin", "max":
		return balance, nil
	case "half":
		return balance / 2, nil
	}

	if strings.HasSuffix(betStr, "%") {
		percent, err := strconv.ParseFloat(strings.TrimSuffix(betStr, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid percentage: %s", betStr)
		}
		if percent < 0 || percent > 100 {
			return 0, fmt.Errorf("percentage must be between 0 and 100")
		}
		return int64(float64(balance) * percent / 100), nil
	}

	multiplier := int64(1)
	if strings.HasSuffix(betStr, "k") {
		multiplier = 1000
		betStr = strings.TrimSuffix(betStr, "k")
	} else if strings.HasSuffix(betStr, "m") {
		multiplier = 1000000
		betStr = strings.TrimSuffix(betStr, "m")
	}

	bet, err := strconv.ParseInt(betStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bet amount: %s", betStr)
	}
	if bet > math.MaxInt64/multiplier || bet < math.MinInt64/multiplier {
		return 0, fmt.Errorf("bet amount too large: %s", betStr)
	}
	return bet * multiplier, nil
}

// FormatChips renders a chip amount with thousands separators
func FormatChips(amount int64) string {
	if amount < 0 {
		return "-" + FormatNumber(-amount)
	}
	return FormatNumber(amount)
}

func FormatNumber(num int64) string {
	str := strconv.FormatInt(num, 10)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, r := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(r)
	}
	return result.String()
}

// FormatMultiplier renders a multiplier as "2.38x"
func FormatMultiplier(m float64) string {
	return strconv.FormatFloat(m, 'f', 2, 64) + "x"
}
