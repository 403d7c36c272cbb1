package payout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DuelSplit is the division of a PvP pot.
type DuelSplit struct {
	Pot   int64
	Fee   int64
	Prize int64
}

// SplitPot computes pot = 2×stake, fee = floor(pot×rake), prize = pot−fee.
func SplitPot(stake int64, rake decimal.Decimal) DuelSplit {
	pot := stake * 2
	fee := decimal.NewFromInt(pot).Mul(rake).Floor().IntPart()
	if fee < 0 {
		fee = 0
	}
	return DuelSplit{Pot: pot, Fee: fee, Prize: pot - fee}
}

// RPS moves.
const (
	Rock     = "rock"
	Paper    = "paper"
	Scissors = "scissors"
)

// ParseRPS normalises a rock-paper-scissors choice.
func ParseRPS(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "rock", "r", "piedra":
		return Rock, nil
	case "paper", "p", "papel":
		return Paper, nil
	case "scissors", "s", "tijera":
		return Scissors, nil
	}
	return "", fmt.Errorf("invalid rock-paper-scissors choice %q", raw)
}

// CompareRPS returns 1 if a beats b, -1 if b beats a, 0 on a tie.
func CompareRPS(a, b string) int {
	if a == b {
		return 0
	}
	beats := map[string]string{Rock: Scissors, Paper: Rock, Scissors: Paper}
	if beats[a] == b {
		return 1
	}
	return -1
}

// CompareDice returns 1, -1 or 0 comparing two rolls.
func CompareDice(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}
