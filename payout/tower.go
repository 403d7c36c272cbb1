package payout

import (
	"fmt"
	"math"
	"strings"
)

// TowerLevels is the height of a tower.
const TowerLevels = 8

// TowerDifficulty fixes the row width, traps per row and per-level step.
type TowerDifficulty struct {
	Name  string
	Cells int
	Traps int
	Step  float64
}

var towerDifficulties = map[string]TowerDifficulty{
	"easy":   {Name: "easy", Cells: 4, Traps: 1, Step: 1.27},
	"medium": {Name: "medium", Cells: 3, Traps: 1, Step: 1.42},
	"hard":   {Name: "hard", Cells: 2, Traps: 1, Step: 1.90},
	"expert": {Name: "expert", Cells: 3, Traps: 2, Step: 2.85},
}

// LookupTowerDifficulty resolves a difficulty name, defaulting to medium.
func LookupTowerDifficulty(name string) (TowerDifficulty, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "medium"
	}
	d, ok := towerDifficulties[name]
	if !ok {
		return TowerDifficulty{}, fmt.Errorf("unknown tower difficulty %q", name)
	}
	return d, nil
}

// TowerMultiplier is floor2(step^level).
func TowerMultiplier(d TowerDifficulty, level int) float64 {
	if level <= 0 {
		return 1
	}
	return floorProduct(math.Pow(d.Step, float64(level)))
}
