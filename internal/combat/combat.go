// Package combat holds the numeric battle rules: the damage formula, the
// boss phase/enrage thresholds and the boss target-selection policy. All
// functions are pure given their inputs; randomness comes only from the
// caller-supplied source so battles replay identically under a fixed seed.
package combat

import (
	"math"
	"math/rand"

	"github.com/JonathanSaleh123/boss-hunter/internal/game"
)

// Intent multipliers applied on top of the attacker's attack stat.
const (
	BasicAttackMultiplier = 1.0
	AbilityMultiplier     = 1.5
	PassMultiplier        = 0.0

	// EnrageMultiplier scales boss damage while enraged.
	EnrageMultiplier = 1.5
)

// Variance bounds for the per-hit damage roll.
const (
	varianceMin  = 0.9
	varianceSpan = 0.2
)

// Damage computes the hit for an attacker with the given attack stat
// against the given defense. The formula is monotonic in attack and
// monotonically decreasing in defense:
//
//	floor(attack * multiplier * variance * 100 / (100 + defense))
//
// with variance drawn uniformly from [0.9, 1.1). A nil rng disables
// variance. The result is never negative.
func Damage(attack, defense int, multiplier float64, rng *rand.Rand) int {
	if attack < 0 {
		attack = 0
	}
	if defense < 0 {
		defense = 0
	}
	if multiplier <= 0 {
		return 0
	}
	variance := 1.0
	if rng != nil {
		variance = varianceMin + varianceSpan*rng.Float64()
	}
	dmg := math.Floor(float64(attack) * multiplier * variance * 100.0 / float64(100+defense))
	if dmg < 0 {
		return 0
	}
	return int(dmg)
}

// Enraged reports whether current health is below 30% of max.
func Enraged(current, max int) bool {
	return current*10 < max*3
}

// PhaseFor returns 2 when current health is below 50% of max, otherwise 1.
func PhaseFor(current, max int) int {
	if current*2 < max {
		return 2
	}
	return 1
}

// SelectTargetIndex picks which of the candidate healths the boss attacks.
// Phase 1 picks uniformly. Phase 2 weights each candidate by how far it is
// below the healthiest candidate, so wounded targets are hit more often but
// no alive target is ever excluded. The slice must contain only alive
// (positive) healths; the return value indexes into it.
func SelectTargetIndex(healths []int, phase int, rng *rand.Rand) int {
	if len(healths) == 0 {
		return -1
	}
	if len(healths) == 1 {
		return 0
	}
	if phase < 2 || rng == nil {
		if rng == nil {
			return 0
		}
		return rng.Intn(len(healths))
	}

	highest := healths[0]
	for _, h := range healths[1:] {
		if h > highest {
			highest = h
		}
	}
	weights := make([]int, len(healths))
	total := 0
	for i, h := range healths {
		// +1 keeps every candidate selectable, including the healthiest.
		weights[i] = highest - h + 1
		total += weights[i]
	}
	roll := rng.Intn(total)
	for i, w := range weights {
		roll -= w
		if roll < 0 {
			return i
		}
	}
	return len(healths) - 1
}

// MultiplierFor maps an intent kind onto its damage multiplier. Unknown
// kinds attack at the basic rate rather than silently passing.
func MultiplierFor(kind game.ActionKind) float64 {
	switch kind {
	case game.ActionPass, game.ActionNone:
		return PassMultiplier
	case game.ActionAbility:
		return AbilityMultiplier
	default:
		return BasicAttackMultiplier
	}
}
