package vtm

import "math/rand/v2"

// PoolResult is the outcome of a V5 dice pool roll. Dice are d10s;
// 6+ counts as a success and each pair of 10s counts as a critical
// worth four successes total.
type PoolResult struct {
	Dice           []int `json:"dice"`
	HungerDice     []int `json:"hunger_dice,omitempty"`
	Successes      int   `json:"successes"`
	Critical       bool  `json:"critical"`
	MessyCritical  bool  `json:"messy_critical"`  // critical with a hunger 10
	BestialFailure bool  `json:"bestial_failure"` // failed with a hunger 1
}

// Roller rolls V5 dice pools. The source is injectable so challenge
// resolution stays deterministic in tests.
type Roller struct {
	rng *rand.Rand
}

func NewRoller(src rand.Source) *Roller {
	return &Roller{rng: rand.New(src)}
}

func (r *Roller) d10() int {
	return r.rng.IntN(10) + 1
}

// RollPool rolls a pool of the given size against the character's
// hunger. Hunger replaces regular dice one for one, capped at the
// pool size.
func (r *Roller) RollPool(pool, hunger int) PoolResult {
	if pool < 1 {
		pool = 1
	}
	hunger = clamp(hunger, 0, 5)
	if hunger > pool {
		hunger = pool
	}

	regular := make([]int, pool-hunger)
	for i := range regular {
		regular[i] = r.d10()
	}
	hungerDice := make([]int, hunger)
	for i := range hungerDice {
		hungerDice[i] = r.d10()
	}

	return ScorePool(regular, hungerDice)
}

// ScorePool computes the result for already-rolled dice.
func ScorePool(regular, hungerDice []int) PoolResult {
	res := PoolResult{Dice: regular, HungerDice: hungerDice}

	tens := 0
	hungerTens := 0
	hungerOnes := 0
	for _, d := range regular {
		if d >= 6 {
			res.Successes++
		}
		if d == 10 {
			tens++
		}
	}
	for _, d := range hungerDice {
		if d >= 6 {
			res.Successes++
		}
		if d == 10 {
			tens++
			hungerTens++
		}
		if d == 1 {
			hungerOnes++
		}
	}

	// Each pair of 10s is a critical: 4 successes instead of 2.
	pairs := tens / 2
	if pairs > 0 {
		res.Successes += pairs * 2
		res.Critical = true
		res.MessyCritical = hungerTens > 0
	}

	if res.Successes == 0 && hungerOnes > 0 {
		res.BestialFailure = true
	}
	return res
}

// RouseCheck rolls a single d10. On 1-5 the Beast stirs and the
// character's hunger increases by one, clamped at 5.
func (r *Roller) RouseCheck(c *Character) bool {
	stirred := r.d10() <= 5
	if stirred {
		c.Hunger = clamp(c.Hunger+1, 0, 5)
	}
	return stirred
}
