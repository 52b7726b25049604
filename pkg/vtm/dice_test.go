package vtm

import (
	"math/rand/v2"
	"testing"
)

func TestScorePool(t *testing.T) {
	tests := []struct {
		name       string
		regular    []int
		hunger     []int
		successes  int
		critical   bool
		messy      bool
		bestial    bool
	}{
		{
			name:      "plain successes at 6+",
			regular:   []int{6, 7, 3, 2, 9},
			successes: 3,
		},
		{
			name:      "pair of tens is a critical worth four",
			regular:   []int{10, 10, 4},
			successes: 4,
			critical:  true,
		},
		{
			name:      "single ten is just a success",
			regular:   []int{10, 3, 3},
			successes: 1,
		},
		{
			name:      "messy critical when a hunger ten completes the pair",
			regular:   []int{10, 5},
			hunger:    []int{10},
			successes: 4,
			critical:  true,
			messy:     true,
		},
		{
			name:    "bestial failure on zero successes with a hunger one",
			regular: []int{3, 2},
			hunger:  []int{1},
			bestial: true,
		},
		{
			name:      "hunger one with successes is not bestial",
			regular:   []int{8, 8},
			hunger:    []int{1},
			successes: 2,
		},
		{
			name:      "three tens score one pair plus one success",
			regular:   []int{10, 10, 10},
			successes: 5,
			critical:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ScorePool(tt.regular, tt.hunger)
			if res.Successes != tt.successes {
				t.Errorf("Successes = %d, want %d", res.Successes, tt.successes)
			}
			if res.Critical != tt.critical {
				t.Errorf("Critical = %v, want %v", res.Critical, tt.critical)
			}
			if res.MessyCritical != tt.messy {
				t.Errorf("MessyCritical = %v, want %v", res.MessyCritical, tt.messy)
			}
			if res.BestialFailure != tt.bestial {
				t.Errorf("BestialFailure = %v, want %v", res.BestialFailure, tt.bestial)
			}
		})
	}
}

func TestRoller_RollPool_Bounds(t *testing.T) {
	r := NewRoller(rand.NewPCG(7, 13))
	for i := 0; i < 200; i++ {
		res := r.RollPool(5, 2)
		if len(res.Dice) != 3 || len(res.HungerDice) != 2 {
			t.Fatalf("dice split = %d/%d, want 3/2", len(res.Dice), len(res.HungerDice))
		}
		for _, d := range append(res.Dice, res.HungerDice...) {
			if d < 1 || d > 10 {
				t.Fatalf("die out of range: %d", d)
			}
		}
	}
}

func TestRoller_RollPool_HungerCappedAtPool(t *testing.T) {
	r := NewRoller(rand.NewPCG(1, 2))
	res := r.RollPool(2, 5)
	if len(res.Dice) != 0 || len(res.HungerDice) != 2 {
		t.Errorf("dice split = %d/%d, want 0/2", len(res.Dice), len(res.HungerDice))
	}
}

func TestRoller_RouseCheck(t *testing.T) {
	c := NewCharacter("user-1", "Dora", "Gangrel", Attributes{Stamina: 2, Composure: 2, Resolve: 2})
	c.Hunger = 5

	r := NewRoller(rand.NewPCG(3, 9))
	for i := 0; i < 50; i++ {
		r.RouseCheck(c)
		if c.Hunger < 0 || c.Hunger > 5 {
			t.Fatalf("Hunger = %d, out of [0,5]", c.Hunger)
		}
	}
	if c.Hunger != 5 {
		t.Errorf("Hunger at cap should never exceed 5, got %d", c.Hunger)
	}
}
