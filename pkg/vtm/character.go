package vtm

import (
	"time"

	"github.com/google/uuid"
)

// Attributes is the V5 attribute block. Each attribute ranges 1-5.
type Attributes struct {
	// Physical
	Strength  int `json:"strength"`
	Dexterity int `json:"dexterity"`
	Stamina   int `json:"stamina"`
	// Social
	Charisma     int `json:"charisma"`
	Manipulation int `json:"manipulation"`
	Composure    int `json:"composure"`
	// Mental
	Intelligence int `json:"intelligence"`
	Wits         int `json:"wits"`
	Resolve      int `json:"resolve"`
}

// Value looks up an attribute by its lowercase name.
func (a *Attributes) Value(name string) (int, bool) {
	switch name {
	case "strength":
		return a.Strength, true
	case "dexterity":
		return a.Dexterity, true
	case "stamina":
		return a.Stamina, true
	case "charisma":
		return a.Charisma, true
	case "manipulation":
		return a.Manipulation, true
	case "composure":
		return a.Composure, true
	case "intelligence":
		return a.Intelligence, true
	case "wits":
		return a.Wits, true
	case "resolve":
		return a.Resolve, true
	}
	return 0, false
}

// Character is a player-owned vampire. Derived resource gauges are bounded:
// health and willpower to [0, max], humanity to [0,10], hunger to [0,5].
type Character struct {
	ID           uuid.UUID      `json:"id"`
	UserID       string         `json:"user_id,omitempty"`
	Name         string         `json:"name"`
	Clan         string         `json:"clan,omitempty"`
	Generation   int            `json:"generation,omitempty"`
	Concept      string         `json:"concept,omitempty"`
	Attributes   Attributes     `json:"attributes"`
	Skills       map[string]int `json:"skills,omitempty"` // 0-5 each
	Health       int            `json:"health"`
	MaxHealth    int            `json:"max_health"`
	Willpower    int            `json:"willpower"`
	MaxWillpower int            `json:"max_willpower"`
	Humanity     int            `json:"humanity"`
	Hunger       int            `json:"hunger"`
	BloodPotency int            `json:"blood_potency"`
	CreatedAt    time.Time      `json:"created_at,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at,omitempty"`
}

// NewCharacter creates a character with V5 starting gauges.
// Max health is stamina+3 and max willpower is composure+resolve.
func NewCharacter(userID, name, clan string, attrs Attributes) *Character {
	c := &Character{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         name,
		Clan:         clan,
		Generation:   13,
		Attributes:   attrs,
		Skills:       make(map[string]int),
		MaxHealth:    attrs.Stamina + 3,
		MaxWillpower: attrs.Composure + attrs.Resolve,
		Humanity:     7,
		Hunger:       1,
		BloodPotency: 1,
		CreatedAt:    time.Now(),
	}
	c.Health = c.MaxHealth
	c.Willpower = c.MaxWillpower
	return c
}

// Skill returns the rating for a skill, 0 when untrained.
func (c *Character) Skill(name string) int {
	if c.Skills == nil {
		return 0
	}
	return c.Skills[name]
}

// DicePool is attribute + skill, the base pool for a challenge.
func (c *Character) DicePool(attribute, skill string) int {
	attr, _ := c.Attributes.Value(attribute)
	return attr + c.Skill(skill)
}

// ClampGauges forces every derived resource back into its legal range.
// Called after any mutation so partial or hostile updates cannot leave
// the character in an illegal state.
func (c *Character) ClampGauges() {
	if c.MaxHealth < 1 {
		c.MaxHealth = 1
	}
	if c.MaxWillpower < 1 {
		c.MaxWillpower = 1
	}
	c.Health = clamp(c.Health, 0, c.MaxHealth)
	c.Willpower = clamp(c.Willpower, 0, c.MaxWillpower)
	c.Humanity = clamp(c.Humanity, 0, 10)
	c.Hunger = clamp(c.Hunger, 0, 5)
	c.BloodPotency = clamp(c.BloodPotency, 0, 10)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
