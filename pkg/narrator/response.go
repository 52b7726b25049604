package narrator

import (
	"encoding/json"
	"fmt"
)

// Response is the structured turn contract the narrator LLM is prompted
// to produce. Every field is optional except that a displayable turn
// carries exactly one of StoryEvent or NPCDialogue. The schema is
// additive: each top-level key applies independently, so a turn with
// one malformed section still applies the rest.
type Response struct {
	StoryEvent  string   `json:"storyEvent,omitempty"`
	NPCDialogue string   `json:"npcDialogue,omitempty"`
	Outcomes    []string `json:"outcomes,omitempty"`

	// StatUpdates carries either relative deltas ("hunger": 1) or
	// absolute assignments ("set_hunger": 3). The prompt contract says
	// the two forms are never mixed per stat; Normalize resolves a
	// violation by letting the absolute form win.
	StatUpdates StatUpdates `json:"statUpdates,omitempty"`

	DiceRollChallenge *DiceRollChallenge `json:"diceRollChallenge,omitempty"`
	TimePassage       int                `json:"timePassage,omitempty"` // days

	NewNPCs             []NewNPC `json:"newNPCs,omitempty"`
	GenerateImageForNPC string   `json:"generateImageForNPC,omitempty"`

	ItemUpdates      []ItemUpdate      `json:"itemUpdates,omitempty"`
	NPCStatusChanges []NPCStatusChange `json:"npcStatusChanges,omitempty"`

	// NPCUpdate is only meaningful in NPC conversation mode.
	NPCUpdate *NPCUpdate `json:"npcUpdate,omitempty"`

	ActiveNPC  string   `json:"activeNPC,omitempty"`
	ActiveNPCs []string `json:"activeNPCs,omitempty"`

	WorldEvent *WorldEventDelta `json:"worldEvent,omitempty"`

	// Fallback is set when extraction failed entirely and the raw text
	// was wrapped as narration. No state mutation happens on a
	// fallback response.
	Fallback bool `json:"-"`
}

// StatUpdates tolerates numeric values arriving as floats or quoted
// numbers, which LLMs produce routinely.
type StatUpdates map[string]int

func (su *StatUpdates) UnmarshalJSON(data []byte) error {
	var raw map[string]json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		// Retry with quoted numbers stripped by a looser pass.
		var loose map[string]any
		if err2 := json.Unmarshal(data, &loose); err2 != nil {
			return fmt.Errorf("statUpdates: %w", err)
		}
		out := make(StatUpdates, len(loose))
		for k, v := range loose {
			switch n := v.(type) {
			case float64:
				out[k] = int(n)
			case string:
				var num json.Number = json.Number(n)
				if i, err := num.Int64(); err == nil {
					out[k] = int(i)
				}
			}
		}
		*su = out
		return nil
	}
	out := make(StatUpdates, len(raw))
	for k, v := range raw {
		if i, err := v.Int64(); err == nil {
			out[k] = int(i)
		} else if f, err := v.Float64(); err == nil {
			out[k] = int(f)
		}
	}
	*su = out
	return nil
}

// DiceRollChallenge asks the player to roll attribute+skill against a
// difficulty before the story continues.
type DiceRollChallenge struct {
	Attribute   string `json:"attribute"`
	Skill       string `json:"skill,omitempty"`
	Difficulty  int    `json:"difficulty"`
	Description string `json:"description,omitempty"`
}

// NewNPC describes a character the narrator just introduced.
type NewNPC struct {
	Name         string `json:"name"`
	Clan         string `json:"clan,omitempty"`
	Role         string `json:"role,omitempty"`
	Personality  string `json:"personality,omitempty"`
	Appearance   string `json:"appearance,omitempty"`
	Motivations  string `json:"motivations,omitempty"`
	Knowledge    string `json:"knowledge,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	TrustLevel   int    `json:"trustLevel,omitempty"`
	CurrentMood  string `json:"currentMood,omitempty"`
}

// Item update actions.
const (
	ItemActionAdd    = "add"
	ItemActionRemove = "remove"
	ItemActionUpdate = "update"
)

type ItemUpdate struct {
	Action   string `json:"action"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
	Equipped *bool  `json:"equipped,omitempty"`
}

// NPC status change kinds.
const (
	NPCChangeDeath        = "death"
	NPCChangeRelationship = "relationship"
	NPCChangeTrust        = "trust"
	NPCChangeMood         = "mood"
	NPCChangeOther        = "other"
)

type NPCStatusChange struct {
	Name       string `json:"name"`
	Change     string `json:"change"`
	Value      string `json:"value,omitempty"`
	TrustDelta int    `json:"trustDelta,omitempty"`
}

// NPCUpdate mutates the NPC currently being spoken with.
type NPCUpdate struct {
	Name         string `json:"name,omitempty"`
	Personality  string `json:"personality,omitempty"`
	Motivations  string `json:"motivations,omitempty"`
	Knowledge    string `json:"knowledge,omitempty"`
	CurrentMood  string `json:"currentMood,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	TrustDelta   int    `json:"trustDelta,omitempty"`
}

// WorldEventDelta creates a story-interrupt event with player choices.
type WorldEventDelta struct {
	Type        string   `json:"type"`
	Severity    string   `json:"severity,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Choices     []string `json:"choices,omitempty"`
}

// Narrative returns the displayable text for the turn.
func (r *Response) Narrative() string {
	if r.NPCDialogue != "" {
		return r.NPCDialogue
	}
	return r.StoryEvent
}

// IsEmpty reports whether the response carries neither narrative nor
// any actionable delta.
func (r *Response) IsEmpty() bool {
	return r == nil || (r.StoryEvent == "" &&
		r.NPCDialogue == "" &&
		len(r.Outcomes) == 0 &&
		len(r.StatUpdates) == 0 &&
		r.DiceRollChallenge == nil &&
		r.TimePassage == 0 &&
		len(r.NewNPCs) == 0 &&
		r.GenerateImageForNPC == "" &&
		len(r.ItemUpdates) == 0 &&
		len(r.NPCStatusChanges) == 0 &&
		r.NPCUpdate == nil &&
		r.WorldEvent == nil)
}
