package prompts

import (
	"github.com/rodrgost/cronicas-carmesim/pkg/state"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

// MaxPromptNPCs caps the roster sent to the LLM. In NPC conversation
// mode the payload carries exactly the one NPC being spoken with.
const MaxPromptNPCs = 10

// The types below are the keep-lists for the LLM payload: the field
// set is the authoritative contract for what the narrator may see.
// Nothing downstream parsing or display depends on may be dropped.

type CharacterState struct {
	Name         string         `json:"name"`
	Clan         string         `json:"clan,omitempty"`
	Attributes   vtm.Attributes `json:"attributes"`
	Skills       map[string]int `json:"skills,omitempty"`
	Health       int            `json:"health"`
	MaxHealth    int            `json:"max_health"`
	Willpower    int            `json:"willpower"`
	MaxWillpower int            `json:"max_willpower"`
	Humanity     int            `json:"humanity"`
	Hunger       int            `json:"hunger"`
	BloodPotency int            `json:"blood_potency"`
}

type ChronicleState struct {
	CurrentDay       int            `json:"current_day"`
	LastRestDay      int            `json:"last_rest_day"`
	ConversationMode string         `json:"conversation_mode"`
	NarrativeStyle   string         `json:"narrative_style,omitempty"`
	WorldState       vtm.WorldState `json:"world_state"`
}

// NPCState is the roster summary. Dead NPCs stay in context but are
// flagged so the narrator treats them as memories, not actors.
type NPCState struct {
	Name         string `json:"name"`
	Clan         string `json:"clan,omitempty"`
	Role         string `json:"role,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	TrustLevel   int    `json:"trust_level"`
	CurrentMood  string `json:"current_mood,omitempty"`
	Deceased     bool   `json:"deceased,omitempty"`
}

// ActiveNPCState is the full profile used in NPC conversation mode.
type ActiveNPCState struct {
	NPCState
	Personality string `json:"personality,omitempty"`
	Appearance  string `json:"appearance,omitempty"`
	Motivations string `json:"motivations,omitempty"`
	Knowledge   string `json:"knowledge,omitempty"`
}

type ItemState struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Equipped bool   `json:"equipped,omitempty"`
}

// PromptState is the reduced game context sent with every narrator
// call. Pure data shaping; no side effects.
type PromptState struct {
	Character      *CharacterState `json:"character"`
	Chronicle      *ChronicleState `json:"chronicle"`
	NPCs           []NPCState      `json:"npcs,omitempty"`
	ActiveNPC      *ActiveNPCState `json:"active_npc,omitempty"`
	Inventory      []ItemState     `json:"inventory,omitempty"`
	Lore           string          `json:"lore,omitempty"`
	PlayerLanguage string          `json:"playerLanguage,omitempty"`
}

// ToPromptState reduces a snapshot to the whitelisted payload.
func ToPromptState(snap *state.Snapshot, lang string) *PromptState {
	if snap == nil || snap.Character == nil || snap.Chronicle == nil {
		return nil
	}
	c := snap.Character
	chr := snap.Chronicle

	ps := &PromptState{
		Character: &CharacterState{
			Name:         c.Name,
			Clan:         c.Clan,
			Attributes:   c.Attributes,
			Skills:       c.Skills,
			Health:       c.Health,
			MaxHealth:    c.MaxHealth,
			Willpower:    c.Willpower,
			MaxWillpower: c.MaxWillpower,
			Humanity:     c.Humanity,
			Hunger:       c.Hunger,
			BloodPotency: c.BloodPotency,
		},
		Chronicle: &ChronicleState{
			CurrentDay:       chr.CurrentDay,
			LastRestDay:      chr.LastRestDay,
			ConversationMode: chr.ConversationMode,
			NarrativeStyle:   chr.NarrativeStyle,
			WorldState:       chr.WorldState,
		},
		PlayerLanguage: lang,
	}

	for _, item := range snap.Items {
		ps.Inventory = append(ps.Inventory, ItemState{
			Name:     item.Name,
			Type:     item.Type,
			Quantity: item.Quantity,
			Equipped: item.Equipped,
		})
	}

	if chr.ConversationMode == vtm.ModeNPC {
		if npc := findNPCByID(snap.NPCs, chr); npc != nil {
			ps.ActiveNPC = &ActiveNPCState{
				NPCState:    reduceNPC(npc),
				Personality: npc.Personality,
				Appearance:  npc.Appearance,
				Motivations: npc.Motivations,
				Knowledge:   npc.Knowledge,
			}
		}
		return ps
	}

	// Narrator mode: active NPCs first (most recent last in the
	// chronicle list, so walk it backwards), capped.
	seen := make(map[string]bool)
	for i := len(chr.ActiveNPCs) - 1; i >= 0 && len(ps.NPCs) < MaxPromptNPCs; i-- {
		for _, npc := range snap.NPCs {
			if npc.ID == chr.ActiveNPCs[i] && !seen[npc.Name] {
				ps.NPCs = append(ps.NPCs, reduceNPC(npc))
				seen[npc.Name] = true
			}
		}
	}
	for _, npc := range snap.NPCs {
		if len(ps.NPCs) >= MaxPromptNPCs {
			break
		}
		if !seen[npc.Name] {
			ps.NPCs = append(ps.NPCs, reduceNPC(npc))
			seen[npc.Name] = true
		}
	}
	return ps
}

func reduceNPC(npc *vtm.NPC) NPCState {
	return NPCState{
		Name:         npc.Name,
		Clan:         npc.Clan,
		Role:         npc.Role,
		Relationship: npc.Relationship,
		TrustLevel:   npc.TrustLevel,
		CurrentMood:  npc.CurrentMood,
		Deceased:     npc.Dead,
	}
}

func findNPCByID(npcs []*vtm.NPC, chr *vtm.Chronicle) *vtm.NPC {
	for _, npc := range npcs {
		if npc.ID == chr.ActiveNPCID {
			return npc
		}
	}
	return nil
}
