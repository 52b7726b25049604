package vtm

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item types. Anything unrecognized normalizes to ItemTypeMisc.
const (
	ItemTypeWeapon     = "weapon"
	ItemTypeArmor      = "armor"
	ItemTypeTool       = "tool"
	ItemTypeConsumable = "consumable"
	ItemTypeQuest      = "quest"
	ItemTypeMisc       = "misc"
)

// Item is an inventory row owned by a character. Quantity reaching zero
// deletes the row rather than keeping an empty entry.
type Item struct {
	ID          uuid.UUID `json:"id"`
	CharacterID uuid.UUID `json:"character_id"`
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Quantity    int       `json:"quantity"`
	Weight      float64   `json:"weight,omitempty"`
	Equipped    bool      `json:"equipped,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// NormalizeItemType maps free-text item types from the narrator onto the
// known set.
func NormalizeItemType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case ItemTypeWeapon, "arma":
		return ItemTypeWeapon
	case ItemTypeArmor, "armadura":
		return ItemTypeArmor
	case ItemTypeTool, "ferramenta":
		return ItemTypeTool
	case ItemTypeConsumable, "consumivel", "consumível":
		return ItemTypeConsumable
	case ItemTypeQuest, "missao", "missão":
		return ItemTypeQuest
	default:
		return ItemTypeMisc
	}
}
