package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rodrgost/cronicas-carmesim/internal/storage"
	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

type commandType string

const (
	cmdDebug    commandType = "debug"
	cmdAdminSet commandType = "admin_set"
	cmdSpawnNPC commandType = "spawn_npc"
	cmdMemorize commandType = "memorize"
	cmdNone     commandType = "" // no command, pass through to the narrator
)

// CommandResult represents the result of attempting to handle a side
// channel command.
type CommandResult struct {
	Handled bool   // true if resolved without an LLM call
	Message string // message to return, or the passthrough input
	Role    string // chat role for the message
}

// CommandProcessor resolves text-prefix commands that bypass the
// narrator pipeline.
type CommandProcessor struct {
	store  storage.Storage
	logger *slog.Logger
}

func NewCommandProcessor(store storage.Storage, logger *slog.Logger) *CommandProcessor {
	return &CommandProcessor{store: store, logger: logger}
}

// parseCommand classifies the input. Portuguese aliases are accepted
// alongside the English forms.
func parseCommand(input string) (commandType, string) {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)

	switch {
	case lower == "/debug":
		return cmdDebug, ""
	case strings.HasPrefix(lower, "/admin set "):
		return cmdAdminSet, strings.TrimSpace(trimmed[len("/admin set "):])
	case strings.HasPrefix(lower, "/narrador npc "):
		return cmdSpawnNPC, strings.TrimSpace(trimmed[len("/narrador npc "):])
	case strings.HasPrefix(lower, "/memorize "):
		return cmdMemorize, strings.TrimSpace(trimmed[len("/memorize "):])
	case strings.HasPrefix(lower, "/memorizar "):
		return cmdMemorize, strings.TrimSpace(trimmed[len("/memorizar "):])
	}
	return cmdNone, ""
}

// TryHandleCommand attempts to resolve the input as a side channel
// command. Unrecognized input passes through untouched so the caller
// can forward it to the narrator.
func (p *CommandProcessor) TryHandleCommand(ctx context.Context, chronicle *vtm.Chronicle, character *vtm.Character, input string) *CommandResult {
	cmd, args := parseCommand(input)

	switch cmd {
	case cmdDebug:
		return p.handleDebug(chronicle, character)
	case cmdAdminSet:
		return p.handleAdminSet(ctx, chronicle, character, args)
	case cmdSpawnNPC:
		return p.handleSpawnNPC(ctx, chronicle, args)
	case cmdMemorize:
		return p.handleMemorize(ctx, chronicle, args)
	default:
		return &CommandResult{
			Handled: false,
			Message: input,
			Role:    chat.ChatRoleUser,
		}
	}
}

func (p *CommandProcessor) handleDebug(chronicle *vtm.Chronicle, character *vtm.Character) *CommandResult {
	dump, err := json.MarshalIndent(map[string]any{
		"chronicle": chronicle,
		"character": character,
	}, "", "  ")
	if err != nil {
		return &CommandResult{Handled: true, Message: "debug: failed to serialize state", Role: chat.ChatRoleSystem}
	}
	return &CommandResult{Handled: true, Message: string(dump), Role: chat.ChatRoleSystem}
}

// handleAdminSet applies "/admin set <field> <value>" directly to the
// character or chronicle, skipping the reconciler. Gauges are clamped
// after the write.
func (p *CommandProcessor) handleAdminSet(ctx context.Context, chronicle *vtm.Chronicle, character *vtm.Character, args string) *CommandResult {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return &CommandResult{Handled: true, Message: "usage: /admin set <field> <value>", Role: chat.ChatRoleSystem}
	}
	field := strings.ToLower(fields[0])
	value, err := strconv.Atoi(fields[1])
	if err != nil {
		return &CommandResult{Handled: true, Message: fmt.Sprintf("value %q is not an integer", fields[1]), Role: chat.ChatRoleSystem}
	}

	saveCharacter := true
	switch field {
	case "health":
		character.Health = value
	case "willpower":
		character.Willpower = value
	case "hunger":
		character.Hunger = value
	case "humanity":
		character.Humanity = value
	case "blood_potency":
		character.BloodPotency = value
	case "masquerade_threat":
		chronicle.WorldState.MasqueradeThreat = value
		saveCharacter = false
	case "sect_tension":
		chronicle.WorldState.SectTension = value
		saveCharacter = false
	case "supernatural_activity":
		chronicle.WorldState.SupernaturalActivity = value
		saveCharacter = false
	case "second_inquisition_heat":
		chronicle.WorldState.SecondInquisitionHeat = value
		saveCharacter = false
	case "current_day":
		chronicle.CurrentDay = value
		saveCharacter = false
	default:
		return &CommandResult{Handled: true, Message: fmt.Sprintf("unknown field %q", field), Role: chat.ChatRoleSystem}
	}

	if saveCharacter {
		character.ClampGauges()
		if err := p.store.SaveCharacter(ctx, character); err != nil {
			p.logger.Error("Admin set failed to save character", "error", err)
			return &CommandResult{Handled: true, Message: "failed to save character", Role: chat.ChatRoleSystem}
		}
	} else {
		chronicle.WorldState.ClampGauges()
		if err := p.store.SaveChronicle(ctx, chronicle); err != nil {
			p.logger.Error("Admin set failed to save chronicle", "error", err)
			return &CommandResult{Handled: true, Message: "failed to save chronicle", Role: chat.ChatRoleSystem}
		}
	}

	p.logger.Info("Admin stat set", "chronicle_id", chronicle.ID, "field", field, "value", value)
	return &CommandResult{Handled: true, Message: fmt.Sprintf("%s set to %d", field, value), Role: chat.ChatRoleSystem}
}

// handleSpawnNPC creates an NPC from "/narrador npc Name | Clan | Role".
// Clan and role are optional.
func (p *CommandProcessor) handleSpawnNPC(ctx context.Context, chronicle *vtm.Chronicle, args string) *CommandResult {
	parts := strings.Split(args, "|")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return &CommandResult{Handled: true, Message: "usage: /narrador npc <name> | <clan> | <role>", Role: chat.ChatRoleSystem}
	}

	npc := &vtm.NPC{
		ID:           uuid.New(),
		ChronicleID:  chronicle.ID,
		UserID:       chronicle.UserID,
		Name:         name,
		Relationship: vtm.RelationshipNeutral,
	}
	if len(parts) > 1 {
		npc.Clan = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		npc.Role = strings.TrimSpace(parts[2])
	}

	if err := p.store.SaveNPC(ctx, npc); err != nil {
		p.logger.Error("Failed to spawn npc", "error", err)
		return &CommandResult{Handled: true, Message: "failed to create NPC", Role: chat.ChatRoleSystem}
	}
	chronicle.TrackNPC(npc.ID)
	if err := p.store.SaveChronicle(ctx, chronicle); err != nil {
		p.logger.Error("Failed to track spawned npc", "error", err)
	}

	p.logger.Info("NPC spawned via command", "chronicle_id", chronicle.ID, "npc", npc.Name)
	return &CommandResult{Handled: true, Message: fmt.Sprintf("NPC %q joined the chronicle", npc.Name), Role: chat.ChatRoleSystem}
}

// handleMemorize stores "/memorizar <title>: <content>" as a lore
// fragment in the chronicle's world.
func (p *CommandProcessor) handleMemorize(ctx context.Context, chronicle *vtm.Chronicle, args string) *CommandResult {
	title, content, found := strings.Cut(args, ":")
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if !found || title == "" || content == "" {
		return &CommandResult{Handled: true, Message: "usage: /memorizar <title>: <content>", Role: chat.ChatRoleSystem}
	}

	fragment := &vtm.LoreFragment{
		ID:       uuid.New(),
		WorldID:  chronicle.WorldID,
		Title:    title,
		Category: "memoria",
		Content:  content,
	}
	if err := p.store.SaveLoreFragment(ctx, fragment); err != nil {
		p.logger.Error("Failed to save memorized lore", "error", err)
		return &CommandResult{Handled: true, Message: "failed to save lore fragment", Role: chat.ChatRoleSystem}
	}

	p.logger.Info("Lore memorized", "world_id", chronicle.WorldID, "title", title)
	return &CommandResult{Handled: true, Message: fmt.Sprintf("Memorized %q", title), Role: chat.ChatRoleSystem}
}
