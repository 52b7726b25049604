package state

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rodrgost/cronicas-carmesim/pkg/narrator"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

// Snapshot is the live game state a turn reconciles against.
type Snapshot struct {
	Character *vtm.Character
	Chronicle *vtm.Chronicle
	NPCs      []*vtm.NPC
	Items     []*vtm.Item
}

// Reconciler applies a parsed narrator response to a snapshot, staging
// the persistence writes and building a changes summary. Each top-level
// response field applies independently: a missing NPC reference or an
// unusable item update is skipped and logged, never fatal.
type Reconciler struct {
	snap   *Snapshot
	resp   *narrator.Response
	logger *slog.Logger
	result *Result

	characterDirty bool
	chronicleDirty bool
}

// NewReconciler creates a reconciler for one turn. A nil logger falls
// back to slog.Default.
func NewReconciler(snap *Snapshot, resp *narrator.Response, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		snap:   snap,
		resp:   resp,
		logger: logger,
	}
}

// Apply runs the reconciliation. A nil or fallback response applies no
// mutation at all and returns an empty result.
func (r *Reconciler) Apply() (*Result, error) {
	r.result = &Result{Changes: Changes{Stats: make(map[string]StatChange)}}

	if r.resp == nil || r.resp.Fallback {
		return r.result, nil
	}
	if r.snap == nil || r.snap.Character == nil || r.snap.Chronicle == nil {
		return nil, fmt.Errorf("snapshot requires character and chronicle")
	}

	r.applyStatUpdates()
	r.applyItemUpdates()
	r.applyNewNPCs()
	r.applyPortraitRequest()
	r.applyNPCStatusChanges()
	r.applyNPCUpdate()
	r.applyWorldEvent()
	r.applyTimePassage()
	r.applyChallenge()
	r.applyActiveNPCs()

	if r.characterDirty {
		r.snap.Character.ClampGauges()
		r.result.Character = r.snap.Character
	}
	if r.chronicleDirty {
		r.snap.Chronicle.WorldState.ClampGauges()
		r.result.Chronicle = r.snap.Chronicle
	}
	return r.result, nil
}

// applyStatUpdates handles both relative deltas and set_ absolutes,
// clamping each gauge to its legal range.
func (r *Reconciler) applyStatUpdates() {
	c := r.snap.Character
	for key, value := range r.resp.StatUpdates {
		stat, absolute := strings.CutPrefix(key, "set_")
		var from, to int
		switch stat {
		case "health":
			from = c.Health
			c.Health = clampStat(value, from, absolute, 0, c.MaxHealth)
			to = c.Health
		case "willpower":
			from = c.Willpower
			c.Willpower = clampStat(value, from, absolute, 0, c.MaxWillpower)
			to = c.Willpower
		case "humanity":
			from = c.Humanity
			c.Humanity = clampStat(value, from, absolute, 0, 10)
			to = c.Humanity
		case "hunger":
			from = c.Hunger
			c.Hunger = clampStat(value, from, absolute, 0, 5)
			to = c.Hunger
		default:
			r.logger.Warn("Unknown stat in statUpdates", "stat", key)
			continue
		}
		if from != to {
			r.result.Changes.Stats[stat] = StatChange{From: from, To: to}
			r.characterDirty = true
		}
	}
}

func clampStat(value, current int, absolute bool, lo, hi int) int {
	next := current + value
	if absolute {
		next = value
	}
	if next < lo {
		return lo
	}
	if next > hi {
		return hi
	}
	return next
}

// applyItemUpdates mutates the inventory. Adds match by name and type
// and increment rather than duplicating rows; removals decrement and
// delete the row at zero quantity.
func (r *Reconciler) applyItemUpdates() {
	for _, upd := range r.resp.ItemUpdates {
		name := strings.TrimSpace(upd.Name)
		if name == "" {
			continue
		}
		qty := upd.Quantity
		if qty <= 0 {
			qty = 1
		}

		switch strings.ToLower(upd.Action) {
		case narrator.ItemActionAdd:
			itemType := vtm.NormalizeItemType(upd.Type)
			if existing := r.findItem(name, itemType); existing != nil {
				existing.Quantity += qty
				r.result.markItemUpdated(existing)
			} else {
				item := &vtm.Item{
					ID:          uuid.New(),
					CharacterID: r.snap.Character.ID,
					UserID:      r.snap.Character.UserID,
					Name:        name,
					Type:        itemType,
					Quantity:    qty,
				}
				r.snap.Items = append(r.snap.Items, item)
				r.result.CreatedItems = append(r.result.CreatedItems, item)
			}
			r.result.Changes.ItemsAdded = append(r.result.Changes.ItemsAdded, name)

		case narrator.ItemActionRemove:
			existing := r.findItem(name, "")
			if existing == nil {
				r.logger.Warn("Item removal for unknown item", "item", name)
				continue
			}
			existing.Quantity -= qty
			if existing.Quantity <= 0 {
				r.deleteItem(existing)
			} else {
				r.result.markItemUpdated(existing)
			}
			r.result.Changes.ItemsRemoved = append(r.result.Changes.ItemsRemoved, name)

		case narrator.ItemActionUpdate:
			existing := r.findItem(name, "")
			if existing == nil {
				r.logger.Warn("Item update for unknown item", "item", name)
				continue
			}
			if upd.Quantity > 0 {
				existing.Quantity = upd.Quantity
			}
			if upd.Equipped != nil {
				existing.Equipped = *upd.Equipped
			}
			if existing.Quantity <= 0 {
				r.deleteItem(existing)
				r.result.Changes.ItemsRemoved = append(r.result.Changes.ItemsRemoved, name)
			} else {
				r.result.markItemUpdated(existing)
			}

		default:
			r.logger.Warn("Unknown item action", "action", upd.Action, "item", name)
		}
	}
}

// findItem matches by name, and by type too when one is given.
func (r *Reconciler) findItem(name, itemType string) *vtm.Item {
	for _, item := range r.snap.Items {
		if !strings.EqualFold(item.Name, name) {
			continue
		}
		if itemType != "" && item.Type != itemType {
			continue
		}
		return item
	}
	return nil
}

func (r *Reconciler) deleteItem(item *vtm.Item) {
	for i, existing := range r.snap.Items {
		if existing.ID == item.ID {
			r.snap.Items = append(r.snap.Items[:i], r.snap.Items[i+1:]...)
			break
		}
	}
	// An item created this turn and deleted in the same turn never
	// reaches storage.
	for i, created := range r.result.CreatedItems {
		if created.ID == item.ID {
			r.result.CreatedItems = append(r.result.CreatedItems[:i], r.result.CreatedItems[i+1:]...)
			return
		}
	}
	r.result.DeletedItemIDs = append(r.result.DeletedItemIDs, item.ID)
}

// applyNewNPCs creates roster entries for narrator-introduced NPCs.
func (r *Reconciler) applyNewNPCs() {
	for _, spec := range r.resp.NewNPCs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			continue
		}
		if existing := r.findNPC(name); existing != nil {
			r.logger.Debug("Narrator re-introduced an existing NPC", "npc", name)
			r.snap.Chronicle.TrackNPC(existing.ID)
			r.chronicleDirty = true
			continue
		}

		clan := spec.Clan
		if clan == "" {
			clan = vtm.InferClan(spec.Role + " " + spec.Personality + " " + spec.Appearance)
		}
		relationship := spec.Relationship
		if !vtm.ValidRelationship(relationship) {
			relationship = vtm.RelationshipNeutral
		}

		npc := &vtm.NPC{
			ID:           uuid.New(),
			ChronicleID:  r.snap.Chronicle.ID,
			UserID:       r.snap.Chronicle.UserID,
			Name:         name,
			Clan:         clan,
			Role:         spec.Role,
			Personality:  spec.Personality,
			Appearance:   spec.Appearance,
			Motivations:  spec.Motivations,
			Knowledge:    spec.Knowledge,
			Relationship: relationship,
			TrustLevel:   spec.TrustLevel,
			CurrentMood:  spec.CurrentMood,
		}
		r.snap.NPCs = append(r.snap.NPCs, npc)
		r.result.NewNPCs = append(r.result.NewNPCs, npc)
		r.result.Changes.NPCsCreated = append(r.result.Changes.NPCsCreated, name)
		r.snap.Chronicle.TrackNPC(npc.ID)
		r.chronicleDirty = true
	}
}

// applyPortraitRequest stages one portrait generation per directive.
// When the narrator asked for a portrait without declaring the NPC, a
// minimal record is synthesized from whatever the turn does carry: the
// active NPC name or the first status change, with the clan inferred
// from the narration keywords. Deliberate recovery for malformed
// output, not a hard failure.
func (r *Reconciler) applyPortraitRequest() {
	subject := strings.TrimSpace(r.resp.GenerateImageForNPC)
	if subject == "" {
		return
	}

	npc := r.findNPC(subject)
	if npc == nil {
		name := subject
		if strings.EqualFold(name, "unknown") {
			name = r.resp.ActiveNPC
		}
		if name == "" && len(r.resp.NPCStatusChanges) > 0 {
			name = r.resp.NPCStatusChanges[0].Name
		}
		if name == "" {
			r.logger.Warn("Portrait request with no resolvable NPC")
			return
		}
		npc = &vtm.NPC{
			ID:           uuid.New(),
			ChronicleID:  r.snap.Chronicle.ID,
			UserID:       r.snap.Chronicle.UserID,
			Name:         name,
			Clan:         vtm.InferClan(r.resp.StoryEvent + " " + r.resp.NPCDialogue),
			Relationship: vtm.RelationshipNeutral,
		}
		r.snap.NPCs = append(r.snap.NPCs, npc)
		r.result.NewNPCs = append(r.result.NewNPCs, npc)
		r.result.Changes.NPCsCreated = append(r.result.Changes.NPCsCreated, name)
		r.snap.Chronicle.TrackNPC(npc.ID)
		r.chronicleDirty = true
		r.logger.Info("Synthesized NPC for orphan portrait request", "npc", name, "clan", npc.Clan)
	}

	r.result.PortraitRequests = append(r.result.PortraitRequests, PortraitRequest{
		NPCID:       npc.ID,
		Name:        npc.Name,
		Clan:        npc.Clan,
		Appearance:  npc.Appearance,
		ChronicleID: r.snap.Chronicle.ID,
	})
}

// applyNPCStatusChanges resolves each change against the roster,
// including NPCs created earlier in this same turn. Death marks the
// record inert; the row is never deleted.
func (r *Reconciler) applyNPCStatusChanges() {
	for _, change := range r.resp.NPCStatusChanges {
		npc := r.findNPC(change.Name)
		if npc == nil {
			r.logger.Warn("Status change for unknown NPC, skipping", "npc", change.Name, "change", change.Change)
			continue
		}

		switch change.Change {
		case narrator.NPCChangeDeath:
			npc.Dead = true
			r.result.Changes.NPCStatusChanges = append(r.result.Changes.NPCStatusChanges,
				fmt.Sprintf("%s met final death", npc.Name))
		case narrator.NPCChangeRelationship:
			if !vtm.ValidRelationship(change.Value) {
				r.logger.Warn("Invalid relationship value", "npc", npc.Name, "value", change.Value)
				continue
			}
			npc.Relationship = change.Value
			r.result.Changes.NPCStatusChanges = append(r.result.Changes.NPCStatusChanges,
				fmt.Sprintf("%s is now %s", npc.Name, change.Value))
		case narrator.NPCChangeTrust:
			delta := change.TrustDelta
			if delta == 0 {
				if parsed, err := strconv.Atoi(strings.TrimSpace(change.Value)); err == nil {
					delta = parsed
				}
			}
			if delta == 0 {
				continue
			}
			npc.TrustLevel += delta
			r.result.Changes.NPCStatusChanges = append(r.result.Changes.NPCStatusChanges,
				fmt.Sprintf("%s trust %+d", npc.Name, delta))
		case narrator.NPCChangeMood:
			npc.CurrentMood = change.Value
			r.result.Changes.NPCStatusChanges = append(r.result.Changes.NPCStatusChanges,
				fmt.Sprintf("%s seems %s", npc.Name, change.Value))
		case narrator.NPCChangeOther:
			r.logger.Info("Unstructured NPC status change", "npc", npc.Name, "value", change.Value)
		default:
			r.logger.Warn("Unknown NPC change kind", "npc", npc.Name, "change", change.Change)
			continue
		}
		r.result.markNPCUpdated(npc)
	}
}

// applyNPCUpdate mutates the NPC being spoken with. Ignored outside
// NPC conversation mode.
func (r *Reconciler) applyNPCUpdate() {
	upd := r.resp.NPCUpdate
	if upd == nil {
		return
	}
	if r.snap.Chronicle.ConversationMode != vtm.ModeNPC {
		r.logger.Debug("npcUpdate outside NPC conversation mode, ignoring")
		return
	}

	var npc *vtm.NPC
	if r.snap.Chronicle.ActiveNPCID != uuid.Nil {
		npc = r.findNPCByID(r.snap.Chronicle.ActiveNPCID)
	}
	if npc == nil && upd.Name != "" {
		npc = r.findNPC(upd.Name)
	}
	if npc == nil {
		r.logger.Warn("npcUpdate with no active NPC to apply to")
		return
	}

	if upd.Personality != "" {
		npc.Personality = upd.Personality
	}
	if upd.Motivations != "" {
		npc.Motivations = upd.Motivations
	}
	if upd.Knowledge != "" {
		npc.Knowledge = upd.Knowledge
	}
	if upd.CurrentMood != "" {
		npc.CurrentMood = upd.CurrentMood
	}
	if vtm.ValidRelationship(upd.Relationship) {
		npc.Relationship = upd.Relationship
	}
	npc.TrustLevel += upd.TrustDelta
	r.result.markNPCUpdated(npc)
}

// applyWorldEvent stages a new story-interrupt event. Single-active is
// not guarded here: the input layer blocks the player while one is
// pending, and resolution clears the chronicle pointer.
func (r *Reconciler) applyWorldEvent() {
	delta := r.resp.WorldEvent
	if delta == nil || strings.TrimSpace(delta.Title) == "" {
		return
	}

	severity := delta.Severity
	switch severity {
	case vtm.SeverityMinor, vtm.SeverityModerate, vtm.SeverityMajor, vtm.SeverityCritical:
	default:
		severity = vtm.SeverityModerate
	}

	event := &vtm.WorldEvent{
		ID:          uuid.New(),
		ChronicleID: r.snap.Chronicle.ID,
		UserID:      r.snap.Chronicle.UserID,
		Type:        delta.Type,
		Severity:    severity,
		Title:       delta.Title,
		Description: delta.Description,
		Choices:     delta.Choices,
	}
	r.result.NewWorldEvent = event
	r.snap.Chronicle.ActiveWorldEventID = event.ID
	r.result.Changes.WorldEventCreated = event.Title
	r.bumpWorldGauge(delta.Type, severity)
	r.chronicleDirty = true
}

// bumpWorldGauge nudges the pressure gauge matching the event type.
func (r *Reconciler) bumpWorldGauge(eventType, severity string) {
	bump := 1
	if severity == vtm.SeverityMajor || severity == vtm.SeverityCritical {
		bump = 2
	}
	ws := &r.snap.Chronicle.WorldState
	switch eventType {
	case "masquerade_breach":
		ws.MasqueradeThreat += bump
	case "inquisition_raid":
		ws.SecondInquisitionHeat += bump
	case "sect_conflict":
		ws.SectTension += bump
	default:
		ws.SupernaturalActivity += bump
	}
}

func (r *Reconciler) applyTimePassage() {
	if r.resp.TimePassage <= 0 {
		return
	}
	r.snap.Chronicle.CurrentDay += r.resp.TimePassage
	r.result.Changes.DaysPassed = r.resp.TimePassage
	r.chronicleDirty = true
}

func (r *Reconciler) applyChallenge() {
	ch := r.resp.DiceRollChallenge
	if ch == nil {
		return
	}
	r.snap.Chronicle.PendingChallenge = &vtm.DiceChallenge{
		Attribute:   strings.ToLower(ch.Attribute),
		Skill:       strings.ToLower(ch.Skill),
		Difficulty:  ch.Difficulty,
		Description: ch.Description,
	}
	r.result.Changes.ChallengeIssued = true
	r.chronicleDirty = true
}

// applyActiveNPCs records who is in the scene, and in NPC mode points
// the chronicle at the conversation partner.
func (r *Reconciler) applyActiveNPCs() {
	names := r.resp.ActiveNPCs
	if r.resp.ActiveNPC != "" {
		names = append(names, r.resp.ActiveNPC)
	}
	for _, name := range names {
		npc := r.findNPC(name)
		if npc == nil {
			continue
		}
		r.snap.Chronicle.TrackNPC(npc.ID)
		r.chronicleDirty = true
		if r.snap.Chronicle.ConversationMode == vtm.ModeNPC && strings.EqualFold(name, r.resp.ActiveNPC) {
			r.snap.Chronicle.ActiveNPCID = npc.ID
		}
	}
}

// findNPC searches the roster, which already includes NPCs created
// this turn.
func (r *Reconciler) findNPC(name string) *vtm.NPC {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for _, npc := range r.snap.NPCs {
		if strings.EqualFold(npc.Name, name) {
			return npc
		}
	}
	return nil
}

func (r *Reconciler) findNPCByID(id uuid.UUID) *vtm.NPC {
	for _, npc := range r.snap.NPCs {
		if npc.ID == id {
			return npc
		}
	}
	return nil
}
