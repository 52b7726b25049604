package narrator

import (
	"encoding/json"
	"strings"
)

// Base stats addressable by statUpdates, in both delta and set_ form.
var statKeys = []string{"health", "willpower", "humanity", "hunger"}

// Parse extracts a Response from raw LLM output. It never fails:
// extraction strategies are tried in order and when all of them miss,
// the raw text is wrapped as narration with Fallback set.
//
//  1. direct JSON parse of the whole text
//  2. interior of the first fenced code block
//  3. substring from the first '{' to the last '}'
//  4. narrative-only wrap of the raw text
func Parse(raw string) *Response {
	if r, ok := decode(raw); ok {
		return r
	}
	if inner, ok := fencedBlock(raw); ok {
		if r, ok := decode(inner); ok {
			return r
		}
	}
	if span, ok := braceSpan(raw); ok {
		if r, ok := decode(span); ok {
			return r
		}
	}
	return &Response{StoryEvent: strings.TrimSpace(raw), Fallback: true}
}

// decode attempts a strict JSON parse. An object that decodes but
// carries nothing usable counts as a miss so later strategies run.
func decode(text string) (*Response, bool) {
	text = strings.TrimSpace(text)
	if text == "" || !strings.HasPrefix(text, "{") {
		return nil, false
	}
	var r Response
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, false
	}
	if r.IsEmpty() {
		return nil, false
	}
	return &r, true
}

// fencedBlock returns the interior of the first ``` fenced block,
// skipping a language tag on the opening fence line.
func fencedBlock(text string) (string, bool) {
	const fence = "```"
	start := strings.Index(text, fence)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(fence):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(rest[:nl])
		// A short bare word is a language tag ("json"), not content.
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{}") {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, fence)
	if end < 0 {
		// Truncated output: take everything after the opening fence.
		return rest, true
	}
	return rest[:end], true
}

// braceSpan returns the substring from the first '{' to the last '}'.
func braceSpan(text string) (string, bool) {
	first := strings.IndexByte(text, '{')
	last := strings.LastIndexByte(text, '}')
	if first < 0 || last <= first {
		return "", false
	}
	return text[first : last+1], true
}

// Normalize validates and repairs a parsed response in place:
//   - outcomes are trimmed and capped at 4; fewer than 2 usable
//     outcomes are replaced with the language-appropriate fallback set
//   - challenge difficulty gets a floor of 1
//   - a stat present in both delta and set_ form keeps only the
//     absolute form (deterministic tie-break)
//   - a non-empty newNPCs list without generateImageForNPC gets the
//     first new NPC's name, honoring the co-occurrence contract
func Normalize(r *Response, lang string) {
	if r == nil {
		return
	}

	cleaned := r.Outcomes[:0]
	for _, o := range r.Outcomes {
		if s := strings.TrimSpace(o); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	r.Outcomes = cleaned
	if len(r.Outcomes) > 4 {
		r.Outcomes = r.Outcomes[:4]
	}
	if len(r.Outcomes) < 2 {
		r.Outcomes = FallbackOutcomes(lang)
	}

	if r.DiceRollChallenge != nil && r.DiceRollChallenge.Difficulty < 1 {
		r.DiceRollChallenge.Difficulty = 1
	}

	for _, stat := range statKeys {
		if _, hasSet := r.StatUpdates["set_"+stat]; hasSet {
			delete(r.StatUpdates, stat)
		}
	}

	if len(r.NewNPCs) > 0 && r.GenerateImageForNPC == "" {
		r.GenerateImageForNPC = r.NewNPCs[0].Name
	}
}
