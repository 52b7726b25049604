package vtm

import (
	"strings"
	"sync"

	"github.com/coregx/ahocorasick"
)

// Clans is the catalog of playable clans recognized by the engine.
var Clans = []string{
	"Brujah",
	"Gangrel",
	"Malkavian",
	"Nosferatu",
	"Toreador",
	"Tremere",
	"Ventrue",
	"Banu Haqim",
	"Hecata",
	"Lasombra",
	"The Ministry",
	"Ravnos",
	"Salubri",
	"Tzimisce",
	"Caitiff",
	"Thin-Blood",
}

// clanAliases maps extra surface forms onto canonical clan names.
var clanAliases = map[string]string{
	"assamite":    "Banu Haqim",
	"setite":      "The Ministry",
	"ministry":    "The Ministry",
	"giovanni":    "Hecata",
	"thin blood":  "Thin-Blood",
	"thinblood":   "Thin-Blood",
	"duskborn":    "Thin-Blood",
	"keeper":      "Lasombra",
	"magister":    "Lasombra",
	"warlock":     "Tremere",
	"blue blood":  "Ventrue",
	"sewer rat":   "Nosferatu",
	"degenerate":  "Toreador",
	"fiend":       "Tzimisce",
	"lunatic":     "Malkavian",
	"rabble":      "Brujah",
	"outlander":   "Gangrel",
	"clanless":    "Caitiff",
	"judge":       "Banu Haqim",
	"necromancer": "Hecata",
}

var (
	clanMatcherOnce sync.Once
	clanAutomaton   *ahocorasick.Automaton
	clanPatterns    []string
	clanByPattern   map[string]string
)

func buildClanMatcher() {
	clanByPattern = make(map[string]string, len(Clans)+len(clanAliases))
	for _, clan := range Clans {
		clanByPattern[strings.ToLower(clan)] = clan
	}
	for alias, clan := range clanAliases {
		clanByPattern[alias] = clan
	}

	clanPatterns = make([]string, 0, len(clanByPattern))
	for pattern := range clanByPattern {
		clanPatterns = append(clanPatterns, pattern)
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(clanPatterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		// Leave the automaton nil; InferClan degrades to "no match".
		return
	}
	clanAutomaton = automaton
}

// InferClan scans free text for a clan name or alias and returns the
// canonical clan, or "" when nothing matches. Used to recover a clan
// for NPCs the narrator described but never typed properly.
func InferClan(text string) string {
	clanMatcherOnce.Do(buildClanMatcher)
	if clanAutomaton == nil || text == "" {
		return ""
	}

	haystack := []byte(strings.ToLower(text))
	matches := clanAutomaton.FindAllOverlapping(haystack)
	if len(matches) == 0 {
		return ""
	}

	// Earliest mention wins; ties go to the longer pattern.
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Start < best.Start || (m.Start == best.Start && m.End-m.Start > best.End-best.Start) {
			best = m
		}
	}

	pattern := string(haystack[best.Start:best.End])
	return clanByPattern[pattern]
}
