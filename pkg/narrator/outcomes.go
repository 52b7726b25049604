package narrator

import "golang.org/x/text/language"

// Fallback suggested actions shown when the narrator produced no
// usable outcomes, keyed by supported player language.
var fallbackOutcomes = map[language.Tag][]string{
	language.English: {
		"Observe your surroundings",
		"Proceed with caution",
		"Try a different approach",
	},
	language.BrazilianPortuguese: {
		"Observar os arredores",
		"Prosseguir com cautela",
		"Tentar outra abordagem",
	},
	language.Spanish: {
		"Observar los alrededores",
		"Avanzar con cautela",
		"Intentar otro enfoque",
	},
}

// Narration shown when the language model is unreachable and the turn
// degrades to a no-op.
var fallbackNarrations = map[language.Tag]string{
	language.English:             "The night blurs for a moment, as if the city itself lost its train of thought. Nothing changes. Try again.",
	language.BrazilianPortuguese: "A noite se embaça por um instante, como se a própria cidade tivesse perdido o fio da meada. Nada muda. Tente novamente.",
	language.Spanish:             "La noche se desdibuja por un instante, como si la propia ciudad hubiera perdido el hilo. Nada cambia. Inténtalo de nuevo.",
}

var outcomeMatcher = language.NewMatcher([]language.Tag{
	language.English, // first tag is the default
	language.BrazilianPortuguese,
	language.Spanish,
})

// FallbackOutcomes returns the suggested-action set for the closest
// supported language. Unknown or empty tags fall back to English.
func FallbackOutcomes(lang string) []string {
	tag, _ := language.Parse(lang)
	_, idx, _ := outcomeMatcher.Match(tag)
	supported := []language.Tag{language.English, language.BrazilianPortuguese, language.Spanish}
	outcomes := fallbackOutcomes[supported[idx]]
	out := make([]string, len(outcomes))
	copy(out, outcomes)
	return out
}

// FallbackNarration returns the degraded-turn narration for the
// closest supported language.
func FallbackNarration(lang string) string {
	tag, _ := language.Parse(lang)
	_, idx, _ := outcomeMatcher.Match(tag)
	supported := []language.Tag{language.English, language.BrazilianPortuguese, language.Spanish}
	return fallbackNarrations[supported[idx]]
}
