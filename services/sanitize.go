package services

import (
	"strings"

	"github.com/kmish9685/Persona-AI/config"
)

const defaultMaxWords = 150

// SanitizeResponse enforces the persona's response-shape rules on model
// output: a hard word cap with an ellipsis marker, then forbidden-phrase
// removal. Pure function; it never fails.
//
// Phrase matching is deliberately asymmetric: detection is case-insensitive
// but removal strips only the literally-configured casing, so mixed-case
// occurrences in the model output survive. This matches the deployed
// behavior that clients were tested against.
func SanitizeResponse(text string, rules config.PersonaRules) string {
	maxWords := rules.MaxWords
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}

	words := strings.Fields(text)
	if len(words) > maxWords {
		text = strings.Join(words[:maxWords], " ") + "..."
	}

	for _, phrase := range rules.ForbiddenPhrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(strings.ToLower(text), strings.ToLower(phrase)) {
			text = strings.ReplaceAll(text, phrase, "")
		}
	}
	return text
}
