package intent

import (
	"strings"
)

// =============================================================================
// LOCAL HEURISTIC CLASSIFIER
// =============================================================================

// Pattern tables for the zero-cost classification pass. Matching is on the
// lower-cased utterance; phrase order within a table does not matter.

var greetingPhrases = []string{
	"hi", "hello", "hey", "yo", "good morning", "good afternoon",
	"good evening", "what's up", "howdy",
}

var memoryWritePhrases = []string{
	"remember that", "remember this", "remember my", "save this", "save that",
	"note that", "remind me", "don't forget", "my name is", "i prefer",
	"i like", "keep in mind",
}

var memoryReadPhrases = []string{
	"what's my", "what is my", "what was my", "do you remember",
	"do you know my", "what did i", "recall", "what do you know about me",
	"who am i",
}

var commandVerbs = []string{
	"turn", "switch", "set", "open", "close", "start", "stop", "play",
	"pause", "resume", "dim", "lock", "unlock", "restart", "run", "create",
	"delete", "enable", "disable", "mute", "unmute",
}

// Heuristic classifies text without any remote call. It is a pure function
// of the input: same text, same result.
func Heuristic(text string) ParsedIntent {
	norm := strings.ToLower(strings.TrimSpace(text))
	words := strings.Fields(norm)
	complexity := complexityOf(words)

	if isGreeting(norm, words) {
		return ParsedIntent{
			Type:       TypeGreeting,
			Confidence: 0.95,
			Complexity: complexity,
			Reasoning:  "greeting phrase",
			Source:     "heuristic",
		}
	}

	for _, p := range memoryWritePhrases {
		if strings.Contains(norm, p) {
			return ParsedIntent{
				Type:       TypeMemoryWrite,
				Confidence: 0.85,
				Complexity: complexity,
				Entities:   entityAfter(norm, p),
				Reasoning:  "memory-write phrase: " + p,
				Source:     "heuristic",
			}
		}
	}

	for _, p := range memoryReadPhrases {
		if strings.Contains(norm, p) {
			return ParsedIntent{
				Type:       TypeMemoryRead,
				Confidence: 0.85,
				Complexity: complexity,
				Entities:   entityAfter(norm, p),
				Reasoning:  "memory-read phrase: " + p,
				Source:     "heuristic",
			}
		}
	}

	if len(words) > 0 {
		for _, v := range commandVerbs {
			if words[0] == v {
				return ParsedIntent{
					Type:       TypeCommand,
					Confidence: 0.7,
					Complexity: complexity,
					Reasoning:  "leading action verb: " + v,
					Source:     "heuristic",
				}
			}
		}
	}

	return ParsedIntent{
		Type:       TypeQuery,
		Confidence: 0.5,
		Complexity: complexity,
		Reasoning:  "no pattern matched, default query",
		Source:     "heuristic",
	}
}

func isGreeting(norm string, words []string) bool {
	// Greetings are short; a phrase buried in a long sentence is not one.
	if len(words) > 4 {
		return false
	}
	for _, p := range greetingPhrases {
		if norm == p || strings.HasPrefix(norm, p+" ") || strings.HasPrefix(norm, p+",") {
			return true
		}
	}
	return false
}

// complexityOf maps utterance length to a [0,1] complexity estimate.
func complexityOf(words []string) float64 {
	c := float64(len(words)) / 20.0
	if c > 1 {
		c = 1
	}
	return c
}

// entityAfter extracts the text following a trigger phrase as a single
// coarse entity.
func entityAfter(norm, phrase string) []string {
	idx := strings.Index(norm, phrase)
	if idx < 0 {
		return nil
	}
	rest := strings.TrimSpace(norm[idx+len(phrase):])
	if rest == "" {
		return nil
	}
	return []string{rest}
}
