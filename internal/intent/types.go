// Package intent classifies user utterances into actionable intent kinds.
// Classification is layered: cache, local heuristics, then a remote model,
// degrading to heuristics whenever the remote path is unavailable.
package intent

import (
	"fmt"
	"strings"
)

// Type is the intent kind an utterance resolves to.
type Type string

const (
	TypeMemoryWrite Type = "MEMORY_WRITE"
	TypeMemoryRead  Type = "MEMORY_READ"
	TypeCommand     Type = "COMMAND"
	TypeQuery       Type = "QUERY"
	TypeGreeting    Type = "GREETING"
)

// Valid reports whether t is a known intent kind.
func (t Type) Valid() bool {
	switch t {
	case TypeMemoryWrite, TypeMemoryRead, TypeCommand, TypeQuery, TypeGreeting:
		return true
	}
	return false
}

// ParseType converts a raw string into a Type, tolerating case noise.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown intent type %q", s)
	}
	return t, nil
}

// ParsedIntent is the classification result for one utterance.
type ParsedIntent struct {
	Type       Type     `json:"type"`
	Confidence float64  `json:"confidence"`
	Complexity float64  `json:"complexity"`
	Entities   []string `json:"entities"`
	Reasoning  string   `json:"reasoning"`

	// Source records which classification layer produced the result:
	// "cache", "heuristic", "remote", "local-model", or a fallback variant.
	Source string `json:"source,omitempty"`
}

// Validate checks the shape constraints on a classification result.
func (p ParsedIntent) Validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("unknown intent type %q", p.Type)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range [0,1]", p.Confidence)
	}
	if p.Complexity < 0 || p.Complexity > 1 {
		return fmt.Errorf("complexity %v out of range [0,1]", p.Complexity)
	}
	return nil
}
