package intent

import "testing"

func TestHeuristicClassification(t *testing.T) {
	tests := []struct {
		text string
		want Type
	}{
		{"hello", TypeGreeting},
		{"hey there", TypeGreeting},
		{"good morning", TypeGreeting},
		{"remember that my birthday is in june", TypeMemoryWrite},
		{"remind me to water the plants", TypeMemoryWrite},
		{"my name is alex", TypeMemoryWrite},
		{"what's my favorite color", TypeMemoryRead},
		{"do you remember where i parked", TypeMemoryRead},
		{"turn on the lights", TypeCommand},
		{"set a timer for ten minutes", TypeCommand},
		{"play some jazz", TypeCommand},
		{"how tall is mount everest", TypeQuery},
		{"why is the sky blue", TypeQuery},
	}
	for _, tt := range tests {
		got := Heuristic(tt.text)
		if got.Type != tt.want {
			t.Errorf("Heuristic(%q).Type = %s, want %s", tt.text, got.Type, tt.want)
		}
		if err := got.Validate(); err != nil {
			t.Errorf("Heuristic(%q) produced invalid result: %v", tt.text, err)
		}
	}
}

func TestHeuristicIsPure(t *testing.T) {
	a := Heuristic("remember that i like coffee")
	b := Heuristic("remember that i like coffee")
	if a.Type != b.Type || a.Confidence != b.Confidence || a.Reasoning != b.Reasoning {
		t.Error("heuristic should be deterministic for identical input")
	}
}

func TestHeuristicGreetingOnlyWhenShort(t *testing.T) {
	got := Heuristic("hey can you explain how photosynthesis works in detail")
	if got.Type == TypeGreeting {
		t.Error("long utterance starting with a greeting word is not a greeting")
	}
}

func TestHeuristicEntityExtraction(t *testing.T) {
	got := Heuristic("remember that the wifi password is hunter2")
	if len(got.Entities) != 1 || got.Entities[0] != "the wifi password is hunter2" {
		t.Errorf("entities = %v", got.Entities)
	}
}
