package memory

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewNode(t *testing.T) {
	n := NewNode("  User's name is Alex  ", NodeIdentity, []string{"Identity", "identity", " auto "})
	if n.ID == "" {
		t.Error("node should get a generated id")
	}
	if n.Content != "User's name is Alex" {
		t.Errorf("Content = %q, want trimmed", n.Content)
	}
	if n.Relevance != 1.0 {
		t.Errorf("Relevance = %v, want 1.0", n.Relevance)
	}
	if diff := cmp.Diff([]string{"auto", "identity"}, n.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"dedupe and sort", []string{"b", "a", "b"}, []string{"a", "b"}},
		{"case folding", []string{"Home", "home", "WORK"}, []string{"home", "work"}},
		{"drops blanks", []string{"", "  ", "x"}, []string{"x"}},
		{"nil input", nil, []string{}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, normalizeTags(tt.in)); diff != "" {
			t.Errorf("%s (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestUnionTags(t *testing.T) {
	got := unionTags([]string{"identity"}, []string{"identity", "auto"})
	if diff := cmp.Diff([]string{"auto", "identity"}, got); diff != "" {
		t.Errorf("union mismatch (-want +got):\n%s", diff)
	}
}

func TestNodeValidate(t *testing.T) {
	if err := NewNode("ok", NodeFact, nil).Validate(); err != nil {
		t.Errorf("valid node rejected: %v", err)
	}
	if err := (&Node{ID: "x", Content: "ok", Type: "NOPE"}).Validate(); err == nil {
		t.Error("unknown type should be rejected")
	}
	if err := (&Node{ID: "x", Content: "   ", Type: NodeFact}).Validate(); err == nil {
		t.Error("blank content should be rejected")
	}
}
