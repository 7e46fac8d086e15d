// Package memory implements the persistent memory store and the
// consolidation engine that deduplicates, merges, and decays stored nodes.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NodeType categorizes what kind of memory a node holds.
type NodeType string

const (
	NodeFact       NodeType = "FACT"
	NodeEpisode    NodeType = "EPISODE"
	NodeSummary    NodeType = "SUMMARY"
	NodeIdentity   NodeType = "IDENTITY"
	NodePreference NodeType = "PREFERENCE"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeFact, NodeEpisode, NodeSummary, NodeIdentity, NodePreference:
		return true
	}
	return false
}

// Node is one stored memory. The store owns node identity and embeddings;
// callers never persist a node outside the store.
type Node struct {
	ID           string
	Content      string
	Type         NodeType
	Tags         []string
	Created      time.Time
	LastAccessed time.Time
	Relevance    float64
	AccessCount  int
	Embedding    []float32
}

// NewNode builds a fresh node with a generated id and full relevance.
func NewNode(content string, nodeType NodeType, tags []string) *Node {
	now := time.Now()
	return &Node{
		ID:           uuid.NewString(),
		Content:      strings.TrimSpace(content),
		Type:         nodeType,
		Tags:         normalizeTags(tags),
		Created:      now,
		LastAccessed: now,
		Relevance:    1.0,
	}
}

// Validate checks the node is storable.
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node has no id")
	}
	if strings.TrimSpace(n.Content) == "" {
		return fmt.Errorf("node has no content")
	}
	if !n.Type.Valid() {
		return fmt.Errorf("unknown node type %q", n.Type)
	}
	return nil
}

// normalizeTags lower-cases, dedupes, and sorts a tag list.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// unionTags returns the sorted union of two tag lists.
func unionTags(a, b []string) []string {
	return normalizeTags(append(append([]string{}, a...), b...))
}
