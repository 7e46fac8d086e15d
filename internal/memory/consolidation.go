package memory

import (
	"context"
	"strings"
	"time"

	"aura/internal/embedding"
	"aura/internal/logging"
)

// =============================================================================
// CONSOLIDATION ENGINE
// =============================================================================

// Action describes what consolidation did with an incoming node.
type Action string

const (
	ActionStored       Action = "stored"
	ActionMerged       Action = "merged"
	ActionDeduplicated Action = "deduplicated"
)

// Result is the consolidation outcome. NodeID is the id the content lives
// under after consolidation, which for merges and dedups is the existing
// node's id, not the incoming one's.
type Result struct {
	Action Action
	NodeID string
}

// EngineConfig holds consolidation and decay tunables.
type EngineConfig struct {
	// DuplicateThreshold is the cosine similarity at or above which an
	// incoming node is discarded as a duplicate, provided lexical overlap
	// also agrees.
	DuplicateThreshold float64

	// MergeThreshold is the cosine similarity at or above which an
	// incoming node is merged into the existing hit.
	MergeThreshold float64

	// LexicalOverlapThreshold guards dedup against embedding false
	// positives: both signals must agree before content is discarded.
	LexicalOverlapThreshold float64

	// DecayAfter is the age before a node starts decaying.
	DecayAfter time.Duration

	// DecayHalfLife controls how fast relevance halves once decay starts.
	DecayHalfLife time.Duration

	// RelevanceFloor prunes nodes whose decayed relevance falls below it.
	RelevanceFloor float64

	// AccessBonus is added to relevance per recorded access.
	AccessBonus float64

	// SearchLimit caps consolidation candidate searches.
	SearchLimit int
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DuplicateThreshold:      0.95,
		MergeThreshold:          0.85,
		LexicalOverlapThreshold: 0.9,
		DecayAfter:              7 * 24 * time.Hour,
		DecayHalfLife:           30 * 24 * time.Hour,
		RelevanceFloor:          0.1,
		AccessBonus:             0.05,
		SearchLimit:             10,
	}
}

// Engine consolidates writes into the store: dedup first, merge second,
// plain insert last.
type Engine struct {
	store    *Store
	embedder embedding.Engine
	cfg      EngineConfig

	now func() time.Time
}

// NewEngine creates a consolidation engine over store.
func NewEngine(store *Store, embedder embedding.Engine, cfg EngineConfig) *Engine {
	if cfg.DuplicateThreshold <= 0 {
		cfg.DuplicateThreshold = 0.95
	}
	if cfg.MergeThreshold <= 0 {
		cfg.MergeThreshold = 0.85
	}
	if cfg.LexicalOverlapThreshold <= 0 {
		cfg.LexicalOverlapThreshold = 0.9
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 10
	}
	return &Engine{store: store, embedder: embedder, cfg: cfg, now: time.Now}
}

// StoreWithConsolidation writes node through the dedup/merge pipeline.
// Similarity search failures degrade to a plain insert: a write must never
// be lost to a search problem.
func (e *Engine) StoreWithConsolidation(ctx context.Context, node *Node) (Result, error) {
	timer := logging.StartTimer(logging.CategoryMemory, "StoreWithConsolidation")
	defer timer.Stop()

	if err := node.Validate(); err != nil {
		return Result{}, err
	}

	if node.Embedding == nil && e.embedder != nil {
		vec, err := e.embedder.Embed(ctx, node.Content)
		if err != nil {
			logging.Get(logging.CategoryMemory).Warn("embedding failed, inserting without consolidation: %v", err)
			return e.insert(ctx, node)
		}
		node.Embedding = vec
	}

	if node.Embedding == nil {
		return e.insert(ctx, node)
	}

	hits, err := e.store.SearchByVector(node.Embedding, e.cfg.SearchLimit, e.cfg.MergeThreshold)
	if err != nil {
		logging.Get(logging.CategoryMemory).Warn("similarity search failed, inserting as new: %v", err)
		return e.insert(ctx, node)
	}

	for _, hit := range hits {
		if hit.Node.ID == node.ID {
			continue
		}
		if hit.Similarity >= e.cfg.DuplicateThreshold &&
			lexicalOverlap(node.Content, hit.Node.Content) >= e.cfg.LexicalOverlapThreshold {
			logging.Memory("deduplicated %q against node %s (sim=%.3f)", node.Content, hit.Node.ID, hit.Similarity)
			if err := e.store.TouchAccess(hit.Node.ID); err != nil {
				return Result{}, err
			}
			return Result{Action: ActionDeduplicated, NodeID: hit.Node.ID}, nil
		}
	}

	for _, hit := range hits {
		if hit.Node.ID == node.ID {
			continue
		}
		if hit.Similarity >= e.cfg.MergeThreshold {
			return e.merge(ctx, node, hit.Node, hit.Similarity)
		}
	}

	return e.insert(ctx, node)
}

func (e *Engine) insert(ctx context.Context, node *Node) (Result, error) {
	if err := e.store.Upsert(ctx, node); err != nil {
		return Result{}, err
	}
	return Result{Action: ActionStored, NodeID: node.ID}, nil
}

// merge folds incoming into existing and persists under existing's id.
func (e *Engine) merge(ctx context.Context, incoming, existing *Node, similarity float64) (Result, error) {
	logging.Memory("merging %q into node %s (sim=%.3f)", incoming.Content, existing.ID, similarity)

	existing.Tags = unionTags(existing.Tags, incoming.Tags)
	if incoming.Created.Before(existing.Created) {
		existing.Created = incoming.Created
	}
	existing.LastAccessed = e.now()

	merged := mergeContent(existing.Content, incoming.Content)
	if merged != existing.Content {
		existing.Content = merged
		existing.Embedding = nil // content changed, re-embed on upsert
	}

	if err := e.store.Upsert(ctx, existing); err != nil {
		return Result{}, err
	}
	if incoming.ID != existing.ID {
		if err := e.store.Delete(incoming.ID); err != nil {
			return Result{}, err
		}
	}
	return Result{Action: ActionMerged, NodeID: existing.ID}, nil
}

// mergeContent combines two content strings: containment keeps the longer,
// otherwise novel sentence fragments from b are appended to a.
func mergeContent(a, b string) string {
	al, bl := strings.ToLower(a), strings.ToLower(b)
	if strings.Contains(al, bl) {
		return a
	}
	if strings.Contains(bl, al) {
		return b
	}

	seen := make(map[string]bool)
	var out []string
	for _, frag := range append(sentences(a), sentences(b)...) {
		key := strings.ToLower(frag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, frag)
	}
	return strings.Join(out, ". ")
}

// sentences splits content into trimmed sentence-level fragments.
func sentences(s string) []string {
	var out []string
	for _, frag := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == ';'
	}) {
		frag = strings.TrimSpace(frag)
		if frag != "" {
			out = append(out, frag)
		}
	}
	return out
}

// lexicalOverlap measures token overlap between two strings as
// |intersection| / |smaller token set|. Range [0,1].
func lexicalOverlap(a, b string) float64 {
	as := tokenSet(a)
	bs := tokenSet(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}

	small, large := as, bs
	if len(bs) < len(as) {
		small, large = bs, as
	}

	common := 0
	for tok := range small {
		if large[tok] {
			common++
		}
	}
	return float64(common) / float64(len(small))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[strings.Trim(tok, ".,!?;:'\"()")] = true
	}
	delete(set, "")
	return set
}
