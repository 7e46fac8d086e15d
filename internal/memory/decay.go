package memory

import (
	"context"
	"math"
	"time"

	"aura/internal/embedding"
	"aura/internal/logging"
)

// =============================================================================
// DECAY & MAINTENANCE
// =============================================================================

// MaintenanceReport summarizes one maintenance pass.
type MaintenanceReport struct {
	Scanned      int
	Decayed      int
	Pruned       int
	Deduplicated int
}

// RunMaintenance performs the periodic store upkeep: relevance decay with
// pruning, then a full pairwise dedup sweep. The sweep is O(n²) over all
// embedded nodes; acceptable for personal-scale stores of a few thousand
// nodes at most.
func (e *Engine) RunMaintenance(ctx context.Context) (MaintenanceReport, error) {
	timer := logging.StartTimer(logging.CategoryMemory, "RunMaintenance")
	defer timer.Stop()

	var report MaintenanceReport

	nodes, err := e.store.All()
	if err != nil {
		return report, err
	}
	report.Scanned = len(nodes)
	now := e.now()

	for _, n := range nodes {
		age := now.Sub(n.Created)
		if age <= e.cfg.DecayAfter {
			continue
		}

		decayed := decayedRelevance(age, n.AccessCount, e.cfg)
		if decayed < e.cfg.RelevanceFloor {
			logging.Memory("pruning node %s (relevance %.3f below floor)", n.ID, decayed)
			if err := e.store.Delete(n.ID); err != nil {
				return report, err
			}
			report.Pruned++
			continue
		}
		if decayed != n.Relevance {
			n.Relevance = decayed
			if err := e.store.Upsert(ctx, n); err != nil {
				return report, err
			}
			report.Decayed++
		}
	}

	deduped, err := e.dedupSweep(ctx)
	if err != nil {
		return report, err
	}
	report.Deduplicated = deduped

	logging.Memory("maintenance: scanned=%d decayed=%d pruned=%d deduplicated=%d",
		report.Scanned, report.Decayed, report.Pruned, report.Deduplicated)
	return report, nil
}

// StartMaintenance runs RunMaintenance on a fixed cadence until ctx ends.
func (e *Engine) StartMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := e.RunMaintenance(ctx); err != nil {
					logging.Get(logging.CategoryMemory).Error("maintenance pass failed: %v", err)
				}
			}
		}
	}()
}

// decayedRelevance computes exponential decay past the grace age, offset by
// an access-frequency bonus. Clamped to [0,1].
func decayedRelevance(age time.Duration, accessCount int, cfg EngineConfig) float64 {
	halfLife := cfg.DecayHalfLife
	if halfLife <= 0 {
		halfLife = 30 * 24 * time.Hour
	}

	excess := age - cfg.DecayAfter
	r := math.Exp(-math.Ln2 * excess.Hours() / halfLife.Hours())
	r += cfg.AccessBonus * float64(accessCount)

	if r > 1 {
		r = 1
	}
	if r < 0 {
		r = 0
	}
	return r
}

// dedupSweep compares all embedded node pairs and folds duplicates that
// slipped in before thresholds were tuned. The earlier-created node wins.
func (e *Engine) dedupSweep(ctx context.Context) (int, error) {
	nodes, err := e.store.allEmbedded()
	if err != nil {
		return 0, err
	}

	removed := make(map[string]bool)
	count := 0

	for i := 0; i < len(nodes); i++ {
		if removed[nodes[i].ID] {
			continue
		}
		for j := i + 1; j < len(nodes); j++ {
			if removed[nodes[j].ID] {
				continue
			}

			sim, err := embedding.CosineSimilarity(nodes[i].Embedding, nodes[j].Embedding)
			if err != nil {
				continue
			}
			if sim < e.cfg.DuplicateThreshold {
				continue
			}
			if lexicalOverlap(nodes[i].Content, nodes[j].Content) < e.cfg.LexicalOverlapThreshold {
				continue
			}

			// nodes are ordered by creation; i is the keeper.
			keeper, dup := nodes[i], nodes[j]
			keeper.Tags = unionTags(keeper.Tags, dup.Tags)
			keeper.AccessCount += dup.AccessCount
			if err := e.store.Upsert(ctx, keeper); err != nil {
				return count, err
			}
			if err := e.store.Delete(dup.ID); err != nil {
				return count, err
			}
			removed[dup.ID] = true
			count++
			logging.Memory("sweep folded duplicate %s into %s (sim=%.3f)", dup.ID, keeper.ID, sim)
		}
	}
	return count, nil
}
