package config

// MemoryConfig configures the memory store and consolidation engine.
type MemoryConfig struct {
	// DatabasePath is the SQLite file; ":memory:" for tests.
	DatabasePath string `yaml:"database_path"`

	// Consolidation thresholds (cosine similarity).
	// DuplicateThreshold additionally requires high lexical overlap.
	DuplicateThreshold float64 `yaml:"duplicate_threshold"`
	MergeThreshold     float64 `yaml:"merge_threshold"`

	// LexicalOverlapThreshold is the token-overlap floor for dedup.
	LexicalOverlapThreshold float64 `yaml:"lexical_overlap_threshold"`

	// Decay parameters. Nodes older than DecayAfter are decayed
	// exponentially with DecayHalfLife; nodes whose relevance falls below
	// RelevanceFloor are pruned.
	DecayAfter     string  `yaml:"decay_after"`      // e.g. "168h"
	DecayHalfLife  string  `yaml:"decay_half_life"`  // e.g. "720h"
	RelevanceFloor float64 `yaml:"relevance_floor"`  // e.g. 0.1
	AccessBonus    float64 `yaml:"access_bonus"`     // relevance bonus per access

	// MaintenanceInterval is the cadence of the decay/dedup sweep.
	MaintenanceInterval string `yaml:"maintenance_interval"` // e.g. "1h"

	// SearchLimit bounds similarity search result counts.
	SearchLimit int `yaml:"search_limit"`
}

// DefaultMemoryConfig returns sensible defaults.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		DatabasePath:            ".aura/memory.db",
		DuplicateThreshold:      0.95,
		MergeThreshold:          0.85,
		LexicalOverlapThreshold: 0.9,
		DecayAfter:              "168h",
		DecayHalfLife:           "720h",
		RelevanceFloor:          0.1,
		AccessBonus:             0.05,
		MaintenanceInterval:     "1h",
		SearchLimit:             10,
	}
}
