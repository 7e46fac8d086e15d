package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"aura/internal/breaker"
	"aura/internal/budget"
	"aura/internal/config"
	"aura/internal/embedding"
	"aura/internal/gate"
	"aura/internal/intent"
	"aura/internal/kernel"
	"aura/internal/llm"
	"aura/internal/logging"
	"aura/internal/memory"
)

// app holds the wired component graph for one process.
type app struct {
	cfg      *config.Config
	store    *memory.Store
	engine   *memory.Engine
	orch     *kernel.Orchestrator
	brk      *breaker.Breaker
	limiter  *budget.Limiter
	embedder embedding.Engine
	watcher  *config.Watcher

	cancel context.CancelFunc
}

// newApp loads configuration and wires the full pipeline. The embedding
// engine is optional: without one, memory still works but similarity search
// and consolidation degrade to plain inserts.
func newApp(workspace string) (*app, error) {
	if err := logging.Initialize(workspace); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	cfgPath := config.Path(workspace)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logging.Boot("config loaded from %s", cfgPath)

	embedder, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		logging.Get(logging.CategoryBoot).Warn("embedding engine unavailable, memory search degraded: %v", err)
		embedder = nil
	}

	dbPath := cfg.Memory.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(workspace, dbPath)
	}
	store, err := memory.NewStore(dbPath, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}

	engine := memory.NewEngine(store, embedder, memory.EngineConfig{
		DuplicateThreshold:      cfg.Memory.DuplicateThreshold,
		MergeThreshold:          cfg.Memory.MergeThreshold,
		LexicalOverlapThreshold: cfg.Memory.LexicalOverlapThreshold,
		DecayAfter:              parseDuration(cfg.Memory.DecayAfter, 7*24*time.Hour),
		DecayHalfLife:           parseDuration(cfg.Memory.DecayHalfLife, 30*24*time.Hour),
		RelevanceFloor:          cfg.Memory.RelevanceFloor,
		AccessBonus:             cfg.Memory.AccessBonus,
		SearchLimit:             cfg.Memory.SearchLimit,
	})

	router := llm.NewRouter(cfg.LLM)
	limiter := budget.New(cfg.Limits.DailyCallLimit, cfg.Limits.PerMinuteCallLimit)

	brk := breaker.New("classifier", breaker.Config{
		FailureThreshold:         cfg.Limits.FailureThreshold,
		CallTimeout:              parseDuration(cfg.Limits.CallTimeout, 30*time.Second),
		ResetTimeout:             parseDuration(cfg.Limits.ResetTimeout, time.Minute),
		ResetJitter:              parseDuration(cfg.Limits.ResetJitter, 10*time.Second),
		HalfOpenMaxProbes:        cfg.Limits.HalfOpenMaxProbes,
		HalfOpenSuccessThreshold: cfg.Limits.HalfOpenSuccessThreshold,
		OnStateChange: func(from, to breaker.State) {
			logging.Breaker("classifier breaker: %s -> %s", from, to)
		},
	})

	cache := intent.NewCache(cfg.Limits.IntentCacheSize, parseDuration(cfg.Limits.IntentCacheTTL, 5*time.Minute))
	classifier := intent.NewClassifier(cache, limiter, brk, router)

	g := gate.New(gate.Config{
		DebounceWindow:  time.Duration(cfg.Gate.DebounceWindowMs) * time.Millisecond,
		VoiceEchoWindow: time.Duration(cfg.Gate.VoiceEchoWindowMs) * time.Millisecond,
	})

	kernelCfg := kernel.DefaultConfig()
	if cfg.Memory.SearchLimit > 0 {
		kernelCfg.SearchLimit = cfg.Memory.SearchLimit
	}
	orch := kernel.New(g, classifier, engine, store, router, limiter, kernelCfg)

	ctx, cancel := context.WithCancel(context.Background())
	engine.StartMaintenance(ctx, parseDuration(cfg.Memory.MaintenanceInterval, time.Hour))

	watcher, err := config.NewWatcher(cfgPath, func(updated *config.Config) {
		limiter.SetLimits(updated.Limits.DailyCallLimit, updated.Limits.PerMinuteCallLimit)
		logging.Boot("config reloaded, budgets retuned")
	})
	if err != nil {
		logging.Get(logging.CategoryBoot).Warn("config watcher unavailable: %v", err)
	} else if err := watcher.Start(ctx); err != nil {
		logging.Get(logging.CategoryBoot).Warn("config watcher failed to start: %v", err)
	}

	return &app{
		cfg:      cfg,
		store:    store,
		engine:   engine,
		orch:     orch,
		brk:      brk,
		limiter:  limiter,
		embedder: embedder,
		watcher:  watcher,
		cancel:   cancel,
	}, nil
}

// Close shuts the app down in dependency order.
func (a *app) Close() {
	a.cancel()
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.store != nil {
		a.store.Close()
	}
	logging.CloseAll()
}

// parseDuration parses s, falling back to def on empty or malformed input.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
