package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	require.NoError(t, cfg.Save(path))

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(updated *Config) {
		select {
		case reloaded <- updated:
		default:
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	cfg.Limits.DailyCallLimit = 42
	require.NoError(t, cfg.Save(path))

	select {
	case updated := <-reloaded:
		require.Equal(t, 42, updated.Limits.DailyCallLimit)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not fire after config change")
	}
}

func TestWatcherIgnoresInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	fired := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(*Config) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// A config that fails validation must not reach the callback.
	bad := DefaultConfig()
	bad.Limits.DailyCallLimit = -1
	require.NoError(t, bad.Save(path))

	select {
	case <-fired:
		t.Fatal("invalid config should not trigger the reload callback")
	case <-time.After(1500 * time.Millisecond):
	}
}
