package main

import (
	"fmt"

	"aura/internal/breaker"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show breaker, budget, and memory store state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(workspace)
		if err != nil {
			return err
		}
		defer a.Close()

		snap := a.brk.Snapshot()
		fmt.Println("Circuit breaker (classifier):")
		fmt.Printf("  state:          %s\n", snap.State)
		fmt.Printf("  failure count:  %d\n", snap.FailureCount)
		if snap.State == breaker.StateOpen {
			fmt.Printf("  retry after:    %s\n", snap.RetryAfter)
		}

		usage := a.limiter.Snapshot()
		fmt.Println("Call budget:")
		fmt.Printf("  daily:          %d/%d\n", usage.DailyUsed, usage.DailyLimit)
		fmt.Printf("  per-minute:     %d/%d\n", usage.MinuteUsed, usage.MinuteLimit)

		stats, err := a.store.Stats()
		if err != nil {
			return fmt.Errorf("failed to read store stats: %w", err)
		}
		fmt.Println("Memory store:")
		fmt.Printf("  nodes:          %d\n", stats.TotalNodes)
		fmt.Printf("  avg relevance:  %.2f\n", stats.AvgRelevance)
		for t, n := range stats.ByType {
			fmt.Printf("  %-14s  %d\n", t+":", n)
		}

		if a.embedder != nil {
			fmt.Println("Embedding:")
			fmt.Printf("  engine:         %s (%d dims)\n", a.embedder.Name(), a.embedder.Dimensions())
		} else {
			fmt.Println("Embedding: unavailable (search degraded)")
		}
		return nil
	},
}
