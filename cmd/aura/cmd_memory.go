package main

import (
	"context"
	"fmt"
	"strings"

	"aura/internal/memory"

	"github.com/spf13/cobra"
)

var rememberTags []string

var rememberCmd = &cobra.Command{
	Use:   "remember [content]",
	Short: "Store a memory directly, bypassing classification",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(workspace)
		if err != nil {
			return err
		}
		defer a.Close()

		content := strings.Join(args, " ")
		node := memory.NewNode(content, memory.NodeFact, rememberTags)

		result, err := a.engine.StoreWithConsolidation(context.Background(), node)
		if err != nil {
			return fmt.Errorf("failed to store: %w", err)
		}

		fmt.Printf("%s (node %s)\n", result.Action, result.NodeID)
		return nil
	},
}

var recallCmd = &cobra.Command{
	Use:   "recall [query]",
	Short: "Search stored memories by similarity",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(workspace)
		if err != nil {
			return err
		}
		defer a.Close()

		query := strings.Join(args, " ")
		results, err := a.store.Search(context.Background(), query, a.cfg.Memory.SearchLimit, 0.3)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(results) == 0 {
			fmt.Println("No matching memories.")
			return nil
		}

		for _, r := range results {
			fmt.Printf("%.3f  [%s]  %s\n", r.Similarity, r.Node.Type, r.Node.Content)
		}
		return nil
	},
}

func init() {
	rememberCmd.Flags().StringSliceVarP(&rememberTags, "tag", "t", nil, "tags to attach")
}
