// aura is a personal assistant kernel: it admits one request at a time,
// classifies intent, routes to memory or a model provider, and consolidates
// what it is asked to remember.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	workspace string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "aura",
	Short: "aura - personal assistant kernel",
	Long: `aura is a request-orchestration kernel for a personal assistant.

Utterances pass through an admission gate (dedup, debounce, voice-echo
suppression), an intent classifier (cached, heuristic-first, remote model
behind a circuit breaker and call budget), and capability handlers backed
by a consolidating memory store.

Run without arguments to start an interactive chat session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory holding .aura state")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
