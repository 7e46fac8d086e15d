package main

import (
	"context"
	"fmt"
	"strings"

	"aura/internal/gate"

	"github.com/spf13/cobra"
)

var askVoice bool

var askCmd = &cobra.Command{
	Use:   "ask [text]",
	Short: "Process a single utterance and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(workspace)
		if err != nil {
			return err
		}
		defer a.Close()

		origin := gate.OriginText
		if askVoice {
			origin = gate.OriginVoice
		}

		reply := a.orch.Process(context.Background(), strings.Join(args, " "), origin)
		if reply != "" {
			fmt.Println(reply)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askVoice, "voice", false, "mark the utterance as voice-originated")
}
