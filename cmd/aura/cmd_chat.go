package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"aura/internal/gate"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func runChat() error {
	a, err := newApp(workspace)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("aura %s - type 'exit' to quit\n", a.cfg.Version)

	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reply := a.orch.Process(ctx, line, gate.OriginText)
		if reply == "" {
			// Gate rejection: silent by contract, just re-prompt.
			continue
		}
		fmt.Println(reply)
	}
	return scanner.Err()
}
