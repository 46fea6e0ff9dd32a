// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperviz/internal/chat"
	"github.com/pdiddy/paperviz/internal/generate"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk with a research assistant",
	Long: `Chat opens an interactive conversation on the fast model. Each line you
type is one message; the reply streams to stdout. Type /reset to clear the
conversation and /quit (or send EOF) to leave. Ctrl-C cancels the reply in
progress.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	service, err := newService(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	session := chat.NewSession(service, cfg.Generation, logger)

	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			session.Reset()
			fmt.Fprintln(os.Stderr, "Conversation cleared.")
			continue
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		_, err := session.Send(ctx, line, echoProgress(os.Stdout))
		stop()
		fmt.Fprintln(os.Stdout)
		if err != nil {
			if errors.Is(err, generate.ErrServiceUnavailable) {
				fmt.Fprintf(os.Stderr, "No reply: %v\n", err)
				continue
			}
			return err
		}
	}
	return in.Err()
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
