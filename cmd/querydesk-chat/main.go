// Command querydesk-chat is the terminal front-end. With no subcommand it
// opens the interactive chat; the subcommands answer one question or list
// saved conversations and exit.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/querydesk/querydesk/internal/app"
	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/tui"
)

type globalFlags struct {
	logFile     string
	turnTimeout time.Duration
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "querydesk-chat",
		Short:         "Ask questions about the supplier view in plain language",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStack(cmd.Context(), flags, func(cfg config.Config, stack *app.App) error {
				return tui.Run(tui.Options{
					Processor:   stack.Orchestrator,
					Archive:     stack.Archive,
					ModelName:   stack.Model.Model(),
					View:        cfg.Database.View,
					TurnTimeout: flags.turnTimeout,
				})
			})
		},
	}
	root.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "write logs to this file (discarded when empty)")
	root.PersistentFlags().DurationVar(&flags.turnTimeout, "turn-timeout", 5*time.Minute, "upper bound for one question")

	root.AddCommand(newAskCommand(flags), newConversationsCommand(flags))
	return root
}

func newAskCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Translate one question to SQL, run it and print the rows as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd.Context(), flags, func(_ config.Config, stack *app.App) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), flags.turnTimeout)
				defer cancel()
				resp, err := stack.Pipeline.Ask(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
}

func newConversationsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List saved conversations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStack(cmd.Context(), flags, func(_ config.Config, stack *app.App) error {
				manifests, err := stack.Archive.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(manifests) == 0 {
					_, err := fmt.Fprintln(out, "no saved conversations")
					return err
				}
				for _, manifest := range manifests {
					if _, err := fmt.Fprintf(out, "%s  %s  %3d turns  %s\n",
						manifest.ID, manifest.SavedAt.Local().Format(time.DateTime), manifest.TurnCount, manifest.Title); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func withStack(ctx context.Context, flags *globalFlags, fn func(config.Config, *app.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadFromEnv("querydesk-chat")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var logOutput io.Writer = io.Discard
	if flags.logFile != "" {
		file, err := observability.OpenLogFile(flags.logFile)
		if err != nil {
			return err
		}
		defer func() { _ = file.Close() }()
		logOutput = file
	}
	logger := observability.NewLogger(cfg, logOutput)

	stack, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()
	return fn(cfg, stack)
}

func printJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
