package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sessionsLimit int

// sessionsCmd lists stored sessions, most recent first
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closer, err := openRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		sessions, err := store.ListSessions(ctx, sessionsLimit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintf(out, "%-24s %4d turns  %s\n", s.SessionKey, s.TurnCount, s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// sessionsShowCmd prints every turn of one session
var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-key>",
	Short: "Print the turns of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closer, err := openRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		conv, err := store.LoadConversation(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}

		out := cmd.OutOrStdout()
		if conv == nil || len(conv.Turns) == 0 {
			fmt.Fprintf(out, "Session %s has no turns.\n", args[0])
			return nil
		}
		for _, t := range conv.Turns {
			fmt.Fprintf(out, "%s: %s\n", t.Role, strings.TrimSpace(t.Content))
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 50, "Maximum number of sessions")
	sessionsCmd.AddCommand(sessionsShowCmd)
}
