package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fixter/internal/metrics"
	"fixter/internal/session"
)

// NewSessionsCmd creates the sessions command. Without a subcommand it
// lists sessions.
func NewSessionsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage conversation sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsDeleteCmd())
	cmd.AddCommand(newSessionsPruneCmd())

	return cmd
}

// NewClearSessionCmd creates the clear-session command.
func NewClearSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-session",
		Short: "Forget the current session",
		Long:  "Forget the current session. The next query starts a new one; stored sessions are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustContext(cmd)
			if err != nil {
				return err
			}
			if err := cliCtx.ClearCurrentSession(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session cleared. A new session will be used for the next query.")
			return nil
		},
	}
}

func newSessionsListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func newSessionsShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show a session's history and entities",
		Long:  "Show a session's history and entities. Without an id the current session is shown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsShow(cmd, args, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, mgr, err := sessionManager(cmd)
			if err != nil {
				return err
			}
			if err := mgr.Delete(args[0]); err != nil {
				return err
			}
			if current, _ := cliCtx.CurrentSession(); current == args[0] {
				_ = cliCtx.ClearCurrentSession()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted.\n", args[0])
			return nil
		},
	}
}

func newSessionsPruneCmd() *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions not used recently",
		Long:  "Delete sessions not accessed within --max-age (default: session.max_age from the config).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, mgr, err := sessionManager(cmd)
			if err != nil {
				return err
			}
			if maxAge <= 0 {
				maxAge = cliCtx.Config.Session.MaxAge
			}
			removed, err := mgr.ClearOld(maxAge)
			if err != nil {
				return err
			}
			metrics.RecordPruned(len(removed))
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d session(s) older than %s.\n", len(removed), maxAge)
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "maximum idle time to keep")
	return cmd
}

func sessionManager(cmd *cobra.Command) (*CLIContext, *session.Manager, error) {
	cliCtx, err := mustContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	db, err := cliCtx.GetStorage()
	if err != nil {
		return nil, nil, err
	}
	return cliCtx, session.NewManager(db), nil
}

func runSessionsList(cmd *cobra.Command, jsonOutput bool) error {
	cliCtx, mgr, err := sessionManager(cmd)
	if err != nil {
		return err
	}
	list, err := mgr.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		return nil
	}

	current, _ := cliCtx.CurrentSession()
	fmt.Fprintln(out, "Available sessions:")
	for _, s := range list {
		marker := ""
		if s.SessionID == current {
			marker = " (current)"
		}
		fmt.Fprintf(out, "%s%s\n", s.SessionID, marker)
		fmt.Fprintf(out, "  Created: %s\n", s.CreatedAt.Format(time.DateTime))
		fmt.Fprintf(out, "  Last accessed: %s\n", s.LastAccessed.Format(time.DateTime))
		fmt.Fprintf(out, "  Conversation turns: %d\n\n", s.Turns)
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string, jsonOutput bool) error {
	cliCtx, mgr, err := sessionManager(cmd)
	if err != nil {
		return err
	}

	var id string
	if len(args) == 1 {
		id = args[0]
	} else if id, err = cliCtx.CurrentSession(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("no current session; pass a session id")
	}

	s, err := mgr.Get(id, false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, s)
	}

	fmt.Fprintf(out, "Session: %s\n", s.ID())
	fmt.Fprintf(out, "Created: %s\n", s.CreatedAt().Format(time.DateTime))
	fmt.Fprintf(out, "Turns:   %d\n", s.Len())
	if task := s.ActiveTask(); task != nil {
		fmt.Fprintf(out, "Active task: %s\n", task.Description)
	}

	if turns := s.History(); len(turns) > 0 {
		fmt.Fprintln(out, "\nHistory:")
		for _, t := range turns {
			fmt.Fprintf(out, "[%s] You: %s\n", t.Timestamp.Format(time.DateTime), t.Query)
			fmt.Fprintf(out, "  Fixter: %s\n", oneLine(t.Response, 200))
		}
	}

	if entities := s.RecentEntities("", 20); len(entities) > 0 {
		fmt.Fprintln(out, "\nEntities:")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tVALUE\tLAST SEEN")
		for _, e := range entities {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Type, e.Value, e.LastMentioned.Format(time.DateTime))
		}
		w.Flush()
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// oneLine flattens s and cuts it to n runes.
func oneLine(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' || c == '\r' {
			r[i] = ' '
		}
	}
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return string(r)
}
