package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// maxStdinBytes bounds a query read from a pipe.
const maxStdinBytes = 1 << 20

// NewAICmd creates the ai command.
func NewAICmd() *cobra.Command {
	var (
		newSession bool
		sessionID  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "ai [query...]",
		Short: "Send a query to the assistant",
		Long: `Send a query to the assistant and print the answer.

The query continues the current terminal session unless --new-session or
--session is given. {name} placeholders are replaced with variables set
through 'fixter set'. When no query is given it is read from stdin.`,
		Example: `  fixter ai "what time is it?"
  fixter ai extract the go files from {project}
  git diff | fixter ai --new-session`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAI(cmd, args, newSession, sessionID, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&newSession, "new-session", false, "start a new session instead of continuing the current one")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "use this session id")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the full result as JSON")
	cmd.MarkFlagsMutuallyExclusive("new-session", "session")

	return cmd
}

func runAI(cmd *cobra.Command, args []string, newSession bool, sessionID string, jsonOutput bool) error {
	cliCtx, err := mustContext(cmd)
	if err != nil {
		return err
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		query, err = readPiped(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}
	if query == "" {
		return errors.New("query is required")
	}

	store, err := cliCtx.Vars()
	if err != nil {
		return err
	}
	query, err = store.Interpolate(query)
	if err != nil {
		return err
	}

	if sessionID == "" && !newSession {
		sessionID, err = cliCtx.CurrentSession()
		if err != nil {
			return err
		}
	}

	a, err := cliCtx.Assistant(nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := a.Process(ctx, query, sessionID)
	if err != nil {
		return err
	}

	if err := cliCtx.SetCurrentSession(result.SessionID); err != nil {
		cliCtx.Log().Warn().Err(err).Msg("Failed to remember current session")
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(result)
	}
	_, err = fmt.Fprintln(out, result.Answer)
	return err
}

// readPiped reads the query from in unless it is an interactive terminal.
func readPiped(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(in, maxStdinBytes))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
