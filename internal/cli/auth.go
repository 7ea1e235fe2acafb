package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fixter/internal/config"
)

// credential maps an auth target to its configuration key.
type credential struct {
	key   string
	label string
	env   string
}

var credentials = map[string]credential{
	"openai": {key: "openai.api_key", label: "OpenAI API key", env: "OPENAI_API_KEY"},
	"tavily": {key: "search.tavily_api_key", label: "Tavily API key", env: "TAVILY_API_KEY"},
	"brave":  {key: "search.brave_api_key", label: "Brave Search API key", env: "BRAVE_API_KEY"},
	"github": {key: "github.token", label: "GitHub token", env: "GITHUB_TOKEN"},
}

var credentialOrder = []string{"openai", "tavily", "brave", "github"}

// NewAuthCmd creates the auth command.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
		Long:  `Manage API keys and tokens used by Fixter.`,
	}

	cmd.AddCommand(newAuthSetCmd())
	cmd.AddCommand(newAuthClearCmd())
	cmd.AddCommand(newAuthStatusCmd())

	return cmd
}

func newAuthSetCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "set <openai|tavily|brave|github>",
		Short: "Store an API key or token",
		Example: `  # Interactive prompt (input is hidden)
  fixter auth set openai

  # Provide the value directly
  fixter auth set github --token $(gh auth token)`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: credentialOrder,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, ok := credentials[args[0]]
			if !ok {
				return fmt.Errorf("unknown credential %q, expected one of %s", args[0], strings.Join(credentialOrder, ", "))
			}

			if token == "" {
				var err error
				token, err = promptSecret(cmd, cred.label)
				if err != nil {
					return err
				}
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("%s cannot be empty", cred.label)
			}

			if err := config.Set(cred.key, token); err != nil {
				return err
			}
			if err := config.Save(); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s saved to %s\n", cred.label, config.Path())
			if cliCtx := GetCLIContext(cmd); cliCtx != nil {
				cliCtx.Logger.Info().Str("key", cred.key).Msg("credential configured")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "value to store (prompts when omitted)")
	return cmd
}

func newAuthClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "clear <openai|tavily|brave|github>",
		Short:     "Remove a stored API key or token",
		Args:      cobra.ExactArgs(1),
		ValidArgs: credentialOrder,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, ok := credentials[args[0]]
			if !ok {
				return fmt.Errorf("unknown credential %q", args[0])
			}
			if err := config.Set(cred.key, ""); err != nil {
				return err
			}
			if err := config.Save(); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s removed\n", cred.label)
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which credentials are configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Authentication Status")
			fmt.Fprintln(out, "---------------------")

			cfg := config.GetConfig()
			values := map[string]string{
				"openai": cfg.OpenAI.APIKey,
				"tavily": cfg.Search.TavilyKey,
				"brave":  cfg.Search.BraveKey,
				"github": cfg.GitHub.Token,
			}
			for _, name := range credentialOrder {
				cred := credentials[name]
				if v := values[name]; v != "" {
					fmt.Fprintf(out, "  ✓ %-22s %s\n", cred.label, maskToken(v))
				} else {
					fmt.Fprintf(out, "  ✗ %-22s not set (fixter auth set %s or $%s)\n", cred.label, name, cred.env)
				}
			}
			return nil
		},
	}
}

// promptSecret reads a value without echo when stdin is a terminal.
func promptSecret(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "Enter %s: ", label)

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read %s: %w", label, err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return line, nil
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
