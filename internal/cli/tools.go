package cli

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fixter/internal/tools"
	"fixter/internal/tools/builtin"
)

// NewToolsCmd creates the tools command.
func NewToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools available to the assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := builtin.NewRegistry(builtin.Deps{})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tLOOPS\tDESCRIPTION")
			for _, t := range registry.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name(), loopsFor(t.Name()), t.Description())
			}
			return w.Flush()
		},
	}
}

func loopsFor(name string) string {
	conv := slices.Contains(tools.ConversationTools, name)
	extr := slices.Contains(tools.ExtractionTools, name)
	switch {
	case conv && extr:
		return "conversation,extraction"
	case conv:
		return "conversation"
	case extr:
		return "extraction"
	default:
		return "-"
	}
}
