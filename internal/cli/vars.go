package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fixter/internal/vars"
)

// NewSetCmd creates the set command.
func NewSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <name=value>",
		Short:   "Set a variable",
		Example: "  fixter set project=~/src/fixter",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, value, err := vars.ParseAssignment(args[0])
			if err != nil {
				return err
			}
			store, err := varStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Set(name, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Variable '%s' set to '%s'\n", name, value)
			return nil
		},
	}
}

// NewGetCmd creates the get command.
func NewGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Get a variable value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := varStore(cmd)
			if err != nil {
				return err
			}
			value, err := store.Get(args[0])
			if errors.Is(err, vars.ErrNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "Variable '%s' not found\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], value)
			return nil
		},
	}
}

// NewVarsCmd creates the vars command.
func NewVarsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "vars",
		Aliases: []string{"list-vars"},
		Short:   "List all variables",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := varStore(cmd)
			if err != nil {
				return err
			}
			list, err := store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No variables set")
				return nil
			}
			fmt.Fprintln(out, "Current variables:")
			for _, v := range list {
				fmt.Fprintf(out, "%s: %s\n", v.Name, v.Value)
			}
			return nil
		},
	}
}

// NewUnsetCmd creates the unset command.
func NewUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <name>",
		Short: "Remove a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := varStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Unset(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Variable '%s' removed\n", args[0])
			return nil
		},
	}
}

func varStore(cmd *cobra.Command) (*vars.Store, error) {
	cliCtx, err := mustContext(cmd)
	if err != nil {
		return nil, err
	}
	return cliCtx.Vars()
}
