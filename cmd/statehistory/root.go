package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/statehistory/pkg/config"
)

type rootFlags struct {
	declarations string
	envFile      string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "statehistory",
		Short:         "Manage object state machines and their history",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.envFile != "" {
				return config.LoadEnv(flags.envFile)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&flags.declarations, "declarations", "f", "", "Path to the declarations YAML (overrides STATE_DECLARATIONS)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Load environment variables from this file")

	root.AddCommand(
		newMigrateCmd(flags),
		newCheckCmd(flags),
		newStateCmd(flags),
		newHistoryCmd(flags),
		newTransitionCmd(flags),
		newServeCmd(flags),
	)
	return root
}
