package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/statehistory/pkg/statehistory"
	"github.com/dmitrymomot/statehistory/pkg/statemachine"
)

func newStateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "state <type> <id> <field>",
		Short: "Print the current state of a field and the states it can move to",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			states, err := a.states()
			if err != nil {
				return err
			}
			obj, field := statehistory.Ref{Type: args[0], ID: args[1]}, args[2]

			current, err := states.CurrentState(cmd.Context(), obj, field)
			if err != nil {
				return err
			}
			allowed, err := states.AllowedTransitions(cmd.Context(), obj, field)
			if err != nil {
				return err
			}

			names := make([]string, len(allowed))
			for i, s := range allowed {
				names[i] = s.Name()
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "state: %s\n", displayState(current))
			fmt.Fprintf(out, "allowed: %s\n", strings.Join(names, ", "))
			return nil
		},
	}
}

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <type> <id> [field]",
		Short: "Print history records as JSON lines, newest first",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			criteria := statehistory.Criteria{ObjectType: args[0], ObjectID: args[1], Limit: limit}
			if len(args) == 3 {
				criteria.Field = args[2]
			}
			recs, err := a.storage.Records(cmd.Context(), criteria)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, rec := range recs {
				if err := enc.Encode(rec); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of records (0 for all)")
	return cmd
}

func newTransitionCmd(flags *rootFlags) *cobra.Command {
	var meta map[string]string

	cmd := &cobra.Command{
		Use:   "transition <type> <id> <field> <to>",
		Short: "Move a field to a new state and record it",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			states, err := a.states()
			if err != nil {
				return err
			}
			obj, field := statehistory.Ref{Type: args[0], ID: args[1]}, args[2]

			from, err := states.CurrentState(cmd.Context(), obj, field)
			if err != nil {
				return err
			}
			opts := make([]statehistory.TransitionOption, 0, len(meta))
			for k, v := range meta {
				opts = append(opts, statehistory.WithMeta(k, v))
			}
			if err := states.TransitionTo(cmd.Context(), obj, field, statemachine.Of(args[3]), opts...); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s %s: %s -> %s\n", obj.Type, obj.ID, field, displayState(from), args[3])
			return nil
		},
	}
	cmd.Flags().StringToStringVarP(&meta, "meta", "m", nil, "Metadata stored with the record (key=value,...)")
	return cmd
}

func displayState(token string) string {
	if token == "" {
		return "(none)"
	}
	return token
}
