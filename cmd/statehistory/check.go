package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/statehistory/pkg/statehistory"
)

func newCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate declarations and print the machines they define",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			decl, reg, err := loadDeclarations(cfg.Declarations)
			if err != nil {
				return err
			}
			printDeclarations(cmd.OutOrStdout(), decl, reg)
			return nil
		},
	}
}

func printDeclarations(w io.Writer, decl *statehistory.Declarations, reg *statehistory.Registry) {
	for _, name := range slices.Sorted(maps.Keys(decl.Machines)) {
		def := decl.Machines[name]
		fmt.Fprintf(w, "machine %s\n", name)
		if len(def.Initial) > 0 {
			fmt.Fprintf(w, "  (none) -> %s\n", strings.Join(def.Initial, ", "))
		}
		for _, from := range slices.Sorted(maps.Keys(def.Transitions)) {
			fmt.Fprintf(w, "  %s -> %s\n", from, strings.Join(def.Transitions[from], ", "))
		}
		if len(def.AnyTo) > 0 {
			fmt.Fprintf(w, "  * -> %s\n", strings.Join(def.AnyTo, ", "))
		}
	}

	for _, objectType := range reg.ObjectTypes() {
		fmt.Fprintf(w, "object %s\n", objectType)
		obj := decl.Objects[objectType]
		for _, field := range reg.Fields(objectType) {
			mc, err := statehistory.ParseMachineConfig(obj.Fields, field, nil)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "  %s: %s\n", field, mc.Machine)
		}
	}
}
