package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the knowledge base and every opening, reporting problems",
		Long: `Builds the action catalog, the atom index and the hierarchy table the
way the API and the workers do, checks the references between them, then
loads every opening under openings/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			p, err := a.policy()
			if err != nil {
				return err
			}
			deps, err := a.deps(ctx, p)
			if err != nil {
				return fmt.Errorf("knowledge base: %w", err)
			}
			fmt.Fprintf(out, "knowledge base ok: %d actions, %d atom cells\n",
				len(deps.Actions.All()), len(deps.Atoms.Cells()))

			openings, err := a.files.ListOpenings(ctx)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(openings))
			for name := range openings {
				names = append(names, name)
			}
			sort.Strings(names)

			var problems []error
			for _, name := range names {
				if _, err := a.files.GetOpening(ctx, openings[name]); err != nil {
					problems = append(problems, err)
					fmt.Fprintf(out, "opening %s: %v\n", openings[name], err)
					continue
				}
				fmt.Fprintf(out, "opening %s ok\n", openings[name])
			}
			return errors.Join(problems...)
		},
	}
}
