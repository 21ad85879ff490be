package main

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/plotweaver/pkg/engine"
	"github.com/jwebster45206/plotweaver/pkg/story"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		steps  int
	)
	cmd := &cobra.Command{
		Use:   "run [opening]",
		Short: "Generate one story from an opening and print it",
		Long: `Starts a story from openings/<opening>.json and steps it until it ends,
or for --steps steps, then prints the transcript and its diagnostics.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.policy()
			if err != nil {
				return err
			}
			deps, err := a.deps(ctx, p)
			if err != nil {
				return err
			}
			o, err := a.opening(ctx, args[0])
			if err != nil {
				return err
			}
			eng, err := engine.New(deps, p)
			if err != nil {
				return err
			}

			st := o.Start()
			var results []engine.StepResult
			if steps > 0 {
				for len(results) < steps && !st.Ended() {
					res, err := eng.Step(st)
					results = append(results, res)
					if err != nil {
						return err
					}
				}
			} else if results, err = eng.Run(ctx, st); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			fmt.Fprint(out, story.Render(st))
			printTotals(out, st)
			a.log.Debug("Story generated", "steps", len(results), "ended", st.Ended())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the story snapshot as JSON")
	cmd.Flags().IntVar(&steps, "steps", 0, "stop after this many steps (0 runs to the end)")
	return cmd
}
