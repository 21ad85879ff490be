package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jwebster45206/plotweaver/internal/storage"
	"github.com/jwebster45206/plotweaver/pkg/engine"
	"github.com/jwebster45206/plotweaver/pkg/story"
	"github.com/spf13/cobra"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		count       int
		concurrency int
		archivePath string
		transcripts bool
	)
	cmd := &cobra.Command{
		Use:   "batch [opening]",
		Short: "Generate many independent stories from one opening",
		Long: `Runs --count stories from the same opening, --concurrency at a time.
Story i is seeded with the policy seed plus i, so a batch is reproducible.
With --archive every finished story is also written to the SQLite archive.`,
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

			stories, err := engine.Batch(ctx, count, concurrency, deps, p, func(int) (*story.Story, error) {
				return o.Start(), nil
			})
			if err != nil {
				return err
			}

			if archivePath != "" {
				archive, err := storage.OpenArchive(archivePath)
				if err != nil {
					return err
				}
				defer archive.Close()
				for _, st := range stories {
					if err := archive.ArchiveStory(ctx, st); err != nil {
						return err
					}
				}
				a.log.Info("Stories archived", "count", len(stories), "path", archivePath)
			}

			out := cmd.OutOrStdout()
			if transcripts {
				for _, st := range stories {
					fmt.Fprintln(out, story.Render(st))
				}
			}
			fmt.Fprintln(out, summaryTable(stories))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of stories")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "stories generated at once")
	cmd.Flags().StringVar(&archivePath, "archive", "", "SQLite archive to write finished stories to")
	cmd.Flags().BoolVar(&transcripts, "transcripts", false, "print every transcript before the summary")
	return cmd
}

func summaryTable(stories []*story.Story) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "ACTIONS", "ITERATIONS", "MISSING", "IRRELEVANT", "ILLOGICAL", "IMPASSES")
	var sum story.Diagnostics
	var actions int
	for i, st := range stories {
		d := st.Totals()
		sum.MissingConditions += d.MissingConditions
		sum.IrrelevantActions += d.IrrelevantActions
		sum.IllogicalActions += d.IllogicalActions
		sum.Impasses += d.Impasses
		actions += st.Year()
		t.Row(strconv.Itoa(i), strconv.Itoa(st.Year()), strconv.Itoa(st.Iteration),
			strconv.Itoa(d.MissingConditions), strconv.Itoa(d.IrrelevantActions),
			strconv.Itoa(d.IllogicalActions), strconv.Itoa(d.Impasses))
	}
	if n := len(stories); n > 0 {
		avg := func(v int) string { return strconv.FormatFloat(float64(v)/float64(n), 'f', 1, 64) }
		t.Row("avg", avg(actions), "", avg(sum.MissingConditions), avg(sum.IrrelevantActions),
			avg(sum.IllogicalActions), avg(sum.Impasses))
	}
	return t.String()
}

func printTotals(w io.Writer, st *story.Story) {
	d := st.Totals()
	fmt.Fprintf(w, "\n%d actions in %d iterations; missing %d, irrelevant %d, illogical %d, impasses %d\n",
		st.Year(), st.Iteration, d.MissingConditions, d.IrrelevantActions, d.IllogicalActions, d.Impasses)
}
