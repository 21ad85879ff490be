package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jwebster45206/plotweaver/internal/config"
	"github.com/jwebster45206/plotweaver/internal/logger"
	"github.com/jwebster45206/plotweaver/internal/storage"
	"github.com/jwebster45206/plotweaver/pkg/engine"
	"github.com/jwebster45206/plotweaver/pkg/story"
	"github.com/spf13/cobra"
)

// app carries the state shared by every subcommand.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	files *storage.FileStore

	dataDir    string
	policyFile string
	seed       uint64
	verbose    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "narrate",
		Short: "Generate stories offline from a knowledge base",
		Long: `narrate runs the engagement/reflection engine locally against the
knowledge base in a data directory, without Redis or the API.

The data directory holds actions.json, atoms.json, hierarchies.json and
openings/*.json.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = a.dataDir
			}
			if cmd.Flags().Changed("policy") {
				cfg.PolicyFile = a.policyFile
			}
			if a.verbose {
				cfg.LogLevel = slog.LevelDebug
			}
			a.cfg = cfg
			a.log = logger.SetupTo(cfg, stderr)
			a.files = storage.NewFileStore(cfg.DataDir, a.log)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "./data", "knowledge base directory (overrides DATA_DIR)")
	root.PersistentFlags().StringVar(&a.policyFile, "policy", "", "YAML policy file (overrides POLICY_FILE)")
	root.PersistentFlags().Uint64Var(&a.seed, "seed", 0, "random seed (0 keeps the policy seed)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRunCmd(a),
		newBatchCmd(a),
		newValidateCmd(a),
		newEnqueueCmd(a),
	)
	return root
}

// policy returns the configured policy with the seed flag applied.
func (a *app) policy() (engine.Policy, error) {
	p := engine.DefaultPolicy()
	if a.cfg.PolicyFile != "" {
		var err error
		if p, err = engine.LoadPolicy(a.cfg.PolicyFile); err != nil {
			return p, err
		}
	}
	if a.seed != 0 {
		p.Seed = a.seed
	}
	return p, nil
}

func (a *app) deps(ctx context.Context, p engine.Policy) (engine.Deps, error) {
	return storage.LoadDeps(ctx, a.files, p.MinSimilarity, a.log)
}

func (a *app) opening(ctx context.Context, name string) (*story.Opening, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return a.files.GetOpening(ctx, name)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
