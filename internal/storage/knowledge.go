package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jwebster45206/plotweaver/pkg/action"
	"github.com/jwebster45206/plotweaver/pkg/atom"
	"github.com/jwebster45206/plotweaver/pkg/engine"
	"github.com/jwebster45206/plotweaver/pkg/graph"
	"github.com/jwebster45206/plotweaver/pkg/hierarchy"
	pstorage "github.com/jwebster45206/plotweaver/pkg/storage"
)

// Knowledge base files under the data directory.
const (
	ActionsFile     = "actions.json"
	AtomsFile       = "atoms.json"
	HierarchiesFile = "hierarchies.json"
)

// Knowledge operations (filesystem-backed)

func (f *FileStore) LoadActions(ctx context.Context) ([]action.Definition, error) {
	var defs []action.Definition
	if err := readJSON(filepath.Join(f.dataDir, ActionsFile), &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func (f *FileStore) LoadAtoms(ctx context.Context) ([]*atom.Atom, error) {
	var atoms []*atom.Atom
	if err := readJSON(filepath.Join(f.dataDir, AtomsFile), &atoms); err != nil {
		return nil, err
	}
	return atoms, nil
}

// LoadHierarchies returns an empty set when the file is absent; actions
// that declare a norm then fail at commit time with a configuration error.
func (f *FileStore) LoadHierarchies(ctx context.Context) (hierarchy.Ranks, error) {
	ranks := make(hierarchy.Ranks)
	err := readJSON(filepath.Join(f.dataDir, HierarchiesFile), &ranks)
	if os.IsNotExist(err) {
		f.logger.Warn("No hierarchies file, norms cannot be evaluated", "dir", f.dataDir)
		return ranks, nil
	}
	if err != nil {
		return nil, err
	}
	return ranks, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// LoadDeps reads the knowledge base once and builds the read-only
// repositories the engine consumes.
func LoadDeps(ctx context.Context, s pstorage.Knowledge, minSimilarity int, logger *slog.Logger) (engine.Deps, error) {
	defs, err := s.LoadActions(ctx)
	if err != nil {
		return engine.Deps{}, fmt.Errorf("load actions: %w", err)
	}
	catalog, err := action.NewCatalog(defs)
	if err != nil {
		return engine.Deps{}, fmt.Errorf("build action catalog: %w", err)
	}

	atoms, err := s.LoadAtoms(ctx)
	if err != nil {
		return engine.Deps{}, fmt.Errorf("load atoms: %w", err)
	}
	index, err := atom.NewIndex(atoms, minSimilarity, graph.NewEvaluator())
	if err != nil {
		return engine.Deps{}, fmt.Errorf("build atom index: %w", err)
	}

	ranks, err := s.LoadHierarchies(ctx)
	if err != nil {
		return engine.Deps{}, fmt.Errorf("load hierarchies: %w", err)
	}
	table, err := hierarchy.New(ranks)
	if err != nil {
		return engine.Deps{}, fmt.Errorf("build hierarchies: %w", err)
	}

	if err := CrossCheck(catalog, index, table); err != nil {
		return engine.Deps{}, err
	}

	logger.Info("Knowledge base loaded",
		"actions", len(catalog.All()),
		"atoms", index.Len(),
		"cells", len(index.Cells()),
		"hierarchies", len(table.Names()))

	return engine.Deps{
		Actions:   catalog,
		Atoms:     index,
		Hierarchy: table,
		Logger:    logger,
	}, nil
}

// CrossCheck verifies that every next action named by an atom exists in
// the catalog and every norm refers to a known hierarchy.
func CrossCheck(catalog action.Repository, index *atom.Index, table *hierarchy.Table) error {
	var problems []error
	for _, a := range index.All() {
		for _, next := range a.NextActions {
			if _, ok := catalog.Lookup(next.Action); !ok {
				problems = append(problems, fmt.Errorf("atom %s: unknown next action %q", a.ID, next.Action))
			}
		}
	}
	for _, def := range catalog.All() {
		if def.Norm != nil && !table.Has(def.Norm.Hierarchy) {
			problems = append(problems, fmt.Errorf("action %s: unknown hierarchy %q", def.Name, def.Norm.Hierarchy))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("knowledge base is inconsistent: %w", errors.Join(problems...))
	}
	return nil
}
