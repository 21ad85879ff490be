package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jwebster45206/plotweaver/pkg/story"
)

// Opening operations (filesystem-backed)

func (f *FileStore) ListOpenings(ctx context.Context) (map[string]string, error) {
	openingsDir := filepath.Join(f.dataDir, "openings")
	openings := make(map[string]string)

	err := filepath.WalkDir(openingsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		file, err := os.ReadFile(path)
		if err != nil {
			f.logger.Warn("Failed to read opening file", "path", path, "error", err)
			return nil
		}

		var o story.Opening
		if err := json.Unmarshal(file, &o); err != nil {
			f.logger.Warn("Failed to unmarshal opening file", "path", path, "error", err)
			return nil
		}

		openings[o.Name] = filepath.Base(path)
		return nil
	})
	if err != nil {
		f.logger.Error("Failed to walk openings directory", "error", err)
		return nil, fmt.Errorf("failed to list openings: %w", err)
	}

	return openings, nil
}

func (f *FileStore) GetOpening(ctx context.Context, filename string) (*story.Opening, error) {
	path := filepath.Join(f.dataDir, "openings", filepath.Base(filename))
	f.logger.Debug("Loading opening", "filename", filename, "full_path", path)

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("opening not found: %s", filename)
		}
		return nil, fmt.Errorf("failed to read opening file: %w", err)
	}

	var o story.Opening
	if err := json.Unmarshal(file, &o); err != nil {
		return nil, fmt.Errorf("failed to unmarshal opening: %w", err)
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("invalid opening %s: %w", filename, err)
	}
	return &o, nil
}
