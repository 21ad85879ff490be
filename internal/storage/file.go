package storage

import (
	"log/slog"

	pstorage "github.com/jwebster45206/plotweaver/pkg/storage"
)

// FileStore reads openings and the knowledge base from a data directory:
//
//	<dir>/actions.json
//	<dir>/atoms.json
//	<dir>/hierarchies.json
//	<dir>/openings/*.json
type FileStore struct {
	dataDir string
	logger  *slog.Logger
}

var (
	_ pstorage.Knowledge = (*FileStore)(nil)
	_ pstorage.Openings  = (*FileStore)(nil)
)

// NewFileStore reads from dataDir, ./data when empty.
func NewFileStore(dataDir string, logger *slog.Logger) *FileStore {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &FileStore{dataDir: dataDir, logger: logger}
}

// DataDir returns the directory files are read from.
func (f *FileStore) DataDir() string {
	return f.dataDir
}
