package storage

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/pkg/action"
	"github.com/jwebster45206/plotweaver/pkg/atom"
	"github.com/jwebster45206/plotweaver/pkg/hierarchy"
	"github.com/jwebster45206/plotweaver/pkg/story"
)

// MockStorage is a mock implementation of Storage for testing. Stories are
// stored as JSON so callers never share state with the store.
type MockStorage struct {
	mu          sync.RWMutex
	stories     map[uuid.UUID][]byte
	openings    map[string]*story.Opening
	actions     []action.Definition
	atoms       []*atom.Atom
	hierarchies hierarchy.Ranks
	pingError   error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		stories:     make(map[uuid.UUID][]byte),
		openings:    make(map[string]*story.Opening),
		hierarchies: make(hierarchy.Ranks),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveStory mocks saving a story
func (m *MockStorage) SaveStory(ctx context.Context, st *story.Story) error {
	if st == nil {
		return errors.New("story cannot be nil")
	}
	st.UpdatedAt = time.Now()
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[st.ID] = data
	return nil
}

// LoadStory mocks loading a story
func (m *MockStorage) LoadStory(ctx context.Context, id uuid.UUID) (*story.Story, error) {
	m.mu.RLock()
	data, exists := m.stories[id]
	m.mu.RUnlock()
	if !exists {
		return nil, nil // Return nil for not found
	}
	var st story.Story
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// DeleteStory mocks deleting a story
func (m *MockStorage) DeleteStory(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stories, id)
	return nil
}

// StoryCount returns the number of stored stories (for testing)
func (m *MockStorage) StoryCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stories)
}

// ListOpenings mocks listing openings
func (m *MockStorage) ListOpenings(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string)
	for filename, o := range m.openings {
		result[o.Name] = filename
	}
	return result, nil
}

// GetOpening mocks getting an opening by filename
func (m *MockStorage) GetOpening(ctx context.Context, filename string) (*story.Opening, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, exists := m.openings[filename]
	if !exists {
		return nil, errors.New("opening not found")
	}
	return o, nil
}

// AddOpening adds an opening to the mock storage (for testing)
func (m *MockStorage) AddOpening(filename string, o *story.Opening) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openings[filename] = o
}

// LoadActions mocks loading the action catalog
func (m *MockStorage) LoadActions(ctx context.Context) ([]action.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.actions), nil
}

// LoadAtoms mocks loading the atom base
func (m *MockStorage) LoadAtoms(ctx context.Context) ([]*atom.Atom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.atoms), nil
}

// LoadHierarchies mocks loading the hierarchies
func (m *MockStorage) LoadHierarchies(ctx context.Context) (hierarchy.Ranks, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(hierarchy.Ranks, len(m.hierarchies))
	for name, ranks := range m.hierarchies {
		out[name] = ranks
	}
	return out, nil
}

// SetKnowledge replaces the actions, atoms and hierarchies served by the mock
func (m *MockStorage) SetKnowledge(actions []action.Definition, atoms []*atom.Atom, ranks hierarchy.Ranks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = actions
	m.atoms = atoms
	m.hierarchies = ranks
}

// MockArchive is an in-memory Archive for testing
type MockArchive struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]ArchivedStory
	order   []uuid.UUID
}

var _ Archive = (*MockArchive)(nil)

// NewMockArchive creates an empty archive
func NewMockArchive() *MockArchive {
	return &MockArchive{entries: make(map[uuid.UUID]ArchivedStory)}
}

// ArchiveStory records a summary of st, replacing any previous one
func (a *MockArchive) ArchiveStory(ctx context.Context, st *story.Story) error {
	if st == nil {
		return errors.New("story cannot be nil")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.entries[st.ID]; !ok {
		a.order = append(a.order, st.ID)
	}
	a.entries[st.ID] = Summarize(st)
	return nil
}

// GetArchived returns the summary of id, or nil if it was never archived
func (a *MockArchive) GetArchived(ctx context.Context, id uuid.UUID) (*ArchivedStory, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// ListArchived returns the most recently archived stories first
func (a *MockArchive) ListArchived(ctx context.Context, limit int) ([]ArchivedStory, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []ArchivedStory
	for i := len(a.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, a.entries[a.order[i]])
	}
	return out, nil
}

// Close mocks archive close
func (a *MockArchive) Close() error {
	return nil
}
