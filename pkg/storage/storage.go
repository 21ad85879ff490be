package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/pkg/action"
	"github.com/jwebster45206/plotweaver/pkg/atom"
	"github.com/jwebster45206/plotweaver/pkg/hierarchy"
	"github.com/jwebster45206/plotweaver/pkg/story"
)

// Storage defines a unified interface for all storage operations
// This interface combines story persistence (Redis) with resource loading (filesystem)
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Story operations (Redis-backed)
	SaveStory(ctx context.Context, st *story.Story) error
	LoadStory(ctx context.Context, id uuid.UUID) (*story.Story, error)
	DeleteStory(ctx context.Context, id uuid.UUID) error

	Openings
	Knowledge
}

// Openings lists and reads the stored openings (filesystem-backed).
type Openings interface {
	ListOpenings(ctx context.Context) (map[string]string, error)
	GetOpening(ctx context.Context, filename string) (*story.Opening, error)
}

// Knowledge reads the knowledge base (filesystem-backed), once at startup.
type Knowledge interface {
	LoadActions(ctx context.Context) ([]action.Definition, error)
	LoadAtoms(ctx context.Context) ([]*atom.Atom, error)
	LoadHierarchies(ctx context.Context) (hierarchy.Ranks, error)
}

// ArchivedStory is the summary row kept for a finished story.
type ArchivedStory struct {
	ID                uuid.UUID `json:"id"`
	Actions           int       `json:"actions"`
	Iterations        int       `json:"iterations"`
	MissingConditions int       `json:"missing_conditions"`
	IrrelevantActions int       `json:"irrelevant_actions"`
	IllogicalActions  int       `json:"illogical_actions"`
	Impasses          int       `json:"impasses"`
	Transcript        string    `json:"transcript"`
	FinishedAt        time.Time `json:"finished_at"`
}

// Archive keeps finished stories after their live snapshot expires.
type Archive interface {
	ArchiveStory(ctx context.Context, st *story.Story) error
	GetArchived(ctx context.Context, id uuid.UUID) (*ArchivedStory, error)
	ListArchived(ctx context.Context, limit int) ([]ArchivedStory, error)
	Close() error
}

// Summarize builds the archive row for st.
func Summarize(st *story.Story) ArchivedStory {
	totals := st.Totals()
	return ArchivedStory{
		ID:                st.ID,
		Actions:           len(st.Actions),
		Iterations:        st.Iteration,
		MissingConditions: totals.MissingConditions,
		IrrelevantActions: totals.IrrelevantActions,
		IllogicalActions:  totals.IllogicalActions,
		Impasses:          totals.Impasses,
		Transcript:        story.Render(st),
		FinishedAt:        st.UpdatedAt,
	}
}
