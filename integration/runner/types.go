package runner

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/pkg/story"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name    string         `json:"name"`
	Opening string         `json:"opening,omitempty"` // opening filename, used for regular tests
	Inline  *story.Opening `json:"inline,omitempty"`  // overrides Opening when set
	Steps   []TestStep     `json:"steps,omitempty"`   // Used for regular tests
	Cases   []string       `json:"cases,omitempty"`   // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep advances the story and checks the outcome. Run advances it to
// the end; otherwise Steps engagement/reflection steps are taken (one when zero).
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Steps        int          `json:"steps,omitempty"`
	Run          bool         `json:"run,omitempty"`
	Expectations Expectations `json:"expect"`
}

// Count is the number of steps the step asks for, zero for a run.
func (s TestStep) Count() int {
	switch {
	case s.Run:
		return 0
	case s.Steps < 1:
		return 1
	default:
		return s.Steps
	}
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	Ended      *bool `json:"ended,omitempty"`
	Iteration  *int  `json:"iteration,omitempty"`
	MinActions *int  `json:"min_actions,omitempty"`
	MaxActions *int  `json:"max_actions,omitempty"`

	// Diagnostics totals
	MinCommitted *int `json:"min_committed,omitempty"`
	MaxImpasses  *int `json:"max_impasses,omitempty"`

	// Transcript analysis
	TranscriptContains    []string `json:"transcript_contains,omitempty"`
	TranscriptNotContains []string `json:"transcript_not_contains,omitempty"`
	TranscriptRegex       string   `json:"transcript_regex,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName   string
	StepName   string
	Success    bool
	Error      error
	Duration   time.Duration
	Transcript string
	RequestID  string // set when the API queued the step
}

// TestJob represents a test suite to be executed by a worker
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	StoryID  uuid.UUID // ID of the story used for this test
}
