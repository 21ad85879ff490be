package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/internal/handlers"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running plotweaver API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration // how long to wait for a queued step
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
	OpeningOverride   string // If set, overrides the opening for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	req := handlers.CreateStoryRequest{Opening: suite.Opening, Inline: suite.Inline}
	if r.OpeningOverride != "" {
		req = handlers.CreateStoryRequest{Opening: r.OpeningOverride}
	}
	storyID, err := r.createStory(ctx, req)
	if err != nil {
		result.Error = fmt.Errorf("failed to create story: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.StoryID = storyID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, storyID, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) createStory(ctx context.Context, create handlers.CreateStoryRequest) (uuid.UUID, error) {
	body, err := json.Marshal(create)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("failed to marshal create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/v1/stories", bytes.NewReader(body))
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("failed to create POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("failed to create story: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return uuid.UUID{}, fmt.Errorf("create story returned %d: %s", resp.StatusCode, string(b))
	}

	var created handlers.StoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return uuid.UUID{}, fmt.Errorf("failed to decode created story: %w", err)
	}
	return created.Story.ID, nil
}

// runStep executes a single test step and checks expectations
// Will retry once on timeout errors without backoff
func (r *Runner) runStep(ctx context.Context, storyID uuid.UUID, step TestStep) TestResult {
	for attempt := 1; attempt <= 2; attempt++ {
		result := r.executeStep(ctx, storyID, step)
		if result.Success || result.Error == nil {
			return result
		}

		isTimeout := strings.Contains(result.Error.Error(), "timeout waiting for story progress")
		if isTimeout && attempt == 1 {
			r.Logger("    Timeout detected, retrying step: %s", step.Name)
			continue
		}
		return result
	}

	return TestResult{StepName: step.Name, Error: fmt.Errorf("unexpected error in retry logic")}
}

// executeStep performs the actual step execution
func (r *Runner) executeStep(ctx context.Context, storyID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	pre, err := GetStory(ctx, r.Client, r.BaseURL, storyID)
	if err != nil {
		result.Error = fmt.Errorf("failed to get story before step: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	adv, err := PostAdvance(ctx, r.Client, r.BaseURL, storyID, step.Count())
	if err != nil {
		result.Error = fmt.Errorf("failed to advance story: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	var post *handlers.StoryResponse
	if adv.RequestID != "" {
		result.RequestID = adv.RequestID
		want := 0
		if n := step.Count(); n > 0 {
			want = pre.Story.Iteration + n
		}
		post, err = PollForProgress(ctx, r.Client, r.BaseURL, storyID, want, r.Timeout)
	} else {
		post, err = GetStory(ctx, r.Client, r.BaseURL, storyID)
	}
	if err != nil {
		result.Error = fmt.Errorf("failed to read story after step: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	result.Transcript = post.Transcript

	if err := checkExpectations(step.Expectations, post); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// checkExpectations validates the test expectations against the story after the step
func checkExpectations(exp Expectations, post *handlers.StoryResponse) error {
	if exp.Ended != nil && post.Ended != *exp.Ended {
		return fmt.Errorf("expected ended to be %t, got %t", *exp.Ended, post.Ended)
	}

	if exp.Iteration != nil && post.Story.Iteration != *exp.Iteration {
		return fmt.Errorf("expected iteration %d, got %d", *exp.Iteration, post.Story.Iteration)
	}

	if exp.MinActions != nil && post.Year < *exp.MinActions {
		return fmt.Errorf("expected at least %d actions, got %d", *exp.MinActions, post.Year)
	}
	if exp.MaxActions != nil && post.Year > *exp.MaxActions {
		return fmt.Errorf("expected at most %d actions, got %d", *exp.MaxActions, post.Year)
	}

	if exp.MinCommitted != nil && post.Totals.Committed < *exp.MinCommitted {
		return fmt.Errorf("expected at least %d committed actions, got %d", *exp.MinCommitted, post.Totals.Committed)
	}
	if exp.MaxImpasses != nil && post.Totals.Impasses > *exp.MaxImpasses {
		return fmt.Errorf("expected at most %d impasses, got %d", *exp.MaxImpasses, post.Totals.Impasses)
	}

	lowerTranscript := strings.ToLower(post.Transcript)
	for _, expectedText := range exp.TranscriptContains {
		if !strings.Contains(lowerTranscript, strings.ToLower(expectedText)) {
			return fmt.Errorf("expected transcript to contain '%s', but it didn't", expectedText)
		}
	}
	for _, unexpectedText := range exp.TranscriptNotContains {
		if strings.Contains(lowerTranscript, strings.ToLower(unexpectedText)) {
			return fmt.Errorf("expected transcript to NOT contain '%s', but it did", unexpectedText)
		}
	}

	if exp.TranscriptRegex != "" {
		matched, err := regexp.MatchString(exp.TranscriptRegex, post.Transcript)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("transcript didn't match regex pattern: %s", exp.TranscriptRegex)
		}
	}

	return nil
}
