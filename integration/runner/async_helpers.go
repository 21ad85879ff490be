package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/internal/handlers"
)

// PollInterval is how often to check a queued story for progress
var PollInterval = 500 * time.Millisecond

// Advanced is the outcome of a step or run call: either the synchronous
// results or the id of the queued request.
type Advanced struct {
	Step      *handlers.StepResponse
	RequestID string
}

// PostAdvance asks the API to advance a story by n steps, or to the end when
// n is zero.
func PostAdvance(ctx context.Context, client *http.Client, baseURL string, storyID uuid.UUID, n int) (*Advanced, error) {
	url := fmt.Sprintf("%s/v1/stories/%s/run", baseURL, storyID)
	var body io.Reader
	if n > 0 {
		url = fmt.Sprintf("%s/v1/stories/%s/step", baseURL, storyID)
		reqBody, err := json.Marshal(handlers.StepRequest{Steps: n})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal step request: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create step request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send step request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		var out handlers.StepResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("failed to parse step response: %w", err)
		}
		return &Advanced{Step: &out}, nil
	case http.StatusAccepted:
		var out handlers.QueuedResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("failed to parse queued response: %w", err)
		}
		return &Advanced{RequestID: out.RequestID}, nil
	default:
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("step endpoint returned %d: %s", resp.StatusCode, string(b))
	}
}

// GetStory retrieves the current story snapshot
func GetStory(ctx context.Context, client *http.Client, baseURL string, storyID uuid.UUID) (*handlers.StoryResponse, error) {
	url := fmt.Sprintf("%s/v1/stories/%s", baseURL, storyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create story request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send story request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("story endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var out handlers.StoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode story: %w", err)
	}
	return &out, nil
}

// PollForProgress polls a story until a queued request has been applied:
// the iteration reached want, or the story ended. want <= 0 waits for the end.
func PollForProgress(ctx context.Context, client *http.Client, baseURL string, storyID uuid.UUID, want int, timeout time.Duration) (*handlers.StoryResponse, error) {
	deadline := time.After(timeout)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, fmt.Errorf("timeout waiting for story progress (waited %v)", timeout)
		case <-ticker.C:
			s, err := GetStory(ctx, client, baseURL, storyID)
			if err != nil {
				// Log error but continue polling
				continue
			}
			if s.Ended || (want > 0 && s.Story.Iteration >= want) {
				return s, nil
			}
		}
	}
}
