package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/internal/handlers"
)

// APIClient talks to the plotweaver API.
type APIClient struct {
	baseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	return &APIClient{baseURL: baseURL, client: client}
}

// Advance is the outcome of a step or run call. Queued is set instead of
// Results when the API hands the request to the workers.
type Advance struct {
	Step   *handlers.StepResponse
	Queued *handlers.QueuedResponse
}

func (c *APIClient) Health() bool {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// ListOpenings returns the opening names in order and the name to filename map.
func (c *APIClient) ListOpenings() ([]string, map[string]string, error) {
	var openings map[string]string
	if err := c.do(http.MethodGet, "/v1/openings", nil, &openings, http.StatusOK); err != nil {
		return nil, nil, err
	}
	names := make([]string, 0, len(openings))
	for name := range openings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, openings, nil
}

func (c *APIClient) CreateStory(openingFile string) (*handlers.StoryResponse, error) {
	var out handlers.StoryResponse
	req := handlers.CreateStoryRequest{Opening: openingFile}
	if err := c.do(http.MethodPost, "/v1/stories", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) GetStory(id uuid.UUID) (*handlers.StoryResponse, error) {
	var out handlers.StoryResponse
	if err := c.do(http.MethodGet, "/v1/stories/"+id.String(), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Step advances the story by n steps; n <= 0 runs it to the end.
func (c *APIClient) Step(id uuid.UUID, n int) (*Advance, error) {
	path := fmt.Sprintf("/v1/stories/%s/step", id)
	var body any = handlers.StepRequest{Steps: n}
	if n <= 0 {
		path = fmt.Sprintf("/v1/stories/%s/run", id)
		body = nil
	}

	resp, data, err := c.send(http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		var out handlers.StepResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("failed to parse step response: %w", err)
		}
		return &Advance{Step: &out}, nil
	case http.StatusAccepted:
		var out handlers.QueuedResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("failed to parse queued response: %w", err)
		}
		return &Advance{Queued: &out}, nil
	default:
		return nil, apiError(resp.StatusCode, data)
	}
}

func (c *APIClient) DeleteStory(id uuid.UUID) error {
	return c.do(http.MethodDelete, "/v1/stories/"+id.String(), nil, nil, http.StatusNoContent)
}

func (c *APIClient) do(method, path string, body, out any, want int) error {
	resp, data, err := c.send(method, path, body)
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		return apiError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *APIClient) send(method, path string, body any) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, data, nil
}

func apiError(status int, body []byte) error {
	var errorResp handlers.ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("API returned status %d: %s", status, string(body))
	}
	return fmt.Errorf("API returned status %d: %s", status, errorResp.Error)
}
