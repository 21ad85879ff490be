package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeStep advances a story by a number of engagement/reflection steps
	RequestTypeStep RequestType = "step"

	// RequestTypeRun advances a story until it ends
	RequestTypeRun RequestType = "run"
)

// Request is a unit of work for the story worker
type Request struct {
	RequestID string      `json:"request_id"`
	Type      RequestType `json:"type"`
	StoryID   uuid.UUID   `json:"story_id"`

	// Steps is the number of steps for step requests; zero means one.
	Steps int `json:"steps,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewStepRequest builds a request to advance a story by n steps.
func NewStepRequest(storyID uuid.UUID, n int) *Request {
	return &Request{
		RequestID:  uuid.New().String(),
		Type:       RequestTypeStep,
		StoryID:    storyID,
		Steps:      n,
		EnqueuedAt: time.Now(),
	}
}

// NewRunRequest builds a request to advance a story until it ends.
func NewRunRequest(storyID uuid.UUID) *Request {
	return &Request{
		RequestID:  uuid.New().String(),
		Type:       RequestTypeRun,
		StoryID:    storyID,
		EnqueuedAt: time.Now(),
	}
}

// StepCount is the number of steps the request asks for; run requests have
// no bound and report zero.
func (r *Request) StepCount() int {
	if r.Type == RequestTypeRun {
		return 0
	}
	if r.Steps < 1 {
		return 1
	}
	return r.Steps
}

// MarshalJSON serializes the request to JSON for Redis storage
func (r *Request) MarshalJSON() ([]byte, error) {
	type Alias Request
	return json.Marshal(&struct {
		StoryID string `json:"story_id"`
		*Alias
	}{
		StoryID: r.StoryID.String(),
		Alias:   (*Alias)(r),
	})
}

// UnmarshalJSON deserializes the request from JSON in Redis
func (r *Request) UnmarshalJSON(data []byte) error {
	type Alias Request
	aux := &struct {
		StoryID string `json:"story_id"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	storyID, err := uuid.Parse(aux.StoryID)
	if err != nil {
		return fmt.Errorf("invalid story_id: %w", err)
	}

	r.StoryID = storyID
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	switch req.Type {
	case RequestTypeStep, RequestTypeRun:
	default:
		return nil, fmt.Errorf("unknown request type %q", req.Type)
	}
	return &req, nil
}
