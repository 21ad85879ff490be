package queue

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestFromJSON(t *testing.T) {
	id := uuid.New()
	req, err := FromJSON([]byte(`{"request_id":"r1","type":"step","story_id":"` + id.String() + `","steps":3}`))
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if req.StoryID != id {
		t.Errorf("StoryID = %s, want %s", req.StoryID, id)
	}
	if req.StepCount() != 3 {
		t.Errorf("StepCount() = %d, want 3", req.StepCount())
	}
}

func TestFromJSON_Rejects(t *testing.T) {
	tests := map[string]string{
		"bad uuid":     `{"type":"step","story_id":"nope"}`,
		"unknown type": `{"type":"chat","story_id":"` + uuid.NewString() + `"}`,
		"not json":     `{`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := FromJSON([]byte(body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRequest_ToJSONWritesStoryIDAsString(t *testing.T) {
	req := NewStepRequest(uuid.New(), 0)
	data, err := req.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if !strings.Contains(string(data), `"story_id":"`+req.StoryID.String()+`"`) {
		t.Errorf("unexpected JSON: %s", data)
	}
	if req.StepCount() != 1 {
		t.Errorf("StepCount() = %d, want 1", req.StepCount())
	}
}

func TestRequest_RunHasNoStepBound(t *testing.T) {
	req := &Request{Type: RequestTypeRun, Steps: 4}
	if req.StepCount() != 0 {
		t.Errorf("StepCount() = %d, want 0", req.StepCount())
	}
}
