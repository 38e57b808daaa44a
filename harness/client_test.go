package harness_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscout/leadscout/harness"
	"github.com/leadscout/leadscout/job"
)

func testPlan() *job.Plan {
	return &job.Plan{
		Description: "Find plumbers in Austin",
		Steps: []job.Step{
			{ID: job.NewStepID(), Order: 1, Action: "discover", Params: json.RawMessage(`{"niche":"plumber"}`), Status: job.StepStatusPending},
			{ID: job.NewStepID(), Order: 2, Action: "enrich", Status: job.StepStatusPending},
		},
	}
}

func TestClient_Submit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/jobs/execute", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			UserID      string     `json:"userId"`
			Description string     `json:"description"`
			Plan        []job.Step `json:"plan"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user-1", body.UserID)
		assert.Equal(t, "Find plumbers in Austin", body.Description)
		assert.Len(t, body.Plan, 2)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"jobId": "job-abc"})
	}))
	defer server.Close()

	client := harness.NewClient(server.URL)

	jobID, err := client.Submit(context.Background(), "user-1", testPlan())

	require.NoError(t, err)
	assert.Equal(t, "job-abc", jobID)
}

func TestClient_Submit_MissingJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := harness.NewClient(server.URL)

	_, err := client.Submit(context.Background(), "user-1", testPlan())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no jobId")
}

func TestClient_Submit_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("plan validation failed"))
	}))
	defer server.Close()

	client := harness.NewClient(server.URL)

	_, err := client.Submit(context.Background(), "user-1", testPlan())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "plan validation failed")
}

func TestClient_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/autonomous-jobs/job-abc/status", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":      "running",
			"currentStep": 2,
			"totalSteps":  3,
			"steps": []map[string]string{
				{"action": "discover", "status": "completed"},
				{"action": "enrich", "status": "running"},
				{"action": "draft-email", "status": "pending"},
			},
		})
	}))
	defer server.Close()

	client := harness.NewClient(server.URL)

	snapshot, err := client.Status(context.Background(), "job-abc")

	require.NoError(t, err)
	assert.Equal(t, "running", snapshot.Status)
	assert.Equal(t, 2, snapshot.CurrentStep)
	assert.Equal(t, 3, snapshot.TotalSteps)
	require.Len(t, snapshot.Steps, 3)
	assert.Equal(t, "enrich", snapshot.Steps[1].Action)
	assert.False(t, snapshot.Terminal())
}

func TestClient_Status_FailedJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":      "failed",
			"currentStep": 1,
			"totalSteps":  2,
			"steps": []map[string]string{
				{"action": "discover", "status": "failed"},
				{"action": "enrich", "status": "pending"},
			},
			"error": "no businesses found",
		})
	}))
	defer server.Close()

	client := harness.NewClient(server.URL)

	snapshot, err := client.Status(context.Background(), "job-abc")

	require.NoError(t, err)
	assert.True(t, snapshot.Terminal())
	assert.Equal(t, "no businesses found", snapshot.Error)
}

func TestStatusSnapshot_Terminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"completed", true},
		{"failed", true},
		{"cancelled", true},
		{"running", false},
		{"pending", false},
		{"", false},
		{"paused", false}, // unknown status means still running
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			s := &harness.StatusSnapshot{Status: tt.status}
			assert.Equal(t, tt.want, s.Terminal())
		})
	}
}

func TestClient_Results(t *testing.T) {
	doc := `{"job":{"description":"x","status":"completed"},"businesses":[{"name":"Ace"}]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/autonomous-jobs/job-abc/results", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}))
	defer server.Close()

	client := harness.NewClient(server.URL)

	results, err := client.Results(context.Background(), "job-abc")

	require.NoError(t, err)
	assert.JSONEq(t, doc, string(results))
}

func TestClient_Results_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("unknown job"))
	}))
	defer server.Close()

	client := harness.NewClient(server.URL)

	_, err := client.Results(context.Background(), "nope")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
