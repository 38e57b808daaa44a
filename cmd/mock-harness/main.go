// Package main implements a mock harness server for e2e testing.
// It accepts job plans on /jobs/execute and simulates execution by
// advancing one step per configured interval, so pollers and recovery
// logic can be exercised without a real executor. A step can be forced
// to fail with -fail-step, and the result document served for completed
// jobs is read from a fixture file.
//
// Usage:
//
//	mock-harness -port 3001 -step-duration 2s -fail-step 0 -results /path/to/results.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type planStep struct {
	ID     string          `json:"id"`
	Order  int             `json:"order"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
	Status string          `json:"status"`
}

type executeRequest struct {
	UserID      string     `json:"userId"`
	Description string     `json:"description"`
	Plan        []planStep `json:"plan"`
}

type stepView struct {
	Action string `json:"action"`
	Status string `json:"status"`
}

type statusResponse struct {
	Status      string     `json:"status"`
	CurrentStep int        `json:"currentStep"`
	TotalSteps  int        `json:"totalSteps"`
	Steps       []stepView `json:"steps"`
	Error       string     `json:"error,omitempty"`
}

// simJob is one simulated job's mutable state.
type simJob struct {
	mu          sync.Mutex
	description string
	steps       []stepView
	currentStep int
	status      string
	errText     string
}

type server struct {
	stepDuration time.Duration
	failStep     int
	results      json.RawMessage

	jobs    sync.Map // jobID → *simJob
	nextID  atomic.Int64
	submits atomic.Int64
	polls   atomic.Int64
}

func main() {
	port := flag.Int("port", 3001, "port to listen on")
	stepDuration := flag.Duration("step-duration", 2*time.Second, "time each step takes")
	failStep := flag.Int("fail-step", 0, "step number to fail at (0 = never fail)")
	resultsPath := flag.String("results", "", "fixture file served as the result document")
	flag.Parse()

	results := json.RawMessage(`{"job":{"description":"mock job","status":"completed"},"businesses":[],"contacts":[]}`)
	if *resultsPath != "" {
		data, err := os.ReadFile(*resultsPath)
		if err != nil {
			log.Fatalf("Failed to read results fixture %s: %v", *resultsPath, err)
		}
		if !json.Valid(data) {
			log.Fatalf("Invalid JSON in results fixture %s", *resultsPath)
		}
		results = data
	}

	s := &server{
		stepDuration: *stepDuration,
		failStep:     *failStep,
		results:      results,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/jobs/execute", s.handleExecute)
	mux.HandleFunc("/autonomous-jobs/", s.handleJob)
	mux.HandleFunc("/stats", s.handleStats)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock harness listening on %s (step=%s fail-step=%d)", addr, *stepDuration, *failStep)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Plan) == 0 {
		http.Error(w, "plan is empty", http.StatusBadRequest)
		return
	}

	jobID := fmt.Sprintf("mock-job-%d", s.nextID.Add(1))
	submitNum := s.submits.Add(1)

	steps := make([]stepView, len(req.Plan))
	for i, p := range req.Plan {
		steps[i] = stepView{Action: p.Action, Status: "pending"}
	}

	j := &simJob{
		description: req.Description,
		steps:       steps,
		status:      "running",
	}
	s.jobs.Store(jobID, j)

	go s.runJob(jobID, j)

	log.Printf("[submit %d] job=%s user=%s steps=%d", submitNum, jobID, req.UserID, len(req.Plan))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"jobId": jobID})
}

// runJob advances the job one step per interval until done or the
// configured failure step is reached.
func (s *server) runJob(jobID string, j *simJob) {
	for i := range j.steps {
		stepNum := i + 1

		j.mu.Lock()
		j.currentStep = stepNum
		j.steps[i].Status = "running"
		j.mu.Unlock()

		time.Sleep(s.stepDuration)

		j.mu.Lock()
		if s.failStep == stepNum {
			j.steps[i].Status = "failed"
			j.status = "failed"
			j.errText = fmt.Sprintf("simulated failure at step %d (%s)", stepNum, j.steps[i].Action)
			j.mu.Unlock()
			log.Printf("job=%s failed at step %d", jobID, stepNum)
			return
		}
		j.steps[i].Status = "completed"
		j.mu.Unlock()
	}

	j.mu.Lock()
	j.status = "completed"
	j.mu.Unlock()
	log.Printf("job=%s completed", jobID)
}

// handleJob routes /autonomous-jobs/{id}/status and /autonomous-jobs/{id}/results.
func (s *server) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/autonomous-jobs/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	jobID, what := parts[0], parts[1]

	v, ok := s.jobs.Load(jobID)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown job %q", jobID), http.StatusNotFound)
		return
	}
	j := v.(*simJob)

	switch what {
	case "status":
		s.polls.Add(1)

		j.mu.Lock()
		resp := statusResponse{
			Status:      j.status,
			CurrentStep: j.currentStep,
			TotalSteps:  len(j.steps),
			Steps:       append([]stepView(nil), j.steps...),
			Error:       j.errText,
		}
		j.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)

	case "results":
		j.mu.Lock()
		status := j.status
		j.mu.Unlock()

		if status != "completed" {
			http.Error(w, fmt.Sprintf("job %q is %s, no results", jobID, status), http.StatusConflict)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(s.results)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleStats returns counters for test assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"submits": s.submits.Load(),
		"polls":   s.polls.Load(),
	})
}
