package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leadscout/leadscout/llm"
	"github.com/leadscout/leadscout/metric"
)

// CompletionClient is the completion surface the planner and recovery
// planner need. *llm.Client satisfies it; tests use llm/testutil.MockClient.
type CompletionClient interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Sentinel errors distinguishing planner failure modes. Transport errors
// from the completion client are wrapped and surfaced as-is.
var (
	// ErrMalformedResponse indicates the model output could not be parsed
	// as a plan or recovery decision.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrEmptyPlan indicates the model returned a well-formed but empty
	// step array.
	ErrEmptyPlan = errors.New("model returned an empty plan")
)

// planMaxTokens is the token budget for the one-time planning call.
const planMaxTokens = 2000

// Planner turns a user request into an executable plan with a single
// completion call.
type Planner struct {
	client CompletionClient
	logger *slog.Logger
}

// NewPlanner creates a Planner using the given completion client.
func NewPlanner(client CompletionClient, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{client: client, logger: logger}
}

// planPrompt builds the one-shot planning prompt.
func planPrompt(userMessage string) string {
	return fmt.Sprintf(`You are a task planner for an AI agent. Given a user request, break it down into a sequence of executable steps.

Available actions:
- "discover": Find businesses by niche and location
- "filter": Filter businesses by criteria (rating, reviews, etc.)
- "enrich": Find owner/decision-maker contact information for a business
- "audit": Analyze a business website
- "analyze": Perform business analysis
- "draft-email": Draft an outreach email

User request: "%s"

Create a step-by-step execution plan. Each step should have:
- order: Step number (1, 2, 3...)
- action: One of the available actions
- params: Parameters needed for that action

Example:
User: "Find HVAC companies in Miami with 50-300 reviews and get me the point of contact"
Plan:
1. discover: { "niche": "hvac", "location": "Miami, FL", "limit": 50 }
2. enrich: { "businesses": "{from_step_1}" }

Respond with ONLY a JSON array of steps. No explanation.`, userMessage)
}

// planStep is the wire shape of one step in the model's plan array.
// The model's own order field is ignored; positions are authoritative.
type planStep struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// Generate produces a plan for the user request. It makes exactly one
// completion call and returns no partial plan on failure.
func (p *Planner) Generate(ctx context.Context, userMessage string) (*Plan, error) {
	metric.CompletionRequests.WithLabelValues("plan").Inc()

	resp, err := p.client.Complete(ctx, llm.Request{
		Prompt:    planPrompt(userMessage),
		MaxTokens: planMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("plan generation: %w", err)
	}

	raw := llm.ExtractJSONArray(resp.Content)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON array in plan response", ErrMalformedResponse)
	}

	var decoded []planStep
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(decoded) == 0 {
		return nil, ErrEmptyPlan
	}

	steps := make([]Step, 0, len(decoded))
	for i, ds := range decoded {
		action := ds.Action
		if action == "" {
			action = "unknown"
		}
		steps = append(steps, Step{
			ID:     NewStepID(),
			Order:  i + 1, // positions are authoritative, not the model's numbering
			Action: action,
			Params: ds.Params,
			Status: StepStatusPending,
		})
	}

	p.logger.Debug("Generated job plan",
		"steps", len(steps),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens)

	return &Plan{
		Description: userMessage,
		Steps:       steps,
	}, nil
}
