package job

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leadscout/leadscout/llm"
	"github.com/leadscout/leadscout/metric"
)

// Decision is the recovery choice for a failed step.
type Decision string

const (
	// DecisionSkip drops the failed step and continues with the rest.
	DecisionSkip Decision = "SKIP"

	// DecisionRetry retries the same step with modified parameters.
	DecisionRetry Decision = "RETRY"

	// DecisionAlternative substitutes a different action for the same goal.
	DecisionAlternative Decision = "ALTERNATIVE"

	// DecisionAbort declares the failure unrecoverable.
	DecisionAbort Decision = "ABORT"
)

// AbortError is returned when the model decides the failure is
// unrecoverable, or returns a decision outside the known set. Unknown
// decisions abort deliberately: an unparseable choice must not silently
// continue the job.
type AbortError struct {
	// Reason is the model-supplied explanation, or a default when absent.
	Reason string
}

func (e *AbortError) Error() string {
	return "recovery aborted: " + e.Reason
}

// recoveryMaxTokens is the token budget for the recovery call.
const recoveryMaxTokens = 1000

// RecoveryPlanner decides how to adapt a plan after a step fails.
// It is invoked exactly once per failure event, never speculatively.
type RecoveryPlanner struct {
	client CompletionClient
	logger *slog.Logger
}

// NewRecoveryPlanner creates a RecoveryPlanner using the given completion client.
func NewRecoveryPlanner(client CompletionClient, logger *slog.Logger) *RecoveryPlanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryPlanner{client: client, logger: logger}
}

// recoveryPrompt builds the recovery decision prompt.
func recoveryPrompt(failed Step, errorText string, remaining []Step) string {
	actions := make([]string, 0, len(remaining))
	for _, s := range remaining {
		actions = append(actions, s.Action)
	}

	return fmt.Sprintf(`A task execution step failed. Decide how to recover.

Failed step: %d - %s
Error: %s
Remaining steps: [%s]

Options:
1. SKIP: Skip this step and continue with remaining steps
2. RETRY: Retry the same step with modified parameters
3. ALTERNATIVE: Use a different action to achieve the same goal
4. ABORT: The failure is unrecoverable, abort the job

Respond with a JSON object:
{
  "decision": "SKIP" | "RETRY" | "ALTERNATIVE" | "ABORT",
  "reason": "explanation",
  "modified_step": { "action": "...", "params": { ... } } // Only if RETRY or ALTERNATIVE
}`,
		failed.Order, failed.Action, errorText, strings.Join(actions, ", "))
}

// recoveryResponse is the wire shape of the model's recovery decision.
type recoveryResponse struct {
	Decision     string `json:"decision"`
	Reason       string `json:"reason"`
	ModifiedStep *struct {
		Action string          `json:"action"`
		Params json.RawMessage `json:"params"`
	} `json:"modified_step"`
}

// Recover asks the model how to handle a failed step and returns the
// adapted remaining-step sequence.
//
// SKIP returns remaining unchanged: the failed step is dropped and
// execution resumes at the next step's original order. RETRY and
// ALTERNATIVE prepend one replacement step carrying the failed step's
// order and a fresh id; the rest keep their original order values, so
// orders may be non-contiguous after repeated recoveries. ABORT — and any
// unrecognized decision — fails with an *AbortError carrying the model's
// reason. Malformed model output is a distinct error so callers can tell
// "model refused" apart from "model output was unusable".
func (r *RecoveryPlanner) Recover(ctx context.Context, failed Step, errorText string, remaining []Step) ([]Step, error) {
	metric.CompletionRequests.WithLabelValues("recovery").Inc()

	resp, err := r.client.Complete(ctx, llm.Request{
		Prompt:    recoveryPrompt(failed, errorText, remaining),
		MaxTokens: recoveryMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("recovery generation: %w", err)
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in recovery response", ErrMalformedResponse)
	}

	var decision recoveryResponse
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if decision.Decision == "" {
		return nil, fmt.Errorf("%w: missing decision field", ErrMalformedResponse)
	}

	r.logger.Info("Recovery decision",
		"decision", decision.Decision,
		"failed_order", failed.Order,
		"failed_action", failed.Action)

	switch Decision(decision.Decision) {
	case DecisionSkip:
		metric.Recoveries.WithLabelValues(string(DecisionSkip)).Inc()
		return remaining, nil

	case DecisionRetry, DecisionAlternative:
		metric.Recoveries.WithLabelValues(decision.Decision).Inc()

		action := failed.Action
		var params json.RawMessage
		if decision.ModifiedStep != nil {
			if decision.ModifiedStep.Action != "" {
				action = decision.ModifiedStep.Action
			}
			params = decision.ModifiedStep.Params
		}

		replacement := Step{
			ID:     NewStepID(), // never reuse the failed step's identity
			Order:  failed.Order,
			Action: action,
			Params: params,
			Status: StepStatusPending,
		}

		steps := make([]Step, 0, len(remaining)+1)
		steps = append(steps, replacement)
		steps = append(steps, remaining...)
		return steps, nil

	default:
		// ABORT and anything unrecognized fail closed.
		metric.Recoveries.WithLabelValues(string(DecisionAbort)).Inc()

		reason := decision.Reason
		if reason == "" {
			reason = "Unknown reason"
		}
		return nil, &AbortError{Reason: reason}
	}
}
