// Package job implements the autonomous job core: complexity classification,
// plan generation, the failure-recovery decision procedure, and result
// formatting. Execution itself happens in the remote harness; this package
// owns the plan representation handed to it.
package job

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Action vocabulary understood by the harness. Actions outside this set are
// passed through opaquely; the orchestration layer only maps known values to
// display labels.
const (
	ActionDiscover   = "discover"
	ActionFilter     = "filter"
	ActionEnrich     = "enrich"
	ActionAudit      = "audit"
	ActionAnalyze    = "analyze"
	ActionDraftEmail = "draft-email"
)

// Actions lists the closed action vocabulary in prompt order.
var Actions = []string{
	ActionDiscover,
	ActionFilter,
	ActionEnrich,
	ActionAudit,
	ActionAnalyze,
	ActionDraftEmail,
}

// actionGlyphs maps known actions to the glyph used in progress notifications.
var actionGlyphs = map[string]string{
	ActionDiscover:   "🔍",
	ActionFilter:     "🎯",
	ActionEnrich:     "📞",
	ActionAudit:      "🌐",
	ActionAnalyze:    "📊",
	ActionDraftEmail: "✉️",
}

// defaultGlyph is used for actions outside the known vocabulary.
const defaultGlyph = "⚙️"

// ActionGlyph returns the display glyph for an action.
func ActionGlyph(action string) string {
	if g, ok := actionGlyphs[action]; ok {
		return g
	}
	return defaultGlyph
}

// ActionLabel returns the action name with its first letter capitalized,
// suitable for display in notifications.
func ActionLabel(action string) string {
	if action == "" {
		return ""
	}
	return strings.ToUpper(action[:1]) + action[1:]
}

// StepStatus represents the execution state of a step.
type StepStatus string

const (
	// StepStatusPending indicates the step has not yet started.
	StepStatusPending StepStatus = "pending"

	// StepStatusRunning indicates the harness is executing the step.
	StepStatusRunning StepStatus = "running"

	// StepStatusCompleted indicates the step finished successfully.
	StepStatusCompleted StepStatus = "completed"

	// StepStatusFailed indicates the step failed.
	StepStatusFailed StepStatus = "failed"
)

// String returns the string representation of the step status.
func (s StepStatus) String() string {
	return string(s)
}

// IsValid returns true if the step status is valid.
func (s StepStatus) IsValid() bool {
	switch s {
	case StepStatusPending, StepStatusRunning, StepStatusCompleted, StepStatusFailed:
		return true
	default:
		return false
	}
}

// Step is one unit of work within a plan.
type Step struct {
	// ID is the opaque unique step identifier. A fresh ID is generated
	// whenever a step is created or replaced; recovery never reuses a
	// failed step's identity, preserving an audit trail of attempts.
	ID string `json:"id"`

	// Order is the 1-based execution position. After recovery, a
	// replacement step keeps the order of the step it replaces and the
	// remaining steps keep their original order values; order is not
	// renumbered globally.
	Order int `json:"order"`

	// Action is the action tag from the harness vocabulary.
	Action string `json:"action"`

	// Params is the action-specific payload. The harness validates it;
	// the orchestration layer carries it opaquely.
	Params json.RawMessage `json:"params"`

	// Status is the current execution state.
	Status StepStatus `json:"status"`
}

// NewStepID generates a fresh opaque step identifier.
func NewStepID() string {
	return uuid.NewString()
}

// Plan is an ordered sequence of steps satisfying one user request.
// The description is immutable after creation; the step list is replaced
// wholesale when recovery adapts the plan.
type Plan struct {
	Description string `json:"description"`
	Steps       []Step `json:"steps"`
}
