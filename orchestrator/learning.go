package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/leadscout/leadscout/job"
	"github.com/leadscout/leadscout/llm"
)

// LessonSubject is the NATS subject lessons are published to.
const LessonSubject = "leadscout.lessons"

// reflectionMaxTokens is the token budget for the reflection call.
const reflectionMaxTokens = 1000

// StepRecord summarizes one executed step for reflection.
type StepRecord struct {
	Action  string `json:"action"`
	Status  string `json:"status"`
	Success bool   `json:"success"`
}

// Lesson is one piece of learning extracted from a finished job.
type Lesson struct {
	Topic   string    `json:"topic"`
	Content string    `json:"content"`
	Goal    string    `json:"goal"`
	Success bool      `json:"success"`
	At      time.Time `json:"at"`
}

// Reflector analyzes finished jobs and publishes any lessons to NATS.
// Reflection is best effort: it never influences job outcomes, and a
// failed reflection is logged and forgotten.
type Reflector struct {
	client job.CompletionClient
	nc     *nats.Conn
	logger *slog.Logger
}

// NewReflector creates a reflector. nc may be nil, in which case lessons
// are logged but not published.
func NewReflector(client job.CompletionClient, nc *nats.Conn, logger *slog.Logger) *Reflector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reflector{client: client, nc: nc, logger: logger}
}

func reflectionPrompt(goal string, steps []StepRecord, success bool) string {
	var summary strings.Builder
	for _, s := range steps {
		fmt.Fprintf(&summary, "- %s: %s\n", s.Action, s.Status)
	}

	return fmt.Sprintf(`You are analyzing a finished job to extract reusable lessons.

## The Job
Goal: %s
Success: %t
Steps executed: %d

## What Happened
%s
## Your Task

Identify anything genuinely worth remembering for future jobs: action
sequences that worked, failure patterns, parameter choices that mattered.

## Output Format

Respond with JSON only (no other text):
{"lessons": [
  {"topic": "workflow", "content": "What was learned"}
]}

If nothing was learned, respond:
{"lessons": []}

Be conservative - only report genuinely new learning.
Be specific - include actual action names and outcomes.`,
		goal, success, len(steps), summary.String())
}

type reflectionResponse struct {
	Lessons []struct {
		Topic   string `json:"topic"`
		Content string `json:"content"`
	} `json:"lessons"`
}

// Reflect runs one reflection pass over a finished job. It returns the
// published lessons; an empty slice means the model found nothing new.
func (r *Reflector) Reflect(ctx context.Context, goal string, steps []StepRecord, success bool) ([]Lesson, error) {
	if len(steps) == 0 {
		return nil, nil
	}

	resp, err := r.client.Complete(ctx, llm.Request{
		System:    "You are a reflection assistant. Analyze finished jobs and report lessons. Always respond with valid JSON.",
		Prompt:    reflectionPrompt(goal, steps, success),
		MaxTokens: reflectionMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("reflection generation: %w", err)
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in reflection response")
	}

	var parsed reflectionResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parsing reflection response: %w", err)
	}

	now := time.Now()
	lessons := make([]Lesson, 0, len(parsed.Lessons))
	for _, l := range parsed.Lessons {
		if l.Topic == "" || l.Content == "" {
			continue
		}

		lesson := Lesson{
			Topic:   l.Topic,
			Content: l.Content,
			Goal:    goal,
			Success: success,
			At:      now,
		}
		lessons = append(lessons, lesson)

		r.logger.Info("lesson learned", "topic", lesson.Topic)

		if r.nc == nil {
			continue
		}
		data, err := json.Marshal(lesson)
		if err != nil {
			r.logger.Warn("marshal lesson failed", "error", err)
			continue
		}
		if err := r.nc.Publish(LessonSubject, data); err != nil {
			r.logger.Warn("publish lesson failed", "error", err)
		}
	}

	return lessons, nil
}
