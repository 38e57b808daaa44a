// Package orchestrator ties the job engine together: it decides when a
// chat message becomes an autonomous job, generates and submits the
// plan, watches execution, and resubmits adapted work after failures.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadscout/leadscout/channel"
	"github.com/leadscout/leadscout/harness"
	"github.com/leadscout/leadscout/job"
	"github.com/leadscout/leadscout/metric"
	"github.com/leadscout/leadscout/poller"
)

// JobService is the harness surface the orchestrator needs.
type JobService interface {
	Submit(ctx context.Context, userID string, plan *job.Plan) (string, error)
	Status(ctx context.Context, jobID string) (*harness.StatusSnapshot, error)
	Results(ctx context.Context, jobID string) (json.RawMessage, error)
}

// Orchestrator routes complex requests through the plan/execute/recover
// pipeline. Simple requests are left to the caller's normal chat flow.
type Orchestrator struct {
	planner   *job.Planner
	recovery  *job.RecoveryPlanner
	svc       JobService
	ch        channel.Channel
	monitor   *Monitor
	reflector *Reflector
	logger    *slog.Logger

	pollInterval time.Duration
	errorBackoff time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReflector enables post-job reflection.
func WithReflector(r *Reflector) Option {
	return func(o *Orchestrator) {
		o.reflector = r
	}
}

// WithPollIntervals overrides the poll interval and error backoff used
// by job watchers.
func WithPollIntervals(poll, backoff time.Duration) Option {
	return func(o *Orchestrator) {
		o.pollInterval = poll
		o.errorBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an orchestrator.
func New(planner *job.Planner, recovery *job.RecoveryPlanner, svc JobService, ch channel.Channel, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		planner:      planner,
		recovery:     recovery,
		svc:          svc,
		ch:           ch,
		monitor:      NewMonitor(nil),
		logger:       slog.Default(),
		pollInterval: poller.DefaultPollInterval,
		errorBackoff: poller.DefaultErrorBackoff,
	}

	for _, opt := range opts {
		opt(o)
	}

	o.monitor.logger = o.logger

	return o
}

// Monitor exposes the watcher registry, used for cancellation and
// shutdown.
func (o *Orchestrator) Monitor() *Monitor {
	return o.monitor
}

// HandleMessage routes one incoming chat message. It returns false when
// the message is not a multi-step request, leaving it for the normal
// conversation flow. For complex requests it generates a plan, submits
// it, and launches a background watcher; the watcher outlives ctx.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID, channelID, message string, toolResultCount int) (bool, error) {
	if !job.IsComplex(message, toolResultCount) {
		return false, nil
	}

	o.logger.Info("complex request detected", "user_id", userID, "channel_id", channelID)

	plan, err := o.planner.Generate(ctx, message)
	if err != nil {
		o.send(ctx, channelID, "⚠️ I couldn't put together a plan for that request.")
		return true, fmt.Errorf("generating plan: %w", err)
	}

	o.send(ctx, channelID, fmt.Sprintf("🚀 Starting job: %s (%d steps)", plan.Description, len(plan.Steps)))

	jobID, err := o.svc.Submit(ctx, userID, plan)
	if err != nil {
		o.send(ctx, channelID, "⚠️ I couldn't start the job. Please try again.")
		return true, fmt.Errorf("submitting job: %w", err)
	}

	metric.JobsStarted.Inc()

	o.monitor.Launch(jobID, func(watchCtx context.Context) {
		o.watch(watchCtx, jobID, userID, channelID, plan)
	})

	return true, nil
}

// watch follows a job to completion, resubmitting adapted work after
// failures. Each failure triggers exactly one recovery call; the loop
// ends on success, cancellation, abort, or an unrecoverable error.
func (o *Orchestrator) watch(ctx context.Context, jobID, userID, channelID string, plan *job.Plan) {
	for {
		p := poller.New(jobID, channelID, o.svc, o.ch,
			poller.WithIntervals(o.pollInterval, o.errorBackoff),
			poller.WithLogger(o.logger))

		results, snapshot, err := p.RunUntilComplete(ctx)
		if err != nil {
			if ctx.Err() != nil {
				o.logger.Info("job watch cancelled", "job_id", jobID)
				return
			}
			o.logger.Error("job watch failed", "job_id", jobID, "error", err)
			return
		}

		switch snapshot.Status {
		case "completed":
			o.send(ctx, channelID, job.FormatResults(results))
			o.reflect(ctx, plan, snapshot, true)
			return

		case "cancelled":
			// The poller already told the user.
			return

		case "failed":
			nextID, nextPlan, ok := o.attemptRecovery(ctx, userID, channelID, plan, snapshot)
			if !ok {
				o.reflect(ctx, plan, snapshot, false)
				return
			}
			jobID, plan = nextID, nextPlan
		}
	}
}

// attemptRecovery asks the recovery planner what to do about a failed
// job and, unless it aborts, resubmits the adapted remainder as a new
// job. It returns the new job and plan, or ok=false when the job is
// over.
func (o *Orchestrator) attemptRecovery(ctx context.Context, userID, channelID string, plan *job.Plan, snapshot *harness.StatusSnapshot) (string, *job.Plan, bool) {
	idx := failedStepIndex(snapshot)
	if idx < 0 || idx >= len(plan.Steps) {
		o.logger.Warn("failed step not identifiable, not recovering",
			"current_step", snapshot.CurrentStep,
			"plan_steps", len(plan.Steps))
		return "", nil, false
	}

	failed := plan.Steps[idx]
	remaining := plan.Steps[idx+1:]

	adapted, err := o.recovery.Recover(ctx, failed, snapshot.Error, remaining)
	if err != nil {
		var abort *job.AbortError
		if errors.As(err, &abort) {
			o.send(ctx, channelID, fmt.Sprintf("🛑 Stopping the job: %s", abort.Reason))
		} else {
			o.logger.Error("recovery failed", "error", err)
			o.send(ctx, channelID, "⚠️ The job hit an error I couldn't recover from.")
		}
		return "", nil, false
	}

	if len(adapted) == 0 {
		// The failed step was the last one and the model skipped it.
		o.send(ctx, channelID, "✅ Nothing left to run after recovery.")
		return "", nil, false
	}

	newPlan := &job.Plan{
		Description: plan.Description,
		Steps:       adapted,
	}

	newID, err := o.svc.Submit(ctx, userID, newPlan)
	if err != nil {
		o.logger.Error("recovery resubmit failed", "error", err)
		o.send(ctx, channelID, "⚠️ I couldn't resume the job after recovery.")
		return "", nil, false
	}

	metric.JobsStarted.Inc()
	o.send(ctx, channelID, fmt.Sprintf("🔄 Resuming with an adapted plan (%d steps)", len(adapted)))

	return newID, newPlan, true
}

// failedStepIndex locates the failed step within the snapshot. The
// snapshot's per-step statuses are authoritative; CurrentStep is the
// fallback when none is marked failed.
func failedStepIndex(snapshot *harness.StatusSnapshot) int {
	for i, s := range snapshot.Steps {
		if s.Status == "failed" {
			return i
		}
	}
	return snapshot.CurrentStep - 1
}

// reflect runs post-job reflection in the background. Reflection never
// blocks or fails the job flow.
func (o *Orchestrator) reflect(ctx context.Context, plan *job.Plan, snapshot *harness.StatusSnapshot, success bool) {
	if o.reflector == nil {
		return
	}

	records := make([]StepRecord, 0, len(snapshot.Steps))
	for _, s := range snapshot.Steps {
		records = append(records, StepRecord{
			Action:  s.Action,
			Status:  s.Status,
			Success: s.Status == "completed",
		})
	}

	go func() {
		reflectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
		defer cancel()

		if _, err := o.reflector.Reflect(reflectCtx, plan.Description, records, success); err != nil {
			o.logger.Warn("reflection failed", "error", err)
		}
	}()
}

func (o *Orchestrator) send(ctx context.Context, channelID, content string) {
	err := o.ch.Send(ctx, channel.OutgoingMessage{
		ChannelID: channelID,
		Content:   content,
	})
	if err != nil {
		o.logger.Warn("notification send failed", "channel_id", channelID, "error", err)
	}
}
