// Package poller implements the polling loop that watches a running job
// and pushes progress notifications to a channel.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadscout/leadscout/channel"
	"github.com/leadscout/leadscout/harness"
	"github.com/leadscout/leadscout/job"
	"github.com/leadscout/leadscout/metric"
)

const (
	// DefaultPollInterval is the delay between successful polls.
	DefaultPollInterval = 3 * time.Second
	// DefaultErrorBackoff is the delay after a failed poll.
	DefaultErrorBackoff = 5 * time.Second
)

// StatusClient is the harness surface the poller needs.
type StatusClient interface {
	Status(ctx context.Context, jobID string) (*harness.StatusSnapshot, error)
	Results(ctx context.Context, jobID string) (json.RawMessage, error)
}

// Poller watches one job. It is not safe for concurrent use; run one
// poller per job.
type Poller struct {
	jobID        string
	channelID    string
	client       StatusClient
	ch           channel.Channel
	logger       *slog.Logger
	pollInterval time.Duration
	errorBackoff time.Duration

	// lastNotified is the highest step number already announced.
	lastNotified int
}

// Option configures a Poller.
type Option func(*Poller)

// WithIntervals overrides the poll interval and error backoff.
func WithIntervals(poll, backoff time.Duration) Option {
	return func(p *Poller) {
		if poll > 0 {
			p.pollInterval = poll
		}
		if backoff > 0 {
			p.errorBackoff = backoff
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

// New creates a poller for the given job and notification target.
func New(jobID, channelID string, client StatusClient, ch channel.Channel, opts ...Option) *Poller {
	p := &Poller{
		jobID:        jobID,
		channelID:    channelID,
		client:       client,
		ch:           ch,
		logger:       slog.Default(),
		pollInterval: DefaultPollInterval,
		errorBackoff: DefaultErrorBackoff,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// PollOnce fetches the current status, sends any due notification, and
// returns the snapshot. done is true when the job reached a terminal
// status. Notification delivery failures are logged, not returned; a
// missed update must not kill the watch.
func (p *Poller) PollOnce(ctx context.Context) (snapshot *harness.StatusSnapshot, done bool, err error) {
	metric.PollTicks.Inc()

	snapshot, err = p.client.Status(ctx, p.jobID)
	if err != nil {
		metric.PollErrors.Inc()
		return nil, false, err
	}

	p.notifyProgress(ctx, snapshot)

	if !snapshot.Terminal() {
		return snapshot, false, nil
	}

	metric.JobsFinished.WithLabelValues(snapshot.Status).Inc()

	switch snapshot.Status {
	case "completed":
		p.send(ctx, "✅ Job completed! Fetching results...")
	case "failed":
		errText := snapshot.Error
		if errText == "" {
			errText = "Unknown error"
		}
		p.send(ctx, fmt.Sprintf("❌ Job failed: %s", errText))
	case "cancelled":
		p.send(ctx, "🛑 Job was cancelled")
	}

	return snapshot, true, nil
}

// notifyProgress announces the current step if it has not been announced
// yet. Each step is announced at most once, even if polls observe it
// repeatedly.
func (p *Poller) notifyProgress(ctx context.Context, snapshot *harness.StatusSnapshot) {
	cur := snapshot.CurrentStep
	if cur <= p.lastNotified || cur > snapshot.TotalSteps {
		return
	}
	if cur < 1 || cur > len(snapshot.Steps) {
		return
	}

	step := snapshot.Steps[cur-1]
	glyph := job.ActionGlyph(step.Action)
	label := job.ActionLabel(step.Action)

	var msg string
	if step.Status == "completed" {
		msg = fmt.Sprintf("%s %s complete! (%d/%d)", glyph, label, cur, snapshot.TotalSteps)
	} else {
		msg = fmt.Sprintf("%s %s in progress... (%d/%d)", glyph, label, cur, snapshot.TotalSteps)
	}

	p.send(ctx, msg)
	p.lastNotified = cur
}

func (p *Poller) send(ctx context.Context, content string) {
	err := p.ch.Send(ctx, channel.OutgoingMessage{
		ChannelID: p.channelID,
		Content:   content,
	})
	if err != nil {
		p.logger.Warn("notification send failed",
			"job_id", p.jobID,
			"channel_id", p.channelID,
			"error", err)
		return
	}

	metric.NotificationsSent.Inc()
}

// RunUntilComplete polls until the job reaches a terminal status or ctx
// is cancelled. For completed jobs it fetches and returns the result
// document; for failed or cancelled jobs results are nil. The final
// snapshot is returned so callers can react to failures.
func (p *Poller) RunUntilComplete(ctx context.Context) (json.RawMessage, *harness.StatusSnapshot, error) {
	for {
		snapshot, done, err := p.PollOnce(ctx)

		var wait time.Duration
		switch {
		case err != nil:
			p.logger.Error("polling error", "job_id", p.jobID, "error", err)
			wait = p.errorBackoff
		case done:
			if snapshot.Status != "completed" {
				return nil, snapshot, nil
			}
			results, err := p.client.Results(ctx, p.jobID)
			if err != nil {
				return nil, snapshot, fmt.Errorf("fetching results: %w", err)
			}
			return results, snapshot, nil
		default:
			wait = p.pollInterval
		}

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}
