package orchestrator

import (
	"context"
	"log/slog"
	"sync"
)

// Monitor tracks running job watchers. Each watcher runs in its own
// goroutine with a cancellable context so individual jobs can be stopped
// without affecting the rest.
type Monitor struct {
	logger *slog.Logger

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu       sync.Mutex
	watchers map[string]*watcher
	wg       sync.WaitGroup
}

type watcher struct {
	cancel context.CancelFunc
}

// NewMonitor creates a monitor. StopAll must be called on shutdown to
// cancel outstanding watchers and wait for them to exit.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		logger:     logger,
		rootCtx:    ctx,
		rootCancel: cancel,
		watchers:   make(map[string]*watcher),
	}
}

// Launch starts fn in a goroutine under a job-scoped context. If a
// watcher is already registered for jobID it is cancelled first; a job
// has at most one watcher.
func (m *Monitor) Launch(jobID string, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(m.rootCtx)
	w := &watcher{cancel: cancel}

	m.mu.Lock()
	if prev, ok := m.watchers[jobID]; ok {
		prev.cancel()
	}
	m.watchers[jobID] = w
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			cancel()
			m.mu.Lock()
			// Only deregister our own entry; a relaunch may have
			// replaced it already.
			if m.watchers[jobID] == w {
				delete(m.watchers, jobID)
			}
			m.mu.Unlock()
		}()

		m.logger.Debug("job watcher started", "job_id", jobID)
		fn(ctx)
		m.logger.Debug("job watcher finished", "job_id", jobID)
	}()
}

// Cancel stops the watcher for jobID. It reports whether a watcher was
// registered.
func (m *Monitor) Cancel(jobID string) bool {
	m.mu.Lock()
	w, ok := m.watchers[jobID]
	m.mu.Unlock()

	if ok {
		w.cancel()
	}
	return ok
}

// Active returns the number of registered watchers.
func (m *Monitor) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

// StopAll cancels every watcher and blocks until all goroutines exit.
func (m *Monitor) StopAll() {
	m.rootCancel()
	m.wg.Wait()
}
