package job

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned by any lookup against an unknown or malformed job ID.
var ErrNotFound = errors.New("job: not found")

// Manager is the single source of truth for job status, logs, progress, and
// cancellation. Every mutator is serialized under one lock per manager (not
// per job) because each critical section is short; reads return deep copies.
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewManager returns an empty job registry.
func NewManager() *Manager {
	return &Manager{jobs: make(map[string]*Job)}
}

// Create registers a new queued job and returns its ID.
func (m *Manager) Create(settings Settings, inputPath, originalFilename string) string {
	j := newJob(settings, inputPath, originalFilename)

	m.mu.Lock()
	m.jobs[j.ID] = j
	m.mu.Unlock()

	return j.ID
}

// lookup resolves id to its live job, validating UUID-v4 shape first so a
// malformed ID never even reaches the map.
func (m *Manager) lookup(id string) (*Job, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

// Get returns a deep-copy snapshot of the job, or ErrNotFound.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return j.snapshot(), nil
}

// All returns deep-copy snapshots of every registered job, newest first.
func (m *Manager) All() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.snapshot())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

// UpdateStatus sets status and, when the new status is terminal, stamps
// CompletedAt. Terminal status is never revised: a second terminal
// transition is rejected rather than silently applied.
func (m *Manager) UpdateStatus(id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.lookup(id)
	if err != nil {
		return err
	}
	if j.Status.Terminal() {
		return fmt.Errorf("job %s: status %s is terminal, cannot set %s", id, j.Status, status)
	}

	j.Status = status
	j.UpdatedAt = time.Now()
	if status.Terminal() {
		j.CompletedAt = j.UpdatedAt
	}
	return nil
}

// SetStage records the pipeline stage the job has entered and resets its
// stage-local bookkeeping; cumulative progress is set separately via
// SetProgress once the stage commits output.
func (m *Manager) SetStage(id string, stage Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.lookup(id)
	if err != nil {
		return err
	}
	j.Stage = stage
	j.UpdatedAt = time.Now()
	return nil
}

// AppendLog appends a message to the job's bounded log buffer.
func (m *Manager) AppendLog(id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.lookup(id)
	if err != nil {
		return err
	}
	j.appendLog(message)
	j.UpdatedAt = time.Now()
	return nil
}

// SetProgress sets cumulative progress. Progress is monotonically
// non-decreasing: a lower value than the job already reports is ignored
// rather than applied, matching the invariant that progress never regresses.
func (m *Manager) SetProgress(id string, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.lookup(id)
	if err != nil {
		return err
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > j.Progress {
		j.Progress = percent
		j.UpdatedAt = time.Now()
	}
	return nil
}

// SetOutput records the final output path. Per the invariant that
// output_file is set iff status is completed, callers must pair this with
// UpdateStatus(id, StatusCompleted) themselves.
func (m *Manager) SetOutput(id, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.lookup(id)
	if err != nil {
		return err
	}
	j.OutputPath = path
	j.UpdatedAt = time.Now()
	return nil
}

// SetQualityReport attaches the evaluator's verdict to the job.
func (m *Manager) SetQualityReport(id string, report *QualityReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.lookup(id)
	if err != nil {
		return err
	}
	j.QualityReport = report
	j.UpdatedAt = time.Now()
	return nil
}

// Cancel marks a queued or processing job as cancelled and fires its
// context. It is idempotent: cancelling an already-terminal job is a no-op
// that reports false.
func (m *Manager) Cancel(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.lookup(id)
	if err != nil {
		return false, err
	}
	if j.Status.Terminal() {
		return false, nil
	}

	j.cancel()
	j.Status = StatusCancelled
	j.UpdatedAt = time.Now()
	j.CompletedAt = j.UpdatedAt
	return true, nil
}

// IsCancelled reports whether cancellation has been requested. Workers poll
// this at every defined checkpoint; it never itself stops work.
func (m *Manager) IsCancelled(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, err := m.lookup(id)
	if err != nil {
		return false
	}
	select {
	case <-j.ctx.Done():
		return true
	default:
		return j.Status == StatusCancelled
	}
}

// Context returns the job's cancellation context for direct use as a
// suspension-point parent (network calls, subprocess calls).
func (m *Manager) Context(id string) (context.Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return j.ctx, nil
}

// Purge removes every job in a terminal state older than the given window,
// a periodic cleanup of completed/failed/cancelled jobs. It returns the
// count removed.
func (m *Manager) Purge(olderThan time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	n := 0
	for id, j := range m.jobs {
		if j.Status.Terminal() && j.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			n++
		}
	}
	return n
}
