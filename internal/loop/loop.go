// Package loop implements HiveLoop, the autonomous iteration controller
// that lets an agent run unattended within iteration, cost, and time
// ceilings, with pause/resume and checkpoint/restore support.
package loop

import (
	"strings"
	"time"
)

// Status is the state of an autonomous loop.
type Status string

const (
	StatusRunning               Status = "running"
	StatusPaused                Status = "paused"
	StatusCompleted             Status = "completed"
	StatusCostLimitReached      Status = "cost_limit_reached"
	StatusTimeLimitReached      Status = "time_limit_reached"
	StatusIterationLimitReached Status = "iteration_limit_reached"
	StatusFailed                Status = "failed"
)

// Config configures the ceilings and completion detection of a HiveLoop.
type Config struct {
	MaxIterations     int
	CostLimitUSD       float64
	TimeLimit          time.Duration
	CompletionPhrases []string
}

// DefaultConfig mirrors the autonomous loop defaults: 20 iterations, a
// $2 cost ceiling, and a 10 minute wall-clock budget.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 20,
		CostLimitUSD:  2.0,
		TimeLimit:     10 * time.Minute,
		CompletionPhrases: []string{
			"task complete",
			"all done",
			"finished",
			"implementation complete",
		},
	}
}

// Checkpoint captures enough of a HiveLoop's state to persist and later
// restore it. ContextMessages is always 0 — the loop doesn't retain
// conversation history across a checkpoint/restore cycle, a known
// limitation carried over unchanged.
type Checkpoint struct {
	Iteration       int
	TotalCost       float64
	LastOutput      string
	ContextMessages int
}

// HiveLoop tracks the state of a single autonomous iteration loop.
type HiveLoop struct {
	Config     Config
	Status     Status
	Iteration  int
	TotalCost  float64
	LastOutput string

	startedAt time.Time
	started   bool
}

// New creates a HiveLoop in the Running state, not yet started.
func New(cfg Config) *HiveLoop {
	return &HiveLoop{Config: cfg, Status: StatusRunning}
}

// Start arms the loop's wall-clock timer.
func (l *HiveLoop) Start() {
	l.startedAt = time.Now()
	l.started = true
	l.Status = StatusRunning
}

// ShouldContinue reports whether the loop is still eligible to run another
// iteration: it must be Running and under every configured ceiling.
func (l *HiveLoop) ShouldContinue() bool {
	if l.Status != StatusRunning {
		return false
	}
	if l.Iteration >= l.Config.MaxIterations {
		return false
	}
	if l.TotalCost >= l.Config.CostLimitUSD {
		return false
	}
	if l.started && time.Since(l.startedAt) >= l.Config.TimeLimit {
		return false
	}
	return true
}

// RecordIteration records one completed iteration's output and cost, and
// returns the loop's resulting status. Completion-phrase detection always
// runs before the limit checks: an iteration that both finishes the task
// and exhausts a limit is reported as Completed, not limit-reached.
func (l *HiveLoop) RecordIteration(output string, cost float64) Status {
	l.Iteration++
	l.TotalCost += cost
	l.LastOutput = output

	lower := strings.ToLower(output)
	for _, phrase := range l.Config.CompletionPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			l.Status = StatusCompleted
			return l.Status
		}
	}

	switch {
	case l.Iteration >= l.Config.MaxIterations:
		l.Status = StatusIterationLimitReached
	case l.TotalCost >= l.Config.CostLimitUSD:
		l.Status = StatusCostLimitReached
	case l.started && time.Since(l.startedAt) >= l.Config.TimeLimit:
		l.Status = StatusTimeLimitReached
	}

	return l.Status
}

// Pause transitions a Running loop to Paused; any other state is a no-op.
func (l *HiveLoop) Pause() {
	if l.Status == StatusRunning {
		l.Status = StatusPaused
	}
}

// Resume transitions a Paused loop back to Running; any other state is a
// no-op.
func (l *HiveLoop) Resume() {
	if l.Status == StatusPaused {
		l.Status = StatusRunning
	}
}

// Checkpoint snapshots the loop's progress for persistence.
func (l *HiveLoop) Checkpoint() Checkpoint {
	return Checkpoint{
		Iteration:       l.Iteration,
		TotalCost:       l.TotalCost,
		LastOutput:      l.LastOutput,
		ContextMessages: 0,
	}
}

// Restore loads a previously-saved checkpoint. The loop always comes back
// Paused — the caller decides when to Resume it.
func (l *HiveLoop) Restore(cp Checkpoint) {
	l.Iteration = cp.Iteration
	l.TotalCost = cp.TotalCost
	l.LastOutput = cp.LastOutput
	l.Status = StatusPaused
}
