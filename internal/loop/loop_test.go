package loop

import (
	"testing"
	"time"
)

func TestBasicLoop(t *testing.T) {
	l := New(DefaultConfig())
	l.Start()

	if !l.ShouldContinue() {
		t.Fatal("expected fresh loop to continue")
	}
	if l.Iteration != 0 {
		t.Fatalf("got iteration %d, want 0", l.Iteration)
	}
}

func TestIterationTracking(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 3
	l := New(cfg)
	l.Start()

	if s := l.RecordIteration("step 1", 0.01); s != StatusRunning {
		t.Fatalf("got %v, want Running", s)
	}
	if s := l.RecordIteration("step 2", 0.01); s != StatusRunning {
		t.Fatalf("got %v, want Running", s)
	}
	if s := l.RecordIteration("step 3", 0.01); s != StatusIterationLimitReached {
		t.Fatalf("got %v, want IterationLimitReached", s)
	}
	if l.ShouldContinue() {
		t.Fatal("expected loop to stop after hitting iteration limit")
	}
}

func TestCompletionDetection(t *testing.T) {
	l := New(DefaultConfig())
	l.Start()

	status := l.RecordIteration("I have finished the task. Task complete.", 0.01)
	if status != StatusCompleted {
		t.Fatalf("got %v, want Completed", status)
	}
}

func TestCompletionDetectionTakesPrecedenceOverLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 1
	l := New(cfg)
	l.Start()

	status := l.RecordIteration("all done", 0.01)
	if status != StatusCompleted {
		t.Fatalf("got %v, want Completed even though the iteration limit was also hit", status)
	}
}

func TestCostLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CostLimitUSD = 0.05
	l := New(cfg)
	l.Start()

	l.RecordIteration("step 1", 0.03)
	status := l.RecordIteration("step 2", 0.03)
	if status != StatusCostLimitReached {
		t.Fatalf("got %v, want CostLimitReached", status)
	}
}

func TestTimeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeLimit = 10 * time.Millisecond
	l := New(cfg)
	l.Start()

	time.Sleep(15 * time.Millisecond)
	status := l.RecordIteration("still working", 0.0)
	if status != StatusTimeLimitReached {
		t.Fatalf("got %v, want TimeLimitReached", status)
	}
}

func TestPauseResume(t *testing.T) {
	l := New(DefaultConfig())
	l.Start()

	if !l.ShouldContinue() {
		t.Fatal("expected fresh loop to continue")
	}

	l.Pause()
	if l.ShouldContinue() {
		t.Fatal("expected paused loop to not continue")
	}

	l.Resume()
	if !l.ShouldContinue() {
		t.Fatal("expected resumed loop to continue")
	}
}

func TestPauseIsNoopWhenNotRunning(t *testing.T) {
	l := New(DefaultConfig())
	l.Start()
	l.Status = StatusCompleted

	l.Pause()
	if l.Status != StatusCompleted {
		t.Fatalf("got %v, want Completed unchanged", l.Status)
	}
}

func TestCheckpointRestore(t *testing.T) {
	l := New(DefaultConfig())
	l.Start()
	l.RecordIteration("first", 0.05)
	l.RecordIteration("second", 0.03)

	cp := l.Checkpoint()
	if cp.Iteration != 2 {
		t.Fatalf("got iteration %d, want 2", cp.Iteration)
	}
	if diff := cp.TotalCost - 0.08; diff < -0.001 || diff > 0.001 {
		t.Fatalf("got total cost %v, want ~0.08", cp.TotalCost)
	}
	if cp.ContextMessages != 0 {
		t.Fatalf("got context messages %d, want 0", cp.ContextMessages)
	}

	newLoop := New(DefaultConfig())
	newLoop.Restore(cp)
	if newLoop.Iteration != 2 {
		t.Fatalf("got iteration %d, want 2", newLoop.Iteration)
	}
	if newLoop.Status != StatusPaused {
		t.Fatalf("got %v, want Paused", newLoop.Status)
	}
}
