package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/howard-nolan/hive/internal/loop"
)

// loopRegistry tracks in-flight HiveLoop instances by id, so the HTTP
// surface can create one, poll its status, and pause/resume it across
// multiple requests.
type loopRegistry struct {
	mu    sync.Mutex
	loops map[string]*loop.HiveLoop
}

func newLoopRegistry() *loopRegistry {
	return &loopRegistry{loops: make(map[string]*loop.HiveLoop)}
}

// Create starts a new loop with cfg and returns its generated id.
func (r *loopRegistry) Create(cfg loop.Config) (string, *loop.HiveLoop) {
	id := uuid.NewString()
	l := loop.New(cfg)
	l.Start()

	r.mu.Lock()
	r.loops[id] = l
	r.mu.Unlock()

	return id, l
}

// Get looks up a loop by id.
func (r *loopRegistry) Get(id string) (*loop.HiveLoop, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loops[id]
	return l, ok
}
