package federation

import (
	"sync"
	"time"
)

// AgentHeartbeat is the last known liveness signal from one agent.
type AgentHeartbeat struct {
	AgentID     string    `json:"agent_id"`
	LastBeat    time.Time `json:"last_beat"`
	Status      string    `json:"status"`
	CurrentTask *string   `json:"current_task,omitempty"`
}

// HeartbeatService tracks liveness for every agent running on this node
// (or relayed from a peer), declaring an agent dead once it has missed
// heartbeats for longer than timeoutSecs.
type HeartbeatService struct {
	mu          sync.Mutex
	heartbeats  map[string]AgentHeartbeat
	timeoutSecs uint64
}

// NewHeartbeatService creates a service with no agents tracked yet.
func NewHeartbeatService(timeoutSecs uint64) *HeartbeatService {
	return &HeartbeatService{
		heartbeats:  make(map[string]AgentHeartbeat),
		timeoutSecs: timeoutSecs,
	}
}

// Beat records a liveness signal for agentID, overwriting any prior
// record.
func (s *HeartbeatService) Beat(agentID, status string, currentTask *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats[agentID] = AgentHeartbeat{
		AgentID:     agentID,
		LastBeat:    time.Now(),
		Status:      status,
		CurrentTask: currentTask,
	}
}

// IsAlive reports whether agentID has beaten within timeoutSecs. An
// unknown agent is never alive.
func (s *HeartbeatService) IsAlive(agentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	hb, ok := s.heartbeats[agentID]
	if !ok {
		return false
	}
	return time.Since(hb.LastBeat) < time.Duration(s.timeoutSecs)*time.Second
}

// DeadAgents returns the ids of every tracked agent whose last beat is
// older than timeoutSecs.
func (s *HeartbeatService) DeadAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dead []string
	cutoff := time.Duration(s.timeoutSecs) * time.Second
	for id, hb := range s.heartbeats {
		if time.Since(hb.LastBeat) >= cutoff {
			dead = append(dead, id)
		}
	}
	return dead
}

// AllHeartbeats returns every tracked heartbeat record.
func (s *HeartbeatService) AllHeartbeats() []AgentHeartbeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AgentHeartbeat, 0, len(s.heartbeats))
	for _, hb := range s.heartbeats {
		out = append(out, hb)
	}
	return out
}

// Remove deletes an agent's heartbeat record. A no-op if the agent isn't
// tracked.
func (s *HeartbeatService) Remove(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.heartbeats, agentID)
}

// Count returns the number of agents currently tracked.
func (s *HeartbeatService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heartbeats)
}

// TimeoutSecs returns the configured liveness timeout.
func (s *HeartbeatService) TimeoutSecs() uint64 {
	return s.timeoutSecs
}
