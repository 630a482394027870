package federation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PeerState is the connection state of a peer.
type PeerState string

const (
	PeerDiscovered   PeerState = "discovered"
	PeerConnecting   PeerState = "connecting"
	PeerConnected    PeerState = "connected"
	PeerDisconnected PeerState = "disconnected"
	PeerBanned       PeerState = "banned"
)

// PeerInfo is everything known about one peer.
type PeerInfo struct {
	ID          PeerId       `json:"id"`
	Identity    NodeIdentity `json:"identity"`
	Addr        string       `json:"addr"`
	State       PeerState    `json:"state"`
	ConnectedAt *time.Time   `json:"connected_at,omitempty"`
	LastSeen    time.Time    `json:"last_seen"`
	LatencyMs   *int64       `json:"latency_ms,omitempty"`
}

// PeerRegistry tracks every peer this node has ever discovered or
// connected to.
type PeerRegistry struct {
	mu    sync.Mutex
	peers map[PeerId]PeerInfo
}

// NewPeerRegistry creates an empty registry.
func NewPeerRegistry() *PeerRegistry {
	return &PeerRegistry{peers: make(map[PeerId]PeerInfo)}
}

// AddPeer adds or overwrites a peer entry.
func (r *PeerRegistry) AddPeer(info PeerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[info.ID] = info
}

// RemovePeer deletes a peer by id, returning the removed entry if present.
func (r *PeerRegistry) RemovePeer(id PeerId) (PeerInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.peers[id]
	if ok {
		delete(r.peers, id)
	}
	return info, ok
}

// GetPeer looks up a peer by id.
func (r *PeerRegistry) GetPeer(id PeerId) (PeerInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.peers[id]
	return info, ok
}

// ListConnected returns every peer currently in the Connected state.
func (r *PeerRegistry) ListConnected() []PeerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PeerInfo
	for _, p := range r.peers {
		if p.State == PeerConnected {
			out = append(out, p)
		}
	}
	return out
}

// ListAll returns every known peer regardless of state.
func (r *PeerRegistry) ListAll() []PeerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PeerInfo, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// ConnectedCount returns the number of peers in the Connected state.
func (r *PeerRegistry) ConnectedCount() int {
	return len(r.ListConnected())
}

// TotalCount returns the total number of known peers.
func (r *PeerRegistry) TotalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// UpdateState transitions a peer to a new state. ConnectedAt is stamped
// only on the transition into Connected, never refreshed on repeat calls.
func (r *PeerRegistry) UpdateState(id PeerId, state PeerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	peer, ok := r.peers[id]
	if !ok {
		return
	}
	if state == PeerConnected && peer.State != PeerConnected {
		now := time.Now()
		peer.ConnectedAt = &now
	}
	peer.State = state
	r.peers[id] = peer
}

// UpdateLastSeen refreshes the last-seen timestamp for a peer.
func (r *PeerRegistry) UpdateLastSeen(id PeerId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	peer, ok := r.peers[id]
	if !ok {
		return
	}
	peer.LastSeen = time.Now()
	r.peers[id] = peer
}

// UpdateLatency records the latest heartbeat round-trip latency.
func (r *PeerRegistry) UpdateLatency(id PeerId, latencyMs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	peer, ok := r.peers[id]
	if !ok {
		return
	}
	peer.LatencyMs = &latencyMs
	r.peers[id] = peer
}

// registrySnapshot is the on-disk shape of a PeerRegistry.
type registrySnapshot struct {
	Peers map[PeerId]PeerInfo `json:"peers"`
}

// SaveToFile persists the registry as pretty-printed JSON.
func (r *PeerRegistry) SaveToFile(path string) error {
	r.mu.Lock()
	snapshot := registrySnapshot{Peers: make(map[PeerId]PeerInfo, len(r.peers))}
	for id, p := range r.peers {
		snapshot.Peers[id] = p
	}
	r.mu.Unlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadPeerRegistryOrDefault loads a registry from path, resetting any
// Connected or Connecting peer to Disconnected since a fresh process has
// no live sockets yet. Returns an empty registry if the file is absent
// or corrupt.
func LoadPeerRegistryOrDefault(log *zap.Logger, path string) *PeerRegistry {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewPeerRegistry()
	}

	var snapshot registrySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		log.Warn("corrupt peer registry file", zap.Error(err))
		return NewPeerRegistry()
	}

	registry := NewPeerRegistry()
	for id, peer := range snapshot.Peers {
		if peer.State == PeerConnected || peer.State == PeerConnecting {
			peer.State = PeerDisconnected
		}
		registry.peers[id] = peer
	}
	return registry
}
