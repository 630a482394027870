// Package federation implements the LAN peer layer: node identity, UDP
// discovery, a typed envelope protocol, and the peer registry and message
// router that sit on top of it.
package federation

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PeerId uniquely identifies a node on the federation.
type PeerId string

// NewPeerId generates a fresh random peer id.
func NewPeerId() PeerId {
	return PeerId(uuid.NewString())
}

// defaultCapabilities lists what a freshly-generated node advertises.
var defaultCapabilities = []string{"agent_relay", "channel_sync", "fleet_learn"}

// NodeVersion is the software version string advertised in identities and
// announcements.
const NodeVersion = "0.1.0"

// NodeIdentity is the full identity of a Hive node on the network.
type NodeIdentity struct {
	PeerID       PeerId   `json:"peer_id"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

// GenerateIdentity creates a new identity with a fresh PeerId.
func GenerateIdentity(name string) NodeIdentity {
	return NodeIdentity{
		PeerID:       NewPeerId(),
		Name:         name,
		Version:      NodeVersion,
		Capabilities: append([]string(nil), defaultCapabilities...),
	}
}

// SaveToFile writes the identity as pretty-printed JSON, creating any
// missing parent directories first.
func (n NodeIdentity) SaveToFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadOrGenerateIdentity loads an identity from path, or generates and
// persists a new one if the file is missing or corrupt.
func LoadOrGenerateIdentity(log *zap.Logger, path, name string) NodeIdentity {
	if data, err := os.ReadFile(path); err == nil {
		var identity NodeIdentity
		if err := json.Unmarshal(data, &identity); err == nil {
			return identity
		} else {
			log.Warn("corrupt identity file, generating new", zap.Error(err))
		}
	}

	identity := GenerateIdentity(name)
	if err := identity.SaveToFile(path); err != nil {
		log.Warn("failed to persist new identity", zap.Error(err))
	}
	return identity
}
