package federation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageKind is the kind of payload carried in an Envelope.
type MessageKind string

const (
	MessageHello        MessageKind = "hello"
	MessageWelcome      MessageKind = "welcome"
	MessageGoodbye      MessageKind = "goodbye"
	MessageHeartbeat    MessageKind = "heartbeat"
	MessageHeartbeatAck MessageKind = "heartbeat_ack"
	MessageTaskRequest  MessageKind = "task_request"
	MessageTaskResult   MessageKind = "task_result"
	MessageAgentRelay   MessageKind = "agent_relay"
	MessageChannelSync  MessageKind = "channel_sync"
	MessageFleetLearn   MessageKind = "fleet_learn"
	MessageStateSync    MessageKind = "state_sync"
)

// customMessagePrefix marks a MessageKind value as a dispatch key for a
// user-defined extension rather than one of the built-in kinds above.
const customMessagePrefix = "custom:"

// CustomMessageKind builds an extension MessageKind, dispatched under
// "custom:<name>".
func CustomMessageKind(name string) MessageKind {
	return MessageKind(customMessagePrefix + name)
}

// DispatchKey returns the string key a MessageRouter uses to find a
// handler for this kind. For built-in kinds it's just the kind itself;
// it exists mainly so router lookups and custom kinds share one notion of
// identity.
func (k MessageKind) DispatchKey() string {
	return string(k)
}

// Envelope is a network message carrying a typed, arbitrary JSON payload.
type Envelope struct {
	ID        string          `json:"id"`
	From      PeerId          `json:"from"`
	To        *PeerId         `json:"to,omitempty"`
	Kind      MessageKind     `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope builds an envelope addressed to a specific peer.
func NewEnvelope(from PeerId, to *PeerId, kind MessageKind, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Kind:      kind,
		Payload:   raw,
		Timestamp: time.Now(),
	}, nil
}

// BroadcastEnvelope builds an envelope with no specific recipient — To is
// nil, meaning "every connected peer".
func BroadcastEnvelope(from PeerId, kind MessageKind, payload any) (Envelope, error) {
	return NewEnvelope(from, nil, kind, payload)
}

// ToJSON serializes the envelope for transmission over the wire.
func (e Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EnvelopeFromJSON deserializes an envelope received over the wire.
func EnvelopeFromJSON(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}
