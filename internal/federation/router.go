package federation

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MessageHandler processes an envelope and optionally returns a response
// envelope to send back to the sender.
type MessageHandler func(ctx context.Context, envelope Envelope) (*Envelope, error)

// MessageRouter dispatches incoming envelopes to the handler registered
// for their MessageKind, falling back to a default handler if one is set.
type MessageRouter struct {
	mu             sync.RWMutex
	handlers       map[string]MessageHandler
	defaultHandler MessageHandler
	log            *zap.Logger
}

// NewMessageRouter creates a router with no handlers registered.
func NewMessageRouter(log *zap.Logger) *MessageRouter {
	return &MessageRouter{handlers: make(map[string]MessageHandler), log: log}
}

// Register binds a handler to a specific message kind.
func (r *MessageRouter) Register(kind MessageKind, handler MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind.DispatchKey()] = handler
}

// SetDefaultHandler registers a fallback handler for unmatched kinds.
func (r *MessageRouter) SetDefaultHandler(handler MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultHandler = handler
}

// HasHandler reports whether a specific message kind has a registered
// handler (the default handler doesn't count).
func (r *MessageRouter) HasHandler(kind MessageKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[kind.DispatchKey()]
	return ok
}

// HandlerCount returns the number of specifically registered handlers.
func (r *MessageRouter) HandlerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Dispatch routes an envelope to its handler and returns whatever response
// the handler produces.
func (r *MessageRouter) Dispatch(ctx context.Context, envelope Envelope) (*Envelope, error) {
	key := envelope.Kind.DispatchKey()

	r.mu.RLock()
	handler, ok := r.handlers[key]
	fallback := r.defaultHandler
	r.mu.RUnlock()

	if ok {
		r.log.Debug("dispatching envelope", zap.String("kind", key), zap.String("id", envelope.ID))
		return handler(ctx, envelope)
	}
	if fallback != nil {
		r.log.Debug("using default handler", zap.String("kind", key), zap.String("id", envelope.ID))
		return fallback(ctx, envelope)
	}
	r.log.Warn("no handler for message kind", zap.String("kind", key))
	return nil, nil
}

// ---------------------------------------------------------------------------
// Built-in handler factories
// ---------------------------------------------------------------------------

// HelloHandler replies to Hello with a Welcome from ourPeerID.
func HelloHandler(ourPeerID PeerId) MessageHandler {
	return func(_ context.Context, envelope Envelope) (*Envelope, error) {
		from := envelope.From
		resp, err := NewEnvelope(ourPeerID, &from, MessageWelcome, map[string]string{"status": "accepted"})
		if err != nil {
			return nil, err
		}
		return &resp, nil
	}
}

// HeartbeatHandler replies to Heartbeat with a HeartbeatAck from
// ourPeerID.
func HeartbeatHandler(ourPeerID PeerId) MessageHandler {
	return func(_ context.Context, envelope Envelope) (*Envelope, error) {
		from := envelope.From
		resp, err := NewEnvelope(ourPeerID, &from, MessageHeartbeatAck, map[string]string{})
		if err != nil {
			return nil, err
		}
		return &resp, nil
	}
}

// GoodbyeHandler logs the disconnect and sends no response.
func GoodbyeHandler(log *zap.Logger) MessageHandler {
	return func(_ context.Context, envelope Envelope) (*Envelope, error) {
		log.Debug("peer said goodbye", zap.String("peer", string(envelope.From)))
		return nil, nil
	}
}
