package federation

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func makeTestEnvelope(kind MessageKind) Envelope {
	to := PeerId("test-receiver")
	env, _ := NewEnvelope(PeerId("test-sender"), &to, kind, map[string]string{})
	return env
}

func TestRegisterAndDispatch(t *testing.T) {
	router := NewMessageRouter(zap.NewNop())

	handler := func(_ context.Context, _ Envelope) (*Envelope, error) {
		resp, err := BroadcastEnvelope(PeerId("responder"), MessageWelcome, map[string]bool{"handled": true})
		return &resp, err
	}

	router.Register(MessageHello, handler)
	if !router.HasHandler(MessageHello) {
		t.Fatal("expected handler to be registered")
	}
	if router.HandlerCount() != 1 {
		t.Fatalf("got handler count %d, want 1", router.HandlerCount())
	}

	resp, err := router.Dispatch(context.Background(), makeTestEnvelope(MessageHello))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a response")
	}
	if resp.Kind != MessageWelcome {
		t.Fatalf("got kind %v, want Welcome", resp.Kind)
	}
}

func TestUnhandledMessage(t *testing.T) {
	router := NewMessageRouter(zap.NewNop())
	resp, err := router.Dispatch(context.Background(), makeTestEnvelope(MessageTaskRequest))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if resp != nil {
		t.Fatal("expected no response for unhandled message")
	}
}

func TestDefaultHandler(t *testing.T) {
	router := NewMessageRouter(zap.NewNop())

	router.SetDefaultHandler(func(_ context.Context, env Envelope) (*Envelope, error) {
		from := env.From
		resp, err := NewEnvelope(PeerId("default"), &from, CustomMessageKind("default_response"), map[string]bool{"fallback": true})
		return &resp, err
	})

	resp, err := router.Dispatch(context.Background(), makeTestEnvelope(MessageTaskRequest))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a default response")
	}
	if resp.Kind != CustomMessageKind("default_response") {
		t.Fatalf("got kind %v, want custom:default_response", resp.Kind)
	}
}

func TestHelloHandler(t *testing.T) {
	handler := HelloHandler(PeerId("our-node"))
	resp, err := handler(context.Background(), makeTestEnvelope(MessageHello))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a response")
	}
	if resp.Kind != MessageWelcome {
		t.Fatalf("got kind %v, want Welcome", resp.Kind)
	}
	if resp.From != PeerId("our-node") {
		t.Fatalf("got from %v, want our-node", resp.From)
	}
}

func TestHeartbeatHandler(t *testing.T) {
	handler := HeartbeatHandler(PeerId("our-node"))
	resp, err := handler(context.Background(), makeTestEnvelope(MessageHeartbeat))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if resp == nil || resp.Kind != MessageHeartbeatAck {
		t.Fatalf("got %v, want HeartbeatAck", resp)
	}
}

func TestGoodbyeHandler(t *testing.T) {
	handler := GoodbyeHandler(zap.NewNop())
	resp, err := handler(context.Background(), makeTestEnvelope(MessageGoodbye))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if resp != nil {
		t.Fatal("expected no response for goodbye")
	}
}
