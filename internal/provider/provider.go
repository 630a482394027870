// Package provider defines the Provider interface and the LLM backend
// adapters (Anthropic, Google, OpenAI, Groq, HuggingFace, OpenRouter).
//
// Every backend implements Provider. The rest of the gateway — handlers,
// router, catalog cache — works with these unified types, so it never
// needs to know which provider is actually handling a request.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/howard-nolan/hive/internal/types"
)

// Provider is the interface every LLM backend must satisfy.
type Provider interface {
	// Name returns the provider identifier, e.g. "google" or "anthropic".
	Name() string

	// ProviderType returns the typed enum form of Name.
	ProviderType() types.ProviderType

	// IsAvailable does a cheap reachability check (used by the /health
	// endpoint; the router keeps its own per-model availability map).
	IsAvailable(ctx context.Context) bool

	// ListModels returns the provider's model catalog, cached per the
	// 300-second TTL described in SPEC_FULL.md §4.A.
	ListModels(ctx context.Context) ([]types.ModelInfo, error)

	// ChatCompletion sends a request and returns the complete response.
	ChatCompletion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error)

	// ChatCompletionStream sends a request and returns a channel that
	// delivers response chunks as they arrive. The channel is closed
	// when the stream ends (successfully or with a final error chunk).
	ChatCompletionStream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, error)
}

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

// Error is a classified provider failure. The router inspects Kind to
// decide whether to retry the next fallback or stop immediately.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// ErrorKind classifies a provider failure for router fallback decisions.
type ErrorKind string

const (
	ErrNetwork         ErrorKind = "network"
	ErrRateLimit       ErrorKind = "rate_limit"
	ErrInvalidKey      ErrorKind = "invalid_key"
	ErrModelUnavailable ErrorKind = "model_unavailable"
	ErrTimeout         ErrorKind = "timeout"
	ErrBudgetExceeded  ErrorKind = "budget_exceeded"
	ErrOther           ErrorKind = "other"
)

// NewError constructs a classified provider Error.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Unavailable reports whether err means modelID should stop being
// considered for future requests entirely, as distinct from Terminal
// (which asks whether this whole routing attempt should abort right
// now). An invalid key or a provider reporting the model itself is gone
// won't resolve on the next request, so there is no point trying again;
// a rate limit is transient and the model stays available.
func Unavailable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == ErrInvalidKey || pe.Kind == ErrModelUnavailable
	}
	return false
}

// Terminal reports whether err should abort the whole routing attempt
// immediately rather than falling back to the next candidate in the chain.
func Terminal(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == ErrBudgetExceeded
	}
	return false
}
