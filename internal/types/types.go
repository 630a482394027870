// Package types holds the wire- and domain-level types shared across the
// provider, router, loop, and federation packages. Keeping them in one
// package (instead of defining them in provider and re-importing) avoids
// import cycles now that the router needs both provider and loop types.
package types

import "time"

// ---------------------------------------------------------------------------
// Chat messages
// ---------------------------------------------------------------------------

// MessageRole identifies who authored a ChatMessage.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleError     MessageRole = "error"
)

// ChatMessage is one message in a conversation, with a timestamp so the
// agent loop and learning ledger can reason about latency and ordering.
type ChatMessage struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ---------------------------------------------------------------------------
// Model catalog
// ---------------------------------------------------------------------------

// ModelCapability flags a specific feature a model may support.
type ModelCapability string

const (
	CapToolUse          ModelCapability = "tool_use"
	CapNativeAgents     ModelCapability = "native_agents"
	CapNativeMultiAgent ModelCapability = "native_multi_agent"
	CapVision           ModelCapability = "vision"
	CapExtendedThinking ModelCapability = "extended_thinking"
	CapCodeExecution    ModelCapability = "code_execution"
	CapStructuredOutput ModelCapability = "structured_output"
	CapLongContext      ModelCapability = "long_context"
)

// ModelCapabilities is a set of ModelCapability flags. A plain map[K]struct{}
// gives us set semantics with JSON-friendly (de)serialization as an array.
type ModelCapabilities struct {
	caps map[ModelCapability]struct{}
}

// NewModelCapabilities builds a ModelCapabilities set from the given flags.
func NewModelCapabilities(caps ...ModelCapability) ModelCapabilities {
	m := make(map[ModelCapability]struct{}, len(caps))
	for _, c := range caps {
		m[c] = struct{}{}
	}
	return ModelCapabilities{caps: m}
}

// Has reports whether cap is present in the set.
func (m ModelCapabilities) Has(cap ModelCapability) bool {
	_, ok := m.caps[cap]
	return ok
}

// SupportsNativeAgents mirrors the original's convenience check: either
// single- or multi-agent native support counts.
func (m ModelCapabilities) SupportsNativeAgents() bool {
	return m.Has(CapNativeAgents) || m.Has(CapNativeMultiAgent)
}

// List returns the capabilities in the set (unordered).
func (m ModelCapabilities) List() []ModelCapability {
	out := make([]ModelCapability, 0, len(m.caps))
	for c := range m.caps {
		out = append(out, c)
	}
	return out
}

// MarshalJSON renders the set as a JSON array, matching the original's
// serde-derived array-of-strings shape.
func (m ModelCapabilities) MarshalJSON() ([]byte, error) {
	return marshalStringSlice(m.List())
}

// UnmarshalJSON accepts a JSON array of capability strings.
func (m *ModelCapabilities) UnmarshalJSON(data []byte) error {
	caps, err := unmarshalStringSlice[ModelCapability](data)
	if err != nil {
		return err
	}
	*m = NewModelCapabilities(caps...)
	return nil
}

// ModelTier buckets a model by relative cost, used by the router to pick
// a fallback chain and by catalog adapters to classify unpriced models.
type ModelTier string

const (
	TierFree    ModelTier = "free"
	TierBudget  ModelTier = "budget"
	TierMid     ModelTier = "mid"
	TierPremium ModelTier = "premium"
)

// ProviderType enumerates every backend this gateway knows how to speak to.
type ProviderType string

const (
	ProviderAnthropic    ProviderType = "anthropic"
	ProviderOpenAI       ProviderType = "openai"
	ProviderOpenRouter   ProviderType = "openrouter"
	ProviderGoogle       ProviderType = "google"
	ProviderGroq         ProviderType = "groq"
	ProviderLiteLLM      ProviderType = "litellm"
	ProviderHuggingFace  ProviderType = "hugging_face"
	ProviderOllama       ProviderType = "ollama"
	ProviderLMStudio     ProviderType = "lmstudio"
	ProviderGenericLocal ProviderType = "generic_local"
)

// ModelInfo describes one catalog entry: pricing, context window, and the
// capability set the router uses to decide if a model fits a task.
type ModelInfo struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Provider           string            `json:"provider"`
	ProviderType       ProviderType      `json:"provider_type"`
	Tier               ModelTier         `json:"tier"`
	ContextWindow      int               `json:"context_window"`
	InputPricePerMTok  float64           `json:"input_price_per_mtok"`
	OutputPricePerMTok float64           `json:"output_price_per_mtok"`
	Capabilities       ModelCapabilities `json:"capabilities"`
}

// ProviderConfig is the connection configuration for one backend.
type ProviderConfig struct {
	ProviderType ProviderType `koanf:"provider_type" json:"provider_type"`
	APIKey       string       `koanf:"api_key" json:"-"`
	BaseURL      string       `koanf:"base_url" json:"base_url"`
	Enabled      bool         `koanf:"enabled" json:"enabled"`
	Models       []string     `koanf:"models" json:"models"`
}

// ConnectivityState summarizes whether a provider is currently reachable.
// Nothing in this module sets or refreshes a ConnectivityState value; the
// router tracks availability per model id on its own (see internal/router).
type ConnectivityState string

const (
	ConnectivityUnknown   ConnectivityState = "unknown"
	ConnectivityOnline    ConnectivityState = "online"
	ConnectivityLocalOnly ConnectivityState = "local_only"
	ConnectivityOffline   ConnectivityState = "offline"
)

// ---------------------------------------------------------------------------
// Request / response
// ---------------------------------------------------------------------------

const DefaultMaxTokens = 4096

// ChatRequest is the internal representation of a chat completion request,
// translated by each provider adapter into that backend's wire format.
type ChatRequest struct {
	Model        string        `json:"model"`
	Messages     []ChatMessage `json:"messages"`
	Stream       bool          `json:"stream"`
	MaxTokens    int           `json:"max_tokens"`
	Temperature  *float32      `json:"temperature,omitempty"`
	SystemPrompt string        `json:"system_prompt,omitempty"`

	// TaskType and PreferredTier drive router selection (internal/router);
	// they are never sent upstream to a provider.
	TaskType      string    `json:"-"`
	PreferredTier ModelTier `json:"-"`
}

// EffectiveMaxTokens returns MaxTokens if set, else DefaultMaxTokens.
func (r *ChatRequest) EffectiveMaxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return DefaultMaxTokens
}

// Usage holds token counts, used for both cost calculation and metrics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FinishReason explains why a model stopped generating.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishError         FinishReason = "error"
)

// ChatResponse is the complete (non-streaming) result of a chat completion.
type ChatResponse struct {
	ID           string       `json:"id"`
	Content      string       `json:"content"`
	Model        string       `json:"model"`
	Usage        Usage        `json:"usage"`
	FinishReason FinishReason `json:"finish_reason"`
	Thinking     string       `json:"thinking,omitempty"`
}

// StreamChunk is one piece of a streaming response. Done is set on the
// final chunk, and Error is only ever populated there. Usage may also
// appear on an earlier chunk whose upstream frame carried it; the final
// chunk carries the last usage seen.
type StreamChunk struct {
	ID      string `json:"id,omitempty"`
	Model   string `json:"model,omitempty"`
	Delta   string `json:"delta,omitempty"`
	Done    bool   `json:"done"`
	Usage   *Usage `json:"usage,omitempty"`
	Error   error  `json:"-"`
}
