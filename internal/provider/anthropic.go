package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/howard-nolan/hive/internal/stream"
	"github.com/howard-nolan/hive/internal/types"
)

// anthropicAPIVersion pins the Messages API behavior Anthropic expects on
// every request, via a date-based header rather than a versioned path.
const anthropicAPIVersion = "2023-06-01"

// AnthropicProvider implements Provider for Anthropic's Messages API.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   catalogCache
}

// NewAnthropicProvider creates an AnthropicProvider ready to make API calls.
func NewAnthropicProvider(apiKey, baseURL string, client *http.Client) *AnthropicProvider {
	return &AnthropicProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (a *AnthropicProvider) Name() string                    { return "anthropic" }
func (a *AnthropicProvider) ProviderType() types.ProviderType { return types.ProviderAnthropic }

func (a *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	_, err := a.ListModels(ctx)
	return err == nil
}

// InvalidateCatalog clears the cached model catalog, e.g. after the API
// key changes.
func (a *AnthropicProvider) InvalidateCatalog() { a.cache.invalidate() }

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

type anthropicModelsResponse struct {
	Data []anthropicCatalogModel `json:"data"`
}

type anthropicCatalogModel struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// ListModels fetches the Anthropic model catalog, filtered to ids
// containing "claude" — a known limitation carried over unchanged from
// the original implementation: Anthropic's /v1/models endpoint has never
// been observed to return a non-Claude id, so the filter is harmless in
// practice, but it would silently drop a future non-Claude model.
func (a *AnthropicProvider) ListModels(ctx context.Context) ([]types.ModelInfo, error) {
	if cached, ok := a.cache.get(); ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/models", a.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "anthropic models request failed", err)
	}
	defer httpResp.Body.Close()

	if err := checkAnthropicStatus(httpResp); err != nil {
		return nil, err
	}

	var body anthropicModelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding anthropic models response: %w", err)
	}

	models := make([]types.ModelInfo, 0, len(body.Data))
	for _, m := range body.Data {
		if !strings.Contains(m.ID, "claude") {
			continue
		}
		if known, ok := lookupRegistry(m.ID); ok {
			models = append(models, known)
			continue
		}
		name := m.DisplayName
		if name == "" {
			name = m.ID
		}
		models = append(models, types.ModelInfo{
			ID: m.ID, Name: name,
			Provider: "anthropic", ProviderType: types.ProviderAnthropic,
			Tier: types.TierMid, ContextWindow: 200_000,
			InputPricePerMTok: 3.0, OutputPricePerMTok: 15.0,
		})
	}

	a.cache.set(models)
	return models, nil
}

func checkAnthropicStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	kind := ErrOther
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrInvalidKey
	case http.StatusTooManyRequests:
		kind = ErrRateLimit
	case http.StatusNotFound:
		kind = ErrModelUnavailable
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		kind = ErrTimeout
	}
	var errBody map[string]any
	json.NewDecoder(resp.Body).Decode(&errBody)
	return NewError(kind, fmt.Sprintf("anthropic API error (status %d): %v", resp.StatusCode, errBody), nil)
}

// ---------------------------------------------------------------------------
// Wire request/response types
// ---------------------------------------------------------------------------

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Content    []anthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      anthropicUsage          `json:"usage"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// anthropicStreamEvent is a wide wrapper covering every named event shape
// Anthropic's SSE stream emits; unused fields stay at their zero value for
// any given event type. See message_start/content_block_delta/
// message_delta/message_stop below.
type anthropicStreamEvent struct {
	Type    string                 `json:"type"`
	Message *anthropicEventMessage `json:"message,omitempty"`
	Delta   *anthropicEventDelta   `json:"delta,omitempty"`
	Usage   *anthropicUsage        `json:"usage,omitempty"`
}

type anthropicEventMessage struct {
	ID    string         `json:"id"`
	Model string         `json:"model"`
	Usage anthropicUsage `json:"usage"`
}

type anthropicEventDelta struct {
	Type       string `json:"type,omitempty"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

const anthropicDefaultMaxTokens = 1024

func toAnthropicRequest(req *types.ChatRequest) *anthropicRequest {
	ar := &anthropicRequest{Model: req.Model, MaxTokens: req.EffectiveMaxTokens()}
	if ar.MaxTokens == types.DefaultMaxTokens {
		ar.MaxTokens = anthropicDefaultMaxTokens
	}

	var systemParts []string
	if req.SystemPrompt != "" {
		systemParts = append(systemParts, req.SystemPrompt)
	}
	for _, msg := range req.Messages {
		if msg.Role == types.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		ar.Messages = append(ar.Messages, anthropicMessage{Role: string(msg.Role), Content: msg.Content})
	}
	if len(systemParts) > 0 {
		ar.System = strings.Join(systemParts, "\n")
	}
	return ar
}

// ---------------------------------------------------------------------------
// Non-streaming
// ---------------------------------------------------------------------------

func (a *AnthropicProvider) ChatCompletion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	anthropicReq := toAnthropicRequest(req)

	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/messages", a.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "sending request to anthropic", err)
	}
	defer httpResp.Body.Close()

	if err := checkAnthropicStatus(httpResp); err != nil {
		return nil, err
	}

	var anthropicResp anthropicResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&anthropicResp); err != nil {
		return nil, fmt.Errorf("decoding anthropic response: %w", err)
	}

	var text string
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	return &types.ChatResponse{
		ID: anthropicResp.ID, Model: anthropicResp.Model, Content: text,
		FinishReason: mapAnthropicStopReason(anthropicResp.StopReason),
		Usage: types.Usage{
			PromptTokens:     anthropicResp.Usage.InputTokens,
			CompletionTokens: anthropicResp.Usage.OutputTokens,
			TotalTokens:      anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens,
		},
	}, nil
}

func mapAnthropicStopReason(reason string) types.FinishReason {
	switch reason {
	case "max_tokens":
		return types.FinishLength
	case "":
		return types.FinishStop
	default:
		return types.FinishStop
	}
}

// ---------------------------------------------------------------------------
// Streaming
// ---------------------------------------------------------------------------

func (a *AnthropicProvider) ChatCompletionStream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, error) {
	anthropicReq := toAnthropicRequest(req)
	anthropicReq.Stream = true

	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/messages", a.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "sending request to anthropic", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		return nil, checkAnthropicStatus(httpResp)
	}

	// respID/model/tokens accumulate across named events: message_start
	// carries the id/model/input tokens, message_delta carries output
	// tokens near the end, and message_stop is the terminal signal — the
	// decoder closure below threads them through each call.
	var respID, model string
	var inputTokens, outputTokens int

	decode := func(payload string) ([]types.StreamChunk, bool, error) {
		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, false, err
		}

		switch event.Type {
		case "message_start":
			if event.Message != nil {
				respID = event.Message.ID
				model = event.Message.Model
				inputTokens = event.Message.Usage.InputTokens
			}
			return nil, true, nil
		case "content_block_delta":
			if event.Delta == nil {
				return nil, true, nil
			}
			return []types.StreamChunk{{ID: respID, Model: model, Delta: event.Delta.Text}}, true, nil
		case "message_delta":
			if event.Usage != nil {
				outputTokens = event.Usage.OutputTokens
			}
			return nil, true, nil
		case "message_stop":
			return []types.StreamChunk{{
				ID: respID, Model: model, Done: true,
				Usage: &types.Usage{
					PromptTokens:     inputTokens,
					CompletionTokens: outputTokens,
					TotalTokens:      inputTokens + outputTokens,
				},
			}}, false, nil
		default:
			// content_block_start, content_block_stop, ping — no data we need.
			return nil, true, nil
		}
	}

	return stream.Drive(ctx, httpResp.Body, decode), nil
}
