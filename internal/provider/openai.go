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

// OpenAIProvider implements Provider for OpenAI's chat completions API.
// Its wire format is what the gateway's own external HTTP surface mirrors,
// so translation here is closer to identity than Anthropic's or Google's.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   catalogCache
}

func NewOpenAIProvider(apiKey, baseURL string, client *http.Client) *OpenAIProvider {
	return &OpenAIProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (o *OpenAIProvider) Name() string                    { return "openai" }
func (o *OpenAIProvider) ProviderType() types.ProviderType { return types.ProviderOpenAI }

func (o *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := o.ListModels(ctx)
	return err == nil
}

func (o *OpenAIProvider) InvalidateCatalog() { o.cache.invalidate() }

type openAIModelsResponse struct {
	Data []openAICatalogModel `json:"data"`
}

type openAICatalogModel struct {
	ID string `json:"id"`
}

var openAIIDPrefixes = []string{"gpt-", "o1", "o3", "o4", "chatgpt-"}

func (o *OpenAIProvider) ListModels(ctx context.Context) ([]types.ModelInfo, error) {
	if cached, ok := o.cache.get(); ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/models", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "openai models request failed", err)
	}
	defer httpResp.Body.Close()

	if err := checkOpenAIStyleStatus(httpResp, "openai"); err != nil {
		return nil, err
	}

	var body openAIModelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding openai models response: %w", err)
	}

	models := make([]types.ModelInfo, 0, len(body.Data))
	for _, m := range body.Data {
		if !hasAnyPrefix(m.ID, openAIIDPrefixes) {
			continue
		}
		if known, ok := lookupRegistry(m.ID); ok {
			models = append(models, known)
			continue
		}
		models = append(models, types.ModelInfo{
			ID: m.ID, Name: m.ID,
			Provider: "openai", ProviderType: types.ProviderOpenAI,
			Tier: types.TierMid, ContextWindow: 128_000,
			InputPricePerMTok: 1.0, OutputPricePerMTok: 4.0,
		})
	}

	o.cache.set(models)
	return models, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// checkOpenAIStyleStatus classifies HTTP errors for the four backends
// (OpenAI, Groq, OpenRouter, HuggingFace) that share OpenAI's status-code
// conventions.
func checkOpenAIStyleStatus(resp *http.Response, provider string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	kind := ErrOther
	switch resp.StatusCode {
	case http.StatusUnauthorized:
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
	return NewError(kind, fmt.Sprintf("%s API error (status %d): %v", provider, resp.StatusCode, errBody), nil)
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float32        `json:"temperature,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
}

type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIStreamResponse struct {
	ID      string              `json:"id"`
	Model   string              `json:"model"`
	Choices []openAIStreamChoice `json:"choices"`
	Usage   *openAIUsage        `json:"usage"`
}

type openAIStreamChoice struct {
	Delta        openAIMessage `json:"delta"`
	FinishReason *string       `json:"finish_reason"`
}

func toOpenAIRequest(req *types.ChatRequest) *openAIRequest {
	or := &openAIRequest{Model: req.Model, Temperature: req.Temperature}
	if req.MaxTokens > 0 {
		or.MaxTokens = req.MaxTokens
	}
	if req.SystemPrompt != "" {
		or.Messages = append(or.Messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, msg := range req.Messages {
		or.Messages = append(or.Messages, openAIMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return or
}

func mapOpenAIFinishReason(reason string) types.FinishReason {
	switch reason {
	case "length":
		return types.FinishLength
	case "content_filter":
		return types.FinishContentFilter
	default:
		return types.FinishStop
	}
}

func (o *OpenAIProvider) ChatCompletion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	body, err := json.Marshal(toOpenAIRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "sending request to openai", err)
	}
	defer httpResp.Body.Close()

	if err := checkOpenAIStyleStatus(httpResp, "openai"); err != nil {
		return nil, err
	}

	var oaResp openAIResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&oaResp); err != nil {
		return nil, fmt.Errorf("decoding openai response: %w", err)
	}
	if len(oaResp.Choices) == 0 {
		return nil, NewError(ErrOther, "openai returned no choices", nil)
	}

	choice := oaResp.Choices[0]
	return &types.ChatResponse{
		ID: oaResp.ID, Model: oaResp.Model, Content: choice.Message.Content,
		FinishReason: mapOpenAIFinishReason(choice.FinishReason),
		Usage: types.Usage{
			PromptTokens:     oaResp.Usage.PromptTokens,
			CompletionTokens: oaResp.Usage.CompletionTokens,
			TotalTokens:      oaResp.Usage.TotalTokens,
		},
	}, nil
}

func (o *OpenAIProvider) ChatCompletionStream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, error) {
	oaReq := toOpenAIRequest(req)
	oaReq.Stream = true

	body, err := json.Marshal(oaReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "sending request to openai", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		return nil, checkOpenAIStyleStatus(httpResp, "openai")
	}

	// The terminal chunk is Drive's job: it fires on the literal "data:
	// [DONE]" line, not on any particular frame here. A finish_reason
	// frame just marks the last content; usage (with stream_options
	// include_usage set) typically arrives on a later frame with no
	// choices at all, so every frame's usage is forwarded regardless of
	// whether it carries content.
	decode := func(payload string) ([]types.StreamChunk, bool, error) {
		var frame openAIStreamResponse
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			return nil, false, err
		}
		chunk := types.StreamChunk{ID: frame.ID, Model: frame.Model}
		if frame.Usage != nil {
			chunk.Usage = &types.Usage{
				PromptTokens:     frame.Usage.PromptTokens,
				CompletionTokens: frame.Usage.CompletionTokens,
				TotalTokens:      frame.Usage.TotalTokens,
			}
		}
		if len(frame.Choices) == 0 {
			if chunk.Usage == nil {
				return nil, true, nil
			}
			return []types.StreamChunk{chunk}, true, nil
		}
		chunk.Delta = frame.Choices[0].Delta.Content
		return []types.StreamChunk{chunk}, true, nil
	}

	return stream.Drive(ctx, httpResp.Body, decode), nil
}
