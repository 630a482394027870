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

// GroqProvider implements Provider for Groq's OpenAI-compatible API. Groq
// doesn't expose pricing in its models endpoint, so classifyGroqModel
// assigns reasonable tiers/prices from public pricing pages, keyed off
// substrings in the model id.
type GroqProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   catalogCache
}

func NewGroqProvider(apiKey, baseURL string, client *http.Client) *GroqProvider {
	return &GroqProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (g *GroqProvider) Name() string                    { return "groq" }
func (g *GroqProvider) ProviderType() types.ProviderType { return types.ProviderGroq }

func (g *GroqProvider) IsAvailable(ctx context.Context) bool {
	_, err := g.ListModels(ctx)
	return err == nil
}

func (g *GroqProvider) InvalidateCatalog() { g.cache.invalidate() }

type groqModelsResponse struct {
	Data []groqCatalogModel `json:"data"`
}

type groqCatalogModel struct {
	ID            string `json:"id"`
	ContextWindow int    `json:"context_window"`
}

// classifyGroqModel assigns a tier and per-million-token prices by model
// id substring, ported verbatim from the original's classify_model.
func classifyGroqModel(id string) (types.ModelTier, float64, float64) {
	lower := strings.ToLower(id)
	switch {
	case strings.Contains(lower, "llama"):
		return types.TierBudget, 0.05, 0.08
	case strings.Contains(lower, "mixtral"):
		return types.TierBudget, 0.24, 0.24
	case strings.Contains(lower, "gemma"):
		return types.TierBudget, 0.10, 0.10
	default:
		return types.TierMid, 0.50, 0.50
	}
}

// displayNameFromID title-cases hyphen-separated segments of a model id,
// leaving purely numeric (version-number-like) segments untouched.
func displayNameFromID(id string) string {
	parts := strings.Split(id, "-")
	for i, part := range parts {
		if isNumericToken(part) {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func isNumericToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9') && r != '.' {
			return false
		}
	}
	return true
}

func (g *GroqProvider) ListModels(ctx context.Context) ([]types.ModelInfo, error) {
	if cached, ok := g.cache.get(); ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/models", g.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "groq models request failed", err)
	}
	defer httpResp.Body.Close()

	if err := checkOpenAIStyleStatus(httpResp, "groq"); err != nil {
		return nil, err
	}

	var body groqModelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding groq models response: %w", err)
	}

	models := make([]types.ModelInfo, 0, len(body.Data))
	for _, m := range body.Data {
		tier, inputPrice, outputPrice := classifyGroqModel(m.ID)
		ctxWindow := m.ContextWindow
		if ctxWindow == 0 {
			ctxWindow = 4096
		}
		models = append(models, types.ModelInfo{
			ID: m.ID, Name: displayNameFromID(m.ID),
			Provider: "groq", ProviderType: types.ProviderGroq,
			Tier: tier, ContextWindow: ctxWindow,
			InputPricePerMTok: inputPrice, OutputPricePerMTok: outputPrice,
		})
	}

	g.cache.set(models)
	return models, nil
}

// Groq is OpenAI-wire-compatible for chat completions, so the request/
// response shapes and the streaming decoder are identical to OpenAIProvider's
// — reuse them instead of redefining the same structs twice.

func (g *GroqProvider) ChatCompletion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	return chatCompletionOpenAIStyle(ctx, g.client, g.baseURL, g.apiKey, "groq", req)
}

func (g *GroqProvider) ChatCompletionStream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, error) {
	return chatCompletionStreamOpenAIStyle(ctx, g.client, g.baseURL, g.apiKey, "groq", req)
}

// chatCompletionOpenAIStyle and chatCompletionStreamOpenAIStyle factor out
// the OpenAI-wire-compatible completion flow shared by Groq and OpenRouter,
// avoiding three near-identical copies of OpenAIProvider's HTTP plumbing.
func chatCompletionOpenAIStyle(ctx context.Context, client *http.Client, baseURL, apiKey, providerName string, req *types.ChatRequest) (*types.ChatResponse, error) {
	body, err := json.Marshal(toOpenAIRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "sending request to "+providerName, err)
	}
	defer httpResp.Body.Close()

	if err := checkOpenAIStyleStatus(httpResp, providerName); err != nil {
		return nil, err
	}

	var oaResp openAIResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&oaResp); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", providerName, err)
	}
	if len(oaResp.Choices) == 0 {
		return nil, NewError(ErrOther, providerName+" returned no choices", nil)
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

func chatCompletionStreamOpenAIStyle(ctx context.Context, client *http.Client, baseURL, apiKey, providerName string, req *types.ChatRequest) (<-chan types.StreamChunk, error) {
	oaReq := toOpenAIRequest(req)
	oaReq.Stream = true

	body, err := json.Marshal(oaReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "sending request to "+providerName, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		return nil, checkOpenAIStyleStatus(httpResp, providerName)
	}

	// As in the OpenAI decoder, Drive owns the terminal chunk: it fires on
	// "data: [DONE]", not on any frame here, so usage is forwarded off of
	// whichever frame carries it regardless of whether that frame also
	// carries content.
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
