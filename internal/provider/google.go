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

// GoogleProvider implements Provider for Google's Gemini API.
type GoogleProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   catalogCache
}

func NewGoogleProvider(apiKey, baseURL string, client *http.Client) *GoogleProvider {
	return &GoogleProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (g *GoogleProvider) Name() string                    { return "google" }
func (g *GoogleProvider) ProviderType() types.ProviderType { return types.ProviderGoogle }

func (g *GoogleProvider) IsAvailable(ctx context.Context) bool {
	_, err := g.ListModels(ctx)
	return err == nil
}

func (g *GoogleProvider) InvalidateCatalog() { g.cache.invalidate() }

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

type googleModelsResponse struct {
	Models []googleCatalogModel `json:"models"`
}

type googleCatalogModel struct {
	Name            string `json:"name"`
	DisplayName     string `json:"displayName"`
	InputTokenLimit int    `json:"inputTokenLimit"`
}

func (g *GoogleProvider) ListModels(ctx context.Context) ([]types.ModelInfo, error) {
	if cached, ok := g.cache.get(); ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/models", g.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "google models request failed", err)
	}
	defer httpResp.Body.Close()

	if err := checkGoogleStatus(httpResp); err != nil {
		return nil, err
	}

	var body googleModelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding google models response: %w", err)
	}

	models := make([]types.ModelInfo, 0, len(body.Models))
	for _, m := range body.Models {
		if !strings.Contains(m.Name, "gemini") {
			continue
		}
		id := strings.TrimPrefix(m.Name, "models/")
		ctxWindow := m.InputTokenLimit
		if ctxWindow == 0 {
			ctxWindow = 1_048_576
		}

		if known, ok := lookupRegistry(id); ok {
			models = append(models, known)
			continue
		}
		name := m.DisplayName
		if name == "" {
			name = id
		}
		models = append(models, types.ModelInfo{
			ID: id, Name: name,
			Provider: "google", ProviderType: types.ProviderGoogle,
			Tier: types.TierMid, ContextWindow: ctxWindow,
			InputPricePerMTok: 0.50, OutputPricePerMTok: 2.0,
		})
	}

	g.cache.set(models)
	return models, nil
}

func checkGoogleStatus(resp *http.Response) error {
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
	}
	var errBody map[string]any
	json.NewDecoder(resp.Body).Decode(&errBody)
	return NewError(kind, fmt.Sprintf("google API error (status %d): %v", resp.StatusCode, errBody), nil)
}

// ---------------------------------------------------------------------------
// Wire request/response types
// ---------------------------------------------------------------------------

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func toGeminiRequest(req *types.ChatRequest) *geminiRequest {
	gr := &geminiRequest{}

	if req.SystemPrompt != "" {
		gr.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}

	for _, msg := range req.Messages {
		if msg.Role == types.RoleSystem {
			if gr.SystemInstruction == nil {
				gr.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: msg.Content}}}
			} else {
				gr.SystemInstruction.Parts = append(gr.SystemInstruction.Parts, geminiPart{Text: msg.Content})
			}
			continue
		}

		role := string(msg.Role)
		if msg.Role == types.RoleAssistant {
			role = "model"
		}

		gr.Contents = append(gr.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: msg.Content}}})
	}

	if req.MaxTokens > 0 {
		gr.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
	}

	return gr
}

func mapGeminiFinishReason(reason string) types.FinishReason {
	switch reason {
	case "MAX_TOKENS":
		return types.FinishLength
	case "SAFETY", "RECITATION":
		return types.FinishContentFilter
	default:
		return types.FinishStop
	}
}

// ---------------------------------------------------------------------------
// Non-streaming
// ---------------------------------------------------------------------------

func (g *GoogleProvider) ChatCompletion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	geminiReq := toGeminiRequest(req)

	body, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, req.Model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "sending request to gemini", err)
	}
	defer httpResp.Body.Close()

	if err := checkGoogleStatus(httpResp); err != nil {
		return nil, err
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("decoding gemini response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return nil, NewError(ErrOther, "gemini returned no candidates", nil)
	}

	candidate := geminiResp.Candidates[0]
	resp := &types.ChatResponse{
		Model:        req.Model,
		Content:      candidate.Content.Parts[0].Text,
		FinishReason: mapGeminiFinishReason(candidate.FinishReason),
	}

	if geminiResp.UsageMetadata != nil {
		resp.Usage = types.Usage{
			PromptTokens:     geminiResp.UsageMetadata.PromptTokenCount,
			CompletionTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      geminiResp.UsageMetadata.TotalTokenCount,
		}
	}

	return resp, nil
}

// ---------------------------------------------------------------------------
// Streaming
// ---------------------------------------------------------------------------

func (g *GoogleProvider) ChatCompletionStream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, error) {
	geminiReq := toGeminiRequest(req)

	body, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", g.baseURL, req.Model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "sending request to gemini", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		return nil, checkGoogleStatus(httpResp)
	}

	decode := func(payload string) ([]types.StreamChunk, bool, error) {
		var geminiResp geminiResponse
		if err := json.Unmarshal([]byte(payload), &geminiResp); err != nil {
			return nil, false, err
		}
		if len(geminiResp.Candidates) == 0 {
			return nil, true, nil
		}

		candidate := geminiResp.Candidates[0]
		var delta string
		if len(candidate.Content.Parts) > 0 {
			delta = candidate.Content.Parts[0].Text
		}

		chunk := types.StreamChunk{Model: req.Model, Delta: delta}
		if candidate.FinishReason == "" {
			return []types.StreamChunk{chunk}, true, nil
		}

		chunk.Done = true
		if geminiResp.UsageMetadata != nil {
			chunk.Usage = &types.Usage{
				PromptTokens:     geminiResp.UsageMetadata.PromptTokenCount,
				CompletionTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      geminiResp.UsageMetadata.TotalTokenCount,
			}
		}
		return []types.StreamChunk{chunk}, false, nil
	}

	return stream.Drive(ctx, httpResp.Body, decode), nil
}
