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

// HuggingFaceProvider implements Provider against the Hugging Face Inference
// API. The models-listing endpoint exposes neither pricing nor a context
// window, so both are approximated: classifyHFModel keys off parameter-count
// substrings in the model id, and the context window is a flat guess.
type HuggingFaceProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   catalogCache
}

func NewHuggingFaceProvider(apiKey, baseURL string, client *http.Client) *HuggingFaceProvider {
	return &HuggingFaceProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (h *HuggingFaceProvider) Name() string                    { return "huggingface" }
func (h *HuggingFaceProvider) ProviderType() types.ProviderType { return types.ProviderHuggingFace }

func (h *HuggingFaceProvider) IsAvailable(ctx context.Context) bool {
	_, err := h.ListModels(ctx)
	return err == nil
}

func (h *HuggingFaceProvider) InvalidateCatalog() { h.cache.invalidate() }

// hfDefaultContextWindow is a flat stand-in: the Hub's models-list endpoint
// doesn't report a context length at all.
const hfDefaultContextWindow = 4096

type hfCatalogModel struct {
	ID          string `json:"id"`
	PipelineTag string `json:"pipeline_tag"`
}

var hfLargeModelSubstrings = []string{"70b", "72b", "65b", "180b", "405b"}

// classifyHFModel flags parameter counts associated with paid inference
// tiers as Budget; everything else is assumed to run on the free tier.
func classifyHFModel(id string) (types.ModelTier, float64, float64) {
	lower := strings.ToLower(id)
	for _, substr := range hfLargeModelSubstrings {
		if strings.Contains(lower, substr) {
			return types.TierBudget, 0, 0
		}
	}
	return types.TierFree, 0, 0
}

// displayNameFromHFID strips the org prefix ("org/model" -> "model"); ids
// without a namespace are returned unchanged.
func displayNameFromHFID(id string) string {
	if idx := strings.Index(id, "/"); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

func (h *HuggingFaceProvider) ListModels(ctx context.Context) ([]types.ModelInfo, error) {
	if cached, ok := h.cache.get(); ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/models?pipeline_tag=text-generation&sort=likes&direction=-1&limit=200", h.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "huggingface models request failed", err)
	}
	defer httpResp.Body.Close()

	if err := checkOpenAIStyleStatus(httpResp, "huggingface"); err != nil {
		return nil, err
	}

	var body []hfCatalogModel
	if err := json.NewDecoder(httpResp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding huggingface models response: %w", err)
	}

	models := make([]types.ModelInfo, 0, len(body))
	for _, m := range body {
		if m.PipelineTag != "text-generation" {
			continue
		}
		tier, inputPrice, outputPrice := classifyHFModel(m.ID)
		models = append(models, types.ModelInfo{
			ID: m.ID, Name: displayNameFromHFID(m.ID),
			Provider: "huggingface", ProviderType: types.ProviderHuggingFace,
			Tier: tier, ContextWindow: hfDefaultContextWindow,
			InputPricePerMTok: inputPrice, OutputPricePerMTok: outputPrice,
		})
	}

	h.cache.set(models)
	return models, nil
}

// ---------------------------------------------------------------------------
// Chat completion — Hugging Face's router speaks the OpenAI chat schema for
// text-generation models, so the same request/response shapes apply.
// ---------------------------------------------------------------------------

func (h *HuggingFaceProvider) ChatCompletion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	body, err := json.Marshal(toOpenAIRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", h.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "sending request to huggingface", err)
	}
	defer httpResp.Body.Close()

	if err := checkOpenAIStyleStatus(httpResp, "huggingface"); err != nil {
		return nil, err
	}

	var oaResp openAIResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&oaResp); err != nil {
		return nil, fmt.Errorf("decoding huggingface response: %w", err)
	}
	if len(oaResp.Choices) == 0 {
		return nil, NewError(ErrOther, "huggingface returned no choices", nil)
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

func (h *HuggingFaceProvider) ChatCompletionStream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, error) {
	oaReq := toOpenAIRequest(req)
	oaReq.Stream = true

	body, err := json.Marshal(oaReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", h.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, NewError(ErrNetwork, "sending request to huggingface", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		return nil, checkOpenAIStyleStatus(httpResp, "huggingface")
	}

	// Drive owns the terminal chunk (it fires on "data: [DONE]"), so usage
	// is forwarded off of whichever frame carries it, content or not.
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
