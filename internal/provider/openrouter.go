package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/howard-nolan/hive/internal/types"
)

// OpenRouterProvider implements Provider for OpenRouter's unified model
// catalog. Unlike Groq/HuggingFace, OpenRouter reports real per-token
// pricing, so classifyOpenRouterTier buckets on the reported input price
// instead of guessing from the model id.
type OpenRouterProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   catalogCache
}

func NewOpenRouterProvider(apiKey, baseURL string, client *http.Client) *OpenRouterProvider {
	return &OpenRouterProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (o *OpenRouterProvider) Name() string                    { return "openrouter" }
func (o *OpenRouterProvider) ProviderType() types.ProviderType { return types.ProviderOpenRouter }

func (o *OpenRouterProvider) IsAvailable(ctx context.Context) bool {
	_, err := o.ListModels(ctx)
	return err == nil
}

func (o *OpenRouterProvider) InvalidateCatalog() { o.cache.invalidate() }

type openRouterModelsResponse struct {
	Data []openRouterCatalogModel `json:"data"`
}

type openRouterCatalogModel struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	ContextLength int                 `json:"context_length"`
	Pricing       openRouterPricing   `json:"pricing"`
}

type openRouterPricing struct {
	Prompt     *string `json:"prompt"`
	Completion *string `json:"completion"`
}

// classifyOpenRouterTier buckets a model by its per-million-token input
// price: free listings, sub-dollar budget models, single-digit mid-range,
// and everything above that as premium.
func classifyOpenRouterTier(inputPricePerMTok float64) types.ModelTier {
	switch {
	case inputPricePerMTok <= 0:
		return types.TierFree
	case inputPricePerMTok < 1:
		return types.TierBudget
	case inputPricePerMTok < 10:
		return types.TierMid
	default:
		return types.TierPremium
	}
}

func (o *OpenRouterProvider) ListModels(ctx context.Context) ([]types.ModelInfo, error) {
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
		return nil, NewError(ErrNetwork, "openrouter models request failed", err)
	}
	defer httpResp.Body.Close()

	if err := checkOpenAIStyleStatus(httpResp, "openrouter"); err != nil {
		return nil, err
	}

	var body openRouterModelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding openrouter models response: %w", err)
	}

	models := make([]types.ModelInfo, 0, len(body.Data))
	for _, m := range body.Data {
		inputPrice, outputPrice, ok := parseOpenRouterPricing(m.Pricing)
		if !ok {
			continue
		}
		ctxWindow := m.ContextLength
		if ctxWindow == 0 {
			ctxWindow = 4096
		}
		name := m.Name
		if name == "" {
			name = m.ID
		}
		models = append(models, types.ModelInfo{
			ID: m.ID, Name: name,
			Provider: "openrouter", ProviderType: types.ProviderOpenRouter,
			Tier: classifyOpenRouterTier(inputPrice), ContextWindow: ctxWindow,
			InputPricePerMTok: inputPrice, OutputPricePerMTok: outputPrice,
		})
	}

	o.cache.set(models)
	return models, nil
}

// parseOpenRouterPricing converts OpenRouter's per-token decimal-string
// prices to per-million-token floats. A missing or unparseable price drops
// the model from the catalog rather than guessing at a price.
func parseOpenRouterPricing(p openRouterPricing) (input, output float64, ok bool) {
	if p.Prompt == nil || p.Completion == nil {
		return 0, 0, false
	}
	promptPerToken, err := strconv.ParseFloat(*p.Prompt, 64)
	if err != nil {
		return 0, 0, false
	}
	completionPerToken, err := strconv.ParseFloat(*p.Completion, 64)
	if err != nil {
		return 0, 0, false
	}
	return promptPerToken * 1_000_000, completionPerToken * 1_000_000, true
}

// ---------------------------------------------------------------------------
// Chat completion — OpenRouter is OpenAI-wire-compatible.
// ---------------------------------------------------------------------------

func (o *OpenRouterProvider) ChatCompletion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	return chatCompletionOpenAIStyle(ctx, o.client, o.baseURL, o.apiKey, "openrouter", req)
}

func (o *OpenRouterProvider) ChatCompletionStream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, error) {
	return chatCompletionStreamOpenAIStyle(ctx, o.client, o.baseURL, o.apiKey, "openrouter", req)
}
