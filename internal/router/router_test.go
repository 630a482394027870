package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/howard-nolan/hive/internal/provider"
	"github.com/howard-nolan/hive/internal/types"
)

// stubProvider is a minimal provider.Provider used to test fallback
// ordering without hitting the network.
type stubProvider struct {
	name      string
	failWith  error
	responses map[string]*types.ChatResponse
	calls     []string
}

func (p *stubProvider) Name() string                        { return p.name }
func (p *stubProvider) ProviderType() types.ProviderType     { return types.ProviderType(p.name) }
func (p *stubProvider) IsAvailable(ctx context.Context) bool { return true }
func (p *stubProvider) ListModels(ctx context.Context) ([]types.ModelInfo, error) {
	return nil, nil
}

func (p *stubProvider) ChatCompletion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	p.calls = append(p.calls, req.Model)
	if p.failWith != nil {
		return nil, p.failWith
	}
	if resp, ok := p.responses[req.Model]; ok {
		return resp, nil
	}
	return &types.ChatResponse{ID: "stub", Model: req.Model, Content: "ok"}, nil
}

func (p *stubProvider) ChatCompletionStream(ctx context.Context, req *types.ChatRequest) (<-chan types.StreamChunk, error) {
	ch := make(chan types.StreamChunk, 1)
	ch <- types.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func testRouterConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimitPerSec = 1000
	cfg.RateLimitBurst = 1000
	cfg.Chains = FallbackChain{
		types.TierBudget: {"budget-a", "budget-b"},
	}
	return cfg
}

func TestRouteUsesFirstAvailableModel(t *testing.T) {
	good := &stubProvider{name: "good"}
	models := map[string]provider.Provider{
		"budget-a": good,
		"budget-b": good,
	}

	r := New(testRouterConfig(), models, NewMemoryStore(), zap.NewNop())
	resp, err := r.Route(context.Background(), &types.ChatRequest{PreferredTier: types.TierBudget})
	require.NoError(t, err)
	require.Equal(t, "budget-a", resp.Model)
}

func TestRouteFallsBackOnFailure(t *testing.T) {
	failing := &stubProvider{name: "failing", failWith: provider.NewError(provider.ErrNetwork, "boom", nil)}
	good := &stubProvider{name: "good"}

	models := map[string]provider.Provider{
		"budget-a": failing,
		"budget-b": good,
	}

	r := New(testRouterConfig(), models, NewMemoryStore(), zap.NewNop())
	resp, err := r.Route(context.Background(), &types.ChatRequest{PreferredTier: types.TierBudget})
	require.NoError(t, err)
	require.Equal(t, "budget-b", resp.Model)
}

func TestRouteMarksInvalidKeyUnavailable(t *testing.T) {
	failing := &stubProvider{name: "failing", failWith: provider.NewError(provider.ErrInvalidKey, "bad key", nil)}
	good := &stubProvider{name: "good"}

	models := map[string]provider.Provider{
		"budget-a": failing,
		"budget-b": good,
	}

	r := New(testRouterConfig(), models, NewMemoryStore(), zap.NewNop())

	_, err := r.Route(context.Background(), &types.ChatRequest{PreferredTier: types.TierBudget})
	require.NoError(t, err)
	require.False(t, r.IsAvailable("budget-a"))

	// Marking is permanent: even a fresh request skips budget-a again
	// without the provider being invoked.
	_, err = r.Route(context.Background(), &types.ChatRequest{PreferredTier: types.TierBudget})
	require.NoError(t, err)
	require.Len(t, failing.calls, 1)
}

func TestRouteBudgetExceededIsTerminal(t *testing.T) {
	failing := &stubProvider{name: "failing", failWith: provider.NewError(provider.ErrBudgetExceeded, "budget blown", nil)}
	good := &stubProvider{name: "good"}

	models := map[string]provider.Provider{
		"budget-a": failing,
		"budget-b": good,
	}

	r := New(testRouterConfig(), models, NewMemoryStore(), zap.NewNop())
	_, err := r.Route(context.Background(), &types.ChatRequest{PreferredTier: types.TierBudget})
	require.Error(t, err)
	require.ErrorContains(t, err, "budget")
	require.Empty(t, good.calls, "budget exceeded must not fall back to the next candidate")
	require.True(t, r.IsAvailable("budget-a"), "budget exhaustion is not a reason to blacklist the model")
}

func TestRouteNoAvailableModelReturnsError(t *testing.T) {
	r := New(testRouterConfig(), map[string]provider.Provider{}, NewMemoryStore(), zap.NewNop())
	_, err := r.Route(context.Background(), &types.ChatRequest{PreferredTier: types.TierBudget})
	require.Error(t, err)
}

func TestRouteEmptyChainReturnsError(t *testing.T) {
	r := New(testRouterConfig(), map[string]provider.Provider{}, NewMemoryStore(), zap.NewNop())
	_, err := r.Route(context.Background(), &types.ChatRequest{PreferredTier: types.TierPremium})
	require.Error(t, err)
}

func TestRouteRespectsCostLimit(t *testing.T) {
	cfg := testRouterConfig()
	cfg.CostLimitUSD = 0.0001
	cfg.Chains = FallbackChain{types.TierBudget: {"claude-opus-4-5-20251101"}}

	good := &stubProvider{
		name: "good",
		responses: map[string]*types.ChatResponse{
			"claude-opus-4-5-20251101": {Model: "claude-opus-4-5-20251101", Usage: types.Usage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000}},
		},
	}
	models := map[string]provider.Provider{"claude-opus-4-5-20251101": good}

	r := New(cfg, models, NewMemoryStore(), zap.NewNop())

	_, err := r.Route(context.Background(), &types.ChatRequest{PreferredTier: types.TierBudget})
	require.NoError(t, err)
	require.Greater(t, r.TotalSpentUSD(), cfg.CostLimitUSD)

	_, err = r.Route(context.Background(), &types.ChatRequest{PreferredTier: types.TierBudget})
	require.Error(t, err)
}
