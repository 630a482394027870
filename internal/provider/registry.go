package provider

import "github.com/howard-nolan/hive/internal/types"

// modelRegistry is the static fallback pricing/context table consulted by
// the Anthropic, Google, and OpenAI catalog caches when a live API lists a
// model id they don't have hardcoded numbers for. Unknown-unknown models
// (not even in the API response) fall further back to the per-provider
// safe defaults in each catalog file.
var modelRegistry = []types.ModelInfo{
	{
		ID: "claude-opus-4-5-20251101", Name: "Claude Opus 4.5",
		Provider: "anthropic", ProviderType: types.ProviderAnthropic,
		Tier: types.TierPremium, ContextWindow: 200_000,
		InputPricePerMTok: 5.0, OutputPricePerMTok: 25.0,
		Capabilities: types.NewModelCapabilities(types.CapToolUse, types.CapExtendedThinking, types.CapVision, types.CapLongContext),
	},
	{
		ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5",
		Provider: "anthropic", ProviderType: types.ProviderAnthropic,
		Tier: types.TierMid, ContextWindow: 200_000,
		InputPricePerMTok: 3.0, OutputPricePerMTok: 15.0,
		Capabilities: types.NewModelCapabilities(types.CapToolUse, types.CapVision, types.CapLongContext),
	},
	{
		ID: "claude-haiku-4-5-20251001", Name: "Claude Haiku 4.5",
		Provider: "anthropic", ProviderType: types.ProviderAnthropic,
		Tier: types.TierBudget, ContextWindow: 200_000,
		InputPricePerMTok: 0.8, OutputPricePerMTok: 4.0,
		Capabilities: types.NewModelCapabilities(types.CapToolUse),
	},
	{
		ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro",
		Provider: "google", ProviderType: types.ProviderGoogle,
		Tier: types.TierPremium, ContextWindow: 1_048_576,
		InputPricePerMTok: 1.25, OutputPricePerMTok: 10.0,
		Capabilities: types.NewModelCapabilities(types.CapToolUse, types.CapVision, types.CapLongContext),
	},
	{
		ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash",
		Provider: "google", ProviderType: types.ProviderGoogle,
		Tier: types.TierBudget, ContextWindow: 1_048_576,
		InputPricePerMTok: 0.30, OutputPricePerMTok: 2.50,
		Capabilities: types.NewModelCapabilities(types.CapToolUse, types.CapVision),
	},
	{
		ID: "gpt-4o", Name: "GPT-4o",
		Provider: "openai", ProviderType: types.ProviderOpenAI,
		Tier: types.TierMid, ContextWindow: 128_000,
		InputPricePerMTok: 2.5, OutputPricePerMTok: 10.0,
		Capabilities: types.NewModelCapabilities(types.CapToolUse, types.CapVision, types.CapStructuredOutput),
	},
	{
		ID: "gpt-4o-mini", Name: "GPT-4o mini",
		Provider: "openai", ProviderType: types.ProviderOpenAI,
		Tier: types.TierBudget, ContextWindow: 128_000,
		InputPricePerMTok: 0.15, OutputPricePerMTok: 0.60,
		Capabilities: types.NewModelCapabilities(types.CapToolUse, types.CapStructuredOutput),
	},
	{
		ID: "o3", Name: "o3",
		Provider: "openai", ProviderType: types.ProviderOpenAI,
		Tier: types.TierPremium, ContextWindow: 200_000,
		InputPricePerMTok: 10.0, OutputPricePerMTok: 40.0,
		Capabilities: types.NewModelCapabilities(types.CapExtendedThinking, types.CapToolUse),
	},
}

// lookupRegistry finds a static entry by model id, returning (entry, true)
// on a hit. Catalog adapters call this before falling back to provider-wide
// safe defaults for a model id the registry doesn't know.
func lookupRegistry(id string) (types.ModelInfo, bool) {
	for _, m := range modelRegistry {
		if m.ID == id {
			return m, true
		}
	}
	return types.ModelInfo{}, false
}

// LookupModel exposes the static registry to callers outside this package,
// namely the router's cost estimator.
func LookupModel(id string) (types.ModelInfo, bool) {
	return lookupRegistry(id)
}
