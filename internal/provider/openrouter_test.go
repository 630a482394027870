package provider

import (
	"testing"

	"github.com/howard-nolan/hive/internal/types"
)

func TestClassifyOpenRouterTier_Free(t *testing.T) {
	if got := classifyOpenRouterTier(0.0); got != types.TierFree {
		t.Errorf("got %v, want Free", got)
	}
}

func TestClassifyOpenRouterTier_Budget(t *testing.T) {
	for _, price := range []float64{0.01, 0.99} {
		if got := classifyOpenRouterTier(price); got != types.TierBudget {
			t.Errorf("price %v: got %v, want Budget", price, got)
		}
	}
}

func TestClassifyOpenRouterTier_Mid(t *testing.T) {
	for _, price := range []float64{1.0, 5.0} {
		if got := classifyOpenRouterTier(price); got != types.TierMid {
			t.Errorf("price %v: got %v, want Mid", price, got)
		}
	}
}

func TestClassifyOpenRouterTier_Premium(t *testing.T) {
	for _, price := range []float64{10.0, 75.0} {
		if got := classifyOpenRouterTier(price); got != types.TierPremium {
			t.Errorf("price %v: got %v, want Premium", price, got)
		}
	}
}

func TestParseOpenRouterPricing_Valid(t *testing.T) {
	prompt := "0.000003"
	completion := "0.000015"
	in, out, ok := parseOpenRouterPricing(openRouterPricing{Prompt: &prompt, Completion: &completion})
	if !ok {
		t.Fatal("expected ok=true")
	}
	if in < 2.99 || in > 3.01 || out < 14.99 || out > 15.01 {
		t.Errorf("got (%v, %v), want (~3.0, ~15.0)", in, out)
	}
}

func TestParseOpenRouterPricing_Missing(t *testing.T) {
	if _, _, ok := parseOpenRouterPricing(openRouterPricing{}); ok {
		t.Fatal("expected ok=false for missing pricing")
	}
}

func TestOpenRouterInvalidateCatalog_ClearsCache(t *testing.T) {
	o := NewOpenRouterProvider("key", "https://openrouter.ai/api/v1", nil)
	o.cache.set([]types.ModelInfo{{ID: "some/model"}})

	if _, ok := o.cache.get(); !ok {
		t.Fatal("expected cache hit before invalidate")
	}

	o.InvalidateCatalog()

	if _, ok := o.cache.get(); ok {
		t.Fatal("expected cache miss after invalidate")
	}
}
