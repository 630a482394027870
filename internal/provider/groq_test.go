package provider

import (
	"testing"

	"github.com/howard-nolan/hive/internal/types"
)

func TestClassifyGroqModel_Llama(t *testing.T) {
	tier, in, out := classifyGroqModel("llama-3.3-70b-versatile")
	if tier != types.TierBudget || in != 0.05 || out != 0.08 {
		t.Errorf("got (%v, %v, %v), want (Budget, 0.05, 0.08)", tier, in, out)
	}
}

func TestClassifyGroqModel_Mixtral(t *testing.T) {
	tier, in, out := classifyGroqModel("mixtral-8x7b-32768")
	if tier != types.TierBudget || in != 0.24 || out != 0.24 {
		t.Errorf("got (%v, %v, %v), want (Budget, 0.24, 0.24)", tier, in, out)
	}
}

func TestClassifyGroqModel_Gemma(t *testing.T) {
	tier, in, out := classifyGroqModel("gemma2-9b-it")
	if tier != types.TierBudget || in != 0.10 || out != 0.10 {
		t.Errorf("got (%v, %v, %v), want (Budget, 0.10, 0.10)", tier, in, out)
	}
}

func TestClassifyGroqModel_Unknown(t *testing.T) {
	tier, in, out := classifyGroqModel("some-future-model")
	if tier != types.TierMid || in != 0.50 || out != 0.50 {
		t.Errorf("got (%v, %v, %v), want (Mid, 0.50, 0.50)", tier, in, out)
	}
}

func TestClassifyGroqModel_CaseInsensitive(t *testing.T) {
	tier, _, _ := classifyGroqModel("LLAMA-3.1-8B-INSTANT")
	if tier != types.TierBudget {
		t.Errorf("got tier %v, want Budget", tier)
	}
}

func TestDisplayNameFromID_Simple(t *testing.T) {
	got := displayNameFromID("llama-3.3-70b-versatile")
	want := "Llama 3.3 70b Versatile"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDisplayNameFromID_SingleWord(t *testing.T) {
	got := displayNameFromID("gemma2")
	if got != "Gemma2" {
		t.Errorf("got %q, want %q", got, "Gemma2")
	}
}

func TestGroqInvalidateCatalog_ClearsCache(t *testing.T) {
	g := NewGroqProvider("key", "https://api.groq.com/openai/v1", nil)
	g.cache.set([]types.ModelInfo{{ID: "llama-3.3-70b-versatile"}})

	if _, ok := g.cache.get(); !ok {
		t.Fatal("expected cache hit before invalidate")
	}

	g.InvalidateCatalog()

	if _, ok := g.cache.get(); ok {
		t.Fatal("expected cache miss after invalidate")
	}
}
