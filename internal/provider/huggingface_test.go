package provider

import (
	"testing"

	"github.com/howard-nolan/hive/internal/types"
)

func TestClassifyHFModel_Large(t *testing.T) {
	tier, in, out := classifyHFModel("meta-llama/Llama-3.1-70B-Instruct")
	if tier != types.TierBudget || in != 0 || out != 0 {
		t.Errorf("got (%v, %v, %v), want (Budget, 0, 0)", tier, in, out)
	}
}

func TestClassifyHFModel_Small(t *testing.T) {
	tier, in, out := classifyHFModel("meta-llama/Llama-3.2-3B-Instruct")
	if tier != types.TierFree || in != 0 || out != 0 {
		t.Errorf("got (%v, %v, %v), want (Free, 0, 0)", tier, in, out)
	}
}

func TestDisplayNameFromHFID_WithOrg(t *testing.T) {
	got := displayNameFromHFID("meta-llama/Llama-3.1-8B-Instruct")
	if got != "Llama-3.1-8B-Instruct" {
		t.Errorf("got %q, want %q", got, "Llama-3.1-8B-Instruct")
	}
}

func TestDisplayNameFromHFID_WithoutOrg(t *testing.T) {
	got := displayNameFromHFID("standalone-model")
	if got != "standalone-model" {
		t.Errorf("got %q, want %q", got, "standalone-model")
	}
}

func TestHuggingFaceInvalidateCatalog_ClearsCache(t *testing.T) {
	h := NewHuggingFaceProvider("", "https://huggingface.co/api", nil)
	h.cache.set([]types.ModelInfo{{ID: "some/model"}})

	if _, ok := h.cache.get(); !ok {
		t.Fatal("expected cache hit before invalidate")
	}

	h.InvalidateCatalog()

	if _, ok := h.cache.get(); ok {
		t.Fatal("expected cache miss after invalidate")
	}
}
