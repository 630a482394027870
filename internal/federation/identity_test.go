package federation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestPeerIdGeneration(t *testing.T) {
	a := NewPeerId()
	b := NewPeerId()
	if a == b {
		t.Fatal("expected distinct peer ids")
	}
	if a == "" {
		t.Fatal("expected non-empty peer id")
	}
}

func TestIdentityGenerate(t *testing.T) {
	identity := GenerateIdentity("test-node")
	if identity.Name != "test-node" {
		t.Errorf("got name %q, want test-node", identity.Name)
	}
	if identity.PeerID == "" {
		t.Error("expected non-empty peer id")
	}
	if len(identity.Capabilities) == 0 {
		t.Error("expected non-empty capabilities")
	}
}

func TestIdentitySerializeRoundtrip(t *testing.T) {
	identity := GenerateIdentity("roundtrip-node")
	data, err := json.Marshal(identity)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var parsed NodeIdentity
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.PeerID != identity.PeerID {
		t.Errorf("peer id mismatch: %v vs %v", parsed.PeerID, identity.PeerID)
	}
	if parsed.Name != identity.Name {
		t.Errorf("name mismatch: %v vs %v", parsed.Name, identity.Name)
	}
}

func TestIdentitySaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.json")

	original := GenerateIdentity("persist-test")
	if err := original.SaveToFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	log := zap.NewNop()
	loaded := LoadOrGenerateIdentity(log, path, "fallback-name")
	if loaded.PeerID != original.PeerID {
		t.Errorf("peer id mismatch: %v vs %v", loaded.PeerID, original.PeerID)
	}
	if loaded.Name != "persist-test" {
		t.Errorf("got name %q, want persist-test", loaded.Name)
	}
}

func TestIdentityLoadMissingGeneratesNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.json")
	_ = os.Remove(path)

	log := zap.NewNop()
	identity := LoadOrGenerateIdentity(log, path, "new-node")
	if identity.Name != "new-node" {
		t.Errorf("got name %q, want new-node", identity.Name)
	}
	if identity.PeerID == "" {
		t.Error("expected non-empty peer id")
	}
}

func TestIdentitySaveCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "identity.json")

	identity := GenerateIdentity("nested-test")
	if err := identity.SaveToFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}
