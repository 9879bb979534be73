package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingOptionalReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DedupeThreshold != 0.7 || cfg.Days != 7 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadMissingRequiredFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
		t.Fatalf("expected error for missing required config")
	}
}

func TestLoadOverlaysDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("AGENTMEM_TEST_MODEL", "mxbai-embed-large")
	path := writeConfig(t, `
days: 3
extensions: [md, ".txt"]
patterns:
  decision:
    - "(?:beslutat|decided)"
semantic:
  model: ${AGENTMEM_TEST_MODEL}
  ollama_url: ${AGENTMEM_TEST_UNSET:-http://ollama:11434}
`)

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Days != 3 {
		t.Errorf("days = %d, want 3", cfg.Days)
	}
	if cfg.Top != 10 {
		t.Errorf("top = %d, want default 10", cfg.Top)
	}
	if cfg.Extensions[0] != ".md" || cfg.Extensions[1] != ".txt" {
		t.Errorf("extensions not normalized: %v", cfg.Extensions)
	}
	if got := cfg.Patterns["decision"]; len(got) != 1 || got[0] != "(?:beslutat|decided)" {
		t.Errorf("patterns = %v", cfg.Patterns)
	}
	if cfg.Semantic.Model != "mxbai-embed-large" {
		t.Errorf("model = %q", cfg.Semantic.Model)
	}
	if cfg.Semantic.OllamaURL != "http://ollama:11434" {
		t.Errorf("ollama_url = %q", cfg.Semantic.OllamaURL)
	}
	if cfg.Semantic.ChunkSize != 500 {
		t.Errorf("chunk_size = %d, want default 500", cfg.Semantic.ChunkSize)
	}
}

func TestLoadRejectsUnresolvedVariable(t *testing.T) {
	path := writeConfig(t, "memory_file: ${AGENTMEM_DEFINITELY_UNSET}\n")
	if _, err := Load(path, false); err == nil {
		t.Fatalf("expected unresolved variable error")
	}
}

func TestValidateUnknownCategory(t *testing.T) {
	path := writeConfig(t, "sections:\n  gossip: [\"Gossip\"]\n")
	_, err := Load(path, false)
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestValidateThresholdRange(t *testing.T) {
	cfg := Default()
	cfg.DedupeThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestResolveDirPrefersFlagThenEnv(t *testing.T) {
	flagDir := t.TempDir()
	envDir := t.TempDir()
	t.Setenv("AGENT_MEMORY_DIR", envDir)

	if got := ResolveDir(flagDir); got != flagDir {
		t.Errorf("ResolveDir(flag) = %q, want %q", got, flagDir)
	}
	if got := ResolveDir(""); got != envDir {
		t.Errorf("ResolveDir(\"\") = %q, want %q", got, envDir)
	}
	if got := ResolveDir(filepath.Join(flagDir, "missing")); got != envDir {
		t.Errorf("ResolveDir(missing) = %q, want env dir %q", got, envDir)
	}
}

func TestPathJoinsRelative(t *testing.T) {
	cfg := Default()
	cfg.Root = "/data/mem"
	if got := cfg.Path("MEMORY.md"); got != filepath.Join("/data/mem", "MEMORY.md") {
		t.Errorf("Path = %q", got)
	}
	if got := cfg.Path("/abs/file.md"); got != "/abs/file.md" {
		t.Errorf("Path(abs) = %q", got)
	}
}
