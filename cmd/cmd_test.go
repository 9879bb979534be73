package cmd

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"agentmem/internal/config"
	"agentmem/internal/index"
)

func TestFormatSearch(t *testing.T) {
	if got := formatSearch("ghost", nil); got != "No results for 'ghost'" {
		t.Fatalf("empty = %q", got)
	}

	got := formatSearch("hello", []index.SearchResult{
		{File: "MEMORY.md", Line: 2, Text: "hello world", Score: 1},
		{File: "memory/2026-03-09.md", Line: 7, Text: strings.Repeat("x", 130), Score: 0.5},
	})
	for _, want := range []string{
		"Results for 'hello' (2 hits):",
		"[●●●●●] MEMORY.md:2",
		"[●●○○○] memory/2026-03-09.md:7",
		"    " + strings.Repeat("x", 120) + "\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, strings.Repeat("x", 121)) {
		t.Errorf("line text not truncated to 120 runes")
	}
}

func TestWakeFiles(t *testing.T) {
	fixNow(t, time.Date(2026, 3, 9, 8, 0, 0, 0, time.Local))

	cfg := config.Default()
	cfg.Root = t.TempDir()
	want := []string{"MEMORY.md", "heartbeat-state.json", "2026-03-09.md", "2026-03-08.md"}
	if got := wakeFiles(cfg); !reflect.DeepEqual(got, want) {
		t.Fatalf("without memory dir = %v, want %v", got, want)
	}

	if err := os.Mkdir(filepath.Join(cfg.Root, "memory"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	want = []string{"MEMORY.md", "heartbeat-state.json", "memory/2026-03-09.md", "memory/2026-03-08.md"}
	if got := wakeFiles(cfg); !reflect.DeepEqual(got, want) {
		t.Fatalf("with memory dir = %v, want %v", got, want)
	}
}

func TestSetupLoggingRejectsUnknownLevel(t *testing.T) {
	if err := setupLogging("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if err := setupLogging("DEBUG"); err != nil {
		t.Fatalf("setupLogging(DEBUG): %v", err)
	}
}
