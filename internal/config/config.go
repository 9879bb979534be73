// Package config holds the explicit configuration value that every
// agentmem pipeline is constructed with. Nothing in the core reads the
// environment directly; the CLI resolves directories and files once and
// passes the result down.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the memory root when no --config is given.
const DefaultFileName = ".agentmem.yaml"

// Categories in canonical matching order.
var Categories = []string{"decision", "lesson", "fact", "contact", "platform"}

// ErrUnknownCategory is returned by Validate for pattern or section keys
// outside the closed category set.
var ErrUnknownCategory = errors.New("config: unknown category")

// Config is the full agentmem configuration.
type Config struct {
	// Root is the memory directory. Filled by the CLI, never from YAML.
	Root string `yaml:"-"`

	Extensions []string `yaml:"extensions"`
	Ignore     []string `yaml:"ignore"`

	// MemoryFile is the long-term document, relative to Root.
	MemoryFile string `yaml:"memory_file"`
	// Snapshot is the default serialized index path, relative to Root.
	Snapshot string `yaml:"snapshot"`

	Days              int     `yaml:"days"`
	Top               int     `yaml:"top"`
	DedupeThreshold   float64 `yaml:"dedupe_threshold"`
	PresenceThreshold float64 `yaml:"presence_threshold"`

	// Patterns maps category to regular expressions; a category present
	// here replaces the built-in list for that category.
	Patterns map[string][]string `yaml:"patterns"`
	// Sections maps category to accepted header aliases.
	Sections map[string][]string `yaml:"sections"`

	WakeFiles []string `yaml:"wake_files"`

	Semantic Semantic `yaml:"semantic"`
}

// Semantic configures the embedding-backed index.
type Semantic struct {
	OllamaURL    string `yaml:"ollama_url"`
	Model        string `yaml:"model"`
	ChunkSize    int    `yaml:"chunk_size"`
	MaxFileBytes int64  `yaml:"max_file_bytes"`
	DBPath       string `yaml:"db_path"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Extensions:        []string{".md", ".json", ".txt"},
		Ignore:            []string{".git", ".agentmem", "node_modules"},
		MemoryFile:        "MEMORY.md",
		Snapshot:          ".agentmem/index.db",
		Days:              7,
		Top:               10,
		DedupeThreshold:   0.7,
		PresenceThreshold: 0.4,
		Patterns:          map[string][]string{},
		Sections:          map[string][]string{},
		WakeFiles:         []string{"MEMORY.md", "heartbeat-state.json"},
		Semantic: Semantic{
			OllamaURL:    "http://localhost:11434",
			Model:        "nomic-embed-text",
			ChunkSize:    500,
			MaxFileBytes: 100_000,
			DBPath:       ".agentmem/semantic.db",
		},
	}
}

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML file, expands environment variables and overlays the
// result on Default. A missing file is not an error when optional is true.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return cfg, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML bytes.
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		hasDefault := len(subs) > 2 && subs[2] != nil

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if hasDefault {
			return subs[2]
		}
		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}

// Validate checks ranges and category keys.
func (c *Config) Validate() error {
	var errs []error
	for k := range c.Patterns {
		if !IsCategory(k) {
			errs = append(errs, fmt.Errorf("%w %q in patterns", ErrUnknownCategory, k))
		}
	}
	for k := range c.Sections {
		if !IsCategory(k) {
			errs = append(errs, fmt.Errorf("%w %q in sections", ErrUnknownCategory, k))
		}
	}
	if c.DedupeThreshold < 0 || c.DedupeThreshold > 1 {
		errs = append(errs, fmt.Errorf("dedupe_threshold must be within [0,1], got %v", c.DedupeThreshold))
	}
	if c.PresenceThreshold < 0 || c.PresenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("presence_threshold must be within [0,1], got %v", c.PresenceThreshold))
	}
	if c.Days < 0 {
		errs = append(errs, fmt.Errorf("days must be non-negative, got %d", c.Days))
	}
	for i, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			c.Extensions[i] = "." + ext
		}
	}
	return errors.Join(errs...)
}

// IsCategory reports whether name is one of the five categories.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Path resolves p against Root unless it is already absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// ResolveDir picks the memory directory: explicit flag, then
// $AGENT_MEMORY_DIR, then ~/.openclaw/workspace, then the working directory.
func ResolveDir(flag string) string {
	home, _ := os.UserHomeDir()
	candidates := []string{flag, os.Getenv("AGENT_MEMORY_DIR")}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".openclaw", "workspace"))
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(c); err == nil {
				return abs
			}
			return c
		}
	}
	wd, _ := os.Getwd()
	return wd
}
