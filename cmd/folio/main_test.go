package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/storage"
	"go.uber.org/zap"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after positionals are moved first",
			args:     []string{"reports", "quarterly revenue", "--top-k", "3"},
			expected: []string{"--top-k", "3", "reports", "quarterly revenue"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"--top-k", "3", "reports", "q"},
			expected: []string{"--top-k", "3", "reports", "q"},
		},
		{
			name:     "positionals only returns unchanged",
			args:     []string{"report.pdf"},
			expected: []string{"report.pdf"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := argsReorder(tt.args); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"quarterly", "revenue"}, "quarterly revenue"},
		{[]string{"quarterly revenue"}, "quarterly revenue"},
		{[]string{"  padded  "}, "padded"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := buildSearchQuery(tt.args); got != tt.want {
			t.Errorf("buildSearchQuery(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestLoadConfig_defaultsWhenDefaultPathMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved = %q, want empty for defaults", resolved)
	}
	if cfg.Server.Port != 8080 || cfg.Collection.Policy != "fail" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_usesCwdConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != defaultConfigPath || !cfg.Debug {
		t.Errorf("resolved = %q, debug = %v", resolved, cfg.Debug)
	}
}

func TestLoadConfig_explicitPathMustExist(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config")
	}
}

func TestInitializeComponents_ingestAndSearch(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
store:
  type: memory
embedding:
  model_dir: "./no-model"
  allow_mock: true
  dimensions: 16
registry:
  database: "./data/uploads.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	c, err := initializeComponents(cfg, zap.NewNop(), true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, ok := c.Registry.(*storage.SQLiteRegistry); !ok {
		t.Errorf("registry = %T, want SQLite when a database is configured", c.Registry)
	}

	doc := filepath.Join(dir, "otters.txt")
	if err := os.WriteFile(doc, []byte("Otters live near rivers.\fThey eat fish and crabs."), 0600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	res, err := c.Indexer.IndexFile(ctx, doc, "otters")
	if err != nil {
		t.Fatal(err)
	}
	if res.Pages != 2 || res.Chunks != 2 {
		t.Errorf("result = %+v", res)
	}

	resp, err := c.Engine.Search(ctx, &models.SearchQuery{Collection: "otters", Query: "fish", TopK: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("results = %+v", resp.Results)
	}
	if dim, err := c.Embedder.Dimension(ctx); err != nil || dim != 16 {
		t.Errorf("dimension = %d, %v", dim, err)
	}
}

func TestInitializeComponents_invalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{"policy", func(cfg *config.Config) { cfg.Collection.Policy = "sometimes" }},
		{"distance", func(cfg *config.Config) { cfg.Collection.Distance = "hamming" }},
		{"store", func(cfg *config.Config) { cfg.Store.Type = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			cfg, _, err := loadConfig(defaultConfigPath)
			if err != nil {
				t.Fatal(err)
			}
			cfg.Store.Type = "memory"
			tt.mutate(cfg)
			if c, err := initializeComponents(cfg, zap.NewNop(), false); err == nil {
				c.Close()
				t.Fatal("expected error")
			}
		})
	}
}

func TestWithSuggestion(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, _, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Store.Type = "memory"
	c, err := initializeComponents(cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()
	if err := c.Indexer.Collections().Create(ctx, "reports", 4); err != nil {
		t.Fatal(err)
	}

	base := errors.New("collection not found: report")
	err = withSuggestion(ctx, c.Indexer.Collections(), "report", base)
	if !errors.Is(err, base) || !strings.Contains(err.Error(), "did you mean reports?") {
		t.Errorf("err = %v", err)
	}
	if err := withSuggestion(ctx, c.Indexer.Collections(), "zzzzzzzz", base); err != base {
		t.Errorf("no suggestion expected, got %v", err)
	}
}
