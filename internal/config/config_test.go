package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/saadjs/kcal-snap/internal/locale"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.App.LocaleTag() != locale.Thai {
		t.Errorf("locale = %q, want th", cfg.App.LocaleTag())
	}
	if cfg.App.HTTP.Address() != ":8080" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Nutrition.TDEE != 2000 || cfg.Analysis.Timeout != 30*time.Second || cfg.Drafts.MaxOpen != 8 || cfg.Drafts.IdleTimeout != 30*time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileExpandsEnv(t *testing.T) {
	t.Setenv("SNAP_TEST_KEY", "from-env")
	path := writeConfig(t, `
app:
  log_level: debug
  locale: en-US
  http:
    port: 9090
nutrition:
  tdee: 2400
weights:
  seed_sample: true
analysis:
  providers: [rekognition, gemini]
  timeout: 5s
  gemini:
    api_key: ${SNAP_TEST_KEY}
  rekognition:
    region: ap-southeast-1
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.App.LocaleTag() != locale.English {
		t.Errorf("locale = %q", cfg.App.LocaleTag())
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Nutrition.TDEE != 2400 || !cfg.Weights.SeedSample {
		t.Errorf("unexpected values: %+v", cfg)
	}
	if cfg.Analysis.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Analysis.Timeout)
	}
	if cfg.Analysis.Gemini.APIKey != "from-env" {
		t.Errorf("api key = %q", cfg.Analysis.Gemini.APIKey)
	}
	if cfg.Analysis.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("model default lost: %q", cfg.Analysis.Gemini.Model)
	}
	if !cfg.Analysis.Enabled(ProviderRekognition) || cfg.Analysis.Providers[0] != ProviderRekognition {
		t.Errorf("providers = %v", cfg.Analysis.Providers)
	}
}

func TestLoadFileAPIKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "legacy-key")
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Analysis.Gemini.APIKey != "legacy-key" {
		t.Errorf("api key = %q, want legacy-key", cfg.Analysis.Gemini.APIKey)
	}
}

func TestLoadFileNutrientSources(t *testing.T) {
	t.Setenv("USDA_API_KEY", "usda-env")
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	n := cfg.Analysis.Nutrients
	if len(n.Sources) != 2 || n.Sources[0] != NutrientSourceUSDA || n.USDA.APIKey != "usda-env" {
		t.Errorf("unexpected nutrients config: %+v", n)
	}

	cfg, err = LoadFile(writeConfig(t, "analysis:\n  nutrients:\n    sources: [openfoodfacts]\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Analysis.Nutrients.Sources; len(got) != 1 || got[0] != NutrientSourceOpenFoodFacts {
		t.Errorf("sources = %v", got)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"provider": "analysis:\n  providers: [openai]\n",
		"locale":   "app:\n  locale: fr\n",
		"port":     "app:\n  http:\n    port: 70000\n",
		"timeout":  "analysis:\n  timeout: 10ms\n",
		"source":   "analysis:\n  nutrients:\n    sources: [fatsecret]\n",
		"drafts":   "drafts:\n  max_open: -1\n",
		"idle":     "drafts:\n  idle_timeout: 5s\n",
	}
	for name, body := range cases {
		_, err := LoadFile(writeConfig(t, body))
		if err == nil {
			t.Errorf("%s: expected validation error", name)
			continue
		}
		if !strings.Contains(err.Error(), "validation failed") {
			t.Errorf("%s: unexpected error %v", name, err)
		}
	}
}
