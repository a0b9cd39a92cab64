package snap

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/saadjs/kcal-snap/internal/model"
)

func TestRootHelp(t *testing.T) {
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"--help"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute root help: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected help output")
	}
	for _, name := range []string{"serve", "mcp", "analyze", "version"} {
		if !strings.Contains(buf.String(), name) {
			t.Fatalf("help output missing %s command", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "kcal-snap ") {
		t.Fatalf("unexpected version output %q", buf.String())
	}
}

func TestAnalyzeRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfg, []byte("analysis:\n  providers: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	img := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(img, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"--config", cfg, "analyze", img})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "image") {
		t.Fatalf("expected image validation error, got %v", err)
	}
}

func TestPrintAnalyzedFood(t *testing.T) {
	food := model.AnalyzedFood{Name: "ข้าวผัด", Nutrients: model.NutrientProfile{Calories: 450, Protein: 12}, Provider: "gemini"}

	buf := &bytes.Buffer{}
	if err := printAnalyzedFood(buf, food, false); err != nil {
		t.Fatalf("print text: %v", err)
	}
	if !strings.Contains(buf.String(), "Food: ข้าวผัด") || !strings.Contains(buf.String(), "Calories: 450.0") {
		t.Fatalf("unexpected text output: %s", buf.String())
	}

	buf.Reset()
	if err := printAnalyzedFood(buf, food, true); err != nil {
		t.Fatalf("print json: %v", err)
	}
	var decoded model.AnalyzedFood
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json output: %v", err)
	}
	if decoded.Name != food.Name {
		t.Fatalf("name = %q", decoded.Name)
	}
}
