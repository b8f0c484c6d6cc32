package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"greencheck/config"
	"greencheck/internal/adapter/memstore"
	"greencheck/internal/adapter/store"
)

func TestApplyOverridesFromEnv(t *testing.T) {
	t.Setenv("GREENCHECK_STORE_DRIVER", "sqlite")
	t.Setenv("GREENCHECK_LLM_API_KEY", "secret")
	t.Setenv("GREENCHECK_LLM_BASE_URL", "https://api.openai.com/v1")
	t.Setenv("GREENCHECK_RETRIEVE_TOP_K", "7")

	vp := viper.New()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(replacer())
	vp.AutomaticEnv()

	cfg := config.DefaultConfig()
	applyOverrides(vp, cfg)

	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q", cfg.Store.Driver)
	}
	if cfg.LLM.APIKey != "secret" {
		t.Errorf("LLM.APIKey = %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
	if cfg.Retrieve.TopK != 7 {
		t.Errorf("Retrieve.TopK = %d", cfg.Retrieve.TopK)
	}
	if cfg.LLM.Model != config.DefaultConfig().LLM.Model {
		t.Errorf("unset key changed: LLM.Model = %q", cfg.LLM.Model)
	}
}

func TestOpenStoreDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Store.Driver = "memory"
	st, err := openStore(ctx, cfg, dir, zap.NewNop())
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := st.(*memstore.MemoryStore); !ok {
		t.Errorf("memory driver returned %T", st)
	}
	st.Close()

	cfg.Store.Driver = "bolt"
	cfg.Store.Path = filepath.Join("data", "corpus.db")
	st, err = openStore(ctx, cfg, dir, zap.NewNop())
	if err != nil {
		t.Fatalf("bolt: %v", err)
	}
	if _, ok := st.(*store.BoltStore); !ok {
		t.Errorf("bolt driver returned %T", st)
	}
	st.Close()

	cfg.Store.Driver = "cassandra"
	if _, err := openStore(ctx, cfg, dir, zap.NewNop()); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestNewAppLocalOnly(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	cfg := config.DefaultConfig()
	cfg.Store.Driver = "memory"

	a, err := newApp(context.Background(), cfg, t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	if a.llmEnabled {
		t.Error("llmEnabled should be false without an API key")
	}

	res, err := a.seed.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	resp, err := a.detect.Detect(context.Background(), "Our packaging is recyclable and sustainable.")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if resp.ContextUsed == 0 {
		t.Errorf("expected reference context after seeding %s", res.DocumentID)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("0123456789abc", 10); got != "0123456..." {
		t.Errorf("truncate() = %q", got)
	}
}

func TestDetectInputsFromDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.txt":         "Our packaging is 100% natural.",
		"nested/b.md":   "Carbon neutral by 2030.",
		"drafts/c.txt":  "Green everything.",
		"notes/d.json":  `{"claim": "eco"}`,
		"nested/e.html": "<p>Zero waste stores.</p>",
	}
	for name, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	t.Cleanup(func() {
		detectDir, detectInclude, detectExclude = "", nil, nil
	})
	detectDir = dir
	detectExclude = []string{"drafts/**"}

	inputs, err := detectInputs(nil)
	if err != nil {
		t.Fatalf("detectInputs: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "nested", "b.md"),
		filepath.Join(dir, "nested", "e.html"),
	}
	if len(inputs) != len(want) {
		t.Fatalf("got %d inputs, want %d", len(inputs), len(want))
	}
	for i, in := range inputs {
		if in.name != want[i] {
			t.Errorf("input %d = %s, want %s", i, in.name, want[i])
		}
	}
	if inputs[0].text != files["a.txt"] {
		t.Errorf("a.txt text = %q", inputs[0].text)
	}
	if !strings.Contains(inputs[2].text, "Zero waste stores.") || strings.Contains(inputs[2].text, "<p>") {
		t.Errorf("e.html text = %q", inputs[2].text)
	}

	detectInclude = []string{"**/*.md"}
	detectExclude = nil
	inputs, err = detectInputs(nil)
	if err != nil {
		t.Fatalf("detectInputs with include: %v", err)
	}
	if len(inputs) != 1 || inputs[0].name != filepath.Join(dir, "nested", "b.md") {
		t.Errorf("include filter returned %v", inputs)
	}

	detectInclude = []string{"**/*.pdf"}
	if _, err := detectInputs(nil); err == nil {
		t.Error("expected an error when nothing matches")
	}
}
