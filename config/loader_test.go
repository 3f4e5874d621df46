package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/martinemde/conduit/restpipe"
)

const sampleYAML = `
default: openai
backends:
  openai:
    base_url: https://api.openai.com
    version: v1
    version_placement: path
    auth:
      placement: header
      key: ${CONDUIT_TEST_KEY:sk-fallback}
    max_attempts: 4
    retry_delay: 2s
  gemini:
    base_url: https://generativelanguage.googleapis.com
    version: v1beta
    version_placement: path
    cursor_param: pageToken
    auth:
      placement: query
      query_key: key
      key: ${CONDUIT_TEST_GEMINI_KEY:}
  anthropic:
    base_url: https://api.anthropic.com
    version: v1
    version_placement: path
    beta_placement: header
    beta_headers:
      anthropic-beta: message-batches-2024-09-24
    auth:
      placement: header
      header: x-api-key
      format: "{0}"
      key: sk-ant
    headers:
      anthropic-version: "2023-06-01"
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Default != "openai" {
		t.Errorf("default = %q", f.Default)
	}
	if len(f.Backends) != 3 {
		t.Errorf("backends = %d", len(f.Backends))
	}
}

func TestParseExpandsEnv(t *testing.T) {
	t.Setenv("CONDUIT_TEST_KEY", "sk-from-env")
	f, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := f.Backends["openai"].Auth.Key; got != "sk-from-env" {
		t.Errorf("key = %q, want the env value", got)
	}
}

func TestParseEnvDefault(t *testing.T) {
	os.Unsetenv("CONDUIT_TEST_KEY")
	f, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := f.Backends["openai"].Auth.Key; got != "sk-fallback" {
		t.Errorf("key = %q, want the default", got)
	}
}

func TestParseRejectsMissingBaseURL(t *testing.T) {
	_, err := Parse([]byte("backends:\n  broken:\n    version: v1\n"))
	if err == nil {
		t.Fatal("expected a validation error for a backend without base_url")
	}
}

func TestParseRejectsBadPlacement(t *testing.T) {
	_, err := Parse([]byte(`
backends:
  broken:
    base_url: https://api.example.com
    version_placement: body
`))
	if err == nil {
		t.Fatal("expected a validation error for an unknown placement")
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conduit.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestBackendLookup(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	_, name, err := f.Backend("")
	if err != nil || name != "openai" {
		t.Errorf("default lookup = %q, %v", name, err)
	}
	if _, _, err := f.Backend("missing"); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestSettingsConversion(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	b, name, err := f.Backend("openai")
	if err != nil {
		t.Fatal(err)
	}
	s := b.Settings(name)
	if s.Name != "openai" || s.KeyPlacement != restpipe.PlacementHeader {
		t.Errorf("settings = %+v", s)
	}
	if s.Retry.MaxAttempts != 4 || s.Retry.BaseDelay != 2*time.Second {
		t.Errorf("retry = %+v", s.Retry)
	}

	g, _, err := f.Backend("gemini")
	if err != nil {
		t.Fatal(err)
	}
	gs := g.Settings("gemini")
	if gs.KeyPlacement != restpipe.PlacementQuery || gs.KeyQueryName != "key" {
		t.Errorf("gemini auth = %+v", gs)
	}
	if gs.CursorParam != "pageToken" {
		t.Errorf("cursor param = %q", gs.CursorParam)
	}
}
