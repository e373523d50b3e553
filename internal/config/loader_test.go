package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().Load(filepath.Join(t.TempDir(), ".specsync.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("expected defaults %+v, got %+v", want, cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".specsync.yaml")
	content := `
specifications_dir: contracts
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.SpecsDir != "contracts" {
		t.Errorf("expected contracts, got %q", cfg.SpecsDir)
	}
	// Unset fields keep their defaults.
	if cfg.ImplDir != "implementations" || cfg.StateDir != ".specsync" {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug, got %q", cfg.Logging.Level)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := NewLoader().Parse([]byte("{}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestParseExpandsEnvVars(t *testing.T) {
	t.Setenv("SPECSYNC_TEST_DIR", "contracts")

	cfg, err := NewLoader().Parse([]byte("specifications_dir: ${SPECSYNC_TEST_DIR}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.SpecsDir != "contracts" {
		t.Errorf("expected expanded value, got %q", cfg.SpecsDir)
	}
}

func TestParseKeepsUnsetEnvPlaceholder(t *testing.T) {
	cfg, err := NewLoader().Parse([]byte("specifications_dir: ${SPECSYNC_UNSET_VAR}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.SpecsDir != "${SPECSYNC_UNSET_VAR}" {
		t.Errorf("unset variables must keep the placeholder, got %q", cfg.SpecsDir)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty specs dir", `specifications_dir: ""`},
		{"empty impl dir", `implementations_dir: ""`},
		{"empty state dir", `state_dir: ""`},
		{"state dir overlaps specs", "state_dir: specifications"},
		{"state dir overlaps impls", "state_dir: implementations"},
		{"bad log level", "logging:\n  level: verbose"},
	}
	for _, tt := range tests {
		if _, err := NewLoader().Parse([]byte(tt.yaml)); err == nil {
			t.Errorf("%s: expected a validation error", tt.name)
		}
	}
}
