package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixturePath(name string) string {
	return filepath.Join("..", "..", "test", "fixtures", name)
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()
	cfg, err := Load(fixturePath(filepath.Join("basic", "profiles.json")))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(cfg.Profiles) != 2 {
		t.Fatalf("loaded %d profiles, want 2", len(cfg.Profiles))
	}

	def, ok := cfg.Profiles["default"]
	if !ok {
		t.Fatal("missing 'default' profile")
	}
	if def.Retries == nil || def.Retries.Count == nil || *def.Retries.Count != 3 {
		t.Errorf("default retries.count = %+v, want 3", def.Retries)
	}
	if len(def.Overrides) != 1 {
		t.Fatalf("default has %d overrides, want 1", len(def.Overrides))
	}
	if def.Overrides[0].Filter != "test(test_full_estimator)" {
		t.Errorf("override filter = %q", def.Overrides[0].Filter)
	}
	if def.Overrides[0].ThreadsRequired == nil || *def.Overrides[0].ThreadsRequired != 4 {
		t.Errorf("override threads-required = %+v, want 4", def.Overrides[0].ThreadsRequired)
	}

	ci, ok := cfg.Profiles["ci"]
	if !ok {
		t.Fatal("missing 'ci' profile")
	}
	if ci.FailFast == nil || !*ci.FailFast {
		t.Error("ci fail-fast should be true")
	}
	if ci.FailureOutput != "final" {
		t.Errorf("ci failure-output = %q, want final", ci.FailureOutput)
	}
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()
	cfg, err := Load(fixturePath(filepath.Join("yaml", "profiles.yaml")))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	def, ok := cfg.Profiles["default"]
	if !ok {
		t.Fatal("missing 'default' profile")
	}
	if def.SlowTimeout == nil || def.SlowTimeout.Period != "60s" {
		t.Errorf("slow-timeout.period = %+v, want 60s", def.SlowTimeout)
	}
	if len(def.Overrides) != 1 {
		t.Fatalf("default has %d overrides, want 1", len(def.Overrides))
	}
}

func TestLoad_UnknownFieldFailsClosed(t *testing.T) {
	t.Parallel()
	_, err := Load(fixturePath(filepath.Join("invalid", "unknown-field.json")))
	if err == nil {
		t.Fatal("Load() accepted a config with an unknown field")
	}
}

func TestLoad_UnknownFieldYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	content := "profiles:\n  default:\n    max-banana: 7\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() accepted a YAML config with an unknown field")
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unsupported config format") {
		t.Errorf("Load() error = %v, want unsupported format", err)
	}
}

func TestLoadAndValidate_BadFilter(t *testing.T) {
	t.Parallel()
	_, err := LoadAndValidate(fixturePath(filepath.Join("invalid", "bad-filter.json")))
	if err == nil {
		t.Fatal("LoadAndValidate() accepted a malformed filter")
	}
	if !strings.Contains(err.Error(), "unknown filter function") {
		t.Errorf("error = %v, want unknown filter function", err)
	}
}

func TestLoadAndValidate_Basic(t *testing.T) {
	t.Parallel()
	cfg, err := LoadAndValidate(fixturePath(filepath.Join("basic", "profiles.json")))
	if err != nil {
		t.Fatalf("LoadAndValidate() error: %v", err)
	}
	if len(cfg.Profiles) != 2 {
		t.Errorf("loaded %d profiles, want 2", len(cfg.Profiles))
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()
	valid := []struct {
		in   string
		want time.Duration
	}{
		{"60s", 60 * time.Second},
		{"1s", time.Second},
		{"10m", 10 * time.Minute},
		{"2h", 2 * time.Hour},
		{"120s", 2 * time.Minute},
	}
	for _, tt := range valid {
		got, err := ParseDuration(tt.in)
		if err != nil {
			t.Errorf("ParseDuration(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	invalid := []string{"", "s", "10", "10x", "-5s", "1.5m", "10 m", "m10"}
	for _, in := range invalid {
		if _, err := ParseDuration(in); err == nil {
			t.Errorf("ParseDuration(%q) succeeded, want error", in)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()
	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{
			name:    "no profiles",
			cfg:     &Config{},
			wantErr: "at least one profile is required",
		},
		{
			name: "bad profile name",
			cfg: &Config{Profiles: map[string]ProfileConfig{
				"My Profile": {},
			}},
			wantErr: "profile name must match",
		},
		{
			name: "bad backoff",
			cfg: &Config{Profiles: map[string]ProfileConfig{
				"ci": {Retries: &RetriesConfig{Backoff: "linear"}},
			}},
			wantErr: `must be "fixed" or "exponential"`,
		},
		{
			name: "negative count",
			cfg: &Config{Profiles: map[string]ProfileConfig{
				"ci": {Retries: &RetriesConfig{Count: intPtr(-1)}},
			}},
			wantErr: "must not be negative",
		},
		{
			name: "bad delay",
			cfg: &Config{Profiles: map[string]ProfileConfig{
				"ci": {Retries: &RetriesConfig{Delay: "fast"}},
			}},
			wantErr: "invalid duration",
		},
		{
			name: "bad failure output",
			cfg: &Config{Profiles: map[string]ProfileConfig{
				"ci": {FailureOutput: "sometimes"},
			}},
			wantErr: `must be "immediate", "final", or "never"`,
		},
		{
			name: "zero terminate-after",
			cfg: &Config{Profiles: map[string]ProfileConfig{
				"ci": {SlowTimeout: &SlowTimeoutConfig{TerminateAfter: intPtr(0)}},
			}},
			wantErr: "must be at least 1",
		},
		{
			name: "bad override filter",
			cfg: &Config{Profiles: map[string]ProfileConfig{
				"ci": {Overrides: []OverrideConfig{{Filter: "kind(x)"}}},
			}},
			wantErr: "unknown filter function",
		},
		{
			name: "zero threads-required",
			cfg: &Config{Profiles: map[string]ProfileConfig{
				"ci": {Overrides: []OverrideConfig{{Filter: "", ThreadsRequired: intPtr(0)}}},
			}},
			wantErr: "must be at least 1",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.cfg)
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_EmptyFilterAllowed(t *testing.T) {
	t.Parallel()
	intPtr := func(n int) *int { return &n }
	cfg := &Config{Profiles: map[string]ProfileConfig{
		"ci": {Overrides: []OverrideConfig{{Filter: "", ThreadsRequired: intPtr(2)}}},
	}}

	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() rejected profile-wide override with empty filter: %v", err)
	}
}
