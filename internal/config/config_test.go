package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/promptarmor/internal/redact"
	"github.com/ppiankov/promptarmor/internal/telemetry"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, hash, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Targets) == 0 || cfg.Telemetry.Timeout != telemetry.DefaultTimeout {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if !strings.HasPrefix(hash, "sha256:") {
		t.Fatalf("unexpected hash %q", hash)
	}
}

func TestLoadOverridesOnlySetFields(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
targets: [internal.llm]
extra_patterns:
  - name: employee_id
    regex: 'EMP-[0-9]{6}'
    weight: 5
telemetry:
  timeout: 250ms
`)
	cfg, _, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0] != "internal.llm" {
		t.Errorf("targets not overridden: %v", cfg.Targets)
	}
	if len(cfg.Providers) == 0 {
		t.Error("providers default lost")
	}
	if cfg.Telemetry.Timeout != 250*time.Millisecond {
		t.Errorf("timeout = %v", cfg.Telemetry.Timeout)
	}
	if cfg.Telemetry.MaxInFlight != telemetry.DefaultMaxInFlight {
		t.Errorf("max_in_flight default lost: %d", cfg.Telemetry.MaxInFlight)
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatal(err)
	}
	patterns := reg.Patterns()
	if last := patterns[len(patterns)-1].Label; last != "EMPLOYEE_ID" {
		t.Errorf("extra pattern not appended, last label %s", last)
	}
	if reg.Weight(redact.LabelCreditCard) != 10 {
		t.Error("built-in registry not kept under extra_patterns")
	}

	if !cfg.Filter().IsTarget("gw.internal.llm") || cfg.Filter().IsTarget("api.openai.com") {
		t.Error("filter does not reflect targets")
	}
}

func TestLoadRejectsBadPattern(t *testing.T) {
	tests := map[string]string{
		"bad regex": "patterns: [{name: X, regex: '(', weight: 1}]",
		"bad label": "patterns: [{name: '1abc', regex: 'a', weight: 1}]",
		"no name":   "extra_patterns: [{regex: 'a', weight: 1}]",
		"bad yaml":  "targets: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), body)
			if _, _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestHashChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	_, h1, _ := Load(writeConfig(t, dir, "targets: [a.com]\n"))
	_, h2, _ := Load(writeConfig(t, dir, "targets: [b.com]\n"))
	if h1 == h2 {
		t.Fatal("expected different hashes")
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvPath, "/etc/promptarmor.yaml")
	if got := ResolvePath("/tmp/x.yaml"); got != "/tmp/x.yaml" {
		t.Errorf("flag not preferred: %s", got)
	}
	if got := ResolvePath(""); got != "/etc/promptarmor.yaml" {
		t.Errorf("env not used: %s", got)
	}
	t.Setenv(EnvPath, "")
	if got := ResolvePath(""); !strings.HasSuffix(got, filepath.Join(".promptarmor", "config.yaml")) {
		t.Errorf("unexpected default path: %s", got)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	out, err := DefaultConfig().YAML()
	if err != nil {
		t.Fatal(err)
	}
	path := writeConfig(t, t.TempDir(), out)
	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("default YAML does not load: %v", err)
	}
	if cfg.Telemetry.Timeout != telemetry.DefaultTimeout {
		t.Errorf("timeout lost: %v", cfg.Telemetry.Timeout)
	}
}

func TestReloaderCallsBackOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "targets: [a.com]\n")
	_, hash, _ := Load(path)

	var mu sync.Mutex
	var got []string
	r, err := NewReloader(path, hash, func(cfg *Config, _ string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, cfg.Targets...)
	})
	if err != nil {
		t.Fatal(err)
	}
	r.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	// Give the watcher a moment, then write an invalid and a valid version.
	time.Sleep(50 * time.Millisecond)
	writeConfig(t, dir, "patterns: [{name: X, regex: '(', weight: 1}]\n")
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "targets: [b.com]\n")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "b.com" {
		t.Fatalf("expected one reload with b.com, got %v", got)
	}
}
