package config

import (
	"os"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	for _, key := range []string{
		"ASSISTANT_PROVIDER", "ASSISTANT_MODEL", "ASSISTANT_DENYLIST",
		"ASSISTANT_SHELL_ALLOW", "ASSISTANT_TIMEOUT_SECS", "ASSISTANT_GLOBAL_READ",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	settings, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", settings.LLM.Provider)
	}
	if settings.LLM.Model != "mistral" {
		t.Errorf("expected model 'mistral', got %q", settings.LLM.Model)
	}
	if settings.Limits.Timeout != 60*time.Second {
		t.Errorf("expected 60s timeout, got %v", settings.Limits.Timeout)
	}
	if settings.Limits.MaxReadBytes != 512*1024 {
		t.Errorf("expected 512KiB read limit, got %d", settings.Limits.MaxReadBytes)
	}
	denylist := settings.Sandbox.Denylist
	if len(denylist) != 5 || denylist[0] != "/proc" || denylist[4] != "/boot" {
		t.Errorf("unexpected default denylist: %v", denylist)
	}
	if settings.Sandbox.GlobalRead || settings.Sandbox.GlobalWrite {
		t.Error("global flags should default to off")
	}
	found := false
	for _, cmd := range settings.Sandbox.ShellAllow {
		if cmd == "git" {
			found = true
		}
	}
	if !found {
		t.Errorf("default shell allowlist missing git: %v", settings.Sandbox.ShellAllow)
	}
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("ASSISTANT_MODEL", "llama3.1")
	t.Setenv("ASSISTANT_ROOT", "/srv/dados")
	t.Setenv("ASSISTANT_DENYLIST", "/proc:/etc")
	t.Setenv("ASSISTANT_SHELL_ALLOW", "echo, ls ,")
	t.Setenv("ASSISTANT_GLOBAL_READ", "1")
	t.Setenv("ASSISTANT_TIMEOUT_SECS", "15")

	settings, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Model != "llama3.1" {
		t.Errorf("expected model override, got %q", settings.LLM.Model)
	}
	if settings.Sandbox.Root != "/srv/dados" {
		t.Errorf("expected root override, got %q", settings.Sandbox.Root)
	}
	if len(settings.Sandbox.Denylist) != 2 || settings.Sandbox.Denylist[1] != "/etc" {
		t.Errorf("unexpected denylist: %v", settings.Sandbox.Denylist)
	}
	if len(settings.Sandbox.ShellAllow) != 2 {
		t.Errorf("expected trimmed two-entry allowlist, got %v", settings.Sandbox.ShellAllow)
	}
	if !settings.Sandbox.GlobalRead {
		t.Error("expected GlobalRead on")
	}
	if settings.Limits.Timeout != 15*time.Second {
		t.Errorf("expected 15s timeout, got %v", settings.Limits.Timeout)
	}
}

func TestNewInvalidNumber(t *testing.T) {
	t.Setenv("ASSISTANT_TIMEOUT_SECS", "logo")
	if _, err := New(); err == nil {
		t.Error("expected error for invalid ASSISTANT_TIMEOUT_SECS")
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		val  string
		want bool
	}{
		{"", false},
		{"0", false},
		{"false", false},
		{"False", false},
		{"1", true},
		{"true", true},
		{"sim", true},
	}
	for _, tt := range tests {
		t.Setenv("LORI_TEST_BOOL", tt.val)
		if got := getEnvBool("LORI_TEST_BOOL"); got != tt.want {
			t.Errorf("getEnvBool(%q) = %v, want %v", tt.val, got, tt.want)
		}
	}
}
