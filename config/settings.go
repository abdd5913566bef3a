// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Home-relative path expansion

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultShellAllow is the shell.exec command allowlist used when
// ASSISTANT_SHELL_ALLOW is not set.
const DefaultShellAllow = "cat,ls,rg,sed,awk,head,tail,cut,stat,date,uname,df,du,wc,sort,uniq,whoami,python,python3,git,echo,black,ruff"

// DefaultDenylist protects system paths from every filesystem tool,
// regardless of approvals or global flags.
const DefaultDenylist = "/proc:/sys:/dev:/run:/boot"

// Settings holds all application configuration.
type Settings struct {
	LLM     LLMConfig
	Sandbox SandboxConfig
	Limits  LimitsConfig

	// StateDir holds session state (the conversation history database).
	StateDir string

	// Verbose enables debug logging of tool calls and results.
	Verbose bool
}

// LLMConfig holds model backend configuration.
type LLMConfig struct {
	Provider      string
	Model         string
	OllamaBaseURL string
}

// SandboxConfig holds the path policy configuration.
type SandboxConfig struct {
	Root         string
	Denylist     []string
	ReadOnlyDirs []string
	GlobalRead   bool
	GlobalWrite  bool
	ShellAllow   []string
}

// LimitsConfig bounds tool resource usage.
type LimitsConfig struct {
	MaxReadBytes int64
	MaxWebChars  int
	Timeout      time.Duration
}

// New loads settings from environment variables, applying defaults.
// Returns an error if a numeric variable contains an invalid value.
func New() (Settings, error) {
	home := homeDir()

	maxReadBytes, err := getEnvInt64("ASSISTANT_MAX_READ_BYTES", 512*1024)
	if err != nil {
		return Settings{}, err
	}
	maxWebChars, err := getEnvInt("ASSISTANT_MAX_WEB_CHARS", 6000)
	if err != nil {
		return Settings{}, err
	}
	timeoutSecs, err := getEnvInt("ASSISTANT_TIMEOUT_SECS", 60)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		LLM: LLMConfig{
			Provider:      getEnvStr("ASSISTANT_PROVIDER", "ollama"),
			Model:         getEnvStr("ASSISTANT_MODEL", "mistral"),
			OllamaBaseURL: getEnvStr("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Sandbox: SandboxConfig{
			Root:         getEnvStr("ASSISTANT_ROOT", home),
			Denylist:     getEnvPaths("ASSISTANT_DENYLIST", DefaultDenylist),
			ReadOnlyDirs: getEnvPaths("ASSISTANT_READONLY_DIRS", ""),
			GlobalRead:   getEnvBool("ASSISTANT_GLOBAL_READ"),
			GlobalWrite:  getEnvBool("ASSISTANT_GLOBAL_WRITE"),
			ShellAllow:   splitList(getEnvStr("ASSISTANT_SHELL_ALLOW", DefaultShellAllow), ","),
		},
		Limits: LimitsConfig{
			MaxReadBytes: maxReadBytes,
			MaxWebChars:  maxWebChars,
			Timeout:      time.Duration(timeoutSecs) * time.Second,
		},
		StateDir: getEnvStr("ASSISTANT_STATE_DIR", filepath.Join(home, ".local", "share", "lori")),
		Verbose:  getEnvBool("ASSISTANT_VERBOSE"),
	}, nil
}

// MustNew loads settings and panics on invalid environment values.
// Use this only when configuration errors should be fatal.
func MustNew() Settings {
	settings, err := New()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// Environment variable helpers with proper error handling

func getEnvStr(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string) bool {
	switch os.Getenv(key) {
	case "", "0", "false", "False":
		return false
	}
	return true
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

// getEnvPaths splits a colon-separated path list.
func getEnvPaths(key, defaultVal string) []string {
	return splitList(getEnvStr(key, defaultVal), ":")
}

func splitList(raw, sep string) []string {
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
