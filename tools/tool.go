// Package tools provides the tool system: the registry of capabilities the
// model may invoke, the dispatcher that validates and routes calls, and the
// tool bodies themselves.
//
// Information Hiding:
// - Tool execution details hidden behind Spec.Func
// - Argument decoding and filtering internalized in the dispatcher
// - Sandbox decisions surface only as Result values, never as Go errors
package tools

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/lorihq/lori/sandbox"
)

// AllowOutsideRootKey is the reserved argument key set by the agent after a
// caller approves out-of-sandbox access. It bypasses schema filtering and is
// consumed by tools that resolve paths.
const AllowOutsideRootKey = "__allow_outside_root"

// Spec declares one tool: its calling schema and its executor. Specs are
// built once at registry construction and never mutated.
type Spec struct {
	Name        string
	Description string
	// Params maps parameter name to a short type hint ("str", "int?",
	// "list[str]?"); a trailing "?" marks the parameter optional.
	Params map[string]string
	Func   func(ctx context.Context, args map[string]any) Result
}

// Limits bounds tool resource usage.
type Limits struct {
	MaxReadBytes int64
	MaxWebChars  int
	Timeout      time.Duration
}

// DefaultLimits matches the config package defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxReadBytes: 512 * 1024,
		MaxWebChars:  6000,
		Timeout:      60 * time.Second,
	}
}

// Toolbox carries the shared collaborators the tool bodies need. One Toolbox
// backs one registry; it is safe for concurrent use after construction.
type Toolbox struct {
	policy     *sandbox.Policy
	limits     Limits
	shellAllow map[string]bool
	httpClient *http.Client
	logger     *zap.Logger
}

// NewToolbox creates a toolbox over the given sandbox policy.
func NewToolbox(policy *sandbox.Policy, limits Limits, shellAllow []string, logger *zap.Logger) *Toolbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	allow := make(map[string]bool, len(shellAllow))
	for _, cmd := range shellAllow {
		if cmd = strings.TrimSpace(cmd); cmd != "" {
			allow[cmd] = true
		}
	}
	return &Toolbox{
		policy:     policy,
		limits:     limits,
		shellAllow: allow,
		httpClient: &http.Client{Timeout: limits.Timeout},
		logger:     logger,
	}
}

// WithHTTPClient overrides the HTTP client (tests inject a stub transport).
func (tb *Toolbox) WithHTTPClient(client *http.Client) *Toolbox {
	tb.httpClient = client
	return tb
}

// allowOutside reads the reserved approval flag out of raw args.
func allowOutside(args map[string]any) bool {
	v, _ := args[AllowOutsideRootKey].(bool)
	return v
}

// decodeArgs decodes a filtered argument map into a typed struct. Weak
// typing tolerates the model sending "3" where 3 is meant.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("argumentos inválidos: %w", err)
	}
	return nil
}

// readableOrConfirm resolves a path for reading, translating the sandbox's
// outside-read refusal into the confirmation signal. Any other refusal is an
// ordinary failure.
func (tb *Toolbox) readableOrConfirm(action, path string, args map[string]any, raw map[string]any) (string, *Result) {
	abs, err := tb.policy.ResolveReadable(path, allowOutside(raw))
	if err == nil {
		return abs, nil
	}
	if err == sandbox.ErrOutsideRead {
		r := Confirm(action, path, args, err.Error())
		return "", &r
	}
	r := Fail("%s", err.Error())
	return "", &r
}

// writableOrConfirm is the write-side counterpart of readableOrConfirm.
func (tb *Toolbox) writableOrConfirm(action, path string, args map[string]any, raw map[string]any) (string, *Result) {
	abs, err := tb.policy.ResolveWritable(path, allowOutside(raw))
	if err == nil {
		return abs, nil
	}
	if err == sandbox.ErrOutsideWrite {
		r := Confirm(action, path, args, err.Error())
		return "", &r
	}
	r := Fail("%s", err.Error())
	return "", &r
}

// paramNames returns declared parameter names in sorted order.
func (s Spec) paramNames() []string {
	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
