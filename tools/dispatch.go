package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Dispatcher validates and routes tool calls against a registry. It is
// side-effect-free itself; whatever the tool body does is the side effect.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// Registry returns the underlying registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch normalizes aliases, filters arguments down to the declared
// parameter set, and invokes the executor. Errors never cross this boundary
// as Go errors; every outcome is a Result, including a panicking tool body.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (result Result) {
	name, args = NormalizeAlias(name, args)

	spec, ok := d.registry.Lookup(name)
	if !ok {
		return Fail("unknown tool: %s", name)
	}

	filtered := filterArgs(spec, args)
	d.logger.Debug("dispatching tool",
		zap.String("tool", name),
		zap.Any("args", filtered))

	defer func() {
		if r := recover(); r != nil {
			d.logger.Debug("tool body recovered",
				zap.String("tool", name),
				zap.Any("panic", r))
			result = Fail("tool panic: %v", r)
		}
	}()

	result = spec.Func(ctx, filtered)
	d.logger.Debug("tool result",
		zap.String("tool", name),
		zap.Bool("ok", result.Ok),
		zap.Bool("confirm_required", result.ConfirmRequired),
		zap.String("error", result.Error))
	return result
}

// filterArgs drops argument keys the tool does not declare, so the model
// cannot smuggle unexpected parameters into a tool body. The reserved
// approval key always passes.
func filterArgs(spec Spec, args map[string]any) map[string]any {
	filtered := make(map[string]any, len(args))
	for key, value := range args {
		if key == AllowOutsideRootKey {
			filtered[key] = value
			continue
		}
		if _, declared := spec.Params[key]; declared {
			filtered[key] = value
		}
	}
	return filtered
}

// NormalizeAlias rewrites legacy and alternate tool names (and their
// argument shapes) to canonical form. Total and side-effect-free: unknown
// names pass through untouched.
func NormalizeAlias(name string, args map[string]any) (string, map[string]any) {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}

	switch name {
	case "fs.writeFile", "fs-extra.writeFile":
		name = "fs.write"
		if data, ok := out["data"]; ok {
			if _, has := out["content"]; !has {
				out["content"] = data
			}
			delete(out, "data")
		}
	case "mkdir", "fs.mkdirp":
		name = "fs.mkdir"
	case "cp", "filecopy":
		name = "fs.copy"
	case "edit.ini":
		// Some models emit edit.ini with content=["replace", old, new].
		name = "edit.replace"
		if content, ok := out["content"].([]any); ok && len(content) >= 3 {
			if op, _ := content[0].(string); op == "replace" || op == "Replace" {
				out = map[string]any{
					"path":    out["path"],
					"find":    trimQuotes(toString(content[1])),
					"replace": trimQuotes(toString(content[2])),
				}
			}
		}
	case "web.openMany":
		name = "web.open"
	case "git.checkout", "git.switchBranch":
		name = "git.branch"
		if _, has := out["action"]; !has {
			out["action"] = "switch"
		}
	case "git.createBranch", "git.newBranch":
		name = "git.branch"
		if _, has := out["action"]; !has {
			out["action"] = "create"
		}
	}
	return name, out
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func trimQuotes(s string) string {
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			s = s[1 : len(s)-1]
			continue
		}
		break
	}
	return s
}
