package tools

import (
	"encoding/json"
	"fmt"
)

// Result is the uniform outcome of a tool invocation. Tool-specific payload
// fields live in Extra; on the wire they are flattened alongside the fixed
// fields so the model sees one flat JSON object.
type Result struct {
	Ok    bool
	Error string

	// ConfirmRequired marks a refusal that the caller may override by
	// approving out-of-sandbox access and re-invoking.
	ConfirmRequired bool
	Action          string
	Path            string
	Args            map[string]any
	Reason          string

	Extra map[string]any
}

// OK builds a successful result carrying the given payload.
func OK(extra map[string]any) Result {
	return Result{Ok: true, Extra: extra}
}

// Fail builds an error result. The format string follows fmt.Sprintf.
func Fail(format string, args ...any) Result {
	return Result{Ok: false, Error: fmt.Sprintf(format, args...)}
}

// Confirm builds the confirmation-required refusal for a path outside the
// allowed locations. Args echoes the original arguments so the call can be
// replayed verbatim after approval.
func Confirm(action, path string, args map[string]any, reason string) Result {
	return Result{
		Ok:              false,
		ConfirmRequired: true,
		Action:          action,
		Path:            path,
		Args:            args,
		Reason:          reason,
	}
}

// Get returns a payload field by name.
func (r Result) Get(key string) (any, bool) {
	v, ok := r.Extra[key]
	return v, ok
}

// GetString returns a payload field as a string, empty when absent or not a
// string.
func (r Result) GetString(key string) string {
	s, _ := r.Extra[key].(string)
	return s
}

// fixedResultKeys are the wire names owned by the fixed fields; payload keys
// never shadow them.
var fixedResultKeys = map[string]bool{
	"ok": true, "error": true, "confirm_required": true,
	"action": true, "path": true, "args": true, "reason": true,
}

// MarshalJSON flattens Extra into the top-level object.
func (r Result) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(r.Extra)+7)
	for k, v := range r.Extra {
		if !fixedResultKeys[k] {
			obj[k] = v
		}
	}
	obj["ok"] = r.Ok
	if r.Error != "" {
		obj["error"] = r.Error
	}
	if r.ConfirmRequired {
		obj["confirm_required"] = true
		obj["action"] = r.Action
		obj["path"] = r.Path
		obj["args"] = r.Args
		obj["reason"] = r.Reason
	}
	return json.Marshal(obj)
}

// UnmarshalJSON splits a flat wire object back into fixed fields and Extra.
func (r *Result) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = Result{}
	r.Ok, _ = obj["ok"].(bool)
	r.Error, _ = obj["error"].(string)
	r.ConfirmRequired, _ = obj["confirm_required"].(bool)
	r.Action, _ = obj["action"].(string)
	r.Path, _ = obj["path"].(string)
	r.Args, _ = obj["args"].(map[string]any)
	r.Reason, _ = obj["reason"].(string)
	for k, v := range obj {
		if fixedResultKeys[k] {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]any)
		}
		r.Extra[k] = v
	}
	return nil
}
