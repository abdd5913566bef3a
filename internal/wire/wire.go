// Package wire implements the marker conventions used to exchange
// structured data with the model inside plain-text turns.
//
// A tool call is embedded in model output as
// <tool_call>{"tool":"fs.read","args":{"path":"notes.txt"}}</tool_call>
// and a tool result is echoed back to the model as
// <tool_result>{...}</tool_result>.
//
// Models routinely wrap these markers in prose or markdown; extraction
// takes the first well-formed block and ignores everything around it.
package wire

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ToolCall is a single structured request against the tool registry.
type ToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

var (
	toolCallRe   = regexp.MustCompile(`(?s)<tool_call>\s*(\{.*?\})\s*</tool_call>`)
	toolCallAll  = regexp.MustCompile(`(?s)<tool_call>.*?</tool_call>`)
	toolResultRe = regexp.MustCompile(`(?s)<tool_result>\s*(\{.*?\})\s*</tool_result>`)
	toolResultAll = regexp.MustCompile(`(?s)<tool_result>.*?</tool_result>`)
)

// ExtractToolCall returns the first well-formed tool call embedded in text,
// or nil when none is present. A block is honored only when it decodes to an
// object with exactly a non-empty "tool" string and an "args" object; a
// malformed block counts as no tool call, never as an error.
func ExtractToolCall(text string) *ToolCall {
	m := toolCallRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(m[1]), &raw); err != nil {
		return nil
	}
	for key := range raw {
		if key != "tool" && key != "args" {
			return nil
		}
	}

	var call ToolCall
	if err := json.Unmarshal([]byte(m[1]), &call); err != nil {
		return nil
	}
	if call.Tool == "" {
		return nil
	}
	if call.Args == nil {
		rawArgs, ok := raw["args"]
		if !ok {
			return nil
		}
		// "args": null is not an object.
		if strings.TrimSpace(string(rawArgs)) == "null" {
			return nil
		}
		call.Args = map[string]any{}
	}
	return &call
}

// FormatToolCall renders a call in the canonical marker form. This rendering,
// not the model's surrounding prose, is what gets appended to history.
func FormatToolCall(call ToolCall) string {
	data, err := json.Marshal(call)
	if err != nil {
		// Args from the registry path are always plain JSON values.
		data = []byte(fmt.Sprintf(`{"tool":%q,"args":{}}`, call.Tool))
	}
	return "<tool_call>" + string(data) + "</tool_call>"
}

// FormatToolResult renders a tool result turn for the model.
func FormatToolResult(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`{"ok":false,"error":"unserializable result"}`)
	}
	return "<tool_result>" + string(data) + "</tool_result>"
}

// ParseToolResult decodes the first tool result block in text.
func ParseToolResult(text string, out any) error {
	m := toolResultRe.FindStringSubmatch(text)
	if m == nil {
		return fmt.Errorf("no <tool_result> block in text")
	}
	if err := json.Unmarshal([]byte(m[1]), out); err != nil {
		return fmt.Errorf("failed to decode tool result: %w", err)
	}
	return nil
}

// StripMarkers removes tool_call and tool_result blocks from text, leaving
// only user-facing prose. Applied to final answers before they leave the loop.
func StripMarkers(text string) string {
	text = toolCallAll.ReplaceAllString(text, "")
	text = toolResultAll.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
