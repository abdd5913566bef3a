package wire

import (
	"testing"
)

func TestExtractToolCall(t *testing.T) {
	text := `Vou listar os arquivos. <tool_call>{"tool":"fs.list","args":{"directory":"."}}</tool_call>`
	call := ExtractToolCall(text)
	if call == nil {
		t.Fatal("expected a tool call")
	}
	if call.Tool != "fs.list" {
		t.Errorf("expected tool 'fs.list', got %q", call.Tool)
	}
	if call.Args["directory"] != "." {
		t.Errorf("expected directory '.', got %v", call.Args["directory"])
	}
}

func TestExtractToolCallFirstBlockWins(t *testing.T) {
	text := `<tool_call>{"tool":"fs.read","args":{"path":"a.txt"}}</tool_call>` +
		`<tool_call>{"tool":"fs.read","args":{"path":"b.txt"}}</tool_call>`
	call := ExtractToolCall(text)
	if call == nil {
		t.Fatal("expected a tool call")
	}
	if call.Args["path"] != "a.txt" {
		t.Errorf("expected first block to win, got path %v", call.Args["path"])
	}
}

func TestExtractToolCallNestedArgs(t *testing.T) {
	text := `<tool_call>{"tool":"edit.replace","args":{"path":"f.txt","find":"{old}","replace":"{new}"}}</tool_call>`
	call := ExtractToolCall(text)
	if call == nil {
		t.Fatal("expected a tool call")
	}
	if call.Args["find"] != "{old}" {
		t.Errorf("braces inside strings broke extraction: %v", call.Args)
	}
}

func TestExtractToolCallRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"no markers", "apenas texto"},
		{"invalid json", `<tool_call>{not json}</tool_call>`},
		{"empty tool", `<tool_call>{"tool":"","args":{}}</tool_call>`},
		{"missing args", `<tool_call>{"tool":"fs.read"}</tool_call>`},
		{"null args", `<tool_call>{"tool":"fs.read","args":null}</tool_call>`},
		{"extra top-level key", `<tool_call>{"tool":"fs.read","args":{},"id":1}</tool_call>`},
		{"tool not a string", `<tool_call>{"tool":7,"args":{}}</tool_call>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if call := ExtractToolCall(tc.text); call != nil {
				t.Errorf("expected no tool call, got %+v", call)
			}
		})
	}
}

func TestExtractToolCallEmptyArgsObject(t *testing.T) {
	call := ExtractToolCall(`<tool_call>{"tool":"help.tools","args":{}}</tool_call>`)
	if call == nil {
		t.Fatal("expected a tool call")
	}
	if call.Args == nil {
		t.Fatal("args must be a non-nil map")
	}
}

func TestFormatToolCallRoundTrip(t *testing.T) {
	original := ToolCall{Tool: "fs.read", Args: map[string]any{"path": "notes.txt"}}
	text := FormatToolCall(original)
	parsed := ExtractToolCall(text)
	if parsed == nil {
		t.Fatal("canonical rendering must re-parse")
	}
	if parsed.Tool != original.Tool || parsed.Args["path"] != "notes.txt" {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}

func TestToolResultRoundTrip(t *testing.T) {
	text := FormatToolResult(map[string]any{"ok": false, "error": "user_denied"})
	var out map[string]any
	if err := ParseToolResult(text, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["ok"] != false || out["error"] != "user_denied" {
		t.Errorf("round trip mismatch: %v", out)
	}
}

func TestStripMarkers(t *testing.T) {
	text := "Pronto.\n<tool_call>{\"tool\":\"fs.read\",\"args\":{}}</tool_call>\n" +
		"<tool_result>{\"ok\":true}</tool_result>\nEncontrei o arquivo."
	got := StripMarkers(text)
	want := "Pronto.\n\n\nEncontrei o arquivo."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
