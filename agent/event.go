package agent

// EventType tags a streamed agent event.
type EventType string

const (
	// EventThought is progress commentary about what the loop is doing.
	EventThought EventType = "thought"
	// EventToolCall announces a tool invocation about to run.
	EventToolCall EventType = "tool_call"
	// EventToolResult carries the structured result of a tool invocation.
	EventToolResult EventType = "tool_result"
	// EventConfirmRequired suspends the loop until a Decision arrives.
	EventConfirmRequired EventType = "confirm_required"
	// EventContent is a chunk of user-facing answer text.
	EventContent EventType = "content"
	// EventError reports a loop-level failure.
	EventError EventType = "error"
)

// Event is the tagged union streamed to the caller in agent mode. Content is
// set for thought/content/error events; Data for the tool-related events.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content,omitempty"`
	Data    any       `json:"data,omitempty"`
}

// Decision is the caller's reply to a confirm_required event. Every other
// event type is fire-and-forget.
type Decision struct {
	Approved bool `json:"approved"`
}
