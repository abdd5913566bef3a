// Package storage provides the conversation history sink.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between SQLite and memory without API changes

package storage

import (
	"context"
	"time"

	"github.com/lorihq/lori/llm"
)

// Record is one terminal snapshot of a conversation: the full turn sequence
// at the moment the agent produced a final answer.
type Record struct {
	ID    string
	TS    time.Time
	Model string
	Turns []llm.ChatMessage
}

// History persists conversation records, append-only.
type History interface {
	// Append stores a record. An empty ID is filled with a fresh uuid.
	Append(ctx context.Context, rec Record) error

	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]Record, error)

	// Close releases the underlying resources.
	Close() error
}

// Discard is a History that stores nothing, for non-persistent runs and tests.
type Discard struct{}

func (Discard) Append(context.Context, Record) error          { return nil }
func (Discard) Recent(context.Context, int) ([]Record, error) { return nil, nil }
func (Discard) Close() error                                  { return nil }

var _ History = Discard{}
