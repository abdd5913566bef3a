// Client - wrapper around providers used by the agent loop.
//
// The loop treats the model as an oracle that always produces text. Backend
// failures (server down, unknown model, timeout) are folded into user-facing
// diagnostic strings instead of errors, so one bad round never aborts a turn.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Client wraps a Provider with a simple interface.
type Client struct {
	provider Provider
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Chat sends a chat completion request and returns just the content.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	response, err := c.provider.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// Complete returns the model's reply, folding backend failures into
// diagnostic text.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) string {
	response, err := c.provider.Chat(ctx, messages)
	if err != nil {
		return c.diagnostic(err)
	}
	return response.Content
}

// StreamComplete streams the model's reply to chunks (when non-nil) and
// returns the accumulated text. Backend failures are folded into diagnostic
// text the same way Complete does.
func (c *Client) StreamComplete(ctx context.Context, messages []ChatMessage, chunks chan<- string) string {
	inner := make(chan string)
	done := make(chan struct{})

	var b strings.Builder
	go func() {
		defer close(done)
		for piece := range inner {
			b.WriteString(piece)
			if chunks != nil {
				select {
				case chunks <- piece:
				case <-ctx.Done():
				}
			}
		}
	}()

	_, err := c.provider.StreamChat(ctx, messages, inner)
	close(inner)
	<-done

	if err != nil && b.Len() == 0 {
		msg := c.diagnostic(err)
		if chunks != nil {
			select {
			case chunks <- msg:
			case <-ctx.Done():
			}
		}
		return msg
	}
	return b.String()
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

func (c *Client) diagnostic(err error) string {
	name := c.provider.Name()
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Sprintf("[erro] Timeout ao consultar o modelo (%s). Tente novamente.", name)
	}
	return fmt.Sprintf("[erro] Não foi possível conectar ao modelo (%s): %v", name, err)
}
