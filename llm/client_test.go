package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeProvider is a scripted provider for loop-free tests.
type fakeProvider struct {
	name    string
	content string
	pieces  []string
	err     error
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Model() string { return "fake" }

func (f *fakeProvider) Chat(_ context.Context, _ []ChatMessage) (LLMResponse, error) {
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Content: f.content}, nil
}

func (f *fakeProvider) StreamChat(ctx context.Context, _ []ChatMessage, chunks chan<- string) (*TokenUsage, error) {
	for _, piece := range f.pieces {
		select {
		case chunks <- piece:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, f.err
}

func TestCompletePassthrough(t *testing.T) {
	client := NewClient(&fakeProvider{name: "ollama", content: "Olá! Como posso ajudar?"})
	got := client.Complete(context.Background(), []ChatMessage{UserMessage("oi")})
	if got != "Olá! Como posso ajudar?" {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestCompleteFoldsConnectionError(t *testing.T) {
	client := NewClient(&fakeProvider{name: "ollama", err: errors.New("connection refused")})
	got := client.Complete(context.Background(), []ChatMessage{UserMessage("oi")})
	if !strings.HasPrefix(got, "[erro] Não foi possível conectar ao modelo (ollama):") {
		t.Errorf("expected connection diagnostic, got %q", got)
	}
}

func TestCompleteFoldsTimeout(t *testing.T) {
	wrapped := errors.Join(errors.New("chat completion failed"), context.DeadlineExceeded)
	client := NewClient(&fakeProvider{name: "ollama", err: wrapped})
	got := client.Complete(context.Background(), []ChatMessage{UserMessage("oi")})
	if got != "[erro] Timeout ao consultar o modelo (ollama). Tente novamente." {
		t.Errorf("expected timeout diagnostic, got %q", got)
	}
}

func TestStreamCompleteAccumulates(t *testing.T) {
	client := NewClient(&fakeProvider{name: "ollama", pieces: []string{"Encontrei ", "2 arquivos."}})

	chunks := make(chan string, 8)
	got := client.StreamComplete(context.Background(), []ChatMessage{UserMessage("liste")}, chunks)
	close(chunks)

	if got != "Encontrei 2 arquivos." {
		t.Errorf("unexpected accumulated text: %q", got)
	}
	var forwarded []string
	for piece := range chunks {
		forwarded = append(forwarded, piece)
	}
	if len(forwarded) != 2 || forwarded[0] != "Encontrei " {
		t.Errorf("unexpected forwarded chunks: %v", forwarded)
	}
}

func TestStreamCompleteErrorAfterContent(t *testing.T) {
	// Partial output before the failure is kept, not replaced by a diagnostic.
	client := NewClient(&fakeProvider{name: "ollama", pieces: []string{"parcial"}, err: errors.New("reset")})
	got := client.StreamComplete(context.Background(), []ChatMessage{UserMessage("oi")}, nil)
	if got != "parcial" {
		t.Errorf("expected partial content, got %q", got)
	}
}

func TestStreamCompleteErrorWithoutContent(t *testing.T) {
	client := NewClient(&fakeProvider{name: "ollama", err: errors.New("connection refused")})
	got := client.StreamComplete(context.Background(), []ChatMessage{UserMessage("oi")}, nil)
	if !strings.HasPrefix(got, "[erro]") {
		t.Errorf("expected diagnostic, got %q", got)
	}
}
