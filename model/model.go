package model

import (
	"context"
	"fmt"

	"github.com/hupe1980/chatmesh/core"
)

// Message is one entry of the prompt message list:
// [system] + history + [current user message].
type Message struct {
	Role    core.Role `json:"role"`
	Content string    `json:"content"`
}

// Request captures a normalized model invocation. Model overrides the
// adapter's default for this call only; empty means "use the default".
type Request struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Client is the minimal interface the orchestrator needs to drive
// generation. CompleteStream produces a lazy, finite, non-restartable
// sequence of content fragments: the fragment channel is closed on
// exhaustion and the error channel (buffered, capacity 1) carries at most
// one upstream failure, also followed by channel close.
type Client interface {
	// Complete returns the full reply text in one shot.
	Complete(ctx context.Context, req Request) (string, error)

	// CompleteStream emits incremental content fragments as they arrive.
	CompleteStream(ctx context.Context, req Request) (<-chan string, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockClient is a lightweight in-memory Client useful for tests and demos.
// Responses are keyed by the last user message; unknown prompts get an echo.
type MockClient struct {
	info      Info
	responses map[string]string

	// Err, when set, makes Complete fail and CompleteStream fail after
	// emitting FragmentsBeforeErr fragments.
	Err                error
	FragmentsBeforeErr int
	StreamFragmentSize int
}

// NewMockClient constructs a MockClient streaming one rune per fragment.
func NewMockClient() *MockClient {
	return &MockClient{
		info:               Info{Name: "mock", Provider: "mock"},
		responses:          make(map[string]string),
		StreamFragmentSize: 1,
	}
}

// AddResponse registers a deterministic canned reply for a user message.
func (m *MockClient) AddResponse(prompt, response string) { m.responses[prompt] = response }

func (m *MockClient) reply(req Request) string {
	var last string
	for _, msg := range req.Messages {
		if msg.Role == core.RoleUser {
			last = msg.Content
		}
	}
	if full, ok := m.responses[last]; ok {
		return full
	}
	return fmt.Sprintf("Mock response to: %s", last)
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.reply(req), nil
}

// CompleteStream implements Client; emits fragment chunks then closes.
func (m *MockClient) CompleteStream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	out := make(chan string, 16)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		full := []rune(m.reply(req))
		size := m.StreamFragmentSize
		if size <= 0 {
			size = 1
		}
		sent := 0
		for start := 0; start < len(full); start += size {
			if m.Err != nil && sent >= m.FragmentsBeforeErr {
				errCh <- m.Err
				return
			}
			end := start + size
			if end > len(full) {
				end = len(full)
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- string(full[start:end]):
				sent++
			}
		}
		if m.Err != nil {
			errCh <- m.Err
		}
	}()
	return out, errCh
}

// Info implements Client.
func (m *MockClient) Info() Info { return m.info }
