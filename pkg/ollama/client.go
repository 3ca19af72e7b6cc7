package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// DefaultBaseURL is where a local Ollama server listens by default.
const DefaultBaseURL = "http://127.0.0.1:11434"

// Chatter starts a streaming chat completion.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []Message) (Stream, error)
}

var (
	_ Chatter = (*Client)(nil)
	_ Chatter = (*OpenAIClient)(nil)
)

// Client talks to the native Ollama API through Ollama's own Go client.
type Client struct {
	api *api.Client
}

// NewClient returns a client for baseURL, or DefaultBaseURL if empty.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("ollama: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ollama: base url %q needs a scheme and host", baseURL)
	}
	return &Client{api: api.NewClient(u, http.DefaultClient)}, nil
}

// FromEnvironment returns a client for $OLLAMA_HOST, resolved the way the
// ollama CLI resolves it.
func FromEnvironment() (*Client, error) {
	c, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	return &Client{api: c}, nil
}

// Chat starts a streaming chat and returns its reply as a Stream. Request
// errors, including an unknown model, surface from the first Next. Callers
// must drain or Close the stream.
func (c *Client) Chat(ctx context.Context, model string, messages []Message) (Stream, error) {
	msgs := make([]api.Message, len(messages))
	for i, m := range messages {
		msgs[i] = api.Message{Role: m.Role.String(), Content: m.Content}
	}
	stream := true
	req := &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   &stream,
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &chatStream{
		cancel: cancel,
		frags:  make(chan string),
		done:   make(chan struct{}),
	}
	go s.run(ctx, func(fn api.ChatResponseFunc) error {
		return c.api.Chat(ctx, req, fn)
	})
	return s, nil
}

// Progress is one status line of a model pull.
type Progress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// Percent returns the completion ratio in [0, 100], or -1 when unknown.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Completed) * 100 / float64(p.Total)
}

// Pull downloads model, reporting each progress line to fn. fn may be nil.
func (c *Client) Pull(ctx context.Context, model string, fn func(Progress)) error {
	err := c.api.Pull(ctx, &api.PullRequest{Model: model}, func(p api.ProgressResponse) error {
		if fn != nil {
			fn(Progress{
				Status:    p.Status,
				Digest:    p.Digest,
				Total:     p.Total,
				Completed: p.Completed,
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ollama: pull %s: %w", model, err)
	}
	return nil
}

// Show returns the model's metadata as reported by /api/show, keyed by the
// API's JSON field names.
func (c *Client) Show(ctx context.Context, model string) (map[string]any, error) {
	resp, err := c.api.Show(ctx, &api.ShowRequest{Model: model})
	if err != nil {
		return nil, fmt.Errorf("ollama: show %s: %w", model, err)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("ollama: encode show response: %w", err)
	}
	var info map[string]any
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("ollama: decode show response: %w", err)
	}
	return info, nil
}

// IsNotFound reports whether err is a 404 from the server, which Ollama
// returns for models that have not been pulled.
func IsNotFound(err error) bool {
	var se api.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// chatStream adapts the callback-driven api.Client.Chat to Stream. The
// request runs in its own goroutine and hands each non-empty fragment to
// Next over an unbuffered channel.
type chatStream struct {
	cancel context.CancelFunc
	frags  chan string
	done   chan struct{}

	// err is the terminal result. Written once before done is closed.
	err error
}

func (s *chatStream) run(ctx context.Context, chat func(api.ChatResponseFunc) error) {
	defer close(s.done)
	defer s.cancel()

	finished := false
	err := chat(func(resp api.ChatResponse) error {
		if resp.Done {
			finished = true
		}
		if resp.Message.Content == "" {
			return nil
		}
		select {
		case s.frags <- resp.Message.Content:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	switch {
	case err != nil:
		s.err = fmt.Errorf("ollama: chat: %w", err)
	case !finished:
		// The server closed the stream without a final chunk.
		s.err = fmt.Errorf("ollama: read chat stream: %w", io.ErrUnexpectedEOF)
	default:
		s.err = ErrDone
	}
}

func (s *chatStream) Next() (*Fragment, error) {
	select {
	case content := <-s.frags:
		return &Fragment{Content: content}, nil
	case <-s.done:
		return nil, s.err
	}
}

// Close abandons the reply and waits for the request to end.
func (s *chatStream) Close() error {
	s.cancel()
	<-s.done
	return nil
}
