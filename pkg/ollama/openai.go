package ollama

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// openaiAPIKey is sent as the bearer token; Ollama ignores it but the SDK
// requires one.
const openaiAPIKey = "ollama"

// OpenAIClient streams chat completions from Ollama's OpenAI-compatible
// endpoint.
type OpenAIClient struct {
	Client *openai.Client
}

// NewOpenAIClient returns a client for the /v1 endpoint under baseURL, or
// under DefaultBaseURL if empty.
func NewOpenAIClient(baseURL string, opts ...option.RequestOption) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	all := []option.RequestOption{
		option.WithAPIKey(openaiAPIKey),
		option.WithBaseURL(baseURL + "/"),
	}
	client := openai.NewClient(append(all, opts...)...)
	return &OpenAIClient{Client: &client}
}

func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message) (Stream, error) {
	msgs, err := convMessages(messages)
	if err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    model,
	}
	str := c.Client.Chat.Completions.NewStreaming(ctx, params)
	if err := str.Err(); err != nil {
		str.Close()
		return nil, fmt.Errorf("ollama: openai chat: %w", err)
	}
	return &oaiStream{str: str}, nil
}

func convMessages(messages []Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			return nil, fmt.Errorf("ollama: unexpected message role %q", m.Role)
		}
	}
	return out, nil
}

type oaiStream struct {
	mu   sync.Mutex
	str  *ssestream.Stream[openai.ChatCompletionChunk]
	done bool
}

func (s *oaiStream) Next() (*Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil, ErrDone
	}
	for s.str.Next() {
		chunk := s.str.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		sel := chunk.Choices[0]
		if sel.Delta.Refusal != "" {
			s.done = true
			return nil, fmt.Errorf("ollama: generate blocked: %s", sel.Delta.Refusal)
		}
		if sel.Delta.Content != "" {
			return &Fragment{Content: sel.Delta.Content}, nil
		}
	}
	s.done = true
	if err := s.str.Err(); err != nil {
		return nil, fmt.Errorf("ollama: openai stream: %w", err)
	}
	return nil, ErrDone
}

func (s *oaiStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	return s.str.Close()
}
