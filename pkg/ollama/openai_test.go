package ollama_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiniPandi/LLMC/pkg/ollama"
)

func sseChunk(content, finish string) string {
	choice := map[string]any{
		"index": 0,
		"delta": map[string]any{"role": "assistant", "content": content},
	}
	if finish != "" {
		choice["finish_reason"] = finish
	}
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion.chunk",
		"created": 1,
		"model":   "llama3.2",
		"choices": []any{choice},
	})
	return "data: " + string(b) + "\n\n"
}

func TestOpenAIChat(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("Hi", ""))
		fmt.Fprint(w, sseChunk(" there", ""))
		fmt.Fprint(w, sseChunk("", "stop"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := ollama.NewOpenAIClient(srv.URL)
	str, err := c.Chat(context.Background(), "llama3.2", []ollama.Message{
		ollama.SystemMessage("sys"),
		ollama.UserMessage("u"),
		ollama.AssistantMessage("a"),
	})
	require.NoError(t, err)
	defer str.Close()

	frags, err := drain(t, str)
	assert.ErrorIs(t, err, ollama.ErrDone)
	assert.Equal(t, []string{"Hi", " there"}, frags)

	assert.Equal(t, "llama3.2", got.Model)
	assert.True(t, got.Stream)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
}

func TestOpenAIChatRejectsUnknownRole(t *testing.T) {
	c := ollama.NewOpenAIClient("http://127.0.0.1:1")
	_, err := c.Chat(context.Background(), "m", []ollama.Message{{Role: "tool", Content: "x"}})
	require.Error(t, err)
}
