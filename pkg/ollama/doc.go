// Package ollama is a small client for a local Ollama server.
//
// Chat replies are consumed as a lazy Stream of text fragments:
//
//	str, err := client.Chat(ctx, "llama3.2", []ollama.Message{
//	    ollama.SystemMessage("Keep it short."),
//	    ollama.UserMessage("Hello"),
//	})
//	if err != nil {
//	    return err
//	}
//	defer str.Close()
//	for {
//	    frag, err := str.Next()
//	    if errors.Is(err, ollama.ErrDone) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(frag.Content)
//	}
//
// Two transports implement Chatter: Client speaks the native API
// (/api/chat, /api/pull, /api/show) through github.com/ollama/ollama/api,
// and OpenAIClient speaks the OpenAI-compatible /v1 endpoint through
// openai-go.
package ollama
