// Command llmc runs two local models in conversation with each other and
// streams the dialogue to browser viewers.
//
// Usage:
//
//	llmc [flags] <command> [subcommand] [args]
//
// Commands:
//
//	serve        - Run the conversation server
//	pull         - Download models into the local Ollama
//	transcripts  - Browse archived conversations
//	config       - Configuration management (contexts)
//	version      - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/MiniPandi/LLMC/cmd/llmc/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
