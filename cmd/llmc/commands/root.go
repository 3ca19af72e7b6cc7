package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MiniPandi/LLMC/cmd/llmc/internal/config"
)

var (
	// Global flags
	verbose     bool
	contextName string

	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "llmc",
	Short: "Two local LLMs talking to each other",
	Long: `llmc - run two Ollama models in an endless conversation and watch it live.

The server alternates turns between participant A and participant B. Each
reply is streamed to every connected browser and then handed to the other
participant as its next user message.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/llmc/
  Linux:   ~/.config/llmc/
  Windows: %AppData%/llmc/

Examples:
  # Serve on :3000 with the default model on both sides
  llmc serve

  # Different models, an opening prompt, no archive
  llmc serve --model-a llama3.2 --model-b qwen2.5 --opener "Debate tabs vs spaces." --archive none

  # Keep settings in a context
  llmc config add-context local
  llmc config set local model_b qwen2.5
  llmc config use-context local`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "config context (default: current context)")
}

// configLoadErr is reported by GetConfig so that commands which never need
// config, like 'llmc version', still work without it.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// setupLogging installs the default slog handler on stderr.
func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
