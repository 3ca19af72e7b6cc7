package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/MiniPandi/LLMC/cmd/llmc/internal/config"
	"github.com/MiniPandi/LLMC/pkg/duet"
	"github.com/MiniPandi/LLMC/pkg/hub"
	"github.com/MiniPandi/LLMC/pkg/ollama"
	"github.com/MiniPandi/LLMC/pkg/server"
	"github.com/MiniPandi/LLMC/pkg/transcript"
)

const (
	transportOllama = "ollama"
	transportOpenAI = "openai"

	archiveNone   = "none"
	archiveMemory = "memory"
	archiveBadger = "badger"
)

// serveOptions are the resolved settings of 'llmc serve'.
type serveOptions struct {
	Addr           string
	ModelA         string
	ModelB         string
	System         string
	Opener         string
	Pacing         time.Duration
	AutostartDelay time.Duration
	NoPull         bool
	Transport      string
	OllamaURL      string
	Archive        string
	ArchiveDir     string
}

// bind registers the serve flags on fs with their defaults.
func (o *serveOptions) bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "addr", ":3000", "listen address (PORT overrides the port)")
	fs.StringVar(&o.ModelA, "model-a", duet.DefaultModel, "model of participant A")
	fs.StringVar(&o.ModelB, "model-b", duet.DefaultModel, "model of participant B")
	fs.StringVar(&o.System, "system", duet.DefaultSystemPrompt, "system prompt sent to both participants")
	fs.StringVar(&o.Opener, "opener", "", "opening user message sent to participant A")
	fs.DurationVar(&o.Pacing, "pacing", duet.DefaultPacing, "delay between turns")
	fs.DurationVar(&o.AutostartDelay, "autostart-delay", 2*time.Second, "start the conversation this long after boot (negative disables)")
	fs.BoolVar(&o.NoPull, "no-pull", false, "do not pull the models on boot")
	fs.StringVar(&o.Transport, "transport", transportOllama, "model API (ollama, openai)")
	fs.StringVar(&o.OllamaURL, "ollama-url", "", "Ollama base URL (default $OLLAMA_HOST or "+ollama.DefaultBaseURL+")")
	fs.StringVar(&o.Archive, "archive", archiveMemory, "transcript archive (memory, badger, none)")
	fs.StringVar(&o.ArchiveDir, "archive-dir", "", "badger archive directory (default <config dir>/transcripts)")
}

// resolve merges the flags with the environment and a context's file.
// A flag set on the command line wins, then the environment, then the
// file, then the flag default.
func (o serveOptions) resolve(fs *pflag.FlagSet, file *config.Serve, getenv func(string) string) (serveOptions, error) {
	out := o
	str := func(dst *string, flag, fromFile string) {
		if !fs.Changed(flag) && fromFile != "" {
			*dst = fromFile
		}
	}
	dur := func(dst *time.Duration, flag, fromFile string) error {
		if fs.Changed(flag) || fromFile == "" {
			return nil
		}
		d, err := time.ParseDuration(fromFile)
		if err != nil {
			return fmt.Errorf("config %s: %w", strings.ReplaceAll(flag, "-", "_"), err)
		}
		*dst = d
		return nil
	}

	str(&out.Addr, "addr", file.Addr)
	str(&out.ModelA, "model-a", file.ModelA)
	str(&out.ModelB, "model-b", file.ModelB)
	str(&out.System, "system", file.System)
	str(&out.Opener, "opener", file.Opener)
	str(&out.Transport, "transport", file.Transport)
	str(&out.OllamaURL, "ollama-url", file.OllamaURL)
	str(&out.Archive, "archive", file.Archive)
	str(&out.ArchiveDir, "archive-dir", file.ArchiveDir)
	if !fs.Changed("no-pull") && file.NoPull {
		out.NoPull = true
	}
	if err := dur(&out.Pacing, "pacing", file.Pacing); err != nil {
		return out, err
	}
	if err := dur(&out.AutostartDelay, "autostart-delay", file.AutostartDelay); err != nil {
		return out, err
	}

	if !fs.Changed("addr") {
		if port := getenv("PORT"); port != "" {
			out.Addr = ":" + port
		}
	}
	if !fs.Changed("ollama-url") {
		if host := getenv("OLLAMA_HOST"); host != "" {
			out.OllamaURL = host
		}
	}
	out.OllamaURL = normalizeOllamaURL(out.OllamaURL)

	switch out.Transport {
	case transportOllama, transportOpenAI:
	default:
		return out, fmt.Errorf("unknown transport %q (want ollama or openai)", out.Transport)
	}
	switch out.Archive {
	case archiveNone, archiveMemory, archiveBadger:
	default:
		return out, fmt.Errorf("unknown archive %q (want memory, badger or none)", out.Archive)
	}
	return out, nil
}

// defaultOllamaPort is used for a bare OLLAMA_HOST-style host.
const defaultOllamaPort = "11434"

// normalizeOllamaURL accepts OLLAMA_HOST-style values such as
// "0.0.0.0:11434" or "gpu-box" and returns a base URL. A value without a
// scheme gets http and, lacking a port, 11434.
func normalizeOllamaURL(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if s == "" {
		return ollama.DefaultBaseURL
	}
	if strings.Contains(s, "://") {
		return s
	}
	if _, _, err := net.SplitHostPort(s); err != nil {
		s = net.JoinHostPort(strings.Trim(s, "[]"), defaultOllamaPort)
	}
	return "http://" + s
}

var serveFlags serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversation server",
	Long: `Run the conversation server.

The page and its WebSocket share one listener. Open http://localhost:3000/
to watch. The conversation starts by itself after --autostart-delay and
can be controlled with POST /api/start, /api/stop and /api/reset.
Archived runs are listed at GET /api/transcripts and
GET /api/transcripts/{id}.

Example:
  llmc serve --model-a llama3.2 --model-b gemma2 --pacing 2s`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveFlags.bind(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	setupLogging()

	file, err := loadServeFile()
	if err != nil {
		return err
	}
	opts, err := serveFlags.resolve(cmd.Flags(), file, os.Getenv)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			slog.Info("shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	client, err := ollama.NewClient(opts.OllamaURL)
	if err != nil {
		return err
	}
	var chat ollama.Chatter = client
	if opts.Transport == transportOpenAI {
		chat = ollama.NewOpenAIClient(opts.OllamaURL)
	}

	archive, err := openArchive(opts)
	if err != nil {
		return err
	}
	if archive != nil {
		defer archive.Close()
	}

	cfg := duet.Config{
		ModelA:       opts.ModelA,
		ModelB:       opts.ModelB,
		SystemPrompt: opts.System,
		Opener:       opts.Opener,
		Pacing:       opts.Pacing,
	}
	if opts.Pacing == 0 {
		cfg.Pacing = -1
	}
	if archive != nil {
		cfg.Archive = archive
	}
	d := duet.New(chat, hub.New(), cfg)
	defer d.Close()

	pulled := make(chan struct{})
	go func() {
		defer close(pulled)
		if !opts.NoPull {
			pullModels(ctx, client, opts.ModelA, opts.ModelB)
		}
	}()
	if opts.AutostartDelay >= 0 {
		go autostart(ctx, d, opts.AutostartDelay, pulled)
	}

	slog.Info("llmc serving",
		"addr", opts.Addr,
		"model_a", opts.ModelA,
		"model_b", opts.ModelB,
		"transport", opts.Transport,
		"ollama", opts.OllamaURL,
		"archive", opts.Archive,
	)
	srv := server.New(d, client)
	if archive != nil {
		srv.Transcripts = archive
	}
	return srv.ListenAndServe(ctx, opts.Addr)
}

// loadServeFile reads llmc.yaml of the selected context, if any.
func loadServeFile() (*config.Serve, error) {
	cfg, err := GetConfig()
	if err != nil {
		if contextName != "" {
			return nil, err
		}
		slog.Debug("no config", "error", err)
		return &config.Serve{}, nil
	}
	dir, err := cfg.ResolveContext(contextName)
	if err != nil {
		return nil, err
	}
	return config.LoadServe(dir)
}

// openArchive returns the configured transcript store, or nil for "none".
func openArchive(opts serveOptions) (transcript.Store, error) {
	switch opts.Archive {
	case archiveMemory:
		return transcript.NewMemory(), nil
	case archiveBadger:
		dir, err := archiveDir(opts.ArchiveDir)
		if err != nil {
			return nil, err
		}
		s, err := transcript.Open("badger://" + dir)
		if err != nil {
			return nil, fmt.Errorf("open archive %s: %w", dir, err)
		}
		slog.Info("archive opened", "dir", dir)
		return s, nil
	default:
		return nil, nil
	}
}

// archiveDir returns dir, or the default under the config directory.
func archiveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	cfg, err := GetConfig()
	if err != nil {
		return "", fmt.Errorf("no --archive-dir and %w", err)
	}
	return filepath.Join(cfg.Dir, "transcripts"), nil
}

// pullModels pulls each distinct model. Failures are logged; the model may
// already be present.
func pullModels(ctx context.Context, client *ollama.Client, models ...string) {
	seen := make(map[string]bool)
	for _, m := range models {
		if seen[m] {
			continue
		}
		seen[m] = true

		slog.Info("pulling model", "model", m)
		last := ""
		err := client.Pull(ctx, m, func(p ollama.Progress) {
			if p.Status != last {
				slog.Debug("pull", "model", m, "status", p.Status)
				last = p.Status
			}
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("pull failed", "model", m, "error", err)
			continue
		}
		slog.Info("model ready", "model", m)
	}
}

// autostart starts d after delay, once the models are pulled.
func autostart(ctx context.Context, d *duet.Duet, delay time.Duration, pulled <-chan struct{}) {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return
	case <-pulled:
	}
	select {
	case <-ctx.Done():
		return
	case <-t.C:
	}
	d.Start()
}
