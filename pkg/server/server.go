// Package server exposes a Duet over HTTP: the viewer page, the viewer
// WebSocket, control endpoints and read-only state dumps.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MiniPandi/LLMC/pkg/duet"
	"github.com/MiniPandi/LLMC/pkg/hub"
	"github.com/MiniPandi/LLMC/pkg/transcript"
)

//go:embed web/*
var webFS embed.FS

var tmpl = template.Must(template.ParseFS(webFS, "web/*.html"))

const shutdownTimeout = 5 * time.Second

// ModelShower returns model metadata. *ollama.Client implements it.
type ModelShower interface {
	Show(ctx context.Context, model string) (map[string]any, error)
}

// TranscriptReader lists archived runs. transcript.Store implements it.
type TranscriptReader interface {
	Runs(ctx context.Context) ([]transcript.Run, error)
	Records(ctx context.Context, runID string) ([]transcript.Record, error)
}

// Server serves one Duet.
type Server struct {
	duet     *duet.Duet
	models   ModelShower
	upgrader websocket.Upgrader
	static   http.Handler

	// SendBuffer is the outbound frame buffer of each viewer connection.
	SendBuffer int

	// Transcripts backs /api/transcripts. When nil those routes answer 404.
	Transcripts TranscriptReader
}

// New returns a Server for d. models may be nil, in which case /modelInfo
// reports no info.
func New(d *duet.Duet, models ModelShower) *Server {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	return &Server{
		duet:   d,
		models: models,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		static:     http.FileServerFS(sub),
		SendBuffer: hub.DefaultSendBuffer,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/app.js", s.static)
	mux.HandleFunc("/api/start", s.handleControl(func() { s.duet.Start() }))
	mux.HandleFunc("/api/stop", s.handleControl(s.duet.Stop))
	mux.HandleFunc("/api/reset", s.handleControl(s.duet.Reset))
	mux.HandleFunc("/getConversation", s.handleConversation)
	mux.HandleFunc("/modelInfo", s.handleModelInfo)
	mux.HandleFunc("GET /api/transcripts", s.handleTranscripts)
	mux.HandleFunc("GET /api/transcripts/{id}", s.handleTranscript)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
// Viewer connections are closed when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server: listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
