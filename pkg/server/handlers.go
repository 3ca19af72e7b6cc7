package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/MiniPandi/LLMC/pkg/duet"
	"github.com/MiniPandi/LLMC/pkg/hub"
	"github.com/MiniPandi/LLMC/pkg/transcript"
)

type indexData struct {
	ModelA string
	ModelB string
}

// handleIndex serves the viewer page, or joins the hub when the request is
// a WebSocket upgrade.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.handleViewer(w, r)
		return
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := indexData{
		ModelA: s.duet.Model(duet.ParticipantA),
		ModelB: s.duet.Model(duet.ParticipantB),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		slog.Debug("server: upgrade failed", "error", err)
		return
	}
	conn := hub.NewWSConn(ws, s.SendBuffer)
	if err := s.duet.Register(conn); err != nil {
		slog.Error("server: register viewer", "error", err)
		conn.Close()
		return
	}
	defer s.duet.Unregister(conn)

	slog.Debug("server: viewer connected", "remote", r.RemoteAddr)
	if err := conn.Serve(r.Context()); err != nil {
		slog.Debug("server: viewer closed", "remote", r.RemoteAddr, "error", err)
	}
}

type statusResponse struct {
	IsRunning bool `json:"isRunning"`
}

func (s *Server) handleControl(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn()
		writeJSON(w, statusResponse{IsRunning: s.duet.Running()})
	}
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.duet.Snapshot())
}

type modelInfoResponse struct {
	Model string         `json:"model"`
	Info  map[string]any `json:"info"`
}

// handleModelInfo reports participant A's model, or B's with ?llm=2.
func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p := duet.ParticipantA
	if r.URL.Query().Get("llm") == "2" {
		p = duet.ParticipantB
	}
	resp := modelInfoResponse{Model: s.duet.Model(p)}
	if s.models != nil {
		info, err := s.models.Show(r.Context(), resp.Model)
		if err != nil {
			slog.Warn("server: model info", "model", resp.Model, "error", err)
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		resp.Info = info
	}
	writeJSON(w, resp)
}

func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	if s.Transcripts == nil {
		http.NotFound(w, r)
		return
	}
	runs, err := s.Transcripts.Runs(r.Context())
	if err != nil {
		slog.Error("server: list transcripts", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []transcript.Run{}
	}
	writeJSON(w, runs)
}

type transcriptResponse struct {
	Run   transcript.Run      `json:"run"`
	Turns []transcript.Record `json:"turns"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if s.Transcripts == nil {
		http.NotFound(w, r)
		return
	}
	id := r.PathValue("id")
	turns, err := s.Transcripts.Records(r.Context(), id)
	if errors.Is(err, transcript.ErrNotFound) {
		http.Error(w, "transcript not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("server: read transcript", "run", id, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	runs, err := s.Transcripts.Runs(r.Context())
	if err != nil {
		slog.Error("server: list transcripts", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := transcriptResponse{Run: transcript.Run{ID: id}, Turns: turns}
	for _, run := range runs {
		if run.ID == id {
			resp.Run = run
			break
		}
	}
	writeJSON(w, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("server: encode response", "error", err)
	}
}
