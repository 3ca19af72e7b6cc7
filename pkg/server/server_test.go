package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiniPandi/LLMC/pkg/duet"
	"github.com/MiniPandi/LLMC/pkg/hub"
	"github.com/MiniPandi/LLMC/pkg/ollama"
	"github.com/MiniPandi/LLMC/pkg/server"
	"github.com/MiniPandi/LLMC/pkg/transcript"
)

// blockingChatter never produces a fragment; its streams end when ctx does.
type blockingChatter struct{}

func (blockingChatter) Chat(ctx context.Context, model string, messages []ollama.Message) (ollama.Stream, error) {
	return &ctxStream{ctx: ctx}, nil
}

type ctxStream struct{ ctx context.Context }

func (s *ctxStream) Next() (*ollama.Fragment, error) {
	<-s.ctx.Done()
	return nil, s.ctx.Err()
}

func (s *ctxStream) Close() error { return nil }

type fakeShower struct {
	mu   sync.Mutex
	info map[string]any
	err  error
	got  string
}

func (f *fakeShower) Show(ctx context.Context, model string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = model
	return f.info, f.err
}

func (f *fakeShower) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeShower) lastModel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.got
}

func newServer(t *testing.T, shower server.ModelShower) (*httptest.Server, *duet.Duet) {
	t.Helper()
	d := duet.New(blockingChatter{}, hub.New(), duet.Config{ModelA: "model-a", ModelB: "model-b"})
	t.Cleanup(func() { d.Close() })
	srv := httptest.NewServer(server.New(d, shower).Handler())
	t.Cleanup(srv.Close)
	return srv, d
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestIndexPage(t *testing.T) {
	srv, _ := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "model-a")
	assert.Contains(t, string(body), "model-b")
	assert.Contains(t, string(body), `src="/app.js"`)

	resp, err = http.Get(srv.URL + "/app.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "WebSocket")

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestControlEndpoints(t *testing.T) {
	srv, d := newServer(t, nil)

	var st struct {
		IsRunning bool `json:"isRunning"`
	}
	resp, err := http.Post(srv.URL+"/api/start", "application/json", nil)
	require.NoError(t, err)
	decodeBody(t, resp, &st)
	assert.True(t, st.IsRunning)
	assert.True(t, d.Running())

	resp, err = http.Post(srv.URL+"/api/stop", "application/json", nil)
	require.NoError(t, err)
	decodeBody(t, resp, &st)
	assert.False(t, st.IsRunning)

	resp, err = http.Post(srv.URL+"/api/reset", "application/json", nil)
	require.NoError(t, err)
	decodeBody(t, resp, &st)
	assert.False(t, st.IsRunning)

	resp, err = http.Get(srv.URL + "/api/start")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.False(t, d.Running())
}

func TestGetConversation(t *testing.T) {
	srv, _ := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/getConversation")
	require.NoError(t, err)
	var got map[string]any
	decodeBody(t, resp, &got)
	assert.Equal(t, []any{}, got["chat1"])
	assert.Equal(t, []any{}, got["chat2"])
	assert.Equal(t, false, got["isRunning"])
	assert.Equal(t, float64(0), got["messageCount"])
}

func TestModelInfo(t *testing.T) {
	shower := &fakeShower{info: map[string]any{"details": map[string]any{"family": "llama"}}}
	srv, _ := newServer(t, shower)

	var got struct {
		Model string         `json:"model"`
		Info  map[string]any `json:"info"`
	}
	resp, err := http.Get(srv.URL + "/modelInfo")
	require.NoError(t, err)
	decodeBody(t, resp, &got)
	assert.Equal(t, "model-a", got.Model)
	assert.Equal(t, "model-a", shower.lastModel())
	assert.Contains(t, got.Info, "details")

	resp, err = http.Get(srv.URL + "/modelInfo?llm=2")
	require.NoError(t, err)
	decodeBody(t, resp, &got)
	assert.Equal(t, "model-b", got.Model)

	shower.set(errors.New("ollama: model not found"))
	resp, err = http.Get(srv.URL + "/modelInfo")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestModelInfoWithoutShower(t *testing.T) {
	srv, _ := newServer(t, nil)

	var got map[string]any
	resp, err := http.Get(srv.URL + "/modelInfo")
	require.NoError(t, err)
	decodeBody(t, resp, &got)
	assert.Equal(t, "model-a", got["model"])
	assert.Nil(t, got["info"])
}

func TestTranscripts(t *testing.T) {
	ctx := context.Background()
	archive := transcript.NewMemory()
	t.Cleanup(func() { archive.Close() })
	t0 := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, archive.BeginRun(ctx, transcript.Run{ID: "run-1", StartedAt: t0, ModelA: "model-a", ModelB: "model-b"}))
	require.NoError(t, archive.Append(ctx, transcript.Record{RunID: "run-1", Turn: 1, Participant: 1, Model: "model-a", Content: "hello"}))
	require.NoError(t, archive.Append(ctx, transcript.Record{RunID: "run-1", Turn: 2, Participant: 2, Model: "model-b", Content: "hi"}))

	d := duet.New(blockingChatter{}, hub.New(), duet.Config{ModelA: "model-a", ModelB: "model-b", Archive: archive})
	t.Cleanup(func() { d.Close() })
	s := server.New(d, nil)
	s.Transcripts = archive
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	var runs []transcript.Run
	resp, err := http.Get(srv.URL + "/api/transcripts")
	require.NoError(t, err)
	decodeBody(t, resp, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)

	var got struct {
		Run   transcript.Run      `json:"run"`
		Turns []transcript.Record `json:"turns"`
	}
	resp, err = http.Get(srv.URL + "/api/transcripts/run-1")
	require.NoError(t, err)
	decodeBody(t, resp, &got)
	assert.Equal(t, "model-b", got.Run.ModelB)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, "hello", got.Turns[0].Content)
	assert.Equal(t, 2, got.Turns[1].Participant)

	resp, err = http.Get(srv.URL + "/api/transcripts/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTranscriptsWithoutArchive(t *testing.T) {
	srv, _ := newServer(t, nil)
	resp, err := http.Get(srv.URL + "/api/transcripts")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv, _ := newServer(t, nil)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
}

func readEvent(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev map[string]any
	require.NoError(t, ws.ReadJSON(&ev))
	return ev
}

func TestViewerReceivesInitAndEvents(t *testing.T) {
	srv, d := newServer(t, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	ev := readEvent(t, ws)
	assert.Equal(t, "init", ev["type"])
	assert.Equal(t, false, ev["isRunning"])
	assert.Equal(t, []any{}, ev["chat1"])

	require.True(t, d.Start())
	ev = readEvent(t, ws)
	assert.Equal(t, "status", ev["type"])
	assert.Equal(t, true, ev["isRunning"])
	ev = readEvent(t, ws)
	assert.Equal(t, "thinking", ev["type"])
	assert.Equal(t, float64(1), ev["llm"])

	d.Reset()
	assert.Equal(t, "status", readEvent(t, ws)["type"])
	assert.Equal(t, "reset", readEvent(t, ws)["type"])
}

func TestServeShutsDownOnCancel(t *testing.T) {
	d := duet.New(blockingChatter{}, hub.New(), duet.Config{})
	t.Cleanup(func() { d.Close() })
	s := server.New(d, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	url := "ws://" + ln.Addr().String() + "/"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	assert.Equal(t, "init", readEvent(t, ws)["type"])

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = ws.ReadMessage()
	assert.Error(t, err)
}
