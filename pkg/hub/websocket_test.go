package hub_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiniPandi/LLMC/pkg/hub"
)

func newWSServer(t *testing.T, h *hub.Hub, size int) (*httptest.Server, chan *hub.WSConn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conns := make(chan *hub.WSConn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := hub.NewWSConn(ws, size)
		_ = h.Register(c, map[string]string{"type": "init"})
		defer h.Unregister(c)
		conns <- c
		_ = c.Serve(r.Context())
	}))
	t.Cleanup(srv.Close)
	return srv, conns
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readText(t *testing.T, ws *websocket.Conn) string {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	typ, data, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, typ)
	return string(data)
}

func TestWSConnReceivesInitAndBroadcast(t *testing.T) {
	h := hub.New()
	srv, conns := newWSServer(t, h, 0)
	ws := dial(t, srv)
	<-conns

	assert.JSONEq(t, `{"type":"init"}`, readText(t, ws))

	require.NoError(t, h.Broadcast(map[string]any{"type": "status", "isRunning": true}))
	assert.JSONEq(t, `{"type":"status","isRunning":true}`, readText(t, ws))
}

func TestWSConnUnregisteredOnClientClose(t *testing.T) {
	h := hub.New()
	srv, conns := newWSServer(t, h, 0)
	ws := dial(t, srv)
	c := <-conns
	readText(t, ws)
	require.Equal(t, 1, h.Len())

	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	ws.Close()

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server side did not notice the close")
	}
	require.Eventually(t, func() bool { return h.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, c.Send([]byte(`"late"`)), hub.ErrClosed)
}

func TestWSConnServeStopsOnContext(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		served <- hub.NewWSConn(ws, 0).Serve(ctx)
	}))
	defer srv.Close()

	dial(t, srv)
	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
