package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MiniPandi/LLMC/pkg/duet"
	"github.com/MiniPandi/LLMC/pkg/hub"
	"github.com/MiniPandi/LLMC/pkg/ollama"
)

type idleChatter struct{}

func (idleChatter) Chat(ctx context.Context, model string, messages []ollama.Message) (ollama.Stream, error) {
	return nil, errors.New("idle")
}

func TestAutostartWaitsForPull(t *testing.T) {
	d := duet.New(idleChatter{}, hub.New(), duet.Config{})
	defer d.Close()

	pulled := make(chan struct{})
	done := make(chan struct{})
	go func() {
		autostart(context.Background(), d, time.Millisecond, pulled)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	if d.Running() {
		t.Fatal("started before pull finished")
	}
	close(pulled)
	<-done
	if d.RunID() == "" {
		t.Fatal("expected a run after autostart")
	}
}

func TestAutostartCancelled(t *testing.T) {
	d := duet.New(idleChatter{}, hub.New(), duet.Config{})
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	autostart(ctx, d, time.Hour, make(chan struct{}))
	if d.RunID() != "" {
		t.Fatal("autostart ran after cancel")
	}
}

func TestPullModelsDeduplicates(t *testing.T) {
	var mu sync.Mutex
	var pulled []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		pulled = append(pulled, req.Model)
		mu.Unlock()
		if req.Model == "broken" {
			http.Error(w, `{"error":"no such model"}`, http.StatusNotFound)
			return
		}
		fmt.Fprintln(w, `{"status":"success"}`)
	}))
	defer srv.Close()

	client, err := ollama.NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	pullModels(context.Background(), client, "llama3.2", "broken", "llama3.2")

	mu.Lock()
	defer mu.Unlock()
	if len(pulled) != 2 || pulled[0] != "llama3.2" || pulled[1] != "broken" {
		t.Fatalf("pulled = %v", pulled)
	}
}

func TestNormalizeOllamaURL(t *testing.T) {
	cases := map[string]string{
		"":                       ollama.DefaultBaseURL,
		"0.0.0.0:11434":          "http://0.0.0.0:11434",
		"https://ollama.lan/":    "https://ollama.lan",
		"http://127.0.0.1:11434": "http://127.0.0.1:11434",
		"gpu-box":                "http://gpu-box:11434",
		"gpu-box/":               "http://gpu-box:11434",
		"gpu-box:8080":           "http://gpu-box:8080",
		"[::1]":                  "http://[::1]:11434",
		"http://gpu-box":         "http://gpu-box",
	}
	for in, want := range cases {
		if got := normalizeOllamaURL(in); got != want {
			t.Errorf("normalizeOllamaURL(%q) = %q, want %q", in, got, want)
		}
	}
}
