package duet

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MiniPandi/LLMC/pkg/hub"
	"github.com/MiniPandi/LLMC/pkg/ollama"
	"github.com/MiniPandi/LLMC/pkg/transcript"
)

const (
	// DefaultModel is used for a participant with no model configured.
	DefaultModel = "llama3.2"

	// DefaultSystemPrompt heads both participants' prompts.
	DefaultSystemPrompt = "You are an LLM having a conversation with another LLM. Keep responses concise and engaging."

	// DefaultPacing is the gap between one turn's completion and the next turn.
	DefaultPacing = time.Second
)

// Broadcaster is the viewer fan-out used by a Duet. *hub.Hub implements it.
type Broadcaster interface {
	Register(c hub.Conn, init any) error
	Unregister(c hub.Conn) bool
	Broadcast(v any) error
}

// Archive records committed turns. *transcript.Archive implements it.
type Archive interface {
	BeginRun(ctx context.Context, run transcript.Run) error
	Append(ctx context.Context, rec transcript.Record) error
}

var _ Broadcaster = (*hub.Hub)(nil)

// Config configures a Duet. Zero fields take the package defaults.
type Config struct {
	// ModelA and ModelB are the model ids of the two participants.
	ModelA string
	ModelB string

	// SystemPrompt is sent as the first message of every prompt.
	SystemPrompt string

	// Opener, if set, is sent to participant A as a user message right
	// after the system prompt. It is never stored in a history.
	Opener string

	// Pacing is the delay between turns. Negative means no delay.
	Pacing time.Duration

	// Archive, if set, receives every committed turn.
	Archive Archive
}

func (c Config) withDefaults() Config {
	if c.ModelA == "" {
		c.ModelA = DefaultModel
	}
	if c.ModelB == "" {
		c.ModelB = DefaultModel
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.Pacing == 0 {
		c.Pacing = DefaultPacing
	}
	if c.Pacing < 0 {
		c.Pacing = 0
	}
	return c
}

// Duet is the conversation controller. It is safe for concurrent use.
type Duet struct {
	cfg  Config
	chat ollama.Chatter
	hub  Broadcaster

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	state  *State
	cur    run
	closed bool
}

// New returns a stopped Duet that sends turns to chat and events to b.
func New(chat ollama.Chatter, b Broadcaster, cfg Config) *Duet {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Duet{
		cfg:    cfg,
		chat:   chat,
		hub:    b,
		ctx:    ctx,
		cancel: cancel,
		state:  NewState(cfg.SystemPrompt),
	}
}

// Config returns the effective configuration.
func (d *Duet) Config() Config {
	return d.cfg
}

// Model returns the model id of p.
func (d *Duet) Model(p Participant) string {
	if p == ParticipantB {
		return d.cfg.ModelB
	}
	return d.cfg.ModelA
}

// Start begins a new run with participant A speaking first. It is a no-op
// returning false if the conversation is already running or the Duet is
// closed. Histories are kept; the turn counter restarts at zero.
func (d *Duet) Start() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.state.Running() {
		return false
	}
	d.state.setRunning(true)
	d.state.resetTurns()
	d.cur = run{epoch: d.cur.epoch + 1, id: uuid.NewString()}
	slog.Info("duet: conversation started", "run", d.cur.id, "model_a", d.cfg.ModelA, "model_b", d.cfg.ModelB)
	d.emit(newStatusEvent(true))

	d.wg.Add(1)
	go d.run(d.cur)
	return true
}

// Stop marks the conversation stopped and announces it. Any turn in
// flight is dropped at its next check. Stop on a stopped conversation
// still announces the status.
func (d *Duet) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Duet) stopLocked() {
	if d.state.Running() {
		slog.Info("duet: conversation stopped", "run", d.cur.id, "turns", d.state.Turns())
	}
	d.state.setRunning(false)
	d.emit(newStatusEvent(false))
}

// Reset stops the conversation, clears both histories and the counter,
// and announces the reset. It does not restart.
func (d *Duet) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.state.Reset()
	d.emit(ResetEvent{Type: EventReset})
}

// Register joins c to the viewers and sends it the current state.
func (d *Duet) Register(c hub.Conn) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hub.Register(c, newInitEvent(d.state.Snapshot()))
}

// Unregister removes c from the viewers.
func (d *Duet) Unregister(c hub.Conn) {
	d.hub.Unregister(c)
}

// Snapshot returns a copy of the conversation state.
func (d *Duet) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Snapshot()
}

func (d *Duet) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Running()
}

// RunID returns the id of the latest run, or "" before the first Start.
func (d *Duet) RunID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cur.id
}

// Wait blocks until every engine goroutine has returned.
func (d *Duet) Wait() {
	d.wg.Wait()
}

// Close stops the conversation, cancels in-flight model calls and waits
// for the engine to exit. A closed Duet cannot be started again.
func (d *Duet) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		if d.state.Running() {
			d.stopLocked()
		}
	}
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
	return nil
}

// emit broadcasts v. Must be called with d.mu held.
func (d *Duet) emit(v any) {
	if err := d.hub.Broadcast(v); err != nil {
		slog.Error("duet: broadcast failed", "error", err)
	}
}
