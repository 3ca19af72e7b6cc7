package duet

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MiniPandi/LLMC/pkg/ollama"
	"github.com/MiniPandi/LLMC/pkg/transcript"
)

// errEmptyReply is reported when a model finishes a turn without text.
var errEmptyReply = errors.New("duet: model returned an empty reply")

// run identifies one Start. A turn belongs to the run that scheduled it
// and is dropped as soon as that run is no longer current.
type run struct {
	epoch uint64
	id    string
}

// active reports whether r is the current, running run. Must be called
// with d.mu held.
func (d *Duet) active(r run) bool {
	return !d.closed && d.state.Running() && d.cur.epoch == r.epoch
}

// run alternates turns until the conversation stops or a turn fails.
func (d *Duet) run(r run) {
	defer d.wg.Done()

	d.beginArchive(r)
	speaker := ParticipantA
	for {
		if !d.turn(r, speaker) {
			return
		}
		if !d.pace(r) {
			return
		}
		speaker = speaker.Other()
	}
}

// pace waits out the gap between turns and reports whether the run is
// still current when it elapses.
func (d *Duet) pace(r run) bool {
	t := time.NewTimer(d.cfg.Pacing)
	defer t.Stop()
	select {
	case <-d.ctx.Done():
		return false
	case <-t.C:
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active(r)
}

// prompt builds p's model input. Must be called with d.mu held.
func (d *Duet) prompt(p Participant) []ollama.Message {
	hist := d.state.History(p)
	out := make([]ollama.Message, 0, len(hist)+2)
	out = append(out, d.state.System())
	if p == ParticipantA && d.cfg.Opener != "" {
		out = append(out, ollama.UserMessage(d.cfg.Opener))
	}
	return append(out, hist...)
}

// turn runs one turn for speaker and reports whether it was committed.
func (d *Duet) turn(r run, speaker Participant) bool {
	d.mu.Lock()
	if !d.active(r) {
		d.mu.Unlock()
		return false
	}
	model := d.Model(speaker)
	messages := d.prompt(speaker)
	d.emit(ThinkingEvent{Type: EventThinking, LLM: speaker})
	d.mu.Unlock()

	slog.Debug("duet: turn started", "run", r.id, "participant", speaker, "model", model, "messages", len(messages))

	str, err := d.chat.Chat(d.ctx, model, messages)
	if err != nil {
		d.fail(r, speaker, err)
		return false
	}
	defer str.Close()

	var buf strings.Builder
	for {
		frag, err := str.Next()
		if errors.Is(err, ollama.ErrDone) {
			break
		}
		if err != nil {
			d.fail(r, speaker, err)
			return false
		}

		d.mu.Lock()
		if !d.active(r) {
			d.mu.Unlock()
			slog.Debug("duet: turn abandoned", "run", r.id, "participant", speaker)
			return false
		}
		buf.WriteString(frag.Content)
		d.emit(StreamEvent{
			Type:        EventStream,
			LLM:         speaker,
			Content:     frag.Content,
			FullContent: buf.String(),
		})
		d.mu.Unlock()
	}

	content := buf.String()
	if content == "" {
		d.fail(r, speaker, errEmptyReply)
		return false
	}

	d.mu.Lock()
	if !d.active(r) {
		d.mu.Unlock()
		slog.Debug("duet: turn abandoned", "run", r.id, "participant", speaker)
		return false
	}
	count := d.state.commit(speaker, content)
	d.emit(MessageCompleteEvent{
		Type:         EventMessageComplete,
		LLM:          speaker,
		Content:      content,
		MessageCount: count,
	})
	d.mu.Unlock()

	slog.Debug("duet: turn committed", "run", r.id, "participant", speaker, "turn", count, "chars", len(content))
	d.archiveTurn(r, speaker, model, count, content)
	return true
}

// fail reports a model failure and stops the conversation, unless the
// turn's run is already over, in which case the error is only logged.
func (d *Duet) fail(r run, speaker Participant, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active(r) {
		slog.Debug("duet: error after stop ignored", "run", r.id, "participant", speaker, "error", err)
		return
	}
	slog.Error("duet: turn failed", "run", r.id, "participant", speaker, "error", err)
	d.emit(ErrorEvent{Type: EventError, Message: err.Error()})
	d.stopLocked()
}

func (d *Duet) beginArchive(r run) {
	if d.cfg.Archive == nil {
		return
	}
	err := d.cfg.Archive.BeginRun(d.ctx, transcript.Run{
		ID:           r.id,
		StartedAt:    time.Now(),
		ModelA:       d.cfg.ModelA,
		ModelB:       d.cfg.ModelB,
		SystemPrompt: d.cfg.SystemPrompt,
		Opener:       d.cfg.Opener,
	})
	if err != nil {
		slog.Warn("duet: archive run failed", "run", r.id, "error", err)
	}
}

func (d *Duet) archiveTurn(r run, speaker Participant, model string, turn int, content string) {
	if d.cfg.Archive == nil {
		return
	}
	err := d.cfg.Archive.Append(d.ctx, transcript.Record{
		RunID:       r.id,
		Turn:        turn,
		Participant: int(speaker),
		Model:       model,
		Content:     content,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		slog.Warn("duet: archive turn failed", "run", r.id, "turn", turn, "error", err)
	}
}
