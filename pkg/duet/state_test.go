package duet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiniPandi/LLMC/pkg/ollama"
)

func TestStateCommitCrossPosts(t *testing.T) {
	s := NewState("sys")
	assert.Equal(t, 1, s.commit(ParticipantA, "one"))
	assert.Equal(t, 2, s.commit(ParticipantB, "two"))

	assert.Equal(t, []ollama.Message{
		ollama.AssistantMessage("one"),
		ollama.UserMessage("two"),
	}, s.History(ParticipantA))
	assert.Equal(t, []ollama.Message{
		ollama.UserMessage("one"),
		ollama.AssistantMessage("two"),
	}, s.History(ParticipantB))
	assert.Equal(t, 2, s.Turns())
	assert.Equal(t, ollama.SystemMessage("sys"), s.System())
}

func TestStateHistoryIsCopy(t *testing.T) {
	s := NewState("sys")
	assert.NotNil(t, s.History(ParticipantA))
	assert.Empty(t, s.History(ParticipantA))

	s.commit(ParticipantA, "one")
	h := s.History(ParticipantA)
	h[0].Content = "changed"
	assert.Equal(t, "one", s.History(ParticipantA)[0].Content)

	snap := s.Snapshot()
	snap.ChatB[0].Content = "changed"
	assert.Equal(t, "one", s.History(ParticipantB)[0].Content)
}

func TestStateReset(t *testing.T) {
	s := NewState("sys")
	s.setRunning(true)
	s.commit(ParticipantA, "one")
	s.Reset()

	snap := s.Snapshot()
	assert.Empty(t, snap.ChatA)
	assert.Empty(t, snap.ChatB)
	assert.False(t, snap.Running)
	assert.Zero(t, snap.Turns)
	assert.Equal(t, "sys", s.System().Content)
}

func TestStateAppendPanics(t *testing.T) {
	s := NewState("sys")
	assert.Panics(t, func() { s.Append(ParticipantA, ollama.Message{Role: "tool", Content: "x"}) })
	assert.Panics(t, func() { s.Append(ParticipantA, ollama.UserMessage("")) })
	assert.Panics(t, func() { s.Append(Participant(3), ollama.UserMessage("x")) })
	assert.Panics(t, func() { NewState("") })
}

func TestParticipant(t *testing.T) {
	assert.Equal(t, ParticipantB, ParticipantA.Other())
	assert.Equal(t, ParticipantA, ParticipantB.Other())
	assert.True(t, ParticipantA.Valid())
	assert.False(t, Participant(0).Valid())
	assert.Equal(t, "A", ParticipantA.String())
	assert.Equal(t, "Participant(7)", Participant(7).String())
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, DefaultModel, c.ModelA)
	assert.Equal(t, DefaultModel, c.ModelB)
	assert.Equal(t, DefaultSystemPrompt, c.SystemPrompt)
	assert.Equal(t, DefaultPacing, c.Pacing)

	c = Config{ModelA: "x", Pacing: -time.Second}.withDefaults()
	require.Equal(t, "x", c.ModelA)
	assert.Zero(t, c.Pacing)
}
