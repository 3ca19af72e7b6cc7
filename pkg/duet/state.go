package duet

import (
	"fmt"

	"github.com/MiniPandi/LLMC/pkg/ollama"
)

// State is the conversation state: two participant histories, the system
// message, the running flag and the completed-turn counter.
//
// State is not safe for concurrent use; Duet serializes access to it.
type State struct {
	system    ollama.Message
	histories [2][]ollama.Message
	running   bool
	turns     int
}

// Snapshot is a copy of the state at one instant.
type Snapshot struct {
	ChatA   []ollama.Message `json:"chat1"`
	ChatB   []ollama.Message `json:"chat2"`
	Running bool             `json:"isRunning"`
	Turns   int              `json:"messageCount"`
}

// NewState returns an empty, stopped state with the given system prompt.
func NewState(system string) *State {
	if system == "" {
		panic("duet: empty system prompt")
	}
	return &State{system: ollama.SystemMessage(system)}
}

// Append adds m to p's history. Empty roles or content are programming
// errors and panic.
func (s *State) Append(p Participant, m ollama.Message) {
	if !m.Role.Valid() {
		panic(fmt.Sprintf("duet: invalid message role %q", m.Role))
	}
	if m.Content == "" {
		panic("duet: empty message content")
	}
	i := p.index()
	s.histories[i] = append(s.histories[i], m)
}

// History returns a copy of p's history, never nil.
func (s *State) History(p Participant) []ollama.Message {
	h := s.histories[p.index()]
	out := make([]ollama.Message, len(h))
	copy(out, h)
	return out
}

// System returns the system message that heads every prompt.
func (s *State) System() ollama.Message {
	return s.system
}

func (s *State) Running() bool {
	return s.running
}

func (s *State) setRunning(v bool) {
	s.running = v
}

// Turns returns the number of turns completed since the last reset or start.
func (s *State) Turns() int {
	return s.turns
}

func (s *State) resetTurns() {
	s.turns = 0
}

// commit records a completed turn: the speaker's reply is its own
// assistant message and the listener's next user message.
func (s *State) commit(speaker Participant, content string) int {
	s.Append(speaker, ollama.AssistantMessage(content))
	s.Append(speaker.Other(), ollama.UserMessage(content))
	s.turns++
	return s.turns
}

// Snapshot returns deep copies of both histories plus the flags.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		ChatA:   s.History(ParticipantA),
		ChatB:   s.History(ParticipantB),
		Running: s.running,
		Turns:   s.turns,
	}
}

// Reset clears both histories and the counter and stops the conversation.
// The system message is kept.
func (s *State) Reset() {
	s.histories = [2][]ollama.Message{}
	s.running = false
	s.turns = 0
}
