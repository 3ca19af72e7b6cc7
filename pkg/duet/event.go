package duet

import "github.com/MiniPandi/LLMC/pkg/ollama"

// EventType is the "type" field of a viewer event.
type EventType string

const (
	EventInit            EventType = "init"
	EventStatus          EventType = "status"
	EventThinking        EventType = "thinking"
	EventStream          EventType = "stream"
	EventMessageComplete EventType = "message_complete"
	EventReset           EventType = "reset"
	EventError           EventType = "error"
)

// InitEvent replays the current state to a newly registered viewer.
type InitEvent struct {
	Type      EventType        `json:"type"`
	Chat1     []ollama.Message `json:"chat1"`
	Chat2     []ollama.Message `json:"chat2"`
	IsRunning bool             `json:"isRunning"`
}

type StatusEvent struct {
	Type      EventType `json:"type"`
	IsRunning bool      `json:"isRunning"`
}

// ThinkingEvent announces a turn before its first fragment.
type ThinkingEvent struct {
	Type EventType   `json:"type"`
	LLM  Participant `json:"llm"`
}

// StreamEvent carries one fragment and everything accumulated so far.
type StreamEvent struct {
	Type        EventType   `json:"type"`
	LLM         Participant `json:"llm"`
	Content     string      `json:"content"`
	FullContent string      `json:"fullContent"`
}

// MessageCompleteEvent reports a committed turn.
type MessageCompleteEvent struct {
	Type         EventType   `json:"type"`
	LLM          Participant `json:"llm"`
	Content      string      `json:"content"`
	MessageCount int         `json:"messageCount"`
}

type ResetEvent struct {
	Type EventType `json:"type"`
}

type ErrorEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

func newInitEvent(s Snapshot) InitEvent {
	return InitEvent{
		Type:      EventInit,
		Chat1:     s.ChatA,
		Chat2:     s.ChatB,
		IsRunning: s.Running,
	}
}

func newStatusEvent(running bool) StatusEvent {
	return StatusEvent{Type: EventStatus, IsRunning: running}
}
