package app

import "thucydides/internal/model"

// EventType tags one unit of a server-push stream.
type EventType string

const (
	EventText      EventType = "text"
	EventCitations EventType = "citations"
	EventLog       EventType = "log"
	EventMatch     EventType = "match"
	EventDone      EventType = "done"
	EventError     EventType = "error"
)

// StreamEvent is transient protocol state, never persisted.
//
// Ordering contract: a RAG answer stream is zero or more text events followed
// by exactly one citations event. A figure-search stream is zero or more log
// events, at most one match or error event, and always a final done event.
type StreamEvent struct {
	Type    EventType        `json:"type"`
	Content string           `json:"content,omitempty"`
	Data    []model.Citation `json:"data,omitempty"`
	Payload interface{}      `json:"payload,omitempty"`
}

// EmitFunc receives stream events in order. Returning an error aborts the
// producing stream.
type EmitFunc func(StreamEvent) error
