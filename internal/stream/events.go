// Package stream implements the live-captioning event protocol and the
// coordinator that drives the transcript-to-signs pipeline per connection.
//
// Wire format: every WebSocket message is a JSON [Envelope] carrying an event
// name and a payload. Inbound events mutate or query the sender's session;
// outbound caption and sign events go to the originating connection and are
// mirrored to the viewer broadcast group. Export data is never broadcast.
//
// Ordering guarantee: within one source connection the raw caption always
// precedes its cleaned caption and sign queue. Events from different source
// connections may interleave arbitrarily in a viewer's stream.
package stream

import (
	"encoding/json"
	"time"

	"github.com/MrWong99/signbridge/internal/gloss"
	"github.com/MrWong99/signbridge/internal/session"
	"github.com/MrWong99/signbridge/internal/signs"
)

// Inbound event names.
const (
	EventSetLanguage   = "set-language"
	EventTranscript    = "transcript"
	EventExportRequest = "export-request"
	EventSessionReset  = "session-reset"
	EventViewerJoin    = "viewer-join"
)

// Outbound event names.
const (
	EventCaption       = "caption"
	EventCaptionUpdate = "caption-update"
	EventSigns         = "signs"
	EventExportData    = "export-data"
	EventError         = "error"
)

// Envelope is the wire frame for inbound messages. The payload stays raw
// until the event name selects its concrete type.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is an outbound message before marshalling.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// SetLanguagePayload selects the target sign language for the session.
type SetLanguagePayload struct {
	Language string `json:"language"`
}

// TranscriptPayload carries one raw transcript chunk. Language, when set,
// updates the session's target language before processing.
type TranscriptPayload struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// CaptionPayload is emitted twice per chunk: first with Type "raw" as soon as
// the chunk arrives (as [EventCaption]), then with Type "cleaned" once
// normalization completes (as [EventCaptionUpdate]).
type CaptionPayload struct {
	Text       string              `json:"text"`
	Timestamp  time.Time           `json:"timestamp"`
	Type       session.CaptionType `json:"type"`
	Topic      gloss.Topic         `json:"topic,omitempty"`
	Confidence float64             `json:"confidence,omitempty"`
	IsQuestion bool                `json:"isQuestion,omitempty"`
}

// SignsPayload is the renderable sign queue derived from one chunk.
type SignsPayload struct {
	SignQueue  []signs.QueueEntry `json:"signQueue"`
	Topic      gloss.Topic        `json:"topic"`
	Confidence float64            `json:"confidence"`
	Coverage   int                `json:"coverage"`
	Timestamp  time.Time          `json:"timestamp"`
}

// ErrorPayload reports a rejected or failed inbound event to the sender.
type ErrorPayload struct {
	Message string `json:"message"`
}
