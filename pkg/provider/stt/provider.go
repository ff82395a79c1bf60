// Package stt defines the Provider interface for batch Speech-to-Text
// backends.
//
// SignBridge treats transcription as an external collaborator: the presenter
// client uploads one recorded audio segment at a time and receives the
// transcript text back. Providers therefore expose a single blocking
// Transcribe call rather than a streaming session.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Request is one audio segment to transcribe.
type Request struct {
	// Audio is the raw encoded audio bytes (e.g. a webm or wav recording).
	Audio []byte

	// Filename hints the container format to providers that sniff it from
	// the file extension (e.g. "segment.webm").
	Filename string

	// Language is the ISO-639-1 recognition hint; SignBridge always sends
	// "en". Empty lets the provider auto-detect, if supported.
	Language string
}

// Provider is the abstraction over any batch STT backend.
type Provider interface {
	// Transcribe converts one audio segment to text. A transcription failure
	// is surfaced as an error with the underlying message; no fallback text
	// is fabricated.
	Transcribe(ctx context.Context, req Request) (string, error)
}
