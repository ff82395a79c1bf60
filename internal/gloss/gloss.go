// Package gloss defines the transcript-to-gloss normalization contract used by
// SignBridge to turn raw spoken-language captions into sign-language-like
// token sequences.
//
// A normalizer takes one raw transcript chunk and produces a cleaned
// natural-language caption, an ordered sequence of content-bearing sign
// tokens, a coarse topic classification, and a confidence score. Two
// implementations exist:
//
//  1. Rule-based ([rules.Normalizer]): a deterministic multi-stage pipeline
//     driven by fixed word tables. Runs in-process with no network calls.
//
//  2. LLM-assisted ([llmgloss.Normalizer]): a language model rewrites the
//     chunk using recent transcript context, with automatic failover across
//     backends. Higher quality on long sentences, but non-deterministic and
//     network-bound.
//
// Both satisfy the same [Normalizer] interface so the streaming coordinator
// can switch between them per configuration. Callers that must never fail
// should wrap the call with [WordSplit] as a terminal fallback.
//
// Implementations must be safe for concurrent use.
package gloss

import (
	"context"
	"regexp"
	"strings"
)

// Topic is the coarse subject classification attached to each normalized chunk.
type Topic string

const (
	TopicGeneral    Topic = "General"
	TopicBusiness   Topic = "Business"
	TopicMedical    Topic = "Medical"
	TopicEducation  Topic = "Education"
	TopicTechnology Topic = "Technology"
	TopicCasual     Topic = "Casual"
)

// Request carries one raw transcript chunk into a [Normalizer].
type Request struct {
	// Text is the raw transcript text as received from the speech recognizer.
	Text string

	// Language is the target sign language code (e.g. "asl"). Rule-based
	// normalization ignores it; the LLM path uses it to phrase the prompt.
	Language string

	// Context holds up to the last few preceding transcript chunks, oldest
	// first. Only the LLM path consumes it.
	Context []string
}

// Result is the output of a normalization pass. It is produced fresh per
// chunk and never mutated afterwards.
//
// SignTokens contains only lower-cased, non-empty, punctuation-stripped
// words. CleanedCaption is human-readable with the first letter capitalized;
// it falls back to the raw input when no tokens survive, so it is never
// empty for non-empty input.
type Result struct {
	CleanedCaption string
	SignTokens     []string
	Topic          Topic
	Confidence     float64
	IsQuestion     bool
}

// Normalizer converts one raw transcript chunk into a [Result].
//
// Implementations must be safe for concurrent use and must not mutate the
// request. A nil error implies a non-nil result.
type Normalizer interface {
	Normalize(ctx context.Context, req Request) (*Result, error)
}

// nonAlpha matches every character that is not a lower-case letter or
// whitespace. Input is case-folded before this is applied.
var nonAlpha = regexp.MustCompile(`[^a-z\s]`)

// Tokenize case-folds text, replaces non-alphabetic characters with spaces,
// and splits on whitespace runs. Empty tokens are dropped.
func Tokenize(text string) []string {
	folded := nonAlpha.ReplaceAllString(strings.ToLower(text), " ")
	return strings.Fields(folded)
}

// WordSplit is the guaranteed-success terminal fallback: a minimal word-split
// tokenization with a visibly reduced confidence and no topic. It is used by
// the streaming coordinator when every configured normalizer has failed, so
// that a sign queue is always producible.
func WordSplit(text string) *Result {
	return &Result{
		CleanedCaption: text,
		SignTokens:     Tokenize(text),
		Topic:          "",
		Confidence:     0.3,
	}
}
