// Package llmgloss implements the LLM-assisted gloss normalizer.
//
// One short prompt is sent per transcript chunk, carrying the last few chunks
// as context. The model replies with the normalization result as JSON; the
// parser tolerates markdown code fences around the payload because several
// hosted models wrap JSON despite instructions not to.
//
// Backends are composed through a [resilience.FallbackGroup]: when the
// primary is rate-limited or unreachable, the next configured backend is
// tried in order. The chain itself can still fail as a whole; the streaming
// coordinator holds the guaranteed-success word-split safety net.
package llmgloss

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MrWong99/signbridge/internal/gloss"
	"github.com/MrWong99/signbridge/internal/resilience"
	"github.com/MrWong99/signbridge/pkg/provider/llm"
)

// completionTemperature keeps the rewrite near-deterministic; the task is
// extraction, not generation.
const completionTemperature = 0.2

// completionMaxTokens bounds the reply; results are small JSON objects.
const completionMaxTokens = 300

// languageNames maps sign language codes to the names used in the prompt.
var languageNames = map[string]string{
	"asl": "American Sign Language (ASL)",
	"bsl": "British Sign Language (BSL)",
	"isl": "Indian Sign Language (ISL)",
}

// Normalizer implements [gloss.Normalizer] on top of one or more LLM
// backends with automatic failover.
type Normalizer struct {
	group *resilience.FallbackGroup[llm.Provider]
}

var _ gloss.Normalizer = (*Normalizer)(nil)

// New creates a Normalizer with primary as the preferred backend.
func New(primary llm.Provider, primaryName string, cbCfg resilience.CircuitBreakerConfig) *Normalizer {
	return &Normalizer{
		group: resilience.NewFallbackGroup(primary, primaryName, cbCfg),
	}
}

// AddFallback registers an additional backend, tried after the primary in
// registration order.
func (n *Normalizer) AddFallback(name string, provider llm.Provider) {
	n.group.AddFallback(name, provider)
}

// Backends returns the backend names in try order.
func (n *Normalizer) Backends() []string {
	return n.group.Names()
}

// Normalize implements [gloss.Normalizer]. Empty input short-circuits to the
// degenerate result without a network call.
func (n *Normalizer) Normalize(ctx context.Context, req gloss.Request) (*gloss.Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return &gloss.Result{
			CleanedCaption: req.Text,
			SignTokens:     []string{},
			Topic:          gloss.TopicGeneral,
			Confidence:     0,
		}, nil
	}

	prompt := buildPrompt(req)
	creq := llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: completionTemperature,
		MaxTokens:   completionMaxTokens,
	}

	result, err := resilience.ExecuteWithResult(n.group, func(p llm.Provider) (*gloss.Result, error) {
		resp, err := p.Complete(ctx, creq)
		if err != nil {
			return nil, err
		}
		return parseResponse(resp.Content, req.Text)
	})
	if err != nil {
		return nil, fmt.Errorf("llmgloss: %w", err)
	}

	slog.Debug("llm gloss produced",
		"topic", result.Topic,
		"tokens", len(result.SignTokens),
	)
	return result, nil
}

// buildPrompt renders the instruction prompt for one chunk.
func buildPrompt(req gloss.Request) string {
	var b strings.Builder

	if len(req.Context) > 0 {
		b.WriteString("Previous context:\n")
		for i, c := range req.Context {
			fmt.Fprintf(&b, "%d. %q\n", i+1, c)
		}
		b.WriteString("\n")
	}

	langName, ok := languageNames[strings.ToLower(req.Language)]
	if !ok {
		langName = languageNames["asl"]
	}

	fmt.Fprintf(&b, `You are a real-time sign language interpreter.

INPUT: %q
TARGET: %s

Rules:
- Topic-comment structure (object before action)
- Drop articles (a, the)
- Drop copula (is, are, was, were)
- Keep only content words
- Example: "The meeting will start soon" -> ["meeting", "start", "soon"]

Respond ONLY with valid JSON, no markdown, no extra text:
{
  "cleanedCaption": "natural cleaned sentence here",
  "signTokens": ["word1", "word2", "word3"],
  "topic": "one of: General / Business / Medical / Education / Technology / Casual",
  "confidence": 0.95,
  "isQuestion": false
}`, req.Text, langName)

	return b.String()
}

// response is the JSON shape expected from the model.
type response struct {
	CleanedCaption string   `json:"cleanedCaption"`
	SignTokens     []string `json:"signTokens"`
	Topic          string   `json:"topic"`
	Confidence     float64  `json:"confidence"`
	IsQuestion     bool     `json:"isQuestion"`
}

// parseResponse decodes the model reply, stripping markdown code fences
// first. Tokens are case-folded and blank tokens dropped so the output
// invariants match the rule-based path.
func parseResponse(text string, rawText string) (*gloss.Result, error) {
	clean := stripCodeFences(text)

	var r response
	if err := json.Unmarshal([]byte(clean), &r); err != nil {
		return nil, fmt.Errorf("parse model reply: %w", err)
	}

	tokens := make([]string, 0, len(r.SignTokens))
	for _, t := range r.SignTokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			tokens = append(tokens, t)
		}
	}

	// A missing caption is rebuilt from the gloss tokens; raw text is the
	// last resort when the token list is empty too.
	caption := strings.TrimSpace(r.CleanedCaption)
	if caption == "" {
		if len(tokens) > 0 {
			caption = strings.Join(tokens, " ")
			caption = strings.ToUpper(caption[:1]) + caption[1:]
		} else {
			caption = rawText
		}
	}

	topic := gloss.Topic(r.Topic)
	if topic == "" {
		topic = gloss.TopicGeneral
	}

	confidence := r.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.9
	}

	return &gloss.Result{
		CleanedCaption: caption,
		SignTokens:     tokens,
		Topic:          topic,
		Confidence:     confidence,
		IsQuestion:     r.IsQuestion,
	}, nil
}

// stripCodeFences removes a surrounding markdown code fence (```json … ```
// or plain ``` … ```) if present.
func stripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
