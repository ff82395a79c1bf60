// Package rules implements the deterministic, rule-based gloss normalizer.
//
// The pipeline is a fixed sequence of passes over the word list; ordering is
// significant because later filters assume earlier ones already ran (for
// example, auxiliary removal expects contractions to have been expanded so
// that "don't" has already become "not"). The whole pipeline is a pure
// function of the input text and the static word tables in tables.go — no
// I/O, no randomness, no network.
package rules

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/MrWong99/signbridge/internal/gloss"
)

// Static confidence values. The rule pipeline has no token-level confidence
// signal; questions score lower because topic-comment reordering is the most
// error-prone stage.
const (
	statementConfidence = 0.91
	questionConfidence  = 0.82
)

// minTokenLen is the cleanup threshold: shorter tokens are dropped unless
// whitelisted in keepShort.
const minTokenLen = 3

// contractionPatterns holds one compiled word-boundary regex per contraction,
// in deterministic (sorted-key) order. Built once at init.
var contractionPatterns = compileContractions()

type contractionPattern struct {
	re          *regexp.Regexp
	replacement string
}

func compileContractions() []contractionPattern {
	keys := make([]string, 0, len(contractions))
	for k := range contractions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]contractionPattern, 0, len(keys))
	for _, k := range keys {
		out = append(out, contractionPattern{
			re:          regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`),
			replacement: contractions[k],
		})
	}
	return out
}

// Normalizer is the rule-based implementation of [gloss.Normalizer].
// It is stateless and safe for concurrent use.
type Normalizer struct{}

var _ gloss.Normalizer = (*Normalizer)(nil)

// New returns the rule-based normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize runs the full rule pipeline on req.Text. It never fails for
// string input: the error is always nil, and empty or whitespace-only input
// short-circuits to the degenerate result before any stage runs.
func (n *Normalizer) Normalize(_ context.Context, req gloss.Request) (*gloss.Result, error) {
	raw := req.Text
	if strings.TrimSpace(raw) == "" {
		return &gloss.Result{
			CleanedCaption: raw,
			SignTokens:     []string{},
			Topic:          gloss.TopicGeneral,
			Confidence:     0,
		}, nil
	}

	// Question form is decided on the original text, before any mutation.
	isQ := isQuestion(raw)

	words := gloss.Tokenize(ExpandContractions(raw))
	words = removeFillers(words)
	words = removeArticles(words)
	words = removeCopulas(words)
	words = removeAuxiliaries(words)
	words = reorderTopicComment(words, isQ)
	words = cleanup(words)

	topic := detectTopic(words)

	caption := raw
	if len(words) > 0 {
		caption = strings.Join(words, " ")
		caption = strings.ToUpper(caption[:1]) + caption[1:]
	}

	confidence := statementConfidence
	if isQ {
		confidence = questionConfidence
	}

	return &gloss.Result{
		CleanedCaption: caption,
		SignTokens:     words,
		Topic:          topic,
		Confidence:     confidence,
		IsQuestion:     isQ,
	}, nil
}

// ExpandContractions case-folds text and replaces every whole-word
// contraction with its expansion. Word-boundary matching keeps partial
// matches inside other words intact. Expansion is idempotent: running it on
// already-expanded text changes nothing.
func ExpandContractions(text string) string {
	result := strings.ToLower(text)
	for _, p := range contractionPatterns {
		result = p.re.ReplaceAllString(result, p.replacement)
	}
	return result
}

// isQuestion reports whether the raw text is in question form: it either ends
// with a question mark or opens with a question or auxiliary lead word.
func isQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	// The lead word ends at the first non-letter rune, so "what's" and
	// "where," match their bare forms.
	first := strings.ToLower(trimmed)
	for i, r := range first {
		if r < 'a' || r > 'z' {
			first = first[:i]
			break
		}
	}
	_, ok := questionLeads[first]
	return ok
}

// removeFillers drops filler words and short non-whitelisted words. This is
// the coarsest pass and runs first so the later grammatical passes see only
// plausible content words.
func removeFillers(words []string) []string {
	out := words[:0]
	for _, w := range words {
		if _, filler := fillers[w]; filler {
			continue
		}
		if _, keep := keepShort[w]; len(w) <= minTokenLen && !keep {
			continue
		}
		out = append(out, w)
	}
	return out
}

func removeArticles(words []string) []string {
	out := words[:0]
	for _, w := range words {
		if _, ok := articles[w]; !ok {
			out = append(out, w)
		}
	}
	return out
}

// removeCopulas drops copula forms unless immediately followed by "not": a
// negated copula is preserved as a unit with its negation. (The behaviour
// this pipeline was modelled on dropped the copula in both branches; that
// contradicted its own negation handling, so here the negated form is kept.)
func removeCopulas(words []string) []string {
	return dropUnlessNegated(words, copulas)
}

// removeAuxiliaries applies the same look-ahead-for-"not" rule to modal and
// auxiliary verbs.
func removeAuxiliaries(words []string) []string {
	return dropUnlessNegated(words, auxiliaries)
}

func dropUnlessNegated(words []string, set map[string]struct{}) []string {
	out := make([]string, 0, len(words))
	for i, w := range words {
		if _, ok := set[w]; ok {
			if i+1 < len(words) && words[i+1] == "not" {
				out = append(out, w)
				continue
			}
			continue
		}
		out = append(out, w)
	}
	return out
}

// reorderTopicComment moves the first question word to the end of the
// sequence, mirroring topic-comment sign order (object/topic before the
// question word). Applies only to detected questions; when no question word
// is present the order is unchanged.
func reorderTopicComment(words []string, isQ bool) []string {
	if !isQ {
		return words
	}
	for i, w := range words {
		if _, ok := questionWords[w]; ok {
			out := make([]string, 0, len(words))
			out = append(out, words[:i]...)
			out = append(out, words[i+1:]...)
			return append(out, w)
		}
	}
	return words
}

// cleanup removes remaining too-short tokens, then collapses immediately
// adjacent duplicates.
func cleanup(words []string) []string {
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if _, keep := keepShort[w]; len(w) < minTokenLen && !keep {
			continue
		}
		kept = append(kept, w)
	}
	return dedupeAdjacent(kept)
}

// dedupeAdjacent drops tokens equal to their immediate predecessor. Only
// consecutive repeats are dropped; non-adjacent repeats are meaningful and
// preserved.
func dedupeAdjacent(words []string) []string {
	out := words[:0]
	for _, w := range words {
		if len(out) > 0 && out[len(out)-1] == w {
			continue
		}
		out = append(out, w)
	}
	return out
}

// detectTopic tests the token set against the topic keyword lists in fixed
// priority order and returns the first topic with an overlap.
func detectTopic(words []string) gloss.Topic {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	for _, topic := range topicOrder {
		for kw := range topicKeywords[topic] {
			if _, ok := set[kw]; ok {
				return topic
			}
		}
	}
	return gloss.TopicGeneral
}
