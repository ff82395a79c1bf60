// Package signs maps normalized gloss tokens to sign video assets.
//
// Each supported sign language has a fixed dictionary (token → video file)
// embedded at build time. Lookup never fails: tokens missing from the
// dictionary are a normal, expected case and come back with HasVideo=false,
// which tells the renderer to fall back to letter-by-letter fingerspelling.
//
// For unmapped tokens, [Lookup.Suggest] offers the phonetically nearest known
// sign using Double Metaphone codes ranked by Jaro-Winkler similarity.
package signs

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultLanguage is used when a requested language has no dictionary.
const DefaultLanguage = "asl"

// Languages is the closed set of supported sign language codes.
var Languages = []string{"asl", "bsl", "isl"}

//go:embed dictionaries/*.json
var dictionaryFS embed.FS

// QueueEntry is one sign token mapped to its visual asset. HasVideo=false
// signals that no whole-word asset exists and the token must be fingerspelled.
type QueueEntry struct {
	Token     string  `json:"token"`
	VideoPath *string `json:"videoPath"`
	HasVideo  bool    `json:"hasVideo"`
}

// Lookup resolves tokens against the per-language dictionaries.
// It is read-only after construction and safe for concurrent use.
type Lookup struct {
	dicts map[string]map[string]string

	// suggestThreshold is the minimum Jaro-Winkler score for Suggest to
	// return a candidate.
	suggestThreshold float64
}

// New loads the embedded dictionaries for every supported language.
func New() (*Lookup, error) {
	dicts := make(map[string]map[string]string, len(Languages))
	for _, lang := range Languages {
		raw, err := dictionaryFS.ReadFile("dictionaries/" + lang + ".json")
		if err != nil {
			return nil, fmt.Errorf("signs: read dictionary %q: %w", lang, err)
		}
		var dict map[string]string
		if err := json.Unmarshal(raw, &dict); err != nil {
			return nil, fmt.Errorf("signs: parse dictionary %q: %w", lang, err)
		}
		dicts[lang] = dict
	}
	return &Lookup{dicts: dicts, suggestThreshold: 0.84}, nil
}

// dictFor returns the dictionary for language, falling back to
// [DefaultLanguage] when the requested one is unknown.
func (l *Lookup) dictFor(language string) (string, map[string]string) {
	lang := strings.ToLower(strings.TrimSpace(language))
	if dict, ok := l.dicts[lang]; ok {
		return lang, dict
	}
	return DefaultLanguage, l.dicts[DefaultLanguage]
}

// MapTokens resolves each token to a [QueueEntry] in input order. Unknown
// tokens produce an entry with HasVideo=false and a nil VideoPath.
func (l *Lookup) MapTokens(tokens []string, language string) []QueueEntry {
	lang, dict := l.dictFor(language)

	queue := make([]QueueEntry, 0, len(tokens))
	for _, token := range tokens {
		key := strings.ToLower(strings.TrimSpace(token))
		entry := QueueEntry{Token: token}
		if file, ok := dict[key]; ok {
			path := "/signs/" + lang + "/" + file
			entry.VideoPath = &path
			entry.HasVideo = true
		}
		queue = append(queue, entry)
	}
	return queue
}

// Available returns the sorted set of tokens known for language.
func (l *Lookup) Available(language string) []string {
	_, dict := l.dictFor(language)
	out := make([]string, 0, len(dict))
	for token := range dict {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

// Coverage computes the percentage of queue entries backed by a video asset,
// rounded to the nearest integer. An empty queue yields 0.
func Coverage(queue []QueueEntry) int {
	if len(queue) == 0 {
		return 0
	}
	withVideo := 0
	for _, e := range queue {
		if e.HasVideo {
			withVideo++
		}
	}
	return int(float64(withVideo)/float64(len(queue))*100 + 0.5)
}

// Suggest returns the known sign for language that sounds most like token.
// Candidates must share a Double Metaphone code with the token and score at
// least the suggestion threshold on Jaro-Winkler similarity. Returns
// ok=false when nothing is close enough.
func (l *Lookup) Suggest(token, language string) (suggestion string, ok bool) {
	key := strings.ToLower(strings.TrimSpace(token))
	if key == "" {
		return "", false
	}
	_, dict := l.dictFor(language)

	primary, secondary := matchr.DoubleMetaphone(key)

	best := ""
	bestScore := 0.0
	for candidate := range dict {
		if candidate == key {
			continue
		}
		cp, cs := matchr.DoubleMetaphone(candidate)
		if !codesOverlap(primary, secondary, cp, cs) {
			continue
		}
		score := matchr.JaroWinkler(key, candidate, false)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}

	if bestScore < l.suggestThreshold {
		return "", false
	}
	return best, true
}

// codesOverlap reports whether any non-empty metaphone code matches between
// the two encodings.
func codesOverlap(p1, s1, p2, s2 string) bool {
	for _, a := range []string{p1, s1} {
		if a == "" {
			continue
		}
		if a == p2 || a == s2 {
			return true
		}
	}
	return false
}
