package rules

import "github.com/MrWong99/signbridge/internal/gloss"

// The word tables below are the entire linguistic knowledge of the rule-based
// normalizer. They are constructed once at init and never mutated; treat them
// as read-only configuration data.

// fillers are interjections, hedges, and discourse markers that carry no sign
// content.
var fillers = wordSet(
	"um", "uh", "er", "ah", "so", "well", "just", "like",
	"okay", "ok", "right", "now", "then", "also", "very",
	"much", "really", "quite", "rather", "pretty", "basically",
	"literally", "actually", "honestly", "anyway", "alright",
)

var articles = wordSet("a", "an", "the")

var copulas = wordSet(
	"is", "are", "was", "were", "am", "be", "been", "being",
)

// auxiliaries covers modal and auxiliary verbs plus a handful of temporal
// connectives the pipeline treats the same way.
var auxiliaries = wordSet(
	"will", "would", "could", "should", "can", "may", "might",
	"shall", "must", "do", "does", "did", "have", "has", "had",
	"going", "to", "then", "now", "when", "that", "this",
)

var questionWords = wordSet(
	"what", "where", "when", "why", "who", "which", "how",
)

// questionLeads are the words that mark a sentence as a question when they
// open it, evaluated on the raw text before any mutation.
var questionLeads = wordSet(
	"what", "where", "when", "why", "who", "which", "how",
	"is", "are", "was", "were", "do", "does", "did",
	"can", "could", "will", "would", "should",
)

// keepShort whitelists meaningful words that survive the minimum-length
// filters.
var keepShort = wordSet(
	"no", "not", "yes", "who", "why", "how",
	"eat", "sit", "run", "see", "ask",
)

// contractions maps spoken contractions (with and without apostrophes, since
// speech recognizers are inconsistent about them) to their gloss expansion.
// Expansion is idempotent: no value is itself a key.
var contractions = map[string]string{
	"don't": "not", "dont": "not",
	"doesn't": "not", "doesnt": "not",
	"didn't": "not", "didnt": "not",
	"can't": "cannot", "cant": "cannot",
	"won't": "not", "wont": "not",
	"wouldn't": "not", "wouldnt": "not",
	"couldn't": "not", "couldnt": "not",
	"shouldn't": "not", "shouldnt": "not",
	"isn't": "not", "isnt": "not",
	"aren't": "not", "arent": "not",
	"wasn't": "not", "wasnt": "not",
	"weren't": "not", "werent": "not",
	"i'm": "i", "im": "i",
	"i've": "i", "ive": "i",
	"i'll": "i", "ill": "i",
	"i'd": "i", "id": "i",
	"he's": "he", "hes": "he",
	"she's": "she", "shes": "she",
	"it's": "it", "its": "it",
	"we're": "we",
	"they're": "they", "theyre": "they",
	"you're": "you", "youre": "you",
	"that's": "that", "thats": "that",
	"there's": "there", "theres": "there",
	"let's": "let", "lets": "let",
	"gonna": "go",
	"gotta": "have",
	"wanna": "want",
	"kinda": "kind",
	"sorta": "sort",
}

// topicKeywords is tested in priority order; the first topic whose keyword
// set intersects the token set wins.
var topicOrder = []gloss.Topic{
	gloss.TopicBusiness,
	gloss.TopicMedical,
	gloss.TopicEducation,
	gloss.TopicTechnology,
	gloss.TopicCasual,
}

var topicKeywords = map[gloss.Topic]map[string]struct{}{
	gloss.TopicBusiness: wordSet(
		"meeting", "project", "deadline", "client", "budget", "team",
		"report", "presentation", "office", "work", "schedule", "agenda",
	),
	gloss.TopicMedical: wordSet(
		"doctor", "hospital", "medicine", "health", "patient", "treatment",
		"symptom", "diagnosis", "nurse", "pain", "appointment",
	),
	gloss.TopicEducation: wordSet(
		"student", "teacher", "class", "school", "lesson", "homework",
		"exam", "university", "lecture", "study", "course", "grade",
	),
	gloss.TopicTechnology: wordSet(
		"computer", "software", "code", "app", "data", "system",
		"network", "algorithm", "programming", "device", "internet", "ai",
	),
	gloss.TopicCasual: wordSet(
		"lunch", "dinner", "movie", "weekend", "friend", "party",
		"music", "game", "fun", "holiday", "travel", "food",
	),
}

// wordSet builds an immutable membership set from the given words.
func wordSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}
