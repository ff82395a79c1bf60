package rules

import (
	"context"
	"reflect"
	"testing"

	"github.com/MrWong99/signbridge/internal/gloss"
)

func normalize(t *testing.T, text string) *gloss.Result {
	t.Helper()
	res, err := New().Normalize(context.Background(), gloss.Request{Text: text})
	if err != nil {
		t.Fatalf("Normalize(%q) returned error: %v", text, err)
	}
	if res == nil {
		t.Fatalf("Normalize(%q) returned nil result", text)
	}
	return res
}

func TestNormalize_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		res := normalize(t, input)
		if len(res.SignTokens) != 0 {
			t.Errorf("Normalize(%q).SignTokens = %v, want empty", input, res.SignTokens)
		}
		if res.Topic != gloss.TopicGeneral {
			t.Errorf("Normalize(%q).Topic = %q, want General", input, res.Topic)
		}
		if res.Confidence != 0 {
			t.Errorf("Normalize(%q).Confidence = %v, want 0", input, res.Confidence)
		}
	}
}

func TestNormalize_StatementPipeline(t *testing.T) {
	res := normalize(t, "The meeting will start soon")

	want := []string{"meeting", "start", "soon"}
	if !reflect.DeepEqual(res.SignTokens, want) {
		t.Errorf("SignTokens = %v, want %v", res.SignTokens, want)
	}
	if res.Topic != gloss.TopicBusiness {
		t.Errorf("Topic = %q, want Business", res.Topic)
	}
	if res.IsQuestion {
		t.Error("IsQuestion = true, want false")
	}
	if res.Confidence != statementConfidence {
		t.Errorf("Confidence = %v, want %v", res.Confidence, statementConfidence)
	}
	if res.CleanedCaption != "Meeting start soon" {
		t.Errorf("CleanedCaption = %q, want %q", res.CleanedCaption, "Meeting start soon")
	}
}

func TestNormalize_QuestionReordering(t *testing.T) {
	res := normalize(t, "What is your name?")

	if !res.IsQuestion {
		t.Fatal("IsQuestion = false, want true")
	}
	want := []string{"your", "name", "what"}
	if !reflect.DeepEqual(res.SignTokens, want) {
		t.Errorf("SignTokens = %v, want %v", res.SignTokens, want)
	}
	if res.Confidence != questionConfidence {
		t.Errorf("Confidence = %v, want %v", res.Confidence, questionConfidence)
	}
}

func TestNormalize_QuestionWithoutQuestionWord(t *testing.T) {
	// Lead auxiliary marks it as a question, but with no question word the
	// token order must be unchanged.
	res := normalize(t, "Did they finish their homework")
	if !res.IsQuestion {
		t.Fatal("IsQuestion = false, want true")
	}
	want := []string{"they", "finish", "their", "homework"}
	if !reflect.DeepEqual(res.SignTokens, want) {
		t.Errorf("SignTokens = %v, want %v", res.SignTokens, want)
	}
}

func TestNormalize_TokensAreLowerAlpha(t *testing.T) {
	inputs := []string{
		"Hello, WORLD! 123 foo-bar?",
		"He's going to the office... (probably)",
		"¿Qué? Ümlaut straße 42",
	}
	for _, input := range inputs {
		res := normalize(t, input)
		for _, tok := range res.SignTokens {
			if tok == "" {
				t.Errorf("Normalize(%q) produced empty token", input)
			}
			for _, r := range tok {
				if r < 'a' || r > 'z' {
					t.Errorf("Normalize(%q) token %q contains non-alphabetic rune %q", input, tok, r)
				}
			}
		}
	}
}

func TestNormalize_NegatedAuxiliaryPreserved(t *testing.T) {
	// "were" is a copula; followed by "not" the pair survives as a unit.
	res := normalize(t, "they were not ready")
	want := []string{"they", "were", "not", "ready"}
	if !reflect.DeepEqual(res.SignTokens, want) {
		t.Errorf("SignTokens = %v, want %v", res.SignTokens, want)
	}

	// Without the negation the copula is dropped.
	res = normalize(t, "they were ready")
	want = []string{"they", "ready"}
	if !reflect.DeepEqual(res.SignTokens, want) {
		t.Errorf("SignTokens = %v, want %v", res.SignTokens, want)
	}
}

func TestNormalize_ShortCopulaLosesNegationPairing(t *testing.T) {
	// Copulas of three letters or fewer are swept out by the filler pass
	// before the negation look-ahead runs, so only the bare "not" survives.
	res := normalize(t, "he is not ready")
	want := []string{"not", "ready"}
	if !reflect.DeepEqual(res.SignTokens, want) {
		t.Errorf("SignTokens = %v, want %v", res.SignTokens, want)
	}

	// A four-letter auxiliary keeps its negation pairing.
	res = normalize(t, "they would not agree")
	want = []string{"they", "would", "not", "agree"}
	if !reflect.DeepEqual(res.SignTokens, want) {
		t.Errorf("SignTokens = %v, want %v", res.SignTokens, want)
	}
}

func TestNormalize_TopicPriorityOrder(t *testing.T) {
	tests := []struct {
		text string
		want gloss.Topic
	}{
		{"the doctor reviewed the budget meeting", gloss.TopicBusiness},
		{"the patient needs treatment", gloss.TopicMedical},
		{"students attend lecture about software", gloss.TopicEducation},
		{"this algorithm needs more data", gloss.TopicTechnology},
		{"lunch with friend this weekend", gloss.TopicCasual},
		{"nothing special here today", gloss.TopicGeneral},
	}
	for _, tc := range tests {
		res := normalize(t, tc.text)
		if res.Topic != tc.want {
			t.Errorf("Normalize(%q).Topic = %q, want %q", tc.text, res.Topic, tc.want)
		}
	}
}

func TestNormalize_CaptionFallsBackToRawText(t *testing.T) {
	// Every word here is filtered out, so the caption must fall back to the
	// raw input rather than going empty.
	raw := "um uh so ok"
	res := normalize(t, raw)
	if len(res.SignTokens) != 0 {
		t.Fatalf("SignTokens = %v, want empty", res.SignTokens)
	}
	if res.CleanedCaption != raw {
		t.Errorf("CleanedCaption = %q, want raw text %q", res.CleanedCaption, raw)
	}
}

func TestExpandContractions(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"I don't know", "i not know"},
		{"can't stop won't stop", "cannot stop not stop"},
		{"I'm gonna leave", "i go leave"},
		{"they're fine", "they fine"},
		{"international", "international"}, // no partial match inside words
	}
	for _, tc := range tests {
		if got := ExpandContractions(tc.in); got != tc.want {
			t.Errorf("ExpandContractions(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExpandContractions_Idempotent(t *testing.T) {
	inputs := []string{
		"I don't think it's gonna work",
		"she's not here and they aren't either",
		"plain text without contractions",
	}
	for _, in := range inputs {
		once := ExpandContractions(in)
		twice := ExpandContractions(once)
		if once != twice {
			t.Errorf("ExpandContractions not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestDedupeAdjacent(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"go", "go", "home"}, []string{"go", "home"}},
		{[]string{"go", "home", "go"}, []string{"go", "home", "go"}},
		{[]string{"same", "same", "same"}, []string{"same"}},
		{[]string{}, []string{}},
	}
	for _, tc := range tests {
		in := append([]string(nil), tc.in...)
		if got := dedupeAdjacent(in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("dedupeAdjacent(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCleanup_DropsShortTokens(t *testing.T) {
	got := cleanup([]string{"go", "not", "working", "working", "it"})
	want := []string{"not", "working"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cleanup = %v, want %v", got, want)
	}
}

func TestIsQuestion(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"What time is it?", true},
		{"is this working", true},
		{"Where did he go", true},
		{"The meeting starts soon", false},
		{"  how about now  ", true},
		{"sure thing", false},
		{"What's the point.", true},
		{"Where's the exit", true},
		{"what, me worry", true},
		{"whatever you say", false},
	}
	for _, tc := range tests {
		if got := isQuestion(tc.text); got != tc.want {
			t.Errorf("isQuestion(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
