package session

import (
	"testing"
	"time"

	"github.com/MrWong99/signbridge/internal/gloss"
)

func TestGetOrCreate_Lazy(t *testing.T) {
	st := NewStore(0)
	if st.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", st.Len())
	}

	s := st.GetOrCreate("conn-1")
	if s == nil {
		t.Fatal("GetOrCreate returned nil")
	}
	if s.Language() != DefaultLanguage {
		t.Errorf("Language() = %q, want %q", s.Language(), DefaultLanguage)
	}
	if st.Len() != 1 {
		t.Errorf("Len() = %d, want 1", st.Len())
	}

	if again := st.GetOrCreate("conn-1"); again != s {
		t.Error("GetOrCreate returned a different session for the same id")
	}
}

func TestWithDefaultLanguage(t *testing.T) {
	st := NewStore(0, WithDefaultLanguage("bsl"))

	s := st.GetOrCreate("conn-1")
	if s.Language() != "bsl" {
		t.Errorf("Language() = %q, want configured default bsl", s.Language())
	}

	// An empty set-language resets to the configured default, not "asl".
	s.SetLanguage("isl")
	s.SetLanguage("")
	if s.Language() != "bsl" {
		t.Errorf("Language() after empty reset = %q, want bsl", s.Language())
	}

	// An empty option value keeps the package default.
	st = NewStore(0, WithDefaultLanguage(""))
	if s := st.GetOrCreate("conn-2"); s.Language() != DefaultLanguage {
		t.Errorf("Language() = %q, want %q", s.Language(), DefaultLanguage)
	}
}

func TestRecordCleanedCaption_MutatesInPlace(t *testing.T) {
	st := NewStore(0)
	s := st.GetOrCreate("conn-1")

	ts := time.Now()
	s.RecordRawCaption(CaptionEntry{Text: "the meeting will start soon", Timestamp: ts})
	if s.CaptionCount() != 1 {
		t.Fatalf("CaptionCount() = %d, want 1", s.CaptionCount())
	}

	s.RecordCleanedCaption(CaptionEntry{
		Text:       "Meeting start soon",
		Timestamp:  ts,
		Topic:      gloss.TopicBusiness,
		Confidence: 0.91,
	})
	if s.CaptionCount() != 1 {
		t.Fatalf("CaptionCount() after cleaned = %d, want 1 (in-place mutation)", s.CaptionCount())
	}

	snap := s.Snapshot()
	last := snap.CaptionLog[len(snap.CaptionLog)-1]
	if last.Type != CaptionCleaned {
		t.Errorf("last entry type = %q, want cleaned", last.Type)
	}
	if last.Text != "Meeting start soon" {
		t.Errorf("last entry text = %q, want cleaned text", last.Text)
	}
}

func TestPushContext_BoundedWindow(t *testing.T) {
	st := NewStore(3)
	s := st.GetOrCreate("conn-1")

	for _, text := range []string{"one", "two", "three", "four", "five"} {
		s.PushContext(text)
	}

	// Context excludes the most recent chunk.
	got := s.Context()
	want := []string{"three", "four"}
	if len(got) != len(want) {
		t.Fatalf("Context() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Context() = %v, want %v", got, want)
		}
	}
}

func TestContext_SingleChunk(t *testing.T) {
	st := NewStore(0)
	s := st.GetOrCreate("conn-1")
	s.PushContext("only")
	if got := s.Context(); len(got) != 0 {
		t.Errorf("Context() = %v, want empty for a single chunk", got)
	}
}

func TestReset_KeepsSessionAndLanguage(t *testing.T) {
	st := NewStore(0)
	s := st.GetOrCreate("conn-1")
	s.SetLanguage("bsl")
	s.RecordRawCaption(CaptionEntry{Text: "hi", Timestamp: time.Now()})
	s.AppendSignLog(SignLogEntry{Tokens: []string{"hello"}, Timestamp: time.Now()})
	s.SetTopic(gloss.TopicCasual)

	s.Reset()

	if st.Get("conn-1") != s {
		t.Fatal("Reset removed the session from the store")
	}
	if s.Language() != "bsl" {
		t.Errorf("Language() after reset = %q, want bsl", s.Language())
	}
	snap := s.Snapshot()
	if len(snap.CaptionLog) != 0 || len(snap.SignLog) != 0 {
		t.Error("Reset did not clear logs")
	}
	if snap.Topic != "" {
		t.Errorf("Topic after reset = %q, want empty", snap.Topic)
	}
}

func TestScheduleRemoval_GracePeriod(t *testing.T) {
	st := NewStore(0)
	st.GetOrCreate("conn-1")

	st.ScheduleRemoval("conn-1", 20*time.Millisecond)
	if st.Get("conn-1") == nil {
		t.Fatal("session removed before the grace period elapsed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for st.Get("conn-1") != nil {
		if time.Now().After(deadline) {
			t.Fatal("session not removed after the grace period")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGetOrCreate_CancelsPendingRemoval(t *testing.T) {
	st := NewStore(0)
	first := st.GetOrCreate("conn-1")
	st.ScheduleRemoval("conn-1", 30*time.Millisecond)

	// Reconnect within the grace period keeps the session alive.
	if got := st.GetOrCreate("conn-1"); got != first {
		t.Fatal("reconnect did not resume the existing session")
	}
	time.Sleep(60 * time.Millisecond)
	if st.Get("conn-1") != first {
		t.Error("session was removed despite the reconnect")
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	st := NewStore(0)
	s := st.GetOrCreate("conn-1")
	s.AppendSignLog(SignLogEntry{Tokens: []string{"hello", "world"}, Timestamp: time.Now()})

	snap := s.Snapshot()
	snap.SignLog[0].Tokens[0] = "mutated"

	if got := s.Snapshot().SignLog[0].Tokens[0]; got != "hello" {
		t.Errorf("snapshot mutation leaked into session state: %q", got)
	}
}
