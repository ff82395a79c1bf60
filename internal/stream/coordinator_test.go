package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/signbridge/internal/gloss"
	"github.com/MrWong99/signbridge/internal/gloss/rules"
	"github.com/MrWong99/signbridge/internal/observe"
	"github.com/MrWong99/signbridge/internal/session"
	"github.com/MrWong99/signbridge/internal/signs"
)

// recordSink captures every event sent to one connection.
type recordSink struct {
	id string

	mu     sync.Mutex
	events []Event
}

func (r *recordSink) ID() string { return r.id }

func (r *recordSink) Send(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordSink) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordSink) eventNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, ev := range r.events {
		names[i] = ev.Event
	}
	return names
}

// failingNormalizer always errors, forcing the word-split fallback.
type failingNormalizer struct{}

func (failingNormalizer) Normalize(context.Context, gloss.Request) (*gloss.Result, error) {
	return nil, errors.New("backend unavailable")
}

func newTestCoordinator(t *testing.T, cfg Config) *Coordinator {
	t.Helper()

	if cfg.Sessions == nil {
		cfg.Sessions = session.NewStore(0)
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = rules.New()
	}
	if cfg.Lookup == nil {
		lookup, err := signs.New()
		if err != nil {
			t.Fatalf("signs.New: %v", err)
		}
		cfg.Lookup = lookup
	}
	if cfg.Hub == nil {
		cfg.Hub = NewHub()
	}
	if cfg.Metrics == nil {
		mp := sdkmetric.NewMeterProvider()
		t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
		m, err := observe.NewMetrics(mp)
		if err != nil {
			t.Fatalf("NewMetrics: %v", err)
		}
		cfg.Metrics = m
	}

	c, err := NewCoordinator(cfg)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	return c
}

func TestHandleTranscript_RawPrecedesCleanedAndSigns(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	out := &recordSink{id: "conn-1"}

	c.HandleTranscript(context.Background(), out, TranscriptPayload{
		Text: "The meeting will start soon",
	})

	names := out.eventNames()
	want := []string{EventCaption, EventCaptionUpdate, EventSigns}
	if len(names) != len(want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("events = %v, want %v", names, want)
		}
	}

	events := out.Events()
	raw := events[0].Data.(CaptionPayload)
	if raw.Type != session.CaptionRaw || raw.Text != "The meeting will start soon" {
		t.Errorf("raw caption = %+v", raw)
	}

	cleaned := events[1].Data.(CaptionPayload)
	if cleaned.Type != session.CaptionCleaned {
		t.Errorf("cleaned caption type = %q", cleaned.Type)
	}
	if cleaned.Text != "Meeting start soon" {
		t.Errorf("cleaned caption = %q, want %q", cleaned.Text, "Meeting start soon")
	}
	if cleaned.Topic != gloss.TopicBusiness {
		t.Errorf("topic = %q, want Business", cleaned.Topic)
	}

	sp := events[2].Data.(SignsPayload)
	if len(sp.SignQueue) != 3 {
		t.Fatalf("sign queue = %+v, want 3 entries", sp.SignQueue)
	}
	if sp.Coverage != 100 {
		t.Errorf("coverage = %d, want 100", sp.Coverage)
	}
}

func TestHandleTranscript_EmptyChunkRejected(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	out := &recordSink{id: "conn-1"}

	c.HandleTranscript(context.Background(), out, TranscriptPayload{Text: "   "})

	events := out.Events()
	if len(events) != 1 || events[0].Event != EventError {
		t.Fatalf("events = %+v, want single error event", events)
	}
	if c.SessionCount() != 0 {
		t.Errorf("session count = %d, want 0 (rejected chunk must not create a session)", c.SessionCount())
	}
}

func TestHandleTranscript_WordSplitFallback(t *testing.T) {
	c := newTestCoordinator(t, Config{Normalizer: failingNormalizer{}})
	out := &recordSink{id: "conn-1"}

	c.HandleTranscript(context.Background(), out, TranscriptPayload{Text: "hello there friend"})

	events := out.Events()
	if len(events) != 3 {
		t.Fatalf("events = %v, want raw + cleaned + signs", out.eventNames())
	}

	cleaned := events[1].Data.(CaptionPayload)
	if cleaned.Confidence != 0.3 {
		t.Errorf("fallback confidence = %v, want 0.3", cleaned.Confidence)
	}
	if cleaned.Topic != "" {
		t.Errorf("fallback topic = %q, want empty", cleaned.Topic)
	}

	sp := events[2].Data.(SignsPayload)
	if len(sp.SignQueue) != 3 {
		t.Errorf("fallback sign queue = %+v, want word-split tokens", sp.SignQueue)
	}
}

func TestHandleTranscript_BroadcastsToViewers(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	ctx := context.Background()

	viewer := &recordSink{id: "viewer-1"}
	c.HandleViewerJoin(ctx, viewer)

	presenter := &recordSink{id: "conn-1"}
	c.HandleTranscript(ctx, presenter, TranscriptPayload{Text: "hello everyone"})

	names := viewer.eventNames()
	want := []string{EventCaption, EventCaptionUpdate, EventSigns}
	if len(names) != len(want) {
		t.Fatalf("viewer events = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("viewer events = %v, want %v", names, want)
		}
	}
}

func TestHandleExport_RequesterOnly(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	ctx := context.Background()

	viewer := &recordSink{id: "viewer-1"}
	c.HandleViewerJoin(ctx, viewer)

	presenter := &recordSink{id: "conn-1"}
	c.HandleTranscript(ctx, presenter, TranscriptPayload{Text: "budget review today"})
	c.HandleExport(ctx, presenter)

	events := presenter.Events()
	last := events[len(events)-1]
	if last.Event != EventExportData {
		t.Fatalf("last presenter event = %q, want export-data", last.Event)
	}
	snap := last.Data.(session.Snapshot)
	if snap.SessionID != "conn-1" {
		t.Errorf("snapshot session id = %q", snap.SessionID)
	}
	if len(snap.CaptionLog) != 1 {
		t.Errorf("caption log = %+v, want 1 entry", snap.CaptionLog)
	}

	for _, ev := range viewer.Events() {
		if ev.Event == EventExportData {
			t.Fatal("export data must never be broadcast to viewers")
		}
	}
}

func TestHandleExport_NoSession(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	out := &recordSink{id: "conn-1"}

	c.HandleExport(context.Background(), out)

	events := out.Events()
	if len(events) != 1 || events[0].Event != EventError {
		t.Fatalf("events = %+v, want single error event", events)
	}
}

func TestHandleReset_ClearsLogsKeepsSession(t *testing.T) {
	store := session.NewStore(0)
	c := newTestCoordinator(t, Config{Sessions: store})
	ctx := context.Background()
	out := &recordSink{id: "conn-1"}

	c.HandleSetLanguage(ctx, out, SetLanguagePayload{Language: "bsl"})
	c.HandleTranscript(ctx, out, TranscriptPayload{Text: "hello everyone"})
	c.HandleReset(ctx, out)

	sess := store.Get("conn-1")
	if sess == nil {
		t.Fatal("reset must not remove the session")
	}
	if sess.CaptionCount() != 0 {
		t.Errorf("caption count after reset = %d, want 0", sess.CaptionCount())
	}
	if sess.Language() != "bsl" {
		t.Errorf("language after reset = %q, want bsl", sess.Language())
	}
}

func TestHandleDisconnect_ViewerRemovedImmediately(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	ctx := context.Background()

	viewer := &recordSink{id: "viewer-1"}
	c.HandleViewerJoin(ctx, viewer)
	if c.ViewerCount() != 1 {
		t.Fatalf("viewer count = %d, want 1", c.ViewerCount())
	}

	c.HandleDisconnect(ctx, "viewer-1")
	if c.ViewerCount() != 0 {
		t.Errorf("viewer count after disconnect = %d, want 0", c.ViewerCount())
	}
}

func TestHandleDisconnect_SessionGracePeriod(t *testing.T) {
	store := session.NewStore(0)
	c := newTestCoordinator(t, Config{Sessions: store, Grace: 20 * time.Millisecond})
	ctx := context.Background()
	out := &recordSink{id: "conn-1"}

	c.HandleTranscript(ctx, out, TranscriptPayload{Text: "hello"})
	c.HandleDisconnect(ctx, "conn-1")

	if store.Get("conn-1") == nil {
		t.Fatal("session removed before grace period elapsed")
	}

	deadline := time.Now().Add(time.Second)
	for store.Get("conn-1") != nil {
		if time.Now().After(deadline) {
			t.Fatal("session not removed after grace period")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandleDisconnect_ReconnectCancelsRemoval(t *testing.T) {
	store := session.NewStore(0)
	c := newTestCoordinator(t, Config{Sessions: store, Grace: 30 * time.Millisecond})
	ctx := context.Background()
	out := &recordSink{id: "conn-1"}

	c.HandleTranscript(ctx, out, TranscriptPayload{Text: "hello"})
	c.HandleDisconnect(ctx, "conn-1")

	// Reconnect activity inside the grace period keeps the session.
	c.HandleTranscript(ctx, out, TranscriptPayload{Text: "still here"})

	time.Sleep(60 * time.Millisecond)
	sess := store.Get("conn-1")
	if sess == nil {
		t.Fatal("reconnect did not cancel the scheduled removal")
	}
	if sess.CaptionCount() != 2 {
		t.Errorf("caption count = %d, want 2", sess.CaptionCount())
	}
}

func TestHandleViewerJoin_Idempotent(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	ctx := context.Background()

	viewer := &recordSink{id: "viewer-1"}
	c.HandleViewerJoin(ctx, viewer)
	c.HandleViewerJoin(ctx, viewer)

	if c.ViewerCount() != 1 {
		t.Errorf("viewer count = %d, want 1", c.ViewerCount())
	}
}

func TestNewCoordinator_RequiresCollaborators(t *testing.T) {
	if _, err := NewCoordinator(Config{}); err == nil {
		t.Error("expected error for empty config")
	}
}
