package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/signbridge/internal/archive"
	"github.com/MrWong99/signbridge/internal/gloss"
	"github.com/MrWong99/signbridge/internal/observe"
	"github.com/MrWong99/signbridge/internal/session"
	"github.com/MrWong99/signbridge/internal/signs"
)

// DefaultGracePeriod is how long a disconnected presenter's session survives
// before removal, tolerating transient network drops.
const DefaultGracePeriod = 60 * time.Second

// Config wires the Coordinator's collaborators.
type Config struct {
	// Sessions is the presenter session store. Required.
	Sessions *session.Store

	// Normalizer converts transcript chunks to gloss. Required.
	Normalizer gloss.Normalizer

	// Lookup resolves sign tokens to video assets. Required.
	Lookup *signs.Lookup

	// Hub is the viewer broadcast group. Required.
	Hub *Hub

	// Metrics records pipeline measurements. Required; tests can pass an
	// instance backed by a throwaway meter provider.
	Metrics *observe.Metrics

	// Archive persists exported snapshots. Optional; nil disables archiving.
	Archive archive.Archiver

	// Grace is the post-disconnect session grace period. Zero means
	// [DefaultGracePeriod].
	Grace time.Duration

	// Mode labels the configured normalizer in metrics and logs, e.g.
	// "rules" or "llm". Defaults to "rules".
	Mode string
}

// Coordinator owns the connection lifecycle and drives the pipeline: raw
// caption fan-out, normalization, sign lookup, and export.
//
// Handlers for a single connection must be invoked serially (the gateway's
// read loop guarantees this); handlers for different connections may run
// concurrently.
type Coordinator struct {
	sessions   *session.Store
	normalizer gloss.Normalizer
	lookup     *signs.Lookup
	hub        *Hub
	metrics    *observe.Metrics
	archive    archive.Archiver
	grace      time.Duration
	mode       string
}

// NewCoordinator validates cfg and builds a Coordinator. The session store's
// removal hook is claimed to keep the active-sessions gauge accurate even
// when removal happens on a grace-period timer.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	switch {
	case cfg.Sessions == nil:
		return nil, fmt.Errorf("stream: Config.Sessions is required")
	case cfg.Normalizer == nil:
		return nil, fmt.Errorf("stream: Config.Normalizer is required")
	case cfg.Lookup == nil:
		return nil, fmt.Errorf("stream: Config.Lookup is required")
	case cfg.Hub == nil:
		return nil, fmt.Errorf("stream: Config.Hub is required")
	case cfg.Metrics == nil:
		return nil, fmt.Errorf("stream: Config.Metrics is required")
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGracePeriod
	}
	if cfg.Mode == "" {
		cfg.Mode = "rules"
	}

	c := &Coordinator{
		sessions:   cfg.Sessions,
		normalizer: cfg.Normalizer,
		lookup:     cfg.Lookup,
		hub:        cfg.Hub,
		metrics:    cfg.Metrics,
		archive:    cfg.Archive,
		grace:      cfg.Grace,
		mode:       cfg.Mode,
	}

	c.sessions.SetOnRemove(func(id string) {
		c.metrics.ActiveSessions.Add(context.Background(), -1)
		slog.Info("session removed", "conn_id", id)
	})

	return c, nil
}

// ViewerCount returns the current viewer broadcast group size.
func (c *Coordinator) ViewerCount() int { return c.hub.ViewerCount() }

// SessionCount returns the number of live presenter sessions.
func (c *Coordinator) SessionCount() int { return c.sessions.Len() }

// HandleSetLanguage switches the sender's target sign language.
func (c *Coordinator) HandleSetLanguage(ctx context.Context, out Sink, p SetLanguagePayload) {
	sess := c.ensureSession(ctx, out.ID())
	sess.SetLanguage(p.Language)
	slog.Debug("language selected", "conn_id", out.ID(), "language", sess.Language())
}

// HandleViewerJoin marks the connection as a read-only broadcast recipient.
func (c *Coordinator) HandleViewerJoin(ctx context.Context, out Sink) {
	if c.hub.IsViewer(out.ID()) {
		return
	}
	c.hub.AddViewer(out)
	c.metrics.ActiveViewers.Add(ctx, 1)
	slog.Info("viewer joined", "conn_id", out.ID(), "viewers", c.hub.ViewerCount())
}

// HandleTranscript runs the pipeline for one chunk: the raw caption is fanned
// out before normalization starts, so viewers see text with minimal delay
// even when the normalizer stalls on a network call.
func (c *Coordinator) HandleTranscript(ctx context.Context, out Sink, p TranscriptPayload) {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		c.metrics.RecordChunk(ctx, c.mode, "rejected")
		out.Send(Event{Event: EventError, Data: ErrorPayload{Message: "empty transcript"}})
		return
	}

	sess := c.ensureSession(ctx, out.ID())
	if p.Language != "" {
		sess.SetLanguage(p.Language)
	}
	lang := sess.Language()

	received := time.Now()
	sess.RecordRawCaption(session.CaptionEntry{Text: text, Timestamp: received})

	rawEv := Event{Event: EventCaption, Data: CaptionPayload{
		Text:      text,
		Timestamp: received,
		Type:      session.CaptionRaw,
	}}
	out.Send(rawEv)
	c.hub.Broadcast(rawEv)

	sess.PushContext(text)

	start := time.Now()
	mode, status := c.mode, "ok"
	res, err := c.normalizer.Normalize(ctx, gloss.Request{
		Text:     text,
		Language: lang,
		Context:  sess.Context(),
	})
	if err != nil {
		slog.Warn("normalization failed, using word split",
			"conn_id", out.ID(), "error", err)
		res = gloss.WordSplit(text)
		mode, status = "wordsplit", "fallback"
	}
	c.metrics.RecordNormalize(ctx, mode, time.Since(start).Seconds())
	c.metrics.RecordChunk(ctx, mode, status)

	normalized := time.Now()
	if res.Topic != "" {
		sess.SetTopic(res.Topic)
	}
	sess.RecordCleanedCaption(session.CaptionEntry{
		Text:       res.CleanedCaption,
		Timestamp:  normalized,
		Topic:      res.Topic,
		Confidence: res.Confidence,
	})

	queue := c.lookup.MapTokens(res.SignTokens, lang)
	coverage := signs.Coverage(queue)
	c.metrics.RecordCoverage(ctx, coverage)
	sess.AppendSignLog(session.SignLogEntry{
		Tokens:    res.SignTokens,
		Timestamp: normalized,
		Topic:     res.Topic,
	})

	updateEv := Event{Event: EventCaptionUpdate, Data: CaptionPayload{
		Text:       res.CleanedCaption,
		Timestamp:  normalized,
		Type:       session.CaptionCleaned,
		Topic:      res.Topic,
		Confidence: res.Confidence,
		IsQuestion: res.IsQuestion,
	}}
	signsEv := Event{Event: EventSigns, Data: SignsPayload{
		SignQueue:  queue,
		Topic:      res.Topic,
		Confidence: res.Confidence,
		Coverage:   coverage,
		Timestamp:  normalized,
	}}
	out.Send(updateEv)
	out.Send(signsEv)
	c.hub.Broadcast(updateEv)
	c.hub.Broadcast(signsEv)

	slog.Debug("chunk processed",
		"conn_id", out.ID(),
		"mode", mode,
		"tokens", len(res.SignTokens),
		"coverage", coverage,
		"topic", res.Topic,
		"duration", time.Since(start),
	)
}

// HandleExport serves the full session snapshot to the requester only; export
// data is never broadcast. When an archiver is configured the snapshot is
// also persisted, but a persistence failure does not fail the export.
func (c *Coordinator) HandleExport(ctx context.Context, out Sink) {
	sess := c.sessions.Get(out.ID())
	if sess == nil {
		out.Send(Event{Event: EventError, Data: ErrorPayload{Message: "no active session"}})
		return
	}

	snap := sess.Snapshot()
	c.metrics.ExportRequests.Add(ctx, 1)
	out.Send(Event{Event: EventExportData, Data: snap})

	if c.archive != nil {
		if err := c.archive.SaveSnapshot(ctx, snap); err != nil {
			slog.Error("snapshot archive failed", "conn_id", out.ID(), "error", err)
		}
	}
}

// HandleReset zeroes the sender's session history and logs without removing
// the session; language selection survives.
func (c *Coordinator) HandleReset(_ context.Context, out Sink) {
	sess := c.sessions.Get(out.ID())
	if sess == nil {
		return
	}
	sess.Reset()
	slog.Info("session reset", "conn_id", out.ID())
}

// HandleDisconnect finishes the connection lifecycle. Viewers leave the
// broadcast group immediately; presenter sessions linger for the grace
// period so a reconnect resumes where it left off.
func (c *Coordinator) HandleDisconnect(ctx context.Context, id string) {
	if c.hub.RemoveViewer(id) {
		c.metrics.ActiveViewers.Add(ctx, -1)
		slog.Info("viewer left", "conn_id", id, "viewers", c.hub.ViewerCount())
		return
	}
	if c.sessions.Get(id) != nil {
		c.sessions.ScheduleRemoval(id, c.grace)
		slog.Info("session entering grace period", "conn_id", id, "grace", c.grace)
	}
}

// ensureSession returns the sender's session, creating it on first activity.
func (c *Coordinator) ensureSession(ctx context.Context, id string) *session.Session {
	if c.sessions.Get(id) == nil {
		// Handlers for one connection are serialized, so this create cannot
		// race with itself for the same id.
		c.metrics.ActiveSessions.Add(ctx, 1)
		slog.Info("session created", "conn_id", id)
	}
	return c.sessions.GetOrCreate(id)
}
