// Package session holds per-connection presenter state: the bounded
// transcript-context window, the unbounded caption and sign logs kept for
// export, and the selected target language.
//
// The [Store] owns every [Session] and keys them by connection ID. Sessions
// are created lazily on first activity and removed either explicitly or after
// a grace period following disconnect, so a presenter surviving a brief
// network drop reconnects into their existing session.
//
// All exported methods on both types are safe for concurrent use. Handlers
// for a single connection are serialized by the streaming layer, but export
// and status queries may race with transcript processing, so sessions carry
// their own lock.
package session

import (
	"sync"
	"time"

	"github.com/MrWong99/signbridge/internal/gloss"
)

// DefaultHistorySize is the number of recent transcript chunks retained as
// LLM context.
const DefaultHistorySize = 5

// DefaultLanguage is the sign language selected for new sessions.
const DefaultLanguage = "asl"

// CaptionType distinguishes the immediately-emitted raw caption from its
// normalized replacement.
type CaptionType string

const (
	CaptionRaw     CaptionType = "raw"
	CaptionCleaned CaptionType = "cleaned"
)

// CaptionEntry is one line of the caption log. A raw entry is appended when
// the chunk arrives and mutated in place once normalization completes; the
// raw→cleaned transition never duplicates the entry.
type CaptionEntry struct {
	Text       string      `json:"text"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       CaptionType `json:"type"`
	Topic      gloss.Topic `json:"topic,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
}

// SignLogEntry records the sign tokens derived from one transcript chunk.
type SignLogEntry struct {
	Tokens    []string    `json:"tokens"`
	Timestamp time.Time   `json:"timestamp"`
	Topic     gloss.Topic `json:"topic"`
}

// Snapshot is the full export view of a session, served to the requesting
// connection only.
type Snapshot struct {
	SessionID  string         `json:"sessionId"`
	StartedAt  time.Time      `json:"startedAt"`
	Language   string         `json:"language"`
	Topic      gloss.Topic    `json:"topic"`
	CaptionLog []CaptionEntry `json:"captionLog"`
	SignLog    []SignLogEntry `json:"signLog"`
}

// Session is the mutable state owned by one presenter connection.
type Session struct {
	mu sync.Mutex

	id          string
	startedAt   time.Time
	language    string
	defaultLang string
	topic       gloss.Topic

	// history is the bounded context window (most recent last); it feeds the
	// LLM normalizer and is irrelevant to the rule-based path.
	history     []string
	historySize int

	captionLog []CaptionEntry
	signLog    []SignLogEntry
}

// ID returns the connection ID this session is keyed by.
func (s *Session) ID() string { return s.id }

// Language returns the currently selected target sign language.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SetLanguage updates the target language. Empty input resets to the
// store's configured default.
func (s *Session) SetLanguage(lang string) {
	if lang == "" {
		lang = s.defaultLang
	}
	s.mu.Lock()
	s.language = lang
	s.mu.Unlock()
}

// Topic returns the last-seen topic classification.
func (s *Session) Topic() gloss.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topic
}

// SetTopic records the most recent topic classification.
func (s *Session) SetTopic(topic gloss.Topic) {
	s.mu.Lock()
	s.topic = topic
	s.mu.Unlock()
}

// PushContext appends text to the transcript-context window, evicting the
// oldest chunk beyond the window size.
func (s *Session) PushContext(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, text)
	if len(s.history) > s.historySize {
		s.history = s.history[len(s.history)-s.historySize:]
	}
}

// Context returns a copy of the context window excluding the most recent
// chunk — the chunk currently being normalized should not appear in its own
// context.
func (s *Session) Context() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) <= 1 {
		return nil
	}
	out := make([]string, len(s.history)-1)
	copy(out, s.history[:len(s.history)-1])
	return out
}

// RecordRawCaption appends a raw caption entry for a newly received chunk.
func (s *Session) RecordRawCaption(entry CaptionEntry) {
	entry.Type = CaptionRaw
	s.mu.Lock()
	s.captionLog = append(s.captionLog, entry)
	s.mu.Unlock()
}

// RecordCleanedCaption replaces the most recently appended caption entry with
// its cleaned form. The log length does not change; if no raw entry exists
// yet the cleaned entry is appended instead.
func (s *Session) RecordCleanedCaption(entry CaptionEntry) {
	entry.Type = CaptionCleaned
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.captionLog); n > 0 {
		s.captionLog[n-1] = entry
		return
	}
	s.captionLog = append(s.captionLog, entry)
}

// AppendSignLog records the sign tokens produced for one normalized chunk.
func (s *Session) AppendSignLog(entry SignLogEntry) {
	s.mu.Lock()
	s.signLog = append(s.signLog, entry)
	s.mu.Unlock()
}

// CaptionCount returns the current caption log length.
func (s *Session) CaptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.captionLog)
}

// Reset zeroes the session's history and logs but keeps the session itself,
// its identity, and its language selection. Used when a presenter restarts
// without establishing a new connection.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.captionLog = nil
	s.signLog = nil
	s.topic = ""
	s.startedAt = time.Now()
}

// Snapshot returns a deep copy of the exportable session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	captions := make([]CaptionEntry, len(s.captionLog))
	copy(captions, s.captionLog)

	signLog := make([]SignLogEntry, len(s.signLog))
	for i, e := range s.signLog {
		tokens := make([]string, len(e.Tokens))
		copy(tokens, e.Tokens)
		signLog[i] = SignLogEntry{Tokens: tokens, Timestamp: e.Timestamp, Topic: e.Topic}
	}

	return Snapshot{
		SessionID:  s.id,
		StartedAt:  s.startedAt,
		Language:   s.language,
		Topic:      s.topic,
		CaptionLog: captions,
		SignLog:    signLog,
	}
}

// Store owns all live sessions, keyed by connection ID.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	removals    map[string]*time.Timer
	historySize int
	defaultLang string
	onRemove    func(id string)
}

// StoreOption configures a [Store].
type StoreOption func(*Store)

// WithDefaultLanguage sets the sign language new sessions start with (and
// reset to on an empty set-language). Empty input keeps [DefaultLanguage].
func WithDefaultLanguage(lang string) StoreOption {
	return func(st *Store) {
		if lang != "" {
			st.defaultLang = lang
		}
	}
}

// NewStore creates an empty session store. historySize bounds the per-session
// transcript-context window; values < 1 use [DefaultHistorySize].
func NewStore(historySize int, opts ...StoreOption) *Store {
	if historySize < 1 {
		historySize = DefaultHistorySize
	}
	st := &Store{
		sessions:    make(map[string]*Session),
		removals:    make(map[string]*time.Timer),
		historySize: historySize,
		defaultLang: DefaultLanguage,
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// GetOrCreate returns the session for id, creating it lazily on first
// activity. A pending grace-period removal for id is cancelled, so a
// reconnecting presenter gets their previous session back.
func (st *Store) GetOrCreate(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if timer, ok := st.removals[id]; ok {
		timer.Stop()
		delete(st.removals, id)
	}

	if s, ok := st.sessions[id]; ok {
		return s
	}
	s := &Session{
		id:          id,
		startedAt:   time.Now(),
		language:    st.defaultLang,
		defaultLang: st.defaultLang,
		historySize: st.historySize,
	}
	st.sessions[id] = s
	return s
}

// Get returns the session for id, or nil if none exists.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[id]
}

// SetOnRemove registers fn to be called whenever a session is actually
// deleted, whether explicitly or by an expired grace period. Must be set
// before the store is shared across goroutines.
func (st *Store) SetOnRemove(fn func(id string)) {
	st.mu.Lock()
	st.onRemove = fn
	st.mu.Unlock()
}

// Remove deletes the session for id immediately, cancelling any pending
// grace-period removal.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	if timer, ok := st.removals[id]; ok {
		timer.Stop()
		delete(st.removals, id)
	}
	_, existed := st.sessions[id]
	delete(st.sessions, id)
	fn := st.onRemove
	st.mu.Unlock()

	if existed && fn != nil {
		fn(id)
	}
}

// ScheduleRemoval arranges for the session to be deleted after the grace
// period unless [Store.GetOrCreate] or [Store.CancelRemoval] intervenes.
// Scheduling again for the same id restarts the timer.
func (st *Store) ScheduleRemoval(id string, grace time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if timer, ok := st.removals[id]; ok {
		timer.Stop()
	}
	st.removals[id] = time.AfterFunc(grace, func() {
		st.Remove(id)
	})
}

// CancelRemoval stops a pending grace-period removal for id, if any.
func (st *Store) CancelRemoval(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if timer, ok := st.removals[id]; ok {
		timer.Stop()
		delete(st.removals, id)
	}
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
