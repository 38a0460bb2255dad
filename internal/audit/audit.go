// Package audit records security-relevant actions. Recording is best effort:
// it never blocks the caller and never fails the operation being audited.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dimitrije/family-core/internal/clock"
	"github.com/dimitrije/family-core/internal/database"
	"github.com/dimitrije/family-core/internal/metrics"
	"github.com/dimitrije/family-core/internal/models"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 5 * time.Second

type Recorder interface {
	Record(ctx context.Context, entry models.AuditLogEntry)
}

// Logger persists entries from a buffered channel on a single goroutine.
type Logger struct {
	db        *database.DB
	publisher Publisher
	subject   string
	metrics   *metrics.Metrics
	clock     clock.Clock

	mu      sync.RWMutex
	closed  bool
	entries chan models.AuditLogEntry
	done    chan struct{}
}

type Option func(*Logger)

func WithPublisher(p Publisher, subject string) Option {
	return func(l *Logger) {
		l.publisher = p
		l.subject = subject
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Logger) { l.metrics = m }
}

func WithClock(c clock.Clock) Option {
	return func(l *Logger) { l.clock = c }
}

func NewLogger(db *database.DB, buffer int, opts ...Option) *Logger {
	if buffer <= 0 {
		buffer = 1
	}
	l := &Logger{
		db:      db,
		clock:   clock.Real{},
		entries: make(chan models.AuditLogEntry, buffer),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.run()
	return l
}

// Record enqueues entry. When the buffer is full the entry is dropped.
func (l *Logger) Record(ctx context.Context, entry models.AuditLogEntry) {
	ip, ua := requestFrom(ctx)
	if entry.IPAddress == "" {
		entry.IPAddress = ip
	}
	if entry.UserAgent == "" {
		entry.UserAgent = ua
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.clock.Now()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.entries <- entry:
	default:
		l.metrics.AuditDropped()
		log.Warn().Str("action", entry.ActionType).Msg("audit buffer full, entry dropped")
	}
}

// Close stops accepting entries and waits until the queued ones are written.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	close(l.entries)
	l.mu.Unlock()
	<-l.done
}

func (l *Logger) run() {
	defer close(l.done)
	for entry := range l.entries {
		l.write(entry)
	}
}

func (l *Logger) write(entry models.AuditLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	details := entry.ActionDetails
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		log.Warn().Err(err).Str("action", entry.ActionType).Msg("failed to encode audit details")
		payload = []byte("{}")
	}

	_, err = l.db.Pool.Exec(ctx, `
		INSERT INTO family_audit_logs (family_id, user_id, action_type, action_details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.FamilyID, entry.UserID, entry.ActionType, json.RawMessage(payload),
		nullable(entry.IPAddress), nullable(entry.UserAgent), entry.CreatedAt)
	if err != nil {
		log.Warn().Err(err).Str("action", entry.ActionType).Msg("failed to write audit entry")
	}

	if l.publisher == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Warn().Err(err).Str("action", entry.ActionType).Msg("failed to encode audit event")
		return
	}
	if err := l.publisher.Publish(ctx, l.subject, data); err != nil {
		log.Warn().Err(err).Str("action", entry.ActionType).Msg("failed to publish audit event")
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, models.AuditLogEntry) {}

// Multi hands every entry to each recorder in order. Entries are shared, so
// recorders must not modify them.
func Multi(recorders ...Recorder) Recorder {
	return multi(recorders)
}

type multi []Recorder

func (m multi) Record(ctx context.Context, entry models.AuditLogEntry) {
	for _, r := range m {
		r.Record(ctx, entry)
	}
}

// Memory keeps entries in memory, for tests and local tooling.
type Memory struct {
	mu      sync.Mutex
	entries []models.AuditLogEntry
}

func (m *Memory) Record(ctx context.Context, entry models.AuditLogEntry) {
	ip, ua := requestFrom(ctx)
	if entry.IPAddress == "" {
		entry.IPAddress = ip
	}
	if entry.UserAgent == "" {
		entry.UserAgent = ua
	}
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()
}

func (m *Memory) Entries() []models.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AuditLogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Actions returns the recorded action types in order.
func (m *Memory) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.ActionType
	}
	return out
}
