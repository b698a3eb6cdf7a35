// Package analysis runs the per-session enrichment pipeline: one FIFO queue
// and one worker goroutine per session, applying conversational analysis to
// messages strictly in arrival order without ever blocking ingestion.
package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fourmind/internal/session"
)

// Analyzer is the external enrichment collaborator. It is called at most
// once per raw message; a failed call is a normal outcome and the message
// stays raw permanently.
type Analyzer interface {
	Analyze(ctx context.Context, sess *session.Session, msg session.Message) (*session.Analysis, error)
}

// Manager owns the worker lifecycle for every session queue.
type Manager struct {
	analyzer Analyzer
	timeout  time.Duration
	log      zerolog.Logger
}

func NewManager(analyzer Analyzer, timeout time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		analyzer: analyzer,
		timeout:  timeout,
		log:      log.With().Str("component", "analysis").Logger(),
	}
}

// AddQueue starts the worker for a freshly created session. ctx bounds the
// worker's collaborator calls for the whole session lifetime.
func (m *Manager) AddQueue(ctx context.Context, sess *session.Session) {
	go m.run(ctx, sess)
}

// Enqueue appends a message id to the session's queue. Enqueueing into a
// torn-down queue is a benign race with game end: logged, then dropped.
func (m *Manager) Enqueue(sess *session.Session, msgID int) {
	q := sess.Queue()
	if !q.Push(msgID) {
		m.log.Warn().Stringer("chat", sess).Int("message", msgID).Msg("queue already stopped, dropping item")
		return
	}
	m.log.Debug().Stringer("chat", sess).Int("message", msgID).Int("pending", q.Len()).Msg("enqueued message")
}

// DequeueAndCancel stops the session's worker gracefully: no new items are
// accepted, every item enqueued before the call is still processed, and the
// call blocks until that drain has finished.
func (m *Manager) DequeueAndCancel(sess *session.Session) {
	q := sess.Queue()
	if !q.Close() {
		m.log.Warn().Stringer("chat", sess).Msg("queue already closed on cancel attempt")
		return
	}
	<-q.Done()
}

func (m *Manager) run(ctx context.Context, sess *session.Session) {
	q := sess.Queue()
	defer q.MarkStopped()

	m.log.Info().Stringer("chat", sess).Msg("queue up and running")
	for {
		id, ok := q.Pop()
		if !ok {
			break
		}
		m.process(ctx, sess, id)
	}
	m.log.Info().Stringer("chat", sess).Msg("queue stopped")
}

func (m *Manager) process(ctx context.Context, sess *session.Session, id int) {
	msg, ok := sess.Message(id)
	if !ok {
		m.log.Error().Stringer("chat", sess).Int("message", id).Msg("message not found")
		return
	}
	if msg.Enriched() {
		m.log.Info().Stringer("chat", sess).Int("message", id).Msg("skipping already enriched message")
		return
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	a, err := m.analyzer.Analyze(cctx, sess, msg)
	cancel()
	if err != nil {
		m.log.Error().Err(err).Stringer("chat", sess).Int("message", id).Msg("analysis failed, message stays raw")
		return
	}
	if a == nil {
		m.log.Warn().Stringer("chat", sess).Int("message", id).Msg("analyzer returned nothing")
		return
	}
	if !sess.Enrich(id, a) {
		m.log.Warn().Stringer("chat", sess).Int("message", id).Msg("could not attach analysis")
	}
}
