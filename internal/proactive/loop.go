// Package proactive drives bot-initiated behavior: greeting an empty chat,
// nudging a silent one, and enforcing the session-lifetime ceiling. One loop
// runs per session for its whole lifetime.
package proactive

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fourmind/internal/analysis"
	"fourmind/internal/generation"
	"fourmind/internal/session"
)

// Sender delivers bot-initiated messages to the game server. The
// incoming-message path does not use it; there the text travels back with
// the reply.
type Sender interface {
	SendGameMessage(gameID int64, text string) error
}

// Config holds the loop's tunables.
type Config struct {
	Warmup          time.Duration // pause before the loop starts polling
	Poll            time.Duration
	Cooldown        time.Duration // extra back-off after a nudge
	EarlySilence    time.Duration // silence threshold while the chat is young
	LateSilence     time.Duration
	EarlyCount      int // message count below which the early threshold applies
	OpenerChance    float64
	NudgeChance     float64
	SessionLifetime time.Duration
	GenTimeout      time.Duration
}

// DefaultConfig mirrors observed human chat pacing.
func DefaultConfig() Config {
	return Config{
		Warmup:          2 * time.Second,
		Poll:            4 * time.Second,
		Cooldown:        10 * time.Second,
		EarlySilence:    10 * time.Second,
		LateSilence:     30 * time.Second,
		EarlyCount:      6,
		OpenerChance:    0.5,
		NudgeChance:     0.7,
		SessionLifetime: 20 * time.Minute,
		GenTimeout:      30 * time.Second,
	}
}

var greetings = []string{"hi", "hello", "hi there"}

// Loop polls sessions for silence. It shares the generation gate with the
// incoming-message path so the two never produce concurrently.
type Loop struct {
	reg    *session.Registry
	gen    generation.Generator
	delay  generation.Delayer
	queues *analysis.Manager
	sender Sender
	end    func(gameID int64)
	cfg    Config
	chance func() float64
	pick   func(n int) int
	log    zerolog.Logger
}

// NewLoop wires a proactive loop. end is invoked, once, when a session
// outlives the lifetime ceiling.
func NewLoop(reg *session.Registry, gen generation.Generator, delay generation.Delayer, queues *analysis.Manager, sender Sender, end func(gameID int64), cfg Config, log zerolog.Logger) *Loop {
	return &Loop{
		reg:    reg,
		gen:    gen,
		delay:  delay,
		queues: queues,
		sender: sender,
		end:    end,
		cfg:    cfg,
		chance: rand.Float64,
		pick:   rand.Intn,
		log:    log.With().Str("component", "proactive").Logger(),
	}
}

// Run polls one session until it leaves the registry, its lifetime ceiling
// passes, or ctx is cancelled. Removal from the registry is the loop's
// natural cancellation signal.
func (l *Loop) Run(ctx context.Context, gameID int64) {
	if !l.sleep(ctx, l.cfg.Warmup) {
		return
	}
	for {
		sess := l.reg.Get(gameID)
		if sess == nil {
			break
		}
		if sess.Age() > l.cfg.SessionLifetime {
			l.log.Info().Str("game", session.AnonymizeID(gameID)).Msg("ending game due to session timeout")
			l.end(gameID)
			break
		}

		if sess.MessageCount() == 0 && l.chance() < l.cfg.OpenerChance && !sess.Generating() {
			l.open(ctx, sess)
		} else if l.shouldNudge(sess) {
			l.nudge(ctx, sess)
			if !l.sleep(ctx, l.cfg.Cooldown) {
				return
			}
		}

		if !l.sleep(ctx, l.cfg.Poll) {
			return
		}
	}
	l.log.Info().Str("game", session.AnonymizeID(gameID)).Msg("proactive loop ended")
}

func (l *Loop) shouldNudge(sess *session.Session) bool {
	silence := time.Since(sess.LastMessageTime())
	if sess.MessageCount() < l.cfg.EarlyCount {
		return silence > l.cfg.EarlySilence && !sess.Generating()
	}
	return silence > l.cfg.LateSilence && l.chance() < l.cfg.NudgeChance && !sess.Generating()
}

// open sends a short greeting into a chat nobody has spoken in yet.
func (l *Loop) open(ctx context.Context, sess *session.Session) {
	if !sess.TryBeginGeneration() {
		return
	}
	defer sess.EndGeneration()

	greeting := greetings[l.pick(len(greetings))]
	if !l.sleep(ctx, l.delay.RemainingDelay(sess.StartTime(), greeting, sess)) {
		return
	}
	l.record(sess, greeting)
	if err := l.sender.SendGameMessage(sess.ID(), greeting); err != nil {
		l.log.Error().Err(err).Stringer("chat", sess).Msg("failed to send greeting")
	}
}

// nudge asks the generator for a proactive continuation after a stretch of
// silence.
func (l *Loop) nudge(ctx context.Context, sess *session.Session) {
	if !sess.TryBeginGeneration() {
		return
	}
	defer sess.EndGeneration()

	l.log.Info().Stringer("chat", sess).Msg("generating proactive message")
	cctx, cancel := context.WithTimeout(ctx, l.cfg.GenTimeout)
	cand, err := l.gen.Simulate(cctx, sess, true)
	cancel()
	if err != nil {
		l.log.Error().Err(err).Stringer("chat", sess).Msg("proactive generation failed")
		return
	}
	if cand == nil || cand.Sender != sess.Bot() || strings.TrimSpace(cand.Text) == "" {
		return
	}

	if !l.sleep(ctx, l.delay.RemainingDelay(time.Now(), cand.Text, sess)) {
		return
	}
	l.record(sess, cand.Text)
	if err := l.sender.SendGameMessage(sess.ID(), cand.Text); err != nil {
		l.log.Error().Err(err).Stringer("chat", sess).Msg("failed to send proactive message")
	}
}

// record inserts the bot's own message and feeds it to the analysis queue,
// so the transcript the collaborators see stays complete.
func (l *Loop) record(sess *session.Session, text string) {
	msg := sess.AddMessage(sess.Bot(), text, time.Now())
	l.queues.Enqueue(sess, msg.ID)
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
