// Package generation decides whether, and produces, the bot's next message.
// At most one generation attempt runs per session; overlapping triggers are
// dropped, not queued.
package generation

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"fourmind/internal/session"
)

// Candidate is one simulated utterance returned by the generation
// collaborator. It is only usable when Sender matches the session's bot
// name.
type Candidate struct {
	Sender string
	Text   string
}

// Generator is the external response-generation collaborator. A nil
// candidate with nil error means the simulation continued with a human
// turn and the bot stays silent.
type Generator interface {
	Simulate(ctx context.Context, sess *session.Session, proactive bool) (*Candidate, error)
}

// Delayer paces outgoing messages; implemented by timing.Simulator.
type Delayer interface {
	RemainingDelay(start time.Time, text string, sess *session.Session) time.Duration
}

// Coordinator serializes response generation per session and owns the
// follow-up buffering and post-processing of generated text.
type Coordinator struct {
	reg     *session.Registry
	gen     Generator
	delay   Delayer
	timeout time.Duration
	chance  func() float64
	log     zerolog.Logger
}

func NewCoordinator(reg *session.Registry, gen Generator, delay Delayer, timeout time.Duration, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		reg:     reg,
		gen:     gen,
		delay:   delay,
		timeout: timeout,
		chance:  rand.Float64,
		log:     log.With().Str("component", "generation").Logger(),
	}
}

// HandleIncoming runs one response attempt for the session, triggered by an
// incoming message received at receivedAt. It returns the text to send, or
// ok=false when the bot stays silent: gate already taken, no usable
// candidate, suppressed repeat, or session gone.
//
// The human-pacing sleep happens here, before the text is returned, so the
// message only becomes visible after the simulated delay.
func (c *Coordinator) HandleIncoming(ctx context.Context, gameID int64, receivedAt time.Time) (string, bool) {
	sess := c.reg.Get(gameID)
	if sess == nil {
		c.log.Error().Str("game", session.AnonymizeID(gameID)).Msg("session not found")
		return "", false
	}

	if !sess.TryBeginGeneration() {
		c.log.Info().Stringer("chat", sess).Msg("generation already in progress")
		return "", false
	}
	defer sess.EndGeneration()

	var out string
	if followup, ok := sess.TakeFollowup(); ok {
		// Split continuation: sent verbatim, no model call.
		c.log.Debug().Stringer("chat", sess).Msg("followup message found")
		out = followup
	} else {
		cctx, cancel := context.WithTimeout(ctx, c.timeout)
		cand, err := c.gen.Simulate(cctx, sess, false)
		cancel()
		if err != nil {
			c.log.Error().Err(err).Stringer("chat", sess).Msg("generation failed")
			return "", false
		}
		if cand == nil {
			return "", false
		}
		if cand.Sender != sess.Bot() {
			c.log.Debug().Stringer("chat", sess).Str("sender", cand.Sender).Msg("simulation continued with a human turn")
			return "", false
		}
		processed, ok := c.postProcess(sess, cand.Text)
		if !ok {
			return "", false
		}
		out = processed
	}

	wait := c.delay.RemainingDelay(receivedAt, out, sess)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return "", false
	}
	return out, true
}
