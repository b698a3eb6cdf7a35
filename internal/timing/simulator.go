// Package timing estimates how long a human would have needed to produce a
// chat message: reading time for the stimulus plus typing time for the
// reply. Callers sleep for the returned delay before a message becomes
// visible.
package timing

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"fourmind/internal/session"
)

// Keystroke timing from CHI '18 typing data
// (https://dl.acm.org/doi/10.1145/3173574.3174220); cognitive response time
// model from Frontiers in Psychology 2019
// (https://www.frontiersin.org/articles/10.3389/fpsyg.2019.00727/full).
const (
	minKeystroke  = 0.06
	meanKeystroke = 0.238656
	stdKeystroke  = 0.1116

	crtActor    = 0.15
	crtReactor  = 0.36
	crtCoupling = 0.0004
	crtBase     = 9.2
)

// Simulator computes human-plausible message delays. It is stateless apart
// from its random source.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator() *Simulator {
	return NewSimulatorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewSimulatorWithSource allows a seeded source for reproducible delays.
func NewSimulatorWithSource(src rand.Source) *Simulator {
	return &Simulator{rng: rand.New(src)}
}

// WritingTime estimates the typing time for text, one sampled keystroke
// duration applied per character.
func (s *Simulator) WritingTime(text string) time.Duration {
	s.mu.Lock()
	sampled := s.rng.NormFloat64()*stdKeystroke + meanKeystroke
	s.mu.Unlock()
	perKey := math.Max(minKeystroke, sampled)
	return time.Duration(perKey * float64(len(text)) * float64(time.Second))
}

// CognitiveTime estimates the time to read and comprehend the stimulus
// (the previous actor's utterance) before producing text.
func (s *Simulator) CognitiveTime(text, previous string) time.Duration {
	ce := float64(len(previous))
	cp := float64(len(text))
	crt := crtActor*ce + crtReactor*cp + crtCoupling*ce*cp + crtBase
	return time.Duration(crt * float64(time.Second))
}

// RemainingDelay returns how much longer the caller must wait, measured
// from start, before text may become visible. The stimulus is the most
// recent message in the session not authored by the bot.
func (s *Simulator) RemainingDelay(start time.Time, text string, sess *session.Session) time.Duration {
	previous := sess.LastNonBotText()
	total := s.WritingTime(text) + s.CognitiveTime(text, previous) - time.Since(start)
	if total < 0 {
		return 0
	}
	return total
}
