package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"fourmind/internal/generation"
	"fourmind/internal/session"
)

// numSimulatedMessages is how many chat turns the lookahead simulates; only
// the first one can become the bot's reply.
const numSimulatedMessages = 7

// Lookahead is the generation collaborator: it simulates the most plausible
// continuation of the chat and offers the first simulated turn as a
// candidate. When the simulation has a human speak next, the bot stays
// silent.
type Lookahead struct {
	client Client
	log    zerolog.Logger
}

func NewLookahead(client Client, log zerolog.Logger) *Lookahead {
	return &Lookahead{
		client: client,
		log:    log.With().Str("component", "lookahead").Logger(),
	}
}

type simulatedMessage struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type simulationPayload struct {
	Messages []simulatedMessage `json:"messages"`
}

func (l *Lookahead) Simulate(ctx context.Context, sess *session.Session, proactive bool) (*generation.Candidate, error) {
	system := fmt.Sprintf(lookaheadSystem, gameDescription, sess.Bot(), sess.Bot())

	extra := ""
	if proactive {
		extra = fmt.Sprintf(lookaheadProactive, sess.Bot())
	}
	instruction := fmt.Sprintf(lookaheadInstruction, sess.Transcript(), numSimulatedMessages, extra)

	var payload simulationPayload
	if err := infer(ctx, l.client, l.log, system, instruction, &payload); err != nil {
		return nil, err
	}
	if len(payload.Messages) == 0 {
		return nil, nil
	}

	first := payload.Messages[0]
	l.log.Debug().Str("sender", first.Sender).Str("message", first.Message).Msg("first simulated turn")
	return &generation.Candidate{Sender: first.Sender, Text: first.Message}, nil
}
