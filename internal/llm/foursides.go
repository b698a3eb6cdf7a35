package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"fourmind/internal/session"
)

// FourSides is the analysis collaborator: it annotates one message with the
// four-sides communication model, seeing the transcript only up to that
// message.
type FourSides struct {
	client Client
	log    zerolog.Logger
}

func NewFourSides(client Client, log zerolog.Logger) *FourSides {
	return &FourSides{
		client: client,
		log:    log.With().Str("component", "foursides").Logger(),
	}
}

type fourSidesPayload struct {
	Receivers           []string `json:"receivers"`
	FactualInformation  string   `json:"factual_information"`
	SelfRevelation      string   `json:"self_revelation"`
	Relationship        string   `json:"relationship"`
	Appeal              string   `json:"appeal"`
	ReferringMessageIDs []int    `json:"referring_message_ids"`
}

func (f *FourSides) Analyze(ctx context.Context, sess *session.Session, msg session.Message) (*session.Analysis, error) {
	system := fmt.Sprintf(fourSidesSystem, gameDescription, sess.Bot())
	instruction := fmt.Sprintf(fourSidesInstruction,
		strings.Join(sess.Participants(), ", "),
		sess.TranscriptUpTo(msg.ID),
		msg.String(),
	)

	var payload fourSidesPayload
	if err := infer(ctx, f.client, f.log, system, instruction, &payload); err != nil {
		return nil, err
	}

	// Receivers fall back to the senders of the messages this one links to.
	receivers := payload.Receivers
	if len(receivers) == 0 {
		receivers = sess.SendersOf(payload.ReferringMessageIDs)
	}
	return &session.Analysis{
		Receivers:          receivers,
		FactualInformation: payload.FactualInformation,
		SelfRevelation:     payload.SelfRevelation,
		Relationship:       payload.Relationship,
		Appeal:             payload.Appeal,
		LinkedMessages:     payload.ReferringMessageIDs,
	}, nil
}
