package generation

import (
	"strings"

	"fourmind/internal/session"
)

// Hedging fillers the model tends to open with; stripped before sending.
var forbiddenWords = []string{"nah ", "i think ", "i mean ", "just ", "like ", "kinda ", "sort of "}

// repeatWindow is how many recent messages are checked for an exact repeat
// of the candidate.
const repeatWindow = 3

// postProcess filters hedges, applies the randomized split policy and
// suppresses exact repeats of the bot's own recent messages.
//
// Split policy: with even odds the filtered text goes out whole. Otherwise,
// if it contains a list separator, a second coin either buffers the
// remainder as a one-shot follow-up (a human sending a thought in two
// bursts) or truncates to the first clause and discards the rest.
func (c *Coordinator) postProcess(sess *session.Session, text string) (string, bool) {
	for _, w := range forbiddenWords {
		text = strings.ReplaceAll(text, w, "")
	}

	var out string
	parts := strings.SplitN(text, ", ", 2)
	switch {
	case len(parts) == 1 || c.chance() < 0.5:
		out = text
	case c.chance() < 0.5:
		sess.StoreFollowup(parts[1])
		out = parts[0]
	default:
		out = strings.SplitN(parts[0], ". ", 2)[0]
	}

	if strings.TrimSpace(out) == "" {
		return "", false
	}

	// Failsafe: the model tends to repeat itself.
	lowered := strings.ToLower(out)
	for _, prev := range sess.BotRecent(repeatWindow) {
		if strings.ToLower(prev) == lowered {
			c.log.Info().Stringer("chat", sess).Msg("suppressing repeated response")
			return "", false
		}
	}
	return out, true
}
