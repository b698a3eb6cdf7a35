package session

import (
	"fmt"
	"strings"
	"time"
)

// Analysis holds the conversational-analysis fields attached to a message
// once the four-sides pass has completed.
type Analysis struct {
	Receivers          []string `json:"receivers"`
	FactualInformation string   `json:"factual_information"`
	SelfRevelation     string   `json:"self_revelation"`
	Relationship       string   `json:"relationship"`
	Appeal             string   `json:"appeal"`
	LinkedMessages     []int    `json:"linked_messages,omitempty"`
}

// Message is one chat utterance. A message starts raw and becomes enriched
// when an Analysis is attached; id, sender, text and time never change after
// insertion.
type Message struct {
	ID       int       `json:"id"`
	Sender   string    `json:"sender"`
	Text     string    `json:"message"`
	Time     time.Time `json:"time"`
	Analysis *Analysis `json:"analysis,omitempty"`
}

// Enriched reports whether the analysis pass has run for this message.
func (m Message) Enriched() bool { return m.Analysis != nil }

// String renders the message in transcript form, including the analysis
// block for enriched messages.
func (m Message) String() string {
	if m.Analysis == nil {
		return fmt.Sprintf("[#%d] %s: %s", m.ID, m.Sender, m.Text)
	}
	receivers := "unclear"
	if len(m.Analysis.Receivers) > 0 {
		receivers = strings.Join(m.Analysis.Receivers, ", ")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[#%d] %s: %s\n", m.ID, m.Sender, m.Text)
	fmt.Fprintf(&b, "- Receivers: %s\n", receivers)
	fmt.Fprintf(&b, "- Factual Info: %s\n", m.Analysis.FactualInformation)
	fmt.Fprintf(&b, "- Self-Revelation: %s\n", m.Analysis.SelfRevelation)
	fmt.Fprintf(&b, "- Relationship: %s\n", m.Analysis.Relationship)
	fmt.Fprintf(&b, "- Appeal: %s", m.Analysis.Appeal)
	return b.String()
}
