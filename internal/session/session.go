package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Session is the per-game aggregate: the chat state plus the coordination
// state shared by the analysis worker, the response-generation path and the
// proactive loop. Chat state is guarded by mu; the generation gate is a lone
// compare-and-swap flag so a second attempt is dropped instead of queued.
type Session struct {
	id       int64
	bot      string
	humans   []string
	language string
	start    time.Time

	mu       sync.RWMutex
	messages []Message
	lastMsg  time.Time

	generating  atomic.Bool
	followupMu  sync.Mutex
	followup    string
	hasFollowup bool

	queue *Queue

	cancelMu        sync.Mutex
	cancelProactive context.CancelFunc
}

// New creates the session for one game. Duplicate player names are dropped,
// as is the bot itself if the server lists it among the players.
func New(id int64, bot string, players []string, language string) *Session {
	humans := make([]string, 0, len(players))
	seen := make(map[string]struct{}, len(players))
	for _, p := range players {
		if p == bot {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		humans = append(humans, p)
	}
	now := time.Now()
	return &Session{
		id:       id,
		bot:      bot,
		humans:   humans,
		language: language,
		start:    now,
		lastMsg:  now,
		queue:    newQueue(),
	}
}

func (s *Session) ID() int64        { return s.id }
func (s *Session) Bot() string      { return s.bot }
func (s *Session) Language() string { return s.language }

// Humans returns a copy of the human participant names.
func (s *Session) Humans() []string {
	out := make([]string, len(s.humans))
	copy(out, s.humans)
	return out
}

// Participants returns every participant name, humans first, bot last.
func (s *Session) Participants() []string {
	out := make([]string, 0, len(s.humans)+1)
	out = append(out, s.humans...)
	out = append(out, s.bot)
	return out
}

func (s *Session) StartTime() time.Time { return s.start }

// Age is the wall-clock time since the game started.
func (s *Session) Age() time.Duration { return time.Since(s.start) }

func (s *Session) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMsg
}

func (s *Session) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// LastMessageID returns the highest assigned message id, or 0 when the chat
// is still empty.
func (s *Session) LastMessageID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return 0
	}
	return len(s.messages) - 1
}

// AddMessage inserts a raw message, assigning the next id. The last-message
// time only moves forward.
func (s *Session) AddMessage(sender, text string, at time.Time) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := Message{
		ID:     len(s.messages),
		Sender: sender,
		Text:   text,
		Time:   at,
	}
	s.messages = append(s.messages, msg)
	if at.After(s.lastMsg) {
		s.lastMsg = at
	}
	return msg
}

// Message looks up a message by id.
func (s *Session) Message(id int) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || id >= len(s.messages) {
		return Message{}, false
	}
	return s.messages[id], true
}

// Enrich attaches analysis to a raw message in place, keeping id, sender,
// text and time. It reports false if the message does not exist or has
// already been enriched; enrichment is never reapplied.
func (s *Session) Enrich(id int, a *Analysis) bool {
	if a == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= len(s.messages) || s.messages[id].Analysis != nil {
		return false
	}
	s.messages[id].Analysis = a
	return true
}

// LastN returns up to n most recent messages in arrival order.
func (s *Session) LastN(n int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > len(s.messages) {
		n = len(s.messages)
	}
	out := make([]Message, n)
	copy(out, s.messages[len(s.messages)-n:])
	return out
}

// BotRecent returns the bot's own utterances among the last n messages.
func (s *Session) BotRecent(n int) []string {
	var out []string
	for _, m := range s.LastN(n) {
		if m.Sender == s.bot {
			out = append(out, m.Text)
		}
	}
	return out
}

// LastNonBotText returns the most recent message not authored by the bot,
// or "" if no human has spoken yet. The bot never treats its own previous
// message as the stimulus it reacts to.
func (s *Session) LastNonBotText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Sender != s.bot {
			return s.messages[i].Text
		}
	}
	return ""
}

// SendersOf returns the distinct senders of the given message ids,
// preserving first-seen order.
func (s *Session) SendersOf(ids []int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id < 0 || id >= len(s.messages) {
			continue
		}
		sender := s.messages[id].Sender
		if _, ok := seen[sender]; ok {
			continue
		}
		seen[sender] = struct{}{}
		out = append(out, sender)
	}
	return out
}

// Transcript renders the full chat history.
func (s *Session) Transcript() string {
	return s.TranscriptUpTo(s.LastMessageID())
}

// TranscriptUpTo renders the chat history truncated at the given message id
// inclusive, the view the analysis pass gets for its triggering message.
func (s *Session) TranscriptUpTo(stopID int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var b []byte
	b = fmt.Appendf(b, "# Chat History\nChat Start Time: %s\n\nFormat:\n[#Id] Sender: Message\n- (optional analysis)\n----------------------------------------\n",
		s.start.Format("2006-01-02 15:04:05"))
	for _, m := range s.messages {
		if m.ID > stopID {
			break
		}
		b = append(b, m.String()...)
		b = append(b, '\n')
	}
	return string(b)
}

// TryBeginGeneration attempts to take the single-flight generation gate.
// Exactly one caller wins until EndGeneration.
func (s *Session) TryBeginGeneration() bool { return s.generating.CompareAndSwap(false, true) }

// EndGeneration releases the generation gate.
func (s *Session) EndGeneration() { s.generating.Store(false) }

// Generating reports whether a generation attempt is in flight.
func (s *Session) Generating() bool { return s.generating.Load() }

// StoreFollowup buffers the second half of a split response. The slot holds
// one value; a new split overwrites an unconsumed one.
func (s *Session) StoreFollowup(text string) {
	s.followupMu.Lock()
	defer s.followupMu.Unlock()
	s.followup = text
	s.hasFollowup = true
}

// TakeFollowup consumes the buffered follow-up, if any.
func (s *Session) TakeFollowup() (string, bool) {
	s.followupMu.Lock()
	defer s.followupMu.Unlock()
	if !s.hasFollowup {
		return "", false
	}
	s.hasFollowup = false
	text := s.followup
	s.followup = ""
	return text, true
}

// Queue returns the session's analysis queue.
func (s *Session) Queue() *Queue { return s.queue }

// SetProactiveCancel binds the proactive loop's lifetime to the session.
func (s *Session) SetProactiveCancel(cancel context.CancelFunc) {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	s.cancelProactive = cancel
}

// CancelProactive stops the proactive loop if one is running. Safe to call
// more than once.
func (s *Session) CancelProactive() {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if s.cancelProactive != nil {
		s.cancelProactive()
		s.cancelProactive = nil
	}
}

// Snapshot captures the session state for persistence.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{
		ID:              s.id,
		StartTime:       s.start,
		LastMessageTime: s.lastMsg,
		Humans:          s.Humans(),
		Bot:             s.bot,
		Language:        s.language,
		Messages:        msgs,
	}
}

// Snapshot is the serializable form of a finished session.
type Snapshot struct {
	ID              int64     `json:"id"`
	StartTime       time.Time `json:"start_time"`
	LastMessageTime time.Time `json:"last_message_time"`
	Humans          []string  `json:"humans"`
	Bot             string    `json:"bot"`
	Language        string    `json:"language"`
	Messages        []Message `json:"messages"`
}

// String identifies the session in logs without leaking the full game id.
func (s *Session) String() string {
	s.mu.RLock()
	n := len(s.messages)
	s.mu.RUnlock()
	return fmt.Sprintf("(ID %s, #%d, %ds)", AnonymizeID(s.id), n, int(time.Since(s.start).Seconds()))
}

// AnonymizeID shortens a game id to its last four digits for logging.
func AnonymizeID(id int64) string {
	str := strconv.FormatInt(id, 10)
	if len(str) > 4 {
		str = str[len(str)-4:]
	}
	return "..." + str
}
