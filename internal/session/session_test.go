package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	return New(1234, "carol", []string{"alice", "bob"}, "en")
}

func TestNewDropsDuplicatesAndBot(t *testing.T) {
	s := New(1, "carol", []string{"alice", "bob", "alice", "carol"}, "en")
	assert.Equal(t, []string{"alice", "bob"}, s.Humans())
	assert.Equal(t, []string{"alice", "bob", "carol"}, s.Participants())
}

func TestAddMessageAssignsIncreasingIDs(t *testing.T) {
	s := newTestSession()
	require.Equal(t, 0, s.LastMessageID())

	for i := 0; i < 5; i++ {
		msg := s.AddMessage("alice", "hi", time.Now())
		assert.Equal(t, i, msg.ID)
		assert.Equal(t, i, s.LastMessageID())
	}
	assert.Equal(t, 5, s.MessageCount())
}

func TestLastMessageTimeOnlyMovesForward(t *testing.T) {
	s := newTestSession()
	before := s.LastMessageTime()

	s.AddMessage("alice", "late arrival", time.Now().Add(-time.Minute))
	assert.Equal(t, before, s.LastMessageTime())

	future := time.Now().Add(time.Second)
	s.AddMessage("bob", "fresh", future)
	assert.Equal(t, future, s.LastMessageTime())
}

func TestEnrichPreservesBaseAndIsMonotone(t *testing.T) {
	s := newTestSession()
	at := time.Now()
	msg := s.AddMessage("alice", "hi", at)

	a := &Analysis{Receivers: []string{"bob"}, Appeal: "greet back"}
	require.True(t, s.Enrich(msg.ID, a))

	got, ok := s.Message(msg.ID)
	require.True(t, ok)
	assert.True(t, got.Enriched())
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, "alice", got.Sender)
	assert.Equal(t, "hi", got.Text)
	assert.Equal(t, at, got.Time)

	// A second pass is never applied.
	assert.False(t, s.Enrich(msg.ID, &Analysis{Appeal: "other"}))
	got, _ = s.Message(msg.ID)
	assert.Equal(t, "greet back", got.Analysis.Appeal)
}

func TestEnrichMissingMessage(t *testing.T) {
	s := newTestSession()
	assert.False(t, s.Enrich(7, &Analysis{}))
	assert.False(t, s.Enrich(0, nil))
}

func TestMessageLookup(t *testing.T) {
	s := newTestSession()
	_, ok := s.Message(0)
	assert.False(t, ok)

	s.AddMessage("alice", "hi", time.Now())
	got, ok := s.Message(0)
	require.True(t, ok)
	assert.Equal(t, "hi", got.Text)
}

func TestLastNonBotText(t *testing.T) {
	s := newTestSession()
	assert.Equal(t, "", s.LastNonBotText())

	s.AddMessage("alice", "how are you", time.Now())
	s.AddMessage("carol", "fine thanks", time.Now())
	assert.Equal(t, "how are you", s.LastNonBotText())
}

func TestBotRecent(t *testing.T) {
	s := newTestSession()
	s.AddMessage("alice", "one", time.Now())
	s.AddMessage("carol", "two", time.Now())
	s.AddMessage("bob", "three", time.Now())
	s.AddMessage("carol", "four", time.Now())

	assert.Equal(t, []string{"two", "four"}, s.BotRecent(3))
	assert.Equal(t, []string{"four"}, s.BotRecent(1))
}

func TestSendersOf(t *testing.T) {
	s := newTestSession()
	s.AddMessage("alice", "one", time.Now())
	s.AddMessage("bob", "two", time.Now())
	s.AddMessage("alice", "three", time.Now())

	assert.Equal(t, []string{"alice", "bob"}, s.SendersOf([]int{0, 1, 2, 99}))
	assert.Empty(t, s.SendersOf(nil))
}

func TestTranscriptUpToStopsAtMessage(t *testing.T) {
	s := newTestSession()
	s.AddMessage("alice", "first", time.Now())
	s.AddMessage("bob", "second", time.Now())
	s.AddMessage("alice", "third", time.Now())

	partial := s.TranscriptUpTo(1)
	assert.Contains(t, partial, "first")
	assert.Contains(t, partial, "second")
	assert.NotContains(t, partial, "third")

	full := s.Transcript()
	assert.Contains(t, full, "third")
}

func TestGenerationGateIsExclusive(t *testing.T) {
	s := newTestSession()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TryBeginGeneration() {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())

	s.EndGeneration()
	assert.True(t, s.TryBeginGeneration())
}

func TestFollowupSlotHoldsOneValue(t *testing.T) {
	s := newTestSession()
	_, ok := s.TakeFollowup()
	assert.False(t, ok)

	s.StoreFollowup("first half")
	s.StoreFollowup("second half") // overwrites the unconsumed one

	got, ok := s.TakeFollowup()
	require.True(t, ok)
	assert.Equal(t, "second half", got)

	_, ok = s.TakeFollowup()
	assert.False(t, ok)
}

func TestSnapshotCopiesState(t *testing.T) {
	s := newTestSession()
	s.AddMessage("alice", "hi", time.Now())

	snap := s.Snapshot()
	assert.Equal(t, int64(1234), snap.ID)
	assert.Equal(t, "carol", snap.Bot)
	assert.Len(t, snap.Messages, 1)

	s.AddMessage("bob", "later", time.Now())
	assert.Len(t, snap.Messages, 1)
}

func TestAnonymizeID(t *testing.T) {
	assert.Equal(t, "...4567", AnonymizeID(1234567))
	assert.Equal(t, "...42", AnonymizeID(42))
}
