package generation

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fourmind/internal/session"
)

func newPostProcessFixture(chance func() float64) (*Coordinator, *session.Session) {
	reg := session.NewRegistry(nil, zerolog.Nop())
	sess := session.New(9, "carol", []string{"alice", "bob"}, "en")
	c := NewCoordinator(reg, nil, zeroDelay{}, time.Second, zerolog.Nop())
	c.chance = chance
	return c, sess
}

func TestPostProcessStripsHedges(t *testing.T) {
	c, sess := newPostProcessFixture(chanceSeq(0))

	out, ok := c.postProcess(sess, "i think yes that works")
	require.True(t, ok)
	assert.Equal(t, "yes that works", out)

	out, ok = c.postProcess(sess, "kinda sort of maybe")
	require.True(t, ok)
	assert.Equal(t, "maybe", out)
}

func TestPostProcessEmptyAfterFilter(t *testing.T) {
	c, sess := newPostProcessFixture(chanceSeq(0))

	_, ok := c.postProcess(sess, "i think ")
	assert.False(t, ok)

	_, ok = c.postProcess(sess, "   ")
	assert.False(t, ok)
}

func TestPostProcessKeepsWholeText(t *testing.T) {
	// First coin below 0.5: send the filtered text untouched.
	c, sess := newPostProcessFixture(chanceSeq(0.2))

	out, ok := c.postProcess(sess, "sure thing, no rush though")
	require.True(t, ok)
	assert.Equal(t, "sure thing, no rush though", out)
}

func TestPostProcessBuffersRemainder(t *testing.T) {
	// Not whole, then buffer branch.
	c, sess := newPostProcessFixture(chanceSeq(0.9, 0.2))

	out, ok := c.postProcess(sess, "sure thing, no rush though")
	require.True(t, ok)
	assert.Equal(t, "sure thing", out)

	followup, ok := sess.TakeFollowup()
	require.True(t, ok)
	assert.Equal(t, "no rush though", followup)
}

func TestPostProcessTruncatesFirstClause(t *testing.T) {
	// Not whole, not buffered: truncate to the first sentence of the first
	// clause and discard the rest.
	c, sess := newPostProcessFixture(chanceSeq(0.9, 0.9))

	out, ok := c.postProcess(sess, "fine by me. really, whatever works")
	require.True(t, ok)
	assert.Equal(t, "fine by me", out)

	_, ok = sess.TakeFollowup()
	assert.False(t, ok, "truncation must not buffer anything")
}

func TestPostProcessNoSeparator(t *testing.T) {
	// No list separator: the split coins never flip and the text goes whole.
	c, sess := newPostProcessFixture(chanceSeq(0.9))

	out, ok := c.postProcess(sess, "short answer")
	require.True(t, ok)
	assert.Equal(t, "short answer", out)
}

func TestPostProcessSuppressesRecentRepeat(t *testing.T) {
	c, sess := newPostProcessFixture(chanceSeq(0))
	sess.AddMessage("carol", "good point", time.Now())

	_, ok := c.postProcess(sess, "Good point")
	assert.False(t, ok)
}

func TestPostProcessRepeatWindowIsBounded(t *testing.T) {
	c, sess := newPostProcessFixture(chanceSeq(0))
	sess.AddMessage("carol", "good point", time.Now())
	for i := 0; i < repeatWindow; i++ {
		sess.AddMessage("carol", "filler", time.Now())
	}

	// The old message has scrolled out of the window; only "filler" repeats
	// are still suppressed.
	out, ok := c.postProcess(sess, "good point")
	require.True(t, ok)
	assert.Equal(t, "good point", out)
}
