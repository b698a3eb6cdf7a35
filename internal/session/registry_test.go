package session

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchiver struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (f *fakeArchiver) Archive(snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, snap)
	return nil
}

func (f *fakeArchiver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snaps)
}

func TestRegistryAddGetRemove(t *testing.T) {
	r := NewRegistry(nil, zerolog.Nop())
	s := newTestSession()

	require.NoError(t, r.Add(s))
	assert.Equal(t, 1, r.Len())
	assert.Same(t, s, r.Get(s.ID()))

	removed := r.Remove(s.ID())
	assert.Same(t, s, removed)
	assert.Nil(t, r.Get(s.ID()))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry(nil, zerolog.Nop())
	require.NoError(t, r.Add(newTestSession()))

	err := r.Add(newTestSession())
	assert.ErrorIs(t, err, ErrDuplicateSession)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry(nil, zerolog.Nop())
	assert.Nil(t, r.Get(99))
}

func TestRegistryRemoveTwice(t *testing.T) {
	r := NewRegistry(nil, zerolog.Nop())
	s := newTestSession()
	require.NoError(t, r.Add(s))

	require.NotNil(t, r.Remove(s.ID()))
	assert.Nil(t, r.Remove(s.ID()))
}

func TestRegistryArchivesOnRemove(t *testing.T) {
	arch := &fakeArchiver{}
	r := NewRegistry(arch, zerolog.Nop())
	s := newTestSession()
	s.AddMessage("alice", "hi", time.Now())
	require.NoError(t, r.Add(s))

	r.Remove(s.ID())

	require.Eventually(t, func() bool { return arch.count() == 1 }, time.Second, 5*time.Millisecond)
	arch.mu.Lock()
	defer arch.mu.Unlock()
	assert.Equal(t, s.ID(), arch.snaps[0].ID)
	assert.Len(t, arch.snaps[0].Messages, 1)
}

func TestRegistryIDs(t *testing.T) {
	r := NewRegistry(nil, zerolog.Nop())
	require.NoError(t, r.Add(New(1, "carol", nil, "en")))
	require.NoError(t, r.Add(New(2, "carol", nil, "en")))

	ids := r.IDs()
	assert.ElementsMatch(t, []int64{1, 2}, ids)
}
