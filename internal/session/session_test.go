package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	frames []string
	closed int
}

func (r *recorder) Send(p []byte) error {
	r.mu.Lock()
	r.frames = append(r.frames, string(p))
	r.mu.Unlock()
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	r.closed++
	r.mu.Unlock()
	return nil
}

func TestSession_SendAndClose(t *testing.T) {
	rec := &recorder{}
	s := New(rec, "127.0.0.1:5000", nil)

	require.NoError(t, s.Send("hello"))
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"hello"}, rec.frames)
	assert.Equal(t, 1, rec.closed)
	assert.Len(t, s.ID, 36)
	assert.False(t, s.ConnectedAt.IsZero())
}

func TestSession_Name(t *testing.T) {
	s := New(&recorder{}, "peer", nil)

	_, ok := s.Name()
	assert.False(t, ok, "new session has no name")
	assert.Equal(t, "peer", s.String())

	s.SetName("alice")
	name, ok := s.Name()
	assert.True(t, ok)
	assert.Equal(t, "alice", name)
	assert.Equal(t, "alice (peer)", s.String())

	s.ClearName()
	_, ok = s.Name()
	assert.False(t, ok)
}

func TestSession_UniqueIDs(t *testing.T) {
	a := New(&recorder{}, "a", nil)
	b := New(&recorder{}, "b", nil)
	assert.NotEqual(t, a.ID, b.ID)
}
