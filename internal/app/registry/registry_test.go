package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	sent   int
	closed bool
}

func (s *stubClient) Send(context.Context, []byte) error {
	s.sent++
	return nil
}

func (s *stubClient) Close() { s.closed = true }

func TestRegistry_RegisterAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry()

	a := r.Register(&stubClient{})
	b := r.Register(&stubClient{})

	require.NotEmpty(t, a)
	require.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	id := r.Register(&stubClient{})

	conn, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, conn.ID)
	assert.False(t, conn.Joined())

	// mutating the copy must not leak back into the registry
	conn.CurrentRoom = "r1"
	again, ok := r.Get(id)
	require.True(t, ok)
	assert.False(t, again.Joined())
}

func TestRegistry_SetRoom(t *testing.T) {
	r := NewRegistry()
	id := r.Register(&stubClient{})

	require.True(t, r.SetRoom(id, "r1"))
	conn, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, "r1", conn.CurrentRoom)

	require.True(t, r.SetRoom(id, ""))
	conn, _ = r.Get(id)
	assert.False(t, conn.Joined())

	assert.False(t, r.SetRoom("no-such-conn", "r1"))
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	id := r.Register(&stubClient{})

	r.Unregister(id)
	_, ok := r.Get(id)
	assert.False(t, ok)
	assert.Nil(t, r.Client(id))

	// a second unregister must be a quiet no-op
	r.Unregister(id)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ClientLookup(t *testing.T) {
	r := NewRegistry()
	c := &stubClient{}
	id := r.Register(c)

	got := r.Client(id)
	require.NotNil(t, got)
	require.NoError(t, got.Send(context.Background(), []byte("x")))
	assert.Equal(t, 1, c.sent)
}
