package services

import (
	"testing"

	"github.com/Ranjeet550/kodeshare-relay/internal/app/registry"
	"github.com/Ranjeet550/kodeshare-relay/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMembershipHarness() (*Membership, *registry.Registry) {
	reg := registry.NewRegistry()
	return NewMembership(discardLogger(), reg), reg
}

func connect(reg *registry.Registry) string {
	return reg.Register(&mockClient{})
}

func TestMembership_JoinLeaveAccounting(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, m *Membership, reg *registry.Registry)
	}{
		{
			name: "counts follow joins and leaves",
			run: func(t *testing.T, m *Membership, reg *registry.Registry) {
				a, b := connect(reg), connect(reg)

				res, err := m.Join("r1", a)
				require.NoError(t, err)
				assert.Equal(t, 1, res.Members)
				assert.True(t, res.Created)

				res, err = m.Join("r1", b)
				require.NoError(t, err)
				assert.Equal(t, 2, res.Members)
				assert.False(t, res.Created)

				info := m.Leave(a)
				assert.True(t, info.Left)
				assert.Equal(t, "r1", info.RoomID)
				assert.Equal(t, 1, info.Members)
				assert.Equal(t, 1, m.MemberCount("r1"))
			},
		},
		{
			name: "rejoining the same room is idempotent",
			run: func(t *testing.T, m *Membership, reg *registry.Registry) {
				a := connect(reg)
				_, err := m.Join("r1", a)
				require.NoError(t, err)

				res, err := m.Join("r1", a)
				require.NoError(t, err)
				assert.Equal(t, 1, res.Members)
				assert.False(t, res.Created)
				assert.False(t, res.Switched.Left)
				assert.Equal(t, 1, m.MemberCount("r1"))
			},
		},
		{
			name: "switching rooms runs the implicit leave first",
			run: func(t *testing.T, m *Membership, reg *registry.Registry) {
				a, b := connect(reg), connect(reg)
				_, err := m.Join("r1", a)
				require.NoError(t, err)
				_, err = m.Join("r1", b)
				require.NoError(t, err)

				res, err := m.Join("r2", a)
				require.NoError(t, err)
				assert.Equal(t, 1, res.Members)
				assert.True(t, res.Created)
				require.True(t, res.Switched.Left)
				assert.Equal(t, "r1", res.Switched.RoomID)
				assert.Equal(t, 1, res.Switched.Members)

				assert.Equal(t, 1, m.MemberCount("r1"))
				assert.Equal(t, 1, m.MemberCount("r2"))
				conn, _ := reg.Get(a)
				assert.Equal(t, "r2", conn.CurrentRoom)
			},
		},
		{
			name: "leave while unjoined is a no-op",
			run: func(t *testing.T, m *Membership, reg *registry.Registry) {
				a := connect(reg)
				info := m.Leave(a)
				assert.False(t, info.Left)
			},
		},
		{
			name: "leave for an unknown connection is a no-op",
			run: func(t *testing.T, m *Membership, _ *registry.Registry) {
				info := m.Leave("ghost")
				assert.False(t, info.Left)
			},
		},
		{
			name: "join for an unknown connection fails",
			run: func(t *testing.T, m *Membership, _ *registry.Registry) {
				_, err := m.Join("r1", "ghost")
				assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, reg := newMembershipHarness()
			tt.run(t, m, reg)
		})
	}
}

func TestMembership_UnknownRoomCountsZero(t *testing.T) {
	m, _ := newMembershipHarness()
	assert.Equal(t, 0, m.MemberCount("never-seen"))
	assert.Nil(t, m.Members("never-seen"))
}

func TestMembership_EmptyRoomIsGarbageCollected(t *testing.T) {
	m, reg := newMembershipHarness()
	a := connect(reg)

	_, err := m.Join("r1", a)
	require.NoError(t, err)
	require.True(t, m.SetContent("r1", "x=1"))

	info := m.Leave(a)
	require.True(t, info.Left)
	require.Equal(t, 0, info.Members)
	assert.Equal(t, 0, m.MemberCount("r1"))
	rooms, members := m.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, members)

	// a fresh join creates a new room; nothing bleeds through
	res, err := m.Join("r1", a)
	require.NoError(t, err)
	assert.True(t, res.Created)
	snap, ok := m.Snapshot("r1")
	require.True(t, ok)
	assert.Empty(t, snap.Content)
}

func TestMembership_SeedingLatchLifecycle(t *testing.T) {
	m, reg := newMembershipHarness()
	a := connect(reg)

	res, err := m.Join("r1", a)
	require.NoError(t, err)
	require.True(t, res.Created)

	// a creating join opens the latch; it stays open until hydration
	// reports in
	ch := m.Seeding("r1")
	require.NotNil(t, ch)
	select {
	case <-ch:
		t.Fatal("latch released before hydration finished")
	default:
	}

	m.MarkSeeded("r1")
	select {
	case <-ch:
	default:
		t.Fatal("latch not released")
	}
	assert.Nil(t, m.Seeding("r1"))

	// destroying a room releases a still-open latch so no waiter hangs
	b := connect(reg)
	res, err = m.Join("r2", b)
	require.NoError(t, err)
	require.True(t, res.Created)
	ch = m.Seeding("r2")
	require.NotNil(t, ch)

	m.Leave(b)
	select {
	case <-ch:
	default:
		t.Fatal("latch leaked past room destruction")
	}
	assert.Nil(t, m.Seeding("r2"))
}

func TestMembership_SnapshotAndContent(t *testing.T) {
	m, reg := newMembershipHarness()
	a := connect(reg)
	_, err := m.Join("r1", a)
	require.NoError(t, err)

	require.True(t, m.SetDocument("r1", &domain.Document{
		ID: "r1", Content: "hello", Language: "go", Title: "scratch",
	}))
	require.True(t, m.SetContent("r1", "hello, world"))

	snap, ok := m.Snapshot("r1")
	require.True(t, ok)
	assert.Equal(t, "hello, world", snap.Content)
	assert.Equal(t, "go", snap.Language)
	assert.Equal(t, "scratch", snap.Title)
	assert.Equal(t, 1, snap.Members)

	assert.False(t, m.SetContent("r2", "nope"))
	_, ok = m.Snapshot("r2")
	assert.False(t, ok)
}
