package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/umachittudi2004/VedazAssingment/internal/errs"
)

func TestRegistry_Join_First_Handle_Goes_Online(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	rec := &recorder{}
	registry.Subscribe(rec)
	conn := newFakeConn()

	// When alice connects
	online, err := registry.Join("alice", conn)

	// Then she becomes online with a single transition
	req.NoError(err)
	req.True(online)
	req.True(registry.IsOnline("alice"))
	req.Len(registry.HandlesFor("alice"), 1)
	req.Len(rec.snapshot(), 1)
	req.Equal(Change{UserID: "alice", Online: true, At: rec.snapshot()[0].At}, rec.snapshot()[0])
}

func TestRegistry_Multiple_Devices_Emit_One_Transition(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	rec := &recorder{}
	registry.Subscribe(rec)
	phone, laptop := newFakeConn(), newFakeConn()

	// Given alice is connected from her phone
	_, err := registry.Join("alice", phone)
	req.NoError(err)

	// When her laptop joins too
	online, err := registry.Join("alice", laptop)
	req.NoError(err)

	// Then no second online transition fires
	req.False(online)
	req.Len(registry.HandlesFor("alice"), 2)
	req.Len(rec.snapshot(), 1)

	// When the phone leaves, alice stays online
	owner, offline := registry.Leave(phone)
	req.Equal("alice", owner)
	req.False(offline)
	req.True(registry.IsOnline("alice"))
	req.Len(rec.snapshot(), 1)

	// When the laptop leaves, alice goes offline exactly once
	_, offline = registry.Leave(laptop)
	req.True(offline)
	req.False(registry.IsOnline("alice"))
	req.Empty(registry.HandlesFor("alice"))

	changes := rec.snapshot()
	req.Len(changes, 2)
	req.False(changes[1].Online)
	req.Empty(registry.Sessions())
	req.Zero(registry.ConnectionCount())
}

func TestRegistry_Join_Is_Idempotent_Per_Handle(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	rec := &recorder{}
	registry.Subscribe(rec)
	conn := newFakeConn()

	first, err := registry.Join("alice", conn)
	req.NoError(err)
	second, err := registry.Join("alice", conn)
	req.NoError(err)

	req.True(first)
	req.False(second)
	req.Len(registry.HandlesFor("alice"), 1)
	req.Len(rec.snapshot(), 1)
}

func TestRegistry_Leave_Unknown_Handle_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	rec := &recorder{}
	registry.Subscribe(rec)
	conn := newFakeConn()

	owner, offline := registry.Leave(conn)
	req.Empty(owner)
	req.False(offline)

	// Leaving twice is also harmless
	_, err := registry.Join("alice", conn)
	req.NoError(err)
	registry.Leave(conn)
	owner, offline = registry.Leave(conn)
	req.Empty(owner)
	req.False(offline)
	req.Len(rec.snapshot(), 2)
}

func TestRegistry_Join_Moves_Handle_Between_Users(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	rec := &recorder{}
	registry.Subscribe(rec)
	conn := newFakeConn()

	// Given the handle is joined as alice
	_, err := registry.Join("alice", conn)
	req.NoError(err)

	// When the same handle joins as bob
	online, err := registry.Join("bob", conn)
	req.NoError(err)

	// Then alice went offline, bob came online, and the handle has one owner
	req.True(online)
	req.False(registry.IsOnline("alice"))
	req.True(registry.IsOnline("bob"))
	owner, ok := registry.OwnerOf(conn)
	req.True(ok)
	req.Equal("bob", owner)
	req.Equal(1, registry.ConnectionCount())

	changes := rec.snapshot()
	req.Len(changes, 3)
	req.Equal("alice", changes[1].UserID)
	req.False(changes[1].Online)
	req.Equal("bob", changes[2].UserID)
	req.True(changes[2].Online)
}

func TestRegistry_Join_Rejects_Closed_Handle(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn()
	conn.Close()

	online, err := registry.Join("alice", conn)

	req.ErrorIs(err, ErrConnClosed)
	req.False(online)
	req.False(registry.IsOnline("alice"))
}

func TestRegistry_Join_Requires_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	_, err := registry.Join("", newFakeConn())

	req.ErrorIs(err, errs.ErrValidation)
}

func TestRegistry_SendToUser_Skips_Refusing_Handles(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	healthy, stuck := newFakeConn(), newFakeConn()
	stuck.refuse = true
	_, _ = registry.Join("alice", healthy)
	_, _ = registry.Join("alice", stuck)

	sent := registry.SendToUser("alice", userEvent("typing:start", "bob"))

	req.Equal(1, sent)
	req.Equal([]string{"bob"}, healthy.received("typing:start"))
	req.Zero(registry.SendToUser("nobody", userEvent("typing:start", "bob")))
}

func TestRegistry_Concurrent_Join_Leave(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	rec := &recorder{}
	registry.Subscribe(rec)

	const users, devices = 20, 5
	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		for d := 0; d < devices; d++ {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				conn := newFakeConn()
				_, err := registry.Join(userID, conn)
				if err != nil {
					t.Errorf("join: %v", err)
					return
				}
				_ = registry.IsOnline(userID)
				registry.Leave(conn)
			}(fmt.Sprintf("user-%d", u))
		}
	}
	wg.Wait()

	// Then the registry is empty and every online has a matching offline
	req.Empty(registry.OnlineUsers())
	req.Zero(registry.ConnectionCount())

	balance := map[string]int{}
	for _, ch := range rec.snapshot() {
		if ch.Online {
			balance[ch.UserID]++
			req.Equal(1, balance[ch.UserID], "online twice in a row for %s", ch.UserID)
		} else {
			balance[ch.UserID]--
			req.Equal(0, balance[ch.UserID], "offline without online for %s", ch.UserID)
		}
	}
}

func TestRegistry_Join_Racing_Close_Never_Leaves_Dangling_Handle(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	for i := 0; i < 200; i++ {
		conn := newFakeConn()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = registry.Join("alice", conn)
		}()
		go func() {
			defer wg.Done()
			// Disconnect path: mark closed, then leave
			conn.Close()
			registry.Leave(conn)
		}()
		wg.Wait()
		_, dangling := registry.OwnerOf(conn)
		req.False(dangling)
	}
	req.False(registry.IsOnline("alice"))
}
