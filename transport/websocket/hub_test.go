package websocket

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerClient(t *testing.T, h *hub, sessionID string, buffer int) *client {
	t.Helper()

	c := newClient(sessionID, nil, buffer)
	require.NoError(t, h.register(c, func() error { return nil }))

	return c
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	// Given: a client with room for two messages that never reads
	h := newHub()
	slow := registerClient(t, h, "s1", 2)
	fast := registerClient(t, h, "s1", 8)

	// When: four broadcasts are sent
	var sent []int
	for range 4 {
		sent = append(sent, h.broadcast("s1", []byte("state")))
		<-fast.send
	}

	// Then: the slow client takes two, is closed on the third and skipped after
	assert.Equal(t, []int{2, 2, 1, 1}, sent)
	assert.True(t, slow.closed)
	assert.False(t, slow.enqueue([]byte("late")))

	// Then: its buffered messages still drain before the channel reports closed
	assert.Len(t, slow.send, 2)
	<-slow.send
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok)

	// Then: the fast client keeps receiving
	assert.False(t, fast.closed)
	assert.Equal(t, 1, h.broadcast("s1", []byte("state")))
}

func TestHub_Register(t *testing.T) {
	t.Run("Failed prime does not add the client", func(t *testing.T) {
		h := newHub()
		errPrime := errors.New("not found")

		err := h.register(newClient("s1", nil, 1), func() error { return errPrime })

		require.ErrorIs(t, err, errPrime)
		assert.Equal(t, 0, h.count("s1"))
		assert.Empty(t, h.rooms)
	})

	t.Run("Slow prime only holds back its own session", func(t *testing.T) {
		// Given: a client of s2 whose prime blocks
		h := newHub()
		other := registerClient(t, h, "s1", 4)

		release := make(chan struct{})
		primed := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- h.register(newClient("s2", nil, 4), func() error {
				close(primed)
				<-release
				return nil
			})
		}()
		<-primed

		// When: s1 is broadcast to meanwhile
		sent := make(chan int, 1)
		go func() { sent <- h.broadcast("s1", []byte("state")) }()

		// Then: the broadcast is not blocked by the s2 registration
		select {
		case n := <-sent:
			assert.Equal(t, 1, n)
		case <-time.After(time.Second):
			t.Fatal("broadcast to s1 blocked by s2 registration")
		}
		assert.Len(t, other.send, 1)

		close(release)
		require.NoError(t, <-done)
		assert.Equal(t, 1, h.count("s2"))
	})

	t.Run("Broadcast waits for a registration of the same session", func(t *testing.T) {
		h := newHub()
		c := newClient("s1", nil, 4)

		release := make(chan struct{})
		primed := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- h.register(c, func() error {
				c.enqueue([]byte("initial"))
				close(primed)
				<-release
				return nil
			})
		}()
		<-primed

		sent := make(chan int, 1)
		go func() { sent <- h.broadcast("s1", []byte("update")) }()

		close(release)
		require.NoError(t, <-done)

		// Then: the broadcast lands after the initial message
		assert.Equal(t, 1, <-sent)
		assert.Equal(t, "initial", string(<-c.send))
		assert.Equal(t, "update", string(<-c.send))
	})
}

func TestHub_RoomLifecycle(t *testing.T) {
	t.Run("Removing the last client drops the room", func(t *testing.T) {
		h := newHub()
		c := registerClient(t, h, "s1", 1)

		h.remove(c)

		assert.Equal(t, 0, h.count("s1"))
		assert.Empty(t, h.rooms)
	})

	t.Run("Closed session can be joined again", func(t *testing.T) {
		// Given: a session that was closed with a client attached
		h := newHub()
		old := registerClient(t, h, "s1", 2)
		h.closeSession("s1", []byte("deleted"))

		assert.Equal(t, "deleted", string(<-old.send))
		_, ok := <-old.send
		assert.False(t, ok)

		// When: a new client joins the same id
		fresh := registerClient(t, h, "s1", 2)

		// Then: only the new client receives broadcasts
		assert.Equal(t, 1, h.broadcast("s1", []byte("state")))
		assert.Len(t, fresh.send, 1)

		// When: the old client's read loop removes it late
		h.remove(old)

		// Then: the new room is kept
		assert.Equal(t, 1, h.count("s1"))
	})

	t.Run("Close all disconnects every session", func(t *testing.T) {
		h := newHub()
		a := registerClient(t, h, "s1", 1)
		b := registerClient(t, h, "s2", 1)

		h.closeAll()

		assert.True(t, a.closed)
		assert.True(t, b.closed)
		assert.Equal(t, 0, h.broadcast("s1", []byte("state")))
	})
}
