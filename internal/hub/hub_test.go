package hub

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub() *Hub {
	return New(zap.NewNop().Sugar())
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-c.Send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcastReachesOnlyRoomMembers(t *testing.T) {
	h := newTestHub()
	inRoom := NewClient("c1", "S123", "student", 8)
	outside := NewClient("c2", "S456", "student", 8)
	h.Register(inRoom)
	h.Register(outside)
	h.Join(inRoom, "student:S123", "all-students")
	h.Join(outside, "all-students")

	n := h.Broadcast("student:S123", []byte("approved"))
	assert.Equal(t, 1, n)
	assert.Len(t, drain(inRoom), 1)
	assert.Empty(t, drain(outside))
}

func TestBroadcastDeliversAtMostOnce(t *testing.T) {
	h := newTestHub()
	c := NewClient("c1", "S1", "student", 8)
	h.Register(c)
	// double join must not double-deliver
	h.Join(c, "all-students")
	h.Join(c, "all-students", "student:S1")

	n := h.Broadcast("all-students", []byte("offer"))
	assert.Equal(t, 1, n)
	assert.Len(t, drain(c), 1)
}

func TestUnregisterRemovesFromAllRooms(t *testing.T) {
	h := newTestHub()
	c := NewClient("c1", "S1", "student", 8)
	h.Register(c)
	h.Join(c, "all-students", "student:S1")
	require.Equal(t, 1, h.RoomSize("all-students"))

	h.Unregister(c)
	assert.Equal(t, 0, h.RoomSize("all-students"))
	assert.Equal(t, 0, h.RoomSize("student:S1"))
	assert.Equal(t, 0, h.ClientCount())

	// send channel closed
	_, open := <-c.Send
	assert.False(t, open)

	// no-op on second call
	h.Unregister(c)
}

func TestRejoinAfterDisconnectReceivesSubsequentEvents(t *testing.T) {
	h := newTestHub()
	c := NewClient("c1", "S1", "student", 8)
	h.Register(c)
	h.Join(c, "student:S1")
	h.Unregister(c)

	// events emitted while disconnected are lost, not queued
	assert.Equal(t, 0, h.Broadcast("student:S1", []byte("missed")))

	// reconnect re-runs the join handshake with a fresh connection
	c2 := NewClient("c2", "S1", "student", 8)
	h.Register(c2)
	h.Join(c2, "student:S1")
	assert.Equal(t, 1, h.Broadcast("student:S1", []byte("seen")))
	assert.Len(t, drain(c2), 1)
}

func TestSlowConsumerDropsMessage(t *testing.T) {
	h := newTestHub()
	c := NewClient("c1", "S1", "student", 1)
	h.Register(c)
	h.Join(c, "all-students")

	assert.Equal(t, 1, h.Broadcast("all-students", []byte("one")))
	// buffer full now; message is dropped, connection stays registered
	assert.Equal(t, 0, h.Broadcast("all-students", []byte("two")))
	assert.Equal(t, 1, h.ClientCount())
}

// Clients disconnect while fan-outs are in flight; a send racing the channel
// close must never panic the emitting goroutine.
func TestBroadcastDuringUnregisterDoesNotPanic(t *testing.T) {
	h := newTestHub()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					h.Broadcast("all-students", []byte("tick"))
				}
			}
		}()
	}

	for i := 0; i < 5000; i++ {
		c := NewClient(fmt.Sprintf("c%d", i), "S1", "student", 1)
		h.Register(c)
		h.Join(c, "all-students")
		h.Unregister(c)
	}

	close(stop)
	wg.Wait()
	assert.Equal(t, 0, h.ClientCount())
}

func TestSendToUnregisteredClientIsDropped(t *testing.T) {
	h := newTestHub()
	c := NewClient("c1", "S1", "student", 8)
	h.Register(c)
	h.Unregister(c)

	assert.False(t, h.SendTo(c, []byte("late")))
	assert.Equal(t, 0, h.Broadcast("all-students", []byte("late")))
}

func TestJoinUnknownClientIgnored(t *testing.T) {
	h := newTestHub()
	c := NewClient("ghost", "S1", "student", 1)
	h.Join(c, "all-students")
	assert.Equal(t, 0, h.RoomSize("all-students"))
}
