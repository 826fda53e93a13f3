package app

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"social_match_service/internal/chat/domain"
	"social_match_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

func TestHubRegisterAndCount(t *testing.T) {
	h := NewHub()
	c1 := &fakeConn{}
	c2 := &fakeConn{}

	h.Register("dm:1:2", c1)
	h.Register("dm:1:2", c2)
	assert.Equal(t, 2, h.Count("dm:1:2"))
	assert.Equal(t, 0, h.Count("dm:3:4"))

	h.Deregister("dm:1:2", c1)
	assert.Equal(t, 1, h.Count("dm:1:2"))
	h.Deregister("dm:1:2", c2)
	assert.Equal(t, 0, h.Count("dm:1:2"))
}

func TestHubBroadcastReachesEverySocket(t *testing.T) {
	h := NewHub()
	c1 := &fakeConn{}
	c2 := &fakeConn{}
	h.Register("-1000", c1)
	h.Register("-1000", c2)

	h.Broadcast("-1000", domain.ReceiptEvent{Type: domain.EventDelivered, IDs: []string{"a"}, RoomID: "-1000"})

	for _, c := range []*fakeConn{c1, c2} {
		frames := c.writtenFrames()
		assert.Len(t, frames, 1)

		var event domain.ReceiptEvent
		assert.NoError(t, json.Unmarshal(frames[0], &event))
		assert.Equal(t, domain.EventDelivered, event.Type)
		assert.Equal(t, []string{"a"}, event.IDs)
	}
}

func TestHubBroadcastPrunesDeadSockets(t *testing.T) {
	h := NewHub()
	alive := &fakeConn{}
	dead := &fakeConn{failWrites: true}
	h.Register("-1000", alive)
	h.Register("-1000", dead)

	h.Broadcast("-1000", domain.PresenceEvent{Type: domain.EventPresence, RoomID: "-1000"})

	assert.Equal(t, 1, h.Count("-1000"))
	assert.Len(t, alive.writtenFrames(), 1)

	// the dead socket stays gone on the next broadcast
	h.Broadcast("-1000", domain.PresenceEvent{Type: domain.EventPresence, RoomID: "-1000"})
	assert.Len(t, alive.writtenFrames(), 2)
}

// overlapConn flags any two writes running at the same time. The websocket
// library panics on concurrent writers, so overlap here means a crash in
// production.
type overlapConn struct {
	inWrite    int32
	overlapped int32
}

func (c *overlapConn) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("use of closed network connection")
}

func (c *overlapConn) WriteMessage(messageType int, data []byte) error {
	if atomic.AddInt32(&c.inWrite, 1) > 1 {
		atomic.StoreInt32(&c.overlapped, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&c.inWrite, -1)
	return nil
}

func (c *overlapConn) Close() error { return nil }

func TestHubSendNeverInterleavesWithBroadcast(t *testing.T) {
	h := NewHub()
	conn := &overlapConn{}
	h.Register("-1000", conn)

	event := domain.PresenceEvent{Type: domain.EventPresence, RoomID: "-1000"}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Broadcast("-1000", event)
		}()
		go func() {
			defer wg.Done()
			h.Send("-1000", conn, event)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&conn.overlapped))
}

func TestHubSendWritesOnlyToTarget(t *testing.T) {
	h := NewHub()
	target := &fakeConn{}
	other := &fakeConn{}
	h.Register("dm:1:2", target)
	h.Register("dm:1:2", other)

	h.Send("dm:1:2", target, domain.ErrorEvent{Type: domain.EventError, RoomID: "dm:1:2", Error: "message was not saved"})

	assert.Len(t, target.writtenFrames(), 1)
	assert.Empty(t, other.writtenFrames())
}

func TestHubSendPrunesFailedSocket(t *testing.T) {
	h := NewHub()
	dead := &fakeConn{failWrites: true}
	h.Register("dm:1:2", dead)

	h.Send("dm:1:2", dead, domain.PresenceEvent{Type: domain.EventPresence})

	assert.Equal(t, 0, h.Count("dm:1:2"))
}

func TestHubBroadcastEmptyRoomIsNoop(t *testing.T) {
	h := NewHub()
	h.Broadcast("dm:1:2", domain.PresenceEvent{Type: domain.EventPresence})
	assert.Equal(t, 0, h.Count("dm:1:2"))
}
