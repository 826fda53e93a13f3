package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"social_match_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newHandlerFixture() (*ChatWebsocketHandler, *Hub, *PresenceTracker, *GlobalStore, *MockMessageRepository, *MockUserRepository, *MockPushNotifier) {
	hub := NewHub()
	presence := NewPresenceTracker()
	global := NewGlobalStore(100)
	msgRepo := new(MockMessageRepository)
	userRepo := new(MockUserRepository)
	notifier := new(MockPushNotifier)
	h := NewChatWebsocketHandler(hub, presence, global, msgRepo, userRepo, notifier)
	return h, hub, presence, global, msgRepo, userRepo, notifier
}

func frame(t *testing.T, pkt domain.InboundPacket) []byte {
	t.Helper()
	b, err := json.Marshal(pkt)
	assert.NoError(t, err)
	return b
}

func TestServeDirectJoinDeliversBacklog(t *testing.T) {
	h, hub, _, _, msgRepo, _, _ := newHandlerFixture()
	msgRepo.On("MarkDelivered", mock.Anything, int64(2), int64(1)).Return([]string{"id-1", "id-2"}, nil)

	conn := &fakeConn{}
	h.serve(context.Background(), conn, 2, 1)

	frames := conn.writtenFrames()
	assert.Len(t, frames, 1)

	var event domain.ReceiptEvent
	assert.NoError(t, json.Unmarshal(frames[0], &event))
	assert.Equal(t, domain.EventDelivered, event.Type)
	assert.Equal(t, []string{"id-1", "id-2"}, event.IDs)
	assert.Equal(t, "dm:1:2", event.RoomID)

	// session cleaned up after the read loop ends
	assert.Equal(t, 0, hub.Count("dm:1:2"))
	msgRepo.AssertExpectations(t)
}

func TestServeDirectJoinNoBacklogNoReceipt(t *testing.T) {
	h, _, _, _, msgRepo, _, _ := newHandlerFixture()
	msgRepo.On("MarkDelivered", mock.Anything, int64(2), int64(1)).Return([]string{}, nil)

	conn := &fakeConn{}
	h.serve(context.Background(), conn, 2, 1)

	assert.Empty(t, conn.writtenFrames())
}

func TestServeDirectMessagePersistsAndBroadcasts(t *testing.T) {
	h, hub, _, _, msgRepo, userRepo, notifier := newHandlerFixture()

	peer := &fakeConn{}
	hub.Register("dm:1:2", peer)

	sentAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	saved := &domain.DirectMessage{
		ID: "m1", FromUserID: 1, FromUserName: "Yossi", ToUserID: 2,
		Content: "hello", SentAt: sentAt,
	}
	msgRepo.On("MarkDelivered", mock.Anything, int64(1), int64(2)).Return([]string{}, nil)
	msgRepo.On("Append", mock.Anything, int64(1), int64(2), "Yossi", "hello", mock.Anything).Return(saved, nil)
	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&domain.ChatUser{ID: 1, Name: "Yossi"}, nil)

	conn := &fakeConn{frames: [][]byte{frame(t, domain.InboundPacket{Type: domain.EventMessage, Content: "hello"})}}
	h.serve(context.Background(), conn, 1, 2)

	// both sides of the room got the message event
	for _, c := range []*fakeConn{conn, peer} {
		frames := c.writtenFrames()
		assert.Len(t, frames, 1)

		var event domain.MessageEvent
		assert.NoError(t, json.Unmarshal(frames[0], &event))
		assert.Equal(t, domain.EventMessage, event.Type)
		assert.Equal(t, "dm:1:2", event.RoomID)
	}

	// two sockets in the room, no push handoff
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
	msgRepo.AssertExpectations(t)
}

func TestServeDirectMessageTriggersPushWhenPeerOffline(t *testing.T) {
	h, _, _, _, msgRepo, userRepo, notifier := newHandlerFixture()

	saved := &domain.DirectMessage{ID: "m1", FromUserID: 1, ToUserID: 2, Content: "hello"}
	msgRepo.On("MarkDelivered", mock.Anything, int64(1), int64(2)).Return([]string{}, nil)
	msgRepo.On("Append", mock.Anything, int64(1), int64(2), "Yossi", "hello", mock.Anything).Return(saved, nil)
	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&domain.ChatUser{ID: 1, Name: "Yossi"}, nil)
	notifier.On("Notify", int64(2), "Yossi", "hello").Return()

	conn := &fakeConn{frames: [][]byte{frame(t, domain.InboundPacket{Type: domain.EventMessage, Content: "hello"})}}
	h.serve(context.Background(), conn, 1, 2)

	notifier.AssertExpectations(t)
}

func TestServeBlankContentIsDropped(t *testing.T) {
	h, _, _, _, msgRepo, _, _ := newHandlerFixture()
	msgRepo.On("MarkDelivered", mock.Anything, int64(1), int64(2)).Return([]string{}, nil)

	conn := &fakeConn{frames: [][]byte{
		frame(t, domain.InboundPacket{Type: domain.EventMessage, Content: "   "}),
		frame(t, domain.InboundPacket{Type: domain.EventMessage, Content: ""}),
	}}
	h.serve(context.Background(), conn, 1, 2)

	msgRepo.AssertNotCalled(t, "Append",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, conn.writtenFrames())
}

func TestServeUnknownFrameTypeIgnored(t *testing.T) {
	h, _, _, _, msgRepo, _, _ := newHandlerFixture()
	msgRepo.On("MarkDelivered", mock.Anything, int64(1), int64(2)).Return([]string{}, nil)

	conn := &fakeConn{frames: [][]byte{
		[]byte(`{"type":"typing","content":"..."}`),
		[]byte(`not even json`),
	}}
	h.serve(context.Background(), conn, 1, 2)

	assert.Empty(t, conn.writtenFrames())
}

func TestServeStorageErrorReportsAndKeepsSession(t *testing.T) {
	h, _, _, _, msgRepo, userRepo, _ := newHandlerFixture()

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&domain.ChatUser{ID: 1, Name: "Yossi"}, nil)
	msgRepo.On("MarkDelivered", mock.Anything, int64(1), int64(2)).Return([]string{}, nil)
	msgRepo.On("Append", mock.Anything, int64(1), int64(2), "Yossi", "first", mock.Anything).
		Return(nil, errors.New("db down")).Once()
	saved := &domain.DirectMessage{ID: "m2", FromUserID: 1, ToUserID: 2, Content: "second"}
	msgRepo.On("Append", mock.Anything, int64(1), int64(2), "Yossi", "second", mock.Anything).
		Return(saved, nil).Once()

	conn := &fakeConn{frames: [][]byte{
		frame(t, domain.InboundPacket{Type: domain.EventMessage, Content: "first"}),
		frame(t, domain.InboundPacket{Type: domain.EventMessage, Content: "second"}),
	}}
	h.serve(context.Background(), conn, 1, 2)

	frames := conn.writtenFrames()
	assert.Len(t, frames, 2)

	var errEvent domain.ErrorEvent
	assert.NoError(t, json.Unmarshal(frames[0], &errEvent))
	assert.Equal(t, domain.EventError, errEvent.Type)
	assert.Equal(t, "message was not saved", errEvent.Error)

	var msgEvent domain.MessageEvent
	assert.NoError(t, json.Unmarshal(frames[1], &msgEvent))
	assert.Equal(t, domain.EventMessage, msgEvent.Type)

	msgRepo.AssertExpectations(t)
}

func TestServeGlobalJoinAndLeave(t *testing.T) {
	h, _, presence, _, _, userRepo, _ := newHandlerFixture()
	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&domain.ChatUser{ID: 1, Name: "Yossi"}, nil)

	conn := &fakeConn{}
	h.serve(context.Background(), conn, 1, -1000)

	frames := conn.writtenFrames()
	// join broadcast plus the direct snapshot, then the leave broadcast is
	// skipped because the socket is already out of the hub
	assert.Len(t, frames, 2)

	var joined domain.PresenceEvent
	assert.NoError(t, json.Unmarshal(frames[1], &joined))
	assert.Equal(t, domain.EventPresence, joined.Type)
	assert.Equal(t, "-1000", joined.RoomID)
	assert.Equal(t, 1, joined.Count)
	assert.Equal(t, []domain.PresenceUser{{UserID: 1, Name: "Yossi"}}, joined.Users)

	// presence cleaned up on disconnect
	assert.Empty(t, presence.Snapshot("-1000"))
}

func TestServeGlobalMessageBroadcastsAndStores(t *testing.T) {
	h, hub, _, global, _, userRepo, notifier := newHandlerFixture()
	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&domain.ChatUser{ID: 1, Name: "Yossi"}, nil)

	peer := &fakeConn{}
	hub.Register("-1000", peer)

	conn := &fakeConn{frames: [][]byte{frame(t, domain.InboundPacket{Type: domain.EventMessage, Content: "hi all"})}}
	h.serve(context.Background(), conn, 1, -1000)

	recent := global.Recent("-1000", 10)
	assert.Len(t, recent, 1)
	assert.Equal(t, "hi all", recent[0].Content)
	assert.Equal(t, "Yossi", recent[0].FromUserName)
	assert.NotEmpty(t, recent[0].ID)

	var got domain.MessageEvent
	found := false
	for _, raw := range peer.writtenFrames() {
		if json.Unmarshal(raw, &got) == nil && got.Type == domain.EventMessage {
			found = true
		}
	}
	assert.True(t, found)

	// global rooms never hand off to push
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestServeGlobalLeaveNotifiesRemainingUsers(t *testing.T) {
	h, hub, presence, _, _, userRepo, _ := newHandlerFixture()
	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&domain.ChatUser{ID: 1, Name: "Yossi"}, nil)

	stayer := &fakeConn{}
	hub.Register("-1000", stayer)
	presence.Join("-1000", 9, "Rina")

	conn := &fakeConn{}
	h.serve(context.Background(), conn, 1, -1000)

	frames := stayer.writtenFrames()
	assert.NotEmpty(t, frames)

	var last domain.PresenceEvent
	assert.NoError(t, json.Unmarshal(frames[len(frames)-1], &last))
	assert.Equal(t, domain.EventPresence, last.Type)
	assert.Equal(t, 1, last.Count)
	assert.Equal(t, []domain.PresenceUser{{UserID: 9, Name: "Rina"}}, last.Users)
}

func TestDisplayNameFallsBackToPlaceholder(t *testing.T) {
	h, _, _, _, _, userRepo, _ := newHandlerFixture()
	userRepo.On("FindByID", mock.Anything, int64(5)).Return(nil, errors.New("not found")).Once()
	userRepo.On("FindByID", mock.Anything, int64(6)).Return(&domain.ChatUser{ID: 6, Name: "  "}, nil).Once()

	assert.Equal(t, "User 5", h.displayName(context.Background(), 5))
	assert.Equal(t, "User 6", h.displayName(context.Background(), 6))
}
