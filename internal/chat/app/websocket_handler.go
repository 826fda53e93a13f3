package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"social_match_service/internal/chat/domain"
	"social_match_service/internal/chat/repository"
	"social_match_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatWebsocketHandler drives one chat connection end to end: join the
// resolved room, deliver the backlog, pump inbound frames, clean up on
// disconnect
type ChatWebsocketHandler struct {
	hub      *Hub
	presence *PresenceTracker
	global   *GlobalStore
	msgRepo  repository.MessageRepository
	userRepo repository.UserRepository
	notifier repository.PushNotifier
}

// NewChatWebsocketHandler create ChatWebsocketHandler. notifier may be nil
// when push dispatch is not wired.
func NewChatWebsocketHandler(
	hub *Hub,
	presence *PresenceTracker,
	global *GlobalStore,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	notifier repository.PushNotifier,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		hub:      hub,
		presence: presence,
		global:   global,
		msgRepo:  msgRepo,
		userRepo: userRepo,
		notifier: notifier,
	}
}

// HandleConnection websocket entry point. The connection is scoped to one
// (userId, peerId) pair taken from the query string.
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	userID, err1 := strconv.ParseInt(conn.Query("userId"), 10, 64)
	peerID, err2 := strconv.ParseInt(conn.Query("peerId"), 10, 64)

	defer func() {
		logger.Log.Info("websocket close", zap.Int64("userID", userID))
		conn.Close()
	}()

	if err1 != nil || err2 != nil || userID < 0 {
		logger.Log.Warn("websocket rejected, malformed ids",
			zap.String("userId", conn.Query("userId")),
			zap.String("peerId", conn.Query("peerId")))
		return
	}

	// fiber answers close frames itself, hook it out for the log only
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	logger.Log.Info("websocket handle",
		zap.Int64("userID", userID), zap.Int64("peerID", peerID))

	h.serve(ctx, conn, userID, peerID)
}

// serve run the session state machine on an already validated connection
func (h *ChatWebsocketHandler) serve(ctx context.Context, conn ChatConn, userID, peerID int64) {
	roomID := domain.ResolveRoomKey(userID, peerID)
	h.hub.Register(roomID, conn)
	defer h.closeSession(roomID, conn, userID, peerID)

	if domain.IsGlobalPeer(peerID) {
		h.joinGlobal(ctx, conn, roomID, userID)
	} else {
		h.deliverBacklog(ctx, roomID, userID, peerID)
	}

	for {
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			// transport disconnect, the expected way out of the loop
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.Int64("userID", userID))
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var pkt domain.InboundPacket
		if err := json.Unmarshal(raw, &pkt); err != nil {
			logger.Log.Errorf("inbound packet unmarshal error:", err)
			continue
		}

		switch pkt.Type {
		case domain.EventMessage:
			h.handleMessage(ctx, conn, roomID, userID, peerID, pkt.Content)
		default:
			// unknown kinds are ignored so clients can ship new frames first
		}
	}
}

// joinGlobal presence join plus snapshots for the rooms affected
func (h *ChatWebsocketHandler) joinGlobal(ctx context.Context, conn ChatConn, roomID string, userID int64) {
	name := h.displayName(ctx, userID)

	prev := h.presence.Join(roomID, userID, name)
	if prev != "" && prev != roomID {
		h.broadcastPresence(prev)
	}
	h.broadcastPresence(roomID)

	// the joining socket gets a snapshot right away instead of waiting for
	// the next membership change
	users := h.presence.Snapshot(roomID)
	h.hub.Send(roomID, conn, domain.PresenceEvent{
		Type:   domain.EventPresence,
		RoomID: roomID,
		Users:  users,
		Count:  len(users),
	})
}

// deliverBacklog stamp queued messages delivered now that the recipient has
// a live socket
func (h *ChatWebsocketHandler) deliverBacklog(ctx context.Context, roomID string, userID, peerID int64) {
	ids, err := h.msgRepo.MarkDelivered(ctx, userID, peerID)
	if err != nil {
		// storage trouble must not kill the join
		logger.Log.Error("mark delivered failed",
			zap.String("roomID", roomID), zap.Error(err))
		return
	}
	if len(ids) > 0 {
		h.hub.Broadcast(roomID, domain.ReceiptEvent{
			Type:   domain.EventDelivered,
			IDs:    ids,
			RoomID: roomID,
		})
	}
}

func (h *ChatWebsocketHandler) handleMessage(ctx context.Context, conn ChatConn, roomID string, userID, peerID int64, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		// lenient policy: blank input is dropped, not an error
		return
	}

	name := h.displayName(ctx, userID)
	now := time.Now().UTC()

	if domain.IsGlobalPeer(peerID) {
		msg := domain.GlobalMessage{
			ID:           uuid.New().String(),
			FromUserID:   userID,
			FromUserName: name,
			RoomID:       roomID,
			Content:      content,
			SentAt:       now,
		}
		h.global.Append(roomID, msg)
		h.hub.Broadcast(roomID, domain.MessageEvent{
			Type:   domain.EventMessage,
			RoomID: roomID,
			Msg:    msg,
		})
		return
	}

	msg, err := h.msgRepo.Append(ctx, userID, peerID, name, content, now)
	if err != nil {
		// fatal for this send only, the client may retry on the same socket
		logger.Log.Error("persist direct message failed",
			zap.String("roomID", roomID), zap.Error(err))
		h.hub.Send(roomID, conn, domain.ErrorEvent{
			Type:   domain.EventError,
			RoomID: roomID,
			Error:  "message was not saved",
		})
		return
	}

	h.hub.Broadcast(roomID, domain.MessageEvent{
		Type:   domain.EventMessage,
		RoomID: roomID,
		Msg:    msg,
	})

	// recipient has no socket in the room: hand off to push dispatch
	if h.notifier != nil && h.hub.Count(roomID) < 2 {
		h.notifier.Notify(peerID, name, truncatePreview(content))
	}
}

// closeSession registry and presence cleanup on the way out
func (h *ChatWebsocketHandler) closeSession(roomID string, conn ChatConn, userID, peerID int64) {
	h.hub.Deregister(roomID, conn)

	if domain.IsGlobalPeer(peerID) {
		if h.presence.Leave(roomID, userID) {
			h.broadcastPresence(roomID)
		}
	}
}

func (h *ChatWebsocketHandler) broadcastPresence(roomID string) {
	users := h.presence.Snapshot(roomID)
	h.hub.Broadcast(roomID, domain.PresenceEvent{
		Type:   domain.EventPresence,
		RoomID: roomID,
		Users:  users,
		Count:  len(users),
	})
}

// displayName resolve via the user store, degrading to a placeholder when
// the lookup fails or the profile has no name
func (h *ChatWebsocketHandler) displayName(ctx context.Context, userID int64) string {
	user, err := h.userRepo.FindByID(ctx, userID)
	if err != nil || strings.TrimSpace(user.Name) == "" {
		return fmt.Sprintf("User %d", userID)
	}
	return user.Name
}
