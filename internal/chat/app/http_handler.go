package app

import (
	"net/http"
	"strconv"

	"social_match_service/internal/chat/domain"
	"social_match_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHTTPHandler read-side endpoints next to the websocket: history,
// thread listing and mark-read
type ChatHTTPHandler struct {
	historyUC *HistoryUseCase
	hub       *Hub
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(historyUC *HistoryUseCase, hub *Hub) *ChatHTTPHandler {
	return &ChatHTTPHandler{historyUC: historyUC, hub: hub}
}

// History GET /chat/history?user1&user2&limit
func (h *ChatHTTPHandler) History(c *fiber.Ctx) error {
	user1, err1 := strconv.ParseInt(c.Query("user1"), 10, 64)
	user2, err2 := strconv.ParseInt(c.Query("user2"), 10, 64)
	if err1 != nil || err2 != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "user1 and user2 must be integers"})
	}

	limit := c.QueryInt("limit", 200)
	if limit < 1 {
		limit = 1
	}
	if limit > 2000 {
		limit = 2000
	}

	roomID, entries, err := h.historyUC.GetHistory(c.Context(), user1, user2, limit)
	if err != nil {
		logger.Log.Error("history query failed", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "history unavailable"})
	}

	return c.JSON(fiber.Map{"ok": true, "roomId": roomID, "messages": entries})
}

// Threads GET /chat/threads?userId&limit&includeGlobal
func (h *ChatHTTPHandler) Threads(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "userId must be an integer"})
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}
	includeGlobal := c.QueryBool("includeGlobal", false)

	threads, err := h.historyUC.GetThreads(c.Context(), userID, limit, includeGlobal)
	if err != nil {
		logger.Log.Error("threads query failed", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "threads unavailable"})
	}
	if threads == nil {
		threads = []domain.ThreadSummary{}
	}

	return c.JSON(fiber.Map{"ok": true, "threads": threads})
}

// MarkRead GET /chat/mark-read?userId&peerId
func (h *ChatHTTPHandler) MarkRead(c *fiber.Ctx) error {
	userID, err1 := strconv.ParseInt(c.Query("userId"), 10, 64)
	peerID, err2 := strconv.ParseInt(c.Query("peerId"), 10, 64)
	if err1 != nil || err2 != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "userId and peerId must be integers"})
	}

	ids, err := h.historyUC.MarkRead(c.Context(), userID, peerID)
	if err != nil {
		logger.Log.Error("mark read failed", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "mark read failed"})
	}

	if len(ids) > 0 {
		roomID := domain.DMRoomKey(userID, peerID)
		h.hub.Broadcast(roomID, domain.ReceiptEvent{
			Type:   domain.EventRead,
			IDs:    ids,
			RoomID: roomID,
		})
	}
	if ids == nil {
		ids = []string{}
	}

	return c.JSON(fiber.Map{"ok": true, "updated": ids})
}
