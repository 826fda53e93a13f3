package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"social_match_service/internal/chat/domain"
	"social_match_service/internal/chat/repository"
	errprocess "social_match_service/pkg/err"
)

const previewLimit = 120

// HistoryUseCase read side of the chat subsystem: history with day
// separators, thread listings and the mark-read operation
type HistoryUseCase struct {
	msgRepo repository.MessageRepository
	global  *GlobalStore
}

// NewHistoryUseCase init the read side use case
func NewHistoryUseCase(msgRepo repository.MessageRepository, global *GlobalStore) *HistoryUseCase {
	return &HistoryUseCase{msgRepo: msgRepo, global: global}
}

type directHistoryEntry struct {
	Type domain.EventType `json:"type"`
	domain.DirectMessage
}

type globalHistoryEntry struct {
	Type domain.EventType `json:"type"`
	domain.GlobalMessage
}

// GetHistory messages between user1 and user2 (or the global room user2
// addresses), most recent first, with a date marker injected at every UTC
// calendar date transition
func (uc *HistoryUseCase) GetHistory(ctx context.Context, user1, user2 int64, limit int) (string, []interface{}, error) {
	if domain.IsGlobalPeer(user2) {
		roomID := strconv.FormatInt(user2, 10)
		msgs := uc.global.Recent(roomID, limit)
		entries := withDateMarkers(msgs,
			func(m domain.GlobalMessage) time.Time { return m.SentAt },
			func(m domain.GlobalMessage) interface{} {
				return globalHistoryEntry{Type: domain.EventMessage, GlobalMessage: m}
			})
		return roomID, entries, nil
	}

	roomID := domain.DMRoomKey(user1, user2)
	msgs, err := uc.msgRepo.History(ctx, user1, user2, limit)
	if err != nil {
		return "", nil, errprocess.Set(fmt.Sprintf("query history[%s] err : %v", roomID, err))
	}
	entries := withDateMarkers(msgs,
		func(m domain.DirectMessage) time.Time { return m.SentAt },
		func(m domain.DirectMessage) interface{} {
			return directHistoryEntry{Type: domain.EventMessage, DirectMessage: m}
		})
	return roomID, entries, nil
}

// withDateMarkers msgs must be sorted most recent first. Walks oldest to
// newest inserting one marker per date change, then restores DESC order.
func withDateMarkers[T any](msgs []T, sentAt func(T) time.Time, wrap func(T) interface{}) []interface{} {
	result := make([]interface{}, 0, len(msgs))
	lastDate := ""

	for i := len(msgs) - 1; i >= 0; i-- {
		date := sentAt(msgs[i]).UTC().Format("2006-01-02")
		if date != lastDate {
			result = append(result, domain.DateMarker{Type: "date", Date: date})
			lastDate = date
		}
		result = append(result, wrap(msgs[i]))
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// GetThreads conversation summaries for userID sorted by last activity,
// optionally merged with the global room listing
func (uc *HistoryUseCase) GetThreads(ctx context.Context, userID int64, limit int, includeGlobal bool) ([]domain.ThreadSummary, error) {
	items, err := uc.msgRepo.Threads(ctx, userID)
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("query threads[%d] err : %v", userID, err))
	}

	if includeGlobal {
		items = append(items, uc.global.Summaries()...)
	}

	for i := range items {
		items[i].LastPreview = truncatePreview(items[i].LastPreview)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].LastAt.After(items[j].LastAt)
	})

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// MarkRead stamp unread messages from peerID to userID. Global rooms track
// no read state, the result is always empty there.
func (uc *HistoryUseCase) MarkRead(ctx context.Context, userID, peerID int64) ([]string, error) {
	if domain.IsGlobalPeer(peerID) {
		return nil, nil
	}
	return uc.msgRepo.MarkRead(ctx, userID, peerID)
}

func truncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit])
}
