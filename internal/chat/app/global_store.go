package app

import (
	"strconv"
	"sync"

	"social_match_service/internal/chat/domain"
)

// DefaultGlobalRoomCap messages kept in memory per global room
const DefaultGlobalRoomCap = 2000

// GlobalStore in-memory message log per global room. Nothing is persisted,
// a restart empties every room.
type GlobalStore struct {
	mu    sync.Mutex
	cap   int
	rooms map[string][]domain.GlobalMessage
}

// NewGlobalStore create a GlobalStore keeping at most cap messages per room
func NewGlobalStore(cap int) *GlobalStore {
	if cap <= 0 {
		cap = DefaultGlobalRoomCap
	}
	return &GlobalStore{
		cap:   cap,
		rooms: make(map[string][]domain.GlobalMessage),
	}
}

// Append add a message, evicting the oldest entries past the cap
func (s *GlobalStore) Append(roomID string, msg domain.GlobalMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append(s.rooms[roomID], msg)
	if len(msgs) > s.cap {
		msgs = msgs[len(msgs)-s.cap:]
	}
	s.rooms[roomID] = msgs
}

// Recent most-recent-first slice of at most limit messages
func (s *GlobalStore) Recent(roomID string, limit int) []domain.GlobalMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.rooms[roomID]
	if limit < 0 {
		limit = 0
	}
	if limit > len(msgs) {
		limit = len(msgs)
	}
	out := make([]domain.GlobalMessage, 0, limit)
	for i := len(msgs) - 1; i >= len(msgs)-limit; i-- {
		out = append(out, msgs[i])
	}
	return out
}

// Summaries thread rows for every non-empty global room. Unread is always 0,
// read state is not tracked for global rooms.
func (s *GlobalStore) Summaries() []domain.ThreadSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.ThreadSummary, 0, len(s.rooms))
	for roomID, msgs := range s.rooms {
		if len(msgs) == 0 {
			continue
		}
		last := msgs[len(msgs)-1]
		peerID, _ := strconv.ParseInt(roomID, 10, 64)
		items = append(items, domain.ThreadSummary{
			RoomID:       roomID,
			PeerID:       peerID,
			LastAt:       last.SentAt,
			LastFromUser: last.FromUserID,
			LastPreview:  last.Content,
			Unread:       0,
			Count:        len(msgs),
			IsGlobal:     true,
		})
	}
	return items
}
