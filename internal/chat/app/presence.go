package app

import (
	"sort"
	"strings"
	"sync"

	"social_match_service/internal/chat/domain"
)

// PresenceTracker who occupies which global room. A user is in at most one
// global room at a time; joining a new room moves them atomically.
type PresenceTracker struct {
	mu        sync.Mutex
	roomUsers map[string]map[int64]string // roomID -> userID -> display name
	userRoom  map[int64]string            // userID -> current roomID
}

// NewPresenceTracker create an empty PresenceTracker
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		roomUsers: make(map[string]map[int64]string),
		userRoom:  make(map[int64]string),
	}
}

// Join put the user into roomID, removing them from any other room first.
// Returns the previous room id ("" if none) so the caller can refresh its
// presence snapshot too.
func (p *PresenceTracker) Join(roomID string, userID int64, displayName string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.userRoom[userID]
	if prev != "" && prev != roomID {
		if users, ok := p.roomUsers[prev]; ok {
			delete(users, userID)
			if len(users) == 0 {
				delete(p.roomUsers, prev)
			}
		}
	}

	if p.roomUsers[roomID] == nil {
		p.roomUsers[roomID] = make(map[int64]string)
	}
	p.roomUsers[roomID][userID] = displayName
	p.userRoom[userID] = roomID

	return prev
}

// Leave remove the user from roomID only while their current-room pointer
// still equals it. A late leave from an old connection after a fast
// reconnect elsewhere must not evict the new presence.
func (p *PresenceTracker) Leave(roomID string, userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.userRoom[userID] != roomID {
		return false
	}
	delete(p.userRoom, userID)
	if users, ok := p.roomUsers[roomID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(p.roomUsers, roomID)
		}
	}
	return true
}

// Snapshot the room roster sorted by (case-insensitive name, userId) so
// clients render a stable order
func (p *PresenceTracker) Snapshot(roomID string) []domain.PresenceUser {
	p.mu.Lock()
	users := make([]domain.PresenceUser, 0, len(p.roomUsers[roomID]))
	for id, name := range p.roomUsers[roomID] {
		users = append(users, domain.PresenceUser{UserID: id, Name: name})
	}
	p.mu.Unlock()

	sort.Slice(users, func(i, j int) bool {
		ni := strings.ToLower(strings.TrimSpace(users[i].Name))
		nj := strings.ToLower(strings.TrimSpace(users[j].Name))
		if ni != nj {
			return ni < nj
		}
		return users[i].UserID < users[j].UserID
	})
	return users
}
