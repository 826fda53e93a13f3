package app

import (
	"fmt"
	"testing"
	"time"

	"social_match_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
)

func globalMsg(i int) domain.GlobalMessage {
	return domain.GlobalMessage{
		ID:         fmt.Sprintf("id-%d", i),
		FromUserID: int64(i),
		RoomID:     "-1000",
		Content:    fmt.Sprintf("msg %d", i),
		SentAt:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Second),
	}
}

func TestGlobalStoreCapEvictsOldest(t *testing.T) {
	s := NewGlobalStore(5)
	for i := 0; i < 8; i++ {
		s.Append("-1000", globalMsg(i))
	}

	recent := s.Recent("-1000", 100)
	assert.Len(t, recent, 5)
	// the 5 newest survive, newest first
	assert.Equal(t, "id-7", recent[0].ID)
	assert.Equal(t, "id-3", recent[4].ID)
}

func TestGlobalStoreRecentLimit(t *testing.T) {
	s := NewGlobalStore(100)
	for i := 0; i < 4; i++ {
		s.Append("-1000", globalMsg(i))
	}

	recent := s.Recent("-1000", 2)
	assert.Len(t, recent, 2)
	assert.Equal(t, "id-3", recent[0].ID)
	assert.Equal(t, "id-2", recent[1].ID)

	assert.Empty(t, s.Recent("-2000", 10))
	assert.Empty(t, s.Recent("-1000", -5))
	assert.Empty(t, s.Recent("-1000", 0))
}

func TestGlobalStoreRoomsAreIndependent(t *testing.T) {
	s := NewGlobalStore(10)
	s.Append("-1000", globalMsg(1))
	s.Append("-2000", globalMsg(2))

	assert.Len(t, s.Recent("-1000", 10), 1)
	assert.Len(t, s.Recent("-2000", 10), 1)
}

func TestGlobalStoreSummaries(t *testing.T) {
	s := NewGlobalStore(10)
	s.Append("-1000", globalMsg(1))
	s.Append("-1000", globalMsg(2))

	items := s.Summaries()
	assert.Len(t, items, 1)
	assert.Equal(t, "-1000", items[0].RoomID)
	assert.Equal(t, int64(-1000), items[0].PeerID)
	assert.Equal(t, 2, items[0].Count)
	assert.Equal(t, 0, items[0].Unread)
	assert.True(t, items[0].IsGlobal)
	assert.Equal(t, "msg 2", items[0].LastPreview)
}
