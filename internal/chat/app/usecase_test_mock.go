package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"social_match_service/internal/chat/domain"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/mock"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// History mock history query
func (m *MockMessageRepository) History(ctx context.Context, userA, userB int64, limit int) ([]domain.DirectMessage, error) {
	args := m.Called(ctx, userA, userB, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.DirectMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// Append mock message insert
func (m *MockMessageRepository) Append(ctx context.Context, fromUserID, toUserID int64, fromUserName, content string, sentAt time.Time) (*domain.DirectMessage, error) {
	args := m.Called(ctx, fromUserID, toUserID, fromUserName, content, sentAt)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.DirectMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkDelivered mock delivered stamping
func (m *MockMessageRepository) MarkDelivered(ctx context.Context, userID, peerID int64) ([]string, error) {
	args := m.Called(ctx, userID, peerID)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead mock read stamping
func (m *MockMessageRepository) MarkRead(ctx context.Context, userID, peerID int64) ([]string, error) {
	args := m.Called(ctx, userID, peerID)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// Threads mock thread summaries
func (m *MockMessageRepository) Threads(ctx context.Context, userID int64) ([]domain.ThreadSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ThreadSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserRepository Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

// FindByID mock user lookup
func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*domain.ChatUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ChatUser), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPushNotifier Mock PushNotifier
type MockPushNotifier struct {
	mock.Mock
}

// Notify mock push trigger
func (m *MockPushNotifier) Notify(userID int64, title, body string) {
	m.Called(userID, title, body)
}

// fakeConn scripted socket for handler tests. Reads pop queued frames and
// then fail like a disconnect; writes are captured.
type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	written    [][]byte
	failWrites bool
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return 0, nil, errors.New("use of closed network connection")
	}
	frame := c.frames[0]
	c.frames = c.frames[1:]
	return websocket.TextMessage, frame, nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("broken pipe")
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) writtenFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}
