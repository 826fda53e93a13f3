package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"social_match_service/internal/chat/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrEmptyContent append rejected a blank message
var ErrEmptyContent = errors.New("message content is empty")

// MessageRepository durable direct-message store
type MessageRepository interface {
	// History messages between the pair, most recent first, at most limit rows
	History(ctx context.Context, userA, userB int64, limit int) ([]domain.DirectMessage, error)
	// Append persist a new message and return it with its assigned id
	Append(ctx context.Context, fromUserID, toUserID int64, fromUserName, content string, sentAt time.Time) (*domain.DirectMessage, error)
	// MarkDelivered stamp every undelivered message from peerID to userID,
	// returns the affected ids. Second call with nothing pending returns nil.
	MarkDelivered(ctx context.Context, userID, peerID int64) ([]string, error)
	// MarkRead stamp every unread message from peerID to userID, returns the
	// affected ids. A missing delivered stamp is set in the same update so a
	// read message never reports read-before-delivered.
	MarkRead(ctx context.Context, userID, peerID int64) ([]string, error)
	// Threads per-peer conversation summaries for every peer that has
	// messaged userID. LastPreview is untruncated here.
	Threads(ctx context.Context, userID int64) ([]domain.ThreadSummary, error)
}

type chatMessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository create a MessageRepository on postgreSQL
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &chatMessageRepository{db: db}
}

// Migrate create the chat_messages table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.DirectMessage{})
}

func (r *chatMessageRepository) History(ctx context.Context, userA, userB int64, limit int) ([]domain.DirectMessage, error) {
	var msgs []domain.DirectMessage
	err := r.db.WithContext(ctx).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
			userA, userB, userB, userA).
		Order("sent_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *chatMessageRepository) Append(ctx context.Context, fromUserID, toUserID int64, fromUserName, content string, sentAt time.Time) (*domain.DirectMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	msg := &domain.DirectMessage{
		ID:           uuid.New().String(),
		FromUserID:   fromUserID,
		FromUserName: fromUserName,
		ToUserID:     toUserID,
		Content:      content,
		SentAt:       sentAt,
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *chatMessageRepository) MarkDelivered(ctx context.Context, userID, peerID int64) ([]string, error) {
	return r.stamp(ctx, userID, peerID, "delivered_at", func(tx *gorm.DB, now time.Time) *gorm.DB {
		return tx.Update("delivered_at", now)
	})
}

func (r *chatMessageRepository) MarkRead(ctx context.Context, userID, peerID int64) ([]string, error) {
	return r.stamp(ctx, userID, peerID, "read_at", func(tx *gorm.DB, now time.Time) *gorm.DB {
		return tx.Updates(map[string]interface{}{
			"read_at":      now,
			"delivered_at": gorm.Expr("COALESCE(delivered_at, ?)", now),
		})
	})
}

// stamp one transaction: lock the pending rows, apply the update, return ids
func (r *chatMessageRepository) stamp(ctx context.Context, userID, peerID int64, column string, update func(tx *gorm.DB, now time.Time) *gorm.DB) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&domain.DirectMessage{}).
			Where("to_user_id = ? AND from_user_id = ? AND "+column+" IS NULL", userID, peerID).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return update(
			tx.Model(&domain.DirectMessage{}).Where("id IN ?", ids),
			time.Now().UTC(),
		).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

type threadAgg struct {
	FromUserID int64
	Total      int
	Unread     int
	LastAt     time.Time
}

func (r *chatMessageRepository) Threads(ctx context.Context, userID int64) ([]domain.ThreadSummary, error) {
	var aggs []threadAgg
	err := r.db.WithContext(ctx).Model(&domain.DirectMessage{}).
		Select("from_user_id, COUNT(*) AS total, COUNT(*) FILTER (WHERE read_at IS NULL) AS unread, MAX(sent_at) AS last_at").
		Where("to_user_id = ?", userID).
		Group("from_user_id").
		Scan(&aggs).Error
	if err != nil {
		return nil, err
	}

	var lasts []domain.DirectMessage
	err = r.db.WithContext(ctx).
		Raw("SELECT DISTINCT ON (from_user_id) * FROM chat_messages WHERE to_user_id = ? ORDER BY from_user_id, sent_at DESC", userID).
		Scan(&lasts).Error
	if err != nil {
		return nil, err
	}

	lastByPeer := make(map[int64]domain.DirectMessage, len(lasts))
	for _, m := range lasts {
		lastByPeer[m.FromUserID] = m
	}

	summaries := make([]domain.ThreadSummary, 0, len(aggs))
	for _, a := range aggs {
		s := domain.ThreadSummary{
			RoomID:       domain.DMRoomKey(userID, a.FromUserID),
			PeerID:       a.FromUserID,
			LastAt:       a.LastAt,
			LastFromUser: a.FromUserID,
			Unread:       a.Unread,
			Count:        a.Total,
		}
		if last, ok := lastByPeer[a.FromUserID]; ok {
			s.LastPreview = last.Content
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
