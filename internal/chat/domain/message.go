package domain

import "time"

// DirectMessage a persisted direct message row
//
// SentAt is the authoritative ordering key. DeliveredAt/ReadAt start null and
// are only ever stamped forward, never cleared.
type DirectMessage struct {
	ID           string     `gorm:"primaryKey;column:id" json:"id"`
	FromUserID   int64      `gorm:"column:from_user_id;index:idx_chat_messages_pair" json:"fromUserId"`
	FromUserName string     `gorm:"column:from_user_name" json:"fromUserName"`
	ToUserID     int64      `gorm:"column:to_user_id;index:idx_chat_messages_pair" json:"toUserId"`
	Content      string     `gorm:"column:content" json:"content"`
	SentAt       time.Time  `gorm:"column:sent_at;index" json:"sentAt"`
	DeliveredAt  *time.Time `gorm:"column:delivered_at" json:"deliveredAt"`
	ReadAt       *time.Time `gorm:"column:read_at" json:"readAt"`
}

// TableName gorm table name
func (DirectMessage) TableName() string {
	return "chat_messages"
}

// GlobalMessage a broadcast-only message, lives in memory only
type GlobalMessage struct {
	ID           string    `json:"id"`
	FromUserID   int64     `json:"fromUserId"`
	FromUserName string    `json:"fromUserName"`
	RoomID       string    `json:"roomId"`
	Content      string    `json:"content"`
	SentAt       time.Time `json:"sentAt"`
}

// ChatUser display identity resolved from the user store
type ChatUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PresenceUser one roster entry of a global room
type PresenceUser struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

// ThreadSummary one conversation row of the threads listing
type ThreadSummary struct {
	RoomID       string    `json:"roomId"`
	PeerID       int64     `json:"peerId"`
	LastAt       time.Time `json:"lastAt"`
	LastFromUser int64     `json:"lastFromUserId"`
	LastPreview  string    `json:"lastPreview"`
	Unread       int       `json:"unread"`
	Count        int       `json:"count"`
	IsGlobal     bool      `json:"isGlobal,omitempty"`
}

// DateMarker synthetic day separator injected into history responses,
// never persisted
type DateMarker struct {
	Type string `json:"type"`
	Date string `json:"date"`
}
