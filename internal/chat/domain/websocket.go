package domain

// EventType websocket frame discriminant
type EventType string

const (
	// EventMessage chat message frame, the only inbound kind acted on
	EventMessage EventType = "message"
	// EventDelivered delivery receipt frame
	EventDelivered EventType = "delivered"
	// EventRead read receipt frame
	EventRead EventType = "read"
	// EventPresence global room roster frame
	EventPresence EventType = "presence"
	// EventError per-operation failure frame, sent to the origin socket only
	EventError EventType = "error"
)

// InboundPacket client frame. Unknown types are ignored on purpose so new
// client frames stay backward compatible.
type InboundPacket struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// MessageEvent outbound chat message frame
type MessageEvent struct {
	Type   EventType   `json:"type"`
	RoomID string      `json:"roomId"`
	Msg    interface{} `json:"msg"`
}

// ReceiptEvent outbound delivered/read receipt frame
type ReceiptEvent struct {
	Type   EventType `json:"type"`
	IDs    []string  `json:"ids"`
	RoomID string    `json:"roomId"`
}

// PresenceEvent outbound roster snapshot frame
type PresenceEvent struct {
	Type   EventType      `json:"type"`
	RoomID string         `json:"roomId"`
	Users  []PresenceUser `json:"users"`
	Count  int            `json:"count"`
}

// ErrorEvent outbound failure frame
type ErrorEvent struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"roomId"`
	Error  string    `json:"error"`
}
