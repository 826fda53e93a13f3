package domain

import (
	"fmt"
	"strconv"
)

// IsGlobalPeer negative peer ids address shared global rooms
func IsGlobalPeer(peerID int64) bool {
	return peerID < 0
}

// DMRoomKey canonical key for a direct pair, both sides compute the same key
func DMRoomKey(u1, u2 int64) string {
	a, b := u1, u2
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d", a, b)
}

// ResolveRoomKey derive the room key for a (viewer, peer) pair.
// Global rooms key on the negative peer id alone, so every viewer joining
// the same id lands in the same room.
func ResolveRoomKey(viewerID, peerID int64) string {
	if IsGlobalPeer(peerID) {
		return strconv.FormatInt(peerID, 10)
	}
	return DMRoomKey(viewerID, peerID)
}
