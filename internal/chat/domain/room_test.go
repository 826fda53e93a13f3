package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDMRoomKeySymmetric(t *testing.T) {
	assert.Equal(t, ResolveRoomKey(1, 2), ResolveRoomKey(2, 1))
	assert.Equal(t, "dm:1:2", ResolveRoomKey(2, 1))
	assert.Equal(t, "dm:7:315", ResolveRoomKey(315, 7))
}

func TestGlobalRoomKeyIgnoresViewer(t *testing.T) {
	assert.Equal(t, ResolveRoomKey(1, -7), ResolveRoomKey(99, -7))
	assert.Equal(t, "-7", ResolveRoomKey(1, -7))
}

func TestIsGlobalPeer(t *testing.T) {
	assert.True(t, IsGlobalPeer(-1000))
	assert.False(t, IsGlobalPeer(0))
	assert.False(t, IsGlobalPeer(42))
}
