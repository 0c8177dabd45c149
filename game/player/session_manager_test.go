package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRegisterDisplacesDuplicate(t *testing.T) {
	sm := NewSessionManager(zap.NewNop())
	first := NewDetachedSession(10, 7, zap.NewNop())
	second := NewDetachedSession(10, 7, zap.NewNop())

	sm.Register(first)
	sm.Register(second)

	assert.True(t, first.IsClosed(), "older session for the same character is closed")
	assert.False(t, second.IsClosed())
	assert.Same(t, second, sm.Get(7))
	assert.Equal(t, 1, sm.Count())
}

func TestRegisterSkipsCharacterlessSession(t *testing.T) {
	sm := NewSessionManager(zap.NewNop())

	// two clients sitting at character select on the same shard
	first := NewDetachedSession(10, 0, zap.NewNop())
	second := NewDetachedSession(11, 0, zap.NewNop())

	sm.Register(first)
	sm.Register(second)

	assert.False(t, first.IsClosed(), "character-select clients must not displace each other")
	assert.False(t, second.IsClosed())
	assert.Equal(t, 0, sm.Count())
	assert.Nil(t, sm.Get(0))
	assert.False(t, sm.IsOnline(0))
}

func TestUnregisterRemovesSession(t *testing.T) {
	sm := NewSessionManager(zap.NewNop())
	s := NewDetachedSession(10, 7, zap.NewNop())
	sm.Register(s)

	sm.Unregister(7)
	assert.Nil(t, sm.Get(7))
	assert.Equal(t, 0, sm.Count())
}

func TestKickClosesAndRemoves(t *testing.T) {
	sm := NewSessionManager(zap.NewNop())
	s := NewDetachedSession(10, 7, zap.NewNop())
	sm.Register(s)

	sm.Kick(7)
	assert.True(t, s.IsKicked())
	assert.False(t, sm.IsOnline(7))
}
