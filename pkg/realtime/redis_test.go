package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisHub_ChannelNaming(t *testing.T) {
	t.Parallel()

	hub := NewRedisHub(nil)
	assert.Equal(t, "notify:user:u1", hub.channel("u1"))

	custom := NewRedisHub(nil, WithChannelPrefix("rt:"))
	assert.Equal(t, "rt:u1", custom.channel("u1"))
}
