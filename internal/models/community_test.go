package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockedOriginRoundtrip(t *testing.T) {
	c := &Community{CommunityID: 1}

	assert.Empty(t, c.BlockedOriginIDs())
	assert.False(t, c.HasBlockedOrigin(2))

	c.SetBlockedOriginIDs([]int64{2, 3})
	assert.Equal(t, []int64{2, 3}, c.BlockedOriginIDs())
	assert.True(t, c.HasBlockedOrigin(2))
	assert.False(t, c.HasBlockedOrigin(4))

	c.SetBlockedOriginIDs(nil)
	assert.Empty(t, c.BlockedOriginIDs())
	assert.Empty(t, c.BlockedOrigins)
}

func TestBlockedOriginsMalformedColumn(t *testing.T) {
	c := &Community{CommunityID: 1, BlockedOrigins: "not json"}
	assert.Empty(t, c.BlockedOriginIDs())
	assert.False(t, c.HasBlockedOrigin(2))
}

func TestCommunityManager(t *testing.T) {
	m := NewCommunityManager()
	assert.Nil(t, m.Get(1))

	m.Add(&Community{CommunityID: 1, Name: "first"})
	m.Add(&Community{CommunityID: 2, Name: "second"})

	assert.Equal(t, "first", m.Get(1).Name)
	assert.Len(t, m.All(), 2)

	m.Remove(1)
	assert.Nil(t, m.Get(1))
	assert.Len(t, m.All(), 1)
}
