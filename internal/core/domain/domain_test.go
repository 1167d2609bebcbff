package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkedID(t *testing.T) {
	tests := []struct {
		name string
		chat Chat
		want int64
	}{
		{"channel", Chat{Kind: ChatKindChannel, ID: 987654}, -100987654},
		{"group", Chat{Kind: ChatKindGroup, ID: 42}, -42},
		{"user", Chat{Kind: ChatKindUser, ID: 7}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.chat.MarkedID())
		})
	}
}

func TestChannelIDFromMarked(t *testing.T) {
	id, ok := ChannelIDFromMarked(-1001234567890)
	assert.True(t, ok)
	assert.Equal(t, int64(1234567890), id)

	_, ok = ChannelIDFromMarked(-42)
	assert.False(t, ok)

	_, ok = ChannelIDFromMarked(-100)
	assert.False(t, ok)
}

func TestWithin(t *testing.T) {
	entities := []Entity{
		{Type: EntityBold, Offset: 0, Length: 3},
		{Type: EntityItalic, Offset: 2, Length: 5},
		{Type: EntityCode, Offset: 5, Length: 2},
	}

	got := Within(entities, 4, 8)

	require.Len(t, got, 1)
	assert.Equal(t, Entity{Type: EntityCode, Offset: 1, Length: 2}, got[0])
}

func TestShiftEntitiesCopies(t *testing.T) {
	orig := []Entity{{Type: EntityBold, Offset: 1, Length: 2}}

	shifted := ShiftEntities(orig, 10)

	assert.Equal(t, 11, shifted[0].Offset)
	assert.Equal(t, 1, orig[0].Offset)
	assert.Nil(t, ShiftEntities(nil, 3))
}

func TestAlbumSortsByID(t *testing.T) {
	p := Album([]Message{{ID: 3}, {ID: 1}, {ID: 2}})

	assert.True(t, p.IsAlbum())
	assert.Equal(t, []int{1, 2, 3}, p.IDs())
	assert.False(t, Single(Message{ID: 5}).IsAlbum())
}

func TestSelectionInRange(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	sel := Selection{Mode: ModeDateRange, From: &from, To: &to}

	assert.True(t, sel.InRange(from))
	assert.True(t, sel.InRange(to))
	assert.False(t, sel.InRange(from.Add(-time.Minute)))
	assert.False(t, sel.InRange(to.Add(time.Minute)))
	assert.True(t, sel.After(to.Add(time.Minute)))
	assert.True(t, Selection{}.InRange(from), "open bounds accept everything")
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode(" LAST_N ")
	assert.True(t, ok)
	assert.Equal(t, ModeLastN, m)

	_, ok = ParseMode("newest")
	assert.False(t, ok)
}

func TestReplyContextTarget(t *testing.T) {
	assert.Equal(t, 9, ReplyContext{ReplyTo: 9, TopicRoot: 4}.Target())
	assert.Equal(t, 4, ReplyContext{TopicRoot: 4}.Target())
	assert.Equal(t, 0, ReplyContext{}.Target())
}
