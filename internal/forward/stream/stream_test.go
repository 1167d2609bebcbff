package stream

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports/mocks"
)

var (
	source = domain.Chat{Kind: domain.ChatKindChannel, ID: 42}
	base   = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
)

func msg(id int, group int64) domain.Message {
	return domain.Message{ID: id, GroupedID: group, Date: base.Add(time.Duration(id) * time.Minute)}
}

// collect drains the stream into a compact description: a single message
// becomes its id, an album becomes a slice of ids.
func collect(t *testing.T, s *PostStream) []any {
	t.Helper()

	var out []any

	for s.Next(context.Background()) {
		p := s.Value()
		if p.IsAlbum() {
			out = append(out, p.IDs())
		} else {
			out = append(out, p.First().ID)
		}
	}

	require.NoError(t, s.Err())

	return out
}

func newStream(tr ports.History, sel domain.Selection) *PostStream {
	logger := zerolog.Nop()

	return New(tr, source, sel, 0, &logger)
}

func TestAllGroupsAdjacentMessages(t *testing.T) {
	tr := mocks.NewTransport()
	tr.AddMessages(msg(101, 0), msg(102, 7), msg(103, 7), msg(104, 0))

	got := collect(t, newStream(tr, domain.Selection{Mode: domain.ModeAll}))

	assert.Equal(t, []any{101, []int{102, 103}, 104}, got)
}

func TestAllDropsServiceMessages(t *testing.T) {
	service := msg(2, 0)
	service.Service = true

	tr := mocks.NewTransport()
	tr.AddMessages(msg(1, 0), service, msg(3, 5), msg(4, 5))

	got := collect(t, newStream(tr, domain.Selection{Mode: domain.ModeAll}))

	assert.Equal(t, []any{1, []int{3, 4}}, got)
}

func TestAllSeparatesConsecutiveAlbums(t *testing.T) {
	tr := mocks.NewTransport()
	tr.AddMessages(msg(1, 5), msg(2, 5), msg(3, 6), msg(4, 6))

	got := collect(t, newStream(tr, domain.Selection{Mode: domain.ModeAll}))

	assert.Equal(t, []any{[]int{1, 2}, []int{3, 4}}, got)
}

func TestAllTopicRestriction(t *testing.T) {
	tr := mocks.NewTransport()
	tr.AddMessages(msg(1, 0), msg(2, 0), msg(3, 0), msg(4, 0))
	tr.SetTopic(9, 2, 4)

	got := collect(t, newStream(tr, domain.Selection{Mode: domain.ModeAll, TopicID: 9}))

	assert.Equal(t, []any{2, 4}, got)
}

func TestAllHistoryError(t *testing.T) {
	boom := errors.New("boom")
	tr := mocks.NewTransport()
	tr.MessagesFn = func(ctx context.Context, chat domain.Chat, q ports.HistoryQuery) ports.MessageIterator {
		it := mocks.NewSliceIterator([]domain.Message{msg(1, 0), msg(2, 0)})
		it.FailAfter = 1
		it.Fail = boom

		return it
	}

	s := newStream(tr, domain.Selection{Mode: domain.ModeAll})

	var ids []int
	for s.Next(context.Background()) {
		ids = append(ids, s.Value().First().ID)
	}

	assert.Equal(t, []int{1}, ids)
	require.ErrorIs(t, s.Err(), boom)
	assert.False(t, s.Next(context.Background()))
}

func TestDateRange(t *testing.T) {
	from := base.Add(3 * time.Minute)
	to := base.Add(6 * time.Minute)

	tests := []struct {
		name string
		msgs []domain.Message
		want []any
	}{
		{
			name: "singles inside bounds",
			msgs: []domain.Message{msg(1, 0), msg(3, 0), msg(5, 0), msg(6, 0), msg(8, 0)},
			want: []any{3, 5, 6},
		},
		{
			name: "album with one member inside the lower bound",
			msgs: []domain.Message{msg(2, 7), msg(3, 7), msg(4, 0)},
			want: []any{[]int{2, 3}, 4},
		},
		{
			name: "album crossing the upper bound is completed",
			msgs: []domain.Message{msg(5, 0), msg(6, 7), msg(7, 7), msg(8, 0)},
			want: []any{5, []int{6, 7}},
		},
		{
			name: "album fully outside is dropped",
			msgs: []domain.Message{msg(1, 7), msg(2, 7), msg(4, 0)},
			want: []any{4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := mocks.NewTransport()
			tr.AddMessages(tt.msgs...)

			got := collect(t, newStream(tr, domain.Selection{Mode: domain.ModeDateRange, From: &from, To: &to}))

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateRangeStopsReadingAfterUpperBound(t *testing.T) {
	to := base.Add(2 * time.Minute)

	var history []domain.Message
	for id := 1; id <= 10; id++ {
		history = append(history, msg(id, 0))
	}

	it := mocks.NewSliceIterator(history)
	tr := mocks.NewTransport()
	tr.MessagesFn = func(ctx context.Context, chat domain.Chat, q ports.HistoryQuery) ports.MessageIterator {
		assert.Equal(t, ports.OldestFirst, q.Order)

		return it
	}

	got := collect(t, newStream(tr, domain.Selection{Mode: domain.ModeDateRange, To: &to}))

	assert.Equal(t, []any{1, 2}, got)
	assert.True(t, it.Next(context.Background()), "the history was not drained")
	assert.Equal(t, 4, it.Value().ID)
}

func TestLastN(t *testing.T) {
	history := []domain.Message{msg(46, 0), msg(47, 0), msg(48, 9), msg(49, 9), msg(50, 0)}

	tests := []struct {
		name   string
		n      int
		policy domain.AlbumPolicy
		want   []any
	}{
		{name: "album counts as one post", n: 2, policy: domain.AlbumWhole, want: []any{[]int{48, 49}, 50}},
		{name: "three posts", n: 3, policy: domain.AlbumWhole, want: []any{47, []int{48, 49}, 50}},
		{name: "more than available", n: 10, policy: domain.AlbumWhole, want: []any{46, 47, []int{48, 49}, 50}},
		{name: "one post", n: 1, policy: domain.AlbumWhole, want: []any{50}},
		{name: "strict cuts the album", n: 2, policy: domain.AlbumStrict, want: []any{[]int{49}, 50}},
		{name: "strict counts messages", n: 4, policy: domain.AlbumStrict, want: []any{47, []int{48, 49}, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := mocks.NewTransport()
			tr.AddMessages(history...)

			got := collect(t, newStream(tr, domain.Selection{Mode: domain.ModeLastN, LastN: tt.n, AlbumPolicy: tt.policy}))

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLastNWholeAlbumAtHistoryStart(t *testing.T) {
	tr := mocks.NewTransport()
	tr.AddMessages(msg(1, 3), msg(2, 3), msg(3, 0))

	got := collect(t, newStream(tr, domain.Selection{Mode: domain.ModeLastN, LastN: 5}))

	assert.Equal(t, []any{[]int{1, 2}, 3}, got)
}

func TestLastNZero(t *testing.T) {
	tr := mocks.NewTransport()
	tr.AddMessages(msg(1, 0))

	assert.Empty(t, collect(t, newStream(tr, domain.Selection{Mode: domain.ModeLastN})))
}

func TestPostID(t *testing.T) {
	service := msg(30, 0)
	service.Service = true

	history := []domain.Message{
		msg(10, 0),
		msg(11, 4), msg(12, 4), msg(13, 4),
		msg(14, 0),
		service,
		msg(40, 4),
	}

	tests := []struct {
		name string
		id   int
		want []any
	}{
		{name: "single", id: 10, want: []any{10}},
		{name: "album member", id: 12, want: []any{[]int{11, 12, 13}}},
		{name: "album member outside radius is not joined", id: 13, want: []any{[]int{11, 12, 13}}},
		{name: "missing", id: 99, want: nil},
		{name: "service", id: 30, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := mocks.NewTransport()
			tr.AddMessages(history...)

			got := collect(t, newStream(tr, domain.Selection{Mode: domain.ModePostID, PostID: tt.id}))

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostIDScanBounds(t *testing.T) {
	tr := mocks.NewTransport()
	tr.AddMessages(msg(100, 8))

	var query ports.HistoryQuery
	tr.MessagesFn = func(ctx context.Context, chat domain.Chat, q ports.HistoryQuery) ports.MessageIterator {
		query = q

		return mocks.NewSliceIterator([]domain.Message{msg(95, 8), msg(100, 8), msg(101, 0)})
	}

	logger := zerolog.Nop()
	s := New(tr, source, domain.Selection{Mode: domain.ModePostID, PostID: 100}, 5, &logger)

	got := collect(t, s)

	assert.Equal(t, []any{[]int{95, 100}}, got)
	assert.Equal(t, 94, query.MinID)
	assert.Equal(t, 106, query.MaxID)
}

func TestPostIDTransportError(t *testing.T) {
	tr := mocks.NewTransport()
	tr.GetMessageFn = func(ctx context.Context, chat domain.Chat, id int) (domain.Message, error) {
		return domain.Message{}, fmt.Errorf("rpc: %w", context.DeadlineExceeded)
	}

	s := newStream(tr, domain.Selection{Mode: domain.ModePostID, PostID: 1})

	assert.False(t, s.Next(context.Background()))
	require.ErrorIs(t, s.Err(), context.DeadlineExceeded)
}
