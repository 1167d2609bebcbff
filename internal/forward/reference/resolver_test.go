package reference

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	"github.com/lueurxax/telegram-forwarder/internal/forward/anchor"
	"github.com/lueurxax/telegram-forwarder/internal/forward/idmap"
)

type fakeAnchors struct {
	ids     map[anchor.Kind]int
	created int
	err     error
}

func newFakeAnchors() *fakeAnchors {
	return &fakeAnchors{ids: make(map[anchor.Kind]int)}
}

func (f *fakeAnchors) GetOrCreate(_ context.Context, _ domain.Destination, kind anchor.Kind) (int, error) {
	if f.err != nil {
		return 0, f.err
	}

	if id, ok := f.ids[kind]; ok {
		return id, nil
	}

	f.created++
	f.ids[kind] = 900 + f.created

	return f.ids[kind], nil
}

var testDest = domain.Destination{
	Chat:    domain.Chat{Kind: domain.ChatKindChannel, ID: 987654},
	TopicID: 55,
}

func setup(windowed bool) (*Resolver, *idmap.Map, *fakeAnchors) {
	ids := idmap.New()
	ids.Put(10, 110)

	anchors := newFakeAnchors()

	return New(ids, anchors, testDest, windowed), ids, anchors
}

func TestResolveNoReply(t *testing.T) {
	r, _, anchors := setup(true)

	for _, reply := range []*domain.ReplyDescriptor{nil, {OriginalID: 0}, {OriginalID: 0, Quote: true}} {
		res, err := r.Resolve(context.Background(), reply)
		require.NoError(t, err)
		assert.Equal(t, domain.ReplyContext{TopicRoot: 55}, res.Context)
		assert.Empty(t, res.Quote.Text)
	}

	assert.Zero(t, anchors.created)
}

func TestResolveQuoteOfForwardedMessage(t *testing.T) {
	r, _, anchors := setup(true)

	res, err := r.Resolve(context.Background(), &domain.ReplyDescriptor{
		OriginalID: 10,
		Quote:      true,
		QuoteText:  "  the quoted part \n",
		QuoteEntities: []domain.Entity{
			{Type: domain.EntityBold, Offset: 6, Length: 6},
			{Type: domain.EntityItalic, Offset: 0, Length: 3},
		},
	})
	require.NoError(t, err)

	assert.Zero(t, res.Context.ReplyTo)
	assert.Equal(t, 55, res.Context.TopicRoot)
	assert.Equal(t, "the quoted part\n", res.Quote.Text)
	assert.Equal(t, []domain.Entity{
		{Type: domain.EntityBlockquote, Offset: 0, Length: 15},
		{Type: domain.EntityTextURL, Offset: 0, Length: 15, URL: "https://t.me/c/987654/110"},
		{Type: domain.EntityBold, Offset: 4, Length: 6},
	}, res.Quote.Entities)
	assert.Zero(t, anchors.created)
}

func TestResolveQuoteOutOfRange(t *testing.T) {
	for _, reply := range []*domain.ReplyDescriptor{
		{OriginalID: 5, Quote: true, QuoteText: "not forwarded"},
		{OriginalID: 10, Quote: true, QuoteText: "   "},
	} {
		r, _, anchors := setup(false)

		res, err := r.Resolve(context.Background(), reply)
		require.NoError(t, err)

		assert.Zero(t, res.Context.ReplyTo)
		assert.Equal(t, anchor.QuoteText+"\n", res.Quote.Text)
		require.Len(t, res.Quote.Entities, 2)
		assert.Equal(t, "https://t.me/c/987654/901", res.Quote.Entities[1].URL)
		assert.Equal(t, 1, anchors.created)
	}
}

func TestResolveReply(t *testing.T) {
	tests := []struct {
		name        string
		windowed    bool
		original    int
		wantReplyTo int
		wantCreated int
	}{
		{"forwarded original", true, 10, 110, 0},
		{"all mode drops unknown reply", false, 5, 0, 0},
		{"windowed mode points at anchor", true, 5, 901, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, anchors := setup(tt.windowed)

			res, err := r.Resolve(context.Background(), &domain.ReplyDescriptor{OriginalID: tt.original})
			require.NoError(t, err)

			assert.Equal(t, tt.wantReplyTo, res.Context.ReplyTo)
			assert.Equal(t, 55, res.Context.TopicRoot)
			assert.Empty(t, res.Quote.Text)
			assert.Equal(t, tt.wantCreated, anchors.created)
		})
	}
}

func TestResolveReplyAnchorReused(t *testing.T) {
	r, _, anchors := setup(true)

	first, err := r.Resolve(context.Background(), &domain.ReplyDescriptor{OriginalID: 3})
	require.NoError(t, err)

	second, err := r.Resolve(context.Background(), &domain.ReplyDescriptor{OriginalID: 4})
	require.NoError(t, err)

	assert.Equal(t, first.Context.ReplyTo, second.Context.ReplyTo)
	assert.Equal(t, 1, anchors.created)
}

func TestQuoteNeverReplies(t *testing.T) {
	for _, windowed := range []bool{true, false} {
		for _, original := range []int{0, 5, 10} {
			for _, excerpt := range []string{"", "text"} {
				r, _, _ := setup(windowed)

				res, err := r.Resolve(context.Background(), &domain.ReplyDescriptor{
					OriginalID: original,
					Quote:      true,
					QuoteText:  excerpt,
				})
				require.NoError(t, err)
				assert.Zero(t, res.Context.ReplyTo)
			}
		}
	}
}

func TestResolveAnchorError(t *testing.T) {
	r, _, anchors := setup(true)
	anchors.err = errors.New("write forbidden")

	_, err := r.Resolve(context.Background(), &domain.ReplyDescriptor{OriginalID: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, anchors.err)
}
