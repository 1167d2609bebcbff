package compose

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports/mocks"
	"github.com/lueurxax/telegram-forwarder/internal/platform/textutil"
)

var testDate = time.Date(2025, 3, 4, 15, 6, 0, 0, time.UTC)

func newComposer(broadcast bool) (*Composer, *mocks.Transport) {
	logger := zerolog.Nop()
	tr := mocks.NewTransport()

	return NewComposer(tr, broadcast, &logger), tr
}

func TestComposePlain(t *testing.T) {
	c, _ := newComposer(false)

	got := c.Compose(context.Background(), domain.Message{
		ID:         1,
		Date:       testDate,
		Text:       "hello world",
		Entities:   []domain.Entity{{Type: domain.EntityBold, Offset: 6, Length: 5}},
		SenderName: "Ann Lee",
	}, domain.Text{})

	header := "Ann Lee · 2025-03-04 15:06"
	assert.Equal(t, header+"\n\nhello world", got.Final.Text)
	assert.Equal(t, []domain.Entity{
		{Type: domain.EntityItalic, Offset: 0, Length: textutil.Len(header)},
		{Type: domain.EntityBold, Offset: textutil.Len(header) + 2 + 6, Length: 5},
	}, got.Final.Entities)
	assert.Equal(t, "hello world", got.Base.Text)
	assert.Equal(t, textutil.Len(got.Final.Text)-textutil.Len(got.Base.Text), got.HeaderLen)
}

func TestComposeBroadcastOmitsSender(t *testing.T) {
	c, _ := newComposer(true)

	got := c.Compose(context.Background(), domain.Message{Date: testDate, SenderName: "Ann"}, domain.Text{})

	assert.Equal(t, "2025-03-04 15:06\n\n", got.Final.Text)
	assert.Equal(t, got.HeaderLen, textutil.Len(got.Final.Text))
}

func TestComposeForwardAndQuote(t *testing.T) {
	c, tr := newComposer(true)
	origin := domain.PeerRef{Kind: domain.ChatKindChannel, ID: 5}
	tr.SetName(origin, "News 😀")

	quote := domain.Text{
		Text:     "quoted\n",
		Entities: []domain.Entity{{Type: domain.EntityBlockquote, Offset: 0, Length: 6}},
	}

	got := c.Compose(context.Background(), domain.Message{
		Date:     testDate,
		Text:     "body",
		Entities: []domain.Entity{{Type: domain.EntityCode, Offset: 0, Length: 4}},
		Forward:  &domain.ForwardHeader{From: &origin},
	}, quote)

	banner := "Forwarded from News 😀\n"
	require.True(t, strings.HasPrefix(got.Final.Text, banner+"quoted\n2025-03-04 15:06\n\nbody"))

	bannerLen := textutil.Len(banner)
	assert.Equal(t, 23, bannerLen, "emoji counts as two units")
	assert.Equal(t, []domain.Entity{
		{Type: domain.EntityBlockquote, Offset: bannerLen, Length: 6},
		{Type: domain.EntityItalic, Offset: bannerLen + 7, Length: 16},
		{Type: domain.EntityCode, Offset: bannerLen + 7 + 16 + 2, Length: 4},
	}, got.Final.Entities)
}

func TestComposeForwardFallbacks(t *testing.T) {
	c, _ := newComposer(true)

	hidden := c.Compose(context.Background(), domain.Message{
		Date:    testDate,
		Forward: &domain.ForwardHeader{FromName: "Hidden User"},
	}, domain.Text{})
	assert.True(t, strings.HasPrefix(hidden.Final.Text, "Forwarded from Hidden User\n"))

	unknown := c.Compose(context.Background(), domain.Message{
		Date:    testDate,
		Forward: &domain.ForwardHeader{From: &domain.PeerRef{ID: 99}},
	}, domain.Text{})
	assert.True(t, strings.HasPrefix(unknown.Final.Text, "Forwarded from Source\n"))
}

func TestCaptionFits(t *testing.T) {
	c, _ := newComposer(true)
	composed := c.Compose(context.Background(), domain.Message{Date: testDate, Text: "short"}, domain.Text{})

	d := Caption(composed)

	assert.Equal(t, composed.Final, d.Caption)
	assert.Nil(t, d.Extra)
}

func TestCaptionOverflow(t *testing.T) {
	c, _ := newComposer(false)
	body := strings.Repeat("я", 1100)
	bodyEntities := []domain.Entity{{Type: domain.EntityBold, Offset: 0, Length: 10}}

	composed := c.Compose(context.Background(), domain.Message{
		Date:       testDate,
		Text:       body,
		Entities:   bodyEntities,
		SenderName: "Bob",
	}, domain.Text{})

	d := Caption(composed)

	header := "Bob · 2025-03-04 15:06"
	require.NotNil(t, d.Extra)
	assert.Equal(t, header+"\n\n"+CaptionNotice, d.Caption.Text)
	assert.Equal(t, []domain.Entity{
		{Type: domain.EntityItalic, Offset: 0, Length: textutil.Len(header)},
		{Type: domain.EntityItalic, Offset: textutil.Len(header) + 2, Length: textutil.Len(CaptionNotice)},
	}, d.Caption.Entities)
	assert.Equal(t, body, d.Extra.Text)
	assert.Equal(t, bodyEntities, d.Extra.Entities)
	assert.LessOrEqual(t, textutil.Len(d.Caption.Text), CaptionLimit)
}

func TestCaptionBoundary(t *testing.T) {
	c, _ := newComposer(true)
	header := c.Compose(context.Background(), domain.Message{Date: testDate}, domain.Text{})

	exact := c.Compose(context.Background(), domain.Message{
		Date: testDate,
		Text: strings.Repeat("a", CaptionLimit-header.HeaderLen),
	}, domain.Text{})
	assert.Nil(t, Caption(exact).Extra)

	over := c.Compose(context.Background(), domain.Message{
		Date: testDate,
		Text: strings.Repeat("a", CaptionLimit-header.HeaderLen+1),
	}, domain.Text{})
	assert.NotNil(t, Caption(over).Extra)
}

func TestCaptionOverflowLongHeader(t *testing.T) {
	c, _ := newComposer(true)
	quote := domain.Text{Text: strings.Repeat("q", 2000) + "\n"}

	composed := c.Compose(context.Background(), domain.Message{Date: testDate, Text: "body"}, quote)

	d := Caption(composed)

	require.NotNil(t, d.Extra)
	assert.LessOrEqual(t, textutil.Len(d.Caption.Text), CaptionLimit)
	assert.True(t, strings.HasSuffix(d.Caption.Text, CaptionNotice))
}

func TestWithNotice(t *testing.T) {
	got := WithNotice(domain.Text{
		Text:     "text  \n",
		Entities: []domain.Entity{{Type: domain.EntityBold, Offset: 2, Length: 5}},
	}, "⚠ notice", false)

	assert.Equal(t, "text\n\n⚠ notice", got.Text)
	assert.Equal(t, []domain.Entity{{Type: domain.EntityBold, Offset: 2, Length: 2}}, got.Entities)

	empty := WithNotice(domain.Text{}, "n", true)
	assert.Equal(t, "n", empty.Text)
	assert.Equal(t, []domain.Entity{{Type: domain.EntityItalic, Offset: 0, Length: 1}}, empty.Entities)
}

func TestSplit(t *testing.T) {
	short := domain.Text{Text: "abc"}
	assert.Equal(t, []domain.Text{short}, Split(short, 10))

	text := domain.Text{
		Text: "abcd😀efgh",
		Entities: []domain.Entity{
			{Type: domain.EntityBold, Offset: 0, Length: 2},
			{Type: domain.EntityItalic, Offset: 3, Length: 3},
			{Type: domain.EntityCode, Offset: 6, Length: 2},
		},
	}

	chunks := Split(text, 5)

	require.Len(t, chunks, 3)
	assert.Equal(t, "abcd", chunks[0].Text, "emoji does not fit and is not split")
	assert.Equal(t, "😀efg", chunks[1].Text)
	assert.Equal(t, "h", chunks[2].Text)

	assert.Equal(t, []domain.Entity{{Type: domain.EntityBold, Offset: 0, Length: 2}}, chunks[0].Entities)
	assert.Equal(t, []domain.Entity{{Type: domain.EntityCode, Offset: 2, Length: 2}}, chunks[1].Entities)
	assert.Empty(t, chunks[2].Entities)

	var joined string
	for _, c := range chunks {
		joined += c.Text
		assert.LessOrEqual(t, textutil.Len(c.Text), 5)
	}

	assert.Equal(t, text.Text, joined)
}
