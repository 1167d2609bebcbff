// Package reference decides where a forwarded message attaches at the destination:
// a structural reply, a quote block, an anchor placeholder, or nothing.
package reference

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	"github.com/lueurxax/telegram-forwarder/internal/forward/anchor"
	"github.com/lueurxax/telegram-forwarder/internal/platform/textutil"
)

// PublicBaseURL prefixes links to messages of private chats.
const PublicBaseURL = "https://t.me/c"

// IDs looks up already forwarded messages.
type IDs interface {
	Get(src int) (int, bool)
}

// Anchors returns placeholder messages for targets that were never forwarded.
type Anchors interface {
	GetOrCreate(ctx context.Context, dest domain.Destination, kind anchor.Kind) (int, error)
}

// Result is the attachment decision for one message.
type Result struct {
	Context domain.ReplyContext
	// Quote is the quote block to prepend to the text; empty when none.
	Quote domain.Text
}

// Resolver maps source reply descriptors to destination attachments.
type Resolver struct {
	ids      IDs
	anchors  Anchors
	dest     domain.Destination
	windowed bool
}

// New creates a resolver. windowed is true for every mode that may skip
// messages, where replies to unforwarded originals point at an anchor.
func New(ids IDs, anchors Anchors, dest domain.Destination, windowed bool) *Resolver {
	return &Resolver{ids: ids, anchors: anchors, dest: dest, windowed: windowed}
}

// Resolve returns the reply context and quote prefix for a reply descriptor.
// A quoting message never gets a structural reply.
func (r *Resolver) Resolve(ctx context.Context, reply *domain.ReplyDescriptor) (Result, error) {
	res := Result{Context: domain.ReplyContext{TopicRoot: r.dest.TopicID}}

	if reply == nil || reply.OriginalID == 0 {
		return res, nil
	}

	if reply.Quote {
		quote, err := r.quote(ctx, reply)
		if err != nil {
			return Result{}, err
		}

		res.Quote = quote

		return res, nil
	}

	if mapped, ok := r.ids.Get(reply.OriginalID); ok {
		res.Context.ReplyTo = mapped

		return res, nil
	}

	if !r.windowed {
		return res, nil
	}

	anchorID, err := r.anchors.GetOrCreate(ctx, r.dest, anchor.KindReply)
	if err != nil {
		return Result{}, fmt.Errorf("resolving reply to %d: %w", reply.OriginalID, err)
	}

	res.Context.ReplyTo = anchorID

	return res, nil
}

func (r *Resolver) quote(ctx context.Context, reply *domain.ReplyDescriptor) (domain.Text, error) {
	excerpt, entities := trimExcerpt(reply.QuoteText, reply.QuoteEntities)

	if mapped, ok := r.ids.Get(reply.OriginalID); ok && excerpt != "" {
		return r.block(excerpt, entities, mapped), nil
	}

	anchorID, err := r.anchors.GetOrCreate(ctx, r.dest, anchor.KindQuote)
	if err != nil {
		return domain.Text{}, fmt.Errorf("resolving quote of %d: %w", reply.OriginalID, err)
	}

	return r.block(anchor.QuoteText, nil, anchorID), nil
}

// block renders excerpt as a linked blockquote followed by a newline.
func (r *Resolver) block(excerpt string, inner []domain.Entity, target int) domain.Text {
	n := textutil.Len(excerpt)
	url := fmt.Sprintf("%s/%d/%d", PublicBaseURL, r.dest.Chat.PublicID(), target)

	entities := []domain.Entity{
		{Type: domain.EntityBlockquote, Offset: 0, Length: n},
		{Type: domain.EntityTextURL, Offset: 0, Length: n, URL: url},
	}
	entities = append(entities, inner...)

	return domain.Text{Text: excerpt + "\n", Entities: entities}
}

// trimExcerpt trims surrounding whitespace and rebases the excerpt's own entities.
func trimExcerpt(text string, entities []domain.Entity) (string, []domain.Entity) {
	trimmedLeft := strings.TrimLeftFunc(text, unicode.IsSpace)
	lead := textutil.Len(text) - textutil.Len(trimmedLeft)
	excerpt, n := textutil.TrimRight(trimmedLeft)

	if excerpt == "" {
		return "", nil
	}

	return excerpt, domain.Within(entities, lead, lead+n)
}
