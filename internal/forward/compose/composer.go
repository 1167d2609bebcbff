// Package compose builds the annotated text of forwarded messages and fits it
// into the destination's caption and message limits.
//
// All lengths and offsets are UTF-16 code units.
package compose

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
	"github.com/lueurxax/telegram-forwarder/internal/platform/textutil"
)

const (
	timestampLayout = "2006-01-02 15:04"
	headerSeparator = " · "
	bodySeparator   = "\n\n"
	forwardPrefix   = "Forwarded from "
	// FallbackSource names a forward origin that cannot be looked up.
	FallbackSource = "Source"
)

// Composed is the final text of one message plus what is needed to split it.
type Composed struct {
	Final domain.Text
	// Base is the verbatim original body.
	Base domain.Text
	// HeaderLen is the length of the generated part before Base.
	HeaderLen int
}

// Composer prepends the forward banner, quote block and sender line to message bodies.
type Composer struct {
	names     ports.NameResolver
	broadcast bool
	logger    *zerolog.Logger
}

// NewComposer creates a composer. broadcast drops sender names, as in channels.
func NewComposer(names ports.NameResolver, broadcast bool, logger *zerolog.Logger) *Composer {
	return &Composer{names: names, broadcast: broadcast, logger: logger}
}

// Compose builds forward banner + quote + "sender · time" + blank line + body.
// Every segment's entities are shifted by the length of what precedes it.
func (c *Composer) Compose(ctx context.Context, msg domain.Message, quote domain.Text) Composed {
	var b builder

	if msg.Forward != nil {
		b.add(domain.Text{Text: forwardPrefix + c.forwardName(ctx, msg.Forward) + "\n"})
	}

	b.add(quote)

	line := msg.Date.UTC().Format(timestampLayout)
	if !c.broadcast && msg.SenderName != "" {
		line = msg.SenderName + headerSeparator + line
	}

	b.add(domain.Text{
		Text:     line,
		Entities: []domain.Entity{{Type: domain.EntityItalic, Offset: 0, Length: textutil.Len(line)}},
	})
	b.add(domain.Text{Text: bodySeparator})

	base := domain.Text{Text: msg.Text, Entities: msg.Entities}
	headerLen := b.len
	b.add(base)

	return Composed{
		Final:     domain.Text{Text: b.text, Entities: b.entities},
		Base:      base,
		HeaderLen: headerLen,
	}
}

func (c *Composer) forwardName(ctx context.Context, fwd *domain.ForwardHeader) string {
	if fwd.FromName != "" {
		return fwd.FromName
	}

	if fwd.From == nil {
		return FallbackSource
	}

	name, err := c.names.PeerName(ctx, *fwd.From)
	if err != nil || name == "" {
		c.logger.Debug().Err(err).Int64("peer_id", fwd.From.ID).Msg("forward origin lookup failed")

		return FallbackSource
	}

	return name
}

// builder concatenates text segments while tracking the UTF-16 length.
type builder struct {
	text     string
	entities []domain.Entity
	len      int
}

func (b *builder) add(t domain.Text) {
	if t.Text == "" {
		return
	}

	b.entities = append(b.entities, domain.ShiftEntities(t.Entities, b.len)...)
	b.text += t.Text
	b.len += textutil.Len(t.Text)
}
