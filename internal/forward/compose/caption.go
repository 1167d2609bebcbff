package compose

import (
	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	"github.com/lueurxax/telegram-forwarder/internal/platform/textutil"
)

const (
	// CaptionLimit is the longest caption a media message accepts.
	CaptionLimit = 1024
	// TextLimit is the longest plain text message.
	TextLimit = 4096

	// CaptionNotice replaces the body of an overflowing caption.
	CaptionNotice = "In the original, the media and the text below are a single post"
)

// Decision is what to attach to a media message and what to send after it.
type Decision struct {
	Caption domain.Text
	// Extra is the body to send as a reply to the media message, if any.
	Extra *domain.Text
}

// Caption fits composed text into CaptionLimit.
//
// Text that fits is used as is. Otherwise the caption keeps only the generated
// header and a notice, and the untouched body becomes the follow-up.
func Caption(c Composed) Decision {
	if textutil.Len(c.Final.Text) <= CaptionLimit {
		return Decision{Caption: c.Final}
	}

	header, n := textutil.TrimRight(textutil.Slice(c.Final.Text, 0, c.HeaderLen))

	room := CaptionLimit - textutil.Len(bodySeparator) - textutil.Len(CaptionNotice)
	if n > room {
		header, n = textutil.TrimRight(textutil.Prefix(header, room))
	}

	extra := c.Base

	return Decision{
		Caption: WithNotice(domain.Text{Text: header, Entities: domain.Within(c.Final.Entities, 0, n)}, CaptionNotice, true),
		Extra:   &extra,
	}
}

// WithNotice appends a notice after a blank line, trimming trailing whitespace
// of t first. Entities are clipped to the trimmed text.
func WithNotice(t domain.Text, notice string, italic bool) domain.Text {
	text, n := textutil.TrimRight(t.Text)
	entities := clip(t.Entities, n)

	if text != "" {
		text += bodySeparator
		n += textutil.Len(bodySeparator)
	}

	if italic {
		entities = append(entities, domain.Entity{Type: domain.EntityItalic, Offset: n, Length: textutil.Len(notice)})
	}

	return domain.Text{Text: text + notice, Entities: entities}
}

// clip shortens entities running past n and drops those starting at or after it.
func clip(entities []domain.Entity, n int) []domain.Entity {
	var out []domain.Entity

	for _, e := range entities {
		if e.Offset >= n {
			continue
		}

		if e.End() > n {
			e.Length = n - e.Offset
		}

		out = append(out, e)
	}

	return out
}
