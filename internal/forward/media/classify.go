// Package media classifies message payloads and stages downloaded files.
package media

import "github.com/lueurxax/telegram-forwarder/internal/core/domain"

// Kind is the canonical media tag of a message.
type Kind string

const (
	KindText     Kind = "TEXT"
	KindPhoto    Kind = "PHOTO"
	KindVideo    Kind = "VIDEO"
	KindDocument Kind = "DOCUMENT"
	KindWeb      Kind = "WEB"
	KindSticker  Kind = "STICKER"
	KindVoice    Kind = "VOICE"
	KindPoll     Kind = "POLL"
	KindPaid     Kind = "PAID"
	KindOther    Kind = "OTHER"
)

// Kinds lists every kind Classify can return.
var Kinds = []Kind{
	KindText, KindPhoto, KindVideo, KindDocument, KindWeb,
	KindSticker, KindVoice, KindPoll, KindPaid, KindOther,
}

// Classify maps a payload to exactly one kind.
//
// Documents are checked sticker, voice, video, then generic, so video stickers
// stay stickers and round video notes with audio stay videos.
func Classify(m domain.Media) Kind {
	switch v := m.(type) {
	case nil:
		return KindText
	case *domain.WebPage:
		return KindWeb
	case *domain.Photo:
		return KindPhoto
	case *domain.Document:
		return classifyDocument(v)
	case *domain.Poll:
		return KindPoll
	case *domain.PaidMedia:
		return KindPaid
	default:
		return KindOther
	}
}

func classifyDocument(d *domain.Document) Kind {
	switch {
	case d.Sticker:
		return KindSticker
	case d.Audio != nil && d.Audio.Voice:
		return KindVoice
	case d.Video != nil:
		return KindVideo
	default:
		return KindDocument
	}
}

// UnwrapPaid returns the underlying media of unlocked paid content.
// It never modifies its argument; ok is false for locked or preview-only content.
func UnwrapPaid(m domain.Media) (domain.Media, bool) {
	paid, isPaid := m.(*domain.PaidMedia)
	if !isPaid || !paid.Unlocked() {
		return nil, false
	}

	return paid.Extended[0].Media, true
}

// Effective classifies m and, for unlocked paid content, re-classifies the
// unwrapped payload. Locked paid content stays KindPaid.
func Effective(m domain.Media) (Kind, domain.Media) {
	kind := Classify(m)
	if kind != KindPaid {
		return kind, m
	}

	inner, ok := UnwrapPaid(m)
	if !ok {
		return KindPaid, m
	}

	return Classify(inner), inner
}

// Spoiler reports whether the payload is hidden behind a spoiler.
func Spoiler(m domain.Media) bool {
	switch v := m.(type) {
	case *domain.Photo:
		return v.Spoiler
	case *domain.Document:
		return v.Spoiler
	default:
		return false
	}
}
