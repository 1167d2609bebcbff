package dispatch

import (
	"fmt"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
	"github.com/lueurxax/telegram-forwarder/internal/forward/media"
)

// fileMedia describes a downloaded payload for upload, carrying over the
// attributes the destination needs to render it like the source.
func fileMedia(kind media.Kind, payload domain.Media, file *media.File) (ports.OutgoingMedia, error) {
	out := ports.OutgoingMedia{
		Path:     file.Path,
		FileName: file.Name,
		Spoiler:  media.Spoiler(payload),
	}

	if kind == media.KindPhoto {
		if _, ok := payload.(*domain.Photo); !ok {
			return out, unexpected(kind, payload)
		}

		out.Kind = ports.OutgoingPhoto

		return out, nil
	}

	doc, ok := payload.(*domain.Document)
	if !ok {
		return out, unexpected(kind, payload)
	}

	out.MimeType = doc.MimeType

	switch kind {
	case media.KindVideo:
		out.Kind = ports.OutgoingVideo
		out.Video = doc.Video
		out.Audio = doc.Audio
	case media.KindVoice:
		out.Kind = ports.OutgoingVoice
		out.Audio = doc.Audio
	default:
		out.Kind = ports.OutgoingDocument
		out.Audio = doc.Audio
	}

	return out, nil
}

// stickerRef re-sends a sticker by reference so the destination keeps its set.
func stickerRef(payload domain.Media) (ports.OutgoingMedia, error) {
	doc, ok := payload.(*domain.Document)
	if !ok {
		return ports.OutgoingMedia{}, unexpected(media.KindSticker, payload)
	}

	ref := doc.File

	return ports.OutgoingMedia{Kind: ports.OutgoingStickerRef, Ref: &ref, MimeType: doc.MimeType}, nil
}

func pollMedia(payload domain.Media) (ports.OutgoingMedia, error) {
	poll, ok := payload.(*domain.Poll)
	if !ok {
		return ports.OutgoingMedia{}, unexpected(media.KindPoll, payload)
	}

	return ports.OutgoingMedia{Kind: ports.OutgoingPoll, Poll: poll}, nil
}

func unexpected(kind media.Kind, payload domain.Media) error {
	return fmt.Errorf("%w: %s carries %T", apperrors.ErrUnexpectedMedia, kind, payload)
}
