package dispatch

import (
	"context"
	"fmt"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
	"github.com/lueurxax/telegram-forwarder/internal/forward/compose"
	"github.com/lueurxax/telegram-forwarder/internal/forward/media"
	"github.com/lueurxax/telegram-forwarder/internal/platform/observability"
	"github.com/lueurxax/telegram-forwarder/internal/platform/textutil"
)

// Reasons an album member is left out.
const (
	skipLockedPaid  = "locked_paid"
	skipUnsupported = "unsupported_in_album"
	skipDownload    = "download_failed"
)

type albumItem struct {
	msg     domain.Message
	kind    media.Kind
	payload domain.Media
}

// albumPlan splits an album into the photo/video group and the document group.
type albumPlan struct {
	visual     []albumItem
	documents  []albumItem
	lockedPaid bool
}

// album sends an album as up to two grouped messages. The caption comes from
// the first member with text and is attached by editing the first sent item;
// every member maps to that item.
func (d *Dispatcher) album(ctx context.Context, post domain.Post) (Report, error) {
	d.albums++
	no := d.albums
	report := Report{Kind: KindAlbum, Outcome: OutcomeSkippedError}
	logger := d.logger.With().Int("album", no).Ints("msg_ids", post.IDs()).Logger()

	captionMsg := captionSource(post)

	res, err := d.resolver.Resolve(ctx, captionMsg.Reply)
	if err != nil {
		return report, fmt.Errorf("resolve reply of album %d: %w", no, err)
	}

	decision := compose.Caption(d.composer.Compose(ctx, captionMsg, res.Quote))
	plan := d.plan(post, no)

	if plan.lockedPaid {
		withNotice := compose.WithNotice(decision.Caption, AlbumPaidNotice, false)
		if textutil.Len(withNotice.Text) <= compose.CaptionLimit {
			decision.Caption = withNotice
		}
	}

	logger.Info().Int("items", len(post.Messages)).Msg("processing album")

	var (
		captionID int
		lastErr   error
	)

	for _, group := range [][]albumItem{plan.visual, plan.documents} {
		sent, err := d.sendGroup(ctx, group, res.Context, no)
		if err != nil {
			if Fatal(err) {
				return report, err
			}

			logger.Warn().Err(err).Msg("album group not sent")

			lastErr = err

			continue
		}

		if len(sent) == 0 || captionID != 0 {
			continue
		}

		captionID = sent[0]

		if err := d.sender.EditCaption(ctx, d.dest, captionID, decision.Caption); err != nil {
			if Fatal(err) {
				return report, err
			}

			logger.Warn().Err(err).Int("dest_id", captionID).Msg("failed to attach album caption")
		}
	}

	if captionID == 0 {
		if lastErr != nil {
			return report, lastErr
		}

		report.Outcome = OutcomeSkippedNoMedia

		logger.Warn().Msg("album has nothing to upload")

		return report, nil
	}

	d.ids.PutAll(post.IDs(), captionID)

	if err := d.sendExtra(ctx, decision.Extra, captionID); err != nil {
		return report, err
	}

	logger.Info().Int("dest_id", captionID).Msg("album sent, caption attached")

	report.Outcome = OutcomeSent
	report.DestID = captionID

	return report, nil
}

// captionSource is the first member with text, or the last member.
func captionSource(post domain.Post) domain.Message {
	for _, m := range post.Messages {
		if m.Text != "" {
			return m
		}
	}

	return post.Messages[len(post.Messages)-1]
}

func (d *Dispatcher) plan(post domain.Post, no int) albumPlan {
	var p albumPlan

	for _, m := range post.Messages {
		kind, payload := media.Classify(m.Media), m.Media

		if kind == media.KindPaid {
			inner, ok := media.UnwrapPaid(payload)
			if !ok {
				p.lockedPaid = true
				observability.MediaItemsSkipped.WithLabelValues(skipLockedPaid).Inc()
				d.logger.Warn().Int("album", no).Int("msg_id", m.ID).Msg("locked paid item skipped")

				continue
			}

			kind, payload = media.Classify(inner), inner
		}

		item := albumItem{msg: m, kind: kind, payload: payload}

		switch kind {
		case media.KindPhoto, media.KindVideo:
			p.visual = append(p.visual, item)
		case media.KindDocument, media.KindSticker, media.KindVoice:
			p.documents = append(p.documents, item)
		default:
			observability.MediaItemsSkipped.WithLabelValues(skipUnsupported).Inc()
			d.logger.Warn().Int("album", no).Int("msg_id", m.ID).Str("kind", string(kind)).Msg("album item skipped")
		}
	}

	return p
}

// sendGroup stages every item of one group and sends them as a single album.
// Items that fail to download are skipped; an empty group sends nothing.
func (d *Dispatcher) sendGroup(ctx context.Context, group []albumItem, reply domain.ReplyContext, no int) ([]int, error) {
	if len(group) == 0 {
		return nil, nil
	}

	var (
		items []ports.OutgoingMedia
		files []*media.File
	)
	defer func() { media.ReleaseAll(files) }()

	for i, item := range group {
		out, file, err := d.stageItem(ctx, item, fmt.Sprintf("ALBUM %d │ item %d/%d %s", no, i+1, len(group), item.kind))
		if err != nil {
			if Fatal(err) {
				return nil, err
			}

			observability.MediaItemsSkipped.WithLabelValues(skipDownload).Inc()
			d.logger.Warn().Err(err).Int("album", no).Int("msg_id", item.msg.ID).Msg("album item skipped")

			continue
		}

		if file != nil {
			files = append(files, file)
		}

		items = append(items, out)
	}

	if len(items) == 0 {
		return nil, nil
	}

	stop := d.progress.Spin(fmt.Sprintf("ALBUM %d │ uploading", no))
	sent, err := d.sender.SendAlbum(ctx, d.dest, items, reply)
	stop()

	if err != nil {
		return nil, fmt.Errorf("%w: album %d: %w", apperrors.ErrUploadFailed, no, err)
	}

	if len(sent) == 0 {
		return nil, fmt.Errorf("album %d: %w", no, apperrors.ErrEmptyResponse)
	}

	return sent, nil
}

// stageItem prepares one album member. Stickers go by reference, the rest
// are downloaded. Documents in the document group are always sent as files.
func (d *Dispatcher) stageItem(ctx context.Context, item albumItem, label string) (ports.OutgoingMedia, *media.File, error) {
	if item.kind == media.KindSticker {
		out, err := stickerRef(item.payload)

		return out, nil, err
	}

	stop := d.progress.Spin(label)
	file, err := d.files.Fetch(ctx, d.downloader, item.msg.ID, item.payload)
	stop()

	if err != nil {
		return ports.OutgoingMedia{}, nil, err
	}

	observability.MediaBytesDownloaded.Add(float64(file.Size))

	kind := item.kind
	if kind == media.KindVoice {
		kind = media.KindDocument
	}

	out, err := fileMedia(kind, item.payload, file)
	if err != nil {
		file.Release()

		return ports.OutgoingMedia{}, nil, err
	}

	return out, file, nil
}
