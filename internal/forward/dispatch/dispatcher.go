// Package dispatch sends one post to the destination according to its media kind.
//
// Each post goes through the same steps: resolve the reply reference, compose
// the text, classify the payload (unwrapping unlocked paid content), send it
// and record the id mapping. A post ends as SENT, SKIPPED_NO_MEDIA or
// SKIPPED_ERROR.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
	"github.com/lueurxax/telegram-forwarder/internal/forward/compose"
	"github.com/lueurxax/telegram-forwarder/internal/forward/media"
	"github.com/lueurxax/telegram-forwarder/internal/forward/reference"
	"github.com/lueurxax/telegram-forwarder/internal/platform/observability"
	"github.com/lueurxax/telegram-forwarder/internal/platform/progress"
)

// Notices appended to posts whose content cannot be reproduced.
const (
	PaidNotice        = "⚠ This content is available only for Stars."
	AlbumPaidNotice   = "⚠ Part of the content is available only for Stars."
	UnsupportedNotice = "⚠ Unsupported content type"
)

// KindAlbum labels album posts in reports.
const KindAlbum = "ALBUM"

// Outcome is the terminal state of one post.
type Outcome string

const (
	OutcomeSent           Outcome = "SENT"
	OutcomeSkippedNoMedia Outcome = "SKIPPED_NO_MEDIA"
	OutcomeSkippedError   Outcome = "SKIPPED_ERROR"
)

// Report describes how a post was handled.
type Report struct {
	Kind    string
	Outcome Outcome
	// DestID is the destination message the post is mapped to; zero when skipped.
	DestID int
}

// Resolver decides where a message attaches at the destination.
type Resolver interface {
	Resolve(ctx context.Context, reply *domain.ReplyDescriptor) (reference.Result, error)
}

// Composer builds the annotated text of a message.
type Composer interface {
	Compose(ctx context.Context, msg domain.Message, quote domain.Text) compose.Composed
}

// IDs records source to destination id mappings.
type IDs interface {
	Put(src, dst int) bool
	PutAll(srcs []int, dst int)
}

// Config holds the collaborators of a Dispatcher.
type Config struct {
	Sender     ports.Sender
	Downloader ports.Downloader
	Files      *media.Files
	Resolver   Resolver
	Composer   Composer
	IDs        IDs
	Dest       domain.Destination
	// Progress shows console feedback around transfers; nil disables it.
	Progress progress.Indicator
}

// Dispatcher sends posts one at a time. It is not safe for concurrent use.
type Dispatcher struct {
	sender     ports.Sender
	downloader ports.Downloader
	files      *media.Files
	resolver   Resolver
	composer   Composer
	ids        IDs
	dest       domain.Destination
	progress   progress.Indicator
	logger     *zerolog.Logger

	albums int
}

// New creates a dispatcher.
func New(cfg Config, logger *zerolog.Logger) *Dispatcher {
	ind := cfg.Progress
	if ind == nil {
		ind = progress.Nop{}
	}

	return &Dispatcher{
		sender:     cfg.Sender,
		downloader: cfg.Downloader,
		files:      cfg.Files,
		resolver:   cfg.Resolver,
		composer:   cfg.Composer,
		ids:        cfg.IDs,
		dest:       cfg.Dest,
		progress:   ind,
		logger:     logger,
	}
}

// Dispatch sends one post. A non-nil error always comes with OutcomeSkippedError
// unless it is fatal for the run (rate limit, cancellation), in which case the
// report may still describe what was sent before the failure.
func (d *Dispatcher) Dispatch(ctx context.Context, post domain.Post) (Report, error) {
	start := time.Now()

	var (
		report Report
		err    error
	)

	if post.IsAlbum() {
		report, err = d.album(ctx, post)
	} else {
		report, err = d.single(ctx, post.First())
	}

	observability.SendDuration.WithLabelValues(report.Kind).Observe(time.Since(start).Seconds())

	return report, err
}

// job carries one message through the single-message pipeline.
type job struct {
	msg      domain.Message
	kind     media.Kind
	payload  domain.Media
	composed compose.Composed
	reply    domain.ReplyContext
}

func (d *Dispatcher) single(ctx context.Context, msg domain.Message) (Report, error) {
	kind := media.Classify(msg.Media)
	report := Report{Kind: string(kind), Outcome: OutcomeSkippedError}

	res, err := d.resolver.Resolve(ctx, msg.Reply)
	if err != nil {
		return report, fmt.Errorf("resolve reply of %d: %w", msg.ID, err)
	}

	j := job{
		msg:      msg,
		kind:     kind,
		payload:  msg.Media,
		composed: d.composer.Compose(ctx, msg, res.Quote),
		reply:    res.Context,
	}

	if kind == media.KindPaid {
		inner, ok := media.UnwrapPaid(msg.Media)
		if !ok {
			d.logger.Warn().Int("msg_id", msg.ID).Msg("paid content is locked, sending stub")

			id, err := d.sendText(ctx, compose.WithNotice(j.composed.Final, PaidNotice, false), j.reply, false)

			return d.finish(report, msg, id, err)
		}

		j.kind, j.payload = media.Classify(inner), inner
		report.Kind = string(j.kind)

		d.logger.Debug().Int("msg_id", msg.ID).Str("kind", report.Kind).Msg("paid content unlocked")
	}

	var (
		id  int
		out ports.OutgoingMedia
	)

	switch j.kind {
	case media.KindText:
		id, err = d.sendText(ctx, j.composed.Final, j.reply, false)
	case media.KindWeb:
		id, err = d.sendText(ctx, j.composed.Final, j.reply, true)
	case media.KindPhoto, media.KindVideo, media.KindVoice, media.KindDocument:
		id, err = d.sendFile(ctx, j)
	case media.KindSticker:
		out, err = stickerRef(j.payload)
		if err == nil {
			id, err = d.sendCaptioned(ctx, j, out)
		}
	case media.KindPoll:
		out, err = pollMedia(j.payload)
		if err == nil {
			id, err = d.sendCaptioned(ctx, j, out)
		}
	default:
		d.logger.Warn().Int("msg_id", msg.ID).Str("type", typeName(j.payload)).Msg("unsupported content type")

		id, err = d.sendText(ctx, compose.WithNotice(j.composed.Final, UnsupportedNotice, false), j.reply, false)
	}

	return d.finish(report, msg, id, err)
}

func (d *Dispatcher) finish(report Report, msg domain.Message, id int, err error) (Report, error) {
	if err != nil {
		return report, err
	}

	d.ids.Put(msg.ID, id)

	report.Outcome = OutcomeSent
	report.DestID = id

	return report, nil
}

// sendText sends text, splitting it into a chain of replies when it exceeds
// the message limit. It returns the id of the last chunk.
func (d *Dispatcher) sendText(ctx context.Context, text domain.Text, reply domain.ReplyContext, preview bool) (int, error) {
	var last int

	for i, chunk := range compose.Split(text, compose.TextLimit) {
		id, err := d.sender.SendText(ctx, d.dest, chunk, reply, preview)
		if err != nil {
			return 0, fmt.Errorf("send text chunk %d: %w", i+1, err)
		}

		last = id
		reply = domain.ReplyContext{ReplyTo: id, TopicRoot: d.dest.TopicID}
	}

	return last, nil
}

// sendFile downloads the payload, sends it with the fitted caption and removes
// the local copy.
func (d *Dispatcher) sendFile(ctx context.Context, j job) (int, error) {
	stop := d.progress.Spin(fmt.Sprintf("%s %d │ downloading", j.kind, j.msg.ID))
	file, err := d.files.Fetch(ctx, d.downloader, j.msg.ID, j.payload)
	stop()

	if err != nil {
		return 0, err
	}
	defer file.Release()

	observability.MediaBytesDownloaded.Add(float64(file.Size))

	d.logger.Debug().Int("msg_id", j.msg.ID).Str("file", file.Name).Int64("size", file.Size).Msg("media downloaded")

	out, err := fileMedia(j.kind, j.payload, file)
	if err != nil {
		return 0, err
	}

	return d.sendCaptioned(ctx, j, out)
}

// sendCaptioned sends a media item and, when the caption overflowed, the
// original body as a reply below it.
func (d *Dispatcher) sendCaptioned(ctx context.Context, j job, out ports.OutgoingMedia) (int, error) {
	decision := compose.Caption(j.composed)

	stop := d.progress.Spin(fmt.Sprintf("%s %d │ uploading", j.kind, j.msg.ID))
	id, err := d.sender.SendMedia(ctx, d.dest, out, decision.Caption, j.reply)
	stop()

	if err != nil {
		return 0, fmt.Errorf("%w: %s %d: %w", apperrors.ErrUploadFailed, j.kind, j.msg.ID, err)
	}

	return id, d.sendExtra(ctx, decision.Extra, id)
}

// sendExtra sends the overflowing body as a reply to the media message.
// Only fatal errors are returned; the media message itself already went out.
func (d *Dispatcher) sendExtra(ctx context.Context, extra *domain.Text, parent int) error {
	if extra == nil || parent == 0 {
		return nil
	}

	if _, err := d.sendText(ctx, *extra, domain.ReplyContext{ReplyTo: parent, TopicRoot: d.dest.TopicID}, false); err != nil {
		if Fatal(err) {
			return err
		}

		d.logger.Warn().Err(err).Int("parent_id", parent).Msg("failed to send caption overflow text")
	}

	return nil
}

// Fatal reports whether err must stop the whole run.
func Fatal(err error) bool {
	return apperrors.Is(err, apperrors.ErrRateLimited) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func typeName(m domain.Media) string {
	if u, ok := m.(*domain.Unsupported); ok {
		return u.TypeName
	}

	return fmt.Sprintf("%T", m)
}
