// Package forward runs a forwarding session: it pulls posts from the source
// stream in order and hands each one to the dispatcher.
package forward

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/forward/dispatch"
	"github.com/lueurxax/telegram-forwarder/internal/platform/observability"
	"github.com/lueurxax/telegram-forwarder/internal/platform/progress"
)

// DefaultSendDelay is the minimum pause between two posts.
const DefaultSendDelay = 200 * time.Millisecond

const preparingLabel = "Preparing data"

// Posts is a forward-only cursor over source posts.
type Posts interface {
	Next(ctx context.Context) bool
	Value() domain.Post
	Err() error
}

// Dispatcher sends one post.
type Dispatcher interface {
	Dispatch(ctx context.Context, post domain.Post) (dispatch.Report, error)
}

// Summary counts posts per terminal state.
type Summary struct {
	Sent           int
	SkippedNoMedia int
	SkippedError   int
}

// Total returns the number of processed posts.
func (s Summary) Total() int {
	return s.Sent + s.SkippedNoMedia + s.SkippedError
}

func (s *Summary) add(o dispatch.Outcome) {
	switch o {
	case dispatch.OutcomeSent:
		s.Sent++
	case dispatch.OutcomeSkippedNoMedia:
		s.SkippedNoMedia++
	default:
		s.SkippedError++
	}
}

// Forwarder processes posts strictly one after another.
type Forwarder struct {
	posts      Posts
	dispatcher Dispatcher
	mode       domain.Mode
	limiter    *rate.Limiter
	progress   progress.Indicator
	logger     *zerolog.Logger
}

// New creates a forwarder. delay is enforced before every post; zero disables it.
func New(posts Posts, dispatcher Dispatcher, mode domain.Mode, delay time.Duration, ind progress.Indicator, logger *zerolog.Logger) *Forwarder {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}

	if ind == nil {
		ind = progress.Nop{}
	}

	return &Forwarder{
		posts:      posts,
		dispatcher: dispatcher,
		mode:       mode,
		limiter:    rate.NewLimiter(limit, 1),
		progress:   ind,
		logger:     logger,
	}
}

// Run forwards every post of the stream. Per-post failures are logged and
// skipped. A rate limit, cancellation or a broken source stream stops the run.
func (f *Forwarder) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	f.logger.Info().Str("mode", string(f.mode)).Msg("forwarding started")

	stopPreparing := func() {}
	if f.mode == domain.ModeLastN || f.mode == domain.ModeDateRange {
		stopPreparing = f.progress.Spin(preparingLabel)
	}

	preparing := true

	for f.posts.Next(ctx) {
		if preparing {
			stopPreparing()

			preparing = false
		}

		post := f.posts.Value()

		if err := f.limiter.Wait(ctx); err != nil {
			return summary, fmt.Errorf("waiting before post %d: %w", post.First().ID, err)
		}

		report, err := f.dispatcher.Dispatch(ctx, post)

		summary.add(report.Outcome)
		observability.PostsProcessed.WithLabelValues(report.Kind, string(report.Outcome)).Inc()

		if err != nil {
			if stop := f.handleError(post, report, err); stop {
				return summary, err
			}

			continue
		}

		f.logPost(post, report)
	}

	if preparing {
		stopPreparing()
	}

	if err := f.posts.Err(); err != nil {
		if apperrors.Is(err, apperrors.ErrRateLimited) {
			observability.RateLimitAborts.Inc()
		}

		return summary, fmt.Errorf("reading source history: %w", err)
	}

	f.logger.Info().
		Int("total", summary.Total()).
		Int("sent", summary.Sent).
		Int("skipped_no_media", summary.SkippedNoMedia).
		Int("skipped_error", summary.SkippedError).
		Msg("forwarding completed")

	return summary, nil
}

// handleError logs a failed post and reports whether the run must stop.
func (f *Forwarder) handleError(post domain.Post, report dispatch.Report, err error) bool {
	var rl *apperrors.RateLimitError
	if apperrors.As(err, &rl) {
		observability.RateLimitAborts.Inc()
		f.logger.Error().Dur("wait", rl.Wait).Ints("msg_ids", post.IDs()).
			Msg("destination demands a wait, stopping")

		return true
	}

	if dispatch.Fatal(err) {
		return true
	}

	f.logger.Error().Err(err).Str("kind", report.Kind).Ints("msg_ids", post.IDs()).Msg("failed to forward post")

	return false
}

func (f *Forwarder) logPost(post domain.Post, report dispatch.Report) {
	event := f.logger.Info()
	if report.Outcome != dispatch.OutcomeSent {
		event = f.logger.Warn()
	}

	event.Str("kind", report.Kind).
		Str("outcome", string(report.Outcome)).
		Int("msg_id", post.First().ID).
		Int("dest_id", report.DestID).
		Msg("post processed")
}
