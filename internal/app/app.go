// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires a single forwarding run: it resolves the source and
// destination chats, builds the pipeline over a transport and runs it until
// the selection is exhausted or a fatal error stops it.
package app

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/links/tglink"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
	"github.com/lueurxax/telegram-forwarder/internal/forward"
	"github.com/lueurxax/telegram-forwarder/internal/forward/anchor"
	"github.com/lueurxax/telegram-forwarder/internal/forward/compose"
	"github.com/lueurxax/telegram-forwarder/internal/forward/dispatch"
	"github.com/lueurxax/telegram-forwarder/internal/forward/idmap"
	"github.com/lueurxax/telegram-forwarder/internal/forward/media"
	"github.com/lueurxax/telegram-forwarder/internal/forward/reference"
	"github.com/lueurxax/telegram-forwarder/internal/forward/stream"
	"github.com/lueurxax/telegram-forwarder/internal/platform/config"
	"github.com/lueurxax/telegram-forwarder/internal/platform/observability"
	"github.com/lueurxax/telegram-forwarder/internal/platform/progress"
	"github.com/lueurxax/telegram-forwarder/internal/telegram"
)

const (
	logFieldChat  = "chat"
	logFieldTopic = "topic"

	resolutionHint = "make sure the link is correct and this account is a member of the chat"
)

// App holds the run configuration and provides methods to execute it.
type App struct {
	cfg    *config.Config
	plan   *config.Plan
	runID  string
	ready  atomic.Bool
	logger *zerolog.Logger
}

// New creates a run. Every log line of the run carries its run_id.
func New(cfg *config.Config, plan *config.Plan, logger *zerolog.Logger) *App {
	runID := uuid.NewString()
	runLogger := logger.With().Str("run_id", runID).Logger()

	return &App{
		cfg:    cfg,
		plan:   plan,
		runID:  runID,
		logger: &runLogger,
	}
}

// RunID identifies this run in logs.
func (a *App) RunID() string {
	return a.runID
}

// Logger returns the run-scoped logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// StartHealthServer serves /healthz and /metrics until ctx is done. It is a
// no-op when no metrics port is configured.
func (a *App) StartHealthServer(ctx context.Context) error {
	if a.cfg.MetricsPort == 0 {
		return nil
	}

	srv := observability.NewServer(a.cfg.MetricsPort, a.ready.Load, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// Run connects to Telegram and forwards the configured selection.
func (a *App) Run(ctx context.Context) (forward.Summary, error) {
	ind := progress.NewConsole(os.Stdout)
	defer ind.Close()

	client := telegram.New(a.cfg.Telegram, ind, a.logger)

	var summary forward.Summary

	err := client.Run(ctx, func(ctx context.Context, t ports.Transport) error {
		var err error

		summary, err = a.Forward(ctx, t, ind)

		return err
	})

	return summary, err
}

// Forward resolves both chats and runs the pipeline over t.
func (a *App) Forward(ctx context.Context, t ports.Transport, ind progress.Indicator) (forward.Summary, error) {
	source, err := a.resolve(ctx, t, "SOURCE_LINK", a.plan.Source)
	if err != nil {
		return forward.Summary{}, err
	}

	target, err := a.resolve(ctx, t, "TARGET_LINK", a.plan.Target)
	if err != nil {
		return forward.Summary{}, err
	}

	dest := destination(target, a.plan.Target)
	sel := a.plan.Selection

	files, err := media.NewFiles(a.cfg.Files.DownloadDir, a.cfg.Files.DeleteFilesAfterSend)
	if err != nil {
		return forward.Summary{}, err
	}

	ids := idmap.New()
	anchors := anchor.NewService(anchor.NewFileStore(a.cfg.Files.StatePath, a.logger), t, a.logger)

	dispatcher := dispatch.New(dispatch.Config{
		Sender:     t,
		Downloader: t,
		Files:      files,
		Resolver:   reference.New(ids, anchors, dest, sel.Windowed()),
		Composer:   compose.NewComposer(t, source.Broadcast, a.logger),
		IDs:        ids,
		Dest:       dest,
		Progress:   ind,
	}, a.logger)

	posts := stream.New(t, source, sel, a.cfg.Selection.AlbumScanRadius, a.logger)

	a.ready.Store(true)
	defer a.ready.Store(false)

	a.logger.Info().
		Str("source", source.Label()).
		Str("target", target.Label()).
		Int(logFieldTopic, dest.TopicID).
		Str("mode", string(sel.Mode)).
		Msg("Forwarding started")

	return forward.New(posts, dispatcher, sel.Mode, a.cfg.SendDelay, ind, a.logger).Run(ctx)
}

func (a *App) resolve(ctx context.Context, t ports.ChatResolver, name string, link tglink.Link) (domain.Chat, error) {
	chat, err := t.ResolveChat(ctx, link)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRateLimited) || apperrors.Is(err, apperrors.ErrResolution) {
			return domain.Chat{}, fmt.Errorf("%s: %w", name, err)
		}

		return domain.Chat{}, fmt.Errorf("%w: %s: %w (%s)", apperrors.ErrResolution, name, err, resolutionHint)
	}

	a.logger.Debug().Str(logFieldChat, chat.Label()).Int64("chat_id", chat.MarkedID()).Msg("Chat resolved")

	return chat, nil
}

// destination picks the topic every send is threaded under: the link's topic
// id, or for forum chats the message id of a two-part link, which is how
// topic links without a message are written.
func destination(chat domain.Chat, link tglink.Link) domain.Destination {
	dest := domain.Destination{Chat: chat, TopicID: link.TopicID}

	if dest.TopicID == 0 && chat.Forum && link.MessageID > 0 {
		dest.TopicID = link.MessageID
	}

	return dest
}
