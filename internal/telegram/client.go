// Package telegram implements the forwarding ports over an MTProto user
// session: history paging, chat resolution, media transfer and sending.
package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gotd/td/crypto"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
	"github.com/lueurxax/telegram-forwarder/internal/platform/config"
	"github.com/lueurxax/telegram-forwarder/internal/platform/progress"
)

const (
	defaultBatchSize = 100
	// historyPageInterval paces history requests.
	historyPageInterval = 300 * time.Millisecond

	floodWait        = "FLOOD_WAIT"
	floodPremiumWait = "FLOOD_PREMIUM_WAIT"
	notModified      = "MESSAGE_NOT_MODIFIED"
)

// rpc is the subset of the generated API the transport calls. *tg.Client
// satisfies it.
type rpc interface {
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
	MessagesGetReplies(ctx context.Context, request *tg.MessagesGetRepliesRequest) (tg.MessagesMessagesClass, error)
	MessagesGetMessages(ctx context.Context, id []tg.InputMessageClass) (tg.MessagesMessagesClass, error)
	ChannelsGetMessages(ctx context.Context, request *tg.ChannelsGetMessagesRequest) (tg.MessagesMessagesClass, error)
	ContactsResolveUsername(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
	MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
	MessagesSendMessage(ctx context.Context, request *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error)
	MessagesSendMedia(ctx context.Context, request *tg.MessagesSendMediaRequest) (tg.UpdatesClass, error)
	MessagesSendMultiMedia(ctx context.Context, request *tg.MessagesSendMultiMediaRequest) (tg.UpdatesClass, error)
	MessagesUploadMedia(ctx context.Context, request *tg.MessagesUploadMediaRequest) (tg.MessageMediaClass, error)
	MessagesEditMessage(ctx context.Context, request *tg.MessagesEditMessageRequest) (tg.UpdatesClass, error)
}

// files moves bytes between the local disk and the server.
type files interface {
	Download(ctx context.Context, loc tg.InputFileLocationClass, path string, total int64) (int64, error)
	Upload(ctx context.Context, path string) (tg.InputFileClass, error)
}

// Client is a user session that implements ports.Transport once Run has
// authenticated it.
type Client struct {
	cfg      config.TelegramConfig
	client   *telegram.Client
	api      rpc
	files    files
	peers    *peerCache
	pager    *rate.Limiter
	progress progress.Indicator
	randID   func() (int64, error)
	logger   *zerolog.Logger
}

var _ ports.Transport = (*Client)(nil)

func New(cfg config.TelegramConfig, ind progress.Indicator, logger *zerolog.Logger) *Client {
	if ind == nil {
		ind = progress.Nop{}
	}

	return &Client{
		cfg:      cfg,
		peers:    newPeerCache(),
		pager:    rate.NewLimiter(rate.Every(historyPageInterval), 1),
		progress: ind,
		randID:   func() (int64, error) { return crypto.RandInt64(crypto.DefaultRand()) },
		logger:   logger,
	}
}

// Run connects, authenticates if the session is new and calls f with the
// ready transport. The connection closes when f returns.
func (c *Client) Run(ctx context.Context, f func(ctx context.Context, t ports.Transport) error) error {
	if dir := filepath.Dir(c.cfg.SessionPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating session directory: %w", err)
		}
	}

	client := telegram.NewClient(c.cfg.APIID, c.cfg.APIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: c.cfg.SessionPath,
		},
	})

	c.client = client

	return client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, c.authFlow()); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}

		c.logger.Info().Msg("Successfully authenticated as user")

		api := tg.NewClient(client)
		c.api = api
		c.files = &gotdFiles{api: api, progress: c.progress}

		return f(ctx, c)
	})
}

func (c *Client) batchSize() int {
	if c.cfg.HistoryBatchSize <= 0 {
		return defaultBatchSize
	}

	return c.cfg.HistoryBatchSize
}

// wrapRPC turns a flood wait into a RateLimitError and adds context to
// anything else.
func wrapRPC(op string, err error) error {
	if rpcErr, ok := tgerr.As(err); ok && (rpcErr.Type == floodWait || rpcErr.Type == floodPremiumWait) {
		return &apperrors.RateLimitError{Wait: time.Duration(rpcErr.Argument) * time.Second}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// inputPeer addresses a resolved chat in requests.
func inputPeer(chat domain.Chat) tg.InputPeerClass {
	switch chat.Kind {
	case domain.ChatKindChannel:
		return &tg.InputPeerChannel{ChannelID: chat.ID, AccessHash: chat.AccessHash}
	case domain.ChatKindGroup:
		return &tg.InputPeerChat{ChatID: chat.ID}
	default:
		return &tg.InputPeerUser{UserID: chat.ID, AccessHash: chat.AccessHash}
	}
}

func inputChannel(chat domain.Chat) *tg.InputChannel {
	return &tg.InputChannel{ChannelID: chat.ID, AccessHash: chat.AccessHash}
}

func peerRef(p tg.PeerClass) (domain.PeerRef, bool) {
	switch p := p.(type) {
	case *tg.PeerUser:
		return domain.PeerRef{Kind: domain.ChatKindUser, ID: p.UserID}, true
	case *tg.PeerChat:
		return domain.PeerRef{Kind: domain.ChatKindGroup, ID: p.ChatID}, true
	case *tg.PeerChannel:
		return domain.PeerRef{Kind: domain.ChatKindChannel, ID: p.ChannelID}, true
	default:
		return domain.PeerRef{}, false
	}
}
