package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/links/tglink"
)

const (
	dialogPageSize = 100
	maxDialogPages = 50
)

// ErrPeerNotFound indicates a peer the session has never seen.
var ErrPeerNotFound = errors.New("peer not found in session cache")

// ResolveChat implements ports.ChatResolver. Public handles go through
// contacts.resolveUsername; numeric ids must be among the account's dialogs.
func (c *Client) ResolveChat(ctx context.Context, link tglink.Link) (domain.Chat, error) {
	if link.IsUsername() {
		return c.resolveUsername(ctx, link.Username)
	}

	return c.resolveMarked(ctx, link.ChatID)
}

func (c *Client) resolveUsername(ctx context.Context, username string) (domain.Chat, error) {
	res, err := c.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
	if err != nil {
		if wrapped := wrapRPC("resolving", err); apperrors.Is(wrapped, apperrors.ErrRateLimited) {
			return domain.Chat{}, wrapped
		}

		return domain.Chat{}, fmt.Errorf("%w: @%s: %w", apperrors.ErrResolution, username, err)
	}

	c.peers.remember(res.Users, res.Chats)

	ref, ok := peerRef(res.Peer)
	if !ok {
		return domain.Chat{}, fmt.Errorf("%w: @%s resolved to %T", apperrors.ErrResolution, username, res.Peer)
	}

	chat, ok := c.peers.get(ref)
	if !ok {
		return domain.Chat{}, fmt.Errorf("%w: @%s: peer missing from response", apperrors.ErrResolution, username)
	}

	c.logger.Info().Str("username", username).Int64("chat_id", chat.MarkedID()).Str("title", chat.Title).Msg("Resolved chat")

	return chat, nil
}

func markedRef(marked int64) domain.PeerRef {
	if id, ok := domain.ChannelIDFromMarked(marked); ok {
		return domain.PeerRef{Kind: domain.ChatKindChannel, ID: id}
	}

	if marked < 0 {
		return domain.PeerRef{Kind: domain.ChatKindGroup, ID: -marked}
	}

	return domain.PeerRef{Kind: domain.ChatKindUser, ID: marked}
}

func (c *Client) resolveMarked(ctx context.Context, marked int64) (domain.Chat, error) {
	ref := markedRef(marked)

	if chat, ok := c.peers.get(ref); ok {
		return chat, nil
	}

	chat, err := c.scanDialogs(ctx, ref)
	if err != nil {
		return domain.Chat{}, err
	}

	c.logger.Info().Int64("chat_id", marked).Str("title", chat.Title).Msg("Resolved chat from dialogs")

	return chat, nil
}

// scanDialogs pages through the account's dialogs until ref shows up.
func (c *Client) scanDialogs(ctx context.Context, ref domain.PeerRef) (domain.Chat, error) {
	req := &tg.MessagesGetDialogsRequest{OffsetPeer: &tg.InputPeerEmpty{}, Limit: dialogPageSize}

	for range maxDialogPages {
		res, err := c.api.MessagesGetDialogs(ctx, req)
		if err != nil {
			if wrapped := wrapRPC("listing dialogs", err); apperrors.Is(wrapped, apperrors.ErrRateLimited) {
				return domain.Chat{}, wrapped
			}

			return domain.Chat{}, fmt.Errorf("%w: listing dialogs: %w", apperrors.ErrResolution, err)
		}

		var (
			dialogs  []tg.DialogClass
			messages []tg.MessageClass
		)

		switch d := res.(type) {
		case *tg.MessagesDialogs:
			dialogs, messages = d.Dialogs, d.Messages
			c.peers.remember(d.Users, d.Chats)
		case *tg.MessagesDialogsSlice:
			dialogs, messages = d.Dialogs, d.Messages
			c.peers.remember(d.Users, d.Chats)
		}

		if chat, ok := c.peers.get(ref); ok {
			return chat, nil
		}

		if len(dialogs) < dialogPageSize {
			break
		}

		if !c.advanceDialogs(req, dialogs[len(dialogs)-1], messages) {
			break
		}
	}

	return domain.Chat{}, fmt.Errorf("%w: chat %d is not among this account's dialogs; join it first or use a public link",
		apperrors.ErrResolution, ref.ID)
}

// advanceDialogs moves the request offset past the last dialog of a page.
func (c *Client) advanceDialogs(req *tg.MessagesGetDialogsRequest, last tg.DialogClass, messages []tg.MessageClass) bool {
	ref, ok := peerRef(last.GetPeer())
	if !ok {
		return false
	}

	chat, ok := c.peers.get(ref)
	if !ok {
		return false
	}

	top := last.GetTopMessage()
	req.OffsetID = top
	req.OffsetPeer = inputPeer(chat)

	for _, m := range messages {
		var (
			peer tg.PeerClass
			date int
		)

		switch msg := m.(type) {
		case *tg.Message:
			if msg.ID != top {
				continue
			}

			peer, date = msg.PeerID, msg.Date
		case *tg.MessageService:
			if msg.ID != top {
				continue
			}

			peer, date = msg.PeerID, msg.Date
		default:
			continue
		}

		if r, ok := peerRef(peer); ok && r == ref {
			req.OffsetDate = date

			break
		}
	}

	return true
}

// PeerName implements ports.NameResolver from the peers seen so far.
func (c *Client) PeerName(_ context.Context, peer domain.PeerRef) (string, error) {
	if name, ok := c.peers.name(peer); ok {
		return name, nil
	}

	return "", fmt.Errorf("%w: %d", ErrPeerNotFound, peer.ID)
}
