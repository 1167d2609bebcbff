package telegram

import (
	"strings"

	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
)

// peerCache remembers every user and chat the server attached to a response,
// with the access hashes needed to address them later.
type peerCache struct {
	chats map[domain.PeerRef]domain.Chat
}

func newPeerCache() *peerCache {
	return &peerCache{chats: make(map[domain.PeerRef]domain.Chat)}
}

func (p *peerCache) remember(users []tg.UserClass, chats []tg.ChatClass) {
	for _, u := range users {
		if chat, ok := chatFromUser(u); ok {
			p.chats[domain.PeerRef{Kind: chat.Kind, ID: chat.ID}] = chat
		}
	}

	for _, c := range chats {
		if chat, ok := chatFromTG(c); ok {
			p.chats[domain.PeerRef{Kind: chat.Kind, ID: chat.ID}] = chat
		}
	}
}

func (p *peerCache) get(ref domain.PeerRef) (domain.Chat, bool) {
	chat, ok := p.chats[ref]

	return chat, ok
}

// name returns the display name of a peer.
func (p *peerCache) name(ref domain.PeerRef) (string, bool) {
	chat, ok := p.chats[ref]
	if !ok || chat.Title == "" {
		return "", false
	}

	return chat.Title, true
}

func chatFromTG(c tg.ChatClass) (domain.Chat, bool) {
	switch c := c.(type) {
	case *tg.Channel:
		return domain.Chat{
			Kind:       domain.ChatKindChannel,
			ID:         c.ID,
			AccessHash: c.AccessHash,
			Username:   c.Username,
			Title:      c.Title,
			Broadcast:  c.Broadcast,
			Forum:      c.Forum,
		}, true
	case *tg.ChannelForbidden:
		return domain.Chat{
			Kind:       domain.ChatKindChannel,
			ID:         c.ID,
			AccessHash: c.AccessHash,
			Title:      c.Title,
			Broadcast:  c.Broadcast,
		}, true
	case *tg.Chat:
		return domain.Chat{Kind: domain.ChatKindGroup, ID: c.ID, Title: c.Title}, true
	case *tg.ChatForbidden:
		return domain.Chat{Kind: domain.ChatKindGroup, ID: c.ID, Title: c.Title}, true
	default:
		return domain.Chat{}, false
	}
}

func chatFromUser(u tg.UserClass) (domain.Chat, bool) {
	user, ok := u.(*tg.User)
	if !ok {
		return domain.Chat{}, false
	}

	return domain.Chat{
		Kind:       domain.ChatKindUser,
		ID:         user.ID,
		AccessHash: user.AccessHash,
		Username:   user.Username,
		Title:      userName(user),
	}, true
}

func userName(u *tg.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}

	return u.Username
}
