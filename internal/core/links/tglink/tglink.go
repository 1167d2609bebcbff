// Package tglink parses t.me links into a chat reference, message id and topic id.
package tglink

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
)

// Link is a parsed t.me reference. Exactly one of Username and ChatID is set.
type Link struct {
	Username string
	// ChatID is in marked form (-100<id>).
	ChatID    int64
	MessageID int
	TopicID   int
}

// IsUsername reports whether the link names a public handle.
func (l Link) IsUsername() bool {
	return l.Username != ""
}

// InternalID returns the bare channel id of a t.me/c link.
func (l Link) InternalID() int64 {
	id, _ := domain.ChannelIDFromMarked(l.ChatID)

	return id
}

var (
	usernameRegex    = regexp.MustCompile(`^https?://t\.me/([a-zA-Z0-9_]{5,})/?$`)
	usernameMsgRegex = regexp.MustCompile(`^https?://t\.me/([a-zA-Z0-9_]{5,})/(\d+)/?$`)
	chatRegex        = regexp.MustCompile(`^https?://t\.me/c/(\d+)/?$`)
	chatMsgRegex     = regexp.MustCompile(`^https?://t\.me/c/(\d+)/(\d+)/?$`)
	chatTopicRegex   = regexp.MustCompile(`^https?://t\.me/c/(\d+)/(\d+)/(\d+)/?$`)
)

// Forms lists the accepted link shapes for error messages.
var Forms = []string{
	"https://t.me/<username>",
	"https://t.me/<username>/<message_id>",
	"https://t.me/c/<chat_id>",
	"https://t.me/c/<chat_id>/<message_id>",
	"https://t.me/c/<chat_id>/<topic_id>/<message_id>",
}

// Parse parses a t.me link. It returns false for anything it does not recognise.
func Parse(raw string) (Link, bool) {
	raw = strings.TrimSpace(raw)

	if m := chatTopicRegex.FindStringSubmatch(raw); m != nil {
		chatID, ok := markedID(m[1])
		if !ok {
			return Link{}, false
		}

		return Link{ChatID: chatID, TopicID: atoi(m[2]), MessageID: atoi(m[3])}, true
	}

	if m := chatMsgRegex.FindStringSubmatch(raw); m != nil {
		chatID, ok := markedID(m[1])
		if !ok {
			return Link{}, false
		}

		return Link{ChatID: chatID, MessageID: atoi(m[2])}, true
	}

	if m := chatRegex.FindStringSubmatch(raw); m != nil {
		chatID, ok := markedID(m[1])
		if !ok {
			return Link{}, false
		}

		return Link{ChatID: chatID}, true
	}

	if m := usernameMsgRegex.FindStringSubmatch(raw); m != nil {
		return Link{Username: m[1], MessageID: atoi(m[2])}, true
	}

	if m := usernameRegex.FindStringSubmatch(raw); m != nil {
		return Link{Username: m[1]}, true
	}

	return Link{}, false
}

// markedID turns the numeric part of a t.me/c link into -100<id>.
func markedID(digits string) (int64, bool) {
	id, err := strconv.ParseInt("-100"+digits, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s) //nolint:errcheck // regex guarantees numeric input

	return n
}
