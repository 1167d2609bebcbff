package domain

import (
	"strconv"
	"strings"
)

// ChatKind identifies which peer table a chat lives in.
type ChatKind int

const (
	ChatKindUser ChatKind = iota
	ChatKindGroup
	ChatKindChannel
)

// channelPrefix marks bare channel ids in links and state keys (-100<id>).
const channelPrefix = "-100"

// Chat is a resolved source or destination chat.
type Chat struct {
	Kind       ChatKind
	ID         int64
	AccessHash int64
	Username   string
	Title      string
	Broadcast  bool
	Forum      bool
}

// MarkedID returns the chat id in the bot-style marked form used in links and
// state keys: -100<id> for channels, -<id> for basic groups, the id for users.
func (c Chat) MarkedID() int64 {
	switch c.Kind {
	case ChatKindChannel:
		id, err := strconv.ParseInt(channelPrefix+strconv.FormatInt(c.ID, 10), 10, 64)
		if err != nil {
			return -c.ID
		}

		return id
	case ChatKindGroup:
		return -c.ID
	default:
		return c.ID
	}
}

// PublicID returns the id as it appears in https://t.me/c/<id>/<msg> links.
func (c Chat) PublicID() int64 {
	return c.ID
}

// Label returns a human-readable chat name for logs.
func (c Chat) Label() string {
	if c.Title != "" {
		return c.Title
	}

	if c.Username != "" {
		return "@" + c.Username
	}

	return strconv.FormatInt(c.MarkedID(), 10)
}

// ChannelIDFromMarked strips the -100 prefix of a marked channel id.
func ChannelIDFromMarked(marked int64) (int64, bool) {
	s := strconv.FormatInt(marked, 10)
	if !strings.HasPrefix(s, channelPrefix) || len(s) == len(channelPrefix) {
		return 0, false
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(s, channelPrefix), 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// Destination is the chat and optional forum topic every post is sent to.
type Destination struct {
	Chat    Chat
	TopicID int
}

// PeerRef points at a user, group or channel without its access hash.
type PeerRef struct {
	Kind ChatKind
	ID   int64
}
