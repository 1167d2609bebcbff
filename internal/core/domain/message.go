package domain

import (
	"sort"
	"time"
)

// Message is a source message mapped away from the transport types.
type Message struct {
	ID        int
	GroupedID int64
	Date      time.Time
	Text      string
	Entities  []Entity
	Media     Media
	Reply     *ReplyDescriptor
	Forward   *ForwardHeader
	// SenderName is the display name of the author; empty in broadcast channels.
	SenderName string
	Service    bool
}

// ReplyDescriptor describes what a source message replies to or quotes.
// OriginalID is zero when the reply has no resolvable target in the same chat.
type ReplyDescriptor struct {
	OriginalID    int
	Quote         bool
	QuoteText     string
	QuoteEntities []Entity
}

// ForwardHeader is set on messages that were themselves forwarded.
type ForwardHeader struct {
	// FromName is the hidden-sender name shown instead of a peer.
	FromName string
	From     *PeerRef
}

// Post is the unit of forwarding: a single message or an album.
type Post struct {
	Messages []Message
	album    bool
}

// Single wraps one message.
func Single(m Message) Post {
	return Post{Messages: []Message{m}}
}

// Album wraps messages sharing a group key, ordered by id.
func Album(msgs []Message) Post {
	sorted := make([]Message, len(msgs))
	copy(sorted, msgs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	return Post{Messages: sorted, album: true}
}

// IsAlbum reports whether the post is a grouped album.
func (p Post) IsAlbum() bool {
	return p.album
}

// First returns the first message of the post.
func (p Post) First() Message {
	return p.Messages[0]
}

// IDs returns the source ids of every message in the post.
func (p Post) IDs() []int {
	ids := make([]int, len(p.Messages))
	for i, m := range p.Messages {
		ids[i] = m.ID
	}

	return ids
}

// ReplyContext tells the sender where a message attaches at the destination.
// Zero values mean "none".
type ReplyContext struct {
	ReplyTo   int
	TopicRoot int
}

// Target returns the id a message should structurally reply to: the explicit
// reply if any, otherwise the topic root.
func (r ReplyContext) Target() int {
	if r.ReplyTo != 0 {
		return r.ReplyTo
	}

	return r.TopicRoot
}
