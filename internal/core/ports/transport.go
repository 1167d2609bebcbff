// Package ports provides domain-centric interfaces for external dependencies.
// The forwarding pipeline only talks to the network through these, so every
// component can be exercised against in-memory doubles.
package ports

import (
	"context"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	"github.com/lueurxax/telegram-forwarder/internal/core/links/tglink"
)

// Order is the direction of a history traversal.
type Order int

const (
	OldestFirst Order = iota
	NewestFirst
)

// HistoryQuery bounds a history traversal. Zero values mean unbounded.
type HistoryQuery struct {
	Order Order
	// TopicID restricts the traversal to one forum thread.
	TopicID int
	// MinID and MaxID are exclusive id bounds.
	MinID int
	MaxID int
}

// MessageIterator is a forward-only cursor over source messages.
type MessageIterator interface {
	Next(ctx context.Context) bool
	Value() domain.Message
	Err() error
}

// History reads the source chat.
type History interface {
	Messages(ctx context.Context, chat domain.Chat, q HistoryQuery) MessageIterator
	// GetMessage returns errors.ErrMessageNotFound for missing or deleted messages.
	GetMessage(ctx context.Context, chat domain.Chat, id int) (domain.Message, error)
}

// ChatResolver turns a parsed link into a chat.
type ChatResolver interface {
	ResolveChat(ctx context.Context, link tglink.Link) (domain.Chat, error)
}

// NameResolver looks up display names of forward origins.
type NameResolver interface {
	PeerName(ctx context.Context, peer domain.PeerRef) (string, error)
}

// Downloader fetches the bytes of a photo or document to a local path.
type Downloader interface {
	Download(ctx context.Context, media domain.Media, path string) (int64, error)
}

// OutgoingKind selects how an outgoing media item is sent.
type OutgoingKind int

const (
	OutgoingPhoto OutgoingKind = iota
	OutgoingVideo
	OutgoingVoice
	OutgoingDocument
	// OutgoingStickerRef re-sends an existing document by reference.
	OutgoingStickerRef
	OutgoingPoll
)

// OutgoingMedia is one media item ready to be sent to the destination.
type OutgoingMedia struct {
	Kind     OutgoingKind
	Path     string
	FileName string
	MimeType string
	Video    *domain.VideoAttr
	Audio    *domain.AudioAttr
	Spoiler  bool
	// Ref is the source document for OutgoingStickerRef.
	Ref  *domain.FileLocation
	Poll *domain.Poll
}

// Sender writes to the destination chat. Every method returns only after the
// destination acknowledged the message and reports the new message id(s).
type Sender interface {
	SendText(ctx context.Context, dest domain.Destination, text domain.Text, reply domain.ReplyContext, preview bool) (int, error)
	SendMedia(ctx context.Context, dest domain.Destination, media OutgoingMedia, caption domain.Text, reply domain.ReplyContext) (int, error)
	// SendAlbum sends items as one grouped message without a caption.
	SendAlbum(ctx context.Context, dest domain.Destination, items []OutgoingMedia, reply domain.ReplyContext) ([]int, error)
	EditCaption(ctx context.Context, dest domain.Destination, msgID int, caption domain.Text) error
}

// Transport is everything a forwarding run needs from the network.
type Transport interface {
	History
	ChatResolver
	NameResolver
	Downloader
	Sender
}
