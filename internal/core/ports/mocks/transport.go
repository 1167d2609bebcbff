package mocks

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/links/tglink"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
)

// SentKind tells which Sender method produced a Sent record.
type SentKind string

const (
	SentText  SentKind = "text"
	SentMedia SentKind = "media"
	SentAlbum SentKind = "album"
)

// Sent is one recorded destination message.
type Sent struct {
	ID      int
	Kind    SentKind
	Dest    domain.Destination
	Text    domain.Text
	Reply   domain.ReplyContext
	Preview bool
	Media   []ports.OutgoingMedia
}

// Edit is one recorded caption edit.
type Edit struct {
	Dest    domain.Destination
	MsgID   int
	Caption domain.Text
}

// Transport is a thread-safe in-memory implementation of ports.Transport.
type Transport struct {
	mu       sync.Mutex
	messages []domain.Message
	topics   map[int]int
	chats    []domain.Chat
	names    map[domain.PeerRef]string
	sent     []Sent
	edits    []Edit
	nextID   int

	// DownloadData is written to every downloaded path.
	DownloadData []byte

	// MessagesFn allows overriding Messages behavior.
	MessagesFn func(ctx context.Context, chat domain.Chat, q ports.HistoryQuery) ports.MessageIterator

	// GetMessageFn allows overriding GetMessage behavior.
	GetMessageFn func(ctx context.Context, chat domain.Chat, id int) (domain.Message, error)

	// ResolveChatFn allows overriding ResolveChat behavior.
	ResolveChatFn func(ctx context.Context, link tglink.Link) (domain.Chat, error)

	// PeerNameFn allows overriding PeerName behavior.
	PeerNameFn func(ctx context.Context, peer domain.PeerRef) (string, error)

	// DownloadFn allows overriding Download behavior.
	DownloadFn func(ctx context.Context, media domain.Media, path string) (int64, error)

	// SendTextFn allows overriding SendText behavior. Returning an error skips recording.
	SendTextFn func(ctx context.Context, dest domain.Destination, text domain.Text, reply domain.ReplyContext) (int, error)

	// SendMediaFn allows overriding SendMedia behavior. Returning an error skips recording.
	SendMediaFn func(ctx context.Context, dest domain.Destination, media ports.OutgoingMedia, caption domain.Text, reply domain.ReplyContext) (int, error)

	// SendAlbumFn allows overriding SendAlbum behavior. Returning an error skips recording.
	SendAlbumFn func(ctx context.Context, dest domain.Destination, items []ports.OutgoingMedia, reply domain.ReplyContext) ([]int, error)

	// EditCaptionFn allows overriding EditCaption behavior.
	EditCaptionFn func(ctx context.Context, dest domain.Destination, msgID int, caption domain.Text) error
}

var _ ports.Transport = (*Transport)(nil)

// NewTransport creates a new mock transport. Destination ids start at 1000.
func NewTransport() *Transport {
	return &Transport{
		topics:       make(map[int]int),
		names:        make(map[domain.PeerRef]string),
		nextID:       1000,
		DownloadData: []byte("media"),
	}
}

// AddMessages appends source messages to the history.
func (t *Transport) AddMessages(msgs ...domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = append(t.messages, msgs...)
	sort.Slice(t.messages, func(i, j int) bool { return t.messages[i].ID < t.messages[j].ID })
}

// SetTopic places messages into a forum thread.
func (t *Transport) SetTopic(topicID int, ids ...int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range ids {
		t.topics[id] = topicID
	}
}

// AddChat registers a chat that ResolveChat can find by username or marked id.
func (t *Transport) AddChat(chat domain.Chat) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.chats = append(t.chats, chat)
}

// SetName registers a display name for a peer.
func (t *Transport) SetName(peer domain.PeerRef, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.names[peer] = name
}

// Sent returns a copy of the recorded destination messages.
func (t *Transport) Sent() []Sent {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Sent, len(t.sent))
	copy(out, t.sent)

	return out
}

// Edits returns a copy of the recorded caption edits.
func (t *Transport) Edits() []Edit {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Edit, len(t.edits))
	copy(out, t.edits)

	return out
}

// Messages returns an iterator over the registered history.
func (t *Transport) Messages(ctx context.Context, chat domain.Chat, q ports.HistoryQuery) ports.MessageIterator {
	if t.MessagesFn != nil {
		return t.MessagesFn(ctx, chat, q)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var out []domain.Message

	for _, m := range t.messages {
		if q.MinID > 0 && m.ID <= q.MinID {
			continue
		}

		if q.MaxID > 0 && m.ID >= q.MaxID {
			continue
		}

		if q.TopicID != 0 && t.topics[m.ID] != q.TopicID {
			continue
		}

		out = append(out, m)
	}

	if q.Order == ports.NewestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}

	return NewSliceIterator(out)
}

// GetMessage returns a registered message by id.
func (t *Transport) GetMessage(ctx context.Context, chat domain.Chat, id int) (domain.Message, error) {
	if t.GetMessageFn != nil {
		return t.GetMessageFn(ctx, chat, id)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range t.messages {
		if m.ID == id {
			return m, nil
		}
	}

	return domain.Message{}, fmt.Errorf("message %d: %w", id, apperrors.ErrMessageNotFound)
}

// ResolveChat finds a registered chat.
func (t *Transport) ResolveChat(ctx context.Context, link tglink.Link) (domain.Chat, error) {
	if t.ResolveChatFn != nil {
		return t.ResolveChatFn(ctx, link)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, c := range t.chats {
		if link.IsUsername() && c.Username == link.Username {
			return c, nil
		}

		if !link.IsUsername() && c.MarkedID() == link.ChatID {
			return c, nil
		}
	}

	return domain.Chat{}, ErrChatNotFound
}

// PeerName returns a registered display name.
func (t *Transport) PeerName(ctx context.Context, peer domain.PeerRef) (string, error) {
	if t.PeerNameFn != nil {
		return t.PeerNameFn(ctx, peer)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	name, ok := t.names[peer]
	if !ok {
		return "", ErrPeerNotFound
	}

	return name, nil
}

// Download writes DownloadData to path.
func (t *Transport) Download(ctx context.Context, media domain.Media, path string) (int64, error) {
	if t.DownloadFn != nil {
		return t.DownloadFn(ctx, media, path)
	}

	if err := os.WriteFile(path, t.DownloadData, 0o600); err != nil {
		return 0, err
	}

	return int64(len(t.DownloadData)), nil
}

// SendText records a text message.
func (t *Transport) SendText(ctx context.Context, dest domain.Destination, text domain.Text, reply domain.ReplyContext, preview bool) (int, error) {
	if t.SendTextFn != nil {
		id, err := t.SendTextFn(ctx, dest, text, reply)
		if err != nil {
			return 0, err
		}

		t.record(Sent{ID: id, Kind: SentText, Dest: dest, Text: text, Reply: reply, Preview: preview})

		return id, nil
	}

	return t.recordNew(Sent{Kind: SentText, Dest: dest, Text: text, Reply: reply, Preview: preview}), nil
}

// SendMedia records a media message.
func (t *Transport) SendMedia(ctx context.Context, dest domain.Destination, media ports.OutgoingMedia, caption domain.Text, reply domain.ReplyContext) (int, error) {
	if t.SendMediaFn != nil {
		id, err := t.SendMediaFn(ctx, dest, media, caption, reply)
		if err != nil {
			return 0, err
		}

		t.record(Sent{ID: id, Kind: SentMedia, Dest: dest, Text: caption, Reply: reply, Media: []ports.OutgoingMedia{media}})

		return id, nil
	}

	sent := Sent{Kind: SentMedia, Dest: dest, Text: caption, Reply: reply, Media: []ports.OutgoingMedia{media}}

	return t.recordNew(sent), nil
}

// SendAlbum records a grouped message, one id per item.
func (t *Transport) SendAlbum(ctx context.Context, dest domain.Destination, items []ports.OutgoingMedia, reply domain.ReplyContext) ([]int, error) {
	if t.SendAlbumFn != nil {
		ids, err := t.SendAlbumFn(ctx, dest, items, reply)
		if err != nil {
			return nil, err
		}

		if len(ids) > 0 {
			t.record(Sent{ID: ids[0], Kind: SentAlbum, Dest: dest, Reply: reply, Media: items})
		}

		return ids, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]int, len(items))
	for i := range items {
		t.nextID++
		ids[i] = t.nextID
	}

	t.sent = append(t.sent, Sent{ID: ids[0], Kind: SentAlbum, Dest: dest, Reply: reply, Media: items})

	return ids, nil
}

// EditCaption records a caption edit.
func (t *Transport) EditCaption(ctx context.Context, dest domain.Destination, msgID int, caption domain.Text) error {
	if t.EditCaptionFn != nil {
		if err := t.EditCaptionFn(ctx, dest, msgID, caption); err != nil {
			return err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.edits = append(t.edits, Edit{Dest: dest, MsgID: msgID, Caption: caption})

	return nil
}

func (t *Transport) record(s Sent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sent = append(t.sent, s)
}

func (t *Transport) recordNew(s Sent) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	s.ID = t.nextID
	t.sent = append(t.sent, s)

	return s.ID
}

// SliceIterator iterates over a fixed slice of messages.
type SliceIterator struct {
	msgs []domain.Message
	pos  int
	err  error
	// FailAfter makes Next fail with Fail once that many messages were returned.
	FailAfter int
	Fail      error
}

// NewSliceIterator creates an iterator over msgs in the given order.
func NewSliceIterator(msgs []domain.Message) *SliceIterator {
	return &SliceIterator{msgs: msgs, FailAfter: -1}
}

// Next advances the iterator.
func (it *SliceIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}

	if err := ctx.Err(); err != nil {
		it.err = err

		return false
	}

	if it.FailAfter >= 0 && it.pos >= it.FailAfter {
		it.err = it.Fail

		return false
	}

	if it.pos >= len(it.msgs) {
		return false
	}

	it.pos++

	return true
}

// Value returns the current message.
func (it *SliceIterator) Value() domain.Message {
	return it.msgs[it.pos-1]
}

// Err returns the error that stopped iteration.
func (it *SliceIterator) Err() error {
	return it.err
}
