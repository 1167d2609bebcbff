package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
	"github.com/lueurxax/telegram-forwarder/internal/platform/observability"
)

// page is one decoded history response.
type page struct {
	messages []tg.MessageClass
	users    []tg.UserClass
	chats    []tg.ChatClass
}

func decodeMessages(res tg.MessagesMessagesClass) page {
	switch h := res.(type) {
	case *tg.MessagesMessages:
		return page{messages: h.Messages, users: h.Users, chats: h.Chats}
	case *tg.MessagesMessagesSlice:
		return page{messages: h.Messages, users: h.Users, chats: h.Chats}
	case *tg.MessagesChannelMessages:
		return page{messages: h.Messages, users: h.Users, chats: h.Chats}
	default:
		return page{}
	}
}

// Messages implements ports.History. Pages are requested lazily as the
// iterator is drained.
func (c *Client) Messages(_ context.Context, chat domain.Chat, q ports.HistoryQuery) ports.MessageIterator {
	return &historyIterator{c: c, peer: inputPeer(chat), q: q, limit: c.batchSize()}
}

type historyIterator struct {
	c     *Client
	peer  tg.InputPeerClass
	q     ports.HistoryQuery
	limit int

	// cursor is the last id handed out; zero before the first page.
	cursor int
	buf    []domain.Message
	cur    domain.Message
	done   bool
	err    error
}

func (it *historyIterator) Next(ctx context.Context) bool {
	for len(it.buf) == 0 {
		if it.done || it.err != nil {
			return false
		}

		if err := it.fetch(ctx); err != nil {
			it.err = err

			return false
		}
	}

	it.cur = it.buf[0]
	it.buf = it.buf[1:]

	return true
}

func (it *historyIterator) Value() domain.Message {
	return it.cur
}

func (it *historyIterator) Err() error {
	return it.err
}

// offsets returns the offset id and add_offset of the next page. Oldest-first
// traversal walks forward from the lower bound with a negative add_offset.
func (it *historyIterator) offsets() (offsetID, addOffset int) {
	if it.q.Order == ports.NewestFirst {
		return it.cursor, 0
	}

	next := it.cursor
	if next == 0 {
		next = it.q.MinID
	}

	return next + 1, -it.limit
}

func (it *historyIterator) fetch(ctx context.Context) error {
	if err := it.c.pager.Wait(ctx); err != nil {
		return err
	}

	offsetID, addOffset := it.offsets()

	var (
		res tg.MessagesMessagesClass
		err error
	)

	if it.q.TopicID != 0 {
		res, err = it.c.api.MessagesGetReplies(ctx, &tg.MessagesGetRepliesRequest{
			Peer:      it.peer,
			MsgID:     it.q.TopicID,
			OffsetID:  offsetID,
			AddOffset: addOffset,
			Limit:     it.limit,
			MaxID:     it.q.MaxID,
			MinID:     it.q.MinID,
		})
	} else {
		res, err = it.c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:      it.peer,
			OffsetID:  offsetID,
			AddOffset: addOffset,
			Limit:     it.limit,
			MaxID:     it.q.MaxID,
			MinID:     it.q.MinID,
		})
	}

	if err != nil {
		return wrapRPC("getting history", err)
	}

	observability.HistoryPages.Inc()

	p := decodeMessages(res)
	it.c.peers.remember(p.users, p.chats)

	if len(p.messages) < it.limit {
		it.done = true
	}

	msgs := it.unseen(it.c.inRange(p.messages, it.q))
	if len(msgs) == 0 {
		it.done = true

		return nil
	}

	// Pages arrive newest first.
	if it.q.Order == ports.OldestFirst {
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
	}

	it.cursor = msgs[len(msgs)-1].ID
	it.buf = msgs

	it.c.logger.Debug().Int("count", len(msgs)).Int("cursor", it.cursor).Msg("History page")

	return nil
}

// unseen drops ids at or behind the cursor.
func (it *historyIterator) unseen(msgs []domain.Message) []domain.Message {
	if it.cursor == 0 {
		return msgs
	}

	out := msgs[:0]

	for _, m := range msgs {
		if it.q.Order == ports.OldestFirst && m.ID <= it.cursor {
			continue
		}

		if it.q.Order == ports.NewestFirst && m.ID >= it.cursor {
			continue
		}

		out = append(out, m)
	}

	return out
}

// inRange maps a page and drops ids outside the exclusive query bounds.
func (c *Client) inRange(raw []tg.MessageClass, q ports.HistoryQuery) []domain.Message {
	out := make([]domain.Message, 0, len(raw))

	for _, m := range raw {
		msg, ok := c.mapMessage(m)
		if !ok {
			continue
		}

		if q.MinID > 0 && msg.ID <= q.MinID {
			continue
		}

		if q.MaxID > 0 && msg.ID >= q.MaxID {
			continue
		}

		out = append(out, msg)
	}

	return out
}

// GetMessage implements ports.History.
func (c *Client) GetMessage(ctx context.Context, chat domain.Chat, id int) (domain.Message, error) {
	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: id}}

	var (
		res tg.MessagesMessagesClass
		err error
	)

	if chat.Kind == domain.ChatKindChannel {
		res, err = c.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: inputChannel(chat),
			ID:      ids,
		})
	} else {
		res, err = c.api.MessagesGetMessages(ctx, ids)
	}

	if err != nil {
		return domain.Message{}, wrapRPC(fmt.Sprintf("getting message %d", id), err)
	}

	p := decodeMessages(res)
	c.peers.remember(p.users, p.chats)

	for _, m := range p.messages {
		if msg, ok := c.mapMessage(m); ok && msg.ID == id {
			return msg, nil
		}
	}

	return domain.Message{}, fmt.Errorf("%w: %d in %s", apperrors.ErrMessageNotFound, id, chat.Label())
}
