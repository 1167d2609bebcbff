package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
)

const (
	mimeOctetStream = "application/octet-stream"
	mimeVideo       = "video/mp4"
	mimeVoice       = "audio/ogg"
)

// SendText implements ports.Sender.
func (c *Client) SendText(ctx context.Context, dest domain.Destination, text domain.Text, reply domain.ReplyContext, preview bool) (int, error) {
	randomID, err := c.randID()
	if err != nil {
		return 0, fmt.Errorf("generating random id: %w", err)
	}

	res, err := c.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:      inputPeer(dest.Chat),
		Message:   text.Text,
		Entities:  c.outgoingEntities(text.Entities),
		RandomID:  randomID,
		ReplyTo:   replyTo(reply),
		NoWebpage: !preview,
	})
	if err != nil {
		return 0, wrapRPC("sending text", err)
	}

	return sentID(res, randomID)
}

// SendMedia implements ports.Sender.
func (c *Client) SendMedia(ctx context.Context, dest domain.Destination, m ports.OutgoingMedia, caption domain.Text, reply domain.ReplyContext) (int, error) {
	media, err := c.inputMedia(ctx, dest.Chat, m)
	if err != nil {
		return 0, err
	}

	randomID, err := c.randID()
	if err != nil {
		return 0, fmt.Errorf("generating random id: %w", err)
	}

	res, err := c.api.MessagesSendMedia(ctx, &tg.MessagesSendMediaRequest{
		Peer:     inputPeer(dest.Chat),
		Media:    media,
		Message:  caption.Text,
		Entities: c.outgoingEntities(caption.Entities),
		RandomID: randomID,
		ReplyTo:  replyTo(reply),
	})
	if err != nil {
		return 0, wrapRPC("sending media", err)
	}

	return sentID(res, randomID)
}

// SendAlbum implements ports.Sender. Every item is uploaded to the
// destination first, then all are sent in one grouped call.
func (c *Client) SendAlbum(ctx context.Context, dest domain.Destination, items []ports.OutgoingMedia, reply domain.ReplyContext) ([]int, error) {
	peer := inputPeer(dest.Chat)
	multi := make([]tg.InputSingleMedia, 0, len(items))
	randomIDs := make([]int64, 0, len(items))

	for _, item := range items {
		media, err := c.albumMedia(ctx, dest.Chat, peer, item)
		if err != nil {
			return nil, err
		}

		randomID, err := c.randID()
		if err != nil {
			return nil, fmt.Errorf("generating random id: %w", err)
		}

		multi = append(multi, tg.InputSingleMedia{Media: media, RandomID: randomID})
		randomIDs = append(randomIDs, randomID)
	}

	res, err := c.api.MessagesSendMultiMedia(ctx, &tg.MessagesSendMultiMediaRequest{
		Peer:       peer,
		MultiMedia: multi,
		ReplyTo:    replyTo(reply),
	})
	if err != nil {
		return nil, wrapRPC("sending album", err)
	}

	ids := sentIDs(res, randomIDs)
	for i, id := range ids {
		if id == 0 {
			return nil, fmt.Errorf("%w: album item %d has no id", apperrors.ErrEmptyResponse, i)
		}
	}

	return ids, nil
}

// EditCaption implements ports.Sender. An unchanged caption is not an error.
func (c *Client) EditCaption(ctx context.Context, dest domain.Destination, msgID int, caption domain.Text) error {
	req := &tg.MessagesEditMessageRequest{Peer: inputPeer(dest.Chat), ID: msgID}
	req.SetMessage(caption.Text)

	if entities := c.outgoingEntities(caption.Entities); len(entities) > 0 {
		req.SetEntities(entities)
	}

	if _, err := c.api.MessagesEditMessage(ctx, req); err != nil {
		if tgerr.Is(err, notModified) {
			return nil
		}

		return wrapRPC(fmt.Sprintf("editing caption of %d", msgID), err)
	}

	return nil
}

// albumMedia turns an item into media the grouped call accepts: uploaded
// files are registered with messages.uploadMedia first.
func (c *Client) albumMedia(ctx context.Context, chat domain.Chat, peer tg.InputPeerClass, item ports.OutgoingMedia) (tg.InputMediaClass, error) {
	media, err := c.inputMedia(ctx, chat, item)
	if err != nil {
		return nil, err
	}

	if item.Kind == ports.OutgoingStickerRef {
		return media, nil
	}

	uploaded, err := c.api.MessagesUploadMedia(ctx, &tg.MessagesUploadMediaRequest{Peer: peer, Media: media})
	if err != nil {
		return nil, wrapRPC("registering album item", err)
	}

	switch u := uploaded.(type) {
	case *tg.MessageMediaPhoto:
		if photo, ok := u.Photo.(*tg.Photo); ok {
			return &tg.InputMediaPhoto{
				ID:      &tg.InputPhoto{ID: photo.ID, AccessHash: photo.AccessHash, FileReference: photo.FileReference},
				Spoiler: item.Spoiler,
			}, nil
		}
	case *tg.MessageMediaDocument:
		if doc, ok := u.Document.(*tg.Document); ok {
			return &tg.InputMediaDocument{
				ID:      &tg.InputDocument{ID: doc.ID, AccessHash: doc.AccessHash, FileReference: doc.FileReference},
				Spoiler: item.Spoiler,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: registering album item returned %s", apperrors.ErrUploadFailed, uploaded.TypeName())
}

func (c *Client) inputMedia(ctx context.Context, chat domain.Chat, m ports.OutgoingMedia) (tg.InputMediaClass, error) {
	switch m.Kind {
	case ports.OutgoingStickerRef:
		if m.Ref == nil {
			return nil, fmt.Errorf("%w: sticker without a reference", apperrors.ErrUnexpectedMedia)
		}

		return &tg.InputMediaDocument{ID: &tg.InputDocument{
			ID:            m.Ref.ID,
			AccessHash:    m.Ref.AccessHash,
			FileReference: m.Ref.FileReference,
		}}, nil
	case ports.OutgoingPoll:
		if m.Poll == nil {
			return nil, fmt.Errorf("%w: poll without content", apperrors.ErrUnexpectedMedia)
		}

		return c.pollInput(m.Poll, chat.Broadcast), nil
	}

	file, err := c.files.Upload(ctx, m.Path)
	if err != nil {
		return nil, wrapRPC(fmt.Sprintf("uploading %s", m.FileName), err)
	}

	if m.Kind == ports.OutgoingPhoto {
		return &tg.InputMediaUploadedPhoto{File: file, Spoiler: m.Spoiler}, nil
	}

	return &tg.InputMediaUploadedDocument{
		File:       file,
		MimeType:   mimeType(m),
		Attributes: documentAttributes(m),
		Spoiler:    m.Spoiler,
	}, nil
}

func mimeType(m ports.OutgoingMedia) string {
	if m.MimeType != "" {
		return m.MimeType
	}

	switch m.Kind {
	case ports.OutgoingVideo:
		return mimeVideo
	case ports.OutgoingVoice:
		return mimeVoice
	default:
		return mimeOctetStream
	}
}

// documentAttributes carries the source duration, size and streaming flags
// over to the re-upload.
func documentAttributes(m ports.OutgoingMedia) []tg.DocumentAttributeClass {
	attrs := []tg.DocumentAttributeClass{&tg.DocumentAttributeFilename{FileName: m.FileName}}

	switch m.Kind {
	case ports.OutgoingVideo:
		if v := m.Video; v != nil {
			attrs = append(attrs, &tg.DocumentAttributeVideo{
				Duration:          v.Duration,
				W:                 v.Width,
				H:                 v.Height,
				RoundMessage:      v.Round,
				SupportsStreaming: v.SupportsStreaming,
			})
		}
	case ports.OutgoingVoice:
		audio := &tg.DocumentAttributeAudio{Voice: true}
		if a := m.Audio; a != nil {
			audio.Duration = a.Duration
		}

		attrs = append(attrs, audio)
	default:
		if a := m.Audio; a != nil {
			attrs = append(attrs, &tg.DocumentAttributeAudio{
				Duration:  a.Duration,
				Title:     a.Title,
				Performer: a.Performer,
			})
		}
	}

	return attrs
}

// pollInput re-creates a poll. A quiz needs exactly one known correct
// answer; without it the poll is sent as a regular one. Broadcast channels
// reject public voters.
func (c *Client) pollInput(p *domain.Poll, broadcast bool) *tg.InputMediaPoll {
	poll := tg.Poll{
		Question:       tg.TextWithEntities{Text: p.Question.Text, Entities: c.outgoingEntities(p.Question.Entities)},
		MultipleChoice: p.MultipleChoice,
		PublicVoters:   p.PublicVoters && !broadcast,
	}

	for i, a := range p.Answers {
		option := a.Option
		if len(option) == 0 {
			option = []byte{byte('0' + i)}
		}

		poll.Answers = append(poll.Answers, tg.PollAnswer{
			Text:   tg.TextWithEntities{Text: a.Text.Text, Entities: c.outgoingEntities(a.Text.Entities)},
			Option: option,
		})
	}

	out := &tg.InputMediaPoll{Poll: poll}

	if correct := p.CorrectOptions(); p.Quiz && len(correct) > 0 {
		out.Poll.Quiz = true
		out.Poll.MultipleChoice = false
		out.CorrectAnswers = correct[:1]
	}

	return out
}

// replyTo returns nil when the message attaches to nothing.
func replyTo(r domain.ReplyContext) tg.InputReplyToClass {
	target := r.Target()
	if target == 0 {
		return nil
	}

	out := &tg.InputReplyToMessage{ReplyToMsgID: target}
	if r.ReplyTo != 0 && r.TopicRoot != 0 {
		out.TopMsgID = r.TopicRoot
	}

	return out
}

func (c *Client) outgoingEntities(entities []domain.Entity) []tg.MessageEntityClass {
	if len(entities) == 0 {
		return nil
	}

	out := make([]tg.MessageEntityClass, 0, len(entities))

	for _, e := range entities {
		if mapped := c.outgoingEntity(e); mapped != nil {
			out = append(out, mapped)
		}
	}

	return out
}

func (c *Client) outgoingEntity(e domain.Entity) tg.MessageEntityClass {
	off, n := e.Offset, e.Length

	switch e.Type {
	case domain.EntityBold:
		return &tg.MessageEntityBold{Offset: off, Length: n}
	case domain.EntityItalic:
		return &tg.MessageEntityItalic{Offset: off, Length: n}
	case domain.EntityUnderline:
		return &tg.MessageEntityUnderline{Offset: off, Length: n}
	case domain.EntityStrike:
		return &tg.MessageEntityStrike{Offset: off, Length: n}
	case domain.EntitySpoiler:
		return &tg.MessageEntitySpoiler{Offset: off, Length: n}
	case domain.EntityCode:
		return &tg.MessageEntityCode{Offset: off, Length: n}
	case domain.EntityPre:
		return &tg.MessageEntityPre{Offset: off, Length: n, Language: e.Language}
	case domain.EntityTextURL:
		return &tg.MessageEntityTextURL{Offset: off, Length: n, URL: e.URL}
	case domain.EntityURL:
		return &tg.MessageEntityURL{Offset: off, Length: n}
	case domain.EntityMention:
		return &tg.MessageEntityMention{Offset: off, Length: n}
	case domain.EntityMentionName:
		if user, ok := c.peers.get(domain.PeerRef{Kind: domain.ChatKindUser, ID: e.UserID}); ok {
			return &tg.InputMessageEntityMentionName{
				Offset: off,
				Length: n,
				UserID: &tg.InputUser{UserID: user.ID, AccessHash: user.AccessHash},
			}
		}

		return &tg.MessageEntityTextURL{Offset: off, Length: n, URL: fmt.Sprintf("tg://user?id=%d", e.UserID)}
	case domain.EntityHashtag:
		return &tg.MessageEntityHashtag{Offset: off, Length: n}
	case domain.EntityCashtag:
		return &tg.MessageEntityCashtag{Offset: off, Length: n}
	case domain.EntityBotCommand:
		return &tg.MessageEntityBotCommand{Offset: off, Length: n}
	case domain.EntityEmail:
		return &tg.MessageEntityEmail{Offset: off, Length: n}
	case domain.EntityPhone:
		return &tg.MessageEntityPhone{Offset: off, Length: n}
	case domain.EntityBankCard:
		return &tg.MessageEntityBankCard{Offset: off, Length: n}
	case domain.EntityBlockquote:
		return &tg.MessageEntityBlockquote{Offset: off, Length: n, Collapsed: e.Collapsed}
	default:
		return nil
	}
}

func sentID(u tg.UpdatesClass, randomID int64) (int, error) {
	id := sentIDs(u, []int64{randomID})[0]
	if id == 0 {
		return 0, fmt.Errorf("%w: no message id in %s", apperrors.ErrEmptyResponse, u.TypeName())
	}

	return id, nil
}

// sentIDs returns the new message id for every random id, zero where the
// updates do not mention it. New-message updates fill the gaps in order.
func sentIDs(u tg.UpdatesClass, randomIDs []int64) []int {
	out := make([]int, len(randomIDs))

	var updates []tg.UpdateClass

	switch u := u.(type) {
	case *tg.UpdateShortSentMessage:
		if len(out) == 1 {
			out[0] = u.ID
		}

		return out
	case *tg.Updates:
		updates = u.Updates
	case *tg.UpdatesCombined:
		updates = u.Updates
	}

	index := make(map[int64]int, len(randomIDs))
	for i, id := range randomIDs {
		index[id] = i
	}

	var fresh []int

	for _, up := range updates {
		switch up := up.(type) {
		case *tg.UpdateMessageID:
			if i, ok := index[up.RandomID]; ok {
				out[i] = up.ID
			}
		case *tg.UpdateNewMessage:
			fresh = append(fresh, up.Message.GetID())
		case *tg.UpdateNewChannelMessage:
			fresh = append(fresh, up.Message.GetID())
		}
	}

	for i := range out {
		if out[i] == 0 && len(fresh) == len(out) {
			out[i] = fresh[i]
		}
	}

	return out
}
