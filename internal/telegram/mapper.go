package telegram

import (
	"time"

	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
)

// mapMessage converts a history entry. Deleted placeholders report false.
func (c *Client) mapMessage(m tg.MessageClass) (domain.Message, bool) {
	switch m := m.(type) {
	case *tg.Message:
		out := domain.Message{
			ID:        m.ID,
			GroupedID: m.GroupedID,
			Date:      intToTimeUTC(m.Date),
			Text:      m.Message,
			Entities:  mapEntities(m.Entities),
			Media:     mapMedia(m.Media),
			Reply:     mapReply(m.ReplyTo),
		}

		if fwd, ok := m.GetFwdFrom(); ok {
			out.Forward = mapForward(fwd)
		}

		out.SenderName = c.senderName(m)

		return out, true
	case *tg.MessageService:
		return domain.Message{ID: m.ID, Date: intToTimeUTC(m.Date), Service: true}, true
	default:
		return domain.Message{}, false
	}
}

func (c *Client) senderName(m *tg.Message) string {
	if m.PostAuthor != "" {
		return m.PostAuthor
	}

	if ref, ok := peerRef(m.FromID); ok {
		if name, ok := c.peers.name(ref); ok {
			return name
		}
	}

	return ""
}

func intToTimeUTC(v int) time.Time {
	return time.Unix(int64(v), 0).UTC()
}

func mapReply(h tg.MessageReplyHeaderClass) *domain.ReplyDescriptor {
	header, ok := h.(*tg.MessageReplyHeader)
	if !ok {
		return nil
	}

	out := &domain.ReplyDescriptor{
		OriginalID: header.ReplyToMsgID,
		Quote:      header.Quote,
	}

	switch {
	case header.ReplyToPeerID != nil:
		// A reply into another chat has no target here.
		out.OriginalID = 0
	case header.ForumTopic && header.ReplyToTopID == 0:
		// Only marks topic membership: ReplyToMsgID is the topic root.
		out.OriginalID = 0
	}

	if header.Quote {
		out.QuoteText = header.QuoteText
		out.QuoteEntities = mapEntities(header.QuoteEntities)
	}

	if out.OriginalID == 0 {
		return nil
	}

	return out
}

func mapForward(h tg.MessageFwdHeader) *domain.ForwardHeader {
	out := &domain.ForwardHeader{FromName: h.FromName}

	if ref, ok := peerRef(h.FromID); ok {
		out.From = &ref
	}

	return out
}

func mapEntities(entities []tg.MessageEntityClass) []domain.Entity {
	if len(entities) == 0 {
		return nil
	}

	out := make([]domain.Entity, 0, len(entities))

	for _, e := range entities {
		if mapped, ok := mapEntity(e); ok {
			out = append(out, mapped)
		}
	}

	if len(out) == 0 {
		return nil
	}

	return out
}

func mapEntity(e tg.MessageEntityClass) (domain.Entity, bool) {
	out := domain.Entity{Offset: e.GetOffset(), Length: e.GetLength()}

	switch e := e.(type) {
	case *tg.MessageEntityBold:
		out.Type = domain.EntityBold
	case *tg.MessageEntityItalic:
		out.Type = domain.EntityItalic
	case *tg.MessageEntityUnderline:
		out.Type = domain.EntityUnderline
	case *tg.MessageEntityStrike:
		out.Type = domain.EntityStrike
	case *tg.MessageEntitySpoiler:
		out.Type = domain.EntitySpoiler
	case *tg.MessageEntityCode:
		out.Type = domain.EntityCode
	case *tg.MessageEntityPre:
		out.Type = domain.EntityPre
		out.Language = e.Language
	case *tg.MessageEntityTextURL:
		out.Type = domain.EntityTextURL
		out.URL = e.URL
	case *tg.MessageEntityURL:
		out.Type = domain.EntityURL
	case *tg.MessageEntityMention:
		out.Type = domain.EntityMention
	case *tg.MessageEntityMentionName:
		out.Type = domain.EntityMentionName
		out.UserID = e.UserID
	case *tg.MessageEntityHashtag:
		out.Type = domain.EntityHashtag
	case *tg.MessageEntityCashtag:
		out.Type = domain.EntityCashtag
	case *tg.MessageEntityBotCommand:
		out.Type = domain.EntityBotCommand
	case *tg.MessageEntityEmail:
		out.Type = domain.EntityEmail
	case *tg.MessageEntityPhone:
		out.Type = domain.EntityPhone
	case *tg.MessageEntityBankCard:
		out.Type = domain.EntityBankCard
	case *tg.MessageEntityBlockquote:
		out.Type = domain.EntityBlockquote
		out.Collapsed = e.Collapsed
	default:
		// Custom emoji and unknown entities are not re-sent.
		return domain.Entity{}, false
	}

	return out, true
}

func mapMedia(m tg.MessageMediaClass) domain.Media {
	switch m := m.(type) {
	case nil:
		return nil
	case *tg.MessageMediaEmpty:
		return nil
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return &domain.Unsupported{TypeName: m.TypeName()}
		}

		return &domain.Photo{File: photoLocation(photo), Spoiler: m.Spoiler}
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return &domain.Unsupported{TypeName: m.TypeName()}
		}

		out := mapDocument(doc)
		out.Spoiler = m.Spoiler

		return out
	case *tg.MessageMediaWebPage:
		out := &domain.WebPage{}
		if page, ok := m.Webpage.(*tg.WebPage); ok {
			out.URL = page.URL
		}

		return out
	case *tg.MessageMediaPoll:
		return mapPoll(m.Poll, m.Results)
	case *tg.MessageMediaPaidMedia:
		out := &domain.PaidMedia{Stars: m.StarsAmount}

		for _, ext := range m.ExtendedMedia {
			switch ext := ext.(type) {
			case *tg.MessageExtendedMediaPreview:
				out.Extended = append(out.Extended, domain.ExtendedMedia{Preview: true})
			case *tg.MessageExtendedMedia:
				out.Extended = append(out.Extended, domain.ExtendedMedia{Media: mapMedia(ext.Media)})
			}
		}

		return out
	default:
		return &domain.Unsupported{TypeName: m.TypeName()}
	}
}

// photoLocation selects the largest rendition by area.
func photoLocation(p *tg.Photo) domain.FileLocation {
	loc := domain.FileLocation{
		ID:            p.ID,
		AccessHash:    p.AccessHash,
		FileReference: p.FileReference,
		DCID:          p.DCID,
	}

	var maxArea int

	for _, size := range p.Sizes {
		switch s := size.(type) {
		case *tg.PhotoSize:
			if area := s.W * s.H; area > maxArea {
				maxArea = area
				loc.ThumbSize = s.Type
				loc.Size = int64(s.Size)
			}
		case *tg.PhotoSizeProgressive:
			if area := s.W * s.H; area > maxArea {
				maxArea = area
				loc.ThumbSize = s.Type

				if n := len(s.Sizes); n > 0 {
					loc.Size = int64(s.Sizes[n-1])
				}
			}
		}
	}

	return loc
}

func mapDocument(d *tg.Document) *domain.Document {
	out := &domain.Document{
		File: domain.FileLocation{
			ID:            d.ID,
			AccessHash:    d.AccessHash,
			FileReference: d.FileReference,
			DCID:          d.DCID,
			Size:          d.Size,
		},
		MimeType: d.MimeType,
	}

	for _, attr := range d.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeFilename:
			out.FileName = a.FileName
		case *tg.DocumentAttributeVideo:
			out.Video = &domain.VideoAttr{
				Duration:          a.Duration,
				Width:             a.W,
				Height:            a.H,
				Round:             a.RoundMessage,
				SupportsStreaming: a.SupportsStreaming,
			}
		case *tg.DocumentAttributeAudio:
			out.Audio = &domain.AudioAttr{
				Duration:  a.Duration,
				Voice:     a.Voice,
				Title:     a.Title,
				Performer: a.Performer,
			}
		case *tg.DocumentAttributeSticker:
			out.Sticker = true
		}
	}

	return out
}

func mapPoll(p tg.Poll, results tg.PollResults) *domain.Poll {
	correct := make(map[string]bool)

	for _, r := range results.Results {
		if r.Correct {
			correct[string(r.Option)] = true
		}
	}

	out := &domain.Poll{
		Question:       mapTextWithEntities(p.Question),
		MultipleChoice: p.MultipleChoice,
		Quiz:           p.Quiz,
		PublicVoters:   p.PublicVoters,
	}

	for _, a := range p.Answers {
		out.Answers = append(out.Answers, domain.PollAnswer{
			Text:    mapTextWithEntities(a.Text),
			Option:  a.Option,
			Correct: correct[string(a.Option)],
		})
	}

	return out
}

func mapTextWithEntities(t tg.TextWithEntities) domain.Text {
	return domain.Text{Text: t.Text, Entities: mapEntities(t.Entities)}
}
