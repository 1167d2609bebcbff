// Package stream turns the source chat history into posts: single messages
// and albums, oldest first, limited by the selection mode.
package stream

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
)

// DefaultScanRadius is how many ids around a post_id are searched for album siblings.
const DefaultScanRadius = 20

// PostStream is a lazy forward-only cursor over posts.
//
// Usage:
//
//	for s.Next(ctx) {
//		post := s.Value()
//	}
//	if err := s.Err(); err != nil { ... }
type PostStream struct {
	history ports.History
	chat    domain.Chat
	sel     domain.Selection
	radius  int
	logger  *zerolog.Logger

	src     ports.MessageIterator
	group   grouper
	queue   []domain.Post
	current domain.Post
	started bool
	done    bool
	err     error
}

// New creates a stream over chat. Nothing is fetched until the first Next.
func New(history ports.History, chat domain.Chat, sel domain.Selection, radius int, logger *zerolog.Logger) *PostStream {
	if radius <= 0 {
		radius = DefaultScanRadius
	}

	return &PostStream{
		history: history,
		chat:    chat,
		sel:     sel,
		radius:  radius,
		logger:  logger,
	}
}

// Next advances to the next post. It returns false at the end of the
// selection or on error.
func (s *PostStream) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}

	if !s.started {
		s.started = true
		s.start(ctx)

		if s.err != nil {
			return false
		}
	}

	for len(s.queue) == 0 {
		if s.done {
			return false
		}

		s.pull(ctx)

		if s.err != nil {
			return false
		}
	}

	s.current = s.queue[0]
	s.queue = s.queue[1:]

	return true
}

// Value returns the current post.
func (s *PostStream) Value() domain.Post {
	return s.current
}

// Err returns the error that stopped the stream, if any.
func (s *PostStream) Err() error {
	return s.err
}

func (s *PostStream) start(ctx context.Context) {
	switch s.sel.Mode {
	case domain.ModePostID:
		s.queue, s.err = s.collectPost(ctx)
		s.done = true
	case domain.ModeLastN:
		s.queue, s.err = s.collectLastN(ctx)
		s.done = true
	default:
		s.src = s.history.Messages(ctx, s.chat, ports.HistoryQuery{
			Order:   ports.OldestFirst,
			TopicID: s.sel.TopicID,
		})
	}
}

// pull reads one source message for the all and date_range modes.
func (s *PostStream) pull(ctx context.Context) {
	if !s.src.Next(ctx) {
		if err := s.src.Err(); err != nil {
			s.err = fmt.Errorf("read history: %w", err)

			return
		}

		s.emit(s.group.flush())
		s.done = true

		return
	}

	m := s.src.Value()
	if m.Service {
		return
	}

	// History is chronological, so nothing after the upper bound can match
	// once no album is waiting for more members.
	if s.sel.Mode == domain.ModeDateRange && s.sel.After(m.Date) && !s.group.continues(m) {
		s.emit(s.group.flush())
		s.done = true

		s.logger.Debug().Int("msg_id", m.ID).Msg("reached end of date range")

		return
	}

	for _, p := range s.group.push(m) {
		s.emit(p, true)
	}
}

func (s *PostStream) emit(p domain.Post, ok bool) {
	if !ok {
		return
	}

	if s.sel.Mode == domain.ModeDateRange && !s.inRange(p) {
		return
	}

	s.queue = append(s.queue, p)
}

// inRange keeps a post when at least one of its messages is inside the range.
func (s *PostStream) inRange(p domain.Post) bool {
	for _, m := range p.Messages {
		if s.sel.InRange(m.Date) {
			return true
		}
	}

	return false
}

// collectLastN scans newest first and returns the selected posts oldest first.
func (s *PostStream) collectLastN(ctx context.Context) ([]domain.Post, error) {
	if s.sel.LastN <= 0 {
		return nil, nil
	}

	it := s.history.Messages(ctx, s.chat, ports.HistoryQuery{
		Order:   ports.NewestFirst,
		TopicID: s.sel.TopicID,
	})

	var (
		collected []domain.Post
		g         grouper
		count     int
	)

	full := func() bool {
		if s.sel.AlbumPolicy == domain.AlbumStrict {
			return count >= s.sel.LastN
		}

		return len(collected) >= s.sel.LastN
	}

	for !full() && it.Next(ctx) {
		m := it.Value()
		if m.Service {
			continue
		}

		collected = append(collected, g.push(m)...)
		count++
	}

	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	// An album still open here either reached the start of the history or,
	// under the strict policy, crossed the window boundary.
	if p, ok := g.flush(); ok && (s.sel.AlbumPolicy == domain.AlbumStrict || len(collected) < s.sel.LastN) {
		collected = append(collected, p)
	}

	// Closing an album can complete two posts at once.
	if s.sel.AlbumPolicy != domain.AlbumStrict && len(collected) > s.sel.LastN {
		collected = collected[:s.sel.LastN]
	}

	reverse(collected)

	return collected, nil
}

// collectPost returns the post containing the given message id.
// Missing and service messages yield nothing.
func (s *PostStream) collectPost(ctx context.Context) ([]domain.Post, error) {
	m, err := s.history.GetMessage(ctx, s.chat, s.sel.PostID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrMessageNotFound) {
			s.logger.Warn().Int("msg_id", s.sel.PostID).Msg("post not found")

			return nil, nil
		}

		return nil, fmt.Errorf("get message %d: %w", s.sel.PostID, err)
	}

	if m.Service {
		s.logger.Warn().Int("msg_id", m.ID).Msg("post is a service message")

		return nil, nil
	}

	if m.GroupedID == 0 {
		return []domain.Post{domain.Single(m)}, nil
	}

	it := s.history.Messages(ctx, s.chat, ports.HistoryQuery{
		Order: ports.OldestFirst,
		MinID: max(m.ID-s.radius-1, 0),
		MaxID: m.ID + s.radius + 1,
	})

	members := []domain.Message{m}

	for it.Next(ctx) {
		sib := it.Value()
		if sib.ID != m.ID && !sib.Service && sib.GroupedID == m.GroupedID {
			members = append(members, sib)
		}
	}

	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("scan album of %d: %w", m.ID, err)
	}

	return []domain.Post{domain.Album(members)}, nil
}

func reverse(posts []domain.Post) {
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
}
