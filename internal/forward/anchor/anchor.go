package anchor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
	"github.com/lueurxax/telegram-forwarder/internal/platform/observability"
)

// Placeholder texts sent as anchors.
const (
	ReplyText = "The post or message was published before the selected range"
	QuoteText = "Quote from a post or message published before the selected range"
)

// Store persists anchor ids.
type Store interface {
	Lookup(key string, kind Kind) (int, bool)
	Save(key string, kind Kind, id int) error
}

// Service returns existing anchors or creates them in the destination.
type Service struct {
	store  Store
	sender ports.Sender
	logger *zerolog.Logger
	cache  map[string]int
}

// NewService creates an anchor service.
func NewService(store Store, sender ports.Sender, logger *zerolog.Logger) *Service {
	return &Service{
		store:  store,
		sender: sender,
		logger: logger,
		cache:  make(map[string]int),
	}
}

// GetOrCreate returns the anchor of kind in dest, sending the placeholder the
// first time it is needed for that chat and topic.
func (s *Service) GetOrCreate(ctx context.Context, dest domain.Destination, kind Kind) (int, error) {
	key := Key(dest)
	cacheKey := key + "/" + string(kind)

	if id, ok := s.cache[cacheKey]; ok {
		return id, nil
	}

	if id, ok := s.store.Lookup(key, kind); ok {
		s.cache[cacheKey] = id

		return id, nil
	}

	s.logger.Info().Str("kind", string(kind)).Str("target", key).Msg("creating anchor")

	id, err := s.sender.SendText(ctx, dest, domain.Text{Text: placeholder(kind)}, domain.ReplyContext{TopicRoot: dest.TopicID}, false)
	if err != nil {
		return 0, fmt.Errorf("sending %s anchor: %w", kind, err)
	}

	s.cache[cacheKey] = id
	observability.AnchorsCreated.WithLabelValues(string(kind)).Inc()

	if err := s.store.Save(key, kind, id); err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Int("anchor_id", id).Msg("anchor not persisted")
	}

	return id, nil
}

func placeholder(kind Kind) string {
	if kind == KindQuote {
		return QuoteText
	}

	return ReplyText
}
