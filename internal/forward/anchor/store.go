// Package anchor keeps durable placeholder messages that stand in for reply and
// quote targets which were never forwarded.
package anchor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
)

// Kind is the anchor flavour.
type Kind string

const (
	KindReply Kind = "reply"
	KindQuote Kind = "quote"
)

func (k Kind) field() string {
	return string(k) + "_out_of_range"
}

// Key returns the state key of a destination chat and topic.
func Key(dest domain.Destination) string {
	return strconv.FormatInt(dest.Chat.MarkedID(), 10) + ":" + strconv.Itoa(dest.TopicID)
}

type state struct {
	Anchors map[string]map[string]int `json:"anchors"`
}

// FileStore persists anchors as a JSON document. The file is re-read on every
// lookup and replaced atomically on every save.
type FileStore struct {
	path   string
	logger *zerolog.Logger
}

// NewFileStore creates a store at path. The file is created on first use.
func NewFileStore(path string, logger *zerolog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Lookup returns the anchor id stored for key and kind.
func (s *FileStore) Lookup(key string, kind Kind) (int, bool) {
	st := s.load()

	id, ok := st.Anchors[key][kind.field()]
	if !ok || id <= 0 {
		return 0, false
	}

	return id, true
}

// Save records the anchor id for key and kind.
func (s *FileStore) Save(key string, kind Kind, id int) error {
	st := s.load()

	chat, ok := st.Anchors[key]
	if !ok {
		chat = make(map[string]int)
		st.Anchors[key] = chat
	}

	chat[kind.field()] = id

	return s.write(st)
}

// load reads the state, recreating it empty when missing or corrupt.
func (s *FileStore) load() *state {
	empty := &state{Anchors: make(map[string]map[string]int)}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if err := s.write(empty); err != nil {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("cannot create anchor state")
		}

		return empty
	}

	if err == nil {
		var st state
		if err = json.Unmarshal(data, &st); err == nil && st.Anchors != nil {
			return &st
		}

		if err == nil {
			err = apperrors.ErrStateCorrupted
		}
	}

	s.logger.Warn().Err(err).Str("path", s.path).Msg("anchor state unreadable, recreating")

	if err := s.write(empty); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("cannot recreate anchor state")
	}

	return empty
}

func (s *FileStore) write(st *state) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding anchor state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state: %w", err)
	}

	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence

		return fmt.Errorf("writing temp state: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing state: %w", err)
	}

	return nil
}
