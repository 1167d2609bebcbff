package domain

import (
	"strings"
	"time"
)

// Mode selects which part of the source history is forwarded.
type Mode string

const (
	ModeAll       Mode = "all"
	ModeLastN     Mode = "last_n"
	ModeDateRange Mode = "date_range"
	ModePostID    Mode = "post_id"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeAll, ModeDateRange, ModeLastN, ModePostID}

// ParseMode normalises and validates a mode name.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, true
		}
	}

	return "", false
}

// AlbumPolicy decides how last_n treats an album crossing the window boundary.
type AlbumPolicy string

const (
	// AlbumWhole counts an album as one post and always keeps it complete.
	AlbumWhole AlbumPolicy = "whole"
	// AlbumStrict counts messages and keeps only members inside the window.
	AlbumStrict AlbumPolicy = "strict"
)

// DateLayout is the accepted format for date bounds, always in UTC.
const DateLayout = "2006-01-02 15:04"

// Selection is the validated description of what to forward.
type Selection struct {
	Mode        Mode
	LastN       int
	AlbumPolicy AlbumPolicy
	From        *time.Time
	To          *time.Time
	PostID      int
	// TopicID restricts reading to one forum thread of the source.
	TopicID int
}

// Windowed reports whether the selection may skip messages that replies point at.
func (s Selection) Windowed() bool {
	return s.Mode != ModeAll
}

// InRange reports whether t falls inside the [From, To] bounds.
func (s Selection) InRange(t time.Time) bool {
	if s.From != nil && t.Before(*s.From) {
		return false
	}

	if s.To != nil && t.After(*s.To) {
		return false
	}

	return true
}

// After reports whether t is past the upper bound.
func (s Selection) After(t time.Time) bool {
	return s.To != nil && t.After(*s.To)
}
