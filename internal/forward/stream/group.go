package stream

import "github.com/lueurxax/telegram-forwarder/internal/core/domain"

// grouper assembles albums from adjacent messages sharing a group key.
type grouper struct {
	key int64
	buf []domain.Message
}

// push feeds one message and returns the posts it completed, in order.
func (g *grouper) push(m domain.Message) []domain.Post {
	if g.open() && m.GroupedID == g.key {
		g.buf = append(g.buf, m)

		return nil
	}

	var out []domain.Post

	if p, ok := g.flush(); ok {
		out = append(out, p)
	}

	if m.GroupedID != 0 {
		g.key = m.GroupedID
		g.buf = []domain.Message{m}

		return out
	}

	return append(out, domain.Single(m))
}

// flush closes the open album, if any.
func (g *grouper) flush() (domain.Post, bool) {
	if !g.open() {
		return domain.Post{}, false
	}

	p := domain.Album(g.buf)
	g.key = 0
	g.buf = nil

	return p, true
}

func (g *grouper) open() bool {
	return len(g.buf) > 0
}

// continues reports whether m belongs to the open album.
func (g *grouper) continues(m domain.Message) bool {
	return g.open() && m.GroupedID == g.key
}
