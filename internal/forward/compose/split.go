package compose

import (
	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	"github.com/lueurxax/telegram-forwarder/internal/platform/textutil"
)

// Split cuts t into chunks of at most limit units without splitting surrogate
// pairs. Each chunk keeps only the entities fully inside it, rebased to zero.
func Split(t domain.Text, limit int) []domain.Text {
	total := textutil.Len(t.Text)
	if total <= limit {
		return []domain.Text{t}
	}

	var chunks []domain.Text

	for start := 0; start < total; {
		end := textutil.Cut(t.Text, start, limit)

		chunks = append(chunks, domain.Text{
			Text:     textutil.Slice(t.Text, start, end),
			Entities: domain.Within(t.Entities, start, end),
		})

		start = end
	}

	return chunks
}
