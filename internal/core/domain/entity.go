package domain

// EntityType is the style annotation kind.
type EntityType string

const (
	EntityBold        EntityType = "bold"
	EntityItalic      EntityType = "italic"
	EntityUnderline   EntityType = "underline"
	EntityStrike      EntityType = "strike"
	EntitySpoiler     EntityType = "spoiler"
	EntityCode        EntityType = "code"
	EntityPre         EntityType = "pre"
	EntityTextURL     EntityType = "text_url"
	EntityURL         EntityType = "url"
	EntityMention     EntityType = "mention"
	EntityMentionName EntityType = "mention_name"
	EntityHashtag     EntityType = "hashtag"
	EntityCashtag     EntityType = "cashtag"
	EntityBotCommand  EntityType = "bot_command"
	EntityEmail       EntityType = "email"
	EntityPhone       EntityType = "phone"
	EntityBankCard    EntityType = "bank_card"
	EntityBlockquote  EntityType = "blockquote"
)

// Entity is a style annotation over a message text.
// Offset and Length are measured in UTF-16 code units.
type Entity struct {
	Type     EntityType
	Offset   int
	Length   int
	URL      string
	Language string
	UserID   int64
	// Collapsed applies to blockquotes only.
	Collapsed bool
}

// End returns the offset right after the entity.
func (e Entity) End() int {
	return e.Offset + e.Length
}

// Shift returns a copy of the entity moved by delta units.
func (e Entity) Shift(delta int) Entity {
	e.Offset += delta

	return e
}

// ShiftEntities returns copies of entities moved by delta units.
func ShiftEntities(entities []Entity, delta int) []Entity {
	if len(entities) == 0 {
		return nil
	}

	out := make([]Entity, len(entities))
	for i, e := range entities {
		out[i] = e.Shift(delta)
	}

	return out
}

// Within returns the entities fully contained in [start, end), rebased to start.
func Within(entities []Entity, start, end int) []Entity {
	var out []Entity

	for _, e := range entities {
		if e.Offset >= start && e.End() <= end {
			out = append(out, e.Shift(-start))
		}
	}

	return out
}

// Text is a string with its annotations.
type Text struct {
	Text     string
	Entities []Entity
}
