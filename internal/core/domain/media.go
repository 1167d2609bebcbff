package domain

// Media is the closed set of payloads a message can carry.
// A nil Media means the message is text only.
type Media interface {
	isMedia()
}

// FileLocation addresses a downloadable photo or document on the source side.
type FileLocation struct {
	ID            int64
	AccessHash    int64
	FileReference []byte
	DCID          int
	// ThumbSize selects the photo size to download; empty for documents.
	ThumbSize string
	Size      int64
}

// Photo is a compressed image.
type Photo struct {
	File    FileLocation
	Spoiler bool
}

// VideoAttr describes a video document.
type VideoAttr struct {
	Duration          float64
	Width             int
	Height            int
	Round             bool
	SupportsStreaming bool
}

// AudioAttr describes an audio document.
type AudioAttr struct {
	Duration  int
	Voice     bool
	Title     string
	Performer string
}

// Document is any file attachment, including videos, voice notes and stickers.
type Document struct {
	File     FileLocation
	FileName string
	MimeType string
	Video    *VideoAttr
	Audio    *AudioAttr
	Sticker  bool
	Spoiler  bool
}

// WebPage is a link preview generated by the server from the message text.
type WebPage struct {
	URL string
}

// PollAnswer is one poll option.
type PollAnswer struct {
	Text    Text
	Option  []byte
	Correct bool
}

// Poll is a native poll or quiz.
type Poll struct {
	Question       Text
	Answers        []PollAnswer
	MultipleChoice bool
	Quiz           bool
	PublicVoters   bool
}

// CorrectOptions returns the options of answers known to be correct.
func (p *Poll) CorrectOptions() [][]byte {
	var out [][]byte

	for _, a := range p.Answers {
		if a.Correct {
			out = append(out, a.Option)
		}
	}

	return out
}

// ExtendedMedia is one item of a paid media post. Preview items carry no media.
type ExtendedMedia struct {
	Preview bool
	Media   Media
}

// PaidMedia is content gated behind Telegram Stars.
type PaidMedia struct {
	Stars    int64
	Extended []ExtendedMedia
}

// Unlocked reports whether the first extended item is real media.
func (p *PaidMedia) Unlocked() bool {
	return len(p.Extended) > 0 && !p.Extended[0].Preview && p.Extended[0].Media != nil
}

// Unsupported is any media type the forwarder does not know how to re-send.
type Unsupported struct {
	TypeName string
}

func (*Photo) isMedia()       {}
func (*Document) isMedia()    {}
func (*WebPage) isMedia()     {}
func (*Poll) isMedia()        {}
func (*PaidMedia) isMedia()   {}
func (*Unsupported) isMedia() {}
