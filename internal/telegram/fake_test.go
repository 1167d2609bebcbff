package telegram

import (
	"context"
	"errors"
	"os"
	"sort"

	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-forwarder/internal/platform/config"
	"github.com/lueurxax/telegram-forwarder/internal/platform/progress"
)

var errNotStubbed = errors.New("not stubbed")

// fakeRPC answers history requests from an in-memory channel and records
// every send.
type fakeRPC struct {
	history []int
	topic   map[int][]int

	historyReqs []*tg.MessagesGetHistoryRequest
	repliesReqs []*tg.MessagesGetRepliesRequest
	sendReqs    []*tg.MessagesSendMessageRequest
	mediaReqs   []*tg.MessagesSendMediaRequest
	multiReqs   []*tg.MessagesSendMultiMediaRequest
	editReqs    []*tg.MessagesEditMessageRequest
	dialogReqs  []*tg.MessagesGetDialogsRequest

	historyErr  error
	getMessages func(ids []tg.InputMessageClass) (tg.MessagesMessagesClass, error)
	resolve     func(username string) (*tg.ContactsResolvedPeer, error)
	dialogs     func(req *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
	sendResult  func(randomID int64) tg.UpdatesClass
	uploadMedia func(media tg.InputMediaClass) (tg.MessageMediaClass, error)
	editErr     error
	sendErr     error
}

// window mimics the server's offset semantics: a negative add_offset reads
// ids at or above offset_id, otherwise ids below it. Results are newest first.
func window(ids []int, offsetID, addOffset, limit, minID, maxID int) []tg.MessageClass {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)

	var picked []int

	if addOffset < 0 {
		for _, id := range sorted {
			if id >= offsetID && len(picked) < limit {
				picked = append(picked, id)
			}
		}
	} else {
		for i := len(sorted) - 1; i >= 0; i-- {
			id := sorted[i]
			if (offsetID == 0 || id < offsetID) && len(picked) < limit {
				picked = append([]int{id}, picked...)
			}
		}
	}

	var out []tg.MessageClass

	for i := len(picked) - 1; i >= 0; i-- {
		id := picked[i]
		if minID > 0 && id <= minID {
			continue
		}

		if maxID > 0 && id >= maxID {
			continue
		}

		out = append(out, &tg.Message{ID: id, Date: 1700000000 + id, Message: "m"})
	}

	return out
}

func (f *fakeRPC) MessagesGetHistory(_ context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	f.historyReqs = append(f.historyReqs, req)
	if f.historyErr != nil {
		return nil, f.historyErr
	}

	return &tg.MessagesChannelMessages{
		Messages: window(f.history, req.OffsetID, req.AddOffset, req.Limit, req.MinID, req.MaxID),
	}, nil
}

func (f *fakeRPC) MessagesGetReplies(_ context.Context, req *tg.MessagesGetRepliesRequest) (tg.MessagesMessagesClass, error) {
	f.repliesReqs = append(f.repliesReqs, req)

	return &tg.MessagesChannelMessages{
		Messages: window(f.topic[req.MsgID], req.OffsetID, req.AddOffset, req.Limit, req.MinID, req.MaxID),
	}, nil
}

func (f *fakeRPC) MessagesGetMessages(_ context.Context, ids []tg.InputMessageClass) (tg.MessagesMessagesClass, error) {
	if f.getMessages == nil {
		return nil, errNotStubbed
	}

	return f.getMessages(ids)
}

func (f *fakeRPC) ChannelsGetMessages(_ context.Context, req *tg.ChannelsGetMessagesRequest) (tg.MessagesMessagesClass, error) {
	if f.getMessages == nil {
		return nil, errNotStubbed
	}

	return f.getMessages(req.ID)
}

func (f *fakeRPC) ContactsResolveUsername(_ context.Context, req *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error) {
	if f.resolve == nil {
		return nil, errNotStubbed
	}

	return f.resolve(req.Username)
}

func (f *fakeRPC) MessagesGetDialogs(_ context.Context, req *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error) {
	copied := *req
	f.dialogReqs = append(f.dialogReqs, &copied)

	if f.dialogs == nil {
		return &tg.MessagesDialogs{}, nil
	}

	return f.dialogs(req)
}

func (f *fakeRPC) updates(randomID int64, id int) tg.UpdatesClass {
	if f.sendResult != nil {
		return f.sendResult(randomID)
	}

	return &tg.Updates{Updates: []tg.UpdateClass{&tg.UpdateMessageID{ID: id, RandomID: randomID}}}
}

func (f *fakeRPC) MessagesSendMessage(_ context.Context, req *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error) {
	f.sendReqs = append(f.sendReqs, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}

	return f.updates(req.RandomID, 500+len(f.sendReqs)), nil
}

func (f *fakeRPC) MessagesSendMedia(_ context.Context, req *tg.MessagesSendMediaRequest) (tg.UpdatesClass, error) {
	f.mediaReqs = append(f.mediaReqs, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}

	return f.updates(req.RandomID, 600+len(f.mediaReqs)), nil
}

func (f *fakeRPC) MessagesSendMultiMedia(_ context.Context, req *tg.MessagesSendMultiMediaRequest) (tg.UpdatesClass, error) {
	f.multiReqs = append(f.multiReqs, req)

	out := &tg.Updates{}
	for i, m := range req.MultiMedia {
		out.Updates = append(out.Updates, &tg.UpdateMessageID{ID: 700 + i, RandomID: m.RandomID})
	}

	return out, nil
}

func (f *fakeRPC) MessagesUploadMedia(_ context.Context, req *tg.MessagesUploadMediaRequest) (tg.MessageMediaClass, error) {
	if f.uploadMedia == nil {
		return nil, errNotStubbed
	}

	return f.uploadMedia(req.Media)
}

func (f *fakeRPC) MessagesEditMessage(_ context.Context, req *tg.MessagesEditMessageRequest) (tg.UpdatesClass, error) {
	f.editReqs = append(f.editReqs, req)
	if f.editErr != nil {
		return nil, f.editErr
	}

	return &tg.Updates{}, nil
}

// fakeFiles writes a fixed payload on download and hands out uploaded file
// handles numbered by call.
type fakeFiles struct {
	uploads   []string
	downloads []tg.InputFileLocationClass
	err       error
}

func (f *fakeFiles) Download(_ context.Context, loc tg.InputFileLocationClass, path string, _ int64) (int64, error) {
	f.downloads = append(f.downloads, loc)
	if f.err != nil {
		return 0, f.err
	}

	payload := []byte("payload")

	return int64(len(payload)), os.WriteFile(path, payload, 0o600)
}

func (f *fakeFiles) Upload(_ context.Context, path string) (tg.InputFileClass, error) {
	f.uploads = append(f.uploads, path)
	if f.err != nil {
		return nil, f.err
	}

	return &tg.InputFile{ID: int64(len(f.uploads)), Name: path}, nil
}

func newTestClient(api *fakeRPC, batch int) (*Client, *fakeFiles) {
	logger := zerolog.Nop()
	c := New(config.TelegramConfig{HistoryBatchSize: batch}, progress.Nop{}, &logger)
	files := &fakeFiles{}

	c.api = api
	c.files = files
	c.pager = rate.NewLimiter(rate.Inf, 1)

	var next int64

	c.randID = func() (int64, error) {
		next++

		return next, nil
	}

	return c, files
}
