package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"blogmsg/pkg/messaging/types"
)

// fakeClient implements messaging.Client with per-operation hooks and call
// recording, so tests can assert which network operations were issued.
type fakeClient struct {
	mu    sync.Mutex
	calls []string

	getThreadMessagesFn func(ctx context.Context, threadID string, page, pageSize int) (*types.ThreadMessagesResponse, error)
	sendMessageFn       func(ctx context.Context, req types.SendMessageRequest) (*types.Message, error)
	recallMessageFn     func(ctx context.Context, messageID string) error
	resendMessageFn     func(ctx context.Context, messageID string, req types.ResendMessageRequest) (*types.Message, error)
	markThreadReadFn    func(ctx context.Context, threadID string) error
	getUnreadCountFn    func(ctx context.Context) (int, error)
	uploadImageFn       func(ctx context.Context, filename string, data []byte) (*types.UploadResponse, error)
	uploadFileFn        func(ctx context.Context, filename string, data []byte) (*types.UploadResponse, error)
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeClient) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeClient) GetThreadMessages(ctx context.Context, threadID string, page, pageSize int) (*types.ThreadMessagesResponse, error) {
	f.record("GetThreadMessages")
	if f.getThreadMessagesFn == nil {
		return nil, fmt.Errorf("unexpected GetThreadMessages call")
	}
	return f.getThreadMessagesFn(ctx, threadID, page, pageSize)
}

func (f *fakeClient) SendMessage(ctx context.Context, req types.SendMessageRequest) (*types.Message, error) {
	f.record("SendMessage")
	if f.sendMessageFn == nil {
		return nil, fmt.Errorf("unexpected SendMessage call")
	}
	return f.sendMessageFn(ctx, req)
}

func (f *fakeClient) RecallMessage(ctx context.Context, messageID string) error {
	f.record("RecallMessage")
	if f.recallMessageFn == nil {
		return fmt.Errorf("unexpected RecallMessage call")
	}
	return f.recallMessageFn(ctx, messageID)
}

func (f *fakeClient) ResendMessage(ctx context.Context, messageID string, req types.ResendMessageRequest) (*types.Message, error) {
	f.record("ResendMessage")
	if f.resendMessageFn == nil {
		return nil, fmt.Errorf("unexpected ResendMessage call")
	}
	return f.resendMessageFn(ctx, messageID, req)
}

func (f *fakeClient) MarkThreadRead(ctx context.Context, threadID string) error {
	f.record("MarkThreadRead")
	if f.markThreadReadFn == nil {
		return fmt.Errorf("unexpected MarkThreadRead call")
	}
	return f.markThreadReadFn(ctx, threadID)
}

func (f *fakeClient) GetUnreadCount(ctx context.Context) (int, error) {
	f.record("GetUnreadCount")
	if f.getUnreadCountFn == nil {
		return 0, fmt.Errorf("unexpected GetUnreadCount call")
	}
	return f.getUnreadCountFn(ctx)
}

func (f *fakeClient) UploadImage(ctx context.Context, filename string, data []byte) (*types.UploadResponse, error) {
	f.record("UploadImage")
	if f.uploadImageFn == nil {
		return nil, fmt.Errorf("unexpected UploadImage call")
	}
	return f.uploadImageFn(ctx, filename, data)
}

func (f *fakeClient) UploadFile(ctx context.Context, filename string, data []byte) (*types.UploadResponse, error) {
	f.record("UploadFile")
	if f.uploadFileFn == nil {
		return nil, fmt.Errorf("unexpected UploadFile call")
	}
	return f.uploadFileFn(ctx, filename, data)
}

// wireMessage builds a minimal wire message for tests.
func wireMessage(id, senderID, recipientID string, createdAt time.Time) types.Message {
	return types.Message{
		ID:          id,
		SenderID:    senderID,
		RecipientID: recipientID,
		ThreadID:    threadIDFor(senderID, recipientID),
		Content:     "content-" + id,
		MessageType: "text",
		CreatedAt:   createdAt,
	}
}

func threadIDFor(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
