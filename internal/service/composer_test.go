package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"blogmsg/internal/constants"
	"blogmsg/internal/models"
	"blogmsg/pkg/messaging/types"

	apperrors "blogmsg/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestComposer(client *fakeClient) (*Composer, *ThreadStore) {
	lc, store, _ := newTestController(client)
	uploader := NewUploader(client, testLogger())
	return NewComposer(lc, uploader, testLogger()), store
}

func uploadEcho(url string) func(ctx context.Context, filename string, data []byte) (*types.UploadResponse, error) {
	return func(ctx context.Context, filename string, data []byte) (*types.UploadResponse, error) {
		return &types.UploadResponse{
			URL:      url,
			Filename: filename,
			Size:     int64(len(data)),
			MimeType: DetectContentType(filename),
		}, nil
	}
}

func TestComposerDraftClipping(t *testing.T) {
	c, _ := newTestComposer(&fakeClient{})

	c.SetDraft("hello")
	assert.Equal(t, "hello", c.Draft())

	long := strings.Repeat("x", constants.MaxDraftChars+500)
	c.SetDraft(long)
	assert.Len(t, c.Draft(), constants.MaxDraftChars)

	// Clipping counts runes, not bytes.
	wide := strings.Repeat("日", constants.MaxDraftChars+3)
	c.SetDraft(wide)
	assert.Equal(t, constants.MaxDraftChars, len([]rune(c.Draft())))
}

func TestComposerInsertText(t *testing.T) {
	c, _ := newTestComposer(&fakeClient{})

	c.SetDraft("hello ")
	c.InsertText("🎉")
	assert.Equal(t, "hello 🎉", c.Draft())

	c.SetDraft(strings.Repeat("x", constants.MaxDraftChars-1))
	c.InsertText("ab")
	assert.Equal(t, constants.MaxDraftChars, len([]rune(c.Draft())))
}

func TestComposerAcceptPasteUsesFirstImageOnly(t *testing.T) {
	client := &fakeClient{uploadImageFn: uploadEcho("/uploads/p1.png")}
	c, _ := newTestComposer(client)

	items := []PasteItem{
		{MimeType: "text/plain", Filename: "note.txt", Data: []byte("hi")},
		{MimeType: "image/png", Filename: "first.png", Data: []byte{1, 2}},
		{MimeType: "image/jpeg", Filename: "second.jpg", Data: []byte{3, 4}},
	}

	att, err := c.AcceptPaste(context.Background(), items)
	require.NoError(t, err)
	require.NotNil(t, att)
	assert.Equal(t, "first.png", att.Filename)
	assert.Equal(t, 1, client.callCount("UploadImage"))
	assert.Equal(t, att, c.PendingAttachment())
}

func TestComposerAcceptPasteWithoutImage(t *testing.T) {
	client := &fakeClient{}
	c, _ := newTestComposer(client)

	att, err := c.AcceptPaste(context.Background(), []PasteItem{
		{MimeType: "text/plain", Filename: "note.txt", Data: []byte("hi")},
	})
	require.NoError(t, err)
	assert.Nil(t, att)
	assert.Nil(t, c.PendingAttachment())
	assert.Equal(t, 0, client.callCount("UploadImage"))
}

func TestComposerPasteUploadFailureKeepsState(t *testing.T) {
	client := &fakeClient{
		uploadImageFn: func(ctx context.Context, filename string, data []byte) (*types.UploadResponse, error) {
			return nil, apperrors.New(apperrors.ErrCodeMessageAPI, "upload failed")
		},
	}
	c, _ := newTestComposer(client)
	c.SetDraft("keep me")

	_, err := c.AcceptPaste(context.Background(), []PasteItem{
		{MimeType: "image/png", Filename: "a.png", Data: []byte{1}},
	})
	require.Error(t, err)
	assert.Equal(t, "keep me", c.Draft())
	assert.Nil(t, c.PendingAttachment())
}

func TestComposerPickFileReplacesPending(t *testing.T) {
	client := &fakeClient{
		uploadImageFn: uploadEcho("/uploads/img.png"),
		uploadFileFn:  uploadEcho("/uploads/doc.pdf"),
	}
	c, _ := newTestComposer(client)

	first, err := c.PickFile(context.Background(), "photo.png", []byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, first, c.PendingAttachment())
	assert.Equal(t, 1, client.callCount("UploadImage"))

	// A second pick replaces the staged attachment; one per message.
	second, err := c.PickFile(context.Background(), "report.pdf", []byte{3, 4})
	require.NoError(t, err)
	assert.Equal(t, second, c.PendingAttachment())
	assert.Equal(t, 1, client.callCount("UploadFile"))
	assert.NotEqual(t, first.URL, second.URL)
}

func TestComposerRemoveAttachment(t *testing.T) {
	client := &fakeClient{uploadFileFn: uploadEcho("/uploads/doc.pdf")}
	c, _ := newTestComposer(client)

	_, err := c.PickFile(context.Background(), "report.pdf", []byte{1})
	require.NoError(t, err)
	require.NotNil(t, c.PendingAttachment())

	c.RemoveAttachment()
	assert.Nil(t, c.PendingAttachment())
}

func TestComposerCanSubmit(t *testing.T) {
	client := &fakeClient{uploadFileFn: uploadEcho("/uploads/doc.pdf")}
	c, _ := newTestComposer(client)

	assert.False(t, c.CanSubmit())

	c.SetDraft("text")
	assert.True(t, c.CanSubmit())

	c.SetDraft("")
	assert.False(t, c.CanSubmit())

	_, err := c.PickFile(context.Background(), "report.pdf", []byte{1})
	require.NoError(t, err)
	assert.True(t, c.CanSubmit())
}

func TestComposerSubmitSendsAndClears(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	client := &fakeClient{
		sendMessageFn: func(ctx context.Context, req types.SendMessageRequest) (*types.Message, error) {
			m := wireMessage("srv-1", "alice", "bob", base)
			m.Content = req.Content
			return &m, nil
		},
	}
	c, store := newTestComposer(client)

	c.SetDraft("hello")
	m, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "srv-1", m.ID)

	assert.Empty(t, c.Draft())
	assert.Nil(t, c.PendingAttachment())
	assert.Empty(t, c.Editing())
	assert.Equal(t, 1, store.Len())
}

func TestComposerSubmitFailureKeepsDraft(t *testing.T) {
	client := &fakeClient{
		sendMessageFn: func(ctx context.Context, req types.SendMessageRequest) (*types.Message, error) {
			return nil, apperrors.New(apperrors.ErrCodeMessageAPI, "server unavailable")
		},
	}
	c, _ := newTestComposer(client)

	c.SetDraft("hello")
	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "hello", c.Draft())
}

func TestComposerSubmitEmptyRejected(t *testing.T) {
	c, _ := newTestComposer(&fakeClient{})

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.GetCode(err))
}

func TestComposerBeginEditPrePopulates(t *testing.T) {
	att := &models.AttachmentMeta{URL: "/uploads/a.png", Filename: "a.png", MimeType: "image/png"}
	m := &models.Message{
		ID:         "m1",
		SenderID:   "alice",
		Content:    "original text",
		Type:       models.MessageTypeMixed,
		Attachment: att,
		IsRecalled: true,
	}

	c, _ := newTestComposer(&fakeClient{})
	require.NoError(t, c.BeginEdit(m))

	assert.Equal(t, "m1", c.Editing())
	assert.Equal(t, "original text", c.Draft())
	assert.Equal(t, att, c.PendingAttachment())
}

func TestComposerBeginEditSkipsPlaceholderContent(t *testing.T) {
	att := &models.AttachmentMeta{URL: "/uploads/a.png", Filename: "a.png", MimeType: "image/png"}
	m := &models.Message{
		ID:         "m1",
		SenderID:   "alice",
		Content:    constants.ImagePlaceholder,
		Type:       models.MessageTypeImage,
		Attachment: att,
		IsRecalled: true,
	}

	c, _ := newTestComposer(&fakeClient{})
	require.NoError(t, c.BeginEdit(m))

	assert.Empty(t, c.Draft(), "a synthesized placeholder is not user text")
	assert.Equal(t, att, c.PendingAttachment())
}

func TestComposerBeginEditRequiresRecalled(t *testing.T) {
	c, _ := newTestComposer(&fakeClient{})

	err := c.BeginEdit(&models.Message{ID: "m1", Content: "live"})
	require.Error(t, err)
	assert.Empty(t, c.Editing())

	require.Error(t, c.BeginEdit(nil))
}

func TestComposerCancelEdit(t *testing.T) {
	m := &models.Message{ID: "m1", Content: "text", IsRecalled: true}
	c, _ := newTestComposer(&fakeClient{})
	require.NoError(t, c.BeginEdit(m))

	c.CancelEdit()
	assert.Empty(t, c.Editing())
	assert.Empty(t, c.Draft())
	assert.Nil(t, c.PendingAttachment())
}

func TestComposerSubmitInEditModeResends(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	client := &fakeClient{
		resendMessageFn: func(ctx context.Context, messageID string, req types.ResendMessageRequest) (*types.Message, error) {
			m := wireMessage(messageID, "alice", "bob", base)
			m.Content = req.Content
			m.IsRecalled = false
			return &m, nil
		},
	}
	c, store := newTestComposer(client)

	recalledWire := wireMessage("m1", "alice", "bob", base)
	recalledWire.IsRecalled = true
	recalled := seedMessage(store, recalledWire)

	require.NoError(t, c.BeginEdit(recalled))
	c.SetDraft("second draft")

	m, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "second draft", m.Content)
	assert.False(t, m.IsRecalled)

	assert.Empty(t, c.Editing(), "submit leaves edit mode")
	assert.Equal(t, 1, client.callCount("ResendMessage"))
	assert.Equal(t, 0, client.callCount("SendMessage"))
}
