package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"blogmsg/internal/models"
	"blogmsg/pkg/messaging/types"

	apperrors "blogmsg/internal/errors"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg models.ServerConfig) *Server {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "messages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if cfg.UploadDir == "" {
		cfg.UploadDir = t.TempDir()
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewServer(store, cfg, logger)
}

func doRequest(s *Server, method, path, userID string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorCode {
	t.Helper()
	var resp apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error.Code
}

func sendTestMessage(t *testing.T, s *Server, sender, recipient, content string) types.Message {
	t.Helper()
	rec := doRequest(s, http.MethodPost, "/api/v1/messages", sender, types.SendMessageRequest{
		RecipientID: recipient,
		Content:     content,
		MessageType: "text",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var msg types.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	return msg
}

func TestHandlersRequireAuth(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})

	rec := doRequest(s, http.MethodGet, "/api/v1/unread-count", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.ErrCodeAuthentication, decodeErrorCode(t, rec))
}

func TestHandlersTokenAuth(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{
		Tokens: map[string]string{"alice-token": "alice"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unread-count", nil)
	req.Header.Set("Authorization", "Bearer alice-token")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// With tokens configured, the X-User-ID fallback is disabled.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/unread-count", nil)
	req.Header.Set("X-User-ID", "alice")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendMessageValidation(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})

	tests := []struct {
		name string
		req  types.SendMessageRequest
	}{
		{"missing recipient", types.SendMessageRequest{Content: "hi", MessageType: "text"}},
		{"empty body", types.SendMessageRequest{RecipientID: "bob", MessageType: "text"}},
		{"text type with attachment", types.SendMessageRequest{RecipientID: "bob", Content: "hi", MessageType: "text", AttachmentURL: "/uploads/x.png"}},
		{"image type without attachment", types.SendMessageRequest{RecipientID: "bob", Content: "hi", MessageType: "image"}},
		{"unknown type", types.SendMessageRequest{RecipientID: "bob", Content: "hi", MessageType: "carrier-pigeon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/api/v1/messages", "alice", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSendMessageAssignsServerIdentity(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})

	msg := sendTestMessage(t, s, "alice", "bob", "hello")
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, "alice:bob", msg.ThreadID)
	assert.False(t, msg.CreatedAt.IsZero())
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "alice", msg.Sender.ID)
}

func TestRecallWithinWindow(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	msg := sendTestMessage(t, s, "alice", "bob", "oops")

	s.now = func() time.Time { return base.Add(180 * time.Second) }
	rec := doRequest(s, http.MethodPost, "/api/v1/messages/"+msg.ID+"/recall", "alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "recall exactly at the window boundary succeeds")
}

func TestRecallAfterWindowExpiry(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	msg := sendTestMessage(t, s, "alice", "bob", "too late")

	s.now = func() time.Time { return base.Add(180*time.Second + time.Second) }
	rec := doRequest(s, http.MethodPost, "/api/v1/messages/"+msg.ID+"/recall", "alice", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperrors.ErrCodeRecallRejected, decodeErrorCode(t, rec))

	// The message is untouched.
	stored, err := s.store.GetMessage(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsRecalled)
}

func TestRecallRejectsNonSender(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})
	msg := sendTestMessage(t, s, "alice", "bob", "mine")

	rec := doRequest(s, http.MethodPost, "/api/v1/messages/"+msg.ID+"/recall", "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperrors.ErrCodeAuthorization, decodeErrorCode(t, rec))
}

func TestRecallRejectsDoubleRecall(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})
	msg := sendTestMessage(t, s, "alice", "bob", "once")

	rec := doRequest(s, http.MethodPost, "/api/v1/messages/"+msg.ID+"/recall", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/messages/"+msg.ID+"/recall", "alice", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperrors.ErrCodeRecallRejected, decodeErrorCode(t, rec))
}

func TestRecallUnknownMessage(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})

	rec := doRequest(s, http.MethodPost, "/api/v1/messages/nope/recall", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResendFlow(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})
	msg := sendTestMessage(t, s, "alice", "bob", "draft one")

	// Resending a live message is rejected.
	rec := doRequest(s, http.MethodPost, "/api/v1/messages/"+msg.ID+"/resend", "alice",
		types.ResendMessageRequest{Content: "draft two", MessageType: "text"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperrors.ErrCodeResendRejected, decodeErrorCode(t, rec))

	rec = doRequest(s, http.MethodPost, "/api/v1/messages/"+msg.ID+"/recall", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Only the sender may resend.
	rec = doRequest(s, http.MethodPost, "/api/v1/messages/"+msg.ID+"/resend", "bob",
		types.ResendMessageRequest{Content: "draft two", MessageType: "text"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperrors.ErrCodeResendRejected, decodeErrorCode(t, rec))

	rec = doRequest(s, http.MethodPost, "/api/v1/messages/"+msg.ID+"/resend", "alice",
		types.ResendMessageRequest{Content: "draft two", MessageType: "text"})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated types.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, msg.ID, updated.ID)
	assert.Equal(t, "draft two", updated.Content)
	assert.False(t, updated.IsRecalled)
}

func TestMarkThreadReadAndUnreadCount(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})

	sendTestMessage(t, s, "alice", "bob", "one")
	sendTestMessage(t, s, "alice", "bob", "two")
	sendTestMessage(t, s, "carol", "bob", "three")

	rec := doRequest(s, http.MethodGet, "/api/v1/unread-count", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var count types.UnreadCountResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&count))
	assert.Equal(t, 3, count.Count)

	rec = doRequest(s, http.MethodPost, "/api/v1/threads/alice:bob/read", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/unread-count", "bob", nil)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&count))
	assert.Equal(t, 1, count.Count)
}

func TestThreadMessagesPagination(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		tick := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return tick }
		sendTestMessage(t, s, "alice", "bob", "msg")
	}

	rec := doRequest(s, http.MethodGet, "/api/v1/threads/alice:bob/messages?page=1&pageSize=2", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.ThreadMessagesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	require.Len(t, resp.Messages, 2)
	assert.True(t, resp.Messages[0].CreatedAt.After(resp.Messages[1].CreatedAt), "newest first")
}

func uploadRequest(t *testing.T, path, userID, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", userID)
	return req
}

func TestUploadImage(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})

	req := uploadRequest(t, "/api/v1/upload/image", "alice", "pic.png", []byte("fake png bytes"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp types.UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "pic.png", resp.Filename)
	assert.Equal(t, int64(len("fake png bytes")), resp.Size)
	assert.Contains(t, resp.URL, "/uploads/")
	assert.Contains(t, resp.URL, ".png", "the stored name keeps the extension")
}

func TestUploadImageOverLimit(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})

	req := uploadRequest(t, "/api/v1/upload/image", "alice", "big.png", make([]byte, 5*1024*1024+1))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadMissingFileField(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload/file", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", "alice")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpointSkipsAuth(t *testing.T) {
	s := newTestServer(t, models.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
