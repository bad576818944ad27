package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"blogmsg/internal/tracing"
	"blogmsg/pkg/messaging/types"

	apperrors "blogmsg/internal/errors"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Client is the REST client for the platform's direct-messaging API.
type Client interface {
	GetThreadMessages(ctx context.Context, threadID string, page, pageSize int) (*types.ThreadMessagesResponse, error)
	SendMessage(ctx context.Context, req types.SendMessageRequest) (*types.Message, error)
	RecallMessage(ctx context.Context, messageID string) error
	ResendMessage(ctx context.Context, messageID string, req types.ResendMessageRequest) (*types.Message, error)
	MarkThreadRead(ctx context.Context, threadID string) error
	GetUnreadCount(ctx context.Context) (int, error)
	UploadImage(ctx context.Context, filename string, data []byte) (*types.UploadResponse, error)
	UploadFile(ctx context.Context, filename string, data []byte) (*types.UploadResponse, error)
}

type restClient struct {
	baseURL   string
	authToken string
	userID    string
	client    *http.Client
	logger    *logrus.Logger
}

// NewClient creates a messaging API client. The userID identifies the current
// user to a dev server running without configured tokens.
func NewClient(baseURL, authToken, userID string, httpClient *http.Client) Client {
	return NewClientWithLogger(baseURL, authToken, userID, httpClient, nil)
}

func NewClientWithLogger(baseURL, authToken, userID string, httpClient *http.Client, logger *logrus.Logger) Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	baseURL = strings.TrimSuffix(baseURL, "/")

	return &restClient{
		baseURL:   baseURL,
		authToken: authToken,
		userID:    userID,
		client:    httpClient,
		logger:    logger,
	}
}

func (c *restClient) GetThreadMessages(ctx context.Context, threadID string, page, pageSize int) (*types.ThreadMessagesResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "messaging.GetThreadMessages",
		attribute.String("thread.id", threadID),
		attribute.Int("page", page),
	)
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/v1/threads/%s/messages?page=%d&pageSize=%d",
		c.baseURL, url.PathEscape(threadID), page, pageSize)

	var result types.ThreadMessagesResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return &result, nil
}

func (c *restClient) SendMessage(ctx context.Context, req types.SendMessageRequest) (*types.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "messaging.SendMessage",
		attribute.String("message.type", req.MessageType),
	)
	defer span.End()

	c.logger.WithFields(logrus.Fields{
		"recipient":   req.RecipientID,
		"messageType": req.MessageType,
	}).Debug("Sending message")

	endpoint := fmt.Sprintf("%s/api/v1/messages", c.baseURL)

	var result types.Message
	if err := c.doJSON(ctx, http.MethodPost, endpoint, req, &result); err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return &result, nil
}

func (c *restClient) RecallMessage(ctx context.Context, messageID string) error {
	ctx, span := tracing.StartSpan(ctx, "messaging.RecallMessage",
		attribute.String("message.id", messageID),
	)
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/v1/messages/%s/recall", c.baseURL, url.PathEscape(messageID))

	var result types.SuccessResponse
	if err := c.doJSON(ctx, http.MethodPost, endpoint, nil, &result); err != nil {
		tracing.RecordError(ctx, err)
		return err
	}
	if !result.Success {
		return apperrors.New(apperrors.ErrCodeRecallRejected, "server declined recall")
	}
	return nil
}

func (c *restClient) ResendMessage(ctx context.Context, messageID string, req types.ResendMessageRequest) (*types.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "messaging.ResendMessage",
		attribute.String("message.id", messageID),
	)
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/v1/messages/%s/resend", c.baseURL, url.PathEscape(messageID))

	var result types.Message
	if err := c.doJSON(ctx, http.MethodPost, endpoint, req, &result); err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return &result, nil
}

func (c *restClient) MarkThreadRead(ctx context.Context, threadID string) error {
	ctx, span := tracing.StartSpan(ctx, "messaging.MarkThreadRead",
		attribute.String("thread.id", threadID),
	)
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/v1/threads/%s/read", c.baseURL, url.PathEscape(threadID))

	var result types.SuccessResponse
	if err := c.doJSON(ctx, http.MethodPost, endpoint, nil, &result); err != nil {
		tracing.RecordError(ctx, err)
		return err
	}
	return nil
}

func (c *restClient) GetUnreadCount(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "messaging.GetUnreadCount")
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/v1/unread-count", c.baseURL)

	var result types.UnreadCountResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		tracing.RecordError(ctx, err)
		return 0, err
	}
	return result.Count, nil
}

func (c *restClient) UploadImage(ctx context.Context, filename string, data []byte) (*types.UploadResponse, error) {
	return c.upload(ctx, "image", filename, data)
}

func (c *restClient) UploadFile(ctx context.Context, filename string, data []byte) (*types.UploadResponse, error) {
	return c.upload(ctx, "file", filename, data)
}

func (c *restClient) upload(ctx context.Context, kind, filename string, data []byte) (*types.UploadResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "messaging.Upload",
		attribute.String("upload.kind", kind),
		attribute.Int("upload.size", len(data)),
	)
	defer span.End()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/upload/%s", c.baseURL, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		err := c.apiError("upload "+kind, endpoint, resp)
		tracing.RecordError(ctx, err)
		return nil, err
	}

	var result types.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func (c *restClient) doJSON(ctx context.Context, method, endpoint string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.apiError(method+" "+endpoint, endpoint, resp)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *restClient) setAuth(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}
}

// apiError converts a non-2xx response into a structured error, preserving
// the server's rejection code when the body carries one.
func (c *restClient) apiError(operation, endpoint string, resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	var wire apperrors.HTTPErrorResponse
	if err := json.Unmarshal(bodyBytes, &wire); err == nil && wire.Error.Code != "" {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"code":   wire.Error.Code,
		}).Warn("Messaging API rejected request")
		return apperrors.New(wire.Error.Code, wire.Error.Message).
			WithContext("status_code", resp.StatusCode).
			WithUserMessage(wire.Error.Message)
	}

	c.logger.WithFields(logrus.Fields{
		"status": resp.StatusCode,
		"body":   string(bodyBytes),
	}).Error("Messaging API returned error status")
	return apperrors.NewAPIError(operation, endpoint, resp.StatusCode,
		fmt.Errorf("messaging API error: status %d", resp.StatusCode))
}
