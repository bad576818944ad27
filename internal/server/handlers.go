package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"blogmsg/internal/constants"
	"blogmsg/internal/models"
	"blogmsg/pkg/messaging/types"

	apperrors "blogmsg/internal/errors"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type contextKey string

const callerKey contextKey = "caller"

type uploadKind string

const (
	kindImage uploadKind = "image"
	kindFile  uploadKind = "file"
)

// authMiddleware resolves the calling user. With configured tokens the bearer
// token is mapped to a user id; without any, the X-User-ID header is trusted
// (local testing only).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var caller string

		if len(s.cfg.Tokens) > 0 {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			caller = s.cfg.Tokens[token]
		} else {
			caller = r.Header.Get("X-User-ID")
		}

		if caller == "" {
			s.writeError(w, apperrors.New(apperrors.ErrCodeAuthentication, "unknown caller").
				WithUserMessage("Authentication required"))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, caller)))
	})
}

func callerID(r *http.Request) string {
	caller, _ := r.Context().Value(callerKey).(string)
	return caller
}

func (s *Server) handleThreadMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threadID := mux.Vars(r)["threadID"]

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		pageSize, err := strconv.Atoi(r.URL.Query().Get("pageSize"))
		if err != nil || pageSize < 1 {
			pageSize = constants.DefaultPageSize
		}

		messages, totalPages, err := s.store.ListThreadMessages(r.Context(), threadID, page, pageSize)
		if err != nil {
			s.writeError(w, apperrors.NewStoreError("list", err))
			return
		}

		for i := range messages {
			if err := s.attachProfiles(r.Context(), &messages[i]); err != nil {
				s.logger.WithError(err).Warn("Failed to attach participant profiles")
			}
		}

		s.writeJSON(w, http.StatusOK, types.ThreadMessagesResponse{
			Messages:   messages,
			Pagination: types.Pagination{Page: page, TotalPages: totalPages},
		})
	}
}

func (s *Server) handleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerID(r)

		var req types.SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "malformed request body").
				WithUserMessage("Malformed request"))
			return
		}

		if req.RecipientID == "" {
			s.writeError(w, apperrors.NewValidationError("recipientId", "recipient is required"))
			return
		}
		if req.Content == "" && req.AttachmentURL == "" {
			s.writeError(w, apperrors.NewValidationError("content", "message needs text or an attachment"))
			return
		}
		if !validTypeForWire(req.MessageType, req.AttachmentURL) {
			s.writeError(w, apperrors.NewValidationError("messageType", "message type does not match attachment presence"))
			return
		}

		now := s.now()
		msg := types.Message{
			ID:                 uuid.NewString(),
			SenderID:           caller,
			RecipientID:        req.RecipientID,
			ThreadID:           models.ThreadID(caller, req.RecipientID),
			Content:            req.Content,
			MessageType:        req.MessageType,
			AttachmentURL:      req.AttachmentURL,
			AttachmentFilename: req.AttachmentFilename,
			AttachmentSize:     req.AttachmentSize,
			AttachmentMimeType: req.AttachmentMimeType,
			CreatedAt:          now,
		}

		if err := s.store.SaveMessage(r.Context(), &msg); err != nil {
			s.writeError(w, apperrors.NewStoreError("save", err))
			return
		}

		if err := s.attachProfiles(r.Context(), &msg); err != nil {
			s.logger.WithError(err).Warn("Failed to attach participant profiles")
		}

		s.writeJSON(w, http.StatusCreated, msg)
	}
}

func (s *Server) handleRecallMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerID(r)
		messageID := mux.Vars(r)["messageID"]

		msg, err := s.store.GetMessage(r.Context(), messageID)
		if err != nil {
			s.writeError(w, apperrors.NewStoreError("get", err))
			return
		}
		if msg == nil {
			s.writeError(w, apperrors.NewNotFoundError("message", messageID))
			return
		}

		if msg.SenderID != caller {
			s.writeError(w, apperrors.New(apperrors.ErrCodeAuthorization, "only the sender may recall a message").
				WithUserMessage("Only the sender may recall a message"))
			return
		}
		if msg.IsRecalled {
			s.writeError(w, apperrors.New(apperrors.ErrCodeRecallRejected, "message is already recalled").
				WithUserMessage("Message is already recalled"))
			return
		}
		if s.now().Sub(msg.CreatedAt) > s.recallWindow {
			s.writeError(w, apperrors.New(apperrors.ErrCodeRecallRejected, "recall window has expired").
				WithUserMessage("The recall window has expired"))
			return
		}

		if err := s.store.MarkRecalled(r.Context(), messageID, s.now()); err != nil {
			s.writeError(w, apperrors.NewStoreError("recall", err))
			return
		}

		s.writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
	}
}

func (s *Server) handleResendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerID(r)
		messageID := mux.Vars(r)["messageID"]

		var req types.ResendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "malformed request body").
				WithUserMessage("Malformed request"))
			return
		}

		msg, err := s.store.GetMessage(r.Context(), messageID)
		if err != nil {
			s.writeError(w, apperrors.NewStoreError("get", err))
			return
		}
		if msg == nil {
			s.writeError(w, apperrors.NewNotFoundError("message", messageID))
			return
		}

		if msg.SenderID != caller {
			s.writeError(w, apperrors.New(apperrors.ErrCodeResendRejected, "only the sender may resend a message").
				WithUserMessage("Only the sender may resend a message"))
			return
		}
		if !msg.IsRecalled {
			s.writeError(w, apperrors.New(apperrors.ErrCodeResendRejected, "only a recalled message can be resent").
				WithUserMessage("Only a recalled message can be resent"))
			return
		}
		if req.Content == "" && req.AttachmentURL == "" {
			s.writeError(w, apperrors.NewValidationError("content", "message needs text or an attachment"))
			return
		}
		if !validTypeForWire(req.MessageType, req.AttachmentURL) {
			s.writeError(w, apperrors.NewValidationError("messageType", "message type does not match attachment presence"))
			return
		}

		if err := s.store.UpdateResend(r.Context(), messageID, &req, s.now()); err != nil {
			s.writeError(w, apperrors.NewStoreError("resend", err))
			return
		}

		updated, err := s.store.GetMessage(r.Context(), messageID)
		if err != nil || updated == nil {
			s.writeError(w, apperrors.NewStoreError("get", err))
			return
		}
		if err := s.attachProfiles(r.Context(), updated); err != nil {
			s.logger.WithError(err).Warn("Failed to attach participant profiles")
		}

		s.writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) handleMarkThreadRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerID(r)
		threadID := mux.Vars(r)["threadID"]

		if err := s.store.MarkThreadRead(r.Context(), threadID, caller, s.now()); err != nil {
			s.writeError(w, apperrors.NewStoreError("mark-read", err))
			return
		}

		s.writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
	}
}

func (s *Server) handleUnreadCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerID(r)

		count, err := s.store.CountUnread(r.Context(), caller)
		if err != nil {
			s.writeError(w, apperrors.NewStoreError("count-unread", err))
			return
		}

		s.writeJSON(w, http.StatusOK, types.UnreadCountResponse{Count: count})
	}
}

func (s *Server) handleUpload(kind uploadKind) http.HandlerFunc {
	limit := int64(constants.MaxAttachmentSizeMB) * 1024 * 1024
	if kind == kindImage {
		limit = int64(constants.MaxImageSizeMB) * 1024 * 1024
	}

	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit+4096)

		file, header, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "missing file field").
				WithUserMessage("Missing file"))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			s.writeError(w, apperrors.New(apperrors.ErrCodeUploadAPI, "failed to read upload").
				WithUserMessage("Upload failed"))
			return
		}
		if int64(len(data)) > limit {
			s.writeError(w, apperrors.NewAttachmentTooLargeError(string(kind), int64(len(data)), limit))
			return
		}

		ext := filepath.Ext(header.Filename)
		storedName := uuid.NewString() + ext
		if err := os.MkdirAll(s.cfg.UploadDir, 0750); err != nil {
			s.writeError(w, apperrors.New(apperrors.ErrCodeUploadAPI, "failed to create upload directory"))
			return
		}
		if err := os.WriteFile(filepath.Join(s.cfg.UploadDir, storedName), data, 0640); err != nil {
			s.writeError(w, apperrors.New(apperrors.ErrCodeUploadAPI, "failed to store upload"))
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		s.writeJSON(w, http.StatusOK, types.UploadResponse{
			URL:      "/uploads/" + storedName,
			Filename: header.Filename,
			Size:     int64(len(data)),
			MimeType: mimeType,
		})
	}
}

// attachProfiles decorates a message with both participants' profile
// snapshots so clients can derive the other-party identity from any row.
func (s *Server) attachProfiles(ctx context.Context, m *types.Message) error {
	sender, err := s.store.GetUser(ctx, m.SenderID)
	if err != nil {
		return err
	}
	recipient, err := s.store.GetUser(ctx, m.RecipientID)
	if err != nil {
		return err
	}
	m.Sender = sender
	m.Recipient = recipient
	return nil
}

// validTypeForWire enforces the type/attachment invariant at the boundary.
func validTypeForWire(messageType, attachmentURL string) bool {
	switch models.MessageType(messageType) {
	case models.MessageTypeText:
		return attachmentURL == ""
	case models.MessageTypeImage, models.MessageTypeAttachment, models.MessageTypeMixed:
		return attachmentURL != ""
	default:
		return false
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	} else {
		s.logger.WithError(err).Debug("Request rejected")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(apperrors.ToHTTPResponse(err)); encodeErr != nil {
		s.logger.WithError(encodeErr).Error("Failed to encode error response")
	}
}
