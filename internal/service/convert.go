package service

import (
	"blogmsg/internal/models"
	"blogmsg/pkg/messaging/types"
)

// messageFromWire converts a wire message into the domain model. Attachment
// metadata is materialized only when the wire row actually carries one, so
// the type/attachment invariant holds regardless of what the server sent.
func messageFromWire(w *types.Message) *models.Message {
	m := &models.Message{
		ID:          w.ID,
		SenderID:    w.SenderID,
		RecipientID: w.RecipientID,
		ThreadID:    w.ThreadID,
		Content:     w.Content,
		Type:        models.MessageType(w.MessageType),
		IsRead:      w.IsRead,
		ReadAt:      w.ReadAt,
		IsRecalled:  w.IsRecalled,
		RecalledAt:  w.RecalledAt,
		CreatedAt:   w.CreatedAt,
	}

	if w.AttachmentURL != "" {
		m.Attachment = &models.AttachmentMeta{
			URL:      w.AttachmentURL,
			Filename: w.AttachmentFilename,
			Size:     w.AttachmentSize,
			MimeType: w.AttachmentMimeType,
		}
	}

	if w.Sender != nil {
		m.Sender = &models.User{
			ID:          w.Sender.ID,
			Username:    w.Sender.Username,
			DisplayName: w.Sender.DisplayName,
			Avatar:      w.Sender.Avatar,
		}
	}
	if w.Recipient != nil {
		m.Recipient = &models.User{
			ID:          w.Recipient.ID,
			Username:    w.Recipient.Username,
			DisplayName: w.Recipient.DisplayName,
			Avatar:      w.Recipient.Avatar,
		}
	}

	return m
}

func attachmentToSendRequest(req *types.SendMessageRequest, att *models.AttachmentMeta) {
	if att == nil {
		return
	}
	req.AttachmentURL = att.URL
	req.AttachmentFilename = att.Filename
	req.AttachmentSize = att.Size
	req.AttachmentMimeType = att.MimeType
}

func attachmentToResendRequest(req *types.ResendMessageRequest, att *models.AttachmentMeta) {
	if att == nil {
		return
	}
	req.AttachmentURL = att.URL
	req.AttachmentFilename = att.Filename
	req.AttachmentSize = att.Size
	req.AttachmentMimeType = att.MimeType
}
