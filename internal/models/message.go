package models

import (
	"strings"
	"time"

	"blogmsg/internal/constants"
)

// MessageType tags what a message carries. Attachment metadata is present
// exactly on the image, attachment and mixed variants; text messages never
// carry it.
type MessageType string

const (
	MessageTypeText       MessageType = "text"
	MessageTypeImage      MessageType = "image"
	MessageTypeAttachment MessageType = "attachment"
	MessageTypeMixed      MessageType = "mixed"
)

// AttachmentMeta describes a stored attachment referenced by a message, or a
// pending attachment held by the composer before send.
type AttachmentMeta struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// IsImage reports whether the attachment is of image kind.
func (a *AttachmentMeta) IsImage() bool {
	return a != nil && strings.HasPrefix(a.MimeType, "image/")
}

// User is a profile snapshot of a participant. Users are owned by the auth
// collaborator; only the id is authoritative here.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

// Message is one row of a two-party conversation thread.
type Message struct {
	ID          string
	SenderID    string
	RecipientID string
	ThreadID    string
	Content     string
	Type        MessageType
	Attachment  *AttachmentMeta
	Sender      *User
	Recipient   *User
	IsRead      bool
	ReadAt      *time.Time
	IsRecalled  bool
	RecalledAt  *time.Time
	CreatedAt   time.Time
}

// OtherParty returns the participant id that is not currentUserID, together
// with that side's profile snapshot when the message carries one. It inspects
// sender and recipient rather than assuming a fixed direction, so a thread
// renders consistently from either side.
func (m *Message) OtherParty(currentUserID string) (string, *User) {
	if m.SenderID == currentUserID {
		return m.RecipientID, m.Recipient
	}
	return m.SenderID, m.Sender
}

// DisplayContent is what a thread view renders for this message.
func (m *Message) DisplayContent() string {
	if m.IsRecalled {
		return constants.RecalledPlaceholder
	}
	return m.Content
}

// DeriveMessageType applies the shared send/resend rule: attachment plus text
// is mixed; attachment without text is image or attachment depending on kind;
// no attachment is text. When an attachment exists but text was omitted the
// returned content is a kind placeholder so no message persists with empty
// content.
func DeriveMessageType(content string, att *AttachmentMeta) (MessageType, string) {
	if att == nil {
		return MessageTypeText, content
	}
	if content != "" {
		return MessageTypeMixed, content
	}
	if att.IsImage() {
		return MessageTypeImage, constants.ImagePlaceholder
	}
	return MessageTypeAttachment, constants.AttachmentPlaceholder
}

// ValidateTypeInvariant checks the messageType/attachment consistency rule.
func ValidateTypeInvariant(mt MessageType, att *AttachmentMeta) bool {
	switch mt {
	case MessageTypeText:
		return att == nil
	case MessageTypeImage, MessageTypeAttachment, MessageTypeMixed:
		return att != nil && att.URL != ""
	default:
		return false
	}
}
