package types

import "time"

// User is the wire shape of a participant profile snapshot.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

// Message is the wire shape of one conversation row.
type Message struct {
	ID                 string     `json:"id"`
	SenderID           string     `json:"senderId"`
	RecipientID        string     `json:"recipientId"`
	ThreadID           string     `json:"threadId"`
	Content            string     `json:"content"`
	MessageType        string     `json:"messageType"`
	AttachmentURL      string     `json:"attachmentUrl,omitempty"`
	AttachmentFilename string     `json:"attachmentFilename,omitempty"`
	AttachmentSize     int64      `json:"attachmentSize,omitempty"`
	AttachmentMimeType string     `json:"attachmentMimeType,omitempty"`
	Sender             *User      `json:"sender,omitempty"`
	Recipient          *User      `json:"recipient,omitempty"`
	IsRead             bool       `json:"isRead"`
	ReadAt             *time.Time `json:"readAt,omitempty"`
	IsRecalled         bool       `json:"isRecalled"`
	RecalledAt         *time.Time `json:"recalledAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// Pagination reports the server's paging state for a thread history request.
type Pagination struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

// ThreadMessagesResponse is the payload of a thread history page. Messages
// are ordered newest-first as returned by the server.
type ThreadMessagesResponse struct {
	Messages   []Message  `json:"messages"`
	Pagination Pagination `json:"pagination"`
}

// SendMessageRequest creates a new message addressed to a recipient.
type SendMessageRequest struct {
	RecipientID        string `json:"recipientId"`
	Content            string `json:"content"`
	MessageType        string `json:"messageType"`
	AttachmentURL      string `json:"attachmentUrl,omitempty"`
	AttachmentFilename string `json:"attachmentFilename,omitempty"`
	AttachmentSize     int64  `json:"attachmentSize,omitempty"`
	AttachmentMimeType string `json:"attachmentMimeType,omitempty"`
}

// ResendMessageRequest edits and republishes a recalled message in place.
type ResendMessageRequest struct {
	Content            string `json:"content"`
	MessageType        string `json:"messageType"`
	AttachmentURL      string `json:"attachmentUrl,omitempty"`
	AttachmentFilename string `json:"attachmentFilename,omitempty"`
	AttachmentSize     int64  `json:"attachmentSize,omitempty"`
	AttachmentMimeType string `json:"attachmentMimeType,omitempty"`
}

// SuccessResponse acknowledges state-changing calls with no payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// UnreadCountResponse carries the unread badge count for the current user.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// UploadResponse describes a stored attachment object.
type UploadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}
