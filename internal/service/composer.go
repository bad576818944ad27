package service

import (
	"context"
	"sync"

	"blogmsg/internal/constants"
	"blogmsg/internal/models"

	apperrors "blogmsg/internal/errors"

	"github.com/sirupsen/logrus"
)

// PasteItem is one entry of a paste event handed to the composer.
type PasteItem struct {
	MimeType string
	Filename string
	Data     []byte
}

// Composer accumulates a draft: bounded text, at most one pending attachment,
// and an editing flag pointing at a recalled message being resent. Submit
// routes through the lifecycle controller as either a new message or a
// resend.
type Composer struct {
	mu        sync.Mutex
	lifecycle *LifecycleController
	uploader  *Uploader
	logger    *logrus.Logger

	draft     string
	pending   *models.AttachmentMeta
	editingID string
}

func NewComposer(lifecycle *LifecycleController, uploader *Uploader, logger *logrus.Logger) *Composer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Composer{
		lifecycle: lifecycle,
		uploader:  uploader,
		logger:    logger,
	}
}

// SetDraft replaces the draft text, clipped to the maximum draft length.
func (c *Composer) SetDraft(text string) {
	runes := []rune(text)
	if len(runes) > constants.MaxDraftChars {
		runes = runes[:constants.MaxDraftChars]
	}
	c.mu.Lock()
	c.draft = string(runes)
	c.mu.Unlock()
}

// InsertText appends a snippet (an emoji pick, typically) to the draft,
// subject to the same length bound.
func (c *Composer) InsertText(text string) {
	c.mu.Lock()
	runes := []rune(c.draft + text)
	if len(runes) > constants.MaxDraftChars {
		runes = runes[:constants.MaxDraftChars]
	}
	c.draft = string(runes)
	c.mu.Unlock()
}

// Draft returns the current draft text.
func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// PendingAttachment returns the attachment staged for the next submit.
func (c *Composer) PendingAttachment() *models.AttachmentMeta {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Editing returns the id of the recalled message being edited, if any.
func (c *Composer) Editing() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID
}

// AcceptPaste uploads the first image item of a paste event and stages it as
// the pending attachment. Non-image items and any further images are ignored
// silently. Returns nil with no error when the paste held no image.
func (c *Composer) AcceptPaste(ctx context.Context, items []PasteItem) (*models.AttachmentMeta, error) {
	for _, item := range items {
		if KindOf(item.MimeType) != KindImage {
			continue
		}
		att, err := c.uploader.UploadImage(ctx, item.Filename, item.Data)
		if err != nil {
			// Upload failure leaves composer state unchanged.
			return nil, err
		}
		c.mu.Lock()
		c.pending = att
		c.mu.Unlock()
		return att, nil
	}
	return nil, nil
}

// PickFile uploads a chosen file and stages it, replacing any existing
// pending attachment: only one attachment per message is supported.
func (c *Composer) PickFile(ctx context.Context, filename string, data []byte) (*models.AttachmentMeta, error) {
	var (
		att *models.AttachmentMeta
		err error
	)
	if KindOf(DetectContentType(filename)) == KindImage {
		att, err = c.uploader.UploadImage(ctx, filename, data)
	} else {
		att, err = c.uploader.UploadFile(ctx, filename, data)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pending = att
	c.mu.Unlock()
	return att, nil
}

// RemoveAttachment discards the pending attachment.
func (c *Composer) RemoveAttachment() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}

// CanSubmit reports whether submit is currently enabled.
func (c *Composer) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft != "" || c.pending != nil
}

// BeginEdit enters resend mode for a recalled message, pre-populating draft
// and attachment from its last content so the user edits rather than retypes.
// Placeholder-only content is not copied into the draft.
func (c *Composer) BeginEdit(m *models.Message) error {
	if m == nil || !m.IsRecalled {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "only a recalled message can be edited")
	}

	draft := m.Content
	if m.Attachment != nil &&
		(draft == constants.ImagePlaceholder || draft == constants.AttachmentPlaceholder) {
		draft = ""
	}

	c.mu.Lock()
	c.editingID = m.ID
	c.draft = draft
	c.pending = m.Attachment
	c.mu.Unlock()

	c.logger.WithField("messageId", m.ID).Debug("Composer entered edit mode")
	return nil
}

// CancelEdit leaves resend mode and clears the draft.
func (c *Composer) CancelEdit() {
	c.mu.Lock()
	c.editingID = ""
	c.draft = ""
	c.pending = nil
	c.mu.Unlock()
}

// Submit sends the draft as a new message, or resends the message under edit.
// On success the draft, pending attachment and editing flag are all cleared.
func (c *Composer) Submit(ctx context.Context) (*models.Message, error) {
	c.mu.Lock()
	draft := c.draft
	pending := c.pending
	editingID := c.editingID
	c.mu.Unlock()

	if draft == "" && pending == nil {
		return nil, apperrors.NewValidationError("draft", "nothing to send")
	}

	var (
		m   *models.Message
		err error
	)
	if editingID != "" {
		m, err = c.lifecycle.Resend(ctx, editingID, draft, pending)
	} else {
		m, err = c.lifecycle.Send(ctx, draft, pending)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.draft = ""
	c.pending = nil
	c.editingID = ""
	c.mu.Unlock()

	return m, nil
}
