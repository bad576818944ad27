package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"blogmsg/internal/constants"
	"blogmsg/internal/models"
	"blogmsg/pkg/messaging"
	"blogmsg/pkg/messaging/types"

	apperrors "blogmsg/internal/errors"

	"github.com/sirupsen/logrus"
)

// UnreadRefresher is notified after actions that plausibly change the unread
// badge. The unread poller satisfies it.
type UnreadRefresher interface {
	Refresh(ctx context.Context)
}

// LifecycleController owns the per-message state machine:
//
//	Active --recall(sender, within window)--> Recalled --resend(sender)--> Active
//
// The read flag is orthogonal and only ever moves forward. Server responses
// are applied to the thread store by message id, never by position, so a
// response landing after concurrent updates cannot clobber them.
type LifecycleController struct {
	client        messaging.Client
	store         *ThreadStore
	unread        UnreadRefresher
	logger        *logrus.Logger
	currentUserID string
	recipientID   string
	now           func() time.Time

	mu         sync.Mutex
	readMarked bool
}

func NewLifecycleController(client messaging.Client, store *ThreadStore, unread UnreadRefresher, currentUserID, recipientID string, logger *logrus.Logger) *LifecycleController {
	if logger == nil {
		logger = logrus.New()
	}
	return &LifecycleController{
		client:        client,
		store:         store,
		unread:        unread,
		logger:        logger,
		currentUserID: currentUserID,
		recipientID:   recipientID,
		now:           time.Now,
	}
}

// Send creates a new message. There is no optimistic insert: the message is
// appended to the store only after the server confirms it, so no phantom id
// ever appears in the history.
func (lc *LifecycleController) Send(ctx context.Context, content string, att *models.AttachmentMeta) (*models.Message, error) {
	if content == "" && att == nil {
		return nil, apperrors.NewValidationError("content", "message needs text or an attachment")
	}

	msgType, finalContent := models.DeriveMessageType(content, att)

	req := types.SendMessageRequest{
		RecipientID: lc.recipientID,
		Content:     finalContent,
		MessageType: string(msgType),
	}
	attachmentToSendRequest(&req, att)

	wire, err := lc.client.SendMessage(ctx, req)
	if err != nil {
		lc.logger.WithError(err).Warn("Send failed")
		return nil, fmt.Errorf("send failed: %w", err)
	}

	m := messageFromWire(wire)
	lc.store.Append(m)

	lc.logger.WithFields(logrus.Fields{
		"messageId":   m.ID,
		"messageType": m.Type,
	}).Debug("Message sent")

	if lc.unread != nil {
		lc.unread.Refresh(ctx)
	}
	return m, nil
}

// CanRecall reports whether the recall affordance should be shown for a
// message. Advisory only: the server is the authority and may still reject.
func (lc *LifecycleController) CanRecall(m *models.Message) bool {
	if m == nil || m.SenderID != lc.currentUserID || m.IsRecalled {
		return false
	}
	return lc.now().Sub(m.CreatedAt) <= constants.RecallWindow
}

// Recall retracts a message. On server rejection (window expired, not the
// sender) local state is left untouched; nothing was optimistically mutated,
// so there is no rollback.
func (lc *LifecycleController) Recall(ctx context.Context, messageID string) error {
	m, ok := lc.store.Get(messageID)
	if !ok {
		return apperrors.NewNotFoundError("message", messageID)
	}
	if m.SenderID != lc.currentUserID {
		return apperrors.New(apperrors.ErrCodeAuthorization, "only the sender may recall a message")
	}

	if err := lc.client.RecallMessage(ctx, messageID); err != nil {
		lc.logger.WithError(err).WithField("messageId", messageID).Warn("Recall rejected")
		return err
	}

	lc.store.MarkRecalled(messageID, lc.now())
	lc.logger.WithField("messageId", messageID).Debug("Message recalled")
	return nil
}

// CanResend reports whether the resend affordance applies: sender-only and
// only while the message is recalled. No time limit.
func (lc *LifecycleController) CanResend(m *models.Message) bool {
	return m != nil && m.SenderID == lc.currentUserID && m.IsRecalled
}

// Resend edits and republishes a recalled message under its original id. The
// store entry is replaced in place; ordering by the original position is
// preserved.
func (lc *LifecycleController) Resend(ctx context.Context, messageID, content string, att *models.AttachmentMeta) (*models.Message, error) {
	m, ok := lc.store.Get(messageID)
	if !ok {
		return nil, apperrors.NewNotFoundError("message", messageID)
	}
	if !lc.CanResend(m) {
		return nil, apperrors.New(apperrors.ErrCodeResendRejected, "only the sender may resend a recalled message")
	}
	if content == "" && att == nil {
		return nil, apperrors.NewValidationError("content", "message needs text or an attachment")
	}

	msgType, finalContent := models.DeriveMessageType(content, att)

	req := types.ResendMessageRequest{
		Content:     finalContent,
		MessageType: string(msgType),
	}
	attachmentToResendRequest(&req, att)

	wire, err := lc.client.ResendMessage(ctx, messageID, req)
	if err != nil {
		lc.logger.WithError(err).WithField("messageId", messageID).Warn("Resend rejected")
		return nil, err
	}

	updated := messageFromWire(wire)
	if !lc.store.Update(updated) {
		// Loaded window moved past this id; still return the server state.
		lc.logger.WithField("messageId", messageID).Warn("Resent message no longer in loaded window")
	}

	lc.logger.WithFields(logrus.Fields{
		"messageId":   updated.ID,
		"messageType": updated.Type,
	}).Debug("Message resent")
	return updated, nil
}

// MarkThreadRead marks the whole thread read for the current user. Idempotent
// per controller: called once when the first page finishes loading; repeat
// calls are no-ops. Triggers an unread badge refresh.
func (lc *LifecycleController) MarkThreadRead(ctx context.Context) error {
	lc.mu.Lock()
	if lc.readMarked {
		lc.mu.Unlock()
		return nil
	}
	lc.mu.Unlock()

	threadID := lc.store.Thread().ID
	if err := lc.client.MarkThreadRead(ctx, threadID); err != nil {
		return fmt.Errorf("failed to mark thread read: %w", err)
	}

	lc.mu.Lock()
	lc.readMarked = true
	lc.mu.Unlock()

	if lc.unread != nil {
		lc.unread.Refresh(ctx)
	}
	return nil
}
