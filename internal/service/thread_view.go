package service

import (
	"context"
	"fmt"
	"time"

	"blogmsg/internal/constants"
	"blogmsg/internal/models"
	"blogmsg/pkg/messaging"

	"github.com/sirupsen/logrus"
)

// ThreadViewOptions tunes a thread view instance.
type ThreadViewOptions struct {
	PageSize           int
	UnreadPollInterval time.Duration
}

// ThreadView wires the store, lifecycle controller, composer, uploader and
// unread poller for one conversation screen. Each open conversation gets its
// own instance; no two views share mutable state.
type ThreadView struct {
	Store     *ThreadStore
	Lifecycle *LifecycleController
	Composer  *Composer
	Uploader  *Uploader
	Unread    *UnreadPoller

	logger   *logrus.Logger
	pageSize int
}

// NewThreadView builds the component graph for a conversation between the
// current user and otherUserID.
func NewThreadView(client messaging.Client, currentUserID, otherUserID string, opts ThreadViewOptions, logger *logrus.Logger) *ThreadView {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = constants.DefaultPageSize
	}
	if opts.UnreadPollInterval <= 0 {
		opts.UnreadPollInterval = constants.DefaultUnreadPollIntervalSec * time.Second
	}

	threadID := models.ThreadID(currentUserID, otherUserID)

	store := NewThreadStore(client, currentUserID, threadID, logger)
	unread := NewUnreadPoller(client, opts.UnreadPollInterval, logger)
	lifecycle := NewLifecycleController(client, store, unread, currentUserID, otherUserID, logger)
	uploader := NewUploader(client, logger)
	composer := NewComposer(lifecycle, uploader, logger)

	return &ThreadView{
		Store:     store,
		Lifecycle: lifecycle,
		Composer:  composer,
		Uploader:  uploader,
		Unread:    unread,
		logger:    logger,
		pageSize:  opts.PageSize,
	}
}

// Open loads the first history page, marks the thread read, and starts the
// unread badge poller.
func (tv *ThreadView) Open(ctx context.Context) error {
	if err := tv.Store.LoadPage(ctx, 1, tv.pageSize); err != nil {
		return fmt.Errorf("failed to open thread: %w", err)
	}

	if err := tv.Lifecycle.MarkThreadRead(ctx); err != nil {
		// The history is already usable; a failed read marker only delays
		// the badge update.
		tv.logger.WithError(err).Warn("Failed to mark thread read")
	}

	if err := tv.Unread.Start(ctx); err != nil {
		return err
	}
	return nil
}

// LoadOlder fetches the next older page, if the server has one.
func (tv *ThreadView) LoadOlder(ctx context.Context) error {
	if !tv.Store.HasMore() {
		return nil
	}
	return tv.Store.LoadPage(ctx, tv.Store.Page()+1, tv.pageSize)
}

// Close stops the background poller. In-flight requests are not cancelled;
// their eventual responses are simply discarded.
func (tv *ThreadView) Close() {
	tv.Unread.Stop()
}
