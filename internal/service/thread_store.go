package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"blogmsg/internal/models"
	"blogmsg/pkg/messaging"

	"github.com/sirupsen/logrus"
)

// ThreadStore holds the ordered message history for one conversation: an
// order vector of message ids (oldest first) plus a map keyed by id, so
// updates apply by id and never by list position. All reads and writes to the
// history go through it.
type ThreadStore struct {
	mu            sync.RWMutex
	logger        *logrus.Logger
	client        messaging.Client
	currentUserID string

	thread     models.Thread
	order      []string
	byID       map[string]*models.Message
	page       int
	totalPages int
	loading    bool
}

func NewThreadStore(client messaging.Client, currentUserID, threadID string, logger *logrus.Logger) *ThreadStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &ThreadStore{
		logger:        logger,
		client:        client,
		currentUserID: currentUserID,
		thread:        models.Thread{ID: threadID},
		byID:          make(map[string]*models.Message),
	}
}

// LoadPage fetches one history page. The server returns messages newest-first;
// they are reversed to oldest-first before merging. Page 1 replaces the whole
// list and derives the other-participant identity; later pages are prepended
// as older history. Duplicate ids are dropped at merge.
func (ts *ThreadStore) LoadPage(ctx context.Context, page, pageSize int) error {
	ts.mu.Lock()
	if ts.loading {
		ts.mu.Unlock()
		return fmt.Errorf("page load already in progress")
	}
	ts.loading = true
	threadID := ts.thread.ID
	ts.mu.Unlock()

	defer func() {
		ts.mu.Lock()
		ts.loading = false
		ts.mu.Unlock()
	}()

	resp, err := ts.client.GetThreadMessages(ctx, threadID, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to load thread page: %w", err)
	}

	// Reverse newest-first to oldest-first.
	batch := make([]*models.Message, 0, len(resp.Messages))
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		batch = append(batch, messageFromWire(&resp.Messages[i]))
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if page == 1 {
		ts.order = ts.order[:0]
		ts.byID = make(map[string]*models.Message, len(batch))
		for _, m := range batch {
			ts.order = append(ts.order, m.ID)
			ts.byID[m.ID] = m
		}
		ts.deriveThreadIdentityLocked()
	} else {
		prepend := make([]string, 0, len(batch))
		for _, m := range batch {
			if _, exists := ts.byID[m.ID]; exists {
				ts.logger.WithField("messageId", m.ID).Debug("Skipping duplicate message at merge")
				continue
			}
			prepend = append(prepend, m.ID)
			ts.byID[m.ID] = m
		}
		ts.order = append(prepend, ts.order...)
	}

	ts.page = resp.Pagination.Page
	ts.totalPages = resp.Pagination.TotalPages

	ts.logger.WithFields(logrus.Fields{
		"threadId":   threadID,
		"page":       ts.page,
		"totalPages": ts.totalPages,
		"loaded":     len(batch),
	}).Debug("Thread page merged")

	return nil
}

// deriveThreadIdentityLocked computes the other-participant fields by
// inspecting every message, not just the first row: the first page may begin
// mid-history and individual rows point either direction.
func (ts *ThreadStore) deriveThreadIdentityLocked() {
	for _, id := range ts.order {
		m := ts.byID[id]
		otherID, profile := m.OtherParty(ts.currentUserID)
		if otherID == "" || otherID == ts.currentUserID {
			continue
		}
		if ts.thread.OtherUserID != "" && ts.thread.OtherUserID != otherID {
			ts.logger.WithFields(logrus.Fields{
				"threadId": ts.thread.ID,
				"expected": ts.thread.OtherUserID,
				"got":      otherID,
			}).Warn("Inconsistent participant in thread history")
			continue
		}
		ts.thread.OtherUserID = otherID
		if profile != nil {
			ts.thread.OtherUsername = profile.Username
			ts.thread.OtherDisplayName = profile.DisplayName
			ts.thread.OtherAvatar = profile.Avatar
		}
	}
}

// HasMore reports whether older pages remain on the server.
func (ts *ThreadStore) HasMore() bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.page < ts.totalPages
}

// Page returns the most recently loaded page number.
func (ts *ThreadStore) Page() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.page
}

// Thread returns the thread identity derived so far.
func (ts *ThreadStore) Thread() models.Thread {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.thread
}

// Messages returns the loaded window oldest-to-newest.
func (ts *ThreadStore) Messages() []*models.Message {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	out := make([]*models.Message, 0, len(ts.order))
	for _, id := range ts.order {
		out = append(out, ts.byID[id])
	}
	return out
}

// Get returns the message with the given id, if loaded.
func (ts *ThreadStore) Get(id string) (*models.Message, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	m, ok := ts.byID[id]
	return m, ok
}

// Len returns the number of loaded messages.
func (ts *ThreadStore) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.order)
}

// Append adds a freshly sent message to the tail of the history.
func (ts *ThreadStore) Append(m *models.Message) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, exists := ts.byID[m.ID]; exists {
		ts.byID[m.ID] = m
		return
	}
	ts.order = append(ts.order, m.ID)
	ts.byID[m.ID] = m
}

// Update replaces the stored message with the same id in place. Ordering is
// untouched, so a resent message keeps its original position even though its
// server-side modification time is newer.
func (ts *ThreadStore) Update(m *models.Message) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, exists := ts.byID[m.ID]; !exists {
		return false
	}
	ts.byID[m.ID] = m
	return true
}

// MarkRecalled flips the recalled flag on a loaded message and stamps the
// recall time. Content is kept; rendering substitutes the placeholder.
func (ts *ThreadStore) MarkRecalled(id string, at time.Time) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	m, exists := ts.byID[id]
	if !exists {
		return false
	}
	m.IsRecalled = true
	m.RecalledAt = &at
	return true
}
