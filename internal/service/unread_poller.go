package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"blogmsg/pkg/messaging"

	"github.com/sirupsen/logrus"
)

// UnreadPoller keeps a non-authoritative unread badge count, refreshed on a
// fixed interval and on demand after actions known to change it. A failed
// poll keeps the last known count; the badge is cosmetic, the backend is the
// source of truth.
type UnreadPoller struct {
	client   messaging.Client
	interval time.Duration
	logger   *logrus.Logger
	onChange func(count int)

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	mu    sync.RWMutex
	count int
}

func NewUnreadPoller(client messaging.Client, interval time.Duration, logger *logrus.Logger) *UnreadPoller {
	if logger == nil {
		logger = logrus.New()
	}
	return &UnreadPoller{
		client:   client,
		interval: interval,
		logger:   logger,
	}
}

// OnChange registers a callback invoked whenever the count changes. Must be
// set before Start.
func (up *UnreadPoller) OnChange(fn func(count int)) {
	up.onChange = fn
}

// Start begins the background polling loop with an immediate first poll.
func (up *UnreadPoller) Start(ctx context.Context) error {
	up.mu.Lock()
	if up.running {
		up.mu.Unlock()
		return fmt.Errorf("unread poller is already running")
	}
	up.ctx, up.cancel = context.WithCancel(ctx)
	up.running = true
	up.mu.Unlock()

	up.wg.Add(1)
	go up.pollLoop()

	up.logger.WithField("interval", up.interval).Debug("Unread poller started")
	return nil
}

// Stop tears down the interval timer and waits for the loop to exit.
// Idempotent; the owning view defers it on unmount so no repeating timer
// leaks.
func (up *UnreadPoller) Stop() {
	up.mu.Lock()
	if !up.running {
		up.mu.Unlock()
		return
	}
	up.running = false
	up.mu.Unlock()

	up.cancel()
	up.wg.Wait()
	up.logger.Debug("Unread poller stopped")
}

// IsRunning reports whether the poll loop is active.
func (up *UnreadPoller) IsRunning() bool {
	up.mu.RLock()
	defer up.mu.RUnlock()
	return up.running
}

// Count returns the last known unread count.
func (up *UnreadPoller) Count() int {
	up.mu.RLock()
	defer up.mu.RUnlock()
	return up.count
}

// Refresh polls once, immediately. Any component may call it after an action
// that plausibly changed the unread state.
func (up *UnreadPoller) Refresh(ctx context.Context) {
	count, err := up.client.GetUnreadCount(ctx)
	if err != nil {
		// Keep the last known count; no user-facing error for a badge.
		up.logger.WithError(err).Debug("Unread poll failed, keeping last count")
		return
	}

	up.mu.Lock()
	changed := count != up.count
	up.count = count
	up.mu.Unlock()

	if changed && up.onChange != nil {
		up.onChange(count)
	}
}

func (up *UnreadPoller) pollLoop() {
	defer up.wg.Done()

	up.Refresh(up.ctx)

	ticker := time.NewTicker(up.interval)
	defer ticker.Stop()

	for {
		select {
		case <-up.ctx.Done():
			return
		case <-ticker.C:
			up.Refresh(up.ctx)
		}
	}
}
