package handler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/davidmdi/moodbot/internal/models"
)

const confirmEmoji = "✅"

type waiter struct {
	userID string
	done   chan struct{}
}

// confirmations tracks messages awaiting a ✅ reaction from one user
type confirmations struct {
	mu      sync.Mutex
	waiting map[string]waiter
}

func newConfirmations() *confirmations {
	return &confirmations{waiting: make(map[string]waiter)}
}

func (c *confirmations) register(msgID, userID string) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := waiter{userID: userID, done: make(chan struct{})}
	c.waiting[msgID] = w
	return w.done
}

func (c *confirmations) forget(msgID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.waiting, msgID)
}

// resolve reports whether r confirmed a waiting message
func (c *confirmations) resolve(r models.Reaction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.waiting[r.TargetMessageID]
	if !ok || w.userID != r.SenderID {
		return false
	}
	if strings.ReplaceAll(r.Emoji, "\uFE0F", "") != confirmEmoji {
		return false
	}

	delete(c.waiting, r.TargetMessageID)
	close(w.done)
	return true
}

// wait blocks until the registered msgID is confirmed, the timeout passes or
// ctx ends
func (c *confirmations) wait(ctx context.Context, msgID string, done <-chan struct{}, timeout time.Duration) bool {
	defer c.forget(msgID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
