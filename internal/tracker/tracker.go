// Package tracker keeps the in-flight survey of every recipient.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"

	"github.com/davidmdi/moodbot/internal/models"
)

const (
	stateAwaitingMood   = "awaiting_mood"
	stateAwaitingReason = "awaiting_reason"
	stateComplete       = "complete"

	eventMood   = "mood"
	eventReason = "reason"
)

var (
	ErrAlreadyPending   = errors.New("survey already pending for recipient")
	ErrNotPending       = errors.New("no pending survey for recipient")
	ErrMoodAlreadySet   = errors.New("mood already recorded")
	ErrMoodNotSet       = errors.New("mood not recorded yet")
	ErrReasonAlreadySet = errors.New("reason already recorded")
	ErrIncomplete       = errors.New("survey response is incomplete")
)

type entry struct {
	resp  models.PendingResponse
	state *fsm.FSM
}

// Tracker maps recipient IDs to their outstanding survey.
// At most one survey per recipient exists at any time.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]*entry
	log     zerolog.Logger
}

// New creates an empty tracker
func New(log zerolog.Logger) *Tracker {
	return &Tracker{
		pending: make(map[string]*entry),
		log:     log.With().Str("component", "Tracker").Logger(),
	}
}

func newState() *fsm.FSM {
	return fsm.NewFSM(
		stateAwaitingMood,
		fsm.Events{
			{Name: eventMood, Src: []string{stateAwaitingMood}, Dst: stateAwaitingReason},
			{Name: eventReason, Src: []string{stateAwaitingReason}, Dst: stateComplete},
		},
		fsm.Callbacks{},
	)
}

// Begin registers a new survey sent to recipientID
func (t *Tracker) Begin(recipientID, promptMessageID, displayName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[recipientID]; ok {
		t.log.Warn().Str("recipient", recipientID).Msg("Survey already pending, not starting another")
		return ErrAlreadyPending
	}

	t.pending[recipientID] = &entry{
		resp: models.PendingResponse{
			RecipientID:     recipientID,
			PromptMessageID: promptMessageID,
			DisplayName:     displayName,
		},
		state: newState(),
	}
	t.log.Debug().Str("recipient", recipientID).Str("prompt", promptMessageID).Msg("Survey started")
	return nil
}

// SetMood records the selected mood. Only the first selection counts.
func (t *Tracker) SetMood(ctx context.Context, recipientID string, mood models.Mood) error {
	if !mood.Valid() {
		return fmt.Errorf("invalid mood %d", int(mood))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.pending[recipientID]
	if !ok {
		return ErrNotPending
	}
	if !e.state.Can(eventMood) {
		return ErrMoodAlreadySet
	}
	if err := e.state.Event(ctx, eventMood); err != nil {
		return fmt.Errorf("mood transition: %w", err)
	}

	e.resp.Mood = &mood
	t.log.Debug().Str("recipient", recipientID).Stringer("mood", mood).Msg("Mood recorded")
	return nil
}

// SetReason records the free-text reason. A mood must have been recorded first.
func (t *Tracker) SetReason(ctx context.Context, recipientID, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.pending[recipientID]
	if !ok {
		return ErrNotPending
	}
	switch e.state.Current() {
	case stateAwaitingMood:
		return ErrMoodNotSet
	case stateComplete:
		return ErrReasonAlreadySet
	}
	if err := e.state.Event(ctx, eventReason); err != nil {
		return fmt.Errorf("reason transition: %w", err)
	}

	e.resp.Reason = &reason
	t.log.Debug().Str("recipient", recipientID).Msg("Reason recorded")
	return nil
}

// IsComplete reports whether recipientID has answered both questions
func (t *Tracker) IsComplete(recipientID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.pending[recipientID]
	return ok && e.state.Is(stateComplete)
}

// Finalize removes and returns a completed response
func (t *Tracker) Finalize(recipientID string) (models.PendingResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.pending[recipientID]
	if !ok {
		return models.PendingResponse{}, ErrNotPending
	}
	if !e.state.Is(stateComplete) {
		return models.PendingResponse{}, ErrIncomplete
	}

	delete(t.pending, recipientID)
	return e.resp, nil
}

// Get returns a copy of the pending response for recipientID
func (t *Tracker) Get(recipientID string) (models.PendingResponse, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.pending[recipientID]
	if !ok {
		return models.PendingResponse{}, false
	}
	return e.resp, true
}

// Len returns the number of outstanding surveys
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
