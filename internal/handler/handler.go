package handler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/davidmdi/moodbot/internal/models"
	"github.com/davidmdi/moodbot/internal/report"
	"github.com/davidmdi/moodbot/internal/storage"
	"github.com/davidmdi/moodbot/internal/tracker"
)

// DefaultConfirmTimeout is how long a destructive command waits for approval
const DefaultConfirmTimeout = 30 * time.Second

// Messenger is the part of the chat platform the survey needs
type Messenger interface {
	SendText(ctx context.Context, chatID, text string) (string, error)
	SendImage(ctx context.Context, chatID string, png []byte, caption string) error
	GroupMembers(ctx context.Context, groupID string) ([]models.Member, error)
	Connected() bool
}

// RecordSink persists completed responses
type RecordSink interface {
	Append(ctx context.Context, rec models.MoodRecord) error
	Enabled() bool
}

// Reporter produces the weekly report on demand
type Reporter interface {
	Run(ctx context.Context) (report.Result, error)
}

// Schedule exposes the next automatic runs for the status command
type Schedule interface {
	NextSurvey() time.Time
	NextReport() time.Time
}

type Config struct {
	CommunityGroup string
	OpsChat        string
	Admins         []string
	Location       *time.Location
	ConfirmTimeout time.Duration
}

// SurveyHandler sends the daily survey, collects answers and serves the
// admin commands
type SurveyHandler struct {
	messenger  Messenger
	tracker    *tracker.Tracker
	exclusions *storage.Exclusions
	records    RecordSink
	reporter   Reporter
	schedule   Schedule
	confirms   *confirmations
	config     *Config
	now        func() time.Time
	dispatchMu sync.Mutex
	background sync.WaitGroup
	log        zerolog.Logger
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(
	messenger Messenger,
	tr *tracker.Tracker,
	exclusions *storage.Exclusions,
	records RecordSink,
	reporter Reporter,
	cfg *Config,
	log zerolog.Logger,
) *SurveyHandler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	return &SurveyHandler{
		messenger:  messenger,
		tracker:    tr,
		exclusions: exclusions,
		records:    records,
		reporter:   reporter,
		confirms:   newConfirmations(),
		config:     cfg,
		now:        time.Now,
		log:        log.With().Str("component", "Survey").Logger(),
	}
}

// SetSchedule attaches the scheduler shown by the status command
func (h *SurveyHandler) SetSchedule(s Schedule) {
	h.schedule = s
}

// Wait blocks until pending confirmations have finished
func (h *SurveyHandler) Wait() {
	h.background.Wait()
}

// HandleMessage routes an incoming text to the command router or, in direct
// chats, to the reason collector
func (h *SurveyHandler) HandleMessage(ctx context.Context, msg models.IncomingMessage) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	// a recipient owing a reason is answering the survey, even with "!!!"
	if !msg.IsGroup && h.awaitingReason(msg.SenderID) {
		return h.collectReason(ctx, msg.ChatID, msg.SenderID, text)
	}

	if strings.HasPrefix(text, commandPrefix) {
		return h.HandleCommand(ctx, msg)
	}

	if msg.IsGroup {
		return nil
	}
	return h.collectReason(ctx, msg.ChatID, msg.SenderID, text)
}

func (h *SurveyHandler) awaitingReason(recipientID string) bool {
	pending, ok := h.tracker.Get(recipientID)
	return ok && pending.Mood != nil && pending.Reason == nil
}

// HandleReaction consumes confirmation reactions first, then mood selections
func (h *SurveyHandler) HandleReaction(ctx context.Context, r models.Reaction) error {
	if h.confirms.resolve(r) {
		return nil
	}
	if r.Emoji == "" {
		return nil
	}
	return h.collectMood(ctx, r)
}
